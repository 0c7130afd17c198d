package phonetic_test

import (
	"testing"

	"github.com/MrWong99/clearspeech/internal/analysis/phonetic"
)

func TestMatcher_Compare(t *testing.T) {
	t.Parallel()

	m := phonetic.New()

	tests := []struct {
		target, spoken string
		alike          bool
	}{
		{"phone", "fone", true},
		{"seashells", "seashels", true},
		{"Peppers", "peppers", true},
		{"think", "zzzzz", false},
		{"hello", "", false},
		{"", "hello", false},
	}
	for _, tc := range tests {
		t.Run(tc.target+"/"+tc.spoken, func(t *testing.T) {
			t.Parallel()
			got := m.Compare(tc.target, tc.spoken)
			if got.SoundsAlike != tc.alike {
				t.Errorf("Compare(%q, %q).SoundsAlike = %v, want %v (%+v)", tc.target, tc.spoken, got.SoundsAlike, tc.alike, got)
			}
		})
	}
}

func TestMatcher_ComparePhoneticFlag(t *testing.T) {
	t.Parallel()

	got := phonetic.New().Compare("phone", "fone")
	if !got.Phonetic {
		t.Errorf("Compare(phone, fone).Phonetic = false, want true (codes %q / %q)", got.TargetCode, got.SpokenCode)
	}
	if got.TargetCode != got.SpokenCode {
		t.Errorf("primary codes differ: %q vs %q", got.TargetCode, got.SpokenCode)
	}
}

func TestMatcher_Thresholds(t *testing.T) {
	t.Parallel()

	strict := phonetic.New(phonetic.WithPhoneticThreshold(0.99), phonetic.WithFuzzyThreshold(0.99))
	if strict.Compare("phone", "fone").SoundsAlike {
		t.Error("strict matcher: phone/fone should not sound alike")
	}
	if !strict.Compare("phone", "phone").SoundsAlike {
		t.Error("strict matcher: identical words should sound alike")
	}
}

func TestMatcher_Closest(t *testing.T) {
	t.Parallel()

	m := phonetic.New()

	best, sim, ok := m.Closest("fone", []string{"hello", "phone", "table"})
	if !ok {
		t.Fatal("Closest(fone): ok=false, want true")
	}
	if best != "phone" {
		t.Errorf("Closest(fone) = %q, want phone", best)
	}
	if sim <= 0 || sim > 1 {
		t.Errorf("Closest(fone) similarity = %v, want (0, 1]", sim)
	}

	if _, _, ok := m.Closest("zzzzz", []string{"hello", "phone"}); ok {
		t.Error("Closest(zzzzz): ok=true, want false")
	}
	if _, _, ok := m.Closest("fone", nil); ok {
		t.Error("Closest with no candidates: ok=true, want false")
	}
}
