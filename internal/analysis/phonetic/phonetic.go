// Package phonetic decides whether a misrecognised word sounded like the word
// the speaker was asked to say, using Double Metaphone phonetic encoding
// combined with Jaro-Winkler string similarity.
//
// The check proceeds in two stages:
//
//  1. Phonetic filtering: Double Metaphone codes (primary and secondary) are
//     computed for both words. The pair is a phonetic candidate when any code
//     from one side equals any code from the other.
//
//  2. Jaro-Winkler confirmation: a phonetic candidate sounds alike when the
//     case-insensitive Jaro-Winkler similarity reaches the phonetic threshold
//     (default 0.70). Pairs without a shared code still count when their
//     similarity reaches the higher fuzzy threshold (default 0.85), which
//     catches short words whose codes are empty.
//
// The results only drive therapist-style hints. They never change whether a
// word counts as matched in the positional scores.
package phonetic

import (
	"strings"

	"github.com/antzucaro/matchr"
)

const (
	defaultPhoneticThreshold = 0.70
	defaultFuzzyThreshold    = 0.85
)

// Option is a functional option for configuring a [Matcher].
type Option func(*Matcher)

// WithPhoneticThreshold sets the minimum Jaro-Winkler score for a pair that
// shares a Double Metaphone code. Default: 0.70.
func WithPhoneticThreshold(threshold float64) Option {
	return func(m *Matcher) {
		m.phoneticThreshold = threshold
	}
}

// WithFuzzyThreshold sets the minimum Jaro-Winkler score for a pair with no
// shared code. Default: 0.85.
func WithFuzzyThreshold(threshold float64) Option {
	return func(m *Matcher) {
		m.fuzzyThreshold = threshold
	}
}

// Comparison is the outcome of comparing a target word with a spoken word.
type Comparison struct {
	// SoundsAlike reports whether the spoken word plausibly was an attempt at
	// the target word.
	SoundsAlike bool

	// Phonetic reports whether the two words share a Double Metaphone code.
	Phonetic bool

	// Similarity is the Jaro-Winkler similarity in [0, 1].
	Similarity float64

	// TargetCode and SpokenCode are the primary Double Metaphone codes.
	TargetCode string
	SpokenCode string
}

// Matcher compares words phonetically. It is read-only after construction
// and safe for concurrent use.
type Matcher struct {
	phoneticThreshold float64
	fuzzyThreshold    float64
}

// New returns a new [Matcher] configured with the supplied options.
func New(opts ...Option) *Matcher {
	m := &Matcher{
		phoneticThreshold: defaultPhoneticThreshold,
		fuzzyThreshold:    defaultFuzzyThreshold,
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Compare reports how close spoken sounds to target. Empty input on either
// side never sounds alike.
func (m *Matcher) Compare(target, spoken string) Comparison {
	t := strings.ToLower(strings.TrimSpace(target))
	s := strings.ToLower(strings.TrimSpace(spoken))
	if t == "" || s == "" {
		return Comparison{}
	}

	tp, ts := matchr.DoubleMetaphone(t)
	sp, ss := matchr.DoubleMetaphone(s)
	c := Comparison{
		Phonetic:   codesOverlap(codeSet(tp, ts), codeSet(sp, ss)),
		Similarity: matchr.JaroWinkler(t, s, false),
		TargetCode: tp,
		SpokenCode: sp,
	}
	if c.Phonetic {
		c.SoundsAlike = c.Similarity >= m.phoneticThreshold
	} else {
		c.SoundsAlike = c.Similarity >= m.fuzzyThreshold
	}
	return c
}

// Closest returns the candidate that spoken sounds most like, preferring
// phonetic candidates over fuzzy ones. ok is false when nothing sounds alike.
func (m *Matcher) Closest(spoken string, candidates []string) (best string, similarity float64, ok bool) {
	var bestPhonetic bool
	for _, c := range candidates {
		cmp := m.Compare(c, spoken)
		if !cmp.SoundsAlike {
			continue
		}
		switch {
		case cmp.Phonetic && !bestPhonetic,
			cmp.Phonetic == bestPhonetic && cmp.Similarity > similarity:
			best, similarity, ok, bestPhonetic = c, cmp.Similarity, true, cmp.Phonetic
		}
	}
	return best, similarity, ok
}

// codeSet returns the non-empty codes as a set. Empty codes are produced when
// the word is too short or contains no consonants.
func codeSet(codes ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(codes))
	for _, c := range codes {
		if c != "" {
			set[c] = struct{}{}
		}
	}
	return set
}

// codesOverlap returns true if the two code sets share at least one code.
func codesOverlap(a, b map[string]struct{}) bool {
	if len(a) > len(b) {
		a, b = b, a
	}
	for code := range a {
		if _, ok := b[code]; ok {
			return true
		}
	}
	return false
}
