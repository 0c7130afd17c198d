// Package analysis turns a positional scoring result into therapist-facing
// detail: a score for every target word, a classified error for every word
// that was not said exactly, and a short list of practice suggestions.
//
// The analysis never changes the four scores computed by package scoring. It
// adds two supplementary measures on top: an error-weighted clarity and a
// speaking-rate score derived from the attempt duration.
package analysis

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/MrWong99/clearspeech/internal/analysis/phonetic"
	"github.com/MrWong99/clearspeech/pkg/scoring"
)

// MaxSuggestions caps the number of suggestions in a [Report].
const MaxSuggestions = 5

// lowWordScore is the word score below which a word is listed for practice.
const lowWordScore = 70

// defaultRateScore is reported when the speaking rate cannot be measured.
const defaultRateScore = 75

// ErrorType classifies a word-level pronunciation error.
type ErrorType string

const (
	// Substitution means a different word of the same length was heard.
	Substitution ErrorType = "substitution"

	// Omission means the word was missing or heard with sounds left out.
	Omission ErrorType = "omission"

	// Addition means extra sounds or an extra word were heard.
	Addition ErrorType = "addition"

	// Distortion means the word was recognisably attempted but unclear: it
	// did not match, yet it sounds like the target.
	Distortion ErrorType = "distortion"
)

// penalty is the error-weighted clarity deduction per error.
func (e ErrorType) penalty() int {
	switch e {
	case Distortion:
		return 15
	case Substitution:
		return 10
	case Omission:
		return 20
	case Addition:
		return 5
	default:
		return 10
	}
}

// Adjustment is a recommendation for the next exercise's difficulty.
type Adjustment string

const (
	Easier Adjustment = "easier"
	Same   Adjustment = "same"
	Harder Adjustment = "harder"
)

// IsValid reports whether a is one of the known adjustments.
func (a Adjustment) IsValid() bool {
	switch a {
	case Easier, Same, Harder:
		return true
	}
	return false
}

// DifficultyAdjustment recommends easier practice below an overall score of
// 50 and harder practice from 90 upwards.
func DifficultyAdjustment(overall int) Adjustment {
	switch {
	case overall < 50:
		return Easier
	case overall >= 90:
		return Harder
	default:
		return Same
	}
}

// WordError is a single classified error.
type WordError struct {
	// Word is the target word, or the extra spoken word for additions.
	Word string `json:"word"`

	// Position is the zero-based alignment index.
	Position int `json:"position"`

	// Expected is the target word; empty for extra words.
	Expected string `json:"expected"`

	// Actual is the spoken word; empty for missing words.
	Actual string `json:"actual"`

	Type       ErrorType `json:"error_type"`
	Suggestion string    `json:"suggestion"`
}

// WordScore scores one target word.
type WordScore struct {
	Word   string `json:"word"`
	Spoken string `json:"spoken"`

	// Score is the similarity in percent, rounded to one decimal.
	Score float64 `json:"score"`

	// Match mirrors the positional match flag.
	Match bool `json:"match"`

	// Error is nil when the word was said exactly.
	Error *WordError `json:"error,omitempty"`
}

// Report is the full analysis of one attempt.
type Report struct {
	WordScores  []WordScore `json:"word_scores"`
	Errors      []WordError `json:"errors"`
	Suggestions []string    `json:"suggestions"`

	// ErrorClarity starts at 100 and deducts a fixed penalty per error type.
	ErrorClarity int `json:"error_clarity"`

	// WordsPerMinute is zero when no duration was supplied.
	WordsPerMinute float64 `json:"words_per_minute"`

	// RateScore grades WordsPerMinute against the 100 to 150 wpm clear-speech band.
	RateScore int `json:"rate_score"`

	Difficulty Adjustment `json:"difficulty_adjustment"`
}

// MissedWords returns the target words that did not match, in order.
func (r *Report) MissedWords() []string {
	var out []string
	for _, ws := range r.WordScores {
		if !ws.Match {
			out = append(out, ws.Word)
		}
	}
	return out
}

// CountByType returns the number of errors for each type present.
func (r *Report) CountByType() map[ErrorType]int {
	out := make(map[ErrorType]int)
	for _, e := range r.Errors {
		out[e.Type]++
	}
	return out
}

// Option configures an [Analyzer].
type Option func(*Analyzer)

// WithMatcher replaces the default phonetic matcher.
func WithMatcher(m *phonetic.Matcher) Option {
	return func(a *Analyzer) {
		a.matcher = m
	}
}

// Analyzer builds [Report]s. It is read-only after construction and safe for
// concurrent use.
type Analyzer struct {
	matcher *phonetic.Matcher
}

// New returns an Analyzer configured with opts.
func New(opts ...Option) *Analyzer {
	a := &Analyzer{matcher: phonetic.New()}
	for _, o := range opts {
		o(a)
	}
	return a
}

// Analyze classifies every entry of res. duration is the length of the
// spoken attempt; zero means unknown.
func (a *Analyzer) Analyze(res scoring.Result, duration time.Duration) *Report {
	r := &Report{Difficulty: DifficultyAdjustment(res.Scores.Overall)}

	var unmatched []string
	for _, w := range res.WordAnalysis {
		if w.Target != scoring.Extra && !w.Match {
			unmatched = append(unmatched, w.Target)
		}
	}

	spokenWords := 0
	for i, w := range res.WordAnalysis {
		if w.Spoken != scoring.Missing {
			spokenWords++
		}
		if w.Target == scoring.Extra {
			r.Errors = append(r.Errors, a.extraWord(i, w.Spoken, unmatched))
			continue
		}

		ws := WordScore{Word: w.Target, Spoken: w.Spoken, Match: w.Match}
		switch {
		case w.Spoken == scoring.Missing:
			ws.Spoken = ""
			ws.Error = &WordError{
				Word:       w.Target,
				Position:   i,
				Expected:   w.Target,
				Type:       Omission,
				Suggestion: fmt.Sprintf("Try to include the word '%s'", w.Target),
			}
		case w.Target == w.Spoken:
			ws.Score = 100
		default:
			ws.Score = math.Round(scoring.Similarity(w.Target, w.Spoken)*1000) / 10
			e := a.classify(i, w)
			ws.Error = &e
		}
		if ws.Error != nil {
			r.Errors = append(r.Errors, *ws.Error)
		}
		r.WordScores = append(r.WordScores, ws)
	}

	r.ErrorClarity = errorClarity(r)
	r.WordsPerMinute, r.RateScore = speakingRate(spokenWords, duration)
	r.Suggestions = suggestions(r)
	return r
}

// classify explains a pair whose words differ.
func (a *Analyzer) classify(pos int, w scoring.WordAlignment) WordError {
	e := WordError{Word: w.Target, Position: pos, Expected: w.Target, Actual: w.Spoken}
	if !w.Match && a.matcher.Compare(w.Target, w.Spoken).SoundsAlike {
		e.Type = Distortion
		e.Suggestion = fmt.Sprintf("'%s' sounded close to '%s'; say each sound slowly", w.Spoken, w.Target)
		return e
	}

	tl, sl := len([]rune(w.Target)), len([]rune(w.Spoken))
	switch {
	case sl > tl:
		e.Type = Addition
		e.Suggestion = fmt.Sprintf("'%s' has extra sounds, expected '%s'", w.Spoken, w.Target)
	case sl < tl:
		e.Type = Omission
		e.Suggestion = fmt.Sprintf("Some sounds missing in '%s', expected '%s'", w.Spoken, w.Target)
	default:
		e.Type = Substitution
		e.Suggestion = fmt.Sprintf("'%s' should be '%s'", w.Spoken, w.Target)
	}
	return e
}

// extraWord explains a spoken word past the end of the target. When it sounds
// like a target word that was missed, the hint names that word.
func (a *Analyzer) extraWord(pos int, spoken string, unmatched []string) WordError {
	e := WordError{Word: spoken, Position: pos, Actual: spoken, Type: Addition}
	if meant, _, ok := a.matcher.Closest(spoken, unmatched); ok {
		e.Suggestion = fmt.Sprintf("Extra word '%s' sounds like '%s', which was expected earlier", spoken, meant)
		return e
	}
	e.Suggestion = fmt.Sprintf("Extra word '%s' detected", spoken)
	return e
}

func errorClarity(r *Report) int {
	if len(r.WordScores) == 0 {
		return 0
	}
	score := 100
	for _, e := range r.Errors {
		score -= e.Type.penalty()
	}
	return max(0, score)
}

// speakingRate returns words per minute and its band score.
func speakingRate(words int, d time.Duration) (float64, int) {
	if words < 2 || d <= 0 {
		return 0, defaultRateScore
	}
	wpm := float64(words) / d.Minutes()
	switch {
	case wpm >= 100 && wpm <= 150:
		return wpm, 100
	case wpm >= 80 && wpm < 100, wpm > 150 && wpm <= 180:
		return wpm, 85
	case wpm >= 60 && wpm < 80, wpm > 180 && wpm <= 200:
		return wpm, 70
	default:
		return wpm, 50
	}
}

func suggestions(r *Report) []string {
	byType := make(map[ErrorType][]WordError)
	for _, e := range r.Errors {
		byType[e.Type] = append(byType[e.Type], e)
	}

	var out []string
	if om := byType[Omission]; len(om) > 0 {
		out = append(out, "Try to pronounce all sounds in: "+strings.Join(firstWords(om, 3), ", "))
	}
	if sub := byType[Substitution]; len(sub) > 0 {
		out = append(out, fmt.Sprintf("Focus on the correct sound in '%s'", sub[0].Word))
	}
	if dis := byType[Distortion]; len(dis) > 0 {
		out = append(out, fmt.Sprintf("Slow down and stress each sound in '%s'", dis[0].Word))
	}
	if len(byType[Addition]) > 0 {
		out = append(out, "Speak more clearly without adding extra sounds")
	}

	var low []string
	for _, ws := range r.WordScores {
		if ws.Score < lowWordScore {
			low = append(low, ws.Word)
		}
	}
	if len(low) > 0 {
		out = append(out, "Practice these words: "+strings.Join(low[:min(3, len(low))], ", "))
	}

	if len(r.Errors) <= 2 {
		out = append(out, "Good job! Keep practicing for even better clarity.")
	}
	if len(out) > MaxSuggestions {
		out = out[:MaxSuggestions]
	}
	return out
}

func firstWords(errs []WordError, n int) []string {
	words := make([]string, 0, n)
	for _, e := range errs[:min(n, len(errs))] {
		words = append(words, e.Word)
	}
	return words
}
