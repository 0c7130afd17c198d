// Package scoring compares a target phrase against a recognised transcript and
// produces per-word alignment data plus four integer scores (clarity, pace,
// fluency and overall) in the range [0, 100].
//
// The comparison runs in three stages:
//
//  1. Tokenisation: both inputs are lower-cased, stripped of punctuation and
//     split on whitespace. Empty tokens are dropped.
//
//  2. Positional alignment: the i-th target word is compared against the i-th
//     spoken word using a normalised Levenshtein similarity. A pair matches
//     when the similarity reaches [Config.MatchThreshold]. Target words with
//     no spoken counterpart are recorded as [Missing]; spoken words beyond the
//     end of the target are recorded as [Extra].
//
//  3. Score calculation: the matched count and the two token counts are turned
//     into clarity, fluency, pace and a weighted overall score.
//
// The alignment is deliberately positional: a single inserted word early in
// the transcript shifts every following pair. Callers that need an
// edit-distance optimal alignment should use [WordErrorRate], which is
// reported alongside the positional scores and never feeds into them.
//
// Everything in this package is pure and deterministic. A [Scorer] holds only
// an immutable [Config] and is safe for concurrent use.
package scoring

// Sentinel values placed in [WordAlignment] when one side has no word.
const (
	// Missing is the Spoken value for a target word the speaker never reached.
	Missing = "(missing)"

	// Extra is the Target value for a spoken word past the end of the target.
	Extra = "(extra)"
)

// Scores are the four integer scores derived from one comparison.
type Scores struct {
	Overall int `json:"overall" yaml:"overall"`
	Clarity int `json:"clarity" yaml:"clarity"`
	Pace    int `json:"pace" yaml:"pace"`
	Fluency int `json:"fluency" yaml:"fluency"`
}

// WordAlignment is one positional pairing of a target word and a spoken word.
type WordAlignment struct {
	// Target is the expected word, or [Extra] for surplus spoken words.
	Target string `json:"target"`

	// Spoken is the recognised word, or [Missing] when the transcript ended early.
	Spoken string `json:"spoken"`

	// Match reports whether the pair reached the match threshold. Always false
	// for [Extra] and [Missing] entries.
	Match bool `json:"match"`
}

// Result is the full output of a single comparison.
type Result struct {
	Scores       Scores          `json:"scores"`
	WordAnalysis []WordAlignment `json:"word_analysis"`
}

// Matched returns the number of target words that matched.
func (r Result) Matched() int {
	n := 0
	for _, w := range r.WordAnalysis {
		if w.Match {
			n++
		}
	}
	return n
}

// Scorer scores transcripts against targets using a fixed [Config].
// The zero value uses [DefaultConfig].
type Scorer struct {
	cfg Config
	set bool
}

// NewScorer returns a Scorer for cfg. It returns an error if cfg is invalid.
func NewScorer(cfg Config) (*Scorer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Scorer{cfg: cfg, set: true}, nil
}

// Config returns the configuration the Scorer uses.
func (s *Scorer) Config() Config {
	if s == nil || !s.set {
		return DefaultConfig()
	}
	return s.cfg
}

// Score tokenises target and spoken, aligns the tokens and calculates scores.
// It never fails: empty or punctuation-only inputs yield zero-length token
// lists and the corresponding scores.
func (s *Scorer) Score(target, spoken string) Result {
	cfg := s.Config()
	t := Tokenize(target)
	sp := Tokenize(spoken)
	words, matched := Align(t, sp, cfg)
	return Result{
		Scores:       Calculate(len(t), len(sp), matched, cfg),
		WordAnalysis: words,
	}
}

// Score is shorthand for scoring with [DefaultConfig].
func Score(target, spoken string) Result {
	var s Scorer
	return s.Score(target, spoken)
}
