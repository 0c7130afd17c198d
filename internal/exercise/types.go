// Package exercise holds the catalogue of practice exercises: phrases the
// speaker is asked to say, grouped by category and difficulty.
//
// Catalogues are YAML files. The built-in catalogue returned by [Default]
// ships eight exercises covering repetition, minimal pairs and tongue
// twisters.
package exercise

import "github.com/MrWong99/clearspeech/internal/analysis"

// MaxTargetLength is the longest target text, in bytes, an exercise may carry.
const MaxTargetLength = 500

// Category groups exercises by the skill they train.
type Category string

const (
	RepeatAfterMe    Category = "repeat_after_me"
	MinimalPairs     Category = "minimal_pairs"
	TongueTwisters   Category = "tongue_twisters"
	WordChains       Category = "word_chains"
	SentenceBuilding Category = "sentence_building"
)

// CategoryInfo describes a [Category] for listings.
type CategoryInfo struct {
	Type        Category `json:"type"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
}

// Categories lists every known category in display order.
var Categories = []CategoryInfo{
	{RepeatAfterMe, "Repeat After Me", "Listen and repeat the target phrase"},
	{MinimalPairs, "Minimal Pairs", "Practice similar-sounding words (e.g., ship/chip)"},
	{TongueTwisters, "Tongue Twisters", "Practice challenging phrases for fluency"},
	{WordChains, "Word Chains", "Build vocabulary with connected words"},
	{SentenceBuilding, "Sentence Building", "Progress from words to full sentences"},
}

// IsValid reports whether c is a known category.
func (c Category) IsValid() bool {
	for _, info := range Categories {
		if info.Type == c {
			return true
		}
	}
	return false
}

// Difficulty ranks exercises from easy to hard.
type Difficulty string

const (
	Easy   Difficulty = "easy"
	Medium Difficulty = "medium"
	Hard   Difficulty = "hard"
)

var difficultyOrder = []Difficulty{Easy, Medium, Hard}

// IsValid reports whether d is a known difficulty.
func (d Difficulty) IsValid() bool {
	return d.rank() >= 0
}

func (d Difficulty) rank() int {
	for i, v := range difficultyOrder {
		if v == d {
			return i
		}
	}
	return -1
}

// Step moves d one level in the direction of adj, clamped to [Easy, Hard].
// Unknown difficulties are returned unchanged.
func (d Difficulty) Step(adj analysis.Adjustment) Difficulty {
	r := d.rank()
	if r < 0 {
		return d
	}
	switch adj {
	case analysis.Easier:
		r = max(0, r-1)
	case analysis.Harder:
		r = min(len(difficultyOrder)-1, r+1)
	}
	return difficultyOrder[r]
}

// Exercise is one practice item.
type Exercise struct {
	// ID uniquely identifies the exercise within a catalogue (e.g., "ex-001").
	ID string `yaml:"id" json:"id"`

	// Title is the display name.
	Title string `yaml:"title" json:"title"`

	Category   Category   `yaml:"category" json:"category"`
	Difficulty Difficulty `yaml:"difficulty" json:"difficulty"`

	// TargetText is the phrase the speaker should say.
	TargetText string `yaml:"target_text" json:"target_text"`

	// Instructions are shown before the attempt.
	Instructions string `yaml:"instructions" json:"instructions"`
}
