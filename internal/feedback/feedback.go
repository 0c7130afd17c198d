// Package feedback produces coaching text for a scored attempt: a short
// assessment, an encouragement, practice tips and the recommended difficulty
// for the next exercise. It also writes session summaries and weekly
// progress insights.
//
// [LLMGenerator] asks a language model for feedback; [RuleGenerator] derives
// it offline from the word analysis. [Fallback] chains generators behind
// circuit breakers and always ends at a [RuleGenerator], so callers get
// feedback even when every remote backend is down.
package feedback

import (
	"context"
	"errors"

	"github.com/MrWong99/clearspeech/internal/analysis"
	"github.com/MrWong99/clearspeech/pkg/scoring"
)

// ErrMalformedResponse is returned when a model reply cannot be decoded.
var ErrMalformedResponse = errors.New("feedback: malformed model response")

// Defaults applied to fields a model leaves empty.
const (
	DefaultFeedback      = "Good effort! Keep practicing."
	DefaultEncouragement = "You're making progress!"
)

// UserContext describes the speaker so feedback can be adjusted to them.
type UserContext struct {
	// SpeechCondition is a free-text description, for example "stuttering".
	SpeechCondition string `json:"speech_condition,omitempty" yaml:"speech_condition"`

	// SeverityLevel is 1 (mild) to 5 (severe); zero means unknown.
	SeverityLevel int `json:"severity_level,omitempty" yaml:"severity_level"`
}

// Request carries one scored attempt.
type Request struct {
	Target string
	Spoken string
	Scores scoring.Scores

	// Errors are the classified word errors, in alignment order.
	Errors []analysis.WordError

	// UserContext may be nil.
	UserContext *UserContext
}

// Feedback is the coaching reply for one attempt.
type Feedback struct {
	Feedback             string              `json:"feedback"`
	Encouragement        string              `json:"encouragement"`
	SpecificTips         []string            `json:"specific_tips"`
	RecommendedExercises []string            `json:"recommended_exercises"`
	DifficultyAdjustment analysis.Adjustment `json:"difficulty_adjustment"`

	// Source names the generator that produced the feedback.
	Source string `json:"source,omitempty"`
}

// SessionStats summarises one practice session.
type SessionStats struct {
	DurationMinutes int      `json:"duration_minutes"`
	ExerciseCount   int      `json:"exercise_count"`
	AverageScore    float64  `json:"average_score"`
	BestScore       int      `json:"best_score"`
	ExerciseTypes   []string `json:"exercise_types"`
}

// WeeklyData summarises the last seven days against the seven before.
type WeeklyData struct {
	SessionsThisWeek int     `json:"sessions_this_week"`
	PracticeMinutes  int     `json:"practice_minutes"`
	AverageScore     float64 `json:"avg_score"`

	// ScoreChange is the change of the average score from last week, in
	// percent.
	ScoreChange float64 `json:"score_change"`

	Strengths  []string `json:"strengths"`
	Weaknesses []string `json:"weaknesses"`
}

// Insights is the weekly progress reading.
type Insights struct {
	Summary     string `json:"summary"`
	Celebration string `json:"celebration"`
	FocusArea   string `json:"focus_area"`
	Goal        string `json:"goal"`
}

// Generator produces coaching text.
//
// Implementations must be safe for concurrent use.
type Generator interface {
	// Generate returns feedback for one attempt.
	Generate(ctx context.Context, req Request) (*Feedback, error)

	// SessionSummary returns a short encouraging summary of a session.
	SessionSummary(ctx context.Context, stats SessionStats) (string, error)

	// WeeklyInsights reads a week of progress.
	WeeklyInsights(ctx context.Context, data WeeklyData) (*Insights, error)
}
