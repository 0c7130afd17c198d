package feedback

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/MrWong99/clearspeech/internal/analysis"
	"github.com/MrWong99/clearspeech/pkg/provider/llm"
)

// Compile-time interface assertion.
var _ Generator = (*LLMGenerator)(nil)

const (
	defaultTemperature = 0.7

	feedbackMaxTokens = 500
	summaryMaxTokens  = 150
	insightsMaxTokens = 300

	// maxPromptErrors caps the word errors listed in a feedback prompt.
	maxPromptErrors = 5
)

const feedbackSystemPrompt = `You are a supportive, encouraging speech therapist helping users improve their speech clarity.

Your feedback should be:
- Warm and encouraging, never discouraging
- Specific and actionable
- Age-appropriate and easy to understand
- Focused on progress, not perfection

Always acknowledge effort and provide constructive guidance.`

const feedbackPromptTemplate = `Please provide feedback for this speech exercise attempt:

**Target phrase:** "%s"
**User said:** "%s"

**Scores:**
- Overall: %d/100
- Clarity: %d/100
- Pace: %d/100
- Fluency: %d/100

**Pronunciation differences:**
%s
%s

Please respond in this JSON format:
{
    "feedback": "2-3 sentences of overall feedback",
    "encouragement": "A short encouraging message",
    "specific_tips": ["tip 1", "tip 2", "tip 3"],
    "recommended_exercises": ["exercise 1", "exercise 2"],
    "difficulty_adjustment": "easier" or "same" or "harder"
}`

const summarySystemPrompt = "You are a supportive speech therapist providing session summaries."

const summaryPromptTemplate = `Summarize this speech therapy session for the user:

**Session Stats:**
- Duration: %d minutes
- Exercises completed: %d
- Average score: %.0f/100
- Best score: %d/100

**Exercise Types Practiced:** %s

Please provide a brief, encouraging 2-3 sentence summary of their session.`

const insightsSystemPrompt = "You are an encouraging speech therapist analyzing weekly progress."

const insightsPromptTemplate = `Analyze this user's weekly speech therapy progress:

**This Week:**
- Sessions: %d
- Total practice time: %d minutes
- Average score: %.0f/100
- Score change from last week: %+.1f%%

**Strengths:** %s
**Areas to improve:** %s

Provide a JSON response with:
{
    "summary": "2-3 sentence progress summary",
    "celebration": "Something specific to celebrate",
    "focus_area": "One specific thing to focus on next week",
    "goal": "A realistic goal for next week"
}`

// LLMOption configures an [LLMGenerator].
type LLMOption func(*LLMGenerator)

// WithTemperature sets the sampling temperature. Default: 0.7.
func WithTemperature(t float64) LLMOption {
	return func(g *LLMGenerator) {
		g.temperature = t
	}
}

// LLMGenerator asks an [llm.Provider] for feedback. It is safe for concurrent
// use if the provider is.
type LLMGenerator struct {
	llm         llm.Provider
	temperature float64
}

// NewLLMGenerator returns a generator backed by provider.
func NewLLMGenerator(provider llm.Provider, opts ...LLMOption) *LLMGenerator {
	g := &LLMGenerator{llm: provider, temperature: defaultTemperature}
	for _, o := range opts {
		o(g)
	}
	return g
}

// Generate implements [Generator.Generate]. Fields missing from the reply get
// [DefaultFeedback], [DefaultEncouragement] and [analysis.Same]; an unknown
// difficulty is replaced by [analysis.Same] as well.
func (g *LLMGenerator) Generate(ctx context.Context, req Request) (*Feedback, error) {
	resp, err := g.llm.Complete(ctx, llm.CompletionRequest{
		SystemPrompt: feedbackSystemPrompt,
		Messages:     []llm.Message{{Role: llm.RoleUser, Content: buildFeedbackPrompt(req)}},
		Temperature:  g.temperature,
		MaxTokens:    feedbackMaxTokens,
		JSONMode:     true,
	})
	if err != nil {
		return nil, fmt.Errorf("feedback: complete: %w", err)
	}

	var reply struct {
		Feedback             string   `json:"feedback"`
		Encouragement        string   `json:"encouragement"`
		SpecificTips         []string `json:"specific_tips"`
		RecommendedExercises []string `json:"recommended_exercises"`
		DifficultyAdjustment string   `json:"difficulty_adjustment"`
	}
	if err := decodeReply(resp, &reply); err != nil {
		return nil, err
	}

	fb := &Feedback{
		Feedback:             cmpOr(reply.Feedback, DefaultFeedback),
		Encouragement:        cmpOr(reply.Encouragement, DefaultEncouragement),
		SpecificTips:         nonNil(reply.SpecificTips),
		RecommendedExercises: nonNil(reply.RecommendedExercises),
		DifficultyAdjustment: analysis.Adjustment(strings.ToLower(strings.TrimSpace(reply.DifficultyAdjustment))),
	}
	if !fb.DifficultyAdjustment.IsValid() {
		fb.DifficultyAdjustment = analysis.Same
	}
	return fb, nil
}

// SessionSummary implements [Generator.SessionSummary].
func (g *LLMGenerator) SessionSummary(ctx context.Context, stats SessionStats) (string, error) {
	prompt := fmt.Sprintf(summaryPromptTemplate,
		stats.DurationMinutes, stats.ExerciseCount, stats.AverageScore, stats.BestScore,
		strings.Join(stats.ExerciseTypes, ", "))

	resp, err := g.llm.Complete(ctx, llm.CompletionRequest{
		SystemPrompt: summarySystemPrompt,
		Messages:     []llm.Message{{Role: llm.RoleUser, Content: prompt}},
		Temperature:  g.temperature,
		MaxTokens:    summaryMaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("feedback: session summary: %w", err)
	}
	if resp == nil || strings.TrimSpace(resp.Content) == "" {
		return "", fmt.Errorf("%w: empty session summary", ErrMalformedResponse)
	}
	return strings.TrimSpace(resp.Content), nil
}

// WeeklyInsights implements [Generator.WeeklyInsights]. A reply without a
// summary is rejected.
func (g *LLMGenerator) WeeklyInsights(ctx context.Context, data WeeklyData) (*Insights, error) {
	strengths := data.Strengths
	if len(strengths) == 0 {
		strengths = []string{"Consistent practice"}
	}
	weaknesses := data.Weaknesses
	if len(weaknesses) == 0 {
		weaknesses = []string{"Continue practicing"}
	}
	prompt := fmt.Sprintf(insightsPromptTemplate,
		data.SessionsThisWeek, data.PracticeMinutes, data.AverageScore, data.ScoreChange,
		strings.Join(strengths, ", "), strings.Join(weaknesses, ", "))

	resp, err := g.llm.Complete(ctx, llm.CompletionRequest{
		SystemPrompt: insightsSystemPrompt,
		Messages:     []llm.Message{{Role: llm.RoleUser, Content: prompt}},
		Temperature:  g.temperature,
		MaxTokens:    insightsMaxTokens,
		JSONMode:     true,
	})
	if err != nil {
		return nil, fmt.Errorf("feedback: weekly insights: %w", err)
	}

	var ins Insights
	if err := decodeReply(resp, &ins); err != nil {
		return nil, err
	}
	if ins.Summary == "" {
		return nil, fmt.Errorf("%w: insights without summary", ErrMalformedResponse)
	}
	return &ins, nil
}

func buildFeedbackPrompt(req Request) string {
	differences := "No major differences detected"
	if len(req.Errors) > 0 {
		var sb strings.Builder
		for i, e := range req.Errors[:min(maxPromptErrors, len(req.Errors))] {
			if i > 0 {
				sb.WriteByte('\n')
			}
			fmt.Fprintf(&sb, "- '%s' → '%s' (%s)", e.Expected, e.Actual, e.Type)
		}
		differences = sb.String()
	}

	var user string
	if uc := req.UserContext; uc != nil && uc.SpeechCondition != "" {
		user = "User has " + uc.SpeechCondition
		if uc.SeverityLevel > 0 {
			user += fmt.Sprintf(" (severity: %d/5)", uc.SeverityLevel)
		}
		user += ". Adjust feedback accordingly."
	}

	return fmt.Sprintf(feedbackPromptTemplate,
		req.Target, req.Spoken,
		req.Scores.Overall, req.Scores.Clarity, req.Scores.Pace, req.Scores.Fluency,
		differences, user)
}

// decodeReply unmarshals a JSON model reply into v.
func decodeReply(resp *llm.CompletionResponse, v any) error {
	if resp == nil {
		return fmt.Errorf("%w: no response", ErrMalformedResponse)
	}
	if err := json.Unmarshal([]byte(stripMarkdown(resp.Content)), v); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}
	return nil
}

// stripMarkdown removes the ```json fences some models wrap JSON in.
func stripMarkdown(s string) string {
	s = strings.TrimSpace(s)
	for _, prefix := range []string{"```json", "```"} {
		if after, ok := strings.CutPrefix(s, prefix); ok {
			s = after
			break
		}
	}
	s, _ = strings.CutSuffix(s, "```")
	return strings.TrimSpace(s)
}

func cmpOr(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
