// Package practice runs scored practice attempts. A [Service] ties the
// scorer, the error analyser, the exercise catalogue, feedback generation,
// the attempt history and the metrics together.
//
// A Service is safe for concurrent use. The scoring configuration and the
// feedback settings can be swapped while attempts are in flight, which is
// how configuration hot reload reaches running sessions.
package practice

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/MrWong99/clearspeech/internal/analysis"
	"github.com/MrWong99/clearspeech/internal/exercise"
	"github.com/MrWong99/clearspeech/internal/feedback"
	"github.com/MrWong99/clearspeech/internal/history"
	"github.com/MrWong99/clearspeech/internal/observe"
	"github.com/MrWong99/clearspeech/pkg/scoring"
)

// ErrNoTarget is returned by [Service.Attempt] when neither an exercise nor a
// target phrase is given.
var ErrNoTarget = errors.New("practice: no exercise or target text")

// DefaultFeedbackTimeout bounds feedback generation when no timeout is set.
const DefaultFeedbackTimeout = 15 * time.Second

// AttemptRequest describes one spoken attempt.
type AttemptRequest struct {
	// ExerciseID selects the target from the catalogue. It takes precedence
	// over Target.
	ExerciseID string

	// Target is the free-form phrase used when ExerciseID is empty.
	Target string

	// Spoken is the transcript of what was said.
	Spoken string

	// Duration is the length of the recording; zero when unknown.
	Duration time.Duration

	IncludeFeedback bool

	// UserContext overrides the service default for this attempt.
	UserContext *feedback.UserContext
}

// AttemptResult is the outcome of [Service.Attempt].
type AttemptResult struct {
	// Exercise is nil for free-form attempts.
	Exercise *exercise.Exercise `json:"exercise,omitempty"`

	Result   scoring.Result   `json:"result"`
	Analysis *analysis.Report `json:"analysis"`

	// Feedback is nil when it was not requested or could not be produced.
	Feedback *feedback.Feedback `json:"feedback,omitempty"`

	// Adjustment is the difficulty recommendation, taken from the feedback
	// when present and from the analysis otherwise.
	Adjustment analysis.Adjustment `json:"difficulty_adjustment"`

	// Next is the suggested follow-up exercise; nil for free-form attempts.
	Next *exercise.Exercise `json:"next_exercise,omitempty"`

	// Attempt is the stored history entry.
	Attempt history.Attempt `json:"attempt"`
}

// Pair is one batch scoring input.
type Pair struct {
	Target string `json:"target"`
	Spoken string `json:"spoken"`
}

type feedbackSettings struct {
	gen     feedback.Generator
	timeout time.Duration
	user    *feedback.UserContext
}

// Service runs practice attempts.
type Service struct {
	scorer   atomic.Pointer[scoring.Scorer]
	feedback atomic.Pointer[feedbackSettings]

	analyzer   *analysis.Analyzer
	catalog    *exercise.Catalog
	store      history.Store
	metrics    *observe.Metrics
	batchLimit int
}

// Option configures a [Service].
type Option func(*Service)

// WithCatalog sets the exercise catalogue. Default: [exercise.Default].
func WithCatalog(c *exercise.Catalog) Option {
	return func(s *Service) { s.catalog = c }
}

// WithStore sets the attempt history. Default: a fresh [history.MemStore].
func WithStore(st history.Store) Option {
	return func(s *Service) { s.store = st }
}

// WithFeedback enables feedback generation through g, bounded by timeout.
// A non-positive timeout selects [DefaultFeedbackTimeout].
func WithFeedback(g feedback.Generator, timeout time.Duration) Option {
	return func(s *Service) {
		cur := s.feedback.Load()
		s.feedback.Store(&feedbackSettings{gen: g, timeout: timeout, user: cur.user})
	}
}

// WithUserContext sets the default speaker context passed to feedback.
func WithUserContext(uc *feedback.UserContext) Option {
	return func(s *Service) {
		cur := *s.feedback.Load()
		cur.user = uc
		s.feedback.Store(&cur)
	}
}

// WithMetrics sets the metric instruments. Default: [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithAnalyzer replaces the default [analysis.Analyzer].
func WithAnalyzer(a *analysis.Analyzer) Option {
	return func(s *Service) { s.analyzer = a }
}

// WithBatchLimit caps the goroutines used by [Service.ScoreBatch].
// Default: GOMAXPROCS.
func WithBatchLimit(n int) Option {
	return func(s *Service) { s.batchLimit = n }
}

// New returns a Service scoring with cfg. It returns an error if cfg is
// invalid.
func New(cfg scoring.Config, opts ...Option) (*Service, error) {
	sc, err := scoring.NewScorer(cfg)
	if err != nil {
		return nil, fmt.Errorf("practice: %w", err)
	}
	s := &Service{}
	s.scorer.Store(sc)
	s.feedback.Store(&feedbackSettings{})
	for _, o := range opts {
		o(s)
	}
	if s.analyzer == nil {
		s.analyzer = analysis.New()
	}
	if s.catalog == nil {
		s.catalog = exercise.Default()
	}
	if s.store == nil {
		s.store = history.NewMemStore()
	}
	if s.metrics == nil {
		s.metrics = observe.DefaultMetrics()
	}
	if s.batchLimit <= 0 {
		s.batchLimit = runtime.GOMAXPROCS(0)
	}
	return s, nil
}

// Catalog returns the exercise catalogue.
func (s *Service) Catalog() *exercise.Catalog { return s.catalog }

// Store returns the attempt history.
func (s *Service) Store() history.Store { return s.store }

// ScoringConfig returns the active scoring configuration.
func (s *Service) ScoringConfig() scoring.Config { return s.scorer.Load().Config() }

// SetScoringConfig validates cfg and makes it the active scoring
// configuration. Attempts already running keep the previous one.
func (s *Service) SetScoringConfig(cfg scoring.Config) error {
	sc, err := scoring.NewScorer(cfg)
	if err != nil {
		return fmt.Errorf("practice: %w", err)
	}
	s.scorer.Store(sc)
	return nil
}

// SetFeedback replaces the feedback generator and timeout. A nil g disables
// feedback.
func (s *Service) SetFeedback(g feedback.Generator, timeout time.Duration) {
	cur := *s.feedback.Load()
	cur.gen, cur.timeout = g, timeout
	s.feedback.Store(&cur)
}

// SetUserContext replaces the default speaker context.
func (s *Service) SetUserContext(uc *feedback.UserContext) {
	cur := *s.feedback.Load()
	cur.user = uc
	s.feedback.Store(&cur)
}

// Score scores spoken against target with the active configuration without
// recording anything.
func (s *Service) Score(target, spoken string) scoring.Result {
	return s.scorer.Load().Score(target, spoken)
}

// Attempt scores and analyses one attempt, optionally generates feedback,
// records the attempt and suggests the next exercise.
//
// An unknown ExerciseID yields an error wrapping [exercise.ErrNotFound];
// a missing target yields [ErrNoTarget]. Feedback failures never fail the
// attempt: they are logged and AttemptResult.Feedback stays nil.
func (s *Service) Attempt(ctx context.Context, req AttemptRequest) (res *AttemptResult, err error) {
	ctx, span := observe.StartSpan(ctx, "practice.attempt")
	defer func() { observe.EndSpan(span, err) }()

	res = &AttemptResult{}
	target := req.Target
	if req.ExerciseID != "" {
		ex, gerr := s.catalog.Get(req.ExerciseID)
		if gerr != nil {
			return nil, fmt.Errorf("practice: %w", gerr)
		}
		res.Exercise = &ex
		target = ex.TargetText
		span.SetAttributes(attribute.String("exercise.id", ex.ID))
	}
	if strings.TrimSpace(target) == "" {
		return nil, ErrNoTarget
	}

	res.Result = s.scorer.Load().Score(target, req.Spoken)
	res.Analysis = s.analyzer.Analyze(res.Result, req.Duration)
	res.Adjustment = res.Analysis.Difficulty
	span.SetAttributes(attribute.Int("score.overall", res.Result.Scores.Overall))

	if req.IncludeFeedback {
		res.Feedback = s.generateFeedback(ctx, req, target, res)
		if res.Feedback != nil && res.Feedback.DifficultyAdjustment.IsValid() {
			res.Adjustment = res.Feedback.DifficultyAdjustment
		}
	}

	a := history.Attempt{
		Target:      target,
		Spoken:      req.Spoken,
		Scores:      res.Result.Scores,
		MissedWords: res.Analysis.MissedWords(),
		Duration:    req.Duration,
	}
	if res.Exercise != nil {
		a.ExerciseID = res.Exercise.ID
		a.Category = string(res.Exercise.Category)
	}
	if res.Attempt, err = s.store.Record(ctx, a); err != nil {
		return nil, fmt.Errorf("practice: record attempt: %w", err)
	}
	s.metrics.RecordAttempt(ctx, a.Category, string(res.Adjustment), res.Result.Scores)

	if res.Exercise != nil {
		if next, ok := s.catalog.Next(*res.Exercise, res.Adjustment); ok {
			res.Next = &next
		}
	}

	observe.Logger(ctx).Debug("practice: attempt scored",
		"exercise", a.ExerciseID,
		"overall", res.Result.Scores.Overall,
		"adjustment", res.Adjustment,
	)
	return res, nil
}

func (s *Service) generateFeedback(ctx context.Context, req AttemptRequest, target string, res *AttemptResult) *feedback.Feedback {
	fs := s.feedback.Load()
	if fs.gen == nil {
		return nil
	}
	timeout := fs.timeout
	if timeout <= 0 {
		timeout = DefaultFeedbackTimeout
	}
	uc := req.UserContext
	if uc == nil {
		uc = fs.user
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	ctx, span := observe.StartSpan(ctx, "practice.feedback")

	start := time.Now()
	fb, err := fs.gen.Generate(ctx, feedback.Request{
		Target:      target,
		Spoken:      req.Spoken,
		Scores:      res.Result.Scores,
		Errors:      res.Analysis.Errors,
		UserContext: uc,
	})
	if err == nil && fb == nil {
		err = feedback.ErrMalformedResponse
	}
	source := "unknown"
	if fb != nil && fb.Source != "" {
		source = fb.Source
	}
	s.metrics.RecordFeedback(ctx, source, time.Since(start), err)
	observe.EndSpan(span, err)

	if err != nil {
		observe.Logger(ctx).Warn("practice: feedback generation failed", "err", err)
		return nil
	}
	return fb
}

// ScoreBatch scores pairs concurrently and returns the results in input
// order. It stops early and returns the context error when ctx is done.
func (s *Service) ScoreBatch(ctx context.Context, pairs []Pair) ([]scoring.Result, error) {
	sc := s.scorer.Load()
	out := make([]scoring.Result, len(pairs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.batchLimit)
	for i, p := range pairs {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out[i] = sc.Score(p.Target, p.Spoken)
			return nil
		})
	}
	err := g.Wait()
	if err == nil {
		// Wait cancels gctx; only the caller's context decides.
		err = ctx.Err()
	}
	if err != nil {
		return nil, fmt.Errorf("practice: score batch: %w", err)
	}
	s.metrics.RecordBatch(ctx, len(pairs))
	return out, nil
}
