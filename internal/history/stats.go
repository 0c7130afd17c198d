package history

import (
	"cmp"
	"math"
	"slices"
	"time"
)

// Streak milestones, in days.
var milestones = []int{3, 7, 14, 30, 60, 100}

// Achievement thresholds.
const (
	achievementAttempts = 20
	achievementStreak   = 5
)

// dayLayout formats calendar days in trends and summaries.
const dayLayout = "2006-01-02"

// Averages holds mean scores.
type Averages struct {
	Overall float64 `json:"overall"`
	Clarity float64 `json:"clarity"`
	Pace    float64 `json:"pace"`
	Fluency float64 `json:"fluency"`
}

// Summary is the high-level progress view.
type Summary struct {
	TotalAttempts     int      `json:"total_attempts"`
	DistinctExercises int      `json:"distinct_exercises"`
	PracticeMinutes   int      `json:"practice_minutes"`
	DaysPracticed     int      `json:"days_practiced"`
	Average           Averages `json:"average"`
	BestOverall       int      `json:"best_overall"`

	// ImprovementPercent compares the mean overall score of the later half
	// of attempts with the earlier half.
	ImprovementPercent float64 `json:"improvement_percent"`

	Streak StreakInfo `json:"streak"`

	// LastPracticed is the zero time when there are no attempts.
	LastPracticed time.Time `json:"last_practiced"`

	Achievements []string `json:"achievements"`
}

// StreakInfo describes consecutive practice days.
type StreakInfo struct {
	// Current counts consecutive days ending today, or ending yesterday when
	// nothing has been practised yet today.
	Current int `json:"current"`
	Best    int `json:"best"`

	// NextMilestone is zero once every milestone is reached.
	NextMilestone   int `json:"next_milestone"`
	DaysToMilestone int `json:"days_to_milestone"`
}

// PeriodStats aggregates the attempts of one period.
type PeriodStats struct {
	Attempts       int     `json:"attempts"`
	Minutes        int     `json:"minutes"`
	AverageOverall float64 `json:"average_overall"`
}

// WeeklyComparison compares the last seven days with the seven before.
type WeeklyComparison struct {
	ThisWeek PeriodStats `json:"this_week"`
	LastWeek PeriodStats `json:"last_week"`

	// ScoreChange is ThisWeek.AverageOverall minus LastWeek.AverageOverall,
	// zero when either week is empty.
	ScoreChange float64 `json:"score_change"`

	// ChangePercent is ScoreChange relative to last week's average.
	ChangePercent float64 `json:"change_percent"`
}

// WordCount is a missed word and how often it was missed.
type WordCount struct {
	Word  string `json:"word"`
	Count int    `json:"count"`
}

// Metric names a score for trends.
type Metric string

const (
	MetricOverall Metric = "overall"
	MetricClarity Metric = "clarity"
	MetricPace    Metric = "pace"
	MetricFluency Metric = "fluency"
)

// ParseMetric returns the metric named s, falling back to [MetricOverall]
// for unknown names.
func ParseMetric(s string) Metric {
	switch m := Metric(s); m {
	case MetricOverall, MetricClarity, MetricPace, MetricFluency:
		return m
	}
	return MetricOverall
}

func (m Metric) value(a Attempt) int {
	switch m {
	case MetricClarity:
		return a.Scores.Clarity
	case MetricPace:
		return a.Scores.Pace
	case MetricFluency:
		return a.Scores.Fluency
	default:
		return a.Scores.Overall
	}
}

// TrendPoint is the daily mean of one metric.
type TrendPoint struct {
	Date   string  `json:"date"`
	Value  float64 `json:"value"`
	Metric Metric  `json:"metric_type"`
}

// CategoryStats aggregates the attempts of one exercise category.
type CategoryStats struct {
	Category string  `json:"exercise_type"`
	Attempts int     `json:"attempts"`
	Average  float64 `json:"average_score"`
	Best     int     `json:"best_score"`

	// Improvement is the overall score of the latest attempt minus that of
	// the first.
	Improvement   int       `json:"improvement"`
	LastAttempted time.Time `json:"last_attempted"`
}

// Summarize computes the progress summary of attempts as of now. Days are
// calendar days in now's location.
func Summarize(attempts []Attempt, now time.Time) Summary {
	as := sorted(attempts)
	s := Summary{
		TotalAttempts: len(as),
		Streak:        Streaks(as, now),
		Achievements:  []string{},
	}
	if len(as) == 0 {
		return s
	}

	exercises := make(map[string]struct{})
	days := make(map[string]struct{})
	var total time.Duration
	var sum Averages
	for _, a := range as {
		if a.ExerciseID != "" {
			exercises[a.ExerciseID] = struct{}{}
		}
		days[dayKey(a.PracticedAt, now.Location())] = struct{}{}
		total += a.Duration
		sum.Overall += float64(a.Scores.Overall)
		sum.Clarity += float64(a.Scores.Clarity)
		sum.Pace += float64(a.Scores.Pace)
		sum.Fluency += float64(a.Scores.Fluency)
		s.BestOverall = max(s.BestOverall, a.Scores.Overall)
	}
	n := float64(len(as))
	s.DistinctExercises = len(exercises)
	s.DaysPracticed = len(days)
	s.PracticeMinutes = int(math.Round(total.Minutes()))
	s.Average = Averages{
		Overall: round1(sum.Overall / n),
		Clarity: round1(sum.Clarity / n),
		Pace:    round1(sum.Pace / n),
		Fluency: round1(sum.Fluency / n),
	}
	s.LastPracticed = as[len(as)-1].PracticedAt
	s.ImprovementPercent = improvement(as)

	if len(as) >= achievementAttempts {
		s.Achievements = append(s.Achievements, "Completed 20+ attempts")
	}
	if s.Streak.Best >= achievementStreak {
		s.Achievements = append(s.Achievements, "5-day practice streak")
	}
	if s.BestOverall == 100 {
		s.Achievements = append(s.Achievements, "Perfect score")
	}
	return s
}

func improvement(as []Attempt) float64 {
	if len(as) < 2 {
		return 0
	}
	half := len(as) / 2
	first := meanOverall(as[:half])
	second := meanOverall(as[len(as)-half:])
	if first == 0 {
		return 0
	}
	return round1((second - first) / first * 100)
}

// Streaks computes current and best consecutive practice days as of now.
func Streaks(attempts []Attempt, now time.Time) StreakInfo {
	loc := now.Location()
	seen := make(map[string]struct{})
	var days []time.Time
	for _, a := range attempts {
		y, m, d := a.PracticedAt.In(loc).Date()
		day := time.Date(y, m, d, 0, 0, 0, 0, loc)
		k := day.Format(dayLayout)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		days = append(days, day)
	}
	slices.SortFunc(days, func(a, b time.Time) int { return a.Compare(b) })

	var info StreakInfo
	run := 0
	for i, d := range days {
		if i > 0 && sameDay(days[i-1].AddDate(0, 0, 1), d) {
			run++
		} else {
			run = 1
		}
		info.Best = max(info.Best, run)
	}

	ny, nm, nd := now.Date()
	today := time.Date(ny, nm, nd, 0, 0, 0, 0, loc)
	if len(days) > 0 {
		last := days[len(days)-1]
		if sameDay(last, today) || sameDay(last.AddDate(0, 0, 1), today) {
			info.Current = run
		}
	}

	for _, m := range milestones {
		if info.Current < m {
			info.NextMilestone = m
			info.DaysToMilestone = m - info.Current
			break
		}
	}
	return info
}

// Weekly compares the seven days ending at now with the seven days before.
func Weekly(attempts []Attempt, now time.Time) WeeklyComparison {
	weekAgo := now.AddDate(0, 0, -7)
	twoWeeksAgo := now.AddDate(0, 0, -14)

	var this, last []Attempt
	for _, a := range attempts {
		switch t := a.PracticedAt; {
		case !t.Before(weekAgo) && !t.After(now):
			this = append(this, a)
		case !t.Before(twoWeeksAgo) && t.Before(weekAgo):
			last = append(last, a)
		}
	}

	w := WeeklyComparison{ThisWeek: period(this), LastWeek: period(last)}
	if len(this) > 0 && len(last) > 0 {
		w.ScoreChange = round1(w.ThisWeek.AverageOverall - w.LastWeek.AverageOverall)
		if w.LastWeek.AverageOverall > 0 {
			w.ChangePercent = round1(w.ScoreChange / w.LastWeek.AverageOverall * 100)
		}
	}
	return w
}

func period(as []Attempt) PeriodStats {
	var total time.Duration
	for _, a := range as {
		total += a.Duration
	}
	return PeriodStats{
		Attempts:       len(as),
		Minutes:        int(math.Round(total.Minutes())),
		AverageOverall: round1(meanOverall(as)),
	}
}

// MostMissedWords returns up to n missed words by descending count, ties
// broken alphabetically. n <= 0 returns all of them.
func MostMissedWords(attempts []Attempt, n int) []WordCount {
	counts := make(map[string]int)
	for _, a := range attempts {
		for _, w := range a.MissedWords {
			counts[w]++
		}
	}
	out := make([]WordCount, 0, len(counts))
	for w, c := range counts {
		out = append(out, WordCount{Word: w, Count: c})
	}
	slices.SortFunc(out, func(a, b WordCount) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.Word, b.Word)
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// Trend returns the daily mean of metric over the days days ending at now,
// one point per day that has attempts, oldest first.
func Trend(attempts []Attempt, metric Metric, days int, now time.Time) []TrendPoint {
	loc := now.Location()
	ny, nm, nd := now.Date()
	start := time.Date(ny, nm, nd, 0, 0, 0, 0, loc).AddDate(0, 0, -(max(days, 1) - 1))

	type acc struct{ sum, n int }
	byDay := make(map[string]*acc)
	for _, a := range attempts {
		t := a.PracticedAt.In(loc)
		if t.Before(start) || t.After(now) {
			continue
		}
		k := t.Format(dayLayout)
		if byDay[k] == nil {
			byDay[k] = &acc{}
		}
		byDay[k].sum += metric.value(a)
		byDay[k].n++
	}

	out := make([]TrendPoint, 0, len(byDay))
	for k, v := range byDay {
		out = append(out, TrendPoint{Date: k, Value: round1(float64(v.sum) / float64(v.n)), Metric: metric})
	}
	slices.SortFunc(out, func(a, b TrendPoint) int { return cmp.Compare(a.Date, b.Date) })
	return out
}

// ByCategory aggregates attempts per category, sorted by category name.
// Attempts without a category are grouped under "free_practice".
func ByCategory(attempts []Attempt) []CategoryStats {
	groups := make(map[string][]Attempt)
	for _, a := range sorted(attempts) {
		c := a.Category
		if c == "" {
			c = "free_practice"
		}
		groups[c] = append(groups[c], a)
	}

	out := make([]CategoryStats, 0, len(groups))
	for c, as := range groups {
		st := CategoryStats{
			Category:      c,
			Attempts:      len(as),
			Average:       round1(meanOverall(as)),
			Improvement:   as[len(as)-1].Scores.Overall - as[0].Scores.Overall,
			LastAttempted: as[len(as)-1].PracticedAt,
		}
		for _, a := range as {
			st.Best = max(st.Best, a.Scores.Overall)
		}
		out = append(out, st)
	}
	slices.SortFunc(out, func(a, b CategoryStats) int { return cmp.Compare(a.Category, b.Category) })
	return out
}

func sorted(attempts []Attempt) []Attempt {
	as := slices.Clone(attempts)
	sortAttempts(as)
	return as
}

func meanOverall(as []Attempt) float64 {
	if len(as) == 0 {
		return 0
	}
	sum := 0
	for _, a := range as {
		sum += a.Scores.Overall
	}
	return float64(sum) / float64(len(as))
}

func dayKey(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(dayLayout)
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
