package scoring

import "math"

// fluencyPenaltyScale converts the relative word-count difference into
// percentage points deducted from word accuracy.
const fluencyPenaltyScale = 30.0

// Calculate turns the target word count t, spoken word count s and matched
// count into [Scores]:
//
//	wordAccuracy = matched/t*100            (0 when t == 0)
//	clarity      = round(wordAccuracy)
//	fluency      = round(max(0, wordAccuracy - |t-s|/max(t,1)*30))
//	pace         = round(min(100, s >= t ? 100 : s/t*100))
//	overall      = round(clarity*wc + fluency*wf + pace*wp)
//
// Every score lands in [0, 100] when matched <= t and the weights sum to 1.
func Calculate(t, s, matched int, cfg Config) Scores {
	var wordAccuracy float64
	if t > 0 {
		wordAccuracy = float64(matched) / float64(t) * 100
	}
	clarity := math.Round(wordAccuracy)

	diff := math.Abs(float64(t - s))
	penalty := diff / float64(max(t, 1)) * fluencyPenaltyScale
	fluency := math.Round(math.Max(0, wordAccuracy-penalty))

	completeness := 100.0
	if s < t {
		completeness = float64(s) / float64(t) * 100
	}
	pace := math.Round(math.Min(100, completeness))

	overall := math.Round(clarity*cfg.ClarityWeight + fluency*cfg.FluencyWeight + pace*cfg.PaceWeight)

	return Scores{
		Overall: int(overall),
		Clarity: int(clarity),
		Pace:    int(pace),
		Fluency: int(fluency),
	}
}
