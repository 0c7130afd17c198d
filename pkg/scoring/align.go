package scoring

// Align pairs target and spoken tokens by position and returns the alignment
// together with the number of matched target words.
//
// The result has max(len(target), len(spoken)) entries. The first
// len(target) entries follow target order; surplus spoken tokens follow as
// [Extra] entries. Neither input slice is modified.
func Align(target, spoken []string, cfg Config) ([]WordAlignment, int) {
	out := make([]WordAlignment, 0, max(len(target), len(spoken)))
	matched := 0

	for i, tw := range target {
		sw := ""
		if i < len(spoken) {
			sw = spoken[i]
		}
		ok := IsMatch(tw, sw, cfg.MatchThreshold)
		if ok {
			matched++
		}
		if sw == "" {
			sw = Missing
		}
		out = append(out, WordAlignment{Target: tw, Spoken: sw, Match: ok})
	}

	for i := len(target); i < len(spoken); i++ {
		out = append(out, WordAlignment{Target: Extra, Spoken: spoken[i]})
	}
	return out, matched
}
