package scoring

// WERResult holds a word error rate together with its edit breakdown.
type WERResult struct {
	// WER is (Substitutions + Insertions + Deletions) / RefWords. It may
	// exceed 1 when the hypothesis is much longer than the reference.
	WER           float64 `json:"wer"`
	Substitutions int     `json:"substitutions"`
	Insertions    int     `json:"insertions"`
	Deletions     int     `json:"deletions"`
	RefWords      int     `json:"ref_words"`
}

// WordErrorRate aligns the tokens of reference and hypothesis with a minimum
// word-level edit distance and counts the edits on one optimal path.
//
// Unlike [Align] the alignment may shift, so a single inserted word costs one
// insertion rather than mismatching every following word. Words are compared
// exactly after [Tokenize]. An empty reference yields the zero WERResult.
func WordErrorRate(reference, hypothesis string) WERResult {
	ref := Tokenize(reference)
	hyp := Tokenize(hypothesis)

	n, m := len(ref), len(hyp)
	if n == 0 {
		return WERResult{}
	}

	d := make([][]int, n+1)
	for i := range d {
		d[i] = make([]int, m+1)
		d[i][0] = i
	}
	for j := 0; j <= m; j++ {
		d[0][j] = j
	}
	for i := 1; i <= n; i++ {
		for j := 1; j <= m; j++ {
			if ref[i-1] == hyp[j-1] {
				d[i][j] = d[i-1][j-1]
				continue
			}
			d[i][j] = 1 + min(d[i-1][j-1], d[i-1][j], d[i][j-1])
		}
	}

	var subs, ins, dels int
	i, j := n, m
	for i > 0 || j > 0 {
		switch {
		case i > 0 && j > 0 && ref[i-1] == hyp[j-1]:
			i--
			j--
		case i > 0 && j > 0 && d[i][j] == d[i-1][j-1]+1:
			subs++
			i--
			j--
		case i > 0 && d[i][j] == d[i-1][j]+1:
			dels++
			i--
		default:
			ins++
			j--
		}
	}

	return WERResult{
		WER:           float64(subs+ins+dels) / float64(n),
		Substitutions: subs,
		Insertions:    ins,
		Deletions:     dels,
		RefWords:      n,
	}
}
