package scoring

// Levenshtein returns the edit distance between a and b counted in runes,
// with unit cost for insertion, deletion and substitution.
func Levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	la, lb := len(ra), len(rb)
	if la == 0 {
		return lb
	}
	if lb == 0 {
		return la
	}

	// Single-row DP: prev holds row i-1 of the (la+1)×(lb+1) table.
	prev := make([]int, lb+1)
	cur := make([]int, lb+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= la; i++ {
		cur[0] = i
		for j := 1; j <= lb; j++ {
			if ra[i-1] == rb[j-1] {
				cur[j] = prev[j-1]
				continue
			}
			cur[j] = 1 + min(prev[j], cur[j-1], prev[j-1])
		}
		prev, cur = cur, prev
	}
	return prev[lb]
}

// Similarity returns 1 - distance/max(len(a), len(b)) in runes. Two empty
// strings have similarity 0. The result is always in [0, 1].
func Similarity(a, b string) float64 {
	maxLen := max(len([]rune(a)), len([]rune(b)))
	if maxLen == 0 {
		return 0
	}
	return 1 - float64(Levenshtein(a, b))/float64(maxLen)
}

// IsMatch reports whether a and b are similar enough under threshold.
func IsMatch(a, b string, threshold float64) bool {
	return Similarity(a, b) >= threshold
}
