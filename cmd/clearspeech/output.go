package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/MrWong99/clearspeech/internal/analysis"
	"github.com/MrWong99/clearspeech/internal/feedback"
	"github.com/MrWong99/clearspeech/pkg/scoring"
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printScores(w io.Writer, s scoring.Scores) {
	fmt.Fprintf(w, "Overall %3d   Clarity %3d   Pace %3d   Fluency %3d\n", s.Overall, s.Clarity, s.Pace, s.Fluency)
}

func printWords(w io.Writer, words []scoring.WordAlignment) {
	if len(words) == 0 {
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TARGET\tSPOKEN\tSIMILARITY\tMATCH")
	for _, wa := range words {
		mark, sim := "-", "-"
		if wa.Match {
			mark = "✓"
		}
		if wa.Target != scoring.Extra && wa.Spoken != scoring.Missing {
			sim = fmt.Sprintf("%.2f", scoring.Similarity(wa.Target, wa.Spoken))
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", wa.Target, wa.Spoken, sim, mark)
	}
	tw.Flush()
}

func printWER(w io.Writer, r scoring.WERResult) {
	fmt.Fprintf(w, "WER %.1f%% (%d substitutions, %d insertions, %d deletions over %d words)\n",
		r.WER*100, r.Substitutions, r.Insertions, r.Deletions, r.RefWords)
}

func printAnalysis(w io.Writer, r *analysis.Report) {
	if r == nil {
		return
	}
	for _, e := range r.Errors {
		fmt.Fprintf(w, "  [%s] %s\n", e.Type, e.Suggestion)
	}
	if r.WordsPerMinute > 0 {
		fmt.Fprintf(w, "Rate %.0f wpm (score %d)\n", r.WordsPerMinute, r.RateScore)
	}
	for _, s := range r.Suggestions {
		fmt.Fprintf(w, "• %s\n", s)
	}
}

func printFeedback(w io.Writer, fb *feedback.Feedback) {
	if fb == nil {
		return
	}
	fmt.Fprintf(w, "\n%s\n%s\n", fb.Feedback, fb.Encouragement)
	for _, tip := range fb.SpecificTips {
		fmt.Fprintf(w, "  tip: %s\n", tip)
	}
	if len(fb.RecommendedExercises) > 0 {
		fmt.Fprintf(w, "  try: %s\n", strings.Join(fb.RecommendedExercises, ", "))
	}
}
