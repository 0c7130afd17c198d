package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/MrWong99/clearspeech/internal/analysis"
	"github.com/MrWong99/clearspeech/internal/practice"
	"github.com/MrWong99/clearspeech/pkg/scoring"
)

// scoreOutput is the --json shape of the score command.
type scoreOutput struct {
	scoring.Result
	WER      scoring.WERResult `json:"wer"`
	Analysis *analysis.Report  `json:"analysis,omitempty"`
}

func newScoreCmd(v *viper.Viper) *cobra.Command {
	var (
		asJSON       bool
		withAnalysis bool
		duration     time.Duration
	)
	cmd := &cobra.Command{
		Use:   "score TARGET SPOKEN",
		Short: "Score one transcript against a target phrase",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), v)
			if err != nil {
				return err
			}
			defer a.Close()

			target, spoken := args[0], args[1]
			out := scoreOutput{
				Result: a.svc.Score(target, spoken),
				WER:    scoring.WordErrorRate(target, spoken),
			}
			if withAnalysis || duration > 0 {
				out.Analysis = analysis.New().Analyze(out.Result, duration)
			}

			w := cmd.OutOrStdout()
			if asJSON {
				return writeJSON(w, out)
			}
			printScores(w, out.Scores)
			printWords(w, out.WordAnalysis)
			printWER(w, out.WER)
			printAnalysis(w, out.Analysis)
			return nil
		},
	}
	f := cmd.Flags()
	f.BoolVar(&asJSON, "json", false, "print JSON instead of text")
	f.BoolVar(&withAnalysis, "analysis", false, "include error analysis and suggestions")
	f.DurationVar(&duration, "duration", 0, "recording length, enables speaking-rate analysis")
	return cmd
}

// batchLine is one JSON line written by the batch command.
type batchLine struct {
	Line   int            `json:"line"`
	Target string         `json:"target"`
	Spoken string         `json:"spoken"`
	Result scoring.Result `json:"result"`
}

func newBatchCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "batch FILE",
		Short: "Score tab-separated target/spoken pairs, one per line (- reads stdin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), v)
			if err != nil {
				return err
			}
			defer a.Close()

			in := cmd.InOrStdin()
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return fmt.Errorf("batch: %w", err)
				}
				defer f.Close()
				in = f
			}
			pairs, lines, err := readPairs(in)
			if err != nil {
				return err
			}

			results, err := a.svc.ScoreBatch(cmd.Context(), pairs)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			for i, r := range results {
				if err := enc.Encode(batchLine{Line: lines[i], Target: pairs[i].Target, Spoken: pairs[i].Spoken, Result: r}); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

// readPairs parses "target<TAB>spoken" lines. Blank lines and lines
// starting with '#' are skipped; the returned line numbers are 1-based.
func readPairs(r io.Reader) ([]practice.Pair, []int, error) {
	var (
		pairs []practice.Pair
		lines []int
	)
	sc := bufio.NewScanner(r)
	n := 0
	for sc.Scan() {
		n++
		line := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(line) == "" || strings.HasPrefix(line, "#") {
			continue
		}
		target, spoken, ok := strings.Cut(line, "\t")
		if !ok {
			return nil, nil, fmt.Errorf("batch: line %d: missing tab between target and spoken", n)
		}
		pairs = append(pairs, practice.Pair{Target: target, Spoken: spoken})
		lines = append(lines, n)
	}
	if err := sc.Err(); err != nil {
		return nil, nil, fmt.Errorf("batch: read: %w", err)
	}
	return pairs, lines, nil
}
