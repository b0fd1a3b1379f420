package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/Bharath-kolekar/cogone-sub001/internal/ir"
	"github.com/Bharath-kolekar/cogone-sub001/internal/reporting"
)

var (
	scanTag       string
	scanBaseline  string
	scanOut       string
	scanFormat    string
	scanFailUnder float64
)

var scanCmd = &cobra.Command{
	Use:   "scan <path>...",
	Short: "Scan files or directories",
	Long: `Scan source files and directories and print one report per file.
With --baseline, a single file is scanned as a change from the baseline file,
which adds the manipulation detector to the score.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tag := ir.ContextTag(scanTag)
		if !tag.Valid() {
			return fmt.Errorf("unknown --context-tag %q", scanTag)
		}
		e, err := openEngine()
		if err != nil {
			return err
		}
		defer e.Close()

		var reps []ir.Report
		if scanBaseline != "" {
			if len(args) != 1 {
				return fmt.Errorf("--baseline takes exactly one file")
			}
			old, err := os.ReadFile(scanBaseline)
			if err != nil {
				return err
			}
			cur, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			rep, err := e.ScanChange(cmd.Context(), string(old), string(cur), args[0], tag)
			if err != nil {
				return err
			}
			reps = []ir.Report{rep}
		} else {
			reps, err = e.ScanDirectory(cmd.Context(), args, tag)
			if err != nil {
				return err
			}
		}

		if scanOut != "" {
			for i := range reps {
				if _, err := reporting.WriteJSON(scanOut, &reps[i]); err != nil {
					return err
				}
				if _, err := reporting.WriteHTML(scanOut, &reps[i]); err != nil {
					return err
				}
			}
		}

		out := cmd.OutOrStdout()
		if scanFormat == "json" {
			if err := reporting.EncodeJSON(out, reps); err != nil {
				return err
			}
		} else {
			printReports(out, reps)
		}
		return scanVerdict(reps, scanFailUnder)
	},
}

func init() {
	f := scanCmd.Flags()
	f.StringVar(&scanTag, "context-tag", "", "context tag: generated-template|test-fixture")
	f.StringVar(&scanBaseline, "baseline", "", "previous version of the scanned file")
	f.StringVar(&scanOut, "out", "", "directory for JSON and HTML reports")
	f.StringVar(&scanFormat, "format", "text", "stdout format: text|json")
	f.Float64Var(&scanFailUnder, "fail-under", 0, "exit non-zero when a score is below this value")
}

func printReports(w io.Writer, reps []ir.Report) {
	for _, r := range reps {
		if r.Failed {
			fmt.Fprintf(w, "%s  FAILED  %s\n", r.Target, r.Error)
			continue
		}
		fmt.Fprintf(w, "%s  score=%.3f  findings=%d\n", r.Target, r.Score, len(r.Findings))
		for _, f := range r.Findings {
			fmt.Fprintf(w, "  %s:%d  %-8s %s  %s\n", f.Path, f.LineStart, f.Severity, f.RuleID, f.Message)
		}
	}
}

func scanVerdict(reps []ir.Report, failUnder float64) error {
	failed, low := 0, 0
	for _, r := range reps {
		switch {
		case r.Failed:
			failed++
		case r.Score < failUnder:
			low++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d file(s) could not be scanned", failed)
	}
	if low > 0 {
		return fmt.Errorf("%d file(s) scored below %.2f", low, failUnder)
	}
	return nil
}
