package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Bharath-kolekar/cogone-sub001/internal/ir"
	"github.com/Bharath-kolekar/cogone-sub001/internal/reporting"
)

var (
	evalProposal    string
	evalOld         string
	evalNew         string
	evalPath        string
	evalDescription string
	evalEvidence    string
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Gate a change proposal",
	Long: `Classify a change as a genuine fix, a no-op, or a metric-gaming trick.
Pass a whole proposal with --proposal, or build one from --old/--new files.
Exits non-zero when the change is blocked.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		prop, err := loadProposal()
		if err != nil {
			return err
		}
		e, err := openEngine()
		if err != nil {
			return err
		}
		defer e.Close()

		v, err := e.EvaluateChange(cmd.Context(), prop)
		if perr := reporting.EncodeJSON(cmd.OutOrStdout(), v); perr != nil {
			return perr
		}
		if err != nil {
			return err
		}
		if v.Decision == ir.DecisionBlocked {
			if v.Trick != ir.TrickNone {
				return fmt.Errorf("change blocked: %s", v.Trick)
			}
			return fmt.Errorf("change blocked: %s", v.Reason)
		}
		return nil
	},
}

func init() {
	f := evaluateCmd.Flags()
	f.StringVar(&evalProposal, "proposal", "", "JSON change proposal file")
	f.StringVar(&evalOld, "old", "", "file with the code before the change")
	f.StringVar(&evalNew, "new", "", "file with the code after the change")
	f.StringVar(&evalPath, "path", "", "path the change applies to (defaults to --new)")
	f.StringVar(&evalDescription, "description", "", "change description")
	f.StringVar(&evalEvidence, "evidence", "", "JSON evidence file (checks, measurements)")
}

func loadProposal() (ir.ChangeProposal, error) {
	var prop ir.ChangeProposal
	if evalProposal != "" {
		b, err := os.ReadFile(evalProposal)
		if err != nil {
			return prop, err
		}
		if err := json.Unmarshal(b, &prop); err != nil {
			return prop, fmt.Errorf("parse %s: %w", evalProposal, err)
		}
		return prop, nil
	}
	if evalNew == "" {
		return prop, fmt.Errorf("--proposal or --new is required")
	}
	cur, err := os.ReadFile(evalNew)
	if err != nil {
		return prop, err
	}
	prop.NewCode = string(cur)
	if evalOld != "" {
		old, err := os.ReadFile(evalOld)
		if err != nil {
			return prop, err
		}
		prop.OldCode = string(old)
	}
	prop.Path = evalPath
	if prop.Path == "" {
		prop.Path = evalNew
	}
	prop.Description = evalDescription
	if evalEvidence != "" {
		b, err := os.ReadFile(evalEvidence)
		if err != nil {
			return prop, err
		}
		prop.Evidence = &ir.Evidence{}
		if err := json.Unmarshal(b, prop.Evidence); err != nil {
			return prop, fmt.Errorf("parse %s: %w", evalEvidence, err)
		}
	}
	return prop, nil
}
