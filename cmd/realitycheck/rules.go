package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Bharath-kolekar/cogone-sub001/internal/engine"
	"github.com/Bharath-kolekar/cogone-sub001/internal/patterns"
	"github.com/Bharath-kolekar/cogone-sub001/internal/reporting"
)

var (
	rulesConcern string
	rulesJSON    bool
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "List the active rules",
	Long:  "List compiled-in rules plus configured packs, after the severity threshold and disabled list apply.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		lib, err := engine.BuildLibrary(cfg.Rules.Packs)
		if err != nil {
			return err
		}
		lib = lib.Select(patterns.Settings{SeverityThreshold: cfg.Threshold(), Disabled: cfg.Rules.Disabled})

		var list []patterns.Rule
		for _, r := range lib.List() {
			if rulesConcern == "" || r.Concern == rulesConcern {
				list = append(list, r)
			}
		}
		if rulesJSON {
			return reporting.EncodeJSON(cmd.OutOrStdout(), map[string]any{"version": lib.Version(), "items": list})
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintf(tw, "ID\tCONCERN\tSEVERITY\tSUMMARY\n")
		for _, r := range list {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.ID, r.Concern, r.Severity, r.Summary)
		}
		fmt.Fprintf(tw, "\n%d rules, version %s\n", len(list), lib.Version())
		return tw.Flush()
	},
}

func init() {
	rulesCmd.Flags().StringVar(&rulesConcern, "concern", "", "only rules of this concern")
	rulesCmd.Flags().BoolVar(&rulesJSON, "json", false, "print JSON")
}
