package main

import (
	"github.com/spf13/cobra"

	"github.com/Bharath-kolekar/cogone-sub001/internal/reporting"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print gate statistics rebuilt from the ledger",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEngine()
		if err != nil {
			return err
		}
		defer e.Close()
		body := map[string]any{"statistics": e.ManipulationReport()}
		if vc, err := e.VerdictCounts(); err == nil {
			body["stored_verdicts"] = vc
		}
		return reporting.EncodeJSON(cmd.OutOrStdout(), body)
	},
}
