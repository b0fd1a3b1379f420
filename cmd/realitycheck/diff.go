package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Bharath-kolekar/cogone-sub001/internal/engine"
	"github.com/Bharath-kolekar/cogone-sub001/internal/ir"
	"github.com/Bharath-kolekar/cogone-sub001/internal/reporting"
)

var diffOut string

var diffCmd = &cobra.Command{
	Use:   "diff <base> <head>",
	Short: "Compare the findings of two reports",
	Long:  "Each argument is a report JSON file or, when a database is configured, a stored report id.",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		var e *engine.Engine
		load := func(ref string) (ir.Report, error) {
			if b, err := os.ReadFile(ref); err == nil {
				var rep ir.Report
				if err := json.Unmarshal(b, &rep); err != nil {
					return rep, fmt.Errorf("parse %s: %w", ref, err)
				}
				return rep, nil
			} else if !errors.Is(err, os.ErrNotExist) {
				return ir.Report{}, err
			}
			if e == nil {
				var err error
				if e, err = openEngine(); err != nil {
					return ir.Report{}, err
				}
			}
			return e.LoadReport(ref)
		}
		defer func() {
			if e != nil {
				_ = e.Close()
			}
		}()

		base, err := load(args[0])
		if err != nil {
			return err
		}
		head, err := load(args[1])
		if err != nil {
			return err
		}
		if diffOut != "" {
			path, err := reporting.WriteDiffJSON(diffOut, &base, &head)
			if err != nil {
				return err
			}
			logger.Info("diff written", "path", path)
		}
		return reporting.EncodeJSON(cmd.OutOrStdout(), reporting.Diff(&base, &head))
	},
}

func init() {
	diffCmd.Flags().StringVar(&diffOut, "out", "", "also write the diff JSON into this directory")
}
