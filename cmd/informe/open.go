package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/HDumarBalmaceda/proyecto-informe/internal/open"
)

func openCmd() *cobra.Command {
	var runID string

	cmd := &cobra.Command{
		Use:   "open <seq>",
		Short: "Open the chat export in $EDITOR at the line of a stored record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			seq, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("record seq must be a number: %q", args[0])
			}

			_, db, err := openStore()
			if err != nil {
				return err
			}
			defer db.Close()

			run, err := findRun(db, runID)
			if err != nil {
				return err
			}
			return open.OpenRecord(db, run, seq)
		},
	}

	cmd.Flags().StringVar(&runID, "run", "", "Run id or prefix (default latest)")

	return cmd
}
