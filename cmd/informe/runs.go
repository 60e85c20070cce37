package main

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func runsCmd() *cobra.Command {
	var limit int
	var remove string

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List stored runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, db, err := openStore()
			if err != nil {
				return err
			}
			defer db.Close()

			if remove != "" {
				run, err := findRun(db, remove)
				if err != nil {
					return err
				}
				if err := db.DeleteRun(run.ID); err != nil {
					return fmt.Errorf("delete run: %w", err)
				}
				fmt.Fprintf(os.Stderr, "Deleted run %s\n", run.ID)
				return nil
			}

			runs, err := db.ListRuns(limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Fprintln(os.Stderr, "No runs stored.")
				return nil
			}

			for _, r := range runs {
				output := r.Output
				if output == "" {
					output = "-"
				}
				fmt.Printf("%s\t%s\t%s records\t%s\t%s\n",
					r.ID,
					humanize.Time(r.StartedAt),
					humanize.Comma(int64(r.RecordCount)),
					r.Source,
					output,
				)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Max runs to list")
	cmd.Flags().StringVar(&remove, "delete", "", "Delete the run with this id (or prefix)")

	return cmd
}
