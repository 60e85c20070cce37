package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/HDumarBalmaceda/proyecto-informe/internal/batch"
	"github.com/HDumarBalmaceda/proyecto-informe/internal/category"
	"github.com/HDumarBalmaceda/proyecto-informe/internal/export"
	"github.com/HDumarBalmaceda/proyecto-informe/internal/render"
	"github.com/HDumarBalmaceda/proyecto-informe/internal/report"
)

func showCmd() *cobra.Command {
	var all, compact bool
	var xlsx string

	cmd := &cobra.Command{
		Use:   "show [run-id]",
		Short: "Re-render the table of a stored run (latest by default)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, db, err := openStore()
			if err != nil {
				return err
			}
			defer db.Close()

			id := ""
			if len(args) == 1 {
				id = args[0]
			}
			run, err := findRun(db, id)
			if err != nil {
				return err
			}

			rules, err := loadRules(cfg)
			if err != nil {
				return err
			}

			rows, err := db.GetRecords(run.ID)
			if err != nil {
				return err
			}
			table := report.Aggregate(batch.FromRows(rows), category.Universe(rules), report.Months())

			fmt.Fprintf(os.Stderr, "Run %s  %s  %s\n", run.ID, run.StartedAt.Local().Format("2006-01-02 15:04"), run.Source)
			if table.Empty() {
				fmt.Fprintln(os.Stderr, "No records in this run.")
				return nil
			}

			fmt.Print(render.RenderTable(table, render.Options{
				Width:       terminalWidth(),
				Color:       isTerminal(),
				NonZeroOnly: !all,
				Compact:     compact,
				Hit:         -1,
			}))

			if xlsx != "" {
				if err := export.WriteXLSX(table, xlsx); err != nil {
					return err
				}
				fmt.Fprintf(os.Stderr, "wrote %s\n", xlsx)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Include categories without records")
	cmd.Flags().BoolVar(&compact, "compact", false, "Three-letter month headers")
	cmd.Flags().StringVar(&xlsx, "xlsx", "", "Export the stored run to this spreadsheet")

	return cmd
}
