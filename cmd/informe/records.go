package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/HDumarBalmaceda/proyecto-informe/internal/search"
	"github.com/HDumarBalmaceda/proyecto-informe/internal/tui"
)

const (
	sColorReset   = "\033[0m"
	sColorBoldRed = "\033[1;31m"
	sColorBlue    = "\033[1;34m"
	sColorGreen   = "\033[1;32m"
	sColorYellow  = "\033[1;33m"
	sColorDim     = "\033[2m"
)

func colorizeKind(kind string) string {
	switch kind {
	case "audio":
		return sColorBlue + kind + sColorReset
	case "image":
		return sColorGreen + kind + sColorReset
	default:
		return kind
	}
}

func colorizeCategory(c string) string {
	lower := strings.ToLower(c)
	if strings.Contains(lower, "pendiente") || strings.Contains(lower, "no encontrada") {
		return sColorYellow + c + sColorReset
	}
	return c
}

func colorizeSnippet(snippet string) string {
	snippet = strings.ReplaceAll(snippet, ">>>", sColorBoldRed)
	snippet = strings.ReplaceAll(snippet, "<<<", sColorReset)
	return snippet
}

func recordsCmd() *cobra.Command {
	var runID, cat, chatName, outcome string
	var month, limit int
	var plain bool

	cmd := &cobra.Command{
		Use:   "records [query]",
		Short: "Search the classified records of a stored run",
		Long: `Lists the records of a run (latest by default), optionally filtered by a
full-text query over the classified text and by category, month, chat or outcome.
Opens the browser when stdout is a terminal; otherwise prints TSV:
  seq, chat, line, date, kind, category, outcome, snippet

Pipe-friendly example:
  informe records --plain --outcome resolution_miss | cut -f2,3`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, db, err := openStore()
			if err != nil {
				return err
			}
			defer db.Close()

			run, err := findRun(db, runID)
			if err != nil {
				return err
			}

			opts := search.Options{
				RunID:    run.ID,
				Category: cat,
				Month:    month,
				Chat:     chatName,
				Outcome:  outcome,
				Limit:    limit,
			}
			if len(args) == 1 {
				opts.Query = args[0]
			}

			if !plain && isTerminal() {
				return tui.Run(db, run, opts)
			}

			results, err := search.Search(db, opts)
			if err != nil {
				return err
			}
			if len(results) == 0 {
				fmt.Fprintln(os.Stderr, "No records found.")
				return nil
			}

			color := isTerminal()
			for _, r := range results {
				snippet := strings.ReplaceAll(r.Snippet, "\t", " ")
				snippet = strings.ReplaceAll(snippet, "\n", " ")
				if snippet == "" {
					snippet = r.MediaPath
				}
				kind, category := r.Kind, r.Category
				date := r.Timestamp.Format("2006-01-02")
				if color {
					snippet = colorizeSnippet(snippet)
					kind = colorizeKind(kind)
					category = colorizeCategory(category)
					date = sColorDim + date + sColorReset
				} else {
					snippet = strings.NewReplacer(">>>", "", "<<<", "").Replace(snippet)
				}
				// seq stays plain for `informe open`
				fmt.Printf("%d\t%s\t%d\t%s\t%s\t%s\t%s\t%s\n",
					r.Seq, r.Chat, r.Line, date, kind, category, r.Outcome, snippet)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&runID, "run", "", "Run id or prefix (default latest)")
	cmd.Flags().StringVar(&cat, "category", "", "Filter by category name")
	cmd.Flags().IntVar(&month, "month", 0, "Filter by month (1-12)")
	cmd.Flags().StringVar(&chatName, "chat", "", "Filter by chat file name substring")
	cmd.Flags().StringVar(&outcome, "outcome", "", "Filter by outcome (text, transcribed, ocr, visual, resolution_miss, ...)")
	cmd.Flags().IntVar(&limit, "limit", 100, "Max results")
	cmd.Flags().BoolVar(&plain, "plain", false, "TSV output even on a terminal")

	return cmd
}
