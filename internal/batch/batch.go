// Package batch drives a whole report run: every chat through the pipeline,
// the combined and per-chat spreadsheets, and the run history.
package batch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/HDumarBalmaceda/proyecto-informe/internal/category"
	"github.com/HDumarBalmaceda/proyecto-informe/internal/chat"
	"github.com/HDumarBalmaceda/proyecto-informe/internal/export"
	"github.com/HDumarBalmaceda/proyecto-informe/internal/logging"
	"github.com/HDumarBalmaceda/proyecto-informe/internal/pipeline"
	"github.com/HDumarBalmaceda/proyecto-informe/internal/report"
	"github.com/HDumarBalmaceda/proyecto-informe/internal/store"
)

type Options struct {
	Chat     chat.Options
	Universe []category.Category
	Output   string // combined report path
	PerChat  bool   // also write one report per chat next to Output
	Source   string // chats dir or single chat file, kept with the run
	Logger   logging.Logger
}

type Stats struct {
	Chats   int
	Failed  int
	Records int
	Reports int
}

func (s Stats) String() string {
	return fmt.Sprintf("chats=%d failed=%d records=%d reports=%d",
		s.Chats, s.Failed, s.Records, s.Reports)
}

// Result is what a run produced. Table is always set; Reports lists the
// spreadsheets written, combined report first.
type Result struct {
	RunID   string
	Records []pipeline.Record
	Table   *report.Table
	Reports []string
	Stats   Stats
}

// ProcessAll runs every chat file through p. An unreadable chat is logged
// and skipped; cancellation stops the run. When db is not nil the run and
// its records are stored. If no record survives, the returned error is
// report.ErrEmptyResult and no combined spreadsheet is written.
func ProcessAll(ctx context.Context, p *pipeline.Pipeline, db *store.DB, chats []string, opts Options) (*Result, error) {
	if opts.Logger == nil {
		opts.Logger = logging.NewNopLogger()
	}
	if len(opts.Universe) == 0 {
		opts.Universe = category.Universe(category.DefaultRules())
	}
	res := &Result{}
	months := report.Months()

	for _, path := range chats {
		recs, err := p.RunFile(ctx, path, opts.Chat)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return res, ctxErr
			}
			res.Stats.Failed++
			opts.Logger.Warn("chat skipped", logging.F("chat", path), logging.Err(err))
			continue
		}
		res.Stats.Chats++
		res.Records = append(res.Records, recs...)

		if opts.PerChat {
			out := export.PerChatPath(opts.Output, path)
			err := export.WriteXLSX(report.Aggregate(recs, opts.Universe, months), out)
			switch {
			case errors.Is(err, report.ErrEmptyResult):
				opts.Logger.Debug("no records for chat report", logging.F("chat", path))
			case err != nil:
				return res, fmt.Errorf("chat report %s: %w", out, err)
			default:
				res.Reports = append(res.Reports, out)
			}
		}
	}

	res.Stats.Records = len(res.Records)
	res.Table = report.Aggregate(res.Records, opts.Universe, months)

	if db != nil {
		id, err := db.SaveRun(store.Run{Source: opts.Source}, ToRows(res.Records))
		if err != nil {
			return res, fmt.Errorf("save run: %w", err)
		}
		res.RunID = id
	}

	if res.Table.Empty() {
		res.Stats.Reports = len(res.Reports)
		return res, report.ErrEmptyResult
	}

	if err := export.WriteXLSX(res.Table, opts.Output); err != nil {
		return res, fmt.Errorf("write report: %w", err)
	}
	res.Reports = append([]string{opts.Output}, res.Reports...)
	res.Stats.Reports = len(res.Reports)

	if db != nil {
		if err := db.SetRunOutput(res.RunID, opts.Output); err != nil {
			return res, fmt.Errorf("save run output: %w", err)
		}
	}
	return res, nil
}

// ToRows converts pipeline records into stored rows, keeping their order.
func ToRows(records []pipeline.Record) []store.RecordRow {
	rows := make([]store.RecordRow, 0, len(records))
	for i, r := range records {
		rows = append(rows, store.RecordRow{
			Seq:       i,
			Chat:      r.Source,
			Line:      r.Line,
			Timestamp: r.Date,
			Kind:      r.Kind.String(),
			Year:      r.Year,
			Month:     int(r.Month),
			Category:  string(r.Category),
			Outcome:   string(r.Outcome),
			MediaPath: r.MediaPath,
			Text:      r.Text,
		})
	}
	return rows
}

// FromRows rebuilds pipeline records from stored rows, enough to aggregate
// and export a past run again.
func FromRows(rows []store.RecordRow) []pipeline.Record {
	records := make([]pipeline.Record, 0, len(rows))
	for _, r := range rows {
		records = append(records, pipeline.Record{
			Date:      r.Timestamp,
			Month:     time.Month(r.Month),
			Year:      r.Year,
			Category:  category.Category(r.Category),
			Source:    r.Chat,
			Line:      r.Line,
			Kind:      kindOf(r.Kind),
			Outcome:   pipeline.Outcome(r.Outcome),
			MediaPath: r.MediaPath,
			Text:      r.Text,
		})
	}
	return records
}

func kindOf(s string) chat.Kind {
	switch s {
	case "audio":
		return chat.KindAudio
	case "image":
		return chat.KindImage
	default:
		return chat.KindText
	}
}
