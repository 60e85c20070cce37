// Package report folds classified records into the category by month table.
package report

import (
	"errors"
	"sort"
	"time"

	"github.com/HDumarBalmaceda/proyecto-informe/internal/category"
	"github.com/HDumarBalmaceda/proyecto-informe/internal/pipeline"
)

// ErrEmptyResult is returned when a run produced no records to report.
var ErrEmptyResult = errors.New("no records to report")

var monthNames = [...]string{
	"Enero", "Febrero", "Marzo", "Abril", "Mayo", "Junio",
	"Julio", "Agosto", "Septiembre", "Octubre", "Noviembre", "Diciembre",
}

// MonthName returns the Spanish name of m.
func MonthName(m time.Month) string {
	if m < time.January || m > time.December {
		return ""
	}
	return monthNames[m-1]
}

// Months returns January through December.
func Months() []time.Month {
	out := make([]time.Month, 12)
	for i := range out {
		out[i] = time.Month(i + 1)
	}
	return out
}

type Row struct {
	Category category.Category
	Counts   map[time.Month]int
	Total    int
}

// Count returns the cell for month m.
func (r Row) Count(m time.Month) int {
	return r.Counts[m]
}

// Table has one row per category and one column per month. Rows follow the
// category universe order; categories seen in records but missing from the
// universe are appended sorted by name.
type Table struct {
	Months  []time.Month
	Rows    []Row
	Records int
}

// Aggregate builds the table. The result does not depend on record order.
// Records whose month is outside months are not counted.
func Aggregate(records []pipeline.Record, categories []category.Category, months []time.Month) *Table {
	t := &Table{Months: months}

	inMonths := make(map[time.Month]bool, len(months))
	for _, m := range months {
		inMonths[m] = true
	}

	index := make(map[category.Category]int, len(categories))
	for _, c := range categories {
		if _, dup := index[c]; dup {
			continue
		}
		index[c] = len(t.Rows)
		t.Rows = append(t.Rows, newRow(c, months))
	}

	var extra []category.Category
	extraCounts := make(map[category.Category]map[time.Month]int)

	for _, r := range records {
		if !inMonths[r.Month] {
			continue
		}
		t.Records++
		if i, ok := index[r.Category]; ok {
			t.Rows[i].Counts[r.Month]++
			continue
		}
		if extraCounts[r.Category] == nil {
			extraCounts[r.Category] = make(map[time.Month]int)
			extra = append(extra, r.Category)
		}
		extraCounts[r.Category][r.Month]++
	}

	sort.Slice(extra, func(i, j int) bool { return extra[i] < extra[j] })
	for _, c := range extra {
		row := newRow(c, months)
		for m, n := range extraCounts[c] {
			row.Counts[m] = n
		}
		t.Rows = append(t.Rows, row)
	}

	for i := range t.Rows {
		total := 0
		for _, n := range t.Rows[i].Counts {
			total += n
		}
		t.Rows[i].Total = total
	}
	return t
}

func newRow(c category.Category, months []time.Month) Row {
	counts := make(map[time.Month]int, len(months))
	for _, m := range months {
		counts[m] = 0
	}
	return Row{Category: c, Counts: counts}
}

// Empty reports whether no record was counted.
func (t *Table) Empty() bool {
	return t.Records == 0
}

// Row returns the row for c.
func (t *Table) Row(c category.Category) (Row, bool) {
	for _, r := range t.Rows {
		if r.Category == c {
			return r, true
		}
	}
	return Row{}, false
}

// MonthTotals returns the column sums.
func (t *Table) MonthTotals() map[time.Month]int {
	out := make(map[time.Month]int, len(t.Months))
	for _, r := range t.Rows {
		for m, n := range r.Counts {
			out[m] += n
		}
	}
	return out
}

// NonZero returns the rows with at least one record.
func (t *Table) NonZero() []Row {
	var out []Row
	for _, r := range t.Rows {
		if r.Total > 0 {
			out = append(out, r)
		}
	}
	return out
}
