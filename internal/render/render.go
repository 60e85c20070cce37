package render

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/mattn/go-runewidth"

	"github.com/HDumarBalmaceda/proyecto-informe/internal/report"
	"github.com/HDumarBalmaceda/proyecto-informe/internal/store"
)

const (
	colorReset   = "\033[0m"
	colorHeader  = "\033[1;34m" // bold blue
	colorTotal   = "\033[1;32m" // bold green
	colorPending = "\033[1;33m" // bold yellow for unclassified rows
	colorDim     = "\033[2m"
	colorHit     = "\033[43m"   // yellow background
	colorBoldRed = "\033[1;31m" // bold red for keyword highlights
)

type Options struct {
	Width       int    // wrap/truncate width (0 = none)
	Color       bool   // emit ANSI colors
	NonZeroOnly bool   // hide rows without records
	Compact     bool   // three-letter month headers
	Query       string // terms to highlight in record text
	Hit         int    // record seq to mark (-1 = none)
}

func (o Options) paint(color, s string) string {
	if !o.Color {
		return s
	}
	return color + s + colorReset
}

// RenderTable lays out a report table as aligned text. Zero cells are blank.
func RenderTable(t *report.Table, opts Options) string {
	rows := t.Rows
	if opts.NonZeroOnly {
		rows = t.NonZero()
	}

	headers := make([]string, 0, len(t.Months)+1)
	for _, m := range t.Months {
		name := report.MonthName(m)
		if opts.Compact {
			name = string([]rune(name)[:3])
		}
		headers = append(headers, name)
	}
	headers = append(headers, "TOTAL")

	colW := make([]int, len(headers))
	for i, h := range headers {
		colW[i] = runewidth.StringWidth(h)
	}

	nameW := runewidth.StringWidth("SOPORTES")
	for _, r := range rows {
		if w := runewidth.StringWidth(string(r.Category)); w > nameW {
			nameW = w
		}
	}
	if opts.Width > 0 {
		fixed := 0
		for _, w := range colW {
			fixed += w + 1
		}
		if avail := opts.Width - fixed; avail >= 8 && nameW > avail {
			nameW = avail
		}
	}

	var b strings.Builder
	writeRow := func(name string, cells []string, color string) {
		var line strings.Builder
		line.WriteString(runewidth.FillRight(runewidth.Truncate(name, nameW, "…"), nameW))
		for i, c := range cells {
			line.WriteString(" ")
			line.WriteString(runewidth.FillLeft(c, colW[i]))
		}
		if color != "" {
			b.WriteString(opts.paint(color, line.String()))
		} else {
			b.WriteString(line.String())
		}
		b.WriteString("\n")
	}

	writeRow("SOPORTES", headers, colorHeader)

	for _, r := range rows {
		cells := make([]string, 0, len(headers))
		for _, m := range t.Months {
			cells = append(cells, countCell(r.Count(m)))
		}
		cells = append(cells, countCell(r.Total))

		color := ""
		if isPending(string(r.Category)) && r.Total > 0 {
			color = colorPending
		}
		writeRow(string(r.Category), cells, color)
	}

	totals := t.MonthTotals()
	cells := make([]string, 0, len(headers))
	sum := 0
	for _, m := range t.Months {
		cells = append(cells, countCell(totals[m]))
		sum += totals[m]
	}
	cells = append(cells, countCell(sum))
	writeRow("TOTAL", cells, colorTotal)

	return b.String()
}

func countCell(n int) string {
	if n == 0 {
		return ""
	}
	return strconv.Itoa(n)
}

func isPending(name string) bool {
	lower := strings.ToLower(name)
	return strings.Contains(lower, "pendiente") || strings.Contains(lower, "no encontrada")
}

// RenderRecords renders stored records of one run grouped by chat, and
// returns the text plus the 0-based line of the hit record (-1 if none).
func RenderRecords(records []store.RecordRow, opts Options) (string, int) {
	if len(records) == 0 {
		return "(no records)", -1
	}

	var b strings.Builder
	hitLine := -1
	lineCount := 0
	separator := opts.paint(colorDim, "--------------------------------------------------")

	writeLine := func(s string) {
		for _, wl := range wrapLine(s, opts.Width) {
			b.WriteString(wl)
			b.WriteString("\n")
			lineCount++
		}
	}

	chat := ""
	for i, r := range records {
		if r.Chat != chat {
			chat = r.Chat
			writeLine(opts.paint(colorDim, fmt.Sprintf("--- %s ---", chat)))
		} else if i > 0 {
			writeLine(separator)
		}

		head := fmt.Sprintf("#%d %s:%d %s %s [%s]",
			r.Seq, r.Kind, r.Line, r.Timestamp.Format("2006-01-02 15:04"), r.Category, r.Outcome)
		if r.Seq == opts.Hit {
			hitLine = lineCount
			writeLine(opts.paint(colorHit, ">> "+head+" <<"))
		} else {
			writeLine(opts.paint(colorHeader, head))
		}

		if r.MediaPath != "" {
			writeLine(opts.paint(colorDim, "  "+r.MediaPath))
		}
		if r.Text != "" {
			text := r.Text
			if opts.Color {
				text = highlightKeywords(text, opts.Query)
			}
			for _, tl := range strings.Split(indentLines(text, "  "), "\n") {
				writeLine(tl)
			}
		}
	}
	return b.String(), hitLine
}

// highlightKeywords wraps case-insensitive matches of query terms in bold red ANSI codes.
func highlightKeywords(text, query string) string {
	if query == "" {
		return text
	}
	for _, term := range strings.Fields(query) {
		lower := strings.ToLower(term)
		i := 0
		for i < len(text) {
			idx := strings.Index(strings.ToLower(text[i:]), lower)
			if idx < 0 {
				break
			}
			pos := i + idx
			orig := text[pos : pos+len(term)]
			replacement := colorBoldRed + orig + colorReset
			text = text[:pos] + replacement + text[pos+len(term):]
			i = pos + len(replacement)
		}
	}
	return text
}

// indentLines prepends each line of text with the given prefix.
func indentLines(text, prefix string) string {
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = prefix + l
	}
	return strings.Join(lines, "\n")
}

// wrapLine breaks a single line into multiple lines that fit within maxWidth
// visible columns, correctly skipping ANSI escape sequences when measuring width.
func wrapLine(line string, maxWidth int) []string {
	if maxWidth <= 0 {
		return []string{line}
	}

	var result []string
	var cur strings.Builder
	visW := 0

	i := 0
	for i < len(line) {
		// check for ANSI escape sequence: ESC[ ... m
		if i+1 < len(line) && line[i] == '\033' && line[i+1] == '[' {
			j := i + 2
			for j < len(line) && line[j] != 'm' {
				j++
			}
			if j < len(line) {
				j++ // include 'm'
			}
			cur.WriteString(line[i:j])
			i = j
			continue
		}

		r, size := utf8.DecodeRuneInString(line[i:])
		rw := runewidth.RuneWidth(r)

		if visW+rw > maxWidth {
			result = append(result, cur.String())
			cur.Reset()
			visW = 0
		}

		cur.WriteRune(r)
		visW += rw
		i += size
	}

	if cur.Len() > 0 {
		result = append(result, cur.String())
	}

	if len(result) == 0 {
		return []string{""}
	}
	return result
}
