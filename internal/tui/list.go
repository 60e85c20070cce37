package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/HDumarBalmaceda/proyecto-informe/internal/search"
)

// linesPerItem is the number of terminal lines each record occupies.
const linesPerItem = 2

// renderList renders the left panel: matching records with scrolling.
func (m model) renderList(width, height int) string {
	if len(m.results) == 0 {
		return lipgloss.NewStyle().
			Foreground(colorDim).
			Width(width).
			Height(height).
			Align(lipgloss.Center, lipgloss.Center).
			Render("No records")
	}

	var lines []string
	for i, r := range m.results {
		if i < m.listOffset {
			continue
		}
		if len(lines)+linesPerItem > height {
			break
		}
		lines = append(lines, formatResultLine(r, width, i == m.cursor)...)
	}

	for len(lines) < height {
		lines = append(lines, strings.Repeat(" ", width))
	}
	return strings.Join(lines, "\n")
}

// formatResultLine formats a record as two lines:
//
//	line 1: [>] kind  MM-DD  category
//	line 2:    snippet or media path (dimmed)
func formatResultLine(r search.Result, width int, selected bool) []string {
	kind := styleListKind.Render(kindStyle(r.Kind).Render(r.Kind))

	date := r.Timestamp.Format("01-02")

	cat := r.Category
	catMax := width - 2 - 6 - 6 - 2
	if catMax < 0 {
		catMax = 0
	}
	if runewidth.StringWidth(cat) > catMax {
		cat = runewidth.Truncate(cat, catMax, "")
	}
	if pendingCategory(r.Category) {
		cat = stylePending.Render(cat)
	}

	line1 := fmt.Sprintf("%s %s %s", kind, date, cat)
	if selected {
		line1 = styleListSelected.Render("> ") + line1
	} else {
		line1 = "  " + line1
	}

	detail := r.Snippet
	if detail == "" {
		detail = r.MediaPath
	}
	if detail == "" {
		detail = fmt.Sprintf("%s:%d [%s]", r.Chat, r.Line, r.Outcome)
	}
	detail = strings.ReplaceAll(detail, "\n", " ")
	detail = strings.ReplaceAll(detail, "\t", " ")
	detail = strings.ReplaceAll(detail, ">>>", "")
	detail = strings.ReplaceAll(detail, "<<<", "")
	detailMax := width - 4
	if detailMax < 0 {
		detailMax = 0
	}
	if runewidth.StringWidth(detail) > detailMax {
		detail = runewidth.Truncate(detail, detailMax, "")
	}
	line2 := "    " + styleDetail.Render(detail)

	return []string{line1, line2}
}

func kindStyle(kind string) lipgloss.Style {
	switch kind {
	case "audio":
		return styleKindAudio
	case "image":
		return styleKindImage
	default:
		return styleListNormal
	}
}

func pendingCategory(name string) bool {
	lower := strings.ToLower(name)
	return strings.Contains(lower, "pendiente") || strings.Contains(lower, "no encontrada")
}

// adjustListScroll keeps the cursor visible within the list viewport.
func (m *model) adjustListScroll(listHeight int) {
	visibleItems := listHeight / linesPerItem
	if visibleItems < 1 {
		visibleItems = 1
	}
	if m.cursor < m.listOffset {
		m.listOffset = m.cursor
	}
	if m.cursor >= m.listOffset+visibleItems {
		m.listOffset = m.cursor - visibleItems + 1
	}
}
