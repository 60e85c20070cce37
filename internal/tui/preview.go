package tui

import (
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/HDumarBalmaceda/proyecto-informe/internal/render"
	"github.com/HDumarBalmaceda/proyecto-informe/internal/store"
)

// previewRenderedMsg is sent when an async preview render completes.
type previewRenderedMsg struct {
	key     string
	content string
	hitLine int
	err     error
}

// loadPreviewCmd renders the records of the selected record's chat, marking
// the selected one.
func loadPreviewCmd(db *store.DB, r store.RecordRow, query string, width int) tea.Cmd {
	return func() tea.Msg {
		msg := previewRenderedMsg{key: previewCacheKey(r)}
		all, err := db.GetRecords(r.RunID)
		if err != nil {
			msg.err = err
			return msg
		}
		msg.content, msg.hitLine = render.RenderRecords(sameChat(all, r.Chat), render.Options{
			Width: width,
			Color: true,
			Query: query,
			Hit:   r.Seq,
		})
		return msg
	}
}

func sameChat(records []store.RecordRow, chat string) []store.RecordRow {
	var out []store.RecordRow
	for _, r := range records {
		if r.Chat == chat {
			out = append(out, r)
		}
	}
	return out
}

// newViewport creates a new viewport model with the given dimensions.
func newViewport(width, height int) viewport.Model {
	vp := viewport.New(width, height)
	vp.Style = stylePanelBorder
	return vp
}
