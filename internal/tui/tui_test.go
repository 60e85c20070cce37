package tui

import (
	"path/filepath"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HDumarBalmaceda/proyecto-informe/internal/search"
	"github.com/HDumarBalmaceda/proyecto-informe/internal/store"
)

func TestRecordSummary(t *testing.T) {
	ts := time.Date(2025, 9, 4, 10, 0, 0, 0, time.UTC)
	r := store.RecordRow{Chat: "Sede Norte.txt", Line: 12, Timestamp: ts, Category: "Soporte de Red",
		MediaPath: "/m/PTT-1.opus", Text: "sin\ninternet"}
	assert.Equal(t, "Sede Norte.txt:12 2025-09-04 [Soporte de Red] /m/PTT-1.opus sin internet", recordSummary(r))
}

func TestFormatResultLine(t *testing.T) {
	r := search.Result{RecordRow: store.RecordRow{
		Kind: "image", Category: "Imagen no encontrada", Chat: "a.txt", Line: 3, Outcome: "image_not_found",
		Timestamp: time.Date(2025, 9, 4, 0, 0, 0, 0, time.UTC),
	}}
	lines := formatResultLine(r, 60, true)
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "09-04")
	assert.Contains(t, lines[0], "Imagen no encontrada")
	assert.Contains(t, lines[1], "a.txt:3 [image_not_found]")
}

func TestModel_SearchAndCategoryCycle(t *testing.T) {
	db, err := store.OpenDB(filepath.Join(t.TempDir(), "informe.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	ts := time.Date(2025, 9, 4, 10, 0, 0, 0, time.UTC)
	id, err := db.SaveRun(store.Run{Source: "chats"}, []store.RecordRow{
		{Chat: "a.txt", Line: 1, Timestamp: ts, Kind: "text", Year: 2025, Month: 9, Category: "UPS", Outcome: "text", Text: "la ups pita"},
		{Chat: "a.txt", Line: 2, Timestamp: ts, Kind: "text", Year: 2025, Month: 9, Category: "Soporte Sap", Outcome: "text", Text: "sap caido"},
	})
	require.NoError(t, err)
	run, err := db.GetRun(id)
	require.NoError(t, err)

	m := initialModel(db, run, search.Options{})
	msg := m.doSearch("")()
	next, _ := m.Update(msg)
	m = next.(model)
	require.Len(t, m.results, 2)

	next, _ = m.Update(m.loadCategories()())
	m = next.(model)
	assert.Equal(t, []string{"Soporte Sap", "UPS"}, m.categories)

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyTab})
	m = next.(model)
	assert.Equal(t, "Soporte Sap", m.activeCategory())
	require.NotNil(t, cmd)
	next, _ = m.Update(cmd())
	m = next.(model)
	require.Len(t, m.results, 1)
	assert.Equal(t, 2, m.results[0].Line)

	// a result for a stale filter is dropped
	next, _ = m.Update(searchResultMsg{query: "otro", results: nil})
	m = next.(model)
	assert.Len(t, m.results, 1)

	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(model)
	require.NotNil(t, m.picked)
	assert.Equal(t, "Soporte Sap", m.picked.Category)
}

func TestLoadPreview_MarksSelected(t *testing.T) {
	db, err := store.OpenDB(filepath.Join(t.TempDir(), "informe.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	ts := time.Date(2025, 9, 4, 10, 0, 0, 0, time.UTC)
	id, err := db.SaveRun(store.Run{}, []store.RecordRow{
		{Chat: "a.txt", Line: 1, Timestamp: ts, Kind: "text", Category: "UPS", Outcome: "text", Text: "ups"},
		{Chat: "b.txt", Line: 1, Timestamp: ts, Kind: "text", Category: "UPS", Outcome: "text", Text: "otra"},
		{Chat: "a.txt", Line: 2, Timestamp: ts, Kind: "text", Category: "UPS", Outcome: "text", Text: "sigue"},
	})
	require.NoError(t, err)
	rec, err := db.GetRecord(id, 2)
	require.NoError(t, err)

	msg := loadPreviewCmd(db, *rec, "", 80)().(previewRenderedMsg)
	require.NoError(t, msg.err)
	assert.Equal(t, "a.txt:2", msg.key)
	assert.NotContains(t, msg.content, "b.txt")
	assert.Contains(t, msg.content, ">> #2")
	assert.Greater(t, msg.hitLine, 0)
}
