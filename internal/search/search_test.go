package search

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HDumarBalmaceda/proyecto-informe/internal/store"
)

func seed(t *testing.T) (*store.DB, string) {
	t.Helper()
	db, err := store.OpenDB(filepath.Join(t.TempDir(), "informe.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	ts := time.Date(2025, 9, 4, 10, 0, 0, 0, time.UTC)
	id, err := db.SaveRun(store.Run{Source: "chats"}, []store.RecordRow{
		{Chat: "Sede Norte.txt", Line: 1, Timestamp: ts, Kind: "text", Year: 2025, Month: 9, Category: "Impresora y Cajon", Outcome: "text", Text: "la impresora no imprime"},
		{Chat: "Sede Norte.txt", Line: 2, Timestamp: ts, Kind: "audio", Year: 2025, Month: 9, Category: "Soporte de Red", Outcome: "transcribed", Text: "no tengo internet desde ayer"},
		{Chat: "Sede Sur.txt", Line: 5, Timestamp: ts, Kind: "text", Year: 2025, Month: 10, Category: "Instalacion Biometrico", Outcome: "text", Text: "el biométrico no marca"},
		{Chat: "Sede Sur.txt", Line: 6, Timestamp: ts, Kind: "audio", Year: 2025, Month: 10, Category: "Adjunto (pendiente clasificar)", Outcome: "resolution_miss"},
	})
	require.NoError(t, err)

	// a second run that must never leak into results
	_, err = db.SaveRun(store.Run{}, []store.RecordRow{
		{Chat: "Sede Norte.txt", Kind: "text", Year: 2025, Month: 9, Category: "Impresora y Cajon", Text: "otra impresora"},
	})
	require.NoError(t, err)
	return db, id
}

func TestSearch_RequiresRun(t *testing.T) {
	db, _ := seed(t)
	_, err := Search(db, Options{})
	assert.Error(t, err)
}

func TestSearch_Filters(t *testing.T) {
	db, id := seed(t)

	all, err := Search(db, Options{RunID: id})
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, 0, all[0].Seq)

	byCat, err := Search(db, Options{RunID: id, Category: "soporte de red"})
	require.NoError(t, err)
	require.Len(t, byCat, 1)
	assert.Equal(t, 2, byCat[0].Line)

	byMonth, err := Search(db, Options{RunID: id, Month: 10})
	require.NoError(t, err)
	assert.Len(t, byMonth, 2)

	byChat, err := Search(db, Options{RunID: id, Chat: "Norte"})
	require.NoError(t, err)
	assert.Len(t, byChat, 2)

	byOutcome, err := Search(db, Options{RunID: id, Outcome: "resolution_miss"})
	require.NoError(t, err)
	assert.Len(t, byOutcome, 1)

	limited, err := Search(db, Options{RunID: id, Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestSearch_FullText(t *testing.T) {
	db, id := seed(t)

	res, err := Search(db, Options{RunID: id, Query: "impresora"})
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, "la >>>impresora<<< no imprime", res[0].Snippet)

	// diacritics are folded
	res, err = Search(db, Options{RunID: id, Query: "biometrico"})
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, "Sede Sur.txt", res[0].Chat)
}

func TestSearch_MultiTermAndPunctuation(t *testing.T) {
	db, id := seed(t)
	res, err := Search(db, Options{RunID: id, Query: "internet desde"})
	require.NoError(t, err)
	require.Len(t, res, 1)

	res, err = Search(db, Options{RunID: id, Query: "no imprime\""})
	require.NoError(t, err)
	assert.Empty(t, res)
}

func TestMakeSnippet(t *testing.T) {
	assert.Equal(t, "a >>>b<<< c", makeSnippet("a b c", "b", 10))
	assert.Equal(t, "abcd...", makeSnippet("abcdefgh", "zz", 2))
	assert.Equal(t, "texto", makeSnippet("texto", "", 10))
}
