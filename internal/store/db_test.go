package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := OpenDB(filepath.Join(t.TempDir(), "sub", "informe.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestTranscripts(t *testing.T) {
	db := openTestDB(t)

	_, err := db.GetTranscript("PTT-20250904-WA0008")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, db.PutTranscript(Transcript{Key: "PTT-20250904-WA0008", Kind: "audio", Text: "la impresora no imprime"}))
	require.NoError(t, db.PutTranscript(Transcript{Key: "IMG-20250904-WA0001", Kind: "image", Text: ""}))

	got, err := db.GetTranscript("PTT-20250904-WA0008")
	require.NoError(t, err)
	assert.Equal(t, "la impresora no imprime", got.Text)
	assert.Equal(t, "audio", got.Kind)
	assert.False(t, got.CreatedAt.IsZero())

	empty, err := db.GetTranscript("IMG-20250904-WA0001")
	require.NoError(t, err)
	assert.Empty(t, empty.Text)

	n, err := db.TranscriptCount()
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	size, err := db.TranscriptBytes()
	require.NoError(t, err)
	assert.Equal(t, int64(len("la impresora no imprime")), size)

	require.NoError(t, db.DeleteTranscript("IMG-20250904-WA0001"))
	assert.ErrorIs(t, db.DeleteTranscript("IMG-20250904-WA0001"), ErrNotFound)
}

func TestTranscripts_ReplaceKeepsOneRow(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, db.PutTranscript(Transcript{Key: "k", Text: "uno"}))
	require.NoError(t, db.PutTranscript(Transcript{Key: "k", Text: "dos"}))

	got, err := db.GetTranscript("k")
	require.NoError(t, err)
	assert.Equal(t, "dos", got.Text)

	n, _ := db.TranscriptCount()
	assert.Equal(t, 1, n)
}

func TestTranscripts_SurviveReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "informe.db")
	db, err := OpenDB(path)
	require.NoError(t, err)
	require.NoError(t, db.PutTranscript(Transcript{Key: "k", Text: "persistente"}))
	require.NoError(t, db.Close())

	db, err = OpenDB(path)
	require.NoError(t, err)
	defer db.Close()

	got, err := db.GetTranscript("k")
	require.NoError(t, err)
	assert.Equal(t, "persistente", got.Text)
}

func sampleRecords() []RecordRow {
	ts := time.Date(2025, 9, 4, 10, 15, 0, 0, time.UTC)
	return []RecordRow{
		{Chat: "chat_a.txt", Line: 1, Timestamp: ts, Kind: "text", Year: 2025, Month: 9, Category: "Impresora y Cajon", Outcome: "classified", Text: "la impresora no imprime"},
		{Chat: "chat_a.txt", Line: 2, Timestamp: ts, Kind: "audio", Year: 2025, Month: 9, Category: "Adjunto (pendiente clasificar)", Outcome: "resolution_miss"},
	}
}

func TestSaveRunAndRecords(t *testing.T) {
	db := openTestDB(t)

	id, err := db.SaveRun(Run{Source: "chats_soporte"}, sampleRecords())
	require.NoError(t, err)
	assert.Len(t, id, 36)

	run, err := db.GetRun(id[:8])
	require.NoError(t, err)
	assert.Equal(t, id, run.ID)
	assert.Equal(t, 2, run.RecordCount)
	assert.Equal(t, "chats_soporte", run.Source)

	recs, err := db.GetRecords(id)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, 0, recs[0].Seq)
	assert.Equal(t, "Impresora y Cajon", recs[0].Category)
	assert.Equal(t, time.Date(2025, 9, 4, 10, 15, 0, 0, time.UTC), recs[0].Timestamp)
	assert.Equal(t, "resolution_miss", recs[1].Outcome)

	rec, err := db.GetRecord(id, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, rec.Line)

	_, err = db.GetRecord(id, 7)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, db.SetRunOutput(id, "informe_soportes.xlsx"))
	run, err = db.GetRun(id)
	require.NoError(t, err)
	assert.Equal(t, "informe_soportes.xlsx", run.Output)
}

func TestLatestRunAndList(t *testing.T) {
	db := openTestDB(t)

	_, err := db.LatestRun()
	assert.ErrorIs(t, err, ErrNotFound)

	first, err := db.SaveRun(Run{StartedAt: time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)}, nil)
	require.NoError(t, err)
	second, err := db.SaveRun(Run{StartedAt: time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC)}, sampleRecords())
	require.NoError(t, err)

	latest, err := db.LatestRun()
	require.NoError(t, err)
	assert.Equal(t, second, latest.ID)

	runs, err := db.ListRuns(0)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, first, runs[1].ID)

	n, _ := db.RunCount()
	assert.Equal(t, 2, n)
	n, _ = db.RecordCount()
	assert.Equal(t, 2, n)

	require.NoError(t, db.DeleteRun(second))
	assert.ErrorIs(t, db.DeleteRun(second), ErrNotFound)
	n, _ = db.RecordCount()
	assert.Equal(t, 0, n)
}

func TestGetRun_Unknown(t *testing.T) {
	db := openTestDB(t)
	_, err := db.GetRun("deadbeef")
	assert.ErrorIs(t, err, ErrNotFound)
}
