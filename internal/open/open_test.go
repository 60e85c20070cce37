package open

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HDumarBalmaceda/proyecto-informe/internal/store"
)

func TestChatPath(t *testing.T) {
	dir := t.TempDir()
	chat := filepath.Join(dir, "Sede Norte.txt")
	require.NoError(t, os.WriteFile(chat, []byte("x"), 0o644))

	got, err := ChatPath(&store.Run{Source: dir}, "Sede Norte.txt")
	require.NoError(t, err)
	assert.Equal(t, chat, got)

	got, err = ChatPath(&store.Run{Source: chat}, "Sede Norte.txt")
	require.NoError(t, err)
	assert.Equal(t, chat, got)

	_, err = ChatPath(&store.Run{Source: dir}, "otro.txt")
	assert.Error(t, err)

	_, err = ChatPath(&store.Run{ID: "r1"}, "otro.txt")
	assert.Error(t, err)
}

func TestEditorArgs(t *testing.T) {
	assert.Equal(t, []string{"+7", "a.txt"}, editorArgs("nvim", "a.txt", 7))
	assert.Equal(t, []string{"--goto", "a.txt:7"}, editorArgs("code", "a.txt", 7))
	assert.Equal(t, []string{"+7", "a.txt"}, editorArgs("/usr/bin/less", "a.txt", 7))
	assert.Equal(t, []string{"a.txt"}, editorArgs("emacs", "a.txt", 7))
}

func TestOpenRecord_UnknownSeq(t *testing.T) {
	db, err := store.OpenDB(filepath.Join(t.TempDir(), "informe.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	id, err := db.SaveRun(store.Run{Source: t.TempDir()}, nil)
	require.NoError(t, err)
	run, err := db.GetRun(id)
	require.NoError(t, err)

	err = OpenRecord(db, run, 9)
	assert.ErrorIs(t, err, store.ErrNotFound)
}
