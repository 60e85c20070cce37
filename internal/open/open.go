package open

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/HDumarBalmaceda/proyecto-informe/internal/store"
)

// ChatPath resolves the chat file a record came from. A run's source is
// either the chats directory or the single chat file that was processed.
func ChatPath(run *store.Run, chat string) (string, error) {
	if run.Source == "" {
		return "", fmt.Errorf("run %s has no source", run.ID)
	}
	candidates := []string{filepath.Join(run.Source, chat)}
	if filepath.Base(run.Source) == chat {
		candidates = append([]string{run.Source}, candidates...)
	}
	for _, c := range candidates {
		if info, err := os.Stat(c); err == nil && !info.IsDir() {
			return c, nil
		}
	}
	return "", fmt.Errorf("chat file not found: %s", candidates[len(candidates)-1])
}

// OpenRecord opens the chat file of a stored record in $EDITOR (less when
// unset), positioned at the record's line.
func OpenRecord(db *store.DB, run *store.Run, seq int) error {
	rec, err := db.GetRecord(run.ID, seq)
	if err != nil {
		return fmt.Errorf("get record %d: %w", seq, err)
	}

	filePath, err := ChatPath(run, rec.Chat)
	if err != nil {
		return err
	}

	lineNum := rec.Line
	if lineNum < 1 {
		lineNum = 1
	}

	editor := os.Getenv("EDITOR")
	if editor == "" {
		editor = "less"
	}
	return openInEditor(editor, filePath, lineNum)
}

// editorArgs builds the argument list that jumps to lineNum in filePath.
func editorArgs(editor, filePath string, lineNum int) []string {
	switch {
	case strings.Contains(editor, "vim") || strings.Contains(editor, "nvim"):
		return []string{fmt.Sprintf("+%d", lineNum), filePath}
	case strings.Contains(editor, "code"):
		return []string{"--goto", filePath + ":" + strconv.Itoa(lineNum)}
	case strings.Contains(editor, "less"), strings.Contains(editor, "nano"):
		return []string{"+" + strconv.Itoa(lineNum), filePath}
	default:
		return []string{filePath}
	}
}

func openInEditor(editor, filePath string, lineNum int) error {
	cmd := exec.Command(editor, editorArgs(editor, filePath, lineNum)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}
