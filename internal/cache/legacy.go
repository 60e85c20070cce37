package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/HDumarBalmaceda/proyecto-informe/internal/media"
)

// ImportStats counts what ImportLegacy did.
type ImportStats struct {
	Imported int
	Skipped  int // key already cached
	Invalid  int // unreadable or malformed file
}

type legacyEntry struct {
	Text *string `json:"text"`
}

// ImportLegacy loads an older transcripts directory into s: "<identity>.json"
// files holding {"text": "..."} and plain "<identity>.txt" files. Existing
// keys are left untouched.
func ImportLegacy(ctx context.Context, s Store, dir string) (ImportStats, error) {
	var stats ImportStats

	entries, err := os.ReadDir(dir)
	if err != nil {
		return stats, fmt.Errorf("read legacy dir: %w", err)
	}

	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext != ".json" && ext != ".txt" {
			continue
		}

		text, ok := readLegacy(filepath.Join(dir, e.Name()), ext)
		if !ok {
			stats.Invalid++
			continue
		}

		key := media.Identity(e.Name())
		if _, found, err := s.Get(ctx, key); err != nil {
			return stats, fmt.Errorf("lookup %s: %w", key, err)
		} else if found {
			stats.Skipped++
			continue
		}

		if err := s.Put(ctx, key, legacyKind(key), text); err != nil {
			return stats, fmt.Errorf("store %s: %w", key, err)
		}
		stats.Imported++
	}
	return stats, nil
}

func readLegacy(path, ext string) (string, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", false
	}
	if ext == ".txt" {
		return strings.TrimSpace(string(data)), true
	}

	var entry legacyEntry
	if err := json.Unmarshal(data, &entry); err != nil || entry.Text == nil {
		return "", false
	}
	return strings.TrimSpace(*entry.Text), true
}

func legacyKind(key string) string {
	switch {
	case strings.HasPrefix(key, "PTT-"), strings.HasPrefix(key, "AUD-"):
		return "audio"
	case strings.HasPrefix(key, "IMG-"):
		return "image"
	default:
		return ""
	}
}
