package scan

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// MediaKind separates the two attachment families.
type MediaKind string

const (
	MediaAudio MediaKind = "audio"
	MediaImage MediaKind = "image"
)

var audioExts = map[string]bool{".opus": true, ".ogg": true, ".mp3": true, ".m4a": true, ".wav": true}
var imageExts = map[string]bool{".jpg": true, ".jpeg": true, ".png": true}

type FileInfo struct {
	Path    string
	Kind    MediaKind // empty for chat transcripts
	ModTime time.Time
	Size    int64
}

// KindOf returns the media kind for a file name, or "" when the extension is
// not a supported media type.
func KindOf(name string) MediaKind {
	ext := strings.ToLower(filepath.Ext(name))
	switch {
	case audioExts[ext]:
		return MediaAudio
	case imageExts[ext]:
		return MediaImage
	default:
		return ""
	}
}

// ScanChats lists the .txt transcripts directly inside dir, sorted by name.
func ScanChats(dir string) ([]FileInfo, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var files []FileInfo
	for _, e := range entries {
		if e.IsDir() || strings.ToLower(filepath.Ext(e.Name())) != ".txt" {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		files = append(files, FileInfo{
			Path:    filepath.Join(dir, e.Name()),
			ModTime: info.ModTime(),
			Size:    info.Size(),
		})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, nil
}

// ScanMedia walks root recursively and returns every audio and image file.
func ScanMedia(root string) ([]FileInfo, error) {
	var files []FileInfo
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // skip unreadable dirs
		}
		if info.IsDir() {
			return nil
		}
		kind := KindOf(path)
		if kind == "" {
			return nil
		}
		files = append(files, FileInfo{
			Path:    path,
			Kind:    kind,
			ModTime: info.ModTime(),
			Size:    info.Size(),
		})
		return nil
	})
	return files, err
}

// Count returns how many files of each kind are in files.
func Count(files []FileInfo) map[MediaKind]int {
	counts := make(map[MediaKind]int)
	for _, f := range files {
		counts[f.Kind]++
	}
	return counts
}
