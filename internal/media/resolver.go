// Package media maps attachment events to files on disk.
package media

import (
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/HDumarBalmaceda/proyecto-informe/internal/chat"
	"github.com/HDumarBalmaceda/proyecto-informe/internal/scan"
)

const dayLayout = "2006-01-02"

// "PTT-20250904-WA0008.opus", "IMG-20250904-WA0001.jpg", "audio_20250904_101500.m4a"
var embeddedDateRegex = regexp.MustCompile(`\d{8}`)

// Reference is the outcome of resolving one attachment. Found is false when
// the file is missing or the day's pool is exhausted.
type Reference struct {
	LogicalDate time.Time
	Path        string
	Found       bool
}

// Identity returns the stable key for a media file: its base name without
// extension.
func Identity(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// DateFromName decodes the first valid YYYYMMDD date embedded in a media
// file name.
func DateFromName(name string, loc *time.Location) (time.Time, bool) {
	for _, m := range embeddedDateRegex.FindAllString(filepath.Base(name), -1) {
		if t, err := time.ParseInLocation("20060102", m, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

type Options struct {
	// Root is joined with attachment names missing from the index.
	Root string

	// Location used for modification-time dates (defaults to time.Local).
	Location *time.Location
}

// Resolver owns the scanned media index and the per-day FIFO pools used for
// marker-only attachments. Pools are built once and drained by Resolve.
type Resolver struct {
	root   string
	loc    *time.Location
	byName map[string]string
	pools  map[scan.MediaKind]map[string][]string
	dayOf  map[string]string
}

// NewResolver indexes files. Each day's pool is sorted by file name.
func NewResolver(files []scan.FileInfo, opts Options) *Resolver {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	r := &Resolver{
		root:   opts.Root,
		loc:    opts.Location,
		byName: make(map[string]string),
		pools:  make(map[scan.MediaKind]map[string][]string),
		dayOf:  make(map[string]string),
	}

	for _, f := range files {
		kind := f.Kind
		if kind == "" {
			kind = scan.KindOf(f.Path)
		}
		if kind == "" {
			continue
		}

		name := strings.ToLower(filepath.Base(f.Path))
		if _, dup := r.byName[name]; !dup {
			r.byName[name] = f.Path
		}

		date, ok := DateFromName(f.Path, r.loc)
		if !ok {
			date = f.ModTime.In(r.loc)
		}
		day := date.Format(dayLayout)

		if r.pools[kind] == nil {
			r.pools[kind] = make(map[string][]string)
		}
		r.pools[kind][day] = append(r.pools[kind][day], f.Path)
		r.dayOf[f.Path] = day
	}

	for _, days := range r.pools {
		for _, paths := range days {
			sort.Slice(paths, func(i, j int) bool {
				return filepath.Base(paths[i]) < filepath.Base(paths[j])
			})
		}
	}
	return r
}

// Resolve maps an audio or image event to a media file. Text events are
// never found.
func (r *Resolver) Resolve(ev chat.Event) Reference {
	kind := kindOf(ev.Kind)
	if kind == "" {
		return Reference{LogicalDate: ev.Date()}
	}

	if ev.Dialect == chat.DialectFilename && ev.Attachment != "" {
		return r.resolveByName(kind, ev)
	}
	return r.pop(kind, ev.Date())
}

func (r *Resolver) resolveByName(kind scan.MediaKind, ev chat.Event) Reference {
	date, ok := DateFromName(ev.Attachment, r.loc)
	if !ok {
		date = ev.Date()
	}
	ref := Reference{LogicalDate: date}

	path, ok := r.byName[strings.ToLower(filepath.Base(ev.Attachment))]
	if !ok {
		if r.root == "" {
			return ref
		}
		path = filepath.Join(r.root, ev.Attachment)
	}
	r.remove(kind, path)

	if !exists(path) {
		return ref
	}
	ref.Path = path
	ref.Found = true
	return ref
}

// pop takes the earliest remaining file for the day. A file deleted since the
// scan is consumed and reported as not found.
func (r *Resolver) pop(kind scan.MediaKind, date time.Time) Reference {
	ref := Reference{LogicalDate: date}
	day := date.Format(dayLayout)

	pool := r.pools[kind][day]
	if len(pool) == 0 {
		return ref
	}
	path := pool[0]
	r.pools[kind][day] = pool[1:]
	delete(r.dayOf, path)

	if !exists(path) {
		return ref
	}
	ref.Path = path
	ref.Found = true
	return ref
}

func (r *Resolver) remove(kind scan.MediaKind, path string) {
	day, ok := r.dayOf[path]
	if !ok {
		return
	}
	delete(r.dayOf, path)

	pool := r.pools[kind][day]
	for i, p := range pool {
		if p == path {
			r.pools[kind][day] = append(pool[:i:i], pool[i+1:]...)
			return
		}
	}
}

// Remaining returns how many unconsumed files are left per kind.
func (r *Resolver) Remaining() map[scan.MediaKind]int {
	out := make(map[scan.MediaKind]int)
	for kind, days := range r.pools {
		for _, paths := range days {
			out[kind] += len(paths)
		}
	}
	return out
}

// Indexed returns the number of media files known to the resolver.
func (r *Resolver) Indexed() int {
	return len(r.byName)
}

func kindOf(k chat.Kind) scan.MediaKind {
	switch k {
	case chat.KindAudio:
		return scan.MediaAudio
	case chat.KindImage:
		return scan.MediaImage
	default:
		return ""
	}
}

func exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
