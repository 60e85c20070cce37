package pipeline

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/HDumarBalmaceda/proyecto-informe/internal/category"
	"github.com/HDumarBalmaceda/proyecto-informe/internal/chat"
)

// Outcome records how a record's category was decided.
type Outcome string

const (
	OutcomeText           Outcome = "text"
	OutcomeTranscribed    Outcome = "transcribed"
	OutcomeOCR            Outcome = "ocr"
	OutcomeVisual         Outcome = "visual"
	OutcomeVisualNone     Outcome = "visual_none"
	OutcomeEmptyText      Outcome = "empty_text"
	OutcomeResolutionMiss Outcome = "resolution_miss"
	OutcomeImageNotFound  Outcome = "image_not_found"
	OutcomeServiceFailure Outcome = "service_failure"
)

// Record is one classified event. Date, Month, Year and Category feed the
// report; the rest is kept for diagnostics and the run history.
type Record struct {
	Date     time.Time
	Month    time.Month
	Year     int
	Category category.Category

	Source    string // chat file name
	Line      int
	Kind      chat.Kind
	Outcome   Outcome
	MediaPath string
	Text      string // text that was classified, if any
}

// Stats summarises a run.
type Stats struct {
	Chats       int
	Events      map[chat.Kind]int
	Outcomes    map[Outcome]int
	CacheHits   int
	CacheMisses int
}

func newStats() Stats {
	return Stats{
		Events:   make(map[chat.Kind]int),
		Outcomes: make(map[Outcome]int),
	}
}

func (s Stats) Records() int {
	n := 0
	for _, c := range s.Outcomes {
		n += c
	}
	return n
}

func (s Stats) String() string {
	outcomes := make([]string, 0, len(s.Outcomes))
	for o, n := range s.Outcomes {
		outcomes = append(outcomes, fmt.Sprintf("%s=%d", o, n))
	}
	sort.Strings(outcomes)
	return fmt.Sprintf("chats=%d text=%d audio=%d image=%d cache_hits=%d cache_misses=%d %s",
		s.Chats, s.Events[chat.KindText], s.Events[chat.KindAudio], s.Events[chat.KindImage],
		s.CacheHits, s.CacheMisses, strings.Join(outcomes, " "))
}

// CategoryCount is one line of a debug summary.
type CategoryCount struct {
	Category category.Category
	Count    int
}

// CountByCategory returns per-category totals, largest first, ties by name.
func CountByCategory(records []Record) []CategoryCount {
	counts := make(map[category.Category]int)
	for _, r := range records {
		counts[r.Category]++
	}
	out := make([]CategoryCount, 0, len(counts))
	for c, n := range counts {
		out = append(out, CategoryCount{Category: c, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Category < out[j].Category
	})
	return out
}
