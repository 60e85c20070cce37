package search

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/HDumarBalmaceda/proyecto-informe/internal/store"
)

type Result struct {
	store.RecordRow
	Snippet string
}

type Options struct {
	RunID    string // required
	Query    string // "" = no text filter
	Category string // "" = all, case-insensitive exact name
	Month    int    // 0 = all
	Chat     string // "" = all, substring of the chat file name
	Outcome  string // "" = all
	Limit    int
}

// needsLike reports whether query holds characters FTS5 would read as syntax.
func needsLike(s string) bool {
	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && !unicode.IsSpace(r) {
			return true
		}
	}
	return false
}

// makeSnippet extracts a snippet around the first occurrence of query in text.
func makeSnippet(text, query string, contextChars int) string {
	lower := strings.ToLower(text)
	qLower := strings.ToLower(query)
	idx := strings.Index(lower, qLower)
	if idx < 0 || query == "" || len(lower) != len(text) {
		// no match, return head
		if len([]rune(text)) > contextChars*2 {
			return string([]rune(text)[:contextChars*2]) + "..."
		}
		return text
	}
	runes := []rune(text)
	qRunes := []rune(query)
	runePos := len([]rune(text[:idx]))
	start := runePos - contextChars
	if start < 0 {
		start = 0
	}
	end := runePos + len(qRunes) + contextChars
	if end > len(runes) {
		end = len(runes)
	}
	prefix := ""
	suffix := ""
	if start > 0 {
		prefix = "..."
	}
	if end < len(runes) {
		suffix = "..."
	}
	snippet := string(runes[start:runePos]) +
		">>>" + string(runes[runePos:runePos+len(qRunes)]) + "<<<" +
		string(runes[runePos+len(qRunes):end])
	return prefix + snippet + suffix
}

// Search returns the records of one run that match opts, in processing order
// (or by relevance when a full-text query is given).
func Search(db *store.DB, opts Options) ([]Result, error) {
	if opts.RunID == "" {
		return nil, fmt.Errorf("search: run id required")
	}
	if opts.Limit <= 0 {
		opts.Limit = 100
	}

	switch {
	case opts.Query == "":
		return searchPlain(db, opts)
	case needsLike(opts.Query):
		return searchLike(db, opts)
	default:
		return searchFTS(db, opts)
	}
}

const recordColumns = `r.run_id, r.seq, r.chat, r.line, r.ts, r.kind, r.year, r.month,
	r.category, r.outcome, r.media_path, r.text`

// filters returns the shared WHERE conditions.
func filters(opts Options) ([]string, []interface{}) {
	conditions := []string{"r.run_id = ?"}
	args := []interface{}{opts.RunID}

	if opts.Category != "" {
		conditions = append(conditions, "r.category = ? COLLATE NOCASE")
		args = append(args, opts.Category)
	}
	if opts.Month != 0 {
		conditions = append(conditions, "r.month = ?")
		args = append(args, opts.Month)
	}
	if opts.Chat != "" {
		conditions = append(conditions, "r.chat LIKE ?")
		args = append(args, "%"+opts.Chat+"%")
	}
	if opts.Outcome != "" {
		conditions = append(conditions, "r.outcome = ?")
		args = append(args, opts.Outcome)
	}
	return conditions, args
}

func searchPlain(db *store.DB, opts Options) ([]Result, error) {
	conditions, args := filters(opts)
	query := fmt.Sprintf(`
		SELECT %s
		FROM records r
		WHERE %s
		ORDER BY r.seq
		LIMIT ?
	`, recordColumns, strings.Join(conditions, " AND "))
	args = append(args, opts.Limit)

	return run(db, query, args, opts.Query)
}

func searchFTS(db *store.DB, opts Options) ([]Result, error) {
	conditions, args := filters(opts)
	conditions = append([]string{"records_fts MATCH ?"}, conditions...)
	args = append([]interface{}{opts.Query}, args...)

	query := fmt.Sprintf(`
		SELECT %s
		FROM records_fts
		JOIN records r ON records_fts.rowid = r.rowid
		WHERE %s
		ORDER BY bm25(records_fts)
		LIMIT ?
	`, recordColumns, strings.Join(conditions, " AND "))
	args = append(args, opts.Limit)

	return run(db, query, args, opts.Query)
}

func searchLike(db *store.DB, opts Options) ([]Result, error) {
	conditions, args := filters(opts)
	conditions = append(conditions, "r.text LIKE ?")
	args = append(args, "%"+opts.Query+"%")

	query := fmt.Sprintf(`
		SELECT %s
		FROM records r
		WHERE %s
		ORDER BY r.seq
		LIMIT ?
	`, recordColumns, strings.Join(conditions, " AND "))
	args = append(args, opts.Limit)

	return run(db, query, args, opts.Query)
}

func run(db *store.DB, query string, args []interface{}, text string) ([]Result, error) {
	rows, err := db.Raw().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("search query: %w", err)
	}
	recs, err := store.ScanRecords(rows)
	if err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(recs))
	for _, r := range recs {
		results = append(results, Result{RecordRow: r, Snippet: makeSnippet(r.Text, firstTerm(text), 30)})
	}
	return results, nil
}

func firstTerm(q string) string {
	fields := strings.Fields(q)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
