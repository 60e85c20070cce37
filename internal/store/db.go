// Package store is the SQLite database behind the transcription cache and
// the run history.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a transcript, run or record does not exist.
var ErrNotFound = errors.New("not found")

const schema = `
PRAGMA journal_mode = WAL;
PRAGMA synchronous = NORMAL;
PRAGMA busy_timeout = 5000;

CREATE TABLE IF NOT EXISTS transcripts (
    media_key  TEXT PRIMARY KEY,
    kind       TEXT NOT NULL DEFAULT '',
    text       TEXT NOT NULL,
    created_at TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS runs (
    run_id       TEXT PRIMARY KEY,
    started_at   TEXT NOT NULL,
    source       TEXT NOT NULL DEFAULT '',
    output       TEXT NOT NULL DEFAULT '',
    record_count INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS records (
    run_id     TEXT NOT NULL,
    seq        INTEGER NOT NULL,
    chat       TEXT NOT NULL,
    line       INTEGER NOT NULL DEFAULT 0,
    ts         TEXT NOT NULL DEFAULT '',
    kind       TEXT NOT NULL,
    year       INTEGER NOT NULL,
    month      INTEGER NOT NULL,
    category   TEXT NOT NULL,
    outcome    TEXT NOT NULL DEFAULT '',
    media_path TEXT NOT NULL DEFAULT '',
    text       TEXT NOT NULL DEFAULT '',
    PRIMARY KEY (run_id, seq)
);

CREATE INDEX IF NOT EXISTS records_category ON records (run_id, category);

CREATE VIRTUAL TABLE IF NOT EXISTS records_fts USING fts5(
    text,
    content=records,
    content_rowid=rowid,
    tokenize='unicode61 remove_diacritics 2'
);

CREATE TRIGGER IF NOT EXISTS records_ai AFTER INSERT ON records BEGIN
    INSERT INTO records_fts(rowid, text) VALUES (new.rowid, new.text);
END;

CREATE TRIGGER IF NOT EXISTS records_ad AFTER DELETE ON records BEGIN
    INSERT INTO records_fts(records_fts, rowid, text) VALUES('delete', old.rowid, old.text);
END;
`

// schemaVersion is bumped when stored records change shape; older run
// history is dropped, transcripts are kept.
const schemaVersion = "1"

const timeLayout = time.RFC3339

type DB struct {
	db *sql.DB
}

func OpenDB(dbPath string) (*DB, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// one writer; keeps WAL pragmas on a single connection
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	db.Exec("CREATE TABLE IF NOT EXISTS meta (key TEXT PRIMARY KEY, value TEXT)")
	d := &DB{db: db}
	d.migrateSchemaVersion()

	return d, nil
}

func (d *DB) migrateSchemaVersion() {
	var ver string
	err := d.db.QueryRow("SELECT value FROM meta WHERE key = 'schema_version'").Scan(&ver)
	if err != nil || ver != schemaVersion {
		d.db.Exec("DELETE FROM records")
		d.db.Exec("DELETE FROM runs")
		d.db.Exec("INSERT OR REPLACE INTO meta (key, value) VALUES ('schema_version', ?)", schemaVersion)
	}
}

func (d *DB) Close() error {
	return d.db.Close()
}

func (d *DB) Raw() *sql.DB {
	return d.db
}

// Transcript is one cached extraction result.
type Transcript struct {
	Key       string
	Kind      string
	Text      string
	CreatedAt time.Time
}

func (d *DB) GetTranscript(key string) (*Transcript, error) {
	var t Transcript
	var created string
	err := d.db.QueryRow(
		"SELECT media_key, kind, text, created_at FROM transcripts WHERE media_key = ?",
		key,
	).Scan(&t.Key, &t.Kind, &t.Text, &created)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	t.CreatedAt, _ = time.Parse(timeLayout, created)
	return &t, nil
}

// PutTranscript stores text under key, replacing an earlier value. The write
// is a single transaction so a crash leaves earlier rows intact.
func (d *DB) PutTranscript(t Transcript) error {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}
	tx, err := d.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT OR REPLACE INTO transcripts (media_key, kind, text, created_at)
		 VALUES (?, ?, ?, ?)`,
		t.Key, t.Kind, t.Text, t.CreatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return err
	}
	return tx.Commit()
}

func (d *DB) DeleteTranscript(key string) error {
	res, err := d.db.Exec("DELETE FROM transcripts WHERE media_key = ?", key)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (d *DB) TranscriptCount() (int, error) {
	var n int
	err := d.db.QueryRow("SELECT COUNT(*) FROM transcripts").Scan(&n)
	return n, err
}

// TranscriptBytes is the total size of cached text.
func (d *DB) TranscriptBytes() (int64, error) {
	var n int64
	err := d.db.QueryRow("SELECT COALESCE(SUM(LENGTH(CAST(text AS BLOB))), 0) FROM transcripts").Scan(&n)
	return n, err
}

func (d *DB) RunCount() (int, error) {
	var n int
	err := d.db.QueryRow("SELECT COUNT(*) FROM runs").Scan(&n)
	return n, err
}

func (d *DB) RecordCount() (int, error) {
	var n int
	err := d.db.QueryRow("SELECT COUNT(*) FROM records").Scan(&n)
	return n, err
}
