package index

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/coolbeans/ddiharvest/pkg/cmm"
	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS studies (
	id            TEXT NOT NULL,
	language      TEXT NOT NULL,
	repository    TEXT NOT NULL,
	study_number  TEXT NOT NULL,
	last_modified TEXT,
	document      TEXT NOT NULL,
	PRIMARY KEY (language, id)
);
CREATE INDEX IF NOT EXISTS idx_studies_repository ON studies (language, repository);
`

// Store is the SQLite-backed Sink.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens or creates the index database at path.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("ensure data dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if path == ":memory:" {
		// Every connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec(`PRAGMA journal_mode = WAL;`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pragma journal_mode: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{db: db, path: path}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database location.
func (s *Store) Path() string {
	return s.path
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Upsert implements Sink.
func (s *Store) Upsert(ctx context.Context, language string, records []cmm.StudyOfLanguage) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin upsert: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO studies (id, language, repository, study_number, last_modified, document)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (language, id) DO UPDATE SET
			repository = excluded.repository,
			study_number = excluded.study_number,
			last_modified = excluded.last_modified,
			document = excluded.document`)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, record := range records {
		document, err := json.Marshal(record)
		if err != nil {
			return fmt.Errorf("encode study %s: %w", record.ID, err)
		}
		if _, err := stmt.ExecContext(ctx, record.ID, language, record.Code, record.StudyNumber, record.LastModified, string(document)); err != nil {
			return fmt.Errorf("upsert study %s: %w", record.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit upsert: %w", err)
	}
	return nil
}

// Delete implements Sink.
func (s *Store) Delete(ctx context.Context, language string, ids []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete: %w", err)
	}
	defer tx.Rollback()

	for _, id := range ids {
		if _, err := tx.ExecContext(ctx, `DELETE FROM studies WHERE language = ? AND id = ?`, language, id); err != nil {
			return fmt.Errorf("delete study %s: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete: %w", err)
	}
	return nil
}

// Existing implements Sink.
func (s *Store) Existing(ctx context.Context, language, repositoryCode string) (map[string]cmm.StudyOfLanguage, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT document FROM studies WHERE language = ? AND repository = ?`, language, repositoryCode)
	if err != nil {
		return nil, fmt.Errorf("query studies: %w", err)
	}
	defer rows.Close()

	records := make(map[string]cmm.StudyOfLanguage)
	for rows.Next() {
		var document string
		if err := rows.Scan(&document); err != nil {
			return nil, fmt.Errorf("scan study: %w", err)
		}
		var record cmm.StudyOfLanguage
		if err := json.Unmarshal([]byte(document), &record); err != nil {
			return nil, fmt.Errorf("decode study: %w", err)
		}
		records[record.ID] = record
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate studies: %w", err)
	}
	return records, nil
}

// Get implements Sink.
func (s *Store) Get(ctx context.Context, language, id string) (cmm.StudyOfLanguage, error) {
	var document string
	err := s.db.QueryRowContext(ctx, `SELECT document FROM studies WHERE language = ? AND id = ?`, language, id).Scan(&document)
	if errors.Is(err, sql.ErrNoRows) {
		return cmm.StudyOfLanguage{}, ErrNotFound
	}
	if err != nil {
		return cmm.StudyOfLanguage{}, fmt.Errorf("get study %s: %w", id, err)
	}

	var record cmm.StudyOfLanguage
	if err := json.Unmarshal([]byte(document), &record); err != nil {
		return cmm.StudyOfLanguage{}, fmt.Errorf("decode study %s: %w", id, err)
	}
	return record, nil
}

// Count returns the number of records of one language.
func (s *Store) Count(ctx context.Context, language string) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM studies WHERE language = ?`, language).Scan(&count); err != nil {
		return 0, fmt.Errorf("count studies: %w", err)
	}
	return count, nil
}
