// Package history persists result envelopes to a local SQLite database so
// the UI can list and re-download past extractions. The core pipeline never
// reads from here; the store is append-only bookkeeping around it.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/logiparse/logiparse/internal/common"
	"github.com/logiparse/logiparse/internal/pipeline"
)

const schema = `
CREATE TABLE IF NOT EXISTS extractions (
	id          TEXT PRIMARY KEY,
	created_at  TEXT NOT NULL,
	source_type TEXT NOT NULL,
	strategy    TEXT NOT NULL,
	status      TEXT NOT NULL,
	envelope    TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_extractions_created_at ON extractions(created_at);
`

// Entry is one stored pipeline run.
type Entry struct {
	ID        uuid.UUID               `json:"id"`
	CreatedAt time.Time               `json:"created_at"`
	Envelope  pipeline.ResultEnvelope `json:"envelope"`
}

type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens (or creates) the history database with WAL and a busy timeout,
// applies the schema, and pings.
func Open(path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if path == ":memory:" {
		// Every pooled connection would otherwise see its own empty database.
		db.SetMaxOpenConns(1)
	}

	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 10000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply %q: %w", p, err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	logger.Debug("history.open", "path", path)
	return &Store{db: db, logger: logger}, nil
}

// OpenMemory opens an in-memory history, for tests and the CLI.
func OpenMemory(logger *slog.Logger) (*Store, error) {
	return Open(":memory:", logger)
}

func (s *Store) Close() error { return s.db.Close() }

// Save appends one envelope and returns its ID.
func (s *Store) Save(ctx context.Context, env pipeline.ResultEnvelope) (uuid.UUID, error) {
	id := uuid.New()
	payload, err := json.Marshal(env)
	if err != nil {
		return uuid.Nil, fmt.Errorf("marshal envelope: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO extractions (id, created_at, source_type, strategy, status, envelope)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		id.String(),
		env.Metadata.ProcessedAt.UTC().Format(time.RFC3339Nano),
		string(env.Metadata.SourceType),
		env.Metadata.Strategy,
		env.ValidationReport.Status,
		string(payload),
	)
	if err != nil {
		return uuid.Nil, common.NewAppError("HISTORY_SAVE", "insert extraction", errors.Join(common.ErrDatabase, err))
	}
	s.logger.Debug("history.save", "id", id, "status", env.ValidationReport.Status)
	return id, nil
}

// Get loads one entry by ID.
func (s *Store) Get(ctx context.Context, id uuid.UUID) (Entry, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, created_at, envelope FROM extractions WHERE id = ?`, id.String())
	entry, err := scanEntry(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, common.NewAppError("HISTORY_NOT_FOUND",
			fmt.Sprintf("extraction %s", id), common.ErrNotFound)
	}
	return entry, err
}

// Recent returns up to limit entries, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, created_at, envelope FROM extractions ORDER BY created_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, common.NewAppError("HISTORY_LIST", "query extractions", errors.Join(common.ErrDatabase, err))
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		entry, err := scanEntry(rows.Scan)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func scanEntry(scan func(dest ...any) error) (Entry, error) {
	var (
		idStr     string
		createdAt string
		payload   []byte
	)
	if err := scan(&idStr, &createdAt, &payload); err != nil {
		return Entry{}, err
	}

	id, err := uuid.Parse(idStr)
	if err != nil {
		return Entry{}, fmt.Errorf("parse id: %w", err)
	}
	ts, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return Entry{}, fmt.Errorf("parse created_at: %w", err)
	}
	var env pipeline.ResultEnvelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return Entry{}, fmt.Errorf("unmarshal envelope: %w", err)
	}
	return Entry{ID: id, CreatedAt: ts, Envelope: env}, nil
}
