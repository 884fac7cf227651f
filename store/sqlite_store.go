package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/tnicklin/time_sync/logger"
)

var (
	_ OffsetStore     = (*SQLiteStore)(nil)
	_ SessionRecorder = (*SQLiteStore)(nil)
)

const (
	offsetKey       = "virtual_offset"
	// fixed width so ORDER BY on the text column sorts chronologically
	timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"
)

//go:embed schema/migrations/*.sql
var migrations embed.FS

// SQLiteStore keeps the offset in a settings table and the session history
// alongside it.
type SQLiteStore struct {
	mu     sync.RWMutex
	db     *sql.DB
	path   string
	logger logger.Logger
}

type Params struct {
	Path   string
	Logger logger.Logger
}

func NewSQLiteStore(p Params) *SQLiteStore {
	return &SQLiteStore{
		path:   p.Path,
		logger: logger.OrNop(p.Logger),
	}
}

func (s *SQLiteStore) Open(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db != nil {
		return nil
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	database, err := sql.Open("sqlite3", sqliteFileDSN(s.path))
	if err != nil {
		return err
	}
	database.SetMaxOpenConns(1)
	database.SetMaxIdleConns(1)

	if err = database.PingContext(ctx); err != nil {
		_ = database.Close()
		return err
	}

	s.db = database
	if err := s.applyMigrations(ctx); err != nil {
		_ = database.Close()
		s.db = nil
		return err
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *SQLiteStore) ReadOffset(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return 0, errors.New("store is not open")
	}

	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, offsetKey).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, err
	}

	text := strings.TrimSpace(raw)
	v, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return 0, &ParseError{Source: s.path + "#" + offsetKey, Raw: text, Err: err}
	}
	return v, nil
}

func (s *SQLiteStore) WriteOffset(ctx context.Context, seconds int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return &WriteError{Source: s.path, Err: errors.New("store is not open")}
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO settings (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		offsetKey, strconv.FormatInt(seconds, 10))
	if err != nil {
		s.logger.ErrorW("failed to write offset", "error", err, "path", s.path)
		return &WriteError{Source: s.path, Err: err}
	}
	return nil
}

func (s *SQLiteStore) RecordSession(ctx context.Context, rec SessionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return errors.New("store is not open")
	}

	s.logger.DebugW("recording sync session",
		"id", rec.ID,
		"server", rec.Server,
		"outcome", rec.Outcome,
		"stage", rec.Stage,
	)

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sync_sessions
		   (id, server, outcome, error, stage, attempts, simulated, started_at, finished_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Server, rec.Outcome, rec.Error, rec.Stage, rec.Attempts,
		boolToInt(rec.Simulated),
		rec.StartedAt.UTC().Format(timestampLayout),
		rec.FinishedAt.UTC().Format(timestampLayout),
	)
	return err
}

// ListSessions returns the most recent sessions first. A limit <= 0 returns all.
func (s *SQLiteStore) ListSessions(ctx context.Context, limit int) ([]SessionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, errors.New("store is not open")
	}
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, server, outcome, error, stage, attempts, simulated, started_at, finished_at
		   FROM sync_sessions
		  ORDER BY started_at DESC
		  LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SessionRecord
	for rows.Next() {
		var (
			rec               SessionRecord
			simulated         int
			started, finished string
		)
		if err := rows.Scan(&rec.ID, &rec.Server, &rec.Outcome, &rec.Error, &rec.Stage,
			&rec.Attempts, &simulated, &started, &finished); err != nil {
			return nil, err
		}
		rec.Simulated = simulated != 0
		if rec.StartedAt, err = time.Parse(timestampLayout, started); err != nil {
			return nil, fmt.Errorf("session %s started_at: %w", rec.ID, err)
		}
		if rec.FinishedAt, err = time.Parse(timestampLayout, finished); err != nil {
			return nil, fmt.Errorf("session %s finished_at: %w", rec.ID, err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) applyMigrations(ctx context.Context) error {
	if s.db == nil {
		return errors.New("store is not open")
	}

	files, err := fs.Glob(migrations, "schema/migrations/*.sql")
	if err != nil {
		return err
	}
	sort.Strings(files)

	for _, name := range files {
		content, err := migrations.ReadFile(name)
		if err != nil {
			return err
		}
		sqlText := strings.TrimSpace(string(content))
		if sqlText == "" {
			continue
		}
		if _, err := s.db.ExecContext(ctx, sqlText); err != nil {
			return fmt.Errorf("migration %s: %w", name, err)
		}
	}
	return nil
}

func sqliteFileDSN(path string) string {
	return fmt.Sprintf("file:%s?_busy_timeout=5000", path)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
