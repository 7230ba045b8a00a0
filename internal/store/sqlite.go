package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/aatumaykin/dmbot/internal/logger"

	// Registers the pure-Go "sqlite" driver.
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Options configures a SQLite store.
type Options struct {
	Path          string
	BusyTimeoutMS int
	// Location is the zone action times are interpreted in.
	Location *time.Location
	// Now overrides the clock, for tests.
	Now func() time.Time
}

// SQLite implements Repository on a single SQLite database file.
type SQLite struct {
	db     *sql.DB
	loc    *time.Location
	now    func() time.Time
	logger *logger.Logger
}

// Open opens (or creates) the database at opts.Path, applies pragmas and
// runs pending migrations.
func Open(ctx context.Context, opts Options, log *logger.Logger) (*SQLite, error) {
	if opts.Path == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	if dir := filepath.Dir(opts.Path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create storage directory %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite", opts.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := applyPragmas(ctx, db, opts.BusyTimeoutMS); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	s := New(db, opts, log)
	if err := s.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	log.Info("storage opened", logger.Field{Key: "path", Value: opts.Path})
	return s, nil
}

// New wraps an already opened database. It does not run migrations.
func New(db *sql.DB, opts Options, log *logger.Logger) *SQLite {
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &SQLite{db: db, loc: loc, now: now, logger: log}
}

func applyPragmas(ctx context.Context, db *sql.DB, busyTimeoutMS int) error {
	if busyTimeoutMS <= 0 {
		busyTimeoutMS = 5000
	}
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		fmt.Sprintf("PRAGMA busy_timeout=%d;", busyTimeoutMS),
		"PRAGMA foreign_keys=ON;",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

// Migrate applies every embedded migration not yet recorded in
// schema_migrations, each in its own transaction.
func (s *SQLite) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		name       TEXT PRIMARY KEY,
		applied_at INTEGER NOT NULL
	)`); err != nil {
		return fmt.Errorf("failed to create schema_migrations: %w", err)
	}

	entries, err := fs.ReadDir(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to read migrations: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}

		var applied int
		if err := s.db.QueryRowContext(ctx,
			`SELECT COUNT(1) FROM schema_migrations WHERE name = ?`, e.Name()).Scan(&applied); err != nil {
			return fmt.Errorf("failed to check migration %s: %w", e.Name(), err)
		}
		if applied > 0 {
			continue
		}

		body, err := fs.ReadFile(migrationsFS, "migrations/"+e.Name())
		if err != nil {
			return fmt.Errorf("failed to read migration %s: %w", e.Name(), err)
		}

		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin migration %s: %w", e.Name(), err)
		}
		if _, err := tx.ExecContext(ctx, string(body)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to apply migration %s: %w", e.Name(), err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO schema_migrations (name, applied_at) VALUES (?, ?)`,
			e.Name(), s.now().UTC().Unix()); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to record migration %s: %w", e.Name(), err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %s: %w", e.Name(), err)
		}

		s.logger.Debug("migration applied", logger.Field{Key: "name", Value: e.Name()})
	}

	return nil
}

// Ping checks that the database is reachable.
func (s *SQLite) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Location returns the zone action times are interpreted in.
func (s *SQLite) Location() *time.Location {
	return s.loc
}

// Close releases the database.
func (s *SQLite) Close() error {
	return s.db.Close()
}

func unix(t time.Time) int64 {
	return t.UTC().Unix()
}

func fromUnix(v int64) time.Time {
	return time.Unix(v, 0).UTC()
}

func nullTime(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := fromUnix(v.Int64)
	return &t
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
