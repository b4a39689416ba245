package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/ruteri/split-session-service/interfaces"
	"github.com/ruteri/split-session-service/storage/migrations"
	_ "modernc.org/sqlite"
)

// Dialect selects the SQL flavour of a SQLStore.
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// SQLStore persists session snapshots in the split_sessions table of a
// PostgreSQL or SQLite database. The snapshot is stored as a JSON document
// next to its last_update column.
type SQLStore struct {
	db          *sql.DB
	dialect     Dialect
	log         *slog.Logger
	locationURI string

	insertQuery string
	selectQuery string
	updateQuery string
	deleteQuery string
}

// NewSQLStore wraps an open database handle. Migrations are not applied; use
// OpenPostgresStore or OpenSQLiteStore for a ready-to-use store.
func NewSQLStore(db *sql.DB, dialect Dialect, locationURI string, log *slog.Logger) *SQLStore {
	s := &SQLStore{
		db:          db,
		dialect:     dialect,
		log:         log,
		locationURI: locationURI,
	}

	s.insertQuery = s.rebind(`INSERT INTO split_sessions (id, data, last_update) VALUES (?, ?, ?) ON CONFLICT (id) DO NOTHING`)
	s.selectQuery = s.rebind(`SELECT data FROM split_sessions WHERE id = ?`)
	s.updateQuery = s.rebind(`UPDATE split_sessions SET data = ?, last_update = ? WHERE id = ?`)
	s.deleteQuery = s.rebind(`DELETE FROM split_sessions WHERE id = ?`)
	return s
}

// OpenPostgresStore connects to PostgreSQL through pgx and applies the embedded migrations.
func OpenPostgresStore(ctx context.Context, dsn string, log *slog.Logger) (*SQLStore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres db: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: ping postgres db: %v", interfaces.ErrBackendUnavailable, err)
	}
	if err := runMigrations(ctx, db, "pgx", migrations.Postgres, "postgres"); err != nil {
		_ = db.Close()
		return nil, err
	}

	return NewSQLStore(db, DialectPostgres, redactDSN(dsn), log), nil
}

// OpenSQLiteStore opens (creating if needed) a SQLite database file and applies the embedded migrations.
func OpenSQLiteStore(ctx context.Context, path string, log *slog.Logger) (*SQLStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	dsn := "file:" + cleanPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// a single writer avoids SQLITE_BUSY between pooled connections
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := runMigrations(ctx, db, "sqlite3", migrations.SQLite, "sqlite"); err != nil {
		_ = db.Close()
		return nil, err
	}

	return NewSQLStore(db, DialectSQLite, "sqlite://"+cleanPath, log), nil
}

func runMigrations(ctx context.Context, db *sql.DB, gooseDialect string, fsys embed.FS, dir string) error {
	goose.SetBaseFS(fsys)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect(gooseDialect); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	if err := gooseUpContext(ctx, db, dir); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

// Create inserts a new snapshot row.
func (s *SQLStore) Create(ctx context.Context, snapshot *interfaces.SessionSnapshot) error {
	data, err := encodeSnapshot(snapshot)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, s.insertQuery, string(snapshot.ID), string(data), snapshot.LastUpdate)
	if err != nil {
		return fmt.Errorf("%w: insert session: %v", interfaces.ErrBackendUnavailable, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	if n == 0 {
		return interfaces.ErrSessionExists
	}
	return nil
}

// Fetch loads a snapshot row.
func (s *SQLStore) Fetch(ctx context.Context, id interfaces.SessionID) (*interfaces.SessionSnapshot, error) {
	var data string
	err := s.db.QueryRowContext(ctx, s.selectQuery, string(id)).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, interfaces.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: select session: %v", interfaces.ErrBackendUnavailable, err)
	}
	return decodeSnapshot(id, []byte(data))
}

// Update replaces an existing snapshot row.
func (s *SQLStore) Update(ctx context.Context, snapshot *interfaces.SessionSnapshot) error {
	data, err := encodeSnapshot(snapshot)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, s.updateQuery, string(data), snapshot.LastUpdate, string(snapshot.ID))
	if err != nil {
		return fmt.Errorf("%w: update session: %v", interfaces.ErrBackendUnavailable, err)
	}
	return requireRow(res, "update session")
}

// Delete removes a snapshot row.
func (s *SQLStore) Delete(ctx context.Context, id interfaces.SessionID) error {
	res, err := s.db.ExecContext(ctx, s.deleteQuery, string(id))
	if err != nil {
		return fmt.Errorf("%w: delete session: %v", interfaces.ErrBackendUnavailable, err)
	}
	return requireRow(res, "delete session")
}

// Available pings the database.
func (s *SQLStore) Available(ctx context.Context) bool {
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := s.db.PingContext(pingCtx); err != nil {
		s.log.Warn("SQL store unavailable",
			slog.String("dialect", string(s.dialect)),
			"err", err)
		return false
	}
	return true
}

// Name returns a unique identifier for this store.
func (s *SQLStore) Name() string {
	return fmt.Sprintf("sql-%s", s.dialect)
}

// LocationURI returns the URI that identifies this store.
func (s *SQLStore) LocationURI() string {
	return s.locationURI
}

// Close closes the database handle.
func (s *SQLStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// rebind rewrites ? placeholders to $n for PostgreSQL.
func (s *SQLStore) rebind(query string) string {
	if s.dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func requireRow(res sql.Result, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return interfaces.ErrSessionNotFound
	}
	return nil
}

// redactDSN hides the password of a postgres URL DSN.
func redactDSN(dsn string) string {
	at := strings.LastIndex(dsn, "@")
	scheme := strings.Index(dsn, "://")
	if at < 0 || scheme < 0 || at < scheme {
		return dsn
	}
	creds := dsn[scheme+3 : at]
	if colon := strings.Index(creds, ":"); colon >= 0 {
		creds = creds[:colon] + ":***"
	} else {
		creds = "***"
	}
	return dsn[:scheme+3] + creds + dsn[at:]
}
