// Package store persists canonical MCP records, run history, and crawler
// state in SQLite. The driver is modernc.org/sqlite (pure Go, driver name
// "sqlite").
//
// Queryable fields live in columns; tools, installation methods, auth, tags,
// and use cases are JSON blobs. A derived search_text column carries the
// full-text value, and the agent_ready_mcps view exposes only records safe
// for downstream consumption.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"

	crawlerrors "github.com/mcpscout/mcpcrawl/pkg/errors"
)

// Store is the SQLite persistence adapter. Safe for concurrent use; upserts
// serialize per slug.
type Store struct {
	db   *sql.DB
	path string

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// Open creates or opens the database at path, applying the schema.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, crawlerrors.Wrap(crawlerrors.ErrCodeInternal, err, "create db directory %s", dir)
		}
	}

	dsn := path + "?" + url.Values{
		"_pragma": []string{
			"busy_timeout(30000)",
			"journal_mode(WAL)",
			"synchronous(NORMAL)",
			"foreign_keys(ON)",
		},
	}.Encode()

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, crawlerrors.Wrap(crawlerrors.ErrCodeInternal, err, "open db %s", path)
	}
	// modernc's driver is happiest with a single writer connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	s := &Store{db: db, path: path, locks: make(map[string]*sync.Mutex)}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, crawlerrors.Wrap(crawlerrors.ErrCodeInternal, err, "initialize schema for %s", path)
	}
	return s, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string { return s.path }

func (s *Store) initSchema() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS mcps (
			slug              TEXT PRIMARY KEY,
			name              TEXT NOT NULL,
			display_name      TEXT NOT NULL DEFAULT '',
			short_description TEXT NOT NULL DEFAULT '',
			long_description  TEXT NOT NULL DEFAULT '',
			ecosystem         TEXT NOT NULL,
			identifier        TEXT NOT NULL,
			install_type      TEXT NOT NULL DEFAULT '',
			endpoint          TEXT NOT NULL DEFAULT '',
			install_methods   TEXT NOT NULL DEFAULT '[]',
			tools             TEXT NOT NULL DEFAULT '[]',
			tool_count        INTEGER NOT NULL DEFAULT 0,
			working_tools     TEXT NOT NULL DEFAULT '[]',
			failing_tools     TEXT NOT NULL DEFAULT '[]',
			auth              TEXT NOT NULL DEFAULT '{}',
			protocol_version  TEXT NOT NULL DEFAULT '',
			connection_type   TEXT NOT NULL DEFAULT 'stdio',
			category          TEXT NOT NULL,
			tags              TEXT NOT NULL DEFAULT '[]',
			use_cases         TEXT NOT NULL DEFAULT '[]',
			repository_url    TEXT NOT NULL DEFAULT '',
			documentation_url TEXT NOT NULL DEFAULT '',
			homepage_url      TEXT NOT NULL DEFAULT '',
			author            TEXT NOT NULL DEFAULT '',
			company           TEXT NOT NULL DEFAULT '',
			license           TEXT NOT NULL DEFAULT '',
			health_status     TEXT NOT NULL DEFAULT 'unknown',
			verified          INTEGER NOT NULL DEFAULT 0,
			auto_discovered   INTEGER NOT NULL DEFAULT 1,
			discovery_source  TEXT NOT NULL DEFAULT '',
			field_sources     TEXT NOT NULL DEFAULT '{}',
			search_text       TEXT NOT NULL DEFAULT '',
			created_at        TEXT NOT NULL,
			updated_at        TEXT NOT NULL,
			last_scraped_at   TEXT,
			last_validated_at TEXT,
			UNIQUE (ecosystem, identifier)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_mcps_category ON mcps (category)`,
		`CREATE INDEX IF NOT EXISTS idx_mcps_health ON mcps (health_status)`,
		`CREATE TABLE IF NOT EXISTS crawler_runs (
			id           TEXT PRIMARY KEY,
			started_at   TEXT NOT NULL,
			completed_at TEXT,
			status       TEXT NOT NULL,
			counts       TEXT NOT NULL DEFAULT '{}',
			errors       TEXT NOT NULL DEFAULT '[]',
			cause        TEXT NOT NULL DEFAULT '',
			last_candidate TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS crawler_state (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS merge_events (
			id             INTEGER PRIMARY KEY AUTOINCREMENT,
			candidate_slug TEXT NOT NULL,
			existing_slug  TEXT NOT NULL,
			via            TEXT NOT NULL,
			at             TEXT NOT NULL
		)`,
		`CREATE VIEW IF NOT EXISTS agent_ready_mcps AS
			SELECT * FROM mcps
			WHERE health_status IN ('healthy', 'degraded')
			  AND verified = 1
			  AND use_cases NOT IN ('', '[]', 'null')`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("exec schema: %w", err)
		}
	}
	return nil
}

// slugLock returns the mutex serializing upserts for one slug.
func (s *Store) slugLock(slug string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[slug]
	if !ok {
		l = &sync.Mutex{}
		s.locks[slug] = l
	}
	return l
}

// Ping verifies the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
