package store

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// Store is the SQLite data access layer for the versioned graph tables.
type Store struct {
	db *sql.DB
}

// NewStore opens a SQLite database at dbPath with WAL mode enabled.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=30000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for use in transactions.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Migrate creates all tables and indexes. Idempotent.
func (s *Store) Migrate() error {
	_, err := s.db.Exec(schemaDDL)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS repositories (
  id              INTEGER PRIMARY KEY,
  root_path       TEXT NOT NULL UNIQUE,
  created_at      TIMESTAMP
);

CREATE TABLE IF NOT EXISTS repo_versions (
  id               INTEGER PRIMARY KEY,
  repo_id          INTEGER NOT NULL REFERENCES repositories(id) ON DELETE CASCADE,
  scan_id          TEXT NOT NULL,
  commit_hash      TEXT NOT NULL,
  created_at       TIMESTAMP,
  complexity_score INTEGER DEFAULT 0,
  risk_score       INTEGER DEFAULT 0
);

CREATE TABLE IF NOT EXISTS graph_files (
  id              INTEGER PRIMARY KEY,
  version_id      INTEGER NOT NULL REFERENCES repo_versions(id) ON DELETE CASCADE,
  path            TEXT NOT NULL,
  module_name     TEXT
);

CREATE TABLE IF NOT EXISTS symbols (
  id              INTEGER PRIMARY KEY,
  file_id         INTEGER NOT NULL REFERENCES graph_files(id) ON DELETE CASCADE,
  name            TEXT NOT NULL,
  qualified_name  TEXT,
  type            TEXT NOT NULL,
  start_line      INTEGER NOT NULL,
  end_line        INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS edges (
  id              INTEGER PRIMARY KEY,
  source_id       INTEGER NOT NULL REFERENCES symbols(id) ON DELETE CASCADE,
  target_id       INTEGER NOT NULL REFERENCES symbols(id) ON DELETE CASCADE,
  relation        TEXT NOT NULL
);

-- Indexes

CREATE INDEX IF NOT EXISTS idx_repo_versions_scan ON repo_versions(scan_id);
CREATE INDEX IF NOT EXISTS idx_repo_versions_repo ON repo_versions(repo_id);
CREATE INDEX IF NOT EXISTS idx_graph_files_version ON graph_files(version_id);
CREATE INDEX IF NOT EXISTS idx_graph_files_path ON graph_files(path);
CREATE INDEX IF NOT EXISTS idx_symbols_file ON symbols(file_id);
CREATE INDEX IF NOT EXISTS idx_symbols_name ON symbols(name);
CREATE INDEX IF NOT EXISTS idx_symbols_qualified ON symbols(qualified_name);
CREATE INDEX IF NOT EXISTS idx_symbols_type ON symbols(type);
CREATE INDEX IF NOT EXISTS idx_edges_source ON edges(source_id);
CREATE INDEX IF NOT EXISTS idx_edges_target ON edges(target_id);
CREATE INDEX IF NOT EXISTS idx_edges_relation ON edges(relation);
`
