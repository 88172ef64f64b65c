package trellis

import (
	"fmt"
	"log/slog"

	"github.com/mkerner/trellis/internal/store"
)

// Engine orchestrates the trellis pipeline: repository discovery, parallel
// parsing, edge resolution, snapshot persistence, and graph queries.
type Engine struct {
	store      *store.Store
	log        *slog.Logger
	languages  map[string]bool // nil means all languages
	ignoreDirs map[string]bool // extra prune set on top of discovery's
	workers    int             // 0 means min(NumCPU, files)
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the structured logger used for build progress and
// per-file parse warnings. Defaults to slog.Default().
func WithLogger(log *slog.Logger) Option {
	return func(e *Engine) {
		if log != nil {
			e.log = log
		}
	}
}

// WithLanguages restricts which languages the Engine will process.
func WithLanguages(languages ...string) Option {
	return func(e *Engine) {
		e.languages = make(map[string]bool, len(languages))
		for _, lang := range languages {
			e.languages[lang] = true
		}
	}
}

// WithWorkers caps the parse worker pool. Zero or negative falls back to
// one worker per CPU, never more than the number of files.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		e.workers = n
	}
}

// WithIgnoreDirs skips files under directories with the given names, in
// addition to the standard prune set (dependency caches, build output,
// virtual environments).
func WithIgnoreDirs(names ...string) Option {
	return func(e *Engine) {
		e.ignoreDirs = make(map[string]bool, len(names))
		for _, name := range names {
			e.ignoreDirs[name] = true
		}
	}
}

// New creates an Engine backed by a SQLite database at dbPath, running
// schema migrations if needed.
func New(dbPath string, opts ...Option) (*Engine, error) {
	s, err := store.NewStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("trellis: create store: %w", err)
	}
	if err := s.Migrate(); err != nil {
		s.Close()
		return nil, fmt.Errorf("trellis: migrate: %w", err)
	}

	e := &Engine{
		store: s,
		log:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Close releases the Engine's database resources.
func (e *Engine) Close() error {
	return e.store.Close()
}

// Store returns the underlying Store for direct access.
func (e *Engine) Store() *Store {
	return e.store
}
