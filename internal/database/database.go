// Reelfeed - Personalized Short-Video Feed and Recommendation Service
// Copyright 2026 gvarikaa
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/gvarikaa/reelfeed

// Package database provides the DuckDB-backed store for the append-only
// behavior log, content projections, and explicit interest declarations.
//
// All queries are parameterized and take a context. The store is safe
// for concurrent use; DuckDB serializes writes internally.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/gvarikaa/reelfeed/internal/config"
)

// queryTimeout bounds individual store queries.
const queryTimeout = 15 * time.Second

// Store wraps the DuckDB connection and provides data access methods.
type Store struct {
	conn *sql.DB
	cfg  *config.DatabaseConfig
}

// New opens (or creates) the DuckDB database and initializes the schema.
// An empty cfg.Path opens an in-memory database, used by tests.
func New(cfg *config.DatabaseConfig) (*Store, error) {
	numThreads := cfg.Threads
	if numThreads <= 0 {
		numThreads = runtime.NumCPU()
	}

	dsn := ""
	if cfg.Path != "" {
		// Ensure the parent directory exists before DuckDB opens the file.
		dbDir := filepath.Dir(cfg.Path)
		if dbDir != "" && dbDir != "." {
			if err := os.MkdirAll(dbDir, 0o750); err != nil {
				return nil, fmt.Errorf("create database directory %s: %w", dbDir, err)
			}
		}
		maxMemory := cfg.MaxMemory
		if maxMemory == "" {
			maxMemory = "1GB"
		}
		dsn = fmt.Sprintf("%s?access_mode=read_write&threads=%d&max_memory=%s",
			cfg.Path, numThreads, maxMemory)
	}

	conn, err := sql.Open("duckdb", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	conn.SetMaxOpenConns(numThreads)
	conn.SetMaxIdleConns(2)
	conn.SetConnMaxLifetime(time.Hour)

	s := &Store{conn: conn, cfg: cfg}
	if err := s.createSchema(context.Background()); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return s, nil
}

// Close closes the underlying connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

// Ping verifies the connection is alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.conn.PingContext(ctx)
}

// createSchema creates tables and indexes if they do not exist.
func (s *Store) createSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS behavior_events (
			event_id     VARCHAR PRIMARY KEY,
			user_id      VARCHAR NOT NULL,
			behavior_type VARCHAR NOT NULL,
			content_id   VARCHAR NOT NULL,
			content_type VARCHAR NOT NULL,
			ts           TIMESTAMP NOT NULL,
			duration_sec DOUBLE DEFAULT 0,
			metadata     VARCHAR
		)`,
		`CREATE INDEX IF NOT EXISTS idx_behavior_user_ts
			ON behavior_events (user_id, ts)`,
		`CREATE INDEX IF NOT EXISTS idx_behavior_content
			ON behavior_events (content_id, content_type)`,
		`CREATE TABLE IF NOT EXISTS content (
			id            VARCHAR PRIMARY KEY,
			content_type  VARCHAR NOT NULL,
			creator_id    VARCHAR NOT NULL,
			creator_name  VARCHAR DEFAULT '',
			parent_id     VARCHAR DEFAULT '',
			created_at    TIMESTAMP NOT NULL,
			topics        VARCHAR DEFAULT '',
			caption       VARCHAR DEFAULT '',
			sentiment     VARCHAR DEFAULT '',
			view_count    BIGINT DEFAULT 0,
			like_count    BIGINT DEFAULT 0,
			comment_count BIGINT DEFAULT 0,
			share_count   BIGINT DEFAULT 0,
			media_url     VARCHAR DEFAULT '',
			duration_sec  DOUBLE DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_content_type_created
			ON content (content_type, created_at)`,
		`CREATE TABLE IF NOT EXISTS interest_declarations (
			user_id    VARCHAR NOT NULL,
			topic_id   VARCHAR NOT NULL,
			topic_name VARCHAR NOT NULL,
			PRIMARY KEY (user_id, topic_id)
		)`,
	}

	for _, stmt := range statements {
		if _, err := s.conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("exec schema statement: %w", err)
		}
	}
	return nil
}

// placeholders returns a comma-separated list of n SQL placeholders.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

// toAnySlice converts a string slice to []any for variadic query args.
func toAnySlice(ids []string) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}
