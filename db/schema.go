// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Dialect selects the SQL driver and placeholder style.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

// ParseDialect accepts the names used by the -t flag.
func ParseDialect(s string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "sqlite", "sqlite3":
		return DialectSQLite, nil
	case "postgres", "postgresql", "pg":
		return DialectPostgres, nil
	}
	return "", fmt.Errorf("unknown database type %q", s)
}

// Rebind rewrites ? placeholders to $n for postgres. Queries in this
// package never contain a literal question mark.
func (d Dialect) Rebind(query string) string {
	if d != DialectPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Open connects to the database, verifies the connection and creates the
// schema.
func Open(ctx context.Context, dialect Dialect, dsn string) (*sql.DB, error) {
	conn, err := sql.Open(string(dialect), dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", dialect, err)
	}
	if dialect == DialectSQLite {
		// Every sqlite connection to :memory: is a separate database.
		conn.SetMaxOpenConns(1)
	}
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}
	if err := CreateSchema(conn); err != nil {
		conn.Close()
		return nil, err
	}
	return conn, nil
}

// CreateSchema creates all tables needed for the application.
// Safe to call multiple times - uses IF NOT EXISTS.
func CreateSchema(db *sql.DB) error {
	for _, stmt := range strings.Split(schema, ";\n") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}

	return nil
}

// The types below are valid in both sqlite and postgres.
const schema = `
-- Elections
CREATE TABLE IF NOT EXISTS election_created (
    entity_id TEXT PRIMARY KEY,
    election_id BIGINT NOT NULL,
    creator TEXT NOT NULL,
    name TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    image TEXT NOT NULL DEFAULT '',
    deadline BIGINT NOT NULL,
    block_timestamp BIGINT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_election_created_election_id ON election_created(election_id);
CREATE INDEX IF NOT EXISTS idx_election_created_block_timestamp ON election_created(block_timestamp);

-- Candidates
CREATE TABLE IF NOT EXISTS candidate_created (
    entity_id TEXT PRIMARY KEY,
    election_id BIGINT NOT NULL,
    candidate_id BIGINT NOT NULL,
    name TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_candidate_created_election_id ON candidate_created(election_id);

-- Votes
CREATE TABLE IF NOT EXISTS vote_submitted (
    entity_id TEXT PRIMARY KEY,
    election_id BIGINT NOT NULL,
    voter_address TEXT NOT NULL,
    candidate_id BIGINT NOT NULL,
    block_timestamp BIGINT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_vote_submitted_election_id ON vote_submitted(election_id);
CREATE INDEX IF NOT EXISTS idx_vote_submitted_voter ON vote_submitted(voter_address);

-- Results
CREATE TABLE IF NOT EXISTS election_ended (
    entity_id TEXT PRIMARY KEY,
    election_id BIGINT NOT NULL,
    winner TEXT NOT NULL,
    total_votes BIGINT NOT NULL,
    winner_vote_count BIGINT NOT NULL,
    block_timestamp BIGINT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_election_ended_election_id ON election_ended(election_id);

-- Local key/value state
CREATE TABLE IF NOT EXISTS local_state (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL,
    updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`
