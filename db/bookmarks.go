// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"
)

// BookmarksKey is the local_state key holding the bookmarked election ids.
const BookmarksKey = "bookmarkedElections"

// Bookmarks keeps a JSON list of election ids in insertion order.
type Bookmarks struct {
	db      *sql.DB
	dialect Dialect

	// Serializes read-modify-write cycles on the list.
	mu sync.Mutex
}

func NewBookmarks(db *sql.DB, dialect Dialect) *Bookmarks {
	return &Bookmarks{db: db, dialect: dialect}
}

func (b *Bookmarks) load(ctx context.Context) ([]uint64, error) {
	var raw string
	err := b.db.QueryRowContext(ctx, b.dialect.Rebind(
		`SELECT value FROM local_state WHERE key = ?`), BookmarksKey).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return []uint64{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read bookmarks: %w", err)
	}

	ids := []uint64{}
	if err := json.Unmarshal([]byte(raw), &ids); err != nil {
		return nil, fmt.Errorf("stored bookmarks are corrupt: %w", err)
	}
	return ids, nil
}

func (b *Bookmarks) save(ctx context.Context, ids []uint64) error {
	raw, err := json.Marshal(ids)
	if err != nil {
		return fmt.Errorf("failed to encode bookmarks: %w", err)
	}
	_, err = b.db.ExecContext(ctx, b.dialect.Rebind(`
		INSERT INTO local_state (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`),
		BookmarksKey, string(raw))
	if err != nil {
		return fmt.Errorf("failed to write bookmarks: %w", err)
	}
	return nil
}

// List returns the bookmarked ids, oldest bookmark first.
func (b *Bookmarks) List(ctx context.Context) ([]uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.load(ctx)
}

func (b *Bookmarks) Contains(ctx context.Context, id uint64) (bool, error) {
	ids, err := b.List(ctx)
	if err != nil {
		return false, err
	}
	return slices.Contains(ids, id), nil
}

// Add appends id unless it is already bookmarked.
func (b *Bookmarks) Add(ctx context.Context, id uint64) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	ids, err := b.load(ctx)
	if err != nil {
		return err
	}
	if slices.Contains(ids, id) {
		return nil
	}
	return b.save(ctx, append(ids, id))
}

// Remove drops id; removing an absent id is not an error.
func (b *Bookmarks) Remove(ctx context.Context, id uint64) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	ids, err := b.load(ctx)
	if err != nil {
		return err
	}
	if !slices.Contains(ids, id) {
		return nil
	}
	return b.save(ctx, slices.DeleteFunc(ids, func(v uint64) bool { return v == id }))
}

// Toggle flips the bookmark and reports whether id is bookmarked afterwards.
func (b *Bookmarks) Toggle(ctx context.Context, id uint64) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ids, err := b.load(ctx)
	if err != nil {
		return false, err
	}
	if slices.Contains(ids, id) {
		return false, b.save(ctx, slices.DeleteFunc(ids, func(v uint64) bool { return v == id }))
	}
	return true, b.save(ctx, append(ids, id))
}
