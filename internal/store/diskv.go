// Package store provides StateStore backends over the flat key/value
// state space. Reads and writes are atomic per key; there are no
// cross-key transactions (last-write-wins).
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/peterbourgon/diskv/v3"

	"github.com/eliteGoblin/sleepshield/internal/domain"
)

// DiskvStore implements domain.StateStore with one file per key.
type DiskvStore struct {
	d *diskv.Diskv
}

// NewDiskvStore creates a diskv-backed store rooted at basePath.
func NewDiskvStore(basePath string) (*DiskvStore, error) {
	if err := os.MkdirAll(basePath, 0o700); err != nil {
		return nil, fmt.Errorf("store: ensure base path: %w", err)
	}
	return &DiskvStore{
		d: diskv.New(diskv.Options{
			BasePath:     basePath,
			Transform:    func(string) []string { return nil },
			CacheSizeMax: 1024 * 1024, // 1MB
		}),
	}, nil
}

// Get fetches the given keys; missing keys are absent from the result.
func (s *DiskvStore) Get(ctx context.Context, keys ...string) (map[string]json.RawMessage, error) {
	out := make(map[string]json.RawMessage, len(keys))
	for _, key := range keys {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !s.d.Has(key) {
			continue
		}
		val, err := s.d.Read(key)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("store: read %s: %w", key, err)
		}
		out[key] = json.RawMessage(val)
	}
	return out, nil
}

// Set writes all given key/value pairs, one file per key.
func (s *DiskvStore) Set(ctx context.Context, values map[string]json.RawMessage) error {
	for key, val := range values {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.d.Write(key, val); err != nil {
			return fmt.Errorf("store: write %s: %w", key, err)
		}
	}
	return nil
}

// Delete removes keys; missing keys are ignored.
func (s *DiskvStore) Delete(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !s.d.Has(key) {
			continue
		}
		if err := s.d.Erase(key); err != nil {
			return fmt.Errorf("store: erase %s: %w", key, err)
		}
	}
	return nil
}

// Close is a no-op for the file-backed store.
func (s *DiskvStore) Close() error { return nil }

// Ensure DiskvStore implements domain.StateStore.
var _ domain.StateStore = (*DiskvStore)(nil)
