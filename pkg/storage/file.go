package storage

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sync"
)

// FileStore keeps one JSON file per snapshot in a directory.
type FileStore struct {
	mu  sync.RWMutex
	dir string
}

// NewFileStore creates dir if needed and returns a store in it.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create snapshot dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// Path returns the snapshot directory.
func (s *FileStore) Path() string { return s.dir }

func (s *FileStore) path(id string) string {
	return filepath.Join(s.dir, filepath.Base(id)+".json")
}

// Put implements Store.
func (s *FileStore) Put(_ context.Context, snap *Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := os.WriteFile(s.path(snap.ID), data, 0o600); err != nil {
		return fmt.Errorf("write snapshot file: %w", err)
	}
	return nil
}

// Get implements Store.
func (s *FileStore) Get(_ context.Context, id string) (*Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.read(s.path(id))
}

func (s *FileStore) read(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshot file: %w", err)
	}
	snap, err := decode(data)
	if err != nil {
		return nil, fmt.Errorf("parse snapshot %s: %w", filepath.Base(path), err)
	}
	return snap, nil
}

// all reads every snapshot, newest first. Unreadable files are skipped.
func (s *FileStore) all() ([]*Snapshot, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read snapshot dir: %w", err)
	}
	var snaps []*Snapshot
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		snap, err := s.read(filepath.Join(s.dir, entry.Name()))
		if err != nil {
			continue
		}
		snaps = append(snaps, snap)
	}
	slices.SortFunc(snaps, func(a, b *Snapshot) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return snaps, nil
}

// Latest implements Store.
func (s *FileStore) Latest(context.Context) (*Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snaps, err := s.all()
	if err != nil {
		return nil, err
	}
	if len(snaps) == 0 {
		return nil, ErrNotFound
	}
	return snaps[0], nil
}

// List implements Store.
func (s *FileStore) List(_ context.Context, limit int) ([]Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snaps, err := s.all()
	if err != nil {
		return nil, err
	}
	out := []Summary{}
	for _, snap := range snaps {
		if limit > 0 && len(out) == limit {
			break
		}
		out = append(out, snap.Summary())
	}
	return out, nil
}

// Close implements Store.
func (s *FileStore) Close(context.Context) error { return nil }

var _ Store = (*FileStore)(nil)
