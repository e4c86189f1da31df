// Package checkpoint records which households of a run have been exported,
// so an interrupted run can resume without simulating them again.
package checkpoint

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/daysim/daysim/pkg/config"
	simerrors "github.com/daysim/daysim/pkg/errors"
)

// Store persists the set of completed households for one run key.
// A scheduler reads it once before work starts and appends to it from its
// single export goroutine.
type Store interface {
	// Completed returns the households already recorded.
	Completed(ctx context.Context) (map[int]bool, error)

	// MarkDone records households as exported.
	MarkDone(ctx context.Context, householdIDs ...int) error

	// Name returns the backend name for logging.
	Name() string

	Close() error
}

// Open creates the store selected by cfg. key identifies the run; two runs
// with the same key share their completed set.
func Open(cfg config.CheckpointConfig, key string) (Store, error) {
	switch cfg.Backend {
	case "", "none":
		return None{}, nil
	case "file":
		return NewFileStore(cfg.Dir, key)
	case "redis":
		rc := DefaultRedisConfig(cfg.RedisAddr)
		rc.Database = cfg.RedisDB
		if cfg.Prefix != "" {
			rc.Prefix = cfg.Prefix
		}
		rc.TTL = cfg.TTL
		return NewRedisStore(rc, key)
	default:
		return nil, simerrors.Newf(simerrors.CodeConfigInvalid, "unknown checkpoint backend %q", cfg.Backend)
	}
}

// None is the store used when resume is disabled.
type None struct{}

func (None) Completed(context.Context) (map[int]bool, error) { return map[int]bool{}, nil }
func (None) MarkDone(context.Context, ...int) error { return nil }
func (None) Name() string { return "none" }
func (None) Close() error { return nil }

// Checkpoint is the on-disk form of a file store.
type Checkpoint struct {
	Key        string    `json:"key"`
	Households []int     `json:"households"`
	StartedAt  time.Time `json:"started_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// FileStore keeps the completed set in a JSON file, rewritten atomically on
// every MarkDone.
type FileStore struct {
	path string

	mu   sync.Mutex
	cp   Checkpoint
	done map[int]bool
}

// NewFileStore opens or creates the checkpoint for key under dir.
func NewFileStore(dir, key string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, simerrors.Wrap(err, simerrors.CodeCheckpoint, "create checkpoint directory").
			WithContext("dir", dir)
	}
	s := &FileStore{
		path: filepath.Join(dir, key+".checkpoint"),
		done: make(map[int]bool),
	}

	data, err := os.ReadFile(s.path)
	switch {
	case os.IsNotExist(err):
		now := time.Now()
		s.cp = Checkpoint{Key: key, StartedAt: now, UpdatedAt: now}
	case err != nil:
		return nil, simerrors.Wrap(err, simerrors.CodeCheckpoint, "read checkpoint").WithContext("path", s.path)
	default:
		if err := json.Unmarshal(data, &s.cp); err != nil {
			return nil, simerrors.Wrap(err, simerrors.CodeCheckpoint, "parse checkpoint").WithContext("path", s.path)
		}
		for _, id := range s.cp.Households {
			s.done[id] = true
		}
	}
	return s, nil
}

// Completed implements Store.
func (s *FileStore) Completed(context.Context) (map[int]bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[int]bool, len(s.done))
	for id := range s.done {
		out[id] = true
	}
	return out, nil
}

// MarkDone implements Store.
func (s *FileStore) MarkDone(_ context.Context, householdIDs ...int) error {
	if len(householdIDs) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range householdIDs {
		s.done[id] = true
	}
	return s.save()
}

func (s *FileStore) save() error {
	s.cp.Households = s.cp.Households[:0]
	for id := range s.done {
		s.cp.Households = append(s.cp.Households, id)
	}
	sort.Ints(s.cp.Households)
	s.cp.UpdatedAt = time.Now()

	data, err := json.MarshalIndent(&s.cp, "", "  ")
	if err != nil {
		return simerrors.Wrap(err, simerrors.CodeCheckpoint, "encode checkpoint")
	}

	// Write to temp file first, then rename (atomic)
	tempPath := s.path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return simerrors.Wrap(err, simerrors.CodeCheckpoint, "write checkpoint").WithContext("path", tempPath)
	}
	if err := os.Rename(tempPath, s.path); err != nil {
		return simerrors.Wrap(err, simerrors.CodeCheckpoint, "replace checkpoint").WithContext("path", s.path)
	}
	return nil
}

// Path returns the checkpoint file.
func (s *FileStore) Path() string { return s.path }

// Name returns "file".
func (s *FileStore) Name() string { return "file" }

// Close is a no-op; every MarkDone is already durable.
func (s *FileStore) Close() error { return nil }

// Remove deletes the checkpoint file, typically after a run completes.
func (s *FileStore) Remove() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.done = make(map[int]bool)
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
