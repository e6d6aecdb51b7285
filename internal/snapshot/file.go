// Package snapshot persists the single reconciled snapshot slot.
package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/wonny/cryptoetf/backend/internal/contracts"
	"github.com/wonny/cryptoetf/backend/pkg/logger"
)

// ErrCorrupt is returned when the stored snapshot cannot be decoded
var ErrCorrupt = errors.New("snapshot corrupt")

var _ contracts.SnapshotStore = (*FileStore)(nil)

// FileStore keeps the snapshot in one JSON file, replaced via temp file + rename
// ⭐ SSOT: 스냅샷 파일 쓰기는 여기서만
type FileStore struct {
	path   string
	logger *logger.Logger
	mu     sync.RWMutex
}

// NewFileStore creates a file-backed store at path
func NewFileStore(path string, log *logger.Logger) *FileStore {
	return &FileStore{
		path:   path,
		logger: log.Module("snapshot"),
	}
}

// Path returns the backing file path
func (s *FileStore) Path() string {
	return s.path
}

// Load reads the snapshot; a missing file is the empty snapshot
func (s *FileStore) Load(ctx context.Context) (contracts.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return contracts.EmptySnapshot(), nil
	}
	if err != nil {
		return contracts.EmptySnapshot(), fmt.Errorf("failed to read snapshot: %w", err)
	}

	return decode(data)
}

// Replace overwrites the slot atomically
func (s *FileStore) Replace(ctx context.Context, snap contracts.Snapshot) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create snapshot dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close snapshot: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("failed to replace snapshot: %w", err)
	}

	s.logger.WithFields(map[string]interface{}{
		"path":  s.path,
		"count": snap.Count,
	}).Debug("Snapshot written")
	return nil
}

func decode(data []byte) (contracts.Snapshot, error) {
	var snap contracts.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return contracts.EmptySnapshot(), fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if snap.ETFs == nil {
		snap.ETFs = []contracts.Record{}
	}
	snap.Count = len(snap.ETFs)
	return snap, nil
}
