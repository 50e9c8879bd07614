package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileStateRepository implements StateRepository using the local filesystem:
// one JSON document per key under a base directory. Useful for local runs
// and tests where no database is available. SetMany is not atomic here; a
// crash between two file writes can leave slices inconsistent.
type FileStateRepository struct {
	baseDir string
	mutex   sync.RWMutex
}

// NewFileStateRepository creates a new file-based state repository.
func NewFileStateRepository(baseDir string) (*FileStateRepository, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, &RepositoryError{
			Op:  "create_repository",
			Err: fmt.Errorf("failed to create base directory: %w", err),
		}
	}
	return &FileStateRepository{baseDir: baseDir}, nil
}

func (r *FileStateRepository) path(key StateKey) string {
	return filepath.Join(r.baseDir, string(key)+".json")
}

// Get reads one state slice into out.
func (r *FileStateRepository) Get(ctx context.Context, key StateKey, out any) (bool, error) {
	select {
	case <-ctx.Done():
		return false, &RepositoryError{Op: "get_state", Err: ctx.Err()}
	default:
	}

	r.mutex.RLock()
	defer r.mutex.RUnlock()

	data, err := os.ReadFile(r.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, &RepositoryError{
			Op:  "get_state",
			Err: fmt.Errorf("failed to read key %s: %w", key, err),
		}
	}
	if err := json.Unmarshal(data, out); err != nil {
		return false, &RepositoryError{
			Op:  "get_state",
			Err: fmt.Errorf("failed to deserialize key %s: %w", key, err),
		}
	}
	return true, nil
}

// Set overwrites one state slice.
func (r *FileStateRepository) Set(ctx context.Context, key StateKey, value any) error {
	select {
	case <-ctx.Done():
		return &RepositoryError{Op: "set_state", Err: ctx.Err()}
	default:
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.writeLocked(key, value)
}

// Delete removes one state slice; deleting an absent key is a no-op.
func (r *FileStateRepository) Delete(ctx context.Context, key StateKey) error {
	select {
	case <-ctx.Done():
		return &RepositoryError{Op: "delete_state", Err: ctx.Err()}
	default:
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.deleteLocked(key)
}

// SetMany applies a batch of writes and deletes. Files are written one by
// one; the batch is not atomic.
func (r *FileStateRepository) SetMany(ctx context.Context, changes map[StateKey]any) error {
	select {
	case <-ctx.Done():
		return &RepositoryError{Op: "set_many", Err: ctx.Err()}
	default:
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	for key, value := range changes {
		if value == nil {
			if err := r.deleteLocked(key); err != nil {
				return err
			}
			continue
		}
		if err := r.writeLocked(key, value); err != nil {
			return err
		}
	}
	return nil
}

func (r *FileStateRepository) writeLocked(key StateKey, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return &RepositoryError{
			Op:  "set_state",
			Err: fmt.Errorf("failed to serialize key %s: %w", key, err),
		}
	}
	if err := os.WriteFile(r.path(key), data, 0644); err != nil {
		return &RepositoryError{
			Op:  "set_state",
			Err: fmt.Errorf("failed to write key %s: %w", key, err),
		}
	}
	return nil
}

func (r *FileStateRepository) deleteLocked(key StateKey) error {
	if err := os.Remove(r.path(key)); err != nil && !os.IsNotExist(err) {
		return &RepositoryError{
			Op:  "delete_state",
			Err: fmt.Errorf("failed to delete key %s: %w", key, err),
		}
	}
	return nil
}
