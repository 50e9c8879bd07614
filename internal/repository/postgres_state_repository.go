package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStateRepository implements StateRepository on a single key/value
// table. Each state slice is one row; values are stored as jsonb.
type PostgresStateRepository struct {
	db *pgxpool.Pool
}

// NewPostgresStateRepository creates a new PostgreSQL state repository and
// ensures the backing table exists.
func NewPostgresStateRepository(ctx context.Context, db *pgxpool.Pool) (*PostgresStateRepository, error) {
	_, err := db.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS app_state (
			key        TEXT PRIMARY KEY,
			value      JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`)
	if err != nil {
		return nil, &RepositoryError{
			Op:  "create_state_table",
			Err: fmt.Errorf("failed to ensure app_state table: %w", err),
		}
	}
	return &PostgresStateRepository{db: db}, nil
}

// Get reads one state slice into out.
func (r *PostgresStateRepository) Get(ctx context.Context, key StateKey, out any) (bool, error) {
	var raw []byte
	err := r.db.QueryRow(ctx, `SELECT value FROM app_state WHERE key = $1`, string(key)).Scan(&raw)
	if err != nil {
		if err == pgx.ErrNoRows {
			return false, nil
		}
		return false, &RepositoryError{
			Op:  "get_state",
			Err: fmt.Errorf("failed to read key %s: %w", key, err),
		}
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, &RepositoryError{
			Op:  "get_state",
			Err: fmt.Errorf("failed to deserialize key %s: %w", key, err),
		}
	}
	return true, nil
}

// Set overwrites one state slice.
func (r *PostgresStateRepository) Set(ctx context.Context, key StateKey, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return &RepositoryError{
			Op:  "set_state",
			Err: fmt.Errorf("failed to serialize key %s: %w", key, err),
		}
	}
	_, err = r.db.Exec(ctx, `
		INSERT INTO app_state (key, value, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()
	`, string(key), raw)
	if err != nil {
		return &RepositoryError{
			Op:  "set_state",
			Err: fmt.Errorf("failed to write key %s: %w", key, err),
		}
	}
	return nil
}

// Delete removes one state slice; deleting an absent key is a no-op.
func (r *PostgresStateRepository) Delete(ctx context.Context, key StateKey) error {
	_, err := r.db.Exec(ctx, `DELETE FROM app_state WHERE key = $1`, string(key))
	if err != nil {
		return &RepositoryError{
			Op:  "delete_state",
			Err: fmt.Errorf("failed to delete key %s: %w", key, err),
		}
	}
	return nil
}

// SetMany applies a batch of writes and deletes in a single transaction,
// so a multi-slice transition like archiving either fully lands or not.
func (r *PostgresStateRepository) SetMany(ctx context.Context, changes map[StateKey]any) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return &RepositoryError{
			Op:  "set_many",
			Err: fmt.Errorf("failed to begin transaction: %w", err),
		}
	}
	defer tx.Rollback(ctx) // Rollback if not committed

	for key, value := range changes {
		if value == nil {
			if _, err := tx.Exec(ctx, `DELETE FROM app_state WHERE key = $1`, string(key)); err != nil {
				return &RepositoryError{
					Op:  "set_many",
					Err: fmt.Errorf("failed to delete key %s: %w", key, err),
				}
			}
			continue
		}
		raw, err := json.Marshal(value)
		if err != nil {
			return &RepositoryError{
				Op:  "set_many",
				Err: fmt.Errorf("failed to serialize key %s: %w", key, err),
			}
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO app_state (key, value, updated_at)
			VALUES ($1, $2, now())
			ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()
		`, string(key), raw)
		if err != nil {
			return &RepositoryError{
				Op:  "set_many",
				Err: fmt.Errorf("failed to write key %s: %w", key, err),
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return &RepositoryError{
			Op:  "set_many",
			Err: fmt.Errorf("failed to commit transaction: %w", err),
		}
	}
	return nil
}
