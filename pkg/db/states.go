package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

var ErrStateNotFound = errors.New("entity state not found")

// StateStore keeps the last known state of each entity.
type StateStore interface {
	Get(ctx context.Context, uniqueID string) (map[string]any, error)
	Put(ctx context.Context, uniqueID string, state map[string]any) error
	Delete(ctx context.Context, uniqueID string) error
}

// States returns a StateStore for this database.
func (db *DB) States() StateStore {
	return &stateStore{db: db}
}

type stateStore struct {
	db *DB
}

func (s *stateStore) Get(ctx context.Context, uniqueID string) (map[string]any, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT state FROM entity_states WHERE unique_id = ?`, uniqueID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrStateNotFound
	}
	if err != nil {
		return nil, err
	}

	state := map[string]any{}
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		return nil, fmt.Errorf("decode state of %s: %w", uniqueID, err)
	}
	return state, nil
}

func (s *stateStore) Put(ctx context.Context, uniqueID string, state map[string]any) error {
	b, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode state of %s: %w", uniqueID, err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO entity_states (unique_id, state) VALUES (?, ?)
		ON CONFLICT(unique_id) DO UPDATE SET state = excluded.state, updated_at = datetime('now')
	`, uniqueID, string(b))
	return err
}

func (s *stateStore) Delete(ctx context.Context, uniqueID string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM entity_states WHERE unique_id = ?`, uniqueID)
	if err != nil {
		return err
	}
	return requireRow(result, ErrStateNotFound)
}
