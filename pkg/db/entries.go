package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/urmzd/gryfd/pkg/config"
)

var (
	ErrEntryNotFound = errors.New("config entry not found")
	ErrEntryExists   = errors.New("config entry already configured")
)

// ConfigEntry is one stored bus configuration. UniqueID is the serial port.
type ConfigEntry struct {
	EntryID   string            `json:"entry_id"`
	UniqueID  string            `json:"unique_id"`
	Title     string            `json:"title"`
	Data      config.EntryData  `json:"data"`
	Options   *config.EntryData `json:"options,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// Effective returns the entry data with options applied.
func (e *ConfigEntry) Effective() config.EntryData {
	return config.Effective(e.Data, e.Options)
}

// EntryStore provides config entry CRUD operations.
type EntryStore interface {
	Get(ctx context.Context, entryID string) (*ConfigEntry, error)
	GetByUniqueID(ctx context.Context, uniqueID string) (*ConfigEntry, error)
	List(ctx context.Context) ([]*ConfigEntry, error)
	Create(ctx context.Context, e *ConfigEntry) error
	UpdateOptions(ctx context.Context, entryID string, options config.EntryData) error
	Delete(ctx context.Context, entryID string) error
}

// Entries returns an EntryStore for this database.
func (db *DB) Entries() EntryStore {
	return &entryStore{db: db}
}

type entryStore struct {
	db *DB
}

const entryColumns = `entry_id, unique_id, title, data, options, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (*ConfigEntry, error) {
	e := &ConfigEntry{}
	var data string
	var options sql.NullString
	var createdAt, updatedAt string
	if err := row.Scan(&e.EntryID, &e.UniqueID, &e.Title, &data, &options, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(data), &e.Data); err != nil {
		return nil, fmt.Errorf("entry %s: decode data: %w", e.EntryID, err)
	}
	if options.Valid && options.String != "" {
		e.Options = &config.EntryData{}
		if err := json.Unmarshal([]byte(options.String), e.Options); err != nil {
			return nil, fmt.Errorf("entry %s: decode options: %w", e.EntryID, err)
		}
	}
	e.CreatedAt, _ = time.Parse(time.DateTime, createdAt)
	e.UpdatedAt, _ = time.Parse(time.DateTime, updatedAt)
	return e, nil
}

func (s *entryStore) Get(ctx context.Context, entryID string) (*ConfigEntry, error) {
	e, err := scanEntry(s.db.QueryRowContext(ctx,
		`SELECT `+entryColumns+` FROM config_entries WHERE entry_id = ?`, entryID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrEntryNotFound
	}
	return e, err
}

func (s *entryStore) GetByUniqueID(ctx context.Context, uniqueID string) (*ConfigEntry, error) {
	e, err := scanEntry(s.db.QueryRowContext(ctx,
		`SELECT `+entryColumns+` FROM config_entries WHERE unique_id = ?`, uniqueID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrEntryNotFound
	}
	return e, err
}

func (s *entryStore) List(ctx context.Context) ([]*ConfigEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+entryColumns+` FROM config_entries ORDER BY created_at, entry_id`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var entries []*ConfigEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Create inserts e, assigning an entry id when empty. A second entry for the
// same unique id fails with ErrEntryExists.
func (s *entryStore) Create(ctx context.Context, e *ConfigEntry) error {
	if e.EntryID == "" {
		e.EntryID = uuid.NewString()
	}
	data, err := json.Marshal(e.Data)
	if err != nil {
		return fmt.Errorf("failed to encode entry data: %w", err)
	}
	var options any
	if e.Options != nil {
		b, err := json.Marshal(e.Options)
		if err != nil {
			return fmt.Errorf("failed to encode entry options: %w", err)
		}
		options = string(b)
	}

	return s.db.Tx(ctx, func(tx *sql.Tx) error {
		var count int
		if err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM config_entries WHERE unique_id = ?`, e.UniqueID).Scan(&count); err != nil {
			return err
		}
		if count > 0 {
			return fmt.Errorf("%w: %s", ErrEntryExists, e.UniqueID)
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO config_entries (entry_id, unique_id, title, data, options)
			VALUES (?, ?, ?, ?, ?)
		`, e.EntryID, e.UniqueID, e.Title, string(data), options); err != nil {
			return fmt.Errorf("failed to create config entry: %w", err)
		}
		now := time.Now().UTC().Truncate(time.Second)
		e.CreatedAt, e.UpdatedAt = now, now
		return nil
	})
}

func (s *entryStore) UpdateOptions(ctx context.Context, entryID string, options config.EntryData) error {
	b, err := json.Marshal(options)
	if err != nil {
		return fmt.Errorf("failed to encode entry options: %w", err)
	}
	result, err := s.db.ExecContext(ctx, `
		UPDATE config_entries SET options = ?, updated_at = datetime('now')
		WHERE entry_id = ?
	`, string(b), entryID)
	if err != nil {
		return err
	}
	return requireRow(result, ErrEntryNotFound)
}

func (s *entryStore) Delete(ctx context.Context, entryID string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM config_entries WHERE entry_id = ?`, entryID)
	if err != nil {
		return err
	}
	return requireRow(result, ErrEntryNotFound)
}

func requireRow(result sql.Result, notFound error) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return notFound
	}
	return nil
}
