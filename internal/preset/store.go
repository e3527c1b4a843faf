package preset

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// Override is one admin-supplied preset document.
type Override struct {
	Name      string    `db:"name" json:"name"`
	Body      string    `db:"body" json:"body"`
	UpdatedBy string    `db:"updated_by" json:"updated_by"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Store persists preset overrides in the aim_presets table.
type Store struct {
	db *sqlx.DB
}

func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

func (s *Store) List(ctx context.Context) ([]Override, error) {
	var out []Override
	err := s.db.SelectContext(ctx, &out, `
		SELECT name, body, updated_by, updated_at
		FROM aim_presets
		ORDER BY updated_at ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list presets: %w", err)
	}
	return out, nil
}

// Save upserts the override for name.
func (s *Store) Save(ctx context.Context, name, body, updatedBy string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO aim_presets (name, body, updated_by, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (name) DO UPDATE SET
			body = EXCLUDED.body,
			updated_by = EXCLUDED.updated_by,
			updated_at = NOW()
	`, name, body, updatedBy)
	if err != nil {
		return fmt.Errorf("save preset %s: %w", name, err)
	}
	return nil
}
