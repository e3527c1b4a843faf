package shots

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/playmatatu/arcade/internal/trajectory"
)

// row mirrors the aim_shots table. JSON columns are JSONB.
type row struct {
	ID        uuid.UUID       `db:"id"`
	SessionID string          `db:"session_id"`
	Game      string          `db:"game"`
	Input     json.RawMessage `db:"input"`
	Path      json.RawMessage `db:"path"`
	Hit       json.RawMessage `db:"hit"`
	Reason    string          `db:"reason"`
	CreatedAt time.Time       `db:"created_at"`
}

func (r row) shot() (*Shot, error) {
	s := &Shot{
		ID:        r.ID,
		SessionID: r.SessionID,
		Game:      Game(r.Game),
		Input:     r.Input,
		Reason:    trajectory.Termination(r.Reason),
		CreatedAt: r.CreatedAt,
	}
	if err := json.Unmarshal(r.Path, &s.Path); err != nil {
		return nil, fmt.Errorf("decode path for shot %s: %w", r.ID, err)
	}
	if len(r.Hit) > 0 && string(r.Hit) != "null" {
		s.Hit = &Hit{}
		if err := json.Unmarshal(r.Hit, s.Hit); err != nil {
			return nil, fmt.Errorf("decode hit for shot %s: %w", r.ID, err)
		}
	}
	return s, nil
}

// Repository persists committed shots.
type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

// Record inserts s and fills in its creation time.
func (r *Repository) Record(ctx context.Context, s *Shot) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	path, err := json.Marshal(s.Path)
	if err != nil {
		return fmt.Errorf("encode shot path: %w", err)
	}
	hit, err := json.Marshal(s.Hit)
	if err != nil {
		return fmt.Errorf("encode shot hit: %w", err)
	}
	input := s.Input
	if len(input) == 0 {
		input = json.RawMessage("{}")
	}

	err = r.db.QueryRowxContext(ctx, `
		INSERT INTO aim_shots (id, session_id, game, input, path, hit, reason, created_at)
		VALUES ($1, $2, $3, $4::jsonb, $5::jsonb, $6::jsonb, $7, NOW())
		RETURNING created_at
	`, s.ID, s.SessionID, string(s.Game), string(input), string(path), string(hit), string(s.Reason)).Scan(&s.CreatedAt)
	if err != nil {
		return fmt.Errorf("record shot %s: %w", s.ID, err)
	}
	return nil
}

func (r *Repository) Get(ctx context.Context, id uuid.UUID) (*Shot, error) {
	var rw row
	err := r.db.GetContext(ctx, &rw, `
		SELECT id, session_id, game, input, path, hit, reason, created_at
		FROM aim_shots
		WHERE id = $1
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get shot %s: %w", id, err)
	}
	return rw.shot()
}

// ListBySession returns the newest shots of a session first.
func (r *Repository) ListBySession(ctx context.Context, sessionID string, limit int) ([]*Shot, error) {
	var rows []row
	err := r.db.SelectContext(ctx, &rows, `
		SELECT id, session_id, game, input, path, hit, reason, created_at
		FROM aim_shots
		WHERE session_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("list shots for session %s: %w", sessionID, err)
	}

	out := make([]*Shot, 0, len(rows))
	for _, rw := range rows {
		s, err := rw.shot()
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}
