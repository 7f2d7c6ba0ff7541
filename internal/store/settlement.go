package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/osimia/algoridmi/internal/arena"
)

type Settlement struct {
	ID         uuid.UUID `json:"id"`
	AwardCount int       `json:"award_count"`
	SettledAt  time.Time `json:"settled_at"`
}

// AwardRecord is an award as persisted, tagged with its settlement run.
type AwardRecord struct {
	arena.Award
	SettlementID uuid.UUID `json:"settlement_id"`
	CreatedAt    time.Time `json:"created_at"`
}

type SettlementStore struct {
	db DBTX
}

func NewSettlementStore(db DBTX) *SettlementStore {
	return &SettlementStore{db: db}
}

// Record stores one settlement run and all of its awards.
func (s *SettlementStore) Record(ctx context.Context, id uuid.UUID, awards []arena.Award) (*Settlement, error) {
	se := &Settlement{ID: id, AwardCount: len(awards)}
	err := s.db.QueryRow(ctx, `
		INSERT INTO settlements (id, award_count) VALUES ($1, $2)
		RETURNING settled_at
	`, id, len(awards)).Scan(&se.SettledAt)
	if err != nil {
		return nil, fmt.Errorf("insert settlement: %w", err)
	}
	if len(awards) == 0 {
		return se, nil
	}

	b := &pgx.Batch{}
	for _, a := range awards {
		b.Queue(`
			INSERT INTO arena_awards (settlement_id, user_id, division, position, weekly_score, label)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, id, a.UserID, string(a.Division), a.Position, a.WeeklyScore, a.Label)
	}
	br := s.db.SendBatch(ctx, b)
	for range awards {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return nil, fmt.Errorf("insert award: %w", err)
		}
	}
	return se, br.Close()
}

func (s *SettlementStore) Latest(ctx context.Context) (*Settlement, error) {
	se := &Settlement{}
	err := s.db.QueryRow(ctx, `
		SELECT id, award_count, settled_at FROM settlements ORDER BY settled_at DESC LIMIT 1
	`).Scan(&se.ID, &se.AwardCount, &se.SettledAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return se, err
}

// Awards returns a user's most recent awards first.
func (s *SettlementStore) Awards(ctx context.Context, userID int64, limit int) ([]AwardRecord, error) {
	rows, err := s.db.Query(ctx, `
		SELECT settlement_id, user_id, division, position, weekly_score, label, created_at
		FROM arena_awards WHERE user_id = $1
		ORDER BY created_at DESC, id DESC LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []AwardRecord
	for rows.Next() {
		var a AwardRecord
		var div string
		if err := rows.Scan(&a.SettlementID, &a.UserID, &div, &a.Position, &a.WeeklyScore, &a.Label, &a.CreatedAt); err != nil {
			return nil, err
		}
		a.Division = arena.Division(div)
		out = append(out, a)
	}
	return out, rows.Err()
}
