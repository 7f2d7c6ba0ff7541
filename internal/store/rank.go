package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/osimia/algoridmi/internal/arena"
)

type RankStore struct {
	db DBTX
}

func NewRankStore(db DBTX) *RankStore {
	return &RankStore{db: db}
}

const rankColumns = `user_id, rating, division, weekly_score, position, total_cups, total_medals`

func scanRank(row pgx.Row) (*arena.Rank, error) {
	r := &arena.Rank{}
	var div string
	if err := row.Scan(&r.UserID, &r.Rating, &div, &r.WeeklyScore, &r.Position, &r.TotalCups, &r.TotalMedals); err != nil {
		return nil, err
	}
	r.Division = arena.Division(div)
	return r, nil
}

func (s *RankStore) Get(ctx context.Context, userID int64) (*arena.Rank, error) {
	r, err := scanRank(s.db.QueryRow(ctx, `
		SELECT `+rankColumns+` FROM arena_ranks WHERE user_id = $1
	`, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return r, err
}

// Touch creates the user's arena row on first interaction, or refreshes the
// cached rating and division of an existing one. Scores and award counters
// are left alone; a row that changes division loses its position until the
// next re-rank.
func (s *RankStore) Touch(ctx context.Context, userID int64, rating int) (*arena.Rank, error) {
	return scanRank(s.db.QueryRow(ctx, `
		INSERT INTO arena_ranks (user_id, rating, division) VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE
		SET rating = EXCLUDED.rating,
		    division = EXCLUDED.division,
		    position = CASE WHEN arena_ranks.division <> EXCLUDED.division THEN 0 ELSE arena_ranks.position END,
		    updated_at = now()
		RETURNING `+rankColumns,
		userID, rating, string(arena.DivisionFor(rating))))
}

// ListForUpdate loads every arena row in user order and locks them until the
// surrounding transaction ends.
func (s *RankStore) ListForUpdate(ctx context.Context) ([]*arena.Rank, error) {
	return s.list(ctx, `SELECT `+rankColumns+` FROM arena_ranks ORDER BY user_id FOR UPDATE`)
}

// Division returns up to limit ranked rows of d in position order.
func (s *RankStore) Division(ctx context.Context, d arena.Division, limit int) ([]*arena.Rank, error) {
	return s.list(ctx, `
		SELECT `+rankColumns+` FROM arena_ranks
		WHERE division = $1
		ORDER BY position = 0, position, weekly_score DESC, rating DESC, user_id
		LIMIT $2
	`, string(d), limit)
}

func (s *RankStore) list(ctx context.Context, sql string, args ...any) ([]*arena.Rank, error) {
	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*arena.Rank
	for rows.Next() {
		r, err := scanRank(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// SaveBatch writes every given row in one round trip, inserting rows that do
// not exist yet.
func (s *RankStore) SaveBatch(ctx context.Context, ranks []*arena.Rank) error {
	if len(ranks) == 0 {
		return nil
	}
	b := &pgx.Batch{}
	for _, r := range ranks {
		b.Queue(`
			INSERT INTO arena_ranks (user_id, rating, division, weekly_score, position, total_cups, total_medals)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (user_id) DO UPDATE SET
			    rating = EXCLUDED.rating,
			    division = EXCLUDED.division,
			    weekly_score = EXCLUDED.weekly_score,
			    position = EXCLUDED.position,
			    total_cups = EXCLUDED.total_cups,
			    total_medals = EXCLUDED.total_medals,
			    updated_at = now()
		`, r.UserID, r.Rating, string(r.Division), r.WeeklyScore, r.Position, r.TotalCups, r.TotalMedals)
	}
	br := s.db.SendBatch(ctx, b)
	for _, r := range ranks {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return fmt.Errorf("save rank %d: %w", r.UserID, err)
		}
	}
	return br.Close()
}
