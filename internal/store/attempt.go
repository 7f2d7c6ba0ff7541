package store

import (
	"context"
	"time"
)

type Attempt struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"user_id"`
	ProblemID   int64     `json:"problem_id"`
	Answer      string    `json:"answer"`
	HasPhoto    bool      `json:"has_photo"`
	Correct     bool      `json:"is_correct"`
	Points      int       `json:"points"`
	RatingDelta int       `json:"rating_delta"`
	CreatedAt   time.Time `json:"created_at"`
}

type AttemptStore struct {
	db DBTX
}

func NewAttemptStore(db DBTX) *AttemptStore {
	return &AttemptStore{db: db}
}

// Record inserts a and fills in its ID and CreatedAt.
func (s *AttemptStore) Record(ctx context.Context, a *Attempt) error {
	return s.db.QueryRow(ctx, `
		INSERT INTO attempts (user_id, problem_id, answer, has_photo, is_correct, points, rating_delta)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`, a.UserID, a.ProblemID, a.Answer, a.HasPhoto, a.Correct, a.Points, a.RatingDelta,
	).Scan(&a.ID, &a.CreatedAt)
}

// PointsSince sums the points of correct attempts per user. A zero since
// counts all time.
func (s *AttemptStore) PointsSince(ctx context.Context, since time.Time) (map[int64]int, error) {
	rows, err := s.db.Query(ctx, `
		SELECT user_id, COALESCE(SUM(points), 0)
		FROM attempts
		WHERE is_correct AND created_at >= $1
		GROUP BY user_id
	`, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[int64]int)
	for rows.Next() {
		var id int64
		var pts int
		if err := rows.Scan(&id, &pts); err != nil {
			return nil, err
		}
		out[id] = pts
	}
	return out, rows.Err()
}

func (s *AttemptStore) History(ctx context.Context, userID int64, limit int) ([]Attempt, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, user_id, problem_id, answer, has_photo, is_correct, points, rating_delta, created_at
		FROM attempts WHERE user_id = $1
		ORDER BY created_at DESC LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Attempt
	for rows.Next() {
		var a Attempt
		if err := rows.Scan(&a.ID, &a.UserID, &a.ProblemID, &a.Answer, &a.HasPhoto,
			&a.Correct, &a.Points, &a.RatingDelta, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
