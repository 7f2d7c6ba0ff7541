package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
)

type Profile struct {
	UserID      int64     `json:"user_id"`
	Username    string    `json:"username"`
	Rating      int       `json:"rating"`
	SolvedCount int       `json:"solved_count"`
	Grade       int       `json:"grade,omitempty"`
	Age         int       `json:"age,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

type ProfileStore struct {
	db DBTX
}

func NewProfileStore(db DBTX) *ProfileStore {
	return &ProfileStore{db: db}
}

const profileColumns = `user_id, username, rating, solved_count, grade, age, created_at`

func scanProfile(row pgx.Row) (*Profile, error) {
	p := &Profile{}
	err := row.Scan(&p.UserID, &p.Username, &p.Rating, &p.SolvedCount, &p.Grade, &p.Age, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Upsert creates the profile with the default rating, or refreshes the
// username of an existing one. An empty username keeps the stored one.
func (s *ProfileStore) Upsert(ctx context.Context, userID int64, username string) (*Profile, error) {
	return scanProfile(s.db.QueryRow(ctx, `
		INSERT INTO profiles (user_id, username) VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE
		SET username = COALESCE(NULLIF(EXCLUDED.username, ''), profiles.username), updated_at = now()
		RETURNING `+profileColumns,
		userID, username))
}

func (s *ProfileStore) Get(ctx context.Context, userID int64) (*Profile, error) {
	return scanProfile(s.db.QueryRow(ctx, `
		SELECT `+profileColumns+` FROM profiles WHERE user_id = $1
	`, userID))
}

// GetForUpdate locks the profile row until the surrounding transaction ends.
// Concurrent attempts by the same user queue up here.
func (s *ProfileStore) GetForUpdate(ctx context.Context, userID int64) (*Profile, error) {
	return scanProfile(s.db.QueryRow(ctx, `
		SELECT `+profileColumns+` FROM profiles WHERE user_id = $1 FOR UPDATE
	`, userID))
}

// ApplyRating stores a new rating and bumps solved_count when solved is set.
func (s *ProfileStore) ApplyRating(ctx context.Context, userID int64, newRating int, solved bool) error {
	inc := 0
	if solved {
		inc = 1
	}
	_, err := s.db.Exec(ctx, `
		UPDATE profiles
		SET rating = $2,
		    solved_count = solved_count + $3,
		    updated_at = now()
		WHERE user_id = $1
	`, userID, newRating, inc)
	return err
}

// SetLearner stores the school grade and age used for difficulty
// recommendations. It returns nil when the profile does not exist.
func (s *ProfileStore) SetLearner(ctx context.Context, userID int64, grade, age int) (*Profile, error) {
	return scanProfile(s.db.QueryRow(ctx, `
		UPDATE profiles SET grade = $2, age = $3, updated_at = now() WHERE user_id = $1
		RETURNING `+profileColumns,
		userID, grade, age))
}

// Ratings returns the current rating of every profile keyed by user.
func (s *ProfileStore) Ratings(ctx context.Context) (map[int64]int, error) {
	rows, err := s.db.Query(ctx, `SELECT user_id, rating FROM profiles`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[int64]int)
	for rows.Next() {
		var id int64
		var r int
		if err := rows.Scan(&id, &r); err != nil {
			return nil, err
		}
		out[id] = r
	}
	return out, rows.Err()
}
