package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
)

type Problem struct {
	ID            int64  `json:"id"`
	Title         string `json:"title"`
	Difficulty    int    `json:"difficulty"`
	CorrectAnswer string `json:"-"`
	SolutionSteps string `json:"-"`
}

// ProblemStore reads the problem bank. Problems are written by the importer.
type ProblemStore struct {
	db DBTX
}

func NewProblemStore(db DBTX) *ProblemStore {
	return &ProblemStore{db: db}
}

func (s *ProblemStore) Get(ctx context.Context, id int64) (*Problem, error) {
	p := &Problem{}
	err := s.db.QueryRow(ctx, `
		SELECT id, title, difficulty, correct_answer, solution_steps
		FROM problems WHERE id = $1
	`, id).Scan(&p.ID, &p.Title, &p.Difficulty, &p.CorrectAnswer, &p.SolutionSteps)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return p, err
}
