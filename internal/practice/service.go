package practice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/osimia/algoridmi/internal/arena"
	"github.com/osimia/algoridmi/internal/rating"
	"github.com/osimia/algoridmi/internal/store"
)

var (
	ErrRateLimited     = errors.New("too many submissions")
	ErrProblemNotFound = errors.New("problem not found")
	ErrProfileNotFound = errors.New("profile not found")
	ErrInvalidLearner  = errors.New("grade must be 1-12 and age 5-100")
)

// Submission is one answer to a problem.
type Submission struct {
	UserID    int64  `json:"-"`
	ProblemID int64  `json:"problem_id"`
	Answer    string `json:"answer"`
	HasPhoto  bool   `json:"has_photo"`
}

// Outcome is reported back to the learner.
type Outcome struct {
	AttemptID     int64  `json:"attempt_id"`
	Correct       bool   `json:"is_correct"`
	Points        int    `json:"points_awarded"`
	Delta         int    `json:"index_change"`
	NewRating     int    `json:"new_index"`
	CorrectAnswer string `json:"correct_answer"`
	SolutionSteps string `json:"solution_steps"`
}

// Learner holds the profile fields a user edits. Zero leaves a field unset.
type Learner struct {
	Grade int `json:"grade"`
	Age   int `json:"age"`
}

func (l Learner) valid() bool {
	return (l.Grade == 0 || (l.Grade >= 1 && l.Grade <= 12)) &&
		(l.Age == 0 || (l.Age >= 5 && l.Age <= 100))
}

// ProfileView is a profile with the values derived from its rating.
type ProfileView struct {
	store.Profile
	Title                 string         `json:"rank_title"`
	Division              arena.Division `json:"division"`
	RecommendedDifficulty int            `json:"recommended_difficulty"`
}

type Service struct {
	db       store.Conn
	problems *store.ProblemStore
	profiles *store.ProfileStore
	limiter  *SubmitLimiter
	logger   *slog.Logger
}

func NewService(db store.Conn, limiter *SubmitLimiter, logger *slog.Logger) *Service {
	return &Service{
		db:       db,
		problems: store.NewProblemStore(db),
		profiles: store.NewProfileStore(db),
		limiter:  limiter,
		logger:   logger,
	}
}

// Enroll creates the user's profile at the default rating if it does not
// exist yet. Users without a username claim get a generated one.
func (s *Service) Enroll(ctx context.Context, userID int64, username string) error {
	if username == "" {
		username = "user" + strconv.FormatInt(userID, 10)
	}
	if _, err := s.profiles.Upsert(ctx, userID, username); err != nil {
		return fmt.Errorf("enroll %d: %w", userID, err)
	}
	return nil
}

// Submit grades an attempt and applies it to the user's rating. The profile
// row stays locked from read to write so concurrent attempts by one user are
// applied one after another.
func (s *Service) Submit(ctx context.Context, sub Submission) (*Outcome, error) {
	if !s.limiter.Allow(sub.UserID) {
		return nil, ErrRateLimited
	}

	problem, err := s.problems.Get(ctx, sub.ProblemID)
	if err != nil {
		return nil, fmt.Errorf("load problem: %w", err)
	}
	if problem == nil {
		return nil, ErrProblemNotFound
	}

	correct := AnswerMatches(problem.CorrectAnswer, sub.Answer)
	attempt := &store.Attempt{
		UserID:    sub.UserID,
		ProblemID: sub.ProblemID,
		Answer:    sub.Answer,
		HasPhoto:  sub.HasPhoto,
		Correct:   correct,
		Points:    Points(correct, sub.HasPhoto),
	}

	var res rating.Result
	err = store.InTx(ctx, s.db, func(tx pgx.Tx) error {
		profiles := store.NewProfileStore(tx)
		p, err := profiles.GetForUpdate(ctx, sub.UserID)
		if err != nil {
			return fmt.Errorf("lock profile: %w", err)
		}
		if p == nil {
			return ErrProfileNotFound
		}

		res = rating.Update(p.Rating, problem.Difficulty, correct)
		if err := profiles.ApplyRating(ctx, sub.UserID, res.NewRating, res.Solved); err != nil {
			return fmt.Errorf("apply rating: %w", err)
		}

		attempt.RatingDelta = res.Delta
		if err := store.NewAttemptStore(tx).Record(ctx, attempt); err != nil {
			return fmt.Errorf("record attempt: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("attempt graded",
		"user", sub.UserID,
		"problem", sub.ProblemID,
		"correct", correct,
		"delta", res.Delta,
		"rating", res.NewRating,
	)

	return &Outcome{
		AttemptID:     attempt.ID,
		Correct:       correct,
		Points:        attempt.Points,
		Delta:         res.Delta,
		NewRating:     res.NewRating,
		CorrectAnswer: problem.CorrectAnswer,
		SolutionSteps: problem.SolutionSteps,
	}, nil
}

func (s *Service) Profile(ctx context.Context, userID int64) (*ProfileView, error) {
	p, err := s.profiles.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrProfileNotFound
	}
	return View(p), nil
}

func (s *Service) UpdateLearner(ctx context.Context, userID int64, l Learner) (*ProfileView, error) {
	if !l.valid() {
		return nil, ErrInvalidLearner
	}
	p, err := s.profiles.SetLearner(ctx, userID, l.Grade, l.Age)
	if err != nil {
		return nil, fmt.Errorf("update learner: %w", err)
	}
	if p == nil {
		return nil, ErrProfileNotFound
	}
	return View(p), nil
}

// View derives the display fields of p.
func View(p *store.Profile) *ProfileView {
	return &ProfileView{
		Profile:               *p,
		Title:                 rating.Title(p.Rating),
		Division:              arena.DivisionFor(p.Rating),
		RecommendedDifficulty: rating.RecommendedDifficulty(p.Grade, p.Age, p.Rating),
	}
}
