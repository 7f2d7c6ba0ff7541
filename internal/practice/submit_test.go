package practice

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/osimia/algoridmi/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errRollback = errors.New("rollback")

// withService runs fn with a Service bound to a transaction that is always
// rolled back. Set TEST_DATABASE_URL to enable.
func withService(t *testing.T, fn func(ctx context.Context, svc *Service, tx pgx.Tx)) {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := store.NewPool(ctx, dsn)
	require.NoError(t, err)
	defer pool.Close()
	require.NoError(t, store.Migrate(ctx, pool))

	err = store.InTx(ctx, pool, func(tx pgx.Tx) error {
		svc := NewService(tx, NewSubmitLimiter(0), slog.New(slog.NewTextHandler(io.Discard, nil)))
		fn(ctx, svc, tx)
		return errRollback
	})
	require.ErrorIs(t, err, errRollback)
}

func insertProblem(t *testing.T, ctx context.Context, tx pgx.Tx, difficulty int, answer string) int64 {
	t.Helper()
	var id int64
	require.NoError(t, tx.QueryRow(ctx, `
		INSERT INTO problems (title, difficulty, correct_answer, solution_steps)
		VALUES ('linear', $1, $2, 'subtract 3, divide by 2') RETURNING id
	`, difficulty, answer).Scan(&id))
	return id
}

func TestSubmitPersistsRatingSolvedCountAndAttempt(t *testing.T) {
	withService(t, func(ctx context.Context, svc *Service, tx pgx.Tx) {
		require.NoError(t, svc.Enroll(ctx, 900101, "gauss"))
		problemID := insertProblem(t, ctx, tx, 1000, "x = 4")

		out, err := svc.Submit(ctx, Submission{UserID: 900101, ProblemID: problemID, Answer: "X=4"})
		require.NoError(t, err)
		assert.True(t, out.Correct)
		assert.Equal(t, 16, out.Delta)
		assert.Equal(t, 1016, out.NewRating)
		assert.Equal(t, PointsTextCorrect, out.Points)
		assert.Equal(t, "subtract 3, divide by 2", out.SolutionSteps)

		out, err = svc.Submit(ctx, Submission{UserID: 900101, ProblemID: problemID, Answer: "5", HasPhoto: true})
		require.NoError(t, err)
		assert.False(t, out.Correct)
		assert.Equal(t, -16, out.Delta)
		assert.Equal(t, 1000, out.NewRating)

		p, err := store.NewProfileStore(tx).Get(ctx, 900101)
		require.NoError(t, err)
		assert.Equal(t, 1000, p.Rating)
		assert.Equal(t, 1, p.SolvedCount, "only the correct attempt counts")

		history, err := store.NewAttemptStore(tx).History(ctx, 900101, 10)
		require.NoError(t, err)
		require.Len(t, history, 2)
		var deltas []int
		for _, a := range history {
			deltas = append(deltas, a.RatingDelta)
		}
		assert.ElementsMatch(t, []int{16, -16}, deltas)
	})
}

func TestSubmitWithoutProfileWritesNothing(t *testing.T) {
	withService(t, func(ctx context.Context, svc *Service, tx pgx.Tx) {
		problemID := insertProblem(t, ctx, tx, 1000, "4")

		_, err := svc.Submit(ctx, Submission{UserID: 900102, ProblemID: problemID, Answer: "4"})
		assert.ErrorIs(t, err, ErrProfileNotFound)

		history, err := store.NewAttemptStore(tx).History(ctx, 900102, 10)
		require.NoError(t, err)
		assert.Empty(t, history)

		_, err = svc.Submit(ctx, Submission{UserID: 900102, ProblemID: -1, Answer: "4"})
		assert.ErrorIs(t, err, ErrProblemNotFound)
	})
}

func TestEnrollAndUpdateLearner(t *testing.T) {
	withService(t, func(ctx context.Context, svc *Service, tx pgx.Tx) {
		require.NoError(t, svc.Enroll(ctx, 900103, ""))
		require.NoError(t, svc.Enroll(ctx, 900103, ""))

		v, err := svc.Profile(ctx, 900103)
		require.NoError(t, err)
		assert.Equal(t, "user900103", v.Username)
		assert.Equal(t, 1000, v.Rating)

		v, err = svc.UpdateLearner(ctx, 900103, Learner{Grade: 9, Age: 15})
		require.NoError(t, err)
		assert.Equal(t, 1250, v.RecommendedDifficulty)

		_, err = svc.UpdateLearner(ctx, 900103, Learner{Age: 4})
		assert.ErrorIs(t, err, ErrInvalidLearner)

		_, err = svc.UpdateLearner(ctx, 900199, Learner{Grade: 3})
		assert.ErrorIs(t, err, ErrProfileNotFound)
	})
}
