package tournament

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/osimia/algoridmi/internal/arena"
	"github.com/osimia/algoridmi/internal/cache"
	"github.com/osimia/algoridmi/internal/leaderboard"
	"github.com/osimia/algoridmi/internal/store"
	"github.com/redis/go-redis/v9"
)

var (
	ErrSettlementRunning = errors.New("another arena job is running")
	ErrProfileNotFound   = errors.New("profile not found")
)

type SyncReport struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
	Moved   int `json:"moved"`
}

type SettleReport struct {
	ID        uuid.UUID     `json:"id"`
	Awards    []arena.Award `json:"awards"`
	SettledAt time.Time     `json:"settled_at"`
}

type Service struct {
	db      store.Conn
	rdb     *redis.Client
	board   *leaderboard.Service
	lockTTL time.Duration
	logger  *slog.Logger
	newID   func() uuid.UUID
}

func NewService(db store.Conn, rdb *redis.Client, lockTTL time.Duration, logger *slog.Logger) *Service {
	return &Service{
		db:      db,
		rdb:     rdb,
		board:   leaderboard.NewService(rdb),
		lockTTL: lockTTL,
		logger:  logger,
		newID:   uuid.New,
	}
}

// Sync copies every user's rating and points earned since the given time
// into the arena, reclassifies divisions and re-ranks them. A zero since
// counts all time.
func (s *Service) Sync(ctx context.Context, since time.Time) (*SyncReport, error) {
	var ranks []*arena.Rank
	report := &SyncReport{}
	err := s.locked(ctx, func() error {
		return store.InTx(ctx, s.db, func(tx pgx.Tx) error {
			ratings, err := store.NewProfileStore(tx).Ratings(ctx)
			if err != nil {
				return fmt.Errorf("load ratings: %w", err)
			}
			points, err := store.NewAttemptStore(tx).PointsSince(ctx, since)
			if err != nil {
				return fmt.Errorf("load points: %w", err)
			}
			rs := store.NewRankStore(tx)
			existing, err := rs.ListForUpdate(ctx)
			if err != nil {
				return fmt.Errorf("load ranks: %w", err)
			}

			ranks, *report = merge(existing, ratings, points)
			return rs.SaveBatch(ctx, ranks)
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("arena synced",
		"created", report.Created,
		"updated", report.Updated,
		"moved", report.Moved,
		"since", since,
	)
	s.publish(ctx, ranks, nil)
	return report, nil
}

// merge folds fresh ratings and weekly points into the arena rows, creating
// rows for profiles that have none, then re-ranks every division. Rows come
// back in user order, which is also the final ranking tie-break.
func merge(existing []*arena.Rank, ratings, points map[int64]int) ([]*arena.Rank, SyncReport) {
	var report SyncReport
	seen := make(map[int64]bool, len(existing))
	ranks := make([]*arena.Rank, 0, len(ratings))
	for _, r := range existing {
		seen[r.UserID] = true
		ranks = append(ranks, r)
	}
	for id, rating := range ratings {
		if seen[id] {
			continue
		}
		ranks = append(ranks, &arena.Rank{
			UserID:   id,
			Rating:   rating,
			Division: arena.DivisionFor(rating),
		})
		report.Created++
	}
	sort.Slice(ranks, func(i, j int) bool { return ranks[i].UserID < ranks[j].UserID })

	for _, r := range ranks {
		if rating, ok := ratings[r.UserID]; ok {
			r.Rating = rating
		}
		r.WeeklyScore = points[r.UserID]
	}
	report.Updated = len(ranks) - report.Created
	report.Moved = arena.Reclassify(ranks)
	arena.RecomputeAll(ranks)
	return ranks, report
}

// RecomputeAll re-ranks every division from the stored scores.
func (s *Service) RecomputeAll(ctx context.Context) (int, error) {
	var ranks []*arena.Rank
	changed := 0
	err := s.locked(ctx, func() error {
		return store.InTx(ctx, s.db, func(tx pgx.Tx) error {
			rs := store.NewRankStore(tx)
			var err error
			ranks, err = rs.ListForUpdate(ctx)
			if err != nil {
				return fmt.Errorf("load ranks: %w", err)
			}
			dirty := arena.RecomputeAll(ranks)
			changed = len(dirty)
			return rs.SaveBatch(ctx, dirty)
		})
	})
	if err != nil {
		return 0, err
	}
	s.publish(ctx, ranks, nil)
	return changed, nil
}

// Settle closes the week. Awards, counter updates, the score reset and the
// re-rank commit together or not at all; the Redis lock keeps a second
// settlement or a sync from running alongside.
func (s *Service) Settle(ctx context.Context) (*SettleReport, error) {
	var ranks []*arena.Rank
	report := &SettleReport{ID: s.newID()}
	err := s.locked(ctx, func() error {
		return store.InTx(ctx, s.db, func(tx pgx.Tx) error {
			rs := store.NewRankStore(tx)
			var err error
			ranks, err = rs.ListForUpdate(ctx)
			if err != nil {
				return fmt.Errorf("load ranks: %w", err)
			}

			report.Awards = arena.SettleWeek(ranks)

			if err := rs.SaveBatch(ctx, ranks); err != nil {
				return fmt.Errorf("save ranks: %w", err)
			}
			se, err := store.NewSettlementStore(tx).Record(ctx, report.ID, report.Awards)
			if err != nil {
				return err
			}
			report.SettledAt = se.SettledAt
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("week settled",
		"settlement", report.ID,
		"awards", len(report.Awards),
		"ranks", len(ranks),
	)
	s.publish(ctx, ranks, report.Awards)
	return report, nil
}

// Stats returns the user's arena row, creating it on first interaction and
// refreshing its cached rating and division otherwise.
func (s *Service) Stats(ctx context.Context, userID int64) (*arena.Rank, error) {
	p, err := store.NewProfileStore(s.db).Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}
	if p == nil {
		return nil, ErrProfileNotFound
	}
	return store.NewRankStore(s.db).Touch(ctx, userID, p.Rating)
}

// Leaderboard returns the top of a division, from the cache when it has been
// published and from Postgres otherwise.
func (s *Service) Leaderboard(ctx context.Context, d arena.Division, limit int) ([]arena.Rank, error) {
	cached, err := s.board.Top(ctx, d, int64(limit))
	if err != nil {
		s.logger.Warn("leaderboard cache", "division", d, "err", err)
	}
	if len(cached) > 0 {
		return cached, nil
	}

	rows, err := store.NewRankStore(s.db).Division(ctx, d, limit)
	if err != nil {
		return nil, fmt.Errorf("load division: %w", err)
	}
	out := make([]arena.Rank, len(rows))
	for i, r := range rows {
		out[i] = *r
	}
	return out, nil
}

// Standing returns the user's row in d, or nil when they compete elsewhere
// or not at all. It reads the published standings first.
func (s *Service) Standing(ctx context.Context, d arena.Division, userID int64) (*arena.Rank, error) {
	cached, err := s.board.Entry(ctx, d, userID)
	if err != nil {
		s.logger.Warn("leaderboard cache", "division", d, "err", err)
	}
	if cached != nil {
		return cached, nil
	}

	r, err := store.NewRankStore(s.db).Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load rank: %w", err)
	}
	if r == nil || r.Division != d {
		return nil, nil
	}
	return r, nil
}

func (s *Service) Awards(ctx context.Context, userID int64, limit int) ([]store.AwardRecord, error) {
	return store.NewSettlementStore(s.db).Awards(ctx, userID, limit)
}

// LatestSettlement returns the most recent settlement run, or nil before the
// first one.
func (s *Service) LatestSettlement(ctx context.Context) (*store.Settlement, error) {
	return store.NewSettlementStore(s.db).Latest(ctx)
}

func (s *Service) locked(ctx context.Context, fn func() error) error {
	lock, err := cache.Acquire(ctx, s.rdb, cache.KeySettleLock, s.lockTTL)
	if errors.Is(err, cache.ErrLocked) {
		return ErrSettlementRunning
	}
	if err != nil {
		return err
	}
	defer func() {
		// Release on a fresh context so a cancelled caller still frees the lock.
		relCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := lock.Release(relCtx); err != nil {
			s.logger.Warn("release arena lock", "err", err)
		}
	}()
	return fn()
}

// publish pushes committed standings to the cache and announces them with
// any awards. Failures only degrade the cache; Postgres holds the truth.
func (s *Service) publish(ctx context.Context, ranks []*arena.Rank, awards []arena.Award) {
	for _, d := range arena.Divisions {
		standings := arena.Standings(ranks, d)
		if err := s.board.Publish(ctx, d, standings); err != nil {
			s.logger.Warn("publish standings", "division", d, "err", err)
		}
		if len(standings) > leaderboard.FeedSize {
			standings = standings[:leaderboard.FeedSize]
		}
		ev := leaderboard.Event{Type: leaderboard.EventStandings, Division: d, Standings: values(standings)}
		if err := s.board.Announce(ctx, ev); err != nil {
			s.logger.Warn("announce standings", "division", d, "err", err)
		}
	}
	if len(awards) > 0 {
		if err := s.board.Announce(ctx, leaderboard.Event{Type: leaderboard.EventAwards, Awards: awards}); err != nil {
			s.logger.Warn("announce awards", "err", err)
		}
	}
}

func values(ranks []*arena.Rank) []arena.Rank {
	out := make([]arena.Rank, len(ranks))
	for i, r := range ranks {
		out[i] = *r
	}
	return out
}
