package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/osimia/algoridmi/internal/arena"
	"github.com/osimia/algoridmi/internal/config"
	"github.com/osimia/algoridmi/internal/practice"
	"github.com/osimia/algoridmi/internal/store"
	"github.com/osimia/algoridmi/internal/tournament"
	"github.com/redis/go-redis/v9"
)

// Practice grades attempts and serves profiles.
type Practice interface {
	Enroll(ctx context.Context, userID int64, username string) error
	Submit(ctx context.Context, sub practice.Submission) (*practice.Outcome, error)
	Profile(ctx context.Context, userID int64) (*practice.ProfileView, error)
	UpdateLearner(ctx context.Context, userID int64, l practice.Learner) (*practice.ProfileView, error)
}

// Arena serves the weekly tournament.
type Arena interface {
	Stats(ctx context.Context, userID int64) (*arena.Rank, error)
	Standing(ctx context.Context, d arena.Division, userID int64) (*arena.Rank, error)
	Leaderboard(ctx context.Context, d arena.Division, limit int) ([]arena.Rank, error)
	Awards(ctx context.Context, userID int64, limit int) ([]store.AwardRecord, error)
	LatestSettlement(ctx context.Context) (*store.Settlement, error)
}

const (
	maxLimit      = 100
	sweepInterval = 5 * time.Minute
)

type Server struct {
	cfg         *config.Config
	db          *pgxpool.Pool
	rdb         *redis.Client
	hub         *Hub
	logger      *slog.Logger
	mux         *http.ServeMux
	practice    Practice
	arena       Arena
	metrics     *Metrics
	ipLimiter   *RateLimiter
	userLimiter *RateLimiter
	enrolled    sync.Map
}

func New(cfg *config.Config, db *pgxpool.Pool, rdb *redis.Client, hub *Hub, metrics *Metrics, logger *slog.Logger) *Server {
	s := &Server{
		cfg:         cfg,
		db:          db,
		rdb:         rdb,
		hub:         hub,
		logger:      logger,
		mux:         http.NewServeMux(),
		metrics:     metrics,
		ipLimiter:   NewRateLimiter(30, 60),
		userLimiter: NewRateLimiter(10, 20),
	}
	s.routes()
	return s
}

func (s *Server) SetPractice(p Practice) {
	s.practice = p
}

func (s *Server) SetArena(a Arena) {
	s.arena = a
}

func (s *Server) routes() {
	public := RateLimitMiddleware(s.ipLimiter, clientIP, s.logger)
	api := func(h http.HandlerFunc) http.Handler {
		return ChainMiddleware(h,
			AuthMiddleware(s.cfg.JWTSecret),
			RateLimitMiddleware(s.userLimiter, userKey, s.logger),
			s.enroll,
		)
	}

	s.mux.Handle("GET /health", public(http.HandlerFunc(s.handleHealth)))
	s.mux.Handle("GET /metrics", public(s.metrics))
	if s.hub != nil {
		s.mux.Handle("GET /ws", public(s.hub))
	}

	s.mux.Handle("POST /api/attempts", api(s.handleSubmitAttempt))
	s.mux.Handle("GET /api/profile", api(s.handleProfile))
	s.mux.Handle("PATCH /api/profile", api(s.handleUpdateProfile))

	s.mux.Handle("GET /api/arena/leaderboard", api(s.handleLeaderboard))
	s.mux.Handle("GET /api/arena/stats", api(s.handleArenaStats))
	s.mux.Handle("GET /api/arena/awards", api(s.handleAwards))
	s.mux.Handle("GET /api/arena/settlements/latest", api(s.handleLatestSettlement))
}

// enroll creates the caller's profile on their first authenticated request,
// named after the token's username claim.
func (s *Server) enroll(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := UserID(r.Context())
		if _, ok := s.enrolled.Load(userID); !ok && s.practice != nil {
			if err := s.practice.Enroll(r.Context(), userID, Username(r.Context())); err != nil {
				s.logger.Error("enroll", "user", userID, "err", err)
				http.Error(w, "internal error", http.StatusInternalServerError)
				return
			}
			s.enrolled.Store(userID, struct{}{})
		}
		next.ServeHTTP(w, r)
	})
}

// Sweep drops idle rate limit buckets until ctx is done.
func (s *Server) Sweep(ctx context.Context) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.ipLimiter.Sweep()
			s.userLimiter.Sweep()
		case <-ctx.Done():
			return
		}
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := map[string]string{"status": "ok"}

	if s.db != nil {
		if err := s.db.Ping(ctx); err != nil {
			status["db"] = "down"
			status["status"] = "degraded"
		} else {
			status["db"] = "ok"
		}
	}

	if s.rdb != nil {
		if err := s.rdb.Ping(ctx).Err(); err != nil {
			status["redis"] = "down"
			status["status"] = "degraded"
		} else {
			status["redis"] = "ok"
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if status["status"] != "ok" {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	if err := json.NewEncoder(w).Encode(status); err != nil {
		s.logger.Error("write json", "err", err)
		return
	}
}

func (s *Server) handleSubmitAttempt(w http.ResponseWriter, r *http.Request) {
	if s.practice == nil {
		http.Error(w, "service unavailable", http.StatusServiceUnavailable)
		return
	}
	var sub practice.Submission
	if err := json.NewDecoder(r.Body).Decode(&sub); err != nil || sub.ProblemID <= 0 {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	sub.UserID = UserID(r.Context())

	out, err := s.practice.Submit(r.Context(), sub)
	switch {
	case errors.Is(err, practice.ErrRateLimited):
		http.Error(w, err.Error(), http.StatusTooManyRequests)
		return
	case errors.Is(err, practice.ErrProblemNotFound), errors.Is(err, practice.ErrProfileNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	case err != nil:
		s.logger.Error("submit attempt", "user", sub.UserID, "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	s.metrics.IncrAttempt(out.Correct)
	writeJSON(w, out)
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	if s.practice == nil {
		http.Error(w, "service unavailable", http.StatusServiceUnavailable)
		return
	}
	p, err := s.practice.Profile(r.Context(), UserID(r.Context()))
	if errors.Is(err, practice.ErrProfileNotFound) {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, p)
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	if s.practice == nil {
		http.Error(w, "service unavailable", http.StatusServiceUnavailable)
		return
	}
	var l practice.Learner
	if err := json.NewDecoder(r.Body).Decode(&l); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	p, err := s.practice.UpdateLearner(r.Context(), UserID(r.Context()), l)
	switch {
	case errors.Is(err, practice.ErrInvalidLearner):
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	case errors.Is(err, practice.ErrProfileNotFound):
		http.Error(w, "not found", http.StatusNotFound)
		return
	case err != nil:
		s.logger.Error("update profile", "user", UserID(r.Context()), "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, p)
}

func (s *Server) handleArenaStats(w http.ResponseWriter, r *http.Request) {
	if s.arena == nil {
		http.Error(w, "service unavailable", http.StatusServiceUnavailable)
		return
	}
	rank, err := s.arena.Stats(r.Context(), UserID(r.Context()))
	if errors.Is(err, tournament.ErrProfileNotFound) {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, rank)
}

// handleLeaderboard serves a division's standings. Without a division the
// caller's own is used, which also enrolls them in the arena.
func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	if s.arena == nil {
		http.Error(w, "service unavailable", http.StatusServiceUnavailable)
		return
	}
	ctx := r.Context()
	userID := UserID(ctx)

	limit := s.cfg.LeaderboardLimit
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 && n <= maxLimit {
			limit = n
		}
	}

	var (
		division arena.Division
		me       *arena.Rank
		err      error
	)
	if d := r.URL.Query().Get("division"); d != "" {
		division, err = arena.ParseDivision(d)
		if err != nil {
			http.Error(w, "bad division", http.StatusBadRequest)
			return
		}
		me, err = s.arena.Standing(ctx, division, userID)
	} else {
		me, err = s.arena.Stats(ctx, userID)
		if errors.Is(err, tournament.ErrProfileNotFound) {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		if me != nil {
			division = me.Division
		}
	}
	if err != nil {
		s.logger.Error("leaderboard standing", "user", userID, "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	entries, err := s.arena.Leaderboard(ctx, division, limit)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if entries == nil {
		entries = []arena.Rank{}
	}
	writeJSON(w, struct {
		Division    arena.Division `json:"division"`
		Leaderboard []arena.Rank   `json:"leaderboard"`
		UserRank    *arena.Rank    `json:"user_rank"`
	}{division, entries, me})
}

func (s *Server) handleAwards(w http.ResponseWriter, r *http.Request) {
	if s.arena == nil {
		http.Error(w, "service unavailable", http.StatusServiceUnavailable)
		return
	}
	limit := 20
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 && n <= maxLimit {
			limit = n
		}
	}
	awards, err := s.arena.Awards(r.Context(), UserID(r.Context()), limit)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if awards == nil {
		awards = []store.AwardRecord{}
	}
	writeJSON(w, awards)
}

func (s *Server) handleLatestSettlement(w http.ResponseWriter, r *http.Request) {
	if s.arena == nil {
		http.Error(w, "service unavailable", http.StatusServiceUnavailable)
		return
	}
	se, err := s.arena.LatestSettlement(r.Context())
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if se == nil {
		http.Error(w, "no settlement yet", http.StatusNotFound)
		return
	}
	writeJSON(w, se)
}

func (s *Server) Handler() http.Handler {
	return ChainMiddleware(s.mux,
		RecoveryMiddleware(s.logger),
		LoggingMiddleware(s.logger),
	)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
}
