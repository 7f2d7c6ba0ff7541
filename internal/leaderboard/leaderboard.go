package leaderboard

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/osimia/algoridmi/internal/arena"
	"github.com/osimia/algoridmi/internal/cache"
	"github.com/redis/go-redis/v9"
)

// Service caches the published standings of each division in Redis.
// Postgres stays the source of truth; Publish replaces a whole division.
type Service struct {
	rdb *redis.Client
}

func NewService(rdb *redis.Client) *Service {
	return &Service{rdb: rdb}
}

// Publish replaces the cached standings of d with ranks. Unranked rows are
// skipped.
func (s *Service) Publish(ctx context.Context, d arena.Division, ranks []*arena.Rank) error {
	zkey := fmt.Sprintf(cache.KeyStandings, d)
	hkey := fmt.Sprintf(cache.KeyEntries, d)

	members := make([]redis.Z, 0, len(ranks))
	entries := make(map[string]any, len(ranks))
	for _, r := range ranks {
		if r.Division != d || r.Position == 0 {
			continue
		}
		member := strconv.FormatInt(r.UserID, 10)
		raw, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("encode rank %d: %w", r.UserID, err)
		}
		members = append(members, redis.Z{Score: float64(r.Position), Member: member})
		entries[member] = raw
	}

	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, zkey, hkey)
		if len(members) > 0 {
			pipe.ZAdd(ctx, zkey, members...)
			pipe.HSet(ctx, hkey, entries)
		}
		return nil
	})
	return err
}

// Top returns up to count entries of d in position order.
func (s *Service) Top(ctx context.Context, d arena.Division, count int64) ([]arena.Rank, error) {
	members, err := s.rdb.ZRange(ctx, fmt.Sprintf(cache.KeyStandings, d), 0, count-1).Result()
	if err != nil {
		return nil, err
	}
	if len(members) == 0 {
		return nil, nil
	}
	raws, err := s.rdb.HMGet(ctx, fmt.Sprintf(cache.KeyEntries, d), members...).Result()
	if err != nil {
		return nil, err
	}
	out := make([]arena.Rank, 0, len(raws))
	for _, raw := range raws {
		str, ok := raw.(string)
		if !ok {
			continue
		}
		var r arena.Rank
		if err := json.Unmarshal([]byte(str), &r); err != nil {
			return nil, fmt.Errorf("decode entry: %w", err)
		}
		out = append(out, r)
	}
	return out, nil
}

// Entry returns a user's cached standing in d, or nil if absent.
func (s *Service) Entry(ctx context.Context, d arena.Division, userID int64) (*arena.Rank, error) {
	raw, err := s.rdb.HGet(ctx, fmt.Sprintf(cache.KeyEntries, d), strconv.FormatInt(userID, 10)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var r arena.Rank
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		return nil, fmt.Errorf("decode entry: %w", err)
	}
	return &r, nil
}
