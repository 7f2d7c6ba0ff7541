package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

func NewRedis(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return rdb, nil
}

const (
	KeyStandings  = "arena:standings:%s"
	KeyEntries    = "arena:entries:%s"
	KeySettleLock = "arena:lock:settlement"
)

// ErrLocked is returned when another holder owns the lock.
var ErrLocked = errors.New("lock held")

// Lock is a single-holder Redis lock with a TTL.
type Lock struct {
	rdb   *redis.Client
	key   string
	token string
}

// unlockScript deletes the key only if it still holds our token, so an
// expired lock taken over by another holder is never released by us.
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Acquire takes key for ttl or returns ErrLocked.
func Acquire(ctx context.Context, rdb *redis.Client, key string, ttl time.Duration) (*Lock, error) {
	token := uuid.NewString()
	ok, err := rdb.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire %s: %w", key, err)
	}
	if !ok {
		return nil, ErrLocked
	}
	return &Lock{rdb: rdb, key: key, token: token}, nil
}

func (l *Lock) Release(ctx context.Context) error {
	return unlockScript.Run(ctx, l.rdb, []string{l.key}, l.token).Err()
}

// ChannelArenaEvents carries standings and award announcements between the
// jobs that produce them and the servers holding websocket clients.
const ChannelArenaEvents = "arena:events"
