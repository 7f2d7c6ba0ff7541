package leaderboard

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/osimia/algoridmi/internal/arena"
	"github.com/osimia/algoridmi/internal/cache"
)

const (
	EventStandings = "standings"
	EventAwards    = "awards"
)

// FeedSize caps the standings carried by one event.
const FeedSize = 50

type Event struct {
	Type      string         `json:"type"`
	Division  arena.Division `json:"division,omitempty"`
	Standings []arena.Rank   `json:"standings,omitempty"`
	Awards    []arena.Award  `json:"awards,omitempty"`
}

// Announce publishes ev to every listening server.
func (s *Service) Announce(ctx context.Context, ev Event) error {
	raw, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	return s.rdb.Publish(ctx, cache.ChannelArenaEvents, raw).Err()
}

// Listen delivers announced events to fn until ctx is done.
func (s *Service) Listen(ctx context.Context, fn func(Event)) error {
	sub := s.rdb.Subscribe(ctx, cache.ChannelArenaEvents)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var ev Event
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				continue
			}
			fn(ev)
		}
	}
}
