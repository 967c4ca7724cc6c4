package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	goredis "github.com/redis/go-redis/v9"

	"github.com/WebisityStudio/CircleEye-sub000/internal/domain"
	"github.com/WebisityStudio/CircleEye-sub000/internal/realtime"
)

// ChangeStream carries row change events over Redis pub/sub, one
// channel per table ("<table>:changes"). It implements both sides of
// the realtime contract: the store publishes after successful writes,
// sessions subscribe.
type ChangeStream struct {
	client *goredis.Client
	logger *slog.Logger
}

func NewChangeStream(r *Redis, logger *slog.Logger) *ChangeStream {
	return &ChangeStream{client: r.Client, logger: logger}
}

func channelFor(table string) string {
	return table + ":changes"
}

func (s *ChangeStream) Publish(ctx context.Context, event domain.ChangeEvent) error {
	b, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal change event: %w", err)
	}
	return s.client.Publish(ctx, channelFor(realtime.IncidentsTable), b).Err()
}

func (s *ChangeStream) Subscribe(ctx context.Context, table string, types ...domain.ChangeType) (realtime.Subscription, error) {
	pubsub := s.client.Subscribe(ctx, channelFor(table))

	// Force the SUBSCRIBE round trip so a dead broker fails here, not
	// silently in the pump.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("subscribe %s: %w", table, err)
	}

	wanted := make(map[domain.ChangeType]struct{}, len(types))
	for _, t := range types {
		wanted[t] = struct{}{}
	}

	sub := &subscription{
		pubsub: pubsub,
		events: make(chan domain.ChangeEvent, 16),
		done:   make(chan struct{}),
	}
	go sub.pump(s.logger, wanted)

	return sub, nil
}

type subscription struct {
	pubsub *goredis.PubSub
	events chan domain.ChangeEvent
	done   chan struct{}

	mu       sync.Mutex
	err      error
	released bool
}

func (s *subscription) pump(logger *slog.Logger, wanted map[domain.ChangeType]struct{}) {
	defer close(s.events)

	for msg := range s.pubsub.Channel() {
		var ev domain.ChangeEvent
		if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
			logger.Warn("dropping malformed change event", slog.Any("error", err))
			continue
		}
		if _, ok := wanted[ev.Type]; !ok {
			continue
		}
		// A consumer that unsubscribed may never drain; the send must
		// not outlive the subscription.
		select {
		case s.events <- ev:
		case <-s.done:
			return
		}
	}

	s.mu.Lock()
	if !s.released {
		s.err = errors.New("change stream connection lost")
	}
	s.mu.Unlock()
}

func (s *subscription) Events() <-chan domain.ChangeEvent { return s.events }

func (s *subscription) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *subscription) Unsubscribe() {
	s.mu.Lock()
	if s.released {
		s.mu.Unlock()
		return
	}
	s.released = true
	s.mu.Unlock()

	close(s.done)
	_ = s.pubsub.Close()
}
