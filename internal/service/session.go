package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/WebisityStudio/CircleEye-sub000/internal/domain"
	"github.com/WebisityStudio/CircleEye-sub000/internal/geo"
	"github.com/WebisityStudio/CircleEye-sub000/internal/observability"
	"github.com/WebisityStudio/CircleEye-sub000/internal/realtime"
)

// BoundsQuerier is the slice of the store a session needs to reseed.
type BoundsQuerier interface {
	GetActiveIncidentsInBounds(ctx context.Context, req domain.BoundsIncidentsRequest) ([]*domain.Incident, error)
}

const DefaultRefetchDebounce = 300 * time.Millisecond

type SessionConfig struct {
	Box      geo.Box
	Category domain.Category
	Limit    int
	Debounce time.Duration
}

// Session owns one scope's reconciler, its change-stream subscription
// and the debounced bounds refetch. Everything S-mutating runs on the
// session's single loop goroutine; consumers read snapshots from
// Updates. Teardown is the Run context: cancelling it unsubscribes and
// stops any pending debounce timer.
type Session struct {
	rec     *Reconciler
	store   BoundsQuerier
	channel realtime.Channel
	logger  *slog.Logger
	metrics *observability.Metrics
	clock   clockwork.Clock
	cfg     SessionConfig

	boundsCh chan geo.Box
	updates  chan []domain.Incident
}

func NewSession(
	store BoundsQuerier,
	channel realtime.Channel,
	logger *slog.Logger,
	metrics *observability.Metrics,
	clock clockwork.Clock,
	cfg SessionConfig,
) *Session {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultRefetchDebounce
	}
	return &Session{
		rec:      NewReconciler(cfg.Box, clock, metrics),
		store:    store,
		channel:  channel,
		logger:   logger,
		metrics:  metrics,
		clock:    clock,
		cfg:      cfg,
		boundsCh: make(chan geo.Box, 1),
		updates:  make(chan []domain.Incident, 1),
	}
}

// Reconciler exposes the session's set for like controllers.
func (s *Session) Reconciler() *Reconciler { return s.rec }

// Updates emits a fresh snapshot after every applied change. Slow
// consumers only ever miss intermediate states: the latest snapshot
// replaces an unread one. Closed when Run returns.
func (s *Session) Updates() <-chan []domain.Incident { return s.updates }

// SetBounds records a viewport change. Bursts coalesce: the refetch
// fires once the configured quiet period elapses after the last call.
func (s *Session) SetBounds(box geo.Box) {
	for {
		select {
		case s.boundsCh <- box:
			return
		default:
			// Replace the stale pending box with the newest.
			select {
			case <-s.boundsCh:
			default:
			}
		}
	}
}

// Run drives the session until ctx is cancelled. The subscription is
// re-established with jittered exponential backoff after a break, and
// the set is reseeded from a full query on every (re)subscribe, since
// events may have been lost while disconnected.
func (s *Session) Run(ctx context.Context) {
	defer close(s.updates)

	if s.metrics != nil {
		s.metrics.ActiveStreams.Inc()
		defer s.metrics.ActiveStreams.Dec()
	}

	attempt := 0
	for {
		if ctx.Err() != nil {
			return
		}

		sub, err := s.channel.Subscribe(ctx, realtime.IncidentsTable, domain.ChangeInsert, domain.ChangeUpdate)
		if err != nil {
			s.logger.Warn("change stream subscribe failed",
				slog.Int("attempt", attempt),
				slog.Any("error", err),
			)
			attempt++
			s.sleep(ctx, realtime.Backoff(attempt))
			continue
		}

		if attempt > 0 && s.metrics != nil {
			s.metrics.StreamReconnects.Inc()
		}
		attempt = 0

		s.reseed(ctx)
		s.pushSnapshot()

		s.consume(ctx, sub)
		sub.Unsubscribe()

		if ctx.Err() != nil {
			return
		}
		if err := sub.Err(); err != nil {
			s.logger.Warn("change stream broke", slog.Any("error", err))
		}
		attempt++
		s.sleep(ctx, realtime.Backoff(attempt))
	}
}

func (s *Session) consume(ctx context.Context, sub realtime.Subscription) {
	timer := s.clock.NewTimer(s.cfg.Debounce)
	if !timer.Stop() {
		<-timer.Chan()
	}
	defer timer.Stop()

	refetchPending := false
	for {
		select {
		case <-ctx.Done():
			return

		case ev, ok := <-sub.Events():
			if !ok {
				return
			}
			// Events keep applying during the debounce window; the
			// subscription never pauses while a refetch is pending.
			if s.rec.Apply(ev) {
				s.pushSnapshot()
			}

		case box := <-s.boundsCh:
			s.rec.SetBox(box)
			timer.Reset(s.cfg.Debounce)
			refetchPending = true

		case <-timer.Chan():
			if !refetchPending {
				continue
			}
			refetchPending = false
			s.reseed(ctx)
			s.pushSnapshot()
		}
	}
}

func (s *Session) reseed(ctx context.Context) {
	gen := s.rec.Generation()
	box := s.rec.Box()

	incidents, err := s.store.GetActiveIncidentsInBounds(ctx, domain.BoundsIncidentsRequest{
		LatMin:   box.LatMin,
		LatMax:   box.LatMax,
		LngMin:   box.LngMin,
		LngMax:   box.LngMax,
		Category: s.cfg.Category,
		Limit:    s.cfg.Limit,
	})
	if err != nil {
		// Keep showing the set we have; the next event or refetch
		// moves it forward.
		s.logger.Warn("session reseed failed", slog.Any("error", err))
		return
	}
	if ctx.Err() != nil {
		return
	}
	if !s.rec.SeedIfCurrent(gen, incidents) {
		s.logger.Debug("discarded superseded reseed result")
	}
}

func (s *Session) pushSnapshot() {
	snap := s.rec.Snapshot()
	for {
		select {
		case s.updates <- snap:
			return
		default:
			select {
			case <-s.updates:
			default:
			}
		}
	}
}

func (s *Session) sleep(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-s.clock.After(d):
	}
}
