package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/WebisityStudio/CircleEye-sub000/internal/domain"
)

type MutationState string

const (
	MutationPending    MutationState = "pending"
	MutationCommitted  MutationState = "committed"
	MutationRolledBack MutationState = "rolled_back"
)

// ErrLikeInFlight means a like for this report is already on the wire.
var ErrLikeInFlight = errors.New("like already in flight for this incident")

// LikeMutation records the two-phase outcome of one optimistic like.
type LikeMutation struct {
	IncidentID   uuid.UUID     `json:"incident_id"`
	State        MutationState `json:"state"`
	AlreadyLiked bool          `json:"already_liked"`
}

type incidentLiker interface {
	LikeIncident(ctx context.Context, incidentID uuid.UUID) (*domain.LikeIncidentResponse, error)
}

// LikeController applies likes local-first: the counter goes up before
// the network call, and comes back down only on genuine failure. A
// later realtime update carries the server's authoritative count and
// converges to the same number either way, so it does not matter
// whether that event beats the HTTP response.
type LikeController struct {
	rec    *Reconciler
	store  incidentLiker
	logger *slog.Logger

	mu       sync.Mutex
	inFlight map[uuid.UUID]struct{}
}

func NewLikeController(rec *Reconciler, store incidentLiker, logger *slog.Logger) *LikeController {
	return &LikeController{
		rec:      rec,
		store:    store,
		logger:   logger,
		inFlight: make(map[uuid.UUID]struct{}),
	}
}

func (c *LikeController) Like(ctx context.Context, id uuid.UUID) (*LikeMutation, error) {
	c.mu.Lock()
	if _, busy := c.inFlight[id]; busy {
		c.mu.Unlock()
		return nil, ErrLikeInFlight
	}
	c.inFlight[id] = struct{}{}
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.inFlight, id)
		c.mu.Unlock()
	}()

	if !c.rec.OptimisticLike(id) {
		// Unknown id or already liked locally; nothing to send.
		return &LikeMutation{IncidentID: id, State: MutationCommitted, AlreadyLiked: true}, nil
	}

	resp, err := c.store.LikeIncident(ctx, id)
	if err != nil {
		c.rec.RollbackLike(id)
		c.logger.Warn("optimistic like rolled back",
			slog.String("incident_id", id.String()),
			slog.Any("error", err),
		)
		return &LikeMutation{IncidentID: id, State: MutationRolledBack}, err
	}

	// AlreadyLiked from the server is still success: local state
	// already shows the intended end state.
	return &LikeMutation{
		IncidentID:   id,
		State:        MutationCommitted,
		AlreadyLiked: resp.AlreadyLiked,
	}, nil
}
