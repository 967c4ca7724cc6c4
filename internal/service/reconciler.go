package service

import (
	"sync"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/WebisityStudio/CircleEye-sub000/internal/domain"
	"github.com/WebisityStudio/CircleEye-sub000/internal/geo"
	"github.com/WebisityStudio/CircleEye-sub000/internal/observability"
)

// Reconciler keeps one scope's client-visible incident set in sync
// with the change stream. The set is ordered (newest first for
// admitted inserts), deduplicated and keyed by id. Seeding replaces
// it wholesale from a query; events mutate it under the admission and
// merge rules. The server is authoritative for every field except
// HasLiked, which only this client knows.
type Reconciler struct {
	mu      sync.Mutex
	box     geo.Box
	gen     uint64
	order   []uuid.UUID
	byID    map[uuid.UUID]*domain.Incident
	clock   clockwork.Clock
	metrics *observability.Metrics
}

func NewReconciler(box geo.Box, clock clockwork.Clock, metrics *observability.Metrics) *Reconciler {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Reconciler{
		box:     box,
		byID:    make(map[uuid.UUID]*domain.Incident),
		clock:   clock,
		metrics: metrics,
	}
}

// SetBox moves the scope (viewport pan/zoom) and bumps the generation
// so an in-flight query for the old box cannot seed the new one.
func (r *Reconciler) SetBox(box geo.Box) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.box = box
	r.gen++
	return r.gen
}

func (r *Reconciler) Box() geo.Box {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.box
}

func (r *Reconciler) Generation() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.gen
}

// Seed replaces the set with a fresh query result.
func (r *Reconciler) Seed(incidents []*domain.Incident) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seedLocked(incidents)
}

// SeedIfCurrent applies a query result only if the scope has not moved
// since the query was issued. Returns false when the result was
// discarded as superseded.
func (r *Reconciler) SeedIfCurrent(gen uint64, incidents []*domain.Incident) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if gen != r.gen {
		return false
	}
	r.seedLocked(incidents)
	return true
}

func (r *Reconciler) seedLocked(incidents []*domain.Incident) {
	r.order = r.order[:0]
	clear(r.byID)
	for _, inc := range incidents {
		if _, dup := r.byID[inc.ID]; dup {
			continue
		}
		cp := *inc
		r.order = append(r.order, cp.ID)
		r.byID[cp.ID] = &cp
	}
}

// Apply runs one change event through the admission/merge rules and
// reports whether the visible set changed.
func (r *Reconciler) Apply(event domain.ChangeEvent) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	var applied bool
	switch event.Type {
	case domain.ChangeInsert:
		applied = r.applyInsert(event.Incident)
	case domain.ChangeUpdate:
		applied = r.applyUpdate(event.Incident)
	default:
		return false
	}

	outcome := "dropped"
	if applied {
		outcome = "applied"
	}
	if r.metrics != nil {
		r.metrics.RealtimeEvents.WithLabelValues(string(event.Type), outcome).Inc()
	}
	return applied
}

func (r *Reconciler) applyInsert(inc domain.Incident) bool {
	if !inc.VisibleAt(r.clock.Now().UTC()) {
		return false
	}
	if !r.box.Contains(inc.Lat, inc.Lng) {
		return false
	}
	if _, dup := r.byID[inc.ID]; dup {
		return false
	}

	// A genuinely new report has not been liked by this client yet.
	inc.HasLiked = false
	r.order = append([]uuid.UUID{inc.ID}, r.order...)
	r.byID[inc.ID] = &inc
	return true
}

func (r *Reconciler) applyUpdate(inc domain.Incident) bool {
	existing, ok := r.byID[inc.ID]
	if !ok {
		// Never shown, or already filtered out.
		return false
	}

	// Server payloads do not carry the per-caller flag.
	inc.HasLiked = existing.HasLiked
	*existing = inc

	if !existing.VisibleAt(r.clock.Now().UTC()) {
		r.removeLocked(inc.ID)
	}
	return true
}

func (r *Reconciler) removeLocked(id uuid.UUID) {
	delete(r.byID, id)
	for i, v := range r.order {
		if v == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

// OptimisticLike bumps the local counter before the network call. It
// refuses when the id is unknown or the client already sees itself as
// having liked this report, so rapid duplicate clicks cannot
// double-count.
func (r *Reconciler) OptimisticLike(id uuid.UUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	inc, ok := r.byID[id]
	if !ok || inc.HasLiked {
		return false
	}
	inc.LikeCount++
	inc.HasLiked = true
	return true
}

// RollbackLike undoes a failed optimistic like.
func (r *Reconciler) RollbackLike(id uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	inc, ok := r.byID[id]
	if !ok || !inc.HasLiked {
		return
	}
	inc.LikeCount--
	if inc.LikeCount < 0 {
		inc.LikeCount = 0
	}
	inc.HasLiked = false
}

func (r *Reconciler) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.order)
}

func (r *Reconciler) Get(id uuid.UUID) (domain.Incident, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	inc, ok := r.byID[id]
	if !ok {
		return domain.Incident{}, false
	}
	return *inc, true
}

// Snapshot returns the visible set in order, copied.
func (r *Reconciler) Snapshot() []domain.Incident {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]domain.Incident, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, *r.byID[id])
	}
	return out
}
