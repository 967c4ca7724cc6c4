package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/WebisityStudio/CircleEye-sub000/internal/domain"
	"github.com/WebisityStudio/CircleEye-sub000/internal/geo"
	"github.com/WebisityStudio/CircleEye-sub000/internal/observability"
	"github.com/WebisityStudio/CircleEye-sub000/internal/realtime"
	"github.com/WebisityStudio/CircleEye-sub000/internal/sanitize"
	"github.com/WebisityStudio/CircleEye-sub000/pkg/e"
)

var (
	// ErrReportQuotaExceeded is what a store policy rejection becomes.
	// The store only says "policy violation"; the concrete quota is
	// part of this subsystem's contract with the user.
	ErrReportQuotaExceeded = errors.New("you can submit up to 5 reports per 24 hours, please try again later")

	ErrCreateFailed = errors.New("failed to create incident report")
	ErrLikeFailed   = errors.New("failed to like incident report")
)

type StoreOptions struct {
	DefaultRadiusKm  float64
	NearbyLimit      int
	BoundsLimit      int
	Lifetime         time.Duration
	GeohashPrecision int
}

func (o *StoreOptions) fillDefaults() {
	if o.DefaultRadiusKm <= 0 {
		o.DefaultRadiusKm = 5
	}
	if o.NearbyLimit <= 0 {
		o.NearbyLimit = 20
	}
	if o.BoundsLimit <= 0 {
		o.BoundsLimit = 50
	}
	if o.Lifetime <= 0 {
		o.Lifetime = domain.DefaultLifetime
	}
	if o.GeohashPrecision <= 0 {
		o.GeohashPrecision = 6
	}
}

type IncidentStore struct {
	incidents IncidentRepository
	likes     LikeRepository
	auth      AuthProvider
	publisher realtime.Publisher
	logger    *slog.Logger
	metrics   *observability.Metrics
	clock     clockwork.Clock
	opts      StoreOptions
}

func NewIncidentStore(
	incidents IncidentRepository,
	likes LikeRepository,
	auth AuthProvider,
	publisher realtime.Publisher,
	logger *slog.Logger,
	metrics *observability.Metrics,
	clock clockwork.Clock,
	opts StoreOptions,
) *IncidentStore {
	opts.fillDefaults()
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &IncidentStore{
		incidents: incidents,
		likes:     likes,
		auth:      auth,
		publisher: publisher,
		logger:    logger,
		metrics:   metrics,
		clock:     clock,
		opts:      opts,
	}
}

func (s *IncidentStore) CreateIncident(ctx context.Context, req domain.CreateIncidentRequest) (*domain.CreateIncidentResponse, error) {
	const op = "service.IncidentStore.CreateIncident"

	userID, ok := s.auth.CurrentUserID(ctx)
	if !ok {
		s.metrics.ReportsDenied.WithLabelValues("unauthenticated").Inc()
		return nil, e.Wrap(op, e.ErrUnauthenticated)
	}

	if !req.Category.Valid() {
		s.metrics.ReportsDenied.WithLabelValues("invalid").Inc()
		return nil, e.Wrap(op+": unknown category", e.ErrInvalidInput)
	}
	if req.Lat < -90 || req.Lat > 90 || req.Lng < -180 || req.Lng > 180 {
		s.metrics.ReportsDenied.WithLabelValues("invalid").Inc()
		return nil, e.Wrap(op, e.ErrInvalidCoordinates)
	}

	description := req.Category.AutoDescription()
	var warnings []string
	if strings.TrimSpace(req.Description) != "" {
		res := sanitize.Description(req.Description)
		if !res.IsValid {
			s.metrics.ReportsDenied.WithLabelValues("invalid").Inc()
			return nil, e.Wrap(op+": "+strings.Join(res.Errors, "; "), e.ErrInvalidInput)
		}
		description = res.Sanitized
		warnings = res.Warnings
	}

	lat, lng := geo.RoundCoordinates(req.Lat, req.Lng)
	now := s.clock.Now().UTC()

	inc := &domain.Incident{
		Lat:             lat,
		Lng:             lng,
		Geohash:         geo.EncodeGeohash(lat, lng, s.opts.GeohashPrecision),
		Category:        req.Category,
		Description:     description,
		CreatedByUserID: userID,
		IsActive:        true,
		CreatedAt:       now,
		UpdatedAt:       now,
		ExpiresAt:       now.Add(s.opts.Lifetime),
	}

	if err := s.incidents.Insert(ctx, inc); err != nil {
		if errors.Is(err, e.ErrPolicyViolation) {
			s.metrics.ReportsDenied.WithLabelValues("quota").Inc()
			s.logger.Warn("report quota hit",
				slog.String("op", op),
				slog.String("user_id", userID.String()),
			)
			return nil, ErrReportQuotaExceeded
		}
		s.metrics.ReportsDenied.WithLabelValues("store").Inc()
		s.logger.Error("incident insert failed", slog.String("op", op), slog.Any("error", err))
		return nil, ErrCreateFailed
	}

	s.metrics.ReportsCreated.Inc()
	s.publish(ctx, domain.ChangeEvent{Type: domain.ChangeInsert, Incident: *inc})

	return &domain.CreateIncidentResponse{Incident: inc, Warnings: warnings}, nil
}

func (s *IncidentStore) GetActiveIncidentsNearby(ctx context.Context, req domain.NearbyIncidentsRequest) ([]*domain.Incident, error) {
	const op = "service.IncidentStore.GetActiveIncidentsNearby"

	radius := req.RadiusKm
	if radius <= 0 {
		radius = s.opts.DefaultRadiusKm
	}
	limit := req.Limit
	if limit <= 0 {
		limit = s.opts.NearbyLimit
	}

	box := geo.BoundingBox(req.Lat, req.Lng, radius)
	return s.queryBox(ctx, op, "radius", box, req.Category, limit)
}

func (s *IncidentStore) GetActiveIncidentsInBounds(ctx context.Context, req domain.BoundsIncidentsRequest) ([]*domain.Incident, error) {
	const op = "service.IncidentStore.GetActiveIncidentsInBounds"

	limit := req.Limit
	if limit <= 0 {
		limit = s.opts.BoundsLimit
	}

	box := geo.Box{LatMin: req.LatMin, LatMax: req.LatMax, LngMin: req.LngMin, LngMax: req.LngMax}
	return s.queryBox(ctx, op, "bounds", box, req.Category, limit)
}

func (s *IncidentStore) queryBox(ctx context.Context, op, shape string, box geo.Box, category domain.Category, limit int) ([]*domain.Incident, error) {
	if box.LatMin >= box.LatMax || box.LngMin >= box.LngMax {
		return []*domain.Incident{}, e.Wrap(op, e.ErrInvalidInput)
	}

	start := s.clock.Now()
	incidents, err := s.incidents.FindActiveInBox(ctx, box, category, limit, s.clock.Now().UTC())
	s.metrics.QueryDuration.WithLabelValues(shape).Observe(s.clock.Since(start).Seconds())
	if err != nil {
		s.logger.Error("box query failed", slog.String("op", op), slog.Any("error", err))
		// Empty slice plus error: callers must not confuse this with a
		// genuinely empty area.
		return []*domain.Incident{}, e.WrapError(ctx, op, err)
	}

	if err := s.annotateHasLiked(ctx, incidents); err != nil {
		// Annotation is best effort; the list itself is sound.
		s.logger.Warn("has_liked annotation failed", slog.String("op", op), slog.Any("error", err))
	}

	return incidents, nil
}

func (s *IncidentStore) annotateHasLiked(ctx context.Context, incidents []*domain.Incident) error {
	userID, ok := s.auth.CurrentUserID(ctx)
	if !ok || len(incidents) == 0 {
		return nil
	}

	ids := make([]uuid.UUID, len(incidents))
	for i, inc := range incidents {
		ids[i] = inc.ID
	}

	liked, err := s.likes.LikedIncidentIDs(ctx, userID, ids)
	if err != nil {
		return err
	}

	for _, inc := range incidents {
		_, inc.HasLiked = liked[inc.ID]
	}
	return nil
}

// LikeIncident inserts a like row and bumps the report's counter. A
// uniqueness violation means the user already liked this report; that
// is a successful no-op, never an error.
func (s *IncidentStore) LikeIncident(ctx context.Context, incidentID uuid.UUID) (*domain.LikeIncidentResponse, error) {
	const op = "service.IncidentStore.LikeIncident"

	userID, ok := s.auth.CurrentUserID(ctx)
	if !ok {
		return nil, e.Wrap(op, e.ErrUnauthenticated)
	}

	like := &domain.IncidentLike{
		ID:         uuid.New(),
		IncidentID: incidentID,
		UserID:     userID,
		CreatedAt:  s.clock.Now().UTC(),
	}

	updated, err := s.likes.Insert(ctx, like)
	if err != nil {
		if errors.Is(err, e.ErrUniqueViolation) {
			s.metrics.Likes.WithLabelValues("already_liked").Inc()
			return &domain.LikeIncidentResponse{IncidentID: incidentID, AlreadyLiked: true}, nil
		}
		s.metrics.Likes.WithLabelValues("error").Inc()
		s.logger.Error("like insert failed",
			slog.String("op", op),
			slog.String("incident_id", incidentID.String()),
			slog.Any("error", err),
		)
		return nil, ErrLikeFailed
	}

	s.metrics.Likes.WithLabelValues("new").Inc()
	if updated != nil {
		s.publish(ctx, domain.ChangeEvent{Type: domain.ChangeUpdate, Incident: *updated})
	}

	return &domain.LikeIncidentResponse{IncidentID: incidentID}, nil
}

func (s *IncidentStore) publish(ctx context.Context, event domain.ChangeEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		// Readers converge on their next reseed; the write itself stands.
		s.logger.Warn("change event publish failed",
			slog.String("type", string(event.Type)),
			slog.Any("error", err),
		)
	}
}
