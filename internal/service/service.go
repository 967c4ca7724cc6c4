package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/WebisityStudio/CircleEye-sub000/internal/domain"
	"github.com/WebisityStudio/CircleEye-sub000/internal/geo"
)

// IncidentRepository is the persistent-store collaborator for report
// rows. The store owns id generation, the like-uniqueness constraint
// and the per-user write-rate policy; violations come back as pg error
// codes translated by pkg/e.
type IncidentRepository interface {
	Insert(ctx context.Context, incident *domain.Incident) error
	FindActiveInBox(ctx context.Context, box geo.Box, category domain.Category, limit int, now time.Time) ([]*domain.Incident, error)
}

type LikeRepository interface {
	// Insert adds the like row and bumps the report's counter in one
	// transaction, returning the updated report. A duplicate like
	// surfaces as e.ErrUniqueViolation.
	Insert(ctx context.Context, like *domain.IncidentLike) (*domain.Incident, error)
	// LikedIncidentIDs returns the subset of ids the user has liked.
	LikedIncidentIDs(ctx context.Context, userID uuid.UUID, incidentIDs []uuid.UUID) (map[uuid.UUID]struct{}, error)
}

// AuthProvider is the auth collaborator: who is the caller, if anyone.
// Session management lives elsewhere; this subsystem only consumes the
// resolved identity.
type AuthProvider interface {
	CurrentUserID(ctx context.Context) (uuid.UUID, bool)
}

// Incidents is the reporting use-case surface consumed by transports.
type Incidents interface {
	CreateIncident(ctx context.Context, req domain.CreateIncidentRequest) (*domain.CreateIncidentResponse, error)
	GetActiveIncidentsNearby(ctx context.Context, req domain.NearbyIncidentsRequest) ([]*domain.Incident, error)
	GetActiveIncidentsInBounds(ctx context.Context, req domain.BoundsIncidentsRequest) ([]*domain.Incident, error)
	LikeIncident(ctx context.Context, incidentID uuid.UUID) (*domain.LikeIncidentResponse, error)
}
