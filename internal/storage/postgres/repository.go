package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/WebisityStudio/CircleEye-sub000/internal/domain"
	"github.com/WebisityStudio/CircleEye-sub000/internal/geo"
)

type IncidentRepository interface {
	Insert(ctx context.Context, incident *domain.Incident) error
	FindActiveInBox(ctx context.Context, box geo.Box, category domain.Category, limit int, now time.Time) ([]*domain.Incident, error)
}

type LikeRepository interface {
	Insert(ctx context.Context, like *domain.IncidentLike) (*domain.Incident, error)
	LikedIncidentIDs(ctx context.Context, userID uuid.UUID, incidentIDs []uuid.UUID) (map[uuid.UUID]struct{}, error)
}
