package domain

import (
	"time"

	"github.com/google/uuid"
)

// DefaultLifetime is how long a report stays visible after creation.
// ExpiresAt is fixed at write time and never extended.
const DefaultLifetime = 31 * 24 * time.Hour

type Incident struct {
	ID              uuid.UUID  `json:"id"`
	Lat             float64    `json:"lat" validate:"lat"` // -90..90, rounded to 3 dp
	Lng             float64    `json:"lng" validate:"lng"` // -180..180, rounded to 3 dp
	Geohash         string     `json:"geohash"`                     // precision 6, derived from rounded coords
	Category        Category   `json:"category" validate:"required,category"`
	Description     string     `json:"description"`
	CreatedByUserID uuid.UUID  `json:"created_by_user_id"`
	LikeCount       int        `json:"like_count"`
	HasLiked        bool       `json:"has_liked"` // per-caller annotation, never stored
	IsActive        bool       `json:"is_active"`
	ArchivedAt      *time.Time `json:"archived_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	ExpiresAt       time.Time  `json:"expires_at"`
}

// VisibleAt reports whether the incident should be shown to clients:
// active, not archived, not expired.
func (i *Incident) VisibleAt(now time.Time) bool {
	return i.IsActive && i.ArchivedAt == nil && i.ExpiresAt.After(now)
}

type IncidentLike struct {
	ID         uuid.UUID `json:"id"`
	IncidentID uuid.UUID `json:"incident_id"`
	UserID     uuid.UUID `json:"user_id"`
	CreatedAt  time.Time `json:"created_at"`
}
