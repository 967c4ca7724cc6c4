package domain

import "github.com/google/uuid"

// Coordinate fields use the range validators alone: "required" on a
// float64 would reject the zero value, and lat=0 or lng=0 (equator,
// prime meridian) are legitimate points.
type CreateIncidentRequest struct {
	Lat         float64  `json:"lat" validate:"lat"`
	Lng         float64  `json:"lng" validate:"lng"`
	Category    Category `json:"category" validate:"required,category"`
	Description string   `json:"description" validate:"omitempty,max=500"`
}

type CreateIncidentResponse struct {
	Incident *Incident `json:"incident"`
	Warnings []string  `json:"warnings,omitempty"`
}

type NearbyIncidentsRequest struct {
	Lat      float64  `json:"lat" validate:"lat"`
	Lng      float64  `json:"lng" validate:"lng"`
	RadiusKm float64  `json:"radius_km" validate:"omitempty,min=0.1,max=100"`
	Category Category `json:"category" validate:"omitempty,category"`
	Limit    int      `json:"limit" validate:"omitempty,min=1,max=200"`
}

type BoundsIncidentsRequest struct {
	LatMin   float64  `json:"lat_min" validate:"lat"`
	LatMax   float64  `json:"lat_max" validate:"lat"`
	LngMin   float64  `json:"lng_min" validate:"lng"`
	LngMax   float64  `json:"lng_max" validate:"lng"`
	Category Category `json:"category" validate:"omitempty,category"`
	Limit    int      `json:"limit" validate:"omitempty,min=1,max=200"`
}

type LikeIncidentResponse struct {
	IncidentID   uuid.UUID `json:"incident_id"`
	AlreadyLiked bool      `json:"already_liked"`
}
