package public

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/WebisityStudio/CircleEye-sub000/internal/domain"
	"github.com/WebisityStudio/CircleEye-sub000/pkg/validator"
)

type IncidentService interface {
	CreateIncident(ctx context.Context, req domain.CreateIncidentRequest) (*domain.CreateIncidentResponse, error)
	GetActiveIncidentsNearby(ctx context.Context, req domain.NearbyIncidentsRequest) ([]*domain.Incident, error)
	GetActiveIncidentsInBounds(ctx context.Context, req domain.BoundsIncidentsRequest) ([]*domain.Incident, error)
	LikeIncident(ctx context.Context, incidentID uuid.UUID) (*domain.LikeIncidentResponse, error)
}

type Handler struct {
	logger    *slog.Logger
	incidents IncidentService
}

func NewHandler(logger *slog.Logger, incidents IncidentService) *Handler {
	return &Handler{
		logger:    logger,
		incidents: incidents,
	}
}

func (h *Handler) IncidentCreate(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateIncidentRequest

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(&req); err != nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	if err := validator.ValidateStruct(&req); err != nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	resp, err := h.incidents.CreateIncident(r.Context(), req)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, resp)
}

func (h *Handler) IncidentsNearby(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	lat, errLat := strconv.ParseFloat(q.Get("lat"), 64)
	lng, errLng := strconv.ParseFloat(q.Get("lng"), 64)
	if errLat != nil || errLng != nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "lat and lng are required"})
		return
	}

	req := domain.NearbyIncidentsRequest{
		Lat:      lat,
		Lng:      lng,
		RadiusKm: parseFloat(q.Get("radius_km"), 0),
		Category: domain.Category(q.Get("category")),
		Limit:    parseInt(q.Get("limit"), 0),
	}
	if err := validator.ValidateStruct(&req); err != nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	incidents, err := h.incidents.GetActiveIncidentsNearby(r.Context(), req)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, incidentListResponse{Incidents: incidents, Count: len(incidents)})
}

func (h *Handler) IncidentsInBounds(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	latMin, err1 := strconv.ParseFloat(q.Get("lat_min"), 64)
	latMax, err2 := strconv.ParseFloat(q.Get("lat_max"), 64)
	lngMin, err3 := strconv.ParseFloat(q.Get("lng_min"), 64)
	lngMax, err4 := strconv.ParseFloat(q.Get("lng_max"), 64)
	if err1 != nil || err2 != nil || err3 != nil || err4 != nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "lat_min, lat_max, lng_min and lng_max are required"})
		return
	}

	req := domain.BoundsIncidentsRequest{
		LatMin:   latMin,
		LatMax:   latMax,
		LngMin:   lngMin,
		LngMax:   lngMax,
		Category: domain.Category(q.Get("category")),
		Limit:    parseInt(q.Get("limit"), 0),
	}
	if err := validator.ValidateStruct(&req); err != nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	incidents, err := h.incidents.GetActiveIncidentsInBounds(r.Context(), req)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, incidentListResponse{Incidents: incidents, Count: len(incidents)})
}

func (h *Handler) IncidentLike(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid incident id"})
		return
	}

	resp, err := h.incidents.LikeIncident(r.Context(), id)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, resp)
}

// Categories returns the closed category set in its fixed UI order.
func (h *Handler) Categories(w http.ResponseWriter, r *http.Request) {
	out := make([]categoryResponse, 0, len(domain.Categories))
	for _, c := range domain.Categories {
		out = append(out, categoryResponse{
			ID:              string(c),
			Label:           c.Label(),
			AutoDescription: c.AutoDescription(),
		})
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"categories": out})
}
