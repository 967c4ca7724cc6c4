package public

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/WebisityStudio/CircleEye-sub000/internal/domain"
	"github.com/WebisityStudio/CircleEye-sub000/internal/service"
	"github.com/WebisityStudio/CircleEye-sub000/pkg/e"
)

type stubService struct {
	createReq  *domain.CreateIncidentRequest
	createResp *domain.CreateIncidentResponse
	createErr  error

	nearbyReq *domain.NearbyIncidentsRequest
	boundsReq *domain.BoundsIncidentsRequest
	listResp  []*domain.Incident
	listErr   error

	likedID  uuid.UUID
	likeResp *domain.LikeIncidentResponse
	likeErr  error
}

func (s *stubService) CreateIncident(_ context.Context, req domain.CreateIncidentRequest) (*domain.CreateIncidentResponse, error) {
	s.createReq = &req
	return s.createResp, s.createErr
}

func (s *stubService) GetActiveIncidentsNearby(_ context.Context, req domain.NearbyIncidentsRequest) ([]*domain.Incident, error) {
	s.nearbyReq = &req
	return s.listResp, s.listErr
}

func (s *stubService) GetActiveIncidentsInBounds(_ context.Context, req domain.BoundsIncidentsRequest) ([]*domain.Incident, error) {
	s.boundsReq = &req
	return s.listResp, s.listErr
}

func (s *stubService) LikeIncident(_ context.Context, id uuid.UUID) (*domain.LikeIncidentResponse, error) {
	s.likedID = id
	return s.likeResp, s.likeErr
}

func newTestHandler(svc IncidentService) *Handler {
	return NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), svc)
}

func sampleIncident() *domain.Incident {
	now := time.Now().UTC()
	return &domain.Incident{
		ID:        uuid.New(),
		Lat:       51.501,
		Lng:       -0.142,
		Geohash:   "gcpuuz",
		Category:  domain.CategoryNoise,
		IsActive:  true,
		CreatedAt: now,
		ExpiresAt: now.Add(31 * 24 * time.Hour),
	}
}

func TestIncidentCreate(t *testing.T) {
	t.Parallel()

	svc := &stubService{
		createResp: &domain.CreateIncidentResponse{Incident: sampleIncident()},
	}
	h := newTestHandler(svc)

	body := `{"lat":51.501,"lng":-0.142,"category":"noise","description":"Loud party"}`
	rec := httptest.NewRecorder()
	h.IncidentCreate(rec, httptest.NewRequest(http.MethodPost, "/api/v1/incidents", strings.NewReader(body)))

	require.Equal(t, http.StatusCreated, rec.Code)
	require.NotNil(t, svc.createReq)
	assert.Equal(t, domain.CategoryNoise, svc.createReq.Category)
	assert.Equal(t, "Loud party", svc.createReq.Description)

	var got domain.CreateIncidentResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, svc.createResp.Incident.ID, got.Incident.ID)
}

func TestIncidentCreate_ZeroCoordinatesValid(t *testing.T) {
	t.Parallel()

	svc := &stubService{
		createResp: &domain.CreateIncidentResponse{Incident: sampleIncident()},
	}
	h := newTestHandler(svc)

	// The equator / prime meridian intersection is a legal point and
	// must not be rejected as a missing coordinate.
	body := `{"lat":0,"lng":0,"category":"noise"}`
	rec := httptest.NewRecorder()
	h.IncidentCreate(rec, httptest.NewRequest(http.MethodPost, "/api/v1/incidents", strings.NewReader(body)))

	require.Equal(t, http.StatusCreated, rec.Code)
	require.NotNil(t, svc.createReq)
	assert.Equal(t, 0.0, svc.createReq.Lat)
	assert.Equal(t, 0.0, svc.createReq.Lng)
}

func TestIncidentCreate_BadInput(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		body string
	}{
		{"malformed json", `{"lat":`},
		{"unknown field", `{"lat":51.5,"lng":-0.1,"category":"noise","severity":3}`},
		{"trailing data", `{"lat":51.5,"lng":-0.1,"category":"noise"}{}`},
		{"missing category", `{"lat":51.5,"lng":-0.1}`},
		{"unknown category", `{"lat":51.5,"lng":-0.1,"category":"ufo_sighting"}`},
		{"lat out of range", `{"lat":91,"lng":-0.1,"category":"noise"}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			svc := &stubService{}
			h := newTestHandler(svc)

			rec := httptest.NewRecorder()
			h.IncidentCreate(rec, httptest.NewRequest(http.MethodPost, "/api/v1/incidents", strings.NewReader(tc.body)))

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Nil(t, svc.createReq, "service must not be called")
		})
	}
}

func TestIncidentCreate_ErrorMapping(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"unauthenticated", e.ErrUnauthenticated, http.StatusUnauthorized},
		{"quota exceeded", service.ErrReportQuotaExceeded, http.StatusTooManyRequests},
		{"invalid input", e.ErrInvalidInput, http.StatusBadRequest},
		{"internal", e.ErrInternal, http.StatusInternalServerError},
	}

	body := `{"lat":51.5,"lng":-0.1,"category":"noise"}`
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			h := newTestHandler(&stubService{createErr: tc.err})

			rec := httptest.NewRecorder()
			h.IncidentCreate(rec, httptest.NewRequest(http.MethodPost, "/api/v1/incidents", strings.NewReader(body)))

			assert.Equal(t, tc.status, rec.Code)
		})
	}
}

func TestIncidentsNearby(t *testing.T) {
	t.Parallel()

	svc := &stubService{listResp: []*domain.Incident{sampleIncident()}}
	h := newTestHandler(svc)

	rec := httptest.NewRecorder()
	h.IncidentsNearby(rec, httptest.NewRequest(http.MethodGet,
		"/api/v1/incidents/nearby?lat=51.5&lng=-0.1&radius_km=2.5&category=noise&limit=10", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, svc.nearbyReq)
	assert.Equal(t, 51.5, svc.nearbyReq.Lat)
	assert.Equal(t, 2.5, svc.nearbyReq.RadiusKm)
	assert.Equal(t, domain.CategoryNoise, svc.nearbyReq.Category)
	assert.Equal(t, 10, svc.nearbyReq.Limit)

	var got struct {
		Count int `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, 1, got.Count)
}

func TestIncidentsNearby_MissingCoordinates(t *testing.T) {
	t.Parallel()

	svc := &stubService{}
	h := newTestHandler(svc)

	rec := httptest.NewRecorder()
	h.IncidentsNearby(rec, httptest.NewRequest(http.MethodGet, "/api/v1/incidents/nearby?lat=51.5", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Nil(t, svc.nearbyReq)
}

func TestIncidentsInBounds(t *testing.T) {
	t.Parallel()

	svc := &stubService{listResp: []*domain.Incident{}}
	h := newTestHandler(svc)

	rec := httptest.NewRecorder()
	h.IncidentsInBounds(rec, httptest.NewRequest(http.MethodGet,
		"/api/v1/incidents/bounds?lat_min=51.4&lat_max=51.6&lng_min=-0.3&lng_max=0.1", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, svc.boundsReq)
	assert.Equal(t, 51.4, svc.boundsReq.LatMin)
	assert.Equal(t, 0.1, svc.boundsReq.LngMax)

	// Empty result still serialises as a list, never null.
	assert.Contains(t, rec.Body.String(), `"incidents":[]`)
}

func TestIncidentLike(t *testing.T) {
	t.Parallel()

	id := uuid.New()
	svc := &stubService{likeResp: &domain.LikeIncidentResponse{IncidentID: id, AlreadyLiked: true}}
	h := newTestHandler(svc)

	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", id.String())
	req := httptest.NewRequest(http.MethodPost, "/api/v1/incidents/"+id.String()+"/like", nil)
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))

	rec := httptest.NewRecorder()
	h.IncidentLike(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, id, svc.likedID)

	var got domain.LikeIncidentResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.True(t, got.AlreadyLiked)
}

func TestIncidentLike_InvalidID(t *testing.T) {
	t.Parallel()

	h := newTestHandler(&stubService{})

	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", "not-a-uuid")
	req := httptest.NewRequest(http.MethodPost, "/api/v1/incidents/not-a-uuid/like", nil)
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))

	rec := httptest.NewRecorder()
	h.IncidentLike(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCategories(t *testing.T) {
	t.Parallel()

	h := newTestHandler(&stubService{})

	rec := httptest.NewRecorder()
	h.Categories(rec, httptest.NewRequest(http.MethodGet, "/api/v1/incidents/categories", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var got struct {
		Categories []struct {
			ID              string `json:"id"`
			Label           string `json:"label"`
			AutoDescription string `json:"auto_description"`
		} `json:"categories"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got.Categories, len(domain.Categories))

	for i, c := range domain.Categories {
		assert.Equal(t, string(c), got.Categories[i].ID)
		assert.NotEmpty(t, got.Categories[i].Label)
	}
	assert.Equal(t, "suspicious_activity", got.Categories[len(got.Categories)-1].ID)
}
