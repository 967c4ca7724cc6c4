package service_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/WebisityStudio/CircleEye-sub000/internal/domain"
	"github.com/WebisityStudio/CircleEye-sub000/internal/geo"
	"github.com/WebisityStudio/CircleEye-sub000/internal/observability"
	"github.com/WebisityStudio/CircleEye-sub000/internal/service"
	"github.com/WebisityStudio/CircleEye-sub000/pkg/e"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// --- fakes ---

type fakeIncidentRepo struct {
	insertErr error
	inserted  []*domain.Incident

	found     []*domain.Incident
	findErr   error
	gotBox    geo.Box
	gotCat    domain.Category
	gotLimit  int
	findCalls int
}

func (f *fakeIncidentRepo) Insert(_ context.Context, inc *domain.Incident) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	inc.ID = uuid.New()
	f.inserted = append(f.inserted, inc)
	return nil
}

func (f *fakeIncidentRepo) FindActiveInBox(_ context.Context, box geo.Box, category domain.Category, limit int, _ time.Time) ([]*domain.Incident, error) {
	f.findCalls++
	f.gotBox = box
	f.gotCat = category
	f.gotLimit = limit
	if f.findErr != nil {
		return nil, f.findErr
	}
	return f.found, nil
}

type fakeLikeRepo struct {
	insertErr error
	updated   *domain.Incident
	inserts   []*domain.IncidentLike

	liked    map[uuid.UUID]struct{}
	likedErr error
}

func (f *fakeLikeRepo) Insert(_ context.Context, like *domain.IncidentLike) (*domain.Incident, error) {
	if f.insertErr != nil {
		return nil, f.insertErr
	}
	f.inserts = append(f.inserts, like)
	return f.updated, nil
}

func (f *fakeLikeRepo) LikedIncidentIDs(_ context.Context, _ uuid.UUID, _ []uuid.UUID) (map[uuid.UUID]struct{}, error) {
	if f.likedErr != nil {
		return nil, f.likedErr
	}
	if f.liked == nil {
		return map[uuid.UUID]struct{}{}, nil
	}
	return f.liked, nil
}

type fakeAuth struct {
	id uuid.UUID
	ok bool
}

func (f fakeAuth) CurrentUserID(context.Context) (uuid.UUID, bool) { return f.id, f.ok }

type fakePublisher struct {
	mu     sync.Mutex
	events []domain.ChangeEvent
	err    error
}

func (f *fakePublisher) Publish(_ context.Context, ev domain.ChangeEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, ev)
	return nil
}

func (f *fakePublisher) published() []domain.ChangeEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.ChangeEvent(nil), f.events...)
}

type storeFixture struct {
	incidents *fakeIncidentRepo
	likes     *fakeLikeRepo
	publisher *fakePublisher
	userID    uuid.UUID
	store     *service.IncidentStore
}

func newStoreFixture(t *testing.T, authenticated bool) *storeFixture {
	t.Helper()

	f := &storeFixture{
		incidents: &fakeIncidentRepo{},
		likes:     &fakeLikeRepo{},
		publisher: &fakePublisher{},
		userID:    uuid.New(),
	}
	f.store = service.NewIncidentStore(
		f.incidents,
		f.likes,
		fakeAuth{id: f.userID, ok: authenticated},
		f.publisher,
		newTestLogger(),
		observability.NewMetrics(nil),
		clockwork.NewFakeClockAt(testNow),
		service.StoreOptions{},
	)
	return f
}

// --- CreateIncident ---

func TestCreateIncident_AutoDescription(t *testing.T) {
	t.Parallel()

	f := newStoreFixture(t, true)

	resp, err := f.store.CreateIncident(context.Background(), domain.CreateIncidentRequest{
		Lat:      51.50732,
		Lng:      -0.12765,
		Category: domain.CategoryNoise,
	})
	require.NoError(t, err)

	inc := resp.Incident
	assert.Equal(t, 51.507, inc.Lat)
	assert.Equal(t, -0.128, inc.Lng)
	assert.Len(t, inc.Geohash, 6)
	assert.Equal(t, "Noise reported in this area", inc.Description)
	assert.Equal(t, f.userID, inc.CreatedByUserID)
	assert.True(t, inc.IsActive)
	assert.Equal(t, testNow, inc.CreatedAt)
	assert.Equal(t, testNow.Add(31*24*time.Hour), inc.ExpiresAt)
	assert.True(t, inc.ExpiresAt.After(inc.CreatedAt))
	assert.Empty(t, resp.Warnings)
}

func TestCreateIncident_SanitizesDescription(t *testing.T) {
	t.Parallel()

	f := newStoreFixture(t, true)

	resp, err := f.store.CreateIncident(context.Background(), domain.CreateIncidentRequest{
		Lat:         51.5,
		Lng:         -0.1,
		Category:    domain.CategoryVandalism,
		Description: "graffiti, call me on 020 7946 0958",
	})
	require.NoError(t, err)

	assert.NotContains(t, resp.Incident.Description, "020 7946 0958")
	assert.Contains(t, resp.Incident.Description, "[removed]")
	assert.NotEmpty(t, resp.Warnings)
}

func TestCreateIncident_Unauthenticated(t *testing.T) {
	t.Parallel()

	f := newStoreFixture(t, false)

	_, err := f.store.CreateIncident(context.Background(), domain.CreateIncidentRequest{
		Lat:      51.5,
		Lng:      -0.1,
		Category: domain.CategoryNoise,
	})
	assert.ErrorIs(t, err, e.ErrUnauthenticated)
	assert.Empty(t, f.incidents.inserted)
}

func TestCreateIncident_UnknownCategory(t *testing.T) {
	t.Parallel()

	f := newStoreFixture(t, true)

	_, err := f.store.CreateIncident(context.Background(), domain.CreateIncidentRequest{
		Lat:      51.5,
		Lng:      -0.1,
		Category: "burglary",
	})
	assert.ErrorIs(t, err, e.ErrInvalidInput)
}

func TestCreateIncident_QuotaViolation(t *testing.T) {
	t.Parallel()

	f := newStoreFixture(t, true)
	f.incidents.insertErr = e.Wrap("postgres.Incident.Insert", e.ErrPolicyViolation)

	_, err := f.store.CreateIncident(context.Background(), domain.CreateIncidentRequest{
		Lat:      51.5,
		Lng:      -0.1,
		Category: domain.CategoryNoise,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, service.ErrReportQuotaExceeded)
	assert.Contains(t, err.Error(), "5 reports per 24 hours")
}

func TestCreateIncident_GenericStoreFailure(t *testing.T) {
	t.Parallel()

	f := newStoreFixture(t, true)
	f.incidents.insertErr = e.Wrap("postgres.Incident.Insert", e.ErrInternal)

	_, err := f.store.CreateIncident(context.Background(), domain.CreateIncidentRequest{
		Lat:      51.5,
		Lng:      -0.1,
		Category: domain.CategoryNoise,
	})
	assert.ErrorIs(t, err, service.ErrCreateFailed)
}

func TestCreateIncident_PublishesInsertEvent(t *testing.T) {
	t.Parallel()

	f := newStoreFixture(t, true)

	_, err := f.store.CreateIncident(context.Background(), domain.CreateIncidentRequest{
		Lat:      51.5,
		Lng:      -0.1,
		Category: domain.CategoryFire,
	})
	require.NoError(t, err)

	events := f.publisher.published()
	require.Len(t, events, 1)
	assert.Equal(t, domain.ChangeInsert, events[0].Type)
	assert.Equal(t, domain.CategoryFire, events[0].Incident.Category)
}

// --- queries ---

func TestGetActiveIncidentsNearby_Defaults(t *testing.T) {
	t.Parallel()

	f := newStoreFixture(t, false)

	_, err := f.store.GetActiveIncidentsNearby(context.Background(), domain.NearbyIncidentsRequest{
		Lat: 51.507,
		Lng: -0.128,
	})
	require.NoError(t, err)

	assert.Equal(t, 20, f.incidents.gotLimit)
	// Default 5 km radius means roughly 0.045 degrees of latitude.
	assert.InDelta(t, 51.507-5.0/111, f.incidents.gotBox.LatMin, 1e-9)
	assert.InDelta(t, 51.507+5.0/111, f.incidents.gotBox.LatMax, 1e-9)
}

func TestGetActiveIncidentsInBounds_Defaults(t *testing.T) {
	t.Parallel()

	f := newStoreFixture(t, false)

	_, err := f.store.GetActiveIncidentsInBounds(context.Background(), domain.BoundsIncidentsRequest{
		LatMin: 51.4, LatMax: 51.6, LngMin: -0.3, LngMax: 0.1,
	})
	require.NoError(t, err)

	assert.Equal(t, 50, f.incidents.gotLimit)
	assert.Equal(t, geo.Box{LatMin: 51.4, LatMax: 51.6, LngMin: -0.3, LngMax: 0.1}, f.incidents.gotBox)
}

func TestQuery_StoreFailureReturnsEmptyPlusError(t *testing.T) {
	t.Parallel()

	f := newStoreFixture(t, false)
	f.incidents.findErr = e.Wrap("postgres", e.ErrInternal)

	got, err := f.store.GetActiveIncidentsNearby(context.Background(), domain.NearbyIncidentsRequest{
		Lat: 51.5, Lng: -0.1,
	})
	require.Error(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestQuery_AnnotatesHasLiked(t *testing.T) {
	t.Parallel()

	f := newStoreFixture(t, true)

	likedID, otherID := uuid.New(), uuid.New()
	f.incidents.found = []*domain.Incident{
		{ID: likedID, IsActive: true, ExpiresAt: testNow.Add(time.Hour)},
		{ID: otherID, IsActive: true, ExpiresAt: testNow.Add(time.Hour)},
	}
	f.likes.liked = map[uuid.UUID]struct{}{likedID: {}}

	got, err := f.store.GetActiveIncidentsNearby(context.Background(), domain.NearbyIncidentsRequest{
		Lat: 51.5, Lng: -0.1,
	})
	require.NoError(t, err)
	require.Len(t, got, 2)

	byID := map[uuid.UUID]*domain.Incident{got[0].ID: got[0], got[1].ID: got[1]}
	assert.True(t, byID[likedID].HasLiked)
	assert.False(t, byID[otherID].HasLiked)
}

func TestQuery_UnauthenticatedSkipsLikeAnnotation(t *testing.T) {
	t.Parallel()

	f := newStoreFixture(t, false)
	f.incidents.found = []*domain.Incident{
		{ID: uuid.New(), IsActive: true, ExpiresAt: testNow.Add(time.Hour)},
	}
	f.likes.likedErr = e.Wrap("must not be called", e.ErrInternal)

	got, err := f.store.GetActiveIncidentsNearby(context.Background(), domain.NearbyIncidentsRequest{
		Lat: 51.5, Lng: -0.1,
	})
	require.NoError(t, err)
	assert.False(t, got[0].HasLiked)
}

// --- likes ---

func TestLikeIncident_New(t *testing.T) {
	t.Parallel()

	f := newStoreFixture(t, true)
	incidentID := uuid.New()
	f.likes.updated = &domain.Incident{ID: incidentID, LikeCount: 4, IsActive: true, ExpiresAt: testNow.Add(time.Hour)}

	resp, err := f.store.LikeIncident(context.Background(), incidentID)
	require.NoError(t, err)
	assert.False(t, resp.AlreadyLiked)

	require.Len(t, f.likes.inserts, 1)
	assert.Equal(t, incidentID, f.likes.inserts[0].IncidentID)
	assert.Equal(t, f.userID, f.likes.inserts[0].UserID)

	events := f.publisher.published()
	require.Len(t, events, 1)
	assert.Equal(t, domain.ChangeUpdate, events[0].Type)
	assert.Equal(t, 4, events[0].Incident.LikeCount)
}

func TestLikeIncident_DuplicateIsSuccess(t *testing.T) {
	t.Parallel()

	f := newStoreFixture(t, true)
	f.likes.insertErr = e.Wrap("postgres.Like.Insert", e.ErrUniqueViolation)

	resp, err := f.store.LikeIncident(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.True(t, resp.AlreadyLiked)
	assert.Empty(t, f.publisher.published())
}

func TestLikeIncident_GenuineFailure(t *testing.T) {
	t.Parallel()

	f := newStoreFixture(t, true)
	f.likes.insertErr = e.Wrap("postgres.Like.Insert", e.ErrInternal)

	_, err := f.store.LikeIncident(context.Background(), uuid.New())
	assert.ErrorIs(t, err, service.ErrLikeFailed)
}

func TestLikeIncident_Unauthenticated(t *testing.T) {
	t.Parallel()

	f := newStoreFixture(t, false)

	_, err := f.store.LikeIncident(context.Background(), uuid.New())
	assert.ErrorIs(t, err, e.ErrUnauthenticated)
}
