// Package stream serves the realtime incident feed over a websocket.
// Each connection owns one scoped session: the server seeds the set
// from a query, applies change-stream events to it and pushes the
// evolving snapshot to the client. The client may move a bounds scope
// by sending viewport messages; moves are debounced server-side.
package stream

import (
	"context"
	"net/http"
	"strconv"

	"log/slog"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"

	"github.com/WebisityStudio/CircleEye-sub000/internal/config"
	"github.com/WebisityStudio/CircleEye-sub000/internal/domain"
	"github.com/WebisityStudio/CircleEye-sub000/internal/geo"
	"github.com/WebisityStudio/CircleEye-sub000/internal/observability"
	"github.com/WebisityStudio/CircleEye-sub000/internal/realtime"
	"github.com/WebisityStudio/CircleEye-sub000/internal/service"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
}

type Handler struct {
	logger  *slog.Logger
	store   service.BoundsQuerier
	channel realtime.Channel
	metrics *observability.Metrics
	clock   clockwork.Clock
	cfg     config.IncidentsConfig
}

func NewHandler(
	logger *slog.Logger,
	store service.BoundsQuerier,
	channel realtime.Channel,
	metrics *observability.Metrics,
	clock clockwork.Clock,
	cfg config.IncidentsConfig,
) *Handler {
	return &Handler{
		logger:  logger,
		store:   store,
		channel: channel,
		metrics: metrics,
		clock:   clock,
		cfg:     cfg,
	}
}

// boundsMessage is the only client-to-server frame: a viewport move.
type boundsMessage struct {
	Type   string  `json:"type"` // "bounds"
	LatMin float64 `json:"lat_min"`
	LatMax float64 `json:"lat_max"`
	LngMin float64 `json:"lng_min"`
	LngMax float64 `json:"lng_max"`
}

type snapshotMessage struct {
	Type      string            `json:"type"` // "snapshot"
	Incidents []domain.Incident `json:"incidents"`
}

func (h *Handler) IncidentStream(w http.ResponseWriter, r *http.Request) {
	scopeCfg, ok := h.parseScope(r)
	if !ok {
		http.Error(w, "either lat+lng (radius scope) or lat_min..lng_max (bounds scope) required", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", slog.Any("error", err))
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	sess := service.NewSession(h.store, h.channel, h.logger, h.metrics, h.clock, scopeCfg)
	go sess.Run(ctx)

	// Read pump: viewport moves in, connection teardown out.
	go func() {
		defer cancel()
		for {
			var msg boundsMessage
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			if msg.Type != "bounds" || msg.LatMin >= msg.LatMax || msg.LngMin >= msg.LngMax {
				continue
			}
			sess.SetBounds(geo.Box{
				LatMin: msg.LatMin,
				LatMax: msg.LatMax,
				LngMin: msg.LngMin,
				LngMax: msg.LngMax,
			})
		}
	}()

	for snap := range sess.Updates() {
		if err := conn.WriteJSON(snapshotMessage{Type: "snapshot", Incidents: snap}); err != nil {
			return
		}
	}
}

func (h *Handler) parseScope(r *http.Request) (service.SessionConfig, bool) {
	q := r.URL.Query()

	category := domain.Category(q.Get("category"))
	if category != "" && !category.Valid() {
		return service.SessionConfig{}, false
	}

	base := service.SessionConfig{
		Category: category,
		Debounce: h.cfg.RefetchDebounce,
	}

	// Bounds scope: an explicit viewport.
	if q.Has("lat_min") {
		latMin, err1 := strconv.ParseFloat(q.Get("lat_min"), 64)
		latMax, err2 := strconv.ParseFloat(q.Get("lat_max"), 64)
		lngMin, err3 := strconv.ParseFloat(q.Get("lng_min"), 64)
		lngMax, err4 := strconv.ParseFloat(q.Get("lng_max"), 64)
		if err1 != nil || err2 != nil || err3 != nil || err4 != nil || latMin >= latMax || lngMin >= lngMax {
			return service.SessionConfig{}, false
		}
		base.Box = geo.Box{LatMin: latMin, LatMax: latMax, LngMin: lngMin, LngMax: lngMax}
		base.Limit = h.cfg.BoundsLimit
		return base, true
	}

	// Radius scope: center plus radius.
	lat, err1 := strconv.ParseFloat(q.Get("lat"), 64)
	lng, err2 := strconv.ParseFloat(q.Get("lng"), 64)
	if err1 != nil || err2 != nil || lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return service.SessionConfig{}, false
	}
	radius := h.cfg.DefaultRadiusKm
	if raw := q.Get("radius_km"); raw != "" {
		if v, err := strconv.ParseFloat(raw, 64); err == nil && v > 0 && v <= 100 {
			radius = v
		}
	}
	base.Box = geo.BoundingBox(lat, lng, radius)
	base.Limit = h.cfg.NearbyLimit
	return base, true
}
