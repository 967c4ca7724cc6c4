package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus instruments for the reporting service.
type Metrics struct {
	ReportsCreated prometheus.Counter
	ReportsDenied  *prometheus.CounterVec // labels: reason={quota,unauthenticated,invalid,store}
	Likes          *prometheus.CounterVec // labels: outcome={new,already_liked,error}

	QueryDuration *prometheus.HistogramVec // labels: shape={radius,bounds}

	RealtimeEvents   *prometheus.CounterVec // labels: type={insert,update}, outcome={applied,dropped}
	StreamReconnects prometheus.Counter
	ActiveStreams    prometheus.Gauge
}

// NewMetrics creates the instrument set and registers it with reg.
// Pass nil to skip registration (unit tests).
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ReportsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "incident_reports",
			Name:      "created_total",
			Help:      "Total incident reports accepted by the store.",
		}),
		ReportsDenied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "incident_reports",
			Name:      "denied_total",
			Help:      "Report submissions rejected, by reason.",
		}, []string{"reason"}),
		Likes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "incident_reports",
			Name:      "likes_total",
			Help:      "Like attempts by outcome.",
		}, []string{"outcome"}),
		QueryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "incident_reports",
			Name:      "query_duration_seconds",
			Help:      "Duration of spatial incident queries by shape.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"shape"}),
		RealtimeEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "incident_reports",
			Name:      "realtime_events_total",
			Help:      "Change-stream events by type and whether the reconciler applied them.",
		}, []string{"type", "outcome"}),
		StreamReconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "incident_reports",
			Name:      "stream_reconnects_total",
			Help:      "Change-stream resubscriptions after a broken connection.",
		}),
		ActiveStreams: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "incident_reports",
			Name:      "active_streams",
			Help:      "Currently open realtime stream sessions.",
		}),
	}

	if reg != nil {
		reg.MustRegister(
			m.ReportsCreated,
			m.ReportsDenied,
			m.Likes,
			m.QueryDuration,
			m.RealtimeEvents,
			m.StreamReconnects,
			m.ActiveStreams,
		)
	}

	return m
}
