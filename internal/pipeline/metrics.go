package pipeline

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors for a run. A nil *Metrics records
// nothing.
type Metrics struct {
	EventsTotal       *prometheus.CounterVec
	RecordsTotal      *prometheus.CounterVec
	ServiceCallsTotal *prometheus.CounterVec
	ServiceSeconds    *prometheus.HistogramVec
	CacheLookupsTotal *prometheus.CounterVec
}

// NewMetrics registers the pipeline collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		EventsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "informe_events_total",
				Help: "Chat events processed by kind",
			},
			[]string{"kind"},
		),
		RecordsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "informe_records_total",
				Help: "Classified records by outcome",
			},
			[]string{"outcome"},
		),
		ServiceCallsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "informe_service_calls_total",
				Help: "External extraction calls by service and status",
			},
			[]string{"service", "status"},
		),
		ServiceSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "informe_service_seconds",
				Help:    "External extraction latency",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300},
			},
			[]string{"service"},
		),
		CacheLookupsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "informe_cache_lookups_total",
				Help: "Transcription cache lookups by result",
			},
			[]string{"result"},
		),
	}
}

func (m *Metrics) event(kind string) {
	if m == nil {
		return
	}
	m.EventsTotal.WithLabelValues(kind).Inc()
}

func (m *Metrics) record(o Outcome) {
	if m == nil {
		return
	}
	m.RecordsTotal.WithLabelValues(string(o)).Inc()
}

func (m *Metrics) serviceCall(service string, start time.Time, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.ServiceCallsTotal.WithLabelValues(service, status).Inc()
	m.ServiceSeconds.WithLabelValues(service).Observe(time.Since(start).Seconds())
}

func (m *Metrics) cacheLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookupsTotal.WithLabelValues(result).Inc()
}

// WriteTextfile dumps everything gathered by g to path in the node_exporter
// textfile format.
func WriteTextfile(path string, g prometheus.Gatherer) error {
	return prometheus.WriteToTextfile(path, g)
}
