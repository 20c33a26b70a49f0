package instrument

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusInstrumenter records every span as a counter increment and a
// duration observation, labelled by source, component, action and status.
// Entity names set on a span become the "ruleset" label.
type PrometheusInstrumenter struct {
	spans    *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

var spanLabels = []string{"source", "component", "action", "ruleset", "status"}

// NewPrometheus registers the span metrics with reg.
func NewPrometheus(reg prometheus.Registerer) *PrometheusInstrumenter {
	factory := promauto.With(reg)
	return &PrometheusInstrumenter{
		spans: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "required",
			Name:      "spans_total",
			Help:      "Completed spans by operation and outcome",
		}, spanLabels),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "required",
			Name:      "span_duration_seconds",
			Help:      "Span duration in seconds",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}, spanLabels),
	}
}

func (p *PrometheusInstrumenter) StartSpan(ctx context.Context, source, component, action string) (context.Context, Span) {
	traceID := TraceIDFromContext(ctx)
	if traceID == "" {
		traceID = uuid.New().String()
		ctx = WithTraceID(ctx, traceID)
	}
	return ctx, &promSpan{
		inst:      p,
		source:    source,
		component: component,
		action:    action,
		traceID:   traceID,
		spanID:    uuid.New().String(),
		start:     time.Now(),
		status:    "ok",
	}
}

type promSpan struct {
	inst                      *PrometheusInstrumenter
	source, component, action string
	traceID, spanID           string
	start                     time.Time

	mu       sync.Mutex
	status   string
	entity   string
	metadata map[string]any
	ended    bool
}

func (s *promSpan) End() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ended {
		return
	}
	s.ended = true

	labels := prometheus.Labels{
		"source":    s.source,
		"component": s.component,
		"action":    s.action,
		"ruleset":   s.entity,
		"status":    s.status,
	}
	s.inst.spans.With(labels).Inc()
	s.inst.duration.With(labels).Observe(time.Since(s.start).Seconds())
}

func (s *promSpan) SetStatus(status string) {
	s.mu.Lock()
	s.status = status
	s.mu.Unlock()
}

func (s *promSpan) SetMetadata(key string, value any) {
	s.mu.Lock()
	if s.metadata == nil {
		s.metadata = map[string]any{}
	}
	s.metadata[key] = value
	s.mu.Unlock()
}

func (s *promSpan) SetEntity(entity, recordID string) {
	s.mu.Lock()
	s.entity = entity
	s.mu.Unlock()
}

func (s *promSpan) TraceID() string { return s.traceID }
func (s *promSpan) SpanID() string  { return s.spanID }
