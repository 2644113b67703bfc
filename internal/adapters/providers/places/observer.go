package places

import (
	"context"
	"time"

	"github.com/zatekoja/placesearch/internal/domain/providers"
	"github.com/zatekoja/placesearch/internal/infrastructure/observability"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MetricsObserver records places request lifecycle as OpenTelemetry metrics.
// The in-flight gauge plays the part of a network activity indicator.
type MetricsObserver struct {
	metrics *observability.Metrics
}

// NewMetricsObserver creates a request observer backed by metrics.
func NewMetricsObserver(metrics *observability.Metrics) *MetricsObserver {
	return &MetricsObserver{metrics: metrics}
}

func (o *MetricsObserver) RequestStarted(ctx context.Context, kind providers.RequestKind) {
	o.metrics.PlacesInFlight.Add(ctx, 1, metric.WithAttributes(attribute.String("places.endpoint", string(kind))))
}

func (o *MetricsObserver) RequestFinished(ctx context.Context, kind providers.RequestKind, outcome providers.OutcomeKind, elapsed time.Duration) {
	endpoint := attribute.String("places.endpoint", string(kind))
	o.metrics.PlacesInFlight.Add(ctx, -1, metric.WithAttributes(endpoint))

	attrs := metric.WithAttributes(endpoint, attribute.String("places.outcome", string(outcome)))
	o.metrics.PlacesRequestCount.Add(ctx, 1, attrs)
	o.metrics.PlacesRequestLatency.Record(ctx, float64(elapsed.Milliseconds()), attrs)
}
