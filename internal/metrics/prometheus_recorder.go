package metrics

import (
	"errors"
	"fmt"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"

	"mycelica/folio/internal/apperr"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	registry   *prom.Registry
	operations *prom.CounterVec
	durations  *prom.HistogramVec
	slugProbes prom.Histogram
	staleSaves prom.Counter
}

// NewPrometheusRecorder constructs and registers the folio metrics on reg.
// A nil reg gets a fresh registry.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		registry: reg,
		operations: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "folio",
			Name:      "page_operations_total",
			Help:      "Page operations by outcome",
		}, []string{"operation", "result"}),
		durations: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "folio",
			Name:      "page_operation_duration_seconds",
			Help:      "Duration of page operations",
			Buckets:   prom.DefBuckets,
		}, []string{"operation"}),
		slugProbes: prom.NewHistogram(prom.HistogramOpts{
			Namespace: "folio",
			Name:      "slug_probe_attempts",
			Help:      "Candidates tried before a free sibling slug was found",
			Buckets:   []float64{1, 2, 3, 5, 10, 25, 50, 100},
		}),
		staleSaves: prom.NewCounter(prom.CounterOpts{
			Namespace: "folio",
			Name:      "autosave_stale_total",
			Help:      "Content saves dropped because a newer edit version was already stored",
		}),
	}
	reg.MustRegister(pr.operations, pr.durations, pr.slugProbes, pr.staleSaves)
	return pr
}

func (p *PrometheusRecorder) IncOperation(op string, result ResultLabel) {
	p.operations.WithLabelValues(op, string(result)).Inc()
}

func (p *PrometheusRecorder) ObserveOperationDuration(op string, d time.Duration) {
	p.durations.WithLabelValues(op).Observe(d.Seconds())
}

func (p *PrometheusRecorder) ObserveSlugProbes(n int) {
	p.slugProbes.Observe(float64(n))
}

func (p *PrometheusRecorder) IncStaleSave() {
	p.staleSaves.Inc()
}

// Registry exposes the underlying registry for export.
func (p *PrometheusRecorder) Registry() *prom.Registry {
	return p.registry
}

// WriteTextfile writes the current metrics in text exposition format,
// suitable for a node_exporter textfile collector.
func (p *PrometheusRecorder) WriteTextfile(path string) error {
	if err := prom.WriteToTextfile(path, p.registry); err != nil {
		return fmt.Errorf("writing metrics to %s: %w", path, err)
	}
	return nil
}

func isPartial(err error) bool {
	var ae interface{ Category() apperr.Category }
	return errors.As(err, &ae) && ae.Category() == apperr.CategoryPartial
}
