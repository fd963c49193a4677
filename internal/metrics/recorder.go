package metrics

import "time"

// ResultLabel enumerates operation outcomes for counters.
type ResultLabel string

const (
	ResultSuccess ResultLabel = "success"
	ResultError   ResultLabel = "error"
	ResultPartial ResultLabel = "partial"
)

// Recorder defines observability hooks for page operations. Implementations
// may forward to Prometheus; NoopRecorder is used when metrics are not configured.
type Recorder interface {
	IncOperation(op string, result ResultLabel)
	ObserveOperationDuration(op string, d time.Duration)
	ObserveSlugProbes(n int)
	IncStaleSave()
}

// NoopRecorder is a Recorder that does nothing.
type NoopRecorder struct{}

func (NoopRecorder) IncOperation(string, ResultLabel)               {}
func (NoopRecorder) ObserveOperationDuration(string, time.Duration) {}
func (NoopRecorder) ObserveSlugProbes(int)                          {}
func (NoopRecorder) IncStaleSave()                                  {}

// Observe records the outcome and duration of op given its final error.
func Observe(r Recorder, op string, start time.Time, err error) {
	if r == nil {
		return
	}
	r.ObserveOperationDuration(op, time.Since(start))
	switch {
	case err == nil:
		r.IncOperation(op, ResultSuccess)
	case isPartial(err):
		r.IncOperation(op, ResultPartial)
	default:
		r.IncOperation(op, ResultError)
	}
}
