package metrics

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"mycelica/folio/internal/apperr"
)

type partialErr struct{}

func (partialErr) Error() string             { return "partial" }
func (partialErr) Category() apperr.Category { return apperr.CategoryPartial }

func TestPrometheusRecorder_Observe(t *testing.T) {
	pr := NewPrometheusRecorder(nil)

	Observe(pr, "create", time.Now(), nil)
	Observe(pr, "create", time.Now(), nil)
	Observe(pr, "create", time.Now(), errors.New("boom"))
	Observe(pr, "duplicate", time.Now(), partialErr{})

	if got := testutil.ToFloat64(pr.operations.WithLabelValues("create", "success")); got != 2 {
		t.Errorf("create success = %v, want 2", got)
	}
	if got := testutil.ToFloat64(pr.operations.WithLabelValues("create", "error")); got != 1 {
		t.Errorf("create error = %v, want 1", got)
	}
	if got := testutil.ToFloat64(pr.operations.WithLabelValues("duplicate", "partial")); got != 1 {
		t.Errorf("duplicate partial = %v, want 1", got)
	}
}

func TestPrometheusRecorder_StaleSaves(t *testing.T) {
	pr := NewPrometheusRecorder(nil)
	pr.IncStaleSave()
	pr.IncStaleSave()
	if got := testutil.ToFloat64(pr.staleSaves); got != 2 {
		t.Errorf("stale saves = %v, want 2", got)
	}
}

func TestPrometheusRecorder_WriteTextfile(t *testing.T) {
	pr := NewPrometheusRecorder(nil)
	pr.IncOperation("move", ResultSuccess)
	pr.ObserveSlugProbes(3)

	path := filepath.Join(t.TempDir(), "folio.prom")
	if err := pr.WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `folio_page_operations_total{operation="move",result="success"} 1`) {
		t.Errorf("textfile missing counter:\n%s", data)
	}
	if !strings.Contains(string(data), "folio_slug_probe_attempts_count 1") {
		t.Errorf("textfile missing histogram:\n%s", data)
	}
}

func TestObserve_NilRecorder(t *testing.T) {
	Observe(nil, "create", time.Now(), nil)
	var r Recorder = NoopRecorder{}
	Observe(r, "create", time.Now(), errors.New("x"))
}
