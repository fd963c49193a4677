package tree

import (
	"math"
	"testing"
	"time"

	"mycelica/folio/internal/db"
)

func TestAnalyze_EmptyForest(t *testing.T) {
	r := Analyze(Build(nil), DefaultAnalyzeOptions())
	if r.TotalPages != 0 || r.HealthScore != 0 || len(r.DepthHistogram) != 0 {
		t.Errorf("empty forest should report zeros, got %+v", r)
	}
}

func TestAnalyze_Report(t *testing.T) {
	now := time.UnixMilli(1_700_000_000_000)
	day := int64(86_400_000)
	at := func(p db.Page, daysAgo int64, published bool) db.Page {
		p.UpdatedAt = now.UnixMilli() - daysAgo*day
		p.IsPublished = published
		return p
	}

	old := at(page("old", nil, "old"), 200, true)
	fresh := at(page("fresh", nil, "fresh"), 1, true)
	fresh.Content = []byte(`{
		"l1":{"type":"SubPage","props":{"pageId":"old"},"meta":{"order":0,"depth":0}},
		"l2":{"type":"SubPage","props":{"pageId":"gone"},"meta":{"order":1,"depth":0}}
	}`)
	child := at(page("child", strPtr("fresh"), "child"), 1, false)
	deep := at(page("deep", strPtr("child"), "deep"), 1, false)
	orphan := at(page("orphan", strPtr("missing"), "orphan"), 1, true)

	r := Analyze(Build([]db.Page{old, fresh, child, deep, orphan}), AnalyzeOptions{StaleDays: 90, Now: now})

	if r.TotalPages != 5 || r.RootCount != 2 || r.OrphanCount != 1 {
		t.Errorf("counts: total=%d roots=%d orphans=%d", r.TotalPages, r.RootCount, r.OrphanCount)
	}
	if r.DraftCount != 2 {
		t.Errorf("drafts = %d, want 2", r.DraftCount)
	}
	if r.MaxDepth != 2 || len(r.DepthHistogram) != 3 || r.DepthHistogram[0].Count != 3 {
		t.Errorf("depth: max=%d histogram=%+v", r.MaxDepth, r.DepthHistogram)
	}
	if len(r.Sections) != 2 || r.Sections[0].ID != "fresh" || r.Sections[0].Pages != 3 {
		t.Errorf("sections = %+v", r.Sections)
	}
	if len(r.StalePages) != 1 || r.StalePages[0].ID != "old" || r.StalePages[0].DaysSinceUpdate != 200 {
		t.Errorf("stale = %+v", r.StalePages)
	}
	if len(r.BrokenRefs) != 1 || r.BrokenRefs[0].TargetID != "gone" || r.BrokenRefs[0].BlockID != "l2" {
		t.Errorf("broken = %+v", r.BrokenRefs)
	}
	if r.HealthScore < 0 || r.HealthScore >= 1 {
		t.Errorf("health score %f should be degraded", r.HealthScore)
	}

	healthy := Analyze(Build([]db.Page{at(page("solo", nil, "solo"), 1, true)}), AnalyzeOptions{Now: now, StaleDays: 90})
	if math.Abs(healthy.HealthScore-1) > 1e-9 {
		t.Errorf("a single fresh root should score 1, got %f", healthy.HealthScore)
	}
}
