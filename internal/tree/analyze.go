package tree

import (
	"math"
	"sort"
	"time"
)

// StalePage is a page not updated for a while that newer pages still link to.
type StalePage struct {
	ID              string `json:"id"`
	Title           string `json:"title"`
	Path            string `json:"path"`
	DaysSinceUpdate int64  `json:"days_since_update"`
	RecentRefCount  int    `json:"recent_reference_count"`
}

// BrokenReference is a sub-page block whose pageId names no page of the project.
type BrokenReference struct {
	PageID   string `json:"page_id"`
	BlockID  string `json:"block_id"`
	TargetID string `json:"target_id"`
}

// Section summarizes one root page and everything below it.
type Section struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Pages int    `json:"pages"`
}

// DepthBucket is one bar of the depth histogram.
type DepthBucket struct {
	Level int `json:"level"`
	Count int `json:"count"`
}

// HealthBreakdown shows the sub-scores of the health formula.
type HealthBreakdown struct {
	Structure float64 `json:"structure"`
	Staleness float64 `json:"staleness"`
	Integrity float64 `json:"integrity"`
}

// Report is the result of Analyze.
type Report struct {
	HealthScore     float64           `json:"health_score"`
	HealthBreakdown HealthBreakdown   `json:"health_breakdown"`
	TotalPages      int               `json:"total_pages"`
	RootCount       int               `json:"root_count"`
	OrphanCount     int               `json:"orphan_count"`
	OrphanIDs       []string          `json:"orphan_ids"`
	DraftCount      int               `json:"draft_count"`
	MaxDepth        int               `json:"max_depth"`
	DepthHistogram  []DepthBucket     `json:"depth_histogram"`
	Sections        []Section         `json:"sections"`
	StalePages      []StalePage       `json:"stale_pages"`
	BrokenRefs      []BrokenReference `json:"broken_references"`
}

// AnalyzeOptions holds analysis parameters.
type AnalyzeOptions struct {
	StaleDays int64
	// RecentDays is how fresh a linking page must be to count as a recent reference.
	RecentDays int64
	TopN       int
	Now        time.Time
}

// DefaultAnalyzeOptions returns sensible defaults.
func DefaultAnalyzeOptions() AnalyzeOptions {
	return AnalyzeOptions{StaleDays: 90, RecentDays: 7, TopN: 50}
}

const dayMs = int64(86_400_000)

// Analyze reports the structural health of a project's page forest.
func Analyze(f *Forest, opts AnalyzeOptions) *Report {
	if opts.TopN <= 0 {
		opts.TopN = 50
	}
	if opts.RecentDays <= 0 {
		opts.RecentDays = 7
	}
	if opts.Now.IsZero() {
		opts.Now = time.Now()
	}
	nowMs := opts.Now.UnixMilli()

	all := f.All()
	byID := make(map[string]*Node, len(all))
	for _, n := range all {
		byID[n.ID] = n
	}

	r := &Report{
		TotalPages:     len(all),
		RootCount:      len(f.Roots),
		OrphanCount:    len(f.Orphans),
		OrphanIDs:      []string{},
		DepthHistogram: []DepthBucket{},
		Sections:       []Section{},
		StalePages:     []StalePage{},
		BrokenRefs:     []BrokenReference{},
	}
	for _, o := range f.Orphans {
		r.OrphanIDs = append(r.OrphanIDs, o.ID)
	}
	sort.Strings(r.OrphanIDs)
	if len(r.OrphanIDs) > opts.TopN {
		r.OrphanIDs = r.OrphanIDs[:opts.TopN]
	}

	depths := map[int]int{}
	recentRefs := map[string]int{}
	for _, n := range all {
		if !n.IsPublished {
			r.DraftCount++
		}
		if n.Level > r.MaxDepth {
			r.MaxDepth = n.Level
		}
		depths[n.Level]++

		recent := nowMs-n.UpdatedAt < opts.RecentDays*dayMs
		for _, ref := range n.ContentChildren {
			if ref.PageID == "" {
				continue
			}
			if byID[ref.PageID] == nil {
				r.BrokenRefs = append(r.BrokenRefs, BrokenReference{
					PageID: n.ID, BlockID: ref.BlockID, TargetID: ref.PageID,
				})
				continue
			}
			if recent && ref.PageID != n.ID {
				recentRefs[ref.PageID]++
			}
		}
	}
	for level := 0; level <= r.MaxDepth && len(all) > 0; level++ {
		r.DepthHistogram = append(r.DepthHistogram, DepthBucket{Level: level, Count: depths[level]})
	}

	for _, root := range f.Roots {
		r.Sections = append(r.Sections, Section{
			ID: root.ID, Title: root.Title, Pages: len(Flatten([]*Node{root})),
		})
	}
	sort.SliceStable(r.Sections, func(i, j int) bool { return r.Sections[i].Pages > r.Sections[j].Pages })

	// Stale: old, but still linked from recently edited pages.
	for _, n := range all {
		ageMs := nowMs - n.UpdatedAt
		if ageMs <= opts.StaleDays*dayMs || recentRefs[n.ID] == 0 {
			continue
		}
		r.StalePages = append(r.StalePages, StalePage{
			ID:              n.ID,
			Title:           n.Title,
			Path:            n.Path,
			DaysSinceUpdate: ageMs / dayMs,
			RecentRefCount:  recentRefs[n.ID],
		})
	}
	sort.SliceStable(r.StalePages, func(i, j int) bool {
		return r.StalePages[i].RecentRefCount > r.StalePages[j].RecentRefCount
	})
	if len(r.StalePages) > opts.TopN {
		r.StalePages = r.StalePages[:opts.TopN]
	}

	total := float64(r.TotalPages)
	if total > 0 {
		r.HealthBreakdown = HealthBreakdown{
			Structure: clamp(1.0-math.Min(float64(r.OrphanCount)/total, 0.2)*5.0, 0, 1),
			Staleness: clamp(1.0-math.Min(float64(len(r.StalePages))/total, 0.1)*10.0, 0, 1),
			Integrity: clamp(1.0-math.Min(float64(len(r.BrokenRefs))/total, 0.1)*10.0, 0, 1),
		}
		b := r.HealthBreakdown
		r.HealthScore = 0.40*b.Structure + 0.30*b.Staleness + 0.30*b.Integrity
	}
	return r
}

func clamp(val, min, max float64) float64 {
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}
