package cmd

import (
	"fmt"
	"math"
	"strings"

	"github.com/spf13/cobra"

	"mycelica/folio/internal/tree"
)

var (
	analyzeTopN      int
	analyzeStaleDays int64
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze page structure: depth, orphans, staleness, broken sub-page links, health score",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		ctx := cmd.Context()
		project, err := a.project(ctx)
		if err != nil {
			return emit[*tree.Report](nil, err, nil)
		}
		all, err := a.repo.ListProject(ctx, project.ID)
		if err != nil {
			return emit[*tree.Report](nil, fmt.Errorf("loading pages: %w", err), nil)
		}
		forest := tree.Build(all)

		opts := tree.DefaultAnalyzeOptions()
		opts.TopN = analyzeTopN
		opts.StaleDays = a.cfg.StaleDays
		if cmd.Flags().Changed("stale-days") {
			opts.StaleDays = analyzeStaleDays
		}

		report := tree.Analyze(forest, opts)
		return emit(report, nil, func(r *tree.Report) { printHumanReadable(r, forest) })
	},
}

func init() {
	analyzeCmd.Flags().IntVar(&analyzeTopN, "top-n", 10, "Number of top items to show per section")
	analyzeCmd.Flags().Int64Var(&analyzeStaleDays, "stale-days", 90, "Days since update to consider a page stale (default from config)")
	rootCmd.AddCommand(analyzeCmd)
}

func printHumanReadable(report *tree.Report, forest *tree.Forest) {
	// Health bar
	barLen := int(report.HealthScore * 20)
	if barLen > 20 {
		barLen = 20
	}
	bar := strings.Repeat("█", barLen) + strings.Repeat("░", 20-barLen)
	fmt.Printf("\n  Docs Health: %.0f%%  [%s]\n", report.HealthScore*100, bar)
	fmt.Printf("  breakdown: structure=%.2f staleness=%.2f integrity=%.2f\n\n",
		report.HealthBreakdown.Structure,
		report.HealthBreakdown.Staleness,
		report.HealthBreakdown.Integrity)

	fmt.Println("  STRUCTURE")
	fmt.Println("  ────────────────────────────────────────")
	fmt.Printf("  Pages: %d  Roots: %d  Drafts: %d  Max depth: %d\n",
		report.TotalPages, report.RootCount, report.DraftCount, report.MaxDepth)

	if report.OrphanCount > 0 {
		fmt.Printf("  Orphans: %d pages outside the hierarchy\n", report.OrphanCount)
		limit := min(5, len(report.OrphanIDs))
		for _, id := range report.OrphanIDs[:limit] {
			title := "?"
			if n := forest.Find(id); n != nil {
				title = truncTitle(n.Title, 50)
			}
			fmt.Printf("    - %s (%s)\n", truncID(id), title)
		}
		if report.OrphanCount > 5 {
			fmt.Printf("    ... and %d more\n", report.OrphanCount-5)
		}
	}

	fmt.Println("\n  Depth distribution:")
	for _, b := range report.DepthHistogram {
		if b.Count > 0 {
			barWidth := int(math.Log2(float64(b.Count))) + 2
			fmt.Printf("    level %2d: %4d  %s\n", b.Level, b.Count, strings.Repeat("=", barWidth))
		}
	}

	if len(report.Sections) > 0 {
		fmt.Println("\n  Largest sections:")
		for _, s := range report.Sections {
			fmt.Printf("    %s %4d pages  %s\n", truncID(s.ID), s.Pages, truncTitle(s.Title, 40))
		}
	}

	if len(report.StalePages) > 0 {
		fmt.Println("\n  STALENESS")
		fmt.Println("  ────────────────────────────────────────")
		fmt.Printf("  %d stale pages (old but linked from recent pages):\n", len(report.StalePages))
		limit := min(10, len(report.StalePages))
		for _, p := range report.StalePages[:limit] {
			fmt.Printf("    %s %dd old, %d recent refs  %s\n",
				truncID(p.ID), p.DaysSinceUpdate, p.RecentRefCount, p.Path)
		}
	}

	if len(report.BrokenRefs) > 0 {
		fmt.Println("\n  BROKEN SUB-PAGE LINKS")
		fmt.Println("  ────────────────────────────────────────")
		limit := min(10, len(report.BrokenRefs))
		for _, b := range report.BrokenRefs[:limit] {
			fmt.Printf("    %s block %s -> %s (missing)\n", truncID(b.PageID), b.BlockID, truncID(b.TargetID))
		}
		if len(report.BrokenRefs) > limit {
			fmt.Printf("    ... and %d more\n", len(report.BrokenRefs)-limit)
		}
	}
	fmt.Println()
}
