package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"mycelica/folio/internal/navigation"
)

var navCmd = &cobra.Command{
	Use:   "nav <page>",
	Short: "Show breadcrumbs, siblings and inline sub-pages around a page",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		ctx := cmd.Context()
		page, err := a.ResolvePage(ctx, args[0])
		if err != nil {
			return emit[*navigation.Context](nil, err, nil)
		}
		resolver := navigation.NewResolver(a.repo, a.log.With().Str("component", "navigation").Logger())
		nav, err := resolver.Context(ctx, page.ID)
		return emit(nav, err, printNav)
	},
}

func printNav(nav *navigation.Context) {
	titles := make([]string, len(nav.Breadcrumbs))
	for i, b := range nav.Breadcrumbs {
		titles[i] = b.Title
	}
	fmt.Printf("%s > %s\n", nav.Project.Name, strings.Join(titles, " > "))
	if n := len(nav.Breadcrumbs); n > 0 {
		fmt.Printf("  path: %s\n", nav.Breadcrumbs[n-1].Path)
	}

	if nav.PreviousPage != nil {
		fmt.Printf("  prev: %s  %s\n", truncID(nav.PreviousPage.ID), nav.PreviousPage.Title)
	}
	if nav.NextPage != nil {
		fmt.Printf("  next: %s  %s\n", truncID(nav.NextPage.ID), nav.NextPage.Title)
	}

	fmt.Printf("\n  Siblings (%d):\n", len(nav.Siblings))
	for _, s := range nav.Siblings {
		marker := "  "
		if s.ID == nav.CurrentPage.ID {
			marker = "* "
		}
		fmt.Printf("    %s%s  %s\n", marker, truncID(s.ID), truncTitle(s.Title, 50))
	}

	if len(nav.ContentChildren) > 0 {
		fmt.Printf("\n  Sub-pages in content (%d):\n", len(nav.ContentChildren))
		for _, c := range nav.ContentChildren {
			target := "(not created)"
			if c.PageID != "" {
				target = truncID(c.PageID)
			}
			fmt.Printf("    %-12s %s  %s\n", c.BlockID, target, c.Title)
		}
	}
}

func init() {
	rootCmd.AddCommand(navCmd)
}
