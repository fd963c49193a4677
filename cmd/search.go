package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"mycelica/folio/internal/db"
)

var searchPublished bool

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Full-text search over page titles, descriptions and content",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		ctx := cmd.Context()
		project, err := a.project(ctx)
		if err != nil {
			return emit[[]db.Page](nil, err, nil)
		}
		query := strings.Join(args, " ")
		results, err := a.repo.Search(ctx, project.ID, query, searchPublished)
		return emit(results, err, func(ps []db.Page) {
			if len(ps) == 0 {
				fmt.Printf("No pages match %q\n", query)
				return
			}
			for _, p := range ps {
				fmt.Printf("%s  %-24s %s\n", truncID(p.ID), p.Slug, truncTitle(p.Title, 50))
			}
		})
	},
}

func init() {
	searchCmd.Flags().BoolVar(&searchPublished, "published", false, "Only published pages")
	rootCmd.AddCommand(searchCmd)
}
