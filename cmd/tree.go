package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"mycelica/folio/internal/tree"
)

var treePublished bool

var treeCmd = &cobra.Command{
	Use:   "tree",
	Short: "Print the page hierarchy of a project",
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
			return emit[*tree.Forest](nil, err, nil)
		}
		all, err := a.repo.ListProject(ctx, project.ID)
		if err != nil {
			return emit[*tree.Forest](nil, err, nil)
		}
		forest := tree.Build(all)
		if treePublished {
			forest = forest.Published()
		}

		return emit(forest, nil, func(f *tree.Forest) {
			fmt.Printf("%s\n", project.Name)
			printNodes(f.Roots, 1)
			if len(f.Orphans) > 0 {
				fmt.Printf("\nOrphans (%d):\n", len(f.Orphans))
				printNodes(f.Orphans, 1)
			}
		})
	},
}

func printNodes(nodes []*tree.Node, indent int) {
	for _, n := range nodes {
		marker := ""
		if !n.IsPublished {
			marker = " [draft]"
		}
		fmt.Printf("%s%s  %s  %s%s\n", strings.Repeat("  ", indent), truncID(n.ID), truncTitle(n.Title, 50), n.Path, marker)
		printNodes(n.Children, indent+1)
	}
}

func init() {
	treeCmd.Flags().BoolVar(&treePublished, "published", false, "Only published pages")
	rootCmd.AddCommand(treeCmd)
}
