package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"mycelica/folio/internal/db"
)

var projectDescription string

var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "Manage projects",
}

var projectCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a project",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		p, err := a.repo.CreateProject(cmd.Context(), args[0], optionalString(cmd, "description", projectDescription))
		return emit(p, err, func(p *db.Project) {
			fmt.Printf("Created project %s (%s) %s\n", p.Slug, truncID(p.ID), p.Name)
		})
	},
}

var projectShowCmd = &cobra.Command{
	Use:   "show [id-or-slug]",
	Short: "Show a project (defaults to --project)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		var p *db.Project
		if len(args) == 1 {
			p, err = a.repo.GetProject(cmd.Context(), args[0])
		} else {
			p, err = a.project(cmd.Context())
		}
		return emit(p, err, func(p *db.Project) {
			fmt.Printf("%s  %s\n", p.ID, p.Name)
			fmt.Printf("  slug: %s\n", p.Slug)
			if p.Description != nil {
				fmt.Printf("  description: %s\n", *p.Description)
			}
		})
	},
}

var projectListCmd = &cobra.Command{
	Use:   "list",
	Short: "List projects",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		all, err := a.repo.ListProjects(cmd.Context())
		return emit(all, err, func(all []db.Project) {
			if len(all) == 0 {
				fmt.Println("No projects. Create one with `folio project create <name>`.")
				return
			}
			for _, p := range all {
				fmt.Printf("%s  %-20s %s\n", truncID(p.ID), p.Slug, p.Name)
			}
		})
	},
}

func init() {
	projectCreateCmd.Flags().StringVar(&projectDescription, "description", "", "Project description")
	projectCmd.AddCommand(projectCreateCmd, projectShowCmd, projectListCmd)
	rootCmd.AddCommand(projectCmd)
}
