package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"mycelica/folio/internal/db"
	"mycelica/folio/internal/pages"
)

var (
	pageParent      string
	pageSlug        string
	pageOrder       int
	pageContentFile string
	pageDescription string
	pageIcon        string
	pagePublished   bool
	pageTitle       string
	pageChildren    bool
	pageAsRoot      bool
)

var pageCmd = &cobra.Command{
	Use:   "page",
	Short: "Create, edit and rearrange pages",
}

var pageCreateCmd = &cobra.Command{
	Use:   "create <title>",
	Short: "Create a page",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		ctx := cmd.Context()
		project, err := a.project(ctx)
		if err != nil {
			return emit[*db.Page](nil, err, nil)
		}
		opts := pages.CreateOptions{
			ProjectID:   project.ID,
			Title:       args[0],
			Slug:        pageSlug,
			Description: optionalString(cmd, "description", pageDescription),
			Icon:        optionalString(cmd, "icon", pageIcon),
			IsPublished: pagePublished,
		}
		if pageParent != "" {
			parent, err := a.ResolvePage(ctx, pageParent)
			if err != nil {
				return emit[*db.Page](nil, err, nil)
			}
			opts.ParentPageID = &parent.ID
		}
		if cmd.Flags().Changed("order") {
			opts.OrderIndex = &pageOrder
		}
		if opts.Content, err = readContent(cmd); err != nil {
			return err
		}

		page, err := a.repo.Create(ctx, opts)
		return emit(page, err, func(p *db.Page) {
			fmt.Printf("Created %s  %s (slug %s, order %d)\n", truncID(p.ID), p.Title, p.Slug, p.OrderIndex)
		})
	},
}

var pageShowCmd = &cobra.Command{
	Use:   "show <page>",
	Short: "Show a page by ID, ID prefix or /slug/path",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		page, err := a.ResolvePage(cmd.Context(), args[0])
		return emit(page, err, printPage)
	},
}

var pageUpdateCmd = &cobra.Command{
	Use:   "update <page>",
	Short: "Update title, content, description or icon",
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
			return emit[*db.Page](nil, err, nil)
		}
		opts := pages.UpdateOptions{
			Title:       optionalString(cmd, "title", pageTitle),
			Description: optionalString(cmd, "description", pageDescription),
			Icon:        optionalString(cmd, "icon", pageIcon),
		}
		if opts.Content, err = readContent(cmd); err != nil {
			return err
		}

		page, err = a.repo.Update(ctx, page.ID, opts)
		return emit(page, err, printPage)
	},
}

var pageDeleteCmd = &cobra.Command{
	Use:   "delete <page>",
	Short: "Delete a page; children move up to its parent unless --children is set",
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
			return emit[[]string](nil, err, nil)
		}
		deleted, err := a.repo.Delete(ctx, page.ID, pageChildren)
		return emit(deleted, err, func(ids []string) {
			fmt.Printf("Deleted %d page(s)\n", len(ids))
			for _, id := range ids {
				fmt.Printf("  %s\n", truncID(id))
			}
		})
	},
}

var pageMoveCmd = &cobra.Command{
	Use:   "move <page>",
	Short: "Move a page under --parent (empty or \"root\" for the top level)",
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
			return emit[*db.Page](nil, err, nil)
		}
		var opts pages.MoveOptions
		if opts.NewParentID, err = a.parentRef(ctx, pageParent); err != nil {
			return emit[*db.Page](nil, err, nil)
		}
		if cmd.Flags().Changed("order") {
			opts.NewOrderIndex = &pageOrder
		}

		page, err = a.repo.Move(ctx, page.ID, opts)
		return emit(page, err, func(p *db.Page) {
			parent := "root"
			if p.ParentPageID != nil {
				parent = truncID(*p.ParentPageID)
			}
			fmt.Printf("Moved %s under %s (slug %s, order %d)\n", truncID(p.ID), parent, p.Slug, p.OrderIndex)
		})
	},
}

var pageDuplicateCmd = &cobra.Command{
	Use:   "duplicate <page>",
	Short: "Copy a page, optionally with its subtree; copies start unpublished",
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
			return emit[*db.Page](nil, err, nil)
		}
		opts := pages.DuplicateOptions{
			NewTitle:        pageTitle,
			AsRoot:          pageAsRoot,
			IncludeChildren: pageChildren,
		}
		if pageParent != "" {
			if opts.NewParentID, err = a.parentRef(ctx, pageParent); err != nil {
				return emit[*db.Page](nil, err, nil)
			}
			opts.AsRoot = opts.NewParentID == nil
		}

		page, err = a.repo.Duplicate(ctx, page.ID, opts)
		return emit(page, err, func(p *db.Page) {
			fmt.Printf("Duplicated as %s  %s (slug %s)\n", truncID(p.ID), p.Title, p.Slug)
		})
	},
}

func publishCommand(use, short string, published bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <page>",
		Short: short,
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
				return emit[*db.Page](nil, err, nil)
			}
			page, err = a.repo.SetPublished(ctx, page.ID, published)
			return emit(page, err, func(p *db.Page) {
				fmt.Printf("%s  %s  published=%v\n", truncID(p.ID), p.Title, p.IsPublished)
			})
		},
	}
}

var pageVersionsCmd = &cobra.Command{
	Use:   "versions <page>",
	Short: "List content snapshots of a page, newest first",
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
			return emit[[]db.PageVersion](nil, err, nil)
		}
		versions, err := a.repo.Versions(ctx, page.ID)
		return emit(versions, err, func(vs []db.PageVersion) {
			if len(vs) == 0 {
				fmt.Println("No versions.")
				return
			}
			for _, v := range vs {
				fmt.Printf("  v%-3d %s  %s  %s\n", v.Version, truncID(v.ID),
					time.UnixMilli(v.CreatedAt).Format(time.DateTime), truncTitle(v.Title, 50))
			}
		})
	},
}

var pageRestoreCmd = &cobra.Command{
	Use:   "restore <page> <version-id>",
	Short: "Restore a page's title and content from a version",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		ctx := cmd.Context()
		page, err := a.ResolvePage(ctx, args[0])
		if err != nil {
			return emit[*db.Page](nil, err, nil)
		}
		page, err = a.repo.RestoreVersion(ctx, page.ID, args[1])
		return emit(page, err, printPage)
	},
}

func init() {
	pageCreateCmd.Flags().StringVar(&pageParent, "parent", "", "Parent page (ID, prefix or /path)")
	pageCreateCmd.Flags().StringVar(&pageSlug, "slug", "", "Slug base (derived from the title when empty)")
	pageCreateCmd.Flags().IntVar(&pageOrder, "order", 0, "Order among siblings (appended when unset)")
	pageCreateCmd.Flags().StringVar(&pageContentFile, "content-file", "", "Block map JSON file ('-' for stdin)")
	pageCreateCmd.Flags().StringVar(&pageDescription, "description", "", "Page description")
	pageCreateCmd.Flags().StringVar(&pageIcon, "icon", "", "Page icon")
	pageCreateCmd.Flags().BoolVar(&pagePublished, "published", false, "Publish immediately")

	pageUpdateCmd.Flags().StringVar(&pageTitle, "title", "", "New title")
	pageUpdateCmd.Flags().StringVar(&pageContentFile, "content-file", "", "Block map JSON file ('-' for stdin)")
	pageUpdateCmd.Flags().StringVar(&pageDescription, "description", "", "New description")
	pageUpdateCmd.Flags().StringVar(&pageIcon, "icon", "", "New icon")

	pageDeleteCmd.Flags().BoolVar(&pageChildren, "children", false, "Delete the whole subtree")

	pageMoveCmd.Flags().StringVar(&pageParent, "parent", "", "New parent (ID, prefix, /path; empty or \"root\" for top level)")
	pageMoveCmd.Flags().IntVar(&pageOrder, "order", 0, "Order among new siblings (appended when unset)")

	pageDuplicateCmd.Flags().StringVar(&pageTitle, "title", "", "Title of the copy (default \"<title> (copy)\")")
	pageDuplicateCmd.Flags().StringVar(&pageParent, "parent", "", "Parent of the copy (default: next to the source)")
	pageDuplicateCmd.Flags().BoolVar(&pageAsRoot, "root", false, "Place the copy at the top level")
	pageDuplicateCmd.Flags().BoolVar(&pageChildren, "children", false, "Copy the whole subtree")

	pageCmd.AddCommand(pageCreateCmd, pageShowCmd, pageUpdateCmd, pageDeleteCmd, pageMoveCmd, pageDuplicateCmd,
		publishCommand("publish", "Publish a page", true),
		publishCommand("unpublish", "Unpublish a page", false),
		pageVersionsCmd, pageRestoreCmd)
	rootCmd.AddCommand(pageCmd)
}

// parentRef resolves a destination parent; "" and "root" mean the top level.
func (a *app) parentRef(ctx context.Context, ref string) (*string, error) {
	if ref == "" || ref == "root" {
		return nil, nil
	}
	parent, err := a.ResolvePage(ctx, ref)
	if err != nil {
		return nil, err
	}
	return &parent.ID, nil
}

func readContent(cmd *cobra.Command) (json.RawMessage, error) {
	if !cmd.Flags().Changed("content-file") {
		return nil, nil
	}
	var (
		raw []byte
		err error
	)
	if pageContentFile == "-" {
		raw, err = io.ReadAll(os.Stdin)
	} else {
		raw, err = os.ReadFile(pageContentFile)
	}
	if err != nil {
		return nil, fmt.Errorf("reading content: %w", err)
	}
	return raw, nil
}

func printPage(p *db.Page) {
	fmt.Printf("%s  %s\n", p.ID, p.Title)
	fmt.Printf("  slug: %s  order: %d  published: %v  content v%d\n", p.Slug, p.OrderIndex, p.IsPublished, p.ContentVersion)
	if p.ParentPageID != nil {
		fmt.Printf("  parent: %s\n", *p.ParentPageID)
	}
	if p.Description != nil {
		fmt.Printf("  description: %s\n", *p.Description)
	}
	fmt.Printf("  updated: %s\n", time.UnixMilli(p.UpdatedAt).Format(time.DateTime))
}
