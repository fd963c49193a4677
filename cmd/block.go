package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"mycelica/folio/internal/blocks"
	"mycelica/folio/internal/content"
	"mycelica/folio/internal/db"
)

var (
	blockTitle    string
	blockID       string
	blockChildren bool
)

var blockCmd = &cobra.Command{
	Use:   "block",
	Short: "Edit the content blocks of a page",
}

// openSession starts an editor session on a page. Writes go through the
// configured autosave and are flushed when the session closes.
func (a *app) openSession(ctx context.Context, ref string) (*blocks.Session, error) {
	page, err := a.ResolvePage(ctx, ref)
	if err != nil {
		return nil, err
	}
	bridge := blocks.NewBridge(a.repo, a.log.With().Str("component", "blocks").Logger())
	return blocks.Open(ctx, bridge, page.ID, blocks.SessionOptions{AutosaveInterval: a.cfg.AutosaveInterval})
}

// withSession runs fn in a session and closes it; a failed final save is
// reported even when fn succeeded.
func (a *app) withSession(ctx context.Context, ref string, fn func(*blocks.Session) error) (*blocks.Session, error) {
	s, err := a.openSession(ctx, ref)
	if err != nil {
		return nil, err
	}
	err = fn(s)
	if closeErr := s.Close(ctx); err == nil {
		err = closeErr
	}
	return s, err
}

var blockListCmd = &cobra.Command{
	Use:   "list <page>",
	Short: "List the top-level blocks of a page in display order",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		bridge := blocks.NewBridge(a.repo, a.log)
		page, err := a.ResolvePage(cmd.Context(), args[0])
		if err != nil {
			return emit[*content.Document](nil, err, nil)
		}
		_, doc, err := bridge.Load(cmd.Context(), page.ID)
		return emit(doc, err, func(d *content.Document) {
			for _, b := range d.Blocks() {
				line := fmt.Sprintf("  %3d  %-14s %s", b.Meta.Order, b.Type, b.ID)
				if content.IsSubPage(b.Type) {
					target, title := b.SubPageProps()
					if target == "" {
						target = "(not created)"
					}
					line += fmt.Sprintf("  -> %s %s", truncID(target), title)
				}
				fmt.Println(line)
			}
		})
	},
}

var blockSetPropsCmd = &cobra.Command{
	Use:   "set-props <page> <block> key=value...",
	Short: "Merge props into a block or nested element (values are JSON, else strings)",
	Args:  cobra.MinimumNArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		partial, err := parseProps(args[2:])
		if err != nil {
			return err
		}
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		ctx := cmd.Context()
		s, err := a.withSession(ctx, args[0], func(s *blocks.Session) error {
			return s.UpdateBlockProps(ctx, args[1], partial)
		})
		return emitProps(s, args[1], err)
	},
}

var blockRemoveCmd = &cobra.Command{
	Use:   "remove <page> <block>",
	Short: "Remove a block; a page it links to is kept",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		ctx := cmd.Context()
		_, err = a.withSession(ctx, args[0], func(s *blocks.Session) error {
			return s.RemoveBlock(ctx, args[1])
		})
		return emit(map[string]string{"removed": args[1]}, err, func(map[string]string) {
			fmt.Printf("Removed block %s\n", args[1])
		})
	},
}

var blockAddSubPageCmd = &cobra.Command{
	Use:   "add-subpage <page>",
	Short: "Append a sub-page block; create its page with `block materialize`",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		ctx := cmd.Context()
		id := blockID
		if id == "" {
			id = uuid.NewString()
		}
		var added *content.Block
		_, err = a.withSession(ctx, args[0], func(s *blocks.Session) error {
			order := 0
			if existing := s.Document().Blocks(); len(existing) > 0 {
				order = existing[len(existing)-1].Meta.Order + 1
			}
			added = content.NewSubPageBlock(id, blockTitle, order)
			return s.InsertBlock(ctx, added)
		})
		return emit(added, err, func(b *content.Block) {
			fmt.Printf("Added sub-page block %s at order %d\n", b.ID, b.Meta.Order)
		})
	},
}

var blockMaterializeCmd = &cobra.Command{
	Use:   "materialize <page> <block>",
	Short: "Create the child page a sub-page block links to",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		ctx := cmd.Context()
		var page *db.Page
		_, err = a.withSession(ctx, args[0], func(s *blocks.Session) error {
			sp, err := s.SubPage(args[1])
			if err != nil {
				return err
			}
			if sp.State() == blocks.Ready {
				page, err = sp.Target(ctx)
				return err
			}
			page, err = sp.Materialize(ctx)
			return err
		})
		return emit(page, err, func(p *db.Page) {
			fmt.Printf("Block %s -> %s  %s (slug %s)\n", args[1], truncID(p.ID), p.Title, p.Slug)
		})
	},
}

var blockDeletePageCmd = &cobra.Command{
	Use:   "delete-page <page> <block>",
	Short: "Delete the page a sub-page block links to; the block stays",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		ctx := cmd.Context()
		var deleted []string
		_, err = a.withSession(ctx, args[0], func(s *blocks.Session) error {
			var err error
			deleted, err = s.DeleteReferencedPage(ctx, args[1], blockChildren)
			return err
		})
		return emit(deleted, err, func(ids []string) {
			fmt.Printf("Deleted %d page(s) linked from block %s\n", len(ids), args[1])
		})
	},
}

func init() {
	blockAddSubPageCmd.Flags().StringVar(&blockTitle, "title", "", "Title of the sub-page")
	blockAddSubPageCmd.Flags().StringVar(&blockID, "id", "", "Block id (random when empty)")
	blockDeletePageCmd.Flags().BoolVar(&blockChildren, "children", false, "Delete the linked page's subtree too")

	blockCmd.AddCommand(blockListCmd, blockSetPropsCmd, blockRemoveCmd, blockAddSubPageCmd,
		blockMaterializeCmd, blockDeletePageCmd)
	rootCmd.AddCommand(blockCmd)
}

// parseProps turns key=value pairs into a props map. Values that parse as JSON
// keep their type; anything else is a string.
func parseProps(pairs []string) (map[string]any, error) {
	props := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, raw, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid prop %q, expected key=value", pair)
		}
		var v any
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			v = raw
		}
		props[key] = v
	}
	return props, nil
}

func emitProps(s *blocks.Session, id string, err error) error {
	var props map[string]any
	if err == nil {
		props, err = s.Document().Props(id)
	}
	return emit(props, err, func(p map[string]any) {
		out, _ := json.MarshalIndent(p, "  ", "  ")
		fmt.Printf("Block %s props:\n  %s\n", id, out)
	})
}
