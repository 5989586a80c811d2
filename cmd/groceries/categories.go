package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/erauner12/groceries/internal/app"
	"github.com/erauner12/groceries/internal/model"
)

// completeOrder puts named first and appends the remaining categories in
// their current order, so a partial reorder still yields a dense 1..n.
func completeOrder(named []int64, cats []model.Category) []int64 {
	seen := make(map[int64]bool, len(named))
	ids := make([]int64, 0, len(cats))
	for _, id := range named {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	for _, c := range cats {
		if !seen[c.ID] {
			ids = append(ids, c.ID)
		}
	}
	return ids
}

func newCategoryCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "category",
		Aliases: []string{"categories"},
		Short:   "Manage categories",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List categories in display order",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return withSession(cmd, opts, func(ctx context.Context, s *app.Session) error {
					printBanner(cmd.OutOrStdout(), s.Store())
					printCategories(cmd.OutOrStdout(), s.Store().Categories())
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "add <name>",
			Short: "Create a category",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withSession(cmd, opts, func(ctx context.Context, s *app.Session) error {
					c, err := s.Store().CreateCategory(ctx, args[0])
					if err != nil {
						return err
					}
					reportWrite(cmd.OutOrStdout(), s, "added category %s %s", c.Name, formatID(c.ID))
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "rename <id> <name>",
			Short: "Rename a category",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := parseID(args[0])
				if err != nil {
					return err
				}
				return withSession(cmd, opts, func(ctx context.Context, s *app.Session) error {
					c, err := s.Store().UpdateCategory(ctx, id, args[1])
					if err != nil {
						return err
					}
					reportWrite(cmd.OutOrStdout(), s, "renamed category %s to %s", formatID(c.ID), c.Name)
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "rm <id>",
			Short: "Delete an empty category",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := parseID(args[0])
				if err != nil {
					return err
				}
				return withSession(cmd, opts, func(ctx context.Context, s *app.Session) error {
					if err := s.Store().DeleteCategory(ctx, id); err != nil {
						return err
					}
					reportWrite(cmd.OutOrStdout(), s, "deleted category %s", formatID(id))
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "reorder <id>...",
			Short: "Set the display order; ids not named keep their relative order after the named ones",
			Args:  cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				named := make([]int64, 0, len(args))
				for _, a := range args {
					id, err := parseID(a)
					if err != nil {
						return err
					}
					named = append(named, id)
				}
				return withSession(cmd, opts, func(ctx context.Context, s *app.Session) error {
					ids := completeOrder(named, s.Store().Categories())
					if _, err := s.Store().ReorderCategories(ctx, ids); err != nil {
						return err
					}
					reportWrite(cmd.OutOrStdout(), s, "reordered %d categories", len(ids))
					printCategories(cmd.OutOrStdout(), s.Store().Categories())
					return nil
				})
			},
		},
	)
	return cmd
}
