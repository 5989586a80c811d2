package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/erauner12/groceries/internal/app"
	"github.com/erauner12/groceries/internal/model"
)

func parseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid id %q", arg)
	}
	return id, nil
}

// itemFlags binds the optional item fields shared by add and edit.
type itemFlags struct {
	amount      string
	description string
	category    int64
}

func (f *itemFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.amount, "amount", "", "amount, e.g. \"2 l\"")
	cmd.Flags().StringVar(&f.description, "description", "", "free-form note")
	cmd.Flags().Int64Var(&f.category, "category", 0, "category id")
}

// apply overlays the flags the user set onto in.
func (f *itemFlags) apply(cmd *cobra.Command, in *model.ItemInput) {
	if cmd.Flags().Changed("amount") {
		in.Amount = model.StringPtr(f.amount)
	}
	if cmd.Flags().Changed("description") {
		in.Description = model.StringPtr(f.description)
	}
	if cmd.Flags().Changed("category") {
		if f.category == 0 {
			in.CategoryID = nil
		} else {
			id := f.category
			in.CategoryID = &id
		}
	}
}

func newListCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Show the grocery list",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, opts, func(ctx context.Context, s *app.Session) error {
				out := cmd.OutOrStdout()
				store := s.Store()
				printBanner(out, store)
				printList(out, store.Categories(), store.Items())
				return nil
			})
		},
	}
}

func newAddCommand(opts *rootOptions) *cobra.Command {
	var f itemFlags
	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add an item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := model.ItemInput{Name: args[0]}
			f.apply(cmd, &in)
			return withSession(cmd, opts, func(ctx context.Context, s *app.Session) error {
				it, err := s.Store().CreateItem(ctx, in)
				if err != nil {
					return err
				}
				reportWrite(cmd.OutOrStdout(), s, "added %s %s", it.Name, formatID(it.ID))
				return nil
			})
		},
	}
	f.register(cmd)
	return cmd
}

func newEditCommand(opts *rootOptions) *cobra.Command {
	var f itemFlags
	cmd := &cobra.Command{
		Use:   "edit <id> <name>",
		Short: "Rename an item or change its details",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withSession(cmd, opts, func(ctx context.Context, s *app.Session) error {
				cur, ok := s.Store().Item(id)
				if !ok {
					return fmt.Errorf("item %d not found", id)
				}
				in := model.ItemInput{
					Name:        args[1],
					Amount:      cur.Amount,
					Description: cur.Description,
					CategoryID:  cur.CategoryID,
				}
				f.apply(cmd, &in)

				it, err := s.Store().UpdateItem(ctx, id, in)
				if err != nil {
					return err
				}
				reportWrite(cmd.OutOrStdout(), s, "updated %s %s", it.Name, formatID(it.ID))
				return nil
			})
		},
	}
	f.register(cmd)
	return cmd
}

func newCheckCommand(opts *rootOptions, checked bool) *cobra.Command {
	use, short, verb := "check <id>", "Mark an item as bought", "checked"
	if !checked {
		use, short, verb = "uncheck <id>", "Put an item back on the list", "unchecked"
	}
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withSession(cmd, opts, func(ctx context.Context, s *app.Session) error {
				it, err := s.Store().ToggleCheck(ctx, id, checked)
				if err != nil {
					return err
				}
				reportWrite(cmd.OutOrStdout(), s, "%s %s", verb, it.Name)
				return nil
			})
		},
	}
}

func newRemoveCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"remove"},
		Short:   "Delete an item",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withSession(cmd, opts, func(ctx context.Context, s *app.Session) error {
				if err := s.Store().DeleteItem(ctx, id); err != nil {
					return err
				}
				reportWrite(cmd.OutOrStdout(), s, "deleted %s", formatID(id))
				return nil
			})
		},
	}
}

func newClearCheckedCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "clear-checked",
		Short: "Delete every checked item",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, opts, func(ctx context.Context, s *app.Session) error {
				n, err := s.Store().DeleteCheckedItems(ctx)
				if err != nil {
					return err
				}
				reportWrite(cmd.OutOrStdout(), s, "deleted %d checked item(s)", n)
				return nil
			})
		},
	}
}
