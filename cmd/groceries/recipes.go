package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/erauner12/groceries/internal/app"
	"github.com/erauner12/groceries/internal/model"
)

// parseIngredient reads "name" or "name:amount".
func parseIngredient(spec string, pos int) (model.IngredientInput, error) {
	name, amount, _ := strings.Cut(spec, ":")
	name = strings.TrimSpace(name)
	if name == "" {
		return model.IngredientInput{}, fmt.Errorf("ingredient %q has no name", spec)
	}
	return model.IngredientInput{
		Name:     name,
		Amount:   model.StringPtr(strings.TrimSpace(amount)),
		Position: pos,
	}, nil
}

func newRecipeCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "recipe",
		Aliases: []string{"recipes"},
		Short:   "Manage recipes",
	}

	var ingredients []string
	add := &cobra.Command{
		Use:   "add <name>",
		Short: "Create a recipe",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := model.RecipeInput{Name: args[0], Ingredients: []model.IngredientInput{}}
			for i, spec := range ingredients {
				ing, err := parseIngredient(spec, i+1)
				if err != nil {
					return err
				}
				in.Ingredients = append(in.Ingredients, ing)
			}
			return withSession(cmd, opts, func(ctx context.Context, s *app.Session) error {
				r, err := s.Store().CreateRecipe(ctx, in)
				if err != nil {
					return err
				}
				reportWrite(cmd.OutOrStdout(), s, "added recipe %s %s with %d ingredient(s)", r.Name, formatID(r.ID), len(r.Ingredients))
				return nil
			})
		},
	}
	add.Flags().StringArrayVarP(&ingredients, "ingredient", "i", nil, "ingredient as name[:amount], repeatable")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List recipes",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return withSession(cmd, opts, func(ctx context.Context, s *app.Session) error {
					out := cmd.OutOrStdout()
					printBanner(out, s.Store())
					for _, r := range s.Store().Recipes() {
						fmt.Fprintf(out, "%s  %s  %d ingredient(s)\n", r.Name, formatID(r.ID), len(r.Ingredients))
					}
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "show <id>",
			Short: "Show a recipe with its ingredients",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := parseID(args[0])
				if err != nil {
					return err
				}
				return withSession(cmd, opts, func(ctx context.Context, s *app.Session) error {
					r, ok := s.Store().Recipe(id)
					if !ok {
						return fmt.Errorf("recipe %d not found", id)
					}
					printRecipe(cmd.OutOrStdout(), r)
					return nil
				})
			},
		},
		add,
		&cobra.Command{
			Use:   "rm <id>",
			Short: "Delete a recipe",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := parseID(args[0])
				if err != nil {
					return err
				}
				return withSession(cmd, opts, func(ctx context.Context, s *app.Session) error {
					if err := s.Store().DeleteRecipe(ctx, id); err != nil {
						return err
					}
					reportWrite(cmd.OutOrStdout(), s, "deleted recipe %s", formatID(id))
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "to-list <id>",
			Short: "Add every ingredient of a recipe to the list",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := parseID(args[0])
				if err != nil {
					return err
				}
				return withSession(cmd, opts, func(ctx context.Context, s *app.Session) error {
					items, err := s.Store().AddRecipeToList(ctx, id)
					if err != nil {
						return err
					}
					reportWrite(cmd.OutOrStdout(), s, "added %d item(s) to the list", len(items))
					return nil
				})
			},
		},
	)
	return cmd
}
