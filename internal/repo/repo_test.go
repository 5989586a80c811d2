package repo

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erauner12/groceries/internal/db"
	"github.com/erauner12/groceries/internal/model"
)

type factory func(t *testing.T) Repository

func memoryFactory(t *testing.T) Repository { return NewMemory() }

func postgresFactory(t *testing.T) Repository {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping postgres repository tests")
	}
	ctx := context.Background()
	pool, err := db.Open(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	require.NoError(t, db.Migrate(ctx, pool))
	require.NoError(t, db.Truncate(ctx, pool))
	return NewPostgres(pool)
}

func TestMemoryRepository(t *testing.T) { runRepositoryTests(t, memoryFactory) }
func TestPostgresRepository(t *testing.T) { runRepositoryTests(t, postgresFactory) }

func ptr[T any](v T) *T { return &v }

func runRepositoryTests(t *testing.T, newRepo factory) {
	t.Run("seed inserts defaults once", func(t *testing.T) {
		ctx := context.Background()
		r := newRepo(t)

		n, err := r.SeedCategories(ctx)
		require.NoError(t, err)
		assert.Equal(t, len(DefaultCategories), n)

		n, err = r.SeedCategories(ctx)
		require.NoError(t, err)
		assert.Zero(t, n)

		cats, err := r.ListCategories(ctx)
		require.NoError(t, err)
		require.Len(t, cats, 10)
		assert.Equal(t, "Fruit & Vegetables", cats[0].Name)
		assert.Equal(t, "Other", cats[9].Name)
		assert.Equal(t, 10, cats[9].SortOrder)
	})

	t.Run("category names are trimmed and unique", func(t *testing.T) {
		ctx := context.Background()
		r := newRepo(t)

		c, err := r.CreateCategory(ctx, "  Spices ")
		require.NoError(t, err)
		assert.Equal(t, "Spices", c.Name)
		assert.Equal(t, 1, c.SortOrder)

		_, err = r.CreateCategory(ctx, "Spices")
		assert.ErrorIs(t, err, ErrDuplicateName)

		_, err = r.CreateCategory(ctx, "   ")
		var ve *ValidationError
		assert.ErrorAs(t, err, &ve)

		_, err = r.UpdateCategory(ctx, 9999, "Nope")
		assert.True(t, IsNotFound(err))
	})

	t.Run("category with items cannot be deleted", func(t *testing.T) {
		ctx := context.Background()
		r := newRepo(t)

		c, err := r.CreateCategory(ctx, "Dairy")
		require.NoError(t, err)
		it, err := r.CreateItem(ctx, model.ItemInput{Name: "milk", CategoryID: &c.ID})
		require.NoError(t, err)

		err = r.DeleteCategory(ctx, c.ID)
		var inUse *CategoryInUseError
		require.ErrorAs(t, err, &inUse)
		assert.Equal(t, 1, inUse.ItemCount)

		require.NoError(t, r.DeleteItem(ctx, it.ID))
		require.NoError(t, r.DeleteCategory(ctx, c.ID))
		assert.True(t, IsNotFound(r.DeleteCategory(ctx, c.ID)))
	})

	t.Run("reorder", func(t *testing.T) {
		ctx := context.Background()
		r := newRepo(t)

		a, _ := r.CreateCategory(ctx, "A")
		b, _ := r.CreateCategory(ctx, "B")
		c, _ := r.CreateCategory(ctx, "C")

		cats, err := r.ReorderCategories(ctx, model.DenseOrder([]int64{c.ID, a.ID, b.ID}))
		require.NoError(t, err)
		require.Len(t, cats, 3)
		assert.Equal(t, []string{"C", "A", "B"}, []string{cats[0].Name, cats[1].Name, cats[2].Name})

		_, err = r.ReorderCategories(ctx, []model.SortOrder{{SortOrder: 1}})
		var ve *ValidationError
		assert.ErrorAs(t, err, &ve)
	})

	t.Run("items get increasing positions and joined category", func(t *testing.T) {
		ctx := context.Background()
		r := newRepo(t)

		c, err := r.CreateCategory(ctx, "Bakery")
		require.NoError(t, err)

		first, err := r.CreateItem(ctx, model.ItemInput{Name: " bread ", Amount: ptr(" 2 "), CategoryID: &c.ID})
		require.NoError(t, err)
		assert.Equal(t, "bread", first.Name)
		require.NotNil(t, first.Amount)
		assert.Equal(t, "2", *first.Amount)
		require.NotNil(t, first.CategoryName)
		assert.Equal(t, "Bakery", *first.CategoryName)

		second, err := r.CreateItem(ctx, model.ItemInput{Name: "jam", Description: ptr("  ")})
		require.NoError(t, err)
		assert.Equal(t, first.Position+1, second.Position)
		assert.Nil(t, second.Description)
		assert.Nil(t, second.CategoryID)

		_, err = r.CreateItem(ctx, model.ItemInput{Name: ""})
		var ve *ValidationError
		assert.ErrorAs(t, err, &ve)
	})

	t.Run("learned category mapping", func(t *testing.T) {
		ctx := context.Background()
		r := newRepo(t)

		c, err := r.CreateCategory(ctx, "Produce")
		require.NoError(t, err)
		_, err = r.CreateItem(ctx, model.ItemInput{Name: "Apples", CategoryID: &c.ID})
		require.NoError(t, err)

		suggested, err := r.SuggestCategory(ctx, "  apples ")
		require.NoError(t, err)
		require.NotNil(t, suggested)
		assert.Equal(t, c.ID, *suggested)

		again, err := r.CreateItem(ctx, model.ItemInput{Name: "APPLES"})
		require.NoError(t, err)
		require.NotNil(t, again.CategoryID)
		assert.Equal(t, c.ID, *again.CategoryID)

		none, err := r.SuggestCategory(ctx, "pears")
		require.NoError(t, err)
		assert.Nil(t, none)
	})

	t.Run("uncheck moves item to end of its category", func(t *testing.T) {
		ctx := context.Background()
		r := newRepo(t)

		c, err := r.CreateCategory(ctx, "Dairy")
		require.NoError(t, err)
		var ids []int64
		for _, name := range []string{"milk", "cheese", "yogurt"} {
			it, err := r.CreateItem(ctx, model.ItemInput{Name: name, CategoryID: &c.ID})
			require.NoError(t, err)
			ids = append(ids, it.ID)
		}

		checked, err := r.SetChecked(ctx, ids[0], true)
		require.NoError(t, err)
		assert.True(t, bool(checked.Checked))
		assert.Equal(t, 1, checked.Position)

		unchecked, err := r.SetChecked(ctx, ids[0], false)
		require.NoError(t, err)
		assert.False(t, bool(unchecked.Checked))
		assert.Equal(t, 4, unchecked.Position)

		items, err := r.ListItems(ctx)
		require.NoError(t, err)
		assert.Equal(t, ids[0], items[len(items)-1].ID)

		_, err = r.SetChecked(ctx, 9999, true)
		assert.True(t, IsNotFound(err))
	})

	t.Run("checked items sort last and delete together", func(t *testing.T) {
		ctx := context.Background()
		r := newRepo(t)

		a, _ := r.CreateItem(ctx, model.ItemInput{Name: "a"})
		b, _ := r.CreateItem(ctx, model.ItemInput{Name: "b"})
		_, err := r.SetChecked(ctx, a.ID, true)
		require.NoError(t, err)

		items, err := r.ListItems(ctx)
		require.NoError(t, err)
		require.Len(t, items, 2)
		assert.Equal(t, b.ID, items[0].ID)

		n, err := r.DeleteChecked(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		items, err = r.ListItems(ctx)
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, b.ID, items[0].ID)

		assert.True(t, IsNotFound(r.DeleteItem(ctx, a.ID)))
	})

	t.Run("recipes and add to list", func(t *testing.T) {
		ctx := context.Background()
		r := newRepo(t)

		c, err := r.CreateCategory(ctx, "Pantry")
		require.NoError(t, err)
		existing, err := r.CreateItem(ctx, model.ItemInput{Name: "salt"})
		require.NoError(t, err)

		recipe, err := r.CreateRecipe(ctx, model.RecipeInput{
			Name: "Pancakes",
			Ingredients: []model.IngredientInput{
				{Name: "flour", Amount: ptr("200g"), CategoryID: &c.ID},
				{Name: "eggs"},
			},
		})
		require.NoError(t, err)
		require.Len(t, recipe.Ingredients, 2)
		assert.Equal(t, "flour", recipe.Ingredients[0].Name)
		assert.Equal(t, 1, recipe.Ingredients[0].Position)
		require.NotNil(t, recipe.Ingredients[0].CategoryName)
		assert.Equal(t, "Pantry", *recipe.Ingredients[0].CategoryName)

		_, err = r.CreateRecipe(ctx, model.RecipeInput{Name: "Bad", Ingredients: []model.IngredientInput{{Name: " "}}})
		var ve *ValidationError
		assert.ErrorAs(t, err, &ve)

		added, err := r.AddRecipeToList(ctx, recipe.ID)
		require.NoError(t, err)
		require.Len(t, added, 2)
		assert.Equal(t, existing.Position+1, added[0].Position)
		assert.Equal(t, existing.Position+2, added[1].Position)
		require.NotNil(t, added[0].CategoryName)
		assert.Equal(t, "Pantry", *added[0].CategoryName)

		empty, err := r.CreateRecipe(ctx, model.RecipeInput{Name: "Water"})
		require.NoError(t, err)
		assert.NotNil(t, empty.Ingredients)
		_, err = r.AddRecipeToList(ctx, empty.ID)
		var ni *NoIngredientsError
		assert.ErrorAs(t, err, &ni)

		updated, err := r.UpdateRecipe(ctx, recipe.ID, model.RecipeInput{
			Name:        "Crepes",
			Ingredients: []model.IngredientInput{{Name: "milk"}},
		})
		require.NoError(t, err)
		assert.Equal(t, "Crepes", updated.Name)
		require.Len(t, updated.Ingredients, 1)

		list, err := r.ListRecipes(ctx)
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, "Crepes", list[0].Name)
		assert.Len(t, list[0].Ingredients, 1)

		require.NoError(t, r.DeleteRecipe(ctx, recipe.ID))
		_, err = r.GetRecipe(ctx, recipe.ID)
		assert.True(t, IsNotFound(err))
	})
}

func TestErrorMessages(t *testing.T) {
	assert.Equal(t, "Item not found", (&NotFoundError{Entity: "Item", ID: 1}).Error())
	assert.Equal(t, "Recipe not found or has no ingredients", (&NoIngredientsError{RecipeID: 1}).Error())
	assert.True(t, IsNotFound(&NoIngredientsError{}))
	assert.False(t, IsNotFound(errors.New("boom")))
}
