package localstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erauner12/groceries/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := OpenDir(t.TempDir(), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func catID(id int64) *int64 { return &id }

func TestOpen_CreatesFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "data")
	s, err := OpenDir(dir, zerolog.Nop())
	require.NoError(t, err)
	defer s.Close()

	assert.Equal(t, filepath.Join(dir, FileName), s.Path())
}

func TestPutAndGetAll(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	require.NoError(t, s.PutItem(ctx, model.Item{ID: 2, Name: "bread", CategoryID: catID(1)}))
	require.NoError(t, s.PutItem(ctx, model.Item{ID: 1, Name: "milk"}))
	// Upsert replaces the body.
	require.NoError(t, s.PutItem(ctx, model.Item{ID: 1, Name: "oat milk", Checked: true}))

	items, err := s.Items(ctx)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, int64(1), items[0].ID)
	assert.Equal(t, "oat milk", items[0].Name)
	assert.True(t, bool(items[0].Checked))
	require.NotNil(t, items[1].CategoryID)
	assert.Equal(t, int64(1), *items[1].CategoryID)
}

func TestReplaceAll(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	require.NoError(t, s.ReplaceCategories(ctx, []model.Category{
		{ID: 1, Name: "Produce", SortOrder: 1},
		{ID: 2, Name: "Dairy", SortOrder: 2},
	}))
	require.NoError(t, s.ReplaceCategories(ctx, []model.Category{
		{ID: 3, Name: "Bakery", SortOrder: 1},
	}))

	cats, err := s.Categories(ctx)
	require.NoError(t, err)
	require.Len(t, cats, 1)
	assert.Equal(t, "Bakery", cats[0].Name)

	require.NoError(t, s.ReplaceCategories(ctx, nil))
	cats, err = s.Categories(ctx)
	require.NoError(t, err)
	assert.Empty(t, cats)
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	require.NoError(t, s.PutRecipe(ctx, model.Recipe{ID: 7, Name: "Pancakes"}))
	require.NoError(t, s.Delete(ctx, model.KindRecipes, 7))
	// Missing ids are ignored.
	require.NoError(t, s.Delete(ctx, model.KindRecipes, 7))

	recipes, err := s.Recipes(ctx)
	require.NoError(t, err)
	assert.Empty(t, recipes)
}

func TestDelete_UnknownKind(t *testing.T) {
	s := openTestStore(t)

	err := s.Delete(context.Background(), model.Kind("users"), 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownKind)
	assert.True(t, IsPersistence(err))
}

func TestDeleteChecked(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	require.NoError(t, s.ReplaceItems(ctx, []model.Item{
		{ID: 1, Name: "milk", Checked: true},
		{ID: 2, Name: "eggs"},
		{ID: 3, Name: "flour", Checked: true},
	}))

	n, err := s.DeleteChecked(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	items, err := s.Items(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "eggs", items[0].Name)
}

func TestQueue_FIFO(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	first, err := s.Enqueue(ctx, model.ActionItemCreate, model.MutationPayload{
		ID:       -1,
		Item:     &model.ItemInput{Name: "milk"},
		ChangeID: "c1",
	})
	require.NoError(t, err)
	_, err = s.Enqueue(ctx, model.ActionItemUpdate, model.MutationPayload{
		ID:   -1,
		Item: &model.ItemInput{Name: "whole milk"},
	})
	require.NoError(t, err)
	checked := true
	_, err = s.Enqueue(ctx, model.ActionItemToggleCheck, model.MutationPayload{ID: -1, Checked: &checked})
	require.NoError(t, err)

	n, err := s.QueueLen(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	entries, err := s.Queue(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, first.ID, entries[0].ID)
	assert.Equal(t, model.ActionItemCreate, entries[0].Action)
	assert.Equal(t, "c1", entries[0].Payload.ChangeID)
	assert.Equal(t, "milk", entries[0].Payload.Item.Name)
	assert.Equal(t, model.ActionItemUpdate, entries[1].Action)
	assert.Equal(t, model.ActionItemToggleCheck, entries[2].Action)
	require.NotNil(t, entries[2].Payload.Checked)
	assert.True(t, *entries[2].Payload.Checked)
	assert.Less(t, entries[0].ID, entries[1].ID)

	require.NoError(t, s.Remove(ctx, first.ID))
	entries, err = s.Queue(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, model.ActionItemUpdate, entries[0].Action)
}

func TestQueue_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s, err := OpenDir(dir, zerolog.Nop())
	require.NoError(t, err)
	_, err = s.Enqueue(ctx, model.ActionCategoryCreate, model.MutationPayload{ID: -1, Name: "Frozen"})
	require.NoError(t, err)
	require.NoError(t, s.PutCategory(ctx, model.Category{ID: -1, Name: "Frozen", SortOrder: 4}))
	require.NoError(t, s.Close())

	s, err = OpenDir(dir, zerolog.Nop())
	require.NoError(t, err)
	defer s.Close()

	entries, err := s.Queue(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Frozen", entries[0].Payload.Name)

	cats, err := s.Categories(ctx)
	require.NoError(t, err)
	require.Len(t, cats, 1)
	assert.Equal(t, int64(-1), cats[0].ID)
}

func TestQueue_ResolveSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s, err := OpenDir(dir, zerolog.Nop())
	require.NoError(t, err)
	create, err := s.Enqueue(ctx, model.ActionItemCreate, model.MutationPayload{ID: -1, Item: &model.ItemInput{Name: "milk"}})
	require.NoError(t, err)
	checked := true
	toggle, err := s.Enqueue(ctx, model.ActionItemToggleCheck, model.MutationPayload{ID: -1, Checked: &checked})
	require.NoError(t, err)

	resolved := model.ResolvedID{Kind: model.KindItems, TempID: -1, ID: 42}
	require.NoError(t, s.Resolve(ctx, create.ID, resolved))
	require.NoError(t, s.Close())

	s, err = OpenDir(dir, zerolog.Nop())
	require.NoError(t, err)
	defer s.Close()

	entries, err := s.Queue(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, toggle.ID, entries[0].ID)

	ids, err := s.ResolvedIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []model.ResolvedID{resolved}, ids)

	// Emptying the queue drops the mappings with it.
	require.NoError(t, s.Remove(ctx, toggle.ID))
	ids, err = s.ResolvedIDs(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)
}
