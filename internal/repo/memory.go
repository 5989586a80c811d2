package repo

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/erauner12/groceries/internal/model"
)

type mapping struct {
	categoryID int64
	useCount   int
	lastUsed   time.Time
}

// Memory is an in-process Repository. It backs the server when no
// database is configured and the handler tests.
type Memory struct {
	mu         sync.Mutex
	now        func() time.Time
	lastID     int64
	categories map[int64]model.Category
	items      map[int64]model.Item
	recipes    map[int64]model.Recipe
	mappings   map[string]mapping
}

// NewMemory creates an empty repository.
func NewMemory() *Memory {
	return &Memory{
		now:        time.Now,
		categories: make(map[int64]model.Category),
		items:      make(map[int64]model.Item),
		recipes:    make(map[int64]model.Recipe),
		mappings:   make(map[string]mapping),
	}
}

func (m *Memory) nextID() int64 {
	m.lastID++
	return m.lastID
}

func (m *Memory) ListCategories(ctx context.Context) ([]model.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sortedCategories(), nil
}

func (m *Memory) sortedCategories() []model.Category {
	out := make([]model.Category, 0, len(m.categories))
	for _, c := range m.categories {
		out = append(out, c)
	}
	model.SortCategories(out)
	return out
}

func (m *Memory) nameTaken(name string, except int64) bool {
	for _, c := range m.categories {
		if c.ID != except && c.Name == name {
			return true
		}
	}
	return false
}

func (m *Memory) CreateCategory(ctx context.Context, name string) (model.Category, error) {
	name, err := requireName(name, "Category name is required")
	if err != nil {
		return model.Category{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.nameTaken(name, 0) {
		return model.Category{}, ErrDuplicateName
	}
	c := model.Category{
		ID:        m.nextID(),
		Name:      name,
		SortOrder: model.NextSortOrder(m.sortedCategories()),
		CreatedAt: m.now().UTC(),
	}
	m.categories[c.ID] = c
	return c, nil
}

func (m *Memory) UpdateCategory(ctx context.Context, id int64, name string) (model.Category, error) {
	name, err := requireName(name, "Category name is required")
	if err != nil {
		return model.Category{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.categories[id]
	if !ok {
		return model.Category{}, &NotFoundError{Entity: "Category", ID: id}
	}
	if m.nameTaken(name, id) {
		return model.Category{}, ErrDuplicateName
	}
	c.Name = name
	m.categories[id] = c
	return c, nil
}

func (m *Memory) DeleteCategory(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var inUse int
	for _, it := range m.items {
		if it.CategoryID != nil && *it.CategoryID == id {
			inUse++
		}
	}
	if inUse > 0 {
		return &CategoryInUseError{ItemCount: inUse}
	}
	if _, ok := m.categories[id]; !ok {
		return &NotFoundError{Entity: "Category", ID: id}
	}
	delete(m.categories, id)
	for key, mp := range m.mappings {
		if mp.categoryID == id {
			delete(m.mappings, key)
		}
	}
	m.clearIngredientCategory(id)
	return nil
}

func (m *Memory) clearIngredientCategory(id int64) {
	for rid, r := range m.recipes {
		for i := range r.Ingredients {
			if r.Ingredients[i].CategoryID != nil && *r.Ingredients[i].CategoryID == id {
				r.Ingredients[i].CategoryID = nil
			}
		}
		m.recipes[rid] = r
	}
}

// ReorderCategories applies every entry or none. Unknown ids are ignored,
// as an UPDATE matching no row would be.
func (m *Memory) ReorderCategories(ctx context.Context, order []model.SortOrder) ([]model.Category, error) {
	for _, so := range order {
		if so.ID == 0 {
			return nil, &ValidationError{Message: "Each category must have id and sort_order"}
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, so := range order {
		if c, ok := m.categories[so.ID]; ok {
			c.SortOrder = so.SortOrder
			m.categories[so.ID] = c
		}
	}
	return m.sortedCategories(), nil
}

func (m *Memory) SeedCategories(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.categories) > 0 {
		return 0, nil
	}
	now := m.now().UTC()
	for i, name := range DefaultCategories {
		id := m.nextID()
		m.categories[id] = model.Category{ID: id, Name: name, SortOrder: i + 1, CreatedAt: now}
	}
	return len(DefaultCategories), nil
}

// decorated joins the category fields the API returns with an item.
func (m *Memory) decorated(it model.Item) model.Item {
	it.CategoryName, it.CategorySortOrder = nil, nil
	if it.CategoryID == nil {
		return it
	}
	if c, ok := m.categories[*it.CategoryID]; ok {
		name, order := c.Name, c.SortOrder
		it.CategoryName, it.CategorySortOrder = &name, &order
	}
	return it
}

func (m *Memory) ListItems(ctx context.Context) ([]model.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sortedItems(), nil
}

func (m *Memory) sortedItems() []model.Item {
	out := make([]model.Item, 0, len(m.items))
	for _, it := range m.items {
		out = append(out, m.decorated(it))
	}
	model.SortItems(out)
	return out
}

func (m *Memory) allItems() []model.Item {
	out := make([]model.Item, 0, len(m.items))
	for _, it := range m.items {
		out = append(out, it)
	}
	return out
}

// validCategory drops references to categories that do not exist.
func (m *Memory) validCategory(id *int64) *int64 {
	if id == nil {
		return nil
	}
	if _, ok := m.categories[*id]; !ok {
		return nil
	}
	v := *id
	return &v
}

func (m *Memory) CreateItem(ctx context.Context, in model.ItemInput) (model.Item, error) {
	name, err := requireName(in.Name, "Item name is required")
	if err != nil {
		return model.Item{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	categoryID := m.validCategory(in.CategoryID)
	if categoryID == nil {
		categoryID = m.suggest(name)
	}
	now := m.now().UTC()
	it := model.Item{
		ID:          m.nextID(),
		Name:        name,
		Description: trimOptional(in.Description),
		Amount:      trimOptional(in.Amount),
		CategoryID:  categoryID,
		Position:    model.NextPosition(m.allItems()),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	m.items[it.ID] = it
	if categoryID != nil {
		m.learn(name, *categoryID)
	}
	return m.decorated(it), nil
}

func (m *Memory) UpdateItem(ctx context.Context, id int64, in model.ItemInput) (model.Item, error) {
	name, err := requireName(in.Name, "Item name is required")
	if err != nil {
		return model.Item{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.items[id]
	if !ok {
		return model.Item{}, &NotFoundError{Entity: "Item", ID: id}
	}
	it.Name = name
	it.Description = trimOptional(in.Description)
	it.Amount = trimOptional(in.Amount)
	it.CategoryID = m.validCategory(in.CategoryID)
	it.UpdatedAt = m.now().UTC()
	m.items[id] = it
	if it.CategoryID != nil {
		m.learn(name, *it.CategoryID)
	}
	return m.decorated(it), nil
}

func (m *Memory) SetChecked(ctx context.Context, id int64, checked bool) (model.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.items[id]
	if !ok {
		return model.Item{}, &NotFoundError{Entity: "Item", ID: id}
	}
	if !checked && bool(it.Checked) {
		it.Position = model.NextUncheckedPosition(m.allItems(), it.CategoryID, id)
	}
	it.Checked = model.Flag(checked)
	it.UpdatedAt = m.now().UTC()
	m.items[id] = it
	return m.decorated(it), nil
}

func (m *Memory) DeleteItem(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[id]; !ok {
		return &NotFoundError{Entity: "Item", ID: id}
	}
	delete(m.items, id)
	return nil
}

func (m *Memory) DeleteChecked(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int
	for id, it := range m.items {
		if it.Checked {
			delete(m.items, id)
			n++
		}
	}
	return n, nil
}

func (m *Memory) withIngredients(r model.Recipe) model.Recipe {
	ings := make([]model.Ingredient, len(r.Ingredients))
	for i, ing := range r.Ingredients {
		ing.CategoryName = nil
		if ing.CategoryID != nil {
			if c, ok := m.categories[*ing.CategoryID]; ok {
				name := c.Name
				ing.CategoryName = &name
			}
		}
		ings[i] = ing
	}
	sort.SliceStable(ings, func(a, b int) bool { return ings[a].Position < ings[b].Position })
	r.Ingredients = ings
	return r
}

func (m *Memory) ListRecipes(ctx context.Context) ([]model.Recipe, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Recipe, 0, len(m.recipes))
	for _, r := range m.recipes {
		out = append(out, m.withIngredients(r))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *Memory) GetRecipe(ctx context.Context, id int64) (model.Recipe, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.recipes[id]
	if !ok {
		return model.Recipe{}, &NotFoundError{Entity: "Recipe", ID: id}
	}
	return m.withIngredients(r), nil
}

func (m *Memory) buildIngredients(recipeID int64, in []model.IngredientInput) []model.Ingredient {
	out := make([]model.Ingredient, len(in))
	for i, ing := range in {
		categoryID := m.validCategory(ing.CategoryID)
		if categoryID == nil {
			categoryID = m.suggest(ing.Name)
		}
		out[i] = model.Ingredient{
			ID:          m.nextID(),
			RecipeID:    recipeID,
			Name:        ing.Name,
			Description: ing.Description,
			Amount:      ing.Amount,
			CategoryID:  categoryID,
			Position:    ing.Position,
		}
	}
	return out
}

func (m *Memory) CreateRecipe(ctx context.Context, in model.RecipeInput) (model.Recipe, error) {
	name, err := requireName(in.Name, "Recipe name is required")
	if err != nil {
		return model.Recipe{}, err
	}
	ings, err := cleanIngredients(in.Ingredients)
	if err != nil {
		return model.Recipe{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now().UTC()
	r := model.Recipe{ID: m.nextID(), Name: name, CreatedAt: now, UpdatedAt: now}
	r.Ingredients = m.buildIngredients(r.ID, ings)
	m.recipes[r.ID] = r
	return m.withIngredients(r), nil
}

func (m *Memory) UpdateRecipe(ctx context.Context, id int64, in model.RecipeInput) (model.Recipe, error) {
	name, err := requireName(in.Name, "Recipe name is required")
	if err != nil {
		return model.Recipe{}, err
	}
	ings, err := cleanIngredients(in.Ingredients)
	if err != nil {
		return model.Recipe{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.recipes[id]
	if !ok {
		return model.Recipe{}, &NotFoundError{Entity: "Recipe", ID: id}
	}
	r.Name = name
	r.UpdatedAt = m.now().UTC()
	r.Ingredients = m.buildIngredients(id, ings)
	m.recipes[id] = r
	return m.withIngredients(r), nil
}

func (m *Memory) DeleteRecipe(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.recipes[id]; !ok {
		return &NotFoundError{Entity: "Recipe", ID: id}
	}
	delete(m.recipes, id)
	return nil
}

func (m *Memory) AddRecipeToList(ctx context.Context, id int64) ([]model.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.recipes[id]
	if !ok || len(r.Ingredients) == 0 {
		return nil, &NoIngredientsError{RecipeID: id}
	}

	pos := model.NextPosition(m.allItems())
	now := m.now().UTC()
	added := make([]model.Item, 0, len(r.Ingredients))
	for _, ing := range m.withIngredients(r).Ingredients {
		it := model.Item{
			ID:          m.nextID(),
			Name:        ing.Name,
			Description: ing.Description,
			Amount:      ing.Amount,
			CategoryID:  m.validCategory(ing.CategoryID),
			Position:    pos,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		pos++
		m.items[it.ID] = it
		if it.CategoryID != nil {
			m.learn(it.Name, *it.CategoryID)
		}
		added = append(added, m.decorated(it))
	}
	return added, nil
}

func (m *Memory) SuggestCategory(ctx context.Context, name string) (*int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.suggest(name), nil
}

func (m *Memory) suggest(name string) *int64 {
	mp, ok := m.mappings[mappingKey(name)]
	if !ok {
		return nil
	}
	id := mp.categoryID
	return &id
}

func (m *Memory) learn(name string, categoryID int64) {
	key := mappingKey(name)
	if strings.TrimSpace(key) == "" {
		return
	}
	mp := m.mappings[key]
	mp.categoryID = categoryID
	mp.useCount++
	mp.lastUsed = m.now()
	m.mappings[key] = mp
}
