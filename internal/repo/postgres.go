package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/erauner12/groceries/internal/model"
)

const uniqueViolation = "23505"

// querier is satisfied by both the pool and a transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Postgres is the Repository backed by PostgreSQL.
type Postgres struct {
	DB *pgxpool.Pool
}

// NewPostgres creates a Postgres repository. The schema must already be
// applied (see db.Migrate).
func NewPostgres(db *pgxpool.Pool) *Postgres {
	return &Postgres{DB: db}
}

func (p *Postgres) inTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := p.DB.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// ---- categories ----

const categoryColumns = `id, name, sort_order, created_at`

func scanCategory(row pgx.Row) (model.Category, error) {
	var c model.Category
	err := row.Scan(&c.ID, &c.Name, &c.SortOrder, &c.CreatedAt)
	return c, err
}

func (p *Postgres) ListCategories(ctx context.Context) ([]model.Category, error) {
	return listCategories(ctx, p.DB)
}

func listCategories(ctx context.Context, q querier) ([]model.Category, error) {
	rows, err := q.Query(ctx, `SELECT `+categoryColumns+` FROM categories ORDER BY sort_order, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.Category, 0)
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (p *Postgres) CreateCategory(ctx context.Context, name string) (model.Category, error) {
	name, err := requireName(name, "Category name is required")
	if err != nil {
		return model.Category{}, err
	}
	c, err := scanCategory(p.DB.QueryRow(ctx, `
		INSERT INTO categories (name, sort_order)
		SELECT $1, COALESCE(MAX(sort_order), 0) + 1 FROM categories
		RETURNING `+categoryColumns, name))
	if isUniqueViolation(err) {
		return model.Category{}, ErrDuplicateName
	}
	return c, err
}

func (p *Postgres) UpdateCategory(ctx context.Context, id int64, name string) (model.Category, error) {
	name, err := requireName(name, "Category name is required")
	if err != nil {
		return model.Category{}, err
	}
	c, err := scanCategory(p.DB.QueryRow(ctx,
		`UPDATE categories SET name = $2 WHERE id = $1 RETURNING `+categoryColumns, id, name))
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return model.Category{}, &NotFoundError{Entity: "Category", ID: id}
	case isUniqueViolation(err):
		return model.Category{}, ErrDuplicateName
	}
	return c, err
}

func (p *Postgres) DeleteCategory(ctx context.Context, id int64) error {
	return p.inTx(ctx, func(tx pgx.Tx) error {
		var inUse int
		if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM items WHERE category_id = $1`, id).Scan(&inUse); err != nil {
			return err
		}
		if inUse > 0 {
			return &CategoryInUseError{ItemCount: inUse}
		}
		tag, err := tx.Exec(ctx, `DELETE FROM categories WHERE id = $1`, id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return &NotFoundError{Entity: "Category", ID: id}
		}
		return nil
	})
}

func (p *Postgres) ReorderCategories(ctx context.Context, order []model.SortOrder) ([]model.Category, error) {
	for _, so := range order {
		if so.ID == 0 {
			return nil, &ValidationError{Message: "Each category must have id and sort_order"}
		}
	}
	var out []model.Category
	err := p.inTx(ctx, func(tx pgx.Tx) error {
		for _, so := range order {
			if _, err := tx.Exec(ctx, `UPDATE categories SET sort_order = $2 WHERE id = $1`, so.ID, so.SortOrder); err != nil {
				return err
			}
		}
		var err error
		out, err = listCategories(ctx, tx)
		return err
	})
	return out, err
}

func (p *Postgres) SeedCategories(ctx context.Context) (int, error) {
	var seeded int
	err := p.inTx(ctx, func(tx pgx.Tx) error {
		var count int
		if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM categories`).Scan(&count); err != nil {
			return err
		}
		if count > 0 {
			log.Debug().Int("count", count).Msg("categories already exist, skipping seed")
			return nil
		}
		for i, name := range DefaultCategories {
			if _, err := tx.Exec(ctx, `INSERT INTO categories (name, sort_order) VALUES ($1, $2)`, name, i+1); err != nil {
				return fmt.Errorf("seed %q: %w", name, err)
			}
		}
		seeded = len(DefaultCategories)
		return nil
	})
	return seeded, err
}

// ---- items ----

const itemSelect = `
	SELECT i.id, i.name, i.description, i.amount, i.category_id, i.checked,
	       i.position_in_list, i.created_at, i.updated_at, c.name, c.sort_order
	FROM items i
	LEFT JOIN categories c ON c.id = i.category_id`

const itemOrder = ` ORDER BY i.checked, c.sort_order NULLS LAST, i.position_in_list, i.created_at, i.id`

func scanItem(row pgx.Row) (model.Item, error) {
	var it model.Item
	var checked bool
	err := row.Scan(&it.ID, &it.Name, &it.Description, &it.Amount, &it.CategoryID, &checked,
		&it.Position, &it.CreatedAt, &it.UpdatedAt, &it.CategoryName, &it.CategorySortOrder)
	it.Checked = model.Flag(checked)
	return it, err
}

func collectItems(rows pgx.Rows) ([]model.Item, error) {
	defer rows.Close()
	out := make([]model.Item, 0)
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func getItem(ctx context.Context, q querier, id int64) (model.Item, error) {
	it, err := scanItem(q.QueryRow(ctx, itemSelect+` WHERE i.id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Item{}, &NotFoundError{Entity: "Item", ID: id}
	}
	return it, err
}

func (p *Postgres) ListItems(ctx context.Context) ([]model.Item, error) {
	rows, err := p.DB.Query(ctx, itemSelect+itemOrder)
	if err != nil {
		return nil, err
	}
	return collectItems(rows)
}

// existingCategory drops references to categories that do not exist.
func existingCategory(ctx context.Context, q querier, id *int64) (*int64, error) {
	if id == nil {
		return nil, nil
	}
	var found int64
	err := q.QueryRow(ctx, `SELECT id FROM categories WHERE id = $1`, *id).Scan(&found)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &found, nil
}

func learn(ctx context.Context, q querier, name string, categoryID int64) error {
	_, err := q.Exec(ctx, `
		INSERT INTO item_category_mappings (item_name_lower, category_id, use_count, last_used)
		VALUES ($1, $2, 1, now())
		ON CONFLICT (item_name_lower) DO UPDATE SET
			category_id = EXCLUDED.category_id,
			use_count   = item_category_mappings.use_count + 1,
			last_used   = now()`, mappingKey(name), categoryID)
	return err
}

func suggest(ctx context.Context, q querier, name string) (*int64, error) {
	var id int64
	err := q.QueryRow(ctx,
		`SELECT category_id FROM item_category_mappings WHERE item_name_lower = $1`, mappingKey(name)).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func nextPosition(ctx context.Context, q querier) (int, error) {
	var pos int
	err := q.QueryRow(ctx, `SELECT COALESCE(MAX(position_in_list), 0) + 1 FROM items`).Scan(&pos)
	return pos, err
}

func (p *Postgres) CreateItem(ctx context.Context, in model.ItemInput) (model.Item, error) {
	name, err := requireName(in.Name, "Item name is required")
	if err != nil {
		return model.Item{}, err
	}
	var out model.Item
	err = p.inTx(ctx, func(tx pgx.Tx) error {
		categoryID, err := existingCategory(ctx, tx, in.CategoryID)
		if err != nil {
			return err
		}
		if categoryID == nil {
			if categoryID, err = suggest(ctx, tx, name); err != nil {
				return err
			}
		}
		pos, err := nextPosition(ctx, tx)
		if err != nil {
			return err
		}
		var id int64
		if err := tx.QueryRow(ctx, `
			INSERT INTO items (name, description, amount, category_id, position_in_list, checked)
			VALUES ($1, $2, $3, $4, $5, false)
			RETURNING id`,
			name, trimOptional(in.Description), trimOptional(in.Amount), categoryID, pos).Scan(&id); err != nil {
			return err
		}
		if categoryID != nil {
			if err := learn(ctx, tx, name, *categoryID); err != nil {
				return err
			}
		}
		out, err = getItem(ctx, tx, id)
		return err
	})
	return out, err
}

func (p *Postgres) UpdateItem(ctx context.Context, id int64, in model.ItemInput) (model.Item, error) {
	name, err := requireName(in.Name, "Item name is required")
	if err != nil {
		return model.Item{}, err
	}
	var out model.Item
	err = p.inTx(ctx, func(tx pgx.Tx) error {
		categoryID, err := existingCategory(ctx, tx, in.CategoryID)
		if err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, `
			UPDATE items
			SET name = $2, description = $3, amount = $4, category_id = $5, updated_at = now()
			WHERE id = $1`,
			id, name, trimOptional(in.Description), trimOptional(in.Amount), categoryID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return &NotFoundError{Entity: "Item", ID: id}
		}
		if categoryID != nil {
			if err := learn(ctx, tx, name, *categoryID); err != nil {
				return err
			}
		}
		out, err = getItem(ctx, tx, id)
		return err
	})
	return out, err
}

// SetChecked toggles an item. Unchecking a checked item moves it after the
// last unchecked item of its category.
func (p *Postgres) SetChecked(ctx context.Context, id int64, checked bool) (model.Item, error) {
	var out model.Item
	err := p.inTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE items SET
				position_in_list = CASE
					WHEN NOT $2::boolean AND items.checked THEN (
						SELECT COALESCE(MAX(o.position_in_list), 0) + 1
						FROM items o
						WHERE o.id <> items.id
						  AND NOT o.checked
						  AND o.category_id IS NOT DISTINCT FROM items.category_id)
					ELSE items.position_in_list
				END,
				checked = $2::boolean,
				updated_at = now()
			WHERE id = $1`, id, checked)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return &NotFoundError{Entity: "Item", ID: id}
		}
		out, err = getItem(ctx, tx, id)
		return err
	})
	return out, err
}

func (p *Postgres) DeleteItem(ctx context.Context, id int64) error {
	tag, err := p.DB.Exec(ctx, `DELETE FROM items WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return &NotFoundError{Entity: "Item", ID: id}
	}
	return nil
}

func (p *Postgres) DeleteChecked(ctx context.Context) (int, error) {
	tag, err := p.DB.Exec(ctx, `DELETE FROM items WHERE checked`)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

// ---- recipes ----

const ingredientSelect = `
	SELECT ri.id, ri.recipe_id, ri.name, ri.description, ri.amount, ri.category_id,
	       c.name, ri.position
	FROM recipe_ingredients ri
	LEFT JOIN categories c ON c.id = ri.category_id`

func scanIngredient(row pgx.Row) (model.Ingredient, error) {
	var ing model.Ingredient
	err := row.Scan(&ing.ID, &ing.RecipeID, &ing.Name, &ing.Description, &ing.Amount,
		&ing.CategoryID, &ing.CategoryName, &ing.Position)
	return ing, err
}

func ingredientsByRecipe(ctx context.Context, q querier, recipeID *int64) (map[int64][]model.Ingredient, error) {
	sql := ingredientSelect + ` ORDER BY ri.recipe_id, ri.position, ri.id`
	var args []any
	if recipeID != nil {
		sql = ingredientSelect + ` WHERE ri.recipe_id = $1 ORDER BY ri.position, ri.id`
		args = append(args, *recipeID)
	}
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[int64][]model.Ingredient)
	for rows.Next() {
		ing, err := scanIngredient(rows)
		if err != nil {
			return nil, err
		}
		out[ing.RecipeID] = append(out[ing.RecipeID], ing)
	}
	return out, rows.Err()
}

func withIngredients(r model.Recipe, byRecipe map[int64][]model.Ingredient) model.Recipe {
	r.Ingredients = byRecipe[r.ID]
	if r.Ingredients == nil {
		r.Ingredients = []model.Ingredient{}
	}
	return r
}

func (p *Postgres) ListRecipes(ctx context.Context) ([]model.Recipe, error) {
	rows, err := p.DB.Query(ctx, `SELECT id, name, created_at, updated_at FROM recipes ORDER BY name, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.Recipe, 0)
	for rows.Next() {
		var r model.Recipe
		if err := rows.Scan(&r.ID, &r.Name, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	byRecipe, err := ingredientsByRecipe(ctx, p.DB, nil)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i] = withIngredients(out[i], byRecipe)
	}
	return out, nil
}

func (p *Postgres) GetRecipe(ctx context.Context, id int64) (model.Recipe, error) {
	return getRecipe(ctx, p.DB, id)
}

func getRecipe(ctx context.Context, q querier, id int64) (model.Recipe, error) {
	var r model.Recipe
	err := q.QueryRow(ctx, `SELECT id, name, created_at, updated_at FROM recipes WHERE id = $1`, id).
		Scan(&r.ID, &r.Name, &r.CreatedAt, &r.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Recipe{}, &NotFoundError{Entity: "Recipe", ID: id}
	}
	if err != nil {
		return model.Recipe{}, err
	}
	byRecipe, err := ingredientsByRecipe(ctx, q, &id)
	if err != nil {
		return model.Recipe{}, err
	}
	return withIngredients(r, byRecipe), nil
}

func insertIngredients(ctx context.Context, tx pgx.Tx, recipeID int64, ings []model.IngredientInput) error {
	for _, ing := range ings {
		categoryID, err := existingCategory(ctx, tx, ing.CategoryID)
		if err != nil {
			return err
		}
		if categoryID == nil {
			if categoryID, err = suggest(ctx, tx, ing.Name); err != nil {
				return err
			}
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO recipe_ingredients (recipe_id, name, description, amount, category_id, position)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			recipeID, ing.Name, ing.Description, ing.Amount, categoryID, ing.Position); err != nil {
			return err
		}
	}
	return nil
}

func (p *Postgres) CreateRecipe(ctx context.Context, in model.RecipeInput) (model.Recipe, error) {
	name, err := requireName(in.Name, "Recipe name is required")
	if err != nil {
		return model.Recipe{}, err
	}
	ings, err := cleanIngredients(in.Ingredients)
	if err != nil {
		return model.Recipe{}, err
	}
	var out model.Recipe
	err = p.inTx(ctx, func(tx pgx.Tx) error {
		var id int64
		if err := tx.QueryRow(ctx, `INSERT INTO recipes (name) VALUES ($1) RETURNING id`, name).Scan(&id); err != nil {
			return err
		}
		if err := insertIngredients(ctx, tx, id, ings); err != nil {
			return err
		}
		out, err = getRecipe(ctx, tx, id)
		return err
	})
	return out, err
}

func (p *Postgres) UpdateRecipe(ctx context.Context, id int64, in model.RecipeInput) (model.Recipe, error) {
	name, err := requireName(in.Name, "Recipe name is required")
	if err != nil {
		return model.Recipe{}, err
	}
	ings, err := cleanIngredients(in.Ingredients)
	if err != nil {
		return model.Recipe{}, err
	}
	var out model.Recipe
	err = p.inTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `UPDATE recipes SET name = $2, updated_at = now() WHERE id = $1`, id, name)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return &NotFoundError{Entity: "Recipe", ID: id}
		}
		if _, err := tx.Exec(ctx, `DELETE FROM recipe_ingredients WHERE recipe_id = $1`, id); err != nil {
			return err
		}
		if err := insertIngredients(ctx, tx, id, ings); err != nil {
			return err
		}
		out, err = getRecipe(ctx, tx, id)
		return err
	})
	return out, err
}

func (p *Postgres) DeleteRecipe(ctx context.Context, id int64) error {
	tag, err := p.DB.Exec(ctx, `DELETE FROM recipes WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return &NotFoundError{Entity: "Recipe", ID: id}
	}
	return nil
}

func (p *Postgres) AddRecipeToList(ctx context.Context, id int64) ([]model.Item, error) {
	var out []model.Item
	err := p.inTx(ctx, func(tx pgx.Tx) error {
		byRecipe, err := ingredientsByRecipe(ctx, tx, &id)
		if err != nil {
			return err
		}
		ings := byRecipe[id]
		if len(ings) == 0 {
			return &NoIngredientsError{RecipeID: id}
		}
		pos, err := nextPosition(ctx, tx)
		if err != nil {
			return err
		}

		ids := make([]int64, 0, len(ings))
		for _, ing := range ings {
			var itemID int64
			if err := tx.QueryRow(ctx, `
				INSERT INTO items (name, description, amount, category_id, position_in_list, checked)
				VALUES ($1, $2, $3, $4, $5, false)
				RETURNING id`,
				ing.Name, ing.Description, ing.Amount, ing.CategoryID, pos).Scan(&itemID); err != nil {
				return err
			}
			pos++
			if ing.CategoryID != nil {
				if err := learn(ctx, tx, ing.Name, *ing.CategoryID); err != nil {
					return err
				}
			}
			ids = append(ids, itemID)
		}

		rows, err := tx.Query(ctx, itemSelect+` WHERE i.id = ANY($1) ORDER BY i.position_in_list`, ids)
		if err != nil {
			return err
		}
		out, err = collectItems(rows)
		return err
	})
	return out, err
}

func (p *Postgres) SuggestCategory(ctx context.Context, name string) (*int64, error) {
	return suggest(ctx, p.DB, name)
}
