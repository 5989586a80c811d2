package localstore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/erauner12/groceries/internal/model"
)

// ReplaceAll swaps the cached set of records of T's kind for records in a
// single transaction.
func ReplaceAll[T model.Record](ctx context.Context, s *Store, records []T) error {
	var zero T
	tbl, err := table(zero.RecordKind())
	if err != nil {
		return fail("replace", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fail("replace", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM "+tbl); err != nil {
		return fail("replace", err)
	}
	stmt, err := tx.PrepareContext(ctx, "INSERT OR REPLACE INTO "+tbl+" (id, body) VALUES (?, ?)")
	if err != nil {
		return fail("replace", err)
	}
	defer stmt.Close()

	for _, rec := range records {
		body, err := json.Marshal(rec)
		if err != nil {
			return fail("replace", fmt.Errorf("encode %s %d: %w", tbl, rec.RecordID(), err))
		}
		if _, err := stmt.ExecContext(ctx, rec.RecordID(), string(body)); err != nil {
			return fail("replace", err)
		}
	}
	return fail("replace", tx.Commit())
}

// Put upserts one record.
func Put[T model.Record](ctx context.Context, s *Store, rec T) error {
	tbl, err := table(rec.RecordKind())
	if err != nil {
		return fail("put", err)
	}
	body, err := json.Marshal(rec)
	if err != nil {
		return fail("put", fmt.Errorf("encode %s %d: %w", tbl, rec.RecordID(), err))
	}
	_, err = s.db.ExecContext(ctx,
		"INSERT INTO "+tbl+" (id, body) VALUES (?, ?) ON CONFLICT(id) DO UPDATE SET body = excluded.body",
		rec.RecordID(), string(body))
	return fail("put", err)
}

// GetAll returns every cached record of T's kind in id order.
func GetAll[T model.Record](ctx context.Context, s *Store) ([]T, error) {
	var zero T
	tbl, err := table(zero.RecordKind())
	if err != nil {
		return nil, fail("get", err)
	}

	rows, err := s.db.QueryContext(ctx, "SELECT body FROM "+tbl+" ORDER BY id")
	if err != nil {
		return nil, fail("get", err)
	}
	defer rows.Close()

	out := []T{}
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, fail("get", err)
		}
		rec, err := model.DecodeRecord[T]([]byte(body))
		if err != nil {
			return nil, fail("get", err)
		}
		out = append(out, rec)
	}
	return out, fail("get", rows.Err())
}

// Delete removes one record. Deleting a missing id is not an error.
func (s *Store) Delete(ctx context.Context, kind model.Kind, id int64) error {
	tbl, err := table(kind)
	if err != nil {
		return fail("delete", err)
	}
	_, err = s.db.ExecContext(ctx, "DELETE FROM "+tbl+" WHERE id = ?", id)
	return fail("delete", err)
}

// DeleteChecked removes every checked item and reports how many went.
func (s *Store) DeleteChecked(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM items WHERE json_extract(body, '$.checked') = 1")
	if err != nil {
		return 0, fail("delete checked", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fail("delete checked", err)
	}
	return int(n), nil
}

func (s *Store) Items(ctx context.Context) ([]model.Item, error) {
	return GetAll[model.Item](ctx, s)
}

func (s *Store) Categories(ctx context.Context) ([]model.Category, error) {
	return GetAll[model.Category](ctx, s)
}

func (s *Store) Recipes(ctx context.Context) ([]model.Recipe, error) {
	return GetAll[model.Recipe](ctx, s)
}

func (s *Store) ReplaceItems(ctx context.Context, items []model.Item) error {
	return ReplaceAll(ctx, s, items)
}

func (s *Store) ReplaceCategories(ctx context.Context, cats []model.Category) error {
	return ReplaceAll(ctx, s, cats)
}

func (s *Store) ReplaceRecipes(ctx context.Context, recipes []model.Recipe) error {
	return ReplaceAll(ctx, s, recipes)
}

func (s *Store) PutItem(ctx context.Context, it model.Item) error {
	return Put(ctx, s, it)
}

func (s *Store) PutCategory(ctx context.Context, c model.Category) error {
	return Put(ctx, s, c)
}

func (s *Store) PutRecipe(ctx context.Context, r model.Recipe) error {
	return Put(ctx, s, r)
}
