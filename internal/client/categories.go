package client

import (
	"context"
	"fmt"
	"net/http"

	"github.com/erauner12/groceries/internal/model"
)

type categoryRequest struct {
	Name     string `json:"name"`
	ChangeID string `json:"changeId,omitempty"`
}

// ListCategories returns all categories in sort order.
func (c *Client) ListCategories(ctx context.Context) ([]model.Category, error) {
	var out []model.Category
	if err := c.do(ctx, "list categories", http.MethodGet, "/categories", "", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateCategory(ctx context.Context, name, changeID string) (model.Category, error) {
	var out model.Category
	err := c.do(ctx, "create category", http.MethodPost, "/categories", changeID,
		categoryRequest{Name: name, ChangeID: changeID}, &out)
	return out, err
}

func (c *Client) UpdateCategory(ctx context.Context, id int64, name, changeID string) (model.Category, error) {
	var out model.Category
	err := c.do(ctx, "update category", http.MethodPut, fmt.Sprintf("/categories/%d", id), changeID,
		categoryRequest{Name: name, ChangeID: changeID}, &out)
	return out, err
}

// DeleteCategory fails with a 409 APIError while items still use the
// category; APIError.ItemCount reports how many.
func (c *Client) DeleteCategory(ctx context.Context, id int64, changeID string) error {
	return c.do(ctx, "delete category", http.MethodDelete, fmt.Sprintf("/categories/%d", id), changeID, nil, nil)
}

// ReorderCategories writes new sort orders. The body is an array, so the
// change identifier travels only in the header.
func (c *Client) ReorderCategories(ctx context.Context, order []model.SortOrder, changeID string) ([]model.Category, error) {
	if order == nil {
		order = []model.SortOrder{}
	}
	var out []model.Category
	if err := c.do(ctx, "reorder categories", http.MethodPut, "/categories/reorder", changeID, order, &out); err != nil {
		return nil, err
	}
	return out, nil
}
