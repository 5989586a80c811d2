package client

import (
	"context"
	"fmt"
	"net/http"

	"github.com/erauner12/groceries/internal/model"
)

type itemRequest struct {
	model.ItemInput
	ChangeID string `json:"changeId,omitempty"`
}

type checkRequest struct {
	Checked  bool   `json:"checked"`
	ChangeID string `json:"changeId,omitempty"`
}

type deleteCheckedResponse struct {
	Message      string `json:"message"`
	DeletedCount int    `json:"deletedCount"`
}

// ListItems returns the whole list with joined category fields.
func (c *Client) ListItems(ctx context.Context) ([]model.Item, error) {
	var out []model.Item
	if err := c.do(ctx, "list items", http.MethodGet, "/items", "", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateItem(ctx context.Context, in model.ItemInput, changeID string) (model.Item, error) {
	var out model.Item
	err := c.do(ctx, "create item", http.MethodPost, "/items", changeID,
		itemRequest{ItemInput: in, ChangeID: changeID}, &out)
	return out, err
}

func (c *Client) UpdateItem(ctx context.Context, id int64, in model.ItemInput, changeID string) (model.Item, error) {
	var out model.Item
	err := c.do(ctx, "update item", http.MethodPut, fmt.Sprintf("/items/%d", id), changeID,
		itemRequest{ItemInput: in, ChangeID: changeID}, &out)
	return out, err
}

func (c *Client) ToggleItemCheck(ctx context.Context, id int64, checked bool, changeID string) (model.Item, error) {
	var out model.Item
	err := c.do(ctx, "toggle item", http.MethodPatch, fmt.Sprintf("/items/%d/check", id), changeID,
		checkRequest{Checked: checked, ChangeID: changeID}, &out)
	return out, err
}

func (c *Client) DeleteItem(ctx context.Context, id int64, changeID string) error {
	return c.do(ctx, "delete item", http.MethodDelete, fmt.Sprintf("/items/%d", id), changeID, nil, nil)
}

// DeleteCheckedItems removes every checked item and returns the count.
func (c *Client) DeleteCheckedItems(ctx context.Context, changeID string) (int, error) {
	var out deleteCheckedResponse
	if err := c.do(ctx, "delete checked items", http.MethodDelete, "/items/checked", changeID, nil, &out); err != nil {
		return 0, err
	}
	return out.DeletedCount, nil
}
