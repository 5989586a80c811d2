// Package model defines the grocery entities shared by the client core and
// the reference server, along with the change events pushed between them and
// the mutation queue entries the client replays after being offline.
package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Kind identifies an entity type. It doubles as the local cache table name
// and the REST collection name.
type Kind string

const (
	KindCategories Kind = "categories"
	KindItems      Kind = "items"
	KindRecipes    Kind = "recipes"
)

// Valid reports whether k is one of the known entity kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindCategories, KindItems, KindRecipes:
		return true
	}
	return false
}

// Record is implemented by every cached entity.
type Record interface {
	RecordID() int64
	RecordKind() Kind
}

// Category groups items on the list. Names are unique and SortOrder is dense
// and 1-based.
type Category struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	SortOrder int       `json:"sort_order"`
	CreatedAt time.Time `json:"created_at"`
}

func (c Category) RecordID() int64  { return c.ID }
func (c Category) RecordKind() Kind { return KindCategories }

// Flag is a boolean that also accepts 0/1 on the wire.
type Flag bool

// UnmarshalJSON accepts true/false, 0/1 and null.
func (f *Flag) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch string(b) {
	case "true", "1":
		*f = true
	case "false", "0", "null":
		*f = false
	default:
		return fmt.Errorf("invalid flag value %s", b)
	}
	return nil
}

// Item is one entry on the grocery list.
type Item struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Description *string `json:"description"`
	Amount      *string `json:"amount"`
	CategoryID  *int64  `json:"category_id"`
	Checked     Flag    `json:"checked"`
	// Position orders unchecked items inside their category.
	Position  int       `json:"position_in_list"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Joined from the category by the server; informational only.
	CategoryName      *string `json:"category_name,omitempty"`
	CategorySortOrder *int    `json:"category_sort_order,omitempty"`
}

func (i Item) RecordID() int64  { return i.ID }
func (i Item) RecordKind() Kind { return KindItems }

// Ingredient belongs to exactly one recipe.
type Ingredient struct {
	ID           int64   `json:"id"`
	RecipeID     int64   `json:"recipe_id"`
	Name         string  `json:"name"`
	Description  *string `json:"description"`
	Amount       *string `json:"amount"`
	CategoryID   *int64  `json:"category_id"`
	CategoryName *string `json:"category_name,omitempty"`
	Position     int     `json:"position"`
}

// Recipe is a named, ordered list of ingredients that can be expanded onto
// the grocery list.
type Recipe struct {
	ID          int64        `json:"id"`
	Name        string       `json:"name"`
	Ingredients []Ingredient `json:"ingredients"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

func (r Recipe) RecordID() int64  { return r.ID }
func (r Recipe) RecordKind() Kind { return KindRecipes }

// ItemInput is the writable part of an Item.
type ItemInput struct {
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
	Amount      *string `json:"amount,omitempty"`
	CategoryID  *int64  `json:"category_id,omitempty"`
}

// IngredientInput is the writable part of an Ingredient.
type IngredientInput struct {
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
	Amount      *string `json:"amount,omitempty"`
	CategoryID  *int64  `json:"category_id,omitempty"`
	Position    int     `json:"position"`
}

// RecipeInput is the writable part of a Recipe.
type RecipeInput struct {
	Name        string            `json:"name"`
	Ingredients []IngredientInput `json:"ingredients"`
}

// SortOrder assigns a display position to a category.
type SortOrder struct {
	ID        int64 `json:"id"`
	SortOrder int   `json:"sort_order"`
}

// IsTemporary reports whether id was assigned locally to a record the
// server has not acknowledged yet.
func IsTemporary(id int64) bool {
	return id < 0
}

// StringPtr returns nil for an empty string.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// SameCategory compares two optional category references.
func SameCategory(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// DecodeRecord decodes a cached JSON body into T.
func DecodeRecord[T Record](body []byte) (T, error) {
	var rec T
	if err := json.Unmarshal(body, &rec); err != nil {
		return rec, fmt.Errorf("decode %s record: %w", rec.RecordKind(), err)
	}
	return rec, nil
}
