package model

import (
	"math"
	"sort"
	"strings"
)

// SortItems orders items the way the list is displayed: unchecked first, then
// by category sort order (uncategorized last), position and creation time.
func SortItems(items []Item) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if a.Checked != b.Checked {
			return !bool(a.Checked)
		}
		if ca, cb := categoryRank(a), categoryRank(b); ca != cb {
			return ca < cb
		}
		if a.Position != b.Position {
			return a.Position < b.Position
		}
		return a.CreatedAt.Before(b.CreatedAt)
	})
}

func categoryRank(it Item) int {
	if it.CategorySortOrder == nil {
		return math.MaxInt
	}
	return *it.CategorySortOrder
}

// SortCategories orders categories by sort order.
func SortCategories(cats []Category) {
	sort.SliceStable(cats, func(i, j int) bool {
		if cats[i].SortOrder != cats[j].SortOrder {
			return cats[i].SortOrder < cats[j].SortOrder
		}
		return cats[i].ID < cats[j].ID
	})
}

// SortRecipes orders recipes by name.
func SortRecipes(recipes []Recipe) {
	sort.SliceStable(recipes, func(i, j int) bool {
		return strings.ToLower(recipes[i].Name) < strings.ToLower(recipes[j].Name)
	})
}

// NextUncheckedPosition returns the position an item takes when it is
// unchecked: one past the last unchecked item of the same category. The item
// identified by skipID is ignored.
func NextUncheckedPosition(items []Item, categoryID *int64, skipID int64) int {
	maxPos := 0
	for _, it := range items {
		if it.ID == skipID || bool(it.Checked) || !SameCategory(it.CategoryID, categoryID) {
			continue
		}
		if it.Position > maxPos {
			maxPos = it.Position
		}
	}
	return maxPos + 1
}

// NextPosition returns one past the highest position on the list.
func NextPosition(items []Item) int {
	maxPos := 0
	for _, it := range items {
		if it.Position > maxPos {
			maxPos = it.Position
		}
	}
	return maxPos + 1
}

// NextSortOrder returns one past the highest category sort order.
func NextSortOrder(cats []Category) int {
	maxOrder := 0
	for _, c := range cats {
		if c.SortOrder > maxOrder {
			maxOrder = c.SortOrder
		}
	}
	return maxOrder + 1
}

// DenseOrder assigns 1-based sort orders following ids.
func DenseOrder(ids []int64) []SortOrder {
	out := make([]SortOrder, len(ids))
	for i, id := range ids {
		out[i] = SortOrder{ID: id, SortOrder: i + 1}
	}
	return out
}
