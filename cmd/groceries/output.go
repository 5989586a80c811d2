package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/erauner12/groceries/internal/app"
	"github.com/erauner12/groceries/internal/model"
	"github.com/erauner12/groceries/internal/reconcile"
)

const uncategorized = "Uncategorized"

// printBanner reports connectivity and queued writes.
func printBanner(w io.Writer, store *reconcile.Store) {
	if !store.Online() {
		fmt.Fprintln(w, "offline: showing cached data")
	}
	if n := store.PendingSyncs(); n > 0 {
		fmt.Fprintf(w, "%d change(s) waiting to sync\n", n)
	}
	if msg := store.Notification(); msg != "" {
		fmt.Fprintln(w, "!", msg)
	}
}

// reportWrite prints the result of a mutation, noting when it was queued.
func reportWrite(w io.Writer, s *app.Session, format string, args ...any) {
	store := s.Store()
	msg := fmt.Sprintf(format, args...)
	if !store.Online() && store.PendingSyncs() > 0 {
		fmt.Fprintf(w, "%s: queued (%d pending)\n", msg, store.PendingSyncs())
		return
	}
	fmt.Fprintln(w, msg)
}

func formatID(id int64) string {
	if model.IsTemporary(id) {
		return fmt.Sprintf("#%d (unsynced)", id)
	}
	return fmt.Sprintf("#%d", id)
}

func formatItem(it model.Item) string {
	var b strings.Builder
	if it.Checked {
		b.WriteString("[x] ")
	} else {
		b.WriteString("[ ] ")
	}
	b.WriteString(it.Name)
	if it.Amount != nil {
		fmt.Fprintf(&b, " (%s)", *it.Amount)
	}
	if it.Description != nil {
		fmt.Fprintf(&b, " - %s", *it.Description)
	}
	fmt.Fprintf(&b, "  %s", formatID(it.ID))
	return b.String()
}

// printList groups items under their categories in sort order. Items the
// store has already ordered keep that order inside each group.
func printList(w io.Writer, cats []model.Category, items []model.Item) {
	if len(items) == 0 {
		fmt.Fprintln(w, "The list is empty.")
		return
	}

	groups := make(map[int64][]model.Item)
	var loose []model.Item
	for _, it := range items {
		if it.CategoryID == nil {
			loose = append(loose, it)
			continue
		}
		groups[*it.CategoryID] = append(groups[*it.CategoryID], it)
	}

	for _, c := range cats {
		if len(groups[c.ID]) == 0 {
			continue
		}
		fmt.Fprintf(w, "%s\n", c.Name)
		for _, it := range groups[c.ID] {
			fmt.Fprintf(w, "  %s\n", formatItem(it))
		}
		delete(groups, c.ID)
	}

	// Items whose category is not loaded fall back with the uncategorized.
	for _, its := range groups {
		loose = append(loose, its...)
	}
	if len(loose) > 0 {
		model.SortItems(loose)
		fmt.Fprintln(w, uncategorized)
		for _, it := range loose {
			fmt.Fprintf(w, "  %s\n", formatItem(it))
		}
	}
}

func printCategories(w io.Writer, cats []model.Category) {
	for _, c := range cats {
		fmt.Fprintf(w, "%3d. %s  %s\n", c.SortOrder, c.Name, formatID(c.ID))
	}
}

func printRecipe(w io.Writer, r model.Recipe) {
	fmt.Fprintf(w, "%s  %s\n", r.Name, formatID(r.ID))
	for _, ing := range r.Ingredients {
		line := "  - " + ing.Name
		if ing.Amount != nil {
			line += " (" + *ing.Amount + ")"
		}
		if ing.CategoryName != nil {
			line += " [" + *ing.CategoryName + "]"
		}
		fmt.Fprintln(w, line)
	}
}
