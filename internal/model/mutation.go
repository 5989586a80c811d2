package model

import (
	"strings"
	"time"
)

// Action tags a queued mutation with the server call that replays it.
type Action string

const (
	ActionCategoryCreate  Action = "categories.create"
	ActionCategoryUpdate  Action = "categories.update"
	ActionCategoryDelete  Action = "categories.delete"
	ActionCategoryReorder Action = "categories.reorder"

	ActionItemCreate        Action = "items.create"
	ActionItemUpdate        Action = "items.update"
	ActionItemToggleCheck   Action = "items.toggleCheck"
	ActionItemDelete        Action = "items.delete"
	ActionItemDeleteChecked Action = "items.deleteChecked"

	ActionRecipeCreate    Action = "recipes.create"
	ActionRecipeUpdate    Action = "recipes.update"
	ActionRecipeDelete    Action = "recipes.delete"
	ActionRecipeAddToList Action = "recipes.addToList"
)

// Kind returns the entity type the action targets.
func (a Action) Kind() Kind {
	prefix, _, _ := strings.Cut(string(a), ".")
	return Kind(prefix)
}

// IsCreate reports whether the action creates a record.
func (a Action) IsCreate() bool {
	return strings.HasSuffix(string(a), ".create")
}

// MutationPayload carries the arguments of a queued server call. Only the
// fields relevant to the action are set.
type MutationPayload struct {
	// ID is the target record. For creates it is the temporary ID the
	// optimistic record was given, so later entries can be rewritten.
	ID         int64        `json:"id,omitempty"`
	Name       string       `json:"name,omitempty"`
	Item       *ItemInput   `json:"item,omitempty"`
	Recipe     *RecipeInput `json:"recipe,omitempty"`
	Checked    *bool        `json:"checked,omitempty"`
	Categories []SortOrder  `json:"categories,omitempty"`
	// ChangeID is the identifier used by the original attempt.
	ChangeID string `json:"changeId,omitempty"`
}

// QueueEntry is one durable mutation waiting to be replayed.
type QueueEntry struct {
	ID         int64           `json:"id"`
	Action     Action          `json:"action"`
	Payload    MutationPayload `json:"payload"`
	EnqueuedAt time.Time       `json:"enqueued_at"`
}

// ResolvedID records the server id a queued create's temporary id became.
// Later queue entries that still carry the temporary id are rewritten with it.
type ResolvedID struct {
	Kind   Kind  `json:"kind"`
	TempID int64 `json:"tempId"`
	ID     int64 `json:"id"`
}
