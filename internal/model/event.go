package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventType names a change pushed over the live channel.
type EventType string

const (
	EventItemCreated         EventType = "item-created"
	EventItemUpdated         EventType = "item-updated"
	EventItemDeleted         EventType = "item-deleted"
	EventItemsDeletedChecked EventType = "items-deleted-checked"

	EventCategoryCreated     EventType = "category-created"
	EventCategoryUpdated     EventType = "category-updated"
	EventCategoryDeleted     EventType = "category-deleted"
	EventCategoriesReordered EventType = "categories-reordered"

	EventRecipeCreated EventType = "recipe-created"
	EventRecipeUpdated EventType = "recipe-updated"
	EventRecipeDeleted EventType = "recipe-deleted"
)

// ChangeEvent is the push message broadcast after every server-side write.
// ChangeID echoes the identifier the writing client attached to its request.
type ChangeEvent struct {
	Type      EventType       `json:"type"`
	Data      json.RawMessage `json:"data"`
	ChangeID  string          `json:"changeId,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// DeletedRef is the payload of the *-deleted events.
type DeletedRef struct {
	ID int64 `json:"id"`
}

// DeletedChecked is the payload of items-deleted-checked.
type DeletedChecked struct {
	DeletedCount int `json:"deletedCount"`
}

// NewChangeEvent marshals data into a ChangeEvent stamped with now.
func NewChangeEvent(typ EventType, data any, changeID string) (ChangeEvent, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return ChangeEvent{}, fmt.Errorf("marshal %s payload: %w", typ, err)
	}
	return ChangeEvent{
		Type:      typ,
		Data:      raw,
		ChangeID:  changeID,
		Timestamp: time.Now().UTC(),
	}, nil
}

// ParseChangeEvent decodes a raw push message. Messages without a type are
// rejected so that heartbeats or garbage never reach event handlers.
func ParseChangeEvent(b []byte) (ChangeEvent, error) {
	var ev ChangeEvent
	if err := json.Unmarshal(b, &ev); err != nil {
		return ChangeEvent{}, fmt.Errorf("parse change event: %w", err)
	}
	if ev.Type == "" {
		return ChangeEvent{}, fmt.Errorf("parse change event: missing type")
	}
	return ev, nil
}

// DecodeData decodes the event payload into v.
func (e ChangeEvent) DecodeData(v any) error {
	if err := json.Unmarshal(e.Data, v); err != nil {
		return fmt.Errorf("decode %s payload: %w", e.Type, err)
	}
	return nil
}
