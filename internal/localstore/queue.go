package localstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/erauner12/groceries/internal/model"
)

// Enqueue appends a mutation to the durable queue.
func (s *Store) Enqueue(ctx context.Context, action model.Action, payload model.MutationPayload) (model.QueueEntry, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return model.QueueEntry{}, fail("enqueue", fmt.Errorf("encode payload: %w", err))
	}
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO sync_queue (action, payload, enqueued_at) VALUES (?, ?, ?)",
		string(action), string(body), now.UnixMilli())
	if err != nil {
		return model.QueueEntry{}, fail("enqueue", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.QueueEntry{}, fail("enqueue", err)
	}

	s.logger.Debug().
		Int64("entryId", id).
		Str("action", string(action)).
		Str("changeId", payload.ChangeID).
		Msg("mutation queued")

	return model.QueueEntry{ID: id, Action: action, Payload: payload, EnqueuedAt: now}, nil
}

// Queue returns every queued mutation, oldest first. Entries stay queued
// until Remove is called.
func (s *Store) Queue(ctx context.Context) ([]model.QueueEntry, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, action, payload, enqueued_at FROM sync_queue ORDER BY id")
	if err != nil {
		return nil, fail("queue", err)
	}
	defer rows.Close()

	var out []model.QueueEntry
	for rows.Next() {
		var (
			e       model.QueueEntry
			action  string
			payload string
			at      int64
		)
		if err := rows.Scan(&e.ID, &action, &payload, &at); err != nil {
			return nil, fail("queue", err)
		}
		if err := json.Unmarshal([]byte(payload), &e.Payload); err != nil {
			// A corrupt payload must not block the rest of the queue.
			s.logger.Error().Err(err).Int64("entryId", e.ID).Msg("undecodable queue payload")
		}
		e.Action = model.Action(action)
		e.EnqueuedAt = time.UnixMilli(at).UTC()
		out = append(out, e)
	}
	return out, fail("queue", rows.Err())
}

// Remove deletes a queue entry after it was replayed or given up on.
func (s *Store) Remove(ctx context.Context, entryID int64) error {
	return fail("remove", s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM sync_queue WHERE id = ?", entryID); err != nil {
			return err
		}
		return pruneResolved(ctx, tx)
	}))
}

// Resolve removes a replayed create and records the server id its
// temporary id maps to, in one transaction.
func (s *Store) Resolve(ctx context.Context, entryID int64, r model.ResolvedID) error {
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM sync_queue WHERE id = ?", entryID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT OR REPLACE INTO sync_ids (kind, temp_id, server_id) VALUES (?, ?, ?)",
			string(r.Kind), r.TempID, r.ID); err != nil {
			return err
		}
		return pruneResolved(ctx, tx)
	})
	if err != nil {
		return fail("resolve", err)
	}
	s.logger.Debug().
		Str("kind", string(r.Kind)).
		Int64("tempId", r.TempID).
		Int64("id", r.ID).
		Msg("temporary id resolved")
	return nil
}

// ResolvedIDs returns the id mappings recorded by Resolve that queued
// entries may still reference.
func (s *Store) ResolvedIDs(ctx context.Context) ([]model.ResolvedID, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT kind, temp_id, server_id FROM sync_ids")
	if err != nil {
		return nil, fail("resolved ids", err)
	}
	defer rows.Close()

	var out []model.ResolvedID
	for rows.Next() {
		var (
			r    model.ResolvedID
			kind string
		)
		if err := rows.Scan(&kind, &r.TempID, &r.ID); err != nil {
			return nil, fail("resolved ids", err)
		}
		r.Kind = model.Kind(kind)
		out = append(out, r)
	}
	return out, fail("resolved ids", rows.Err())
}

// pruneResolved drops every mapping once nothing is left to rewrite.
func pruneResolved(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, "DELETE FROM sync_ids WHERE NOT EXISTS (SELECT 1 FROM sync_queue)")
	return err
}

func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// QueueLen returns the number of queued mutations.
func (s *Store) QueueLen(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM sync_queue").Scan(&n); err != nil {
		return 0, fail("queue length", err)
	}
	return n, nil
}
