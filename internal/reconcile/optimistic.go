package reconcile

import (
	"context"

	"github.com/erauner12/groceries/internal/client"
	"github.com/erauner12/groceries/internal/model"
)

// mutation describes one optimistic write. apply, commit and revert run
// under the state lock; the persist steps and remote run without it.
type mutation[T any] struct {
	action model.Action
	// value is returned when the write is queued for later, unless queued
	// is set, which computes it once apply has run.
	value   T
	queued  func() T
	payload model.MutationPayload

	apply   func()
	persist func(ctx context.Context) error
	remote  func(ctx context.Context, changeID string) (T, error)
	commit  func(result T)
	// persistResult writes the server's answer to the local cache.
	persistResult func(ctx context.Context, result T) error
	// revert and persistRevert undo apply after a rejected write. Only
	// toggle-check sets them.
	revert        func()
	persistRevert func(ctx context.Context) error
}

// optimistic runs m through the shared write path:
// register a change id, apply locally, persist, call the server, then
// commit on success, queue on network failure, or revert (if m allows it)
// on any other failure.
func optimistic[T any](ctx context.Context, s *Store, m mutation[T]) (T, error) {
	var zero T
	changeID := s.IssueChangeID()
	logger := s.logger.With().
		Str("action", string(m.action)).
		Str("changeId", changeID).
		Logger()

	if m.apply != nil {
		s.update(m.apply)
	}
	if m.persist != nil {
		if err := m.persist(ctx); err != nil {
			return zero, err
		}
	}

	result, err := m.remote(ctx, changeID)
	if err == nil {
		s.SetOnline(true)
		if m.commit != nil {
			s.update(func() { m.commit(result) })
		}
		if m.persistResult != nil {
			if err := m.persistResult(ctx, result); err != nil {
				return result, err
			}
		}
		logger.Debug().Msg("mutation applied")
		return result, nil
	}

	if client.IsNetwork(err) {
		s.SetOnline(false)
		payload := m.payload
		payload.ChangeID = changeID
		if _, qerr := s.local.Enqueue(ctx, m.action, payload); qerr != nil {
			return zero, qerr
		}
		if perr := s.RefreshPending(ctx); perr != nil {
			return zero, perr
		}
		logger.Info().Err(err).Msg("server unreachable, mutation queued")
		if m.queued != nil {
			return m.queued(), nil
		}
		return m.value, nil
	}

	logger.Warn().Err(err).Msg("mutation rejected")
	if m.revert != nil {
		s.update(m.revert)
		if m.persistRevert != nil {
			if perr := m.persistRevert(ctx); perr != nil {
				logger.Error().Err(perr).Msg("failed to persist rollback")
			}
		}
	}
	return zero, err
}
