// Package events fans change notifications out to live subscribers.
package events

import (
	"encoding/json"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/erauner12/groceries/internal/model"
)

// DefaultBuffer is the number of undelivered events a subscriber may fall
// behind before it is dropped.
const DefaultBuffer = 64

// Hub broadcasts encoded ChangeEvents to every subscriber. A subscriber
// whose buffer is full is dropped and its channel closed; the client
// reconnects and refetches.
type Hub struct {
	mu     sync.Mutex
	subs   map[int]chan []byte
	nextID int
	buffer int
	closed bool
	logger zerolog.Logger
}

type Option func(*Hub)

func WithBuffer(n int) Option {
	return func(h *Hub) { h.buffer = n }
}

func WithLogger(logger zerolog.Logger) Option {
	return func(h *Hub) { h.logger = logger }
}

func NewHub(opts ...Option) *Hub {
	h := &Hub{
		subs:   make(map[int]chan []byte),
		buffer: DefaultBuffer,
		logger: log.Logger,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Subscribe registers a listener. The returned function unsubscribes and
// is safe to call more than once.
func (h *Hub) Subscribe() (<-chan []byte, func()) {
	ch := make(chan []byte, h.buffer)

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	id := h.nextID
	h.nextID++
	h.subs[id] = ch
	total := len(h.subs)
	h.mu.Unlock()

	h.logger.Info().Int("clients", total).Msg("live client connected")

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			if _, ok := h.subs[id]; ok {
				delete(h.subs, id)
				close(ch)
			}
			total := len(h.subs)
			h.mu.Unlock()
			h.logger.Info().Int("clients", total).Msg("live client disconnected")
		})
	}
}

// Publish stamps and broadcasts one change.
func (h *Hub) Publish(typ model.EventType, data any, changeID string) error {
	ev, err := model.NewChangeEvent(typ, data, changeID)
	if err != nil {
		return err
	}
	msg, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for id, ch := range h.subs {
		select {
		case ch <- msg:
		default:
			delete(h.subs, id)
			close(ch)
			h.logger.Warn().Int("subscriber", id).Msg("dropping slow live client")
		}
	}
	h.logger.Debug().
		Str("eventType", string(typ)).
		Str("changeId", changeID).
		Int("clients", len(h.subs)).
		Msg("broadcast change")
	return nil
}

// Close ends every subscription. Later subscribers get a closed channel.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for id, ch := range h.subs {
		delete(h.subs, id)
		close(ch)
	}
}

// Len returns the number of connected subscribers.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
