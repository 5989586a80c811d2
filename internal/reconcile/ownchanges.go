package reconcile

import (
	"sync"
	"time"
)

// OwnChangeTTL is how long an issued change identifier suppresses the
// matching push event.
const OwnChangeTTL = 5 * time.Second

// OwnChanges remembers change identifiers this client issued recently.
// Expired entries are swept on every access.
type OwnChanges struct {
	mu  sync.Mutex
	ttl time.Duration
	now func() time.Time
	ids map[string]time.Time
}

// NewOwnChanges creates an empty set. A nil now uses time.Now.
func NewOwnChanges(ttl time.Duration, now func() time.Time) *OwnChanges {
	if now == nil {
		now = time.Now
	}
	return &OwnChanges{ttl: ttl, now: now, ids: make(map[string]time.Time)}
}

// Add records id with a fresh expiry.
func (o *OwnChanges) Add(id string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	now := o.now()
	o.sweep(now)
	o.ids[id] = now.Add(o.ttl)
}

// Contains reports whether id was issued here and has not expired.
func (o *OwnChanges) Contains(id string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sweep(o.now())
	_, ok := o.ids[id]
	return ok
}

// Len returns the number of live entries.
func (o *OwnChanges) Len() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sweep(o.now())
	return len(o.ids)
}

func (o *OwnChanges) sweep(now time.Time) {
	for id, exp := range o.ids {
		if !now.Before(exp) {
			delete(o.ids, id)
		}
	}
}
