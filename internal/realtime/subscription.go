package realtime

import (
	"sync/atomic"

	"github.com/nitishgupta522/CampusConnect-sub000/internal/docstore"
)

// Subscription lifecycle. Detached is terminal: re-attaching builds a fresh
// Subscription instance, never reuses an old one, so a stale callback can
// never be delivered through a recycled handle.
const (
	StateDetached int32 = iota
	StateAttaching
	StateActive
)

// Subscription pairs a watched collection/filter with its lifecycle state.
// The merge path checks the state before touching caches, which closes the
// race with change events already in flight when Detach is called.
type Subscription struct {
	Collection string
	Filters    docstore.Filters

	state  atomic.Int32
	handle *docstore.Handle
}

func newSubscription(collection string, filters docstore.Filters) *Subscription {
	s := &Subscription{Collection: collection, Filters: filters}
	s.state.Store(StateAttaching)
	return s
}

func (s *Subscription) activate(handle *docstore.Handle) {
	s.handle = handle
	s.state.Store(StateActive)
}

func (s *Subscription) fail() {
	s.state.Store(StateDetached)
}

// Active reports whether change events may still be merged.
func (s *Subscription) Active() bool {
	return s.state.Load() == StateActive
}

// Detach is idempotent. The state flips before the underlying listener is
// unregistered; ordering matters, not just removing the handle.
func (s *Subscription) Detach() {
	s.state.Store(StateDetached)
	if s.handle != nil {
		s.handle.Unsubscribe()
	}
}
