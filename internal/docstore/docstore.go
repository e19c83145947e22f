// Package docstore abstracts the remote document database: collection-based
// CRUD, exact-match queries and live snapshot subscriptions. It is the push
// half of the fallback pair; localstore covers the polling half.
package docstore

import (
	"context"
	"sync"

	"github.com/nitishgupta522/CampusConnect-sub000/internal/model"
)

// Filters compose as AND over exact field equality.
type Filters map[string]interface{}

// QueryOptions shape ordering and limits; both optional.
type QueryOptions struct {
	OrderBy string
	Desc    bool
	Limit   int
}

// SnapshotFunc receives the full change set since the last invocation.
type SnapshotFunc func(model.Snapshot)

// Store is implemented by the Postgres-backed store and the in-memory store.
type Store interface {
	// Create assigns a server id plus createdAt/updatedAt timestamps and
	// returns the stored record.
	Create(ctx context.Context, collection string, data model.Record) (model.Record, error)

	// Get returns nil (not an error) when the document does not exist.
	Get(ctx context.Context, collection, id string) (model.Record, error)

	// Update merges the given fields into the document and refreshes
	// updatedAt.
	Update(ctx context.Context, collection, id string, updates model.Record) (model.Record, error)

	Delete(ctx context.Context, collection, id string) error

	Query(ctx context.Context, collection string, filters Filters, opts QueryOptions) ([]model.Record, error)

	// Subscribe registers a live listener for changes matching the filters.
	// Change delivery per entity is causally ordered.
	Subscribe(collection string, filters Filters, fn SnapshotFunc) (*Handle, error)
}

// Handle cancels a live subscription. Unsubscribe is idempotent.
type Handle struct {
	once   sync.Once
	cancel func()
}

func newHandle(cancel func()) *Handle {
	return &Handle{cancel: cancel}
}

func (h *Handle) Unsubscribe() {
	h.once.Do(h.cancel)
}

// Matches reports whether a record satisfies every filter by exact equality.
// Values are compared loosely through their string forms because JSON
// round-trips erase the int/float distinction.
func (f Filters) Matches(r model.Record) bool {
	for k, want := range f {
		got, ok := r[k]
		if !ok || !looseEqual(got, want) {
			return false
		}
	}
	return true
}
