// Package localstore is the durable key-value side of the fallback pair:
// JSON collections namespaced by storage key, plus a cross-tab change signal
// fired on every write. The remote document store mirrors the same
// collections.
package localstore

import (
	"context"

	"github.com/nitishgupta522/CampusConnect-sub000/internal/model"
)

// Storage keys shared with the dashboard front end.
const (
	KeyPrefix          = "campus_connect_"
	KeyNotifications   = "campus_connect_notifications"
	KeyPreferences     = "campus_connect_notification_preferences"
	SignalChannel      = "campus_connect:storage"
)

// CollectionKey maps a collection name to its storage key.
func CollectionKey(collection string) string {
	return KeyPrefix + collection
}

// Signal is the typed cross-tab storage notification: which key changed and
// the raw serialized value written. Delivered to every watcher except the
// writer's own instance.
type Signal struct {
	Key string `json:"key"`
	Raw string `json:"raw"`
}

// Store is durable per-browser JSON storage. Read fails soft: absent or
// corrupt values come back as an empty sequence, never an error. Write is
// last-writer-wins; callers needing merge semantics must read-modify-write.
type Store interface {
	Read(ctx context.Context, key string) ([]model.Record, error)
	Write(ctx context.Context, key string, records []model.Record) error
	Remove(ctx context.Context, key string) error
	Append(ctx context.Context, key string, record model.Record) error

	// ReadRaw and WriteRaw move non-collection payloads (the notification
	// set, preferences) without imposing the Record shape.
	ReadRaw(ctx context.Context, key string) (string, bool, error)
	WriteRaw(ctx context.Context, key, raw string) error

	// Watch registers a storage-signal observer. The returned cancel
	// function unregisters it; calling cancel twice is safe.
	Watch(fn func(Signal)) (cancel func())
}
