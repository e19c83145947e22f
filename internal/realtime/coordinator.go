// Package realtime owns the dashboard's live view of the remote collections:
// role-scoped subscriptions, per-collection caches and the render fan-out to
// widgets. In fallback mode it synthesizes updates by polling the local
// store and reacting to cross-tab storage signals.
package realtime

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nitishgupta522/CampusConnect-sub000/internal/docstore"
	"github.com/nitishgupta522/CampusConnect-sub000/internal/localstore"
	"github.com/nitishgupta522/CampusConnect-sub000/internal/model"
	"github.com/nitishgupta522/CampusConnect-sub000/internal/pkg/logger"
)

// Mode selects the update source.
type Mode int

const (
	// ModeLive feeds caches from document store subscriptions.
	ModeLive Mode = iota
	// ModeFallback polls the local store and treats every storage signal
	// as a synthetic modification: full re-read, full replace.
	ModeFallback
)

// RenderCallback receives the full current sorted view of a collection.
// Widgets re-render from scratch; they never track partial state.
type RenderCallback func(records []model.Record)

// AttachErrorFunc is notified once per failed subscription attach. The
// coordinator does not retry failed attaches.
type AttachErrorFunc func(collection string, err error)

type planEntry struct {
	collection string
	filters    docstore.Filters
}

// Coordinator is the sole writer of the per-collection caches.
type Coordinator struct {
	store        docstore.Store
	local        localstore.Store
	logger       logger.ILogger
	mode         Mode
	pollInterval time.Duration
	onAttachErr  AttachErrorFunc

	mu        sync.Mutex
	caches    map[string]*collectionCache
	renderers map[string][]RenderCallback
	subs      []*Subscription
	plan      []planEntry
	attached  bool

	watchCancel func()
	pollStop    chan struct{}
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithFallbackMode forces polling mode with the given interval.
func WithFallbackMode(pollInterval time.Duration) Option {
	return func(c *Coordinator) {
		c.mode = ModeFallback
		c.pollInterval = pollInterval
	}
}

// WithAttachErrorFunc installs the one-shot attach failure callback.
func WithAttachErrorFunc(fn AttachErrorFunc) Option {
	return func(c *Coordinator) {
		c.onAttachErr = fn
	}
}

func NewCoordinator(store docstore.Store, local localstore.Store, log logger.ILogger, opts ...Option) *Coordinator {
	c := &Coordinator{
		store:        store,
		local:        local,
		logger:       log,
		mode:         ModeLive,
		pollInterval: 15 * time.Second,
		caches:       make(map[string]*collectionCache),
		renderers:    make(map[string][]RenderCallback),
	}
	if store == nil {
		c.mode = ModeFallback
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Mode returns the active update source.
func (c *Coordinator) Mode() Mode {
	return c.mode
}

// OnRender registers a widget render callback for a collection. Callbacks
// fire only once the collection receives its own first data.
func (c *Coordinator) OnRender(collection string, cb RenderCallback) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.renderers[collection] = append(c.renderers[collection], cb)
}

// View returns the current sorted cache content for a collection. Empty
// until the collection is attached and has data.
func (c *Coordinator) View(collection string) []model.Record {
	c.mu.Lock()
	defer c.mu.Unlock()
	cache, ok := c.caches[collection]
	if !ok {
		return []model.Record{}
	}
	return cache.view()
}

// AttachForUser determines the role's collection/filter plan and attaches
// one subscription per entry (live mode) or primes the polling loop
// (fallback mode). Called once at session start.
func (c *Coordinator) AttachForUser(ctx context.Context, user model.SessionUser) error {
	c.mu.Lock()
	if c.attached {
		c.mu.Unlock()
		return fmt.Errorf("realtime: already attached, detach first")
	}
	c.attached = true
	c.plan = attachPlan(user)
	c.mu.Unlock()

	if c.mode == ModeFallback {
		return c.attachFallback(ctx)
	}
	return c.attachLive(ctx)
}

// attachPlan mirrors the role-specific listener sets of the dashboard.
func attachPlan(user model.SessionUser) []planEntry {
	switch user.Role {
	case model.RoleStudent:
		return []planEntry{
			{model.CollectionFees, docstore.Filters{"studentId": user.ID}},
			{model.CollectionMessages, docstore.Filters{"recipientId": user.ID, "recipientType": model.RoleStudent}},
			{model.CollectionResults, docstore.Filters{"studentId": user.ID}},
			{model.CollectionNotifications, docstore.Filters{"recipientId": user.ID, "recipientType": model.RoleStudent}},
			{model.CollectionAnnouncements, docstore.Filters{}},
		}
	case model.RoleFaculty:
		return []planEntry{
			{model.CollectionAssignmentSubmissions, docstore.Filters{"facultyId": user.ID}},
			{model.CollectionMessages, docstore.Filters{"recipientId": user.ID, "recipientType": model.RoleFaculty}},
			{model.CollectionNotifications, docstore.Filters{"recipientId": user.ID, "recipientType": model.RoleFaculty}},
		}
	case model.RoleParent:
		return []planEntry{
			{model.CollectionFees, docstore.Filters{"studentId": user.WardID}},
			{model.CollectionAttendance, docstore.Filters{"studentId": user.WardID}},
			{model.CollectionResults, docstore.Filters{"studentId": user.WardID}},
			{model.CollectionAnnouncements, docstore.Filters{}},
		}
	case model.RoleAdmin:
		return []planEntry{
			{model.CollectionFees, docstore.Filters{}},
			{model.CollectionMessages, docstore.Filters{}},
			{model.CollectionResults, docstore.Filters{}},
			{model.CollectionNotifications, docstore.Filters{}},
			{model.CollectionAnnouncements, docstore.Filters{}},
		}
	default:
		return nil
	}
}

func (c *Coordinator) attachLive(ctx context.Context) error {
	for _, entry := range c.plan {
		sub := newSubscription(entry.collection, entry.filters)

		handle, err := c.store.Subscribe(entry.collection, entry.filters, func(snapshot model.Snapshot) {
			c.handleSnapshot(sub, snapshot)
		})
		if err != nil {
			sub.fail()
			c.reportAttachError(entry.collection, err)
			continue
		}
		sub.activate(handle)

		c.mu.Lock()
		c.subs = append(c.subs, sub)
		c.mu.Unlock()

		// Seed the cache with the current remote state, the way a
		// document database delivers its initial snapshot.
		records, err := c.store.Query(ctx, entry.collection, entry.filters, docstore.QueryOptions{Desc: true})
		if err != nil {
			c.logger.Warn("Realtime", "Initial load failed", map[string]interface{}{
				"collection": entry.collection,
				"error":      err.Error(),
			})
			continue
		}
		if len(records) > 0 {
			c.mu.Lock()
			c.cacheFor(entry.collection).replaceAll(records)
			c.mu.Unlock()
			c.render(entry.collection, sub.Active)
		}
	}
	return nil
}

func (c *Coordinator) attachFallback(ctx context.Context) error {
	// Initial full read of every planned collection.
	for _, entry := range c.plan {
		c.reloadFromLocal(ctx, entry)
	}

	// Storage signals from other tabs are synthetic Modified events for
	// the affected collection.
	c.watchCancel = c.local.Watch(func(sig localstore.Signal) {
		c.mu.Lock()
		plan := c.plan
		attached := c.attached
		c.mu.Unlock()
		if !attached {
			return
		}
		for _, entry := range plan {
			if localstore.CollectionKey(entry.collection) == sig.Key {
				c.reloadFromLocal(context.Background(), entry)
			}
		}
	})

	// Polling safety net for writes whose signal got lost.
	c.pollStop = make(chan struct{})
	go c.pollLoop()

	return nil
}

func (c *Coordinator) pollLoop() {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.mu.Lock()
			plan := c.plan
			c.mu.Unlock()
			for _, entry := range plan {
				c.reloadFromLocal(context.Background(), entry)
			}
		case <-c.pollStop:
			return
		}
	}
}

// reloadFromLocal re-reads one collection's storage key and replaces the
// cache wholesale. Filters still apply so views match live mode.
func (c *Coordinator) reloadFromLocal(ctx context.Context, entry planEntry) {
	records, err := c.local.Read(ctx, localstore.CollectionKey(entry.collection))
	if err != nil {
		c.logger.Warn("Realtime", "Fallback read failed", map[string]interface{}{
			"collection": entry.collection,
			"error":      err.Error(),
		})
		return
	}

	filtered := make([]model.Record, 0, len(records))
	for _, r := range records {
		if entry.filters.Matches(r) {
			filtered = append(filtered, r)
		}
	}

	c.mu.Lock()
	if !c.attached {
		c.mu.Unlock()
		return
	}
	c.cacheFor(entry.collection).replaceAll(filtered)
	c.mu.Unlock()

	c.render(entry.collection, c.isAttached)
}

// handleSnapshot merges one subscription invocation into the cache.
func (c *Coordinator) handleSnapshot(sub *Subscription, snapshot model.Snapshot) {
	if !sub.Active() {
		return
	}

	c.mu.Lock()
	merged := 0
	for _, change := range snapshot {
		// Re-check per change: Detach may land while a snapshot is in
		// flight, and nothing may mutate state after it returns.
		if !sub.Active() {
			break
		}
		if err := c.cacheFor(sub.Collection).apply(change); err != nil {
			// Malformed payload: drop the event, keep the subscription.
			c.logger.Warn("Realtime", "Dropping malformed change event", map[string]interface{}{
				"collection": sub.Collection,
				"error":      err.Error(),
			})
			continue
		}
		merged++
	}
	c.mu.Unlock()

	if merged > 0 {
		c.render(sub.Collection, sub.Active)
	}
}

// render invokes all callbacks for a collection with the full sorted view.
// The guard is re-checked before every invocation: a detach landing while the
// fan-out is in flight stops the remaining callbacks, not just future merges.
// One panicking widget must not block the others.
func (c *Coordinator) render(collection string, stillAttached func() bool) {
	c.mu.Lock()
	cbs := make([]RenderCallback, len(c.renderers[collection]))
	copy(cbs, c.renderers[collection])
	var view []model.Record
	if cache, ok := c.caches[collection]; ok {
		view = cache.view()
	}
	c.mu.Unlock()

	for _, cb := range cbs {
		if !stillAttached() {
			return
		}
		c.safeRender(collection, cb, view)
	}
}

func (c *Coordinator) isAttached() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.attached
}

func (c *Coordinator) safeRender(collection string, cb RenderCallback, view []model.Record) {
	defer func() {
		if rec := recover(); rec != nil {
			c.logger.Error("Realtime", "Render callback panicked", map[string]interface{}{
				"collection": collection,
				"error":      fmt.Sprintf("%v", rec),
			})
		}
	}()
	cb(view)
}

// DetachAll tears down every subscription. Safe to call repeatedly; after it
// returns, no further cache mutation or render invocation happens.
func (c *Coordinator) DetachAll() {
	c.mu.Lock()
	subs := c.subs
	c.subs = nil
	c.attached = false
	watchCancel := c.watchCancel
	c.watchCancel = nil
	pollStop := c.pollStop
	c.pollStop = nil
	c.mu.Unlock()

	for _, sub := range subs {
		sub.Detach()
	}
	if watchCancel != nil {
		watchCancel()
	}
	if pollStop != nil {
		close(pollStop)
	}
}

func (c *Coordinator) reportAttachError(collection string, err error) {
	c.logger.Error("Realtime", "Subscription attach failed", map[string]interface{}{
		"collection": collection,
		"error":      err.Error(),
	})
	if c.onAttachErr != nil {
		c.onAttachErr(collection, err)
	}
}

// cacheFor must be called with c.mu held.
func (c *Coordinator) cacheFor(collection string) *collectionCache {
	cache, ok := c.caches[collection]
	if !ok {
		cache = newCollectionCache(collection)
		c.caches[collection] = cache
	}
	return cache
}
