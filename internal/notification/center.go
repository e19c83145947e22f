// Package notification is the single source of truth for dashboard
// notifications: lifecycle, preference-aware display, durable persistence
// and cross-tab consistency through the storage signal.
package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/nitishgupta522/CampusConnect-sub000/internal/localstore"
	"github.com/nitishgupta522/CampusConnect-sub000/internal/model"
	"github.com/nitishgupta522/CampusConnect-sub000/internal/pkg/logger"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// Displayer renders a notification to the user: toast, chime and optional
// platform notification. Implemented by the websocket hub in production and
// by fakes in tests. Implementations must not panic into the center.
type Displayer interface {
	ShowToast(n model.Notification, duration time.Duration)
	PlaySound(n model.Notification, frequencyHz int)
	ShowBrowserNotification(n model.Notification)
}

// BadgeFunc is invoked with the recipient's fresh unread count after every
// state mutation.
type BadgeFunc func(recipientID string, unread int)

// CreateInput is the producer-facing payload for new notifications.
type CreateInput struct {
	Type          string                 `json:"type"`
	Priority      string                 `json:"priority"`
	Title         string                 `json:"title" validate:"required"`
	Message       string                 `json:"message" validate:"required"`
	RecipientID   string                 `json:"recipientId" validate:"required"`
	RecipientType string                 `json:"recipientType" validate:"required"`
	SenderID      string                 `json:"senderId"`
	SenderName    string                 `json:"senderName"`
	ActionURL     string                 `json:"actionUrl"`
	ActionText    string                 `json:"actionText"`
	Metadata      map[string]interface{} `json:"metadata"`
}

// Center owns the notification set. Nothing else writes it.
type Center struct {
	store     localstore.Store
	displayer Displayer
	logger    logger.ILogger
	validate  *validator.Validate
	onBadge   BadgeFunc

	mu            sync.Mutex
	notifications map[string]model.Notification
	prefs         model.NotificationPreferences

	watchCancel func()
}

func NewCenter(store localstore.Store, displayer Displayer, log logger.ILogger) *Center {
	return &Center{
		store:         store,
		displayer:     displayer,
		logger:        log,
		validate:      validator.New(),
		notifications: make(map[string]model.Notification),
		prefs:         model.DefaultPreferences(),
	}
}

// OnBadge installs the badge re-render hook.
func (c *Center) OnBadge(fn BadgeFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onBadge = fn
}

// Load restores the persisted set and preferences. Malformed persisted data
// is discarded wholesale with a warning; the center starts empty.
func (c *Center) Load(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if raw, found, _ := c.store.ReadRaw(ctx, localstore.KeyNotifications); found {
		var set []model.Notification
		if err := json.Unmarshal([]byte(raw), &set); err != nil {
			c.logger.Warn("NotificationCenter", "Discarding corrupt notification set", map[string]interface{}{"error": err.Error()})
		} else {
			c.notifications = make(map[string]model.Notification, len(set))
			for _, n := range set {
				c.notifications[n.ID] = n
			}
		}
	}

	if raw, found, _ := c.store.ReadRaw(ctx, localstore.KeyPreferences); found {
		var prefs model.NotificationPreferences
		if err := json.Unmarshal([]byte(raw), &prefs); err != nil {
			c.logger.Warn("NotificationCenter", "Discarding corrupt preferences", map[string]interface{}{"error": err.Error()})
		} else {
			c.prefs = prefs
		}
	}
}

// StartSync begins cross-tab synchronization: any other tab's write to the
// notification key replaces this tab's whole in-memory set. Last writer wins
// at whole-collection granularity.
func (c *Center) StartSync() {
	c.watchCancel = c.store.Watch(func(sig localstore.Signal) {
		if sig.Key != localstore.KeyNotifications {
			return
		}
		var set []model.Notification
		if err := json.Unmarshal([]byte(sig.Raw), &set); err != nil {
			c.logger.Warn("NotificationCenter", "Malformed cross-tab payload ignored", map[string]interface{}{"error": err.Error()})
			return
		}
		c.mu.Lock()
		c.notifications = make(map[string]model.Notification, len(set))
		recipients := make(map[string]struct{})
		for _, n := range set {
			c.notifications[n.ID] = n
			recipients[n.RecipientID] = struct{}{}
		}
		c.mu.Unlock()
		for r := range recipients {
			c.refreshBadge(r)
		}
	})
}

// Close stops cross-tab synchronization.
func (c *Center) Close() {
	if c.watchCancel != nil {
		c.watchCancel()
		c.watchCancel = nil
	}
}

// Create validates, stores, persists and (preferences permitting) displays a
// notification. On persistence failure the notification stays visible for
// this session and the error is returned as recoverable.
func (c *Center) Create(ctx context.Context, input CreateInput) (string, error) {
	if err := c.validate.Struct(input); err != nil {
		return "", fmt.Errorf("invalid notification: %w", err)
	}

	n := model.Notification{
		ID:            uuid.NewString(),
		Type:          input.Type,
		Priority:      input.Priority,
		Title:         input.Title,
		Message:       input.Message,
		RecipientID:   input.RecipientID,
		RecipientType: input.RecipientType,
		SenderID:      input.SenderID,
		SenderName:    input.SenderName,
		ActionURL:     input.ActionURL,
		ActionText:    input.ActionText,
		Metadata:      input.Metadata,
		CreatedAt:     time.Now(),
	}
	if n.Type == "" {
		n.Type = model.TypeInfo
	}
	if n.Priority == "" {
		n.Priority = model.PriorityMedium
	}

	c.mu.Lock()
	c.notifications[n.ID] = n
	prefs := c.prefs
	c.mu.Unlock()

	c.display(n, prefs)
	c.refreshBadge(n.RecipientID)

	if err := c.persist(ctx); err != nil {
		c.logger.Error("NotificationCenter", "Persist failed, notification is session-only", map[string]interface{}{
			"id":    n.ID,
			"error": err.Error(),
		})
		return n.ID, fmt.Errorf("notification %s not persisted: %w", n.ID, err)
	}
	return n.ID, nil
}

// display applies the preference filter. A filtered notification is still
// recorded and counts toward history; it just never surfaces.
func (c *Center) display(n model.Notification, prefs model.NotificationPreferences) {
	if c.displayer == nil {
		return
	}
	if prefs.TypeDisabled(n.Type) || prefs.PriorityDisabled(n.Priority) {
		return
	}
	if prefs.ShowToasts {
		c.displayer.ShowToast(n, model.ToastDuration(n.Priority))
	}
	if prefs.PlaySound {
		c.displayer.PlaySound(n, model.SoundFrequency(n.Priority))
	}
	if prefs.BrowserNotifications {
		c.displayer.ShowBrowserNotification(n)
	}
}

// MarkAsRead transitions Displayed→Read. Dismissed is terminal: the call is
// a no-op for dismissed notifications.
func (c *Center) MarkAsRead(ctx context.Context, id string) error {
	c.mu.Lock()
	n, ok := c.notifications[id]
	if !ok || n.Dismissed || n.Read {
		c.mu.Unlock()
		return nil
	}
	n.Read = true
	c.notifications[id] = n
	c.mu.Unlock()

	c.refreshBadge(n.RecipientID)
	return c.persist(ctx)
}

// MarkAllAsRead reads every non-dismissed notification of the recipient.
func (c *Center) MarkAllAsRead(ctx context.Context, recipientID string) error {
	c.mu.Lock()
	for id, n := range c.notifications {
		if n.RecipientID == recipientID && !n.Dismissed && !n.Read {
			n.Read = true
			c.notifications[id] = n
		}
	}
	c.mu.Unlock()

	c.refreshBadge(recipientID)
	return c.persist(ctx)
}

// Dismiss is terminal for the notification. It stays in storage until a
// cleanup pass (none implemented; growth is unbounded by design).
func (c *Center) Dismiss(ctx context.Context, id string) error {
	c.mu.Lock()
	n, ok := c.notifications[id]
	if !ok || n.Dismissed {
		c.mu.Unlock()
		return nil
	}
	n.Dismissed = true
	c.notifications[id] = n
	c.mu.Unlock()

	c.refreshBadge(n.RecipientID)
	return c.persist(ctx)
}

// ClearAll dismisses every notification of the recipient, read or not.
func (c *Center) ClearAll(ctx context.Context, recipientID string) error {
	c.mu.Lock()
	for id, n := range c.notifications {
		if n.RecipientID == recipientID && !n.Dismissed {
			n.Dismissed = true
			c.notifications[id] = n
		}
	}
	c.mu.Unlock()

	c.refreshBadge(recipientID)
	return c.persist(ctx)
}

// ListForRecipient returns the recipient's non-dismissed notifications,
// newest first.
func (c *Center) ListForRecipient(recipientID string) []model.Notification {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]model.Notification, 0)
	for _, n := range c.notifications {
		if n.RecipientID == recipientID && !n.Dismissed {
			out = append(out, n)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// UnreadCount is the badge number: not read and not dismissed.
func (c *Center) UnreadCount(recipientID string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	count := 0
	for _, n := range c.notifications {
		if n.RecipientID == recipientID && !n.Read && !n.Dismissed {
			count++
		}
	}
	return count
}

// Preferences returns the current display preferences.
func (c *Center) Preferences() model.NotificationPreferences {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.prefs
}

// UpdatePreferences replaces and persists the display preferences.
func (c *Center) UpdatePreferences(ctx context.Context, prefs model.NotificationPreferences) error {
	c.mu.Lock()
	c.prefs = prefs
	c.mu.Unlock()

	raw, err := json.Marshal(prefs)
	if err != nil {
		return fmt.Errorf("serialize preferences: %w", err)
	}
	return c.store.WriteRaw(ctx, localstore.KeyPreferences, string(raw))
}

// persist writes the whole set, dismissed entries included.
func (c *Center) persist(ctx context.Context) error {
	c.mu.Lock()
	set := make([]model.Notification, 0, len(c.notifications))
	for _, n := range c.notifications {
		set = append(set, n)
	}
	c.mu.Unlock()

	sort.SliceStable(set, func(i, j int) bool {
		return set[i].CreatedAt.Before(set[j].CreatedAt)
	})

	raw, err := json.Marshal(set)
	if err != nil {
		return fmt.Errorf("serialize notification set: %w", err)
	}
	return c.store.WriteRaw(ctx, localstore.KeyNotifications, string(raw))
}

func (c *Center) refreshBadge(recipientID string) {
	c.mu.Lock()
	fn := c.onBadge
	c.mu.Unlock()
	if fn != nil {
		fn(recipientID, c.UnreadCount(recipientID))
	}
}
