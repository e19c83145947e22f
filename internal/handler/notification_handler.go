package handler

import (
	"context"

	"github.com/nitishgupta522/CampusConnect-sub000/internal/model"
	"github.com/nitishgupta522/CampusConnect-sub000/internal/notification"
	"github.com/nitishgupta522/CampusConnect-sub000/internal/pkg/logger"
	"github.com/nitishgupta522/CampusConnect-sub000/internal/pkg/serverutils"
	"github.com/nitishgupta522/CampusConnect-sub000/internal/realtime"
	"github.com/nitishgupta522/CampusConnect-sub000/internal/service"
	internalWS "github.com/nitishgupta522/CampusConnect-sub000/internal/websocket"
	"github.com/nitishgupta522/CampusConnect-sub000/pkg/events"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// CoordinatorFactory builds a per-session realtime coordinator. Each websocket
// session gets its own coordinator attached for its user and torn down when
// the socket closes.
type CoordinatorFactory func() *realtime.Coordinator

type NotificationHandler struct {
	center         *notification.Center
	publisher      *service.EventPublisher
	hub            *internalWS.Hub
	newCoordinator CoordinatorFactory
	logger         logger.ILogger
}

func NewNotificationHandler(
	center *notification.Center,
	publisher *service.EventPublisher,
	hub *internalWS.Hub,
	newCoordinator CoordinatorFactory,
	log logger.ILogger,
) *NotificationHandler {
	return &NotificationHandler{
		center:         center,
		publisher:      publisher,
		hub:            hub,
		newCoordinator: newCoordinator,
		logger:         log,
	}
}

func sessionUser(c *fiber.Ctx) (model.SessionUser, error) {
	user := model.SessionUser{
		ID:          serverutils.SessionString(c, "user_id"),
		Role:        serverutils.SessionString(c, "role"),
		DisplayName: serverutils.SessionString(c, "display_name"),
		WardID:      serverutils.SessionString(c, "ward_id"),
		Email:       serverutils.SessionString(c, "email"),
	}
	if user.ID == "" {
		return model.SessionUser{}, fiber.ErrUnauthorized
	}
	return user, nil
}

// ServeWs upgrades to a websocket and attaches the user's realtime
// subscriptions for the lifetime of the connection.
func (h *NotificationHandler) ServeWs(c *fiber.Ctx) error {
	user, err := sessionUser(c)
	if err != nil {
		return err
	}

	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}

	return websocket.New(func(conn *websocket.Conn) {
		h.logger.Info("NotificationHandler", "Starting WebSocket session", map[string]interface{}{"user_id": user.ID, "role": user.Role})

		coordinator := h.newCoordinator()
		for _, collection := range model.Collections {
			col := collection
			coordinator.OnRender(col, func(records []model.Record) {
				h.hub.PushCollection(user.ID, col, records)
			})
		}
		// The fiber ctx is hijacked after upgrade; attach with a fresh context.
		if err := coordinator.AttachForUser(context.Background(), user); err != nil {
			h.logger.Error("NotificationHandler", "Realtime attach failed", map[string]interface{}{"user_id": user.ID, "error": err.Error()})
		}
		defer coordinator.DetachAll()

		h.announcePresence(context.Background(), user, events.UserLogin)
		defer h.announcePresence(context.Background(), user, events.UserLogout)

		internalWS.ServeWs(h.hub, conn, user.ID)

		h.logger.Info("NotificationHandler", "WebSocket session ended", map[string]interface{}{"user_id": user.ID})
	})(c)
}

// announcePresence emits the session lifecycle events other dashboard modules
// listen for. Best effort; a session never fails over a presence event.
func (h *NotificationHandler) announcePresence(ctx context.Context, user model.SessionUser, code string) {
	evt := events.New(code, map[string]interface{}{
		"userId":      user.ID,
		"role":        user.Role,
		"displayName": user.DisplayName,
	})
	if err := h.publisher.Publish(ctx, evt); err != nil {
		h.logger.Warn("NotificationHandler", "Presence event publish failed", map[string]interface{}{
			"event": code,
			"error": err.Error(),
		})
	}
}

// GetNotifications returns the user's non-dismissed notifications, newest
// first.
func (h *NotificationHandler) GetNotifications(c *fiber.Ctx) error {
	user, err := sessionUser(c)
	if err != nil {
		return err
	}

	notifications := h.center.ListForRecipient(user.ID)
	return c.JSON(fiber.Map{
		"data":  notifications,
		"total": len(notifications),
	})
}

// GetUnreadCount returns the badge number.
func (h *NotificationHandler) GetUnreadCount(c *fiber.Ctx) error {
	user, err := sessionUser(c)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"count": h.center.UnreadCount(user.ID)})
}

// MarkAsRead marks a specific notification as read.
func (h *NotificationHandler) MarkAsRead(c *fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid ID"})
	}
	if err := h.center.MarkAsRead(c.UserContext(), id); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true})
}

// MarkAllAsRead marks all of the user's notifications as read.
func (h *NotificationHandler) MarkAllAsRead(c *fiber.Ctx) error {
	user, err := sessionUser(c)
	if err != nil {
		return err
	}
	if err := h.center.MarkAllAsRead(c.UserContext(), user.ID); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true})
}

// Dismiss removes a notification from the user's list permanently.
func (h *NotificationHandler) Dismiss(c *fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid ID"})
	}
	if err := h.center.Dismiss(c.UserContext(), id); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true})
}

// ClearAll dismisses every notification of the user.
func (h *NotificationHandler) ClearAll(c *fiber.Ctx) error {
	user, err := sessionUser(c)
	if err != nil {
		return err
	}
	if err := h.center.ClearAll(c.UserContext(), user.ID); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true})
}

// GetPreferences returns the display preferences.
func (h *NotificationHandler) GetPreferences(c *fiber.Ctx) error {
	return c.JSON(h.center.Preferences())
}

// UpdatePreferences replaces the display preferences.
func (h *NotificationHandler) UpdatePreferences(c *fiber.Ctx) error {
	var prefs model.NotificationPreferences
	if err := c.BodyParser(&prefs); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	if err := h.center.UpdatePreferences(c.UserContext(), prefs); err != nil {
		return err
	}
	return c.JSON(prefs)
}

// Broadcast sends a system-wide notification. Admin only.
func (h *NotificationHandler) Broadcast(c *fiber.Ctx) error {
	user, err := sessionUser(c)
	if err != nil {
		return err
	}
	if user.Role != model.RoleAdmin {
		return fiber.ErrForbidden
	}

	type Request struct {
		Title   string `json:"title"`
		Message string `json:"message"`
	}
	var req Request
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	if req.Title == "" || req.Message == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Title and Message are required"})
	}

	evt := events.New(events.SystemBroadcast, map[string]interface{}{
		"title":   req.Title,
		"message": req.Message,
	})
	if err := h.publisher.Publish(c.UserContext(), evt); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"status": "Broadcast Queued"})
}

// RegisterRoutes registers the notification routes.
func (h *NotificationHandler) RegisterRoutes(router fiber.Router) {
	notif := router.Group("/notifications")
	notif.Use(serverutils.JwtMiddleware)
	notif.Get("/", h.GetNotifications)
	notif.Get("/unread-count", h.GetUnreadCount)
	notif.Get("/preferences", h.GetPreferences)
	notif.Put("/preferences", h.UpdatePreferences)
	notif.Patch("/read-all", h.MarkAllAsRead)
	notif.Patch("/:id/read", h.MarkAsRead)
	notif.Delete("/clear-all", h.ClearAll)
	notif.Delete("/:id", h.Dismiss)
	notif.Post("/broadcast", h.Broadcast)

	// WebSocket
	router.Get("/ws", serverutils.JwtMiddleware, h.ServeWs)
}
