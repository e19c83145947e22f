package handler

import (
	"github.com/nitishgupta522/CampusConnect-sub000/internal/docstore"
	"github.com/nitishgupta522/CampusConnect-sub000/internal/model"
	"github.com/nitishgupta522/CampusConnect-sub000/internal/pkg/logger"
	"github.com/nitishgupta522/CampusConnect-sub000/internal/pkg/serverutils"
	"github.com/nitishgupta522/CampusConnect-sub000/internal/service"
	"github.com/nitishgupta522/CampusConnect-sub000/pkg/events"

	"github.com/gofiber/fiber/v2"
)

// createEvents maps a collection to the event its creation emits. Collections
// without an entry still persist; they just do not notify anyone.
var createEvents = map[string]string{
	model.CollectionStudents:      events.StudentAdded,
	model.CollectionAttendance:    events.AttendanceMarked,
	model.CollectionMessages:      events.MessageSent,
	model.CollectionResults:       events.ResultPublished,
	model.CollectionAssignments:   events.AssignmentCreated,
	model.CollectionAnnouncements: events.AnnouncementPublished,
}

// DocumentHandler is the write surface of the dashboard: module CRUD against
// the document store. Reads served here are one-shot; live views go through
// the websocket.
type DocumentHandler struct {
	store     docstore.Store
	publisher *service.EventPublisher
	logger    logger.ILogger
}

func NewDocumentHandler(store docstore.Store, publisher *service.EventPublisher, log logger.ILogger) *DocumentHandler {
	return &DocumentHandler{
		store:     store,
		publisher: publisher,
		logger:    log,
	}
}

func (h *DocumentHandler) collectionParam(c *fiber.Ctx) (string, error) {
	if h.store == nil {
		// Running in fallback mode without a document store.
		return "", fiber.ErrServiceUnavailable
	}
	name := c.Params("collection")
	if !model.KnownCollection(name) {
		return "", fiber.NewError(fiber.StatusNotFound, "unknown collection")
	}
	return name, nil
}

// List returns documents matching the query-string filters, newest first.
func (h *DocumentHandler) List(c *fiber.Ctx) error {
	collection, err := h.collectionParam(c)
	if err != nil {
		return err
	}

	filters := docstore.Filters{}
	for key, values := range c.Queries() {
		if key == "limit" || values == "" {
			continue
		}
		filters[key] = values
	}

	records, err := h.store.Query(c.UserContext(), collection, filters, docstore.QueryOptions{
		OrderBy: model.OrderField(collection),
		Desc:    true,
		Limit:   c.QueryInt("limit", 0),
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": records, "total": len(records)})
}

// Get returns one document or 404.
func (h *DocumentHandler) Get(c *fiber.Ctx) error {
	collection, err := h.collectionParam(c)
	if err != nil {
		return err
	}

	record, err := h.store.Get(c.UserContext(), collection, c.Params("id"))
	if err != nil {
		return err
	}
	if record == nil {
		return fiber.ErrNotFound
	}
	return c.JSON(record)
}

// Create stores a new document and emits the collection's domain event.
func (h *DocumentHandler) Create(c *fiber.Ctx) error {
	collection, err := h.collectionParam(c)
	if err != nil {
		return err
	}

	var data model.Record
	if err := c.BodyParser(&data); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	record, err := h.store.Create(c.UserContext(), collection, data)
	if err != nil {
		return err
	}

	if code, ok := createEvents[collection]; ok {
		payload := map[string]interface{}{"id": record.ID()}
		for k, v := range record {
			payload[k] = v
		}
		payload["senderId"] = serverutils.SessionString(c, "user_id")
		payload["senderName"] = serverutils.SessionString(c, "display_name")
		if err := h.publisher.Publish(c.UserContext(), events.New(code, payload)); err != nil {
			h.logger.Warn("DocumentHandler", "Event publish failed", map[string]interface{}{
				"event": code,
				"error": err.Error(),
			})
		}
	}

	return c.Status(fiber.StatusCreated).JSON(record)
}

// Update merges fields into an existing document.
func (h *DocumentHandler) Update(c *fiber.Ctx) error {
	collection, err := h.collectionParam(c)
	if err != nil {
		return err
	}

	var updates model.Record
	if err := c.BodyParser(&updates); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	record, err := h.store.Update(c.UserContext(), collection, c.Params("id"), updates)
	if err != nil {
		return err
	}
	if record == nil {
		return fiber.ErrNotFound
	}
	return c.JSON(record)
}

// Delete removes a document.
func (h *DocumentHandler) Delete(c *fiber.Ctx) error {
	collection, err := h.collectionParam(c)
	if err != nil {
		return err
	}

	if err := h.store.Delete(c.UserContext(), collection, c.Params("id")); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true})
}

// RegisterRoutes registers the collection CRUD routes.
func (h *DocumentHandler) RegisterRoutes(router fiber.Router) {
	col := router.Group("/collections/:collection")
	col.Use(serverutils.JwtMiddleware)
	col.Get("/", h.List)
	col.Post("/", h.Create)
	col.Get("/:id", h.Get)
	col.Patch("/:id", h.Update)
	col.Delete("/:id", h.Delete)
}
