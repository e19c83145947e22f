package handler

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/nitishgupta522/CampusConnect-sub000/internal/docstore"
	"github.com/nitishgupta522/CampusConnect-sub000/internal/model"
	"github.com/nitishgupta522/CampusConnect-sub000/internal/pkg/logger"
	"github.com/nitishgupta522/CampusConnect-sub000/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
)

func newDocumentApp(store docstore.Store) *fiber.App {
	app := fiber.New()
	h := NewDocumentHandler(store, service.NewEventPublisher(nil, nil, logger.NewNopLogger()), logger.NewNopLogger())
	app.Get("/collections/:collection", h.List)
	app.Patch("/collections/:collection/:id", h.Update)
	return app
}

func TestUpdateMissingDocumentReturnsNotFound(t *testing.T) {
	store := docstore.NewMemoryStore(logger.NewNopLogger())
	app := newDocumentApp(store)

	req := httptest.NewRequest(fiber.MethodPatch, "/collections/fees/nope", strings.NewReader(`{"status":"paid"}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	assert.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestUpdateExistingDocumentSucceeds(t *testing.T) {
	store := docstore.NewMemoryStore(logger.NewNopLogger())
	created, err := store.Create(context.Background(), model.CollectionFees, model.Record{"status": "pending"})
	assert.NoError(t, err)

	app := newDocumentApp(store)

	req := httptest.NewRequest(fiber.MethodPatch, "/collections/fees/"+created.ID(), strings.NewReader(`{"status":"paid"}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	assert.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	updated, err := store.Get(context.Background(), model.CollectionFees, created.ID())
	assert.NoError(t, err)
	assert.Equal(t, "paid", updated.String("status"))
}

func TestWriteSurfaceUnavailableWithoutDocumentStore(t *testing.T) {
	app := newDocumentApp(nil)

	req := httptest.NewRequest(fiber.MethodGet, "/collections/fees", nil)
	resp, err := app.Test(req)
	assert.NoError(t, err)
	assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)
}
