package handler

import (
	"github.com/nitishgupta522/CampusConnect-sub000/internal/pkg/logger"
	"github.com/nitishgupta522/CampusConnect-sub000/internal/pkg/serverutils"
	"github.com/nitishgupta522/CampusConnect-sub000/internal/service"

	"github.com/gofiber/fiber/v2"
)

// FeeHandler exposes online fee payment: checkout creation and the payment
// gateway webhook.
type FeeHandler struct {
	service service.IFeePaymentService
	logger  logger.ILogger
}

func NewFeeHandler(svc service.IFeePaymentService, log logger.ILogger) *FeeHandler {
	return &FeeHandler{
		service: svc,
		logger:  log,
	}
}

// Checkout creates a gateway transaction for a pending fee.
func (h *FeeHandler) Checkout(c *fiber.Ctx) error {
	user, err := sessionUser(c)
	if err != nil {
		return err
	}

	feeID := c.Params("id")
	if feeID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Missing fee id"})
	}

	resp, err := h.service.CreateCheckout(c.UserContext(), feeID, user)
	if err != nil {
		return err
	}
	return c.JSON(resp)
}

// Webhook receives the gateway's transaction notification. Unauthenticated;
// integrity comes from the signature inside the payload.
func (h *FeeHandler) Webhook(c *fiber.Ctx) error {
	var req service.WebhookRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	if err := h.service.HandleNotification(c.UserContext(), &req); err != nil {
		h.logger.Error("FeeHandler", "Webhook processing failed", map[string]interface{}{
			"order_id": req.OrderId,
			"error":    err.Error(),
		})
		return err
	}
	return c.JSON(fiber.Map{"status": "ok"})
}

// RegisterRoutes registers the fee payment routes.
func (h *FeeHandler) RegisterRoutes(router fiber.Router) {
	fees := router.Group("/fees")
	fees.Post("/:id/checkout", serverutils.JwtMiddleware, h.Checkout)
	fees.Post("/payment-webhook", h.Webhook)
}
