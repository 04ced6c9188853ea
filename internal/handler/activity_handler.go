package handler

import (
	"go-fulfillment-ws/internal/model"
	"go-fulfillment-ws/internal/service"

	"github.com/gofiber/fiber/v2"
)

type ActivityHandler struct {
	ledger service.ActivityLedger
}

func NewActivityHandler(ledger service.ActivityLedger) *ActivityHandler {
	return &ActivityHandler{ledger: ledger}
}

// GetActivity returns the ordered history of a product or order
func (h *ActivityHandler) GetActivity(c *fiber.Ctx) error {
	id, err := parseID(c, "id", "Invalid subject ID")
	if err != nil {
		return respondError(c, err)
	}

	records, err := h.ledger.Query(requestContext(c), id)
	if err != nil {
		return respondError(c, err)
	}
	if records == nil {
		records = []model.ActivityRecord{}
	}
	return c.JSON(records)
}

func (h *ActivityHandler) GetStats(c *fiber.Ctx) error {
	id, err := parseID(c, "id", "Invalid subject ID")
	if err != nil {
		return respondError(c, err)
	}

	stats, err := h.ledger.Stats(requestContext(c), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(stats)
}
