package handler

import (
	"go-fulfillment-ws/internal/service"

	"github.com/gofiber/fiber/v2"
)

type PickingHandler struct {
	picking service.PickingTaskAggregator
}

func NewPickingHandler(picking service.PickingTaskAggregator) *PickingHandler {
	return &PickingHandler{picking: picking}
}

// GetTasks returns the merged work queue
// Query params: status (all|pending|in_progress|completed|on_hold, default all)
func (h *PickingHandler) GetTasks(c *fiber.Ctx) error {
	queue, err := h.picking.ListTasks(requestContext(c), c.Query("status", service.FilterAll))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(queue)
}

func (h *PickingHandler) CreateTask(c *fiber.Ctx) error {
	var req service.CreatePickingTaskInput
	if err := c.BodyParser(&req); err != nil {
		return invalidJSON(c)
	}

	task, err := h.picking.CreateTask(requestContext(c), req, getActor(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(201).JSON(fiber.Map{"message": "Picking task created", "data": task})
}
