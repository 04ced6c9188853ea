package handler

import (
	"go-fulfillment-ws/internal/service"

	"github.com/gofiber/fiber/v2"
)

type OrderHandler struct {
	orders service.OrderService
}

func NewOrderHandler(orders service.OrderService) *OrderHandler {
	return &OrderHandler{orders: orders}
}

func (h *OrderHandler) CreateOrder(c *fiber.Ctx) error {
	var req service.CreateOrderInput
	if err := c.BodyParser(&req); err != nil {
		return invalidJSON(c)
	}

	order, err := h.orders.CreateOrder(requestContext(c), req, getActor(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(201).JSON(fiber.Map{"message": "Order recorded", "data": order})
}

func (h *OrderHandler) GetOrder(c *fiber.Ctx) error {
	id, err := parseID(c, "id", "Invalid order ID")
	if err != nil {
		return respondError(c, err)
	}

	order, err := h.orders.GetOrder(requestContext(c), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(order)
}
