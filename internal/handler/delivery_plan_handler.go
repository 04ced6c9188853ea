package handler

import (
	"go-fulfillment-ws/internal/service"

	"github.com/gofiber/fiber/v2"
)

type DeliveryPlanHandler struct {
	plans service.DeliveryPlanService
}

func NewDeliveryPlanHandler(plans service.DeliveryPlanService) *DeliveryPlanHandler {
	return &DeliveryPlanHandler{plans: plans}
}

type cancelPlanRequest struct {
	Reason string `json:"reason"`
}

func (h *DeliveryPlanHandler) CreatePlan(c *fiber.Ctx) error {
	var req service.CreateDeliveryPlanInput
	if err := c.BodyParser(&req); err != nil {
		return invalidJSON(c)
	}

	plan, err := h.plans.Create(requestContext(c), req, getActor(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(201).JSON(fiber.Map{"message": "Delivery plan created", "data": plan})
}

// GetPlan accepts either the plan id or its DP- number
func (h *DeliveryPlanHandler) GetPlan(c *fiber.Ctx) error {
	plan, err := h.plans.Get(requestContext(c), c.Params("ref"), getActor(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(plan)
}

// CancelPlan cancels a pending plan and every product linked to it
// POST /api/v1/delivery-plans/:ref/cancel
func (h *DeliveryPlanHandler) CancelPlan(c *fiber.Ctx) error {
	var req cancelPlanRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return invalidJSON(c)
		}
	}

	result, err := h.plans.Cancel(requestContext(c), c.Params("ref"), getActor(c), req.Reason)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"message":           "Delivery plan cancelled",
		"data":              result.Plan,
		"affected_products": result.AffectedProducts,
	})
}
