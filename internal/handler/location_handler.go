package handler

import (
	"go-fulfillment-ws/internal/service"

	"github.com/gofiber/fiber/v2"
)

type LocationHandler struct {
	locations service.LocationAllocator
}

func NewLocationHandler(locations service.LocationAllocator) *LocationHandler {
	return &LocationHandler{locations: locations}
}

// GetLocations returns every shelf with its current occupancy
func (h *LocationHandler) GetLocations(c *fiber.Ctx) error {
	locations, err := h.locations.ListLocations(requestContext(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(locations)
}

// CreateLocation registers a new shelf
// POST /api/v1/locations
func (h *LocationHandler) CreateLocation(c *fiber.Ctx) error {
	var req service.CreateLocationInput
	if err := c.BodyParser(&req); err != nil {
		return invalidJSON(c)
	}

	loc, err := h.locations.CreateLocation(requestContext(c), req, getActor(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(201).JSON(fiber.Map{"message": "Location created", "data": loc})
}
