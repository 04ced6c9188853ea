package handler

import (
	"strings"

	"go-fulfillment-ws/internal/apperr"
	"go-fulfillment-ws/internal/model"
	"go-fulfillment-ws/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

type ProductHandler struct {
	products  service.ProductService
	status    service.StatusStateMachine
	locations service.LocationAllocator
}

func NewProductHandler(products service.ProductService, status service.StatusStateMachine, locations service.LocationAllocator) *ProductHandler {
	return &ProductHandler{products: products, status: status, locations: locations}
}

type updateStatusRequest struct {
	Status   string `json:"status"`
	Reason   string `json:"reason"`
	Location string `json:"location"`
}

type moveRequest struct {
	Location string `json:"location"`
	Notes    string `json:"notes"`
}

type priceRequest struct {
	Price decimal.Decimal `json:"price"`
}

// CreateProduct handles intake of a new item
// POST /api/v1/products
func (h *ProductHandler) CreateProduct(c *fiber.Ctx) error {
	var req service.IntakeInput
	if err := c.BodyParser(&req); err != nil {
		return invalidJSON(c)
	}

	product, err := h.products.Intake(requestContext(c), req, getActor(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(201).JSON(fiber.Map{"message": "Product created", "data": product})
}

// GetProducts lists products, optionally filtered by ?status=a,b
func (h *ProductHandler) GetProducts(c *fiber.Ctx) error {
	var statuses []model.ProductStatus
	if raw := c.Query("status"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			statuses = append(statuses, model.ProductStatus(strings.TrimSpace(s)))
		}
	}

	products, err := h.products.List(requestContext(c), statuses, getActor(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(products)
}

// LookupProduct finds a product by SKU, accepting legacy short SKUs
// GET /api/v1/products/lookup?sku=
func (h *ProductHandler) LookupProduct(c *fiber.Ctx) error {
	sku := strings.TrimSpace(c.Query("sku"))
	if sku == "" {
		return respondError(c, apperr.Validation("sku is required"))
	}

	product, err := h.products.LookupBySKU(requestContext(c), sku, getActor(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(product)
}

func (h *ProductHandler) GetProduct(c *fiber.Ctx) error {
	id, err := parseID(c, "id", "Invalid product ID")
	if err != nil {
		return respondError(c, err)
	}

	product, err := h.products.Get(requestContext(c), id, getActor(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(product)
}

// UpdateStatus runs a status transition
// PATCH /api/v1/products/:id/status
func (h *ProductHandler) UpdateStatus(c *fiber.Ctx) error {
	id, err := parseID(c, "id", "Invalid product ID")
	if err != nil {
		return respondError(c, err)
	}
	var req updateStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidJSON(c)
	}

	product, err := h.status.Transition(requestContext(c), service.TransitionInput{
		ProductID:   id,
		Target:      model.ProductStatus(strings.TrimSpace(req.Status)),
		Actor:       getActor(c),
		Reason:      req.Reason,
		LocationRef: req.Location,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Status updated", "data": product})
}

// MoveProduct places a product on a shelf
// PUT /api/v1/products/:id/location
func (h *ProductHandler) MoveProduct(c *fiber.Ctx) error {
	id, err := parseID(c, "id", "Invalid product ID")
	if err != nil {
		return respondError(c, err)
	}
	var req moveRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidJSON(c)
	}

	placement, err := h.locations.Place(requestContext(c), service.PlaceInput{
		ProductID:   id,
		LocationRef: req.Location,
		Actor:       getActor(c),
		Notes:       req.Notes,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Location updated", "data": placement})
}

func (h *ProductHandler) ChangePrice(c *fiber.Ctx) error {
	id, err := parseID(c, "id", "Invalid product ID")
	if err != nil {
		return respondError(c, err)
	}
	var req priceRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidJSON(c)
	}

	product, err := h.products.ChangePrice(requestContext(c), id, req.Price, getActor(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Price updated", "data": product})
}

func (h *ProductHandler) RecordInspection(c *fiber.Ctx) error {
	id, err := parseID(c, "id", "Invalid product ID")
	if err != nil {
		return respondError(c, err)
	}
	var req service.InspectionInput
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return invalidJSON(c)
		}
	}

	product, err := h.products.RecordInspection(requestContext(c), id, req, getActor(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Inspection recorded", "data": product})
}

func (h *ProductHandler) RecordPhotography(c *fiber.Ctx) error {
	id, err := parseID(c, "id", "Invalid product ID")
	if err != nil {
		return respondError(c, err)
	}

	product, err := h.products.RecordPhotography(requestContext(c), id, getActor(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Photography recorded", "data": product})
}

// GetMovements returns the shelf history of a product
func (h *ProductHandler) GetMovements(c *fiber.Ctx) error {
	id, err := parseID(c, "id", "Invalid product ID")
	if err != nil {
		return respondError(c, err)
	}
	ctx := requestContext(c)
	// resolves visibility for sellers before exposing history
	if _, err := h.products.Get(ctx, id, getActor(c)); err != nil {
		return respondError(c, err)
	}

	movements, err := h.locations.ListMovements(ctx, id)
	if err != nil {
		return respondError(c, err)
	}
	if movements == nil {
		movements = []model.ProductMovement{}
	}
	return c.JSON(movements)
}
