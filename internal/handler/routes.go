package handler

import (
	"go-fulfillment-ws/internal/middleware"
	"go-fulfillment-ws/internal/model"
	"go-fulfillment-ws/internal/service"

	"github.com/gofiber/fiber/v2"
)

// Services bundles what the HTTP layer calls into.
type Services struct {
	Products  service.ProductService
	Status    service.StatusStateMachine
	Locations service.LocationAllocator
	Ledger    service.ActivityLedger
	Picking   service.PickingTaskAggregator
	Plans     service.DeliveryPlanService
	Orders    service.OrderService
	Dashboard service.DashboardService
}

// SetupRoutes mounts the /api/v1 surface. Every route needs a bearer token;
// services apply the finer per-role rules themselves.
func SetupRoutes(app *fiber.App, secret []byte, s Services) {
	productHandler := NewProductHandler(s.Products, s.Status, s.Locations)
	locationHandler := NewLocationHandler(s.Locations)
	activityHandler := NewActivityHandler(s.Ledger)
	pickingHandler := NewPickingHandler(s.Picking)
	planHandler := NewDeliveryPlanHandler(s.Plans)
	orderHandler := NewOrderHandler(s.Orders)
	dashHandler := NewDashboardHandler(s.Dashboard)

	warehouse := middleware.RequireRole(model.RoleStaff, model.RoleAdmin)

	api := app.Group("/api/v1", middleware.RequireAuth(secret))

	// Dashboard Routes
	api.Get("/dashboard/stats", warehouse, dashHandler.GetDashboardStats)
	api.Get("/dashboard/movement", warehouse, dashHandler.GetMovement)

	// Product Routes (sellers only ever see their own items)
	api.Get("/products", productHandler.GetProducts)
	api.Get("/products/lookup", productHandler.LookupProduct)
	api.Get("/products/:id", productHandler.GetProduct)
	api.Post("/products", productHandler.CreateProduct)
	api.Patch("/products/:id/status", productHandler.UpdateStatus)
	api.Put("/products/:id/location", productHandler.MoveProduct)
	api.Patch("/products/:id/price", productHandler.ChangePrice)
	api.Post("/products/:id/inspection", productHandler.RecordInspection)
	api.Post("/products/:id/photography", productHandler.RecordPhotography)
	api.Get("/products/:id/movements", productHandler.GetMovements)

	// Location Routes
	api.Get("/locations", warehouse, locationHandler.GetLocations)
	api.Post("/locations", warehouse, locationHandler.CreateLocation)

	// Activity Routes
	api.Get("/activity/:id", warehouse, activityHandler.GetActivity)
	api.Get("/activity/:id/stats", warehouse, activityHandler.GetStats)

	// Picking Routes
	api.Get("/picking/tasks", warehouse, pickingHandler.GetTasks)
	api.Post("/picking/tasks", warehouse, pickingHandler.CreateTask)

	// Order Routes
	api.Post("/orders", middleware.RequireRole(model.RoleStaff, model.RoleAdmin, model.RoleSystem), orderHandler.CreateOrder)
	api.Get("/orders/:id", warehouse, orderHandler.GetOrder)

	// Delivery Plan Routes
	api.Post("/delivery-plans", planHandler.CreatePlan)
	api.Get("/delivery-plans/:ref", planHandler.GetPlan)
	api.Post("/delivery-plans/:ref/cancel", planHandler.CancelPlan)
}
