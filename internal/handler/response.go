package handler

import (
	"context"
	"errors"

	"go-fulfillment-ws/internal/apperr"
	"go-fulfillment-ws/internal/middleware"
	"go-fulfillment-ws/internal/model"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// requestIDKey is where fiber's requestid middleware stores the id.
const requestIDKey = "requestid"

// requestContext carries the request id into the service layer as the
// correlation id, so logs and the error body share it.
func requestContext(c *fiber.Ctx) context.Context {
	ctx := c.UserContext()
	if id, ok := c.Locals(requestIDKey).(string); ok && id != "" {
		return apperr.WithCorrelationID(ctx, id)
	}
	return ctx
}

// getActor returns the actor resolved by RequireAuth. Routes are always
// mounted behind it, so the zero actor only reaches services in tests.
func getActor(c *fiber.Ctx) model.Actor {
	actor, _ := middleware.ActorFrom(c)
	return actor
}

// Helper untuk parse UUID dari path
func parseID(c *fiber.Ctx, param, message string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params(param))
	if err != nil {
		return uuid.Nil, apperr.Validation(message)
	}
	return id, nil
}

func statusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindValidation:
		return fiber.StatusBadRequest
	case apperr.KindNotFound:
		return fiber.StatusNotFound
	case apperr.KindForbidden:
		return fiber.StatusForbidden
	case apperr.KindForbiddenTransition, apperr.KindConflict:
		return fiber.StatusConflict
	case apperr.KindCapacityExceeded:
		return fiber.StatusUnprocessableEntity
	default:
		return fiber.StatusServiceUnavailable
	}
}

// respondError renders err without leaking anything but its public message.
func respondError(c *fiber.Ctx, err error) error {
	var ae *apperr.Error
	if !errors.As(err, &ae) {
		ae = apperr.Storage(err)
	}
	requestID := ae.CorrelationID
	if requestID == "" {
		requestID, _ = c.Locals(requestIDKey).(string)
	}
	return c.Status(statusFor(ae.Kind)).JSON(fiber.Map{
		"error":      ae.Message,
		"code":       ae.Code,
		"request_id": requestID,
	})
}

func invalidJSON(c *fiber.Ctx) error {
	return respondError(c, apperr.Validation("Invalid JSON"))
}
