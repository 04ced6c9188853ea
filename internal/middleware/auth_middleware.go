package middleware

import (
	"strings"

	"go-fulfillment-ws/internal/model"
	"go-fulfillment-ws/pkg/jwt"

	"github.com/gofiber/fiber/v2"
)

// ActorKey is the fiber Locals key holding the authenticated model.Actor.
const ActorKey = "actor"

// RequireAuth validates the bearer token and stores the actor in context
func RequireAuth(secret []byte) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(401).JSON(fiber.Map{"error": "Missing authorization token"})
		}

		// Extract token from "Bearer <token>"
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			return c.Status(401).JSON(fiber.Map{"error": "Invalid authorization format. Use: Bearer <token>"})
		}

		claims, err := jwt.ValidateToken(secret, parts[1])
		if err != nil {
			return c.Status(401).JSON(fiber.Map{"error": "Invalid or expired token"})
		}
		role, err := model.ParseRole(claims.Role)
		if err != nil {
			return c.Status(401).JSON(fiber.Map{"error": "Token carries an unknown role"})
		}

		c.Locals(ActorKey, model.Actor{ID: claims.ActorID, Name: claims.Name, Role: role})
		return c.Next()
	}
}

// RequireRole lets the request through only for the listed roles
func RequireRole(roles ...model.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, ok := ActorFrom(c)
		if !ok {
			return c.Status(401).JSON(fiber.Map{"error": "Missing authorization token"})
		}
		if !actor.Is(roles...) {
			names := make([]string, len(roles))
			for i, r := range roles {
				names[i] = string(r)
			}
			return c.Status(403).JSON(fiber.Map{
				"error": "Forbidden: requires one of " + strings.Join(names, ", ") + " roles",
			})
		}
		return c.Next()
	}
}

// ActorFrom returns the actor set by RequireAuth.
func ActorFrom(c *fiber.Ctx) (model.Actor, bool) {
	actor, ok := c.Locals(ActorKey).(model.Actor)
	return actor, ok
}
