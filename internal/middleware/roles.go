package middleware

import (
	"context"

	"acadhub/pkg/utils"

	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RoleChecker is implemented by the role resolver. Middleware asks it on
// every request instead of trusting a role string baked into the token,
// because coordinator and leadership status change while tokens are live.
type RoleChecker interface {
	IsCoordinator(ctx context.Context, userID primitive.ObjectID) (bool, error)
}

// RequireCoordinator admits coordinators and admins only.
func RequireCoordinator(checker RoleChecker, skipAuth bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if skipAuth {
			return c.Next()
		}

		claims, ok := c.Locals(utils.UserClaimsKey).(*utils.UserClaims)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Unauthorized",
			})
		}

		userID, err := primitive.ObjectIDFromHex(claims.UserID)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid user ID",
			})
		}

		isCoordinator, err := checker.IsCoordinator(c.Context(), userID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Internal Server Error",
			})
		}

		if !isCoordinator {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "Forbidden: coordinator access required",
			})
		}

		return c.Next()
	}
}

// RequireBaseRole gates a route on the stored base role (student, faculty,
// admin). Finer-grained standing (leader, coordinator, evaluator) is checked
// by the services through the role resolver.
func RequireBaseRole(skipAuth bool, roles ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if skipAuth {
			return c.Next()
		}

		claims, ok := c.Locals(utils.UserClaimsKey).(*utils.UserClaims)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Unauthorized",
			})
		}

		for _, r := range roles {
			if claims.Role == r {
				return c.Next()
			}
		}

		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Forbidden: insufficient role",
		})
	}
}
