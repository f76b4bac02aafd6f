package api

import (
	"acadhub/internal/apperr"
	"acadhub/pkg/utils"

	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Error writes a domain error with the status its kind maps to.
func Error(c *fiber.Ctx, err error) error {
	return c.Status(apperr.StatusOf(err)).JSON(fiber.Map{
		"error": err.Error(),
	})
}

// ActorID extracts the authenticated user's object id from the request
// context populated by the auth middleware.
func ActorID(c *fiber.Ctx) (primitive.ObjectID, error) {
	claims, ok := c.Locals(utils.UserClaimsKey).(*utils.UserClaims)
	if !ok {
		return primitive.NilObjectID, fiber.NewError(fiber.StatusUnauthorized, "Unauthorized")
	}

	id, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil {
		return primitive.NilObjectID, fiber.NewError(fiber.StatusUnauthorized, "Invalid user ID")
	}
	return id, nil
}

// BaseRole returns the stored base role carried in the JWT claims.
func BaseRole(c *fiber.Ctx) string {
	claims, ok := c.Locals(utils.UserClaimsKey).(*utils.UserClaims)
	if !ok {
		return ""
	}
	return claims.Role
}
