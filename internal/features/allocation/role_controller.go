package allocation

import (
	common_api "acadhub/internal/common/api"
	"acadhub/internal/features/role"

	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type RoleController struct {
	roles role.RoleService
}

func NewRoleController(roles role.RoleService) *RoleController {
	return &RoleController{roles: roles}
}

// Effective returns the caller's computed role set.
func (c *RoleController) Effective(ctx *fiber.Ctx) error {
	actorID, err := common_api.ActorID(ctx)
	if err != nil {
		return err
	}

	r, err := c.roles.GetEffectiveRole(ctx.Context(), actorID)
	if err != nil {
		return common_api.Error(ctx, err)
	}
	return ctx.JSON(r)
}

type evaluatorRequest struct {
	FacultyID primitive.ObjectID `json:"faculty_id"`
}

// AssignEvaluator godoc
func (c *RoleController) AssignEvaluator(ctx *fiber.Ctx) error {
	groupID, err := primitive.ObjectIDFromHex(ctx.Params("id"))
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid group ID"})
	}

	var req evaluatorRequest
	if err := ctx.BodyParser(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	if err := c.roles.AssignExternalEvaluator(ctx.Context(), groupID, req.FacultyID); err != nil {
		return common_api.Error(ctx, err)
	}
	return ctx.JSON(fiber.Map{"status": "success"})
}

// RemoveEvaluator godoc
func (c *RoleController) RemoveEvaluator(ctx *fiber.Ctx) error {
	groupID, err := primitive.ObjectIDFromHex(ctx.Params("id"))
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid group ID"})
	}

	if err := c.roles.RemoveExternalEvaluator(ctx.Context(), groupID); err != nil {
		return common_api.Error(ctx, err)
	}
	return ctx.JSON(fiber.Map{"status": "success"})
}
