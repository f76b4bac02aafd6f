package eligibility

import (
	common_api "acadhub/internal/common/api"

	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type RuleController struct {
	service RuleService
}

func NewRuleController(service RuleService) *RuleController {
	return &RuleController{service: service}
}

// Upsert godoc
func (c *RuleController) Upsert(ctx *fiber.Ctx) error {
	var r Rule
	if err := ctx.BodyParser(&r); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	out, err := c.service.UpsertRule(ctx.Context(), &r)
	if err != nil {
		return common_api.Error(ctx, err)
	}
	return ctx.JSON(out)
}

// List godoc
func (c *RuleController) List(ctx *fiber.Ctx) error {
	rules, err := c.service.ListRules(ctx.Context())
	if err != nil {
		return common_api.Error(ctx, err)
	}
	return ctx.JSON(fiber.Map{"data": rules})
}

// SetEnabled godoc
func (c *RuleController) SetEnabled(ctx *fiber.Ctx) error {
	id, err := primitive.ObjectIDFromHex(ctx.Params("id"))
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid rule ID"})
	}

	var body struct {
		Enabled bool `json:"enabled"`
	}
	if err := ctx.BodyParser(&body); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	if err := c.service.SetEnabled(ctx.Context(), id, body.Enabled); err != nil {
		return common_api.Error(ctx, err)
	}
	return ctx.JSON(fiber.Map{"status": "success"})
}
