package semester

import (
	common_api "acadhub/internal/common/api"

	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type WindowController struct {
	service WindowService
}

func NewWindowController(service WindowService) *WindowController {
	return &WindowController{service: service}
}

// Upsert godoc
func (c *WindowController) Upsert(ctx *fiber.Ctx) error {
	var w Window
	if err := ctx.BodyParser(&w); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	out, err := c.service.UpsertWindow(ctx.Context(), &w)
	if err != nil {
		return common_api.Error(ctx, err)
	}
	return ctx.JSON(out)
}

// List godoc
func (c *WindowController) List(ctx *fiber.Ctx) error {
	windows, err := c.service.ListWindows(ctx.Context())
	if err != nil {
		return common_api.Error(ctx, err)
	}
	return ctx.JSON(fiber.Map{"data": windows})
}

// Close godoc
func (c *WindowController) Close(ctx *fiber.Ctx) error {
	id, err := primitive.ObjectIDFromHex(ctx.Params("id"))
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid window ID"})
	}
	if err := c.service.CloseWindow(ctx.Context(), id); err != nil {
		return common_api.Error(ctx, err)
	}
	return ctx.JSON(fiber.Map{"status": "success"})
}

// Reopen godoc
func (c *WindowController) Reopen(ctx *fiber.Ctx) error {
	id, err := primitive.ObjectIDFromHex(ctx.Params("id"))
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid window ID"})
	}
	if err := c.service.ReopenWindow(ctx.Context(), id); err != nil {
		return common_api.Error(ctx, err)
	}
	return ctx.JSON(fiber.Map{"status": "success"})
}
