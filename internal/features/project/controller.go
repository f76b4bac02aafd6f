package project

import (
	"strconv"

	common_api "acadhub/internal/common/api"
	"acadhub/internal/common/models"

	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ProjectController struct {
	service ProjectService
}

func NewProjectController(service ProjectService) *ProjectController {
	return &ProjectController{service: service}
}

// Create godoc
func (c *ProjectController) Create(ctx *fiber.Ctx) error {
	actorID, err := common_api.ActorID(ctx)
	if err != nil {
		return err
	}

	var input CreateInput
	if err := ctx.BodyParser(&input); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	p, err := c.service.CreateProject(ctx.Context(), actorID, input)
	if err != nil {
		return common_api.Error(ctx, err)
	}
	return ctx.Status(fiber.StatusCreated).JSON(p)
}

// Publish godoc
func (c *ProjectController) Publish(ctx *fiber.Ctx) error {
	actorID, err := common_api.ActorID(ctx)
	if err != nil {
		return err
	}

	projectID, err := primitive.ObjectIDFromHex(ctx.Params("id"))
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid project ID"})
	}

	if err := c.service.PublishProject(ctx.Context(), actorID, projectID); err != nil {
		return common_api.Error(ctx, err)
	}
	return ctx.JSON(fiber.Map{"status": "success"})
}

// Get godoc
func (c *ProjectController) Get(ctx *fiber.Ctx) error {
	projectID, err := primitive.ObjectIDFromHex(ctx.Params("id"))
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid project ID"})
	}

	p, err := c.service.GetProject(ctx.Context(), projectID)
	if err != nil {
		return common_api.Error(ctx, err)
	}
	return ctx.JSON(p)
}

// ListMine godoc
func (c *ProjectController) ListMine(ctx *fiber.Ctx) error {
	actorID, err := common_api.ActorID(ctx)
	if err != nil {
		return err
	}

	projects, err := c.service.ListFacultyProjects(ctx.Context(), actorID)
	if err != nil {
		return common_api.Error(ctx, err)
	}
	return ctx.JSON(fiber.Map{"data": projects})
}

// ListPublished godoc
func (c *ProjectController) ListPublished(ctx *fiber.Ctx) error {
	projectType := models.ProjectType(ctx.Query("type"))
	year, _ := strconv.Atoi(ctx.Query("year", "0"))

	projects, err := c.service.ListPublished(ctx.Context(), projectType, year)
	if err != nil {
		return common_api.Error(ctx, err)
	}
	return ctx.JSON(fiber.Map{"data": projects})
}
