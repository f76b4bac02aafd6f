package user

import (
	common_api "acadhub/internal/common/api"

	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type UserController struct {
	service UserService
}

func NewUserController(service UserService) *UserController {
	return &UserController{service: service}
}

// Register godoc
func (c *UserController) Register(ctx *fiber.Ctx) error {
	var input RegisterInput
	if err := ctx.BodyParser(&input); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	u, err := c.service.Register(ctx.Context(), input)
	if err != nil {
		return common_api.Error(ctx, err)
	}

	return ctx.Status(fiber.StatusCreated).JSON(u)
}

// Login godoc
func (c *UserController) Login(ctx *fiber.Ctx) error {
	var input struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := ctx.BodyParser(&input); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	token, u, err := c.service.Login(ctx.Context(), input.Email, input.Password)
	if err != nil {
		return common_api.Error(ctx, err)
	}

	return ctx.JSON(fiber.Map{"token": token, "user": u})
}

// Me godoc
func (c *UserController) Me(ctx *fiber.Ctx) error {
	actorID, err := common_api.ActorID(ctx)
	if err != nil {
		return err
	}

	u, err := c.service.GetByID(ctx.Context(), actorID)
	if err != nil {
		return common_api.Error(ctx, err)
	}
	return ctx.JSON(u)
}

// SetCoordinator godoc
func (c *UserController) SetCoordinator(ctx *fiber.Ctx) error {
	userID, err := primitive.ObjectIDFromHex(ctx.Params("id"))
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid user ID"})
	}

	var input struct {
		IsCoordinator bool `json:"is_coordinator"`
	}
	if err := ctx.BodyParser(&input); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	if err := c.service.SetCoordinator(ctx.Context(), userID, input.IsCoordinator); err != nil {
		return common_api.Error(ctx, err)
	}
	return ctx.JSON(fiber.Map{"status": "success"})
}
