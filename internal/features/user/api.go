package user

import (
	"acadhub/internal/common/api"
	"acadhub/internal/config"
	"acadhub/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type UserApi struct {
	controller *UserController
	config     *config.Config
}

func NewUserApi(controller *UserController, config *config.Config) api.Route {
	return &UserApi{
		controller: controller,
		config:     config,
	}
}

func (h *UserApi) Setup(app *fiber.App) {
	auth := app.Group("/api/auth")
	auth.Post("/register", h.controller.Register)
	auth.Post("/login", h.controller.Login)

	users := app.Group("/api/users", middleware.AuthMiddleware(h.config.SkipAuth))
	users.Get("/me", h.controller.Me)
	users.Put("/:id/coordinator", middleware.RequireBaseRole(h.config.SkipAuth, "admin"), h.controller.SetCoordinator)
}
