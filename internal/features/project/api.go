package project

import (
	"acadhub/internal/common/api"
	"acadhub/internal/config"
	"acadhub/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type ProjectApi struct {
	controller *ProjectController
	config     *config.Config
}

func NewProjectApi(controller *ProjectController, config *config.Config) api.Route {
	return &ProjectApi{
		controller: controller,
		config:     config,
	}
}

func (h *ProjectApi) Setup(app *fiber.App) {
	group := app.Group("/api/projects", middleware.AuthMiddleware(h.config.SkipAuth))

	group.Get("/published", h.controller.ListPublished)
	group.Get("/mine", middleware.RequireBaseRole(h.config.SkipAuth, "faculty", "admin"), h.controller.ListMine)
	group.Get("/:id", h.controller.Get)
	group.Post("/", middleware.RequireBaseRole(h.config.SkipAuth, "faculty", "admin"), h.controller.Create)
	group.Put("/:id/publish", middleware.RequireBaseRole(h.config.SkipAuth, "faculty", "admin"), h.controller.Publish)
}
