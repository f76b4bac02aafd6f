package semester

import (
	"acadhub/internal/common/api"
	"acadhub/internal/config"
	"acadhub/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type WindowApi struct {
	controller *WindowController
	roles      middleware.RoleChecker
	config     *config.Config
}

func NewWindowApi(controller *WindowController, roles middleware.RoleChecker, config *config.Config) api.Route {
	return &WindowApi{
		controller: controller,
		roles:      roles,
		config:     config,
	}
}

func (h *WindowApi) Setup(app *fiber.App) {
	group := app.Group("/api/windows", middleware.AuthMiddleware(h.config.SkipAuth))

	group.Get("/", h.controller.List)

	coordinator := middleware.RequireCoordinator(h.roles, h.config.SkipAuth)
	group.Post("/", coordinator, h.controller.Upsert)
	group.Put("/:id/close", coordinator, h.controller.Close)
	group.Put("/:id/reopen", coordinator, h.controller.Reopen)
}
