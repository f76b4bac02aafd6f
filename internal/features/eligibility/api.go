package eligibility

import (
	"acadhub/internal/common/api"
	"acadhub/internal/config"
	"acadhub/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type RuleApi struct {
	controller *RuleController
	roles      middleware.RoleChecker
	config     *config.Config
}

func NewRuleApi(controller *RuleController, roles middleware.RoleChecker, config *config.Config) api.Route {
	return &RuleApi{
		controller: controller,
		roles:      roles,
		config:     config,
	}
}

func (h *RuleApi) Setup(app *fiber.App) {
	group := app.Group("/api/eligibility",
		middleware.AuthMiddleware(h.config.SkipAuth),
		middleware.RequireCoordinator(h.roles, h.config.SkipAuth),
	)

	group.Get("/", h.controller.List)
	group.Post("/", h.controller.Upsert)
	group.Put("/:id/enabled", h.controller.SetEnabled)
}
