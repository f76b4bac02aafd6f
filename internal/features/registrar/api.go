package registrar

import (
	common_api "acadhub/internal/common/api"
	"acadhub/internal/config"
	"acadhub/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

// RegistrarApi exposes a manual sync trigger alongside the scheduled runs.
type RegistrarApi struct {
	service SyncService
	roles   middleware.RoleChecker
	config  *config.Config
}

func NewRegistrarApi(service SyncService, roles middleware.RoleChecker, config *config.Config) common_api.Route {
	return &RegistrarApi{
		service: service,
		roles:   roles,
		config:  config,
	}
}

func (h *RegistrarApi) Setup(app *fiber.App) {
	group := app.Group("/api/registrar",
		middleware.AuthMiddleware(h.config.SkipAuth),
		middleware.RequireCoordinator(h.roles, h.config.SkipAuth),
	)

	group.Post("/sync", func(ctx *fiber.Ctx) error {
		if !h.service.Enabled() {
			return ctx.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "registrar sync is not configured"})
		}
		if err := h.service.RunSync(ctx.Context()); err != nil {
			return common_api.Error(ctx, err)
		}
		return ctx.JSON(fiber.Map{"status": "success"})
	})
}
