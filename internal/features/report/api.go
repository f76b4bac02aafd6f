package report

import (
	"acadhub/internal/common/api"
	"acadhub/internal/config"
	"acadhub/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type ReportApi struct {
	controller *ReportController
	roles      middleware.RoleChecker
	config     *config.Config
}

func NewReportApi(controller *ReportController, roles middleware.RoleChecker, config *config.Config) api.Route {
	return &ReportApi{
		controller: controller,
		roles:      roles,
		config:     config,
	}
}

func (h *ReportApi) Setup(app *fiber.App) {
	group := app.Group("/api/reports",
		middleware.AuthMiddleware(h.config.SkipAuth),
		middleware.RequireCoordinator(h.roles, h.config.SkipAuth),
	)

	group.Get("/allocations", h.controller.ExportAllocations)
}
