package allocation

import (
	"acadhub/internal/common/api"
	"acadhub/internal/config"
	"acadhub/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

// AllocationApi registers the group, application and role endpoints that
// together form the allocation surface.
type AllocationApi struct {
	groups       *GroupController
	applications *ApplicationController
	roles        *RoleController
	checker      middleware.RoleChecker
	config       *config.Config
}

func NewAllocationApi(
	groups *GroupController,
	applications *ApplicationController,
	roles *RoleController,
	checker middleware.RoleChecker,
	config *config.Config,
) api.Route {
	return &AllocationApi{
		groups:       groups,
		applications: applications,
		roles:        roles,
		checker:      checker,
		config:       config,
	}
}

func (h *AllocationApi) Setup(app *fiber.App) {
	auth := middleware.AuthMiddleware(h.config.SkipAuth)
	coordinator := middleware.RequireCoordinator(h.checker, h.config.SkipAuth)
	faculty := middleware.RequireBaseRole(h.config.SkipAuth, "faculty", "admin")

	groups := app.Group("/api/groups", auth)
	groups.Post("/", h.groups.Create)
	groups.Post("/join", h.groups.Join)
	groups.Get("/mine", h.groups.Mine)
	groups.Get("/code/:code", h.groups.GetByCode)
	groups.Get("/:id", h.groups.Get)
	groups.Post("/:id/leave", h.groups.Leave)
	groups.Put("/:id/code", h.groups.ResetCode)
	groups.Put("/:id/drafts", h.groups.UpdateDrafts)
	groups.Put("/:id/freeze", coordinator, h.groups.Freeze)
	groups.Put("/:id/evaluator", coordinator, h.roles.AssignEvaluator)
	groups.Delete("/:id/evaluator", coordinator, h.roles.RemoveEvaluator)
	groups.Delete("/:id", h.groups.Delete)

	apps := app.Group("/api/applications", auth)
	apps.Post("/", h.applications.Submit)
	apps.Get("/mine", h.applications.Mine)
	apps.Get("/faculty", faculty, h.applications.ForFaculty)
	apps.Get("/", coordinator, h.applications.All)
	apps.Get("/:id", h.applications.Get)
	apps.Put("/:id/accept", faculty, h.applications.Accept)
	apps.Put("/:id/reject", faculty, h.applications.Reject)
	apps.Delete("/:id", h.applications.Revoke)
	apps.Put("/:id/unfreeze", coordinator, h.applications.Unfreeze)

	roles := app.Group("/api/roles", auth)
	roles.Get("/me", h.roles.Effective)
}
