package system

import (
	"time"

	"acadhub/internal/common/api"
	"acadhub/internal/config"

	"github.com/gofiber/fiber/v2"
)

type HealthApi struct {
	config *config.Config
}

func NewHealthApi(cfg *config.Config) api.Route {
	return &HealthApi{config: cfg}
}

func (h *HealthApi) Setup(app *fiber.App) {
	app.Get("/api/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":      "ok",
			"environment": h.config.Environment,
			"time":        time.Now().UTC(),
		})
	})
}
