package report

import (
	"fmt"
	"strconv"
	"time"

	common_api "acadhub/internal/common/api"
	"acadhub/internal/common/models"

	"github.com/gofiber/fiber/v2"
)

type ReportController struct {
	service ReportService
}

func NewReportController(service ReportService) *ReportController {
	return &ReportController{service: service}
}

// ExportAllocations godoc
func (c *ReportController) ExportAllocations(ctx *fiber.Ctx) error {
	projectType := models.ProjectType(ctx.Query("type"))
	if !projectType.Valid() {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid project type"})
	}
	year, _ := strconv.Atoi(ctx.Query("year", strconv.Itoa(time.Now().Year())))

	data, filename, err := c.service.ExportAllocations(ctx.Context(), projectType, year)
	if err != nil {
		return common_api.Error(ctx, err)
	}

	ctx.Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	ctx.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	return ctx.Send(data)
}
