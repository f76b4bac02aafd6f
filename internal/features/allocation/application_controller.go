package allocation

import (
	"strconv"

	common_api "acadhub/internal/common/api"
	"acadhub/internal/common/models"
	"acadhub/internal/features/application"

	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ApplicationController struct {
	apps   application.ApplicationService
	facade *Facade
}

func NewApplicationController(apps application.ApplicationService, facade *Facade) *ApplicationController {
	return &ApplicationController{apps: apps, facade: facade}
}

// Submit godoc
func (c *ApplicationController) Submit(ctx *fiber.Ctx) error {
	actorID, err := common_api.ActorID(ctx)
	if err != nil {
		return err
	}

	var input application.SubmitInput
	if err := ctx.BodyParser(&input); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	apps, err := c.apps.Submit(ctx.Context(), actorID, input)
	if err != nil {
		return common_api.Error(ctx, err)
	}
	return ctx.Status(fiber.StatusCreated).JSON(fiber.Map{"data": apps})
}

type decisionRequest struct {
	ProjectID primitive.ObjectID `json:"project_id"`
	Reason    string             `json:"reason"`
}

// Accept godoc
func (c *ApplicationController) Accept(ctx *fiber.Ctx) error {
	actorID, err := common_api.ActorID(ctx)
	if err != nil {
		return err
	}

	applicationID, err := primitive.ObjectIDFromHex(ctx.Params("id"))
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid application ID"})
	}

	var req decisionRequest
	if err := ctx.BodyParser(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	a, err := c.facade.AcceptApplication(ctx.Context(), applicationID, req.ProjectID, actorID)
	if err != nil {
		return common_api.Error(ctx, err)
	}
	return ctx.JSON(a)
}

// Reject godoc
func (c *ApplicationController) Reject(ctx *fiber.Ctx) error {
	actorID, err := common_api.ActorID(ctx)
	if err != nil {
		return err
	}

	applicationID, err := primitive.ObjectIDFromHex(ctx.Params("id"))
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid application ID"})
	}

	var req decisionRequest
	if err := ctx.BodyParser(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	a, err := c.facade.RejectApplication(ctx.Context(), applicationID, actorID, req.Reason)
	if err != nil {
		return common_api.Error(ctx, err)
	}
	return ctx.JSON(a)
}

// Revoke godoc
func (c *ApplicationController) Revoke(ctx *fiber.Ctx) error {
	actorID, err := common_api.ActorID(ctx)
	if err != nil {
		return err
	}

	applicationID, err := primitive.ObjectIDFromHex(ctx.Params("id"))
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid application ID"})
	}

	if err := c.apps.Revoke(ctx.Context(), applicationID, actorID); err != nil {
		return common_api.Error(ctx, err)
	}
	return ctx.JSON(fiber.Map{"status": "success", "message": "application revoked"})
}

// Unfreeze godoc
func (c *ApplicationController) Unfreeze(ctx *fiber.Ctx) error {
	applicationID, err := primitive.ObjectIDFromHex(ctx.Params("id"))
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid application ID"})
	}

	a, err := c.apps.Unfreeze(ctx.Context(), applicationID)
	if err != nil {
		return common_api.Error(ctx, err)
	}
	return ctx.JSON(a)
}

// Get godoc
func (c *ApplicationController) Get(ctx *fiber.Ctx) error {
	applicationID, err := primitive.ObjectIDFromHex(ctx.Params("id"))
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid application ID"})
	}

	a, err := c.apps.GetApplication(ctx.Context(), applicationID)
	if err != nil {
		return common_api.Error(ctx, err)
	}
	if a == nil {
		return ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Application not found"})
	}
	return ctx.JSON(a)
}

// Mine lists the caller's own applications, solo or via their group.
func (c *ApplicationController) Mine(ctx *fiber.Ctx) error {
	actorID, err := common_api.ActorID(ctx)
	if err != nil {
		return err
	}

	who := application.Applicant{StudentID: &actorID}
	if groupIDHex := ctx.Query("group_id"); groupIDHex != "" {
		groupID, err := primitive.ObjectIDFromHex(groupIDHex)
		if err != nil {
			return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid group ID"})
		}
		who = application.Applicant{GroupID: &groupID}
	}

	apps, err := c.apps.GetApplicantApplications(ctx.Context(), who)
	if err != nil {
		return common_api.Error(ctx, err)
	}
	return ctx.JSON(fiber.Map{"data": apps})
}

// ForFaculty godoc
func (c *ApplicationController) ForFaculty(ctx *fiber.Ctx) error {
	actorID, err := common_api.ActorID(ctx)
	if err != nil {
		return err
	}

	apps, err := c.apps.GetFacultyApplications(ctx.Context(), actorID)
	if err != nil {
		return common_api.Error(ctx, err)
	}
	return ctx.JSON(fiber.Map{"data": apps})
}

// All godoc
func (c *ApplicationController) All(ctx *fiber.Ctx) error {
	filter := application.ListFilter{
		Type:     models.ProjectType(ctx.Query("type")),
		Status:   application.Status(ctx.Query("status")),
		Semester: ctx.Query("semester"),
	}
	if yearStr := ctx.Query("year"); yearStr != "" {
		filter.Year, _ = strconv.Atoi(yearStr)
	}

	apps, err := c.apps.GetAllApplications(ctx.Context(), filter)
	if err != nil {
		return common_api.Error(ctx, err)
	}
	return ctx.JSON(fiber.Map{"data": apps})
}
