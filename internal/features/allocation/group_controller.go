package allocation

import (
	"strconv"
	"time"

	common_api "acadhub/internal/common/api"
	"acadhub/internal/common/models"
	"acadhub/internal/features/group"

	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type GroupController struct {
	groups group.GroupService
	facade *Facade
}

func NewGroupController(groups group.GroupService, facade *Facade) *GroupController {
	return &GroupController{groups: groups, facade: facade}
}

type createGroupRequest struct {
	Type models.ProjectType `json:"project_type"`
	Year int                `json:"year"`
}

// Create godoc
func (c *GroupController) Create(ctx *fiber.Ctx) error {
	actorID, err := common_api.ActorID(ctx)
	if err != nil {
		return err
	}

	var req createGroupRequest
	if err := ctx.BodyParser(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if req.Year == 0 {
		req.Year = time.Now().Year()
	}

	g, err := c.groups.CreateGroup(ctx.Context(), actorID, req.Type, req.Year)
	if err != nil {
		return common_api.Error(ctx, err)
	}
	return ctx.Status(fiber.StatusCreated).JSON(g)
}

type joinGroupRequest struct {
	Code string             `json:"code"`
	Type models.ProjectType `json:"project_type"`
	Year int                `json:"year"`
}

// Join godoc
func (c *GroupController) Join(ctx *fiber.Ctx) error {
	actorID, err := common_api.ActorID(ctx)
	if err != nil {
		return err
	}

	var req joinGroupRequest
	if err := ctx.BodyParser(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if req.Year == 0 {
		req.Year = time.Now().Year()
	}

	g, err := c.facade.JoinGroup(ctx.Context(), actorID, req.Code, req.Year, req.Type)
	if err != nil {
		return common_api.Error(ctx, err)
	}
	return ctx.JSON(g)
}

// Leave godoc
func (c *GroupController) Leave(ctx *fiber.Ctx) error {
	actorID, err := common_api.ActorID(ctx)
	if err != nil {
		return err
	}

	groupID, err := primitive.ObjectIDFromHex(ctx.Params("id"))
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid group ID"})
	}

	g, err := c.groups.LeaveGroup(ctx.Context(), actorID, groupID)
	if err != nil {
		return common_api.Error(ctx, err)
	}
	if g == nil {
		// leader left, the group was dissolved
		return ctx.JSON(fiber.Map{"status": "success", "dissolved": true})
	}
	return ctx.JSON(g)
}

// ResetCode godoc
func (c *GroupController) ResetCode(ctx *fiber.Ctx) error {
	actorID, err := common_api.ActorID(ctx)
	if err != nil {
		return err
	}

	groupID, err := primitive.ObjectIDFromHex(ctx.Params("id"))
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid group ID"})
	}

	g, err := c.groups.ResetGroupCode(ctx.Context(), actorID, groupID)
	if err != nil {
		return common_api.Error(ctx, err)
	}
	return ctx.JSON(g)
}

// Delete godoc
func (c *GroupController) Delete(ctx *fiber.Ctx) error {
	actorID, err := common_api.ActorID(ctx)
	if err != nil {
		return err
	}

	groupID, err := primitive.ObjectIDFromHex(ctx.Params("id"))
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid group ID"})
	}

	if err := c.groups.DeleteGroup(ctx.Context(), actorID, groupID); err != nil {
		return common_api.Error(ctx, err)
	}
	return ctx.JSON(fiber.Map{"status": "success"})
}

type draftProjectsRequest struct {
	ProjectIDs []primitive.ObjectID `json:"project_ids"`
}

// UpdateDrafts godoc
func (c *GroupController) UpdateDrafts(ctx *fiber.Ctx) error {
	actorID, err := common_api.ActorID(ctx)
	if err != nil {
		return err
	}

	groupID, err := primitive.ObjectIDFromHex(ctx.Params("id"))
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid group ID"})
	}

	var req draftProjectsRequest
	if err := ctx.BodyParser(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	g, err := c.groups.UpdateDraftProjects(ctx.Context(), actorID, groupID, req.ProjectIDs)
	if err != nil {
		return common_api.Error(ctx, err)
	}
	return ctx.JSON(g)
}

// Freeze godoc
func (c *GroupController) Freeze(ctx *fiber.Ctx) error {
	groupID, err := primitive.ObjectIDFromHex(ctx.Params("id"))
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid group ID"})
	}

	if err := c.groups.FreezeGroup(ctx.Context(), groupID); err != nil {
		return common_api.Error(ctx, err)
	}
	return ctx.JSON(fiber.Map{"status": "success"})
}

// Get godoc
func (c *GroupController) Get(ctx *fiber.Ctx) error {
	groupID, err := primitive.ObjectIDFromHex(ctx.Params("id"))
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid group ID"})
	}

	g, err := c.groups.GetGroupByID(ctx.Context(), groupID)
	if err != nil {
		return common_api.Error(ctx, err)
	}
	if g == nil {
		return ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Group not found"})
	}
	return ctx.JSON(g)
}

// GetByCode godoc
func (c *GroupController) GetByCode(ctx *fiber.Ctx) error {
	code := ctx.Params("code")
	projectType := models.ProjectType(ctx.Query("type"))
	year, _ := strconv.Atoi(ctx.Query("year", strconv.Itoa(time.Now().Year())))

	g, err := c.groups.GetGroupByCode(ctx.Context(), code, year, projectType)
	if err != nil {
		return common_api.Error(ctx, err)
	}
	if g == nil {
		return ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Group not found"})
	}
	return ctx.JSON(g)
}

// Mine godoc
func (c *GroupController) Mine(ctx *fiber.Ctx) error {
	actorID, err := common_api.ActorID(ctx)
	if err != nil {
		return err
	}

	if projectType := models.ProjectType(ctx.Query("type")); projectType != "" {
		g, err := c.groups.GetUserGroup(ctx.Context(), actorID, projectType)
		if err != nil {
			return common_api.Error(ctx, err)
		}
		if g == nil {
			return ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Group not found"})
		}
		return ctx.JSON(g)
	}

	groups, err := c.groups.GetUserGroups(ctx.Context(), actorID)
	if err != nil {
		return common_api.Error(ctx, err)
	}
	return ctx.JSON(fiber.Map{"data": groups})
}
