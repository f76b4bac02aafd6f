package notification

import (
	"strconv"

	"acadhub/internal/common/api"
	"acadhub/pkg/utils"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

type NotificationController struct {
	service NotificationService
	hub     *Hub
}

func NewNotificationController(service NotificationService, hub *Hub) *NotificationController {
	return &NotificationController{service: service, hub: hub}
}

// List godoc
func (c *NotificationController) List(ctx *fiber.Ctx) error {
	userID, err := api.ActorID(ctx)
	if err != nil {
		return err
	}

	page, _ := strconv.ParseInt(ctx.Query("page", "1"), 10, 64)
	limit, _ := strconv.ParseInt(ctx.Query("limit", "10"), 10, 64)

	notifications, total, err := c.service.GetUserNotifications(ctx.Context(), userID, page, limit)
	if err != nil {
		return api.Error(ctx, err)
	}

	return ctx.JSON(fiber.Map{
		"data":  notifications,
		"total": total,
		"page":  page,
		"limit": limit,
	})
}

// GetUnreadCount godoc
func (c *NotificationController) GetUnreadCount(ctx *fiber.Ctx) error {
	userID, err := api.ActorID(ctx)
	if err != nil {
		return err
	}

	count, err := c.service.GetUnreadCount(ctx.Context(), userID)
	if err != nil {
		return api.Error(ctx, err)
	}
	return ctx.JSON(fiber.Map{"count": count})
}

// MarkAsRead godoc
func (c *NotificationController) MarkAsRead(ctx *fiber.Ctx) error {
	userID, err := api.ActorID(ctx)
	if err != nil {
		return err
	}

	if err := c.service.MarkAsRead(ctx.Context(), ctx.Params("id"), userID); err != nil {
		return api.Error(ctx, err)
	}
	return ctx.JSON(fiber.Map{"status": "success"})
}

// MarkAllAsRead godoc
func (c *NotificationController) MarkAllAsRead(ctx *fiber.Ctx) error {
	userID, err := api.ActorID(ctx)
	if err != nil {
		return err
	}

	if err := c.service.MarkAllAsRead(ctx.Context(), userID); err != nil {
		return api.Error(ctx, err)
	}
	return ctx.JSON(fiber.Map{"status": "success"})
}

// HandleWebSocket keeps the connection registered for pushes until the
// client goes away. The token is validated upfront because the websocket
// upgrade bypasses the HTTP auth middleware.
func (c *NotificationController) HandleWebSocket(conn *websocket.Conn) {
	token := conn.Query("token")
	claims, err := utils.ValidateToken(token)
	if err != nil {
		_ = conn.WriteJSON(fiber.Map{"error": "Unauthorized"})
		_ = conn.Close()
		return
	}

	c.hub.Register(claims.UserID, conn)
	defer c.hub.Unregister(claims.UserID, conn)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}
