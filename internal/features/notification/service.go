package notification

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Dispatcher is the fire-and-forget side of notifications. Allocation code
// calls it after the transactional work is committed; failures are logged,
// never propagated back into the caller's result.
type Dispatcher interface {
	Notify(ctx context.Context, userID primitive.ObjectID, typ NotificationType, title, message, link string)
	NotifyMany(ctx context.Context, userIDs []primitive.ObjectID, typ NotificationType, title, message, link string)
}

type NotificationService interface {
	Dispatcher
	GetUserNotifications(ctx context.Context, userID primitive.ObjectID, page, limit int64) ([]Notification, int64, error)
	GetUnreadCount(ctx context.Context, userID primitive.ObjectID) (int64, error)
	MarkAsRead(ctx context.Context, id string, userID primitive.ObjectID) error
	MarkAllAsRead(ctx context.Context, userID primitive.ObjectID) error
}

type NotificationServiceImpl struct {
	repo   NotificationRepository
	hub    *Hub
	logger *zap.Logger
}

func NewNotificationService(repo NotificationRepository, hub *Hub, logger *zap.Logger) NotificationService {
	return &NotificationServiceImpl{repo: repo, hub: hub, logger: logger}
}

func (s *NotificationServiceImpl) Notify(ctx context.Context, userID primitive.ObjectID, typ NotificationType, title, message, link string) {
	n := &Notification{
		UserID:  userID,
		Title:   title,
		Message: message,
		Type:    typ,
		Link:    link,
	}
	if err := s.repo.Insert(ctx, n); err != nil {
		s.logger.Error("notification store failed",
			zap.String("userID", userID.Hex()),
			zap.String("title", title),
			zap.Error(err))
		return
	}
	s.hub.Push(userID.Hex(), n)
}

func (s *NotificationServiceImpl) NotifyMany(ctx context.Context, userIDs []primitive.ObjectID, typ NotificationType, title, message, link string) {
	for _, id := range userIDs {
		s.Notify(ctx, id, typ, title, message, link)
	}
}

func (s *NotificationServiceImpl) GetUserNotifications(ctx context.Context, userID primitive.ObjectID, page, limit int64) ([]Notification, int64, error) {
	return s.repo.FindByUser(ctx, userID, page, limit)
}

func (s *NotificationServiceImpl) GetUnreadCount(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	return s.repo.CountUnread(ctx, userID)
}

func (s *NotificationServiceImpl) MarkAsRead(ctx context.Context, id string, userID primitive.ObjectID) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return err
	}
	return s.repo.MarkRead(ctx, oid, userID)
}

func (s *NotificationServiceImpl) MarkAllAsRead(ctx context.Context, userID primitive.ObjectID) error {
	return s.repo.MarkAllRead(ctx, userID)
}
