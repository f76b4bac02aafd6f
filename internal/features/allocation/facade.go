package allocation

import (
	"context"
	"fmt"

	"acadhub/internal/common/models"
	"acadhub/internal/features/application"
	"acadhub/internal/features/group"
	"acadhub/internal/features/notification"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Facade composes the group and application services with the outbound
// notification side effects. Notifications fire after the state change is
// committed and never affect the caller's result.
type Facade struct {
	groups group.GroupService
	apps   application.ApplicationService
	notify notification.Dispatcher
	logger *zap.Logger
}

func NewFacade(
	groups group.GroupService,
	apps application.ApplicationService,
	notify notification.Dispatcher,
	logger *zap.Logger,
) *Facade {
	return &Facade{
		groups: groups,
		apps:   apps,
		notify: notify,
		logger: logger,
	}
}

func (f *Facade) JoinGroup(ctx context.Context, userID primitive.ObjectID, code string, year int, projectType models.ProjectType) (*group.Group, error) {
	g, err := f.groups.JoinGroup(ctx, userID, code, year, projectType)
	if err != nil {
		return nil, err
	}

	f.notify.Notify(ctx, g.LeaderID, notification.NotificationTypeInfo,
		"New group member",
		fmt.Sprintf("A student joined your %s group %s (%d/%d members).", g.Type, g.Code, len(g.Members), group.MaxMembers),
		"/groups/"+g.ID.Hex())
	return g, nil
}

func (f *Facade) AcceptApplication(ctx context.Context, applicationID, projectID, facultyID primitive.ObjectID) (*application.Application, error) {
	a, err := f.apps.Accept(ctx, applicationID, projectID, facultyID)
	if err != nil {
		return nil, err
	}

	recipients, err := f.applicants(ctx, a)
	if err != nil {
		f.logger.Warn("could not resolve applicants for notification",
			zap.String("applicationID", a.ID.Hex()), zap.Error(err))
		return a, nil
	}
	f.notify.NotifyMany(ctx, recipients, notification.NotificationTypeSuccess,
		"Application accepted",
		fmt.Sprintf("Your %s application was accepted. Other pending choices were withdrawn automatically.", a.Type),
		"/applications/"+a.ID.Hex())
	return a, nil
}

func (f *Facade) RejectApplication(ctx context.Context, applicationID, facultyID primitive.ObjectID, reason string) (*application.Application, error) {
	a, err := f.apps.Reject(ctx, applicationID, facultyID, reason)
	if err != nil {
		return nil, err
	}

	recipients, err := f.applicants(ctx, a)
	if err != nil {
		f.logger.Warn("could not resolve applicants for notification",
			zap.String("applicationID", a.ID.Hex()), zap.Error(err))
		return a, nil
	}
	f.notify.NotifyMany(ctx, recipients, notification.NotificationTypeWarning,
		"Application rejected",
		fmt.Sprintf("Your %s application was rejected: %s", a.Type, a.RejectionReason),
		"/applications/"+a.ID.Hex())
	return a, nil
}

// applicants resolves who should hear about a decision: every group member,
// or the solo student.
func (f *Facade) applicants(ctx context.Context, a *application.Application) ([]primitive.ObjectID, error) {
	if a.GroupID == nil {
		return []primitive.ObjectID{*a.StudentID}, nil
	}
	g, err := f.groups.GetGroupByID(ctx, *a.GroupID)
	if err != nil {
		return nil, err
	}
	if g == nil {
		return nil, nil
	}
	return g.Members, nil
}
