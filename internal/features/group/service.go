package group

import (
	"context"

	"acadhub/internal/apperr"
	"acadhub/internal/common/models"
	"acadhub/internal/database"
	"acadhub/internal/features/user"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// SoloApplicationCleaner removes a student's pending solo applications when
// they join a group and inherit its application path. Implemented by the
// application repository; injected as an interface to keep the dependency
// direction group ← application.
type SoloApplicationCleaner interface {
	DeleteSoloPending(ctx context.Context, studentID primitive.ObjectID, projectType models.ProjectType) error
}

type GroupService interface {
	CreateGroup(ctx context.Context, leaderID primitive.ObjectID, projectType models.ProjectType, year int) (*Group, error)
	JoinGroup(ctx context.Context, userID primitive.ObjectID, code string, year int, projectType models.ProjectType) (*Group, error)
	LeaveGroup(ctx context.Context, userID, groupID primitive.ObjectID) (*Group, error)
	ResetGroupCode(ctx context.Context, leaderID, groupID primitive.ObjectID) (*Group, error)
	DeleteGroup(ctx context.Context, leaderID, groupID primitive.ObjectID) error
	UpdateDraftProjects(ctx context.Context, leaderID, groupID primitive.ObjectID, projectIDs []primitive.ObjectID) (*Group, error)
	FreezeGroup(ctx context.Context, groupID primitive.ObjectID) error
	GetGroupByID(ctx context.Context, id primitive.ObjectID) (*Group, error)
	GetGroupByCode(ctx context.Context, code string, year int, projectType models.ProjectType) (*Group, error)
	GetUserGroup(ctx context.Context, userID primitive.ObjectID, projectType models.ProjectType) (*Group, error)
	GetUserGroups(ctx context.Context, userID primitive.ObjectID) ([]Group, error)
}

type GroupServiceImpl struct {
	repo     GroupRepository
	userRepo user.UserRepository
	soloApps SoloApplicationCleaner
	codes    *CodeGenerator
	tx       database.TxRunner
	logger   *zap.Logger
}

func NewGroupService(
	repo GroupRepository,
	userRepo user.UserRepository,
	soloApps SoloApplicationCleaner,
	tx database.TxRunner,
	logger *zap.Logger,
) GroupService {
	return &GroupServiceImpl{
		repo:     repo,
		userRepo: userRepo,
		soloApps: soloApps,
		codes:    NewCodeGenerator(repo),
		tx:       tx,
		logger:   logger,
	}
}

func (s *GroupServiceImpl) CreateGroup(ctx context.Context, leaderID primitive.ObjectID, projectType models.ProjectType, year int) (*Group, error) {
	if !projectType.Valid() {
		return nil, apperr.Validation("unknown project type %q", projectType)
	}
	if year <= 0 {
		return nil, apperr.Validation("year is required")
	}

	u, err := s.userRepo.FindByID(ctx, leaderID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, apperr.NotFound("user not found")
	}

	// The unique index on (code, year, type) decides races the pre-check in
	// GenerateUnique cannot see; a duplicate key just means pick a new code.
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code, err := s.codes.GenerateUnique(ctx, year, projectType)
		if err != nil {
			return nil, err
		}

		g := &Group{
			Code:     code,
			Type:     projectType,
			Year:     year,
			Status:   StatusForming,
			LeaderID: leaderID,
			Members:  []primitive.ObjectID{leaderID},
		}

		// The one-active-group-per-(user, type) guards run inside the
		// transaction: when a concurrent commit to the leader's user
		// document forces a retry, the callback re-validates them against
		// the new snapshot.
		err = s.tx.Run(ctx, func(ctx context.Context) error {
			if leading, err := s.repo.FindActiveByLeader(ctx, leaderID, projectType, year); err != nil {
				return err
			} else if leading != nil {
				return apperr.Conflict("user already leads a %s group this year", projectType)
			}
			if member, err := s.repo.FindActiveByMember(ctx, leaderID, projectType); err != nil {
				return err
			} else if member != nil {
				return apperr.Conflict("user is already a member of a %s group", projectType)
			}
			if err := s.repo.Insert(ctx, g); err != nil {
				return err
			}
			return s.userRepo.SetCurrentGroup(ctx, leaderID, &g.ID)
		})
		if err != nil {
			if mongo.IsDuplicateKeyError(err) {
				s.logger.Warn("group code collision, retrying", zap.String("code", code))
				continue
			}
			return nil, err
		}
		return g, nil
	}

	return nil, apperr.Exhausted("could not allocate a unique group code after %d attempts", maxCodeAttempts)
}

func (s *GroupServiceImpl) JoinGroup(ctx context.Context, userID primitive.ObjectID, code string, year int, projectType models.ProjectType) (*Group, error) {
	if !projectType.Valid() {
		return nil, apperr.Validation("unknown project type %q", projectType)
	}
	if code == "" {
		return nil, apperr.Validation("group code is required")
	}

	u, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, apperr.NotFound("user not found")
	}

	// Everything from the membership guards onward sits inside the
	// transaction: both racing joins write the same user document, so the
	// loser's retry re-runs the guards and sees the committed membership.
	var g *Group
	err = s.tx.Run(ctx, func(ctx context.Context) error {
		if leads, err := s.repo.LeadsAnyActive(ctx, userID); err != nil {
			return err
		} else if leads {
			return apperr.Conflict("group leaders cannot join another group")
		}
		if member, err := s.repo.FindActiveByMember(ctx, userID, projectType); err != nil {
			return err
		} else if member != nil {
			return apperr.Conflict("user is already a member of a %s group", projectType)
		}

		g, err = s.repo.FindJoinableByCode(ctx, code, year, projectType)
		if err != nil {
			return err
		}
		if g == nil {
			return apperr.NotFound("no open group matches this code")
		}
		if len(g.Members) >= MaxMembers {
			return apperr.Conflict("group is full")
		}

		ok, err := s.repo.AddMember(ctx, g.ID, userID)
		if err != nil {
			return err
		}
		if !ok {
			// Lost a race: the group filled up or changed state since the read.
			return apperr.Conflict("group is full")
		}
		if err := s.repo.ReconcileSizeStatus(ctx, g.ID); err != nil {
			return err
		}
		if err := s.userRepo.SetCurrentGroup(ctx, userID, &g.ID); err != nil {
			return err
		}
		// Joining a group supersedes any solo applications of the same type.
		return s.soloApps.DeleteSoloPending(ctx, userID, projectType)
	})
	if err != nil {
		return nil, err
	}

	return s.repo.FindByID(ctx, g.ID)
}

func (s *GroupServiceImpl) LeaveGroup(ctx context.Context, userID, groupID primitive.ObjectID) (*Group, error) {
	g, err := s.repo.FindByID(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if g == nil {
		return nil, apperr.NotFound("group not found")
	}
	if !isJoinable(g.Status) {
		return nil, apperr.State("group can no longer be left in status %q", g.Status)
	}
	if !g.HasMember(userID) {
		return nil, apperr.Authorization("user is not a member of this group")
	}

	// Leader departure dissolves the group entirely.
	if g.LeaderID == userID {
		err = s.tx.Run(ctx, func(ctx context.Context) error {
			if err := s.userRepo.ClearCurrentGroupMany(ctx, g.Members); err != nil {
				return err
			}
			return s.repo.Delete(ctx, g.ID)
		})
		if err != nil {
			return nil, err
		}
		return nil, nil
	}

	err = s.tx.Run(ctx, func(ctx context.Context) error {
		if err := s.repo.RemoveMember(ctx, g.ID, userID); err != nil {
			return err
		}
		if err := s.repo.ReconcileSizeStatus(ctx, g.ID); err != nil {
			return err
		}
		return s.userRepo.SetCurrentGroup(ctx, userID, nil)
	})
	if err != nil {
		return nil, err
	}

	return s.repo.FindByID(ctx, g.ID)
}

func (s *GroupServiceImpl) ResetGroupCode(ctx context.Context, leaderID, groupID primitive.ObjectID) (*Group, error) {
	g, err := s.repo.FindByID(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if g == nil {
		return nil, apperr.NotFound("group not found")
	}
	if g.LeaderID != leaderID {
		return nil, apperr.Authorization("only the group leader may reset the code")
	}
	if !isJoinable(g.Status) {
		return nil, apperr.State("code cannot be reset in status %q", g.Status)
	}

	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code, err := s.codes.GenerateUnique(ctx, g.Year, g.Type)
		if err != nil {
			return nil, err
		}

		if err := s.repo.UpdateCode(ctx, g.ID, code); err != nil {
			if mongo.IsDuplicateKeyError(err) {
				continue
			}
			return nil, err
		}
		return s.repo.FindByID(ctx, g.ID)
	}

	return nil, apperr.Exhausted("could not allocate a unique group code after %d attempts", maxCodeAttempts)
}

func (s *GroupServiceImpl) DeleteGroup(ctx context.Context, leaderID, groupID primitive.ObjectID) error {
	g, err := s.repo.FindByID(ctx, groupID)
	if err != nil {
		return err
	}
	if g == nil {
		return apperr.NotFound("group not found")
	}
	if g.LeaderID != leaderID {
		return apperr.Authorization("only the group leader may delete the group")
	}
	if !isJoinable(g.Status) {
		return apperr.State("group cannot be deleted in status %q", g.Status)
	}

	return s.tx.Run(ctx, func(ctx context.Context) error {
		if err := s.userRepo.ClearCurrentGroupMany(ctx, g.Members); err != nil {
			return err
		}
		return s.repo.Delete(ctx, g.ID)
	})
}

func (s *GroupServiceImpl) UpdateDraftProjects(ctx context.Context, leaderID, groupID primitive.ObjectID, projectIDs []primitive.ObjectID) (*Group, error) {
	g, err := s.repo.FindByID(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if g == nil {
		return nil, apperr.NotFound("group not found")
	}
	if g.LeaderID != leaderID {
		return nil, apperr.Authorization("only the group leader may edit the draft list")
	}
	if g.Status == StatusApproved || g.Status == StatusFrozen {
		return nil, apperr.State("draft list cannot change in status %q", g.Status)
	}

	if err := s.repo.SetDraftProjects(ctx, g.ID, projectIDs); err != nil {
		return nil, err
	}
	return s.repo.FindByID(ctx, g.ID)
}

func (s *GroupServiceImpl) FreezeGroup(ctx context.Context, groupID primitive.ObjectID) error {
	g, err := s.repo.FindByID(ctx, groupID)
	if err != nil {
		return err
	}
	if g == nil {
		return apperr.NotFound("group not found")
	}
	return s.repo.ForceStatus(ctx, groupID, StatusFrozen)
}

func (s *GroupServiceImpl) GetGroupByID(ctx context.Context, id primitive.ObjectID) (*Group, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *GroupServiceImpl) GetGroupByCode(ctx context.Context, code string, year int, projectType models.ProjectType) (*Group, error) {
	return s.repo.FindByCode(ctx, code, year, projectType)
}

func (s *GroupServiceImpl) GetUserGroup(ctx context.Context, userID primitive.ObjectID, projectType models.ProjectType) (*Group, error) {
	return s.repo.FindActiveByMember(ctx, userID, projectType)
}

func (s *GroupServiceImpl) GetUserGroups(ctx context.Context, userID primitive.ObjectID) ([]Group, error) {
	return s.repo.FindAllActiveByMember(ctx, userID)
}

func isJoinable(status Status) bool {
	for _, s := range JoinableStatuses {
		if s == status {
			return true
		}
	}
	return false
}
