package role

import (
	"context"

	"acadhub/internal/apperr"
	"acadhub/internal/features/group"
	"acadhub/internal/features/user"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// EffectiveRole is computed from live state on every call, never stored.
// A user's base role (student/faculty/admin) lives on the user document;
// the effective role layers leadership, coordinatorship and evaluator
// standing on top of it.
// RoleCoordinator is a computed role, never stored on the user document.
const RoleCoordinator user.Role = "coordinator"

type EffectiveRole struct {
	UserID   primitive.ObjectID `json:"user_id"`
	BaseRole user.Role          `json:"base_role"`

	// Role is what the authorization layer consumes: coordinator when the
	// coordinator flag holds, else the base role.
	Role user.Role `json:"effective_role"`

	IsGroupLeader       bool `json:"is_group_leader"`
	IsCoordinator       bool `json:"is_coordinator"`
	IsExternalEvaluator bool `json:"is_external_evaluator"`
}

type RoleService interface {
	GetEffectiveRole(ctx context.Context, userID primitive.ObjectID) (*EffectiveRole, error)
	IsGroupLeader(ctx context.Context, userID primitive.ObjectID) (bool, error)
	IsCoordinator(ctx context.Context, userID primitive.ObjectID) (bool, error)
	IsExternalEvaluator(ctx context.Context, userID primitive.ObjectID) (bool, error)
	AssignExternalEvaluator(ctx context.Context, groupID, facultyID primitive.ObjectID) error
	RemoveExternalEvaluator(ctx context.Context, groupID primitive.ObjectID) error
}

type RoleServiceImpl struct {
	userRepo  user.UserRepository
	groupRepo group.GroupRepository
	logger    *zap.Logger
}

func NewRoleService(userRepo user.UserRepository, groupRepo group.GroupRepository, logger *zap.Logger) RoleService {
	return &RoleServiceImpl{userRepo: userRepo, groupRepo: groupRepo, logger: logger}
}

func (s *RoleServiceImpl) GetEffectiveRole(ctx context.Context, userID primitive.ObjectID) (*EffectiveRole, error) {
	u, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, apperr.NotFound("user not found")
	}

	leads, err := s.groupRepo.LeadsAnyActive(ctx, userID)
	if err != nil {
		return nil, err
	}
	evaluates, err := s.groupRepo.IsEvaluatorOnAny(ctx, userID)
	if err != nil {
		return nil, err
	}

	coordinates := u.IsCoordinator || u.Role == user.RoleAdmin
	effective := u.Role
	if coordinates {
		effective = RoleCoordinator
	}

	return &EffectiveRole{
		UserID:              userID,
		BaseRole:            u.Role,
		Role:                effective,
		IsGroupLeader:       leads,
		IsCoordinator:       coordinates,
		IsExternalEvaluator: evaluates || u.IsExternalEvaluator,
	}, nil
}

// IsGroupLeader reflects current group state: deleting or dissolving the
// group strips the leadership immediately.
func (s *RoleServiceImpl) IsGroupLeader(ctx context.Context, userID primitive.ObjectID) (bool, error) {
	return s.groupRepo.LeadsAnyActive(ctx, userID)
}

func (s *RoleServiceImpl) IsCoordinator(ctx context.Context, userID primitive.ObjectID) (bool, error) {
	u, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return false, err
	}
	if u == nil {
		return false, nil
	}
	return u.IsCoordinator || u.Role == user.RoleAdmin, nil
}

func (s *RoleServiceImpl) IsExternalEvaluator(ctx context.Context, userID primitive.ObjectID) (bool, error) {
	u, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return false, err
	}
	if u != nil && u.IsExternalEvaluator {
		return true, nil
	}
	return s.groupRepo.IsEvaluatorOnAny(ctx, userID)
}

// AssignExternalEvaluator attaches a faculty member as evaluator on an
// approved group. The evaluator must not be the group's own supervisor.
func (s *RoleServiceImpl) AssignExternalEvaluator(ctx context.Context, groupID, facultyID primitive.ObjectID) error {
	g, err := s.groupRepo.FindByID(ctx, groupID)
	if err != nil {
		return err
	}
	if g == nil {
		return apperr.NotFound("group not found")
	}
	if g.Status != group.StatusApproved && g.Status != group.StatusFrozen {
		return apperr.State("evaluator can only be assigned after allocation")
	}

	u, err := s.userRepo.FindByID(ctx, facultyID)
	if err != nil {
		return err
	}
	if u == nil {
		return apperr.NotFound("faculty not found")
	}
	if u.Role != user.RoleFaculty {
		return apperr.Validation("external evaluator must be a faculty member")
	}
	if g.AssignedFacultyID != nil && *g.AssignedFacultyID == facultyID {
		return apperr.Conflict("supervising faculty cannot evaluate their own group")
	}

	if err := s.groupRepo.SetExternalEvaluator(ctx, groupID, &facultyID); err != nil {
		return err
	}
	if err := s.userRepo.SetExternalEvaluator(ctx, facultyID, true); err != nil {
		s.logger.Warn("evaluator flag sync failed",
			zap.String("facultyID", facultyID.Hex()), zap.Error(err))
	}
	return nil
}

func (s *RoleServiceImpl) RemoveExternalEvaluator(ctx context.Context, groupID primitive.ObjectID) error {
	g, err := s.groupRepo.FindByID(ctx, groupID)
	if err != nil {
		return err
	}
	if g == nil {
		return apperr.NotFound("group not found")
	}
	if g.ExternalEvaluatorID == nil {
		return apperr.State("group has no external evaluator")
	}
	evaluatorID := *g.ExternalEvaluatorID

	if err := s.groupRepo.SetExternalEvaluator(ctx, groupID, nil); err != nil {
		return err
	}

	// Keep the user flag only while the faculty still evaluates some group.
	still, err := s.groupRepo.IsEvaluatorOnAny(ctx, evaluatorID)
	if err != nil {
		return err
	}
	if !still {
		if err := s.userRepo.SetExternalEvaluator(ctx, evaluatorID, false); err != nil {
			s.logger.Warn("evaluator flag sync failed",
				zap.String("facultyID", evaluatorID.Hex()), zap.Error(err))
		}
	}
	return nil
}
