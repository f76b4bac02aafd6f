package role

import (
	"context"
	"testing"

	"acadhub/internal/apperr"
	"acadhub/internal/common/models"
	"acadhub/internal/features/group"
	"acadhub/internal/features/user"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type mockUserRepo struct {
	users map[primitive.ObjectID]*user.User
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: map[primitive.ObjectID]*user.User{}}
}

func (m *mockUserRepo) put(u *user.User) *user.User {
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	m.users[u.ID] = u
	return u
}

func (m *mockUserRepo) Create(ctx context.Context, u *user.User) error { m.put(u); return nil }

func (m *mockUserRepo) FindByID(ctx context.Context, id primitive.ObjectID) (*user.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*user.User, error) {
	return nil, nil
}

func (m *mockUserRepo) FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]user.User, error) {
	return nil, nil
}

func (m *mockUserRepo) SetCurrentGroup(ctx context.Context, userID primitive.ObjectID, groupID *primitive.ObjectID) error {
	return nil
}

func (m *mockUserRepo) ClearCurrentGroupMany(ctx context.Context, userIDs []primitive.ObjectID) error {
	return nil
}

func (m *mockUserRepo) ApplyAllocation(ctx context.Context, userIDs []primitive.ObjectID, projectID, facultyID primitive.ObjectID, groupID *primitive.ObjectID) error {
	return nil
}

func (m *mockUserRepo) SetCoordinator(ctx context.Context, userID primitive.ObjectID, isCoordinator bool) error {
	if u, ok := m.users[userID]; ok {
		u.IsCoordinator = isCoordinator
	}
	return nil
}

func (m *mockUserRepo) SetExternalEvaluator(ctx context.Context, userID primitive.ObjectID, flag bool) error {
	if u, ok := m.users[userID]; ok {
		u.IsExternalEvaluator = flag
	}
	return nil
}

func (m *mockUserRepo) EnsureIndexes(ctx context.Context) error { return nil }

// mockGroupIndex only exercises the lookups the role service needs; the
// rest of the interface is inert.
type mockGroupIndex struct {
	groups map[primitive.ObjectID]*group.Group

	EvaluatorSet map[primitive.ObjectID]*primitive.ObjectID
}

func newMockGroupIndex() *mockGroupIndex {
	return &mockGroupIndex{
		groups:       map[primitive.ObjectID]*group.Group{},
		EvaluatorSet: map[primitive.ObjectID]*primitive.ObjectID{},
	}
}

func (m *mockGroupIndex) put(g *group.Group) *group.Group {
	if g.ID.IsZero() {
		g.ID = primitive.NewObjectID()
	}
	m.groups[g.ID] = g
	return g
}

func (m *mockGroupIndex) Insert(ctx context.Context, g *group.Group) error { m.put(g); return nil }

func (m *mockGroupIndex) FindByID(ctx context.Context, id primitive.ObjectID) (*group.Group, error) {
	g, ok := m.groups[id]
	if !ok {
		return nil, nil
	}
	cp := *g
	return &cp, nil
}

func (m *mockGroupIndex) FindByCode(ctx context.Context, code string, year int, projectType models.ProjectType) (*group.Group, error) {
	return nil, nil
}

func (m *mockGroupIndex) FindJoinableByCode(ctx context.Context, code string, year int, projectType models.ProjectType) (*group.Group, error) {
	return nil, nil
}

func (m *mockGroupIndex) FindActiveByMember(ctx context.Context, userID primitive.ObjectID, projectType models.ProjectType) (*group.Group, error) {
	return nil, nil
}

func (m *mockGroupIndex) FindAllActiveByMember(ctx context.Context, userID primitive.ObjectID) ([]group.Group, error) {
	return nil, nil
}

func (m *mockGroupIndex) FindActiveByLeader(ctx context.Context, userID primitive.ObjectID, projectType models.ProjectType, year int) (*group.Group, error) {
	return nil, nil
}

func (m *mockGroupIndex) LeadsAnyActive(ctx context.Context, userID primitive.ObjectID) (bool, error) {
	for _, g := range m.groups {
		if g.LeaderID == userID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockGroupIndex) IsEvaluatorOnAny(ctx context.Context, userID primitive.ObjectID) (bool, error) {
	for _, g := range m.groups {
		if g.ExternalEvaluatorID != nil && *g.ExternalEvaluatorID == userID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockGroupIndex) AddMember(ctx context.Context, groupID, userID primitive.ObjectID) (bool, error) {
	return false, nil
}

func (m *mockGroupIndex) RemoveMember(ctx context.Context, groupID, userID primitive.ObjectID) error {
	return nil
}

func (m *mockGroupIndex) ReconcileSizeStatus(ctx context.Context, groupID primitive.ObjectID) error {
	return nil
}

func (m *mockGroupIndex) SetStatus(ctx context.Context, groupID primitive.ObjectID, from, to group.Status) (bool, error) {
	return false, nil
}

func (m *mockGroupIndex) ForceStatus(ctx context.Context, groupID primitive.ObjectID, to group.Status) error {
	return nil
}

func (m *mockGroupIndex) UpdateCode(ctx context.Context, groupID primitive.ObjectID, code string) error {
	return nil
}

func (m *mockGroupIndex) SetDraftProjects(ctx context.Context, groupID primitive.ObjectID, projectIDs []primitive.ObjectID) error {
	return nil
}

func (m *mockGroupIndex) ApplyAllocation(ctx context.Context, groupID, projectID, facultyID primitive.ObjectID, groupNumber int) error {
	return nil
}

func (m *mockGroupIndex) SetExternalEvaluator(ctx context.Context, groupID primitive.ObjectID, facultyID *primitive.ObjectID) error {
	m.EvaluatorSet[groupID] = facultyID
	if g, ok := m.groups[groupID]; ok {
		g.ExternalEvaluatorID = facultyID
	}
	return nil
}

func (m *mockGroupIndex) Delete(ctx context.Context, groupID primitive.ObjectID) error {
	delete(m.groups, groupID)
	return nil
}

func (m *mockGroupIndex) CodeExists(ctx context.Context, code string, year int, projectType models.ProjectType) (bool, error) {
	return false, nil
}

func (m *mockGroupIndex) NextGroupNumber(ctx context.Context, projectType models.ProjectType, year int) (int, error) {
	return 1, nil
}

func (m *mockGroupIndex) EnsureIndexes(ctx context.Context) error { return nil }

func newService() (*RoleServiceImpl, *mockUserRepo, *mockGroupIndex) {
	users := newMockUserRepo()
	groups := newMockGroupIndex()
	svc := &RoleServiceImpl{userRepo: users, groupRepo: groups, logger: zap.NewNop()}
	return svc, users, groups
}

func TestEffectiveRoleLeadershipFollowsGroupState(t *testing.T) {
	svc, users, groups := newService()
	u := users.put(&user.User{Name: "Lead", Role: user.RoleStudent})
	g := groups.put(&group.Group{LeaderID: u.ID, Status: group.StatusForming, Members: []primitive.ObjectID{u.ID}})

	r, err := svc.GetEffectiveRole(context.Background(), u.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !r.IsGroupLeader {
		t.Errorf("expected group leader while the group exists")
	}

	groups.Delete(context.Background(), g.ID)

	r, err = svc.GetEffectiveRole(context.Background(), u.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.IsGroupLeader {
		t.Errorf("leadership must vanish with the group, never persisted")
	}
}

func TestEffectiveRoleCoordinatorFromFlagOrAdmin(t *testing.T) {
	svc, users, _ := newService()
	flag := users.put(&user.User{Name: "Coord", Role: user.RoleFaculty, IsCoordinator: true})
	admin := users.put(&user.User{Name: "Admin", Role: user.RoleAdmin})
	plain := users.put(&user.User{Name: "Plain", Role: user.RoleFaculty})

	for _, tc := range []struct {
		id   primitive.ObjectID
		want bool
	}{
		{flag.ID, true},
		{admin.ID, true},
		{plain.ID, false},
	} {
		r, err := svc.GetEffectiveRole(context.Background(), tc.id)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if r.IsCoordinator != tc.want {
			t.Errorf("user %s: expected coordinator=%v, got %v", tc.id.Hex(), tc.want, r.IsCoordinator)
		}
	}
}

func TestAssignExternalEvaluator(t *testing.T) {
	svc, users, groups := newService()
	supervisor := users.put(&user.User{Name: "Supervisor", Role: user.RoleFaculty})
	evaluator := users.put(&user.User{Name: "Evaluator", Role: user.RoleFaculty})
	g := groups.put(&group.Group{
		Status:            group.StatusApproved,
		AssignedFacultyID: &supervisor.ID,
	})

	if err := svc.AssignExternalEvaluator(context.Background(), g.ID, evaluator.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := groups.EvaluatorSet[g.ID]; got == nil || *got != evaluator.ID {
		t.Errorf("expected evaluator recorded on group")
	}
	if !users.users[evaluator.ID].IsExternalEvaluator {
		t.Errorf("expected user flag synced")
	}

	ok, err := svc.IsExternalEvaluator(context.Background(), evaluator.ID)
	if err != nil || !ok {
		t.Errorf("expected evaluator standing, got ok=%v err=%v", ok, err)
	}
}

func TestAssignExternalEvaluatorRejectsSupervisor(t *testing.T) {
	svc, users, groups := newService()
	supervisor := users.put(&user.User{Name: "Supervisor", Role: user.RoleFaculty})
	g := groups.put(&group.Group{
		Status:            group.StatusApproved,
		AssignedFacultyID: &supervisor.ID,
	})

	err := svc.AssignExternalEvaluator(context.Background(), g.ID, supervisor.ID)
	if !apperr.IsKind(err, apperr.KindConflict) {
		t.Errorf("expected conflict for supervising faculty, got %v", err)
	}
}

func TestAssignExternalEvaluatorRequiresAllocatedGroup(t *testing.T) {
	svc, users, groups := newService()
	evaluator := users.put(&user.User{Name: "Evaluator", Role: user.RoleFaculty})
	g := groups.put(&group.Group{Status: group.StatusForming})

	err := svc.AssignExternalEvaluator(context.Background(), g.ID, evaluator.ID)
	if !apperr.IsKind(err, apperr.KindState) {
		t.Errorf("expected state error before allocation, got %v", err)
	}
}

func TestRemoveExternalEvaluatorClearsFlagWhenLastGroup(t *testing.T) {
	svc, users, groups := newService()
	evaluator := users.put(&user.User{Name: "Evaluator", Role: user.RoleFaculty})
	supervisor := users.put(&user.User{Name: "Supervisor", Role: user.RoleFaculty})
	g := groups.put(&group.Group{Status: group.StatusApproved, AssignedFacultyID: &supervisor.ID})

	if err := svc.AssignExternalEvaluator(context.Background(), g.ID, evaluator.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := svc.RemoveExternalEvaluator(context.Background(), g.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if users.users[evaluator.ID].IsExternalEvaluator {
		t.Errorf("expected user flag cleared once no group remains")
	}
	ok, err := svc.IsExternalEvaluator(context.Background(), evaluator.ID)
	if err != nil || ok {
		t.Errorf("expected evaluator standing revoked, got ok=%v err=%v", ok, err)
	}
}

func TestEffectiveRoleValueCoordinatorOverridesBase(t *testing.T) {
	svc, users, _ := newService()
	coord := users.put(&user.User{Name: "Coord", Role: user.RoleFaculty, IsCoordinator: true})
	admin := users.put(&user.User{Name: "Admin", Role: user.RoleAdmin})
	student := users.put(&user.User{Name: "Plain", Role: user.RoleStudent})

	for _, tc := range []struct {
		id   primitive.ObjectID
		want user.Role
	}{
		{coord.ID, RoleCoordinator},
		{admin.ID, RoleCoordinator},
		{student.ID, user.RoleStudent},
	} {
		r, err := svc.GetEffectiveRole(context.Background(), tc.id)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if r.Role != tc.want {
			t.Errorf("user %s: expected effective role %q, got %q", tc.id.Hex(), tc.want, r.Role)
		}
	}
}
