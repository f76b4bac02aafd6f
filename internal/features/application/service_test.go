package application

import (
	"context"
	"testing"
	"time"

	"acadhub/internal/apperr"
	"acadhub/internal/common/models"
	"acadhub/internal/features/group"
	"acadhub/internal/features/project"
	"acadhub/internal/features/user"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// fakeTx runs the callback inline; transactional rollback is not simulated,
// the tests assert ordering and error propagation instead.
type fakeTx struct{}

func (fakeTx) Run(ctx context.Context, fn func(ctx context.Context) error) error { return fn(ctx) }

type openWindow struct{ open bool }

func (w openWindow) SubmissionOpen(ctx context.Context, projectType models.ProjectType, year int, semester string) (bool, error) {
	return w.open, nil
}

type allowAll struct{ err error }

func (a allowAll) CheckEligibility(ctx context.Context, projectType models.ProjectType, year int, studentIDs []primitive.ObjectID) error {
	return a.err
}

type mockAppRepo struct {
	apps map[primitive.ObjectID]*Application

	InsertedBatches int
	SiblingReason   string
}

func newMockAppRepo() *mockAppRepo {
	return &mockAppRepo{apps: map[primitive.ObjectID]*Application{}}
}

func (m *mockAppRepo) put(a *Application) *Application {
	if a.ID.IsZero() {
		a.ID = primitive.NewObjectID()
	}
	m.apps[a.ID] = a
	return a
}

func (m *mockAppRepo) InsertMany(ctx context.Context, apps []*Application) error {
	m.InsertedBatches++
	for _, a := range apps {
		m.put(a)
	}
	return nil
}

func (m *mockAppRepo) FindByID(ctx context.Context, id primitive.ObjectID) (*Application, error) {
	a, ok := m.apps[id]
	if !ok {
		return nil, nil
	}
	cp := *a
	return &cp, nil
}

func sameApplicant(a *Application, who Applicant) bool {
	if who.GroupID != nil {
		return a.GroupID != nil && *a.GroupID == *who.GroupID
	}
	return a.StudentID != nil && *a.StudentID == *who.StudentID
}

func (m *mockAppRepo) FindByApplicant(ctx context.Context, who Applicant) ([]Application, error) {
	out := []Application{}
	for _, a := range m.apps {
		if sameApplicant(a, who) {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (m *mockAppRepo) FindLiveByApplicant(ctx context.Context, who Applicant) ([]Application, error) {
	out := []Application{}
	for _, a := range m.apps {
		if sameApplicant(a, who) && (a.Status == StatusPending || a.Status == StatusApproved) {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (m *mockAppRepo) FindApprovedByApplicant(ctx context.Context, who Applicant) (*Application, error) {
	for _, a := range m.apps {
		if sameApplicant(a, who) && a.Status == StatusApproved {
			cp := *a
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *mockAppRepo) FindByProjects(ctx context.Context, projectIDs []primitive.ObjectID) ([]Application, error) {
	out := []Application{}
	for _, a := range m.apps {
		for _, pid := range projectIDs {
			if a.ProjectID == pid {
				out = append(out, *a)
			}
		}
	}
	return out, nil
}

func (m *mockAppRepo) FindAll(ctx context.Context, filter ListFilter) ([]Application, error) {
	out := []Application{}
	for _, a := range m.apps {
		out = append(out, *a)
	}
	return out, nil
}

func (m *mockAppRepo) MarkApproved(ctx context.Context, id, reviewerID primitive.ObjectID) (bool, error) {
	a, ok := m.apps[id]
	if !ok || a.Status != StatusPending {
		return false, nil
	}
	a.Status = StatusApproved
	a.ReviewedBy = &reviewerID
	return true, nil
}

func (m *mockAppRepo) MarkRejected(ctx context.Context, id, reviewerID primitive.ObjectID, reason string) (bool, error) {
	a, ok := m.apps[id]
	if !ok || a.Status != StatusPending {
		return false, nil
	}
	a.Status = StatusRejected
	a.ReviewedBy = &reviewerID
	a.RejectionReason = reason
	return true, nil
}

func (m *mockAppRepo) RejectPendingSiblings(ctx context.Context, who Applicant, exceptID, reviewerID primitive.ObjectID, reason string) (int64, error) {
	m.SiblingReason = reason
	var n int64
	for _, a := range m.apps {
		if a.ID != exceptID && sameApplicant(a, who) && a.Status == StatusPending {
			a.Status = StatusRejected
			a.RejectionReason = reason
			n++
		}
	}
	return n, nil
}

func (m *mockAppRepo) DeleteIfPending(ctx context.Context, id primitive.ObjectID) (bool, error) {
	a, ok := m.apps[id]
	if !ok || a.Status != StatusPending {
		return false, nil
	}
	delete(m.apps, id)
	return true, nil
}

func (m *mockAppRepo) DeleteSoloPending(ctx context.Context, studentID primitive.ObjectID, projectType models.ProjectType) error {
	return nil
}

func (m *mockAppRepo) SetFrozen(ctx context.Context, id primitive.ObjectID, frozen bool) (bool, error) {
	a, ok := m.apps[id]
	if !ok {
		return false, nil
	}
	a.IsFrozen = frozen
	return true, nil
}

func (m *mockAppRepo) EnsureIndexes(ctx context.Context) error { return nil }

type mockGroupRepo struct {
	groups map[primitive.ObjectID]*group.Group

	NumberCalls int
	NextNumber  int
}

func newMockGroupRepo() *mockGroupRepo {
	return &mockGroupRepo{groups: map[primitive.ObjectID]*group.Group{}, NextNumber: 1}
}

func (m *mockGroupRepo) put(g *group.Group) *group.Group {
	if g.ID.IsZero() {
		g.ID = primitive.NewObjectID()
	}
	m.groups[g.ID] = g
	return g
}

func (m *mockGroupRepo) Insert(ctx context.Context, g *group.Group) error {
	m.put(g)
	return nil
}

func (m *mockGroupRepo) FindByID(ctx context.Context, id primitive.ObjectID) (*group.Group, error) {
	g, ok := m.groups[id]
	if !ok {
		return nil, nil
	}
	cp := *g
	return &cp, nil
}

func (m *mockGroupRepo) FindByCode(ctx context.Context, code string, year int, projectType models.ProjectType) (*group.Group, error) {
	return nil, nil
}

func (m *mockGroupRepo) FindJoinableByCode(ctx context.Context, code string, year int, projectType models.ProjectType) (*group.Group, error) {
	return nil, nil
}

func (m *mockGroupRepo) FindActiveByMember(ctx context.Context, userID primitive.ObjectID, projectType models.ProjectType) (*group.Group, error) {
	for _, g := range m.groups {
		if projectType != "" && g.Type != projectType {
			continue
		}
		for _, mem := range g.Members {
			if mem == userID {
				cp := *g
				return &cp, nil
			}
		}
	}
	return nil, nil
}

func (m *mockGroupRepo) FindAllActiveByMember(ctx context.Context, userID primitive.ObjectID) ([]group.Group, error) {
	return nil, nil
}

func (m *mockGroupRepo) FindActiveByLeader(ctx context.Context, userID primitive.ObjectID, projectType models.ProjectType, year int) (*group.Group, error) {
	return nil, nil
}

func (m *mockGroupRepo) LeadsAnyActive(ctx context.Context, userID primitive.ObjectID) (bool, error) {
	return false, nil
}

func (m *mockGroupRepo) IsEvaluatorOnAny(ctx context.Context, userID primitive.ObjectID) (bool, error) {
	return false, nil
}

func (m *mockGroupRepo) AddMember(ctx context.Context, groupID, userID primitive.ObjectID) (bool, error) {
	return false, nil
}

func (m *mockGroupRepo) RemoveMember(ctx context.Context, groupID, userID primitive.ObjectID) error {
	return nil
}

func (m *mockGroupRepo) ReconcileSizeStatus(ctx context.Context, groupID primitive.ObjectID) error {
	g, ok := m.groups[groupID]
	if !ok {
		return nil
	}
	if g.Status == group.StatusForming && len(g.Members) >= group.CompleteThreshold {
		g.Status = group.StatusComplete
	} else if g.Status == group.StatusComplete && len(g.Members) < group.CompleteThreshold {
		g.Status = group.StatusForming
	}
	return nil
}

func (m *mockGroupRepo) SetStatus(ctx context.Context, groupID primitive.ObjectID, from, to group.Status) (bool, error) {
	g, ok := m.groups[groupID]
	if !ok || g.Status != from {
		return false, nil
	}
	g.Status = to
	return true, nil
}

func (m *mockGroupRepo) ForceStatus(ctx context.Context, groupID primitive.ObjectID, to group.Status) error {
	if g, ok := m.groups[groupID]; ok {
		g.Status = to
	}
	return nil
}

func (m *mockGroupRepo) UpdateCode(ctx context.Context, groupID primitive.ObjectID, code string) error {
	return nil
}

func (m *mockGroupRepo) SetDraftProjects(ctx context.Context, groupID primitive.ObjectID, projectIDs []primitive.ObjectID) error {
	if g, ok := m.groups[groupID]; ok {
		g.DraftProjects = projectIDs
	}
	return nil
}

func (m *mockGroupRepo) ApplyAllocation(ctx context.Context, groupID, projectID, facultyID primitive.ObjectID, groupNumber int) error {
	g, ok := m.groups[groupID]
	if !ok {
		return nil
	}
	g.Status = group.StatusApproved
	g.AssignedProjectID = &projectID
	g.AssignedFacultyID = &facultyID
	g.GroupNumber = groupNumber
	return nil
}

func (m *mockGroupRepo) SetExternalEvaluator(ctx context.Context, groupID primitive.ObjectID, facultyID *primitive.ObjectID) error {
	return nil
}

func (m *mockGroupRepo) Delete(ctx context.Context, groupID primitive.ObjectID) error {
	delete(m.groups, groupID)
	return nil
}

func (m *mockGroupRepo) CodeExists(ctx context.Context, code string, year int, projectType models.ProjectType) (bool, error) {
	return false, nil
}

func (m *mockGroupRepo) NextGroupNumber(ctx context.Context, projectType models.ProjectType, year int) (int, error) {
	m.NumberCalls++
	n := m.NextNumber
	m.NextNumber++
	return n, nil
}

func (m *mockGroupRepo) EnsureIndexes(ctx context.Context) error { return nil }

type mockProjectRepo struct {
	projects map[primitive.ObjectID]*project.Project
}

func newMockProjectRepo() *mockProjectRepo {
	return &mockProjectRepo{projects: map[primitive.ObjectID]*project.Project{}}
}

func (m *mockProjectRepo) put(p *project.Project) *project.Project {
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	m.projects[p.ID] = p
	return p
}

func (m *mockProjectRepo) Create(ctx context.Context, p *project.Project) error {
	m.put(p)
	return nil
}

func (m *mockProjectRepo) FindByID(ctx context.Context, id primitive.ObjectID) (*project.Project, error) {
	p, ok := m.projects[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (m *mockProjectRepo) FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]project.Project, error) {
	out := []project.Project{}
	for _, id := range ids {
		if p, ok := m.projects[id]; ok {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (m *mockProjectRepo) FindByFaculty(ctx context.Context, facultyID primitive.ObjectID) ([]project.Project, error) {
	out := []project.Project{}
	for _, p := range m.projects {
		if p.FacultyID == facultyID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (m *mockProjectRepo) FindPublished(ctx context.Context, projectType models.ProjectType, year int) ([]project.Project, error) {
	return nil, nil
}

func (m *mockProjectRepo) SetStatus(ctx context.Context, id primitive.ObjectID, from, to project.Status) (bool, error) {
	p, ok := m.projects[id]
	if !ok || p.Status != from {
		return false, nil
	}
	p.Status = to
	return true, nil
}

func (m *mockProjectRepo) ConsumeCapacity(ctx context.Context, id, facultyID, assigneeID primitive.ObjectID) (bool, error) {
	p, ok := m.projects[id]
	if !ok || p.FacultyID != facultyID || p.Status != project.StatusPublished || p.AssignedCount >= p.Capacity {
		return false, nil
	}
	p.AssignedCount++
	p.AssignedTo = append(p.AssignedTo, assigneeID)
	return true, nil
}

func (m *mockProjectRepo) MarkAssignedIfFull(ctx context.Context, id primitive.ObjectID) error {
	p, ok := m.projects[id]
	if ok && p.Status == project.StatusPublished && p.AssignedCount >= p.Capacity {
		p.Status = project.StatusAssigned
	}
	return nil
}

type mockUserRepo struct {
	users map[primitive.ObjectID]*user.User

	AllocatedUsers   []primitive.ObjectID
	AllocatedGroupID *primitive.ObjectID
	AllocationCalls  int
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

func (m *mockUserRepo) Create(ctx context.Context, u *user.User) error {
	m.put(u)
	return nil
}

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
	out := []user.User{}
	for _, id := range ids {
		if u, ok := m.users[id]; ok {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (m *mockUserRepo) SetCurrentGroup(ctx context.Context, userID primitive.ObjectID, groupID *primitive.ObjectID) error {
	return nil
}

func (m *mockUserRepo) ClearCurrentGroupMany(ctx context.Context, userIDs []primitive.ObjectID) error {
	return nil
}

func (m *mockUserRepo) ApplyAllocation(ctx context.Context, userIDs []primitive.ObjectID, projectID, facultyID primitive.ObjectID, groupID *primitive.ObjectID) error {
	m.AllocationCalls++
	m.AllocatedUsers = userIDs
	m.AllocatedGroupID = groupID
	for _, id := range userIDs {
		if u, ok := m.users[id]; ok {
			u.AssignedProjectID = &projectID
			u.AssignedFacultyID = &facultyID
			u.CurrentGroupID = groupID
		}
	}
	return nil
}

func (m *mockUserRepo) SetCoordinator(ctx context.Context, userID primitive.ObjectID, isCoordinator bool) error {
	return nil
}

func (m *mockUserRepo) SetExternalEvaluator(ctx context.Context, userID primitive.ObjectID, flag bool) error {
	return nil
}

func (m *mockUserRepo) EnsureIndexes(ctx context.Context) error { return nil }

type fixture struct {
	apps     *mockAppRepo
	groups   *mockGroupRepo
	projects *mockProjectRepo
	users    *mockUserRepo
	svc      *ApplicationServiceImpl
}

func newFixture() *fixture {
	f := &fixture{
		apps:     newMockAppRepo(),
		groups:   newMockGroupRepo(),
		projects: newMockProjectRepo(),
		users:    newMockUserRepo(),
	}
	f.svc = &ApplicationServiceImpl{
		repo:        f.apps,
		groupRepo:   f.groups,
		projectRepo: f.projects,
		userRepo:    f.users,
		windows:     openWindow{open: true},
		eligibility: allowAll{},
		tx:          fakeTx{},
		logger:      zap.NewNop(),
	}
	return f
}

func (f *fixture) seedGroup(size int) (*group.Group, primitive.ObjectID) {
	leader := f.users.put(&user.User{Name: "Leader", Email: "leader@test.edu", Role: user.RoleStudent})
	members := []primitive.ObjectID{leader.ID}
	for i := 1; i < size; i++ {
		m := f.users.put(&user.User{Name: "Member", Email: "member@test.edu", Role: user.RoleStudent})
		members = append(members, m.ID)
	}
	status := group.StatusForming
	if size >= group.CompleteThreshold {
		status = group.StatusComplete
	}
	g := f.groups.put(&group.Group{
		Code:     "ABC234",
		Type:     models.ProjectTypeIDP,
		Year:     2026,
		Status:   status,
		LeaderID: leader.ID,
		Members:  members,
	})
	return g, leader.ID
}

func (f *fixture) seedProject(facultyID primitive.ObjectID, capacity int) *project.Project {
	return f.projects.put(&project.Project{
		Title:     "Test Project",
		Type:      models.ProjectTypeIDP,
		Status:    project.StatusPublished,
		Capacity:  capacity,
		FacultyID: facultyID,
		Year:      2026,
	})
}

func TestSubmitRequiresExactlyOneIdentity(t *testing.T) {
	f := newFixture()
	id := primitive.NewObjectID()

	_, err := f.svc.Submit(context.Background(), id, SubmitInput{Type: models.ProjectTypeIDP, ProjectIDs: []primitive.ObjectID{primitive.NewObjectID()}})
	if !apperr.IsKind(err, apperr.KindValidation) {
		t.Errorf("expected validation error with no identity, got %v", err)
	}

	_, err = f.svc.Submit(context.Background(), id, SubmitInput{
		StudentID:  &id,
		GroupID:    &id,
		Type:       models.ProjectTypeIDP,
		ProjectIDs: []primitive.ObjectID{primitive.NewObjectID()},
	})
	if !apperr.IsKind(err, apperr.KindValidation) {
		t.Errorf("expected validation error with both identities, got %v", err)
	}
}

func TestSubmitRejectsDuplicateChoices(t *testing.T) {
	f := newFixture()
	g, leaderID := f.seedGroup(2)
	p := f.seedProject(primitive.NewObjectID(), 1)

	_, err := f.svc.Submit(context.Background(), leaderID, SubmitInput{
		GroupID:    &g.ID,
		Type:       models.ProjectTypeIDP,
		ProjectIDs: []primitive.ObjectID{p.ID, p.ID},
	})
	if !apperr.IsKind(err, apperr.KindValidation) {
		t.Errorf("expected validation error for duplicate choices, got %v", err)
	}
}

func TestSubmitRejectsTooManyChoices(t *testing.T) {
	f := newFixture()
	g, leaderID := f.seedGroup(2)

	ids := make([]primitive.ObjectID, MaxChoices+1)
	for i := range ids {
		ids[i] = primitive.NewObjectID()
	}
	_, err := f.svc.Submit(context.Background(), leaderID, SubmitInput{
		GroupID:    &g.ID,
		Type:       models.ProjectTypeIDP,
		ProjectIDs: ids,
	})
	if !apperr.IsKind(err, apperr.KindValidation) {
		t.Errorf("expected validation error for %d choices, got %v", MaxChoices+1, err)
	}
}

func TestSubmitRequiresOpenWindow(t *testing.T) {
	f := newFixture()
	f.svc.windows = openWindow{open: false}
	g, leaderID := f.seedGroup(2)
	p := f.seedProject(primitive.NewObjectID(), 1)

	_, err := f.svc.Submit(context.Background(), leaderID, SubmitInput{
		GroupID:    &g.ID,
		Type:       models.ProjectTypeIDP,
		ProjectIDs: []primitive.ObjectID{p.ID},
	})
	if !apperr.IsKind(err, apperr.KindState) {
		t.Errorf("expected state error for closed window, got %v", err)
	}
}

func TestSubmitRequiresGroupLeader(t *testing.T) {
	f := newFixture()
	g, _ := f.seedGroup(2)
	p := f.seedProject(primitive.NewObjectID(), 1)

	_, err := f.svc.Submit(context.Background(), g.Members[1], SubmitInput{
		GroupID:    &g.ID,
		Type:       models.ProjectTypeIDP,
		ProjectIDs: []primitive.ObjectID{p.ID},
	})
	if !apperr.IsKind(err, apperr.KindAuthorization) {
		t.Errorf("expected authorization error for non-leader, got %v", err)
	}
}

func TestSubmitRejectsUnpublishedProject(t *testing.T) {
	f := newFixture()
	g, leaderID := f.seedGroup(2)
	p := f.seedProject(primitive.NewObjectID(), 1)
	p.Status = project.StatusDraft

	_, err := f.svc.Submit(context.Background(), leaderID, SubmitInput{
		GroupID:    &g.ID,
		Type:       models.ProjectTypeIDP,
		ProjectIDs: []primitive.ObjectID{p.ID},
	})
	if !apperr.IsKind(err, apperr.KindState) {
		t.Errorf("expected state error for draft project, got %v", err)
	}
}

func TestSubmitGroupCreatesPendingRowsAndMovesGroupToApplied(t *testing.T) {
	f := newFixture()
	g, leaderID := f.seedGroup(2)
	faculty := primitive.NewObjectID()
	p1 := f.seedProject(faculty, 1)
	p2 := f.seedProject(faculty, 1)

	apps, err := f.svc.Submit(context.Background(), leaderID, SubmitInput{
		GroupID:    &g.ID,
		Type:       models.ProjectTypeIDP,
		ProjectIDs: []primitive.ObjectID{p1.ID, p2.ID},
		Semester:   "odd",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(apps) != 2 {
		t.Fatalf("expected 2 application rows, got %d", len(apps))
	}
	for _, a := range apps {
		if a.Status != StatusPending {
			t.Errorf("expected pending status, got %s", a.Status)
		}
		if !a.IsFrozen {
			t.Errorf("expected new application to be frozen")
		}
		if a.Year != g.Year {
			t.Errorf("expected year %d from group, got %d", g.Year, a.Year)
		}
	}
	if f.groups.groups[g.ID].Status != group.StatusApplied {
		t.Errorf("expected group status applied, got %s", f.groups.groups[g.ID].Status)
	}
}

func TestSubmitRejectsSecondLiveSubmission(t *testing.T) {
	f := newFixture()
	g, leaderID := f.seedGroup(2)
	p := f.seedProject(primitive.NewObjectID(), 1)

	f.apps.put(&Application{GroupID: &g.ID, Type: models.ProjectTypeIDP, ProjectID: p.ID, Status: StatusPending})

	_, err := f.svc.Submit(context.Background(), leaderID, SubmitInput{
		GroupID:    &g.ID,
		Type:       models.ProjectTypeIDP,
		ProjectIDs: []primitive.ObjectID{p.ID},
	})
	if !apperr.IsKind(err, apperr.KindConflict) {
		t.Errorf("expected conflict error for live duplicate, got %v", err)
	}
}

func TestSubmitSoloRejectedWhenStudentHasGroup(t *testing.T) {
	f := newFixture()
	g, _ := f.seedGroup(2)
	member := g.Members[1]
	p := f.seedProject(primitive.NewObjectID(), 1)

	_, err := f.svc.Submit(context.Background(), member, SubmitInput{
		StudentID:  &member,
		Type:       models.ProjectTypeIDP,
		ProjectIDs: []primitive.ObjectID{p.ID},
	})
	if !apperr.IsKind(err, apperr.KindConflict) {
		t.Errorf("expected conflict error for grouped student applying solo, got %v", err)
	}
}

func TestAcceptApprovesAndCascades(t *testing.T) {
	f := newFixture()
	g, _ := f.seedGroup(2)
	faculty1 := primitive.NewObjectID()
	faculty2 := primitive.NewObjectID()
	p1 := f.seedProject(faculty1, 1)
	p2 := f.seedProject(faculty2, 1)
	g.Status = group.StatusApplied
	f.groups.groups[g.ID] = g

	a1 := f.apps.put(&Application{GroupID: &g.ID, Type: models.ProjectTypeIDP, ProjectID: p1.ID, Year: g.Year, Status: StatusPending})
	a2 := f.apps.put(&Application{GroupID: &g.ID, Type: models.ProjectTypeIDP, ProjectID: p2.ID, Year: g.Year, Status: StatusPending})

	out, err := f.svc.Accept(context.Background(), a1.ID, p1.ID, faculty1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Status != StatusApproved {
		t.Errorf("expected approved, got %s", out.Status)
	}
	if f.apps.apps[a2.ID].Status != StatusRejected {
		t.Errorf("expected sibling application auto-rejected, got %s", f.apps.apps[a2.ID].Status)
	}
	if f.apps.apps[a2.ID].RejectionReason != AutoRejectReason {
		t.Errorf("expected auto-rejection reason, got %q", f.apps.apps[a2.ID].RejectionReason)
	}
	if f.projects.projects[p1.ID].Status != project.StatusAssigned {
		t.Errorf("expected project assigned at capacity, got %s", f.projects.projects[p1.ID].Status)
	}
	if f.groups.groups[g.ID].Status != group.StatusApproved {
		t.Errorf("expected group approved, got %s", f.groups.groups[g.ID].Status)
	}
	if f.groups.groups[g.ID].GroupNumber != 1 {
		t.Errorf("expected group number 1, got %d", f.groups.groups[g.ID].GroupNumber)
	}
	if len(f.users.AllocatedUsers) != 2 {
		t.Errorf("expected allocation propagated to 2 members, got %d", len(f.users.AllocatedUsers))
	}
	if f.users.AllocatedGroupID == nil || *f.users.AllocatedGroupID != g.ID {
		t.Errorf("expected members to keep current group id")
	}
}

func TestAcceptRejectsWhenProjectAtCapacity(t *testing.T) {
	f := newFixture()
	g, _ := f.seedGroup(2)
	faculty := primitive.NewObjectID()
	p := f.seedProject(faculty, 1)
	p.AssignedCount = 1

	a := f.apps.put(&Application{GroupID: &g.ID, Type: models.ProjectTypeIDP, ProjectID: p.ID, Year: g.Year, Status: StatusPending})

	_, err := f.svc.Accept(context.Background(), a.ID, p.ID, faculty)
	if !apperr.IsKind(err, apperr.KindConflict) {
		t.Errorf("expected conflict error at capacity, got %v", err)
	}
}

func TestAcceptRejectsOtherFaculty(t *testing.T) {
	f := newFixture()
	g, _ := f.seedGroup(2)
	p := f.seedProject(primitive.NewObjectID(), 1)

	a := f.apps.put(&Application{GroupID: &g.ID, Type: models.ProjectTypeIDP, ProjectID: p.ID, Year: g.Year, Status: StatusPending})

	_, err := f.svc.Accept(context.Background(), a.ID, p.ID, primitive.NewObjectID())
	if !apperr.IsKind(err, apperr.KindAuthorization) {
		t.Errorf("expected authorization error for other faculty, got %v", err)
	}
}

func TestAcceptRejectsProjectMismatch(t *testing.T) {
	f := newFixture()
	g, _ := f.seedGroup(2)
	faculty := primitive.NewObjectID()
	p := f.seedProject(faculty, 1)

	a := f.apps.put(&Application{GroupID: &g.ID, Type: models.ProjectTypeIDP, ProjectID: p.ID, Year: g.Year, Status: StatusPending})

	_, err := f.svc.Accept(context.Background(), a.ID, primitive.NewObjectID(), faculty)
	if !apperr.IsKind(err, apperr.KindValidation) {
		t.Errorf("expected validation error for stale project id, got %v", err)
	}
}

func TestAcceptSoloClearsCurrentGroup(t *testing.T) {
	f := newFixture()
	student := f.users.put(&user.User{Name: "Solo", Email: "solo@test.edu", Role: user.RoleStudent})
	faculty := primitive.NewObjectID()
	p := f.seedProject(faculty, 1)

	a := f.apps.put(&Application{StudentID: &student.ID, Type: models.ProjectTypeIDP, ProjectID: p.ID, Year: 2026, Status: StatusPending})

	out, err := f.svc.Accept(context.Background(), a.ID, p.ID, faculty)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Status != StatusApproved {
		t.Errorf("expected approved, got %s", out.Status)
	}
	if f.users.AllocatedGroupID != nil {
		t.Errorf("expected solo allocation to clear current group id")
	}
	if f.groups.NumberCalls != 0 {
		t.Errorf("solo acceptance must not allocate a group number")
	}
}

func TestRejectRevertsGroupStatus(t *testing.T) {
	f := newFixture()
	g, _ := f.seedGroup(2)
	faculty := primitive.NewObjectID()
	p := f.seedProject(faculty, 1)
	g.Status = group.StatusApplied
	f.groups.groups[g.ID] = g

	a := f.apps.put(&Application{GroupID: &g.ID, Type: models.ProjectTypeIDP, ProjectID: p.ID, Year: g.Year, Status: StatusPending})

	out, err := f.svc.Reject(context.Background(), a.ID, faculty, "not a fit")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Status != StatusRejected {
		t.Errorf("expected rejected, got %s", out.Status)
	}
	if out.RejectionReason != "not a fit" {
		t.Errorf("expected reason recorded, got %q", out.RejectionReason)
	}
	got := f.groups.groups[g.ID].Status
	if got != group.StatusComplete {
		t.Errorf("expected 2-member group back to complete after reject, got %s", got)
	}
}

func TestRejectOnlyPending(t *testing.T) {
	f := newFixture()
	g, _ := f.seedGroup(2)
	p := f.seedProject(primitive.NewObjectID(), 1)
	a := f.apps.put(&Application{GroupID: &g.ID, Type: models.ProjectTypeIDP, ProjectID: p.ID, Status: StatusApproved})

	_, err := f.svc.Reject(context.Background(), a.ID, p.FacultyID, "")
	if !apperr.IsKind(err, apperr.KindState) {
		t.Errorf("expected state error for decided application, got %v", err)
	}
}

func TestRevokeByLeaderDeletesAndReopensGroup(t *testing.T) {
	f := newFixture()
	g, leaderID := f.seedGroup(2)
	p := f.seedProject(primitive.NewObjectID(), 1)
	g.Status = group.StatusApplied
	f.groups.groups[g.ID] = g

	a := f.apps.put(&Application{GroupID: &g.ID, Type: models.ProjectTypeIDP, ProjectID: p.ID, Status: StatusPending})

	if err := f.svc.Revoke(context.Background(), a.ID, leaderID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := f.apps.apps[a.ID]; ok {
		t.Errorf("expected application deleted")
	}
	got := f.groups.groups[g.ID].Status
	if got != group.StatusComplete {
		t.Errorf("expected group re-opened after last revoke, got %s", got)
	}
}

func TestRevokeRequiresApplicant(t *testing.T) {
	f := newFixture()
	g, _ := f.seedGroup(2)
	p := f.seedProject(primitive.NewObjectID(), 1)
	a := f.apps.put(&Application{GroupID: &g.ID, Type: models.ProjectTypeIDP, ProjectID: p.ID, Status: StatusPending})

	err := f.svc.Revoke(context.Background(), a.ID, primitive.NewObjectID())
	if !apperr.IsKind(err, apperr.KindAuthorization) {
		t.Errorf("expected authorization error, got %v", err)
	}
}

func TestUnfreezeFlipsFlagOnly(t *testing.T) {
	f := newFixture()
	g, _ := f.seedGroup(2)
	a := f.apps.put(&Application{GroupID: &g.ID, Type: models.ProjectTypeIDP, ProjectID: primitive.NewObjectID(), Status: StatusRejected, IsFrozen: true})

	out, err := f.svc.Unfreeze(context.Background(), a.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.IsFrozen {
		t.Errorf("expected frozen flag cleared")
	}
	if out.Status != StatusRejected {
		t.Errorf("unfreeze must not touch status, got %s", out.Status)
	}
}

// interleaveTx commits a rival mutation right before the first transaction
// callback runs, modeling a competing writer that lands ahead of ours.
type interleaveTx struct {
	rival func()
	fired bool
}

func (t *interleaveTx) Run(ctx context.Context, fn func(ctx context.Context) error) error {
	if !t.fired && t.rival != nil {
		t.fired = true
		t.rival()
	}
	return fn(ctx)
}

// yearGate records the cohort year it is asked about and is only open for
// years other than the closed one.
type yearGate struct {
	closedYear int
	askedYear  int
}

func (w *yearGate) SubmissionOpen(ctx context.Context, projectType models.ProjectType, year int, semester string) (bool, error) {
	w.askedYear = year
	return year != w.closedYear, nil
}

func TestSubmitBoundsChoiceCount(t *testing.T) {
	f := newFixture()
	g, leaderID := f.seedGroup(2)

	_, err := f.svc.Submit(context.Background(), leaderID, SubmitInput{
		GroupID:    &g.ID,
		Type:       models.ProjectTypeIDP,
		ProjectIDs: nil,
	})
	if !apperr.IsKind(err, apperr.KindValidation) {
		t.Errorf("expected validation error for zero choices, got %v", err)
	}

	faculty := primitive.NewObjectID()
	ids := make([]primitive.ObjectID, 0, MaxChoices)
	for i := 0; i < MaxChoices; i++ {
		ids = append(ids, f.seedProject(faculty, 1).ID)
	}
	out, err := f.svc.Submit(context.Background(), leaderID, SubmitInput{
		GroupID:    &g.ID,
		Type:       models.ProjectTypeIDP,
		ProjectIDs: ids,
	})
	if err != nil {
		t.Fatalf("submitting exactly %d choices must succeed: %v", MaxChoices, err)
	}
	if len(out) != MaxChoices {
		t.Errorf("expected %d pending rows, got %d", MaxChoices, len(out))
	}
}

func TestSubmitWindowGateSeesGroupYear(t *testing.T) {
	f := newFixture()
	g, leaderID := f.seedGroup(2) // stored year 2026
	p := f.seedProject(primitive.NewObjectID(), 1)
	gate := &yearGate{closedYear: g.Year}
	f.svc.windows = gate

	_, err := f.svc.Submit(context.Background(), leaderID, SubmitInput{
		GroupID:    &g.ID,
		Type:       models.ProjectTypeIDP,
		Year:       g.Year + 1,
		ProjectIDs: []primitive.ObjectID{p.ID},
	})
	if !apperr.IsKind(err, apperr.KindState) {
		t.Fatalf("expected closed-window state error, got %v", err)
	}
	if gate.askedYear != g.Year {
		t.Errorf("gate must be asked about the group's year %d, got %d", g.Year, gate.askedYear)
	}
}

func TestSubmitSoloUsesServerYear(t *testing.T) {
	f := newFixture()
	student := f.users.put(&user.User{Name: "Solo", Email: "solo@test.edu", Role: user.RoleStudent})
	p := f.seedProject(primitive.NewObjectID(), 1)
	gate := &yearGate{}
	f.svc.windows = gate

	thisYear := time.Now().Year()
	out, err := f.svc.Submit(context.Background(), student.ID, SubmitInput{
		StudentID:  &student.ID,
		Type:       models.ProjectTypeIDP,
		Year:       thisYear + 5,
		ProjectIDs: []primitive.ObjectID{p.ID},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gate.askedYear != thisYear {
		t.Errorf("gate must be asked about the current year %d, got %d", thisYear, gate.askedYear)
	}
	for _, a := range out {
		if a.Year != thisYear {
			t.Errorf("expected stored year %d, got %d", thisYear, a.Year)
		}
	}
}

func TestSubmitSoloRejectedWhenJoinLandsFirst(t *testing.T) {
	f := newFixture()
	student := f.users.put(&user.User{Name: "Solo", Email: "solo@test.edu", Role: user.RoleStudent})
	p := f.seedProject(primitive.NewObjectID(), 1)

	// The join commits between the solo submission's read path and its
	// transactional writes; the in-transaction guard must still see it.
	f.svc.tx = &interleaveTx{rival: func() {
		f.groups.put(&group.Group{
			Code:     "RACE42",
			Type:     models.ProjectTypeIDP,
			Year:     time.Now().Year(),
			Status:   group.StatusComplete,
			LeaderID: primitive.NewObjectID(),
			Members:  []primitive.ObjectID{primitive.NewObjectID(), student.ID},
		})
	}}

	_, err := f.svc.Submit(context.Background(), student.ID, SubmitInput{
		StudentID:  &student.ID,
		Type:       models.ProjectTypeIDP,
		ProjectIDs: []primitive.ObjectID{p.ID},
	})
	if !apperr.IsKind(err, apperr.KindConflict) {
		t.Errorf("expected conflict when a join commits first, got %v", err)
	}
	if f.apps.InsertedBatches != 0 {
		t.Errorf("no application rows may be inserted for the losing submission")
	}
}
