package application

import (
	"context"
	"time"

	"acadhub/internal/apperr"
	"acadhub/internal/common/models"
	"acadhub/internal/database"
	"acadhub/internal/features/group"
	"acadhub/internal/features/project"
	"acadhub/internal/features/user"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// WindowGate answers whether submissions are currently open for a cohort.
// The semester feature implements it.
type WindowGate interface {
	SubmissionOpen(ctx context.Context, projectType models.ProjectType, year int, semester string) (bool, error)
}

// EligibilityGate vets every would-be applicant against coordinator rules.
// The eligibility feature implements it; a nil error means all pass.
type EligibilityGate interface {
	CheckEligibility(ctx context.Context, projectType models.ProjectType, year int, studentIDs []primitive.ObjectID) error
}

type SubmitInput struct {
	StudentID  *primitive.ObjectID  `json:"student_id,omitempty"`
	GroupID    *primitive.ObjectID  `json:"group_id,omitempty"`
	Type       models.ProjectType   `json:"project_type"`
	ProjectIDs []primitive.ObjectID `json:"project_ids"`
	Semester   string               `json:"semester"`
	Year       int                  `json:"year"`
	Statement  string               `json:"statement"`
}

// MemberInfo is the applicant detail faculty see alongside an application.
type MemberInfo struct {
	ID    primitive.ObjectID `json:"id"`
	Name  string             `json:"name"`
	Email string             `json:"email"`
}

// FacultyApplication enriches a row with the context a reviewer needs.
type FacultyApplication struct {
	Application  `json:",inline"`
	ProjectTitle string       `json:"project_title"`
	GroupCode    string       `json:"group_code,omitempty"`
	Members      []MemberInfo `json:"members"`
}

type ApplicationService interface {
	Submit(ctx context.Context, actorID primitive.ObjectID, input SubmitInput) ([]Application, error)
	Accept(ctx context.Context, applicationID, projectID, facultyID primitive.ObjectID) (*Application, error)
	Reject(ctx context.Context, applicationID, facultyID primitive.ObjectID, reason string) (*Application, error)
	Revoke(ctx context.Context, applicationID, actorID primitive.ObjectID) error
	Unfreeze(ctx context.Context, applicationID primitive.ObjectID) (*Application, error)
	GetApplication(ctx context.Context, id primitive.ObjectID) (*Application, error)
	GetApplicantApplications(ctx context.Context, who Applicant) ([]Application, error)
	GetApprovedApplication(ctx context.Context, who Applicant) (*Application, error)
	GetFacultyApplications(ctx context.Context, facultyID primitive.ObjectID) ([]FacultyApplication, error)
	GetAllApplications(ctx context.Context, filter ListFilter) ([]Application, error)
}

type ApplicationServiceImpl struct {
	repo        ApplicationRepository
	groupRepo   group.GroupRepository
	projectRepo project.ProjectRepository
	userRepo    user.UserRepository
	windows     WindowGate
	eligibility EligibilityGate
	tx          database.TxRunner
	logger      *zap.Logger
}

func NewApplicationService(
	repo ApplicationRepository,
	groupRepo group.GroupRepository,
	projectRepo project.ProjectRepository,
	userRepo user.UserRepository,
	windows WindowGate,
	eligibility EligibilityGate,
	tx database.TxRunner,
	logger *zap.Logger,
) ApplicationService {
	return &ApplicationServiceImpl{
		repo:        repo,
		groupRepo:   groupRepo,
		projectRepo: projectRepo,
		userRepo:    userRepo,
		windows:     windows,
		eligibility: eligibility,
		tx:          tx,
		logger:      logger,
	}
}

// Submit validates a ranked multi-choice submission and creates one pending
// row per chosen project, atomically moving a group to applied.
func (s *ApplicationServiceImpl) Submit(ctx context.Context, actorID primitive.ObjectID, input SubmitInput) ([]Application, error) {
	who := Applicant{StudentID: input.StudentID, GroupID: input.GroupID}
	if !who.Valid() {
		return nil, apperr.Validation("exactly one of student_id or group_id must be set")
	}
	if !input.Type.Valid() {
		return nil, apperr.Validation("invalid project type %q", input.Type)
	}
	if n := len(input.ProjectIDs); n < MinChoices || n > MaxChoices {
		return nil, apperr.Validation("between %d and %d project choices required", MinChoices, MaxChoices)
	}
	seen := map[primitive.ObjectID]bool{}
	for _, id := range input.ProjectIDs {
		if seen[id] {
			return nil, apperr.Validation("duplicate project choice %s", id.Hex())
		}
		seen[id] = true
	}
	var (
		g         *group.Group
		memberIDs []primitive.ObjectID
		err       error
	)
	if who.GroupID != nil {
		g, err = s.groupRepo.FindByID(ctx, *who.GroupID)
		if err != nil {
			return nil, err
		}
		if g == nil {
			return nil, apperr.NotFound("group not found")
		}
		if g.LeaderID != actorID {
			return nil, apperr.Authorization("only the group leader may submit applications")
		}
		if g.Type != input.Type {
			return nil, apperr.Validation("group is for %s, not %s", g.Type, input.Type)
		}
		switch g.Status {
		case group.StatusForming, group.StatusComplete:
		default:
			return nil, apperr.State("group has already %s", g.Status)
		}
		input.Year = g.Year
		memberIDs = g.Members
	} else {
		if *who.StudentID != actorID {
			return nil, apperr.Authorization("students may only submit for themselves")
		}
		u, err := s.userRepo.FindByID(ctx, *who.StudentID)
		if err != nil {
			return nil, err
		}
		if u == nil {
			return nil, apperr.NotFound("student not found")
		}
		// Solo cohort year comes from the server clock, not the request.
		input.Year = time.Now().Year()
		memberIDs = []primitive.ObjectID{*who.StudentID}
	}

	// The window gate sees the applicant's authoritative cohort year: the
	// group's stored year, or the current year for solo applicants.
	open, err := s.windows.SubmissionOpen(ctx, input.Type, input.Year, input.Semester)
	if err != nil {
		return nil, err
	}
	if !open {
		return nil, apperr.State("application window is closed for %s %d", input.Type, input.Year)
	}

	if err := s.eligibility.CheckEligibility(ctx, input.Type, input.Year, memberIDs); err != nil {
		return nil, err
	}

	projects, err := s.projectRepo.FindByIDs(ctx, input.ProjectIDs)
	if err != nil {
		return nil, err
	}
	if len(projects) != len(input.ProjectIDs) {
		return nil, apperr.NotFound("one or more chosen projects do not exist")
	}
	for i := range projects {
		p := &projects[i]
		if p.Type != input.Type {
			return nil, apperr.Validation("project %q is not a %s project", p.Title, input.Type)
		}
		if p.Status != project.StatusPublished {
			return nil, apperr.State("project %q is not open for applications", p.Title)
		}
	}

	live, err := s.repo.FindLiveByApplicant(ctx, who)
	if err != nil {
		return nil, err
	}
	if len(live) > 0 {
		return nil, apperr.Conflict("a pending or approved application already exists")
	}

	now := time.Now()
	apps := make([]*Application, 0, len(input.ProjectIDs))
	for _, pid := range input.ProjectIDs {
		apps = append(apps, &Application{
			StudentID:   who.StudentID,
			GroupID:     who.GroupID,
			Type:        input.Type,
			ProjectID:   pid,
			Semester:    input.Semester,
			Year:        input.Year,
			Status:      StatusPending,
			Statement:   input.Statement,
			SubmittedAt: now,
			IsFrozen:    true,
		})
	}

	err = s.tx.Run(ctx, func(ctx context.Context) error {
		// Re-checked inside the transaction: a join committed between the
		// read path and this write would otherwise let a solo application
		// coexist with fresh group membership.
		if who.StudentID != nil {
			existing, err := s.groupRepo.FindActiveByMember(ctx, *who.StudentID, input.Type)
			if err != nil {
				return err
			}
			if existing != nil {
				return apperr.Conflict("student belongs to a %s group and cannot apply solo", input.Type)
			}
		}
		if err := s.repo.InsertMany(ctx, apps); err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return apperr.Conflict("a pending or approved application already exists")
			}
			return err
		}
		if g != nil {
			ok, err := s.groupRepo.SetStatus(ctx, g.ID, g.Status, group.StatusApplied)
			if err != nil {
				return err
			}
			if !ok {
				return apperr.Conflict("group changed while submitting, try again")
			}
			if err := s.groupRepo.SetDraftProjects(ctx, g.ID, nil); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	out := make([]Application, 0, len(apps))
	for _, a := range apps {
		out = append(out, *a)
	}
	return out, nil
}

// Accept approves one pending application. Capacity is consumed through a
// single conditional update so two faculty can never over-assign a project;
// every other pending application by the same applicant is auto-rejected in
// the same transaction, and a group applicant receives its sequential number.
func (s *ApplicationServiceImpl) Accept(ctx context.Context, applicationID, projectID, facultyID primitive.ObjectID) (*Application, error) {
	var accepted *Application

	err := s.tx.Run(ctx, func(ctx context.Context) error {
		a, err := s.repo.FindByID(ctx, applicationID)
		if err != nil {
			return err
		}
		if a == nil {
			return apperr.NotFound("application not found")
		}
		if a.Status != StatusPending {
			return apperr.State("application is already %s", a.Status)
		}
		if a.ProjectID != projectID {
			return apperr.Validation("application is not for this project")
		}

		var assigneeID primitive.ObjectID
		if a.GroupID != nil {
			assigneeID = *a.GroupID
		} else {
			assigneeID = *a.StudentID
		}

		ok, err := s.projectRepo.ConsumeCapacity(ctx, projectID, facultyID, assigneeID)
		if err != nil {
			return err
		}
		if !ok {
			p, err := s.projectRepo.FindByID(ctx, projectID)
			if err != nil {
				return err
			}
			if p == nil {
				return apperr.NotFound("project not found")
			}
			if p.FacultyID != facultyID {
				return apperr.Authorization("project belongs to another faculty")
			}
			return apperr.Conflict("project has no remaining capacity")
		}
		if err := s.projectRepo.MarkAssignedIfFull(ctx, projectID); err != nil {
			return err
		}

		ok, err = s.repo.MarkApproved(ctx, applicationID, facultyID)
		if err != nil {
			return err
		}
		if !ok {
			return apperr.State("application was decided concurrently")
		}

		if a.GroupID != nil {
			g, err := s.groupRepo.FindByID(ctx, *a.GroupID)
			if err != nil {
				return err
			}
			if g == nil {
				return apperr.NotFound("group no longer exists")
			}
			number, err := s.groupRepo.NextGroupNumber(ctx, g.Type, g.Year)
			if err != nil {
				return err
			}
			if err := s.groupRepo.ApplyAllocation(ctx, g.ID, projectID, facultyID, number); err != nil {
				return err
			}
			if err := s.userRepo.ApplyAllocation(ctx, g.Members, projectID, facultyID, &g.ID); err != nil {
				return err
			}
		} else {
			if err := s.userRepo.ApplyAllocation(ctx, []primitive.ObjectID{*a.StudentID}, projectID, facultyID, nil); err != nil {
				return err
			}
		}

		who := Applicant{StudentID: a.StudentID, GroupID: a.GroupID}
		rejected, err := s.repo.RejectPendingSiblings(ctx, who, applicationID, facultyID, AutoRejectReason)
		if err != nil {
			return err
		}
		if rejected > 0 {
			s.logger.Info("auto-rejected sibling applications",
				zap.String("applicationID", applicationID.Hex()),
				zap.Int64("count", rejected))
		}

		accepted, err = s.repo.FindByID(ctx, applicationID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return accepted, nil
}

// Reject turns down one pending application. A group applicant drops back to
// forming so it can reapply; the sibling choices stay pending.
func (s *ApplicationServiceImpl) Reject(ctx context.Context, applicationID, facultyID primitive.ObjectID, reason string) (*Application, error) {
	if reason == "" {
		reason = "rejected by faculty"
	}
	var rejected *Application

	err := s.tx.Run(ctx, func(ctx context.Context) error {
		a, err := s.repo.FindByID(ctx, applicationID)
		if err != nil {
			return err
		}
		if a == nil {
			return apperr.NotFound("application not found")
		}
		if a.Status != StatusPending {
			return apperr.State("application is already %s", a.Status)
		}

		p, err := s.projectRepo.FindByID(ctx, a.ProjectID)
		if err != nil {
			return err
		}
		if p != nil && p.FacultyID != facultyID {
			return apperr.Authorization("project belongs to another faculty")
		}

		ok, err := s.repo.MarkRejected(ctx, applicationID, facultyID, reason)
		if err != nil {
			return err
		}
		if !ok {
			return apperr.State("application was decided concurrently")
		}

		if a.GroupID != nil {
			// re-open the group for further action; sibling rows stay pending
			if _, err := s.groupRepo.SetStatus(ctx, *a.GroupID, group.StatusApplied, group.StatusForming); err != nil {
				return err
			}
			if err := s.groupRepo.ReconcileSizeStatus(ctx, *a.GroupID); err != nil {
				return err
			}
		}

		rejected, err = s.repo.FindByID(ctx, applicationID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return rejected, nil
}

// Revoke lets the applicant withdraw a still-pending application.
func (s *ApplicationServiceImpl) Revoke(ctx context.Context, applicationID, actorID primitive.ObjectID) error {
	a, err := s.repo.FindByID(ctx, applicationID)
	if err != nil {
		return err
	}
	if a == nil {
		return apperr.NotFound("application not found")
	}
	if a.Status != StatusPending {
		return apperr.State("only pending applications can be revoked")
	}

	if a.GroupID != nil {
		g, err := s.groupRepo.FindByID(ctx, *a.GroupID)
		if err != nil {
			return err
		}
		if g == nil || g.LeaderID != actorID {
			return apperr.Authorization("only the group leader may revoke this application")
		}
	} else if *a.StudentID != actorID {
		return apperr.Authorization("only the applicant may revoke this application")
	}

	return s.tx.Run(ctx, func(ctx context.Context) error {
		ok, err := s.repo.DeleteIfPending(ctx, applicationID)
		if err != nil {
			return err
		}
		if !ok {
			return apperr.State("application was decided concurrently")
		}
		if a.GroupID != nil {
			live, err := s.repo.FindLiveByApplicant(ctx, Applicant{GroupID: a.GroupID})
			if err != nil {
				return err
			}
			if len(live) == 0 {
				if _, err := s.groupRepo.SetStatus(ctx, *a.GroupID, group.StatusApplied, group.StatusForming); err != nil {
					return err
				}
				if err := s.groupRepo.ReconcileSizeStatus(ctx, *a.GroupID); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// Unfreeze clears the freeze flag only. Status is untouched even when the
// row was already rejected.
func (s *ApplicationServiceImpl) Unfreeze(ctx context.Context, applicationID primitive.ObjectID) (*Application, error) {
	ok, err := s.repo.SetFrozen(ctx, applicationID, false)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.NotFound("application not found")
	}
	return s.repo.FindByID(ctx, applicationID)
}

func (s *ApplicationServiceImpl) GetApplication(ctx context.Context, id primitive.ObjectID) (*Application, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *ApplicationServiceImpl) GetApplicantApplications(ctx context.Context, who Applicant) ([]Application, error) {
	if !who.Valid() {
		return nil, apperr.Validation("exactly one of student_id or group_id must be set")
	}
	return s.repo.FindByApplicant(ctx, who)
}

func (s *ApplicationServiceImpl) GetApprovedApplication(ctx context.Context, who Applicant) (*Application, error) {
	if !who.Valid() {
		return nil, apperr.Validation("exactly one of student_id or group_id must be set")
	}
	return s.repo.FindApprovedByApplicant(ctx, who)
}

// GetFacultyApplications lists every application against the faculty's own
// projects, enriched with project titles and applicant identities.
func (s *ApplicationServiceImpl) GetFacultyApplications(ctx context.Context, facultyID primitive.ObjectID) ([]FacultyApplication, error) {
	projects, err := s.projectRepo.FindByFaculty(ctx, facultyID)
	if err != nil {
		return nil, err
	}
	if len(projects) == 0 {
		return []FacultyApplication{}, nil
	}

	titles := make(map[primitive.ObjectID]string, len(projects))
	ids := make([]primitive.ObjectID, 0, len(projects))
	for i := range projects {
		titles[projects[i].ID] = projects[i].Title
		ids = append(ids, projects[i].ID)
	}

	apps, err := s.repo.FindByProjects(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]FacultyApplication, 0, len(apps))
	for i := range apps {
		a := apps[i]
		fa := FacultyApplication{Application: a, ProjectTitle: titles[a.ProjectID]}

		var memberIDs []primitive.ObjectID
		if a.GroupID != nil {
			g, err := s.groupRepo.FindByID(ctx, *a.GroupID)
			if err != nil {
				return nil, err
			}
			if g != nil {
				fa.GroupCode = g.Code
				memberIDs = g.Members
			}
		} else {
			memberIDs = []primitive.ObjectID{*a.StudentID}
		}

		if len(memberIDs) > 0 {
			users, err := s.userRepo.FindByIDs(ctx, memberIDs)
			if err != nil {
				return nil, err
			}
			for j := range users {
				fa.Members = append(fa.Members, MemberInfo{ID: users[j].ID, Name: users[j].Name, Email: users[j].Email})
			}
		}
		out = append(out, fa)
	}
	return out, nil
}

func (s *ApplicationServiceImpl) GetAllApplications(ctx context.Context, filter ListFilter) ([]Application, error) {
	return s.repo.FindAll(ctx, filter)
}
