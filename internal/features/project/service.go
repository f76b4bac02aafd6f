package project

import (
	"context"

	"acadhub/internal/apperr"
	"acadhub/internal/common/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ProjectService interface {
	CreateProject(ctx context.Context, facultyID primitive.ObjectID, input CreateInput) (*Project, error)
	PublishProject(ctx context.Context, facultyID, projectID primitive.ObjectID) error
	GetProject(ctx context.Context, id primitive.ObjectID) (*Project, error)
	ListFacultyProjects(ctx context.Context, facultyID primitive.ObjectID) ([]Project, error)
	ListPublished(ctx context.Context, projectType models.ProjectType, year int) ([]Project, error)
}

type CreateInput struct {
	Title       string             `json:"title"`
	Description string             `json:"description"`
	Type        models.ProjectType `json:"type"`
	Capacity    int                `json:"capacity"`
	Year        int                `json:"year"`
}

type ProjectServiceImpl struct {
	repo ProjectRepository
}

func NewProjectService(repo ProjectRepository) ProjectService {
	return &ProjectServiceImpl{repo: repo}
}

func (s *ProjectServiceImpl) CreateProject(ctx context.Context, facultyID primitive.ObjectID, input CreateInput) (*Project, error) {
	if input.Title == "" {
		return nil, apperr.Validation("project title is required")
	}
	if !input.Type.Valid() {
		return nil, apperr.Validation("unknown project type %q", input.Type)
	}
	if input.Capacity < 0 {
		return nil, apperr.Validation("capacity must not be negative")
	}

	p := &Project{
		Title:       input.Title,
		Description: input.Description,
		Type:        input.Type,
		Status:      StatusDraft,
		Capacity:    input.Capacity,
		FacultyID:   facultyID,
		Year:        input.Year,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *ProjectServiceImpl) PublishProject(ctx context.Context, facultyID, projectID primitive.ObjectID) error {
	p, err := s.repo.FindByID(ctx, projectID)
	if err != nil {
		return err
	}
	if p == nil {
		return apperr.NotFound("project not found")
	}
	if p.FacultyID != facultyID {
		return apperr.Authorization("project belongs to another faculty")
	}

	ok, err := s.repo.SetStatus(ctx, projectID, StatusDraft, StatusPublished)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.State("project is not in draft state")
	}
	return nil
}

func (s *ProjectServiceImpl) GetProject(ctx context.Context, id primitive.ObjectID) (*Project, error) {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, apperr.NotFound("project not found")
	}
	return p, nil
}

func (s *ProjectServiceImpl) ListFacultyProjects(ctx context.Context, facultyID primitive.ObjectID) ([]Project, error) {
	return s.repo.FindByFaculty(ctx, facultyID)
}

func (s *ProjectServiceImpl) ListPublished(ctx context.Context, projectType models.ProjectType, year int) ([]Project, error) {
	if !projectType.Valid() {
		return nil, apperr.Validation("unknown project type %q", projectType)
	}
	return s.repo.FindPublished(ctx, projectType, year)
}
