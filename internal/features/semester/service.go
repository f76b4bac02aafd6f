package semester

import (
	"context"
	"time"

	"acadhub/internal/apperr"
	"acadhub/internal/common/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type WindowService interface {
	// SubmissionOpen implements the allocator's window gate. A cohort with
	// no configured window is open; configuring a window is what restricts
	// submissions.
	SubmissionOpen(ctx context.Context, projectType models.ProjectType, year int, semester string) (bool, error)
	UpsertWindow(ctx context.Context, w *Window) (*Window, error)
	ListWindows(ctx context.Context) ([]Window, error)
	CloseWindow(ctx context.Context, id primitive.ObjectID) error
	ReopenWindow(ctx context.Context, id primitive.ObjectID) error
	SweepExpired(ctx context.Context) error
}

type WindowServiceImpl struct {
	repo   WindowRepository
	logger *zap.Logger
}

func NewWindowService(repo WindowRepository, logger *zap.Logger) WindowService {
	return &WindowServiceImpl{repo: repo, logger: logger}
}

func (s *WindowServiceImpl) SubmissionOpen(ctx context.Context, projectType models.ProjectType, year int, semester string) (bool, error) {
	w, err := s.repo.Find(ctx, projectType, year, semester)
	if err != nil {
		return false, err
	}
	if w == nil {
		return true, nil
	}
	return w.OpenAt(time.Now()), nil
}

func (s *WindowServiceImpl) UpsertWindow(ctx context.Context, w *Window) (*Window, error) {
	if !w.Type.Valid() {
		return nil, apperr.Validation("unknown project type %q", w.Type)
	}
	if w.Year <= 0 {
		return nil, apperr.Validation("year is required")
	}
	if !w.ClosesAt.After(w.OpensAt) {
		return nil, apperr.Validation("window must close after it opens")
	}
	if err := s.repo.Upsert(ctx, w); err != nil {
		return nil, err
	}
	return w, nil
}

func (s *WindowServiceImpl) ListWindows(ctx context.Context) ([]Window, error) {
	return s.repo.FindAll(ctx)
}

func (s *WindowServiceImpl) CloseWindow(ctx context.Context, id primitive.ObjectID) error {
	w, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if w == nil {
		return apperr.NotFound("window not found")
	}
	return s.repo.SetOpen(ctx, id, false)
}

func (s *WindowServiceImpl) ReopenWindow(ctx context.Context, id primitive.ObjectID) error {
	w, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if w == nil {
		return apperr.NotFound("window not found")
	}
	if !time.Now().Before(w.ClosesAt) {
		return apperr.State("window deadline has already passed")
	}
	return s.repo.SetOpen(ctx, id, true)
}

// SweepExpired is run on a schedule; it flips is_open off for every window
// whose deadline passed since the last run.
func (s *WindowServiceImpl) SweepExpired(ctx context.Context) error {
	n, err := s.repo.CloseExpired(ctx, time.Now())
	if err != nil {
		return err
	}
	if n > 0 {
		s.logger.Info("closed expired submission windows", zap.Int64("count", n))
	}
	return nil
}
