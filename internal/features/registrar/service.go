package registrar

import (
	"context"
	"database/sql"
	"time"

	"acadhub/internal/config"
	"acadhub/internal/features/application"
	"acadhub/internal/features/group"
	"acadhub/internal/features/project"
	"acadhub/internal/features/user"

	_ "github.com/lib/pq"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// SyncService mirrors approved allocations into the registrar's Postgres
// database so downstream grade and transcript systems see the outcome.
// The export is idempotent: every run upserts the full approved set.
type SyncService interface {
	RunSync(ctx context.Context) error
	Enabled() bool
}

type SyncServiceImpl struct {
	dsn         string
	appRepo     application.ApplicationRepository
	groupRepo   group.GroupRepository
	projectRepo project.ProjectRepository
	userRepo    user.UserRepository
	logger      *zap.Logger
}

func NewSyncService(
	cfg *config.Config,
	appRepo application.ApplicationRepository,
	groupRepo group.GroupRepository,
	projectRepo project.ProjectRepository,
	userRepo user.UserRepository,
	logger *zap.Logger,
) SyncService {
	return &SyncServiceImpl{
		dsn:         cfg.RegistrarDSN,
		appRepo:     appRepo,
		groupRepo:   groupRepo,
		projectRepo: projectRepo,
		userRepo:    userRepo,
		logger:      logger,
	}
}

func (s *SyncServiceImpl) Enabled() bool { return s.dsn != "" }

const createTableStmt = `
CREATE TABLE IF NOT EXISTS project_allocations (
	application_id TEXT PRIMARY KEY,
	student_id     TEXT NOT NULL,
	student_name   TEXT NOT NULL,
	group_code     TEXT,
	group_number   INTEGER,
	project_type   TEXT NOT NULL,
	project_title  TEXT NOT NULL,
	faculty_name   TEXT NOT NULL,
	year           INTEGER NOT NULL,
	decided_at     TIMESTAMPTZ,
	synced_at      TIMESTAMPTZ NOT NULL
)`

const upsertStmt = `
INSERT INTO project_allocations (
	application_id, student_id, student_name, group_code, group_number,
	project_type, project_title, faculty_name, year, decided_at, synced_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
ON CONFLICT (application_id) DO UPDATE SET
	student_id = EXCLUDED.student_id,
	student_name = EXCLUDED.student_name,
	group_code = EXCLUDED.group_code,
	group_number = EXCLUDED.group_number,
	project_type = EXCLUDED.project_type,
	project_title = EXCLUDED.project_title,
	faculty_name = EXCLUDED.faculty_name,
	year = EXCLUDED.year,
	decided_at = EXCLUDED.decided_at,
	synced_at = EXCLUDED.synced_at`

func (s *SyncServiceImpl) RunSync(ctx context.Context) error {
	if !s.Enabled() {
		return nil
	}

	db, err := sql.Open("postgres", s.dsn)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return err
	}
	if _, err := db.ExecContext(ctx, createTableStmt); err != nil {
		return err
	}

	apps, err := s.appRepo.FindAll(ctx, application.ListFilter{Status: application.StatusApproved})
	if err != nil {
		return err
	}

	now := time.Now()
	var rows int
	for i := range apps {
		a := &apps[i]

		p, err := s.projectRepo.FindByID(ctx, a.ProjectID)
		if err != nil {
			return err
		}
		if p == nil {
			continue
		}
		faculty, err := s.userRepo.FindByID(ctx, p.FacultyID)
		if err != nil {
			return err
		}
		facultyName := ""
		if faculty != nil {
			facultyName = faculty.Name
		}

		var (
			groupCode   sql.NullString
			groupNumber sql.NullInt64
			memberIDs   []primitive.ObjectID
		)
		if a.GroupID != nil {
			g, err := s.groupRepo.FindByID(ctx, *a.GroupID)
			if err != nil {
				return err
			}
			if g == nil {
				continue
			}
			groupCode = sql.NullString{String: g.Code, Valid: true}
			groupNumber = sql.NullInt64{Int64: int64(g.GroupNumber), Valid: true}
			memberIDs = g.Members
		} else {
			memberIDs = []primitive.ObjectID{*a.StudentID}
		}

		members, err := s.userRepo.FindByIDs(ctx, memberIDs)
		if err != nil {
			return err
		}

		// The registrar keys by student, so a group allocation fans out to
		// one row per member with a composite application_id.
		for j := range members {
			rowID := a.ID.Hex() + ":" + members[j].ID.Hex()
			var decidedAt sql.NullTime
			if a.ReviewedAt != nil {
				decidedAt = sql.NullTime{Time: *a.ReviewedAt, Valid: true}
			}
			if _, err := db.ExecContext(ctx, upsertStmt,
				rowID,
				members[j].ID.Hex(),
				members[j].Name,
				groupCode,
				groupNumber,
				string(a.Type),
				p.Title,
				facultyName,
				a.Year,
				decidedAt,
				now,
			); err != nil {
				return err
			}
			rows++
		}
	}

	s.logger.Info("registrar sync complete",
		zap.Int("approved", len(apps)),
		zap.Int("rows", rows))
	return nil
}
