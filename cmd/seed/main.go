package main

import (
	"context"
	"time"

	"acadhub/internal/common/models"
	"acadhub/internal/config"
	"acadhub/internal/database"
	"acadhub/internal/features/project"
	"acadhub/internal/features/semester"
	"acadhub/internal/features/user"
	"acadhub/internal/logger"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type seedUser struct {
	Name          string
	Email         string
	Role          user.Role
	IsCoordinator bool
	Department    string
	CGPA          float64
	Backlogs      int
	CreditsEarned int
}

var demoUsers = []seedUser{
	{Name: "Admin", Email: "admin@acadhub.edu", Role: user.RoleAdmin},
	{Name: "Prof. Meera Nair", Email: "meera.nair@acadhub.edu", Role: user.RoleFaculty, IsCoordinator: true},
	{Name: "Prof. Arjun Rao", Email: "arjun.rao@acadhub.edu", Role: user.RoleFaculty},
	{Name: "Prof. Sofia Lindqvist", Email: "sofia.lindqvist@acadhub.edu", Role: user.RoleFaculty},
	{Name: "Ishaan Gupta", Email: "ishaan.gupta@student.acadhub.edu", Role: user.RoleStudent, Department: "CSE", CGPA: 8.4, Backlogs: 0, CreditsEarned: 96},
	{Name: "Ananya Iyer", Email: "ananya.iyer@student.acadhub.edu", Role: user.RoleStudent, Department: "CSE", CGPA: 9.1, Backlogs: 0, CreditsEarned: 102},
	{Name: "Rohan Mehta", Email: "rohan.mehta@student.acadhub.edu", Role: user.RoleStudent, Department: "ECE", CGPA: 7.2, Backlogs: 1, CreditsEarned: 88},
	{Name: "Priya Sharma", Email: "priya.sharma@student.acadhub.edu", Role: user.RoleStudent, Department: "ECE", CGPA: 6.8, Backlogs: 2, CreditsEarned: 84},
}

// Seed loads demo users, projects and a submission window so a fresh
// install is immediately usable.
func Seed(
	lc fx.Lifecycle,
	userRepo user.UserRepository,
	projectRepo project.ProjectRepository,
	windowRepo semester.WindowRepository,
	logger *zap.Logger,
	shutdowner fx.Shutdowner,
) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				defer func() {
					if err := shutdowner.Shutdown(); err != nil {
						logger.Error("Failed to shutdown", zap.Error(err))
					}
				}()

				logger.Info("🌱 Starting Database Seeding...")

				hashed, err := bcrypt.GenerateFromPassword([]byte("changeme"), bcrypt.DefaultCost)
				if err != nil {
					logger.Error("Failed to hash seed password", zap.Error(err))
					return
				}

				year := time.Now().Year()
				faculty := map[string]*user.User{}

				for _, su := range demoUsers {
					existing, err := userRepo.FindByEmail(ctx, su.Email)
					if err != nil {
						logger.Error("Failed to look up user", zap.String("email", su.Email), zap.Error(err))
						return
					}
					if existing != nil {
						logger.Info("User exists, skipping", zap.String("email", su.Email))
						if existing.Role == user.RoleFaculty {
							faculty[existing.Email] = existing
						}
						continue
					}

					u := &user.User{
						Name:          su.Name,
						Email:         su.Email,
						Password:      string(hashed),
						Role:          su.Role,
						IsCoordinator: su.IsCoordinator,
						Department:    su.Department,
						CGPA:          su.CGPA,
						Backlogs:      su.Backlogs,
						CreditsEarned: su.CreditsEarned,
					}
					if err := userRepo.Create(ctx, u); err != nil {
						logger.Error("Failed to create user", zap.String("email", su.Email), zap.Error(err))
						return
					}
					if u.Role == user.RoleFaculty {
						faculty[u.Email] = u
					}
					logger.Info("Created user", zap.String("email", su.Email), zap.String("role", string(su.Role)))
				}

				type seedProject struct {
					Title        string
					Description  string
					Type         models.ProjectType
					Capacity     int
					FacultyEmail string
				}
				demoProjects := []seedProject{
					{
						Title:        "Campus Energy Dashboard",
						Description:  "Real-time visualization of campus power consumption per building.",
						Type:         models.ProjectTypeIDP,
						Capacity:     2,
						FacultyEmail: "meera.nair@acadhub.edu",
					},
					{
						Title:        "Low-cost Soil Moisture Network",
						Description:  "LoRa sensor mesh for the agriculture department's test fields.",
						Type:         models.ProjectTypeIDP,
						Capacity:     1,
						FacultyEmail: "arjun.rao@acadhub.edu",
					},
					{
						Title:        "Program Analysis of Student Code",
						Description:  "Static analysis over course submissions to surface common defects.",
						Type:         models.ProjectTypeUROP,
						Capacity:     2,
						FacultyEmail: "sofia.lindqvist@acadhub.edu",
					},
				}

				existingProjects := 0
				for _, sp := range demoProjects {
					owner, ok := faculty[sp.FacultyEmail]
					if !ok {
						logger.Error("Seed project references unknown faculty", zap.String("email", sp.FacultyEmail))
						return
					}
					published, err := projectRepo.FindPublished(ctx, sp.Type, year)
					if err != nil {
						logger.Error("Failed to list projects", zap.Error(err))
						return
					}
					found := false
					for _, p := range published {
						if p.Title == sp.Title {
							found = true
							break
						}
					}
					if found {
						existingProjects++
						continue
					}

					p := &project.Project{
						Title:       sp.Title,
						Description: sp.Description,
						Type:        sp.Type,
						Status:      project.StatusPublished,
						Capacity:    sp.Capacity,
						FacultyID:   owner.ID,
						Year:        year,
					}
					if err := projectRepo.Create(ctx, p); err != nil {
						logger.Error("Failed to create project", zap.String("title", sp.Title), zap.Error(err))
						return
					}
					logger.Info("Created project", zap.String("title", sp.Title), zap.String("type", string(sp.Type)))
				}
				if existingProjects > 0 {
					logger.Info("Some projects already existed, skipped", zap.Int("count", existingProjects))
				}

				now := time.Now()
				for _, pt := range []models.ProjectType{models.ProjectTypeIDP, models.ProjectTypeUROP} {
					w := &semester.Window{
						Type:     pt,
						Year:     year,
						Semester: "odd",
						OpensAt:  now.Add(-24 * time.Hour),
						ClosesAt: now.Add(14 * 24 * time.Hour),
						IsOpen:   true,
					}
					if err := windowRepo.Upsert(ctx, w); err != nil {
						logger.Error("Failed to upsert window", zap.String("type", string(pt)), zap.Error(err))
						return
					}
					logger.Info("Opened submission window", zap.String("type", string(pt)), zap.Int("year", year))
				}

				logger.Info("✅ Seeding complete")
			}()
			return nil
		},
	})
}

func main() {
	app := fx.New(
		fx.Provide(
			config.LoadConfig,
			logger.NewLogger,
			database.NewDatabase,
			user.NewUserRepository,
			project.NewProjectRepository,
			semester.NewWindowRepository,
		),
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log}
		}),
		fx.Invoke(Seed),
	)

	app.Run()
}
