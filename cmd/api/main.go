package main

import (
	"context"
	"fmt"
	"log"
	"time"

	common_api "acadhub/internal/common/api"
	"acadhub/internal/config"
	"acadhub/internal/database"
	"acadhub/internal/features/allocation"
	"acadhub/internal/features/application"
	"acadhub/internal/features/eligibility"
	"acadhub/internal/features/group"
	"acadhub/internal/features/notification"
	"acadhub/internal/features/project"
	"acadhub/internal/features/registrar"
	"acadhub/internal/features/report"
	"acadhub/internal/features/role"
	"acadhub/internal/features/semester"
	"acadhub/internal/features/system"
	"acadhub/internal/features/user"
	"acadhub/internal/logger"
	"acadhub/internal/middleware"
	"acadhub/pkg/utils"

	_ "acadhub/docs" // Import swagger docs

	"github.com/gofiber/fiber/v2"
	"github.com/robfig/cron/v3"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

// NewFiberServer creates a new Fiber app instance
func NewFiberServer() *fiber.App {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	// Use custom CORS middleware
	app.Use(middleware.CORSMiddleware())

	return app
}

// AsRoute is a helper function to reduce boilerplate.
// It tags the constructor so Fx knows to add it to the "routes" group.
func AsRoute(f any) any {
	return fx.Annotate(
		f,
		fx.As(new(common_api.Route)),    // Cast to Interface
		fx.ResultTags(`group:"routes"`), // Add to Group
	)
}

// RegisterAllRoutes takes the group "routes" (slice of interfaces)
// and calls Setup() on each one.
func RegisterAllRoutes(app *fiber.App, routes []common_api.Route) {
	log.Printf("Registering %d routes...\n", len(routes))
	for i, route := range routes {
		log.Printf("Setting up route %d: %T\n", i+1, route)
		route.Setup(app)
	}
	log.Println("All routes registered successfully")
}

// RegisterAllRoutesWithAnnotation wraps RegisterAllRoutes with fx annotations
var RegisterAllRoutesWithAnnotation = fx.Annotate(
	RegisterAllRoutes,
	fx.ParamTags(``, `group:"routes"`),
)

// StartServer creates a lifecycle hook to start Fiber in a goroutine
// and shut it down when the app exits.
func StartServer(lc fx.Lifecycle, app *fiber.App, cfg *config.Config) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			utils.SetSecret(cfg.JWTSecret)
			go func() {
				port := fmt.Sprintf(":%s", cfg.Port)
				if err := app.Listen(port); err != nil {
					log.Fatalf("Server failed to start: %v", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return app.Shutdown()
		},
	})
}

// InitializeIndexes ensures that necessary database indexes are created
func InitializeIndexes(
	lc fx.Lifecycle,
	userRepo user.UserRepository,
	groupRepo group.GroupRepository,
	appRepo application.ApplicationRepository,
	notifRepo notification.NotificationRepository,
	windowRepo semester.WindowRepository,
	ruleRepo eligibility.RuleRepository,
) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				defer cancel()

				if err := userRepo.EnsureIndexes(ctx); err != nil {
					log.Printf("Failed to ensure user indexes: %v", err)
				}
				if err := groupRepo.EnsureIndexes(ctx); err != nil {
					log.Printf("Failed to ensure group indexes: %v", err)
				}
				if err := appRepo.EnsureIndexes(ctx); err != nil {
					log.Printf("Failed to ensure application indexes: %v", err)
				}
				if err := notifRepo.EnsureIndexes(ctx); err != nil {
					log.Printf("Failed to ensure notification indexes: %v", err)
				}
				if err := windowRepo.EnsureIndexes(ctx); err != nil {
					log.Printf("Failed to ensure window indexes: %v", err)
				}
				if err := ruleRepo.EnsureIndexes(ctx); err != nil {
					log.Printf("Failed to ensure eligibility indexes: %v", err)
				}
			}()
			return nil
		},
	})
}

// StartScheduler wires the periodic jobs: closing expired application
// windows and pushing approved allocations to the registrar.
func StartScheduler(
	lc fx.Lifecycle,
	cfg *config.Config,
	windows semester.WindowService,
	sync registrar.SyncService,
	zlog *zap.Logger,
) {
	scheduler := cron.New()

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if _, err := scheduler.AddFunc(cfg.WindowSweepSchedule, func() {
				ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
				defer cancel()
				if err := windows.SweepExpired(ctx); err != nil {
					zlog.Error("window sweep failed", zap.Error(err))
				}
			}); err != nil {
				return fmt.Errorf("schedule window sweep: %w", err)
			}

			if sync.Enabled() {
				if _, err := scheduler.AddFunc(cfg.RegistrarSchedule, func() {
					ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
					defer cancel()
					if err := sync.RunSync(ctx); err != nil {
						zlog.Error("registrar sync failed", zap.Error(err))
					}
				}); err != nil {
					return fmt.Errorf("schedule registrar sync: %w", err)
				}
			}

			scheduler.Start()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			stopped := scheduler.Stop()
			select {
			case <-stopped.Done():
			case <-ctx.Done():
			}
			return nil
		},
	})
}

// @title           AcadHub Allocation API
// @version         1.0
// @description     Group lifecycle and project allocation service for academic project courses.

// @host            localhost:8080
// @BasePath        /
func main() {
	app := fx.New(
		fx.Provide(
			// Load Config
			config.LoadConfig,

			// Initialize Logger
			logger.NewLogger,

			// Initialize Fiber Server
			NewFiberServer,

			// Initialize Database
			database.NewDatabase,

			// Initialize Repository
			user.NewUserRepository,
			project.NewProjectRepository,
			group.NewGroupRepository,
			application.NewApplicationRepository,
			notification.NewNotificationRepository,
			semester.NewWindowRepository,
			eligibility.NewRuleRepository,

			// Initialize Service
			user.NewUserService,
			project.NewProjectService,
			group.NewGroupService,
			application.NewApplicationService,
			role.NewRoleService,
			notification.NewHub,
			notification.NewNotificationService,
			semester.NewWindowService,
			eligibility.NewRuleService,
			report.NewReportService,
			registrar.NewSyncService,
			allocation.NewFacade,

			// Interface Adapters to break circular dependencies and satisfy Fx
			func(db *database.MongodbDB) database.TxRunner { return db },
			func(r application.ApplicationRepository) group.SoloApplicationCleaner { return r },
			func(s semester.WindowService) application.WindowGate { return s },
			func(s eligibility.RuleService) application.EligibilityGate { return s },
			func(s role.RoleService) middleware.RoleChecker { return s },
			func(s notification.NotificationService) notification.Dispatcher { return s },

			// Initialize Controller
			user.NewUserController,
			project.NewProjectController,
			notification.NewNotificationController,
			semester.NewWindowController,
			eligibility.NewRuleController,
			report.NewReportController,
			system.NewDebugController,
			allocation.NewGroupController,
			allocation.NewApplicationController,
			allocation.NewRoleController,

			// Initialize API Routes
			AsRoute(user.NewUserApi),
			AsRoute(project.NewProjectApi),
			AsRoute(allocation.NewAllocationApi),
			AsRoute(notification.NewNotificationApi),
			AsRoute(semester.NewWindowApi),
			AsRoute(eligibility.NewRuleApi),
			AsRoute(report.NewReportApi),
			AsRoute(registrar.NewRegistrarApi),
			AsRoute(system.NewDebugApi),
			AsRoute(system.NewHealthApi),
			AsRoute(system.NewSwaggerApi),
		),
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log}
		}),
		fx.Invoke(
			// Register Routes & Start
			RegisterAllRoutesWithAnnotation,
			StartServer,
			StartScheduler,
			InitializeIndexes,
		),
	)

	app.Run()
}
