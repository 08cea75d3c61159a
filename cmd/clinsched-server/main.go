package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/clinsched/clinsched/internal/config"
	"github.com/clinsched/clinsched/internal/domain/availability"
	"github.com/clinsched/clinsched/internal/domain/booking"
	"github.com/clinsched/clinsched/internal/domain/surgery"
	"github.com/clinsched/clinsched/internal/domain/task"
	"github.com/clinsched/clinsched/internal/notify"
	"github.com/clinsched/clinsched/internal/platform/calendar"
	"github.com/clinsched/clinsched/internal/platform/db"
	"github.com/clinsched/clinsched/internal/platform/equipment"
	"github.com/clinsched/clinsched/internal/platform/lock"
	"github.com/clinsched/clinsched/internal/platform/middleware"
)

const migrationsDir = "migrations"

func main() {
	rootCmd := &cobra.Command{
		Use:   "clinsched-server",
		Short: "Medical practice scheduling API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(sweepCmd())
	rootCmd.AddCommand(seedCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger() zerolog.Logger {
	if os.Getenv("ENV") == "development" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the scheduling API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func runServer() error {
	logger := newLogger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}

	practiceTZ, err := time.LoadLocation(cfg.PracticeTimezone)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load practice timezone")
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	// Booking lock: Redis when configured, in-process otherwise.
	var locker lock.Locker
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("invalid REDIS_URL")
		}
		client := redis.NewClient(opts)
		if err := client.Ping(ctx).Err(); err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer client.Close()
		locker = lock.NewRedisLocker(client, cfg.LockTTL)
		logger.Info().Msg("using redis booking lock")
	} else {
		locker = lock.NewMemoryLocker()
		logger.Warn().Msg("using in-process booking lock, single instance only")
	}

	// External calendar.
	var oracle calendar.Oracle
	switch cfg.CalendarMode {
	case "google":
		oracle, err = calendar.NewGoogleOracle(ctx, cfg.GoogleCredsJSON, cfg.CalendarTimeout)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to create google calendar client")
		}
		logger.Info().Msg("using google calendar")
	default:
		oracle = calendar.NewFake()
		logger.Warn().Msg("using fake calendar, free/busy always empty")
	}

	txRunner := func(ctx context.Context, fn func(ctx context.Context) error) error {
		return db.WithTx(ctx, pool, fn)
	}

	// Repositories.
	templateRepo := availability.NewTemplateRepoPG(pool)
	resourceRepo := availability.NewResourceRepoPG(pool)
	bookingRepo := booking.NewRepoPG(pool)
	taskRepo := task.NewRepoPG(pool)
	surgeryRepo := surgery.NewRepoPG(pool)
	requirementRepo := surgery.NewRequirementRepoPG(pool)
	markerRepo := surgery.NewMarkerRepoPG(pool)

	// Availability and booking.
	availSvc := availability.NewService(templateRepo, resourceRepo)
	resolver := availability.NewResolver(templateRepo, resourceRepo,
		booking.NewConflictChecker(bookingRepo), oracle, practiceTZ)
	matcher := availability.NewMatcher(resolver)
	orchestrator := booking.NewOrchestrator(bookingRepo, resolver, matcher,
		resourceRepo, oracle, locker, logger)

	// Surgery preparation.
	equipmentSys := equipment.NewMemory()
	engine := task.NewEngine(taskRepo, surgery.NewDateSource(surgeryRepo), txRunner, logger)
	surgerySvc := surgery.NewService(surgeryRepo, requirementRepo, engine, equipmentSys, txRunner, logger)

	sender := notify.NewLogSender(logger)
	dispatcher := notify.NewDispatcher(sender, sender, sender, notify.NewTemplateEngine())
	gate := surgery.NewGate(surgeryRepo, requirementRepo, engine, equipmentSys,
		dispatcher, surgery.GateConfig{}, txRunner, logger)

	// Periodic sweep: auto-block, requirement expiry, reminders.
	sweeper := surgery.NewSweeper(surgeryRepo, requirementRepo, dispatcher, markerRepo, practiceTZ, logger)
	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	go sweeper.RunPeriodic(sweepCtx, cfg.SweepInterval)

	// Echo server.
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.RequestTimeout(30 * time.Second))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))

	apiV1 := e.Group("/api/v1")
	apiV1.Use(middleware.RateLimit(middleware.DefaultRateLimitConfig()))

	availability.NewHandler(availSvc, resolver).RegisterRoutes(apiV1)
	booking.NewHandler(orchestrator).RegisterRoutes(apiV1)
	task.NewHandler(engine).RegisterRoutes(apiV1)
	surgery.NewHandler(surgerySvc, gate).RegisterRoutes(apiV1)
	notify.NewHandler(dispatcher).RegisterRoutes(apiV1)

	e.GET("/health/db", db.HealthHandler(pool))

	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	stopSweep()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			count, err := db.NewMigrator(pool, migrationsDir).Up(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("applied %d migration(s)\n", count)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			statuses, err := db.NewMigrator(pool, migrationsDir).Status(ctx)
			if err != nil {
				return err
			}
			for _, s := range statuses {
				state := "pending"
				if s.Applied {
					state = "applied " + s.AppliedAt.Format(time.RFC3339)
				}
				fmt.Printf("%03d  %-40s %s\n", s.Version, s.Name, state)
			}
			return nil
		},
	})

	return cmd
}

func sweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Run one readiness sweep pass",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			practiceTZ, err := time.LoadLocation(cfg.PracticeTimezone)
			if err != nil {
				return fmt.Errorf("load practice timezone: %w", err)
			}
			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			sender := notify.NewLogSender(logger)
			dispatcher := notify.NewDispatcher(sender, sender, sender, notify.NewTemplateEngine())
			sweeper := surgery.NewSweeper(
				surgery.NewRepoPG(pool),
				surgery.NewRequirementRepoPG(pool),
				dispatcher,
				surgery.NewMarkerRepoPG(pool),
				practiceTZ,
				logger,
			)
			return sweeper.Sweep(ctx)
		},
	}
}

func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Seed development resources and weekly templates",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.IsProduction() {
				return fmt.Errorf("seed is not allowed in production")
			}
			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			svc := availability.NewService(
				availability.NewTemplateRepoPG(pool),
				availability.NewResourceRepoPG(pool),
			)
			faker := gofakeit.New(0)

			seedGroup := func(role string, count int) error {
				for i := 0; i < count; i++ {
					r := &availability.Resource{
						Name:       "Dr. " + faker.LastName(),
						Role:       role,
						Location:   "vienna",
						CalendarID: faker.Email(),
						Active:     true,
					}
					if err := svc.CreateResource(ctx, r); err != nil {
						return err
					}
					// Monday through Friday office hours.
					for weekday := 1; weekday <= 5; weekday++ {
						t := &availability.Template{
							ResourceID: r.ID,
							Location:   r.Location,
							Weekday:    weekday,
							StartTime:  "08:00",
							EndTime:    "16:00",
							Active:     true,
						}
						if err := svc.CreateTemplate(ctx, t); err != nil {
							return err
						}
					}
					fmt.Printf("seeded %s %s\n", role, r.Name)
				}
				return nil
			}

			if err := seedGroup(availability.RoleSurgeon, 4); err != nil {
				return err
			}
			return seedGroup(availability.RoleAnesthesiologist, 3)
		},
	}
}
