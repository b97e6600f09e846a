package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/noah-isme/edubase-reports-api/internal/config"
	"github.com/noah-isme/edubase-reports-api/internal/database"
	"github.com/noah-isme/edubase-reports-api/internal/handler"
	"github.com/noah-isme/edubase-reports-api/internal/middleware"
	"github.com/noah-isme/edubase-reports-api/internal/models"
	"github.com/noah-isme/edubase-reports-api/internal/observability"
	"github.com/noah-isme/edubase-reports-api/internal/repository"
	"github.com/noah-isme/edubase-reports-api/internal/router"
	"github.com/noah-isme/edubase-reports-api/internal/service"
	"github.com/noah-isme/edubase-reports-api/pkg/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(
		&models.Center{},
		&models.Subject{},
		&models.Student{},
		&models.Attendance{},
		&models.Grade{},
		&models.Report{},
		&models.ReportSchedule{},
	); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	redisClient, err := database.ConnectRedis(cfg.RedisURL)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer redisClient.Close()

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = database.ConnectNATS(cfg.NATSURL, cfg.AppName)
		if err != nil {
			log.Fatalf("failed to connect to nats: %v", err)
		}
		defer natsConn.Drain()
	}

	artifacts, err := buildArtifactStorage(cfg, logger)
	if err != nil {
		log.Fatalf("failed to initialize artifact storage: %v", err)
	}

	observability.RegisterMetrics()

	validate := validator.New(validator.WithRequiredStructEnabled())

	reportRepo := repository.NewReportRepository(db)
	reportDataRepo := repository.NewReportDataRepository(db)
	scheduleRepo := repository.NewScheduleRepository(db)

	aggregator := service.NewReportAggregator(reportDataRepo, logger)
	renderer := service.NewReportRenderer(cfg.MaxDetailRows, logger)

	var events service.ReportEventPublisher
	if natsConn != nil {
		events = service.NewNATSReportPublisher(natsConn, "reports", logger)
	}

	reportService, err := service.NewReportService(
		reportRepo,
		reportDataRepo,
		aggregator,
		renderer,
		artifacts,
		events,
		redisClient,
		cfg.ReportCacheTTL,
		validate,
		logger,
	)
	if err != nil {
		log.Fatalf("failed to initialize report service: %v", err)
	}

	scheduleService := service.NewScheduleService(scheduleRepo, reportDataRepo, validate, logger)

	reportHandler := handler.NewReportHandler(reportService, logger)
	scheduleHandler := handler.NewScheduleHandler(scheduleService, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		ReportHandler:   reportHandler,
		ScheduleHandler: scheduleHandler,
		JWTMiddleware:   middleware.JWTProtected(cfg.JWTSecret),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app)
}

func buildArtifactStorage(cfg config.Config, logger zerolog.Logger) (service.ArtifactStorage, error) {
	if cfg.ArtifactBackend == "cloudinary" {
		return storage.NewCloudinary(storage.CloudinaryConfig{
			CloudName: cfg.CloudinaryCloudName,
			APIKey:    cfg.CloudinaryAPIKey,
			APISecret: cfg.CloudinaryAPISecret,
			Folder:    cfg.CloudinaryUploadFolder,
		}, logger)
	}

	return storage.NewLocal(afero.NewOsFs(), cfg.ArtifactDir, logger)
}

func waitForShutdown(app *fiber.App) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
