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
	"github.com/rs/zerolog"

	"github.com/unipath-io/unipath-api/internal/config"
	"github.com/unipath-io/unipath-api/internal/database"
	"github.com/unipath-io/unipath-api/internal/handler"
	"github.com/unipath-io/unipath-api/internal/middleware"
	"github.com/unipath-io/unipath-api/internal/models"
	"github.com/unipath-io/unipath-api/internal/repository"
	"github.com/unipath-io/unipath-api/internal/router"
	"github.com/unipath-io/unipath-api/internal/rules"
	"github.com/unipath-io/unipath-api/internal/service"
	cloud "github.com/unipath-io/unipath-api/pkg/cloudinary"
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
		&models.Student{},
		&models.Program{},
		&models.Application{},
		&models.DocumentThread{},
		&models.ThreadMessage{},
	); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	redisClient, err := database.ConnectRedis(cfg.RedisURL)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer redisClient.Close()

	natsConn, err := database.ConnectNATS(cfg.NATSURL)
	if err != nil {
		log.Fatalf("failed to connect to nats: %v", err)
	}
	defer natsConn.Close()

	uploader, err := cloud.New(cloud.Config{
		CloudName: cfg.CloudinaryCloudName,
		APIKey:    cfg.CloudinaryAPIKey,
		APISecret: cfg.CloudinaryAPISecret,
		Folder:    cfg.CloudinaryUploadFolder,
	}, logger)
	if err != nil {
		log.Fatalf("failed to create cloudinary client: %v", err)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	engine := rules.New(cfg.Rules())

	programRepo := repository.NewProgramRepository(db)
	applicationRepo := repository.NewApplicationRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	threadRepo := repository.NewThreadRepository(db)

	programService, err := service.NewProgramService(programRepo, engine, validate, logger)
	if err != nil {
		log.Fatalf("failed to create program service: %v", err)
	}
	applicationService := service.NewApplicationService(applicationRepo, programRepo, studentRepo, engine, validate, logger)
	overviewService := service.NewStudentOverviewService(studentRepo, engine, redisClient, cfg.OverviewCacheTTL, logger)
	studentService := service.NewStudentService(studentRepo, overviewService, validate, logger)
	feedService := service.NewThreadFeedService(redisClient, natsConn, "unipath", logger)
	threadService := service.NewThreadService(threadRepo, applicationRepo, engine, uploader, feedService, validate, 10, logger)

	programHandler := handler.NewProgramHandler(programService, validate, logger)
	applicationHandler := handler.NewApplicationHandler(applicationService, validate, logger)
	studentHandler := handler.NewStudentHandler(studentService, overviewService, logger)
	threadHandler := handler.NewThreadHandler(threadService, feedService, validate, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		ProgramHandler:     programHandler,
		ApplicationHandler: applicationHandler,
		StudentHandler:     studentHandler,
		ThreadHandler:      threadHandler,
		JWTMiddleware:      middleware.JWTProtected(cfg.JWTSecret),
	})

	feedCtx, cancelFeed := context.WithCancel(context.Background())
	defer cancelFeed()
	feedService.Start(feedCtx)

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app)
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
