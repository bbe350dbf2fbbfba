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

	"github.com/scriptgrade/scriptgrade-api/internal/config"
	"github.com/scriptgrade/scriptgrade-api/internal/database"
	"github.com/scriptgrade/scriptgrade-api/internal/handler"
	"github.com/scriptgrade/scriptgrade-api/internal/middleware"
	"github.com/scriptgrade/scriptgrade-api/internal/models"
	"github.com/scriptgrade/scriptgrade-api/internal/queue"
	"github.com/scriptgrade/scriptgrade-api/internal/repository"
	"github.com/scriptgrade/scriptgrade-api/internal/router"
	"github.com/scriptgrade/scriptgrade-api/internal/service"
	"github.com/scriptgrade/scriptgrade-api/pkg/extract"
	"github.com/scriptgrade/scriptgrade-api/pkg/grader"
	"github.com/scriptgrade/scriptgrade-api/pkg/storage"
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
		&models.User{}, &models.Class{},
		&models.Subject{}, &models.Question{}, &models.RubricItem{},
		&models.QuestionSet{}, &models.QuestionSetEntry{},
		&models.Evaluation{}, &models.EvaluationDetail{}, &models.EvaluationTransition{},
		&models.Recheck{},
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
	defer natsConn.Drain()

	uploader := buildUploader(cfg, logger)

	gradingClient, err := grader.New(grader.Config{
		URL:     cfg.GradingServiceURL,
		Timeout: cfg.GradingTimeout,
	}, logger)
	if err != nil {
		log.Fatalf("failed to create grading client: %v", err)
	}

	extractor := extract.New(extract.Config{
		APIKey: cfg.OpenAIAPIKey,
		Model:  cfg.ExtractionModel,
	}, logger)

	validate := validator.New(validator.WithRequiredStructEnabled())

	userRepo := repository.NewUserRepository(db)
	classRepo := repository.NewClassRepository(db)
	subjectRepo := repository.NewSubjectRepository(db)
	questionRepo := repository.NewQuestionRepository(db)
	questionSetRepo := repository.NewQuestionSetRepository(db)
	evaluationRepo := repository.NewEvaluationRepository(db)
	recheckRepo := repository.NewRecheckRepository(db)

	evaluationQueue := queue.NewEvaluations(natsConn, cfg.EvaluationQueueSubject, logger)

	authService := service.NewAuthService(userRepo, classRepo, cfg.JWTSecret, cfg.TokenTTL, logger)
	subjectService := service.NewSubjectService(subjectRepo, logger)
	questionService := service.NewQuestionService(questionRepo, subjectRepo, logger)
	questionSetService := service.NewQuestionSetService(questionSetRepo, questionRepo, subjectRepo, logger)
	batchService := service.NewBatchEvaluationService(evaluationRepo, questionRepo, gradingClient, logger)
	evaluationService := service.NewEvaluationService(evaluationRepo, questionRepo, uploader, extractor, evaluationQueue, logger)
	recheckService := service.NewRecheckService(recheckRepo, evaluationRepo, logger)
	reportService := service.NewReportService(questionSetRepo, evaluationRepo, redisClient, cfg.ReportCacheTTL, logger)

	workerCtx, stopWorker := context.WithCancel(context.Background())
	defer stopWorker()
	sub, err := evaluationQueue.Subscribe(workerCtx, func(ctx context.Context, evaluationID uint) {
		if _, err := batchService.EvaluateBatch(ctx, []uint{evaluationID}); err != nil {
			logger.Error().Err(err).Uint("evaluation_id", evaluationID).Msg("queued evaluation failed")
		}
	})
	if err != nil {
		log.Fatalf("failed to start evaluation worker: %v", err)
	}
	defer sub.Drain()

	authHandler := handler.NewAuthHandler(authService, validate, logger)
	subjectHandler := handler.NewSubjectHandler(subjectService, validate, logger)
	questionHandler := handler.NewQuestionHandler(questionService, validate, logger)
	questionSetHandler := handler.NewQuestionSetHandler(questionSetService, validate, logger)
	evaluationHandler := handler.NewEvaluationHandler(evaluationService, batchService, validate, logger)
	recheckHandler := handler.NewRecheckHandler(recheckService, validate, logger)
	reportHandler := handler.NewReportHandler(reportService, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
		BodyLimit:    32 * 1024 * 1024,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		AuthHandler:        authHandler,
		SubjectHandler:     subjectHandler,
		QuestionHandler:    questionHandler,
		QuestionSetHandler: questionSetHandler,
		EvaluationHandler:  evaluationHandler,
		RecheckHandler:     recheckHandler,
		ReportHandler:      reportHandler,
		JWTMiddleware:      middleware.JWTProtected(cfg.JWTSecret),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app)
}

// buildUploader assembles the answer-sheet storage chain: Cloudinary when
// credentials are configured, always backed by local disk so submissions
// survive a Cloudinary outage.
func buildUploader(cfg config.Config, logger zerolog.Logger) storage.Uploader {
	local, err := storage.NewLocal(cfg.LocalStorageDir, cfg.PublicBaseURL, logger)
	if err != nil {
		log.Fatalf("failed to prepare local storage: %v", err)
	}

	if cfg.CloudinaryCloudName == "" {
		return storage.NewFallback(nil, local, logger)
	}

	cloud, err := storage.NewCloudinary(storage.CloudinaryConfig{
		CloudName: cfg.CloudinaryCloudName,
		APIKey:    cfg.CloudinaryAPIKey,
		APISecret: cfg.CloudinaryAPISecret,
		Folder:    cfg.CloudinaryUploadFolder,
	}, logger)
	if err != nil {
		log.Fatalf("failed to create cloudinary client: %v", err)
	}

	return storage.NewFallback(cloud, local, logger)
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
