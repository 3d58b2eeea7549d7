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

	"github.com/escolarhq/notas-api/internal/config"
	"github.com/escolarhq/notas-api/internal/database"
	"github.com/escolarhq/notas-api/internal/handler"
	"github.com/escolarhq/notas-api/internal/middleware"
	"github.com/escolarhq/notas-api/internal/models"
	"github.com/escolarhq/notas-api/internal/repository"
	"github.com/escolarhq/notas-api/internal/router"
	"github.com/escolarhq/notas-api/internal/service"
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
		&models.Student{}, &models.SchoolYear{}, &models.GradeLevel{}, &models.Section{}, &models.Subject{},
		&models.Evaluation{}, &models.Score{}, &models.PeriodAggregate{}, &models.DefinitiveGrade{},
		&models.GradingPolicy{}, &models.ActivityLog{},
	); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	redisClient, err := database.ConnectRedis(cfg.RedisURL)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer redisClient.Close()

	validate := validator.New(validator.WithRequiredStructEnabled())

	txRunner := repository.NewTxRunner(db)
	scoreRepo := repository.NewScoreRepository(db)
	evaluationRepo := repository.NewEvaluationRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	aggregateRepo := repository.NewPeriodAggregateRepository(db)
	definitiveRepo := repository.NewDefinitiveGradeRepository(db)
	policyRepo := repository.NewGradingPolicyRepository(db)
	activityRepo := repository.NewActivityLogRepository(db)

	activityService := service.NewActivityService(activityRepo, logger)
	aggregator := service.NewPeriodAggregator(evaluationRepo, scoreRepo, aggregateRepo, logger)
	reportService := service.NewReportService(aggregateRepo, definitiveRepo, redisClient, cfg.ReportCacheTTL, logger)
	scoreService := service.NewScoreService(txRunner, scoreRepo, evaluationRepo, studentRepo, aggregator, validate, activityService, logger)
	batchService := service.NewBatchScoreService(txRunner, scoreRepo, evaluationRepo, studentRepo, aggregator, validate, activityService, logger)
	definitiveService := service.NewDefinitiveGradeService(txRunner, aggregateRepo, definitiveRepo, policyRepo, studentRepo, validate, activityService, reportService, logger)
	remediationService := service.NewRemediationService(txRunner, definitiveRepo, policyRepo, validate, activityService, logger)

	scoreHandler := handler.NewScoreHandler(scoreService, batchService, logger)
	gradingHandler := handler.NewGradingHandler(definitiveService, remediationService, logger)
	reportHandler := handler.NewReportHandler(reportService, logger)
	activityHandler := handler.NewActivityHandler(activityService, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		ScoreHandler:    scoreHandler,
		GradingHandler:  gradingHandler,
		ReportHandler:   reportHandler,
		ActivityHandler: activityHandler,
		JWTMiddleware:   middleware.JWTProtected(cfg.JWTSecret),
	})

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
