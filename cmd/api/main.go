// @title Quiz Arena API
// @version 1.0
// @description Timed quiz attempt API for the Quiz Arena competition platform.
// @host localhost:8090
// @BasePath /api
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type 'Bearer YOUR_JWT_TOKEN' to authorize.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"quiz-arena/internal/adapter"
	"quiz-arena/internal/cache"
	"quiz-arena/internal/config"
	"quiz-arena/internal/database"
	"quiz-arena/internal/handler"
	"quiz-arena/internal/logger"
	"quiz-arena/internal/middleware"
	"quiz-arena/internal/repository"
	"quiz-arena/internal/service"
	"quiz-arena/internal/session"
	"strconv"
	"syscall"
	"time"

	_ "quiz-arena/cmd/api/docs"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/swagger"
	"go.uber.org/zap"
)

// requestLogger is a middleware that logs HTTP requests
func requestLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		path := c.Path()
		method := c.Method()

		err := c.Next()

		duration := time.Since(start)
		status := c.Response().StatusCode()

		logger.Get().Info("HTTP Request",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", status),
			zap.Duration("duration", duration),
			zap.String("ip", c.IP()),
			zap.String("user_agent", c.Get("User-Agent")),
		)

		return err
	}
}

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	if err := logger.Initialize(cfg.Logger); err != nil {
		panic(err)
	}
	appLogger := logger.Get()
	defer logger.Sync()

	// Connect to database
	db, err := database.NewSQLXPostgresDB(cfg.GetDSN())
	if err != nil {
		appLogger.Fatal("Failed to connect to database", zap.Error(err))
	}
	appLogger.Info("Successfully connected to PostgreSQL")

	// Initialize repositories
	quizRepository := repository.NewSQLXQuizRepository(db)
	attemptRepository := repository.NewSQLXAttemptRepository(db)

	// Initialize Redis client and cache adapter
	redisClient, err := cache.NewRedisClient(cfg.Redis)
	if err != nil {
		appLogger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	appLogger.Info("Successfully connected to Redis")
	cacheAdapter := adapter.NewRedisCacheAdapter(redisClient)
	draftStore := adapter.NewCacheDraftStore(cacheAdapter, cfg.Draft.TTL)

	// Initialize session manager and restore attempts that were in flight
	// when the previous process stopped.
	sessionManager := session.NewManager(quizRepository, attemptRepository, draftStore)
	restoreCtx, restoreCancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := sessionManager.RestoreInProgress(restoreCtx); err != nil {
		appLogger.Error("Failed to restore in-progress attempts", zap.Error(err))
	}
	restoreCancel()

	// Initialize services and handlers
	attemptService := service.NewAttemptService(quizRepository, attemptRepository, draftStore, cacheAdapter, sessionManager)
	attemptHandler := handler.NewAttemptHandler(attemptService)
	validationMiddleware := middleware.NewValidationMiddleware()

	// Create Fiber app
	app := fiber.New(fiber.Config{
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.WriteTimeout,
		BodyLimit:    1 * 1024 * 1024,
	})

	app.Use(requestLogger())
	app.Use(cors.New(cors.Config{AllowOrigins: "*", AllowMethods: "GET,POST,PUT,DELETE,OPTIONS", AllowHeaders: "Origin,Content-Type,Accept,Authorization", MaxAge: 300}))
	app.Use(recover.New())
	app.Use(middleware.ErrorHandler()) // Global error handler

	// Swagger handler
	app.Get("/swagger/*", swagger.HandlerDefault)

	// API group (all attempt routes are protected)
	apiGroup := app.Group("/api")
	protected := middleware.Protected(cfg.Auth)

	apiGroup.Post("/quizzes/:quizId/attempts", protected, validationMiddleware.ValidateQuizID(), attemptHandler.StartAttempt)

	attemptGroup := apiGroup.Group("/attempts", protected)
	attemptGroup.Put("/:attemptId/answers/:questionId", validationMiddleware.ValidateAttemptID(), attemptHandler.SaveAnswer)
	attemptGroup.Post("/:attemptId/submit", validationMiddleware.ValidateAttemptID(), attemptHandler.SubmitAttempt)
	attemptGroup.Get("/:attemptId", validationMiddleware.ValidateAttemptID(), attemptHandler.GetAttemptState)
	attemptGroup.Get("/:attemptId/result", validationMiddleware.ValidateAttemptID(), attemptHandler.GetResult)

	// Start server
	go func() {
		appLogger.Info("Starting server", zap.Int("port", cfg.Server.Port), zap.String("env", os.Getenv("ENV")))
		if err := app.Listen(":" + strconv.Itoa(cfg.Server.Port)); err != nil {
			appLogger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLogger.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(ctx); err != nil {
		appLogger.Fatal("Server forced to shutdown", zap.Error(err))
	}
	sessionManager.Shutdown()
	appLogger.Info("Server exited gracefully")
}
