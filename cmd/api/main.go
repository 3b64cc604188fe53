// @title PDF Quiz API
// @version 1.0
// @description Turns uploaded PDF documents into multiple-choice quizzes generated by an LLM.
// @contact.name API Support
// @license.name Apache 2.0
// @license.url http://www.apache.org/licenses/LICENSE-2.0.html
// @host localhost:8090
// @BasePath /api
// @schemes http https
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	_ "pdf-quiz/cmd/api/docs"
	"pdf-quiz/internal/adapter"
	"pdf-quiz/internal/adapter/llm"
	"pdf-quiz/internal/adapter/pdftext"
	"pdf-quiz/internal/adapter/quizgen"
	"pdf-quiz/internal/cache"
	"pdf-quiz/internal/config"
	"pdf-quiz/internal/database"
	"pdf-quiz/internal/domain"
	"pdf-quiz/internal/handler"
	"pdf-quiz/internal/logger"
	"pdf-quiz/internal/middleware"
	"pdf-quiz/internal/repository"
	"pdf-quiz/internal/service"
	"pdf-quiz/internal/storage"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/swagger"
	"go.uber.org/zap"
)

//go:generate swag init -g main.go -o docs --parseInternal

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("%v.", err)
	}

	if err := logger.Initialize(cfg.Logger); err != nil {
		panic(err)
	}
	appLogger := logger.Get()
	defer logger.Sync()

	ctx := context.Background()

	var cacheAdapter domain.Cache
	if cfg.Redis.Address != "" {
		redisClient, err := cache.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			appLogger.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer redisClient.Close()
		cacheAdapter = adapter.NewRedisCacheAdapter(redisClient)
		appLogger.Info("RedisCacheAdapter initialized", zap.String("address", cfg.Redis.Address))
	} else {
		cacheAdapter = adapter.NewMemoryCacheAdapter()
		appLogger.Warn("REDIS_ADDRESS not set, using in-process cache; sessions are lost on restart")
	}

	blobs, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		appLogger.Fatal("Failed to initialize blob storage", zap.Error(err))
	}
	appLogger.Info("Blob storage initialized", zap.String("driver", cfg.Storage.Driver))

	model, err := llm.NewModel(ctx, cfg.LLM)
	if err != nil {
		appLogger.Fatal("Failed to create LLM client", zap.Error(err))
	}
	llmGenerator, err := quizgen.NewLLMQuizGenerator(model, quizgen.Options{
		Prompts:     quizgen.PromptBuilder{NumQuestions: cfg.Quiz.NumQuestions, MaxTextRunes: cfg.Quiz.MaxTextRunes},
		Temperature: cfg.LLM.Temperature,
		Timeout:     cfg.LLM.Timeout,
	}, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to create quiz generator", zap.Error(err))
	}
	generator := quizgen.NewCachedGenerator(llmGenerator, cacheAdapter, cfg.Quiz.CacheTTL, cfg.Quiz.NumQuestions, appLogger)
	appLogger.Info("Quiz generator initialized",
		zap.String("provider", cfg.LLM.Provider),
		zap.String("model", modelName(cfg.LLM)))

	results := repository.NewNoopResultRepository()
	if cfg.Database.Driver != "" {
		db, err := database.Open(ctx, cfg.Database)
		if err != nil {
			appLogger.Fatal("Failed to connect to database", zap.Error(err))
		}
		defer db.Close()
		if err := database.EnsureSchema(ctx, db); err != nil {
			appLogger.Fatal("Failed to prepare database schema", zap.Error(err))
		}
		results = repository.NewSQLXResultRepository(db)
		appLogger.Info("Result history enabled", zap.String("driver", cfg.Database.Driver))
	}

	quizService := service.NewQuizService(
		blobs,
		pdftext.NewExtractor(appLogger),
		generator,
		repository.NewCacheSessionRepository(cacheAdapter, cfg.Quiz.SessionTTL),
		results,
		appLogger,
	)
	quizHandler := handler.NewQuizHandler(quizService, cacheAdapter)

	app := fiber.New(fiber.Config{
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.ReadTimeout,
		BodyLimit:    cfg.Server.BodyLimitMB * 1024 * 1024,
		ErrorHandler: middleware.ErrorHandler(),
	})

	app.Use(middleware.RequestLogger())
	app.Use(cors.New(cors.Config{AllowOrigins: "*", AllowMethods: "GET,POST,PUT,OPTIONS", AllowHeaders: "Origin,Content-Type,Accept", MaxAge: 300}))
	app.Use(recover.New())

	app.Get("/swagger/*", swagger.HandlerDefault)
	quizHandler.RegisterRoutes(app.Group("/api"))

	go func() {
		appLogger.Info("Starting server", zap.Int("port", cfg.Server.Port), zap.String("env", cfg.Logger.Env))
		if err := app.Listen(":" + strconv.Itoa(cfg.Server.Port)); err != nil {
			appLogger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLogger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		appLogger.Error("Server forced to shutdown", zap.Error(err))
	}
	appLogger.Info("Server exited gracefully")
}

func modelName(cfg config.LLMConfig) string {
	if cfg.Model != "" {
		return cfg.Model
	}
	return llm.DefaultModel(cfg.Provider)
}
