// Command migrate creates the result history schema for the configured database.
package main

import (
	"context"
	"log"
	"time"

	"pdf-quiz/internal/config"
	"pdf-quiz/internal/database"
	"pdf-quiz/internal/logger"

	"go.uber.org/zap"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.Database.Driver == "" {
		log.Fatalf("DATABASE_DRIVER is not set. Please set it in the .env file.")
	}

	if err := logger.Initialize(cfg.Logger); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	l := logger.Get()
	defer logger.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	db, err := database.Open(ctx, cfg.Database)
	if err != nil {
		l.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if err := database.EnsureSchema(ctx, db); err != nil {
		l.Fatal("Failed to apply schema", zap.Error(err))
	}
	l.Info("Schema is up to date", zap.String("driver", cfg.Database.Driver))
}
