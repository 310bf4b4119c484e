package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/Rithish-Sripaul/mro-system/internal/config"
	"github.com/Rithish-Sripaul/mro-system/internal/database"
	"github.com/Rithish-Sripaul/mro-system/internal/mro/repository"
	"github.com/Rithish-Sripaul/mro-system/internal/mro/service"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	perSchedule := flag.Int("n", 50, "jobs to create per schedule type")
	userID := flag.String("user", config.GetEnvOrDefault("SEED_USER_ID", "seed"), "created_by for seeded jobs")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer logger.Sync()

	db, err := database.Open(cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer database.Close(db)

	if err := database.Migrate(db, logger); err != nil {
		logger.Fatal("Failed to migrate database", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	inserted, err := service.SeedJobs(ctx, repository.NewRepositories(db), *userID, *perSchedule, time.Now())
	if err != nil {
		logger.Fatal("Failed to seed jobs", zap.Error(err))
	}
	logger.Info("Seeded jobs", zap.Int("inserted", inserted), zap.Int("per_schedule", *perSchedule))
}
