package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"go-outreach-automation/internal/config"
	"go-outreach-automation/internal/database"
	"go-outreach-automation/internal/models"
)

// Applies migrations and checks that the repository can read every target bucket.
func main() {
	cfg, err := config.Load(config.DefaultPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Database.URL == "" {
		log.Fatal("DATABASE_URL environment variable is not set. Please check your .env file.")
	}

	fmt.Println("Applying migrations...")
	if err := database.Migrate(cfg.Database.URL); err != nil {
		log.Fatalf("❌ Migration failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	fmt.Println("Attempting to connect to PostgreSQL...")
	repo, err := database.ConnectDB(ctx, cfg.Database.URL)
	if err != nil {
		log.Fatalf("❌ Failed to connect to the database. Error: %v\n(Check your connection string, password, and ensure you have internet access)", err)
	}
	defer repo.Close()

	for _, status := range []models.TargetStatus{models.TargetPending, models.TargetApproved, models.TargetDismissed} {
		targets, err := repo.ListTargetsByStatus(ctx, status)
		if err != nil {
			log.Fatalf("❌ Query failed: %v", err)
		}
		fmt.Printf("📦 %s targets: %d\n", status, len(targets))
	}

	queued, err := repo.ListDrafts(ctx, database.DraftFilter{Status: models.DraftQueued})
	if err != nil {
		log.Fatalf("❌ Query failed: %v", err)
	}
	fmt.Printf("📝 Drafts waiting for review: %d\n", len(queued))
	fmt.Println("✅ Successfully connected to the database!")
}
