package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/trash2cash/backend/internal/config"
	"github.com/trash2cash/backend/internal/db"
	"github.com/trash2cash/backend/internal/model"
	"gorm.io/gorm"
)

type seedUser struct {
	ID     string
	Name   string
	Email  string
	Earned int64
	Items  []model.SubmissionItem
}

func main() {
	if err := run(); err != nil {
		log.Fatalf("seed failed: %v", err)
	}
}

func run() error {
	ctx := context.Background()
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	conn, err := db.Connect(cfg)
	if err != nil {
		return fmt.Errorf("connect db: %w", err)
	}

	var count int64
	if err := conn.WithContext(ctx).Model(&model.User{}).Count(&count).Error; err != nil {
		return fmt.Errorf("count users: %w", err)
	}
	if count > 0 && os.Getenv("FORCE_SEED") != "true" {
		log.Printf("users already exist; skipping seed (set FORCE_SEED=true to override)")
		return nil
	}

	users := buildSeedUsers()
	return conn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, su := range users {
			u := model.User{ID: su.ID, Name: su.Name, Email: su.Email, TotalTokens: su.Earned}
			if err := tx.Create(&u).Error; err != nil {
				return fmt.Errorf("create user %s: %w", su.ID, err)
			}
			sub := model.RecyclingSubmission{
				UserID:        su.ID,
				ItemCount:     len(su.Items),
				TokensAwarded: su.Earned,
				Items:         su.Items,
				CreatedAt:     time.Now().AddDate(0, 0, -3),
			}
			if err := tx.Create(&sub).Error; err != nil {
				return fmt.Errorf("create submission for %s: %w", su.ID, err)
			}
			log.Printf("seeded user %s with %d tokens", su.Name, su.Earned)
		}
		return nil
	})
}

func buildSeedUsers() []seedUser {
	return []seedUser{
		{
			ID: "seed-eco-warrior", Name: "Eco Warrior", Email: "eco@example.com", Earned: 15,
			Items: []model.SubmissionItem{
				{Name: "plastic bottle", Category: "plastic", Confidence: 0.95, TokenValue: 5},
				{Name: "aluminum can", Category: "metal", Confidence: 0.9, TokenValue: 6},
				{Name: "cardboard box", Category: "paper", Confidence: 0.85, TokenValue: 4},
			},
		},
		{
			ID: "seed-green-guardian", Name: "Green Guardian", Email: "green@example.com", Earned: 9,
			Items: []model.SubmissionItem{
				{Name: "glass jar", Category: "glass", Confidence: 0.92, TokenValue: 7},
				{Name: "newspaper", Category: "paper", Confidence: 0.8, TokenValue: 2},
			},
		},
		{
			ID: "seed-recycle-hero", Name: "Recycle Hero", Email: "hero@example.com", Earned: 5,
			Items: []model.SubmissionItem{
				{Name: "plastic bag", Category: "plastic", Confidence: 0.7, TokenValue: 2},
				{Name: "banana peel", Category: "organic", Confidence: 0.88, TokenValue: 3},
			},
		},
	}
}
