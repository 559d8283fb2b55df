package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"

	"menuservice/internal/config"
	"menuservice/internal/db"
	apperrors "menuservice/internal/errors"
	"menuservice/internal/logger"
	"menuservice/internal/model"
	"menuservice/internal/repository"
)

// Seeds the admin account from SEED_ADMIN_EMAIL / SEED_ADMIN_PASSWORD and
// creates a category record for every menu category.
func main() {
	log.Println("Starting seed script...")

	_ = godotenv.Load()
	cfg := config.Load()
	ctx := context.Background()

	gormDB, err := db.NewMySQL(cfg.MySQLDSN, logger.Init(cfg.Env))
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	if err := db.MigrateUsers(gormDB); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	log.Println("Database migrations completed")

	mongoClient, err := db.NewMongo(ctx, cfg.MongoURI)
	if err != nil {
		log.Fatalf("Failed to connect to mongo: %v", err)
	}
	defer func() {
		_ = mongoClient.Disconnect(ctx)
	}()
	database := mongoClient.Database(cfg.MongoDB)
	if err := db.EnsureIndexes(ctx, database); err != nil {
		log.Fatalf("Failed to ensure indexes: %v", err)
	}

	email := os.Getenv("SEED_ADMIN_EMAIL")
	password := os.Getenv("SEED_ADMIN_PASSWORD")
	if email != "" && password != "" {
		created, err := seedAdmin(ctx, repository.NewUserRepository(gormDB), email, password)
		if err != nil {
			log.Fatalf("Failed to seed admin: %v", err)
		}
		if created {
			log.Printf("Admin %s created", email)
		} else {
			log.Printf("Admin %s already exists", email)
		}
	} else {
		log.Println("SEED_ADMIN_EMAIL or SEED_ADMIN_PASSWORD not set, skipping admin")
	}

	categories := repository.NewCategoryRepository(database)
	for _, name := range model.Categories {
		if err := categories.Ensure(ctx, name); err != nil {
			log.Fatalf("Failed to seed category %s: %v", name, err)
		}
	}

	log.Printf("Seed completed successfully!")
	log.Printf("  - Categories ensured: %d", len(model.Categories))
}

// seedAdmin creates the admin account unless a user with that email exists.
func seedAdmin(ctx context.Context, repo repository.UserRepository, email, password string) (bool, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	_, err := repo.FindByEmail(ctx, email)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return false, fmt.Errorf("error checking user %s: %w", email, err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return false, fmt.Errorf("hash password: %w", err)
	}

	admin := &model.User{
		Name:         "Admin",
		Email:        email,
		PasswordHash: string(hash),
		Role:         model.RoleAdmin,
	}
	if err := repo.Create(ctx, admin); err != nil {
		return false, fmt.Errorf("error creating user %s: %w", email, err)
	}
	return true, nil
}
