package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "menuservice/docs" // swagger docs

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"menuservice/internal/auth"
	"menuservice/internal/cache"
	"menuservice/internal/config"
	"menuservice/internal/db"
	"menuservice/internal/handler"
	"menuservice/internal/logger"
	"menuservice/internal/metrics"
	"menuservice/internal/model"
	"menuservice/internal/repository"
	"menuservice/internal/router"
	"menuservice/internal/service"
)

const shutdownTimeout = 10 * time.Second

// @title Restaurant Menu API
// @version 1.0
// @description Menu items, reviews and category averages with cookie or bearer JWT authentication.
// @host localhost:5000
// @BasePath /api
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	if err := godotenv.Load(); err != nil {
		logger.L.Info("no .env file found, using process environment")
	}

	cfg := config.Load()
	log := logger.Init(cfg.Env)
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err.Error())
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	mongoClient, err := db.NewMongo(ctx, cfg.MongoURI)
	if err != nil {
		log.Error("mongo init", "error", err.Error())
		os.Exit(1)
	}
	defer func() {
		_ = mongoClient.Disconnect(context.Background())
	}()
	database := mongoClient.Database(cfg.MongoDB)

	gormDB, err := db.NewMySQL(cfg.MySQLDSN, log)
	if err != nil {
		log.Error("mysql init", "error", err.Error())
		os.Exit(1)
	}

	// Drop stored data if RESET_DB environment variable is set
	if os.Getenv("RESET_DB") == "true" {
		log.Warn("RESET_DB=true detected, dropping users table and menu collections")
		if err := gormDB.Migrator().DropTable(&model.User{}); err != nil {
			log.Warn("drop users table", "error", err.Error())
		}
		if err := database.Drop(ctx); err != nil {
			log.Warn("drop mongo database", "error", err.Error())
		}
	}

	if err := db.MigrateUsers(gormDB); err != nil {
		log.Error("auto-migrate", "error", err.Error())
		os.Exit(1)
	}
	if err := db.EnsureIndexes(ctx, database); err != nil {
		log.Error("ensure indexes", "error", err.Error())
		os.Exit(1)
	}

	cacheClient := cache.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	defer cacheClient.Close()
	if err := cacheClient.Ping(ctx); err != nil {
		log.Warn("redis unreachable, running without cache and token revocation", "error", err.Error())
	}

	m := metrics.New()

	// Initialize repositories
	userRepo := repository.NewUserRepository(gormDB)
	menuRepo := repository.NewMenuRepository(database)
	reviewRepo := repository.NewReviewRepository(database)
	categoryRepo := repository.NewCategoryRepository(database)

	// Initialize auth components
	jwtService := auth.NewJWTService(cfg.JWTSecret, cfg.JWTExpire)
	tokenStore := auth.NewTokenStore(cacheClient)
	guard := auth.NewGuard(auth.GuardConfig{
		Tokens:      jwtService,
		Users:       userRepo,
		Revocations: tokenStore,
		Metrics:     m,
	})

	// Initialize services
	validator := service.NewValidator()
	authService := service.NewAuthService(userRepo, jwtService, tokenStore)
	menuService := service.NewMenuService(menuRepo, reviewRepo, categoryRepo, cacheClient, m, validator)
	reviewService := service.NewReviewService(reviewRepo, menuRepo, validator)

	// Initialize handlers
	authHandler := handler.NewAuthHandler(authService, handler.CookieConfig{
		Name:   guard.CookieName(),
		TTL:    jwtService.TTL(),
		Secure: cfg.Production(),
	})
	menuHandler := handler.NewMenuHandler(menuService)
	reviewHandler := handler.NewReviewHandler(reviewService)

	e := echo.New()
	e.HideBanner = true
	router.Register(e, cfg, m, guard, reviewRepo, authHandler, menuHandler, reviewHandler)

	log.Info("swagger documentation available", "url", swaggerURL(cfg.SwaggerHost))

	errCh := make(chan error, 1)
	go func() {
		log.Info("http server starting", "port", cfg.Port, "env", cfg.Env)
		errCh <- e.Start(":" + cfg.Port)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := e.Shutdown(shutdownCtx); err != nil {
			log.Error("shutdown server", "error", err.Error())
		}
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server exited", "error", err.Error())
		}
	}
}

// swaggerURL accepts a host with or without scheme.
func swaggerURL(host string) string {
	if host == "" {
		return "http://localhost:5000/swagger/index.html"
	}
	if !strings.HasPrefix(host, "http://") && !strings.HasPrefix(host, "https://") {
		host = "http://" + host
	}
	return strings.TrimSuffix(host, "/") + "/swagger/index.html"
}
