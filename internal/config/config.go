package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

const (
	defaultJWTSecret     = "change-me"
	defaultSessionSecret = "change-me-too"
)

// Config holds application level configuration loaded from environment variables.
type Config struct {
	Port          string
	Env           string
	MongoURI      string
	MongoDB       string
	MySQLDSN      string
	RedisAddr     string
	RedisDB       int
	RedisPass     string
	JWTSecret     string
	JWTExpire     time.Duration
	SessionSecret string
	FrontendURL   string
	SwaggerHost   string
}

// Load builds Config from environment with sensible defaults.
func Load() *Config {
	return &Config{
		Port:          getEnv("PORT", "5000"),
		Env:           getEnv("NODE_ENV", "development"),
		MongoURI:      getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:       getEnv("MONGO_DB", "restaurant"),
		MySQLDSN:      getEnv("MYSQL_DSN", "user:password@tcp(localhost:3306)/restaurant?charset=utf8mb4&parseTime=True&loc=Local"),
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisDB:       getEnvInt("REDIS_DB", 0),
		RedisPass:     os.Getenv("REDIS_PASSWORD"),
		JWTSecret:     getEnv("JWT_SECRET", defaultJWTSecret),
		JWTExpire:     getEnvDuration("JWT_EXPIRE", 24*time.Hour),
		SessionSecret: getEnv("SESSION_SECRET", defaultSessionSecret),
		FrontendURL:   getEnv("FRONTEND_URL", "http://localhost:3000"),
		SwaggerHost:   os.Getenv("SWAGGER_HOST"),
	}
}

// Production reports whether the process runs in production mode, which
// switches auth cookies to Secure with SameSite=None.
func (c *Config) Production() bool {
	return c.Env == "production"
}

// Validate rejects configurations that are unsafe to serve traffic with.
func (c *Config) Validate() error {
	if c.JWTExpire <= 0 {
		return fmt.Errorf("JWT_EXPIRE must be > 0")
	}
	if c.MongoURI == "" {
		return fmt.Errorf("MONGO_URI must not be empty")
	}
	if c.Production() {
		if c.JWTSecret == defaultJWTSecret {
			return fmt.Errorf("JWT_SECRET must be set in production")
		}
		if c.SessionSecret == defaultSessionSecret {
			return fmt.Errorf("SESSION_SECRET must be set in production")
		}
	}
	return nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return def
}

// getEnvDuration accepts Go durations ("12h") and the bare-day form ("30d").
func getEnvDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if n := len(v); n > 1 && v[n-1] == 'd' {
		if days, err := strconv.Atoi(v[:n-1]); err == nil {
			return time.Duration(days) * 24 * time.Hour
		}
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	return def
}
