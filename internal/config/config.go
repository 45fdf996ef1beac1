package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
)

type Config struct {
	DatabaseURL string

	HTTPAddr    string
	CORSOrigins []string
	UploadDir   string

	JWTSecret         string
	AdminUser         string
	AdminPasswordHash string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	CacheTTL      time.Duration

	TelegramToken string

	LogLevel zerolog.Level
}

// DatabaseConfig is what tools that only touch the database need.
type DatabaseConfig struct {
	DatabaseURL string
	LogLevel    zerolog.Level
}

func loadDotEnv() error {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("error loading .env file: %w", err)
	}
	return nil
}

// Load reads .env when present and then the environment.
func Load() (Config, error) {
	if err := loadDotEnv(); err != nil {
		return Config{}, err
	}
	return FromEnv()
}

// LoadDatabase is Load without the server settings; JWT_SECRET is not needed.
func LoadDatabase() (DatabaseConfig, error) {
	if err := loadDotEnv(); err != nil {
		return DatabaseConfig{}, err
	}
	return DatabaseFromEnv()
}

func DatabaseFromEnv() (DatabaseConfig, error) {
	level, err := logLevel()
	if err != nil {
		return DatabaseConfig{}, err
	}
	return DatabaseConfig{DatabaseURL: databaseURL(), LogLevel: level}, nil
}

func databaseURL() string {
	if url := strings.TrimSpace(os.Getenv("DATABASE_URL")); url != "" {
		return url
	}
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%d sslmode=%s",
		getEnv("DB_HOST", "localhost"),
		getEnv("DB_USER", "postgres"),
		getEnv("DB_PASSWORD", "postgres"),
		getEnv("DB_NAME", "quiz"),
		getEnvAsInt("DB_PORT", 5432),
		getEnv("DB_SSLMODE", "disable"),
	)
}

func logLevel() (zerolog.Level, error) {
	level, err := zerolog.ParseLevel(getEnv("LOG_LEVEL", "info"))
	if err != nil {
		return level, fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}
	return level, nil
}

func FromEnv() (Config, error) {
	var c Config

	c.DatabaseURL = databaseURL()

	c.HTTPAddr = getEnv("HTTP_ADDR", ":8080")
	c.CORSOrigins = splitList(os.Getenv("CORS_ORIGINS"))
	c.UploadDir = getEnv("UPLOAD_DIR", "uploads")

	c.JWTSecret = strings.TrimSpace(os.Getenv("JWT_SECRET"))
	if c.JWTSecret == "" {
		return c, fmt.Errorf("JWT_SECRET is empty")
	}

	c.AdminUser = getEnv("ADMIN_USER", "admin")
	c.AdminPasswordHash = strings.TrimSpace(os.Getenv("ADMIN_PASSWORD_HASH"))
	if c.AdminPasswordHash == "" {
		if plain := os.Getenv("ADMIN_PASSWORD"); plain != "" {
			hashed, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
			if err != nil {
				return c, fmt.Errorf("hash ADMIN_PASSWORD: %w", err)
			}
			c.AdminPasswordHash = string(hashed)
		}
	} else if _, err := bcrypt.Cost([]byte(c.AdminPasswordHash)); err != nil {
		return c, fmt.Errorf("ADMIN_PASSWORD_HASH is not a bcrypt hash: %w", err)
	}

	c.RedisAddr = strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	c.RedisPassword = os.Getenv("REDIS_PASSWORD")
	c.RedisDB = getEnvAsInt("REDIS_DB", 0)
	ttl, err := time.ParseDuration(getEnv("CACHE_TTL", "5s"))
	if err != nil {
		return c, fmt.Errorf("invalid CACHE_TTL: %w", err)
	}
	c.CacheTTL = ttl

	c.TelegramToken = strings.TrimSpace(os.Getenv("TELEGRAM_BOT_TOKEN"))

	if c.LogLevel, err = logLevel(); err != nil {
		return c, err
	}
	return c, nil
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func splitList(raw string) []string {
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
