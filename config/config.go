package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Annany2002/nebula-workspace/internal/logger"
	"github.com/joho/godotenv"
)

var (
	customLog = logger.NewLogger()
)

// Config holds application configuration values
type Config struct {
	ServerPort       string
	JWTSecret        string
	JWTExpiration    time.Duration
	DataDir          string
	DataFile         string
	DefaultPageLimit int
	MaxPageLimit     int
	AllowedOrigins   []string
	AuthRateLimit    int // requests per minute per client on /auth; 0 disables
}

// LoadConfig loads configuration from environment variables.
// It uses a .env file for local development if present (ignores it for production).
func LoadConfig() (*Config, error) {
	customLog.Println("Loading configuration from environment variables...")

	if os.Getenv("APP_ENV") != "production" {
		if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
			customLog.Warnf("Warning: Error loading .env file: %v", err)
		}
	}

	port := getEnv("SERVER_PORT", "8080")
	jwtSecret := os.Getenv("JWT_SECRET")
	jwtExpHoursStr := getEnv("JWT_EXPIRATION_HOURS", "24")
	dataDir := getEnv("DATABASE_DIRECTORY", "data")
	dataFile := getEnv("DATABASE_FILE", "workspace.db")
	origins := getEnv("CORS_ALLOWED_ORIGINS", "*")

	if jwtSecret == "" {
		return nil, errors.New("JWT_SECRET environment variable must be set")
	}

	jwtExpHours, err := strconv.Atoi(jwtExpHoursStr)
	if err != nil || jwtExpHours <= 0 {
		customLog.Warnf("Invalid JWT_EXPIRATION_HOURS '%s'. Using default 24h. Error: %v", jwtExpHoursStr, err)
		jwtExpHours = 24
	}

	defaultLimit := getEnvInt("DEFAULT_PAGE_LIMIT", 100)
	maxLimit := getEnvInt("MAX_PAGE_LIMIT", 1000)
	authRateLimit := getEnvInt("AUTH_RATE_LIMIT", 20)
	if defaultLimit > maxLimit {
		customLog.Warnf("DEFAULT_PAGE_LIMIT %d exceeds MAX_PAGE_LIMIT %d, clamping", defaultLimit, maxLimit)
		defaultLimit = maxLimit
	}

	cfg := &Config{
		ServerPort:       strings.TrimPrefix(port, ":"),
		JWTSecret:        jwtSecret,
		JWTExpiration:    time.Hour * time.Duration(jwtExpHours),
		DataDir:          dataDir,
		DataFile:         dataFile,
		DefaultPageLimit: defaultLimit,
		MaxPageLimit:     maxLimit,
		AllowedOrigins:   splitList(origins),
		AuthRateLimit:    authRateLimit,
	}

	customLog.Printf("Configuration loaded successfully. Port: %s, JWT Exp: %v", cfg.ServerPort, cfg.JWTExpiration)
	return cfg, nil
}

// getEnv reads an environment variable or returns a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// getEnvInt reads a positive integer variable, falling back on absence or parse failure.
func getEnvInt(key string, fallback int) int {
	raw, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		customLog.Warnf("Invalid %s '%s'. Using default %d.", key, raw, fallback)
		return fallback
	}
	return n
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
