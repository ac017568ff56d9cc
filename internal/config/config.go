package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
// DB接続はDATABASE_URLを優先し、未設定の場合はDB_HOST等の
// 個別変数から接続文字列を組み立てる。
type Config struct {
	// Database
	DatabaseURL string

	// Token
	JWTSecret       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	// Rate Limit
	RateLimitGeneral int
	RateLimitAuth    int

	// Worker
	TokenCleanupInterval time.Duration

	// Logging
	LogLevel string

	// Server
	ServerPort string

	// CORS
	CORSAllowedOrigin string
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		dsn, missingParts := buildDatabaseDSN()
		if len(missingParts) > 0 {
			missing = append(missing, missingParts...)
		} else {
			cfg.DatabaseURL = dsn
		}
	}

	cfg.JWTSecret = os.Getenv("JWT_SECRET")
	if cfg.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.AccessTokenTTL = getEnvDuration("ACCESS_TOKEN_TTL", 24*time.Hour)
	cfg.RefreshTokenTTL = getEnvDuration("REFRESH_TOKEN_TTL", 168*time.Hour)
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.RateLimitAuth = getEnvInt("RATE_LIMIT_AUTH", 10)
	cfg.TokenCleanupInterval = getEnvDuration("TOKEN_CLEANUP_INTERVAL", 1*time.Hour)
	cfg.LogLevel = getEnvString("LOG_LEVEL", "info")
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:3000")

	return cfg, nil
}

// buildDatabaseDSN はDB_HOST等の個別環境変数からlib/pq形式の
// 接続文字列を組み立てる。DB_HOST・DB_USER・DB_NAMEは必須、
// DB_PORTとDB_SSLMODEは省略可、DB_PASSWORDは空なら含めない。
func buildDatabaseDSN() (string, []string) {
	var missing []string

	host := os.Getenv("DB_HOST")
	if host == "" {
		missing = append(missing, "DB_HOST")
	}
	user := os.Getenv("DB_USER")
	if user == "" {
		missing = append(missing, "DB_USER")
	}
	name := os.Getenv("DB_NAME")
	if name == "" {
		missing = append(missing, "DB_NAME")
	}
	if len(missing) > 0 {
		return "", missing
	}

	port := getEnvString("DB_PORT", "5432")
	sslmode := getEnvString("DB_SSLMODE", "disable")

	dsn := fmt.Sprintf("host=%s port=%s user=%s dbname=%s sslmode=%s", host, port, user, name, sslmode)
	if password := os.Getenv("DB_PASSWORD"); password != "" {
		dsn = fmt.Sprintf("%s password=%s", dsn, password)
	}
	return dsn, nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
