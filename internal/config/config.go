package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// ストア/ノーティファイアのバックエンド種別
const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Store
	StoreBackend string // memory | redis | postgres
	DatabaseURL  string // postgres使用時のみ必須

	// Notifier
	NotifierBackend string // memory | redis

	// Redis
	RedisAddr     string // redis使用時のみ必須
	RedisPassword string
	RedisDB       int

	// Panel
	LoadDelay time.Duration // ロード時の擬似遅延

	// Rate Limit
	RateLimitGeneral  int // 参照系 req/min
	RateLimitMutation int // 更新系 req/min

	// Server
	ServerPort string
	BaseURL    string

	// CORS
	CORSAllowedOrigin string
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返す。バックエンド選択によって
// 必須となる変数が変わる（postgres選択時はDATABASE_URL、redis選択時は
// REDIS_ADDR）。
func Load() (*Config, error) {
	cfg := &Config{}

	var missing []string

	cfg.BaseURL = os.Getenv("BASE_URL")
	if cfg.BaseURL == "" {
		missing = append(missing, "BASE_URL")
	}

	cfg.StoreBackend = getEnvString("STORE_BACKEND", BackendMemory)
	switch cfg.StoreBackend {
	case BackendMemory, BackendRedis, BackendPostgres:
	default:
		return nil, fmt.Errorf("invalid STORE_BACKEND: %q (expected memory, redis, or postgres)", cfg.StoreBackend)
	}

	cfg.NotifierBackend = getEnvString("NOTIFIER_BACKEND", BackendMemory)
	switch cfg.NotifierBackend {
	case BackendMemory, BackendRedis:
	default:
		return nil, fmt.Errorf("invalid NOTIFIER_BACKEND: %q (expected memory or redis)", cfg.NotifierBackend)
	}

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.StoreBackend == BackendPostgres && cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	cfg.RedisAddr = os.Getenv("REDIS_ADDR")
	if (cfg.StoreBackend == BackendRedis || cfg.NotifierBackend == BackendRedis) && cfg.RedisAddr == "" {
		missing = append(missing, "REDIS_ADDR")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.RedisPassword = getEnvString("REDIS_PASSWORD", "")
	cfg.RedisDB = getEnvInt("REDIS_DB", 0)
	cfg.LoadDelay = getEnvDuration("LOAD_DELAY", 500*time.Millisecond)
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.RateLimitMutation = getEnvInt("RATE_LIMIT_MUTATION", 30)
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:3000")

	return cfg, nil
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
