// Package config loads the gateway configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/sundayc666/vision-api/internal/ratelimit"
)

type Config struct {
	ListenAddr     string
	AllowedOrigins []string
	Policies       []ratelimit.Policy
	Store          StoreConfig
	Model          ModelConfig
}

type StoreConfig struct {
	Type         string // "memory" or "redis"
	IdleTTL      time.Duration
	CleanupEvery time.Duration
	Redis        RedisConfig
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type ModelConfig struct {
	Path         string
	MetadataPath string
}

func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		ListenAddr:     getEnv("LISTEN_ADDR", ":8080"),
		AllowedOrigins: splitList(getEnv("ALLOWED_ORIGINS", "https://sundayc666.github.io,http://localhost:5173")),
	}

	policies, err := ratelimit.ParsePolicies(getEnv("RATE_LIMIT_POLICIES", "6:1m,60:1h"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid RATE_LIMIT_POLICIES: %w", err)
	}
	cfg.Policies = policies

	store, err := buildStoreConfig()
	if err != nil {
		return Config{}, err
	}
	cfg.Store = store

	cfg.Model = ModelConfig{
		Path:         getEnv("MODEL_PATH", "models/resnet50.onnx"),
		MetadataPath: getEnv("MODEL_METADATA_PATH", "models/resnet50_metadata.json"),
	}

	return cfg, nil
}

func buildStoreConfig() (StoreConfig, error) {
	storeType := strings.ToLower(getEnv("RATE_STORE", "memory"))

	idleTTL, err := getDuration("RATE_STORE_IDLE_TTL", 15*time.Minute)
	if err != nil {
		return StoreConfig{}, err
	}
	cleanupEvery, err := getDuration("RATE_STORE_CLEANUP_EVERY", 2*time.Minute)
	if err != nil {
		return StoreConfig{}, err
	}

	cfg := StoreConfig{
		Type:         storeType,
		IdleTTL:      idleTTL,
		CleanupEvery: cleanupEvery,
	}

	switch storeType {
	case "memory":
	case "redis":
		db, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
		if err != nil {
			return StoreConfig{}, fmt.Errorf("invalid REDIS_DB: %w", err)
		}
		cfg.Redis = RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       db,
		}
	default:
		return StoreConfig{}, fmt.Errorf("unsupported RATE_STORE: %s", storeType)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
