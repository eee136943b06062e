package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/Skufu/SymptomDesk/internal/recommend"
)

type Config struct {
	Port        string
	LogMode     string
	CatalogPath string
	RulesPath   string
	MaxClusters int
	BotName     string
	DatabaseURL string
	EnableDB    bool
	RedisAddr   string
	SessionTTL  time.Duration
	CORSOrigins []string
}

func loadConfig() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		LogMode:     getEnv("LOG_MODE", "dev"),
		CatalogPath: getEnv("CATALOG_PATH", "data/medicines.json"),
		RulesPath:   os.Getenv("RULES_PATH"),
		MaxClusters: getEnvInt("MAX_CLUSTERS", recommend.DefaultMaxClusters),
		BotName:     getEnv("BOT_NAME", "Anna Balla"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		EnableDB:    strings.EqualFold(getEnv("ENABLE_DB", "false"), "true"),
		RedisAddr:   os.Getenv("REDIS_ADDR"),
		SessionTTL:  getEnvDuration("SESSION_TTL", 24*time.Hour),
		CORSOrigins: splitList(getEnv("CORS_ORIGINS", "*")),
	}

	if cfg.EnableDB && cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required when ENABLE_DB=true")
	}
	if cfg.MaxClusters < 1 {
		cfg.MaxClusters = recommend.DefaultMaxClusters
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	n, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(os.Getenv(key))
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func splitList(s string) []string {
	out := []string{}
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}
