// Package config reads service configuration from the environment.
package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port           string
	DatabaseURL    string
	RedisAddr      string
	RedisPassword  string
	RedisDB        int
	AuthSecret     string
	AccessTokenTTL time.Duration
	SupervisorPIN  string
	ClubID         string
	LedgerCacheTTL time.Duration
	AllowedOrigin  string
}

func Load() Config {
	return Config{
		Port:           envString("PORT", "8080"),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		RedisAddr:      os.Getenv("REDIS_ADDR"),
		RedisPassword:  os.Getenv("REDIS_PASSWORD"),
		RedisDB:        envInt("REDIS_DB", 0),
		AuthSecret:     os.Getenv("AUTH_SECRET"),
		AccessTokenTTL: time.Duration(envInt("ACCESS_TOKEN_TTL_MINUTES", 480)) * time.Minute,
		SupervisorPIN:  os.Getenv("SUPERVISOR_PIN"),
		ClubID:         envString("CLUB_ID", "villanueva-padel"),
		LedgerCacheTTL: time.Duration(envInt("LEDGER_CACHE_TTL_SECONDS", 30)) * time.Second,
		AllowedOrigin:  envString("ALLOWED_ORIGIN", "*"),
	}
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
