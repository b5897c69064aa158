package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every runtime setting, read from the environment.
type Config struct {
	DatabaseURL string
	RabbitMQURL string
	RedisAddr   string

	APIAddr   string
	MigrateDB bool

	// ReferenceTimezone is the single business timezone all auction
	// window comparisons are normalized to.
	ReferenceTimezone string

	SweepInterval             time.Duration
	AdjudicationDispatchDelay time.Duration
	LockTimeout               time.Duration

	BidIncrementFixed       int64
	BidIncrementBasisPoints int64
	BidIncrementMin         int64

	JWTIssuer         string
	JWTPublicKeyPath  string
	JWTPrivateKeyPath string

	SettingsCacheTTL time.Duration

	SMTPAddr string
	SMTPFrom string

	WhatsAppBaseURL string
	WhatsAppToken   string
}

// Load reads configuration from the environment. A local .env file
// overrides the shared one, matching how the services run in dev.
func Load() (*Config, error) {
	_ = godotenv.Load(".env.local")
	_ = godotenv.Load()

	cfg := &Config{
		DatabaseURL:               os.Getenv("DB_URL"),
		RabbitMQURL:               os.Getenv("RABBITMQ_URL"),
		RedisAddr:                 os.Getenv("REDIS_ADDR"),
		APIAddr:                   getEnv("API_ADDR", ":8080"),
		MigrateDB:                 getBool("DB_MIGRATE", false),
		ReferenceTimezone:         getEnv("REFERENCE_TIMEZONE", "America/Santiago"),
		SweepInterval:             getDuration("SWEEP_INTERVAL", time.Minute),
		AdjudicationDispatchDelay: getDuration("ADJUDICATION_DISPATCH_DELAY", 15*time.Second),
		LockTimeout:               getDuration("DB_LOCK_TIMEOUT", 3*time.Second),
		BidIncrementFixed:         getInt64("BID_INCREMENT_FIXED", 500),
		BidIncrementBasisPoints:   getInt64("BID_INCREMENT_BASIS_POINTS", 0),
		BidIncrementMin:           getInt64("BID_INCREMENT_MIN", 500),
		JWTIssuer:                 getEnv("JWT_ISSUER", "remate"),
		JWTPublicKeyPath:          os.Getenv("JWT_PUBLIC_KEY_PATH"),
		JWTPrivateKeyPath:         os.Getenv("JWT_PRIVATE_KEY_PATH"),
		SettingsCacheTTL:          getDuration("SETTINGS_CACHE_TTL", 5*time.Minute),
		SMTPAddr:                  os.Getenv("SMTP_ADDR"),
		SMTPFrom:                  getEnv("SMTP_FROM", "subastas@remate.local"),
		WhatsAppBaseURL:           os.Getenv("WHATSAPP_BASE_URL"),
		WhatsAppToken:             os.Getenv("WHATSAPP_TOKEN"),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DB_URL is not set")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func getInt64(key string, fallback int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return n
}

func getBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
