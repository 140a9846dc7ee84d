package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const DefaultGeocodeURL = "https://maps.googleapis.com/maps/api/geocode/json"

type Config struct {
	ServiceName string
	LogLevel    string

	ServerPort int

	DatabaseURL   string
	RunMigrations bool

	DBMaxOpenConns    int
	DBMaxIdleConns    int
	DBConnMaxLifetime time.Duration
	DBConnMaxIdleTime time.Duration
	DBSlowQuery       time.Duration

	JWTAccessSecret []byte
	AuthHTTPURL     string
	CSRFEnabled     bool
	CookieSecure    bool

	KafkaBrokers []string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	GeocodeURL    string
	GeocodeAPIKey string

	ReconcileInterval time.Duration
	ReconcileBatch    int
	ReconcileGrace    time.Duration

	SessionIdleTTL time.Duration
}

// Load reads .env when present and then the process environment.
func Load() Config {
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file loaded: %v", err)
	}

	return Config{
		ServiceName: EnvDefault("SERVICE_NAME", "checkout"),
		LogLevel:    EnvDefault("LOG_LEVEL", "info"),

		ServerPort: EnvIntDefault("SERVER_PORT", 8080),

		DatabaseURL:   os.Getenv("DATABASE_URL"),
		RunMigrations: EnvBoolDefault("RUN_MIGRATIONS", false),

		DBMaxOpenConns:    EnvIntDefault("DB_MAX_OPEN_CONNS", 20),
		DBMaxIdleConns:    EnvIntDefault("DB_MAX_IDLE_CONNS", 10),
		DBConnMaxLifetime: EnvDurationDefault("DB_CONN_MAX_LIFETIME", 30*time.Minute),
		DBConnMaxIdleTime: EnvDurationDefault("DB_CONN_MAX_IDLE_TIME", 5*time.Minute),
		DBSlowQuery:       EnvDurationDefault("DB_SLOW_QUERY", 200*time.Millisecond),

		JWTAccessSecret: []byte(os.Getenv("JWT_SECRET")),
		AuthHTTPURL:     os.Getenv("AUTH_URL"),
		CSRFEnabled:     EnvBoolDefault("CSRF_ENABLED", true),
		CookieSecure:    EnvBoolDefault("COOKIE_SECURE", false),

		KafkaBrokers: CSV(os.Getenv("KAFKA_BROKERS")),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       EnvIntDefault("REDIS_DB", 0),

		GeocodeURL:    EnvDefault("GEOCODE_URL", DefaultGeocodeURL),
		GeocodeAPIKey: os.Getenv("GEOCODE_API_KEY"),

		ReconcileInterval: EnvDurationDefault("RECONCILE_INTERVAL", 0),
		ReconcileBatch:    EnvIntDefault("RECONCILE_BATCH", 50),
		ReconcileGrace:    EnvDurationDefault("RECONCILE_GRACE", time.Minute),

		SessionIdleTTL: EnvDurationDefault("SESSION_IDLE_TTL", 30*time.Minute),
	}
}

func CSV(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func EnvDefault(key, def string) string {
	if os.Getenv(key) != "" {
		return os.Getenv(key)
	}
	return def
}

func EnvIntDefault(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func EnvBoolDefault(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func EnvDurationDefault(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d < 0 {
		return def
	}
	return d
}
