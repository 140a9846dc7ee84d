package config

import (
	"github.com/Skotchmaster/checkout/pkg/config"
	"github.com/Skotchmaster/checkout/pkg/db"
)

type ServiceConfig struct {
	config.Config
}

func Load() ServiceConfig {
	cfg := config.Load()

	config.MustNonEmpty(cfg.DatabaseURL, "DATABASE_URL")
	config.MustNonEmptyBytes(cfg.JWTAccessSecret, "JWT_SECRET")

	return ServiceConfig{Config: cfg}
}

// GeocodingEnabled reports whether reverse geocoding has credentials to call the provider.
func (c ServiceConfig) GeocodingEnabled() bool {
	return c.GeocodeAPIKey != "" || c.GeocodeURL != config.DefaultGeocodeURL
}

// DBOptions maps the pool settings onto db.Options.
func (c ServiceConfig) DBOptions() db.Options {
	return db.Options{
		MaxOpenConns:    c.DBMaxOpenConns,
		MaxIdleConns:    c.DBMaxIdleConns,
		ConnMaxLifetime: c.DBConnMaxLifetime,
		ConnMaxIdleTime: c.DBConnMaxIdleTime,
		SlowQuery:       c.DBSlowQuery,
		LogLevel:        c.LogLevel,
	}
}
