package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/Skotchmaster/checkout/internal/badge"
	"github.com/Skotchmaster/checkout/internal/cart"
	"github.com/Skotchmaster/checkout/internal/checkout"
	"github.com/Skotchmaster/checkout/internal/config"
	"github.com/Skotchmaster/checkout/internal/events"
	"github.com/Skotchmaster/checkout/internal/geo"
	"github.com/Skotchmaster/checkout/internal/httpserver"
	"github.com/Skotchmaster/checkout/internal/reconcile"
	"github.com/Skotchmaster/checkout/internal/repo"
	"github.com/Skotchmaster/checkout/pkg/authclient"
	"github.com/Skotchmaster/checkout/pkg/db"
	"github.com/Skotchmaster/checkout/pkg/logging"
	middleware "github.com/Skotchmaster/checkout/pkg/middleware/auth"
	"github.com/Skotchmaster/checkout/pkg/middleware/csrf"
	loggingmw "github.com/Skotchmaster/checkout/pkg/middleware/logging"
)

func main() {
	cfg := config.Load()

	logger := logging.New(cfg.LogLevel).With("service", cfg.ServiceName)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logging.IntoContext(ctx, logger)

	if cfg.RunMigrations {
		if err := db.Migrate(cfg.DatabaseURL); err != nil {
			log.Fatalf("migrate: %v", err)
		}
		logger.Info("migrations_applied")
	}

	initCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	gdb, err := db.Open(initCtx, cfg.DatabaseURL, cfg.DBOptions())
	cancel()
	if err != nil {
		log.Fatalf("db init error: %v", err)
	}

	store := &repo.GormRepo{DB: gdb}

	var publisher events.Publisher = events.Nop{}
	var producer *events.Producer
	if len(cfg.KafkaBrokers) > 0 {
		producer = events.NewProducer(cfg.KafkaBrokers)
		publisher = producer
	} else {
		logger.Warn("kafka_disabled", "reason", "KAFKA_BROKERS empty")
	}

	hub := badge.NewHub()
	var guard checkout.SubmitGuard = checkout.NewLocalGuard()
	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		err := rdb.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			logger.Warn("redis_unavailable", "addr", cfg.RedisAddr, "error", err)
		}

		relay := badge.NewRedisRelay(rdb, hub)
		hub.SetRelay(relay)
		go func() {
			if err := relay.Run(ctx); err != nil {
				logger.Error("badge_relay_stopped", "error", err)
			}
		}()
		guard = checkout.NewRedisGuard(rdb)
	}

	if !cfg.GeocodingEnabled() {
		logger.Warn("geocoding_without_api_key", "url", cfg.GeocodeURL)
	}
	resolver := geo.NewResolver(geo.NewGoogleGeocoder(cfg.GeocodeURL, cfg.GeocodeAPIKey))

	svc := checkout.NewService(
		cart.NewRegistry(store, hub, publisher),
		&checkout.Saga{Orders: store, Events: publisher, Guard: guard},
		resolver,
	)

	if cfg.ReconcileInterval > 0 {
		rec := reconcile.NewReconciler(store, publisher, cfg.ReconcileInterval, cfg.ReconcileBatch)
		rec.Grace = cfg.ReconcileGrace
		go rec.Run(ctx)
	}
	if cfg.SessionIdleTTL > 0 {
		go svc.RunJanitor(ctx, cfg.SessionIdleTTL/2, cfg.SessionIdleTTL)
	}

	e := echo.New()
	e.HideBanner = true

	e.Server.ReadTimeout = 10 * time.Second
	e.Server.ReadHeaderTimeout = 3 * time.Second

	e.Use(loggingmw.RequestLogger(logger))
	e.Use(echomw.Recover())
	e.Use(echomw.CORS())

	deps := &httpserver.Deps{
		CartHandler:     &httpserver.CartHTTP{Svc: svc, Hub: hub},
		CheckoutHandler: &httpserver.CheckoutHTTP{Svc: svc, Orders: store},
		JWTSecret:       cfg.JWTAccessSecret,
		Ready: func() error {
			return db.Ping(context.Background(), gdb)
		},
	}
	if cfg.CSRFEnabled {
		csrfCfg := csrf.DefaultConfig()
		csrfCfg.Secure = cfg.CookieSecure
		deps.CSRF = &csrfCfg
	}
	if cfg.AuthHTTPURL != "" {
		var refresher middleware.Refresher = authclient.NewClient(cfg.AuthHTTPURL)
		deps.AuthClient = refresher
	}
	httpserver.Register(e, deps)

	port := strconv.Itoa(cfg.ServerPort)
	go func() {
		logger.Info("server_starting", "port", port)
		if err := e.Start(":" + port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("echo start: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("server_shutting_down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("echo_shutdown_failed", "error", err)
	}
	if producer != nil {
		if err := producer.Close(); err != nil {
			logger.Error("kafka_close_failed", "error", err)
		}
	}
	if rdb != nil {
		_ = rdb.Close()
	}
	if err := db.Close(gdb); err != nil {
		logger.Error("db_close_failed", "error", err)
	}

	logger.Info("server_stopped")
}
