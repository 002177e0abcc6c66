package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/swagger"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"incorpapi/docs"
	"incorpapi/internal/config"
	"incorpapi/internal/database"
	"incorpapi/internal/database/migration"
	"incorpapi/internal/expiry"
	handlers "incorpapi/internal/http/handler"
	"incorpapi/internal/http/middleware"
	"incorpapi/internal/logger"
	"incorpapi/internal/notify"
	"incorpapi/internal/otel"
	"incorpapi/internal/repository/postgres"
	"incorpapi/internal/service"
	"incorpapi/internal/storage"
)

// @title Incorporation API
// @version 1.0
// @description Company incorporation registration workflow.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	// Load configuration from environment variables (.env auto-loaded if present)
	cfg := config.Load()

	log := logger.New(cfg.LogLevel)
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	loc, err := cfg.Location()
	if err != nil {
		log.Fatal("invalid timezone", zap.String("timezone", cfg.Timezone), zap.Error(err))
	}

	shutdownTracing, err := otel.Init(ctx, log)
	if err != nil {
		log.Fatal("failed to initialize tracing", zap.Error(err))
	}

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if err := migration.EnsureMigrated(ctx, db, log, cfg.Database.Host); err != nil {
		log.Fatal("failed to migrate database", zap.Error(err))
	}

	objStore, err := storage.NewMinIO(cfg.MinIO)
	if err != nil {
		log.Fatal("failed to initialize object storage", zap.Error(err))
	}

	rates, err := config.LoadFeeRates(cfg.FeeRatesFile)
	if err != nil {
		log.Fatal("failed to load fee rates", zap.String("path", cfg.FeeRatesFile), zap.Error(err))
	}

	var sender notify.Sender = notify.NewLogSender(log)
	if cfg.Notify.WebhookURL != "" {
		sender = notify.NewWebhookSender(notify.WebhookConfig{
			URL:        cfg.Notify.WebhookURL,
			Timeout:    cfg.Notify.Timeout,
			MaxRetries: cfg.Notify.MaxRetries,
		})
	}

	repo := postgres.NewRegistrationPostgres(db)

	expiryMetrics, err := expiry.NewMetrics(prometheus.DefaultRegisterer)
	if err != nil {
		log.Fatal("failed to register expiry metrics", zap.Error(err))
	}
	notifierOpts := []expiry.Option{expiry.WithMetrics(expiryMetrics), expiry.WithLocation(loc)}

	rdb, err := expiry.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		log.Fatal("failed to connect to redis", zap.Error(err))
	}
	if rdb != nil {
		defer rdb.Close()
		notifierOpts = append(notifierOpts, expiry.WithLock(expiry.NewRedisLock(rdb)))
	}

	notifier := expiry.NewNotifier(repo, sender, log, notifierOpts...)
	sweeper := expiry.NewSweeper(repo, notifier, log, cfg.Expiry.SweepBatch, cfg.Expiry.SweepWorkers)

	regSvc := service.NewRegistrationService(repo, objStore, sender, notifier, sweeper, log, service.Options{
		Rates:      rates,
		ExpireDays: cfg.Expiry.DefaultDays,
		Location:   loc,
		LinkTTL:    cfg.PresignTTL,
	})

	httpMetrics, err := middleware.NewPrometheusMiddleware(prometheus.DefaultRegisterer)
	if err != nil {
		log.Fatal("failed to register http metrics", zap.Error(err))
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler(),
	})

	app.Use(otelfiber.Middleware())
	// RequestID middleware adds/propagates X-Request-ID and stores it in context
	app.Use(middleware.RequestID())
	app.Use(middleware.Logger(log))
	app.Use(httpMetrics.Handler())

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// Swagger UI with dynamic host and scheme; APP_HOST covers requests without a Host header
	docs.SwaggerInfo.Host = cfg.AppHost
	app.Get("/swagger/*", func(c *fiber.Ctx) error {
		scheme := c.Protocol()
		if proto := c.Get("X-Forwarded-Proto"); proto != "" {
			scheme = strings.Split(proto, ",")[0]
		}

		if host := c.Get("Host"); host != "" {
			docs.SwaggerInfo.Host = host
		}
		docs.SwaggerInfo.Schemes = []string{scheme}

		return swagger.HandlerDefault(c)
	})

	auth := middleware.Auth(middleware.AuthConfig{
		Secret:    []byte(cfg.Auth.JWTSecret),
		Issuer:    cfg.Auth.Issuer,
		AdminRole: cfg.Auth.AdminRole,
	})
	handlers.RegisterRoutes(app, db, regSvc, auth)

	go sweeper.Run(ctx, cfg.Expiry.SweepInterval)

	go func() {
		<-ctx.Done()
		log.Info("shutting down")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Error("server shutdown failed", zap.Error(err))
		}
	}()

	addr := ":" + cfg.Port
	log.Info("server starting", zap.String("addr", addr), zap.String("timezone", loc.String()))
	if err := app.Listen(addr); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("failed to start server", zap.Error(err))
	}

	flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := shutdownTracing(flushCtx); err != nil {
		log.Error("tracing shutdown failed", zap.Error(err))
	}
}
