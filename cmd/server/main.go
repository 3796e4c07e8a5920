package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	sentryfiber "github.com/getsentry/sentry-go/fiber"
	"github.com/redis/go-redis/v9"

	"github.com/ahmetcoskunkizilkaya/stockdesk-backend/internal/config"
	"github.com/ahmetcoskunkizilkaya/stockdesk-backend/internal/database"
	"github.com/ahmetcoskunkizilkaya/stockdesk-backend/internal/events"
	"github.com/ahmetcoskunkizilkaya/stockdesk-backend/internal/handlers"
	"github.com/ahmetcoskunkizilkaya/stockdesk-backend/internal/live"
	"github.com/ahmetcoskunkizilkaya/stockdesk-backend/internal/logging"
	"github.com/ahmetcoskunkizilkaya/stockdesk-backend/internal/middleware"
	"github.com/ahmetcoskunkizilkaya/stockdesk-backend/internal/modules"
	"github.com/ahmetcoskunkizilkaya/stockdesk-backend/internal/modules/complaints"
	"github.com/ahmetcoskunkizilkaya/stockdesk-backend/internal/modules/expenses"
	"github.com/ahmetcoskunkizilkaya/stockdesk-backend/internal/modules/notifications"
	"github.com/ahmetcoskunkizilkaya/stockdesk-backend/internal/modules/products"
	"github.com/ahmetcoskunkizilkaya/stockdesk-backend/internal/redisbus"
	"github.com/ahmetcoskunkizilkaya/stockdesk-backend/internal/roles"
	"github.com/ahmetcoskunkizilkaya/stockdesk-backend/internal/routes"
	"github.com/ahmetcoskunkizilkaya/stockdesk-backend/internal/services"
	"github.com/ahmetcoskunkizilkaya/stockdesk-backend/internal/session"
	"github.com/ahmetcoskunkizilkaya/stockdesk-backend/internal/storage"
	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
)

func main() {
	// Structured logging (JSON to stdout)
	stdout := logging.Setup()

	cfg := config.Load()

	if cfg.JWTSecret == "" {
		slog.Error("JWT_SECRET environment variable is required")
		os.Exit(1)
	}
	if cfg.DBPassword == "" {
		slog.Error("DB_PASSWORD environment variable is required")
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Database
	if err := database.Connect(cfg); err != nil {
		slog.Error("database connection failed", "error", err)
		os.Exit(1)
	}
	if err := database.MigrateShared(); err != nil {
		slog.Error("shared migration failed", "error", err)
		os.Exit(1)
	}

	// PostgreSQL log handler (ERROR+ async batch)
	pgLogHandler := logging.NewPGHandler(database.DB)
	slog.SetDefault(slog.New(logging.NewMultiHandler(stdout, pgLogHandler)))

	cleanupDone := make(chan struct{})
	logging.StartCleanup(database.DB, cfg.LogRetentionDays, cleanupDone)

	// Redis: shared role cache and cross-instance fan-out. Without it each
	// instance only sees its own writes and sign-outs.
	liveHub := live.NewHub()
	sessionHub := session.NewHub()
	var roleCache roles.Cache = roles.NewMemoryCache(cfg.RoleCacheTTL)
	var versionCache session.VersionCache = session.NewMemoryVersions(cfg.RoleCacheTTL)
	var rdb *redis.Client
	var bus *redisbus.Bus
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		if err := rdb.Ping(ctx).Err(); err != nil {
			slog.Error("redis connection failed", "addr", cfg.RedisAddr, "error", err)
			os.Exit(1)
		}
		bus = redisbus.New(rdb)
		liveHub.Bridge(ctx, bus)
		session.Bridge(ctx, sessionHub, bus)
		roleCache = roles.NewRedisCache(rdb, cfg.RoleCacheTTL)
		versionCache = session.NewRedisVersions(rdb, cfg.RoleCacheTTL)
		slog.Info("redis enabled", "addr", cfg.RedisAddr)
	}

	// Kafka: domain event log. Events are dropped when no broker is set.
	var publisher events.Publisher = events.Nop{}
	var producer *events.Producer
	if len(cfg.KafkaBrokers) > 0 {
		producer = events.NewProducer(slog.Default(), cfg.KafkaBrokers, cfg.KafkaEventsTopic)
		publisher = producer
		slog.Info("kafka events enabled", "topic", cfg.KafkaEventsTopic)
	}

	// Blob storage for product images
	var blobs storage.Store
	switch cfg.StorageDriver {
	case "s3":
		s3, err := storage.NewS3Store(ctx, storage.S3Options{
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			Bucket:    cfg.S3Bucket,
			UseSSL:    cfg.S3UseSSL,
			URLExpiry: cfg.S3PresignExpiry,
		})
		if err != nil {
			slog.Error("s3 storage init failed", "error", err)
			os.Exit(1)
		}
		blobs = s3
	default:
		local, err := storage.NewLocalStore(cfg.StorageDir, cfg.StorageBaseURL)
		if err != nil {
			slog.Error("local storage init failed", "dir", cfg.StorageDir, "error", err)
			os.Exit(1)
		}
		blobs = local
	}

	// Services
	userStore := services.NewUserStore(database.DB)
	resolver := roles.NewResolver(userStore, roleCache)
	ledger := session.NewLedger(userStore, versionCache)

	var google services.IdentityVerifier
	if len(cfg.GoogleClientIDs) > 0 {
		google = services.NewGoogleVerifier(cfg.GoogleJWKSURL, cfg.GoogleClientIDs)
	}
	authService := services.NewAuthService(database.DB, cfg, google, sessionHub, resolver, ledger, liveHub)
	userService := services.NewUserService(userStore, resolver, sessionHub, publisher, liveHub)

	// Collection modules
	emit := modules.Emitter{Live: liveHub, Events: publisher}
	productService := products.NewService(products.NewRepository(database.DB), blobs, userStore, emit)
	expenseService := expenses.NewService(expenses.NewRepository(database.DB), emit, cfg.ExpenseLocation())
	notificationService := notifications.NewService(notifications.NewRepository(database.DB), emit)

	mods := []modules.Module{
		products.New(productService, int64(cfg.MaxUploadBytes)),
		complaints.New(complaints.NewService(complaints.NewRepository(database.DB), emit)),
		expenses.New(expenseService),
		notifications.New(notificationService),
	}
	for _, m := range mods {
		if models := m.Models(); len(models) > 0 {
			if err := database.MigrateModels(models); err != nil {
				slog.Error("module migration failed", "module", m.ID(), "error", err)
				os.Exit(1)
			}
			slog.Info("module migrated", "module", m.ID(), "models", len(models))
		}
	}

	// Kafka: externally produced notifications
	var consumer *events.Consumer
	if len(cfg.KafkaBrokers) > 0 {
		consumer = events.NewConsumer(cfg.KafkaBrokers, cfg.KafkaGroupID, cfg.KafkaNotificationTopic).
			Handle(cfg.KafkaNotificationTopic, notificationService.HandleMessage).
			Consume(ctx)
		slog.Info("kafka notification ingest enabled", "topic", cfg.KafkaNotificationTopic)
	}

	// Handlers
	h := routes.Handlers{
		Auth:       handlers.NewAuthHandler(authService),
		Health:     handlers.NewHealthHandler(rdb),
		Navigation: handlers.NewNavigationHandler(resolver, ledger),
		Profile:    handlers.NewProfileHandler(userService),
		Users:      handlers.NewUsersHandler(userService),
		Dashboard:  handlers.NewDashboardHandler(userService, productService, expenseService),
		Stream: handlers.NewStreamHandler(liveHub, sessionHub, resolver, ledger,
			append(handlers.Watchers(mods), services.NewUsersWatcher(userService))),
	}

	// Sentry error tracking
	if dsn := os.Getenv("SENTRY_DSN"); dsn != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              dsn,
			EnableTracing:    true,
			TracesSampleRate: 0.2,
			Environment:      os.Getenv("APP_ENV"),
		}); err != nil {
			slog.Error("sentry init failed", "error", err)
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	// Fiber app. Multipart bodies carry the product image.
	app := fiber.New(fiber.Config{
		BodyLimit:    cfg.MaxUploadBytes + 1024*1024,
		ErrorHandler: customErrorHandler,
	})

	app.Use(sentryfiber.New(sentryfiber.Options{
		Repanic:         true,
		WaitForDelivery: false,
	}))

	// Global middleware
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "${time} | ${status} | ${latency} | ${ip} | ${method} | ${path}\n",
	}))
	app.Use(middleware.CORS(cfg))
	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("X-XSS-Protection", "1; mode=block")
		return c.Next()
	})

	if local, ok := blobs.(*storage.LocalStore); ok {
		app.Static(cfg.StorageBaseURL, local.Dir())
	}

	routes.Setup(app, cfg, resolver, ledger, h, mods)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "port", cfg.Port)
		if err := app.Listen(":" + cfg.Port); err != nil {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	<-quit
	slog.Info("shutting down server...")

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	cancel()
	if consumer != nil {
		consumer.Close()
	}
	if producer != nil {
		producer.Close()
	}
	if bus != nil {
		bus.Wait()
	}
	if rdb != nil {
		if err := rdb.Close(); err != nil {
			slog.Error("redis close error", "error", err)
		}
	}

	close(cleanupDone)
	pgLogHandler.Stop()
	sentry.Flush(2 * time.Second)

	if err := database.Close(); err != nil {
		slog.Error("database close error", "error", err)
	}

	slog.Info("server stopped")
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal server error"
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	// Only expose error details for client errors (4xx), not server errors (5xx)
	if code >= 500 {
		slog.Error("unhandled server error", "method", c.Method(), "path", c.Path(), "error", err.Error())
		message = "Internal server error"
	}

	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": message,
	})
}
