// Package main is the entrypoint for the Murmur API server.
package main

import (
	"context"
	"log/slog"
	"net/url"
	"os"
	"regexp"
	"strings"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/murmur-app/murmur/internal/abuse"
	"github.com/murmur-app/murmur/internal/cache"
	"github.com/murmur-app/murmur/internal/config"
	"github.com/murmur-app/murmur/internal/expiry"
	"github.com/murmur-app/murmur/internal/handler"
	"github.com/murmur-app/murmur/internal/middleware"
	"github.com/murmur-app/murmur/internal/push"
	"github.com/murmur-app/murmur/internal/repository"
	"github.com/murmur-app/murmur/internal/server"
	"github.com/murmur-app/murmur/internal/service"
)

func main() {
	ctx := context.Background()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Initialize logger
	logger := initLogger(cfg)

	// Initialize database
	repo, err := repository.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error(
			"failed to connect to database",
			slog.String("error", sanitizeError(err, cfg.DatabaseURL)),
			slog.String("database_url", redactURL(cfg.DatabaseURL)),
		)
		os.Exit(1)
	}
	defer repo.Close()
	logger.Info("connected to database")

	// Initialize cache
	cacheClient, err := cache.New(ctx, cfg.RedisURL)
	if err != nil {
		logger.Error(
			"failed to connect to Redis",
			slog.String("error", sanitizeError(err, cfg.RedisURL)),
			slog.String("redis_url", redactURL(cfg.RedisURL)),
		)
		os.Exit(1)
	}
	defer cacheClient.Close()
	logger.Info("connected to Redis")

	// Initialize push delivery. A failed key resolution disables push but
	// never blocks startup; messages still land in the inbox.
	keyManager := push.NewKeyManager(repo, cfg.PushContact, logger)
	keyManager.Init(ctx, cfg.VAPIDPublicKey, cfg.VAPIDPrivateKey)
	dispatcher := push.NewDispatcher(keyManager, repo, logger)

	// Initialize services
	cooldown := abuse.NewCooldownGuard(cfg.MessageCooldown)
	userService := service.NewUserService(repo, cfg.TokenSecret, logger)
	messageService := service.NewMessageService(repo, cooldown, dispatcher, cfg.OriginSalt(), logger)
	dashboardService := service.NewDashboardService(repo, logger)

	// Initialize handlers
	healthHandler := handler.NewHealthHandler(repo, cacheClient)
	userHandler := handler.NewUserHandler(userService, logger)
	messageHandler := handler.NewMessageHandler(messageService, logger)
	dashboardHandler := handler.NewDashboardHandler(dashboardService, logger)
	pushHandler := handler.NewPushHandler(repo, keyManager, logger)

	// Setup router
	r := setupRouter(routerDeps{
		health:    healthHandler,
		user:      userHandler,
		message:   messageHandler,
		dashboard: dashboardHandler,
		push:      pushHandler,
		repo:      repo,
		cache:     cacheClient,
		cfg:       cfg,
		logger:    logger,
	})

	// Create server
	srv := server.New(
		r,
		cfg.AppPort,
		cfg.ReadTimeout,
		cfg.WriteTimeout,
		cfg.ShutdownTimeout,
		logger,
	)

	// Start the expiry sweep worker; it stops when workerCtx is cancelled
	// during shutdown.
	workerCtx, stopWorker := context.WithCancel(ctx)
	sweeper := expiry.NewWorker(repo, cfg.ExpirySweepInterval, logger)
	go func() {
		if err := sweeper.Run(workerCtx); err != nil && err != context.Canceled {
			logger.Error("expiry worker exited", "error", err)
		}
	}()

	srv.OnShutdown("expiry-worker", func(ctx context.Context) error {
		stopWorker()
		return nil
	})
	srv.OnShutdown("push-dispatcher", dispatcher.Drain)

	logger.Info("starting server",
		"port", cfg.AppPort,
		"env", cfg.AppEnv,
		"push_enabled", keyManager.Active(),
	)

	if err := srv.Run(); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

// initLogger initializes the slog logger based on configuration.
func initLogger(cfg *config.Config) *slog.Logger {
	var h slog.Handler

	opts := &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	}

	if cfg.LogFormat == "json" {
		h = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		h = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(h)
	slog.SetDefault(logger)

	return logger
}

// parseLogLevel converts string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

type routerDeps struct {
	health    *handler.HealthHandler
	user      *handler.UserHandler
	message   *handler.MessageHandler
	dashboard *handler.DashboardHandler
	push      *handler.PushHandler
	repo      *repository.Repository
	cache     *cache.Cache
	cfg       *config.Config
	logger    *slog.Logger
}

// setupRouter configures the chi router with all routes and middleware.
func setupRouter(deps routerDeps) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(deps.logger))
	r.Use(middleware.Recoverer(deps.logger))
	r.Use(middleware.Security(middleware.SecurityConfig{
		IsDevelopment: deps.cfg.IsDevelopment(),
	}))
	r.Use(middleware.MaxBodySize(deps.cfg.MaxRequestBodySize))

	if origins := deps.cfg.GetCORSAllowedOrigins(); len(origins) > 0 {
		corsCfg := middleware.DefaultCORSConfig()
		corsCfg.AllowedOrigins = origins
		r.Use(middleware.CORS(corsCfg))
	}

	// Health endpoints (no auth required)
	r.Get("/healthz", deps.health.Healthz)
	r.Get("/readyz", deps.health.Readyz)

	authCfg := middleware.AuthConfig{
		Logger: deps.logger,
		Users:  deps.repo,
		Cache:  deps.cache,
	}

	rateLimitCfg := middleware.RateLimitConfig{
		Logger:        deps.logger,
		Limiter:       deps.cache,
		SubmitEnabled: deps.cfg.RateLimitSubmitEnabled,
		SubmitRPS:     deps.cfg.RateLimitSubmitRPS,
		SubmitBurst:   deps.cfg.RateLimitSubmitBurst,
	}

	r.Route("/api/v1", func(r chi.Router) {
		// Public surface
		r.Post("/users", deps.user.Register)
		r.Get("/users/{username}", deps.user.PublicProfile)
		r.Get("/push/key", deps.push.PublicKey)

		// Anonymous submissions, rate limited per IP
		r.With(middleware.RateLimitSubmit(rateLimitCfg)).
			Post("/messages/{username}", deps.message.Submit)

		// Dashboard surface (requires dashboard token)
		r.Route("/dashboard", func(r chi.Router) {
			r.Use(middleware.Auth(authCfg))

			r.Get("/me", deps.dashboard.Me)
			r.Get("/messages", deps.dashboard.ListMessages)
			r.Patch("/messages/{id}", deps.dashboard.UpdateMessage)
			r.Delete("/messages/{id}", deps.dashboard.DeleteMessage)
			r.Get("/stats", deps.dashboard.Stats)

			r.Post("/push/subscriptions", deps.push.Subscribe)
			r.Delete("/push/subscriptions", deps.push.Unsubscribe)
		})
	})

	// 404 and 405 handlers
	r.NotFound(handler.NotFound)
	r.MethodNotAllowed(handler.MethodNotAllowed)

	return r
}

var passwordPattern = regexp.MustCompile(`(?i)password=[^\s]+`)

func redactURL(raw string) string {
	if raw == "" {
		return ""
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "[redacted]"
	}

	if parsed.User != nil {
		username := parsed.User.Username()
		if username == "" {
			parsed.User = url.User("redacted")
		} else {
			parsed.User = url.User(username)
		}
	}

	return parsed.String()
}

func sanitizeError(err error, secrets ...string) string {
	if err == nil {
		return ""
	}

	msg := err.Error()
	for _, secret := range secrets {
		if secret == "" {
			continue
		}
		redacted := redactURL(secret)
		if redacted == "" {
			redacted = "[redacted]"
		}
		msg = strings.ReplaceAll(msg, secret, redacted)
	}

	return passwordPattern.ReplaceAllString(msg, "password=redacted")
}
