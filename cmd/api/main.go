package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/opencore/authd/internal/auth"
	"github.com/opencore/authd/internal/config"
	"github.com/opencore/authd/internal/events"
	"github.com/opencore/authd/internal/handlers"
	middlewareCustom "github.com/opencore/authd/internal/middleware"
	"github.com/opencore/authd/internal/repositories"
	"github.com/opencore/authd/internal/routes"
	"github.com/opencore/authd/internal/services"
	pkghttp "github.com/opencore/authd/pkg/http"
	pkglogger "github.com/opencore/authd/pkg/logger"
	"github.com/redis/go-redis/v9"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("configuration loaded", slog.String("env", cfg.Server.Env))

	// Session store: Redis when configured, otherwise in-process memory
	var sessionRepo services.SessionRepository
	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})

		pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := redisClient.Ping(pingCtx).Err(); err != nil {
			pingCancel()
			logger.Error("failed to connect to redis", slog.Any("error", err))
			os.Exit(1)
		}
		pingCancel()
		defer redisClient.Close()

		sessionRepo = repositories.NewRedisSessionRepository(redisClient)
		logger.Info("using redis session store", slog.String("addr", cfg.Redis.Addr))
	} else {
		sessionRepo = repositories.NewInMemorySessionRepository()
		logger.Info("using in-memory session store")
	}

	otpRepo := repositories.NewInMemoryOtpRepository(cfg.Auth.OtpExpiry)

	// Initialize token manager
	tokenManager := auth.NewTokenManager(
		cfg.Auth.JWTIssuer,
		cfg.Auth.JWTSecret,
		cfg.Auth.AccessTokenExpiry,
		cfg.Auth.RefreshTokenExpiry,
	)

	// Brute force guard for the verify flow
	guard := services.NewRateLimitService(services.RateLimitConfig{
		MaxFailures: cfg.Auth.OtpMaxFailures,
		Window:      cfg.Auth.OtpFailureWindow,
	}, logger)

	// Domain event publishing and audit logging
	publisher := events.NewAsyncPublisher(events.LogSink{Logger: logger}, 256)
	defer publisher.Close()

	auditLogger := pkglogger.NewAuditLogger(logger)

	// Initialize services
	directory := services.NewDeterministicUserDirectory()
	authService := services.NewAuthService(
		otpRepo,
		sessionRepo,
		guard,
		directory,
		tokenManager,
		publisher,
		logger,
		auditLogger,
	)

	// Initialize handlers
	ipConfig := &pkghttp.IPConfig{TrustedProxies: cfg.Server.TrustedProxies}
	authHandler := handlers.NewAuthHandler(authService, ipConfig)

	// Setup router
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middlewareCustom.SecurityHeaders(middlewareCustom.SecurityHeadersConfig{Env: cfg.Server.Env}))
	router.Use(middlewareCustom.SecureLogger(logger))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))

	// Register routes
	routes.RegisterRoutes(router, authHandler, tokenManager)

	// Health check; pings redis when it backs the session store
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		if redisClient != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()

			if err := redisClient.Ping(ctx).Err(); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				w.Write([]byte(`{"status":"unhealthy","sessions":"down"}`))
				return
			}
		}

		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	})

	// Create server
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server
	go func() {
		logger.Info("starting server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("server stopped gracefully")
}
