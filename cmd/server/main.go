package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/taskhaven/todo-api/internal/auth"
	"github.com/taskhaven/todo-api/internal/config"
	"github.com/taskhaven/todo-api/internal/database"
	"github.com/taskhaven/todo-api/internal/handlers"
	"github.com/taskhaven/todo-api/internal/logger"
	"github.com/taskhaven/todo-api/internal/middleware"
	"github.com/taskhaven/todo-api/internal/services/ai"
	"github.com/taskhaven/todo-api/internal/storage"
	"github.com/taskhaven/todo-api/internal/telemetry"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
	"go.uber.org/zap"
)

const serviceName = "todo-api"

func main() {
	debugFlag := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	debugMode := cfg.ServerDebugMode || *debugFlag

	zapLogger, err := logger.NewProductionLogger(debugMode)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync(zapLogger)

	zapLogger.Info("starting_server",
		zap.Bool("debug_mode", debugMode),
		zap.String("server_port", cfg.ServerPort),
		zap.String("frontend_url", cfg.FrontendURL),
		zap.String("ai_model", cfg.AIModel),
		zap.Bool("otel_enabled", cfg.OTELEnabled),
	)

	// OpenTelemetry tracing, optional
	if cfg.OTELEnabled {
		if cfg.OTELEndpoint == "" {
			zapLogger.Warn("otel_enabled_but_endpoint_not_configured")
		} else if tp, err := telemetry.InitTracer(context.Background(), serviceName, cfg.OTELEndpoint); err != nil {
			zapLogger.Warn("failed_to_initialize_otel_tracer", zap.Error(err))
		} else {
			zapLogger.Info("otel_tracer_initialized", zap.String("endpoint", cfg.OTELEndpoint))
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := telemetry.Shutdown(shutdownCtx, tp); err != nil {
					zapLogger.Error("failed_to_shutdown_otel_tracer", zap.Error(err))
				}
			}()
		}
	}

	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		zapLogger.Fatal("failed_to_connect_to_database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			zapLogger.Warn("failed_to_close_database_connection", zap.Error(err))
		}
	}()
	zapLogger.Info("connected_to_database")

	if err := db.Migrate(context.Background()); err != nil {
		zapLogger.Fatal("failed_to_apply_schema", zap.Error(err))
	}

	// Redis backs the auth rate limiter; the API runs without it
	var redisLimiter *middleware.RedisRateLimiter
	if cfg.RedisURL != "" {
		redisLimiter, err = middleware.NewRedisRateLimiter(cfg.RedisURL)
		if err != nil {
			zapLogger.Fatal("failed_to_connect_to_redis", zap.Error(err))
		}
		defer func() {
			if err := redisLimiter.Close(); err != nil {
				zapLogger.Warn("failed_to_close_redis_connection", zap.Error(err))
			}
		}()
		zapLogger.Info("connected_to_redis")
	} else {
		zapLogger.Warn("redis_not_configured_rate_limiting_disabled")
	}

	store, err := storage.New(cfg.UploadDir)
	if err != nil {
		zapLogger.Fatal("failed_to_initialize_upload_storage", zap.Error(err))
	}

	todoRepo := database.NewTodoRepository(db)
	userRepo := database.NewUserRepository(db)

	tokens := auth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTExpiry)
	recommender := ai.NewRecommender(cfg.OpenAIKey, cfg.AIBaseURL, cfg.AIModel, zapLogger)
	if !recommender.Enabled() {
		zapLogger.Warn("openai_key_not_configured_recommendations_disabled")
	}

	authHandler := handlers.NewAuthHandler(userRepo, tokens, zapLogger)
	todoHandler := handlers.NewTodoHandler(todoRepo, store, recommender, zapLogger)
	healthChecker := handlers.NewHealthChecker(db, redisLimiter)

	r := mux.NewRouter()

	if cfg.OTELEnabled {
		r.Use(otelmux.Middleware(serviceName))
	}
	r.Use(middleware.SecurityHeaders(cfg.EnableHSTS))
	r.Use(middleware.MaxRequestSize(middleware.DefaultMaxRequestSize))
	r.Use(middleware.Timeout(middleware.DefaultRequestTimeout))
	r.Use(middleware.Recover(zapLogger))
	r.Use(middleware.Logging(zapLogger))

	r.HandleFunc("/healthz", healthChecker.HealthCheck).Methods("GET")

	// Stored attachments are served directly from disk
	r.PathPrefix(storage.URLPrefix + "/").Handler(
		http.StripPrefix(storage.URLPrefix+"/", http.FileServer(http.Dir(store.BaseDir()))),
	)

	apiRouter := r.PathPrefix("/api").Subrouter()
	authMW := middleware.Auth(tokens, userRepo, zapLogger)

	authRouter := apiRouter.PathPrefix("/auth").Subrouter()

	publicAuthRouter := authRouter.PathPrefix("").Subrouter()
	if redisLimiter != nil {
		rateLimitMW, err := middleware.RateLimit(redisLimiter, cfg.RateLimit)
		if err != nil {
			zapLogger.Fatal("failed_to_create_rate_limiter", zap.Error(err))
		}
		publicAuthRouter.Use(rateLimitMW)
	}
	authHandler.RegisterPublicRoutes(publicAuthRouter)

	protectedAuthRouter := authRouter.PathPrefix("").Subrouter()
	protectedAuthRouter.Use(authMW)
	authHandler.RegisterProtectedRoutes(protectedAuthRouter)

	todosRouter := apiRouter.PathPrefix("/todos").Subrouter()
	todosRouter.Use(authMW)
	todoHandler.RegisterRoutes(todosRouter)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   []string{cfg.FrontendURL},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	})

	srv := &http.Server{
		Addr:           ":" + cfg.ServerPort,
		Handler:        corsHandler.Handler(r),
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   15 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	go func() {
		zapLogger.Info("server_starting", zap.String("port", cfg.ServerPort))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("server_failed_to_start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("server_shutting_down")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		zapLogger.Fatal("server_forced_to_shutdown", zap.Error(err))
	}

	zapLogger.Info("server_exited")
}
