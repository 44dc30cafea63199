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
	"github.com/redis/go-redis/v9"
	"github.com/shiftline/shiftline/internal/auth"
	"github.com/shiftline/shiftline/internal/background"
	"github.com/shiftline/shiftline/internal/config"
	"github.com/shiftline/shiftline/internal/database"
	"github.com/shiftline/shiftline/internal/handlers"
	middlewareCustom "github.com/shiftline/shiftline/internal/middleware"
	"github.com/shiftline/shiftline/internal/ratelimit"
	"github.com/shiftline/shiftline/internal/repositories"
	"github.com/shiftline/shiftline/internal/routes"
	"github.com/shiftline/shiftline/internal/services"
	pkghttp "github.com/shiftline/shiftline/pkg/http"
	pkglogger "github.com/shiftline/shiftline/pkg/logger"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("configuration loaded", slog.String("env", cfg.Server.Env))

	db, err := database.NewConnection(&cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	// Repositories
	companyRepo := repositories.NewCompanyRepository(db)
	userRepo := repositories.NewUserRepository(db)
	departmentRepo := repositories.NewDepartmentRepository(db)
	templateRepo := repositories.NewShiftTemplateRepository(db)
	shiftRepo := repositories.NewShiftRepository(db)
	absenceRepo := repositories.NewAbsenceRepository(db)
	mfaMethodRepo := repositories.NewMFAMethodRepository(db)

	// Ephemeral stores: Redis when configured, in-memory otherwise.
	// The in-memory stores are swept by the cleanup manager; Redis
	// expires its own keys.
	cleanupManager := background.NewCleanupManager(logger, cfg.MFA.CleanupInterval)

	var rateLimitStore ratelimit.Store
	var challengeStore repositories.ChallengeStore
	if cfg.Redis.Addr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		rateLimitStore = ratelimit.NewRedisStore(redisClient)
		challengeStore = repositories.NewRedisChallengeStore(redisClient)
		logger.Info("using redis-backed ephemeral stores", slog.String("addr", cfg.Redis.Addr))
	} else {
		memoryRL := ratelimit.NewMemoryStore()
		memoryCh := repositories.NewMemoryChallengeStore()
		cleanupManager.Register("rate_limit", memoryRL)
		cleanupManager.Register("mfa_challenges", memoryCh)
		rateLimitStore = memoryRL
		challengeStore = memoryCh
		logger.Info("using in-memory ephemeral stores (single instance only)")
	}

	tokenManager, err := auth.NewTokenManager(cfg.Auth.SessionSecret, cfg.Auth.SessionLifetime)
	if err != nil {
		logger.Error("failed to initialize token manager", slog.Any("error", err))
		os.Exit(1)
	}

	totpManager, err := auth.NewTOTPManager(cfg.MFA.EncryptionKey, cfg.MFA.Issuer)
	if err != nil {
		logger.Error("failed to initialize TOTP manager", slog.Any("error", err))
		os.Exit(1)
	}

	emailService, err := services.NewAWSSESEmailService(cfg.Email.AWSRegion, cfg.Email.FromAddress, logger)
	if err != nil {
		logger.Error("failed to initialize email service", slog.Any("error", err))
		os.Exit(1)
	}

	auditLogger := pkglogger.NewAuditLogger(logger)
	timingDelay := auth.NewTimingDelay(auth.TimingConfig{
		BaseDelayMs:   cfg.Auth.TimingDelayBaseMs,
		RandomDelayMs: cfg.Auth.TimingDelayRandomMs,
	})

	// Services
	mfaService := services.NewMFAService(mfaMethodRepo, challengeStore, totpManager, emailService,
		services.MFAPolicy{ChallengeTTL: cfg.MFA.ChallengeTTL, MaxAttempts: cfg.MFA.MaxAttempts},
		logger, auditLogger)
	authService := services.NewAuthService(userRepo, tokenManager,
		ratelimit.NewLimiter(rateLimitStore), mfaService, timingDelay,
		services.LoginPolicy{Limit: cfg.RateLimit.LoginLimit, Window: cfg.RateLimit.LoginWindow},
		logger, auditLogger)
	companyService := services.NewCompanyService(companyRepo, logger, auditLogger)
	userService := services.NewUserService(userRepo, logger, auditLogger)
	scheduleService := services.NewScheduleService(departmentRepo, templateRepo, shiftRepo, logger)
	absenceService := services.NewAbsenceService(absenceRepo, logger, auditLogger)

	// Handlers
	cookieConfig := auth.CookieConfig{Secure: cfg.Auth.CookieSecure}
	ipConfig := &pkghttp.IPConfig{TrustedProxies: cfg.Server.TrustedProxies}

	handlerSet := routes.Handlers{
		Auth:     handlers.NewAuthHandler(authService, cookieConfig, ipConfig),
		MFA:      handlers.NewMFAHandler(mfaService, userRepo),
		Company:  handlers.NewCompanyHandler(companyService),
		Employee: handlers.NewEmployeeHandler(userService),
		Schedule: handlers.NewScheduleHandler(scheduleService),
		Absence:  handlers.NewAbsenceHandler(absenceService),
	}

	corsConfig := middlewareCustom.DefaultCORSConfig(cfg.Server.AllowedOrigins)

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middlewareCustom.SecurityHeaders(middlewareCustom.SecurityHeadersConfig{Env: cfg.Server.Env}))
	router.Use(middlewareCustom.CORS(corsConfig))
	router.Use(middlewareCustom.SecureLogger(logger))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))

	router.Route("/api/v1", func(r chi.Router) {
		routes.RegisterRoutes(r, handlerSet, tokenManager)
	})

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := db.HealthCheck(ctx); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"unhealthy","database":"down"}`))
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy","database":"up"}`))
	})

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	defer cleanupCancel()
	go cleanupManager.Start(cleanupCtx)

	go func() {
		logger.Info("starting server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received")

	cleanupCancel()
	cleanupManager.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("server stopped gracefully")
}
