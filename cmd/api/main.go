package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/BradenHooton/usermanager/internal/auth"
	"github.com/BradenHooton/usermanager/internal/background"
	"github.com/BradenHooton/usermanager/internal/config"
	"github.com/BradenHooton/usermanager/internal/database"
	"github.com/BradenHooton/usermanager/internal/handlers"
	"github.com/BradenHooton/usermanager/internal/repositories"
	"github.com/BradenHooton/usermanager/internal/routes"
	"github.com/BradenHooton/usermanager/internal/services"
	pkgauth "github.com/BradenHooton/usermanager/pkg/auth"
	pkghttp "github.com/BradenHooton/usermanager/pkg/http"
	pkglogger "github.com/BradenHooton/usermanager/pkg/logger"
	"golang.org/x/sync/errgroup"
)

func main() {
	level := new(slog.LevelVar)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}
	level.Set(parseLevel(cfg.Server.LogLevel))

	logger.Info("configuration loaded", slog.String("env", cfg.Server.Env))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize database
	db, err := database.NewConnection(&cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Migrate(ctx); err != nil {
		logger.Error("failed to apply migrations", slog.Any("error", err))
		os.Exit(1)
	}

	accountRepo := repositories.NewAccountRepository(db)
	hasher := pkgauth.NewHasher(cfg.Auth.BcryptCost)

	tokenManager, err := auth.NewTokenManager(auth.TokenConfig{
		Secret:   cfg.Auth.JWTSecret,
		Issuer:   cfg.Auth.JWTIssuer,
		Lifetime: cfg.Auth.TokenLifetime,
	})
	if err != nil {
		logger.Error("failed to initialize token manager", slog.Any("error", err))
		os.Exit(1)
	}

	policy := auth.NewLockoutPolicy(
		cfg.Lockout.MaxFailedAttempts,
		cfg.Lockout.Duration,
		cfg.Lockout.AdminLockDuration,
		cfg.Lockout.SuperAdminUserName,
	)
	access := auth.NewAccessControl(cfg.Lockout.SuperAdminUserName)
	auditLogger := pkglogger.NewAuditLogger(logger)

	var notifier services.LockoutNotifier = services.NoopNotifier{}
	if cfg.Email.FromAddress != "" {
		sesNotifier, err := services.NewSESLockoutNotifier(ctx, cfg.Email.AWSRegion, cfg.Email.FromAddress, logger)
		if err != nil {
			logger.Error("failed to initialize email service", slog.Any("error", err))
			os.Exit(1)
		}
		notifier = sesNotifier
	}

	// Initialize services
	authService := services.NewAuthService(services.AuthServiceConfig{
		Store:        accountRepo,
		Hasher:       hasher,
		Tokens:       tokenManager,
		Policy:       policy,
		Delay:        auth.NewFailureDelay(cfg.Auth.FailureDelayBaseMs, cfg.Auth.FailureDelayRandomMs),
		Notifier:     notifier,
		Logger:       logger,
		Audit:        auditLogger,
		StoreTimeout: cfg.Auth.StoreTimeout,
	})
	directoryService := services.NewDirectoryService(services.DirectoryServiceConfig{
		Store:        accountRepo,
		Hasher:       hasher,
		Access:       access,
		Policy:       policy,
		Logger:       logger,
		Audit:        auditLogger,
		StoreTimeout: cfg.Auth.StoreTimeout,
	})

	if cfg.Seed.Enabled {
		seeder := services.NewSeeder(accountRepo, hasher, logger, cfg.Auth.StoreTimeout)
		if err := seeder.Seed(ctx, services.SeedConfig{
			SuperAdminUserName: cfg.Lockout.SuperAdminUserName,
			AdminPassword:      cfg.Seed.AdminPassword,
			UserPassword:       cfg.Seed.UserPassword,
		}); err != nil {
			logger.Error("failed to seed data", slog.Any("error", err))
			os.Exit(1)
		}
	}

	ipConfig := pkghttp.NewIPConfig(cfg.Server.TrustedProxies)

	router := routes.NewRouter(routes.Config{
		AuthHandler:         handlers.NewAuthHandler(authService, ipConfig, logger),
		AdminHandler:        handlers.NewAdminHandler(directoryService, logger),
		Tokens:              tokenManager,
		Access:              access,
		Health:              db,
		Logger:              logger,
		IPConfig:            ipConfig,
		Env:                 cfg.Server.Env,
		AllowedOrigins:      cfg.Server.AllowedOrigins,
		LoginRequestsPerMin: cfg.Auth.LoginRequestsPerMin,
		RequestTimeout:      cfg.Server.RequestTimeout,
	})

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	sweeper := background.NewLockoutSweeper(accountRepo, logger, cfg.Lockout.SweepInterval)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		return sweeper.Run(gctx)
	})

	// Graceful shutdown
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server error", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("server stopped gracefully")
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
