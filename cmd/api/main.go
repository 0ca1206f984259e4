package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fixed-deposit-bank/config"
	"fixed-deposit-bank/internal/adapter/authz"
	"fixed-deposit-bank/internal/adapter/clock"
	httpHandler "fixed-deposit-bank/internal/adapter/http/handler"
	pgStorage "fixed-deposit-bank/internal/adapter/storage/postgres"
	redisStorage "fixed-deposit-bank/internal/adapter/storage/redis"
	"fixed-deposit-bank/internal/core/ports"
	"fixed-deposit-bank/internal/service"
	"fixed-deposit-bank/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)

	log.Info().
		Str("mode", cfg.Server.Mode).
		Int("port", cfg.Server.Port).
		Msg("Starting Fixed Deposit Bank")

	ctx := context.Background()

	// Initialize PostgreSQL pool
	pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()
	log.Info().Msg("PostgreSQL connected")

	// Initialize Redis client
	rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()
	log.Info().Msg("Redis connected")

	// Initialize repositories
	accountRepo := pgStorage.NewAccountRepo(pool)
	depositRepo := pgStorage.NewDepositRepo(pool)
	lockRepo := pgStorage.NewMembershipLockRepo(pool)
	policyRepo := pgStorage.NewPolicyRepo(pool)
	eventRepo := pgStorage.NewEventRepo(pool)
	transactor := pgStorage.NewTransactor(pool)

	// Block clock derived from wall time against the configured genesis
	blockClock, err := clock.NewGenesisClock(cfg.Chain)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize block clock")
	}

	// Privileged callers for policy administration
	authorizer := authz.NewStaticAuthorizer(cfg.Bank.AdminUsernames)

	// Initialize core services
	hashSvc := service.NewArgon2HashService()
	tokenSvc := service.NewJWTTokenService(cfg.JWT.Secret, cfg.JWT.Expiry, cfg.JWT.Issuer)

	// Initialize business services
	authSvc := service.NewAuthService(accountRepo, hashSvc, tokenSvc, authorizer, log)
	accountSvc := service.NewAccountService(accountRepo, eventRepo, transactor, blockClock, log)
	depositSvc := service.NewDepositService(accountRepo, depositRepo, policyRepo, eventRepo, transactor, blockClock, cfg.Bank, log)
	policySvc := service.NewPolicyService(accountRepo, policyRepo, eventRepo, transactor, authorizer, blockClock, log)
	membershipSvc := service.NewMembershipService(accountRepo, lockRepo, eventRepo, transactor, blockClock, cfg.Bank, log)

	// Initialize rate limit store
	rateLimitStore := redisStorage.NewRateLimitStore(rdb)

	// Initialize health checkers
	pgHealth := pgStorage.NewHealthCheck(pool)
	redisHealth := redisStorage.NewHealthCheck(rdb)

	// Setup Gin router with all routes
	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		AuthSvc:        authSvc,
		AccountSvc:     accountSvc,
		DepositSvc:     depositSvc,
		PolicySvc:      policySvc,
		MembershipSvc:  membershipSvc,
		TokenSvc:       tokenSvc,
		RateLimitStore: rateLimitStore,
		HealthCheckers: []ports.HealthChecker{pgHealth, redisHealth},
		Logger:         log,
	})

	// HTTP Server with graceful shutdown
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}
