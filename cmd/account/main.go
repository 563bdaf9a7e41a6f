package main

import (
	"context"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	accounthttp "github.com/useraccounts/backend/internal/account/http"
	accountservice "github.com/useraccounts/backend/internal/account/service"
	"github.com/useraccounts/backend/internal/auth/cleanup"
	authhttp "github.com/useraccounts/backend/internal/auth/http"
	"github.com/useraccounts/backend/internal/auth/middleware"
	authservice "github.com/useraccounts/backend/internal/auth/service"
	"github.com/useraccounts/backend/internal/common/clock"
	"github.com/useraccounts/backend/internal/common/config"
	"github.com/useraccounts/backend/internal/common/crypto"
	"github.com/useraccounts/backend/internal/common/db"
	commonhttp "github.com/useraccounts/backend/internal/common/http"
	"github.com/useraccounts/backend/internal/common/logger"
	"github.com/useraccounts/backend/internal/common/server"
	"github.com/useraccounts/backend/internal/notification"
	"github.com/useraccounts/backend/internal/storage"
	"github.com/useraccounts/backend/internal/token"
	tokenrepo "github.com/useraccounts/backend/internal/token/repository"
	userrepo "github.com/useraccounts/backend/internal/user/repository"
	usershttp "github.com/useraccounts/backend/internal/users/http"
	usersservice "github.com/useraccounts/backend/internal/users/service"
)

func main() {
	log, err := logger.New(os.Getenv("LOG_DIR"), "account", os.Getenv("LOG_LEVEL"))
	if err != nil {
		panic(err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := db.RunMigrations(ctx, cfg.DatabaseURL); err != nil {
		log.Fatalf("failed to run migrations: %v", err)
	}

	pool := db.NewPool(log, cfg.DatabaseURL)
	defer pool.Close()

	clk := clock.NewRealClock()
	hasher := &crypto.BcryptHasher{}
	ids := crypto.NewUUIDGenerator()

	users := userrepo.NewPgRepository(pool)
	revocations := tokenrepo.NewPgRevocationStore(pool)
	resets := tokenrepo.NewPgResetStore(pool)

	tokens := token.NewService(token.Config{
		AccessSecret:  cfg.AccessTokenSecret,
		AccessTTL:     cfg.AccessTokenTTL,
		RefreshSecret: cfg.RefreshTokenSecret,
		RefreshTTL:    cfg.RefreshTokenTTL,
		ResetTTL:      cfg.ResetTokenTTL,
	}, revocations, resets, ids, clk, log)

	blobs, err := storage.NewS3Store(ctx, cfg.S3)
	if err != nil {
		log.Fatalf("failed to initialize blob storage: %v", err)
	}

	producer := notification.NewKafkaProducer(cfg.Kafka, clk, log)

	auth := authservice.NewAuthService(users, tokens, hasher, ids, producer, clk, log)
	account := accountservice.NewAccountService(users, hasher, blobs, clk, log)
	admin := usersservice.NewUsersService(users, hasher, ids, blobs, clk, log)

	mw := middleware.New(tokens, users, log)

	cleanup.StartSweep(ctx, revocations, "revoked_tokens", 0, log)
	cleanup.StartSweep(ctx, resets, "reset_tokens", 0, log)

	mux := http.NewServeMux()
	mux.HandleFunc("/health", commonhttp.RequireMethod(http.MethodGet)(commonhttp.HealthHandler()))
	mux.Handle("/metrics", promhttp.Handler())
	authhttp.NewHandler(auth, log).Register(mux)
	accounthttp.NewHandler(account, mw, log).Register(mux)
	usershttp.NewHandler(admin, account, mw, log).Register(mux)

	handler := commonhttp.BuildBaseHandler(log, commonhttp.WithTimeout(cfg.RequestTimeout)(mux.ServeHTTP))
	srv := server.NewServer(server.DefaultServerConfig(cfg.HTTPPort), handler)

	hooks := []server.ShutdownHook{
		func(context.Context) error {
			cancel()
			return nil
		},
		func(context.Context) error {
			return producer.Close()
		},
	}

	server.StartWithGracefulShutdown(srv, log, "account", hooks)
}
