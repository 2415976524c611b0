package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/altmarkt/altmarkt-backend/internal/data/db"
	"github.com/altmarkt/altmarkt-backend/internal/data/repos"
	"github.com/altmarkt/altmarkt-backend/internal/handlers"
	"github.com/altmarkt/altmarkt-backend/internal/middleware"
	"github.com/altmarkt/altmarkt-backend/internal/modules/exchange"
	"github.com/altmarkt/altmarkt-backend/internal/platform/envutil"
	"github.com/altmarkt/altmarkt-backend/internal/platform/gcs"
	"github.com/altmarkt/altmarkt-backend/internal/platform/logger"
	"github.com/altmarkt/altmarkt-backend/internal/platform/sendgrid"
	"github.com/altmarkt/altmarkt-backend/internal/server"
	"github.com/altmarkt/altmarkt-backend/internal/services"
)

func main() {
	// Logger
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Env
	log.Info("Loading environment variables from main...")
	jwtSecretKey := envutil.Str("JWT_SECRET_KEY", "defaultsecret")
	accessTTL := envutil.Duration("ACCESS_TOKEN_TTL", time.Hour)
	refreshTTL := envutil.Duration("REFRESH_TOKEN_TTL", 30*24*time.Hour)
	exchangeRoot := envutil.Str("EXCHANGE_ROOT_DIR", "./exchange-data")
	lockTTL := envutil.Duration("EXCHANGE_LOCK_TTL", 30*time.Minute)
	fileLimit := int64(envutil.Int("EXCHANGE_FILE_LIMIT", 100<<20))
	syncInterval := envutil.Duration("EXCHANGE_SYNC_INTERVAL", 0)
	listenAddr := envutil.Str("LISTEN_ADDR", ":8080")

	// Postgres
	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Fatal("Postgres init failed", "error", err)
	}
	if err := postgresService.AutoMigrateAll(); err != nil {
		log.Fatal("Postgres auto migration failed", "error", err)
	}
	thePG := postgresService.DB()

	// Repos
	log.Info("Setting up Repos from main...")
	userRepo := repos.NewUserRepo(thePG, log)
	userTokenRepo := repos.NewUserTokenRepo(thePG, log)
	companyRepo := repos.NewCompanyRepo(thePG, log)
	productRepo := repos.NewProductRepo(thePG, log)
	itemRepo := repos.NewItemRepo(thePG, log)

	// Platform clients
	bucket, err := gcs.NewBucketService(log)
	if err != nil {
		log.Fatal("Bucket init failed", "error", err)
	}
	mailClient, err := sendgrid.NewFromEnv(log)
	if err != nil {
		log.Fatal("SendGrid init failed", "error", err)
	}

	// Exchange pipeline
	scanner := exchange.NewScanner(exchangeRoot, log)
	var sweepLock exchange.SweepLock
	if os.Getenv("REDIS_ADDR") != "" {
		sweepLock, err = exchange.NewRedisSweepLock(log, lockTTL)
		if err != nil {
			log.Fatal("Redis sweep lock init failed", "error", err)
		}
	}
	runner := exchange.NewCoordinator(exchange.CoordinatorConfig{
		Scanner:          scanner,
		Lock:             exchange.NewFolderLock(lockTTL, log),
		Products:         exchange.NewGormProductStore(productRepo),
		Images:           exchange.NewBucketImageStore(bucket),
		Companies:        exchange.NewGormCompanyGate(companyRepo),
		Sweep:            sweepLock,
		SweepConcurrency: envutil.Int("EXCHANGE_SWEEP_CONCURRENCY", 4),
	}, log)

	// Services
	log.Info("Setting up Services from main...")
	mailService := services.NewMailService(log, mailClient)
	authService := services.NewAuthService(thePG, log, userRepo, userTokenRepo, mailService, jwtSecretKey, accessTTL, refreshTTL)
	userService := services.NewUserService(thePG, log, userRepo, userTokenRepo, companyRepo, bucket)
	companyService := services.NewCompanyService(thePG, log, companyRepo, bucket)
	productService := services.NewProductService(thePG, log, productRepo)
	itemService := services.NewItemService(thePG, log, itemRepo, companyService)
	exchangeService := services.NewExchangeService(log, scanner, runner, fileLimit)

	// Catch up on feeds uploaded while the process was down.
	if envutil.Bool("EXCHANGE_SWEEP_ON_START", false) {
		go func() {
			if _, err := exchangeService.RunAll(context.Background()); err != nil {
				log.Error("Startup exchange sweep failed", "error", err)
			}
		}()
	}

	// Optional sweep ticker; the production cron stays external.
	if syncInterval > 0 {
		go func() {
			ticker := time.NewTicker(syncInterval)
			defer ticker.Stop()
			for range ticker.C {
				if _, err := exchangeService.RunAll(context.Background()); err != nil {
					log.Error("Exchange sweep failed", "error", err)
				}
			}
		}()
	}

	// HTTP
	router := server.NewRouter(server.RouterConfig{
		Log:             log,
		AuthMiddleware:  middleware.NewAuthMiddleware(log, authService),
		AuthHandler:     handlers.NewAuthHandler(authService),
		UserHandler:     handlers.NewUserHandler(userService),
		CompanyHandler:  handlers.NewCompanyHandler(companyService),
		ProductHandler:  handlers.NewProductHandler(productService),
		ItemHandler:     handlers.NewItemHandler(itemService),
		SeoHandler:      handlers.NewSeoHandler(productService, companyRepo),
		ExchangeHandler: handlers.NewExchangeHandler(authService, companyService, exchangeService),
	})

	log.Info("Starting HTTP server", "addr", listenAddr)
	if err := router.Run(listenAddr); err != nil {
		log.Fatal("HTTP server exited", "error", err)
	}
}
