package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"crypto-gift-system/config"
	"crypto-gift-system/database"
	"crypto-gift-system/handlers"
	"crypto-gift-system/middleware"
	"crypto-gift-system/services"
	"crypto-gift-system/utils"

	"github.com/go-co-op/gocron/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	utils.SetupLogging(cfg.LogLevel, cfg.LogFile)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	swaps := services.NewSideShiftClient(
		cfg.SideShift.BaseURL,
		cfg.SideShift.Secret,
		cfg.SideShift.AffiliateID,
		utils.NewHTTPClient(cfg.ProviderTimeout),
	)

	receipts := newReceiptStore(ctx, cfg)

	giftService := services.NewGiftService(services.NewGormGiftRepository(db), swaps, receipts, services.GiftServiceOptions{
		Settlement:      cfg.Settlement,
		PublicBaseURL:   cfg.PublicBaseURL,
		ProviderTimeout: cfg.ProviderTimeout,
		StoreTimeout:    cfg.StoreTimeout,
	})

	idempotency, scheduler := newIdempotencyStore(ctx, cfg, db)

	app := fiber.New(fiber.Config{
		BodyLimit:             64 * 1024,
		DisableStartupMessage: true,
	})

	app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(cfg.AllowedOrigins, ","),
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, Idempotency-Key",
		MaxAge:       86400,
	}))

	handlers.SetupHealthRoutes(app, func(ctx context.Context) error { return database.Ping(ctx, db) }, cfg.StoreTimeout)
	handlers.SetupCatalogRoutes(app, swaps, cfg.ProviderTimeout)
	handlers.SetupGiftRoutes(app, giftService, handlers.GiftRoutesOptions{
		Idempotency: middleware.IdempotencyMiddleware(idempotency, "gifts.create", cfg.IdempotencyTTL, cfg.StoreTimeout),
	})
	handlers.SetupAdminRoutes(app, giftService, cfg.OperatorToken)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Errorf("server error: %v", err)
			stop()
		}
	}()

	log.Infof("✅ Server running on http://localhost:%s", cfg.Port)
	log.Infof("✅ Settlement asset: %s on %s", cfg.Settlement.Coin, cfg.Settlement.Network)
	log.Infof("✅ CORS configured for origins: %s", strings.Join(cfg.AllowedOrigins, ","))
	if cfg.OperatorToken == "" {
		log.Warn("OPERATOR_TOKEN not set, admin routes disabled")
	}

	<-ctx.Done()
	log.Info("Shutting down server...")

	if scheduler != nil {
		if err := scheduler.Shutdown(); err != nil {
			log.Warnf("scheduler shutdown: %v", err)
		}
	}
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Warnf("server shutdown: %v", err)
	}
}

// newReceiptStore archives claim receipts to R2 when credentials are present.
func newReceiptStore(ctx context.Context, cfg config.Config) services.ReceiptStore {
	if !cfg.R2.Enabled() {
		log.Info("R2 not configured, claim receipts will not be archived")
		return services.NoopReceiptStore{}
	}
	client, err := utils.NewR2Client(ctx, utils.R2Endpoint(cfg.R2.AccountID), cfg.R2.AccessKeyID, cfg.R2.AccessKeySecret)
	if err != nil {
		log.Fatalf("failed to initialize R2 client: %v", err)
	}
	log.Infof("✅ Claim receipts archived to R2 bucket %s", cfg.R2.Bucket)
	return services.NewR2ReceiptStore(client, cfg.R2.Bucket)
}

// newIdempotencyStore prefers Redis; the database store needs the expiry sweep.
func newIdempotencyStore(ctx context.Context, cfg config.Config, db *gorm.DB) (services.IdempotencyStore, gocron.Scheduler) {
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Fatalf("invalid REDIS_URL: %v", err)
		}
		client := redis.NewClient(opts)
		pingCtx, cancel := context.WithTimeout(ctx, cfg.StoreTimeout)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			log.Fatalf("failed to connect to redis: %v", err)
		}
		log.Info("✅ Idempotency keys stored in Redis")
		return services.NewRedisIdempotencyStore(client, ""), nil
	}

	store := services.NewDBIdempotencyStore(db)
	scheduler, err := services.StartMaintenanceScheduler(store, cfg.StoreTimeout)
	if err != nil {
		log.Fatalf("failed to start maintenance scheduler: %v", err)
	}
	log.Info("✅ Idempotency keys stored in database, sweep every 10m")
	return store, scheduler
}
