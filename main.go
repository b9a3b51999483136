package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gorm.io/gorm"

	"katalog/internal/config"
	"katalog/internal/handlers"
	"katalog/internal/logging"
	"katalog/internal/models"
	"katalog/internal/repositories"
	"katalog/internal/services"
	"katalog/pkg/cache"
	"katalog/pkg/database"
	"katalog/pkg/kafka"
	"katalog/pkg/rabbitmq"
)

func main() {
	// --- Configuration ---
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := logging.New(cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var closers []func() error
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil {
				logger.Warn("error during shutdown", "error", err)
			}
		}
	}()

	// --- Storage ---
	productRepo, userRepo, closeStore, err := openStores(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to open storage", "driver", cfg.StorageDriver, "error", err)
		os.Exit(1)
	}
	closers = append(closers, closeStore)

	// --- Cache ---
	if cfg.RedisAddr != "" {
		rc, err := cache.NewRedisClient(ctx, cache.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			logger.Warn("redis unavailable, product cache disabled", "error", err)
		} else {
			closers = append(closers, rc.Close)
			productRepo = repositories.NewCachedProductRepository(productRepo, rc, cfg.CacheTTL, logger)
			logger.Info("product cache enabled", "addr", cfg.RedisAddr, "ttl", cfg.CacheTTL)
		}
	}

	// --- Events ---
	events, closeEvents, err := openEvents(cfg)
	if err != nil {
		logger.Warn("event publisher unavailable, events disabled", "driver", cfg.EventsDriver, "error", err)
	} else if events != nil {
		closers = append(closers, closeEvents)
		logger.Info("publishing product events", "driver", cfg.EventsDriver)
	}

	// --- Services ---
	productService := services.NewProductService(productRepo, services.ProductServiceConfig{
		Events:    events,
		Logger:    logger,
		PatchMode: cfg.UpdateMode,
		Timeout:   cfg.DBTimeout,
	})
	authService := services.NewAuthService(userRepo, cfg.JWTSecret, cfg.JWTExpiry, logger)

	// --- HTTP ---
	app := handlers.NewApp(handlers.AppOptions{
		Products:    productService,
		Auth:        authService,
		Logger:      logger,
		ShowStack:   !cfg.IsProduction(),
		CORSOrigins: cfg.CORSOrigins,
		AccessLog:   os.Stdout,
	})

	go func() {
		logger.Info("starting server", "addr", cfg.Port, "env", cfg.Env, "storage", cfg.StorageDriver)
		if err := app.Listen(cfg.Port); err != nil {
			logger.Error("server failed", "error", err)
			stop()
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	<-ctx.Done()
	logger.Info("shutting down server")

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Error("error during fiber shutdown", "error", err)
	}
	logger.Info("server gracefully stopped")
}

func openStores(ctx context.Context, cfg *config.Config, logger *slog.Logger) (repositories.ProductRepository, repositories.UserRepository, func() error, error) {
	switch cfg.StorageDriver {
	case config.StorageMongo:
		client, db, err := database.OpenMongo(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, nil, nil, err
		}
		closeFn := func() error { return client.Disconnect(context.Background()) }

		products := repositories.NewMongoProductRepository(db)
		users := repositories.NewMongoUserRepository(db)
		if err := products.EnsureIndexes(ctx); err != nil {
			closeFn()
			return nil, nil, nil, err
		}
		if err := users.EnsureIndexes(ctx); err != nil {
			closeFn()
			return nil, nil, nil, err
		}
		logger.Info("connected to mongo", "database", cfg.MongoDatabase)
		return products, users, closeFn, nil

	case config.StoragePostgres, config.StorageSQLite:
		var (
			db  *gorm.DB
			err error
		)
		if cfg.StorageDriver == config.StoragePostgres {
			db, err = database.OpenPostgres(ctx, cfg.DatabaseDSN)
		} else {
			db, err = database.OpenSQLite(ctx, cfg.SQLitePath)
		}
		if err != nil {
			return nil, nil, nil, err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to get sql.DB: %w", err)
		}
		if err := database.Migrate(db, &models.Product{}, &models.User{}); err != nil {
			sqlDB.Close()
			return nil, nil, nil, err
		}
		logger.Info("connected to database", "driver", cfg.StorageDriver)
		return repositories.NewGORMProductRepository(db), repositories.NewGORMUserRepository(db), sqlDB.Close, nil

	default:
		logger.Warn("using in-memory storage, data is lost on restart")
		return repositories.NewMockProductRepository(), repositories.NewMockUserRepository(), func() error { return nil }, nil
	}
}

func openEvents(cfg *config.Config) (services.EventPublisher, func() error, error) {
	switch cfg.EventsDriver {
	case config.EventsRabbitMQ:
		client, err := rabbitmq.NewClient(rabbitmq.Config{URL: cfg.RabbitMQURL, Queue: cfg.RabbitMQQueue})
		if err != nil {
			return nil, nil, err
		}
		return client, client.Close, nil
	case config.EventsKafka:
		producer, err := kafka.NewProducer(kafka.Config{Brokers: cfg.KafkaBrokers, Topic: cfg.KafkaTopic})
		if err != nil {
			return nil, nil, err
		}
		return producer, producer.Close, nil
	default:
		return nil, nil, nil
	}
}
