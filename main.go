package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/streadway/amqp"
	"go.uber.org/zap"

	"inventory/internal/app"
	"inventory/internal/config"
	"inventory/internal/database"
	"inventory/internal/events"
	"inventory/internal/logging"
	"inventory/internal/metrics"
	"inventory/internal/models"
	"inventory/internal/repositories"
	"inventory/pkg/kafka"
	"inventory/pkg/rabbitmq"
)

const shutdownTimeout = 10 * time.Second

func main() {
	os.Exit(start())
}

// start returns the process exit code once every deferred cleanup has run.
func start() int {
	// --- Configuration ---
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	log, err := logging.New("inventory", cfg.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Error("server stopped with error", zap.Error(err))
		return 1
	}
	return 0
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx := context.Background()

	// --- Storage ---
	deps, closeStorage, err := openStorage(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStorage()

	// --- Product events ---
	sink, closeSink, err := newEventSink(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeSink.Close(); err != nil {
			log.Warn("closing event broker", zap.Error(err))
		}
	}()
	deps.Notifier = events.NewNotifier(sink, log)

	if mq, ok := sink.(*rabbitmq.Client); ok && cfg.EventsConsume {
		go consumeEvents(mq, log)
	}

	// --- HTTP ---
	deps.Log = log
	deps.AllowOrigins = cfg.CORSAllowOrigins
	if cfg.MetricsEnabled {
		var reg *prometheus.Registry
		reg, deps.Metrics = metrics.NewRegistry()
		deps.Registry = reg
	}
	server := app.New(deps)

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting server",
			zap.String("addr", cfg.AppPort),
			zap.String("db_driver", cfg.DBDriver),
			zap.String("events_broker", cfg.EventsBroker),
		)
		errCh <- server.Listen(cfg.AppPort)
	}()

	// Graceful shutdown handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("listen %s: %w", cfg.AppPort, err)
	case sig := <-quit:
		log.Info("shutting down server", zap.String("signal", sig.String()))
	}

	if err := server.ShutdownWithTimeout(shutdownTimeout); err != nil {
		log.Error("error during shutdown", zap.Error(err))
	}
	log.Info("server gracefully stopped")
	return nil
}

// openStorage prepares the product storage selected by DB_DRIVER. SQL drivers
// get a per-request session provider, the memory driver a shared repository.
func openStorage(ctx context.Context, cfg *config.Config, log *zap.Logger) (app.Deps, func(), error) {
	if cfg.DBDriver == config.DriverMemory {
		repo := repositories.NewMemoryProductRepository()
		if cfg.SeedData {
			seedProducts(ctx, repo, log)
		}
		return app.Deps{Repository: repo}, func() {}, nil
	}

	dsn := cfg.DatabaseURL
	if cfg.DBDriver == config.DriverSQLite {
		dsn = cfg.SQLitePath
	}
	db, err := database.Open(ctx, database.Config{
		Driver:      cfg.DBDriver,
		DSN:         dsn,
		AutoMigrate: cfg.AutoMigrate,
		Log:         log,
	})
	if err != nil {
		return app.Deps{}, nil, err
	}
	pool := database.NewPool(db)
	if cfg.SeedData {
		seedProducts(ctx, repositories.NewGORMProductRepository(pool.Session(ctx)), log)
	}

	closeFn := func() {
		if err := pool.Close(); err != nil {
			log.Warn("closing database", zap.Error(err))
		}
	}
	return app.Deps{Provider: pool}, closeFn, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// newEventSink connects to the broker selected by EVENTS_BROKER. The sink is
// nil when events are disabled.
func newEventSink(cfg *config.Config) (events.Sink, io.Closer, error) {
	switch cfg.EventsBroker {
	case config.BrokerRabbitMQ:
		client, err := rabbitmq.NewClient(rabbitmq.Config{URL: cfg.RabbitMQURL, Queue: cfg.EventsTopic})
		if err != nil {
			return nil, nil, fmt.Errorf("rabbitmq: %w", err)
		}
		return client, client, nil
	case config.BrokerKafka:
		producer, err := kafka.NewProducer(cfg.KafkaBrokers, cfg.EventsTopic)
		if err != nil {
			return nil, nil, err
		}
		return producer, producer, nil
	default:
		return nil, nopCloser{}, nil
	}
}

// consumeEvents logs every product event read back from the queue.
func consumeEvents(mq *rabbitmq.Client, log *zap.Logger) {
	log.Info("starting product event consumer")
	err := mq.Consume(func(msg amqp.Delivery) error {
		// Requeueing a body that cannot be decoded would loop forever.
		if err := logEvent(log, msg.Body); err != nil {
			log.Warn("dropping product event", zap.String("message_id", msg.MessageId), zap.Error(err))
		}
		return nil
	})
	if err != nil {
		log.Error("product event consumer stopped", zap.Error(err))
	}
}

func logEvent(log *zap.Logger, body []byte) error {
	var event events.Event
	if err := json.Unmarshal(body, &event); err != nil {
		return fmt.Errorf("decode product event: %w", err)
	}
	log.Info("product event received",
		zap.String("type", string(event.Type)),
		zap.String("product_id", event.ProductID),
		zap.Time("occurred_at", event.OccurredAt),
	)
	return nil
}

// seedProducts populates an empty store with some initial data.
func seedProducts(ctx context.Context, repo repositories.ProductRepository, log *zap.Logger) {
	existing, err := repo.List(ctx, "")
	if err != nil {
		log.Warn("seed skipped", zap.Error(err))
		return
	}
	if len(existing) > 0 {
		return
	}

	products := []models.Product{
		{Name: "Laptop", Description: "High performance laptop", Price: decimal.RequireFromString("1200.00"), Category: "Electronics"},
		{Name: "Running Shoes", Description: "Lightweight trainers", Price: decimal.RequireFromString("89.90"), Category: "Sports"},
		{Name: "Desk Lamp", Description: "LED lamp with warm light", Price: decimal.RequireFromString("39.50"), Category: "Home"},
		{Name: "Leather Wallet", Description: "Slim bifold wallet", Price: decimal.RequireFromString("25.00"), Category: "Accessories"},
	}
	for i := range products {
		if err := repo.Create(ctx, &products[i]); err != nil {
			log.Warn("error seeding product", zap.String("name", products[i].Name), zap.Error(err))
			continue
		}
		log.Debug("seeded product", zap.String("name", products[i].Name), zap.String("id", products[i].ID))
	}
}
