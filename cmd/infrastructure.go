package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"courier-dispatch/internal/adapters/in/ops"
	"courier-dispatch/internal/adapters/out/kafka"
	"courier-dispatch/internal/adapters/out/memcache"
	"courier-dispatch/internal/adapters/out/postgres"
	"courier-dispatch/internal/adapters/out/rabbitmq"
	"courier-dispatch/internal/adapters/out/redis"
	"courier-dispatch/internal/core/ports"

	"github.com/IBM/sarama"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/rueidis"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Infrastructure owns every external connection of the process.
type Infrastructure struct {
	DB        *gorm.DB
	Pool      *pgxpool.Pool
	Cache     ports.LocationCache
	Publisher ports.EventPublisher
	Notifier  ports.CourierNotifier
	Checks    map[string]ops.Check

	closers []func() error
}

// OpenInfrastructure connects to PostgreSQL and the optional Redis, Kafka and RabbitMQ,
// and migrates the schema. Connections opened before a failure are closed again.
func OpenInfrastructure(ctx context.Context, cfg Config, log *slog.Logger) (_ *Infrastructure, err error) {
	infra := &Infrastructure{Checks: map[string]ops.Check{}}
	defer func() {
		if err != nil {
			infra.Close()
		}
	}()

	if err = infra.openPostgres(ctx, cfg); err != nil {
		return nil, err
	}
	if err = infra.openCache(cfg, log); err != nil {
		return nil, err
	}
	if err = infra.openPublisher(cfg, log); err != nil {
		return nil, err
	}
	if err = infra.openNotifier(cfg, log); err != nil {
		return nil, err
	}
	return infra, nil
}

func (i *Infrastructure) openPostgres(ctx context.Context, cfg Config) error {
	db, err := gorm.Open(gormpostgres.Open(cfg.DSN()), &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)})
	if err != nil {
		return fmt.Errorf("open postgres: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("open postgres: %w", err)
	}
	i.DB = db
	i.closers = append(i.closers, sqlDB.Close)
	i.Checks["postgres"] = sqlDB.PingContext

	if err = postgres.AutoMigrate(db); err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}

	pool, err := pgxpool.New(ctx, cfg.DSN())
	if err != nil {
		return fmt.Errorf("open pgx pool: %w", err)
	}
	i.Pool = pool
	i.closers = append(i.closers, func() error { pool.Close(); return nil })
	return nil
}

func (i *Infrastructure) openCache(cfg Config, log *slog.Logger) error {
	if cfg.RedisAddr == "" {
		cache, err := memcache.NewLocationCache(cfg.LocationHotTTL)
		if err != nil {
			return fmt.Errorf("create in-process location cache: %w", err)
		}
		log.Info("using in-process location cache")
		i.Cache = cache
		i.closers = append(i.closers, func() error { cache.Close(); return nil })
		return nil
	}

	client, err := rueidis.NewClient(rueidis.ClientOption{InitAddress: []string{cfg.RedisAddr}})
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	i.Cache = redis.NewLocationCache(client, cfg.LocationHotTTL)
	i.closers = append(i.closers, func() error { client.Close(); return nil })
	i.Checks["redis"] = func(ctx context.Context) error {
		return client.Do(ctx, client.B().Ping().Build()).Error()
	}
	return nil
}

func (i *Infrastructure) openPublisher(cfg Config, log *slog.Logger) error {
	brokers := cfg.KafkaBrokers()
	if len(brokers) == 0 {
		log.Warn("kafka is not configured; outbox messages stay pending")
		return nil
	}

	producer, err := sarama.NewSyncProducer(brokers, kafka.NewProducerConfig(cfg.KafkaClientID))
	if err != nil {
		return fmt.Errorf("create kafka producer: %w", err)
	}
	publisher := kafka.NewPublisher(producer, kafka.Topics{
		PackageStatus:   cfg.KafkaPackageTopic,
		CourierEvents:   cfg.KafkaCourierTopic,
		CourierLocation: cfg.KafkaLocationEventTopic,
	})
	i.Publisher = publisher
	i.closers = append(i.closers, publisher.Close)
	return nil
}

func (i *Infrastructure) openNotifier(cfg Config, log *slog.Logger) error {
	if cfg.RabbitMQURL == "" {
		log.Warn("rabbitmq is not configured; assignment notifications are only logged")
		i.Notifier = logNotifier{logger: log.With("component", "assignment_notifier")}
		return nil
	}

	notifier, err := rabbitmq.Dial(cfg.RabbitMQURL, cfg.RabbitMQExchange)
	if err != nil {
		return fmt.Errorf("connect rabbitmq: %w", err)
	}
	i.Notifier = notifier
	i.closers = append(i.closers, notifier.Close)
	return nil
}

// Close releases connections in reverse order of opening.
func (i *Infrastructure) Close() {
	for k := len(i.closers) - 1; k >= 0; k-- {
		_ = i.closers[k]()
	}
	i.closers = nil
}

// logNotifier stands in for RabbitMQ in local setups.
type logNotifier struct {
	logger *slog.Logger
}

func (n logNotifier) NotifyAssignment(ctx context.Context, a ports.Assignment) error {
	n.logger.InfoContext(ctx, "courier assigned",
		"courier_id", a.CourierID.String(), "package_id", a.PackageID.String(), "priority", a.Priority)
	return nil
}
