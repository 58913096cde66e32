package cmd

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"courier-dispatch/internal/core/domain/model/geolocation"
	"courier-dispatch/internal/core/domain/model/kernel"

	"github.com/spf13/pflag"
)

type Config struct {
	HTTPPort string
	OpsPort  string
	LogLevel string

	// Timezone names the zone in which courier work hours are evaluated.
	Timezone string
	Location *time.Location

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSslMode  string

	// RedisAddr selects the Redis hot tier; empty keeps positions in process memory.
	RedisAddr      string
	LocationHotTTL time.Duration
	StalenessCap   time.Duration
	Freshness      time.Duration

	KafkaHost               string
	KafkaClientID           string
	KafkaConsumerGroup      string
	KafkaLocationTopic      string
	KafkaPackageTopic       string
	KafkaCourierTopic       string
	KafkaLocationEventTopic string

	RabbitMQURL      string
	RabbitMQExchange string

	OutboxRelaySchedule  string
	OutboxRelayBatch     int
	PoolDispatchSchedule string
	PoolDispatchBatch    int

	PprofUser string
	PprofPass string
}

// DefaultConfig returns the settings used for local development.
func DefaultConfig() Config {
	return Config{
		HTTPPort:                "8082",
		OpsPort:                 "9090",
		LogLevel:                "info",
		Timezone:                "UTC",
		Location:                time.UTC,
		DBHost:                  "localhost",
		DBPort:                  "5432",
		DBUser:                  "postgres",
		DBName:                  "delivery",
		DBSslMode:               "disable",
		LocationHotTTL:          geolocation.HotTTL,
		StalenessCap:            geolocation.DefaultStalenessCap,
		Freshness:               2 * time.Minute,
		KafkaClientID:           "courier-dispatch",
		KafkaConsumerGroup:      "courier-dispatch",
		KafkaLocationTopic:      "courier.location.reports",
		KafkaPackageTopic:       "delivery.package.status.v1",
		KafkaCourierTopic:       "delivery.courier.events.v1",
		KafkaLocationEventTopic: "delivery.courier.location.v1",
		OutboxRelaySchedule:     "@every 1s",
		OutboxRelayBatch:        100,
		PoolDispatchSchedule:    "@every 10s",
		PoolDispatchBatch:       50,
	}
}

// LoadConfig reads configuration in order: defaults, environment, then flags. The caller
// loads .env beforehand.
func LoadConfig(fs *pflag.FlagSet, args []string) (Config, error) {
	cfg := DefaultConfig()
	var problems []error

	envString(&cfg.HTTPPort, "HTTP_PORT")
	envString(&cfg.OpsPort, "OPS_PORT")
	envString(&cfg.LogLevel, "LOG_LEVEL")
	envString(&cfg.Timezone, "TIMEZONE")
	envString(&cfg.DBHost, "DB_HOST")
	envString(&cfg.DBPort, "DB_PORT")
	envString(&cfg.DBUser, "DB_USER")
	envString(&cfg.DBPassword, "DB_PASSWORD")
	envString(&cfg.DBName, "DB_NAME")
	envString(&cfg.DBSslMode, "DB_SSLMODE")
	envString(&cfg.RedisAddr, "REDIS_ADDR")
	problems = append(problems,
		envDuration(&cfg.LocationHotTTL, "LOCATION_HOT_TTL"),
		envDuration(&cfg.StalenessCap, "LOCATION_STALENESS_CAP"),
		envDuration(&cfg.Freshness, "DISPATCH_LOCATION_FRESHNESS"),
	)
	envString(&cfg.KafkaHost, "KAFKA_HOST")
	envString(&cfg.KafkaClientID, "KAFKA_CLIENT_ID")
	envString(&cfg.KafkaConsumerGroup, "KAFKA_CONSUMER_GROUP")
	envString(&cfg.KafkaLocationTopic, "KAFKA_LOCATION_REPORTS_TOPIC")
	envString(&cfg.KafkaPackageTopic, "KAFKA_PACKAGE_STATUS_TOPIC")
	envString(&cfg.KafkaCourierTopic, "KAFKA_COURIER_EVENTS_TOPIC")
	envString(&cfg.KafkaLocationEventTopic, "KAFKA_COURIER_LOCATION_TOPIC")
	envString(&cfg.RabbitMQURL, "RABBITMQ_URL")
	envString(&cfg.RabbitMQExchange, "RABBITMQ_EXCHANGE")
	envString(&cfg.OutboxRelaySchedule, "OUTBOX_RELAY_SCHEDULE")
	envString(&cfg.PoolDispatchSchedule, "POOL_DISPATCH_SCHEDULE")
	problems = append(problems,
		envInt(&cfg.OutboxRelayBatch, "OUTBOX_RELAY_BATCH"),
		envInt(&cfg.PoolDispatchBatch, "POOL_DISPATCH_BATCH"),
	)
	envString(&cfg.PprofUser, "PPROF_USER")
	envString(&cfg.PprofPass, "PPROF_PASS")
	if err := errors.Join(problems...); err != nil {
		return Config{}, err
	}

	fs.StringVar(&cfg.HTTPPort, "http-port", cfg.HTTPPort, "port of the public API")
	fs.StringVar(&cfg.OpsPort, "ops-port", cfg.OpsPort, "port of /metrics, /healthz and pprof")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "debug, info, warn or error")
	fs.StringVar(&cfg.Timezone, "timezone", cfg.Timezone, "IANA zone for courier work hours")
	fs.StringVar(&cfg.DBHost, "db-host", cfg.DBHost, "PostgreSQL host")
	fs.StringVar(&cfg.DBPort, "db-port", cfg.DBPort, "PostgreSQL port")
	fs.StringVar(&cfg.RedisAddr, "redis-addr", cfg.RedisAddr, "Redis address; empty uses the in-process cache")
	fs.StringVar(&cfg.KafkaHost, "kafka-host", cfg.KafkaHost, "comma-separated Kafka brokers")
	fs.StringVar(&cfg.RabbitMQURL, "rabbitmq-url", cfg.RabbitMQURL, "RabbitMQ URL for courier notifications")
	fs.DurationVar(&cfg.StalenessCap, "staleness-cap", cfg.StalenessCap, "age after which a position is unknown")
	fs.DurationVar(&cfg.Freshness, "freshness", cfg.Freshness, "maximum position age for dispatch")
	fs.StringVar(&cfg.PoolDispatchSchedule, "pool-dispatch-schedule", cfg.PoolDispatchSchedule, "cron spec of pool dispatch")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return Config{}, fmt.Errorf("invalid timezone %q: %w", cfg.Timezone, err)
	}
	cfg.Location = loc

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks ports, batch sizes and durations.
func (c Config) Validate() error {
	var problems []error
	for name, port := range map[string]string{"http port": c.HTTPPort, "ops port": c.OpsPort, "db port": c.DBPort} {
		p, err := strconv.Atoi(port)
		if err != nil || p <= 0 || p > 65535 {
			problems = append(problems, fmt.Errorf("invalid %s: %q", name, port))
		}
	}
	if c.Location == nil {
		problems = append(problems, errors.New("timezone location is not resolved"))
	}
	if c.HTTPPort == c.OpsPort {
		problems = append(problems, fmt.Errorf("http and ops ports must differ: %s", c.HTTPPort))
	}
	if strings.TrimSpace(c.DBHost) == "" || strings.TrimSpace(c.DBName) == "" {
		problems = append(problems, errors.New("db host and name are required"))
	}
	if c.OutboxRelayBatch <= 0 || c.PoolDispatchBatch <= 0 {
		problems = append(problems, errors.New("job batch sizes must be positive"))
	}
	if c.Freshness <= 0 || c.StalenessCap < c.Freshness {
		problems = append(problems, fmt.Errorf(
			"staleness cap %s must not be below dispatch freshness %s", c.StalenessCap, c.Freshness))
	}
	return errors.Join(problems...)
}

// DSN returns the PostgreSQL connection string shared by GORM and pgx.
func (c Config) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSslMode)
}

// Clock returns the system clock in the configured service-local zone.
func (c Config) Clock() kernel.SystemClock {
	return kernel.SystemClock{Location: c.Location}
}

// KafkaBrokers splits KafkaHost into broker addresses.
func (c Config) KafkaBrokers() []string {
	var brokers []string
	for _, b := range strings.Split(c.KafkaHost, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

func envString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func envDuration(dst *time.Duration, key string) error {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = d
	return nil
}

func envInt(dst *int, key string) error {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = n
	return nil
}
