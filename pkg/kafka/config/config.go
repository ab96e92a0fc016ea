package kafka_config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds broker, topic, producer and consumer settings. When Enabled
// is false services run without publishing or consuming events.
type Config struct {
	Enabled bool
	Brokers []string

	BookingsTopic string
	MessagesTopic string
	DLQTopic      string
	ConsumerGroup string

	ProducerMaxAttempts  int
	ProducerBatchTimeout time.Duration
	ProducerRequireAcks  int    // -1 = all, 0 = none, 1 = leader only
	ProducerCompression  string // "none", "gzip", "snappy", "lz4", "zstd"

	ConsumerStartOffset       int64 // -1 = newest, -2 = oldest
	ConsumerMinBytes          int
	ConsumerMaxBytes          int
	ConsumerMaxWait           time.Duration
	ConsumerCommitInterval    time.Duration
	ConsumerHeartbeatInterval time.Duration
	ConsumerSessionTimeout    time.Duration
	ConsumerRebalanceTimeout  time.Duration
	ConsumerMaxRetries        int
	ConsumerRetryBackoff      time.Duration
}

// PerInstance gives this process its own consumer group so it receives every
// event on the topic, and starts a new group from the oldest retained offset
// so nothing published before it joined is skipped. Handlers must be
// idempotent.
func (cfg *Config) PerInstance(instance string) {
	if instance != "" {
		cfg.ConsumerGroup += "-" + instance
	}
	cfg.ConsumerStartOffset = OffsetOldest
}

// Load reads the Kafka configuration for serviceName. The consumer group
// defaults to the service name.
func Load(serviceName string) (*Config, error) {
	cfg := &Config{
		Enabled: getEnvBool(EnvKafkaEnabled, DefaultKafkaEnabled),
		Brokers: splitList(getEnvStr(EnvKafkaBrokers, DefaultKafkaBrokers)),

		BookingsTopic: getEnvStr(EnvKafkaBookingsTopic, DefaultBookingsTopic),
		MessagesTopic: getEnvStr(EnvKafkaMessagesTopic, DefaultMessagesTopic),
		DLQTopic:      getEnvStr(EnvKafkaDLQTopic, DefaultDLQTopic),
		ConsumerGroup: getEnvStr(EnvKafkaConsumerGroup, "dogfordate-"+serviceName),

		ProducerMaxAttempts:  getEnvInt(EnvKafkaProducerMaxAttempts, DefaultProducerMaxAttempts),
		ProducerBatchTimeout: getEnvDuration(EnvKafkaProducerBatchTimeout, DefaultProducerBatchTimeout),
		ProducerRequireAcks:  getEnvInt(EnvKafkaProducerRequireAcks, DefaultProducerRequireAcks),
		ProducerCompression:  getEnvStr(EnvKafkaProducerCompression, DefaultProducerCompression),

		ConsumerStartOffset:       getEnvInt64(EnvKafkaConsumerStartOffset, DefaultConsumerStartOffset),
		ConsumerMinBytes:          getEnvInt(EnvKafkaConsumerMinBytes, DefaultConsumerMinBytes),
		ConsumerMaxBytes:          getEnvInt(EnvKafkaConsumerMaxBytes, DefaultConsumerMaxBytes),
		ConsumerMaxWait:           getEnvDuration(EnvKafkaConsumerMaxWait, DefaultConsumerMaxWait),
		ConsumerCommitInterval:    getEnvDuration(EnvKafkaConsumerCommitInterval, DefaultConsumerCommitInterval),
		ConsumerHeartbeatInterval: getEnvDuration(EnvKafkaConsumerHeartbeatInterval, DefaultConsumerHeartbeatInterval),
		ConsumerSessionTimeout:    getEnvDuration(EnvKafkaConsumerSessionTimeout, DefaultConsumerSessionTimeout),
		ConsumerRebalanceTimeout:  getEnvDuration(EnvKafkaConsumerRebalanceTimeout, DefaultConsumerRebalanceTimeout),
		ConsumerMaxRetries:        getEnvInt(EnvKafkaConsumerMaxRetries, DefaultConsumerMaxRetries),
		ConsumerRetryBackoff:      getEnvDuration(EnvKafkaConsumerRetryBackoff, DefaultConsumerRetryBackoff),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the settings. A disabled configuration is always valid.
func (cfg *Config) Validate() error {
	if !cfg.Enabled {
		return nil
	}

	var errs []string

	if len(cfg.Brokers) == 0 {
		errs = append(errs, "At least one Kafka broker is required")
	}
	for name, topic := range map[string]string{
		"BookingsTopic": cfg.BookingsTopic,
		"MessagesTopic": cfg.MessagesTopic,
		"ConsumerGroup": cfg.ConsumerGroup,
	} {
		if topic == "" {
			errs = append(errs, fmt.Sprintf("%s cannot be empty", name))
		}
	}

	if cfg.ProducerMaxAttempts <= 0 {
		errs = append(errs, fmt.Sprintf("ProducerMaxAttempts must be positive, got: %d", cfg.ProducerMaxAttempts))
	}
	if cfg.ProducerBatchTimeout <= 0 {
		errs = append(errs, fmt.Sprintf("ProducerBatchTimeout must be positive, got: %s", cfg.ProducerBatchTimeout))
	}
	switch cfg.ProducerCompression {
	case "none", "gzip", "snappy", "lz4", "zstd":
	default:
		errs = append(errs, fmt.Sprintf("ProducerCompression must be one of [none, gzip, snappy, lz4, zstd], got: %s", cfg.ProducerCompression))
	}
	switch cfg.ProducerRequireAcks {
	case -1, 0, 1:
	default:
		errs = append(errs, fmt.Sprintf("ProducerRequireAcks must be -1, 0, or 1, got: %d", cfg.ProducerRequireAcks))
	}

	if cfg.ConsumerStartOffset != OffsetNewest && cfg.ConsumerStartOffset != OffsetOldest {
		errs = append(errs, fmt.Sprintf("ConsumerStartOffset must be -1 (newest) or -2 (oldest), got: %d", cfg.ConsumerStartOffset))
	}
	if cfg.ConsumerMinBytes <= 0 || cfg.ConsumerMaxBytes < cfg.ConsumerMinBytes {
		errs = append(errs, fmt.Sprintf("Consumer byte bounds invalid: min=%d max=%d", cfg.ConsumerMinBytes, cfg.ConsumerMaxBytes))
	}
	if cfg.ConsumerMaxWait <= 0 {
		errs = append(errs, fmt.Sprintf("ConsumerMaxWait must be positive, got: %s", cfg.ConsumerMaxWait))
	}
	if cfg.ConsumerCommitInterval < 0 {
		errs = append(errs, fmt.Sprintf("ConsumerCommitInterval cannot be negative, got: %s", cfg.ConsumerCommitInterval))
	}
	if cfg.ConsumerMaxRetries < 0 {
		errs = append(errs, fmt.Sprintf("ConsumerMaxRetries cannot be negative, got: %d", cfg.ConsumerMaxRetries))
	}

	if len(errs) > 0 {
		errMsg := "Kafka configuration validation failed:\n"
		for i, err := range errs {
			errMsg += fmt.Sprintf("  %d. %s\n", i+1, err)
		}
		return errors.New(errMsg)
	}
	return nil
}

func (cfg *Config) LogConfiguration(logFunc func(msg string, args ...any)) {
	if logFunc == nil {
		return
	}
	logFunc("Kafka configuration loaded",
		"enabled", cfg.Enabled,
		"brokers", cfg.Brokers,
		"bookings_topic", cfg.BookingsTopic,
		"messages_topic", cfg.MessagesTopic,
		"dlq_topic", cfg.DLQTopic,
		"consumer_group", cfg.ConsumerGroup,
		"producer_max_attempts", cfg.ProducerMaxAttempts,
		"producer_require_acks", cfg.ProducerRequireAcks,
		"producer_compression", cfg.ProducerCompression,
		"consumer_start_offset", cfg.ConsumerStartOffset,
		"consumer_max_retries", cfg.ConsumerMaxRetries,
	)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnvStr(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if v, err := strconv.Atoi(value); err == nil {
			return v
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if v, err := strconv.ParseInt(value, 10, 64); err == nil {
			return v
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if v, err := strconv.ParseBool(value); err == nil {
			return v
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
