package kafka_config

import "time"

// Start offsets for a consumer group with no committed offset.
const (
	OffsetNewest int64 = -1
	OffsetOldest int64 = -2
)

const (
	DefaultKafkaEnabled = false
	DefaultKafkaBrokers = "localhost:9092"

	DefaultBookingsTopic = "dogfordate.bookings"
	DefaultMessagesTopic = "dogfordate.messages"
	DefaultDLQTopic      = "dogfordate.dlq"

	DefaultProducerMaxAttempts  = 3
	DefaultProducerBatchTimeout = 10 * time.Millisecond
	DefaultProducerRequireAcks  = -1 // all replicas
	DefaultProducerCompression  = "snappy"

	DefaultConsumerStartOffset       = OffsetNewest
	DefaultConsumerMinBytes          = 1
	DefaultConsumerMaxBytes          = 10 * 1024 * 1024
	DefaultConsumerMaxWait           = 500 * time.Millisecond
	DefaultConsumerCommitInterval    = 0 // synchronous commits
	DefaultConsumerHeartbeatInterval = 3 * time.Second
	DefaultConsumerSessionTimeout    = 10 * time.Second
	DefaultConsumerRebalanceTimeout  = 60 * time.Second
	DefaultConsumerMaxRetries        = 3
	DefaultConsumerRetryBackoff      = 200 * time.Millisecond
)
