package app

import (
	"dogfordate/pkg/config"
	"dogfordate/pkg/kafka"
	kafka_config "dogfordate/pkg/kafka/config"
	kafka_middleware "dogfordate/pkg/kafka/middleware"
)

// NewPublisher returns a producer for topic instrumented with logging and
// metrics, or a NoopPublisher when Kafka is disabled. The producer is closed
// by cfg.GracefulShutdown.
func NewPublisher(cfg *config.Config, kcfg *kafka_config.Config, topic string, metrics *kafka_middleware.Metrics) kafka.Publisher {
	if kcfg == nil || !kcfg.Enabled {
		cfg.Log.Info("Kafka disabled, events will not be published", "topic", topic)
		return kafka.NoopPublisher{}
	}

	producer, err := kafka.NewProducer(kcfg, topic, cfg.Log)
	if err != nil {
		cfg.Log.Fatal("Failed to create Kafka producer", "topic", topic, "error", err)
	}
	producer.Use(kafka_middleware.LoggingProducerMiddleware(cfg.Log))
	if metrics != nil {
		producer.Use(metrics.ProducerMiddleware())
	}
	cfg.Client.Track("kafka-producer-"+topic, producer)

	cfg.Log.Info("Kafka producer ready", "topic", topic, "brokers", kcfg.Brokers)
	return producer
}

// NewConsumer builds an instrumented consumer for topic. Callers register
// its Start method as a worker.
func NewConsumer(cfg *config.Config, kcfg *kafka_config.Config, topic string, handler kafka.MessageHandler, metrics *kafka_middleware.Metrics) *kafka.Consumer {
	consumer, err := kafka.NewConsumer(kcfg, topic, handler, cfg.Log)
	if err != nil {
		cfg.Log.Fatal("Failed to create Kafka consumer", "topic", topic, "error", err)
	}
	consumer.Use(kafka_middleware.LoggingConsumerMiddleware(cfg.Log))
	if metrics != nil {
		consumer.Use(metrics.ConsumerMiddleware())
	}
	cfg.Client.Track("kafka-consumer-"+topic, consumer)

	cfg.Log.Info("Kafka consumer ready", "topic", topic, "group", kcfg.ConsumerGroup)
	return consumer
}
