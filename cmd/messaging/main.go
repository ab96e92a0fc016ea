package main

import (
	"context"
	"os"
	"time"

	"dogfordate/internal/conversations/events"
	"dogfordate/internal/conversations/handler"
	"dogfordate/internal/conversations/readstate"
	"dogfordate/internal/conversations/repository"
	"dogfordate/internal/conversations/service"
	"dogfordate/pkg/app"
	"dogfordate/pkg/config"
	mongodb "dogfordate/pkg/db/mongo"
	kafka_config "dogfordate/pkg/kafka/config"
	kafka_middleware "dogfordate/pkg/kafka/middleware"
)

const (
	ServiceName = "messaging"

	hydrateTimeout = 30 * time.Second
	eventBuffer    = 256
)

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetMongo()

	kafkaCfg, err := kafka_config.Load(ServiceName)
	if err != nil {
		cfg.Log.Fatal("Invalid Kafka configuration", "error", err)
	}
	// Every instance keeps its own tracker, so each needs every event,
	// including those published while it was hydrating.
	host, _ := os.Hostname()
	kafkaCfg.PerInstance(host)
	kafkaCfg.LogConfiguration(cfg.Log.Info)

	cfg.Log.Info("Starting Messaging service")
	metrics := kafka_middleware.NewMetrics()
	tracker := readstate.NewTracker()
	conversationService := initServices(cfg, kafkaCfg, tracker, metrics)

	ctx, cancel := context.WithTimeout(context.Background(), hydrateTimeout)
	if err := conversationService.Hydrate(ctx); err != nil {
		cfg.Log.Warn("Failed to hydrate read-state tracker", "error", err)
	}
	cancel()

	serverApp := app.NewApplication(cfg)
	serverApp.WithKafkaMetrics(metrics)

	if kafkaCfg.Enabled {
		listener := events.NewListener(eventBuffer, cfg.Log)
		consumer := app.NewConsumer(cfg, kafkaCfg, kafkaCfg.MessagesTopic, listener.Handle, metrics)
		serverApp.AddWorker("messages-consumer", consumer.Start)
		serverApp.AddWorker("read-state-tracker", func(ctx context.Context) error {
			return tracker.Run(ctx, listener.Events())
		})
	}

	serverApp.SetApp(handler.NewConversationHandler(conversationService, cfg.Log))
	serverApp.Run()
}

func initServices(cfg *config.Config, kafkaCfg *kafka_config.Config, tracker *readstate.Tracker, metrics *kafka_middleware.Metrics) service.ConversationService {
	publisher := app.NewPublisher(cfg, kafkaCfg, kafkaCfg.MessagesTopic, metrics)

	conversationService := service.NewConversationService(
		repository.NewMongoConversationRepository(cfg),
		repository.NewMongoMessageRepository(cfg),
		mongodb.NewTransactionManager(cfg.Client.Mongo),
		tracker,
		events.NewPublisher(publisher),
		cfg.Log,
	)

	cfg.Log.Info("Conversation service initialized", "database", cfg.MongoDatabaseName)
	return conversationService
}
