package main

import (
	"dogfordate/internal/bookings/handler"
	"dogfordate/internal/bookings/repository"
	"dogfordate/internal/bookings/service"
	listingsrepository "dogfordate/internal/listings/repository"
	"dogfordate/pkg/app"
	"dogfordate/pkg/config"
	kafka_config "dogfordate/pkg/kafka/config"
	kafka_middleware "dogfordate/pkg/kafka/middleware"
	"dogfordate/pkg/validation"
)

const ServiceName = "bookings"

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetMongo()

	kafkaCfg, err := kafka_config.Load(ServiceName)
	if err != nil {
		cfg.Log.Fatal("Invalid Kafka configuration", "error", err)
	}
	kafkaCfg.LogConfiguration(cfg.Log.Info)

	cfg.Log.Info("Starting Bookings service")
	metrics := kafka_middleware.NewMetrics()
	bookingService := initServices(cfg, kafkaCfg, metrics)

	serverApp := app.NewApplication(cfg)
	serverApp.WithKafkaMetrics(metrics)
	serverApp.SetApp(handler.NewBookingHandler(bookingService, cfg.Log))
	serverApp.Run()
}

func initServices(cfg *config.Config, kafkaCfg *kafka_config.Config, metrics *kafka_middleware.Metrics) service.BookingService {
	bookingRepo := repository.NewMongoBookingRepository(cfg)
	listingRepo := listingsrepository.NewMongoListingRepository(cfg)
	publisher := app.NewPublisher(cfg, kafkaCfg, kafkaCfg.BookingsTopic, metrics)

	bookingService := service.NewBookingService(
		bookingRepo,
		listingRepo,
		validation.New(cfg.Log),
		publisher,
		cfg.Log,
	)

	cfg.Log.Info("Booking service initialized", "database", cfg.MongoDatabaseName)
	return bookingService
}
