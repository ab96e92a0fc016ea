package main

import (
	bookingsrepository "dogfordate/internal/bookings/repository"
	"dogfordate/internal/listings/handler"
	"dogfordate/internal/listings/repository"
	"dogfordate/internal/listings/service"
	"dogfordate/pkg/app"
	"dogfordate/pkg/config"
	"dogfordate/pkg/validation"
)

const ServiceName = "listings"

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetMongo()

	cfg.Log.Info("Starting Listings service")
	listingService := initServices(cfg)

	serverApp := app.NewApplication(cfg)
	// Browsing and search are open to anonymous visitors.
	serverApp.SetApp(handler.NewListingHandler(listingService, cfg.Log), "/api/v1/listings")
	serverApp.Run()
}

func initServices(cfg *config.Config) service.ListingService {
	listingService := service.NewListingService(
		repository.NewMongoListingRepository(cfg),
		repository.NewMongoReviewRepository(cfg),
		bookingsrepository.NewMongoBookingRepository(cfg),
		validation.New(cfg.Log),
		cfg.Log,
		cfg.ListingSearchCap,
	)

	cfg.Log.Info("Listing service initialized", "database", cfg.MongoDatabaseName, "search_cap", cfg.ListingSearchCap)
	return listingService
}
