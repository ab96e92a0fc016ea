package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"dogfordate/internal/completer"
	"dogfordate/pkg/auth"
	"dogfordate/pkg/client"
	"dogfordate/pkg/config"
)

const ServiceName = "completer"

func main() {
	cfg := config.Load(ServiceName)
	cfg.Log.Info("Starting booking completer", "interval", cfg.CompletionInterval, "bookings_url", cfg.BookingsServiceURL)

	issuer, err := auth.NewIssuer(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTTokenTTL)
	if err != nil {
		cfg.Log.Fatal("Failed to create token issuer", "error", err)
	}
	bookings := client.NewBookingClient(cfg.BookingsServiceURL, issuer.TokenSource(ServiceName, auth.RoleSystem))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := bookings.WaitForHealthy(ctx); err != nil {
		cfg.Log.Warn("Bookings service not healthy yet, starting anyway", "error", err)
	}

	err = completer.New(bookings, cfg.CompletionInterval, cfg.Log).Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		cfg.Log.Fatal("Completer stopped", "error", err)
	}
	cfg.Log.Info("Completer stopped")
}
