package main

import (
	"context"
	"time"

	mongoMigration "dogfordate/internal/migrations/mongo"
	"dogfordate/pkg/config"
)

const (
	JobName = "mongo-migration"

	migrationTimeout = 120 * time.Second
)

func main() {
	ctx, cancel := context.WithTimeout(context.Background(), migrationTimeout)
	defer cancel()

	cfg := config.Load(JobName)
	cfg.SetMongo()
	defer cfg.GracefulShutdown()

	cfg.Log.Info("Starting Mongo migration job")
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	if err := mongoMigration.RunMigration(ctx, db, cfg.Log); err != nil {
		cfg.GracefulShutdown()
		cfg.Log.Fatal("Migration failed", "error", err)
	}
	cfg.Log.Info("Migration completed successfully")
}
