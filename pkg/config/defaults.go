package config

import "time"

const (
	DefaultMongoURI          = "mongodb://localhost:27017"
	DefaultMongoDatabaseName = "dogfordate"
	DefaultMongoConnTimeout  = 10 * time.Second

	DefaultPort     = "8080"
	DefaultLogLevel = "info"
	DefaultDotEnv   = ".env"

	DefaultJWTIssuer   = "dogfordate"
	DefaultJWTTokenTTL = 24 * time.Hour

	DefaultRateLimitRequests = 60
	DefaultRateLimitWindow   = 1 * time.Minute

	DefaultRequestTimeout = 30 * time.Second
	DefaultIdempotencyTTL = 24 * time.Hour
	DefaultMaxRequestSize = 1 * 1024 * 1024 // 1MB

	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	DefaultCORSAllowedOrigins = "*"

	DefaultCompletionInterval = 1 * time.Minute
	DefaultBookingsServiceURL = "http://localhost:8080"
	DefaultListingSearchCap   = 500

	DefaultPaginationLimit    = 10
	MaxPaginationLimit        = 100
	minJWTSecretLength        = 32
	defaultMongoURIMinimumLen = 10
)
