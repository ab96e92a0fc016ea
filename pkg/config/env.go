package config

const (
	EnvMongoURI          = "MONGO_URI"
	EnvMongoDatabaseName = "MONGO_DATABASE_NAME"
	EnvMongoConnTimeout  = "MONGO_CONN_TIMEOUT"

	EnvPort     = "PORT"
	EnvLogLevel = "LOG_LEVEL"
	EnvDotEnv   = "DOTENV_PATH"

	EnvJWTSecret   = "JWT_SECRET"
	EnvJWTIssuer   = "JWT_ISSUER"
	EnvJWTTokenTTL = "JWT_TOKEN_TTL"

	EnvRateLimitRequests = "RATE_LIMIT_REQUESTS"
	EnvRateLimitWindow   = "RATE_LIMIT_WINDOW"

	EnvRequestTimeout = "REQUEST_TIMEOUT"
	EnvIdempotencyTTL = "IDEMPOTENCY_TTL"
	EnvMaxRequestSize = "MAX_REQUEST_SIZE"

	EnvReadTimeout     = "READ_TIMEOUT"
	EnvWriteTimeout    = "WRITE_TIMEOUT"
	EnvIdleTimeout     = "IDLE_TIMEOUT"
	EnvShutdownTimeout = "SHUTDOWN_TIMEOUT"

	EnvCORSAllowedOrigins = "CORS_ALLOWED_ORIGINS"

	EnvCompletionInterval = "COMPLETION_INTERVAL"
	EnvBookingsServiceURL = "BOOKINGS_SERVICE_URL"
	EnvListingSearchCap   = "LISTING_SEARCH_CAP"
)
