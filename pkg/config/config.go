package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"dogfordate/pkg/client"
	"dogfordate/pkg/logger"

	"github.com/joho/godotenv"
)

var (
	mongoSchemeRegex     = regexp.MustCompile(`^mongodb(\+srv)?://`)
	mongoCredentialRegex = regexp.MustCompile(`(mongodb(\+srv)?://)[^:]+:[^@]+@`)
)

type Config struct {
	MongoURI          string
	MongoDatabaseName string
	MongoConnTimeout  time.Duration

	Port string

	JWTSecret   string
	JWTIssuer   string
	JWTTokenTTL time.Duration

	RateLimitRequests int
	RateLimitWindow   time.Duration

	RequestTimeout time.Duration
	IdempotencyTTL time.Duration
	MaxRequestSize int

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	CORSAllowedOrigins []string

	CompletionInterval time.Duration
	BookingsServiceURL string
	ListingSearchCap   int

	Log    *logger.Logger
	Client *client.Client
}

// Load reads the environment (after an optional .env file), validates it and
// exits the process on invalid configuration.
func Load(serviceName string) *Config {
	dotenvErr := loadDotEnv(getEnvStr(EnvDotEnv, DefaultDotEnv))

	cfg := FromEnv(serviceName)
	if dotenvErr != nil {
		cfg.Log.Warn("Failed to load .env file", "error", dotenvErr)
	}

	if err := cfg.Validate(); err != nil {
		cfg.Log.Fatal(err.Error())
	}
	cfg.LogConfiguration()
	return cfg
}

// FromEnv builds a Config from the environment without validating it.
func FromEnv(serviceName string) *Config {
	return &Config{
		MongoURI:          getEnvStr(EnvMongoURI, DefaultMongoURI),
		MongoDatabaseName: getEnvStr(EnvMongoDatabaseName, DefaultMongoDatabaseName),
		MongoConnTimeout:  getEnvDuration(EnvMongoConnTimeout, DefaultMongoConnTimeout),

		Port: getEnvStr(EnvPort, DefaultPort),

		JWTSecret:   getEnvStr(EnvJWTSecret, ""),
		JWTIssuer:   getEnvStr(EnvJWTIssuer, DefaultJWTIssuer),
		JWTTokenTTL: getEnvDuration(EnvJWTTokenTTL, DefaultJWTTokenTTL),

		RateLimitRequests: getEnvNum(EnvRateLimitRequests, DefaultRateLimitRequests),
		RateLimitWindow:   getEnvDuration(EnvRateLimitWindow, DefaultRateLimitWindow),

		RequestTimeout: getEnvDuration(EnvRequestTimeout, DefaultRequestTimeout),
		IdempotencyTTL: getEnvDuration(EnvIdempotencyTTL, DefaultIdempotencyTTL),
		MaxRequestSize: getEnvNum(EnvMaxRequestSize, DefaultMaxRequestSize),

		ReadTimeout:     getEnvDuration(EnvReadTimeout, DefaultReadTimeout),
		WriteTimeout:    getEnvDuration(EnvWriteTimeout, DefaultWriteTimeout),
		IdleTimeout:     getEnvDuration(EnvIdleTimeout, DefaultIdleTimeout),
		ShutdownTimeout: getEnvDuration(EnvShutdownTimeout, DefaultShutdownTimeout),

		CORSAllowedOrigins: getEnvList(EnvCORSAllowedOrigins, DefaultCORSAllowedOrigins),

		CompletionInterval: getEnvDuration(EnvCompletionInterval, DefaultCompletionInterval),
		BookingsServiceURL: getEnvStr(EnvBookingsServiceURL, DefaultBookingsServiceURL),
		ListingSearchCap:   getEnvNum(EnvListingSearchCap, DefaultListingSearchCap),

		Log: logger.New(logger.Config{
			Level:     getEnvStr(EnvLogLevel, DefaultLogLevel),
			Format:    logger.JSON,
			AddSource: true,
			Service:   serviceName,
		}),
		Client: client.NewClient(),
	}
}

func loadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func (cfg *Config) SetMongo() {
	cfg.Client.SetMongo(cfg.Log, cfg.MongoURI, cfg.MongoConnTimeout)
}

func (cfg *Config) Validate() error {
	var errs []string

	if port, err := strconv.Atoi(cfg.Port); err != nil || port < 1 || port > 65535 {
		errs = append(errs, fmt.Sprintf("Port must be between 1 and 65535, got: %s", cfg.Port))
	}

	if cfg.MongoURI == "" {
		errs = append(errs, "MongoURI cannot be empty")
	} else if len(cfg.MongoURI) < defaultMongoURIMinimumLen || !mongoSchemeRegex.MatchString(cfg.MongoURI) {
		errs = append(errs, fmt.Sprintf("MongoURI must start with 'mongodb://' or 'mongodb+srv://', got: %s", redactMongoURI(cfg.MongoURI)))
	}
	if cfg.MongoDatabaseName == "" {
		errs = append(errs, "MongoDatabaseName cannot be empty")
	}

	if len(cfg.JWTSecret) < minJWTSecretLength {
		errs = append(errs, fmt.Sprintf("JWTSecret must be at least %d characters", minJWTSecretLength))
	}
	if cfg.JWTIssuer == "" {
		errs = append(errs, "JWTIssuer cannot be empty")
	}

	positive := map[string]time.Duration{
		"MongoConnTimeout":   cfg.MongoConnTimeout,
		"JWTTokenTTL":        cfg.JWTTokenTTL,
		"RateLimitWindow":    cfg.RateLimitWindow,
		"RequestTimeout":     cfg.RequestTimeout,
		"IdempotencyTTL":     cfg.IdempotencyTTL,
		"ReadTimeout":        cfg.ReadTimeout,
		"WriteTimeout":       cfg.WriteTimeout,
		"IdleTimeout":        cfg.IdleTimeout,
		"ShutdownTimeout":    cfg.ShutdownTimeout,
		"CompletionInterval": cfg.CompletionInterval,
	}
	for _, name := range sortedKeys(positive) {
		if positive[name] <= 0 {
			errs = append(errs, fmt.Sprintf("%s must be positive, got: %s", name, positive[name]))
		}
	}

	if cfg.RateLimitRequests <= 0 {
		errs = append(errs, fmt.Sprintf("RateLimitRequests must be positive, got: %d", cfg.RateLimitRequests))
	}
	if cfg.MaxRequestSize <= 0 {
		errs = append(errs, fmt.Sprintf("MaxRequestSize must be positive, got: %d", cfg.MaxRequestSize))
	}
	if cfg.ListingSearchCap <= 0 {
		errs = append(errs, fmt.Sprintf("ListingSearchCap must be positive, got: %d", cfg.ListingSearchCap))
	}
	if !strings.HasPrefix(cfg.BookingsServiceURL, "http://") && !strings.HasPrefix(cfg.BookingsServiceURL, "https://") {
		errs = append(errs, fmt.Sprintf("BookingsServiceURL must be an http(s) URL, got: %s", cfg.BookingsServiceURL))
	}

	if len(errs) > 0 {
		errMsg := "Configuration validation failed:\n"
		for i, err := range errs {
			errMsg += fmt.Sprintf("  %d. %s\n", i+1, err)
		}
		return errors.New(errMsg)
	}
	return nil
}

func (cfg *Config) LogConfiguration() {
	cfg.Log.Info("Configuration loaded successfully",
		"mongo_uri", redactMongoURI(cfg.MongoURI),
		"mongo_database", cfg.MongoDatabaseName,
		"mongo_conn_timeout", cfg.MongoConnTimeout,
		"port", cfg.Port,
		"jwt_issuer", cfg.JWTIssuer,
		"jwt_token_ttl", cfg.JWTTokenTTL,
		"rate_limit_requests", cfg.RateLimitRequests,
		"rate_limit_window", cfg.RateLimitWindow,
		"request_timeout", cfg.RequestTimeout,
		"idempotency_ttl", cfg.IdempotencyTTL,
		"max_request_size", cfg.MaxRequestSize,
		"read_timeout", cfg.ReadTimeout,
		"write_timeout", cfg.WriteTimeout,
		"idle_timeout", cfg.IdleTimeout,
		"shutdown_timeout", cfg.ShutdownTimeout,
		"cors_allowed_origins", cfg.CORSAllowedOrigins,
		"completion_interval", cfg.CompletionInterval,
		"bookings_service_url", cfg.BookingsServiceURL,
		"listing_search_cap", cfg.ListingSearchCap,
	)
}

func (cfg *Config) GracefulShutdown() {
	cfg.Client.GracefulShutdown(cfg.Log)
}

func redactMongoURI(uri string) string {
	return mongoCredentialRegex.ReplaceAllString(uri, "${1}***:***@")
}

func getEnvStr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvNum(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func getEnvList(key, fallback string) []string {
	var out []string
	for _, part := range strings.Split(getEnvStr(key, fallback), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func sortedKeys(m map[string]time.Duration) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func NormalizePaginationLimit(limit int) int {
	if limit <= 0 {
		return DefaultPaginationLimit
	}
	return min(limit, MaxPaginationLimit)
}

func NormalizeOffset(offset int64) int64 {
	return max(0, offset)
}
