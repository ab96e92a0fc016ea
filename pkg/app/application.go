package app

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"dogfordate/pkg/auth"
	"dogfordate/pkg/config"
	"dogfordate/pkg/contracts"
	"dogfordate/pkg/health"
	kafka_middleware "dogfordate/pkg/kafka/middleware"
	"dogfordate/pkg/middleware"

	"github.com/julienschmidt/httprouter"
)

type namedWorker struct {
	name string
	run  contracts.Worker
}

type Application struct {
	cfg           *config.Config
	issuer        *auth.Issuer
	metrics       *kafka_middleware.Metrics
	server        *http.Server
	replayStore   *middleware.MemoryReplayStore
	rateLimiter   *middleware.RateLimiter
	healthHandler http.Handler
	appHandler    http.Handler
	workers       []namedWorker
}

func NewApplication(cfg *config.Config) *Application {
	issuer, err := auth.NewIssuer(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTTokenTTL)
	if err != nil {
		cfg.Log.Fatal("Failed to create token issuer", "error", err)
	}
	return &Application{cfg: cfg, issuer: issuer}
}

func (a *Application) Issuer() *auth.Issuer {
	return a.issuer
}

// WithKafkaMetrics exposes the given metrics on /ready.
func (a *Application) WithKafkaMetrics(metrics *kafka_middleware.Metrics) {
	a.metrics = metrics
}

// AddWorker registers a loop started by Run and stopped on shutdown.
func (a *Application) AddWorker(name string, run contracts.Worker) {
	a.workers = append(a.workers, namedWorker{name: name, run: run})
}

// SetApp wires the health router and the application router. GET requests
// under publicPrefixes are served without a bearer token.
func (a *Application) SetApp(appHandler contracts.Handler, publicPrefixes ...string) {
	a.setHealthHandler()
	a.setAppHandler(appHandler, publicPrefixes)
	a.setAppServer()
}

func (a *Application) setHealthHandler() {
	healthRouter := httprouter.New()
	health.NewHandler(a.cfg.Client.Mongo, a.metrics, a.cfg.Log).RegisterRoutes(healthRouter)

	a.healthHandler = middleware.Chain(healthRouter,
		middleware.Recovery(a.cfg.Log),
		middleware.RequestLogging(a.cfg.Log),
	)
	a.cfg.Log.Info("Health endpoints configured with minimal middleware (Recovery + Logging only)")
}

func (a *Application) setAppHandler(appHandler contracts.Handler, publicPrefixes []string) {
	appRouter := httprouter.New()
	appHandler.RegisterRoutes(appRouter)

	a.replayStore = middleware.NewMemoryReplayStore(a.cfg.IdempotencyTTL)
	a.rateLimiter = middleware.NewRateLimiter(
		a.cfg.RateLimitRequests,
		a.cfg.RateLimitWindow,
		middleware.AccountOrAddress,
		a.cfg.Log,
	)

	a.appHandler = middleware.Chain(appRouter,
		middleware.Recovery(a.cfg.Log),
		middleware.RequestLogging(a.cfg.Log),
		middleware.CORS(a.cfg.CORSAllowedOrigins),
		middleware.MaxRequestSize(int64(a.cfg.MaxRequestSize), a.cfg.Log),
		middleware.ContentTypeValidation(a.cfg.Log),
		middleware.Authenticate(a.issuer, a.cfg.Log, publicPrefixes...),
		middleware.RateLimit(a.rateLimiter),
		middleware.RequestTimeout(a.cfg.RequestTimeout, a.cfg.Log),
		middleware.Idempotency(a.replayStore),
	)
	a.cfg.Log.Info("Application endpoints configured with full middleware stack", "public_prefixes", publicPrefixes)
}

func (a *Application) setAppServer() {
	mux := http.NewServeMux()
	mux.Handle("/health", a.healthHandler)
	mux.Handle("/ready", a.healthHandler)
	mux.Handle("/", a.appHandler)

	a.server = &http.Server{
		Addr:         ":" + a.cfg.Port,
		Handler:      mux,
		ReadTimeout:  a.cfg.ReadTimeout,
		WriteTimeout: a.cfg.WriteTimeout,
		IdleTimeout:  a.cfg.IdleTimeout,
	}

	a.cfg.Log.Info("HTTP server configured", "port", a.cfg.Port)
}

// Handler returns the full server mux; SetApp must have been called.
func (a *Application) Handler() http.Handler {
	return a.server.Handler
}

// Run serves until SIGINT or SIGTERM, then stops workers, drains the server
// and releases connections.
func (a *Application) Run() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup
	workerCtx, cancelWorkers := context.WithCancel(ctx)
	for _, w := range a.workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a.cfg.Log.Info("Starting worker", "worker", w.name)
			if err := w.run(workerCtx); err != nil && !errors.Is(err, context.Canceled) {
				a.cfg.Log.Error("Worker stopped with error", "worker", w.name, "error", err)
			}
		}()
	}

	serverErrors := make(chan error, 1)
	go func() {
		a.cfg.Log.Info("Starting HTTP server", "address", a.server.Addr)
		serverErrors <- a.server.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		cancelWorkers()
		a.cfg.Log.Fatal("HTTP server failed", "error", err)
	case <-ctx.Done():
		a.cfg.Log.Info("Shutdown signal received")
	}

	cancelWorkers()
	a.gracefulShutdown()
	wg.Wait()
	a.cfg.GracefulShutdown()
	a.cfg.Log.Info("Shutdown complete")
}

func (a *Application) gracefulShutdown() {
	a.cfg.Log.Info("Starting graceful shutdown...")

	a.replayStore.Close()
	a.rateLimiter.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	if err := a.server.Shutdown(ctx); err != nil {
		a.cfg.Log.Error("Server shutdown failed", "error", err)
		if err := a.server.Close(); err != nil {
			a.cfg.Log.Error("Could not stop server gracefully", "error", err)
		}
	}

	a.cfg.Log.Info("Server stopped gracefully")
}
