package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/kelseyhightower/envconfig"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Anri-17/bolt-generated-project/internal/common/database"
	"github.com/Anri-17/bolt-generated-project/internal/common/events"
	"github.com/Anri-17/bolt-generated-project/internal/common/middleware"
	natsclient "github.com/Anri-17/bolt-generated-project/internal/common/nats"
	"github.com/Anri-17/bolt-generated-project/internal/payment"
	"github.com/Anri-17/bolt-generated-project/internal/payment/api"
	"github.com/Anri-17/bolt-generated-project/internal/payment/ledger"
	"github.com/Anri-17/bolt-generated-project/internal/providers/applepay"
	"github.com/Anri-17/bolt-generated-project/internal/providers/bog"
	"github.com/Anri-17/bolt-generated-project/internal/providers/googlepay"
	"github.com/Anri-17/bolt-generated-project/internal/providers/tbc"
)

// Config holds service configuration
type Config struct {
	Port        int      `envconfig:"PAYMENTS_PORT" default:"8086"`
	Environment string   `envconfig:"ENVIRONMENT" default:"development"`
	LogLevel    string   `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat   string   `envconfig:"LOG_FORMAT" default:"json"`
	CORSOrigins []string `envconfig:"CORS_ORIGINS" default:"*"`
	NATSEnabled bool     `envconfig:"NATS_ENABLED" default:"true"`

	Database   database.Config
	NATS       natsclient.Config
	Dispatcher payment.Config
	BOG        bog.Config
	TBC        tbc.Config
	ApplePay   applepay.Config
	GooglePay  googlepay.Config
}

func main() {
	// Load configuration
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		fmt.Fprintf(os.Stderr, "failed to process config: %v\n", err)
		os.Exit(1)
	}

	// Setup logger
	logger := setupLogger(cfg.LogLevel, cfg.LogFormat)

	// Create context that listens for shutdown signals
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Run migrations before opening the pool
	if cfg.Database.MigrateOnStart {
		if err := database.Migrate(cfg.Database, logger); err != nil {
			logger.Error("failed to run migrations", "error", err)
			os.Exit(1)
		}
	}

	// Connect to database
	db, err := database.New(ctx, cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Connect to NATS. The service degrades without it: no lifecycle
	// events, wallet methods report not supported.
	var natsConn *natsclient.Client
	var publisher events.EventPublisher
	if cfg.NATSEnabled {
		natsConn, err = natsclient.New(ctx, cfg.NATS, logger)
		if err != nil {
			logger.Warn("nats unavailable, running without events and wallet methods", "error", err)
		} else {
			defer natsConn.Close()
			if _, err := natsConn.EnsureStream(ctx, natsclient.DefaultStreamConfig("PAYMENTS", []string{"payments.>"})); err != nil {
				logger.Error("failed to ensure payments stream", "error", err)
				os.Exit(1)
			}
			publisher = natsclient.NewPublisher(natsConn, logger)
		}
	}

	// Build the provider registry
	adapters, err := buildAdapters(cfg, natsConn, logger)
	if err != nil {
		logger.Error("failed to build provider adapters", "error", err)
		os.Exit(1)
	}

	store := ledger.NewPostgresStore(db)
	dispatcher := payment.NewDispatcher(cfg.Dispatcher, adapters, store, publisher, logger)
	paymentHandler := api.NewHandler(dispatcher, store, logger)

	// Setup router
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(middleware.CorrelationID)
	r.Use(middleware.Recoverer(logger))
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CORS(cfg.CORSOrigins))
	r.Use(chimw.Compress(5))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := db.HealthCheck(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"unhealthy"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	})

	// Ready check
	r.Get("/ready", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ready"}`))
	})

	// Metrics
	r.Handle("/metrics", promhttp.Handler())

	// API routes
	r.Route("/api/v1/payments", func(r chi.Router) {
		r.Mount("/", paymentHandler.Routes())
	})

	// Wallet sheet flows block until the user resolves the sheet, so the
	// write timeout must outlast the sheet timeout.
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 3 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("starting payments service",
			"port", cfg.Port,
			"environment", cfg.Environment,
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			cancel()
		}
	}()

	<-ctx.Done()

	// Graceful shutdown
	logger.Info("shutting down server")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	logger.Info("server stopped")
}

// buildAdapters wires the fixed method registry. Bank gateways are
// mandatory; a wallet falls back to an unavailable adapter when its
// merchant config or the NATS sheet bridge is missing.
func buildAdapters(cfg Config, natsConn *natsclient.Client, logger *slog.Logger) (map[payment.Method]payment.Adapter, error) {
	bogAdapter, err := bog.NewAdapter(cfg.BOG, logger)
	if err != nil {
		return nil, err
	}
	tbcAdapter, err := tbc.NewAdapter(cfg.TBC, logger)
	if err != nil {
		return nil, err
	}

	adapters := map[payment.Method]payment.Adapter{
		payment.MethodBOG: bogAdapter,
		payment.MethodTBC: tbcAdapter,
	}

	appleAdapter := applepay.Unavailable(logger)
	if natsConn != nil && cfg.ApplePay.MerchantID != "" {
		relay := applepay.NewSheetRelay(natsConn.Conn(), logger)
		appleAdapter, err = applepay.NewAdapter(cfg.ApplePay, relay, logger)
		if err != nil {
			return nil, err
		}
	} else {
		logger.Warn("apple pay disabled", "reason", "missing merchant config or nats")
	}
	adapters[payment.MethodApple] = appleAdapter

	googleAdapter := googlepay.Unavailable(logger)
	if natsConn != nil && cfg.GooglePay.MerchantID != "" {
		relay := googlepay.NewSheetRelay(natsConn.Conn(), logger)
		googleAdapter, err = googlepay.NewAdapter(cfg.GooglePay, relay, logger)
		if err != nil {
			return nil, err
		}
	} else {
		logger.Warn("google pay disabled", "reason", "missing merchant config or nats")
	}
	adapters[payment.MethodGoogle] = googleAdapter

	return adapters, nil
}

func setupLogger(level, format string) *slog.Logger {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: logLevel,
	}

	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
