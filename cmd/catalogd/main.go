package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/XSAM/otelsql"
	_ "github.com/go-sql-driver/mysql"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/pflag"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"catalog-core/internal/config"
	"catalog-core/internal/fetchplan"
	"catalog-core/internal/logging"
	"catalog-core/internal/observability"
	"catalog-core/internal/schema"
	"catalog-core/internal/store"
)

var (
	// Version is set at build time via -ldflags "-X main.Version=...".
	Version = "dev"
	Commit  = "none"
)

func main() {
	if err := run(); err != nil {
		slog.Error("catalogd error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run() error {
	pflag.Bool("version", false, "Print version and exit")

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if showVersion, _ := pflag.CommandLine.GetBool("version"); showVersion {
		fmt.Printf("catalogd %s (%s)\n", Version, Commit)
		return nil
	}

	if cfg.Observability.ServiceVersion == "" {
		cfg.Observability.ServiceVersion = Version
	}

	validationResult := cfg.Validate()
	if validationResult.HasErrors() {
		for _, err := range validationResult.Errors {
			slog.Error("configuration error",
				slog.String("field", err.Field),
				slog.String("message", err.Message),
				slog.String("hint", err.Hint),
			)
		}
		return fmt.Errorf("configuration validation failed")
	}

	logger := logging.NewLogger(logging.Config{
		Level:  cfg.Observability.Logging.Level,
		Format: cfg.Observability.Logging.Format,
	})
	slog.SetDefault(logger.Logger)

	meterProvider, err := observability.InitMeterProvider(observability.Config{
		ServiceName:    cfg.Observability.ServiceName,
		ServiceVersion: cfg.Observability.ServiceVersion,
		Environment:    cfg.Observability.Environment,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize metrics: %w", err)
	}
	defer func() { _ = meterProvider.Shutdown(context.Background(), logger.Logger) }()

	metrics, err := observability.NewQueryMetrics(meterProvider.Meter("catalog-core"))
	if err != nil {
		return fmt.Errorf("failed to create query metrics: %w", err)
	}

	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	pingCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	err = db.PingContext(pingCtx)
	cancel()
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	catalog := schema.DefaultCatalog()
	st := store.New(catalog, store.Config{
		MaxPageSize: cfg.Pagination.MaxPageSize,
		MaxInClause: cfg.Batch.MaxInClause,
		Metrics:     metrics,
	})
	if err := registerDefaultPlans(st); err != nil {
		return fmt.Errorf("failed to register fetch plans: %w", err)
	}

	var metricsServer *http.Server
	if cfg.Observability.MetricsEnabled {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsServer = &http.Server{Addr: cfg.Observability.MetricsAddr, Handler: mux}
		go func() {
			logger.Info("metrics listener started", slog.String("addr", cfg.Observability.MetricsAddr))
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("metrics listener failed", slog.String("error", err.Error()))
			}
		}()
	}

	logger.Info("catalogd ready",
		slog.String("version", Version),
		slog.String("environment", cfg.Observability.Environment),
		slog.Int("entities", len(catalog.Entities())),
	)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(stop)
	sig := <-stop

	logger.Info("shutting down", slog.String("signal", sig.String()))
	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("metrics listener shutdown failed: %w", err)
		}
	}
	logger.Info("catalogd stopped gracefully")
	return nil
}

// openDatabase opens an instrumented MySQL pool so query latency and pool
// stats flow into the meter provider.
func openDatabase(cfg *config.Config) (*sql.DB, error) {
	db, err := otelsql.Open("mysql", cfg.Database.EffectiveDSN(),
		otelsql.WithAttributes(semconv.DBSystemMySQL),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)

	if _, err := otelsql.RegisterDBStatsMetrics(db, otelsql.WithAttributes(semconv.DBSystemMySQL)); err != nil {
		return nil, fmt.Errorf("failed to register db stats metrics: %w", err)
	}
	return db, nil
}

// registerDefaultPlans installs the named fetch plans callers rely on.
func registerDefaultPlans(st *store.Store) error {
	plans := []struct {
		entity string
		name   string
		tree   fetchplan.Tree
	}{
		{schema.EntityOrder, "order-with-customer", fetchplan.Tree{
			fetchplan.Rel("user", fetchplan.Rel("department")),
		}},
		{schema.EntityOrder, "order-detail", fetchplan.Tree{
			fetchplan.Rel("user"),
			fetchplan.Rel("items", fetchplan.Rel("product")),
		}},
		{schema.EntityDepartment, "department-with-users", fetchplan.Tree{
			fetchplan.Rel("users"),
		}},
		{schema.EntityCategory, "category-with-products", fetchplan.Tree{
			fetchplan.Rel("products"),
		}},
		{schema.EntityUser, "user-with-orders", fetchplan.Tree{
			fetchplan.Rel("department"),
			fetchplan.Rel("orders"),
		}},
	}
	for _, p := range plans {
		if err := st.RegisterPlan(p.entity, p.name, p.tree); err != nil {
			return err
		}
	}
	return nil
}
