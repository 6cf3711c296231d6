package main

import (
	"context"
	"database/sql"
	"log"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"docsaga/internal/backend"
	"docsaga/internal/backend/filestore"
	"docsaga/internal/backend/relationaldb"
	"docsaga/internal/backend/remote"
	"docsaga/internal/config"
	"docsaga/internal/database"
	"docsaga/internal/database/migration"
	"docsaga/internal/governance"
	handlers "docsaga/internal/http/handler"
	"docsaga/internal/http/middleware"
	"docsaga/internal/identity"
	identitypg "docsaga/internal/identity/postgres"
	"docsaga/internal/jsonlog"
	"docsaga/internal/lifecycle"
	appotel "docsaga/internal/otel"
	"docsaga/internal/registry"
	"docsaga/internal/saga"
	"docsaga/internal/storage"
)

func main() {
	ctx := context.Background()

	// Load configuration from environment variables (.env auto-loaded if present)
	cfg := config.Load()

	// Initialize OpenTelemetry tracing (degrades to noop on exporter errors)
	shutdownTracing, err := appotel.Init(ctx)
	if err != nil {
		log.Fatalf("failed to initialize tracing: %v", err)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			jsonlog.Emit(map[string]any{"level": "error", "msg": "tracing_shutdown_failed", "error": err.Error()})
		}
	}()

	backends := backend.Set{}

	// Identity state lives in PostgreSQL when a database is configured,
	// otherwise in memory. The relational backend shares the same pool.
	var db *sql.DB
	var identityStore identity.Store = identity.NewMemoryStore()
	if cfg.Database.Host != "" {
		db, err = database.NewPostgres(cfg.Database)
		if err != nil {
			log.Fatalf("failed to connect to database: %v", err)
		}
		defer db.Close()

		if err := migration.EnsureMigrated(ctx, db, cfg.Database.Host); err != nil {
			log.Fatalf("failed to run migrations: %v", err)
		}

		relational, err := relationaldb.New(ctx, db)
		if err != nil {
			log.Fatalf("failed to initialize relational backend: %v", err)
		}
		backends[backend.Relational] = relational
		identityStore = identitypg.NewStore(db)
	}

	// File backend over S3-compatible object storage (MinIO-supported)
	var objStore storage.Storage
	if cfg.MinIO.Endpoint != "" {
		objStore, err = storage.NewMinIO(cfg.MinIO)
		if err != nil {
			log.Fatalf("failed to initialize object storage: %v", err)
		}
		fileBackend, err := filestore.New(objStore)
		if err != nil {
			log.Fatalf("failed to initialize file backend: %v", err)
		}
		backends[backend.File] = fileBackend
	}

	// Remote vector and graph services; absent URLs leave them unconfigured
	if cfg.Backends.VectorBaseURL != "" {
		vec, err := remote.New(backend.Vector, cfg.Backends.VectorBaseURL)
		if err != nil {
			log.Fatalf("failed to initialize vector backend: %v", err)
		}
		backends[backend.Vector] = vec
	}
	if cfg.Backends.GraphBaseURL != "" {
		graph, err := remote.New(backend.Graph, cfg.Backends.GraphBaseURL)
		if err != nil {
			log.Fatalf("failed to initialize graph backend: %v", err)
		}
		backends[backend.Graph] = graph
	}

	// Metrics registry shared by the HTTP middleware and the saga engine
	promReg := prometheus.NewRegistry()
	promReg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	sagaMetrics, err := saga.NewMetrics(promReg)
	if err != nil {
		log.Fatalf("failed to register saga metrics: %v", err)
	}

	identitySvc := identity.NewService(identityStore, cfg.Lifecycle.Actor)

	coordinator := lifecycle.New(lifecycle.Options{
		Engine:   saga.NewInstrumentedEngine(sagaMetrics),
		Backends: backends,
		Gate:     governance.NewGate(governance.DefaultPolicy()),
		Identity: identitySvc,
		Registry: registry.NewMemory(),
		Config:   cfg.Lifecycle,
	})

	app := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler(),
	})

	// Register global middleware
	// Trace inbound requests; spans join the OTLP pipeline configured above
	app.Use(otelfiber.Middleware())
	// RequestID middleware adds/propagates X-Request-ID and stores it in context
	app.Use(middleware.RequestID())
	// JSON Logger middleware for structured request logs
	app.Use(middleware.Logger())

	httpMetrics, err := middleware.NewPrometheusMiddleware(promReg)
	if err != nil {
		log.Fatalf("failed to register http metrics: %v", err)
	}
	app.Use(httpMetrics.Handler())

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(promReg, promhttp.HandlerOpts{})))

	// Register HTTP routes with injected services
	handlers.RegisterRoutes(app, db, coordinator, identitySvc, objStore)

	addr := ":" + cfg.Port

	if err := app.Listen(addr); err != nil {
		log.Fatalf("failed to start server: %v", err)
	}
}
