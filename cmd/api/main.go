package main

import (
	"context"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"fileapi/internal/config"
	"fileapi/internal/database"
	"fileapi/internal/database/migration"
	handlers "fileapi/internal/http/handler"
	"fileapi/internal/http/middleware"
	"fileapi/internal/otel"
	"fileapi/internal/repository/postgres"
	"fileapi/internal/service"
	"fileapi/internal/storage"
)

func main() {
	// Load configuration from environment variables (.env auto-loaded if present)
	cfg := config.Load()

	ctx := context.Background()

	// Initialize tracing; degrades to a noop provider when the exporter is unavailable
	shutdownTracing, err := otel.Init(ctx, time.UTC)
	if err != nil {
		log.Fatalf("failed to initialize tracing: %v", err)
	}
	defer shutdownTracing(ctx)

	// Initialize PostgreSQL connection (with pooling via database/sql)
	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := migration.EnsureMigrated(ctx, db, time.UTC, cfg.Database.Host); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	// Initialize reusable S3-compatible blob storage client (MinIO-supported);
	// the bucket is created here once if absent.
	blobStore, err := storage.NewMinIO(cfg.MinIO)
	if err != nil {
		log.Fatalf("failed to initialize blob storage: %v", err)
	}

	// Initialize repositories and services
	fileRepo := postgres.NewFilePostgres(db)
	fileSvc := service.NewFileService(blobStore, fileRepo, cfg.Upload)

	app := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler(),
		// Room for a full batch of files at the per-file ceiling, plus multipart framing
		BodyLimit: int(cfg.Upload.MaxFileSizeBytes)*cfg.Upload.MaxBatchFiles + 1<<20,
	})

	// Register global middleware
	// RequestID middleware adds/propagates X-Request-ID and stores it in context
	app.Use(middleware.RequestID())
	// JSON Logger middleware for structured request logs
	app.Use(middleware.Logger())
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.CORSOrigins,
	}))

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	promMw, err := middleware.NewPrometheusMiddleware(reg)
	if err != nil {
		log.Fatalf("failed to register metrics: %v", err)
	}
	app.Use(promMw.Handler())
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	// Register HTTP routes with injected service
	handlers.RegisterRoutes(app, db, fileSvc)

	addr := ":" + cfg.Port

	if err := app.Listen(addr); err != nil {
		log.Fatalf("failed to start server: %v", err)
	}
}
