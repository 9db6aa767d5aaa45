// @title           Egglytics Backend API
// @version         1.0.0
// @description     Backend API for insect-egg image batch processing. Uploads run through an external detection gateway in the background; humans correct the results in the annotation editor, and the corrections feed model accuracy metrics and labeled dataset exports.

// @contact.name   API Support
// @contact.email  support@example.com

// @license.name  MIT
// @license.url   https://opensource.org/licenses/MIT

// @host      localhost:8080
// @BasePath  /api/v1

// @securityDefinitions.apikey Bearer
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

package main

import (
	"log"
	"net/http"
	"net/url"
	"time"

	"egglytics-backend/docs"
	"egglytics-backend/internal/config"
	"egglytics-backend/internal/database"
	"egglytics-backend/internal/export"
	"egglytics-backend/internal/handlers"
	"egglytics-backend/internal/inference"
	"egglytics-backend/internal/metrics"
	"egglytics-backend/internal/middleware"
	"egglytics-backend/internal/realtime"
	"egglytics-backend/internal/services"
	"egglytics-backend/internal/storage"
	"egglytics-backend/internal/tasks"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

const counterVerifyInterval = 10 * time.Minute

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Update Swagger docs with dynamic base URL
	if cfg.BaseURL != "" {
		if baseURL, err := url.Parse(cfg.BaseURL); err == nil {
			docs.SwaggerInfo.Host = baseURL.Host
			if baseURL.Scheme == "https" {
				docs.SwaggerInfo.Schemes = []string{"https", "http"}
			} else {
				docs.SwaggerInfo.Schemes = []string{"http", "https"}
			}
		}
	}

	db, err := database.NewClient(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}
	log.Println("Migrations completed successfully")

	blobs, err := newBlobStore(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}

	var events *realtime.Publisher
	if cfg.SupabaseURL != "" && cfg.SupabasePublishableKey != "" {
		events, err = realtime.NewPublisher(cfg.SupabaseURL, cfg.SupabasePublishableKey)
		if err != nil {
			log.Printf("Warning: realtime publisher disabled: %v", err)
		}
	}

	detectors := inference.NewRegistry()
	detectors.Register("polyegg_heatmap", inference.NewClient(cfg.GatewayBaseURL, cfg.GatewayTimeout))
	detectors.Register("free_annotate", inference.FreeAnnotate{})

	runner := tasks.NewAsyncRunner()

	batchService := services.NewBatchService(db, blobs, detectors, runner, events)
	ledgerService := services.NewLedgerService(db)
	metricsEngine := metrics.NewEngine(db)
	serializer := export.NewSerializer(db, blobs)

	uploadHandler := handlers.NewUploadHandler(batchService, detectors)
	batchesHandler := handlers.NewBatchesHandler(db, blobs)
	imagesHandler := handlers.NewImagesHandler(db, blobs, batchService, ledgerService)
	editorHandler := handlers.NewEditorHandler(ledgerService, blobs)
	metricsHandler := handlers.NewMetricsHandler(metricsEngine)
	exportHandler := handlers.NewExportHandler(serializer)
	thumbnailsHandler := handlers.NewThumbnailsHandler(db, blobs)

	// Background repair job for the denormalized egg counters.
	stopVerifier := make(chan struct{})
	defer close(stopVerifier)
	go database.RunCounterVerifier(db, counterVerifyInterval, stopVerifier)

	router := gin.Default()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check (no auth)
	router.GET("/health", handlers.HealthHandler)

	// Locally stored media is served directly; the Supabase backend serves
	// public URLs itself.
	if cfg.StorageBackend == "local" {
		router.Static("/media", cfg.MediaRoot)
	}

	api := router.Group("/api/v1")
	api.Use(middleware.Identify(cfg))

	// Batch routes
	api.GET("/models", uploadHandler.Models)
	api.POST("/batches/upload", uploadHandler.Upload)
	api.GET("/batches", batchesHandler.ListBatches)
	api.GET("/batches/status/latest", batchesHandler.LatestBatchStatus)
	api.GET("/batches/:batch_id/status", batchesHandler.BatchStatus)
	api.GET("/batches/:batch_id/images", batchesHandler.BatchImages)
	api.PATCH("/batches/:batch_id/name", batchesHandler.RenameBatch)
	api.DELETE("/batches/:batch_id", batchesHandler.DeleteBatch)

	// Image routes
	api.DELETE("/images/:image_id", imagesHandler.DeleteImage)
	api.PATCH("/images/:image_id/name", imagesHandler.RenameImage)
	api.PATCH("/images/:image_id/hatched", imagesHandler.UpdateHatched)
	api.POST("/images/:image_id/recalibrate", imagesHandler.Recalibrate)
	api.GET("/images/:image_id/thumbnail", thumbnailsHandler.Thumbnail)

	// Annotation editor routes
	api.GET("/images/:image_id/annotations", editorHandler.Annotations)
	api.POST("/images/:image_id/points", editorHandler.AddPoint)
	api.DELETE("/images/:image_id/points", editorHandler.RemovePoint)
	api.POST("/images/:image_id/rects", editorHandler.AddRect)
	api.DELETE("/images/:image_id/rects", editorHandler.RemoveRect)
	api.POST("/images/:image_id/grids", editorHandler.ToggleGrid)

	// Metrics routes
	api.GET("/metrics/models", metricsHandler.Models)
	api.GET("/metrics/comparison", metricsHandler.Compare)

	// Export routes
	api.GET("/export/date-range", exportHandler.DateRange)
	api.GET("/export/count", exportHandler.Count)
	api.GET("/export/dataset", exportHandler.Dataset)
	api.GET("/export/csv", exportHandler.CSV)

	port := cfg.Port
	if port == "" {
		port = "8080"
	}

	log.Printf("Server starting on port %s", port)
	if err := http.ListenAndServe(":"+port, router); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

func newBlobStore(cfg *config.Config) (storage.BlobStore, error) {
	if cfg.StorageBackend == "supabase" {
		return storage.NewSupabaseStore(cfg.SupabaseURL, cfg.SupabasePublishableKey, cfg.SupabaseStorageBucket)
	}
	return storage.NewLocalStore(cfg.MediaRoot, cfg.BaseURL)
}
