package main

import (
	"context"
	"errors"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"filevault/internal/auth"
	"filevault/internal/config"
	"filevault/internal/domain/repositories"
	"filevault/internal/handler"
	"filevault/internal/middleware"
	"filevault/internal/repository/memory"
	mongorepo "filevault/internal/repository/mongo"
	"filevault/internal/service/archive"
	"filevault/internal/service/hierarchy"
	"filevault/internal/service/reaper"
	"filevault/internal/storage/local"

	"github.com/joho/godotenv"
	"github.com/rs/cors"
)

func main() {
	// Load .env file (silently ignore if it doesn't exist - for production)
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Setup structured logging
	logLevel := slog.LevelInfo
	if cfg.Debug {
		logLevel = slog.LevelDebug
	}

	var logOut io.Writer = os.Stdout
	if cfg.LogDir != "" {
		logFile, err := config.SetupLogFile(cfg.LogDir, 10)
		if err != nil {
			log.Fatalf("Failed to set up log file: %v", err)
		}
		defer logFile.Close()
		logOut = io.MultiWriter(os.Stdout, logFile)
	}

	logger := slog.New(slog.NewJSONHandler(logOut, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("server starting",
		"environment", cfg.Environment,
		"port", cfg.Port,
		"store_driver", cfg.StoreDriver,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Create JWT verifier
	jwtVerifier, err := auth.NewVerifier(cfg.JWTSecret)
	if err != nil {
		log.Fatalf("Failed to create JWT verifier: %v", err)
	}

	// Create the entry repository
	var entryRepo repositories.EntryRepository
	switch cfg.StoreDriver {
	case "mongo":
		connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		client, err := mongorepo.NewClient(connectCtx, cfg.MongoURL)
		cancel()
		if err != nil {
			log.Fatalf("Failed to connect to MongoDB: %v", err)
		}
		defer client.Disconnect(context.Background())

		entryRepo, err = mongorepo.NewEntryRepository(ctx, client.Database(cfg.MongoDatabase))
		if err != nil {
			log.Fatalf("Failed to initialize entry repository: %v", err)
		}
		logger.Info("database connected", "database", cfg.MongoDatabase)
	case "memory":
		entryRepo = memory.NewEntryRepository()
		logger.Warn("using in-memory entry store, all entries are lost on restart")
	default:
		log.Fatalf("Unknown STORE_DRIVER %q (want mongo or memory)", cfg.StoreDriver)
	}

	// Create the filesystem backend
	files, err := local.New(cfg.StorageRoot)
	if err != nil {
		log.Fatalf("Failed to initialize storage root: %v", err)
	}

	// Entry locks are shared between the hierarchy service and the
	// reaper so restore and reap serialize per entry.
	locks := hierarchy.NewEntryLocks()
	resolver := hierarchy.NewPathResolver(entryRepo)

	hierarchyService := hierarchy.New(hierarchy.Config{
		Entries:   entryRepo,
		Files:     files,
		Resolver:  resolver,
		Locks:     locks,
		Retention: cfg.TrashRetention,
		Logger:    logger,
	})

	trashReaper := reaper.New(reaper.Config{
		Entries:  entryRepo,
		Files:    files,
		Resolver: resolver,
		Locks:    locks,
		Interval: cfg.ReaperInterval,
		Logger:   logger,
	})
	go trashReaper.Run(ctx)

	exporter := archive.NewExporter(files, logger)

	// Create handlers
	entryHandler := handler.NewEntryHandler(hierarchyService, logger)
	uploadHandler := handler.NewUploadHandler(hierarchyService, cfg.StagingDir, logger)
	downloadHandler := handler.NewDownloadHandler(hierarchyService, exporter, logger)

	logger.Info("services initialized")

	// Create HTTP router (Go 1.22+ enhanced patterns)
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("GET /health", entryHandler.HealthCheck)

	// Folder routes
	mux.HandleFunc("POST /api/folders", entryHandler.CreateFolder)
	mux.HandleFunc("GET /api/folders/children", entryHandler.ListRootChildren) // Must come before {id} route
	mux.HandleFunc("GET /api/folders/{id}/children", entryHandler.ListChildren)

	// Entry routes
	mux.HandleFunc("GET /api/entries/{id}", entryHandler.GetEntry)
	mux.HandleFunc("PATCH /api/entries/{id}", entryHandler.UpdateEntry)
	mux.HandleFunc("PATCH /api/entries/{id}/trash", entryHandler.SetTrash)
	mux.HandleFunc("DELETE /api/entries/{id}", entryHandler.DeleteEntry)

	// Trash view
	mux.HandleFunc("GET /api/trash", entryHandler.ListTrashRoots)

	// File transfer routes
	mux.HandleFunc("POST /api/files", uploadHandler.UploadFile)
	mux.HandleFunc("GET /api/download/file/{id}", downloadHandler.DownloadFile)
	mux.HandleFunc("GET /api/download/folder/{id}", downloadHandler.DownloadFolder)

	// Build middleware chain
	var httpHandler http.Handler = mux

	// Apply middleware in reverse order (they wrap each other)
	// Order: CORS → Recovery → Auth → Routes
	httpHandler = middleware.AuthMiddleware(jwtVerifier)(httpHandler)
	httpHandler = middleware.Recovery(logger)(httpHandler)

	// CORS - Must be before auth to handle OPTIONS pre-flight requests
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   strings.Split(cfg.CORSOrigins, ","),
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Origin", "Content-Type", "Accept", "Authorization"},
		AllowCredentials: true,
	})
	httpHandler = corsHandler.Handler(httpHandler)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      httpHandler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // Disabled to allow large archive downloads
		IdleTimeout:  60 * time.Second,
	}

	// Start server
	go func() {
		logger.Info("server listening", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}

	logger.Info("server stopped")
}
