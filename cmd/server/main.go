package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"invoicer/internal/config"
	"invoicer/internal/engine"
	"invoicer/internal/engine/providers"
	"invoicer/internal/handler"
	"invoicer/internal/logger"
	"invoicer/internal/port"
	"invoicer/internal/repository/postgres"
	"invoicer/internal/router"
	"invoicer/internal/service"
	s3storage "invoicer/internal/storage/s3"
	"invoicer/internal/validator"
)

// @title Invoicer API
// @version 1.0
// @description Natural-language invoice command interpretation.
// @BasePath /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	zlog, err := logger.New(cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer func() { _ = zlog.Sync() }()

	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := postgres.NewDB(ctx, &cfg.DB)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	// Initialize repositories
	invoiceRepo := postgres.NewInvoiceRepo(db)

	// Initialize transcript storage
	var storage port.ObjectStorage
	if cfg.Transcript.Enabled {
		storage, err = s3storage.NewS3Client(ctx, &cfg.S3)
		if err != nil {
			return fmt.Errorf("failed to initialize S3 client: %w", err)
		}
		if err := storage.CheckBucket(ctx, cfg.Transcript.Bucket); err != nil {
			zlog.Warn("transcript bucket not reachable; transcripts may be lost", zap.Error(err))
		}
	}

	// Initialize generation engine
	providers.RegisterAll()
	pool, err := engine.NewPool(cfg.Engine.Sessions, func() (engine.Backend, error) {
		return engine.NewFromConfig(&cfg.Engine, zlog)
	}, zlog)
	if err != nil {
		return fmt.Errorf("failed to create engine pool: %w", err)
	}
	defer func() {
		if err := pool.Close(); err != nil {
			zlog.Warn("releasing engine sessions", zap.Error(err))
		}
	}()
	if err := pool.Initialize(ctx); err != nil {
		return fmt.Errorf("failed to initialize engine: %w", err)
	}

	// Initialize services
	tokenSvc := service.NewTokenService(cfg.JWT)
	transcripts := service.NewTranscriptRecorder(storage, cfg.Transcript, zlog)
	validation := validator.NewEngine(validator.NewDefaultRegistry())
	commandSvc := service.NewCommandService(pool, invoiceRepo, validation, transcripts, zlog)

	// Setup router
	r := router.Setup(tokenSvc, router.Handlers{
		Command: handler.NewCommandHandler(commandSvc),
		Engine:  handler.NewEngineHandler(pool),
		Health:  handler.NewHealthHandler(db, pool),
	}, cfg.CORS.AllowedOrigins, zlog)

	srv := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		zlog.Info("server starting", zap.String("addr", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
	}

	zlog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}
