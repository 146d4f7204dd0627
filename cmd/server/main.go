package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"borderdesk/internal/config"
	"borderdesk/internal/email/noop"
	sesemail "borderdesk/internal/email/ses"
	"borderdesk/internal/extraction"
	"borderdesk/internal/extraction/claude"
	"borderdesk/internal/extraction/gemini"
	"borderdesk/internal/extraction/openai"
	"borderdesk/internal/filing"
	"borderdesk/internal/handler"
	"borderdesk/internal/metrics"
	"borderdesk/internal/port"
	"borderdesk/internal/repository/postgres"
	"borderdesk/internal/router"
	"borderdesk/internal/service"
	s3storage "borderdesk/internal/storage/s3"
	"borderdesk/internal/textextract"
)

const shutdownTimeout = 20 * time.Second

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

	db, err := postgres.NewDB(&cfg.DB)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	// Initialize repositories
	manifestRepo := postgres.NewManifestRepo(db)
	submissionRepo := postgres.NewSubmissionRepo(db)

	// Initialize extraction providers
	openai.Register()
	claude.Register()
	gemini.Register()
	extractor, err := extraction.NewFromConfig(&cfg.Extractor)
	if err != nil {
		return fmt.Errorf("failed to initialize extractor: %w", err)
	}

	// Initialize filing
	coordinator := filing.NewCoordinator(filing.NewHTTPClient(&cfg.Filing), &cfg.Filing)

	// Initialize archive storage
	var storage port.ObjectStorage
	if cfg.S3.Bucket != "" {
		storage, err = s3storage.NewS3Client(&cfg.S3)
		if err != nil {
			return fmt.Errorf("failed to initialize S3 client: %w", err)
		}
	} else {
		log.Println("S3 bucket not configured, submission archiving disabled")
	}

	// Initialize email
	var emailSender port.EmailSender
	switch cfg.Email.Provider {
	case "ses":
		emailSender, err = sesemail.NewSESSender(&cfg.Email)
		if err != nil {
			return fmt.Errorf("failed to initialize SES sender: %w", err)
		}
	default:
		emailSender = noop.NewNoopSender()
	}

	m := metrics.New(prometheus.DefaultRegisterer)

	manifestSvc := service.NewManifestService(
		textextract.New(), extractor, coordinator,
		manifestRepo, submissionRepo, storage, emailSender, m, cfg,
	)

	// Initialize handlers
	manifestH := handler.NewManifestHandler(manifestSvc, cfg.Upload.MaxFileSizeMB<<20)
	healthH := handler.NewHealthHandler(postgres.NewPinger(db))

	srv := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      router.Setup(manifestH, healthH, cfg),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Server starting on %s", cfg.Server.Port)
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
		return nil
	case <-ctx.Done():
	}

	log.Println("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	log.Println("Server stopped")
	return nil
}
