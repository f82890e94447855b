package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgallion1/casefinder/internal/api"
	"github.com/dgallion1/casefinder/internal/blobstore"
	"github.com/dgallion1/casefinder/internal/config"
	"github.com/dgallion1/casefinder/internal/pipeline"
	"github.com/dgallion1/casefinder/internal/store"
	"github.com/dgallion1/casefinder/internal/summary"
)

func main() {
	cfg := config.Load()
	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))

	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	lex := summary.DefaultLexicon()
	if cfg.LexiconFile != "" {
		var err error
		if lex, err = summary.LoadLexiconFile(cfg.LexiconFile); err != nil {
			return fmt.Errorf("load lexicon: %w", err)
		}
		log.Info("loaded lexicon", "path", cfg.LexiconFile)
	}
	extractor := summary.New(lex)

	cases, err := store.New(ctx, cfg.DBPath, log)
	if err != nil {
		return err
	}
	defer cases.Close()

	blobs, err := openBlobstore(ctx, cfg)
	if err != nil {
		return err
	}
	defer blobs.Close()

	// Initialize pipeline.
	orch := pipeline.NewOrchestrator(cfg, pipeline.WorkerDeps{
		Cases:     cases,
		Blobs:     blobs,
		Extractor: extractor,
	}, log)
	orch.Start(context.WithoutCancel(ctx))
	defer orch.Stop()

	// Initialize HTTP server.
	srv := api.NewServer(orch, cases, blobs, extractor, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting casefinder",
			"port", cfg.Port,
			"db", cfg.DBPath,
			"blob_backend", cfg.BlobBackend,
			"workers", cfg.WorkerCount,
			"auto_summarize", cfg.AutoSummarize,
		)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	// Stop accepting uploads first; the deferred Stop then cancels workers.
	log.Info("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown", "error", err)
	}
	return nil
}

func openBlobstore(ctx context.Context, cfg config.Config) (blobstore.Store, error) {
	switch cfg.BlobBackend {
	case config.BlobS3:
		s3, err := blobstore.NewS3(ctx, blobstore.S3Options{
			Bucket:   cfg.S3Bucket,
			Region:   cfg.S3Region,
			Prefix:   cfg.S3Prefix,
			Endpoint: cfg.S3Endpoint,
		})
		if err != nil {
			return nil, err
		}
		return s3, nil
	default:
		fs, err := blobstore.NewFilesystem(cfg.UploadDir)
		if err != nil {
			return nil, err
		}
		return fs, nil
	}
}
