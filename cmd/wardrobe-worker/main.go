// Command wardrobe-worker runs the deferred half of the ingestion pipeline:
// it consumes queued enrichment requests and periodically re-enqueues stale
// failed analyses.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/jkorpela/wardrobe/internal/blob"
	"github.com/jkorpela/wardrobe/internal/config"
	"github.com/jkorpela/wardrobe/internal/dispatch"
	"github.com/jkorpela/wardrobe/internal/ingest"
	"github.com/jkorpela/wardrobe/internal/storage"
	"github.com/jkorpela/wardrobe/internal/vision"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	store, err := storage.NewStore(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open store")
	}
	defer store.Close()
	log.Info().Str("dbPath", cfg.DBPath).Msg("store initialized")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	analyzer, err := vision.NewGeminiAnalyzer(ctx, vision.Config{
		APIKey:  cfg.GeminiAPIKey,
		Model:   cfg.GeminiModel,
		Timeout: cfg.GeminiTimeout,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize vision analyzer")
	}

	blobs := blob.NewCloudinaryStore(blob.CloudinaryConfig{
		CloudName: cfg.CloudinaryCloudName,
		APIKey:    cfg.CloudinaryAPIKey,
		APISecret: cfg.CloudinaryAPISecret,
	})

	service := ingest.New(store, blobs, analyzer)

	g, ctx := errgroup.WithContext(ctx)

	var dispatcher dispatch.Dispatcher
	if cfg.NATSURL != "" {
		queue, err := dispatch.NewNATSQueue(cfg.NATSURL, dispatch.DefaultSubject, service.Analyze)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to nats")
		}
		defer queue.Close()
		dispatcher = queue
		g.Go(func() error { return queue.Run(ctx) })
		log.Info().Str("url", cfg.NATSURL).Msg("using nats dispatcher")
	} else {
		worker := dispatch.NewWorker(service.Analyze, 0)
		dispatcher = worker
		g.Go(func() error {
			worker.Run(ctx)
			return nil
		})
		log.Info().Msg("using in-process dispatcher")
	}

	sweeper := dispatch.NewSweeper(store, dispatcher)
	g.Go(func() error {
		sweeper.Run(ctx)
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("shutdown with error")
		os.Exit(1)
	}
	log.Info().Msg("shutdown complete")
}
