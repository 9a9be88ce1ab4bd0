// Command reanalyze-item re-runs AI enrichment for an existing item. The
// analysis result is upserted, so repeated runs leave a single record.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/jkorpela/wardrobe/internal/blob"
	"github.com/jkorpela/wardrobe/internal/config"
	"github.com/jkorpela/wardrobe/internal/ingest"
	"github.com/jkorpela/wardrobe/internal/storage"
	"github.com/jkorpela/wardrobe/internal/vision"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	if len(os.Args) != 2 {
		fmt.Fprintf(os.Stderr, "usage: %s ITEM_ID\n", os.Args[0])
		os.Exit(2)
	}
	itemID := os.Args[1]

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	store, err := storage.NewStore(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open store")
	}
	defer store.Close()

	ctx := context.Background()

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
	if err := service.Analyze(ctx, itemID); err != nil {
		log.Fatal().Err(err).Str("itemID", itemID).Msg("re-analysis failed")
	}

	item, err := store.GetItem(ctx, itemID)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to reload item")
	}
	fmt.Printf("item %s re-analyzed, status %s\n", item.ID, item.AnalysisStatus)
}
