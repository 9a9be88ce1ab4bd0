// Command ingest-item registers a garment from the command line: it reads
// up to five photo files, runs the full ingestion pipeline and prints the
// resulting item.
package main

import (
	"context"
	"flag"
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

	var (
		owner    = flag.Int64("owner", 1, "owner user id")
		name     = flag.String("name", "", "item name (required)")
		category = flag.String("category", "", "category name")
		brand    = flag.String("brand", "", "brand")
		color    = flag.String("color", "", "color")
		size     = flag.String("size", "", "size")
		useAI    = flag.Bool("ai", true, "run AI enrichment")
	)
	flag.Parse()

	if *name == "" || flag.NArg() == 0 {
		fmt.Fprintf(os.Stderr, "usage: %s -name NAME [flags] IMAGE...\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(2)
	}

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

	var uploads []ingest.ImageUpload
	for _, path := range flag.Args() {
		data, err := os.ReadFile(path)
		if err != nil {
			log.Fatal().Err(err).Str("path", path).Msg("failed to read image")
		}
		uploads = append(uploads, ingest.ImageUpload{Filename: path, Data: data})
	}

	service := ingest.New(store, blobs, analyzer)
	item, err := service.Ingest(ctx, *owner, uploads, ingest.Metadata{
		Name:         *name,
		CategoryName: *category,
		Brand:        *brand,
		Color:        *color,
		Size:         *size,
	}, *useAI)
	if err != nil {
		log.Fatal().Err(err).Msg("ingestion failed")
	}

	fmt.Printf("item %s (%s)\n", item.ID, item.Name)
	fmt.Printf("  status:   %s\n", item.AnalysisStatus)
	fmt.Printf("  brand:    %s\n", item.Brand)
	fmt.Printf("  color:    %s\n", item.Color)
	fmt.Printf("  size:     %s\n", item.Size)
	fmt.Printf("  material: %s\n", item.Material)
	fmt.Printf("  pattern:  %s\n", item.Pattern)
	if item.Description != "" {
		fmt.Printf("  description: %s\n", item.Description)
	}

	images, err := store.ImagesForItem(ctx, item.ID)
	if err == nil {
		for _, img := range images {
			fmt.Printf("  image %d (%s): %s\n", img.Position, img.Role, img.URI)
		}
	}
}
