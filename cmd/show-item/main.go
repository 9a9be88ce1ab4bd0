// Command show-item prints a single item with its category, photos and
// latest analysis result. With -thumbs it also downloads the main photo and
// writes local thumbnail variants.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/jkorpela/wardrobe/internal/blob"
	"github.com/jkorpela/wardrobe/internal/config"
	"github.com/jkorpela/wardrobe/internal/imaging"
	"github.com/jkorpela/wardrobe/internal/storage"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	thumbsDir := flag.String("thumbs", "", "write local thumbnails of the main photo into this directory")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "usage: %s [flags] ITEM_ID\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(2)
	}
	itemID := flag.Arg(0)

	store, err := storage.NewStore(config.DBPath())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open store")
	}
	defer store.Close()

	ctx := context.Background()

	item, err := store.GetItem(ctx, itemID)
	if err != nil {
		log.Fatal().Err(err).Str("itemID", itemID).Msg("failed to load item")
	}

	fmt.Printf("item %s (%s)\n", item.ID, item.Name)
	fmt.Printf("  owner:    %d\n", item.OwnerID)
	fmt.Printf("  status:   %s\n", item.AnalysisStatus)
	fmt.Printf("  active:   %t\n", item.IsActive)
	fmt.Printf("  worn:     %d times\n", item.WearCount)

	if item.CategoryID != nil {
		category, err := store.GetCategory(ctx, *item.CategoryID)
		if err == nil && category != nil {
			fmt.Printf("  category: %s (%s)\n", category.Name, category.Slug)
		}
	}
	for _, pair := range [][2]string{
		{"brand", item.Brand}, {"color", item.Color}, {"size", item.Size},
		{"material", item.Material}, {"pattern", item.Pattern},
	} {
		if pair[1] != "" {
			fmt.Printf("  %-8s %s\n", pair[0]+":", pair[1])
		}
	}
	if item.Description != "" {
		fmt.Printf("  description: %s\n", item.Description)
	}

	// ThumbnailURL needs no credentials; it only rewrites the delivery URL
	blobs := blob.NewCloudinaryStore(blob.CloudinaryConfig{})

	images, err := store.ImagesForItem(ctx, item.ID)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load images")
	}
	for _, img := range images {
		fmt.Printf("  image %d (%s): %s\n", img.Position, img.Role, img.URI)
		fmt.Printf("    thumb: %s\n", blobs.ThumbnailURL(img.URI, 256, 256))
	}

	if record, err := store.AnalysisForItem(ctx, item.ID); err == nil && record != nil {
		fmt.Printf("  analysis (%.0f ms, $%.4f):\n", record.Duration.Seconds()*1000, record.EstimatedCost)
		for field, value := range record.Attributes {
			fmt.Printf("    %-12s %-20s (%.2f)\n", field+":", value, record.Confidence[field])
		}
	}

	if *thumbsDir != "" && len(images) > 0 {
		writeThumbnails(ctx, blobs, images[0].URI, *thumbsDir)
	}
}

func writeThumbnails(ctx context.Context, blobs blob.Store, uri, dir string) {
	path, err := blobs.DownloadTemp(ctx, uri)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to download main photo")
	}
	defer os.Remove(path)

	data, err := os.ReadFile(path)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to read downloaded photo")
	}

	thumbs, err := imaging.Thumbnails(data, imaging.DefaultThumbnailSizes)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to generate thumbnails")
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		log.Fatal().Err(err).Msg("failed to create thumbnail directory")
	}
	for label, thumb := range thumbs {
		out := filepath.Join(dir, label+".jpg")
		if err := os.WriteFile(out, thumb, 0o644); err != nil {
			log.Fatal().Err(err).Str("path", out).Msg("failed to write thumbnail")
		}
		fmt.Printf("wrote %s\n", out)
	}
}
