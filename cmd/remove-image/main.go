// Command remove-image deletes one photo from an item: the blob is destroyed
// best-effort and the image row is removed.
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
	"github.com/jkorpela/wardrobe/internal/storage"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	item := flag.String("item", "", "item id (required)")
	position := flag.Int("position", 0, "photo position to remove (required)")
	flag.Parse()

	if *item == "" || *position == 0 {
		fmt.Fprintf(os.Stderr, "usage: %s -item ITEM_ID -position N\n", os.Args[0])
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

	images, err := store.ImagesForItem(ctx, *item)
	if err != nil {
		log.Fatal().Err(err).Str("itemID", *item).Msg("failed to load images")
	}

	var target *storage.ItemImage
	for i := range images {
		if images[i].Position == *position {
			target = &images[i]
			break
		}
	}
	if target == nil {
		log.Fatal().Str("itemID", *item).Int("position", *position).Msg("no photo at that position")
	}

	blobs := blob.NewCloudinaryStore(blob.CloudinaryConfig{
		CloudName: cfg.CloudinaryCloudName,
		APIKey:    cfg.CloudinaryAPIKey,
		APISecret: cfg.CloudinaryAPISecret,
	})

	blobs.Delete(ctx, target.URI)
	if err := store.DeleteImage(ctx, target.ID); err != nil {
		log.Fatal().Err(err).Str("imageID", target.ID).Msg("failed to delete image row")
	}

	fmt.Printf("removed image %d of item %s\n", *position, *item)
}
