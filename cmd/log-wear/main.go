// Command log-wear records one wear of an item, or retires it from the
// active wardrobe with -retire.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/jkorpela/wardrobe/internal/config"
	"github.com/jkorpela/wardrobe/internal/storage"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	retire := flag.Bool("retire", false, "deactivate the item instead of logging a wear")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "usage: %s [-retire] ITEM_ID\n", os.Args[0])
		os.Exit(2)
	}
	itemID := flag.Arg(0)

	store, err := storage.NewStore(config.DBPath())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open store")
	}
	defer store.Close()

	ctx := context.Background()

	if *retire {
		if err := store.DeactivateItem(ctx, itemID); err != nil {
			log.Fatal().Err(err).Str("itemID", itemID).Msg("failed to retire item")
		}
		fmt.Printf("item %s retired\n", itemID)
		return
	}

	if err := store.IncrementWearCount(ctx, itemID); err != nil {
		log.Fatal().Err(err).Str("itemID", itemID).Msg("failed to log wear")
	}
	item, err := store.GetItem(ctx, itemID)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to reload item")
	}
	fmt.Printf("item %s worn %d times\n", item.ID, item.WearCount)
}
