// Command wardrobe-stats prints aggregate statistics over a user's active
// items.
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

	owner := flag.Int64("owner", 1, "owner user id")
	flag.Parse()

	store, err := storage.NewStore(config.DBPath())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open store")
	}
	defer store.Close()

	stats, err := store.Stats(context.Background(), *owner)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to compute stats")
	}

	fmt.Printf("items:     %d\n", stats.TotalItems)
	fmt.Printf("wear uses: %d\n", stats.TotalWearUses)

	fmt.Println("by category:")
	for name, count := range stats.ByCategory {
		fmt.Printf("  %-20s %d\n", name, count)
	}
	fmt.Println("by analysis status:")
	for status, count := range stats.ByStatus {
		fmt.Printf("  %-20s %d\n", status, count)
	}
}
