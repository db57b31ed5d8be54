package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/lettings-radar/internal/config"
	"github.com/lettings-radar/internal/metrics"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "resolver",
		Short: "Lettings Radar property resolution pipeline",
		Long:  `Aggregates rental listings scraped from four portals, links records that refer to the same property, enriches them with detail-page data and gates them on floorplan presence.`,
	}

	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newClassifyCmd())
	rootCmd.AddCommand(newNormalizeCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig loads and validates configuration, then builds the root logger.
// Misconfiguration is the only fatal condition and it surfaces here, before
// any batch is touched.
func loadConfig() (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, zerolog.Nop(), err
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().Timestamp().Logger()

	metrics.Init()
	return cfg, log, nil
}
