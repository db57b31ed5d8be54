package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/lettings-radar/internal/config"
	"github.com/lettings-radar/internal/enrich"
	"github.com/lettings-radar/internal/export"
	"github.com/lettings-radar/internal/imagehash"
	"github.com/lettings-radar/internal/listing"
	"github.com/lettings-radar/internal/pipeline"
	"github.com/lettings-radar/internal/web"
)

func newRunCmd() *cobra.Command {
	var listingsPath, detailsPath string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Resolve one listing batch and print the result as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}
			res, err := resolveBatch(cfg, log, listingsPath, detailsPath)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		},
	}

	cmd.Flags().StringVar(&listingsPath, "listings", "", "JSON file holding the raw listing batch (required)")
	cmd.Flags().StringVar(&detailsPath, "details", "", "JSON file mapping listing URLs to detail payloads")
	_ = cmd.MarkFlagRequired("listings")
	return cmd
}

func newServeCmd() *cobra.Command {
	var listingsPath, detailsPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Resolve one batch, then serve health, metrics and results over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}
			res, err := resolveBatch(cfg, log, listingsPath, detailsPath)
			if err != nil {
				return err
			}

			srv := web.NewServer(cfg.ListenAddr, log)
			srv.SetResult(res)
			return srv.Run()
		},
	}

	cmd.Flags().StringVar(&listingsPath, "listings", "", "JSON file holding the raw listing batch (required)")
	cmd.Flags().StringVar(&detailsPath, "details", "", "JSON file mapping listing URLs to detail payloads")
	_ = cmd.MarkFlagRequired("listings")
	return cmd
}

func resolveBatch(cfg *config.Config, log zerolog.Logger, listingsPath, detailsPath string) (pipeline.Result, error) {
	batch, err := readListings(listingsPath)
	if err != nil {
		return pipeline.Result{}, err
	}

	registry := enrich.Registry{}
	if detailsPath != "" {
		registry, err = fileRegistry(detailsPath)
		if err != nil {
			return pipeline.Result{}, err
		}
	}

	loader := imagehash.NewHTTPLoader(nil)
	var hasher imagehash.Hasher = imagehash.NewMemoryCache(imagehash.NewPHasher(loader))
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		hasher = imagehash.NewRedisCache(rdb, hasher, cfg.HashCacheTTL, log)
	}

	p, err := pipeline.New(cfg, log, registry, hasher, loader)
	if err != nil {
		return pipeline.Result{}, err
	}

	// SIGINT aborts issuing new work; in-flight fetches drain on their own.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	res := p.Resolve(ctx, batch)

	if cfg.PostgresDSN != "" {
		if err := saveRun(ctx, cfg.PostgresDSN, res); err != nil {
			log.Error().Err(err).Msg("failed to persist run, results still printed")
		}
	}
	return res, nil
}

func saveRun(ctx context.Context, dsn string, res pipeline.Result) error {
	store, err := export.Open(dsn)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.EnsureSchema(ctx); err != nil {
		return err
	}
	return store.SaveRun(ctx, res)
}

func readListings(path string) ([]listing.RawListing, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading listings file: %w", err)
	}
	var batch []listing.RawListing
	if err := json.Unmarshal(data, &batch); err != nil {
		return nil, fmt.Errorf("parsing listings file %s: %w", path, err)
	}
	return batch, nil
}

// fileRegistry backs every source with one URL-keyed payload file. The real
// per-portal fetchers live with the scraping service; this keeps offline
// runs and replays possible.
func fileRegistry(path string) (enrich.Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading details file: %w", err)
	}
	var byURL map[string]listing.DetailPageData
	if err := json.Unmarshal(data, &byURL); err != nil {
		return nil, fmt.Errorf("parsing details file %s: %w", path, err)
	}

	fetch := enrich.FetcherFunc(func(_ context.Context, url string) (listing.DetailPageData, error) {
		return byURL[url], nil
	})
	registry := enrich.Registry{}
	for _, s := range listing.SourcePriority {
		registry[s] = fetch
	}
	return registry, nil
}
