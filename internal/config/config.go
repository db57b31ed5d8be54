// Package config loads and validates the immutable pipeline configuration.
// Validation happens once, at startup; nothing inside the batch path can
// fail on configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/lettings-radar/internal/floorplan"
	"github.com/lettings-radar/internal/listing"
	"github.com/lettings-radar/internal/match"
)

// Config is the single immutable configuration value injected into the
// matcher, cluster builder, enricher, classifier and gate. No component
// reads globals.
type Config struct {
	// Matching
	EnableCrossPlatform bool
	EnableImageHashing  bool
	MatchWeights        match.Weights
	MatchTiers          match.Tiers
	HashDistanceMax     int

	// Enrichment
	MaxConcurrentFetches int
	FetchTimeout         time.Duration

	// Floorplan policy
	RequireFloorplan    bool
	ExemptSources       []listing.Source
	ClassifierWeights   floorplan.Weights
	ClassifierThreshold float64

	// Image hash cache
	RedisAddr    string // empty disables the Redis cache
	HashCacheTTL time.Duration

	// Optional result sink
	PostgresDSN string // empty disables the Postgres export

	// Ops server
	ListenAddr string
	LogLevel   string
}

// Load reads configuration from the environment, picking up a .env file
// when one is present, and validates it.
func Load() (*Config, error) {
	_ = godotenv.Load() // absent .env is fine

	cfg := &Config{
		EnableCrossPlatform: getEnvBool("ENABLE_CROSS_PLATFORM", true),
		EnableImageHashing:  getEnvBool("ENABLE_IMAGE_HASHING", true),
		MatchWeights: match.Weights{
			ImageHash:    getEnvInt("WEIGHT_IMAGE_HASH", 40),
			FullPostcode: getEnvInt("WEIGHT_FULL_POSTCODE", 40),
			Coordinates:  getEnvInt("WEIGHT_COORDINATES", 40),
			StreetName:   getEnvInt("WEIGHT_STREET_NAME", 20),
			Outcode:      getEnvInt("WEIGHT_OUTCODE", 10),
			Price:        getEnvInt("WEIGHT_PRICE", 15),
		},
		MatchTiers: match.Tiers{
			High:           getEnvInt("TIER_HIGH", 80),
			Medium:         getEnvInt("MATCH_THRESHOLD", 55),
			Low:            getEnvInt("TIER_LOW", 40),
			HighMinSignals: getEnvInt("TIER_HIGH_MIN_SIGNALS", 3),
			MinSignals:     getEnvInt("MATCH_MIN_SIGNALS", 2),
		},
		HashDistanceMax:      getEnvInt("HASH_DISTANCE_MAX", 8),
		MaxConcurrentFetches: getEnvInt("MAX_CONCURRENT_FETCHES", 8),
		FetchTimeout:         time.Duration(getEnvInt("FETCH_TIMEOUT_SECONDS", 15)) * time.Second,
		RequireFloorplan:     getEnvBool("REQUIRE_FLOORPLAN", true),
		ExemptSources:        parseSources(getEnv("FLOORPLAN_EXEMPT_SOURCES", string(listing.SourceOpenRent))),
		ClassifierWeights: floorplan.Weights{
			Saturation:     getEnvFloat("CLASSIFIER_WEIGHT_SATURATION", 0.20),
			WhiteRatio:     getEnvFloat("CLASSIFIER_WEIGHT_WHITE_RATIO", 0.20),
			ColorDiversity: getEnvFloat("CLASSIFIER_WEIGHT_COLOR_DIVERSITY", 0.20),
			EdgeDensity:    getEnvFloat("CLASSIFIER_WEIGHT_EDGE_DENSITY", 0.20),
			Bimodality:     getEnvFloat("CLASSIFIER_WEIGHT_BIMODALITY", 0.20),
		},
		ClassifierThreshold: getEnvFloat("CLASSIFIER_THRESHOLD", floorplan.DefaultThreshold),
		RedisAddr:           getEnv("REDIS_ADDR", ""),
		HashCacheTTL:        time.Duration(getEnvInt("HASH_CACHE_TTL_HOURS", 24*14)) * time.Hour,
		PostgresDSN:         getEnv("POSTGRES_DSN", ""),
		ListenAddr:          getEnv("LISTEN_ADDR", ":8090"),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the production configuration without touching the
// environment. Useful for tests and for callers constructing overrides.
func Default() *Config {
	return &Config{
		EnableCrossPlatform:  true,
		EnableImageHashing:   true,
		MatchWeights:         match.DefaultWeights(),
		MatchTiers:           match.DefaultTiers(),
		HashDistanceMax:      8,
		MaxConcurrentFetches: 8,
		FetchTimeout:         15 * time.Second,
		RequireFloorplan:     true,
		ExemptSources:        []listing.Source{listing.SourceOpenRent},
		ClassifierWeights:    floorplan.DefaultWeights(),
		ClassifierThreshold:  floorplan.DefaultThreshold,
		HashCacheTTL:         14 * 24 * time.Hour,
		ListenAddr:           ":8090",
		LogLevel:             "info",
	}
}

// Validate is the single fatal path of the whole system: misconfiguration
// aborts before any batch is processed, never mid-run.
func (c *Config) Validate() error {
	if sum := c.ClassifierWeights.Sum(); sum < 1.0-1e-6 || sum > 1.0+1e-6 {
		return fmt.Errorf("classifier weights sum to %.6f, want 1.0", sum)
	}
	if c.ClassifierThreshold <= 0 || c.ClassifierThreshold > 1 {
		return fmt.Errorf("classifier threshold %.4f outside (0, 1]", c.ClassifierThreshold)
	}
	if c.HashDistanceMax < 0 {
		return fmt.Errorf("hash distance cutoff %d is negative", c.HashDistanceMax)
	}
	if c.MaxConcurrentFetches < 1 {
		return fmt.Errorf("max concurrent fetches %d, want at least 1", c.MaxConcurrentFetches)
	}
	if c.FetchTimeout <= 0 {
		return fmt.Errorf("fetch timeout %v, want positive", c.FetchTimeout)
	}
	for _, w := range []int{
		c.MatchWeights.ImageHash, c.MatchWeights.FullPostcode, c.MatchWeights.Coordinates,
		c.MatchWeights.StreetName, c.MatchWeights.Outcode, c.MatchWeights.Price,
	} {
		if w < 0 {
			return fmt.Errorf("negative match signal weight %d", w)
		}
	}
	if c.MatchTiers.Medium <= 0 || c.MatchTiers.MinSignals < 1 {
		return fmt.Errorf("match threshold %d / min signals %d invalid",
			c.MatchTiers.Medium, c.MatchTiers.MinSignals)
	}
	for _, s := range c.ExemptSources {
		if !s.Valid() {
			return fmt.Errorf("unknown exempt source %q", s)
		}
	}
	return nil
}

func parseSources(s string) []listing.Source {
	var out []listing.Source
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, listing.Source(part))
		}
	}
	return out
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		switch strings.ToLower(value) {
		case "true", "1", "yes", "on":
			return true
		case "false", "0", "no", "off":
			return false
		}
	}
	return defaultValue
}
