// Package export persists run results and the drop audit trail to Postgres,
// the hand-off point for downstream analysis and presentation.
package export

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/lettings-radar/internal/pipeline"
)

// Store is the Postgres sink.
type Store struct {
	db *sql.DB
}

// Open connects to Postgres and verifies the connection.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)
	return &Store{db: db}, nil
}

// Close closes the underlying connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// EnsureSchema creates the result tables when they do not exist yet.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS resolver_run (
			run_id        text PRIMARY KEY,
			started_at    timestamptz NOT NULL,
			duration_ms   bigint NOT NULL,
			input         int NOT NULL,
			clusters      int NOT NULL,
			matches       int NOT NULL,
			gate_dropped  int NOT NULL,
			output        int NOT NULL
		);
		CREATE TABLE IF NOT EXISTS merged_property (
			run_id        text NOT NULL REFERENCES resolver_run(run_id),
			canonical_key text NOT NULL,
			sources       jsonb NOT NULL,
			source_urls   jsonb NOT NULL,
			price_min     int NOT NULL,
			price_max     int NOT NULL,
			floorplan_url text,
			images        jsonb,
			description   text,
			features      jsonb,
			PRIMARY KEY (run_id, canonical_key)
		);
		CREATE TABLE IF NOT EXISTS gate_drop (
			run_id        text NOT NULL REFERENCES resolver_run(run_id),
			canonical_key text NOT NULL,
			reason        text NOT NULL,
			sources       jsonb NOT NULL,
			PRIMARY KEY (run_id, canonical_key)
		);
	`)
	if err != nil {
		return fmt.Errorf("failed to create result tables: %w", err)
	}
	return nil
}

// SaveRun writes one run's stats, properties and drop audit rows in a single
// transaction.
func (s *Store) SaveRun(ctx context.Context, res pipeline.Result) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	st := res.Stats
	_, err = tx.ExecContext(ctx, `
		INSERT INTO resolver_run (run_id, started_at, duration_ms, input, clusters, matches, gate_dropped, output)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, st.RunID, st.StartedAt, st.Duration.Milliseconds(), st.Input, st.Clusters, st.Matches, st.GateDropped, st.Output)
	if err != nil {
		return fmt.Errorf("failed to insert run %s: %w", st.RunID, err)
	}

	for _, p := range res.Properties {
		sources, _ := json.Marshal(p.Sources)
		urls, _ := json.Marshal(p.SourceURLs)
		images, _ := json.Marshal(p.Images)
		features, _ := json.Marshal(p.Features)

		var floorplanURL sql.NullString
		if p.Floorplan != nil {
			floorplanURL = sql.NullString{String: p.Floorplan.URL, Valid: true}
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO merged_property
				(run_id, canonical_key, sources, source_urls, price_min, price_max, floorplan_url, images, description, features)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		`, st.RunID, p.Canonical.Key(), sources, urls, p.PriceMin, p.PriceMax,
			floorplanURL, images, p.Description(), features)
		if err != nil {
			return fmt.Errorf("failed to insert property %s: %w", p.Canonical.Key(), err)
		}
	}

	for _, d := range res.Drops {
		sources, _ := json.Marshal(d.Property.Sources)
		_, err = tx.ExecContext(ctx, `
			INSERT INTO gate_drop (run_id, canonical_key, reason, sources)
			VALUES ($1, $2, $3, $4)
		`, st.RunID, d.Property.Canonical.Key(), d.Reason, sources)
		if err != nil {
			return fmt.Errorf("failed to insert drop %s: %w", d.Property.Canonical.Key(), err)
		}
	}

	return tx.Commit()
}
