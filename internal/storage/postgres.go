package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Adit-Jain-srm/AI-Agent-Weekly-Discovery/internal/domain"
)

// PostgresStore persists classified tool records and run summaries. It is
// an optional sink: the pipeline runs fine without one.
type PostgresStore struct {
	db *pgxpool.Pool
}

func NewPostgresStore(connStr string) (*PostgresStore, error) {
	db, err := pgxpool.New(context.Background(), connStr)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

func (s *PostgresStore) Close() {
	s.db.Close()
}

// SaveTools upserts the run's classified tools within a single transaction.
func (s *PostgresStore) SaveTools(ctx context.Context, tools []domain.ToolInfo) error {
	if len(tools) == 0 {
		return nil
	}
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, t := range tools {
		features, _ := json.Marshal(t.Features)
		tags, _ := json.Marshal(t.Tags)
		extra, _ := json.Marshal(t.Extra)
		batch.Queue(
			`INSERT INTO discovered_tools
			   (source_url, title, website, summary, target_audience, features, pricing, tags, publish_date, label, extra, discovered_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW())
			 ON CONFLICT (source_url) DO UPDATE SET
			   title = EXCLUDED.title, website = EXCLUDED.website, summary = EXCLUDED.summary,
			   target_audience = EXCLUDED.target_audience, features = EXCLUDED.features,
			   pricing = EXCLUDED.pricing, tags = EXCLUDED.tags, publish_date = EXCLUDED.publish_date,
			   label = EXCLUDED.label, extra = EXCLUDED.extra, discovered_at = NOW()`,
			t.SourceURL, t.Title, t.Website, t.Summary, t.TargetAudience,
			features, t.Pricing, tags, t.PublishDate, t.Label, extra,
		)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// SaveSummary records one run's bookkeeping row.
func (s *PostgresStore) SaveSummary(ctx context.Context, sum domain.RunSummary) error {
	payload, err := json.Marshal(sum)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(ctx,
		`INSERT INTO run_summaries (started_at, finished_at, summary) VALUES ($1, $2, $3)`,
		sum.StartedAt, sum.FinishedAt, payload)
	return err
}

// RecentTools returns tools discovered within the given window, newest
// first. Serves the API's last-run inspection endpoint.
func (s *PostgresStore) RecentTools(ctx context.Context, since time.Time) ([]domain.ToolInfo, error) {
	rows, err := s.db.Query(ctx,
		`SELECT source_url, title, website, summary, target_audience, features, pricing, tags, publish_date, label
		   FROM discovered_tools
		  WHERE discovered_at >= $1
		  ORDER BY discovered_at DESC`, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tools []domain.ToolInfo
	for rows.Next() {
		var t domain.ToolInfo
		var features, tags []byte
		if err := rows.Scan(&t.SourceURL, &t.Title, &t.Website, &t.Summary,
			&t.TargetAudience, &features, &t.Pricing, &tags, &t.PublishDate, &t.Label); err != nil {
			return nil, err
		}
		_ = json.Unmarshal(features, &t.Features)
		_ = json.Unmarshal(tags, &t.Tags)
		tools = append(tools, t)
	}
	return tools, rows.Err()
}
