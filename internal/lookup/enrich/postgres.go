package enrich

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"idsearch/internal/lookup/models"
	"idsearch/pkg/email"
)

const selectEnrichment = `
SELECT photo_url, job_code, attributes
FROM person_enrichment
WHERE email = $1`

// PostgresEnricher reads the enrichment table maintained by the external
// refresh jobs.
type PostgresEnricher struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed enricher. The pool is owned by
// the caller.
func NewPostgres(db *sql.DB) *PostgresEnricher {
	return &PostgresEnricher{db: db}
}

func (e *PostgresEnricher) Enrich(ctx context.Context, record models.UnifiedRecord) (*models.Enrichment, error) {
	key := email.Canonical(record.Email)
	if key == "" {
		return nil, nil
	}

	var (
		photo, jobCode sql.NullString
		attrs          []byte
	)
	err := e.db.QueryRowContext(ctx, selectEnrichment, key).Scan(&photo, &jobCode, &attrs)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find enrichment: %w", err)
	}
	return toEnrichment(photo, jobCode, attrs)
}

func toEnrichment(photo, jobCode sql.NullString, rawAttrs []byte) (*models.Enrichment, error) {
	out := &models.Enrichment{
		PhotoURL: strings.TrimSpace(photo.String),
		JobCode:  strings.TrimSpace(jobCode.String),
	}
	if len(rawAttrs) > 0 && string(rawAttrs) != "null" {
		if err := json.Unmarshal(rawAttrs, &out.Attributes); err != nil {
			return nil, fmt.Errorf("decode enrichment attributes: %w", err)
		}
	}
	if out.PhotoURL == "" && out.JobCode == "" && len(out.Attributes) == 0 {
		return nil, nil
	}
	return out, nil
}

// Health pings the database.
func (e *PostgresEnricher) Health(ctx context.Context) error {
	return e.db.PingContext(ctx)
}
