// Package enrich attaches best-effort supplementary data (photo, job code,
// warehouse attributes) to a unified record.
package enrich

//go:generate mockgen -source=enrich.go -destination=mocks/mocks.go -package=mocks Enricher

import (
	"context"

	"idsearch/internal/lookup/models"
)

// Enricher looks up supplementary data for a resolved person. A nil result
// with a nil error means there is nothing to add.
type Enricher interface {
	Enrich(ctx context.Context, record models.UnifiedRecord) (*models.Enrichment, error)
}

// Nop never adds anything.
type Nop struct{}

func (Nop) Enrich(context.Context, models.UnifiedRecord) (*models.Enrichment, error) {
	return nil, nil
}
