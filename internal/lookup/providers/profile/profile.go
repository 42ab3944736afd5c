// Package profile is the extended profile store source, read directly from
// PostgreSQL through a pgx pool.
package profile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"idsearch/internal/lookup/models"
	"idsearch/internal/lookup/providers"
	"idsearch/pkg/email"
)

const (
	schemaVersion        = "1"
	defaultMaxCandidates = 25
)

const selectColumns = `
SELECT profile_id, email, display_name, department, title, status, hire_date, mobile, attributes,
       count(*) OVER () AS total
FROM person_profiles
`

var (
	byEmail     = selectColumns + `WHERE lower(email) = $1 ORDER BY display_name, profile_id LIMIT $2`
	byLocalPart = selectColumns + `WHERE lower(split_part(email, '@', 1)) = $1 ORDER BY display_name, profile_id LIMIT $2`
	byName      = selectColumns + `WHERE lower(display_name) LIKE $1 ESCAPE '\' ORDER BY display_name, profile_id LIMIT $2`
)

// Querier is the subset of *pgxpool.Pool the adapter uses.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Ping(ctx context.Context) error
}

// Adapter searches the extended profile store.
type Adapter struct {
	db            Querier
	maxCandidates int
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithMaxCandidates bounds the candidate list of a Multiple result.
func WithMaxCandidates(n int) Option {
	return func(a *Adapter) {
		if n > 0 {
			a.maxCandidates = n
		}
	}
}

// New builds the adapter. The pool is owned by the caller.
func New(db Querier, opts ...Option) *Adapter {
	a := &Adapter{db: db, maxCandidates: defaultMaxCandidates}
	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}
	return a
}

func (a *Adapter) Name() string { return models.SourceProfile }

func (a *Adapter) Capabilities() providers.Capabilities {
	return providers.Capabilities{
		Protocol:      providers.ProtocolPostgres,
		Version:       schemaVersion,
		MatchModes:    []providers.MatchMode{providers.MatchExactEmail, providers.MatchLocalPart, providers.MatchNamePrefix},
		MaxCandidates: a.maxCandidates,
	}
}

type probe struct {
	sql string
	arg string
}

// Search runs the probes in order and returns the first that matches.
func (a *Adapter) Search(ctx context.Context, q models.Query) models.ProviderResult {
	for _, p := range probes(q) {
		records, total, err := a.query(ctx, p)
		if err != nil {
			return providers.FailedFromError(err)
		}
		if len(records) > 0 {
			return models.Multiple(records, total)
		}
	}
	return models.NotFound()
}

// Health pings the pool.
func (a *Adapter) Health(ctx context.Context) error {
	return a.db.Ping(ctx)
}

func probes(q models.Query) []probe {
	if q.LooksLikeEmail() {
		return []probe{
			{sql: byEmail, arg: q.Term()},
			{sql: byLocalPart, arg: email.LocalPart(q.Term())},
		}
	}
	return []probe{
		{sql: byLocalPart, arg: q.Term()},
		{sql: byName, arg: escapeLike(q.Term()) + "%"},
	}
}

func (a *Adapter) query(ctx context.Context, p probe) ([]models.PartialRecord, int, error) {
	rows, err := a.db.Query(ctx, p.sql, p.arg, a.maxCandidates)
	if err != nil {
		return nil, 0, classify(err)
	}
	defer rows.Close()

	var (
		records []models.PartialRecord
		total   int
	)
	for rows.Next() {
		var r row
		if err := rows.Scan(&r.ProfileID, &r.Email, &r.DisplayName, &r.Department, &r.Title, &r.Status,
			&r.HireDate, &r.Mobile, &r.Attributes, &r.Total); err != nil {
			return nil, 0, providers.NewProviderError(models.FailureMalformedResponse, models.SourceProfile, "scan profile row", err)
		}
		rec, err := r.toRecord()
		if err != nil {
			return nil, 0, err
		}
		records = append(records, rec)
		total = int(r.Total)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, classify(err)
	}
	return records, total, nil
}

type row struct {
	ProfileID   string
	Email       *string
	DisplayName string
	Department  string
	Title       string
	Status      string
	HireDate    *time.Time
	Mobile      *string
	Attributes  []byte
	Total       int64
}

func (r row) toRecord() (models.PartialRecord, error) {
	attrs := make(map[string]string)
	if len(r.Attributes) > 0 {
		var raw map[string]any
		if err := json.Unmarshal(r.Attributes, &raw); err != nil {
			return models.PartialRecord{}, providers.NewProviderError(models.FailureMalformedResponse, models.SourceProfile,
				fmt.Sprintf("decode attributes of %s", r.ProfileID), err)
		}
		keys := make([]string, 0, len(raw))
		for k := range raw {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if v := stringify(raw[k]); v != "" {
				attrs[strings.ToLower(strings.TrimSpace(k))] = v
			}
		}
	}
	if r.HireDate != nil && !r.HireDate.IsZero() {
		attrs[models.AttrHireDate] = r.HireDate.Format(time.DateOnly)
	}
	if r.Mobile != nil && strings.TrimSpace(*r.Mobile) != "" {
		attrs[models.AttrMobile] = strings.TrimSpace(*r.Mobile)
	}

	var mail string
	if r.Email != nil {
		mail = email.Canonical(*r.Email)
	}
	return models.PartialRecord{
		Source:      models.SourceProfile,
		SourceID:    r.ProfileID,
		Email:       mail,
		DisplayName: strings.TrimSpace(r.DisplayName),
		Department:  strings.TrimSpace(r.Department),
		Title:       strings.TrimSpace(r.Title),
		Status:      strings.ToLower(strings.TrimSpace(r.Status)),
		Attributes:  attrs,
	}, nil
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case float64, bool:
		return fmt.Sprint(t)
	default:
		b, _ := json.Marshal(t)
		return string(b)
	}
}

// classify maps driver errors onto the failure taxonomy.
func classify(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		kind := models.FailureInternal
		switch {
		case strings.HasPrefix(pgErr.Code, "28"):
			kind = models.FailureAuth
		case strings.HasPrefix(pgErr.Code, "08"), strings.HasPrefix(pgErr.Code, "53"), strings.HasPrefix(pgErr.Code, "57P"):
			kind = models.FailureConnection
		case pgErr.Code == "57014":
			kind = models.FailureTimeout
		}
		return providers.NewProviderError(kind, models.SourceProfile, "query failed", err)
	}

	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		kind := providers.KindOf(connErr.Unwrap())
		if kind != models.FailureTimeout && kind != models.FailureAuth {
			kind = models.FailureConnection
		}
		return providers.NewProviderError(kind, models.SourceProfile, "connect", err)
	}

	return providers.NewProviderError(providers.KindOf(err), models.SourceProfile, "query failed", err)
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
