// Package directory is the corporate directory source. It speaks the
// directory's JSON people API and translates directory attribute names into
// the normalized attribute set.
package directory

import (
	"context"
	"net/url"
	"strconv"
	"strings"

	"idsearch/internal/lookup/models"
	"idsearch/internal/lookup/providers"
	"idsearch/internal/lookup/providers/httpjson"
	"idsearch/pkg/email"
)

const (
	apiVersion           = "v1"
	peoplePath           = "/v1/people"
	healthPath           = "/v1/health"
	defaultMaxCandidates = 25
)

// Adapter searches the corporate directory.
type Adapter struct {
	client        *httpjson.Client
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

// New builds the adapter on top of an HTTP client for the directory API.
func New(client *httpjson.Client, opts ...Option) *Adapter {
	a := &Adapter{
		client:        client,
		maxCandidates: defaultMaxCandidates,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}
	return a
}

func (a *Adapter) Name() string { return models.SourceDirectory }

func (a *Adapter) Capabilities() providers.Capabilities {
	return providers.Capabilities{
		Protocol:      providers.ProtocolHTTP,
		Version:       apiVersion,
		MatchModes:    []providers.MatchMode{providers.MatchExactEmail, providers.MatchLocalPart, providers.MatchNamePrefix},
		MaxCandidates: a.maxCandidates,
	}
}

// Search tries the variations in order of precision and returns the first
// that matches anything. Email terms probe the mail attribute and then the
// account name; other terms probe the account name and then a display name
// prefix.
func (a *Adapter) Search(ctx context.Context, q models.Query) models.ProviderResult {
	for _, probe := range a.probes(q) {
		people, total, err := a.lookup(ctx, probe)
		if err != nil {
			return providers.FailedFromError(err)
		}
		if len(people) > 0 {
			return toResult(people, total, a.maxCandidates)
		}
	}
	return models.NotFound()
}

// Health probes the directory API.
func (a *Adapter) Health(ctx context.Context) error {
	return a.client.Health(ctx, healthPath)
}

func (a *Adapter) probes(q models.Query) []url.Values {
	var out []url.Values
	if q.LooksLikeEmail() {
		out = append(out, url.Values{"mail": {q.Term()}})
		if local := email.LocalPart(q.Term()); local != "" {
			out = append(out, url.Values{"account": {local}})
		}
		return out
	}
	for _, v := range q.Variations() {
		out = append(out, url.Values{"account": {v}})
	}
	return append(out, url.Values{"name_prefix": {q.Term()}})
}

func (a *Adapter) lookup(ctx context.Context, probe url.Values) ([]person, int, error) {
	probe.Set("limit", strconv.Itoa(a.maxCandidates))
	var resp peopleResponse
	if err := a.client.Get(ctx, peoplePath, probe, &resp); err != nil {
		return nil, 0, err
	}
	return resp.People, resp.Total, nil
}

func toResult(people []person, total, limit int) models.ProviderResult {
	if len(people) > limit {
		people = people[:limit]
	}
	records := make([]models.PartialRecord, 0, len(people))
	for _, p := range people {
		if strings.TrimSpace(p.ID) == "" {
			continue
		}
		records = append(records, p.toRecord())
	}
	if total < len(people) {
		total = len(people)
	}
	return models.Multiple(records, total)
}
