// Package contactcenter is the contact-center roster source. The roster API
// is rate limited per client, so calls are paced locally before they are
// sent.
package contactcenter

import (
	"context"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/time/rate"

	"idsearch/internal/lookup/models"
	"idsearch/internal/lookup/providers"
	"idsearch/internal/lookup/providers/httpjson"
	"idsearch/pkg/email"
)

const (
	apiVersion           = "2"
	searchPath           = "/api/v2/agents/search"
	healthPath           = "/api/v2/status"
	defaultMaxCandidates = 25
)

// Adapter searches the contact-center roster.
type Adapter struct {
	client        *httpjson.Client
	limiter       *rate.Limiter
	maxCandidates int
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithRateLimit paces roster calls to rps requests per second with the given
// burst. A non-positive rps disables pacing.
func WithRateLimit(rps float64, burst int) Option {
	return func(a *Adapter) {
		if rps <= 0 {
			a.limiter = rate.NewLimiter(rate.Inf, 0)
			return
		}
		if burst <= 0 {
			burst = 1
		}
		a.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithMaxCandidates bounds the candidate list of a Multiple result.
func WithMaxCandidates(n int) Option {
	return func(a *Adapter) {
		if n > 0 {
			a.maxCandidates = n
		}
	}
}

// New builds the adapter on top of an HTTP client for the roster API.
func New(client *httpjson.Client, opts ...Option) *Adapter {
	a := &Adapter{
		client:        client,
		limiter:       rate.NewLimiter(rate.Limit(10), 5),
		maxCandidates: defaultMaxCandidates,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}
	return a
}

func (a *Adapter) Name() string { return models.SourceContactCenter }

func (a *Adapter) Capabilities() providers.Capabilities {
	return providers.Capabilities{
		Protocol:      providers.ProtocolHTTP,
		Version:       apiVersion,
		MatchModes:    []providers.MatchMode{providers.MatchExactEmail, providers.MatchFuzzyName, providers.MatchExtension},
		MaxCandidates: a.maxCandidates,
	}
}

// Search queries the roster with each term variation until one matches.
func (a *Adapter) Search(ctx context.Context, q models.Query) models.ProviderResult {
	for _, term := range q.Variations() {
		agents, total, err := a.lookup(ctx, term)
		if err != nil {
			return providers.FailedFromError(err)
		}
		if len(agents) > 0 {
			return toResult(agents, total, a.maxCandidates)
		}
	}
	return models.NotFound()
}

// Health probes the roster API status endpoint.
func (a *Adapter) Health(ctx context.Context) error {
	return a.client.Health(ctx, healthPath)
}

func (a *Adapter) lookup(ctx context.Context, term string) ([]agent, int, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		// Wait fails early when the deadline would pass before a token frees up
		return nil, 0, providers.NewProviderError(models.FailureTimeout, models.SourceContactCenter, "rate limit wait", err)
	}
	query := url.Values{
		"q":     {term},
		"limit": {strconv.Itoa(a.maxCandidates)},
	}
	var resp searchResponse
	if err := a.client.Get(ctx, searchPath, query, &resp); err != nil {
		return nil, 0, err
	}
	return resp.Agents, resp.Count, nil
}

func toResult(agents []agent, total, limit int) models.ProviderResult {
	if total < len(agents) {
		total = len(agents)
	}
	if len(agents) > limit {
		agents = agents[:limit]
	}
	records := make([]models.PartialRecord, 0, len(agents))
	for _, ag := range agents {
		if strings.TrimSpace(ag.AgentID) == "" {
			continue
		}
		records = append(records, ag.toRecord())
	}
	return models.Multiple(records, total)
}

type searchResponse struct {
	Count  int     `json:"count"`
	Agents []agent `json:"agents"`
}

type agent struct {
	AgentID     string         `json:"agentId"`
	Email       string         `json:"email"`
	FirstName   string         `json:"firstName"`
	LastName    string         `json:"lastName"`
	Team        string         `json:"team"`
	Role        string         `json:"role"`
	State       string         `json:"state"`
	Extension   string         `json:"extension"`
	DirectDial  string         `json:"directDial"`
	Mobile      string         `json:"mobile"`
	Site        string         `json:"site"`
	AddressBook []addressEntry `json:"addressBook"`
}

type addressEntry struct {
	Type   string `json:"type"`
	Number string `json:"number"`
}

func (ag agent) toRecord() models.PartialRecord {
	attrs := make(map[string]string, 6)
	set := func(key, value string) {
		if v := strings.TrimSpace(value); v != "" {
			attrs[key] = v
		}
	}
	set(models.AttrExtension, ag.Extension)
	set(models.AttrDirectDial, ag.DirectDial)
	set(models.AttrMobile, ag.Mobile)
	set(models.AttrLocation, ag.Site)
	set("team", ag.Team)
	set("agent_state", ag.State)

	var book []models.AddressBookEntry
	for _, e := range ag.AddressBook {
		if strings.TrimSpace(e.Number) == "" {
			continue
		}
		book = append(book, models.AddressBookEntry{Type: strings.TrimSpace(e.Type), Value: strings.TrimSpace(e.Number)})
	}

	return models.PartialRecord{
		Source:      models.SourceContactCenter,
		SourceID:    strings.TrimSpace(ag.AgentID),
		Email:       email.Canonical(ag.Email),
		DisplayName: strings.TrimSpace(strings.TrimSpace(ag.FirstName) + " " + strings.TrimSpace(ag.LastName)),
		Department:  strings.TrimSpace(ag.Team),
		Title:       strings.TrimSpace(ag.Role),
		Attributes:  attrs,
		AddressBook: book,
	}
}
