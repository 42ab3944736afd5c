// Package audit emits one structured event per completed search.
package audit

import "time"

// SearchEvent summarises a completed search. It is transport-agnostic so the
// log and Kafka publishers can share it.
type SearchEvent struct {
	SearchID         string    `json:"search_id"`
	Timestamp        time.Time `json:"timestamp"`
	Query            string    `json:"query"`
	ResolvedIdentity string    `json:"resolved_identity,omitempty"`
	Outcome          string    `json:"outcome"`
	CacheHit         bool      `json:"cache_hit"`
	SourcesQueried   []string  `json:"sources_queried"`
	SourcesSucceeded []string  `json:"sources_succeeded"`
	SourcesFailed    []string  `json:"sources_failed"`
	EnrichmentError  string    `json:"enrichment_error,omitempty"`
	ElapsedMs        int64     `json:"elapsed_ms"`
	RequestID        string    `json:"request_id,omitempty"`
	Client           string    `json:"client,omitempty"`
}

// LogAttrs renders the event as slog key/value pairs.
func (e SearchEvent) LogAttrs() []any {
	attrs := []any{
		"search_id", e.SearchID,
		"query", e.Query,
		"outcome", e.Outcome,
		"cache_hit", e.CacheHit,
		"sources_queried", e.SourcesQueried,
		"sources_succeeded", e.SourcesSucceeded,
		"sources_failed", e.SourcesFailed,
		"elapsed_ms", e.ElapsedMs,
	}
	if e.ResolvedIdentity != "" {
		attrs = append(attrs, "resolved_identity", e.ResolvedIdentity)
	}
	if e.EnrichmentError != "" {
		attrs = append(attrs, "enrichment_error", e.EnrichmentError)
	}
	if e.RequestID != "" {
		attrs = append(attrs, "request_id", e.RequestID)
	}
	if e.Client != "" {
		attrs = append(attrs, "client", e.Client)
	}
	return attrs
}
