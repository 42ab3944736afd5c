package models

import "sort"

// ResultKind names the variant held by a ProviderResult.
type ResultKind string

const (
	ResultNotFound ResultKind = "not_found"
	ResultSingle   ResultKind = "single"
	ResultMultiple ResultKind = "multiple"
	ResultFailed   ResultKind = "failed"
)

// FailureKind is the adapter-local failure taxonomy.
type FailureKind string

const (
	FailureTimeout           FailureKind = "timeout"
	FailureConnection        FailureKind = "connection_failure"
	FailureAuth              FailureKind = "auth_failure"
	FailureMalformedResponse FailureKind = "malformed_response"
	FailureInternal          FailureKind = "internal"
)

// Failure describes why one source contributed nothing.
type Failure struct {
	Kind   FailureKind `json:"kind"`
	Detail string      `json:"detail,omitempty"`
}

// ProviderResult is the tagged union an adapter returns for one query.
// Exactly one variant is held; construct it with NotFound, Single, Multiple or
// Failed. Values are never mutated after construction.
type ProviderResult struct {
	kind       ResultKind
	single     PartialRecord
	candidates []PartialRecord
	total      int
	failure    Failure
}

// NotFound builds the empty result.
func NotFound() ProviderResult {
	return ProviderResult{kind: ResultNotFound}
}

// Single builds a one-match result.
func Single(record PartialRecord) ProviderResult {
	return ProviderResult{kind: ResultSingle, single: record}
}

// Multiple builds a multi-match result. total is the backend's full match
// count and is raised to len(candidates) if the adapter under-reports it.
// Zero candidates collapse to NotFound and one candidate to Single.
func Multiple(candidates []PartialRecord, total int) ProviderResult {
	switch len(candidates) {
	case 0:
		return NotFound()
	case 1:
		if total <= 1 {
			return Single(candidates[0])
		}
	}
	if total < len(candidates) {
		total = len(candidates)
	}
	owned := make([]PartialRecord, len(candidates))
	copy(owned, candidates)
	return ProviderResult{kind: ResultMultiple, candidates: owned, total: total}
}

// Failed builds a failure result.
func Failed(kind FailureKind, detail string) ProviderResult {
	return ProviderResult{kind: ResultFailed, failure: Failure{Kind: kind, Detail: detail}}
}

// Kind returns the held variant.
func (r ProviderResult) Kind() ResultKind {
	if r.kind == "" {
		return ResultNotFound
	}
	return r.kind
}

// Record returns the match of a Single result.
func (r ProviderResult) Record() (PartialRecord, bool) {
	return r.single, r.kind == ResultSingle
}

// Candidates returns the records carried by Single or Multiple results, in
// adapter order. Other variants return nil.
func (r ProviderResult) Candidates() []PartialRecord {
	switch r.kind {
	case ResultSingle:
		return []PartialRecord{r.single}
	case ResultMultiple:
		out := make([]PartialRecord, len(r.candidates))
		copy(out, r.candidates)
		return out
	default:
		return nil
	}
}

// Total returns the backend's match count (1 for Single, 0 otherwise).
func (r ProviderResult) Total() int {
	switch r.kind {
	case ResultSingle:
		return 1
	case ResultMultiple:
		return r.total
	default:
		return 0
	}
}

// Failure returns the failure of a Failed result.
func (r ProviderResult) Failure() (Failure, bool) {
	return r.failure, r.kind == ResultFailed
}

// Succeeded reports whether the adapter answered, found or not.
func (r ProviderResult) Succeeded() bool {
	return r.Kind() != ResultFailed
}

// SourceResults maps each queried source to its result. Every dispatched
// source is present, including those that failed or timed out.
type SourceResults map[string]ProviderResult

// Names returns the queried sources in sorted order.
func (r SourceResults) Names() []string {
	return r.namesWhere(func(ProviderResult) bool { return true })
}

// Succeeded returns sources that answered (found or not), sorted.
func (r SourceResults) Succeeded() []string {
	return r.namesWhere(ProviderResult.Succeeded)
}

// Failed returns sources that failed, sorted.
func (r SourceResults) Failed() []string {
	return r.namesWhere(func(pr ProviderResult) bool { return !pr.Succeeded() })
}

// Failures returns the failure of every failed source.
func (r SourceResults) Failures() map[string]Failure {
	out := make(map[string]Failure)
	for name, pr := range r {
		if f, ok := pr.Failure(); ok {
			out[name] = f
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func (r SourceResults) namesWhere(keep func(ProviderResult) bool) []string {
	names := make([]string, 0, len(r))
	for name, pr := range r {
		if keep(pr) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}
