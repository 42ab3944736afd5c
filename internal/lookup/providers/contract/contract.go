package contract

import (
	"context"
	"testing"
	"time"

	"idsearch/internal/lookup/models"
	"idsearch/internal/lookup/providers"
	"idsearch/pkg/email"
)

// ContractTest defines a test case for adapter contract validation
type ContractTest struct {
	Name         string
	Adapter      providers.Adapter
	Term         string
	ExpectedKind models.ResultKind
	ValidateFunc func(result models.ProviderResult) error
}

// ContractSuite is a collection of contract tests for one adapter
type ContractSuite struct {
	Source string
	Tests  []ContractTest
}

// Run executes all contract tests in the suite
func (s *ContractSuite) Run(t *testing.T) {
	for _, test := range s.Tests {
		t.Run(test.Name, func(t *testing.T) {
			ctx := context.Background()

			result := test.Adapter.Search(ctx, models.MustQuery(test.Term))

			if result.Kind() != test.ExpectedKind {
				f, _ := result.Failure()
				t.Fatalf("expected %s, got %s (failure: %+v)", test.ExpectedKind, result.Kind(), f)
			}

			maxCandidates := test.Adapter.Capabilities().MaxCandidates
			candidates := result.Candidates()
			if maxCandidates > 0 && len(candidates) > maxCandidates {
				t.Errorf("candidate list of %d exceeds declared bound %d", len(candidates), maxCandidates)
			}
			if result.Total() < len(candidates) {
				t.Errorf("total %d is smaller than candidate count %d", result.Total(), len(candidates))
			}

			for _, c := range candidates {
				// Every record must be attributed to this adapter
				if c.Source != s.Source {
					t.Errorf("expected source %s, got %s", s.Source, c.Source)
				}
				if c.SourceID == "" {
					t.Error("source id not set")
				}
				// Correlation keys must already be canonical at the boundary
				if c.Email != email.Canonical(c.Email) {
					t.Errorf("email %q is not canonical", c.Email)
				}
			}

			if test.ValidateFunc != nil {
				if err := test.ValidateFunc(result); err != nil {
					t.Errorf("custom validation failed: %v", err)
				}
			}
		})
	}
}

// CapabilityTest validates that adapter capabilities are correctly declared
type CapabilityTest struct {
	Adapter providers.Adapter
}

// Run executes a capability test
func (ct *CapabilityTest) Run(t *testing.T) {
	caps := ct.Adapter.Capabilities()

	if ct.Adapter.Name() == "" {
		t.Error("name not set")
	}
	if caps.Protocol == "" {
		t.Error("protocol not set")
	}
	if caps.Version == "" {
		t.Error("version not set")
	}
	if len(caps.MatchModes) == 0 {
		t.Error("no match modes declared")
	}
	if caps.MaxCandidates <= 0 {
		t.Error("candidate bound not declared")
	}
}

// ErrorContractTest validates that adapter failures follow the taxonomy
type ErrorContractTest struct {
	Name         string
	Adapter      providers.Adapter
	Term         string
	ExpectedKind models.FailureKind
}

// Run executes an error contract test
func (ect *ErrorContractTest) Run(t *testing.T) {
	t.Run(ect.Name, func(t *testing.T) {
		result := ect.Adapter.Search(context.Background(), models.MustQuery(ect.Term))

		failure, ok := result.Failure()
		if !ok {
			t.Fatalf("expected failure, got %s", result.Kind())
		}
		if failure.Kind != ect.ExpectedKind {
			t.Errorf("expected failure kind %s, got %s", ect.ExpectedKind, failure.Kind)
		}
		if failure.Detail == "" {
			t.Error("failure detail not set")
		}
	})
}

// CancellationTest validates that an adapter gives up promptly once its
// context is done and reports the abandonment as a timeout.
type CancellationTest struct {
	Adapter providers.Adapter
	Term    string
	// Within bounds how long Search may keep running after cancellation
	Within time.Duration
}

// Run executes a cancellation test
func (ct *CancellationTest) Run(t *testing.T) {
	within := ct.Within
	if within <= 0 {
		within = 500 * time.Millisecond
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	start := time.Now()
	result := ct.Adapter.Search(ctx, models.MustQuery(ct.Term))
	elapsed := time.Since(start)

	if elapsed > within+10*time.Millisecond {
		t.Errorf("search ignored cancellation: took %s", elapsed)
	}
	failure, ok := result.Failure()
	if !ok {
		t.Fatalf("expected failure after cancellation, got %s", result.Kind())
	}
	if failure.Kind != models.FailureTimeout {
		t.Errorf("expected timeout, got %s", failure.Kind)
	}
}
