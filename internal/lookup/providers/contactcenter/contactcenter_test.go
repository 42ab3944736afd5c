package contactcenter

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"idsearch/internal/lookup/models"
	"idsearch/internal/lookup/providers/contract"
	"idsearch/internal/lookup/providers/httpjson"
)

const rosterJSON = `{
	"count": 1,
	"agents": [{
		"agentId": "cc-42",
		"email": " JDoe@Example.com",
		"firstName": "Jane",
		"lastName": "Doe",
		"team": "Tier 2",
		"role": "Supervisor",
		"extension": "4521",
		"directDial": "19185551234",
		"addressBook": [
			{"type": "Work", "number": "918-555-1234"},
			{"type": "Home", "number": ""},
			{"type": "Mobile", "number": "9185553333"}
		]
	}]
}`

func newAdapter(t *testing.T, h http.Handler, opts ...Option) *Adapter {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	client, err := httpjson.New(models.SourceContactCenter, srv.URL)
	require.NoError(t, err)
	return New(client, opts...)
}

func rosterHandler(calls *atomic.Int32) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		switch r.URL.Query().Get("q") {
		case "jdoe@example.com", "4521":
			_, _ = w.Write([]byte(rosterJSON))
		case "doe":
			_ = json.NewEncoder(w).Encode(searchResponse{Count: 40, Agents: []agent{
				{AgentID: "cc-42", FirstName: "Jane", LastName: "Doe"},
				{AgentID: "cc-43", FirstName: "Jon", LastName: "Doe"},
			}})
		default:
			_, _ = w.Write([]byte(`{"count":0,"agents":[]}`))
		}
	}
}

func TestContactCenterSearch(t *testing.T) {
	ctx := context.Background()

	t.Run("maps an agent", func(t *testing.T) {
		var calls atomic.Int32
		res := newAdapter(t, rosterHandler(&calls), WithRateLimit(0, 0)).Search(ctx, models.MustQuery("jdoe@example.com"))

		rec, ok := res.Record()
		require.True(t, ok, "got %s", res.Kind())
		assert.Equal(t, models.PartialRecord{
			Source:      models.SourceContactCenter,
			SourceID:    "cc-42",
			Email:       "jdoe@example.com",
			DisplayName: "Jane Doe",
			Department:  "Tier 2",
			Title:       "Supervisor",
			Attributes: map[string]string{
				models.AttrExtension:  "4521",
				models.AttrDirectDial: "19185551234",
				"team":                "Tier 2",
			},
			AddressBook: []models.AddressBookEntry{
				{Type: "Work", Value: "918-555-1234"},
				{Type: "Mobile", Value: "9185553333"},
			},
		}, rec)
		assert.Equal(t, int32(1), calls.Load())
	})

	t.Run("email falls back to local part", func(t *testing.T) {
		var calls atomic.Int32
		res := newAdapter(t, rosterHandler(&calls), WithRateLimit(0, 0)).Search(ctx, models.MustQuery("4521@pbx.example.com"))
		assert.Equal(t, models.ResultSingle, res.Kind())
		assert.Equal(t, int32(2), calls.Load())
	})

	t.Run("multiple keeps the roster total", func(t *testing.T) {
		var calls atomic.Int32
		res := newAdapter(t, rosterHandler(&calls), WithRateLimit(0, 0)).Search(ctx, models.MustQuery("doe"))
		require.Equal(t, models.ResultMultiple, res.Kind())
		assert.Equal(t, 40, res.Total())
		assert.Empty(t, res.Candidates()[0].Email)
	})
}

func TestContactCenterRateLimit(t *testing.T) {
	var calls atomic.Int32
	a := newAdapter(t, rosterHandler(&calls), WithRateLimit(0.5, 1))

	first := a.Search(context.Background(), models.MustQuery("4521"))
	require.Equal(t, models.ResultSingle, first.Kind())

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	start := time.Now()
	second := a.Search(ctx, models.MustQuery("4521"))

	f, ok := second.Failure()
	require.True(t, ok)
	assert.Equal(t, models.FailureTimeout, f.Kind)
	assert.Less(t, time.Since(start), 100*time.Millisecond, "gives up without waiting for the deadline")
	assert.Equal(t, int32(1), calls.Load())
}

func TestContactCenterContract(t *testing.T) {
	var calls atomic.Int32
	a := newAdapter(t, rosterHandler(&calls), WithRateLimit(0, 0), WithMaxCandidates(1))

	(&contract.CapabilityTest{Adapter: a}).Run(t)
	(&contract.ContractSuite{
		Source: models.SourceContactCenter,
		Tests: []contract.ContractTest{
			{Name: "single", Adapter: a, Term: "jdoe@example.com", ExpectedKind: models.ResultSingle},
			{Name: "bounded multiple", Adapter: a, Term: "doe", ExpectedKind: models.ResultMultiple},
			{Name: "not found", Adapter: a, Term: "zed", ExpectedKind: models.ResultNotFound},
		},
	}).Run(t)

	(&contract.ErrorContractTest{
		Name: "server error",
		Adapter: newAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}), WithRateLimit(0, 0)),
		Term:         "jdoe",
		ExpectedKind: models.FailureConnection,
	}).Run(t)

	(&contract.CancellationTest{
		Adapter: newAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-time.After(2 * time.Second):
			case <-r.Context().Done():
			}
		}), WithRateLimit(0, 0)),
		Term: "jdoe",
	}).Run(t)
}
