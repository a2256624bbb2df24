package simulation

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"predictive-analysis-engine/pkg/clients/graph"
	"predictive-analysis-engine/pkg/config"
	"predictive-analysis-engine/pkg/errs"
)

func newFailureTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/graph/health":
			json.NewEncoder(w).Encode(graph.HealthResponse{Stale: false, LastUpdatedSecondsAgo: 1, WindowMinutes: 5})
		default:
			json.NewEncoder(w).Encode(graph.NeighborhoodResponse{
				Center: "checkout",
				Nodes: []graph.GraphNode{
					{Name: "checkout", Namespace: "default"},
					{Name: "cart", Namespace: "default"},
					{Name: "inventory", Namespace: "default"},
					{Name: "ledger", Namespace: "default"},
				},
				Edges: []graph.GraphEdge{
					{From: "cart", To: "checkout", Rate: 40, ErrorRate: 0.02, P50: floatPtr(10), P95: floatPtr(20), P99: floatPtr(30)},
					{From: "checkout", To: "inventory", Rate: 40, ErrorRate: 0.01, P50: floatPtr(5), P95: floatPtr(10), P99: floatPtr(15)},
					{From: "inventory", To: "ledger", Rate: 40, ErrorRate: 0.0, P50: floatPtr(3), P95: floatPtr(6), P99: floatPtr(9)},
				},
			})
		}
	}))
}

func TestSimulateFailureRejectsExcessiveDepth(t *testing.T) {
	srv := newFailureTestServer(t)
	defer srv.Close()
	client := graph.NewClient(config.GraphAPIConfig{BaseURL: srv.URL, TimeoutMs: 1000})

	_, err := SimulateFailure(context.Background(), client, FailureSimulationRequest{ServiceId: "checkout", Depth: 5})
	require.Error(t, err)
	assert.Equal(t, errs.KindValidation, errs.KindOf(err))
}

func TestSimulateFailureComputesDirectImpact(t *testing.T) {
	srv := newFailureTestServer(t)
	defer srv.Close()
	client := graph.NewClient(config.GraphAPIConfig{BaseURL: srv.URL, TimeoutMs: 1000})

	result, err := SimulateFailure(context.Background(), client, FailureSimulationRequest{ServiceId: "checkout", Depth: 2})
	require.NoError(t, err)

	require.Len(t, result.AffectedCallers, 1)
	assert.Equal(t, "default:cart", result.AffectedCallers[0].ServiceId)
	assert.InDelta(t, 40, result.AffectedCallers[0].LostTrafficRps, 1e-9)

	require.Len(t, result.AffectedDownstream, 1)
	assert.Equal(t, "default:inventory", result.AffectedDownstream[0].ServiceId)

	assert.Equal(t, "high", result.Confidence)
	assert.InDelta(t, 40, result.TotalLostTrafficRps, 1e-9)
}

func TestSimulateFailureMarksUnreachableServices(t *testing.T) {
	srv := newFailureTestServer(t)
	defer srv.Close()
	client := graph.NewClient(config.GraphAPIConfig{BaseURL: srv.URL, TimeoutMs: 1000})

	result, err := SimulateFailure(context.Background(), client, FailureSimulationRequest{ServiceId: "checkout", Depth: 2})
	require.NoError(t, err)

	var ledgerUnreachable bool
	for _, u := range result.UnreachableServices {
		if u.ServiceId == "default:ledger" {
			ledgerUnreachable = true
		}
	}
	assert.True(t, ledgerUnreachable, "ledger is only reachable via checkout, so it should be unreachable when checkout fails")
}

func TestPickEntrypointsExcludesBlockedNode(t *testing.T) {
	g := buildChainSnapshot()
	entrypoints := pickEntrypoints(g, "default:a")
	assert.NotContains(t, entrypoints, "default:a")
	assert.Contains(t, entrypoints, "default:c")
}

func TestComputeReachableNodesExcludesBlocked(t *testing.T) {
	g := buildChainSnapshot()
	reachable := computeReachableNodes(g, []string{"default:a"}, "default:target")
	assert.True(t, reachable["default:b"])
	assert.False(t, reachable["default:target"])
}
