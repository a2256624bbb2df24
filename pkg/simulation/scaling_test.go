package simulation

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"predictive-analysis-engine/pkg/clients/graph"
	"predictive-analysis-engine/pkg/config"
	"predictive-analysis-engine/pkg/errs"
)

func testSimConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Simulation = config.SimulationConfig{
		DefaultLatencyMetric: "p95",
		MaxTraversalDepth:    2,
		ScalingModel:         "bounded_sqrt",
		ScalingAlpha:         0.3,
		MinLatencyFactor:     0.5,
		MaxPathsReturned:     5,
	}
	return cfg
}

func newScalingTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/graph/health":
			json.NewEncoder(w).Encode(graph.HealthResponse{Stale: false})
		default:
			json.NewEncoder(w).Encode(graph.NeighborhoodResponse{
				Center: "checkout",
				Nodes: []graph.GraphNode{
					{Name: "checkout", Namespace: "default"},
					{Name: "cart", Namespace: "default"},
				},
				Edges: []graph.GraphEdge{
					{From: "cart", To: "checkout", Rate: 20, ErrorRate: 0.01, P50: floatPtr(10), P95: floatPtr(50), P99: floatPtr(80)},
				},
			})
		}
	}))
}

func floatPtr(v float64) *float64 { return &v }

// newScalingTestServerWithEdges builds a test graph-engine server with an
// arbitrary edge set, so tests can exercise zero-traffic and
// missing-latency boundaries that newScalingTestServer's fixed fixture
// can't reach.
func newScalingTestServerWithEdges(t *testing.T, nodes []graph.GraphNode, edges []graph.GraphEdge) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/graph/health":
			json.NewEncoder(w).Encode(graph.HealthResponse{Stale: false})
		default:
			json.NewEncoder(w).Encode(graph.NeighborhoodResponse{
				Center: "checkout",
				Nodes:  nodes,
				Edges:  edges,
			})
		}
	}))
}

func TestSimulateScalingZeroTrafficYieldsNullBaseline(t *testing.T) {
	nodes := []graph.GraphNode{
		{Name: "checkout", Namespace: "default"},
		{Name: "cart", Namespace: "default"},
	}
	edges := []graph.GraphEdge{
		{From: "cart", To: "checkout", Rate: 0, ErrorRate: 0, P50: floatPtr(10), P95: floatPtr(50), P99: floatPtr(80)},
	}
	srv := newScalingTestServerWithEdges(t, nodes, edges)
	defer srv.Close()
	client := graph.NewClient(config.GraphAPIConfig{BaseURL: srv.URL, TimeoutMs: 1000})

	result, err := SimulateScaling(context.Background(), client, testSimConfig(), ScalingSimulationRequest{
		ServiceId: "checkout", CurrentPods: 2, NewPods: 8, LatencyMetric: "p95",
	})
	require.NoError(t, err)

	assert.Nil(t, result.LatencyEstimate.BaselineMs)
	assert.Nil(t, result.LatencyEstimate.ProjectedMs)
	assert.Nil(t, result.LatencyEstimate.DeltaMs)
}

func TestSimulateScalingMissingLatencyPoisonsBaseline(t *testing.T) {
	nodes := []graph.GraphNode{
		{Name: "checkout", Namespace: "default"},
		{Name: "cart", Namespace: "default"},
		{Name: "billing", Namespace: "default"},
	}
	edges := []graph.GraphEdge{
		{From: "cart", To: "checkout", Rate: 20, ErrorRate: 0.01, P50: floatPtr(10), P95: floatPtr(50), P99: floatPtr(80)},
		{From: "billing", To: "checkout", Rate: 15, ErrorRate: 0.0},
	}
	srv := newScalingTestServerWithEdges(t, nodes, edges)
	defer srv.Close()
	client := graph.NewClient(config.GraphAPIConfig{BaseURL: srv.URL, TimeoutMs: 1000})

	result, err := SimulateScaling(context.Background(), client, testSimConfig(), ScalingSimulationRequest{
		ServiceId: "checkout", CurrentPods: 2, NewPods: 8, LatencyMetric: "p95",
	})
	require.NoError(t, err)

	assert.Nil(t, result.LatencyEstimate.BaselineMs, "one rate-contributing edge missing p95 must null out the whole baseline")
	assert.Nil(t, result.LatencyEstimate.ProjectedMs)
	assert.Nil(t, result.LatencyEstimate.DeltaMs)
}

func TestSimulateScalingMarksPathIncompleteOnMissingHopLatency(t *testing.T) {
	nodes := []graph.GraphNode{
		{Name: "checkout", Namespace: "default"},
		{Name: "cart", Namespace: "default"},
		{Name: "web", Namespace: "default"},
	}
	edges := []graph.GraphEdge{
		{From: "web", To: "cart", Rate: 30, ErrorRate: 0.0},
		{From: "cart", To: "checkout", Rate: 20, ErrorRate: 0.01, P50: floatPtr(10), P95: floatPtr(50), P99: floatPtr(80)},
	}
	srv := newScalingTestServerWithEdges(t, nodes, edges)
	defer srv.Close()
	client := graph.NewClient(config.GraphAPIConfig{BaseURL: srv.URL, TimeoutMs: 1000})

	result, err := SimulateScaling(context.Background(), client, testSimConfig(), ScalingSimulationRequest{
		ServiceId: "checkout", CurrentPods: 2, NewPods: 8, LatencyMetric: "p95",
	})
	require.NoError(t, err)

	var sawIncomplete bool
	for _, p := range result.AffectedPaths {
		if len(p.Path) > 0 && p.Path[0] == "default:web" {
			sawIncomplete = true
			assert.True(t, p.IncompleteData)
			assert.Nil(t, p.BeforeMs)
			assert.Nil(t, p.AfterMs)
			assert.Nil(t, p.DeltaMs)
		}
	}
	require.True(t, sawIncomplete, "expected a path starting at web with incomplete latency data")
	require.NotEmpty(t, result.Warnings)
}

func TestSimulateScalingRejectsInvalidPodCounts(t *testing.T) {
	srv := newScalingTestServer(t)
	defer srv.Close()
	client := graph.NewClient(config.GraphAPIConfig{BaseURL: srv.URL, TimeoutMs: 1000})

	_, err := SimulateScaling(context.Background(), client, testSimConfig(), ScalingSimulationRequest{
		ServiceId: "checkout", CurrentPods: 0, NewPods: 4,
	})
	require.Error(t, err)
	assert.Equal(t, errs.KindValidation, errs.KindOf(err))
}

func TestSimulateScalingRejectsUnknownModel(t *testing.T) {
	srv := newScalingTestServer(t)
	defer srv.Close()
	client := graph.NewClient(config.GraphAPIConfig{BaseURL: srv.URL, TimeoutMs: 1000})

	badAlpha := 0.3
	_, err := SimulateScaling(context.Background(), client, testSimConfig(), ScalingSimulationRequest{
		ServiceId: "checkout", CurrentPods: 2, NewPods: 4,
		Model: &ScalingModel{Type: "quadratic", Alpha: &badAlpha},
	})
	require.Error(t, err)
	assert.Equal(t, errs.KindValidation, errs.KindOf(err))
}

func TestSimulateScalingUpImprovesLatency(t *testing.T) {
	srv := newScalingTestServer(t)
	defer srv.Close()
	client := graph.NewClient(config.GraphAPIConfig{BaseURL: srv.URL, TimeoutMs: 1000})

	result, err := SimulateScaling(context.Background(), client, testSimConfig(), ScalingSimulationRequest{
		ServiceId: "checkout", CurrentPods: 2, NewPods: 8, LatencyMetric: "p95",
	})
	require.NoError(t, err)

	assert.Equal(t, "up", result.ScalingDirection)
	require.NotNil(t, result.LatencyEstimate.BaselineMs)
	require.NotNil(t, result.LatencyEstimate.ProjectedMs)
	assert.Less(t, *result.LatencyEstimate.ProjectedMs, *result.LatencyEstimate.BaselineMs)
}

func TestSimulateScalingSamePodCountIsNoOp(t *testing.T) {
	srv := newScalingTestServer(t)
	defer srv.Close()
	client := graph.NewClient(config.GraphAPIConfig{BaseURL: srv.URL, TimeoutMs: 1000})

	result, err := SimulateScaling(context.Background(), client, testSimConfig(), ScalingSimulationRequest{
		ServiceId: "checkout", CurrentPods: 4, NewPods: 4, LatencyMetric: "p95",
	})
	require.NoError(t, err)

	assert.Equal(t, "none", result.ScalingDirection)
	require.NotNil(t, result.LatencyEstimate.DeltaMs)
	assert.InDelta(t, 0, *result.LatencyEstimate.DeltaMs, 1e-9)
}

func TestApplyLinearScalingHalvesLatencyWhenPodsDouble(t *testing.T) {
	got := applyLinearScaling(100, 2, 4)
	assert.InDelta(t, 50, got, 1e-9)
}

func TestComputeHopDistanceFindsShortestPath(t *testing.T) {
	g := buildChainSnapshot()
	assert.Equal(t, 2, computeHopDistance(g, "default:a", "default:target"))
	assert.Equal(t, 0, computeHopDistance(g, "default:target", "default:target"))
	assert.Equal(t, -1, computeHopDistance(g, "default:target", "default:a"))
}

// TestApplyBoundedSqrtScalingIdentityAtEqualPods checks the scaling
// identity law: scaling from n pods to n pods must leave latency
// unchanged for any base latency, alpha, or minLatencyFactor, since the
// pod ratio is 1 regardless of those parameters.
func TestApplyBoundedSqrtScalingIdentityAtEqualPods(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		baseLatency := rapid.Float64Range(0.01, 10000).Draw(t, "baseLatency")
		pods := rapid.IntRange(1, 500).Draw(t, "pods")
		alpha := rapid.Float64Range(0, 1).Draw(t, "alpha")
		minFactor := rapid.Float64Range(0, 1).Draw(t, "minFactor")

		got := applyBoundedSqrtScaling(baseLatency, pods, pods, alpha, minFactor)
		assert.InDelta(t, baseLatency, got, baseLatency*1e-9+1e-9)
	})
}

// TestApplyBoundedSqrtScalingNeverBelowFloor checks the clamp law: the
// projected latency can never fall below baseLatency*minLatencyFactor,
// no matter how many pods are added.
func TestApplyBoundedSqrtScalingNeverBelowFloor(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		baseLatency := rapid.Float64Range(0.01, 10000).Draw(t, "baseLatency")
		currentPods := rapid.IntRange(1, 50).Draw(t, "currentPods")
		newPods := rapid.IntRange(1, 5000).Draw(t, "newPods")
		alpha := rapid.Float64Range(0, 1).Draw(t, "alpha")
		minFactor := rapid.Float64Range(0, 1).Draw(t, "minFactor")

		got := applyBoundedSqrtScaling(baseLatency, currentPods, newPods, alpha, minFactor)
		floor := baseLatency * minFactor
		assert.GreaterOrEqual(t, got+1e-9, floor)
	})
}

// TestApplyBoundedSqrtScalingMonotonicInPods checks that adding more
// pods never increases projected latency, for a fixed starting point.
func TestApplyBoundedSqrtScalingMonotonicInPods(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		baseLatency := rapid.Float64Range(1, 1000).Draw(t, "baseLatency")
		currentPods := rapid.IntRange(1, 20).Draw(t, "currentPods")
		fewerPods := rapid.IntRange(currentPods, currentPods+50).Draw(t, "fewerPods")
		morePods := rapid.IntRange(fewerPods, fewerPods+50).Draw(t, "morePods")
		alpha := rapid.Float64Range(0, 1).Draw(t, "alpha")

		lat1 := applyBoundedSqrtScaling(baseLatency, currentPods, fewerPods, alpha, 0)
		lat2 := applyBoundedSqrtScaling(baseLatency, currentPods, morePods, alpha, 0)
		assert.GreaterOrEqual(t, lat1+1e-9, lat2)
	})
}
