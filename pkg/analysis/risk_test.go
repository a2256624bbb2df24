package analysis

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

func TestGetTopRiskServicesRejectsUnknownMetric(t *testing.T) {
	client := graph.NewClient(config.GraphAPIConfig{BaseURL: "http://unused", TimeoutMs: 1000})
	_, err := GetTopRiskServices(context.Background(), client, "closeness", 5)
	require.Error(t, err)
	assert.Equal(t, errs.KindValidation, errs.KindOf(err))
}

func TestGetTopRiskServicesRanksByPercentile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/graph/health":
			json.NewEncoder(w).Encode(graph.HealthResponse{Stale: false, LastUpdatedSecondsAgo: 1, WindowMinutes: 5})
		default:
			json.NewEncoder(w).Encode(graph.CentralityTopResponse{
				Metric: "pagerank",
				Top: []graph.CentralityScore{
					{Service: "default:checkout", Value: 0.9},
					{Service: "default:cart", Value: 0.5},
					{Service: "default:ledger", Value: 0.3},
					{Service: "default:audit", Value: 0.1},
					{Service: "default:noop", Value: 0.0},
				},
			})
		}
	}))
	defer srv.Close()

	client := graph.NewClient(config.GraphAPIConfig{BaseURL: srv.URL, TimeoutMs: 1000})
	result, err := GetTopRiskServices(context.Background(), client, "pagerank", 5)
	require.NoError(t, err)

	require.Len(t, result.Services, 5)
	assert.Equal(t, "high", result.Services[0].RiskLevel)
	assert.Equal(t, "low", result.Services[4].RiskLevel, "zero score never escalates above low risk")
	assert.Equal(t, "high", result.Confidence)
}

func TestParseServiceIdentifierSplitsNamespace(t *testing.T) {
	id, name, ns := parseServiceIdentifier("billing:invoices")
	assert.Equal(t, "billing:invoices", id)
	assert.Equal(t, "invoices", name)
	assert.Equal(t, "billing", ns)

	id, name, ns = parseServiceIdentifier("checkout")
	assert.Equal(t, "default:checkout", id)
	assert.Equal(t, "checkout", name)
	assert.Equal(t, "default", ns)
}

func TestDetermineRiskLevelHandlesEmptySet(t *testing.T) {
	assert.Equal(t, "low", determineRiskLevel(0.5, 0, 0))
}

func TestDetermineRiskLevelZeroScoreIsAlwaysLow(t *testing.T) {
	assert.Equal(t, "low", determineRiskLevel(0, 0, 10))
}
