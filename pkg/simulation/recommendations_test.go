package simulation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateFailureRecommendationsCircuitBreakerOnCriticalLoss(t *testing.T) {
	result := &FailureSimulationResult{
		Confidence:          "high",
		Target:              ServiceRef{Name: "checkout"},
		TotalLostTrafficRps: 150,
	}

	recs := GenerateFailureRecommendations(result)
	require.NotEmpty(t, recs)
	assert.Equal(t, "circuit-breaker", recs[0].Type)
	assert.Equal(t, "critical", recs[0].Priority)
}

func TestGenerateFailureRecommendationsFlagsStaleData(t *testing.T) {
	result := &FailureSimulationResult{
		Confidence: "low",
		Target:     ServiceRef{Name: "checkout"},
	}

	recs := GenerateFailureRecommendations(result)
	require.NotEmpty(t, recs)
	assert.Equal(t, "data-quality", recs[0].Type)
}

func TestGenerateFailureRecommendationsRedundancyOnManyCallers(t *testing.T) {
	result := &FailureSimulationResult{
		Confidence: "high",
		Target:     ServiceRef{Name: "checkout"},
		AffectedCallers: []AffectedCaller{
			{ServiceId: "a", Name: "a", LostTrafficRps: 1},
			{ServiceId: "b", Name: "b", LostTrafficRps: 1},
			{ServiceId: "c", Name: "c", LostTrafficRps: 1},
		},
	}

	recs := GenerateFailureRecommendations(result)
	var found bool
	for _, r := range recs {
		if r.Type == "redundancy" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestGenerateFailureRecommendationsFallsBackToMonitoring(t *testing.T) {
	result := &FailureSimulationResult{
		Confidence: "high",
		Target:     ServiceRef{Name: "checkout"},
	}

	recs := GenerateFailureRecommendations(result)
	require.Len(t, recs, 1)
	assert.Equal(t, "monitoring", recs[0].Type)
}

func TestGenerateScalingRecommendationsCautionOnScaleDownRegression(t *testing.T) {
	delta := 75.0
	result := &ScalingSimulationResult{
		ScalingDirection: "down",
		CurrentPods:      4,
		NewPods:          2,
		LatencyEstimate:  ScalingLatencyEstimate{DeltaMs: &delta},
	}

	recs := GenerateScalingRecommendations(result, ServiceRef{Name: "checkout"})
	require.NotEmpty(t, recs)
	assert.Equal(t, "scaling-caution", recs[0].Type)
	assert.Equal(t, "high", recs[0].Priority)
}

func TestGenerateScalingRecommendationsBenefitOnSignificantImprovement(t *testing.T) {
	delta := -60.0
	result := &ScalingSimulationResult{
		ScalingDirection: "up",
		CurrentPods:      2,
		NewPods:          8,
		LatencyEstimate:  ScalingLatencyEstimate{DeltaMs: &delta},
	}

	recs := GenerateScalingRecommendations(result, ServiceRef{Name: "checkout"})
	require.NotEmpty(t, recs)
	assert.Equal(t, "scaling-benefit", recs[0].Type)
}

func TestGenerateScalingRecommendationsCostEfficiencyOnMinorBenefit(t *testing.T) {
	delta := -1.0
	result := &ScalingSimulationResult{
		ScalingDirection: "up",
		CurrentPods:      2,
		NewPods:          3,
		LatencyEstimate:  ScalingLatencyEstimate{DeltaMs: &delta},
	}

	recs := GenerateScalingRecommendations(result, ServiceRef{Name: "checkout"})
	require.NotEmpty(t, recs)
	assert.Equal(t, "cost-efficiency", recs[0].Type)
}

func TestGenerateScalingRecommendationsProceedWhenNothingFires(t *testing.T) {
	delta := 10.0
	result := &ScalingSimulationResult{
		ScalingDirection: "up",
		CurrentPods:      2,
		NewPods:          3,
		LatencyEstimate:  ScalingLatencyEstimate{DeltaMs: &delta},
	}

	recs := GenerateScalingRecommendations(result, ServiceRef{Name: "checkout"})
	require.Len(t, recs, 1)
	assert.Equal(t, "proceed", recs[0].Type)
}

func TestGenerateScalingRecommendationsPropagationAwareness(t *testing.T) {
	delta := 10.0
	e2e := 30.0
	result := &ScalingSimulationResult{
		ScalingDirection: "up",
		CurrentPods:      2,
		NewPods:          3,
		LatencyEstimate:  ScalingLatencyEstimate{DeltaMs: &delta},
		AffectedCallers: AffectedCallersList{
			Items: []AffectedCallerScaling{
				{ServiceId: "default:cart", Name: "cart", EndToEndDeltaMs: &e2e},
			},
		},
	}

	recs := GenerateScalingRecommendations(result, ServiceRef{Name: "checkout"})
	var found bool
	for _, r := range recs {
		if r.Type == "propagation-awareness" {
			found = true
			assert.Equal(t, "cart", r.Target)
		}
	}
	assert.True(t, found)
}
