package simulation

import (
	"fmt"
	"math"
)

const (
	TrafficCritical = 100.0
	TrafficHigh     = 50.0
	TrafficMedium   = 10.0
)

func GenerateFailureRecommendations(result *FailureSimulationResult) []FailureRecommendation {
	var recommendations []FailureRecommendation
	confidence := result.Confidence
	if confidence == "" {
		confidence = "unknown"
	}

	if confidence == "low" {
		recommendations = append(recommendations, FailureRecommendation{
			Type:     "data-quality",
			Priority: "high",
			Target:   "graph-data",
			Reason:   "Graph data is stale (>5 minutes old)",
			Action:   "Verify graph-engine is syncing properly before acting on predictions",
		})
	}

	totalLost := result.TotalLostTrafficRps
	affectedCallers := result.AffectedCallers
	unreachableServices := result.UnreachableServices
	affectedDownstream := result.AffectedDownstream
	targetName := result.Target.Name
	if targetName == "" {
		targetName = "unknown"
	}

	if totalLost >= TrafficCritical {
		recommendations = append(recommendations, FailureRecommendation{
			Type:     "circuit-breaker",
			Priority: "critical",
			Target:   targetName,
			Reason:   fmt.Sprintf("Failure would cause %.1f RPS total traffic loss", totalLost),
			Action:   fmt.Sprintf("Implement circuit breaker with fallback for all callers of %s", targetName),
		})
	}

	if len(affectedCallers) >= 3 {
		recommendations = append(recommendations, FailureRecommendation{
			Type:     "redundancy",
			Priority: "high",
			Target:   targetName,
			Reason:   fmt.Sprintf("%d upstream services depend on %s", len(affectedCallers), targetName),
			Action:   fmt.Sprintf("Deploy %s across multiple availability zones", targetName),
		})
	}

	for _, caller := range affectedCallers {
		if caller.LostTrafficRps >= TrafficHigh {
			callerName := caller.Name
			if callerName == "" {
				callerName = caller.ServiceId
			}
			recommendations = append(recommendations, FailureRecommendation{
				Type:     "circuit-breaker",
				Priority: "high",
				Target:   callerName,
				Reason:   fmt.Sprintf("%s would lose %.1f RPS", callerName, caller.LostTrafficRps),
				Action:   fmt.Sprintf("Add circuit breaker in %s when calling %s", callerName, targetName),
			})
		}
	}

	if len(unreachableServices) > 0 {
		totalUnreachableLoss := 0.0
		for _, s := range unreachableServices {
			totalUnreachableLoss += s.LostTrafficRps
		}

		if len(unreachableServices) >= 2 || totalUnreachableLoss >= TrafficMedium {

			count := 0
			var names []string
			for _, s := range unreachableServices {
				if count >= 3 {
					break
				}
				names = append(names, s.Name)
				count++
			}
			joinedNames := ""
			for i, n := range names {
				if i > 0 {
					joinedNames += ", "
				}
				joinedNames += n
			}

			recommendations = append(recommendations, FailureRecommendation{
				Type:     "topology-review",
				Priority: "medium",
				Target:   targetName,
				Reason:   fmt.Sprintf("%d service(s) become unreachable (cascade risk)", len(unreachableServices)),
				Action:   fmt.Sprintf("Review dependency graph; consider alternative paths for: %s", joinedNames),
			})
		}
	}

	if len(affectedDownstream) > 0 {
		totalDownstreamLoss := 0.0
		for _, s := range affectedDownstream {
			totalDownstreamLoss += s.LostTrafficRps
		}

		if totalDownstreamLoss >= TrafficMedium {
			recommendations = append(recommendations, FailureRecommendation{
				Type:     "graceful-degradation",
				Priority: "medium",
				Target:   targetName,
				Reason:   fmt.Sprintf("Downstream services lose %.1f RPS from %s", totalDownstreamLoss, targetName),
				Action:   fmt.Sprintf("Implement graceful degradation in %s to reduce downstream blast radius", targetName),
			})
		}
	}

	hasDataQualityOnly := len(recommendations) == 1 && recommendations[0].Type == "data-quality"
	if len(recommendations) == 0 || hasDataQualityOnly {
		recommendations = append(recommendations, FailureRecommendation{
			Type:     "monitoring",
			Priority: "low",
			Target:   targetName,
			Reason:   "Low predicted impact, but failures can still occur",
			Action:   fmt.Sprintf("Ensure alerting is configured for %s availability", targetName),
		})
	}

	return recommendations
}

func toFixed(num float64, precision int) float64 {
	output := math.Pow(10, float64(precision))
	return float64(int(num*output)) / output
}

// GenerateScalingRecommendations applies the scaling rule set: caution
// on a regression from scaling down, a benefit callout for a
// significant win from scaling up, a cost-efficiency nudge for a
// minor win, a propagation-awareness flag when any caller's end-to-end
// latency moves by a moderate amount or more, and a low-priority
// proceed fallback when nothing else fires.
func GenerateScalingRecommendations(result *ScalingSimulationResult, target ServiceRef) []FailureRecommendation {
	var recommendations []FailureRecommendation
	targetName := target.Name
	if targetName == "" {
		targetName = "unknown"
	}

	delta := result.LatencyEstimate.DeltaMs

	switch {
	case result.ScalingDirection == "down" && delta != nil && math.Abs(*delta) >= ScalingSignificantMs:
		recommendations = append(recommendations, FailureRecommendation{
			Type:     "scaling-caution",
			Priority: "high",
			Target:   targetName,
			Reason:   fmt.Sprintf("Scaling down projects a %.1fms latency regression", math.Abs(*delta)),
			Action:   fmt.Sprintf("Verify %s has headroom before reducing pod count; consider a smaller reduction", targetName),
		})
	case result.ScalingDirection == "up" && delta != nil && math.Abs(*delta) >= ScalingSignificantMs:
		recommendations = append(recommendations, FailureRecommendation{
			Type:     "scaling-benefit",
			Priority: "medium",
			Target:   targetName,
			Reason:   fmt.Sprintf("Scaling up projects a %.1fms latency improvement", math.Abs(*delta)),
			Action:   fmt.Sprintf("Proceed with scaling %s up; confirm downstream capacity can absorb the additional throughput", targetName),
		})
	case result.ScalingDirection == "up" && (delta == nil || math.Abs(*delta) < ScalingMinorMs):
		benefitNote := "minimal latency benefit"
		if delta != nil {
			benefitNote = fmt.Sprintf("only a %.1fms latency benefit", math.Abs(*delta))
		}
		recommendations = append(recommendations, FailureRecommendation{
			Type:     "cost-efficiency",
			Priority: "medium",
			Target:   targetName,
			Reason:   fmt.Sprintf("Scaling from %d to %d shows %s", result.CurrentPods, result.NewPods, benefitNote),
			Action:   fmt.Sprintf("Review if additional pods for %s are cost-effective; bottleneck may be elsewhere", targetName),
		})
	}

	for _, caller := range result.AffectedCallers.Items {
		if caller.EndToEndDeltaMs != nil && math.Abs(*caller.EndToEndDeltaMs) >= ScalingModerateMs {
			callerName := caller.Name
			if callerName == "" {
				callerName = caller.ServiceId
			}
			recommendations = append(recommendations, FailureRecommendation{
				Type:     "propagation-awareness",
				Priority: "medium",
				Target:   callerName,
				Reason:   fmt.Sprintf("%s's end-to-end latency shifts by %.1fms via this scaling change", callerName, math.Abs(*caller.EndToEndDeltaMs)),
				Action:   fmt.Sprintf("Re-check %s's own SLOs after this change propagates", callerName),
			})
		}
	}

	if len(recommendations) == 0 {
		recommendations = append(recommendations, FailureRecommendation{
			Type:     "proceed",
			Priority: "low",
			Target:   targetName,
			Reason:   "Projected latency impact is within normal bounds",
			Action:   fmt.Sprintf("No additional precautions identified for scaling %s", targetName),
		})
	}

	return recommendations
}
