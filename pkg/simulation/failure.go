package simulation

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"predictive-analysis-engine/pkg/clients/graph"
	"predictive-analysis-engine/pkg/errs"
	"predictive-analysis-engine/pkg/snapshot"
)

func SimulateFailure(ctx context.Context, client *graph.Client, req FailureSimulationRequest) (*FailureSimulationResult, error) {
	maxDepth := req.Depth

	if maxDepth < 2 {
		maxDepth = 2
	}

	if maxDepth > 3 {
		return nil, errs.Validation("maxDepth > 3 not supported. Got: %d", maxDepth)
	}

	graphSnap, err := snapshot.Build(ctx, client, req.ServiceId, maxDepth)
	if err != nil {
		return nil, err
	}

	targetKey := graphSnap.TargetKey
	targetNode, ok := graphSnap.Nodes[targetKey]
	if !ok {
		return nil, errs.ServiceNotFound("service not found: %s", req.ServiceId)
	}
	targetOut := nodeToOutRef(targetNode, targetKey)

	directCallers := graphSnap.IncomingEdges[targetKey]
	callerMap := make(map[string]*AffectedCaller)

	for _, edge := range directCallers {
		id := edge.Source
		callerNode := graphSnap.Nodes[id]
		callerOut := nodeToOutRef(callerNode, id)

		existing, exists := callerMap[id]
		if !exists {
			existing = &AffectedCaller{
				ServiceId: callerOut.ServiceId,
				Name:      callerOut.Name,
				Namespace: callerOut.Namespace,
			}
			callerMap[id] = existing
		}
		existing.LostTrafficRps += edge.Rate
		existing.EdgeErrorRate = math.Max(existing.EdgeErrorRate, edge.ErrorRate)
	}

	var affectedCallers []AffectedCaller
	for _, c := range callerMap {
		affectedCallers = append(affectedCallers, *c)
	}
	sort.Slice(affectedCallers, func(i, j int) bool {
		return affectedCallers[i].LostTrafficRps > affectedCallers[j].LostTrafficRps
	})

	criticalPaths := FindTopPathsToTarget(graphSnap, targetKey, maxDepth, MaxPathsReturned)

	directCallees := graphSnap.OutgoingEdges[targetKey]
	downstreamMap := make(map[string]*AffectedDownstream)

	for _, edge := range directCallees {
		calleeKey := edge.Target

		if calleeKey == "" || calleeKey == targetKey {
			continue
		}

		calleeNode := graphSnap.Nodes[calleeKey]
		calleeOut := nodeToOutRef(calleeNode, calleeKey)

		existing, exists := downstreamMap[calleeKey]
		if !exists {
			existing = &AffectedDownstream{
				ServiceId: calleeOut.ServiceId,
				Name:      calleeOut.Name,
				Namespace: calleeOut.Namespace,
			}
			downstreamMap[calleeKey] = existing
		}
		existing.LostTrafficRps += edge.Rate
		existing.EdgeErrorRate = math.Max(existing.EdgeErrorRate, edge.ErrorRate)
	}

	var affectedDownstream []AffectedDownstream
	for _, d := range downstreamMap {
		affectedDownstream = append(affectedDownstream, *d)
	}
	sort.Slice(affectedDownstream, func(i, j int) bool {
		return affectedDownstream[i].LostTrafficRps > affectedDownstream[j].LostTrafficRps
	})

	entrypoints := pickEntrypoints(graphSnap, targetKey)
	reachable := computeReachableNodes(graphSnap, entrypoints, targetKey)
	lostByNode := estimateBoundaryLostTraffic(graphSnap, reachable, targetKey)

	var unreachableServices []UnreachableService
	for k, n := range graphSnap.Nodes {
		if k == targetKey {
			continue
		}
		if !reachable[k] {
			out := nodeToOutRef(n, k)
			loss := lostByNode[k]
			unreachableServices = append(unreachableServices, UnreachableService{
				ServiceId:                out.ServiceId,
				Name:                     out.Name,
				Namespace:                out.Namespace,
				LostTrafficRps:           loss.LostTotalRps,
				LostFromTargetRps:        loss.LostFromTargetRps,
				LostFromReachableCutsRps: loss.LostFromReachableCutsRps,
			})
		}
	}
	sort.Slice(unreachableServices, func(i, j int) bool {
		return unreachableServices[i].LostTrafficRps > unreachableServices[j].LostTrafficRps
	})

	totalLostTrafficRps := 0.0
	for _, c := range affectedCallers {
		totalLostTrafficRps += c.LostTrafficRps
	}

	if affectedCallers == nil {
		affectedCallers = []AffectedCaller{}
	}
	if affectedDownstream == nil {
		affectedDownstream = []AffectedDownstream{}
	}
	if unreachableServices == nil {
		unreachableServices = []UnreachableService{}
	}
	if criticalPaths == nil {
		criticalPaths = []BrokenPath{}
	}

	confidence := "high"
	if graphSnap.DataFreshness != nil && graphSnap.DataFreshness.Stale {
		confidence = "low"
	}

	explanation := fmt.Sprintf("If %s fails, %d upstream caller(s) lose direct access, %d downstream service(s) lose traffic from this target, and %d service(s) may become unreachable within the %d-hop neighborhood.",
		targetOut.Name, len(affectedCallers), len(affectedDownstream), len(unreachableServices), maxDepth)

	result := &FailureSimulationResult{
		Target: targetOut,
		Neighborhood: NeighborhoodMeta{
			Description:  "k-hop neighborhood subgraph around target (not full graph)",
			ServiceCount: len(graphSnap.Nodes),
			EdgeCount:    len(graphSnap.Edges),
			DepthUsed:    maxDepth,
			GeneratedAt:  time.Now().Format(time.RFC3339),
		},
		DataFreshness:       freshnessFromSnapshot(graphSnap.DataFreshness),
		Confidence:          confidence,
		Explanation:         explanation,
		AffectedCallers:     affectedCallers,
		AffectedDownstream:  affectedDownstream,
		UnreachableServices: unreachableServices,
		CriticalPaths:       criticalPaths,
		TotalLostTrafficRps: totalLostTrafficRps,
	}

	result.Recommendations = GenerateFailureRecommendations(result)
	if result.Recommendations == nil {
		result.Recommendations = []FailureRecommendation{}
	}

	return result, nil
}

func parseServiceRef(idOrName string) (namespace, name string) {
	return snapshot.ParseRef(idOrName)
}

func nodeToOutRef(node *Node, fallbackKey string) ServiceRef {
	ns, n := parseServiceRef(fallbackKey)
	if node != nil {
		if node.Name != "" {
			n = node.Name
		}
		if node.Namespace != "" {
			ns = node.Namespace
		}
	}
	return ServiceRef{
		ServiceId: snapshot.CanonicalID(ns, n),
		Name:      n,
		Namespace: ns,
	}
}

func pickEntrypoints(graphSnap *GraphSnapshot, blockedKey string) []string {
	var entrypoints []string
	for k := range graphSnap.Nodes {
		if k == blockedKey {
			continue
		}

		if len(graphSnap.IncomingEdges[k]) == 0 {
			entrypoints = append(entrypoints, k)
		}
	}

	if len(entrypoints) == 0 {
		for k := range graphSnap.Nodes {
			if k != blockedKey {
				entrypoints = append(entrypoints, k)
			}
		}
	}
	return entrypoints
}

func computeReachableNodes(graphSnap *GraphSnapshot, entrypoints []string, blockedKey string) map[string]bool {
	visited := make(map[string]bool)
	queue := make([]string, 0, len(entrypoints))

	for _, e := range entrypoints {
		if e == "" || e == blockedKey {
			continue
		}
		visited[e] = true
		queue = append(queue, e)
	}

	for len(queue) > 0 {
		curr := queue[0]
		queue = queue[1:]

		outs := graphSnap.OutgoingEdges[curr]
		for _, edge := range outs {
			nxt := edge.Target
			if nxt == "" || nxt == blockedKey {
				continue
			}
			if _, exists := graphSnap.Nodes[nxt]; !exists {
				continue
			}
			if visited[nxt] {
				continue
			}
			visited[nxt] = true
			queue = append(queue, nxt)
		}
	}
	return visited
}

type trafficLoss struct {
	LostFromTargetRps        float64
	LostFromReachableCutsRps float64
	LostTotalRps             float64
}

func estimateBoundaryLostTraffic(graphSnap *GraphSnapshot, reachable map[string]bool, blockedKey string) map[string]trafficLoss {
	lostByNode := make(map[string]trafficLoss)

	for k := range graphSnap.Nodes {
		if k == blockedKey || reachable[k] {
			continue
		}

		incoming := graphSnap.IncomingEdges[k]
		var lTraffic, lCuts float64

		for _, e := range incoming {
			if e.Source == blockedKey {
				lTraffic += e.Rate
				continue
			}
			if reachable[e.Source] {
				lCuts += e.Rate
			}
		}

		lostByNode[k] = trafficLoss{
			LostFromTargetRps:        lTraffic,
			LostFromReachableCutsRps: lCuts,
			LostTotalRps:             lTraffic + lCuts,
		}
	}
	return lostByNode
}
