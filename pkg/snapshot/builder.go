package snapshot

import (
	"context"
	"fmt"
	"strings"

	"predictive-analysis-engine/pkg/clients/graph"
	"predictive-analysis-engine/pkg/errs"
	"predictive-analysis-engine/pkg/logger"
)

// Build fetches the k-hop neighborhood around target from client and
// assembles it into a Graph: canonical node identifiers, deduplicated
// and merged edges, adjacency indices covering every node (even those
// with no edges), and the source's freshness assertion.
//
// Staleness and reachability are gated before the neighborhood is even
// fetched: CheckHealth's failure modes classify directly into
// errs.StaleData / errs.SourceUnavailable / errs.SourceTimeout so every
// downstream simulation can rely on a fresh, reachable source without
// re-checking.
func Build(ctx context.Context, client *graph.Client, target string, k int) (*Graph, error) {
	health, err := client.CheckHealth(ctx)
	if err != nil {
		return nil, err
	}
	if health.Stale {
		return nil, errs.StaleData(health.LastUpdatedSecondsAgo)
	}

	resp, err := client.GetNeighborhood(ctx, target, k)
	if err != nil {
		return nil, err
	}
	if len(resp.Nodes) == 0 {
		return nil, errs.ServiceNotFound("service not found: %s", target)
	}

	g, err := assemble(resp)
	if err != nil {
		return nil, err
	}
	g.DataFreshness = &Freshness{
		Source:                "graph-engine",
		Stale:                 health.Stale,
		LastUpdatedSecondsAgo: health.LastUpdatedSecondsAgo,
		WindowMinutes:         health.WindowMinutes,
	}
	return g, nil
}

// assemble turns a raw neighborhood response into a Graph, merging
// duplicate (source, target) edge observations per the merge rule:
// rates sum, error rate becomes the rate-weighted average (falling
// back to the max when both rates are zero), and each latency
// percentile takes the max of the two observations, nil-safe.
func assemble(resp *graph.NeighborhoodResponse) (*Graph, error) {
	nodes := make(map[string]*NodeData, len(resp.Nodes))
	nameToKey := make(map[string]string, len(resp.Nodes)*2)

	for _, n := range resp.Nodes {
		ns := n.Namespace
		if ns == "" {
			ns = "default"
		}
		key := CanonicalID(ns, n.Name)

		if existing, ok := nameToKey[n.Name]; ok && existing != key {
			return nil, errs.Validation(
				"identifier collision: %q resolves to both %q and %q across namespaces",
				n.Name, existing, key)
		}

		nodes[key] = &NodeData{ServiceId: key, Name: n.Name, Namespace: ns}
		nameToKey[n.Name] = key
		nameToKey[key] = key
	}

	merged := make(map[string]*EdgeData)
	order := make([]string, 0, len(resp.Edges))

	for _, e := range resp.Edges {
		srcKey := resolveRef(nameToKey, e.From)
		tgtKey := resolveRef(nameToKey, e.To)

		incoming := &EdgeData{
			Source:    srcKey,
			Target:    tgtKey,
			Rate:      e.Rate,
			ErrorRate: e.ErrorRate,
			P50:       e.P50,
			P95:       e.P95,
			P99:       e.P99,
		}

		mapKey := srcKey + "\x00" + tgtKey
		if existing, ok := merged[mapKey]; ok {
			merged[mapKey] = mergeEdges(existing, incoming)
			continue
		}
		merged[mapKey] = incoming
		order = append(order, mapKey)
	}

	edges := make([]*EdgeData, 0, len(order))
	incoming := make(map[string][]*EdgeData, len(nodes))
	outgoing := make(map[string][]*EdgeData, len(nodes))
	for k := range nodes {
		incoming[k] = nil
		outgoing[k] = nil
	}

	for _, mapKey := range order {
		edge := merged[mapKey]
		edges = append(edges, edge)
		incoming[edge.Target] = append(incoming[edge.Target], edge)
		outgoing[edge.Source] = append(outgoing[edge.Source], edge)
	}

	targetKey := resolveRef(nameToKey, resp.Center)

	return &Graph{
		Nodes:         nodes,
		Edges:         edges,
		IncomingEdges: incoming,
		OutgoingEdges: outgoing,
		TargetKey:     targetKey,
	}, nil
}

// mergeEdges combines two observations of the same (source, target)
// pair into one, per spec's dedup-merge rule.
func mergeEdges(a, b *EdgeData) *EdgeData {
	rate := a.Rate + b.Rate

	var errorRate float64
	if rate > 0 {
		errorRate = (a.ErrorRate*a.Rate + b.ErrorRate*b.Rate) / rate
	} else {
		errorRate = maxF(a.ErrorRate, b.ErrorRate)
	}

	return &EdgeData{
		Source:    a.Source,
		Target:    a.Target,
		Rate:      rate,
		ErrorRate: errorRate,
		P50:       maxPtr(a.P50, b.P50),
		P95:       maxPtr(a.P95, b.P95),
		P99:       maxPtr(a.P99, b.P99),
	}
}

func maxPtr(a, b *float64) *float64 {
	switch {
	case a == nil && b == nil:
		return nil
	case a == nil:
		v := *b
		return &v
	case b == nil:
		v := *a
		return &v
	default:
		v := maxF(*a, *b)
		return &v
	}
}

func maxF(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

// resolveRef maps a raw node name or already-canonical identifier to
// its canonical key, falling back to the "default" namespace for
// references the node list never introduced (e.g. external callers).
func resolveRef(nameToKey map[string]string, ref string) string {
	if key, ok := nameToKey[ref]; ok {
		return key
	}
	ns, name := ParseRef(ref)
	return CanonicalID(ns, name)
}

// ParseRef splits a "namespace:name" identifier, defaulting the
// namespace to "default" when absent.
func ParseRef(ref string) (namespace, name string) {
	if ref == "" {
		return "default", ""
	}
	if idx := strings.Index(ref, ":"); idx > 0 {
		return ref[:idx], ref[idx+1:]
	}
	return "default", ref
}

// CanonicalID builds the canonical "namespace:name" identifier used as
// a map key throughout the snapshot and simulation packages.
func CanonicalID(namespace, name string) string {
	if namespace == "" {
		namespace = "default"
	}
	return fmt.Sprintf("%s:%s", namespace, name)
}

// LogFetch records a snapshot fetch at debug-adjacent info level
// without ever including request/response bodies or credentials.
func LogFetch(ctx context.Context, target string, k int, nodeCount, edgeCount int) {
	logger.WithCorrelation(ctx).Sugar().Infow("snapshot built",
		"target", target, "k", k, "nodes", nodeCount, "edges", edgeCount)
}
