package simulation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"predictive-analysis-engine/pkg/snapshot"
)

func buildChainSnapshot() *GraphSnapshot {
	nodes := map[string]*snapshot.NodeData{
		"default:a":      {ServiceId: "default:a", Name: "a", Namespace: "default"},
		"default:b":      {ServiceId: "default:b", Name: "b", Namespace: "default"},
		"default:c":      {ServiceId: "default:c", Name: "c", Namespace: "default"},
		"default:target": {ServiceId: "default:target", Name: "target", Namespace: "default"},
	}
	edges := []*snapshot.EdgeData{
		{Source: "default:a", Target: "default:b", Rate: 50},
		{Source: "default:b", Target: "default:target", Rate: 30},
		{Source: "default:c", Target: "default:target", Rate: 80},
	}
	outgoing := map[string][]*snapshot.EdgeData{}
	incoming := map[string][]*snapshot.EdgeData{}
	for k := range nodes {
		outgoing[k] = nil
		incoming[k] = nil
	}
	for _, e := range edges {
		outgoing[e.Source] = append(outgoing[e.Source], e)
		incoming[e.Target] = append(incoming[e.Target], e)
	}
	return &GraphSnapshot{
		Nodes:         nodes,
		Edges:         edges,
		IncomingEdges: incoming,
		OutgoingEdges: outgoing,
		TargetKey:     "default:target",
	}
}

func TestFindTopPathsToTargetSortsByRps(t *testing.T) {
	g := buildChainSnapshot()

	paths := FindTopPathsToTarget(g, "default:target", MaxTraversalDepth, MaxPathsReturned)

	// a -> b -> target is two hops, within MaxTraversalDepth, so it is
	// returned alongside the two direct paths.
	require.Len(t, paths, 3)
	assert.Equal(t, []string{"default:c", "default:target"}, paths[0].Path)
	assert.InDelta(t, 80, paths[0].PathRps, 1e-9)
	assert.ElementsMatch(t,
		[][]string{{"default:a", "default:b", "default:target"}, {"default:b", "default:target"}},
		[][]string{paths[1].Path, paths[2].Path})
	assert.InDelta(t, 30, paths[1].PathRps, 1e-9)
	assert.InDelta(t, 30, paths[2].PathRps, 1e-9)
}

func TestFindTopPathsToTargetRespectsDepth(t *testing.T) {
	g := buildChainSnapshot()

	// a -> b -> target is two hops; depth 1 should exclude it entirely.
	paths := FindTopPathsToTarget(g, "default:target", 1, MaxPathsReturned)

	for _, p := range paths {
		assert.LessOrEqual(t, len(p.Path)-1, 1)
	}
}

func TestFindTopPathsToTargetCapsResultCount(t *testing.T) {
	g := buildChainSnapshot()

	// Enumeration stops once 2*maxPaths candidates are collected: start
	// nodes a and b fill that quota (both 30 rps) before c is explored.
	paths := FindTopPathsToTarget(g, "default:target", MaxTraversalDepth, 1)
	assert.Len(t, paths, 1)
	assert.InDelta(t, 30, paths[0].PathRps, 1e-9)
}

func TestFindTopPathsToTargetExcludesSelfLoop(t *testing.T) {
	g := buildChainSnapshot()

	paths := FindTopPathsToTarget(g, "default:target", MaxTraversalDepth, MaxPathsReturned)
	for _, p := range paths {
		assert.NotEqual(t, "default:target", p.Path[0])
	}
}
