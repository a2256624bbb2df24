package simulation

import "predictive-analysis-engine/pkg/snapshot"

const (
	MaxTraversalDepth = 2
	MaxPathsReturned  = 5
)

// GraphSnapshot, Node and Edge alias the snapshot package's types so
// the simulation algorithms read exactly as they did before the
// dedup-merge logic moved into its own package.
type GraphSnapshot = snapshot.Graph
type Node = snapshot.NodeData
type Edge = snapshot.EdgeData

type FailureSimulationRequest struct {
	ServiceId string `json:"serviceId"`
	Depth     int    `json:"depth"`
}

type FailureSimulationResult struct {
	Target              ServiceRef              `json:"target"`
	Neighborhood        NeighborhoodMeta        `json:"neighborhood"`
	DataFreshness       *DataFreshness          `json:"dataFreshness"`
	Confidence          string                  `json:"confidence"`
	Explanation         string                  `json:"explanation"`
	AffectedCallers     []AffectedCaller        `json:"affectedCallers"`
	AffectedDownstream  []AffectedDownstream    `json:"affectedDownstream"`
	UnreachableServices []UnreachableService    `json:"unreachableServices"`
	CriticalPaths       []BrokenPath            `json:"criticalPathsToTarget"`
	TotalLostTrafficRps float64                 `json:"totalLostTrafficRps"`
	Recommendations     []FailureRecommendation `json:"recommendations"`
}

type ServiceRef struct {
	ServiceId string `json:"serviceId"`
	Name      string `json:"name"`
	Namespace string `json:"namespace"`
}

type NeighborhoodMeta struct {
	Description  string `json:"description"`
	ServiceCount int    `json:"serviceCount"`
	EdgeCount    int    `json:"edgeCount"`
	DepthUsed    int    `json:"depthUsed"`
	GeneratedAt  string `json:"generatedAt"`
}

type DataFreshness struct {
	Source                string `json:"source"`
	Stale                 bool   `json:"stale"`
	LastUpdatedSecondsAgo int    `json:"lastUpdatedSecondsAgo"`
	WindowMinutes         int    `json:"windowMinutes"`
}

// freshnessFromSnapshot converts the snapshot package's freshness
// assertion into the wire-shaped DataFreshness every simulation result
// embeds.
func freshnessFromSnapshot(f *snapshot.Freshness) *DataFreshness {
	if f == nil {
		return nil
	}
	return &DataFreshness{
		Source:                f.Source,
		Stale:                 f.Stale,
		LastUpdatedSecondsAgo: f.LastUpdatedSecondsAgo,
		WindowMinutes:         f.WindowMinutes,
	}
}

type AffectedCaller struct {
	ServiceId      string  `json:"serviceId"`
	Name           string  `json:"name"`
	Namespace      string  `json:"namespace"`
	LostTrafficRps float64 `json:"lostTrafficRps"`
	EdgeErrorRate  float64 `json:"edgeErrorRate"`
}

type AffectedDownstream struct {
	ServiceId      string  `json:"serviceId"`
	Name           string  `json:"name"`
	Namespace      string  `json:"namespace"`
	LostTrafficRps float64 `json:"lostTrafficRps"`
	EdgeErrorRate  float64 `json:"edgeErrorRate"`
}

type UnreachableService struct {
	ServiceId                string  `json:"serviceId"`
	Name                     string  `json:"name"`
	Namespace                string  `json:"namespace"`
	LostTrafficRps           float64 `json:"lostTrafficRps"`
	LostFromTargetRps        float64 `json:"lostFromTargetRps"`
	LostFromReachableCutsRps float64 `json:"lostFromReachableCutsRps"`
}

type BrokenPath struct {
	Path    []string `json:"path"`
	PathRps float64  `json:"pathRps"`
}

type FailureRecommendation struct {
	Type     string `json:"type"`
	Priority string `json:"priority"`
	Target   string `json:"target,omitempty"`
	Reason   string `json:"reason,omitempty"`
	Action   string `json:"action,omitempty"`

	Description string `json:"description,omitempty"`
}

type ScalingModel struct {
	Type  string   `json:"type"`
	Alpha *float64 `json:"alpha,omitempty"`
}

type ScalingSimulationRequest struct {
	ServiceId     string        `json:"serviceId"`
	CurrentPods   int           `json:"currentPods"`
	NewPods       int           `json:"newPods"`
	LatencyMetric string        `json:"latencyMetric,omitempty"`
	Model         *ScalingModel `json:"model,omitempty"`
	MaxDepth      int           `json:"maxDepth,omitempty"`
	TimeWindow    string        `json:"timeWindow,omitempty"`
}

type ScalingLatencyEstimate struct {
	Description string   `json:"description"`
	BaselineMs  *float64 `json:"baselineMs"`
	ProjectedMs *float64 `json:"projectedMs"`
	DeltaMs     *float64 `json:"deltaMs"`
	Unit        string   `json:"unit"`
}

type AffectedCallerScaling struct {
	ServiceId        string   `json:"serviceId"`
	Name             string   `json:"name"`
	Namespace        string   `json:"namespace"`
	HopDistance      int      `json:"hopDistance"`
	BeforeMs         *float64 `json:"beforeMs"`
	AfterMs          *float64 `json:"afterMs"`
	DeltaMs          *float64 `json:"deltaMs"`
	EndToEndBeforeMs *float64 `json:"endToEndBeforeMs"`
	EndToEndAfterMs  *float64 `json:"endToEndAfterMs"`
	EndToEndDeltaMs  *float64 `json:"endToEndDeltaMs"`
	ViaPath          []string `json:"viaPath"`
}

type AffectedPathScaling struct {
	Path           []string `json:"path"`
	PathRps        float64  `json:"pathRps"`
	BeforeMs       *float64 `json:"beforeMs"`
	AfterMs        *float64 `json:"afterMs"`
	DeltaMs        *float64 `json:"deltaMs"`
	IncompleteData bool     `json:"incompleteData"`
}

type ScalingSimulationResult struct {
	Target           ServiceRef              `json:"target"`
	Neighborhood     NeighborhoodMeta        `json:"neighborhood"`
	DataFreshness    *DataFreshness          `json:"dataFreshness"`
	Confidence       string                  `json:"confidence"`
	Explanation      string                  `json:"explanation,omitempty"`
	Warnings         []string                `json:"warnings,omitempty"`
	LatencyMetric    string                  `json:"latencyMetric"`
	ScalingModel     ScalingModel            `json:"scalingModel"`
	CurrentPods      int                     `json:"currentPods"`
	NewPods          int                     `json:"newPods"`
	LatencyEstimate  ScalingLatencyEstimate  `json:"latencyEstimate"`
	ScalingDirection string                  `json:"scalingDirection"`
	AffectedCallers  AffectedCallersList     `json:"affectedCallers"`
	AffectedPaths    []AffectedPathScaling   `json:"affectedPaths"`
	Recommendations  []FailureRecommendation `json:"recommendations"`
}

type AffectedCallersList struct {
	Description string                  `json:"description"`
	Items       []AffectedCallerScaling `json:"items"`
}
