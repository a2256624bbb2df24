package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"predictive-analysis-engine/pkg/analysis"
	"predictive-analysis-engine/pkg/clients/graph"
	"predictive-analysis-engine/pkg/config"
	"predictive-analysis-engine/pkg/errs"
	"predictive-analysis-engine/pkg/logger"
	"predictive-analysis-engine/pkg/simulation"
)

type Handler struct {
	Config      *config.Config
	GraphClient *graph.Client
	SimService  *simulation.Service
	StartTime   time.Time
}

func NewHandler(cfg *config.Config, graphClient *graph.Client, simService *simulation.Service) *Handler {
	return &Handler{
		Config:      cfg,
		GraphClient: graphClient,
		SimService:  simService,
		StartTime:   time.Now(),
	}
}

func (h *Handler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	uptimeSeconds := time.Since(h.StartTime).Seconds()
	uptimeSeconds = float64(int(uptimeSeconds*10)) / 10.0

	ctx := r.Context()
	graphHealth, err := h.GraphClient.CheckHealth(ctx)

	status := "ok"
	var graphAPI interface{}

	if err == nil {
		graphAPI = map[string]interface{}{
			"connected":             true,
			"status":                graphHealth.Status,
			"stale":                 graphHealth.Stale,
			"lastUpdatedSecondsAgo": graphHealth.LastUpdatedSecondsAgo,
			"baseUrl":               h.Config.GraphAPI.BaseURL,
			"timeoutMs":             h.Config.GraphAPI.TimeoutMs,
		}
		if graphHealth.Stale {
			status = "degraded"
		}
	} else {
		status = "degraded"
		graphAPI = map[string]interface{}{
			"connected": false,
			"error":     err.Error(),
			"baseUrl":   h.Config.GraphAPI.BaseURL,
			"timeoutMs": h.Config.GraphAPI.TimeoutMs,
		}
	}

	resp := map[string]interface{}{
		"status":   status,
		"provider": "graph-engine",
		"graphApi": graphAPI,
		"config": map[string]interface{}{
			"maxTraversalDepth":    h.Config.Simulation.MaxTraversalDepth,
			"defaultLatencyMetric": h.Config.Simulation.DefaultLatencyMetric,
		},
		"telemetry": map[string]interface{}{
			"enabled":       h.Config.Telemetry.Enabled,
			"workerEnabled": h.Config.TelemetryWorker.Enabled,
		},
		"uptimeSeconds": uptimeSeconds,
	}

	respondJSON(w, http.StatusOK, resp)
}

// ServicesHandler fetches the service list and the source's health in
// parallel via errgroup — neither call needs the other to
// short-circuit, so they run concurrently under the request's context.
func (h *Handler) ServicesHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var services []graph.ServiceInfo
	var health *graph.HealthResponse

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s, err := h.GraphClient.GetServices(gctx)
		services = s
		return err
	})
	g.Go(func() error {
		hr, _ := h.GraphClient.CheckHealth(gctx)
		health = hr
		return nil // health failure degrades the response, it never fails the request
	})

	svcErr := g.Wait()

	stale := true
	var lastUpdated *int
	windowMinutes := 5
	if health != nil {
		stale = health.Stale
		lastUpdated = &health.LastUpdatedSecondsAgo
		windowMinutes = health.WindowMinutes
	}

	if svcErr != nil {
		logger.Error("failed to fetch services", svcErr)
		respondJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"error":                 svcErr.Error(),
			"services":              []interface{}{},
			"count":                 0,
			"stale":                 true,
			"lastUpdatedSecondsAgo": nil,
			"windowMinutes":         windowMinutes,
		})
		return
	}

	type ServiceItem struct {
		ServiceId    string                 `json:"serviceId"`
		Name         string                 `json:"name"`
		Namespace    string                 `json:"namespace"`
		PodCount     int                    `json:"podCount"`
		Availability float64                `json:"availability"`
		Placement    graph.ServicePlacement `json:"placement"`
	}

	items := make([]ServiceItem, 0, len(services))
	for _, s := range services {
		items = append(items, ServiceItem{
			ServiceId:    fmt.Sprintf("%s:%s", s.Namespace, s.Name),
			Name:         s.Name,
			Namespace:    s.Namespace,
			PodCount:     s.PodCount,
			Availability: s.Availability,
			Placement:    s.Placement,
		})
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":                 len(items),
		"services":              items,
		"stale":                 stale,
		"lastUpdatedSecondsAgo": lastUpdated,
		"windowMinutes":         windowMinutes,
	})
}

func (h *Handler) TopRiskHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	metric := r.URL.Query().Get("metric")
	if metric == "" {
		metric = "pagerank"
	}

	limitStr := r.URL.Query().Get("limit")
	limit := 5
	if limitStr != "" {
		fmt.Sscanf(limitStr, "%d", &limit)
		if limit < 1 {
			limit = 1
		}
		if limit > 20 {
			limit = 20
		}
	}

	result, err := analysis.GetTopRiskServices(ctx, h.GraphClient, metric, limit)
	if err != nil {
		writeClassifiedError(w, "risk analysis", err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

func (h *Handler) SimulateFailureHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req simulation.FailureSimulationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.SimService.RunFailureSimulation(ctx, req)
	if err != nil {
		writeClassifiedError(w, "failure simulation", err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

func (h *Handler) SimulateScalingHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req simulation.ScalingSimulationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.SimService.RunScalingSimulation(ctx, req)
	if err != nil {
		writeClassifiedError(w, "scaling simulation", err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// writeClassifiedError maps a classified errs.Error to its HTTP status
// and a safe message; anything else surfaces as a generic 500 so
// internal details never leak to the client.
func writeClassifiedError(w http.ResponseWriter, logContext string, err error) {
	if e, ok := errs.As(err); ok {
		respondError(w, e.HTTPStatus(), e.Error())
		return
	}
	logger.Error(logContext+" failed", err)
	respondError(w, http.StatusInternalServerError, "internal server error")
}
