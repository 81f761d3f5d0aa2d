package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// HealthStatus represents the overall health of the system
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusDegraded  HealthStatus = "degraded"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
)

// ComponentStatus represents the health of an individual component
type ComponentStatus string

const (
	ComponentStatusUp       ComponentStatus = "up"
	ComponentStatusDown     ComponentStatus = "down"
	ComponentStatusDegraded ComponentStatus = "degraded"
	ComponentStatusSkipped  ComponentStatus = "skipped"
)

// Health represents the complete health check response
type Health struct {
	Status     HealthStatus               `json:"status"`
	Timestamp  time.Time                  `json:"timestamp"`
	Version    string                     `json:"version,omitempty"`
	Hostname   string                     `json:"hostname,omitempty"`
	Components map[string]ComponentHealth `json:"components"`
}

// ComponentHealth represents the health of a single system component
type ComponentHealth struct {
	Status    ComponentStatus `json:"status"`
	Message   string          `json:"message,omitempty"`
	LatencyMs float64         `json:"latency_ms,omitempty"`
}

// storageLatencyBudget marks storage degraded when BucketExists is slower.
const storageLatencyBudget = 2 * time.Second

// HandleHealth reports per-component health as JSON.
func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	health := s.checkHealth(r.Context())

	statusCode := http.StatusOK
	if health.Status == HealthStatusUnhealthy {
		statusCode = http.StatusServiceUnavailable
	}
	writeJSON(w, statusCode, health)
}

// HandleReady is the readiness probe: ready unless a component is down.
func (s *Server) HandleReady(w http.ResponseWriter, r *http.Request) {
	health := s.checkHealth(r.Context())
	if health.Status == HealthStatusUnhealthy {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not_ready"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// HandleLive provides a liveness probe (is the process running?)
func (s *Server) HandleLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

func (s *Server) checkHealth(ctx context.Context) Health {
	health := Health{
		Timestamp:  time.Now(),
		Version:    s.cfg.Build.Version,
		Hostname:   s.cfg.Hostname,
		Components: map[string]ComponentHealth{},
	}
	health.Components["storage"] = s.checkStorageHealth(ctx)
	health.Status = determineOverallHealth(health.Components)
	return health
}

// checkStorageHealth probes the default bucket. Without one there is
// nothing meaningful to probe, since buckets are chosen per upload.
func (s *Server) checkStorageHealth(ctx context.Context) ComponentHealth {
	if s.cfg.DefaultBucket == "" {
		return ComponentHealth{Status: ComponentStatusSkipped, Message: "no default bucket configured"}
	}

	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	exists, err := s.store.BucketExists(ctx, s.cfg.DefaultBucket)
	if err != nil {
		return ComponentHealth{Status: ComponentStatusDown, Message: "storage unreachable"}
	}
	if !exists {
		return ComponentHealth{Status: ComponentStatusDown, Message: "bucket does not exist: " + s.cfg.DefaultBucket}
	}

	latency := time.Since(start)
	ch := ComponentHealth{
		Status:    ComponentStatusUp,
		Message:   "storage healthy",
		LatencyMs: float64(latency.Milliseconds()),
	}
	if latency > storageLatencyBudget {
		ch.Status = ComponentStatusDegraded
		ch.Message = "storage latency high"
	}
	return ch
}

// determineOverallHealth calculates overall health from component statuses
func determineOverallHealth(components map[string]ComponentHealth) HealthStatus {
	var downCount, degradedCount int
	for _, component := range components {
		switch component.Status {
		case ComponentStatusDown:
			downCount++
		case ComponentStatusDegraded:
			degradedCount++
		}
	}

	if downCount > 0 {
		return HealthStatusUnhealthy
	}
	if degradedCount > 0 {
		return HealthStatusDegraded
	}
	return HealthStatusHealthy
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
