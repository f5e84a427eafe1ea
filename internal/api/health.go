package api

import (
	"net/http"
	"runtime"
	"time"

	"umlreg/internal/version"
)

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Version   string            `json:"version"`
	Uptime    string            `json:"uptime"`
	Models    *ModelHealthInfo  `json:"models"`
	Memory    *MemoryHealthInfo `json:"memory,omitempty"`
	Warnings  []string          `json:"warnings,omitempty"`
}

// ModelHealthInfo counts the published models by outcome
type ModelHealthInfo struct {
	Published  int `json:"published"`
	Loaded     int `json:"loaded"`
	Failed     int `json:"failed"`
	WithErrors int `json:"withErrors"`
}

// MemoryHealthInfo contains memory usage information
type MemoryHealthInfo struct {
	AllocMB      float64 `json:"allocMb"`
	SysMB        float64 `json:"sysMb"`
	NumGC        uint32  `json:"numGc"`
	NumGoroutine int     `json:"numGoroutine"`
}

// handleHealth reports liveness plus a summary of the cache. A model that
// failed to load degrades the status but the endpoint still answers 200.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Version:   version.Version,
		Uptime:    time.Since(s.started).Round(time.Second).String(),
		Models:    &ModelHealthInfo{},
	}

	for _, info := range s.registry.Models() {
		response.Models.Published++
		switch {
		case !info.Loaded():
			response.Models.Failed++
			response.Warnings = append(response.Warnings, "model "+info.Meta.Name+" failed to load")
		case info.Summary.Errors > 0:
			response.Models.Loaded++
			response.Models.WithErrors++
		default:
			response.Models.Loaded++
		}
	}
	if response.Models.Failed > 0 {
		response.Status = "degraded"
	}

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)
	response.Memory = &MemoryHealthInfo{
		AllocMB:      float64(memStats.Alloc) / 1024 / 1024,
		SysMB:        float64(memStats.Sys) / 1024 / 1024,
		NumGC:        memStats.NumGC,
		NumGoroutine: runtime.NumGoroutine(),
	}

	WriteJSON(w, response, http.StatusOK)
}
