package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/lyzr/haystack/common/store"
)

// HealthChecker reports component health. *bootstrap.Components satisfies it.
type HealthChecker interface {
	Health(ctx context.Context) error
	Partitions() []store.PartitionStatus
}

// CacheStatsReporter is optionally implemented by a HealthChecker whose
// cache keeps counters.
type CacheStatsReporter interface {
	CacheStats() map[string]interface{}
}

// HealthResponse is the body of the health endpoint
type HealthResponse struct {
	Status     string                  `json:"status"`
	Service    string                  `json:"service"`
	Error      string                  `json:"error,omitempty"`
	Partitions []store.PartitionStatus `json:"partitions,omitempty"`
	Cache      map[string]interface{}  `json:"cache,omitempty"`
}

// HealthHandler returns the health check handler. The cache must answer;
// fatal store partitions are listed but only degrade the status.
func HealthHandler(service string, checker HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		resp := HealthResponse{
			Status:     "ok",
			Service:    service,
			Partitions: checker.Partitions(),
		}
		code := http.StatusOK

		if reporter, ok := checker.(CacheStatsReporter); ok {
			resp.Cache = reporter.CacheStats()
		}

		for _, p := range resp.Partitions {
			if !p.Available {
				resp.Status = "degraded"
				break
			}
		}

		if err := checker.Health(ctx); err != nil {
			resp.Status = "unhealthy"
			resp.Error = err.Error()
			code = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		json.NewEncoder(w).Encode(resp)
	}
}
