package handler

import (
	"encoding/json"
	"net/http"

	"github.com/cyclelog/platform/internal/infra"
)

// HealthHandler returns a health check endpoint. cache may be nil when the
// snapshot cache runs in memory.
func HealthHandler(db infra.Pinger, cache infra.Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := map[string]string{"status": "healthy"}
		code := http.StatusOK

		if err := infra.HealthCheck(r.Context(), db); err != nil {
			status["status"] = "unhealthy"
			status["error"] = err.Error()
			code = http.StatusServiceUnavailable
		}
		if cache != nil {
			if err := infra.HealthCheck(r.Context(), cache); err != nil {
				// Cache outages do not fail the check.
				status["cache"] = "unavailable"
			} else {
				status["cache"] = "ok"
			}
		}

		w.WriteHeader(code)
		json.NewEncoder(w).Encode(status)
	}
}
