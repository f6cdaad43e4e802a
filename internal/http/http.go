// Package http holds small helpers shared by the JSON handlers.
package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"pocketmoney/internal/models"
)

// JSON writes a JSON response with the given status code
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode JSON response")
	}
}

// Error writes a JSON error response
func Error(w http.ResponseWriter, message string, status int) {
	log.Warn().Int("status", status).Msg(message)
	JSON(w, status, map[string]string{"error": message})
}

// ParsePeriod reads the period query parameter, defaulting to month
func ParsePeriod(r *http.Request) (models.ReportPeriod, error) {
	return models.ParsePeriod(r.URL.Query().Get("period"))
}

// ParseNow reads the optional now query parameter so responses can be pinned
// to a reference instant. Absent, the server clock is used.
func ParseNow(r *http.Request) (time.Time, error) {
	raw := r.URL.Query().Get("now")
	if raw == "" {
		return time.Now(), nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.ParseInLocation("2006-01-02", raw, time.Local)
}
