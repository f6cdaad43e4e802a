// Package analytics exposes the period analytics over JSON and plain text.
package analytics

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	httpx "pocketmoney/internal/http"
	"pocketmoney/internal/models"
	"pocketmoney/internal/services/analytics"
	"pocketmoney/internal/services/recordloader"
	"pocketmoney/internal/services/report"
)

var (
	loader    *recordloader.Loader
	service   *analytics.Service
	formatter *report.Formatter
	exportDir string
)

// Initialize sets up the analytics package with required dependencies
func Initialize(l *recordloader.Loader, s *analytics.Service, f *report.Formatter, exportsDirectory string) {
	loader = l
	service = s
	formatter = f
	exportDir = exportsDirectory
}

// RegisterRoutes registers all analytics routes
func RegisterRoutes(r chi.Router) {
	r.Get("/analytics/snapshot", handleSnapshot)
	r.Get("/analytics/chart", handleChart)
	r.Get("/analytics/categories", handleCategories)
	r.Get("/analytics/customers", handleCustomers)
	r.Get("/analytics/report", handleReport)
	r.Get("/analytics/report/export", handleReportExport)
}

// aggregate runs the full pipeline for the request's period and reference
// instant. A nil result means the error response has already been written.
func aggregate(w http.ResponseWriter, r *http.Request) *models.AnalyticsResult {
	period, err := httpx.ParsePeriod(r)
	if err != nil {
		httpx.Error(w, err.Error(), http.StatusBadRequest)
		return nil
	}

	now, err := httpx.ParseNow(r)
	if err != nil {
		httpx.Error(w, "invalid now parameter, use RFC3339 or YYYY-MM-DD", http.StatusBadRequest)
		return nil
	}

	rs, err := loader.Load()
	if err != nil {
		log.Error().Err(err).Msg("failed to load records")
		httpx.Error(w, "failed to load records", http.StatusInternalServerError)
		return nil
	}

	return service.Aggregate(rs.Records, period, now)
}

func handleSnapshot(w http.ResponseWriter, r *http.Request) {
	result := aggregate(w, r)
	if result == nil {
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]interface{}{
		"period":   result.Period,
		"interval": result.Interval,
		"snapshot": result.Snapshot,
		"skipped":  result.Skipped,
	})
}

func handleChart(w http.ResponseWriter, r *http.Request) {
	result := aggregate(w, r)
	if result == nil {
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]interface{}{
		"period":  result.Period,
		"buckets": result.Buckets,
	})
}

func handleCategories(w http.ResponseWriter, r *http.Request) {
	result := aggregate(w, r)
	if result == nil {
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]interface{}{
		"period":     result.Period,
		"categories": result.Categories,
	})
}

func handleCustomers(w http.ResponseWriter, r *http.Request) {
	result := aggregate(w, r)
	if result == nil {
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]interface{}{
		"period":    result.Period,
		"customers": result.Customers,
	})
}

func handleReport(w http.ResponseWriter, r *http.Request) {
	result := aggregate(w, r)
	if result == nil {
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte(formatter.Format(result)))
}

func handleReportExport(w http.ResponseWriter, r *http.Request) {
	result := aggregate(w, r)
	if result == nil {
		return
	}

	text := formatter.Format(result)
	filename := fmt.Sprintf("%s-report-%s.txt", result.Period, time.Now().Format("20060102_150405"))

	// Keep a plaintext copy under exports for later sharing
	if exportDir != "" {
		path := filepath.Join(exportDir, filename)
		if err := os.WriteFile(path, []byte(text), 0644); err != nil {
			log.Warn().Err(err).Str("path", path).Msg("could not save report export")
		}
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	w.Write([]byte(text))
}
