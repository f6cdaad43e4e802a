// Package records serves the raw record listing and CSV file management.
package records

import (
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"pocketmoney/internal/config"
	httpx "pocketmoney/internal/http"
	"pocketmoney/internal/models"
	"pocketmoney/internal/services/recordloader"
	"pocketmoney/internal/services/storage"
)

var (
	loader *recordloader.Loader
	cfg    *config.Config
	store  *storage.Storage
)

// Initialize sets up the records package with required dependencies
func Initialize(l *recordloader.Loader, c *config.Config, s *storage.Storage) {
	loader = l
	cfg = c
	store = s
}

// RegisterRoutes registers all records routes
func RegisterRoutes(r chi.Router) {
	r.Get("/records", handleList)
	r.Get("/records/files", handleFiles)
	r.Post("/records/upload", handleUpload)
	r.Delete("/records/files/{filename}", handleDelete)
}

func handleList(w http.ResponseWriter, r *http.Request) {
	rs, err := loader.Load()
	if err != nil {
		log.Error().Err(err).Msg("failed to load records")
		httpx.Error(w, "failed to load records", http.StatusInternalServerError)
		return
	}

	q := r.URL.Query()

	if kind := q.Get("kind"); kind != "" {
		switch strings.ToLower(kind) {
		case "revenue":
			rs = rs.FilterByKind(models.Revenue)
		case "expense":
			rs = rs.FilterByKind(models.Expense)
		default:
			httpx.Error(w, "unknown kind, want revenue or expense", http.StatusBadRequest)
			return
		}
	}
	if category := q.Get("category"); category != "" {
		rs = rs.FilterByCategory(category)
	}

	rs = rs.SortByDateDesc()
	total := rs.Len()

	page := 1
	if p, err := strconv.Atoi(q.Get("page")); err == nil && p > 0 {
		page = p
	}
	perPage := 50
	if pp, err := strconv.Atoi(q.Get("per_page")); err == nil && pp > 0 && pp <= 500 {
		perPage = pp
	}
	rs = rs.Paginate(page, perPage)

	httpx.JSON(w, http.StatusOK, map[string]interface{}{
		"records":  rs.Records,
		"total":    total,
		"page":     page,
		"per_page": perPage,
		"skipped":  loader.SkippedCount,
	})
}

func handleFiles(w http.ResponseWriter, r *http.Request) {
	files, err := loader.FileInfos()
	if err != nil {
		log.Error().Err(err).Msg("failed to list record files")
		httpx.Error(w, "failed to list files", http.StatusInternalServerError)
		return
	}

	httpx.JSON(w, http.StatusOK, map[string]interface{}{"files": files})
}

func handleUpload(w http.ResponseWriter, r *http.Request) {
	// Parse multipart form (max 10MB)
	if err := r.ParseMultipartForm(10 << 20); err != nil {
		httpx.Error(w, "file too large", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		httpx.Error(w, "error reading file", http.StatusBadRequest)
		return
	}
	defer file.Close()

	if !strings.HasSuffix(strings.ToLower(header.Filename), ".csv") {
		httpx.Error(w, "only CSV files are allowed", http.StatusBadRequest)
		return
	}

	// Use only the base name to prevent path traversal
	filename := filepath.Base(header.Filename)
	if strings.Contains(filename, "..") {
		httpx.Error(w, "invalid filename", http.StatusBadRequest)
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		httpx.Error(w, "error reading file", http.StatusInternalServerError)
		return
	}

	// Write via storage (handles encryption if enabled)
	destPath := filepath.Join(cfg.DataDirectory, filename)
	if err := store.WriteFile(destPath, data, 0644); err != nil {
		log.Error().Err(err).Str("file", filename).Msg("failed to save upload")
		httpx.Error(w, "error saving file", http.StatusInternalServerError)
		return
	}

	log.Info().Str("file", filename).Msg("uploaded record file")

	files, _ := loader.FileInfos()
	httpx.JSON(w, http.StatusCreated, map[string]interface{}{"files": files})
}

func handleDelete(w http.ResponseWriter, r *http.Request) {
	filename := chi.URLParam(r, "filename")

	// URL-decode the filename (handles %20 for spaces, etc.)
	decoded, err := url.PathUnescape(filename)
	if err != nil {
		httpx.Error(w, "invalid filename encoding", http.StatusBadRequest)
		return
	}
	filename = decoded

	// Validate filename (prevent path traversal)
	if strings.Contains(filename, "/") || strings.Contains(filename, "\\") || strings.Contains(filename, "..") {
		httpx.Error(w, "invalid filename", http.StatusBadRequest)
		return
	}

	filePath := filepath.Join(cfg.DataDirectory, filename)

	if _, err := store.Stat(filePath); os.IsNotExist(err) {
		httpx.Error(w, "file not found", http.StatusNotFound)
		return
	}

	if err := store.Remove(filePath); err != nil {
		log.Error().Err(err).Str("file", filename).Msg("failed to delete record file")
		httpx.Error(w, "error deleting file", http.StatusInternalServerError)
		return
	}

	log.Info().Str("file", filename).Msg("deleted record file")

	files, _ := loader.FileInfos()
	httpx.JSON(w, http.StatusOK, map[string]interface{}{"files": files})
}
