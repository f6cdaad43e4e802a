// Package backup provides health, backup and restore endpoints.
package backup

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"pocketmoney/internal/config"
	httpx "pocketmoney/internal/http"
	"pocketmoney/internal/services/storage"
	"pocketmoney/internal/version"
)

var (
	cfg   *config.Config
	store *storage.Storage
)

// Initialize sets up the backup package with required dependencies
func Initialize(c *config.Config, s *storage.Storage) {
	cfg = c
	store = s
}

// RegisterRoutes registers all backup routes
func RegisterRoutes(r chi.Router) {
	r.Get("/api/health", HandleHealth)
	r.Get("/api/backup", HandleBackup)
	r.Post("/api/restore", HandleRestore)
}

func HandleHealth(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": version.Version,
	})
}

func HandleBackup(w http.ResponseWriter, r *http.Request) {
	timestamp := time.Now().Format("20060102_150405")
	filename := fmt.Sprintf("pocketmoney_backup_%s.zip", timestamp)

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))

	zw := zip.NewWriter(w)
	defer zw.Close()

	// Walk the data directory
	dataDir := cfg.DataDirectory
	err := filepath.Walk(dataDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}

		// Skip encryption marker and verify files
		base := filepath.Base(path)
		if base == ".encrypted" || base == ".encryption-verify" {
			return nil
		}

		relPath, err := filepath.Rel(dataDir, path)
		if err != nil {
			return err
		}

		f, err := zw.Create(relPath)
		if err != nil {
			return err
		}

		// Read via storage so backup entries are always plaintext
		file, err := store.OpenFile(path)
		if err != nil {
			return err
		}
		defer file.Close()

		_, err = io.Copy(f, file)
		return err
	})

	if err != nil {
		// Headers are already written, the failure can only be logged
		log.Error().Err(err).Msg("error creating backup")
	}
}

func HandleRestore(w http.ResponseWriter, r *http.Request) {
	// Parse multipart form (max 50MB for backup files)
	if err := r.ParseMultipartForm(50 << 20); err != nil {
		httpx.Error(w, "file too large", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		httpx.Error(w, "error reading file", http.StatusBadRequest)
		return
	}
	defer file.Close()

	if !strings.HasSuffix(strings.ToLower(header.Filename), ".zip") {
		httpx.Error(w, "only ZIP backup files are allowed", http.StatusBadRequest)
		return
	}

	content, err := io.ReadAll(file)
	if err != nil {
		httpx.Error(w, "error reading file", http.StatusInternalServerError)
		return
	}

	zipReader, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		httpx.Error(w, "invalid ZIP file", http.StatusBadRequest)
		return
	}

	restoredCount := 0
	for _, zipFile := range zipReader.File {
		if zipFile.FileInfo().IsDir() {
			continue
		}
		if !strings.HasSuffix(strings.ToLower(zipFile.Name), ".csv") {
			continue
		}

		// Use only the base name to prevent path traversal
		baseName := filepath.Base(zipFile.Name)
		if strings.Contains(baseName, "..") {
			continue
		}

		rc, err := zipFile.Open()
		if err != nil {
			log.Warn().Err(err).Str("entry", zipFile.Name).Msg("error opening zip entry")
			continue
		}

		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			log.Warn().Err(err).Str("entry", zipFile.Name).Msg("error reading zip entry")
			continue
		}

		// Write via storage (handles encryption if enabled)
		destPath := filepath.Join(cfg.DataDirectory, baseName)
		if err := store.WriteFile(destPath, data, 0644); err != nil {
			log.Warn().Err(err).Str("file", destPath).Msg("error writing file")
			continue
		}

		restoredCount++
		log.Info().Str("file", baseName).Msg("restored file")
	}

	if restoredCount == 0 {
		httpx.Error(w, "no CSV files found in backup", http.StatusBadRequest)
		return
	}

	log.Info().Int("count", restoredCount).Msg("restore complete")
	httpx.JSON(w, http.StatusOK, map[string]interface{}{"restored": restoredCount})
}
