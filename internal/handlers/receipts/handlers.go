// Package receipts accepts receipt images and returns extracted records.
package receipts

import (
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	httpx "pocketmoney/internal/http"
	"pocketmoney/internal/services/extractor"
	"pocketmoney/internal/services/storage"
)

var (
	ext        extractor.ReceiptExtractor
	store      *storage.Storage
	uploadsDir string
)

// Initialize sets up the receipts package with the extraction backend
// and the directory scanned images are archived to. A nil extractor
// disables the scan endpoint.
func Initialize(e extractor.ReceiptExtractor, s *storage.Storage, uploadsDirectory string) {
	ext = e
	store = s
	uploadsDir = uploadsDirectory
}

// RegisterRoutes registers all receipts routes
func RegisterRoutes(r chi.Router) {
	r.Post("/receipts/scan", handleScan)
}

var allowedImageTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

func handleScan(w http.ResponseWriter, r *http.Request) {
	if ext == nil {
		httpx.Error(w, "receipt extraction is not configured", http.StatusServiceUnavailable)
		return
	}

	// Parse multipart form (max 10MB)
	if err := r.ParseMultipartForm(10 << 20); err != nil {
		httpx.Error(w, "file too large", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		httpx.Error(w, "error reading image", http.StatusBadRequest)
		return
	}
	defer file.Close()

	mimeType := header.Header.Get("Content-Type")
	if idx := strings.Index(mimeType, ";"); idx != -1 {
		mimeType = strings.TrimSpace(mimeType[:idx])
	}
	imageExt, ok := allowedImageTypes[mimeType]
	if !ok {
		httpx.Error(w, "unsupported image type, want JPEG, PNG or WebP", http.StatusBadRequest)
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		httpx.Error(w, "error reading image", http.StatusInternalServerError)
		return
	}

	receipt, err := ext.Extract(r.Context(), data, mimeType)
	if err != nil {
		log.Error().Err(err).Msg("receipt extraction failed")
		httpx.Error(w, "extraction failed", http.StatusBadGateway)
		return
	}

	log.Info().Str("merchant", receipt.Merchant).Str("total", receipt.Total.String()).Msg("extracted receipt")

	// Archive the original image alongside the extraction for later review.
	// A failed write is logged but does not fail the scan.
	id := uuid.NewString()
	imageName := id + imageExt
	if err := store.WriteFile(filepath.Join(uploadsDir, imageName), data, 0644); err != nil {
		log.Error().Err(err).Str("file", imageName).Msg("failed to archive receipt image")
		imageName = ""
	}

	httpx.JSON(w, http.StatusOK, map[string]interface{}{
		"id":      id,
		"image":   imageName,
		"receipt": receipt,
	})
}
