// Package extractor turns receipt images into structured monetary records.
// The extraction backend is pluggable so handlers and tests never depend on
// a live model endpoint.
package extractor

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// ExtractedReceipt is the structured result of scanning a receipt image
type ExtractedReceipt struct {
	Merchant string          `json:"merchant"`
	Total    decimal.Decimal `json:"total"`
	Currency string          `json:"currency"`
	Date     time.Time       `json:"date"`
	Category string          `json:"category"`
}

// ReceiptExtractor extracts structured data from a receipt image
type ReceiptExtractor interface {
	Extract(ctx context.Context, imageData []byte, mimeType string) (*ExtractedReceipt, error)
}

// Static returns a fixed receipt for every image. Used in tests and when no
// extraction backend is configured.
type Static struct {
	Receipt ExtractedReceipt
	Err     error
}

func (s *Static) Extract(ctx context.Context, imageData []byte, mimeType string) (*ExtractedReceipt, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	r := s.Receipt
	return &r, nil
}
