package extractor

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"google.golang.org/genai"
)

// receiptPrompt instructs the model to return strict JSON for a single receipt
const receiptPrompt = "You are a receipt parser for small-business expense tracking.\n\n" +
	"Task:\n" +
	"- Read the attached receipt image.\n" +
	"- Output STRICT JSON only (no comments, no trailing commas, no extra text).\n" +
	"- Output a single JSON object.\n\n" +
	"The object must have these fields:\n" +
	"- \"merchant\": string (the shop or vendor name)\n" +
	"- \"total\": number (the grand total paid)\n" +
	"- \"currency\": string (e.g. \"MYR\")\n" +
	"- \"date\": string, ISO format \"YYYY-MM-DD\"\n" +
	"- \"category\": string (a short expense category such as \"Supplies\", \"Food\", \"Transport\")\n\n" +
	"Rules:\n" +
	"- If the date cannot be determined, use an empty string.\n" +
	"- If the currency is not printed, assume \"MYR\".\n" +
	"Return ONLY valid raw JSON.\n" +
	"Do NOT wrap the response in code fences.\n" +
	"Do NOT use ```json or any Markdown.\n" +
	"Output must begin with \"{\" and end with \"}\".\n"

// Gemini extracts receipts using Google's Gemini vision models
type Gemini struct {
	client *genai.Client
	model  string
}

// NewGemini creates a Gemini-backed extractor. The API key comes from the
// environment when apiKey is empty.
func NewGemini(ctx context.Context, apiKey, model string) (*Gemini, error) {
	cfg := &genai.ClientConfig{
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	}
	if apiKey != "" {
		cfg.APIKey = apiKey
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	return &Gemini{client: client, model: model}, nil
}

func (g *Gemini) Extract(ctx context.Context, imageData []byte, mimeType string) (*ExtractedReceipt, error) {
	contents := []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{Text: receiptPrompt},
				{
					InlineData: &genai.Blob{
						MIMEType: mimeType,
						Data:     imageData,
					},
				},
			},
		},
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to generate content: %w", err)
	}

	rawText := resp.Text()
	if rawText == "" {
		return nil, fmt.Errorf("empty response from model")
	}

	return parseReceiptJSON(rawText)
}

// parseReceiptJSON decodes the model output, tolerating Markdown fences the
// model sometimes adds despite instructions
func parseReceiptJSON(raw string) (*ExtractedReceipt, error) {
	clean := cleanModelJSON(raw)

	var payload struct {
		Merchant string  `json:"merchant"`
		Total    float64 `json:"total"`
		Currency string  `json:"currency"`
		Date     string  `json:"date"`
		Category string  `json:"category"`
	}
	if err := json.Unmarshal([]byte(clean), &payload); err != nil {
		return nil, fmt.Errorf("failed to parse model response: %w", err)
	}

	receipt := &ExtractedReceipt{
		Merchant: payload.Merchant,
		Total:    decimal.NewFromFloat(payload.Total),
		Currency: payload.Currency,
		Category: payload.Category,
	}
	if receipt.Currency == "" {
		receipt.Currency = "MYR"
	}
	if payload.Date != "" {
		if d, err := time.Parse("2006-01-02", payload.Date); err == nil {
			receipt.Date = d
		}
	}

	return receipt, nil
}

func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		} else {
			return s
		}
		s = strings.TrimSpace(s)
	}

	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}

	s = strings.TrimSpace(s)

	// Keep only the outermost object when stray text surrounds it
	if start := strings.Index(s, "{"); start != -1 {
		if end := strings.LastIndex(s, "}"); end != -1 && end > start {
			s = strings.TrimSpace(s[start : end+1])
		}
	}

	return s
}
