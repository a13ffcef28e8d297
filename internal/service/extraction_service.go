package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"receipt-ledger/internal/dto"

	"go.uber.org/zap"
)

const extractionPrompt = `You are an expert assistant specializing in processing grocery receipts.
Analyze the attached image of a grocery receipt, which is primarily in Hebrew.
Extract the requested information, translate Hebrew text to English, categorize every item, and return ALL output as a single well-formed JSON object matching the schema below.

1. Receipt information (English where text is translated):
   - "store_name" (string): the store name translated to English.
   - "date" (string, YYYY-MM-DD): the transaction date.
   - "total_price" (number): the final total paid, or null if not found.
   - "currency_code" (string, optional): "ILS" if the shekel sign is present, otherwise null.
2. Line items (translate names and units to English). For each item:
   - "item_name" (string): the item description translated to English.
   - "item_price" (number): the total price of the line, or null.
   - "grocery_category" (string): exactly one of "Produce", "Dairy & Eggs", "Meat & Seafood", "Bakery", "Pantry Staples", "Frozen Foods", "Beverages (Non-alcoholic)", "Alcohol", "Snacks & Sweets", "Household Supplies", "Personal Care", "Baby Items", "Pet Supplies", "Other". Use "Other" when unsure.
   - "quantity" (number, optional): the quantity, 1 when not stated.
   - "price_per_unit" (number, optional): listed or item_price / quantity, otherwise null.
   - "unit_of_measurement" (string, optional): "kg", "g", "L", "ml", "unit" or "pack". Use "unit" when unknown.

Return only the JSON object, with no explanatory text. Example:
{"store_name": "Example Supermarket", "date": "2024-05-15", "total_price": 138.50, "currency_code": "ILS",
 "items": [{"item_name": "Milk 3%", "item_price": 6.20, "grocery_category": "Dairy & Eggs", "quantity": 1, "price_per_unit": 6.20, "unit_of_measurement": "L"}]}
Use null for genuinely unavailable information.`

// VisionClient is a single multimodal call: image plus instruction in, completion out.
type VisionClient interface {
	Vision(ctx context.Context, image []byte, fileName, mimeType, prompt string) (*Completion, error)
}

type ExtractionService struct {
	client  VisionClient
	timeout time.Duration
	logger  *zap.Logger
}

// NewExtractionService accepts a nil client; Extract then fails with a ConfigurationError.
func NewExtractionService(client VisionClient, timeout time.Duration, logger *zap.Logger) *ExtractionService {
	return &ExtractionService{
		client:  client,
		timeout: timeout,
		logger:  logger,
	}
}

// Extract turns a receipt image into a draft. It never retries.
func (s *ExtractionService) Extract(ctx context.Context, image []byte, fileName, mimeType string) (*dto.ReceiptDraft, error) {
	if s.client == nil {
		return nil, &ConfigurationError{Setting: "GIGACHAT_API_KEY"}
	}
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	completion, err := s.client.Vision(ctx, image, fileName, mimeType, extractionPrompt)
	if err != nil {
		detail := "could not reach the extraction service"
		if errors.Is(err, context.DeadlineExceeded) {
			detail = "the extraction service timed out"
		}
		return nil, &ExtractionError{Kind: ExtractionNetwork, Detail: detail, Err: err}
	}

	text, err := completionText(completion)
	if err != nil {
		return nil, err
	}

	cleaned := CleanJSONOutput(text)
	draft, err := dto.DecodeDraft([]byte(cleaned))
	if err != nil {
		s.logger.Warn("Model returned unparseable receipt data",
			zap.String("raw", truncate(cleaned, 500)),
			zap.Error(err))
		return nil, &ExtractionError{Kind: ExtractionMalformedJSON, Detail: err.Error(), Err: err}
	}

	if len(draft.UnknownCategories) > 0 {
		s.logger.Info("Unknown categories mapped to Other", zap.Strings("categories", draft.UnknownCategories))
	}
	s.logger.Info("Receipt extracted",
		zap.String("store", draft.StoreName),
		zap.Int("items", len(draft.Items)))
	return draft, nil
}

// completionText applies the response checks in order: blocked, no choices,
// truncated without text, empty text.
func completionText(c *Completion) (string, error) {
	if c == nil || len(c.Choices) == 0 {
		return "", &ExtractionError{Kind: ExtractionEmpty, Detail: "the model returned no result"}
	}
	for _, choice := range c.Choices {
		if choice.FinishReason == "blacklist" {
			return "", &ExtractionError{Kind: ExtractionBlocked, Detail: "the request was blocked by the content filter"}
		}
	}

	first := c.Choices[0]
	text := strings.TrimSpace(first.Text)
	if text == "" && first.FinishReason != "" && first.FinishReason != "stop" {
		return "", &ExtractionError{
			Kind:   ExtractionTruncated,
			Detail: fmt.Sprintf("generation stopped early (%s)", first.FinishReason),
		}
	}
	if text == "" {
		return "", &ExtractionError{Kind: ExtractionEmpty, Detail: "the model returned no text"}
	}
	return text, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
