package dto

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"receipt-ledger/internal/models"

	"github.com/shopspring/decimal"
)

var (
	ErrNotObject    = errors.New("receipt data must be a JSON object")
	ErrTrailingData = errors.New("invalid JSON: extra data after the object")
)

// ReceiptDraft is the validated form of an extracted or user-supplied receipt,
// before it is dated, tagged and persisted.
type ReceiptDraft struct {
	StoreName    string
	Date         string
	TotalPrice   *decimal.Decimal
	CurrencyCode string
	Items        []models.LineItem
	// UnknownCategories lists categories that were not in the closed set and became Other.
	UnknownCategories []string
}

// ParseDraft reads an untyped JSON object into a ReceiptDraft. Missing or
// mistyped fields get defaults: a non-numeric total or price becomes nil,
// quantity defaults to 1, unit to "unit", category to Other.
func ParseDraft(raw map[string]any) (*ReceiptDraft, error) {
	if raw == nil {
		return nil, ErrNotObject
	}

	draft := &ReceiptDraft{
		StoreName:    stringField(raw, "store_name"),
		Date:         stringField(raw, "date"),
		TotalPrice:   numberField(raw, "total_price"),
		CurrencyCode: strings.ToUpper(stringField(raw, "currency_code")),
		Items:        []models.LineItem{},
	}

	rawItems, _ := raw["items"].([]any)
	for i, v := range rawItems {
		obj, ok := v.(map[string]any)
		if !ok {
			continue
		}
		item, known := parseItem(obj, i)
		if !known {
			draft.UnknownCategories = append(draft.UnknownCategories, stringField(obj, "grocery_category"))
		}
		draft.Items = append(draft.Items, item)
	}

	return draft, nil
}

// DecodeDraft parses JSON text into a draft. Syntax errors, trailing data and
// non-object payloads fail.
func DecodeDraft(data []byte) (*ReceiptDraft, error) {
	var v any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return nil, ErrTrailingData
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, ErrNotObject
	}
	return ParseDraft(obj)
}

func parseItem(obj map[string]any, index int) (models.LineItem, bool) {
	item := models.LineItem{
		ItemName:          stringField(obj, "item_name"),
		ItemPrice:         numberField(obj, "item_price"),
		Quantity:          decimal.NewFromInt(1),
		PricePerUnit:      numberField(obj, "price_per_unit"),
		UnitOfMeasurement: stringField(obj, "unit_of_measurement"),
	}
	if item.ItemName == "" {
		item.ItemName = fmt.Sprintf("Item %d", index+1)
	}
	if q := numberField(obj, "quantity"); q != nil && q.IsPositive() {
		item.Quantity = *q
	}
	if item.UnitOfMeasurement == "" {
		item.UnitOfMeasurement = models.DefaultUnit
	}
	if item.PricePerUnit == nil {
		item.PricePerUnit = UnitPrice(item.ItemPrice, item.Quantity)
	}

	category, known := models.NormalizeCategory(stringField(obj, "grocery_category"))
	item.GroceryCategory = category
	if stringField(obj, "grocery_category") == "" {
		known = true
	}
	return item, known
}

// UnitPrice is price/quantity rounded to cents, or nil when either is unusable.
func UnitPrice(price *decimal.Decimal, quantity decimal.Decimal) *decimal.Decimal {
	if price == nil || !quantity.IsPositive() {
		return nil
	}
	ppu := price.DivRound(quantity, 2)
	return &ppu
}

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return strings.TrimSpace(s)
}

func numberField(m map[string]any, key string) *decimal.Decimal {
	var d decimal.Decimal
	switch v := m[key].(type) {
	case float64:
		d = decimal.NewFromFloat(v)
	case json.Number:
		parsed, err := decimal.NewFromString(v.String())
		if err != nil {
			return nil
		}
		d = parsed
	case int:
		d = decimal.NewFromInt(int64(v))
	default:
		return nil
	}
	return &d
}
