package service

import (
	"fmt"
	"strings"
	"time"

	"receipt-ledger/internal/dto"
	"receipt-ledger/internal/models"

	"github.com/shopspring/decimal"
)

// headerLinesChecked is how many leading lines are expected to be headers.
const headerLinesChecked = 5

// TextEdit is a parsed text-format edit. Nil header fields keep the stored value.
type TextEdit struct {
	ReceiptID    string
	StoreName    *string
	Date         *string
	TotalPrice   *decimal.Decimal
	CurrencyCode *string
	Items        []models.LineItem
	// UnknownCategories lists item categories that were replaced by Other.
	UnknownCategories []string
}

// ParseTextEdit reads the simple edit format:
//
//	Ref: <id>
//	Store: <name>
//	Date: YYYY-MM-DD
//	Total: <number>
//	Currency: <code>
//	Name; Price; Category; [Quantity; Unit]
//
// Every problem found is reported together and rejects the whole edit.
func ParseTextEdit(text string) (*TextEdit, error) {
	edit := &TextEdit{Items: []models.LineItem{}}
	var problems []string

	lines := strings.Split(strings.TrimSpace(text), "\n")
	var itemLines []string
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if strings.Contains(trimmed, ";") {
			itemLines = lines[i:]
			break
		}

		key, value, ok := strings.Cut(trimmed, ":")
		if !ok {
			problems = append(problems, fmt.Sprintf("Unexpected line (expected a header or an item): '%s'", trimmed))
			continue
		}
		value = strings.TrimSpace(value)

		switch strings.ToLower(strings.TrimSpace(key)) {
		case "ref":
			edit.ReceiptID = value
		case "store":
			edit.StoreName = &value
		case "date":
			if _, err := time.Parse(models.DateLayout, value); err != nil {
				problems = append(problems, fmt.Sprintf("Invalid format for Date: '%s'. Must be YYYY-MM-DD.", value))
				continue
			}
			edit.Date = &value
		case "total":
			total, err := decimal.NewFromString(value)
			if err != nil {
				problems = append(problems, fmt.Sprintf("Invalid format for Total Price: '%s'. Must be a number.", value))
				continue
			}
			edit.TotalPrice = &total
		case "currency":
			code := strings.ToUpper(value)
			edit.CurrencyCode = &code
		default:
			if i < headerLinesChecked {
				problems = append(problems, fmt.Sprintf("Unrecognized header line (or misplaced item): '%s'", trimmed))
			} else {
				problems = append(problems, fmt.Sprintf("Unexpected line after headers: '%s'", trimmed))
			}
		}
	}

	if edit.ReceiptID == "" {
		problems = append(problems, "`Ref: <ID>` line is missing or improperly formatted.")
	}

	n := 0
	for _, line := range itemLines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		n++
		item, unknown, err := parseItemLine(line, n)
		if err != nil {
			problems = append(problems, err.Error())
			continue
		}
		if unknown != "" {
			edit.UnknownCategories = append(edit.UnknownCategories, unknown)
		}
		edit.Items = append(edit.Items, item)
	}

	if len(problems) > 0 {
		return nil, &ValidationError{Msg: "Found errors in your edit input:\n" + strings.Join(problems, "\n")}
	}
	return edit, nil
}

func parseItemLine(line string, n int) (models.LineItem, string, error) {
	parts := strings.Split(line, ";")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	if len(parts) < 3 {
		return models.LineItem{}, "", fmt.Errorf("Item line %d ('%s') has too few parts. Expected: Name; Price; Category; [Quantity; Unit]", n, truncate(line, 30))
	}

	item := models.LineItem{
		ItemName:          parts[0],
		Quantity:          decimal.NewFromInt(1),
		UnitOfMeasurement: models.DefaultUnit,
	}
	if item.ItemName == "" {
		item.ItemName = fmt.Sprintf("Item %d", n)
	}

	price, err := decimal.NewFromString(parts[1])
	if err != nil {
		return item, "", fmt.Errorf("Item '%s': Invalid price '%s'. Must be a number.", item.ItemName, parts[1])
	}
	item.ItemPrice = &price

	if len(parts) > 3 && parts[3] != "" {
		qty, err := decimal.NewFromString(parts[3])
		if err != nil || !qty.IsPositive() {
			return item, "", fmt.Errorf("Item '%s': Invalid quantity '%s'. Must be a positive number.", item.ItemName, parts[3])
		}
		item.Quantity = qty
	}
	if len(parts) > 4 && parts[4] != "" {
		item.UnitOfMeasurement = parts[4]
	}
	item.PricePerUnit = dto.UnitPrice(item.ItemPrice, item.Quantity)

	category, known := models.NormalizeCategory(parts[2])
	item.GroceryCategory = category
	if !known {
		return item, parts[2], nil
	}
	return item, "", nil
}

// Apply merges the edit over the stored receipt's header values.
func (e *TextEdit) Apply(original *models.Receipt) *dto.ReceiptDraft {
	draft := &dto.ReceiptDraft{
		StoreName:         original.StoreName,
		Date:              original.Date,
		TotalPrice:        original.TotalPrice,
		CurrencyCode:      original.CurrencyCode,
		Items:             e.Items,
		UnknownCategories: e.UnknownCategories,
	}
	if e.StoreName != nil {
		draft.StoreName = *e.StoreName
	}
	if e.Date != nil {
		draft.Date = *e.Date
	}
	if e.TotalPrice != nil {
		draft.TotalPrice = e.TotalPrice
	}
	if e.CurrencyCode != nil {
		draft.CurrencyCode = *e.CurrencyCode
	}
	return draft
}
