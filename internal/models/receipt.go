package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const DateLayout = "2006-01-02"

const (
	CategoryOther = "Other"
	DefaultUnit   = "unit"
)

// GroceryCategories is the closed category vocabulary for line items.
var GroceryCategories = []string{
	"Produce",
	"Dairy & Eggs",
	"Meat & Seafood",
	"Bakery",
	"Pantry Staples",
	"Frozen Foods",
	"Beverages (Non-alcoholic)",
	"Alcohol",
	"Snacks & Sweets",
	"Household Supplies",
	"Personal Care",
	"Baby Items",
	"Pet Supplies",
	CategoryOther,
}

// NormalizeCategory maps a category onto the closed vocabulary, case-insensitively.
// The second result is false when the input was unknown and Other was substituted.
func NormalizeCategory(s string) (string, bool) {
	s = strings.TrimSpace(s)
	for _, c := range GroceryCategories {
		if strings.EqualFold(c, s) {
			return c, true
		}
	}
	return CategoryOther, false
}

type LineItem struct {
	ItemName          string           `json:"item_name"`
	ItemPrice         *decimal.Decimal `json:"item_price"`
	GroceryCategory   string           `json:"grocery_category"`
	Quantity          decimal.Decimal  `json:"quantity"`
	PricePerUnit      *decimal.Decimal `json:"price_per_unit"`
	UnitOfMeasurement string           `json:"unit_of_measurement"`
}

type Receipt struct {
	ID               string           `db:"id"`
	StoreName        string           `db:"store_name"`
	Date             string           `db:"date"`
	TotalPrice       *decimal.Decimal `db:"total_price"`
	CurrencyCode     string           `db:"currency_code"`
	Items            []LineItem       `db:"items"`
	TelegramUserID   string           `db:"telegram_user_id"`
	GroupID          *string          `db:"group_id"`
	UploadTimestamp  time.Time        `db:"upload_timestamp"`
	LastUpdatedAt    time.Time        `db:"last_updated_at"`
	IsVerifiedByUser bool             `db:"is_verified_by_user"`
	EditedBy         *string          `db:"edited_by"`
}

func (r *Receipt) Group() string {
	if r.GroupID == nil {
		return ""
	}
	return *r.GroupID
}
