package service

import (
	"sort"
	"time"

	"receipt-ledger/internal/models"

	"github.com/shopspring/decimal"
)

type AggregationMode string

const (
	ModeTotal      AggregationMode = "total"
	ModeByCategory AggregationMode = "by_category"
	ModeByStore    AggregationMode = "by_store"
	ModeAverage    AggregationMode = "average"
)

const (
	uncategorized = "Uncategorized"
	unknownStore  = "Unknown Store"
)

type Bucket struct {
	Label  string
	Amount decimal.Decimal
}

// Report is the result of one aggregation. Count == 0 means no receipts were found.
type Report struct {
	Mode     AggregationMode
	Scope    models.Scope
	Start    string
	End      string
	Count    int
	Skipped  int
	Total    decimal.Decimal
	Average  decimal.Decimal
	Currency string
	// Breakdown is sorted by amount, largest first.
	Breakdown []Bucket
}

func (r *Report) Empty() bool {
	return r.Count == 0
}

// Aggregate folds receipts into a report. Receipts without a numeric total are
// counted in Skipped and otherwise ignored. Line items without a price do not
// contribute to the category breakdown.
func Aggregate(receipts []*models.Receipt, mode AggregationMode) *Report {
	report := &Report{Mode: mode}
	amounts := map[string]decimal.Decimal{}
	var order []string

	add := func(label string, amount decimal.Decimal) {
		if _, ok := amounts[label]; !ok {
			order = append(order, label)
		}
		amounts[label] = amounts[label].Add(amount)
	}

	for _, r := range receipts {
		if r.TotalPrice == nil {
			report.Skipped++
			continue
		}
		report.Total = report.Total.Add(*r.TotalPrice)
		report.Count++
		if report.Currency == "" {
			report.Currency = r.CurrencyCode
		}

		switch mode {
		case ModeByCategory:
			for _, item := range r.Items {
				if item.ItemPrice == nil {
					continue
				}
				category := item.GroceryCategory
				if category == "" {
					category = uncategorized
				}
				add(category, *item.ItemPrice)
			}
		case ModeByStore:
			store := r.StoreName
			if store == "" {
				store = unknownStore
			}
			add(store, *r.TotalPrice)
		}
	}

	if report.Count > 0 {
		report.Average = report.Total.DivRound(decimal.NewFromInt(int64(report.Count)), 2)
	}
	for _, label := range order {
		report.Breakdown = append(report.Breakdown, Bucket{Label: label, Amount: amounts[label]})
	}
	sort.SliceStable(report.Breakdown, func(i, j int) bool {
		return report.Breakdown[i].Amount.GreaterThan(report.Breakdown[j].Amount)
	})
	return report
}

// ParseMode accepts the mode names and the button aliases used in menus.
func ParseMode(s string) (AggregationMode, bool) {
	switch s {
	case "total", "total_by_date":
		return ModeTotal, true
	case "by_category", "category":
		return ModeByCategory, true
	case "by_store", "store":
		return ModeByStore, true
	case "average", "avg_receipt":
		return ModeAverage, true
	}
	return "", false
}

// MonthRange converts "YYYY-MM" into the first and last day of that month.
func MonthRange(month string) (string, string, error) {
	t, err := time.Parse("2006-01", month)
	if err != nil {
		return "", "", invalidf("Invalid month format. Use YYYY-MM (e.g., 2023-10).")
	}
	last := t.AddDate(0, 1, -1)
	return t.Format(models.DateLayout), last.Format(models.DateLayout), nil
}

// CurrentMonth is the "YYYY-MM" token for now.
func CurrentMonth(now time.Time) string {
	return now.Format("2006-01")
}

// ValidateRange checks both dates and their order.
func ValidateRange(start, end string) error {
	s, err1 := time.Parse(models.DateLayout, start)
	e, err2 := time.Parse(models.DateLayout, end)
	if err1 != nil || err2 != nil {
		return invalidf("Invalid date format. Please use YYYY-MM-DD for both start and end dates.")
	}
	if s.After(e) {
		return invalidf("Start date %s is after end date %s.", start, end)
	}
	return nil
}
