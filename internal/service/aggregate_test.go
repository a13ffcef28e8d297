package service_test

import (
	"testing"

	"receipt-ledger/internal/models"
	"receipt-ledger/internal/service"

	"github.com/shopspring/decimal"
)

func item(category, price string) models.LineItem {
	li := models.LineItem{GroceryCategory: category, Quantity: decimal.NewFromInt(1)}
	if price != "" {
		li.ItemPrice = money(price)
	}
	return li
}

func sampleReceipts() []*models.Receipt {
	return []*models.Receipt{
		{StoreName: "A", TotalPrice: money("10"), CurrencyCode: "", Items: []models.LineItem{item("Produce", "4"), item("Bakery", "6")}},
		{StoreName: "B", TotalPrice: nil, Items: []models.LineItem{item("Produce", "100")}},
		{StoreName: "A", TotalPrice: money("5.5"), CurrencyCode: "ILS", Items: []models.LineItem{item("Produce", "5.5"), item("Alcohol", "")}},
		{StoreName: "", TotalPrice: money("20"), CurrencyCode: "EUR", Items: []models.LineItem{item("", "20")}},
	}
}

func TestAggregateModes(t *testing.T) {
	tests := []struct {
		mode      service.AggregationMode
		breakdown []service.Bucket
	}{
		{mode: service.ModeTotal},
		{mode: service.ModeAverage},
		{mode: service.ModeByStore, breakdown: []service.Bucket{
			{Label: "Unknown Store", Amount: decimal.NewFromInt(20)},
			{Label: "A", Amount: decimal.RequireFromString("15.5")},
		}},
		{mode: service.ModeByCategory, breakdown: []service.Bucket{
			{Label: "Uncategorized", Amount: decimal.NewFromInt(20)},
			{Label: "Produce", Amount: decimal.RequireFromString("9.5")},
			{Label: "Bakery", Amount: decimal.NewFromInt(6)},
		}},
	}

	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			report := service.Aggregate(sampleReceipts(), tt.mode)

			if report.Count != 3 || report.Skipped != 1 {
				t.Errorf("count=%d skipped=%d", report.Count, report.Skipped)
			}
			if !report.Total.Equal(decimal.RequireFromString("35.5")) {
				t.Errorf("total = %s", report.Total)
			}
			if !report.Average.Equal(decimal.RequireFromString("11.83")) {
				t.Errorf("average = %s", report.Average)
			}
			if report.Currency != "ILS" {
				t.Errorf("currency = %q, want first one set", report.Currency)
			}
			if len(report.Breakdown) != len(tt.breakdown) {
				t.Fatalf("breakdown = %v", report.Breakdown)
			}
			for i, want := range tt.breakdown {
				got := report.Breakdown[i]
				if got.Label != want.Label || !got.Amount.Equal(want.Amount) {
					t.Errorf("bucket %d = %s %s, want %s %s", i, got.Label, got.Amount, want.Label, want.Amount)
				}
			}
		})
	}
}

func TestAggregateEmpty(t *testing.T) {
	report := service.Aggregate(nil, service.ModeTotal)
	if !report.Empty() || !report.Average.IsZero() {
		t.Errorf("report = %+v", report)
	}
}

func TestMonthRange(t *testing.T) {
	tests := []struct {
		month, start, end string
		ok                bool
	}{
		{"2024-02", "2024-02-01", "2024-02-29", true},
		{"2023-12", "2023-12-01", "2023-12-31", true},
		{"2023-13", "", "", false},
		{"2023-1", "", "", false},
		{"", "", "", false},
	}
	for _, tt := range tests {
		start, end, err := service.MonthRange(tt.month)
		if (err == nil) != tt.ok {
			t.Errorf("MonthRange(%q) err = %v", tt.month, err)
			continue
		}
		if start != tt.start || end != tt.end {
			t.Errorf("MonthRange(%q) = %s..%s", tt.month, start, end)
		}
	}
}

func TestParseMode(t *testing.T) {
	for in, want := range map[string]service.AggregationMode{
		"total":       service.ModeTotal,
		"category":    service.ModeByCategory,
		"by_store":    service.ModeByStore,
		"avg_receipt": service.ModeAverage,
	} {
		if got, ok := service.ParseMode(in); !ok || got != want {
			t.Errorf("ParseMode(%q) = %s %v", in, got, ok)
		}
	}
	if _, ok := service.ParseMode("median"); ok {
		t.Error("unknown mode accepted")
	}
}
