package presenter

import (
	"fmt"
	"strings"

	"receipt-ledger/internal/service"
)

// Report renders an aggregation. An empty report says so instead of showing zeros.
func Report(r *service.Report) Message {
	label := ScopeLabel(r.Scope)
	if r.Empty() {
		return plain(fmt.Sprintf("No receipts found %s between %s and %s.", label, r.Start, r.End))
	}

	total := withCurrency(r.Total.StringFixed(2), r.Currency)
	var b strings.Builder
	switch r.Mode {
	case service.ModeByCategory, service.ModeByStore:
		what, none := "category", "No categorized items found."
		if r.Mode == service.ModeByStore {
			what, none = "store", "No store data found."
		}
		fmt.Fprintf(&b, "Spending by %s %s (Total: %s):", what, label, total)
		if len(r.Breakdown) == 0 {
			b.WriteString("\n" + none)
		}
		for _, bucket := range r.Breakdown {
			fmt.Fprintf(&b, "\n- %s: %s", bucket.Label, bucket.Amount.StringFixed(2))
		}
	case service.ModeAverage:
		fmt.Fprintf(&b, "Average receipt value %s (%d receipts): %s",
			label, r.Count, withCurrency(r.Average.StringFixed(2), r.Currency))
	default:
		fmt.Fprintf(&b, "Total spent %s (%d receipts): %s", label, r.Count, total)
	}

	if r.Skipped > 0 {
		fmt.Fprintf(&b, "\n(%d receipt(s) without a valid total were skipped.)", r.Skipped)
	}
	return plain(b.String())
}
