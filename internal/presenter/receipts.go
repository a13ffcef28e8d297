package presenter

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"receipt-ledger/internal/bot/action"
	"receipt-ledger/internal/models"
	"receipt-ledger/internal/service"

	"github.com/shopspring/decimal"
)

const (
	buttonTextLimit = 60
	buttonStoreName = 20

	// Field caps for the summary shown when a full receipt does not fit.
	summaryStoreName = 100
	summaryTotal     = 40
)

func amount(d *decimal.Decimal) string {
	if d == nil {
		return "N/A"
	}
	return d.StringFixed(2)
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

// withCurrency joins an amount and an optional currency code.
func withCurrency(value, currency string) string {
	if currency == "" {
		return value
	}
	return value + " " + currency
}

// FormatReceipt renders the full receipt with its items in MarkdownV2.
func FormatReceipt(r *models.Receipt, title string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "🧾 %s \\(Ref: %s\\)\n", Bold(title), Code(r.ID))
	b.WriteString(Escape(rule) + "\n")
	fmt.Fprintf(&b, "Store: %s\n", Escape(orNA(r.StoreName)))
	fmt.Fprintf(&b, "Date: %s\n", Escape(orNA(r.Date)))
	fmt.Fprintf(&b, "Total: %s\n", Escape(withCurrency(amount(r.TotalPrice), r.CurrencyCode)))
	fmt.Fprintf(&b, "Uploaded By: %s\n", Code(r.TelegramUserID))
	if r.GroupID != nil {
		fmt.Fprintf(&b, "Group ID: %s\n", Code(*r.GroupID))
	}
	verified := "No"
	if r.IsVerifiedByUser {
		verified = "Yes"
	}
	fmt.Fprintf(&b, "Verified: %s", verified)
	if r.EditedBy != nil {
		fmt.Fprintf(&b, " \\(Edited by: %s\\)", Code(*r.EditedBy))
	}
	b.WriteString("\n" + Escape(rule) + "\n")

	b.WriteString(Bold("Items:") + "\n")
	if len(r.Items) == 0 {
		b.WriteString(Escape("- No items found.") + "\n")
	}
	for _, item := range r.Items {
		fmt.Fprintf(&b, "%s\n", Escape(fmt.Sprintf("- %s (%s)", item.ItemName, item.GroceryCategory)))
		fmt.Fprintf(&b, "%s\n", Escape(fmt.Sprintf("  Qty: %s %s | Price: %s",
			item.Quantity.String(), item.UnitOfMeasurement, withCurrency(amount(item.ItemPrice), r.CurrencyCode))))
		if item.PricePerUnit != nil {
			fmt.Fprintf(&b, "%s\n", Escape(fmt.Sprintf("  (PPU: %s/%s)",
				withCurrency(amount(item.PricePerUnit), r.CurrencyCode), item.UnitOfMeasurement)))
		}
		b.WriteString("\n")
	}
	b.WriteString(Escape(rule))
	return b.String()
}

// ReceiptSaved confirms an upload, falling back to a short summary when the
// full rendering would not fit in one message.
func ReceiptSaved(r *models.Receipt) Message {
	text := FormatReceipt(r, "Receipt Processed") + "\n" +
		Escape("To correct any details, send /edithelp for the edit format.")
	if utf8.RuneCountInString(text) <= MaxMessageLength {
		return markdown(text)
	}
	return receiptSummary(r, "Receipt Processed & Saved",
		"The full details were too long to display here. You can still edit the receipt with its Ref ID; send /edithelp for the format.")
}

func ReceiptView(r *models.Receipt) Message {
	text := FormatReceipt(r, "Receipt Details")
	if utf8.RuneCountInString(text) <= MaxMessageLength {
		return markdown(text)
	}
	return receiptSummary(r, "Receipt Details",
		"This receipt has too many items to display in one message.")
}

// receiptSummary renders the store, date and total only, with every stored
// field capped so the result always fits in one message.
func receiptSummary(r *models.Receipt, title, footer string) Message {
	total := clip(withCurrency(amount(r.TotalPrice), r.CurrencyCode), summaryTotal)
	text := fmt.Sprintf("🧾 %s \\(Ref: %s\\)\n", Escape(title), Code(clip(r.ID, summaryStoreName))) +
		Escape(fmt.Sprintf("Store: %s\nDate: %s\nTotal: %s\n\n",
			clip(orNA(r.StoreName), summaryStoreName), clip(orNA(r.Date), len(models.DateLayout)), total)) +
		Escape(footer)
	return markdown(text)
}

// clip cuts s to at most n runes, marking the cut with "...".
func clip(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n-3]) + "..."
}

// ReceiptButtonText is "date | store | total", cut to fit on a button.
func ReceiptButtonText(r *models.Receipt) string {
	store := r.StoreName
	if store == "" {
		store = "Unknown Store"
	}
	if utf8.RuneCountInString(store) > buttonStoreName {
		store = string([]rune(store)[:buttonStoreName])
	}
	text := fmt.Sprintf("%s | %s | %s", orNA(r.Date), store, withCurrency(amount(r.TotalPrice), r.CurrencyCode))
	if utf8.RuneCountInString(text) > buttonTextLimit {
		text = string([]rune(text)[:buttonTextLimit-3]) + "..."
	}
	return text
}

// ReceiptList lists recent receipts with one button each. With forDelete the
// buttons request deletion instead of opening the receipt.
func ReceiptList(receipts []*models.Receipt, scope models.Scope, forDelete bool) Message {
	label := ScopeLabel(scope)
	if len(receipts) == 0 {
		if forDelete {
			return plain(fmt.Sprintf("No recent receipts found %s to delete.", label))
		}
		return plain(fmt.Sprintf("No recent receipts found %s.", label))
	}

	title, hint := "📄 Recent Receipts", "Click on a receipt to view details."
	if forDelete {
		title, hint = "🗑️ Select Receipt to Delete", "Click on a receipt to request its deletion."
	}

	var rows [][]Button
	for _, r := range receipts {
		data := action.ViewToken(r.ID)
		if forDelete {
			data = action.DeleteRequestToken(r.ID)
		}
		rows = append(rows, row(Button{Text: ReceiptButtonText(r), Data: data}))
	}

	text := fmt.Sprintf("%s %s\n%s\n%s",
		Bold(title),
		Escape(fmt.Sprintf("%s (max %d):", label, service.MaxListedReceipts)),
		Escape(rule),
		Escape(hint))
	return markdown(text).WithKeyboard(rows...)
}

func DeleteConfirmation(r *models.Receipt) Message {
	text := fmt.Sprintf("❓ %s\n\n", Bold("Confirm Deletion")) +
		Escape("Are you sure you want to permanently delete receipt:") + "\n" +
		fmt.Sprintf("Ref: %s\n", Code(r.ID)) +
		Escape(fmt.Sprintf("Store: %s\nDate: %s\nTotal: %s\n\n",
			orNA(r.StoreName), orNA(r.Date), withCurrency(amount(r.TotalPrice), r.CurrencyCode))) +
		Escape("⚠️ This action cannot be undone!")

	return markdown(text).WithKeyboard(row(
		Button{Text: "✅ Yes, Delete", Data: action.DeleteExecuteToken(r.ID)},
		Button{Text: "❌ Cancel", Data: action.DeleteCancelToken(r.ID)},
	))
}

func ReceiptDeleted(id string) Message {
	return markdown(fmt.Sprintf("✅ Receipt Ref: %s has been deleted%s", Code(id), Escape(".")))
}

func DeleteCancelled(id string) Message {
	return markdown(fmt.Sprintf("Deletion cancelled for receipt Ref: %s%s", Code(id), Escape(".")))
}

func ReceiptUpdated(r *models.Receipt) Message {
	return markdown(fmt.Sprintf("✅ Receipt %s updated successfully%s", Code(r.ID), Escape("!")))
}

// ReceiptUnavailable is shared by "does not exist" and "not yours" so that
// neither case reveals the other.
func ReceiptUnavailable(id string) Message {
	return markdown(fmt.Sprintf("Error: Receipt %s was not found or you are not authorized to access it%s", Code(id), Escape(".")))
}

// ScopeLabel is "(personal)" or "for group 'Name'".
func ScopeLabel(scope models.Scope) string {
	if scope.Personal() {
		return "(personal)"
	}
	name := scope.GroupName
	if name == "" {
		name = "Unnamed Group"
	}
	return fmt.Sprintf("for group '%s'", name)
}
