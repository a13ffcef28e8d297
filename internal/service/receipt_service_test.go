package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"receipt-ledger/internal/dto"
	"receipt-ledger/internal/models"
	"receipt-ledger/internal/repository"
	"receipt-ledger/internal/service"

	"github.com/shopspring/decimal"
)

func money(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func (f *fixture) seedReceipt(id, uploader, groupID, date string, total *decimal.Decimal) *models.Receipt {
	r := &models.Receipt{
		ID:              id,
		StoreName:       "Store " + id,
		Date:            date,
		TotalPrice:      total,
		CurrencyCode:    "ILS",
		Items:           []models.LineItem{},
		TelegramUserID:  uploader,
		UploadTimestamp: f.now.Add(-time.Hour),
		LastUpdatedAt:   f.now.Add(-time.Hour),
	}
	if groupID != "" {
		r.GroupID = &groupID
	}
	f.receipts.Put(r)
	return r
}

func TestSaveStampsReceipt(t *testing.T) {
	f := newFixture(t)
	draft := &dto.ReceiptDraft{StoreName: "Victory", Date: "2024-06-15", TotalPrice: money("12.30")}

	saved, err := f.receipt.Save(context.Background(), draft, "1", "g1")
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if saved.ID == "" || saved.IsVerifiedByUser {
		t.Errorf("saved = %+v", saved)
	}
	if !saved.UploadTimestamp.Equal(f.now) || !saved.LastUpdatedAt.Equal(f.now) {
		t.Error("timestamps not stamped from the clock")
	}
	if saved.Items == nil {
		t.Error("items must never be nil")
	}
	if saved.Group() != "g1" || saved.TelegramUserID != "1" {
		t.Errorf("tags = %s/%s", saved.TelegramUserID, saved.Group())
	}

	personal, _ := f.receipt.Save(context.Background(), draft, "1", "")
	if personal.GroupID != nil {
		t.Error("personal receipt must not carry a group")
	}
}

func TestEditRoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.user("1", models.StatusApproved)
	orig := f.seedReceipt("r1", "1", "", "2024-06-10", money("10"))

	qty := decimal.NewFromInt(2)
	replacement := &dto.ReceiptDraft{
		StoreName:    "Corrected",
		Date:         "2024-06-11",
		TotalPrice:   money("20.5"),
		CurrencyCode: "EUR",
		Items: []models.LineItem{{
			ItemName: "Bread", ItemPrice: money("20.5"), GroceryCategory: "Bakery",
			Quantity: qty, PricePerUnit: dto.UnitPrice(money("20.5"), qty), UnitOfMeasurement: "unit",
		}},
	}

	if _, err := f.receipt.Edit(ctx, "1", "r1", replacement); err != nil {
		t.Fatalf("Edit: %v", err)
	}
	got, err := f.receipt.Get(ctx, "r1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}

	if got.StoreName != "Corrected" || got.Date != "2024-06-11" || got.CurrencyCode != "EUR" {
		t.Errorf("header = %s %s %s", got.StoreName, got.Date, got.CurrencyCode)
	}
	if !got.TotalPrice.Equal(*replacement.TotalPrice) || len(got.Items) != 1 || got.Items[0].ItemName != "Bread" {
		t.Errorf("body = %+v", got)
	}
	if got.TelegramUserID != orig.TelegramUserID || !got.UploadTimestamp.Equal(orig.UploadTimestamp) {
		t.Error("uploader or upload time changed")
	}
	if !got.IsVerifiedByUser || got.EditedBy == nil || *got.EditedBy != "1" {
		t.Errorf("verification = %v editedBy = %v", got.IsVerifiedByUser, got.EditedBy)
	}
	if !got.LastUpdatedAt.Equal(f.now) {
		t.Error("last_updated_at not refreshed")
	}
}

func TestEditKeepsGroupAndDefaultsDate(t *testing.T) {
	f := newFixture(t)
	f.user("1", models.StatusApproved)
	f.user("2", models.StatusApproved)
	created, _ := f.group.CreateGroup(context.Background(), adminID, "G", []string{"1", "2"})
	groupID := created.Group.ID
	f.seedReceipt("r1", "1", groupID, "2024-06-10", money("10"))

	got, err := f.receipt.Edit(context.Background(), "2", "r1", &dto.ReceiptDraft{StoreName: "x"})
	if err != nil {
		t.Fatalf("group member edit: %v", err)
	}
	if got.Group() != groupID || got.Date != "2024-06-10" {
		t.Errorf("group=%s date=%s", got.Group(), got.Date)
	}
}

func TestUnauthorizedActorCannotMutate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.user("1", models.StatusApproved)
	f.user("3", models.StatusApproved)
	f.seedReceipt("r1", "1", "", "2024-06-10", money("10"))
	f.seedReceipt("r2", "1", "other-group", "2024-06-10", money("10"))

	for _, id := range []string{"r1", "r2"} {
		if _, err := f.receipt.Edit(ctx, "3", id, &dto.ReceiptDraft{StoreName: "hacked"}); !errors.Is(err, service.ErrForbidden) {
			t.Errorf("edit %s: err = %v, want ErrForbidden", id, err)
		}
		if _, err := f.receipt.Delete(ctx, "3", id); !errors.Is(err, service.ErrForbidden) {
			t.Errorf("delete %s: err = %v, want ErrForbidden", id, err)
		}
		if _, err := f.receipt.View(ctx, "3", id); !errors.Is(err, service.ErrForbidden) {
			t.Errorf("view %s: err = %v, want ErrForbidden", id, err)
		}
	}
	if f.receipts.Writes != 0 || f.receipts.Len() != 2 {
		t.Errorf("writes = %d, receipts = %d", f.receipts.Writes, f.receipts.Len())
	}
}

func TestDeleteByGroupMemberIsForbidden(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.user("1", models.StatusApproved)
	f.user("2", models.StatusApproved)
	created, _ := f.group.CreateGroup(ctx, adminID, "G", []string{"1", "2"})
	f.seedReceipt("r1", "1", created.Group.ID, "2024-06-10", money("10"))

	if _, err := f.receipt.View(ctx, "2", "r1"); err != nil {
		t.Errorf("member view: %v", err)
	}
	if _, err := f.receipt.PrepareDelete(ctx, "2", "r1"); !errors.Is(err, service.ErrForbidden) {
		t.Errorf("member delete: err = %v", err)
	}
	if _, err := f.receipt.Delete(ctx, adminID, "r1"); err != nil {
		t.Errorf("admin delete: %v", err)
	}

	var nf *service.NotFoundError
	if _, err := f.receipt.Delete(ctx, "1", "r1"); !errors.As(err, &nf) {
		t.Errorf("second delete: err = %v, want NotFoundError", err)
	}
}

func TestEditFromArgsJSON(t *testing.T) {
	f := newFixture(t)
	f.user("1", models.StatusApproved)
	f.seedReceipt("r1", "1", "", "2024-06-10", money("10"))

	args := "r1\n```json\n{\"store_name\": \"Fixed\", \"total_price\": 11.5, \"items\": [{\"item_name\": \"Tea\", \"item_price\": 11.5, \"grocery_category\": \"Beverages (Non-alcoholic)\"}]}\n```"
	got, err := f.receipt.EditFromArgs(context.Background(), "1", args)
	if err != nil {
		t.Fatalf("EditFromArgs: %v", err)
	}
	if got.StoreName != "Fixed" || got.Date != "2024-06-10" || len(got.Items) != 1 {
		t.Errorf("got = %+v", got)
	}
}

func TestEditFromArgsMalformedFailsBeforeWrite(t *testing.T) {
	f := newFixture(t)
	f.user("1", models.StatusApproved)
	f.seedReceipt("r1", "1", "", "2024-06-10", money("10"))

	inputs := []string{
		"",
		"r1 {not json",
		"r1 [1, 2]",
		`r1 {"store_name": "Shop", "total_price": 10} not json at all`,
		`r1 {"store_name": "Shop"}{"store_name": "Other"}`,
		"Ref: r1\nDate: 15/06/2024",
		"Ref: r1\nMilk; abc; Dairy & Eggs",
		"Store: no ref",
	}
	for _, in := range inputs {
		var verr *service.ValidationError
		if _, err := f.receipt.EditFromArgs(context.Background(), "1", in); !errors.As(err, &verr) {
			t.Errorf("EditFromArgs(%q): err = %v, want ValidationError", in, err)
		}
	}
	if f.receipts.Writes != 0 {
		t.Errorf("writes = %d", f.receipts.Writes)
	}
}

func TestEditFromArgsText(t *testing.T) {
	f := newFixture(t)
	f.user("1", models.StatusApproved)
	f.seedReceipt("r1", "1", "", "2024-06-10", money("10"))

	got, err := f.receipt.EditFromArgs(context.Background(), "1", "Ref: r1\nTotal: 7\nEggs; 7; Dairy & Eggs; 12; unit")
	if err != nil {
		t.Fatalf("EditFromArgs: %v", err)
	}
	if got.StoreName != "Store r1" || got.CurrencyCode != "ILS" {
		t.Errorf("unchanged headers lost: %s %s", got.StoreName, got.CurrencyCode)
	}
	if !got.TotalPrice.Equal(decimal.NewFromInt(7)) {
		t.Errorf("total = %v", got.TotalPrice)
	}
	if got.Items[0].PricePerUnit.String() != "0.58" {
		t.Errorf("ppu = %v", got.Items[0].PricePerUnit)
	}
}

func TestListRecentScope(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.user("1", models.StatusApproved)
	f.user("2", models.StatusApproved)
	f.seedReceipt("a", "1", "", "2024-06-01", money("1"))
	f.seedReceipt("b", "1", "", "2024-06-03", money("1"))
	f.seedReceipt("c", "2", "", "2024-06-02", money("1"))
	f.seedReceipt("d", "1", "some-group", "2024-06-04", money("1"))

	receipts, scope, err := f.receipt.ListRecent(ctx, "1")
	if err != nil {
		t.Fatalf("ListRecent: %v", err)
	}
	if !scope.Personal() {
		t.Errorf("scope = %+v", scope)
	}
	if len(receipts) != 2 || receipts[0].ID != "b" || receipts[1].ID != "a" {
		ids := []string{}
		for _, r := range receipts {
			ids = append(ids, r.ID)
		}
		t.Errorf("receipts = %v, want [b a]", ids)
	}
}

func TestListRecentMissingIndex(t *testing.T) {
	f := newFixture(t)
	f.receipts.ListErr = repository.ErrMissingIndex

	_, _, err := f.receipt.ListRecent(context.Background(), "1")
	if !errors.Is(err, service.ErrMissingIndex) {
		t.Fatalf("err = %v, want ErrMissingIndex", err)
	}
	if errors.Is(err, service.ErrStore) {
		t.Error("missing index must be distinguishable from a generic store failure")
	}
}

func TestAggregateSkipsNonNumericTotal(t *testing.T) {
	f := newFixture(t)
	f.user("1", models.StatusApproved)
	f.seedReceipt("a", "1", "", "2024-06-01", money("10"))
	f.seedReceipt("b", "1", "", "2024-06-02", nil)
	f.seedReceipt("c", "1", "", "2024-06-03", money("5.5"))
	f.seedReceipt("d", "1", "", "2024-06-04", money("100"))

	report, err := f.receipt.AggregateRange(context.Background(), "1", "2024-06-01", "2024-06-03", service.ModeTotal)
	if err != nil {
		t.Fatalf("AggregateRange: %v", err)
	}
	if report.Count != 2 || !report.Total.Equal(decimal.RequireFromString("15.5")) {
		t.Errorf("count=%d total=%s", report.Count, report.Total)
	}
	if report.Skipped != 1 {
		t.Errorf("skipped = %d", report.Skipped)
	}
}

func TestAggregateMonth(t *testing.T) {
	f := newFixture(t)
	f.user("1", models.StatusApproved)
	f.seedReceipt("a", "1", "", "2024-06-30", money("3"))
	f.seedReceipt("b", "1", "", "2024-07-01", money("4"))

	report, err := f.receipt.AggregateMonth(context.Background(), "1", "", service.ModeAverage)
	if err != nil {
		t.Fatalf("AggregateMonth: %v", err)
	}
	if report.Start != "2024-06-01" || report.End != "2024-06-30" || report.Count != 1 {
		t.Errorf("report = %+v", report)
	}

	var verr *service.ValidationError
	if _, err := f.receipt.AggregateMonth(context.Background(), "1", "June", service.ModeTotal); !errors.As(err, &verr) {
		t.Errorf("bad month: err = %v", err)
	}
	if _, err := f.receipt.AggregateRange(context.Background(), "1", "2024-06-30", "2024-06-01", service.ModeTotal); !errors.As(err, &verr) {
		t.Errorf("reversed range: err = %v", err)
	}
}
