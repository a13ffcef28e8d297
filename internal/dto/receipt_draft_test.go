package dto

import (
	"errors"
	"testing"
)

func TestDecodeDraftDefaults(t *testing.T) {
	draft, err := DecodeDraft([]byte(`{
		"store_name": " Shufersal ",
		"date": "2023-01-01",
		"total_price": 138.5,
		"currency_code": "ils",
		"items": [
			{"item_name": "Milk 3%", "item_price": 6.2, "grocery_category": "dairy & eggs", "quantity": 2},
			{"item_price": "n/a", "grocery_category": "Gadgets"},
			"garbage"
		]
	}`))
	if err != nil {
		t.Fatalf("DecodeDraft: %v", err)
	}

	if draft.StoreName != "Shufersal" {
		t.Errorf("store = %q", draft.StoreName)
	}
	if draft.TotalPrice == nil || draft.TotalPrice.String() != "138.5" {
		t.Errorf("total = %v", draft.TotalPrice)
	}
	if draft.CurrencyCode != "ILS" {
		t.Errorf("currency = %q", draft.CurrencyCode)
	}
	if len(draft.Items) != 2 {
		t.Fatalf("items = %d, want 2", len(draft.Items))
	}

	milk := draft.Items[0]
	if milk.GroceryCategory != "Dairy & Eggs" {
		t.Errorf("category = %q", milk.GroceryCategory)
	}
	if milk.PricePerUnit == nil || milk.PricePerUnit.String() != "3.1" {
		t.Errorf("ppu = %v", milk.PricePerUnit)
	}
	if milk.UnitOfMeasurement != "unit" {
		t.Errorf("unit = %q", milk.UnitOfMeasurement)
	}

	second := draft.Items[1]
	if second.ItemName != "Item 2" {
		t.Errorf("name = %q", second.ItemName)
	}
	if second.ItemPrice != nil {
		t.Errorf("non-numeric price should be nil, got %v", second.ItemPrice)
	}
	if second.GroceryCategory != "Other" || second.Quantity.String() != "1" {
		t.Errorf("defaults not applied: %+v", second)
	}
	if len(draft.UnknownCategories) != 1 || draft.UnknownCategories[0] != "Gadgets" {
		t.Errorf("unknown categories = %v", draft.UnknownCategories)
	}
}

func TestDecodeDraftRejectsNonObject(t *testing.T) {
	if _, err := DecodeDraft([]byte(`[1, 2]`)); !errors.Is(err, ErrNotObject) {
		t.Fatalf("err = %v, want ErrNotObject", err)
	}
	if _, err := DecodeDraft([]byte(`not json at all`)); err == nil {
		t.Fatal("expected syntax error")
	}
}

func TestDecodeDraftRejectsTrailingData(t *testing.T) {
	inputs := []string{
		`{"store_name": "Shop", "total_price": 10} not json at all`,
		`{"store_name": "Shop"}{"store_name": "Other"}`,
		`{"store_name": "Shop"} [1]`,
	}
	for _, in := range inputs {
		if d, err := DecodeDraft([]byte(in)); err == nil {
			t.Errorf("DecodeDraft(%q) accepted trailing data: store=%q", in, d.StoreName)
		}
	}

	if _, err := DecodeDraft([]byte("{\"store_name\": \"Shop\"}\n  ")); err != nil {
		t.Errorf("trailing whitespace rejected: %v", err)
	}
}

func TestDecodeDraftNonNumericTotal(t *testing.T) {
	draft, err := DecodeDraft([]byte(`{"store_name": "x", "total_price": "bad"}`))
	if err != nil {
		t.Fatalf("DecodeDraft: %v", err)
	}
	if draft.TotalPrice != nil {
		t.Fatalf("total = %v, want nil", draft.TotalPrice)
	}
	if draft.Items == nil {
		t.Fatal("items must be an empty slice, not nil")
	}
}
