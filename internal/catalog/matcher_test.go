package catalog

import (
	"testing"

	"github.com/campusmess/mess-server/internal/database"
)

func matcherIndex() *Index {
	return BuildIndex([]database.MenuItem{
		testItem("Pizza Slice", 30, true),
		testItem("Veg Thali", 75, true, "thali"),
	})
}

func TestMatchCatalogHitUsesCatalogPrice(t *testing.T) {
	m := NewMatcher(50)

	items := m.Match([]DetectedLabel{
		{Label: "pizza slice", EstimatedPrice: 99},
	}, matcherIndex())

	if len(items) != 1 {
		t.Fatalf("expected 1 line item, got %d", len(items))
	}
	it := items[0]
	if it.Name != "Pizza Slice" {
		t.Errorf("expected display name from catalog, got %q", it.Name)
	}
	if it.Price != 30 {
		t.Errorf("catalog price must beat vision estimate, got %v", it.Price)
	}
	if it.Item == nil {
		t.Error("matched line item must carry the catalog item")
	}
}

func TestMatchDuplicatesBecomeQuantity(t *testing.T) {
	m := NewMatcher(50)

	items := m.Match([]DetectedLabel{
		{Label: "Pizza Slice"},
		{Label: "pizza   slice!"},
	}, matcherIndex())

	if len(items) != 1 {
		t.Fatalf("expected duplicates to collapse into 1 item, got %d", len(items))
	}
	if items[0].Quantity != 2 {
		t.Errorf("expected quantity 2, got %d", items[0].Quantity)
	}
	if got := Total(items); got != 60 {
		t.Errorf("expected total 60, got %v", got)
	}
}

func TestMatchUnmatchedKeepsEstimate(t *testing.T) {
	m := NewMatcher(50)

	items := m.Match([]DetectedLabel{
		{Label: "unknown dish", EstimatedPrice: 77},
	}, matcherIndex())

	if len(items) != 1 {
		t.Fatalf("expected 1 line item, got %d", len(items))
	}
	it := items[0]
	if it.Name != "Unknown Dish" {
		t.Errorf("expected title-cased raw label, got %q", it.Name)
	}
	if it.Price != 77 {
		t.Errorf("expected estimated price 77, got %v", it.Price)
	}
	if it.Item != nil {
		t.Error("unmatched line item must not carry a catalog item")
	}
}

func TestMatchUnmatchedFallsBackToDefaultPrice(t *testing.T) {
	m := NewMatcher(42)

	items := m.Match([]DetectedLabel{
		{Label: "mystery bowl"},
	}, matcherIndex())

	if items[0].Price != 42 {
		t.Errorf("expected default price 42, got %v", items[0].Price)
	}
}

func TestMatchPreservesFirstSeenOrder(t *testing.T) {
	m := NewMatcher(50)

	items := m.Match([]DetectedLabel{
		{Label: "veg thali"},
		{Label: "pizza slice"},
		{Label: "thali"}, // alias of the first group's item, new key
	}, matcherIndex())

	if len(items) != 3 {
		t.Fatalf("expected 3 line items, got %d", len(items))
	}
	if items[0].Name != "Veg Thali" || items[1].Name != "Pizza Slice" {
		t.Errorf("unexpected order: %q, %q", items[0].Name, items[1].Name)
	}
	// "thali" is a distinct canonical key, so it resolves separately (to the
	// same catalog item via its alias).
	if items[2].Item == nil || items[2].Item.Name != "Veg Thali" {
		t.Error("expected alias key to resolve to Veg Thali")
	}
}

func TestMatchDropsEmptyKeys(t *testing.T) {
	m := NewMatcher(50)

	items := m.Match([]DetectedLabel{
		{Label: "!!!"},
		{Label: "pizza slice"},
	}, matcherIndex())

	if len(items) != 1 {
		t.Fatalf("expected garbage label to be dropped, got %d items", len(items))
	}
}

func TestNewMatcherFallback(t *testing.T) {
	m := NewMatcher(0)
	if m.defaultPrice != DefaultItemPrice {
		t.Errorf("expected fallback to DefaultItemPrice, got %v", m.defaultPrice)
	}
}
