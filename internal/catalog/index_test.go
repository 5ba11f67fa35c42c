package catalog

import (
	"testing"

	"github.com/google/uuid"

	"github.com/campusmess/mess-server/internal/database"
)

func testItem(name string, price float64, available bool, aliases ...string) database.MenuItem {
	return database.MenuItem{
		ID:          uuid.New(),
		Name:        name,
		Price:       price,
		IsAvailable: available,
		Aliases:     aliases,
	}
}

func TestBuildIndexSkipsUnavailable(t *testing.T) {
	ix := BuildIndex([]database.MenuItem{
		testItem("Masala Dosa", 60, true),
		testItem("Off Menu Special", 100, false),
	})

	if ix.Len() != 1 {
		t.Fatalf("expected 1 indexed item, got %d", ix.Len())
	}
	if ix.Lookup(Normalize("Off Menu Special")) != nil {
		t.Error("unavailable item must not be indexed")
	}
}

func TestIndexLookupByAlias(t *testing.T) {
	ix := BuildIndex([]database.MenuItem{
		testItem("Masala Dosa", 60, true, "dosa", "masala dose"),
	})

	item := ix.Lookup(Normalize("Dosa"))
	if item == nil {
		t.Fatal("expected alias lookup to hit")
	}
	if item.Name != "Masala Dosa" {
		t.Errorf("alias resolved to %q, want Masala Dosa", item.Name)
	}
}

func TestIndexNameBeatsAlias(t *testing.T) {
	// "tea" is both a real item name and an alias of another item.
	ix := BuildIndex([]database.MenuItem{
		testItem("Chai", 10, true, "tea"),
		testItem("Tea", 12, true),
	})

	item := ix.Lookup("tea")
	if item == nil {
		t.Fatal("expected lookup to hit")
	}
	if item.Name != "Tea" {
		t.Errorf("name match must beat alias match, got %q", item.Name)
	}
}

func TestIndexFirstWriterWins(t *testing.T) {
	// Both names normalize to "cafe latte".
	ix := BuildIndex([]database.MenuItem{
		testItem("Café Latte", 40, true),
		testItem("cafe   latte", 45, true),
	})

	item := ix.Lookup("cafe latte")
	if item == nil {
		t.Fatal("expected lookup to hit")
	}
	if item.Price != 40 {
		t.Errorf("expected first indexed item to win, got price %v", item.Price)
	}
}

func TestIndexNames(t *testing.T) {
	ix := BuildIndex([]database.MenuItem{
		testItem("Masala Dosa", 60, true),
		testItem("Veg Thali", 75, true),
		testItem("Hidden", 10, false),
	})

	names := ix.Names()
	if len(names) != 2 {
		t.Fatalf("expected 2 names, got %d: %v", len(names), names)
	}
	seen := map[string]bool{}
	for _, n := range names {
		seen[n] = true
	}
	if !seen["Masala Dosa"] || !seen["Veg Thali"] {
		t.Errorf("unexpected names: %v", names)
	}
}
