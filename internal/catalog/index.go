package catalog

import (
	"github.com/campusmess/mess-server/internal/database"
)

// Index holds lookup tables from canonical keys to menu items. It is built
// from a snapshot of available items and never mutated afterwards, so a scan
// in flight can keep using it while the menu changes underneath.
type Index struct {
	byName  map[string]*database.MenuItem
	byAlias map[string]*database.MenuItem
}

// BuildIndex indexes the available items by canonical name and by canonical
// alias. Unavailable items are skipped entirely. On key collisions the first
// writer wins; display names are unique so name collisions only happen when
// two names normalize to the same key.
func BuildIndex(items []database.MenuItem) *Index {
	ix := &Index{
		byName:  make(map[string]*database.MenuItem, len(items)),
		byAlias: make(map[string]*database.MenuItem),
	}

	for i := range items {
		item := &items[i]
		if !item.IsAvailable {
			continue
		}

		key := Normalize(item.Name)
		if key == "" {
			continue
		}
		if _, ok := ix.byName[key]; !ok {
			ix.byName[key] = item
		}

		for _, alias := range item.Aliases {
			ak := Normalize(alias)
			if ak == "" {
				continue
			}
			if _, ok := ix.byAlias[ak]; !ok {
				ix.byAlias[ak] = item
			}
		}
	}

	return ix
}

// Lookup resolves a canonical key to a menu item. A name match always beats
// an alias match, even when another item's alias shadows this item's name.
// Returns nil if the key matches nothing.
func (ix *Index) Lookup(key string) *database.MenuItem {
	if item, ok := ix.byName[key]; ok {
		return item
	}
	if item, ok := ix.byAlias[key]; ok {
		return item
	}
	return nil
}

// Names returns the display names of all indexed items. Passed to the vision
// provider as a hint of which labels are worth emitting.
func (ix *Index) Names() []string {
	names := make([]string, 0, len(ix.byName))
	for _, item := range ix.byName {
		names = append(names, item.Name)
	}
	return names
}

// Len returns the number of distinct canonical names in the index.
func (ix *Index) Len() int {
	return len(ix.byName)
}
