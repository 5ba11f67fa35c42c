package catalog

import (
	"github.com/campusmess/mess-server/internal/database"
)

// DefaultItemPrice is charged for a detected item that matched nothing in the
// catalog and came with no usable price estimate.
const DefaultItemPrice = 50

// DetectedLabel is one raw guess from the vision service. Confidence and
// EstimatedPrice are optional; zero means "not supplied".
type DetectedLabel struct {
	Label          string
	Confidence     float64
	EstimatedPrice float64
}

// LineItem is one resolved entry of a scan transaction. Item is nil when the
// detection matched nothing in the catalog; the name is then the title-cased
// raw label and the price comes from the estimate (or the default).
type LineItem struct {
	Name     string
	Price    float64
	Quantity int
	Item     *database.MenuItem
}

// Total sums price times quantity over all line items.
func Total(items []LineItem) float64 {
	var total float64
	for _, it := range items {
		total += it.Price * float64(it.Quantity)
	}
	return total
}

// labelGroup collapses duplicate detections that normalize to the same key.
type labelGroup struct {
	rawLabel string  // first raw spelling seen for this key
	count    int     // occurrence count, becomes the quantity
	price    float64 // first nonzero estimated price seen for this key
}

// groupLabels folds the detection list into one group per canonical key,
// preserving first-seen order. Labels that normalize to an empty key are
// dropped.
func groupLabels(detected []DetectedLabel) (map[string]*labelGroup, []string) {
	groups := make(map[string]*labelGroup, len(detected))
	var order []string

	for _, d := range detected {
		key := Normalize(d.Label)
		if key == "" {
			continue
		}

		g, ok := groups[key]
		if !ok {
			g = &labelGroup{rawLabel: d.Label}
			groups[key] = g
			order = append(order, key)
		}
		g.count++
		if g.price == 0 && d.EstimatedPrice > 0 {
			g.price = d.EstimatedPrice
		}
	}

	return groups, order
}

// Matcher reconciles detected food labels against a catalog index.
type Matcher struct {
	defaultPrice float64
}

// NewMatcher creates a matcher. A non-positive defaultPrice falls back to
// DefaultItemPrice.
func NewMatcher(defaultPrice float64) *Matcher {
	if defaultPrice <= 0 {
		defaultPrice = DefaultItemPrice
	}
	return &Matcher{defaultPrice: defaultPrice}
}

// Match resolves every distinct canonical key in the detection list to
// exactly one line item. A catalog hit uses the item's display name and
// catalog price; the catalog price always wins over the vision estimate.
// A miss keeps the raw label (title-cased) with the estimated or default
// price. No detected group is ever dropped, so len(result) equals the number
// of distinct canonical keys.
func (m *Matcher) Match(detected []DetectedLabel, ix *Index) []LineItem {
	groups, order := groupLabels(detected)

	items := make([]LineItem, 0, len(order))
	for _, key := range order {
		g := groups[key]

		if mi := ix.Lookup(key); mi != nil {
			items = append(items, LineItem{
				Name:     mi.Name,
				Price:    mi.Price,
				Quantity: g.count,
				Item:     mi,
			})
			continue
		}

		price := g.price
		if price <= 0 {
			price = m.defaultPrice
		}
		items = append(items, LineItem{
			Name:     TitleCase(g.rawLabel),
			Price:    price,
			Quantity: g.count,
		})
	}

	return items
}
