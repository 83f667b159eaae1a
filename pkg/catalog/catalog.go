package catalog

import (
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/dmitrymomot/purchasekit/pkg/ledger"
	"github.com/dmitrymomot/purchasekit/pkg/product"
)

// DefaultPlaceholder is shown when no products are available at all.
const DefaultPlaceholder = "No subscription options available at this time."

// View is the presenter output: either a non-empty product list or a
// placeholder message, never both empty.
type View struct {
	Products    []product.Product
	Placeholder string
}

// Empty reports whether the view carries no products.
func (v View) Empty() bool {
	return len(v.Products) == 0
}

// Option configures a Presenter.
type Option func(*Presenter)

// WithFilter replaces the subscription filter. A nil filter keeps every
// product.
func WithFilter(keep func(product.Product) bool) Option {
	return func(p *Presenter) {
		p.filter = keep
	}
}

// WithSort replaces the price sort with a custom comparison.
func WithSort(cmp func(a, b product.Product) int) Option {
	return func(p *Presenter) {
		if cmp != nil {
			p.cmp = cmp
		}
	}
}

// WithPlaceholder overrides the empty-catalog message.
func WithPlaceholder(text string) Option {
	return func(p *Presenter) {
		if text != "" {
			p.placeholder = text
		}
	}
}

// Presenter filters and orders products for display.
type Presenter struct {
	filter      func(product.Product) bool
	cmp         func(a, b product.Product) int
	placeholder string
}

// New creates a presenter. The default configuration keeps subscription
// products and sorts ascending by display price.
func New(opts ...Option) *Presenter {
	p := &Presenter{
		filter:      product.Product.IsSubscription,
		cmp:         ComparePrice,
		placeholder: DefaultPlaceholder,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Present builds the view for the given products. Filtering that yields
// nothing falls back to the unfiltered input; empty input yields the
// placeholder.
func (p *Presenter) Present(products []product.Product) View {
	if len(products) == 0 {
		return View{Placeholder: p.placeholder}
	}

	shown := products
	if p.filter != nil {
		filtered := make([]product.Product, 0, len(products))
		for _, item := range products {
			if p.filter(item) {
				filtered = append(filtered, item)
			}
		}
		if len(filtered) > 0 {
			shown = filtered
		}
	}

	ordered := slices.Clone(shown)
	slices.SortStableFunc(ordered, p.cmp)
	return View{Products: ordered}
}

// ComparePrice orders products ascending by the numeric value parsed from
// their display price. Unparseable prices sort last; ties keep input order.
func ComparePrice(a, b product.Product) int {
	pa, pb := ParsePrice(a.Price), ParsePrice(b.Price)
	switch {
	case pa < pb:
		return -1
	case pa > pb:
		return 1
	default:
		return 0
	}
}

// CompareGemAmount orders consumable products ascending by the number of
// units they grant, the ordering the gem storefront uses.
func CompareGemAmount(a, b product.Product) int {
	ga, gb := ledger.GemAmount(a, 1), ledger.GemAmount(b, 1)
	switch {
	case ga < gb:
		return -1
	case ga > gb:
		return 1
	default:
		return 0
	}
}

// ParsePrice extracts a numeric amount from a localized display price by
// stripping everything but digits and the decimal point. Returns +Inf
// when nothing numeric remains, so unparseable prices sort last.
func ParsePrice(display string) float64 {
	var b strings.Builder
	for _, r := range display {
		if (r >= '0' && r <= '9') || r == '.' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return math.Inf(1)
	}
	v, err := strconv.ParseFloat(b.String(), 64)
	if err != nil {
		return math.Inf(1)
	}
	return v
}
