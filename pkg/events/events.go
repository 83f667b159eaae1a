package events

import (
	"github.com/dmitrymomot/purchasekit/pkg/product"
)

// Kind identifies what a storefront event describes.
type Kind string

const (
	// KindStateChanged reports a lifecycle state transition.
	KindStateChanged Kind = "state_changed"
	// KindMessage carries a user-facing message with a severity.
	KindMessage Kind = "message"
	// KindPremiumShown asks the UI to reveal premium content.
	KindPremiumShown Kind = "premium_shown"
	// KindPremiumHidden asks the UI to hide premium content and show the
	// catalog instead.
	KindPremiumHidden Kind = "premium_hidden"
	// KindRenderProducts carries a product list ready for display.
	KindRenderProducts Kind = "render_products"
	// KindBalanceChanged reports a consumable balance update.
	KindBalanceChanged Kind = "balance_changed"
)

// Severity mirrors the message styling of the storefront screens.
type Severity string

const (
	SeverityInfo       Severity = "info"
	SeveritySuccess    Severity = "success"
	SeverityError      Severity = "error"
	SeverityProcessing Severity = "processing"
)

// Event is one storefront notification. Only the fields relevant to the
// Kind are populated.
type Event struct {
	Kind     Kind
	Severity Severity
	Message  string

	// State and PrevState are set for KindStateChanged.
	State     string
	PrevState string

	// Products is set for KindRenderProducts; Placeholder is set instead
	// when there is nothing to render.
	Products    []product.Product
	Placeholder string

	// Balance is set for KindBalanceChanged.
	Balance int64
}

// Message builds a user-facing message event.
func Message(sev Severity, text string) Event {
	return Event{Kind: KindMessage, Severity: sev, Message: text}
}
