package product

// Kind identifies the purchase model a product follows.
type Kind string

const (
	KindConsumable    Kind = "consumable"
	KindNonConsumable Kind = "nonconsumable"
	// KindSubscription matches the "subs" type emitted by store bridges.
	KindSubscription Kind = "subs"
)

// Product describes a purchasable item as returned by the bridge catalog
// call. Instances are immutable once received; the active set is replaced
// wholesale on each successful fetch.
type Product struct {
	ProductID   string `json:"productId"`
	Title       string `json:"title"`
	Description string `json:"description"`
	// Price is a localized display string, e.g. "$4.99". The numeric
	// value is not available separately on the wire.
	Price string `json:"price"`
	Type  Kind   `json:"type,omitempty"`
	// SubscriptionPeriod is an ISO 8601 duration like "P1W" or "P1M",
	// present only for subscription products.
	SubscriptionPeriod string `json:"subscriptionPeriod,omitempty"`
}

// IsSubscription reports whether the product is a subscription, either by
// explicit type or by carrying a subscription period.
func (p Product) IsSubscription() bool {
	return p.Type == KindSubscription || p.SubscriptionPeriod != ""
}

// PurchaseRecord captures an owned or historical purchase. Records are
// created from purchase-success or restore-history callbacks and
// superseded on the next status or restore check.
type PurchaseRecord struct {
	ProductID     string    `json:"productId"`
	TransactionID string    `json:"transactionId,omitempty"`
	PurchaseToken string    `json:"purchaseToken,omitempty"`
	PurchaseTime  Timestamp `json:"purchaseTime,omitempty"`
	ExpiryTime    Timestamp `json:"expiryTime,omitempty"`
	AutoRenewing  bool      `json:"autoRenewing,omitempty"`
	IsRestored    bool      `json:"isRestored,omitempty"`
	IsActive      bool      `json:"isActive,omitempty"`
}
