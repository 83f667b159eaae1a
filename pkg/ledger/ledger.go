package ledger

import (
	"regexp"
	"slices"
	"strconv"
	"sync"

	"github.com/dmitrymomot/purchasekit/pkg/product"
)

// Ledger is a thread-safe counter of consumable units for one session.
type Ledger struct {
	mu             sync.Mutex
	balance        int64
	totalUsed      int64
	totalPurchased int64
	pendingTokens  []string
}

// New creates an empty ledger.
func New() *Ledger {
	return &Ledger{}
}

// Credit adds units to the balance. fromPurchase also counts the units
// toward the purchased total, distinguishing store purchases from test
// grants.
func (l *Ledger) Credit(amount int64, fromPurchase bool) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.balance += amount
	if fromPurchase {
		l.totalPurchased += amount
	}
	return nil
}

// Debit spends units. Fails with ErrInsufficientBalance when the balance
// does not cover the cost, leaving all counters unchanged.
func (l *Ledger) Debit(cost int64) error {
	if cost <= 0 {
		return ErrInvalidAmount
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.balance < cost {
		return ErrInsufficientBalance
	}
	l.balance -= cost
	l.totalUsed += cost
	return nil
}

// Balance returns the current spendable balance.
func (l *Ledger) Balance() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balance
}

// TotalUsed returns the units spent this session.
func (l *Ledger) TotalUsed() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.totalUsed
}

// TotalPurchased returns the units bought this session.
func (l *Ledger) TotalPurchased() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.totalPurchased
}

// PushToken records a purchase token awaiting consume confirmation.
func (l *Ledger) PushToken(token string) {
	if token == "" {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.pendingTokens = append(l.pendingTokens, token)
}

// PeekToken returns the most recently pushed token without removing it,
// the one the next consume call should target.
func (l *Ledger) PeekToken() (string, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.pendingTokens) == 0 {
		return "", false
	}
	return l.pendingTokens[len(l.pendingTokens)-1], true
}

// PopToken removes and returns the most recently pushed token. Called on
// consume confirmation; the LIFO pairing assumes the confirmation belongs
// to the latest purchase.
func (l *Ledger) PopToken() (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.pendingTokens) == 0 {
		return "", ErrNoPendingTokens
	}
	last := len(l.pendingTokens) - 1
	token := l.pendingTokens[last]
	l.pendingTokens = l.pendingTokens[:last]
	return token, nil
}

// PendingTokens returns a snapshot of tokens awaiting confirmation, in
// push order.
func (l *Ledger) PendingTokens() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.pendingTokens)
}

// Reset zeroes all counters and drops pending tokens.
func (l *Ledger) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.balance = 0
	l.totalUsed = 0
	l.totalPurchased = 0
	l.pendingTokens = nil
}

var gemAmountRe = regexp.MustCompile(`(?i)(\d+)\s*gem`)
var gemIDRe = regexp.MustCompile(`gem(\d+)`)

// GemAmount derives how many units a consumable product grants, parsing
// the product id first (e.g. "…gem10"), then the title and description
// ("10 gems"). Returns fallback when nothing matches.
func GemAmount(p product.Product, fallback int64) int64 {
	if m := gemIDRe.FindStringSubmatch(p.ProductID); m != nil {
		if n, err := strconv.ParseInt(m[1], 10, 64); err == nil {
			return n
		}
	}
	for _, text := range []string{p.Title, p.Description} {
		if m := gemAmountRe.FindStringSubmatch(text); m != nil {
			if n, err := strconv.ParseInt(m[1], 10, 64); err == nil {
				return n
			}
		}
	}
	return fallback
}
