package ledger

import "errors"

var (
	// ErrInsufficientBalance indicates a debit larger than the current
	// balance. The ledger state is unchanged.
	ErrInsufficientBalance = errors.New("ledger: insufficient balance")

	// ErrInvalidAmount indicates a non-positive credit or debit amount.
	ErrInvalidAmount = errors.New("ledger: amount must be positive")

	// ErrNoPendingTokens indicates a consume confirmation arrived with no
	// purchase token awaiting it.
	ErrNoPendingTokens = errors.New("ledger: no pending purchase tokens")
)
