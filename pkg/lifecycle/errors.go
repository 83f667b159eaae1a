package lifecycle

import "errors"

var (
	// ErrRestoreTimeout indicates the purchase-history callback never
	// arrived within the restore timeout. The UI affordance is reset; no
	// automatic retry is made.
	ErrRestoreTimeout = errors.New("lifecycle: restore purchases timed out")

	// ErrRestoreInProgress indicates a restore is already running.
	ErrRestoreInProgress = errors.New("lifecycle: restore already in progress")

	// ErrNothingToRestore indicates the purchase history held no
	// unexpired subscription.
	ErrNothingToRestore = errors.New("lifecycle: no active subscriptions found to restore")

	// ErrInvalidTransition is returned by Validate for a state change
	// outside the transition table.
	ErrInvalidTransition = errors.New("lifecycle: invalid state transition")
)
