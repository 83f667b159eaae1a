package product

import "errors"

var (
	// ErrDeserialize indicates a bridge or storage payload could not be
	// decoded. Callers treat the value as absent rather than failing.
	ErrDeserialize = errors.New("product: failed to deserialize payload")

	// ErrEmptyPayload indicates the bridge delivered an empty result.
	ErrEmptyPayload = errors.New("product: empty payload")
)
