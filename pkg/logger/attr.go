package logger

import "log/slog"

// Error records an error under the key "error". Nil yields an empty Attr.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// Component records which purchase component emitted the record.
func Component(name string) slog.Attr {
	return slog.String("component", name)
}

// Operation records a bridge operation name.
func Operation(op string) slog.Attr {
	return slog.String("operation", op)
}

// Callback records a bridge callback name.
func Callback(name string) slog.Attr {
	return slog.String("callback", name)
}

// Product records a product identifier.
func Product(id string) slog.Attr {
	return slog.String("product_id", id)
}

// Subscription records a subscription identifier.
func Subscription(id string) slog.Attr {
	return slog.String("subscription_id", id)
}

// State records a lifecycle state name.
func State(state string) slog.Attr {
	return slog.String("state", state)
}

// Balance records a consumable balance.
func Balance(n int64) slog.Attr {
	return slog.Int64("balance", n)
}
