package httpserver

import "errors"

var (
	// ErrStart means the server failed to start or run.
	ErrStart = errors.New("httpserver: failed to start")
	// ErrShutdown means graceful shutdown did not complete in time.
	ErrShutdown = errors.New("httpserver: failed to shut down gracefully")
)
