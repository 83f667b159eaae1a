package storage

import "errors"

var (
	ErrKeyNotFound = errors.New("storage: key not found")

	ErrFailedToParseRedisConnString = errors.New("storage: failed to parse redis connection string")
	ErrRedisNotReady                = errors.New("storage: redis server is not ready")

	ErrPostgresNotReady = errors.New("storage: postgres is not ready")
)
