package utils

import "errors"

// ----------------- storage ------------------
var (
	ErrStorageEmptyHostName       = errors.New("host name is empty")
	ErrStorageInvalidPortNumber   = errors.New("port number is empty")
	ErrStorageEmptyUsername       = errors.New("username is empty")
	ErrStorageEmptyPassword       = errors.New("password is empty")
	ErrStorageInvalidDatabaseName = errors.New("database name is empty")
	ErrStorageInvalidSslMode      = errors.New("SSL mode is invalid")
	ErrStorageInvalidPoolSize     = errors.New("pool size is invalid")
	ErrStorageInvalidTimeout      = errors.New("timeout is invalid")
)

// ----------------- cache ------------------
var (
	ErrCacheMiss = errors.New("cache: key not found")
)

// ----------------- listing service ------------------
var (
	ErrValidation            = errors.New("validation error")
	ErrListingNotFound       = errors.New("listing not found")
	ErrItemNotFound          = errors.New("item not found")
	ErrMarketplaceNotFound   = errors.New("marketplace not found")
	ErrListingAlreadyDeleted = errors.New("listing already deleted")
	ErrMarketplacesNotFound  = errors.New("no marketplaces found")
	ErrDownstreamUnavailable = errors.New("downstream service unavailable")
)
