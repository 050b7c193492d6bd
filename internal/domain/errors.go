package domain

import "errors"

var (
	// ErrKeyNotFound is returned by a key-value store when the key does not exist
	ErrKeyNotFound = errors.New("key not found")

	// ErrCacheMiss is returned when no usable shop cache entry exists
	ErrCacheMiss = errors.New("cache miss")

	// ErrCacheCorrupt is returned when the stored payload cannot be decoded
	ErrCacheCorrupt = errors.New("cached shop payload is corrupt")

	// ErrProviderUnavailable is returned when the shop data provider request fails
	ErrProviderUnavailable = errors.New("shop data provider unavailable")

	// ErrShopUnavailable is returned when neither the provider nor the cache can serve the shop
	ErrShopUnavailable = errors.New("failed to load shop items")

	// ErrInvalidRequest is returned when request parameters are invalid
	ErrInvalidRequest = errors.New("invalid request parameters")
)
