package domain

import "context"

// KeyValueStore defines durable string key-value persistence
type KeyValueStore interface {
	Get(ctx context.Context, key string) (string, error)
	// GetMany reads keys from one consistent view. Missing keys are absent from the result.
	GetMany(ctx context.Context, keys ...string) (map[string]string, error)
	// Commit writes every key in set and deletes every key in remove as one atomic unit
	Commit(ctx context.Context, set map[string]string, remove ...string) error
	Delete(ctx context.Context, keys ...string) error
	Close() error
}

// ShopProvider defines the interface for fetching the current item shop
type ShopProvider interface {
	FetchShopItems(ctx context.Context) (*ShopPayload, error)
}
