package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/rewindlauncher/backend/internal/domain"
	"github.com/rewindlauncher/backend/pkg/logger"
)

// Persisted keys of the shop cache entry
const (
	KeyShopData          = "shopData"
	KeyShopDataTimestamp = "shopDataTimestamp"
	KeyShopExpiration    = "shopExpiration"
)

// DefaultFallbackTTL is how long a payload without an expiration stays valid
const DefaultFallbackTTL = 30 * time.Minute

// CacheStore persists the single shop cache entry and decides whether it is still valid.
// Storage failures degrade to "no cache" and are never returned from Read.
type CacheStore struct {
	store       domain.KeyValueStore
	clock       Clock
	fallbackTTL time.Duration
	log         *zap.Logger
}

// NewCacheStore creates a cache store over a key-value backend
func NewCacheStore(store domain.KeyValueStore, clock Clock, fallbackTTL time.Duration) *CacheStore {
	if clock == nil {
		clock = SystemClock()
	}
	if fallbackTTL <= 0 {
		fallbackTTL = DefaultFallbackTTL
	}
	return &CacheStore{
		store:       store,
		clock:       clock,
		fallbackTTL: fallbackTTL,
		log:         logger.WithModule("storage"),
	}
}

// Read returns the persisted entry, or nil when it was never written,
// cannot be read, or holds text that is not JSON. The three keys are read
// together so a concurrent Write is seen entirely or not at all.
func (c *CacheStore) Read(ctx context.Context) *domain.CacheEntry {
	values, err := c.store.GetMany(ctx, KeyShopData, KeyShopDataTimestamp, KeyShopExpiration)
	if err != nil {
		c.log.Warn("shop cache read failed", zap.Error(err))
		return nil
	}

	payload, ok := values[KeyShopData]
	if !ok {
		return nil
	}
	if !json.Valid([]byte(payload)) {
		c.log.Warn("shop cache holds invalid JSON, ignoring it")
		return nil
	}

	entry := &domain.CacheEntry{
		Payload:    payload,
		Expiration: values[KeyShopExpiration],
	}
	if ms, perr := strconv.ParseInt(values[KeyShopDataTimestamp], 10, 64); perr == nil {
		entry.FetchedAt = time.UnixMilli(ms)
	}
	return entry
}

// Write stores the payload with fetchedAt = now. A missing expiration removes
// any expiration left by an earlier payload in the same commit.
func (c *CacheStore) Write(ctx context.Context, payload *domain.ShopPayload, expiration string) (*domain.CacheEntry, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode shop payload: %w", err)
	}

	now := c.clock.Now()
	entry := &domain.CacheEntry{
		Payload:    string(data),
		FetchedAt:  time.UnixMilli(now.UnixMilli()),
		Expiration: expiration,
	}

	set := map[string]string{
		KeyShopData:          entry.Payload,
		KeyShopDataTimestamp: strconv.FormatInt(now.UnixMilli(), 10),
	}
	var remove []string
	if expiration != "" {
		set[KeyShopExpiration] = expiration
	} else {
		remove = append(remove, KeyShopExpiration)
	}

	if err := c.store.Commit(ctx, set, remove...); err != nil {
		return entry, fmt.Errorf("failed to persist shop cache: %w", err)
	}
	return entry, nil
}

// IsValid reports whether entry may be served without refetching.
// With an expiration: now < expiration. Without: now - fetchedAt < fallback window.
func (c *CacheStore) IsValid(entry *domain.CacheEntry) bool {
	if entry == nil {
		return false
	}
	now := c.clock.Now()

	if exp, ok := domain.ParseExpiration(entry.Expiration); ok {
		return now.Before(exp)
	}
	if entry.FetchedAt.IsZero() {
		return false
	}
	return now.Sub(entry.FetchedAt) < c.fallbackTTL
}

// Decode parses the stored payload text
func (c *CacheStore) Decode(entry *domain.CacheEntry) (*domain.ShopPayload, error) {
	if entry == nil {
		return nil, domain.ErrCacheMiss
	}
	var payload domain.ShopPayload
	if err := json.Unmarshal([]byte(entry.Payload), &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCacheCorrupt, err)
	}
	return &payload, nil
}

// Clear removes the entry entirely
func (c *CacheStore) Clear(ctx context.Context) error {
	return c.store.Delete(ctx, KeyShopData, KeyShopDataTimestamp, KeyShopExpiration)
}
