package domain

import (
	"strings"
	"time"
)

// ShopItem is a single cosmetic offer in the item shop
type ShopItem struct {
	ID           int    `json:"id"`
	CosmeticID   string `json:"cosmeticId"`
	Name         string `json:"name"`
	Price        int    `json:"price"`
	FeaturedIcon string `json:"featuredIcon"`
	Icon         string `json:"icon"`
	Rarity       string `json:"rarity"`
}

// ShopPayload is the catalog returned by the shop data provider
type ShopPayload struct {
	Featured       []ShopItem            `json:"featured"`
	Daily          []ShopItem            `json:"daily"`
	CustomSections map[string][]ShopItem `json:"custom_sections"`
	Expiration     *string               `json:"expiration,omitempty"`
}

// ExpirationString returns the payload expiration or "" when absent
func (p *ShopPayload) ExpirationString() string {
	if p == nil || p.Expiration == nil {
		return ""
	}
	return strings.TrimSpace(*p.Expiration)
}

// localExpirationLayout is an ISO-8601 date-time without a zone offset
const localExpirationLayout = "2006-01-02T15:04:05"

// ParseExpiration parses an ISO-8601 instant as produced by the catalog backend.
// A value without a zone offset is taken as local time.
func ParseExpiration(value string) (time.Time, bool) {
	if value == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, true
	}
	if t, err := time.ParseInLocation(localExpirationLayout, value, time.Local); err == nil {
		return t, true
	}
	return time.Time{}, false
}

// CacheEntry is the single persisted shop payload
type CacheEntry struct {
	Payload    string    // JSON text of the ShopPayload
	FetchedAt  time.Time // zero when the stored timestamp is missing or malformed
	Expiration string    // mirrors payload.expiration, "" when absent
}

// LoadState is the lifecycle of the shop data service
type LoadState string

const (
	StateUninitialized LoadState = "uninitialized"
	StateLoading       LoadState = "loading"
	StateReady         LoadState = "ready"
	StateReadyStale    LoadState = "ready_stale"
	StateError         LoadState = "error"
)

// Snapshot is the result of a shop load handed to the UI
type Snapshot struct {
	Payload    *ShopPayload `json:"payload"`
	State      LoadState    `json:"state"`
	Source     string       `json:"source"` // "cache", "provider" or "stale-cache"
	FetchedAt  time.Time    `json:"fetchedAt,omitempty"`
	Expiration string       `json:"expiration,omitempty"`
	Stale      bool         `json:"stale"`
	Warning    string       `json:"warning,omitempty"`
}

// ShopView is the carousel state of every shop section at a point in time
type ShopView struct {
	Featured       SectionPage     `json:"featured"`
	Daily          SectionPage     `json:"daily"`
	CustomSections []CustomSection `json:"customSections"`
}

// SectionPage is one visible page of a rotating section
type SectionPage struct {
	Items []ShopItem `json:"items"`
	Page  int        `json:"page"`
	Pages int        `json:"pages"`
}

// CustomSection is a named section with a fixed grid and a rotating spotlight
type CustomSection struct {
	Name      string      `json:"name"`
	Grid      []ShopItem  `json:"grid"`
	Spotlight SectionPage `json:"spotlight"`
}
