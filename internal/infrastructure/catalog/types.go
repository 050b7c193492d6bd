package catalog

import "encoding/json"

// CatalogResponse is the storefront catalog returned by the launcher backend
type CatalogResponse struct {
	Storefronts    *[]Storefront     `json:"storefronts"`
	Expiration     json.RawMessage   `json:"expiration,omitempty"`
	CustomSections []json.RawMessage `json:"custom_sections,omitempty"`
}

// Storefront is a named group of catalog entries
type Storefront struct {
	Name           string         `json:"name"`
	CatalogEntries []CatalogEntry `json:"catalogEntries"`
}

// CatalogEntry is a single purchasable offer
type CatalogEntry struct {
	ItemGrants []ItemGrant    `json:"itemGrants"`
	Prices     []Price        `json:"prices"`
	Meta       map[string]any `json:"meta,omitempty"`
}

// ItemGrant references the cosmetic granted by an offer, e.g. "AthenaCharacter:cid_028_athena_commando_f"
type ItemGrant struct {
	TemplateID string `json:"templateId"`
}

// Price holds the final price; left raw because backends disagree on its type
type Price struct {
	FinalPrice json.RawMessage `json:"finalPrice"`
}

// CosmeticDetails is the subset of cosmetic metadata shown in the shop
type CosmeticDetails struct {
	Name   string
	Rarity string
}

// cosmeticResponse is the cosmetics API envelope
type cosmeticResponse struct {
	Data struct {
		Name   string `json:"name"`
		Rarity struct {
			Value string `json:"value"`
		} `json:"rarity"`
	} `json:"data"`
}
