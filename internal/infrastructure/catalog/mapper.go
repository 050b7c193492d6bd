package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/rewindlauncher/backend/internal/domain"
)

// Storefronts that feed the item shop, in the order they are read
var shopStorefronts = []string{"BRDailyStorefront", "BRWeeklyStorefront"}

const (
	sectionFeatured      = "Featured"
	sectionFeaturedItems = "Featured Items"
	sectionDailyItems    = "Daily Items"

	unknownRarity = "unknown"
)

var errNoStorefronts = errors.New("no storefronts found in response")

// offer is a catalog entry that passed validation
type offer struct {
	cosmeticID string
	price      int
	sectionID  string
}

// CosmeticIDs lists the cosmetic ids of every valid shop offer, without duplicates
func CosmeticIDs(raw *CatalogResponse) []string {
	seen := make(map[string]struct{})
	var ids []string
	for _, o := range collectOffers(raw) {
		if _, ok := seen[o.cosmeticID]; ok {
			continue
		}
		seen[o.cosmeticID] = struct{}{}
		ids = append(ids, o.cosmeticID)
	}
	return ids
}

// OrganizeCatalog sorts valid offers into featured, daily and custom sections.
// Offers whose details are missing fall back to the cosmetic id and an unknown rarity.
func OrganizeCatalog(raw *CatalogResponse, details map[string]CosmeticDetails, imageBaseURL string) (*domain.ShopPayload, error) {
	if raw == nil || raw.Storefronts == nil {
		return nil, errNoStorefronts
	}

	payload := &domain.ShopPayload{
		Featured:       []domain.ShopItem{},
		Daily:          []domain.ShopItem{},
		CustomSections: make(map[string][]domain.ShopItem),
	}

	var expiration string
	if len(raw.Expiration) > 0 && json.Unmarshal(raw.Expiration, &expiration) == nil && expiration != "" {
		payload.Expiration = &expiration
	}

	custom := customSectionNames(raw.CustomSections)
	for _, name := range custom {
		payload.CustomSections[name] = []domain.ShopItem{}
	}

	imageBaseURL = strings.TrimSuffix(imageBaseURL, "/")
	for _, o := range collectOffers(raw) {
		item := domain.ShopItem{
			CosmeticID:   o.cosmeticID,
			Name:         o.cosmeticID,
			Price:        o.price,
			FeaturedIcon: fmt.Sprintf("%s/%s/featured.png", imageBaseURL, o.cosmeticID),
			Icon:         fmt.Sprintf("%s/%s/icon.png", imageBaseURL, o.cosmeticID),
			Rarity:       unknownRarity,
		}
		if d, ok := details[o.cosmeticID]; ok {
			if d.Name != "" {
				item.Name = d.Name
			}
			if d.Rarity != "" {
				item.Rarity = d.Rarity
			}
		}

		switch {
		case isFeaturedSection(o.sectionID):
			item.ID = len(payload.Featured) + 1
			payload.Featured = append(payload.Featured, item)
		case isCustomSection(o.sectionID, custom):
			item.ID = len(payload.CustomSections[o.sectionID]) + 1
			payload.CustomSections[o.sectionID] = append(payload.CustomSections[o.sectionID], item)
		default:
			item.ID = len(payload.Daily) + 1
			payload.Daily = append(payload.Daily, item)
		}
	}

	return payload, nil
}

func collectOffers(raw *CatalogResponse) []offer {
	if raw == nil || raw.Storefronts == nil {
		return nil
	}

	var offers []offer
	for _, name := range shopStorefronts {
		store := findStorefront(*raw.Storefronts, name)
		if store == nil {
			continue
		}
		for _, entry := range store.CatalogEntries {
			if o, ok := parseOffer(entry); ok {
				offers = append(offers, o)
			}
		}
	}
	return offers
}

func findStorefront(storefronts []Storefront, name string) *Storefront {
	for i := range storefronts {
		if storefronts[i].Name == name {
			return &storefronts[i]
		}
	}
	return nil
}

func parseOffer(entry CatalogEntry) (offer, bool) {
	if len(entry.ItemGrants) == 0 || len(entry.Prices) == 0 {
		return offer{}, false
	}

	_, cosmeticID, found := strings.Cut(entry.ItemGrants[0].TemplateID, ":")
	if !found {
		return offer{}, false
	}
	// "Type:id:variant" keeps only the id segment
	cosmeticID, _, _ = strings.Cut(cosmeticID, ":")
	if cosmeticID == "" {
		return offer{}, false
	}

	if len(entry.Prices[0].FinalPrice) == 0 {
		return offer{}, false
	}
	var price int
	if err := json.Unmarshal(entry.Prices[0].FinalPrice, &price); err != nil {
		price = 0
	}

	sectionID, _ := entry.Meta["SectionId"].(string)

	return offer{cosmeticID: cosmeticID, price: price, sectionID: sectionID}, true
}

func customSectionNames(raw []json.RawMessage) []string {
	var names []string
	for _, r := range raw {
		var name string
		if json.Unmarshal(r, &name) != nil {
			continue
		}
		if name == sectionFeaturedItems || name == sectionDailyItems {
			continue
		}
		names = append(names, name)
	}
	return names
}

func isFeaturedSection(sectionID string) bool {
	return sectionID == sectionFeatured || sectionID == sectionFeaturedItems
}

func isCustomSection(sectionID string, custom []string) bool {
	if sectionID == "" || isFeaturedSection(sectionID) || sectionID == sectionDailyItems {
		return false
	}
	for _, name := range custom {
		if name == sectionID {
			return true
		}
	}
	return false
}
