package usecase

import (
	"maps"
	"slices"
	"time"

	"github.com/rewindlauncher/backend/internal/domain"
)

// Carousel layout of the shop screen
const (
	FeaturedPageSize  = 2
	DailyPageSize     = 6
	SpotlightPageSize = 2
	CustomGridSize    = 8

	FeaturedRotation  = 5 * time.Second
	DailyRotation     = 500 * time.Millisecond
	SpotlightRotation = 5 * time.Second
)

// PageCount is the number of pages needed to show n items
func PageCount(n, pageSize int) int {
	if n <= 0 || pageSize <= 0 {
		return 0
	}
	return (n + pageSize - 1) / pageSize
}

// PageItems returns page (0-based) of items. Out of range pages are empty.
func PageItems(items []domain.ShopItem, page, pageSize int) []domain.ShopItem {
	if page < 0 || pageSize <= 0 {
		return []domain.ShopItem{}
	}
	start := page * pageSize
	if start >= len(items) {
		return []domain.ShopItem{}
	}
	end := min(start+pageSize, len(items))
	return items[start:end]
}

// RotationPage is the page shown after elapsed when advancing one page per
// interval and wrapping around.
func RotationPage(elapsed, interval time.Duration, pages int) int {
	if pages <= 1 || interval <= 0 || elapsed <= 0 {
		return 0
	}
	return int((elapsed / interval) % time.Duration(pages))
}

func rotate(items []domain.ShopItem, pageSize int, interval, elapsed time.Duration) domain.SectionPage {
	pages := PageCount(len(items), pageSize)
	page := RotationPage(elapsed, interval, pages)
	return domain.SectionPage{
		Items: PageItems(items, page, pageSize),
		Page:  page,
		Pages: pages,
	}
}

// BuildView computes what every section shows elapsed after the payload was fetched
func BuildView(payload *domain.ShopPayload, elapsed time.Duration) domain.ShopView {
	view := domain.ShopView{
		Featured:       domain.SectionPage{Items: []domain.ShopItem{}},
		Daily:          domain.SectionPage{Items: []domain.ShopItem{}},
		CustomSections: []domain.CustomSection{},
	}
	if payload == nil {
		return view
	}

	view.Featured = rotate(payload.Featured, FeaturedPageSize, FeaturedRotation, elapsed)
	view.Daily = rotate(payload.Daily, DailyPageSize, DailyRotation, elapsed)

	for _, name := range slices.Sorted(maps.Keys(payload.CustomSections)) {
		items := payload.CustomSections[name]
		section := domain.CustomSection{Name: name}

		if len(items) > CustomGridSize {
			section.Grid = items[:CustomGridSize]
			section.Spotlight = rotate(items[CustomGridSize:], SpotlightPageSize, SpotlightRotation, elapsed)
		} else {
			section.Grid = items
			spot := PageItems(items, 0, SpotlightPageSize)
			section.Spotlight = domain.SectionPage{Items: spot, Pages: PageCount(len(spot), SpotlightPageSize)}
		}
		view.CustomSections = append(view.CustomSections, section)
	}
	return view
}
