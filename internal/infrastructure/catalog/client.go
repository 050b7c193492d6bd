package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/rewindlauncher/backend/internal/domain"
	"github.com/rewindlauncher/backend/pkg/logger"
)

const detailsConcurrency = 8

// Options configures the catalog client
type Options struct {
	BaseURL       string
	CatalogPath   string
	CosmeticsURL  string
	ImageBaseURL  string
	Timeout       time.Duration
	RatePerSecond float64
	Burst         int
	MaxRetries    int
}

// Client fetches the storefront catalog and cosmetic details and turns them
// into a shop payload. It implements domain.ShopProvider.
type Client struct {
	http         *resty.Client
	catalogPath  string
	cosmeticsURL string
	imageBaseURL string
	rateLimiter  *rate.Limiter
	maxRetries   int
	backoff      func(attempt int) time.Duration
	debug        bool
	log          *zap.Logger
}

// NewClient creates a new catalog client
func NewClient(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.RatePerSecond <= 0 {
		opts.RatePerSecond = 5
	}
	if opts.Burst <= 0 {
		opts.Burst = 20
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 3
	}

	rc := resty.New().
		SetBaseURL(strings.TrimSuffix(opts.BaseURL, "/")).
		SetTimeout(opts.Timeout).
		SetHeader("User-Agent", "RewindLauncher/1.0").
		SetHeader("Accept", "application/json")

	return &Client{
		http:         rc,
		catalogPath:  opts.CatalogPath,
		cosmeticsURL: strings.TrimSuffix(opts.CosmeticsURL, "/"),
		imageBaseURL: opts.ImageBaseURL,
		rateLimiter:  rate.NewLimiter(rate.Limit(opts.RatePerSecond), opts.Burst),
		maxRetries:   opts.MaxRetries,
		backoff:      exponentialBackoff,
		log:          logger.WithModule("catalog"),
	}
}

// SetDebug enables logging of raw upstream responses
func (c *Client) SetDebug(debug bool) {
	c.debug = debug
}

// exponentialBackoff returns 500ms, 1s, 2s, ... for attempts 1, 2, 3, ...
func exponentialBackoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return time.Duration(500*(1<<(attempt-1))) * time.Millisecond
}

// FetchShopItems downloads the catalog, looks up cosmetic details and
// organises the result into shop sections.
func (c *Client) FetchShopItems(ctx context.Context) (*domain.ShopPayload, error) {
	raw, err := c.fetchCatalog(ctx)
	if err != nil {
		return nil, err
	}

	details := c.lookupDetails(ctx, CosmeticIDs(raw))

	payload, err := OrganizeCatalog(raw, details, c.imageBaseURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrProviderUnavailable, err)
	}

	c.log.Info("catalog organised",
		zap.Int("featured", len(payload.Featured)),
		zap.Int("daily", len(payload.Daily)),
		zap.Int("custom_sections", len(payload.CustomSections)),
		zap.String("expiration", payload.ExpirationString()),
	)
	return payload, nil
}

// fetchCatalog retries transport failures and 5xx responses; 4xx responses fail immediately
func (c *Client) fetchCatalog(ctx context.Context) (*CatalogResponse, error) {
	var lastErr error
	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: rate limiter: %v", domain.ErrProviderUnavailable, err)
		}

		resp, err := c.http.R().SetContext(ctx).Get(c.catalogPath)
		if err != nil {
			c.log.Warn("catalog request failed", zap.Int("attempt", attempt), zap.Error(err))
			lastErr = fmt.Errorf("%w: %v", domain.ErrProviderUnavailable, err)
			if err := c.sleep(ctx, attempt); err != nil {
				return nil, err
			}
			continue
		}

		if c.debug {
			c.log.Debug("catalog response", zap.Int("status", resp.StatusCode()), zap.ByteString("body", resp.Body()))
		}

		status := resp.StatusCode()
		if status >= http.StatusInternalServerError {
			c.log.Warn("catalog server error", zap.Int("attempt", attempt), zap.Int("status", status))
			lastErr = fmt.Errorf("%w: status %d", domain.ErrProviderUnavailable, status)
			if err := c.sleep(ctx, attempt); err != nil {
				return nil, err
			}
			continue
		}
		if status != http.StatusOK {
			return nil, fmt.Errorf("%w: status %d", domain.ErrProviderUnavailable, status)
		}

		var raw CatalogResponse
		if err := json.Unmarshal(resp.Body(), &raw); err != nil {
			return nil, fmt.Errorf("%w: failed to decode catalog: %v", domain.ErrProviderUnavailable, err)
		}
		if raw.Storefronts == nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrProviderUnavailable, errNoStorefronts)
		}
		return &raw, nil
	}

	c.log.Error("all catalog retries failed", zap.Int("attempts", c.maxRetries), zap.Error(lastErr))
	return nil, lastErr
}

func (c *Client) sleep(ctx context.Context, attempt int) error {
	if attempt >= c.maxRetries {
		return nil
	}
	timer := time.NewTimer(c.backoff(attempt))
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return fmt.Errorf("%w: %v", domain.ErrProviderUnavailable, ctx.Err())
	case <-timer.C:
		return nil
	}
}

// lookupDetails fetches cosmetic details concurrently. Failed lookups are
// left out so the organiser falls back to the cosmetic id.
func (c *Client) lookupDetails(ctx context.Context, ids []string) map[string]CosmeticDetails {
	details := make(map[string]CosmeticDetails, len(ids))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(detailsConcurrency)
	for _, id := range ids {
		g.Go(func() error {
			d, err := c.GetCosmeticDetails(gctx, id)
			if err != nil {
				c.log.Debug("cosmetic lookup failed", zap.String("cosmetic_id", id), zap.Error(err))
				return nil
			}
			mu.Lock()
			details[id] = *d
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return details
}

// GetCosmeticDetails retrieves the display name and rarity of a cosmetic
func (c *Client) GetCosmeticDetails(ctx context.Context, id string) (*CosmeticDetails, error) {
	if id == "" {
		return nil, domain.ErrInvalidRequest
	}
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter error: %w", err)
	}

	resp, err := c.http.R().
		SetContext(ctx).
		Get(fmt.Sprintf("%s/%s", c.cosmeticsURL, id))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch cosmetic details: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("cosmetics API returned status %d", resp.StatusCode())
	}

	var body cosmeticResponse
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return nil, fmt.Errorf("failed to decode cosmetic details: %w", err)
	}

	return &CosmeticDetails{
		Name:   body.Data.Name,
		Rarity: body.Data.Rarity.Value,
	}, nil
}
