package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/rewindlauncher/backend/internal/domain"
	"github.com/rewindlauncher/backend/internal/usecase"
	"github.com/rewindlauncher/backend/pkg/logger"
)

const (
	serviceName    = "rewind-shop"
	serviceVersion = "1.0.0"
)

// ShopService is the part of usecase.ShopDataService the handlers use
type ShopService interface {
	Load(ctx context.Context, forceRefresh bool) (*domain.Snapshot, error)
	Clear(ctx context.Context) error
	State() domain.LoadState
	Current() *domain.Snapshot
	RefreshTarget(now time.Time) time.Time
	NextScheduledRefresh() (time.Time, bool)
}

// Countdown exposes the display value of the refresh countdown
type Countdown interface {
	Value() string
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	shop      ShopService
	countdown Countdown
	now       func() time.Time
	log       *zap.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(shop ShopService, countdown Countdown) *Handler {
	return &Handler{
		shop:      shop,
		countdown: countdown,
		now:       time.Now,
		log:       logger.WithModule("http"),
	}
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": serviceName,
		"version": serviceVersion,
	})
}

// GetShop returns the shop, served from cache unless refresh=true
func (h *Handler) GetShop(c *gin.Context) {
	force := false
	if raw := c.Query("refresh"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			h.writeError(c, domain.ErrInvalidRequest)
			return
		}
		force = v
	}
	h.load(c, force)
}

// RefreshShop forces a provider fetch
func (h *Handler) RefreshShop(c *gin.Context) {
	h.load(c, true)
}

func (h *Handler) load(c *gin.Context, force bool) {
	snap, err := h.shop.Load(c.Request.Context(), force)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

// GetCountdown returns the time left until the shop is expected to change
func (h *Handler) GetCountdown(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"timeUntilRefresh": h.countdown.Value(),
		"refreshAt":        h.shop.RefreshTarget(h.now()),
	})
}

// GetView returns the carousel page each section currently shows
func (h *Handler) GetView(c *gin.Context) {
	snap := h.shop.Current()
	if snap == nil {
		var err error
		snap, err = h.shop.Load(c.Request.Context(), false)
		if err != nil {
			h.writeError(c, err)
			return
		}
	}

	elapsed := time.Duration(0)
	if !snap.FetchedAt.IsZero() {
		elapsed = h.now().Sub(snap.FetchedAt)
	}
	c.JSON(http.StatusOK, usecase.BuildView(snap.Payload, elapsed))
}

// GetStatus reports the load state and the pending refresh
func (h *Handler) GetStatus(c *gin.Context) {
	status := gin.H{"state": h.shop.State()}

	if next, armed := h.shop.NextScheduledRefresh(); armed {
		status["nextRefresh"] = next
	}
	if snap := h.shop.Current(); snap != nil {
		status["source"] = snap.Source
		status["stale"] = snap.Stale
		if !snap.FetchedAt.IsZero() {
			status["fetchedAt"] = snap.FetchedAt
		}
		if snap.Expiration != "" {
			status["expiration"] = snap.Expiration
		}
	}
	c.JSON(http.StatusOK, status)
}

// ClearCache removes the stored shop payload
func (h *Handler) ClearCache(c *gin.Context) {
	if err := h.shop.Clear(c.Request.Context()); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidRequest):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: refresh must be a boolean"})
	case errors.Is(err, domain.ErrShopUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": domain.ErrShopUnavailable.Error()})
	default:
		h.log.Error("request failed", zap.String("path", c.Request.URL.Path), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
