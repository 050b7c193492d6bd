package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rewindlauncher/backend/internal/domain"
)

// MockShopService is a mock implementation of ShopService
type MockShopService struct {
	snapshot   *domain.Snapshot
	loadErr    error
	clearErr   error
	forced     []bool
	target     time.Time
	next       time.Time
	armed      bool
	state      domain.LoadState
	current    *domain.Snapshot
	clearCalls int
}

func (m *MockShopService) Load(ctx context.Context, forceRefresh bool) (*domain.Snapshot, error) {
	m.forced = append(m.forced, forceRefresh)
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	return m.snapshot, nil
}

func (m *MockShopService) Clear(ctx context.Context) error {
	m.clearCalls++
	return m.clearErr
}

func (m *MockShopService) State() domain.LoadState                 { return m.state }
func (m *MockShopService) Current() *domain.Snapshot               { return m.current }
func (m *MockShopService) RefreshTarget(now time.Time) time.Time   { return m.target }
func (m *MockShopService) NextScheduledRefresh() (time.Time, bool) { return m.next, m.armed }

type staticCountdown string

func (c staticCountdown) Value() string { return string(c) }

func newMockRouter(svc *MockShopService) (*gin.Engine, *Handler) {
	h := NewHandler(svc, staticCountdown("1:02:03"))
	router := gin.New()
	router.GET("/shop", h.GetShop)
	router.POST("/shop/refresh", h.RefreshShop)
	router.GET("/shop/countdown", h.GetCountdown)
	router.GET("/shop/view", h.GetView)
	router.GET("/shop/status", h.GetStatus)
	router.DELETE("/shop/cache", h.ClearCache)
	return router, h
}

func serve(router *gin.Engine, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(method, path, nil))
	return w
}

func TestHandler_GetShop(t *testing.T) {
	snap := &domain.Snapshot{Payload: &domain.ShopPayload{}, State: domain.StateReady, Source: "cache"}

	tests := []struct {
		name       string
		path       string
		loadErr    error
		wantStatus int
		wantForced []bool
	}{
		{"default uses cache", "/shop", nil, http.StatusOK, []bool{false}},
		{"refresh=false", "/shop?refresh=false", nil, http.StatusOK, []bool{false}},
		{"refresh=true", "/shop?refresh=true", nil, http.StatusOK, []bool{true}},
		{"refresh=1", "/shop?refresh=1", nil, http.StatusOK, []bool{true}},
		{"bad refresh", "/shop?refresh=yes-please", nil, http.StatusBadRequest, nil},
		{"shop unavailable", "/shop", fmt.Errorf("%w: upstream 502", domain.ErrShopUnavailable), http.StatusServiceUnavailable, []bool{false}},
		{"unexpected error", "/shop", errors.New("boom"), http.StatusInternalServerError, []bool{false}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &MockShopService{snapshot: snap, loadErr: tt.loadErr}
			router, _ := newMockRouter(svc)

			w := serve(router, http.MethodGet, tt.path)
			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantForced, svc.forced)
		})
	}
}

func TestHandler_RefreshShop(t *testing.T) {
	svc := &MockShopService{snapshot: &domain.Snapshot{State: domain.StateReady}}
	router, _ := newMockRouter(svc)

	w := serve(router, http.MethodPost, "/shop/refresh")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []bool{true}, svc.forced)
}

func TestHandler_GetCountdown(t *testing.T) {
	svc := &MockShopService{target: time.Date(2030, 1, 1, 1, 1, 0, 0, time.UTC)}
	router, _ := newMockRouter(svc)

	w := serve(router, http.MethodGet, "/shop/countdown")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"timeUntilRefresh":"1:02:03","refreshAt":"2030-01-01T01:01:00Z"}`, w.Body.String())
	assert.Empty(t, svc.forced, "countdown never loads")
}

func TestHandler_GetView(t *testing.T) {
	fetchedAt := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	items := []domain.ShopItem{{ID: 1}, {ID: 2}, {ID: 3}}

	t.Run("rotates from the fetch time", func(t *testing.T) {
		svc := &MockShopService{current: &domain.Snapshot{
			Payload:   &domain.ShopPayload{Featured: items},
			FetchedAt: fetchedAt,
		}}
		router, h := newMockRouter(svc)
		h.now = func() time.Time { return fetchedAt.Add(6 * time.Second) }

		w := serve(router, http.MethodGet, "/shop/view")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"featured":{"items":[{"id":3`)
		assert.Empty(t, svc.forced)
	})

	t.Run("loads when nothing is current", func(t *testing.T) {
		svc := &MockShopService{snapshot: &domain.Snapshot{Payload: &domain.ShopPayload{Daily: items}}}
		router, _ := newMockRouter(svc)

		w := serve(router, http.MethodGet, "/shop/view")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, []bool{false}, svc.forced)
	})

	t.Run("reports an unavailable shop", func(t *testing.T) {
		svc := &MockShopService{loadErr: domain.ErrShopUnavailable}
		router, _ := newMockRouter(svc)

		w := serve(router, http.MethodGet, "/shop/view")
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})
}

func TestHandler_GetStatus(t *testing.T) {
	svc := &MockShopService{
		state: domain.StateReadyStale,
		next:  time.Date(2025, 6, 15, 12, 1, 0, 0, time.UTC),
		armed: true,
		current: &domain.Snapshot{
			Source: "stale-cache",
			Stale:  true,
		},
	}
	router, _ := newMockRouter(svc)

	w := serve(router, http.MethodGet, "/shop/status")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"state":"ready_stale","nextRefresh":"2025-06-15T12:01:00Z","source":"stale-cache","stale":true}`, w.Body.String())
}

func TestHandler_ClearCache(t *testing.T) {
	t.Run("clears", func(t *testing.T) {
		svc := &MockShopService{}
		router, _ := newMockRouter(svc)

		w := serve(router, http.MethodDelete, "/shop/cache")
		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Equal(t, 1, svc.clearCalls)
	})

	t.Run("storage failure is a 500", func(t *testing.T) {
		svc := &MockShopService{clearErr: errors.New("database is locked")}
		router, _ := newMockRouter(svc)

		w := serve(router, http.MethodDelete, "/shop/cache")
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.NotContains(t, w.Body.String(), "locked")
	})
}
