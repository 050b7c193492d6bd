package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/rewindlauncher/backend/internal/domain"
	"github.com/rewindlauncher/backend/pkg/logger"
	"github.com/rewindlauncher/backend/pkg/metrics"
)

// Snapshot sources
const (
	SourceCache      = "cache"
	SourceProvider   = "provider"
	SourceStaleCache = "stale-cache"
)

// ShopServiceConfig holds configuration for the shop data service
type ShopServiceConfig struct {
	// FetchTimeout bounds a single provider call; 0 leaves it unbounded
	FetchTimeout time.Duration
	Clock        Clock
}

// ShopDataService is the single entry point the launcher UI uses to get the
// item shop. Flow: check cache -> fetch provider -> store -> schedule next refresh,
// falling back to any stored payload when the provider fails.
type ShopDataService struct {
	cache        *CacheStore
	provider     domain.ShopProvider
	scheduler    *RefreshScheduler
	clock        Clock
	fetchTimeout time.Duration
	log          *zap.Logger

	group   singleflight.Group
	writeMu sync.Mutex

	mu         sync.RWMutex
	state      domain.LoadState
	current    *domain.Snapshot
	expiration *time.Time
}

// NewShopDataService creates the service and installs its forced refresh on the scheduler
func NewShopDataService(
	cache *CacheStore,
	provider domain.ShopProvider,
	scheduler *RefreshScheduler,
	config ShopServiceConfig,
) *ShopDataService {
	clock := config.Clock
	if clock == nil {
		clock = SystemClock()
	}

	s := &ShopDataService{
		cache:        cache,
		provider:     provider,
		scheduler:    scheduler,
		clock:        clock,
		fetchTimeout: config.FetchTimeout,
		log:          logger.WithModule("shop"),
		state:        domain.StateUninitialized,
	}
	scheduler.SetRefreshFunc(s.scheduledRefresh)
	return s
}

// Load returns the item shop. Unless forceRefresh is set, a valid cache entry
// is served without calling the provider. A provider failure falls back to any
// stored payload, valid or not; only when nothing is stored does Load return
// an error wrapping domain.ErrShopUnavailable.
func (s *ShopDataService) Load(ctx context.Context, forceRefresh bool) (*domain.Snapshot, error) {
	s.setState(domain.StateLoading)

	if !forceRefresh {
		if snap := s.fromValidCache(ctx); snap != nil {
			metrics.ShopLoads.WithLabelValues("cache_hit").Inc()
			return snap, nil
		}
	}

	// shared with other callers and the scheduler; one caller's cancellation must not reach it
	v, err, shared := s.group.Do("shop", func() (interface{}, error) {
		return s.fetchAndStore(context.WithoutCancel(ctx))
	})
	if err == nil {
		if shared {
			s.log.Debug("joined in-flight shop fetch")
		}
		metrics.ShopLoads.WithLabelValues("fetched").Inc()
		return v.(*domain.Snapshot), nil
	}

	s.log.Warn("could not fetch shop", zap.Error(err))

	if snap := s.fromStaleCache(ctx, err); snap != nil {
		metrics.ShopLoads.WithLabelValues("stale").Inc()
		return snap, nil
	}

	metrics.ShopLoads.WithLabelValues("error").Inc()
	s.mu.Lock()
	s.state = domain.StateError
	s.current = nil
	s.mu.Unlock()

	return nil, fmt.Errorf("%w: %v", domain.ErrShopUnavailable, err)
}

// Start performs the initial load and arms the refresh chain
func (s *ShopDataService) Start(ctx context.Context) error {
	snap, err := s.Load(ctx, false)
	if err != nil {
		s.scheduler.Start(nil)
		s.scheduler.ScheduleRetry()
		return err
	}

	if snap.Stale {
		s.scheduler.Start(nil)
		s.scheduler.ScheduleRetry()
		return nil
	}

	// a cache hit has not armed the chain yet
	s.scheduler.Start(s.knownExpiration())
	return nil
}

// Stop cancels the pending refresh timer
func (s *ShopDataService) Stop() {
	s.scheduler.Cancel()
}

// Clear removes the stored payload and forgets the current snapshot
func (s *ShopDataService) Clear(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.cache.Clear(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	s.state = domain.StateUninitialized
	s.current = nil
	s.expiration = nil
	s.mu.Unlock()

	s.log.Info("shop cache cleared")
	return nil
}

// State returns the current lifecycle state
func (s *ShopDataService) State() domain.LoadState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Current returns the last snapshot served, or nil
func (s *ShopDataService) Current() *domain.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// RefreshTarget is the instant the shop is next expected to change: the known
// payload expiration when it lies ahead, otherwise the next daily reset.
func (s *ShopDataService) RefreshTarget(now time.Time) time.Time {
	if exp := s.knownExpiration(); exp != nil && exp.After(now) {
		return *exp
	}
	return s.scheduler.NextReset(now)
}

// NextScheduledRefresh reports the scheduler's armed instant
func (s *ShopDataService) NextScheduledRefresh() (time.Time, bool) {
	return s.scheduler.Next()
}

func (s *ShopDataService) fromValidCache(ctx context.Context) *domain.Snapshot {
	entry := s.cache.Read(ctx)
	if entry == nil || !s.cache.IsValid(entry) {
		return nil
	}

	payload, err := s.cache.Decode(entry)
	if err != nil {
		s.log.Warn("ignoring shop cache", zap.Error(err))
		return nil
	}

	snap := &domain.Snapshot{
		Payload:    payload,
		State:      domain.StateReady,
		Source:     SourceCache,
		FetchedAt:  entry.FetchedAt,
		Expiration: entry.Expiration,
	}
	s.publish(snap, entry.Expiration)
	return snap
}

func (s *ShopDataService) fromStaleCache(ctx context.Context, cause error) *domain.Snapshot {
	entry := s.cache.Read(ctx)
	if entry == nil {
		return nil
	}

	payload, err := s.cache.Decode(entry)
	if err != nil {
		s.log.Warn("stored shop payload unusable", zap.Error(err))
		return nil
	}

	snap := &domain.Snapshot{
		Payload:    payload,
		State:      domain.StateReadyStale,
		Source:     SourceStaleCache,
		FetchedAt:  entry.FetchedAt,
		Expiration: entry.Expiration,
		Stale:      true,
		Warning:    cause.Error(),
	}
	s.publish(snap, entry.Expiration)
	return snap
}

func (s *ShopDataService) fetchAndStore(ctx context.Context) (*domain.Snapshot, error) {
	fetchCtx := ctx
	if s.fetchTimeout > 0 {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithTimeout(ctx, s.fetchTimeout)
		defer cancel()
	}

	s.log.Info("fetching fresh shop data")
	start := s.clock.Now()
	payload, err := s.provider.FetchShopItems(fetchCtx)
	elapsed := s.clock.Now().Sub(start).Seconds()
	if err == nil && payload == nil {
		err = fmt.Errorf("%w: empty payload", domain.ErrProviderUnavailable)
	}
	if err != nil {
		metrics.ProviderFetchDuration.WithLabelValues("failure").Observe(elapsed)
		return nil, err
	}
	metrics.ProviderFetchDuration.WithLabelValues("success").Observe(elapsed)

	expiration := payload.ExpirationString()

	fetchedAt := s.clock.Now()
	s.writeMu.Lock()
	entry, werr := s.cache.Write(ctx, payload, expiration)
	s.writeMu.Unlock()
	if werr != nil {
		// the UI still gets the fresh payload; the next load refetches
		s.log.Warn("failed to store shop cache", zap.Error(werr))
	}
	if entry != nil {
		fetchedAt = entry.FetchedAt
	}

	snap := &domain.Snapshot{
		Payload:    payload,
		State:      domain.StateReady,
		Source:     SourceProvider,
		FetchedAt:  fetchedAt,
		Expiration: expiration,
	}
	exp := s.publish(snap, expiration)

	s.scheduler.ScheduleNext(exp)
	return snap, nil
}

// publish records snap as current and returns the parsed expiration, if any
func (s *ShopDataService) publish(snap *domain.Snapshot, expiration string) *time.Time {
	var exp *time.Time
	if t, ok := domain.ParseExpiration(expiration); ok {
		exp = &t
	}

	s.mu.Lock()
	s.state = snap.State
	s.current = snap
	s.expiration = exp
	s.mu.Unlock()

	return exp
}

func (s *ShopDataService) setState(state domain.LoadState) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

func (s *ShopDataService) knownExpiration() *time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.expiration
}

// scheduledRefresh is the scheduler's forced fetch. A stale fallback counts as
// a failure so the scheduler retries.
func (s *ShopDataService) scheduledRefresh(ctx context.Context) error {
	snap, err := s.Load(ctx, true)
	if err != nil {
		return err
	}
	if snap.Stale {
		return errors.New(snap.Warning)
	}
	return nil
}
