package usecase

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rewindlauncher/backend/internal/domain"
)

// fakeClock is a manually advanced Clock. Timers fire synchronously from Advance.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	seq    int
	timers []*fakeTimer
}

type fakeTimer struct {
	clock   *fakeClock
	at      time.Time
	seq     int
	fn      func()
	stopped bool
	fired   bool
}

func newFakeClock(now time.Time) *fakeClock {
	return &fakeClock{now: now}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	t := &fakeTimer{clock: c, at: c.now.Add(d), seq: c.seq, fn: f}
	c.timers = append(c.timers, t)
	return t
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	pending := !t.stopped && !t.fired
	t.stopped = true
	return pending
}

// Set moves the clock without firing timers
func (c *fakeClock) Set(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

// Advance moves the clock forward by d, firing every timer that comes due in order
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	end := c.now.Add(d)
	c.mu.Unlock()

	for {
		c.mu.Lock()
		var due []*fakeTimer
		for _, t := range c.timers {
			if !t.stopped && !t.fired && !t.at.After(end) {
				due = append(due, t)
			}
		}
		if len(due) == 0 {
			c.now = end
			c.mu.Unlock()
			return
		}
		sort.Slice(due, func(i, j int) bool {
			if due[i].at.Equal(due[j].at) {
				return due[i].seq < due[j].seq
			}
			return due[i].at.Before(due[j].at)
		})
		next := due[0]
		next.fired = true
		if next.at.After(c.now) {
			c.now = next.at
		}
		c.mu.Unlock()

		next.fn()
	}
}

// Active counts timers that are armed and not yet fired
func (c *fakeClock) Active() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

// MockKeyValueStore is an in-memory domain.KeyValueStore with error injection
type MockKeyValueStore struct {
	mu        sync.Mutex
	data      map[string]string
	getErr    error
	commitErr error
	commits   int
	// afterGet runs once, outside the lock, after the next read returns
	afterGet func()
}

func NewMockKeyValueStore() *MockKeyValueStore {
	return &MockKeyValueStore{data: make(map[string]string)}
}

func (m *MockKeyValueStore) Get(ctx context.Context, key string) (string, error) {
	defer m.runAfterGet()
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return "", m.getErr
	}
	v, ok := m.data[key]
	if !ok {
		return "", domain.ErrKeyNotFound
	}
	return v, nil
}

func (m *MockKeyValueStore) GetMany(ctx context.Context, keys ...string) (map[string]string, error) {
	defer m.runAfterGet()
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	values := make(map[string]string, len(keys))
	for _, k := range keys {
		if v, ok := m.data[k]; ok {
			values[k] = v
		}
	}
	return values, nil
}

func (m *MockKeyValueStore) runAfterGet() {
	m.mu.Lock()
	hook := m.afterGet
	m.afterGet = nil
	m.mu.Unlock()
	if hook != nil {
		hook()
	}
}

func (m *MockKeyValueStore) Commit(ctx context.Context, set map[string]string, remove ...string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.commits++
	if m.commitErr != nil {
		return m.commitErr
	}
	for k, v := range set {
		m.data[k] = v
	}
	for _, k := range remove {
		delete(m.data, k)
	}
	return nil
}

func (m *MockKeyValueStore) Delete(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

func (m *MockKeyValueStore) Close() error { return nil }

func (m *MockKeyValueStore) value(key string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok
}

// MockShopProvider is a mock implementation of domain.ShopProvider
type MockShopProvider struct {
	mu      sync.Mutex
	payload *domain.ShopPayload
	err     error
	calls   int
	fetch   func(ctx context.Context) (*domain.ShopPayload, error)
}

func (m *MockShopProvider) FetchShopItems(ctx context.Context) (*domain.ShopPayload, error) {
	m.mu.Lock()
	m.calls++
	fetch, payload, err := m.fetch, m.payload, m.err
	m.mu.Unlock()

	if fetch != nil {
		return fetch(ctx)
	}
	if err != nil {
		return nil, err
	}
	return payload, nil
}

func (m *MockShopProvider) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func strPtr(s string) *string { return &s }

func samplePayload(expiration *string) *domain.ShopPayload {
	return &domain.ShopPayload{
		Featured: []domain.ShopItem{
			{ID: 1, CosmeticID: "CID_028_Athena_Commando_F", Name: "Renegade Raider", Price: 1200, Rarity: "rare"},
		},
		Daily: []domain.ShopItem{
			{ID: 1, CosmeticID: "EID_Floss", Name: "Floss", Price: 500, Rarity: "rare"},
		},
		CustomSections: map[string][]domain.ShopItem{},
		Expiration:     expiration,
	}
}
