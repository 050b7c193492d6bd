package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	valkeylib "github.com/valkey-io/valkey-go"
	"go.uber.org/multierr"

	"github.com/rewindlauncher/backend/internal/domain"
)

// DefaultConnectTimeout is the maximum time to wait for the initial ping
const DefaultConnectTimeout = 5 * time.Second

// ValkeyOptions holds the configuration for a Valkey-backed store
type ValkeyOptions struct {
	Address        string
	Password       string
	DB             int
	KeyPrefix      string
	ConnectTimeout time.Duration
}

// ValkeyStore keeps keys in Valkey so several launcher hosts can share one cache
type ValkeyStore struct {
	client valkeylib.Client
	prefix string
}

// OpenValkey connects and pings the server. The caller must Close the store.
func OpenValkey(opts ValkeyOptions) (*ValkeyStore, error) {
	clientOpts := valkeylib.ClientOption{
		InitAddress: []string{opts.Address},
		SelectDB:    opts.DB,
	}
	if opts.Password != "" {
		clientOpts.Password = opts.Password
	}

	client, err := valkeylib.NewClient(clientOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to create valkey client: %w", err)
	}

	timeout := opts.ConnectTimeout
	if timeout == 0 {
		timeout = DefaultConnectTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping valkey (timeout: %v): %w", timeout, err)
	}

	return NewValkeyStore(client, opts.KeyPrefix), nil
}

// NewValkeyStore wraps an existing client
func NewValkeyStore(client valkeylib.Client, prefix string) *ValkeyStore {
	if prefix != "" && !strings.HasSuffix(prefix, ":") {
		prefix += ":"
	}
	return &ValkeyStore{client: client, prefix: prefix}
}

func (s *ValkeyStore) key(k string) string {
	return s.prefix + k
}

func (s *ValkeyStore) Get(ctx context.Context, key string) (string, error) {
	value, err := s.client.Do(ctx, s.client.B().Get().Key(s.key(key)).Build()).ToString()
	if valkeylib.IsValkeyNil(err) {
		return "", domain.ErrKeyNotFound
	}
	if err != nil {
		return "", err
	}
	return value, nil
}

// GetMany reads all keys with one MGET
func (s *ValkeyStore) GetMany(ctx context.Context, keys ...string) (map[string]string, error) {
	values := make(map[string]string, len(keys))
	if len(keys) == 0 {
		return values, nil
	}

	prefixed := make([]string, len(keys))
	for i, k := range keys {
		prefixed[i] = s.key(k)
	}
	replies, err := s.client.Do(ctx, s.client.B().Mget().Key(prefixed...).Build()).ToArray()
	if err != nil {
		return nil, err
	}

	for i := range replies {
		if i >= len(keys) {
			break
		}
		value, err := replies[i].ToString()
		if valkeylib.IsValkeyNil(err) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("valkey mget %s: %w", keys[i], err)
		}
		values[keys[i]] = value
	}
	return values, nil
}

// Commit wraps the writes in MULTI/EXEC on a dedicated connection
func (s *ValkeyStore) Commit(ctx context.Context, set map[string]string, remove ...string) error {
	if len(set) == 0 && len(remove) == 0 {
		return nil
	}

	return s.client.Dedicated(func(c valkeylib.DedicatedClient) error {
		cmds := make(valkeylib.Commands, 0, len(set)+3)
		cmds = append(cmds, c.B().Multi().Build())
		for key, value := range set {
			cmds = append(cmds, c.B().Set().Key(s.key(key)).Value(value).Build())
		}
		if len(remove) > 0 {
			keys := make([]string, len(remove))
			for i, k := range remove {
				keys[i] = s.key(k)
			}
			cmds = append(cmds, c.B().Del().Key(keys...).Build())
		}
		cmds = append(cmds, c.B().Exec().Build())

		resps := c.DoMulti(ctx, cmds...)
		last := len(resps) - 1
		if err := multierr.Combine(replyErrors(resps[:last], (*valkeylib.ValkeyResult).Error)...); err != nil {
			return fmt.Errorf("valkey commit failed: %w", err)
		}

		// EXEC succeeds as a whole even when a queued command fails
		replies, err := resps[last].ToArray()
		if err != nil {
			return fmt.Errorf("valkey commit failed: %w", err)
		}
		if err := multierr.Combine(replyErrors(replies, (*valkeylib.ValkeyMessage).Error)...); err != nil {
			return fmt.Errorf("valkey commit failed: %w", err)
		}
		return nil
	})
}

// replyErrors collects the non-nil errors of a batch of replies
func replyErrors[T any](replies []T, errOf func(*T) error) []error {
	var errs []error
	for i := range replies {
		if err := errOf(&replies[i]); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

func (s *ValkeyStore) Delete(ctx context.Context, keys ...string) error {
	return s.Commit(ctx, nil, keys...)
}

func (s *ValkeyStore) Close() error {
	s.client.Close()
	return nil
}
