package storage

import (
	"context"
	"fmt"
	"strings"

	valkey "github.com/valkey-io/valkey-go"
)

// DefaultValkeyPrefix namespaces snapshot keys on a shared Valkey server.
const DefaultValkeyPrefix = "securescout:"

// ValkeyStore implements Store on a Valkey (Redis protocol) server. Several
// processes may share one server; writes are not coordinated and the last
// writer wins.
type ValkeyStore struct {
	client valkey.Client
	prefix string
}

var _ Store = (*ValkeyStore)(nil)

// NewValkeyStore connects to the server at addr and verifies it with PING.
func NewValkeyStore(ctx context.Context, addr, prefix string) (*ValkeyStore, error) {
	if addr == "" {
		return nil, fmt.Errorf("storage: valkey address is required")
	}
	if prefix == "" {
		prefix = DefaultValkeyPrefix
	}
	client, err := valkey.NewClient(valkey.ClientOption{InitAddress: []string{addr}})
	if err != nil {
		return nil, fmt.Errorf("storage: connect valkey %s: %w", addr, err)
	}
	if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
		client.Close()
		return nil, fmt.Errorf("storage: ping valkey %s: %w", addr, err)
	}
	return &ValkeyStore{client: client, prefix: prefix}, nil
}

func (s *ValkeyStore) key(k string) string { return s.prefix + k }

// Get executes GET and maps a nil reply to ErrNotFound.
func (s *ValkeyStore) Get(ctx context.Context, key string) ([]byte, error) {
	resp := s.client.Do(ctx, s.client.B().Get().Key(s.key(key)).Build())
	if err := resp.Error(); err != nil {
		if valkey.IsValkeyNil(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("storage: valkey GET %q: %w", key, err)
	}
	value, err := resp.ToString()
	if err != nil {
		return nil, fmt.Errorf("storage: valkey GET %q reply: %w", key, err)
	}
	return []byte(value), nil
}

// Put executes SET, replacing any previous snapshot.
func (s *ValkeyStore) Put(ctx context.Context, key string, value []byte) error {
	cmd := s.client.B().Set().Key(s.key(key)).Value(string(value)).Build()
	if err := s.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("storage: valkey SET %q: %w", key, err)
	}
	return nil
}

// Delete executes DEL.
func (s *ValkeyStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Do(ctx, s.client.B().Del().Key(s.key(key)).Build()).Error(); err != nil {
		return fmt.Errorf("storage: valkey DEL %q: %w", key, err)
	}
	return nil
}

// List enumerates the prefixed keys. Valkey keeps no modification time, so
// UpdatedAt is left zero.
func (s *ValkeyStore) List(ctx context.Context) ([]*Entry, error) {
	resp := s.client.Do(ctx, s.client.B().Keys().Pattern(s.prefix+"*").Build())
	if err := resp.Error(); err != nil {
		return nil, fmt.Errorf("storage: valkey KEYS: %w", err)
	}
	keys, err := resp.AsStrSlice()
	if err != nil {
		return nil, fmt.Errorf("storage: valkey KEYS reply: %w", err)
	}

	entries := make([]*Entry, 0, len(keys))
	for _, k := range keys {
		size, err := s.client.Do(ctx, s.client.B().Strlen().Key(k).Build()).ToInt64()
		if err != nil {
			return nil, fmt.Errorf("storage: valkey STRLEN %q: %w", k, err)
		}
		entries = append(entries, &Entry{Key: strings.TrimPrefix(k, s.prefix), Size: size})
	}
	return entries, nil
}

// Close shuts down the client connection.
func (s *ValkeyStore) Close() error {
	s.client.Close()
	return nil
}
