package valkey

import (
	"context"
	"fmt"
	"time"

	"github.com/valkey-io/valkey-go"
)

// keyPrefix namespaces tour-engine entries so a shared Valkey instance can
// host other services without key collisions.
const keyPrefix = "wayfare:"

// Cache implements ports.CacheService on Valkey (Redis-compatible).
// Narration scripts and synthesized audio live here under TTLs, replacing
// the unbounded per-session maps an in-process cache would accumulate.
type Cache struct {
	client valkey.Client
}

// New connects to a Valkey server.
func New(addr string) (*Cache, error) {
	client, err := valkey.NewClient(valkey.ClientOption{
		InitAddress: []string{addr},
	})
	if err != nil {
		return nil, fmt.Errorf("valkey connect: %w", err)
	}
	return &Cache{client: client}, nil
}

// Get retrieves a value by key.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, error) {
	cmd := c.client.Do(ctx, c.client.B().Get().Key(keyPrefix+key).Build())
	if cmd.Error() != nil {
		return nil, cmd.Error()
	}
	return cmd.AsBytes()
}

// Set stores a value with a TTL in seconds.
func (c *Cache) Set(ctx context.Context, key string, value []byte, ttlSeconds int) error {
	cmd := c.client.Do(ctx, c.client.B().Set().
		Key(keyPrefix+key).
		Value(string(value)).
		Ex(time.Duration(ttlSeconds)*time.Second).
		Build())
	return cmd.Error()
}

// Delete removes a key.
func (c *Cache) Delete(ctx context.Context, key string) error {
	cmd := c.client.Do(ctx, c.client.B().Del().Key(keyPrefix+key).Build())
	return cmd.Error()
}

// Close releases the client.
func (c *Cache) Close() {
	c.client.Close()
}
