package cache

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/valkey-io/valkey-go"
)

// valkeyCache implements Cache interface using Valkey
type valkeyCache struct {
	client valkey.Client
}

// NewValkeyCache creates a new Valkey-backed cache
func NewValkeyCache(valkeyURL string) (Cache, error) {
	addr, password, err := parseValkeyURL(valkeyURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Valkey URL: %w", err)
	}

	clientOption := valkey.ClientOption{
		InitAddress: []string{addr},
	}
	if password != "" {
		clientOption.Password = password
	}

	client, err := valkey.NewClient(clientOption)
	if err != nil {
		return nil, fmt.Errorf("failed to create Valkey client: %w", err)
	}

	c := &valkeyCache{client: client}

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := c.Health(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect to Valkey: %w", err)
	}

	return c, nil
}

// Get retrieves a value from Valkey
func (c *valkeyCache) Get(ctx context.Context, key string) ([]byte, error) {
	cmd := c.client.B().Get().Key(key).Build()
	result := c.client.Do(ctx, cmd)

	if result.Error() != nil {
		if valkey.IsValkeyNil(result.Error()) {
			return nil, nil // Key doesn't exist
		}
		return nil, &CacheError{Operation: "get", Key: key, Err: result.Error()}
	}

	data, err := result.AsBytes()
	if err != nil {
		return nil, &CacheError{Operation: "get", Key: key, Err: err}
	}

	return data, nil
}

// GetWithTTL retrieves a value together with its remaining lifetime.
// A zero TTL means the key has no expiry.
func (c *valkeyCache) GetWithTTL(ctx context.Context, key string) ([]byte, time.Duration, error) {
	data, err := c.Get(ctx, key)
	if err != nil || data == nil {
		return data, 0, err
	}

	cmd := c.client.B().Pttl().Key(key).Build()
	ms, err := c.client.Do(ctx, cmd).AsInt64()
	if err != nil {
		return nil, 0, &CacheError{Operation: "ttl", Key: key, Err: err}
	}
	if ms < 0 {
		// -1 no expiry, -2 expired between the two commands
		if ms == -2 {
			return nil, 0, nil
		}
		return data, 0, nil
	}
	return data, time.Duration(ms) * time.Millisecond, nil
}

// Set stores a value in Valkey with expiration
func (c *valkeyCache) Set(ctx context.Context, key string, value []byte, expiration time.Duration) error {
	var cmd valkey.Completed

	if expiration > 0 {
		cmd = c.client.B().Set().Key(key).Value(string(value)).Ex(expiration).Build()
	} else {
		cmd = c.client.B().Set().Key(key).Value(string(value)).Build()
	}

	result := c.client.Do(ctx, cmd)
	if result.Error() != nil {
		return &CacheError{Operation: "set", Key: key, Err: result.Error()}
	}

	return nil
}

// Delete removes a key from Valkey
func (c *valkeyCache) Delete(ctx context.Context, key string) error {
	cmd := c.client.B().Del().Key(key).Build()
	result := c.client.Do(ctx, cmd)

	if result.Error() != nil {
		return &CacheError{Operation: "delete", Key: key, Err: result.Error()}
	}

	return nil
}

// Exists checks if a key exists in Valkey
func (c *valkeyCache) Exists(ctx context.Context, key string) (bool, error) {
	cmd := c.client.B().Exists().Key(key).Build()
	result := c.client.Do(ctx, cmd)

	if result.Error() != nil {
		return false, &CacheError{Operation: "exists", Key: key, Err: result.Error()}
	}

	count, err := result.AsInt64()
	if err != nil {
		return false, &CacheError{Operation: "exists", Key: key, Err: err}
	}

	return count > 0, nil
}

// Close closes the Valkey connection
func (c *valkeyCache) Close() error {
	c.client.Close()
	return nil
}

// Health checks Valkey health
func (c *valkeyCache) Health(ctx context.Context) error {
	cmd := c.client.B().Ping().Build()
	result := c.client.Do(ctx, cmd)

	if result.Error() != nil {
		return fmt.Errorf("Valkey health check failed: %w", result.Error())
	}

	return nil
}

// parseValkeyURL extracts connection details from Valkey URL
func parseValkeyURL(valkeyURL string) (address, password string, err error) {
	u, err := url.Parse(valkeyURL)
	if err != nil {
		return "", "", fmt.Errorf("invalid URL format: %w", err)
	}

	if u.Host == "" {
		return "", "", fmt.Errorf("missing host in URL")
	}
	address = u.Host

	if u.User != nil {
		password, _ = u.User.Password()
	}

	return address, password, nil
}

// TieredCache layers a small in-process map over Valkey. Hot keys such as
// signed URLs and auth lookups are served from memory between Valkey hits.
type TieredCache struct {
	local    map[string]localItem
	remote   Cache
	maxItems int
	mu       sync.RWMutex // Protects local
}

type localItem struct {
	data      []byte
	expiresAt time.Time
}

// ttlGetter is implemented by remotes that can report a key's remaining
// lifetime, letting the local tier inherit it on a remote hit.
type ttlGetter interface {
	GetWithTTL(ctx context.Context, key string) ([]byte, time.Duration, error)
}

// NewTieredCache creates a TieredCache backed by the given Valkey URL.
func NewTieredCache(valkeyURL string, maxItems int) (Cache, error) {
	remote, err := NewValkeyCache(valkeyURL)
	if err != nil {
		return nil, err
	}

	return &TieredCache{
		local:    make(map[string]localItem),
		remote:   remote,
		maxItems: maxItems,
	}, nil
}

// Get checks the local tier first, then Valkey
func (c *TieredCache) Get(ctx context.Context, key string) ([]byte, error) {
	c.mu.RLock()
	item, ok := c.local[key]
	c.mu.RUnlock()
	if ok {
		if time.Now().Before(item.expiresAt) {
			return item.data, nil
		}
		c.mu.Lock()
		if item, ok := c.local[key]; ok && !time.Now().Before(item.expiresAt) {
			delete(c.local, key)
		}
		c.mu.Unlock()
	}

	// The local copy must not outlive the remote one, so repopulation
	// only happens when the remote can report the remaining TTL.
	if remote, ok := c.remote.(ttlGetter); ok {
		data, ttl, err := remote.GetWithTTL(ctx, key)
		if err != nil {
			return nil, err
		}
		if data != nil && ttl > 0 {
			c.setLocal(key, data, min(ttl, time.Hour))
		}
		return data, nil
	}

	return c.remote.Get(ctx, key)
}

// Set stores in both tiers
func (c *TieredCache) Set(ctx context.Context, key string, value []byte, expiration time.Duration) error {
	if err := c.remote.Set(ctx, key, value, expiration); err != nil {
		return err
	}

	localTTL := expiration
	if localTTL <= 0 || localTTL > time.Hour {
		localTTL = time.Hour
	}
	c.setLocal(key, value, localTTL)

	return nil
}

// Delete removes from both tiers
func (c *TieredCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	delete(c.local, key)
	c.mu.Unlock()

	return c.remote.Delete(ctx, key)
}

// Exists checks both tiers
func (c *TieredCache) Exists(ctx context.Context, key string) (bool, error) {
	c.mu.RLock()
	if item, ok := c.local[key]; ok && time.Now().Before(item.expiresAt) {
		c.mu.RUnlock()
		return true, nil
	}
	c.mu.RUnlock()

	return c.remote.Exists(ctx, key)
}

// Close closes the Valkey connection
func (c *TieredCache) Close() error {
	return c.remote.Close()
}

// Health checks the Valkey tier
func (c *TieredCache) Health(ctx context.Context) error {
	return c.remote.Health(ctx)
}

// setLocal inserts into the local tier, evicting the soonest-expiring
// entry when full.
func (c *TieredCache) setLocal(key string, value []byte, expiration time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.local) >= c.maxItems {
		oldestKey := ""
		oldestTime := time.Now().Add(expiration)

		for k, item := range c.local {
			if item.expiresAt.Before(oldestTime) {
				oldestKey = k
				oldestTime = item.expiresAt
			}
		}

		if oldestKey != "" {
			delete(c.local, oldestKey)
		}
	}

	c.local[key] = localItem{
		data:      value,
		expiresAt: time.Now().Add(expiration),
	}
}
