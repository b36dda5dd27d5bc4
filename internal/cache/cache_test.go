package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockCache implements the Cache interface for testing
type MockCache struct {
	data map[string][]byte
}

func NewMockCache() *MockCache {
	return &MockCache{
		data: make(map[string][]byte),
	}
}

func (m *MockCache) Get(ctx context.Context, key string) ([]byte, error) {
	if value, exists := m.data[key]; exists {
		return value, nil
	}
	return nil, nil
}

func (m *MockCache) Set(ctx context.Context, key string, value []byte, expiration time.Duration) error {
	m.data[key] = value
	return nil
}

func (m *MockCache) Delete(ctx context.Context, key string) error {
	delete(m.data, key)
	return nil
}

func (m *MockCache) Exists(ctx context.Context, key string) (bool, error) {
	_, exists := m.data[key]
	return exists, nil
}

func (m *MockCache) Close() error {
	m.data = nil
	return nil
}

func (m *MockCache) Health(ctx context.Context) error {
	return nil
}

func TestCacheInterface_Basic(t *testing.T) {
	ctx := context.Background()
	cache := NewMockCache()
	defer cache.Close()

	// Test Set and Get
	err := cache.Set(ctx, "key1", []byte("value1"), time.Hour)
	require.NoError(t, err)

	value, err := cache.Get(ctx, "key1")
	require.NoError(t, err)
	assert.Equal(t, []byte("value1"), value)

	// Test Exists
	exists, err := cache.Exists(ctx, "key1")
	require.NoError(t, err)
	assert.True(t, exists)

	// A miss returns nil data and nil error
	value, err = cache.Get(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, value)
}

func TestGetSetJSON(t *testing.T) {
	ctx := context.Background()
	cache := NewMockCache()
	defer cache.Close()

	type profile struct {
		ID       int64  `json:"id"`
		Username string `json:"username"`
	}

	err := SetJSON(ctx, cache, AuthUserKey(42), profile{ID: 42, Username: "ada"}, AuthUserTTL)
	require.NoError(t, err)

	var got profile
	found, err := GetJSON(ctx, cache, AuthUserKey(42), &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, int64(42), got.ID)
	assert.Equal(t, "ada", got.Username)

	// Miss
	found, err = GetJSON(ctx, cache, AuthUserKey(99), &got)
	require.NoError(t, err)
	assert.False(t, found)

	// Corrupt payload surfaces a CacheError
	require.NoError(t, cache.Set(ctx, "bad", []byte("{not json"), time.Minute))
	_, err = GetJSON(ctx, cache, "bad", &got)
	var cacheErr *CacheError
	require.ErrorAs(t, err, &cacheErr)
	assert.Equal(t, "decode", cacheErr.Operation)
	assert.Equal(t, "bad", cacheErr.Key)
}

func TestKeyBuilders(t *testing.T) {
	assert.Equal(t, "auth:user:7", AuthUserKey(7))
	assert.Equal(t, "storage:signed:profile_pictures:7/avatar.png", SignedURLKey("profile_pictures", "7/avatar.png"))
	assert.Equal(t, "spotify:search:album:ok computer:10", SpotifySearchKey("album", "ok computer", 10))
	assert.Equal(t, "spotify:album:abc123", SpotifyAlbumKey("abc123"))
	assert.Equal(t, "recommend:users:7", RecommendationKey(7))
}

func TestTieredCache_LocalTier(t *testing.T) {
	ctx := context.Background()
	remote := NewMockCache()
	tiered := &TieredCache{
		local:    make(map[string]localItem),
		remote:   remote,
		maxItems: 2,
	}

	require.NoError(t, tiered.Set(ctx, "a", []byte("1"), time.Minute))

	// Served locally even after the remote copy disappears
	require.NoError(t, remote.Delete(ctx, "a"))
	value, err := tiered.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []byte("1"), value)

	// Delete clears both tiers
	require.NoError(t, tiered.Delete(ctx, "a"))
	value, err = tiered.Get(ctx, "a")
	require.NoError(t, err)
	assert.Nil(t, value)
}

// ttlMockCache extends MockCache with per-key lifetimes so the tiered
// cache can inherit them.
type ttlMockCache struct {
	*MockCache
	ttls map[string]time.Duration
}

func newTTLMockCache() *ttlMockCache {
	return &ttlMockCache{MockCache: NewMockCache(), ttls: make(map[string]time.Duration)}
}

func (m *ttlMockCache) Set(ctx context.Context, key string, value []byte, expiration time.Duration) error {
	m.ttls[key] = expiration
	return m.MockCache.Set(ctx, key, value, expiration)
}

func (m *ttlMockCache) GetWithTTL(ctx context.Context, key string) ([]byte, time.Duration, error) {
	data, err := m.MockCache.Get(ctx, key)
	if data == nil || err != nil {
		return nil, 0, err
	}
	return data, m.ttls[key], nil
}

func TestTieredCache_RemoteHitInheritsRemoteTTL(t *testing.T) {
	ctx := context.Background()
	remote := newTTLMockCache()
	tiered := &TieredCache{
		local:    make(map[string]localItem),
		remote:   remote,
		maxItems: 10,
	}

	// Populated out of band, so only a Get can fill the local tier
	key := AuthUserKey(7)
	require.NoError(t, remote.Set(ctx, key, []byte("u7"), AuthUserTTL))

	value, err := tiered.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, []byte("u7"), value)

	item, ok := tiered.local[key]
	require.True(t, ok)
	assert.WithinDuration(t, time.Now().Add(AuthUserTTL), item.expiresAt, time.Second,
		"local copy must not outlive the remote TTL")
}

func TestTieredCache_NoStaleLocalCopyWithoutRemoteTTL(t *testing.T) {
	ctx := context.Background()
	remote := NewMockCache()
	tiered := &TieredCache{
		local:    make(map[string]localItem),
		remote:   remote,
		maxItems: 10,
	}

	key := AuthUserKey(7)
	require.NoError(t, remote.Set(ctx, key, []byte("u7"), AuthUserTTL))

	value, err := tiered.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, []byte("u7"), value)

	// The remote cannot report TTLs, so a remote delete must be visible
	// on the next read instead of masked by a stale local copy.
	require.NoError(t, remote.Delete(ctx, key))
	value, err = tiered.Get(ctx, key)
	require.NoError(t, err)
	assert.Nil(t, value)
}

func TestTieredCache_Eviction(t *testing.T) {
	ctx := context.Background()
	tiered := &TieredCache{
		local:    make(map[string]localItem),
		remote:   NewMockCache(),
		maxItems: 2,
	}

	require.NoError(t, tiered.Set(ctx, "a", []byte("1"), time.Minute))
	require.NoError(t, tiered.Set(ctx, "b", []byte("2"), 2*time.Minute))
	require.NoError(t, tiered.Set(ctx, "c", []byte("3"), 3*time.Minute))

	// Local tier stays bounded; evicted keys still resolve through the remote
	assert.LessOrEqual(t, len(tiered.local), 2)
	for _, key := range []string{"a", "b", "c"} {
		value, err := tiered.Get(ctx, key)
		require.NoError(t, err)
		assert.NotNil(t, value, key)
	}
}
