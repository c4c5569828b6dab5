package redis

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dreammover/internal/state/core"
)

// fakeClient answers GET/SET from a map. Other UniversalClient methods are
// left nil and panic if reached.
type fakeClient struct {
	goredis.UniversalClient
	mu     sync.Mutex
	values map[string]string
	getErr error
	setErr error
	closed bool
}

func newFakeClient() *fakeClient {
	return &fakeClient{values: make(map[string]string)}
}

func (c *fakeClient) Get(_ context.Context, key string) *goredis.StringCmd {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return goredis.NewStringResult("", c.getErr)
	}
	v, ok := c.values[key]
	if !ok {
		return goredis.NewStringResult("", goredis.Nil)
	}
	return goredis.NewStringResult(v, nil)
}

func (c *fakeClient) Set(_ context.Context, key string, value interface{}, _ time.Duration) *goredis.StatusCmd {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.setErr != nil {
		return goredis.NewStatusResult("", c.setErr)
	}
	b, _ := value.([]byte)
	c.values[key] = string(b)
	return goredis.NewStatusResult("OK", nil)
}

func (c *fakeClient) Close() error {
	c.closed = true
	return nil
}

func TestNewRequiresClient(t *testing.T) {
	_, err := New(nil, "")
	assert.Error(t, err)
}

func TestGetMissingIsNotFound(t *testing.T) {
	store, err := New(newFakeClient(), "")
	require.NoError(t, err)
	_, err = store.Get(context.Background(), "tier/profile")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestPutPrefixesAndReplaces(t *testing.T) {
	ctx := context.Background()
	client := newFakeClient()
	store, err := New(client, "")
	require.NoError(t, err)

	require.NoError(t, store.Put(ctx, "collab/shared-libs", []byte(`[1]`)))
	require.NoError(t, store.Put(ctx, "collab/shared-libs", []byte(`[1,2]`)))

	assert.Equal(t, map[string]string{DefaultPrefix + "collab/shared-libs": `[1,2]`}, client.values)
	got, err := store.Get(ctx, "collab/shared-libs")
	require.NoError(t, err)
	assert.Equal(t, `[1,2]`, string(got))
	assert.Equal(t, core.DriverRedis, store.Driver())
}

func TestCustomPrefix(t *testing.T) {
	client := newFakeClient()
	store, err := New(client, "team-a:")
	require.NoError(t, err)
	require.NoError(t, store.Put(context.Background(), "k", []byte("v")))
	assert.Contains(t, client.values, "team-a:k")
}

func TestErrorsAreWrapped(t *testing.T) {
	ctx := context.Background()
	client := newFakeClient()
	store, err := New(client, "")
	require.NoError(t, err)

	client.getErr = errors.New("connection reset")
	_, err = store.Get(ctx, "viral/vectors")
	assert.ErrorIs(t, err, client.getErr)
	assert.NotErrorIs(t, err, core.ErrNotFound)

	client.setErr = errors.New("READONLY")
	assert.ErrorIs(t, store.Put(ctx, "viral/vectors", []byte(`[]`)), client.setErr)

	require.NoError(t, store.Close())
	assert.True(t, client.closed)
}

func TestOpenRejectsBadURL(t *testing.T) {
	_, err := Open(context.Background(), "")
	assert.Error(t, err)
	_, err = Open(context.Background(), "not-a-url")
	assert.Error(t, err)
}
