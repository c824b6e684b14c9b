package repository

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/dayplan-api/pkg/errors"
)

func TestCacheRepositoryWithoutClient(t *testing.T) {
	repo := NewCacheRepository(nil, nil)

	var dest map[string]string
	err := repo.Get(context.Background(), "plans:abc", &dest)
	assert.ErrorIs(t, err, appErrors.ErrCacheMiss)
	assert.NoError(t, repo.Set(context.Background(), "plans:abc", map[string]string{"a": "b"}, time.Minute))
	assert.NoError(t, repo.Delete(context.Background(), "plans:abc"))
	assert.Error(t, repo.Ping(context.Background()))
	assert.NoError(t, repo.Close())
}

func TestCacheRepositorySetRejectsUnencodableValue(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 50 * time.Millisecond, MaxRetries: -1})
	repo := NewCacheRepository(client, nil)
	defer repo.Close() //nolint:errcheck

	err := repo.Set(context.Background(), "plans:abc", func() {}, time.Minute)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "marshal cache value")
}

func TestCacheRepositoryGetWrapsTransportErrors(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 50 * time.Millisecond, MaxRetries: -1})
	repo := NewCacheRepository(client, nil)
	defer repo.Close() //nolint:errcheck

	var dest map[string]string
	err := repo.Get(context.Background(), "plans:abc", &dest)
	require.Error(t, err)
	assert.NotErrorIs(t, err, appErrors.ErrCacheMiss)
	assert.Contains(t, err.Error(), "redis get plans:abc")
}

func TestCacheRepositoryPingUnreachable(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 50 * time.Millisecond, MaxRetries: -1})
	repo := NewCacheRepository(client, nil)
	defer repo.Close() //nolint:errcheck

	assert.Error(t, repo.Ping(context.Background()))
	assert.Error(t, repo.Delete(context.Background(), "plans:abc"))
	assert.NoError(t, repo.Delete(context.Background()))
}
