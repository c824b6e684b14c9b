package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/dayplan-api/pkg/errors"
)

type cacheRepoStub struct {
	values map[string]string
	ttls   map[string]time.Duration
	getErr error
}

func (r *cacheRepoStub) Get(ctx context.Context, key string, dest interface{}) error {
	if r.getErr != nil {
		return r.getErr
	}
	value, ok := r.values[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	*(dest.(*string)) = value
	return nil
}

func (r *cacheRepoStub) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	r.values[key] = value.(string)
	r.ttls[key] = ttl
	return nil
}

func TestCacheServiceNamespacesKeysAndRecordsMetrics(t *testing.T) {
	repo := &cacheRepoStub{values: map[string]string{}, ttls: map[string]time.Duration{}}
	metrics := NewMetricsService()
	svc := NewCacheService(repo, metrics, "dayplan", 5*time.Minute, nil, true)

	var out string
	hit, err := svc.Get(context.Background(), "plans:abc", &out)
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, svc.Set(context.Background(), "plans:abc", "payload", 0))
	assert.Equal(t, 5*time.Minute, repo.ttls["dayplan:plans:abc"])

	hit, err = svc.Get(context.Background(), "plans:abc", &out)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, "payload", out)

	snapshot := metrics.Snapshot()
	assert.Equal(t, uint64(1), snapshot.CacheHits)
	assert.Equal(t, uint64(1), snapshot.CacheMisses)
	assert.Equal(t, 0.5, snapshot.CacheHitRatio)
}

func TestCacheServiceSurfacesBackendErrors(t *testing.T) {
	repo := &cacheRepoStub{getErr: errors.New("connection refused")}
	svc := NewCacheService(repo, nil, "", 0, nil, true)

	var out string
	hit, err := svc.Get(context.Background(), "k", &out)
	assert.False(t, hit)
	assert.EqualError(t, err, "connection refused")
}

func TestCacheServiceDisabled(t *testing.T) {
	svc := NewCacheService(nil, nil, "dayplan", time.Minute, nil, true)
	assert.False(t, svc.Enabled())

	var out string
	hit, err := svc.Get(context.Background(), "k", &out)
	assert.NoError(t, err)
	assert.False(t, hit)
	assert.NoError(t, svc.Set(context.Background(), "k", "v", time.Minute))

	var nilSvc *CacheService
	assert.False(t, nilSvc.Enabled())
}
