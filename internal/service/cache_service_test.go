package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	appErrors "github.com/noah-isme/harmony-timetable-api/pkg/errors"
)

type flakyCacheRepo struct {
	getErr  error
	setErr  error
	lastTTL time.Duration
}

func (f *flakyCacheRepo) Get(ctx context.Context, key string, dest interface{}) error {
	return f.getErr
}

func (f *flakyCacheRepo) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	f.lastTTL = ttl
	return f.setErr
}

func (f *flakyCacheRepo) Delete(ctx context.Context, key string) error { return nil }

func (f *flakyCacheRepo) Ping(ctx context.Context) error { return f.getErr }

func TestCacheServiceDisabled(t *testing.T) {
	svc := NewCacheService(nil, nil, 0, nil)
	assert.False(t, svc.Enabled())

	hit, err := svc.Get(context.Background(), "k", &struct{}{})
	assert.False(t, hit)
	assert.NoError(t, err)
	assert.NoError(t, svc.Set(context.Background(), "k", 1, 0))
	assert.Error(t, svc.Ping(context.Background()))
}

func TestCacheServiceMissAndFailure(t *testing.T) {
	metrics := NewMetricsService()
	repo := &flakyCacheRepo{getErr: appErrors.ErrCacheMiss}
	svc := NewCacheService(repo, metrics, time.Minute, zap.NewNop())

	hit, err := svc.Get(context.Background(), "timetable:proposal:p1", &timetableProposal{})
	require.NoError(t, err)
	assert.False(t, hit)

	repo.getErr = errors.New("connection reset")
	hit, err = svc.Get(context.Background(), "timetable:proposal:p1", &timetableProposal{})
	assert.Error(t, err)
	assert.False(t, hit)

	repo.getErr = nil
	hit, err = svc.Get(context.Background(), "timetable:proposal:p1", &timetableProposal{})
	require.NoError(t, err)
	assert.True(t, hit)

	snapshot := metrics.Snapshot()
	assert.Equal(t, uint64(1), snapshot.CacheHits)
	assert.Equal(t, uint64(2), snapshot.CacheMisses)
}

func TestCacheServiceSetUsesDefaultTTL(t *testing.T) {
	repo := &flakyCacheRepo{}
	svc := NewCacheService(repo, nil, 5*time.Minute, nil)

	require.NoError(t, svc.Set(context.Background(), "k", "v", 0))
	assert.Equal(t, 5*time.Minute, repo.lastTTL)

	require.NoError(t, svc.Set(context.Background(), "k", "v", time.Second))
	assert.Equal(t, time.Second, repo.lastTTL)

	repo.setErr = errors.New("read only replica")
	assert.Error(t, svc.Set(context.Background(), "k", "v", 0))
}
