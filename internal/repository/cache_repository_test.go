package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	appErrors "github.com/noah-isme/harmony-timetable-api/pkg/errors"
)

func TestCacheRepositoryKeyNamespace(t *testing.T) {
	assert.Equal(t, "harmony:timetable:proposal:p1", NewCacheRepository(nil, "harmony:", nil).key("timetable:proposal:p1"))
	assert.Equal(t, "timetable:proposal:p1", NewCacheRepository(nil, "", nil).key("timetable:proposal:p1"))
}

func TestCacheRepositoryWithoutClient(t *testing.T) {
	repo := NewCacheRepository(nil, "harmony", nil)
	ctx := context.Background()

	var dest map[string]any
	assert.ErrorIs(t, repo.Get(ctx, "k", &dest), appErrors.ErrCacheMiss)
	assert.NoError(t, repo.Set(ctx, "k", map[string]any{"a": 1}, time.Minute))
	assert.NoError(t, repo.Delete(ctx, "k"))
	assert.Error(t, repo.Ping(ctx))
	assert.NoError(t, repo.Close())
}
