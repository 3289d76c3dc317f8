package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/companyim/talenta-api/pkg/errors"
)

type fakeCacheMetrics struct {
	hits   int
	misses int
}

func (f *fakeCacheMetrics) RecordCacheOperation(hit bool) {
	if hit {
		f.hits++
	} else {
		f.misses++
	}
}

func TestCacheRepositoryNilClientDegradesGracefully(t *testing.T) {
	metrics := &fakeCacheMetrics{}
	repo := NewCacheRepository(nil, nil, metrics)

	var dest string
	err := repo.Get(context.Background(), "talents:leaderboard:::10", &dest)
	assert.ErrorIs(t, err, appErrors.ErrCacheMiss)
	assert.Equal(t, 1, metrics.misses)
	assert.Equal(t, 0, metrics.hits)

	require.NoError(t, repo.Set(context.Background(), "k", "v", time.Minute))
	require.NoError(t, repo.DeleteByPattern(context.Background(), "talents:*"))
	require.NoError(t, repo.Close())
}

func TestCacheRepositoryNilMetricsIsSafe(t *testing.T) {
	repo := NewCacheRepository(nil, nil, nil)

	var dest string
	err := repo.Get(context.Background(), "statistics:overview::", &dest)
	assert.ErrorIs(t, err, appErrors.ErrCacheMiss)
}
