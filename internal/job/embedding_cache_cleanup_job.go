package job

import (
	"context"
	"time"

	"github.com/ragkb/ragkb/internal/repo"
)

type EmbeddingCacheCleanupJob struct {
	cache  *repo.EmbeddingCacheRepo
	maxAge time.Duration
}

func NewEmbeddingCacheCleanupJob(cache *repo.EmbeddingCacheRepo, maxAge time.Duration) *EmbeddingCacheCleanupJob {
	return &EmbeddingCacheCleanupJob{cache: cache, maxAge: maxAge}
}

func (j *EmbeddingCacheCleanupJob) Name() string {
	return "embedding_cache_cleanup"
}

func (j *EmbeddingCacheCleanupJob) Run(ctx context.Context) error {
	if j.cache == nil {
		return nil
	}
	maxAge := j.maxAge
	if maxAge <= 0 {
		maxAge = 30 * 24 * time.Hour
	}
	cutoff := time.Now().Add(-maxAge).Unix()
	_, err := j.cache.DeleteBefore(ctx, cutoff)
	return err
}
