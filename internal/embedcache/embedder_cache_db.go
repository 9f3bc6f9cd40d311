package embedcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/ragkb/ragkb/internal/ai"
	"github.com/ragkb/ragkb/internal/model"
	"github.com/ragkb/ragkb/internal/repo"
)

// WrapDBCacheToEmbedder decorates an embedder with a database-backed cache
// keyed by (model name, content hash). Within a batch only the cache misses
// are forwarded to the underlying embedder, preserving input order in the
// assembled result.
func WrapDBCacheToEmbedder(e ai.IEmbedder, cacheRepo *repo.EmbeddingCacheRepo) ai.IEmbedder {
	if e == nil || cacheRepo == nil {
		return e
	}
	return &dbEmbedder{next: e, repo: cacheRepo}
}

type dbEmbedder struct {
	next ai.IEmbedder
	repo *repo.EmbeddingCacheRepo
}

func (d *dbEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	modelName := cacheModelName(d.next.ModelName())
	vectors := make([][]float32, len(texts))
	var missTexts []string
	var missIdx []int
	for i, text := range texts {
		hash := contentHash(text)
		values, ok, err := d.repo.Get(ctx, modelName, hash)
		if err != nil {
			return nil, err
		}
		if ok {
			vectors[i] = values
			continue
		}
		missTexts = append(missTexts, text)
		missIdx = append(missIdx, i)
	}
	if len(missTexts) == 0 {
		logutil.GetLogger(ctx).Debug("embedding batch fully cached", zap.Int("size", len(texts)))
		return vectors, nil
	}
	fresh, err := d.next.EmbedBatch(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	now := time.Now().Unix()
	for j, idx := range missIdx {
		vectors[idx] = fresh[j]
		if err := d.repo.Save(ctx, &model.EmbeddingCache{
			ModelName:   modelName,
			ContentHash: contentHash(missTexts[j]),
			Embedding:   fresh[j],
			Ctime:       now,
		}); err != nil {
			logutil.GetLogger(ctx).Warn("failed to cache embedding", zap.Error(err))
		}
	}
	return vectors, nil
}

func (d *dbEmbedder) ModelName() string {
	return d.next.ModelName()
}

func contentHash(text string) string {
	hash := sha256.Sum256([]byte(text))
	return hex.EncodeToString(hash[:])
}

func cacheModelName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "unknown"
	}
	return name
}
