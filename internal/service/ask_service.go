package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	appErr "github.com/ragkb/ragkb/internal/pkg/errors"
	"github.com/ragkb/ragkb/internal/rag"
)

type AskService struct {
	composer    *rag.Composer
	topKDefault int
	timeout     time.Duration
	cache       *expirable.LRU[string, *rag.Answer]
}

func NewAskService(composer *rag.Composer, topKDefault, cacheSize int, cacheTTL, timeout time.Duration) *AskService {
	s := &AskService{
		composer:    composer,
		topKDefault: topKDefault,
		timeout:     timeout,
	}
	if cacheSize > 0 {
		s.cache = expirable.NewLRU[string, *rag.Answer](cacheSize, nil, cacheTTL)
	}
	return s
}

// Ask answers a question over the indexed documents. Answers are cached per
// (question, top_k, doc_ids); explain requests bypass the cache so their
// timings are real.
func (s *AskService) Ask(ctx context.Context, question string, topK int, docIDs []int64, explain bool) (*rag.Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, appErr.ErrInvalidArgument
	}
	if topK <= 0 {
		topK = s.topKDefault
	}

	key := cacheKey(question, topK, docIDs)
	if s.cache != nil && !explain {
		if answer, ok := s.cache.Get(key); ok {
			logutil.GetLogger(ctx).Debug("answer cache hit", zap.String("key", key))
			return answer, nil
		}
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	answer, err := s.composer.Answer(ctx, question, topK, docIDs, explain)
	if err != nil {
		return nil, err
	}
	if s.cache != nil && !explain {
		s.cache.Add(key, answer)
	}
	return answer, nil
}

func cacheKey(question string, topK int, docIDs []int64) string {
	var sb strings.Builder
	sb.WriteString(question)
	sb.WriteString(fmt.Sprintf("|%d|", topK))
	if docIDs == nil {
		sb.WriteString("all")
	} else {
		for i, id := range docIDs {
			if i > 0 {
				sb.WriteByte(',')
			}
			fmt.Fprintf(&sb, "%d", id)
		}
	}
	sum := sha256.Sum256([]byte(sb.String()))
	return hex.EncodeToString(sum[:])
}
