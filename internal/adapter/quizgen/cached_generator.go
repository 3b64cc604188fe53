package quizgen

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"pdf-quiz/internal/cache"
	"pdf-quiz/internal/domain"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// CachedGenerator memoises successful generations per (text, level) and collapses
// identical concurrent requests into one model call.
type CachedGenerator struct {
	next         domain.QuestionGenerator
	cache        domain.Cache
	ttl          time.Duration
	numQuestions int
	sfGroup      singleflight.Group
	logger       *zap.Logger
}

// NewCachedGenerator wraps next. A nil cache only deduplicates concurrent calls.
func NewCachedGenerator(next domain.QuestionGenerator, c domain.Cache, ttl time.Duration, numQuestions int, logger *zap.Logger) *CachedGenerator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedGenerator{
		next:         next,
		cache:        c,
		ttl:          ttl,
		numQuestions: numQuestions,
		logger:       logger,
	}
}

// GenerationKey is the cache key for a generation request.
func GenerationKey(text string, level domain.QuizLevel, numQuestions int) string {
	sum := sha256.Sum256([]byte(text))
	return cache.GenerateCacheKey("quizgen", "questions", hex.EncodeToString(sum[:]), level.PromptValue(), strconv.Itoa(numQuestions))
}

func (g *CachedGenerator) GenerateQuestions(ctx context.Context, text string, level domain.QuizLevel) (*domain.GenerationResult, error) {
	key := GenerationKey(text, level, g.numQuestions)

	if cached, ok := g.lookup(ctx, key); ok {
		return cached, nil
	}

	// The shared call outlives any single caller; the generator applies its own timeout.
	sharedCtx := context.WithoutCancel(ctx)
	ch := g.sfGroup.DoChan(key, func() (interface{}, error) {
		res, err := g.next.GenerateQuestions(sharedCtx, text, level)
		if err != nil {
			return nil, err
		}
		g.store(sharedCtx, key, res)
		return res, nil
	})

	var r singleflight.Result
	select {
	case r = <-ch:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if r.Err != nil {
		return nil, r.Err
	}
	if r.Shared {
		g.logger.Debug("Quiz generation shared with concurrent request", zap.String("key", key))
	}

	res, ok := r.Val.(*domain.GenerationResult)
	if !ok {
		return nil, fmt.Errorf("unexpected type from singleflight.DoChan for quiz generation: %T", r.Val)
	}
	return copyResult(res), nil
}

func (g *CachedGenerator) lookup(ctx context.Context, key string) (*domain.GenerationResult, bool) {
	if g.cache == nil {
		return nil, false
	}
	data, err := g.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, domain.ErrCacheMiss) {
			g.logger.Error("Failed to read generated quiz from cache", zap.Error(err), zap.String("key", key))
		}
		return nil, false
	}
	var res domain.GenerationResult
	if err := json.Unmarshal([]byte(data), &res); err != nil {
		g.logger.Warn("Discarding undecodable cached quiz", zap.Error(err), zap.String("key", key))
		if delErr := g.cache.Delete(ctx, key); delErr != nil {
			g.logger.Error("Failed to delete undecodable cached quiz", zap.Error(delErr), zap.String("key", key))
		}
		return nil, false
	}
	g.logger.Debug("Generated quiz cache hit", zap.String("key", key))
	return &res, true
}

// store caches only results that produced questions, so a bad reply is retried next time.
func (g *CachedGenerator) store(ctx context.Context, key string, res *domain.GenerationResult) {
	if g.cache == nil || res.Status != domain.ParseOK || len(res.Questions) == 0 {
		return
	}
	data, err := json.Marshal(res)
	if err != nil {
		g.logger.Error("Failed to marshal generated quiz for caching", zap.Error(err))
		return
	}
	if err := g.cache.Set(ctx, key, string(data), g.ttl); err != nil {
		g.logger.Error("Failed to cache generated quiz", zap.Error(err), zap.String("key", key))
	}
}

// copyResult gives each caller its own question slice.
func copyResult(res *domain.GenerationResult) *domain.GenerationResult {
	out := *res
	out.Questions = append([]domain.MCQ(nil), res.Questions...)
	if out.Questions == nil {
		out.Questions = []domain.MCQ{}
	}
	return &out
}

var _ domain.QuestionGenerator = (*CachedGenerator)(nil)
