package memory

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"ai-interview-service/internal/app"
	"ai-interview-service/internal/domain"
	"golang.org/x/sync/singleflight"
)

// QuestionCache caches generated questions with TTL so repeated sessions at
// the same plan slot do not hit the provider again. Grading calls pass
// through untouched.
type QuestionCache struct {
	provider app.QuestionProvider
	ttl      time.Duration
	clock    func() time.Time
	sf       singleflight.Group

	rndMu sync.Mutex
	rnd   *rand.Rand

	mu    sync.RWMutex
	cache map[string]cachedQuestion
}

type cachedQuestion struct {
	question  domain.Question
	expiresAt time.Time
}

func NewQuestionCache(provider app.QuestionProvider, ttl time.Duration) *QuestionCache {
	return &QuestionCache{
		provider: provider,
		ttl:      ttl,
		clock:    time.Now,
		rnd:      rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:    make(map[string]cachedQuestion),
	}
}

func (c *QuestionCache) NextQuestion(ctx context.Context, difficulty domain.Difficulty, ordinal int) (domain.Question, error) {
	key := cacheKey(difficulty, ordinal)
	now := c.clock()

	c.mu.RLock()
	if entry, ok := c.cache[key]; ok && entry.expiresAt.After(now) {
		c.mu.RUnlock()
		return entry.question, nil
	}
	c.mu.RUnlock()

	result, err, _ := c.sf.Do(key, func() (interface{}, error) {
		now := c.clock()
		c.mu.RLock()
		if entry, ok := c.cache[key]; ok && entry.expiresAt.After(now) {
			c.mu.RUnlock()
			return entry.question, nil
		}
		c.mu.RUnlock()

		question, err := c.provider.NextQuestion(ctx, difficulty, ordinal)
		if err != nil {
			return domain.Question{}, err
		}

		c.mu.Lock()
		c.cache[key] = cachedQuestion{
			question:  question,
			expiresAt: now.Add(c.ttlWithJitter()),
		}
		c.mu.Unlock()
		return question, nil
	})
	if err != nil {
		return domain.Question{}, err
	}
	return result.(domain.Question), nil
}

func (c *QuestionCache) GradeAnswer(ctx context.Context, question domain.Question, answerText string) (domain.GradeResult, error) {
	return c.provider.GradeAnswer(ctx, question, answerText)
}

func (c *QuestionCache) Finalize(ctx context.Context, answers []domain.Answer) (domain.FinalResult, error) {
	return c.provider.Finalize(ctx, answers)
}

func cacheKey(difficulty domain.Difficulty, ordinal int) string {
	return fmt.Sprintf("%s:%d", difficulty, ordinal)
}

func (c *QuestionCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations; singleflight only
	// serializes same-key fetches, so the generator needs its own lock
	jitterMax := int64(c.ttl) / 10
	c.rndMu.Lock()
	jitter := c.rnd.Int63n(jitterMax + 1)
	c.rndMu.Unlock()
	return c.ttl + time.Duration(jitter)
}
