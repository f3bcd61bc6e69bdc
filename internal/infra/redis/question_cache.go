package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"ai-interview-service/internal/app"
	"ai-interview-service/internal/domain"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// QuestionCache caches issued questions in Redis, one JSON value per plan
// slot, and falls back to the wrapped provider on a miss.
// Keys: interview:question:{difficulty}:{ordinal}
type QuestionCache struct {
	client   *redis.Client
	provider app.QuestionProvider
	ttl      time.Duration
	sf       singleflight.Group

	rndMu sync.Mutex
	rnd   *rand.Rand
}

func NewQuestionCache(client *redis.Client, provider app.QuestionProvider, ttl time.Duration) *QuestionCache {
	return &QuestionCache{
		client:   client,
		provider: provider,
		ttl:      ttl,
		rnd:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *QuestionCache) NextQuestion(ctx context.Context, difficulty domain.Difficulty, ordinal int) (domain.Question, error) {
	key := c.key(difficulty, ordinal)

	if question, ok := c.lookup(ctx, key); ok {
		return question, nil
	}

	result, err, _ := c.sf.Do(key, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if question, ok := c.lookup(ctx, key); ok {
			return question, nil
		}

		question, err := c.provider.NextQuestion(ctx, difficulty, ordinal)
		if err != nil {
			return domain.Question{}, err
		}

		if raw, err := json.Marshal(question); err == nil {
			// best-effort write; a cache failure must not fail the fetch
			_ = c.client.Set(ctx, key, raw, c.ttlWithJitter()).Err()
		}
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

func (c *QuestionCache) lookup(ctx context.Context, key string) (domain.Question, bool) {
	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		return domain.Question{}, false
	}
	var question domain.Question
	if err := json.Unmarshal(raw, &question); err != nil {
		return domain.Question{}, false
	}
	return question, true
}

func (c *QuestionCache) key(difficulty domain.Difficulty, ordinal int) string {
	return fmt.Sprintf("interview:question:%s:%d", difficulty, ordinal)
}

func (c *QuestionCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// singleflight only serializes same-key fetches, so the generator
	// needs its own lock
	jitterMax := int64(c.ttl) / 10
	c.rndMu.Lock()
	jitter := c.rnd.Int63n(jitterMax + 1)
	c.rndMu.Unlock()
	return c.ttl + time.Duration(jitter)
}
