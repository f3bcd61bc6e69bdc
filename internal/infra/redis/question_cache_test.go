package redis

import (
	"context"
	"sync"
	"testing"
	"time"

	"ai-interview-service/internal/app"
	"ai-interview-service/internal/domain"
	"ai-interview-service/internal/infra/memory"
	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestQuestionCacheCachesInRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := newClient(mr)
	counting := &countingProvider{QuestionProvider: memory.NewStaticProviderWithSeed(1)}
	cache := NewQuestionCache(client, counting, time.Minute)

	q1, err := cache.NextQuestion(context.Background(), domain.DifficultyMedium, 2)
	if err != nil {
		t.Fatalf("next question: %v", err)
	}
	if counting.calls != 1 {
		t.Fatalf("expected provider called once, got %d", counting.calls)
	}
	if !mr.Exists("interview:question:medium:2") {
		t.Fatalf("expected redis key to be set")
	}

	// Second call should hit cache, provider not incremented.
	q2, err := cache.NextQuestion(context.Background(), domain.DifficultyMedium, 2)
	if err != nil {
		t.Fatalf("next question 2: %v", err)
	}
	if counting.calls != 1 {
		t.Fatalf("expected cache hit, provider calls=%d", counting.calls)
	}
	if q1.ID != q2.ID || q2.TimeLimit != 60 {
		t.Fatalf("cached question mismatch: %+v vs %+v", q1, q2)
	}
}

// Different plan slots bypass singleflight, so concurrent misses all reach
// the jitter source at once. Run with -race.
func TestQuestionCacheConcurrentSlots(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	cache := NewQuestionCache(newClient(mr), memory.NewStaticProviderWithSeed(1), time.Minute)

	var wg sync.WaitGroup
	for i, difficulty := range domain.DifficultyPlan {
		wg.Add(1)
		go func(difficulty domain.Difficulty, ordinal int) {
			defer wg.Done()
			if _, err := cache.NextQuestion(context.Background(), difficulty, ordinal); err != nil {
				t.Errorf("next question %d: %v", ordinal, err)
			}
		}(difficulty, i)
	}
	wg.Wait()
}

type countingProvider struct {
	app.QuestionProvider
	calls int
}

func (p *countingProvider) NextQuestion(ctx context.Context, difficulty domain.Difficulty, ordinal int) (domain.Question, error) {
	p.calls++
	return p.QuestionProvider.NextQuestion(ctx, difficulty, ordinal)
}

func newClient(mr *miniredis.Miniredis) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
}
