package redis

import (
	"context"
	"encoding/json"
	"time"

	"ai-interview-service/internal/domain"
	"github.com/redis/go-redis/v9"
)

// PauseStore keeps JSON snapshots of paused candidates in Redis so a paused
// interview survives a process restart. Writes are best effort; the session
// store never blocks on them.
type PauseStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewPauseStore(client *redis.Client, ttl time.Duration) *PauseStore {
	return &PauseStore{client: client, ttl: ttl}
}

func (s *PauseStore) SavePaused(candidate domain.Candidate) {
	raw, err := json.Marshal(candidate)
	if err != nil {
		return
	}
	_ = s.client.Set(context.Background(), s.key(candidate.ID), raw, s.ttl).Err()
}

func (s *PauseStore) ClearPaused(candidateID string) {
	_ = s.client.Del(context.Background(), s.key(candidateID)).Err()
}

// LoadPaused returns all paused snapshots, used to reseed the roster at
// startup.
func (s *PauseStore) LoadPaused(ctx context.Context) ([]domain.Candidate, error) {
	keys, err := s.client.Keys(ctx, "interview:paused:*").Result()
	if err != nil {
		return nil, err
	}
	candidates := make([]domain.Candidate, 0, len(keys))
	for _, key := range keys {
		raw, err := s.client.Get(ctx, key).Bytes()
		if err != nil {
			continue
		}
		var candidate domain.Candidate
		if err := json.Unmarshal(raw, &candidate); err != nil {
			continue
		}
		candidates = append(candidates, candidate)
	}
	return candidates, nil
}

func (s *PauseStore) key(candidateID string) string {
	return "interview:paused:" + candidateID
}
