package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"time"

	redisv9 "github.com/redis/go-redis/v9"

	"shoplens/internal/model"
)

// AnswerCache caches served answers in Redis. Keys carry the index
// version, so a rebuild implicitly invalidates every prior entry.
type AnswerCache struct {
	client *redisv9.Client
	ttl    time.Duration
}

func NewAnswerCache(client *redisv9.Client, ttl time.Duration) *AnswerCache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &AnswerCache{client: client, ttl: ttl}
}

// cachedAnswer is the stored envelope. AnswerResponse hides Mode from the
// wire, but the cache has to round-trip it.
type cachedAnswer struct {
	Answer  string         `json:"answer"`
	Sources []model.Source `json:"sources"`
	Mode    string         `json:"mode"`
}

func (c *AnswerCache) GetAnswer(ctx context.Context, version uint64, question string) (*model.AnswerResponse, bool, error) {
	raw, err := c.client.Get(ctx, c.answerKey(version, question)).Result()
	if err == redisv9.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get answer failed: %w", err)
	}

	var cached cachedAnswer
	if err := json.Unmarshal([]byte(raw), &cached); err != nil {
		return nil, false, fmt.Errorf("unmarshal cached answer failed: %w", err)
	}
	return &model.AnswerResponse{
		Answer:  cached.Answer,
		Sources: cached.Sources,
		Mode:    cached.Mode,
	}, true, nil
}

func (c *AnswerCache) SetAnswer(ctx context.Context, version uint64, question string, resp *model.AnswerResponse) error {
	payload, err := json.Marshal(cachedAnswer{
		Answer:  resp.Answer,
		Sources: resp.Sources,
		Mode:    resp.Mode,
	})
	if err != nil {
		return fmt.Errorf("marshal answer cache failed: %w", err)
	}
	if err := c.client.Set(ctx, c.answerKey(version, question), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set answer failed: %w", err)
	}
	return nil
}

func (c *AnswerCache) answerKey(version uint64, question string) string {
	sum := sha256.Sum256([]byte(question))
	return fmt.Sprintf("qa:answer:v%d:%x", version, sum[:8])
}
