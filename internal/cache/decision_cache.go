package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"quantfuse/internal/domain"

	"github.com/redis/go-redis/v9"
)

const decisionTTL = 15 * time.Minute

// DecisionCache keeps the most recent fusion decision per symbol so the API
// and bot can answer without a round trip to Postgres.
type DecisionCache struct {
	client *redis.Client
}

func NewDecisionCache(client *redis.Client) *DecisionCache {
	return &DecisionCache{client: client}
}

func (c *DecisionCache) SetLatest(ctx context.Context, rec domain.FusionRecord) error {
	if c == nil || c.client == nil {
		return nil
	}
	payload, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, decisionKey(rec.Symbol), payload, decisionTTL).Err()
}

func (c *DecisionCache) GetLatest(ctx context.Context, symbol string) (*domain.FusionRecord, error) {
	if c == nil || c.client == nil {
		return nil, nil
	}
	raw, err := c.client.Get(ctx, decisionKey(symbol)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var rec domain.FusionRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func decisionKey(symbol string) string {
	return "decision:latest:" + symbol
}
