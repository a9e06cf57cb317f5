package cache

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"padelclub/backend/internal/domain"
)

// RedisLedgerCache stores the aggregated ledger per turn as JSON under
// "ledger:<turnID>". Failures degrade to cache misses.
type RedisLedgerCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisLedgerCache(addr, password string, db int, ttl time.Duration) (*RedisLedgerCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &RedisLedgerCache{client: client, ttl: ttl}, nil
}

func ledgerKey(turnID string) string { return "ledger:" + turnID }

func (c *RedisLedgerCache) GetLedger(ctx context.Context, turnID string) ([]domain.Transaction, bool) {
	raw, err := c.client.Get(ctx, ledgerKey(turnID)).Bytes()
	if err != nil {
		if err != redis.Nil {
			log.Printf("[cache] WARN: ledger get failed: %v", err)
		}
		return nil, false
	}
	var entries []domain.Transaction
	if err := json.Unmarshal(raw, &entries); err != nil {
		log.Printf("[cache] WARN: ledger decode failed: %v", err)
		return nil, false
	}
	return entries, true
}

func (c *RedisLedgerCache) SetLedger(ctx context.Context, turnID string, entries []domain.Transaction) {
	raw, err := json.Marshal(entries)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, ledgerKey(turnID), raw, c.ttl).Err(); err != nil {
		log.Printf("[cache] WARN: ledger set failed: %v", err)
	}
}

func (c *RedisLedgerCache) Invalidate(ctx context.Context, turnID string) {
	if err := c.client.Del(ctx, ledgerKey(turnID)).Err(); err != nil {
		log.Printf("[cache] WARN: ledger invalidate failed: %v", err)
	}
}

func (c *RedisLedgerCache) Close() error { return c.client.Close() }
