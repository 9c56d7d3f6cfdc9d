package tablebase

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Cache wraps a Lookup with a Redis response cache and in-flight deduplication
// so identical concurrent probes share one upstream call. A nil Redis client
// degrades to dedup only.
type Cache struct {
	next   Lookup
	rdb    *redis.Client
	ttl    time.Duration
	logger *zap.Logger

	mu       sync.Mutex
	inflight map[string]*flight
}

type flight struct {
	done chan struct{}
	data []byte
	err  error
}

func NewCache(next Lookup, rdb *redis.Client, ttl time.Duration, logger *zap.Logger) *Cache {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Cache{
		next:     next,
		rdb:      rdb,
		ttl:      ttl,
		logger:   logger,
		inflight: make(map[string]*flight),
	}
}

func (c *Cache) Evaluate(ctx context.Context, fen string) (Evaluation, error) {
	data, err := c.fetch(ctx, "tb:eval:"+fen, func(ctx context.Context) (any, error) {
		return c.next.Evaluate(ctx, fen)
	})
	if err != nil {
		return Evaluation{}, err
	}
	var eval Evaluation
	if err := json.Unmarshal(data, &eval); err != nil {
		return Evaluation{}, fmt.Errorf("decode cached evaluation: %w", err)
	}
	return eval, nil
}

func (c *Cache) TopMoves(ctx context.Context, fen string, limit int) ([]Move, error) {
	key := fmt.Sprintf("tb:moves:%d:%s", limit, fen)
	data, err := c.fetch(ctx, key, func(ctx context.Context) (any, error) {
		return c.next.TopMoves(ctx, fen, limit)
	})
	if err != nil {
		return nil, err
	}
	var moves []Move
	if err := json.Unmarshal(data, &moves); err != nil {
		return nil, fmt.Errorf("decode cached moves: %w", err)
	}
	return moves, nil
}

// fetch serves key from Redis, an in-flight probe, or upstream, in that order.
// Unavailable results are not cached; the dedup window still collapses bursts.
func (c *Cache) fetch(ctx context.Context, key string, load func(context.Context) (any, error)) ([]byte, error) {
	if c.rdb != nil {
		raw, err := c.rdb.Get(ctx, key).Bytes()
		if err == nil {
			return raw, nil
		}
		if err != redis.Nil {
			c.logger.Warn("tablebase cache read failed", zap.String("key", key), zap.Error(err))
		}
	}

	c.mu.Lock()
	if fl, ok := c.inflight[key]; ok {
		c.mu.Unlock()
		select {
		case <-fl.done:
			return fl.data, fl.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	fl := &flight{done: make(chan struct{})}
	c.inflight[key] = fl
	c.mu.Unlock()

	defer func() {
		close(fl.done)
		c.mu.Lock()
		delete(c.inflight, key)
		c.mu.Unlock()
	}()

	value, err := load(ctx)
	if err != nil {
		fl.err = err
		return nil, err
	}
	data, err := json.Marshal(value)
	if err != nil {
		fl.err = err
		return nil, err
	}
	fl.data = data

	if c.rdb != nil {
		if err := c.rdb.Set(ctx, key, data, c.ttl).Err(); err != nil {
			c.logger.Warn("tablebase cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return data, nil
}
