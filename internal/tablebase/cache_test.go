package tablebase

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type countingLookup struct {
	mu       sync.Mutex
	evals    map[string]Evaluation
	moves    map[string][]Move
	evalHits atomic.Int32
	moveHits atomic.Int32
	block    chan struct{} // optional gate to hold upstream calls open
}

func (c *countingLookup) Evaluate(ctx context.Context, fen string) (Evaluation, error) {
	c.evalHits.Add(1)
	if c.block != nil {
		<-c.block
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	eval, ok := c.evals[fen]
	if !ok {
		return Evaluation{}, ErrUnavailable
	}
	return eval, nil
}

func (c *countingLookup) TopMoves(ctx context.Context, fen string, limit int) ([]Move, error) {
	c.moveHits.Add(1)
	c.mu.Lock()
	defer c.mu.Unlock()
	moves, ok := c.moves[fen]
	if !ok {
		return nil, ErrUnavailable
	}
	return TopN(moves, limit), nil
}

func newTestCache(t *testing.T, upstream *countingLookup) *Cache {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewCache(upstream, rdb, time.Minute, nil)
}

func TestCacheServesSecondLookupFromRedis(t *testing.T) {
	upstream := &countingLookup{
		evals: map[string]Evaluation{kpkFEN: {Category: CategoryWin, Score: 2, DTM: iptr(17)}},
		moves: map[string][]Move{kpkFEN: {{UCI: "e6d6", SAN: "Kd6", Category: CategoryWin, Score: 2}}},
	}
	cache := newTestCache(t, upstream)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		eval, err := cache.Evaluate(ctx, kpkFEN)
		if err != nil {
			t.Fatalf("Evaluate #%d: %v", i, err)
		}
		if eval.Category != CategoryWin || *eval.DTM != 17 {
			t.Fatalf("Evaluate #%d: %+v", i, eval)
		}
	}
	if got := upstream.evalHits.Load(); got != 1 {
		t.Fatalf("expected a single upstream evaluation, got %d", got)
	}

	for i := 0; i < 2; i++ {
		moves, err := cache.TopMoves(ctx, kpkFEN, 3)
		if err != nil || len(moves) != 1 || moves[0].UCI != "e6d6" {
			t.Fatalf("TopMoves #%d: %v %+v", i, err, moves)
		}
	}
	if got := upstream.moveHits.Load(); got != 1 {
		t.Fatalf("expected a single upstream moves lookup, got %d", got)
	}
}

func TestCacheDeduplicatesConcurrentLookups(t *testing.T) {
	upstream := &countingLookup{
		evals: map[string]Evaluation{kpkFEN: {Category: CategoryWin, Score: 2}},
		block: make(chan struct{}),
	}
	cache := newTestCache(t, upstream)
	ctx := context.Background()

	const callers = 8
	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = cache.Evaluate(ctx, kpkFEN)
		}(i)
	}
	// Let the goroutines pile onto the in-flight entry, then release.
	time.Sleep(20 * time.Millisecond)
	close(upstream.block)
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("caller %d: %v", i, err)
		}
	}
	if got := upstream.evalHits.Load(); got != 1 {
		t.Fatalf("expected concurrent lookups to share one upstream call, got %d", got)
	}
}

func TestCacheDoesNotCacheUnavailable(t *testing.T) {
	upstream := &countingLookup{}
	cache := newTestCache(t, upstream)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := cache.Evaluate(ctx, kpkFEN); err == nil {
			t.Fatalf("expected unavailable error")
		}
	}
	if got := upstream.evalHits.Load(); got != 2 {
		t.Fatalf("unavailable results must not be cached, got %d upstream calls", got)
	}
}

func TestCacheWorksWithoutRedis(t *testing.T) {
	upstream := &countingLookup{
		evals: map[string]Evaluation{kpkFEN: {Category: CategoryDraw}},
	}
	cache := NewCache(upstream, nil, time.Minute, nil)
	eval, err := cache.Evaluate(context.Background(), kpkFEN)
	if err != nil || eval.Category != CategoryDraw {
		t.Fatalf("redis-less cache must pass through: %v %+v", err, eval)
	}
}
