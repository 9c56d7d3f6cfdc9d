// Package coachbuilder assembles the trainer from configuration: the tablebase
// client wrapped in its cache, the evaluator and opponent manager on top, and
// the orchestrator over all of them. Everything is injected; nothing is
// resolved from process-wide state.
package coachbuilder

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/kapu/endgame-coach-go/internal/config"
	"github.com/kapu/endgame-coach-go/internal/positions"
	"github.com/kapu/endgame-coach-go/internal/rules"
	"github.com/kapu/endgame-coach-go/internal/session"
	"github.com/kapu/endgame-coach-go/internal/tablebase"
	"github.com/kapu/endgame-coach-go/internal/trainer"
)

type Deps struct {
	Rules        *rules.Engine
	Tablebase    tablebase.Lookup
	Evaluator    *trainer.Evaluator
	Opponent     *trainer.OpponentTurnManager
	Orchestrator *trainer.Orchestrator
	Catalog      *positions.Catalog
	Store        session.Store

	rdb *redis.Client
}

func New(cfg *config.AppConfig, presenter trainer.Presenter, logger *zap.Logger) (*Deps, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	engine := rules.NewEngine()

	client := tablebase.NewClient(cfg.TablebaseBaseURL,
		tablebase.WithMaxPieces(cfg.TablebaseMaxPieces),
		tablebase.WithTimeout(cfg.TablebaseTimeout),
		tablebase.WithRetry(cfg.TablebaseRetryMax),
		tablebase.WithLogger(logger),
	)

	// Redis is optional: without it sessions stay in memory and the
	// tablebase cache degrades to request dedup.
	var rdb *redis.Client
	if strings.TrimSpace(cfg.RedisURL) != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		rdb = redis.NewClient(opts)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := rdb.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("redis ping: %w", err)
		}
	}

	lookup := tablebase.Lookup(tablebase.NewCache(client, rdb, cfg.TablebaseCacheTTL, logger))

	var store session.Store
	if rdb != nil {
		store = session.NewRedisStore(rdb, cfg.SessionTTL)
	} else {
		store = session.NewMemoryStore()
	}

	catalog, err := positions.New(cfg.PositionsDir)
	if err != nil {
		return nil, fmt.Errorf("load drills: %w", err)
	}
	evaluator := trainer.NewEvaluator(lookup, logger)
	opponent := trainer.NewOpponentTurnManager(lookup, engine, cfg.OpponentDelay, logger)
	orchestrator := trainer.NewOrchestrator(engine, evaluator, opponent, presenter, store, logger)

	return &Deps{
		Rules:        engine,
		Tablebase:    lookup,
		Evaluator:    evaluator,
		Opponent:     opponent,
		Orchestrator: orchestrator,
		Catalog:      catalog,
		Store:        store,
		rdb:          rdb,
	}, nil
}

func (d *Deps) Close() error {
	if d != nil && d.rdb != nil {
		return d.rdb.Close()
	}
	return nil
}
