package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var ErrNotFound = errors.New("training session not found")

// Payload is the persisted state of one live training session. Finished
// sessions are deleted, never archived; progress tracking is not this
// system's business.
type Payload struct {
	ID          string    `json:"id"`
	DrillID     string    `json:"drill_id"`
	BaselineFEN string    `json:"baseline_fen"`
	FEN         string    `json:"fen"`
	Goal        string    `json:"goal"`
	MovesUCI    []string  `json:"moves_uci"`
	MovesSAN    []string  `json:"moves_san"`
	Feedbacks   int       `json:"feedbacks,omitempty"`
	TakeBacks   int       `json:"take_backs,omitempty"`
	StartedAt   time.Time `json:"started_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// New creates a payload for a fresh session on the given drill.
func New(drillID, fen, goal string) *Payload {
	now := time.Now()
	return &Payload{
		ID:          uuid.NewString(),
		DrillID:     drillID,
		BaselineFEN: fen,
		FEN:         fen,
		Goal:        goal,
		StartedAt:   now,
		UpdatedAt:   now,
	}
}

type Store interface {
	Save(ctx context.Context, p *Payload) error
	Get(ctx context.Context, id string) (*Payload, error)
	Delete(ctx context.Context, id string) error
}

// RedisStore keeps sessions as JSON values with a TTL.
type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisStore(rdb *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &RedisStore{rdb: rdb, ttl: ttl}
}

func sessionKey(id string) string { return "coach:session:" + id }

func (s *RedisStore) Save(ctx context.Context, p *Payload) error {
	p.UpdatedAt = time.Now()
	raw, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	return s.rdb.Set(ctx, sessionKey(p.ID), raw, s.ttl).Err()
}

func (s *RedisStore) Get(ctx context.Context, id string) (*Payload, error) {
	raw, err := s.rdb.Get(ctx, sessionKey(id)).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var p Payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	return &p, nil
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	return s.rdb.Del(ctx, sessionKey(id)).Err()
}

// MemoryStore backs Redis-less runs and tests.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]*Payload
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]*Payload)}
}

func (s *MemoryStore) Save(_ context.Context, p *Payload) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.UpdatedAt = time.Now()
	clone := *p
	clone.MovesUCI = append([]string(nil), p.MovesUCI...)
	clone.MovesSAN = append([]string(nil), p.MovesSAN...)
	s.data[p.ID] = &clone
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*Payload, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.data[id]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *p
	clone.MovesUCI = append([]string(nil), p.MovesUCI...)
	clone.MovesSAN = append([]string(nil), p.MovesSAN...)
	return &clone, nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, id)
	return nil
}
