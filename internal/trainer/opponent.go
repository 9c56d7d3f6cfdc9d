package trainer

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/kapu/endgame-coach-go/internal/rules"
	"github.com/kapu/endgame-coach-go/internal/tablebase"
	"go.uber.org/zap"
)

type turnState int

const (
	turnIdle turnState = iota
	turnScheduled
	turnExecuting
)

// OpponentOutcome reports the result of one scheduled opponent turn. NoMove
// means the tablebase had nothing to offer and control returns to the human.
type OpponentOutcome struct {
	Applied rules.Applied
	Move    tablebase.Move
	NoMove  bool
}

// pendingTurn is the single live scheduling record. Both the cancelled flag
// and the timer handle are needed: a cancel racing the timer callback must
// still suppress execution, and stopping the timer alone cannot do that once
// the callback has been dispatched.
type pendingTurn struct {
	timer     *time.Timer
	cancelled bool
	position  rules.Position
	deliver   func(OpponentOutcome)
}

// OpponentTurnManager schedules the automated reply after a delay. At most one
// turn is live at a time; scheduling a new one cancels any prior one.
type OpponentTurnManager struct {
	tb            tablebase.Lookup
	rules         *rules.Engine
	delay         time.Duration
	lookupTimeout time.Duration
	logger        *zap.Logger

	mu      sync.Mutex
	state   turnState
	pending *pendingTurn
}

func NewOpponentTurnManager(tb tablebase.Lookup, engine *rules.Engine, delay time.Duration, logger *zap.Logger) *OpponentTurnManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OpponentTurnManager{
		tb:            tb,
		rules:         engine,
		delay:         delay,
		lookupTimeout: 15 * time.Second,
		logger:        logger,
	}
}

// Schedule arms a reply for position (opponent to move) after the configured
// delay. The delay is pacing only. deliver runs outside the manager's lock.
func (m *OpponentTurnManager) Schedule(position rules.Position, deliver func(OpponentOutcome)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cancelLocked()
	turn := &pendingTurn{position: position, deliver: deliver}
	turn.timer = time.AfterFunc(m.delay, func() { m.fire(turn) })
	m.pending = turn
	m.state = turnScheduled
}

// Cancel suppresses any scheduled or executing turn. Safe and idempotent when
// nothing is pending.
func (m *OpponentTurnManager) Cancel() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cancelLocked()
}

func (m *OpponentTurnManager) cancelLocked() {
	if m.pending != nil {
		m.pending.cancelled = true
		if m.pending.timer != nil {
			m.pending.timer.Stop()
			m.pending.timer = nil
		}
		m.pending = nil
	}
	m.state = turnIdle
}

// Idle reports whether no turn is scheduled or executing.
func (m *OpponentTurnManager) Idle() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state == turnIdle
}

func (m *OpponentTurnManager) fire(turn *pendingTurn) {
	m.mu.Lock()
	// Dual guard: the flag catches a cancel that raced the timer callback,
	// the pending check catches a turn superseded by a newer Schedule.
	if turn.cancelled || m.pending != turn {
		m.mu.Unlock()
		return
	}
	turn.timer = nil
	m.state = turnExecuting
	m.mu.Unlock()

	outcome := m.resolve(turn.position)

	m.mu.Lock()
	if turn.cancelled {
		m.mu.Unlock()
		return
	}
	if m.pending == turn {
		m.pending = nil
	}
	m.state = turnIdle
	m.mu.Unlock()

	turn.deliver(outcome)
}

// resolve picks and applies the top-ranked reply for the position.
func (m *OpponentTurnManager) resolve(position rules.Position) OpponentOutcome {
	ctx, cancel := context.WithTimeout(context.Background(), m.lookupTimeout)
	defer cancel()

	candidates, err := m.tb.TopMoves(ctx, position.FEN, topMoveCount)
	if err != nil {
		if !errors.Is(err, tablebase.ErrUnavailable) {
			m.logger.Warn("opponent tablebase lookup failed", zap.Error(err))
		}
		return OpponentOutcome{NoMove: true}
	}
	best, ok := tablebase.Best(candidates)
	if !ok {
		return OpponentOutcome{NoMove: true}
	}

	move, err := m.rules.Decode(position, best.UCI)
	if err == nil {
		applied, applyErr := m.rules.Apply(position, move)
		if applyErr == nil {
			return OpponentOutcome{Applied: applied, Move: best}
		}
		err = applyErr
	}
	// A correct tablebase never proposes an illegal move; keep the session
	// alive but make the inconsistency visible.
	m.logger.Error("tablebase proposed a move the rules engine rejects",
		zap.String("fen", position.FEN),
		zap.String("move", best.UCI),
		zap.Error(err),
	)
	return OpponentOutcome{NoMove: true}
}
