package trainer

import (
	"context"
	"errors"
	"sync"

	"github.com/kapu/endgame-coach-go/internal/rules"
	"github.com/kapu/endgame-coach-go/internal/tablebase"
	"go.uber.org/zap"
)

// topMoveCount is the optimality window: a played move counts as optimal when
// it appears among this many top-ranked candidates.
const topMoveCount = 3

// MoveQuality is the verdict on one played move. Before and After are both
// expressed from the perspective of the player who made the move.
type MoveQuality struct {
	ShouldShowFeedback bool
	WasOptimal         bool
	OutcomeDegraded    bool
	Available          bool
	Before             tablebase.Evaluation
	After              tablebase.Evaluation
	TopMoves           []tablebase.Move
	BestMove           *tablebase.Move
}

// Evaluator computes whether a played move deserves corrective feedback.
type Evaluator struct {
	tb     tablebase.Lookup
	logger *zap.Logger
}

func NewEvaluator(tb tablebase.Lookup, logger *zap.Logger) *Evaluator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Evaluator{tb: tb, logger: logger}
}

// EvaluateMove issues the before/after evaluations and the top-moves lookup in
// parallel and joins all of them before deciding. Any unavailable lookup makes
// the whole verdict conservatively silent; the session must keep going without
// tablebase coverage.
//
// When baseline is non-nil and shares the mover's side, its evaluation
// replaces the immediately-preceding position as the "before" reference, so
// drills can measure drift from the original plan rather than from the last
// move.
func (e *Evaluator) EvaluateMove(ctx context.Context, before, after rules.Position, played rules.Move, baseline *rules.Position) MoveQuality {
	useBaseline := baseline != nil && baseline.Turn == before.Turn

	var (
		beforeEval, afterEval, baseEval      tablebase.Evaluation
		beforeErr, afterErr, baseErr, topErr error
		top                                  []tablebase.Move
		wg                                   sync.WaitGroup
	)

	wg.Add(3)
	go func() {
		defer wg.Done()
		beforeEval, beforeErr = e.tb.Evaluate(ctx, before.FEN)
	}()
	go func() {
		defer wg.Done()
		afterEval, afterErr = e.tb.Evaluate(ctx, after.FEN)
	}()
	go func() {
		defer wg.Done()
		top, topErr = e.tb.TopMoves(ctx, before.FEN, topMoveCount)
	}()
	if useBaseline {
		wg.Add(1)
		go func() {
			defer wg.Done()
			baseEval, baseErr = e.tb.Evaluate(ctx, baseline.FEN)
		}()
	}
	// Join: every lookup must land before a verdict is emitted.
	wg.Wait()

	for _, err := range []error{beforeErr, afterErr, topErr, baseErr} {
		if err != nil {
			if !errors.Is(err, tablebase.ErrUnavailable) {
				e.logger.Warn("tablebase lookup failed during move evaluation", zap.Error(err))
			}
			return MoveQuality{}
		}
	}

	reference := beforeEval
	if useBaseline {
		reference = baseEval
	}
	// after has the opponent to move; mirror it back to the mover.
	normalized := afterEval.Negate()

	quality := MoveQuality{
		Available: true,
		Before:    reference,
		After:     normalized,
		TopMoves:  top,
	}
	for _, candidate := range top {
		if rules.RefFromUCI(candidate.UCI) == played.Ref {
			quality.WasOptimal = true
			break
		}
	}
	quality.OutcomeDegraded = degraded(reference.Score, normalized.Score)
	quality.ShouldShowFeedback = !quality.WasOptimal && quality.OutcomeDegraded
	if !quality.WasOptimal && len(top) > 0 {
		best := top[0]
		quality.BestMove = &best
	}
	return quality
}

// degraded reports an outcome-class drop: Win→(Draw|Loss) or Draw→Loss.
// A worse distance within the same class is tolerated on purpose.
func degraded(before, after int) bool {
	if before > 0 {
		return after <= 0
	}
	if before == 0 {
		return after < 0
	}
	return false
}
