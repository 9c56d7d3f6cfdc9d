package trainer

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/kapu/endgame-coach-go/internal/domain"
	"github.com/kapu/endgame-coach-go/internal/rules"
	"github.com/kapu/endgame-coach-go/internal/session"
	"github.com/kapu/endgame-coach-go/internal/tablebase"
	"go.uber.org/zap"
)

var (
	ErrNoSession       = errors.New("no training session in progress")
	ErrSessionEnded    = errors.New("training session already ended")
	ErrMoveInFlight    = errors.New("a move is already being processed")
	ErrFeedbackPending = errors.New("feedback awaiting acknowledgment")
	ErrNoFeedback      = errors.New("no feedback to acknowledge")
	ErrNothingToUndo   = errors.New("no moves available to take back")
)

// Phase is the orchestrator's session state.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseAwaitingHuman
	PhaseEvaluating
	PhaseFeedback
	PhaseAwaitingOpponent
	PhaseEnded
)

// Orchestrator sequences one training session: it applies the human's move,
// grades it, decides whether to interrupt with feedback, and schedules the
// automated reply. Collaborators are injected; the orchestrator holds no UI
// state and is safe for concurrent callers (extra submissions are rejected,
// not queued).
type Orchestrator struct {
	rules     *rules.Engine
	evaluator *Evaluator
	opponent  *OpponentTurnManager
	presenter Presenter
	store     session.Store
	logger    *zap.Logger

	mu           sync.Mutex
	moveInFlight bool
	phase        Phase
	sess         *session.Payload
	current      rules.Position
	baseline     rules.Position
	history      []rules.Position // position after each ply; history[0] is the start
	pendingFB    *FeedbackEvent
}

func NewOrchestrator(engine *rules.Engine, evaluator *Evaluator, opponent *OpponentTurnManager, presenter Presenter, store session.Store, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		rules:     engine,
		evaluator: evaluator,
		opponent:  opponent,
		presenter: presenter,
		store:     store,
		logger:    logger,
	}
}

// StartSession begins a fresh session on the drill, replacing any prior one.
// The drill position doubles as the training baseline for move grading.
func (o *Orchestrator) StartSession(ctx context.Context, drill domain.Drill) (*session.Payload, error) {
	start, err := o.rules.Parse(drill.FEN)
	if err != nil {
		return nil, err
	}

	o.opponent.Cancel()
	o.mu.Lock()
	o.sess = session.New(drill.ID, start.FEN, drill.Goal)
	o.current = start
	o.baseline = start
	o.history = []rules.Position{start}
	o.pendingFB = nil
	o.moveInFlight = false
	o.phase = PhaseAwaitingHuman
	payload := o.sess
	o.mu.Unlock()

	if err := o.store.Save(ctx, payload); err != nil {
		o.logger.Warn("failed to persist new session", zap.Error(err))
	}
	return payload, nil
}

// Phase returns the current session phase.
func (o *Orchestrator) CurrentPhase() Phase {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.phase
}

// Position returns the current position token.
func (o *Orchestrator) Position() rules.Position {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.current
}

// SubmitMove processes one human move in SAN or UCI. Rapid double submissions
// and moves while feedback or the opponent's reply is pending are rejected
// without side effects.
func (o *Orchestrator) SubmitMove(ctx context.Context, text string) error {
	o.mu.Lock()
	switch {
	case o.sess == nil:
		o.mu.Unlock()
		return ErrNoSession
	case o.phase == PhaseEnded:
		o.mu.Unlock()
		return ErrSessionEnded
	case o.phase == PhaseFeedback:
		o.mu.Unlock()
		return ErrFeedbackPending
	case o.moveInFlight || o.phase != PhaseAwaitingHuman:
		o.mu.Unlock()
		return ErrMoveInFlight
	}
	o.moveInFlight = true
	o.phase = PhaseEvaluating
	before := o.current
	baseline := o.baseline
	o.mu.Unlock()

	err := o.processMove(ctx, before, baseline, text)
	if err != nil {
		// Validation failure: no state changed, hand the turn back.
		o.mu.Lock()
		if o.phase == PhaseEvaluating {
			o.phase = PhaseAwaitingHuman
		}
		o.moveInFlight = false
		o.mu.Unlock()
		return err
	}
	o.mu.Lock()
	o.moveInFlight = false
	o.mu.Unlock()
	return nil
}

func (o *Orchestrator) processMove(ctx context.Context, before, baseline rules.Position, text string) error {
	move, err := o.rules.Decode(before, text)
	if err != nil {
		return err
	}
	isPromotion := o.rules.IsPromotion(before, move.Ref)
	// Bare from/to input for a promotion decodes without a piece choice;
	// it auto-resolves to a queen.
	if isPromotion && move.Ref.Promotion == "" {
		move, err = o.rules.WithPromotion(before, move.Ref, "")
		if err != nil {
			return err
		}
	}

	applied, err := o.rules.Apply(before, move)
	if err != nil {
		return err
	}

	o.recordPly(ctx, applied)

	if applied.GameOver() {
		if isPromotion {
			o.presenter.ShowPromotionOutcome(PromotionOutcome{Move: applied.Move, AutoWin: applied.Checkmate})
		}
		o.endSession(ctx, endReason(applied), o.goalAchieved(applied, true))
		return nil
	}

	quality := o.evaluator.EvaluateMove(ctx, before, applied.Position, applied.Move, &baseline)

	if isPromotion {
		// A promotion that lands in a tablebase-won position ends the drill;
		// playing out the conversion teaches nothing new.
		autoWin := quality.Available && quality.After.Category == tablebase.CategoryWin
		o.presenter.ShowPromotionOutcome(PromotionOutcome{Move: applied.Move, AutoWin: autoWin})
		if autoWin {
			o.endSession(ctx, "promotion-win", o.sessGoal() == "win")
			return nil
		}
	}

	if quality.ShouldShowFeedback {
		event := FeedbackEvent{
			PlayedMove:     applied.Move,
			BestMove:       quality.BestMove,
			BeforeCategory: quality.Before.Category,
			AfterCategory:  quality.After.Category,
			BeforeScore:    quality.Before.Score,
			AfterScore:     quality.After.Score,
		}
		o.mu.Lock()
		o.phase = PhaseFeedback
		o.pendingFB = &event
		if o.sess != nil {
			o.sess.Feedbacks++
		}
		o.mu.Unlock()
		o.presenter.ShowFeedback(event)
		return nil
	}

	o.scheduleOpponent()
	return nil
}

// AcknowledgeContinue resumes play after feedback, keeping the played move.
func (o *Orchestrator) AcknowledgeContinue() error {
	o.mu.Lock()
	if o.phase != PhaseFeedback {
		o.mu.Unlock()
		return ErrNoFeedback
	}
	o.pendingFB = nil
	o.mu.Unlock()
	o.scheduleOpponent()
	return nil
}

// TakeBack undoes the human's last move; after the opponent has replied it
// undoes the whole pair. Any scheduled reply is cancelled first.
func (o *Orchestrator) TakeBack(ctx context.Context) error {
	o.opponent.Cancel()

	o.mu.Lock()
	if o.sess == nil {
		o.mu.Unlock()
		return ErrNoSession
	}
	if o.phase == PhaseEnded {
		o.mu.Unlock()
		return ErrSessionEnded
	}
	if o.moveInFlight || o.phase == PhaseEvaluating {
		o.mu.Unlock()
		return ErrMoveInFlight
	}
	plies := 1
	if o.phase == PhaseAwaitingHuman && len(o.history) > 2 {
		plies = 2
	}
	if len(o.history) <= plies {
		if len(o.history) < 2 {
			o.mu.Unlock()
			return ErrNothingToUndo
		}
		plies = len(o.history) - 1
	}
	o.history = o.history[:len(o.history)-plies]
	o.current = o.history[len(o.history)-1]
	o.sess.MovesUCI = o.sess.MovesUCI[:len(o.sess.MovesUCI)-plies]
	o.sess.MovesSAN = o.sess.MovesSAN[:len(o.sess.MovesSAN)-plies]
	o.sess.FEN = o.current.FEN
	o.sess.TakeBacks++
	o.pendingFB = nil
	o.phase = PhaseAwaitingHuman
	payload := o.sess
	o.mu.Unlock()

	if err := o.store.Save(ctx, payload); err != nil {
		o.logger.Warn("failed to persist take-back", zap.Error(err))
	}
	return nil
}

// Resign ends the session without a result.
func (o *Orchestrator) Resign(ctx context.Context) error {
	o.mu.Lock()
	if o.sess == nil {
		o.mu.Unlock()
		return ErrNoSession
	}
	if o.phase == PhaseEnded {
		o.mu.Unlock()
		return ErrSessionEnded
	}
	o.mu.Unlock()
	o.endSession(ctx, "resign", false)
	return nil
}

// Hint returns the top-ranked move for the current position, or false when
// the tablebase has no answer.
func (o *Orchestrator) Hint(ctx context.Context) (tablebase.Move, bool) {
	o.mu.Lock()
	if o.sess == nil || o.phase != PhaseAwaitingHuman {
		o.mu.Unlock()
		return tablebase.Move{}, false
	}
	position := o.current
	o.mu.Unlock()

	candidates, err := o.evaluator.tb.TopMoves(ctx, position.FEN, 1)
	if err != nil {
		return tablebase.Move{}, false
	}
	return tablebase.Best(candidates)
}

func (o *Orchestrator) scheduleOpponent() {
	o.mu.Lock()
	position := o.current
	o.phase = PhaseAwaitingOpponent
	o.mu.Unlock()

	o.opponent.Schedule(position, o.onOpponentOutcome)
}

func (o *Orchestrator) onOpponentOutcome(out OpponentOutcome) {
	o.mu.Lock()
	if o.phase != PhaseAwaitingOpponent {
		o.mu.Unlock()
		return
	}
	if out.NoMove {
		// Tablebase offered nothing; the human keeps playing unassisted.
		o.phase = PhaseAwaitingHuman
		o.mu.Unlock()
		o.logger.Info("no automated move available, returning control")
		return
	}
	o.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	o.recordPly(ctx, out.Applied)
	o.presenter.OpponentMoved(OpponentMoveEvent{Move: out.Applied.Move, Position: out.Applied.Position})

	if out.Applied.GameOver() {
		o.endSession(ctx, endReason(out.Applied), o.goalAchieved(out.Applied, false))
		return
	}
	o.mu.Lock()
	o.phase = PhaseAwaitingHuman
	o.mu.Unlock()
}

func (o *Orchestrator) recordPly(ctx context.Context, applied rules.Applied) {
	o.mu.Lock()
	o.current = applied.Position
	o.history = append(o.history, applied.Position)
	payload := o.sess
	if payload != nil {
		payload.MovesUCI = append(payload.MovesUCI, applied.Move.UCI)
		payload.MovesSAN = append(payload.MovesSAN, applied.Move.SAN)
		payload.FEN = applied.Position.FEN
	}
	o.mu.Unlock()

	if payload != nil {
		if err := o.store.Save(ctx, payload); err != nil {
			o.logger.Warn("failed to persist session move", zap.Error(err))
		}
	}
}

func (o *Orchestrator) endSession(ctx context.Context, reason string, achieved bool) {
	o.opponent.Cancel()
	o.mu.Lock()
	o.phase = PhaseEnded
	position := o.current
	payload := o.sess
	o.mu.Unlock()

	if payload != nil {
		if err := o.store.Delete(ctx, payload.ID); err != nil {
			o.logger.Warn("failed to delete finished session", zap.Error(err))
		}
	}
	o.presenter.SessionEnded(SessionEndEvent{Reason: reason, GoalAchieved: achieved, Position: position})
}

func (o *Orchestrator) sessGoal() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.sess == nil {
		return ""
	}
	return o.sess.Goal
}

// goalAchieved judges the outcome against the drill goal. humanMoved says the
// final ply was the trainee's.
func (o *Orchestrator) goalAchieved(applied rules.Applied, humanMoved bool) bool {
	goal := o.sessGoal()
	if applied.Checkmate {
		return goal == "win" && humanMoved
	}
	if applied.Stalemate || applied.Draw {
		return goal == "draw"
	}
	return false
}

func endReason(applied rules.Applied) string {
	switch {
	case applied.Checkmate:
		return "checkmate"
	case applied.Stalemate:
		return "stalemate"
	default:
		return "draw"
	}
}
