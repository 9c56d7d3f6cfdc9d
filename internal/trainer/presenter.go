package trainer

import (
	"github.com/kapu/endgame-coach-go/internal/rules"
	"github.com/kapu/endgame-coach-go/internal/tablebase"
)

// Presenter receives the trainer's structured decisions. Rendering is entirely
// the implementation's business; the core never formats user-facing text.
type Presenter interface {
	ShowFeedback(FeedbackEvent)
	ShowPromotionOutcome(PromotionOutcome)
	OpponentMoved(OpponentMoveEvent)
	SessionEnded(SessionEndEvent)
}

// FeedbackEvent is emitted when a played move threw away the objective outcome.
type FeedbackEvent struct {
	PlayedMove     rules.Move
	BestMove       *tablebase.Move
	BeforeCategory tablebase.Category
	AfterCategory  tablebase.Category
	BeforeScore    int
	AfterScore     int
}

type PromotionOutcome struct {
	Move    rules.Move
	AutoWin bool
}

type OpponentMoveEvent struct {
	Move     rules.Move
	Position rules.Position
}

type SessionEndEvent struct {
	Reason       string // "checkmate", "stalemate", "draw", "promotion-win", "resign"
	GoalAchieved bool
	Position     rules.Position
}
