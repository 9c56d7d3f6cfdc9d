package tablebase

import (
	"context"
	"errors"
)

// ErrUnavailable covers every lookup the trainer must tolerate: positions over
// the piece ceiling, positions the tablebase does not know, and transport
// failures. Callers degrade to "no perfect-play data", never to a session error.
var ErrUnavailable = errors.New("tablebase unavailable")

// Category classifies a position's theoretical outcome for the side to move.
type Category string

const (
	CategoryWin         Category = "win"
	CategoryCursedWin   Category = "cursed-win"
	CategoryDraw        Category = "draw"
	CategoryBlessedLoss Category = "blessed-loss"
	CategoryLoss        Category = "loss"
	CategoryUnknown     Category = "unknown"
)

// Score maps a category onto the -2..2 WDL scale. Cursed wins and blessed
// losses sit at ±1 so the 50-move rule keeps its ordering weight.
func (c Category) Score() int {
	switch c {
	case CategoryWin:
		return 2
	case CategoryCursedWin:
		return 1
	case CategoryBlessedLoss:
		return -1
	case CategoryLoss:
		return -2
	default:
		return 0
	}
}

// Negate mirrors a category to the opposite side's perspective.
func (c Category) Negate() Category {
	switch c {
	case CategoryWin:
		return CategoryLoss
	case CategoryCursedWin:
		return CategoryBlessedLoss
	case CategoryBlessedLoss:
		return CategoryCursedWin
	case CategoryLoss:
		return CategoryWin
	default:
		return c
	}
}

// Evaluation is a position's WDL classification with optional distances,
// always from the perspective of the side to move in the queried position.
type Evaluation struct {
	Category Category `json:"category"`
	Score    int      `json:"score"`
	DTZ      *int     `json:"dtz,omitempty"`
	DTM      *int     `json:"dtm,omitempty"`
}

// Negate re-expresses the evaluation from the opposite side's perspective.
// Distances keep their magnitude with flipped sign.
func (e Evaluation) Negate() Evaluation {
	out := Evaluation{Category: e.Category.Negate(), Score: -e.Score}
	if e.DTZ != nil {
		v := -*e.DTZ
		out.DTZ = &v
	}
	if e.DTM != nil {
		v := -*e.DTM
		out.DTM = &v
	}
	return out
}

// Move is a candidate reply. Category, Score and distances are expressed from
// the perspective of the side making the move, not the resulting position.
type Move struct {
	UCI      string   `json:"uci"`
	SAN      string   `json:"san"`
	Category Category `json:"category"`
	Score    int      `json:"score"`
	DTZ      *int     `json:"dtz,omitempty"`
	DTM      *int     `json:"dtm,omitempty"`
}

// Lookup is the tablebase contract the trainer depends on. Implementations
// report ErrUnavailable instead of failing the session.
type Lookup interface {
	Evaluate(ctx context.Context, fen string) (Evaluation, error)
	TopMoves(ctx context.Context, fen string, limit int) ([]Move, error)
}
