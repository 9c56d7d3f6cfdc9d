// Package consolepresenter renders trainer events as text for an interactive
// terminal session. It is the only place trainer events meet user-facing
// wording.
package consolepresenter

import (
	"fmt"
	"io"
	"sync"

	"github.com/kapu/endgame-coach-go/internal/msgcat"
	"github.com/kapu/endgame-coach-go/internal/trainer"
	"github.com/kapu/endgame-coach-go/pkg/traindto"
)

type Presenter struct {
	mu  sync.Mutex
	out io.Writer
	cat *msgcat.Catalog
}

func New(out io.Writer, cat *msgcat.Catalog) *Presenter {
	return &Presenter{out: out, cat: cat}
}

func (p *Presenter) ShowFeedback(ev trainer.FeedbackEvent) {
	dto := toFeedback(ev)
	key := "move.feedback"
	data := map[string]string{
		"Played": dto.PlayedSAN,
		"Before": dto.BeforeCategory,
		"After":  dto.AfterCategory,
		"Best":   dto.BestSAN,
	}
	if dto.BestSAN == "" {
		key = "move.feedback_no_best"
	}
	p.println(p.cat.MustRender(key, data))
}

func (p *Presenter) ShowPromotionOutcome(ev trainer.PromotionOutcome) {
	key := "move.promotion"
	if ev.AutoWin {
		key = "move.promotion_win"
	}
	p.println(p.cat.MustRender(key, map[string]string{"Move": ev.Move.SAN}))
}

func (p *Presenter) OpponentMoved(ev trainer.OpponentMoveEvent) {
	dto := traindto.OpponentMove{MoveSAN: ev.Move.SAN, MoveUCI: ev.Move.UCI, FEN: ev.Position.FEN}
	p.println(p.cat.MustRender("move.opponent", map[string]string{"Move": dto.MoveSAN, "FEN": dto.FEN}))
}

func (p *Presenter) SessionEnded(ev trainer.SessionEndEvent) {
	if ev.Reason == "resign" {
		p.println(p.cat.MustRender("session.resigned", nil))
		return
	}
	key := "session.ended_missed"
	if ev.GoalAchieved {
		key = "session.ended_achieved"
	}
	p.println(p.cat.MustRender(key, map[string]string{"Reason": ev.Reason}))
}

func (p *Presenter) println(s string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.out, s)
}

func toFeedback(ev trainer.FeedbackEvent) traindto.Feedback {
	dto := traindto.Feedback{
		PlayedSAN:      ev.PlayedMove.SAN,
		PlayedUCI:      ev.PlayedMove.UCI,
		BeforeCategory: string(ev.BeforeCategory),
		AfterCategory:  string(ev.AfterCategory),
		BeforeScore:    ev.BeforeScore,
		AfterScore:     ev.AfterScore,
	}
	if ev.BestMove != nil {
		dto.BestSAN = ev.BestMove.SAN
		dto.BestUCI = ev.BestMove.UCI
	}
	return dto
}
