package rules

import (
	"errors"
	"testing"

	nchess "github.com/corentings/chess/v2"
)

const kpkFEN = "4k3/8/4K3/4P3/8/8/8/8 w - - 0 1"

func mustParse(t *testing.T, e *Engine, fen string) Position {
	t.Helper()
	pos, err := e.Parse(fen)
	if err != nil {
		t.Fatalf("Parse(%q): %v", fen, err)
	}
	return pos
}

func TestParseRejectsGarbage(t *testing.T) {
	e := NewEngine()
	if _, err := e.Parse("not a fen"); err == nil {
		t.Fatalf("expected error for invalid FEN")
	}
	if _, err := e.Parse(""); !errors.Is(err, ErrInvalidPosition) {
		t.Fatalf("expected ErrInvalidPosition for empty FEN, got %v", err)
	}
	pos := mustParse(t, e, kpkFEN)
	if pos.Turn != nchess.White {
		t.Fatalf("expected white to move, got %v", pos.Turn)
	}
}

func TestDecodeAcceptsSANAndUCI(t *testing.T) {
	e := NewEngine()
	pos := mustParse(t, e, kpkFEN)

	san, err := e.Decode(pos, "Kd6")
	if err != nil {
		t.Fatalf("Decode SAN: %v", err)
	}
	uci, err := e.Decode(pos, "e6d6")
	if err != nil {
		t.Fatalf("Decode UCI: %v", err)
	}
	if san.Ref != uci.Ref {
		t.Fatalf("SAN and UCI decode to different refs: %+v vs %+v", san.Ref, uci.Ref)
	}
	if san.UCI != "e6d6" || san.SAN != "Kd6" {
		t.Fatalf("unexpected move: %+v", san)
	}

	if _, err := e.Decode(pos, "e6h5"); !errors.Is(err, ErrInvalidMove) {
		t.Fatalf("expected ErrInvalidMove for an unreachable square, got %v", err)
	}
	if _, err := e.Decode(pos, "nonsense"); !errors.Is(err, ErrInvalidMove) {
		t.Fatalf("expected ErrInvalidMove for junk input, got %v", err)
	}
}

func TestApplyFlipsTurnAndKeepsInputImmutable(t *testing.T) {
	e := NewEngine()
	pos := mustParse(t, e, kpkFEN)
	move, err := e.Decode(pos, "Kd6")
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	applied, err := e.Apply(pos, move)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if applied.Position.Turn != nchess.Black {
		t.Fatalf("expected black to move after white's move")
	}
	if applied.GameOver() || applied.Check {
		t.Fatalf("quiet king move flagged: %+v", applied)
	}
	if pos.FEN != mustParse(t, e, kpkFEN).FEN {
		t.Fatalf("input position mutated")
	}
}

func TestApplyDetectsCheckmate(t *testing.T) {
	e := NewEngine()
	pos := mustParse(t, e, "7k/5Q2/6K1/8/8/8/8/8 w - - 0 1")
	move, err := e.Decode(pos, "Qg7")
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	applied, err := e.Apply(pos, move)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if !applied.Checkmate || !applied.Check || !applied.GameOver() {
		t.Fatalf("expected checkmate, got %+v", applied)
	}
	if applied.Draw {
		t.Fatalf("checkmate must not be a draw")
	}
}

func TestApplyDetectsStalemate(t *testing.T) {
	e := NewEngine()
	pos := mustParse(t, e, "k7/8/8/1Q6/8/8/8/K7 w - - 0 1")
	move, err := e.Decode(pos, "Qb6")
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	applied, err := e.Apply(pos, move)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if !applied.Stalemate || !applied.Draw || applied.Checkmate {
		t.Fatalf("expected stalemate draw, got %+v", applied)
	}
}

func TestLegalMovesKPK(t *testing.T) {
	e := NewEngine()
	pos := mustParse(t, e, kpkFEN)
	moves, err := e.LegalMoves(pos)
	if err != nil {
		t.Fatalf("LegalMoves: %v", err)
	}
	// Kd5, Kd6, Kf5, Kf6; the squares next to the enemy king are out and the
	// pawn is blocked by its own king.
	if len(moves) != 4 {
		t.Fatalf("expected 4 legal moves, got %d: %+v", len(moves), moves)
	}
	seen := map[string]bool{}
	for _, mv := range moves {
		seen[mv.UCI] = true
	}
	for _, want := range []string{"e6d5", "e6d6", "e6f5", "e6f6"} {
		if !seen[want] {
			t.Fatalf("missing legal move %s in %v", want, moves)
		}
	}
}

func TestPromotionDetectionAndAutoQueen(t *testing.T) {
	e := NewEngine()
	pos := mustParse(t, e, "8/4P3/8/8/8/8/1k6/4K3 w - - 0 1")

	if !e.IsPromotion(pos, MoveRef{From: "e7", To: "e8"}) {
		t.Fatalf("pawn to last rank must be promotion-eligible")
	}
	if e.IsPromotion(pos, MoveRef{From: "e1", To: "e2"}) {
		t.Fatalf("king move is not a promotion")
	}

	move, err := e.WithPromotion(pos, MoveRef{From: "e7", To: "e8"}, "")
	if err != nil {
		t.Fatalf("WithPromotion: %v", err)
	}
	if move.Ref.Promotion != "q" || move.UCI != "e7e8q" {
		t.Fatalf("expected auto-queen, got %+v", move)
	}
	applied, err := e.Apply(pos, move)
	if err != nil {
		t.Fatalf("Apply promotion: %v", err)
	}
	if applied.GameOver() {
		t.Fatalf("promotion alone must not end this game: %+v", applied)
	}

	knight, err := e.WithPromotion(pos, MoveRef{From: "e7", To: "e8"}, "n")
	if err != nil {
		t.Fatalf("WithPromotion knight: %v", err)
	}
	if knight.Ref.Promotion != "n" {
		t.Fatalf("expected knight promotion, got %+v", knight)
	}
}

func TestRefFromUCI(t *testing.T) {
	if ref := RefFromUCI("E7E8Q"); ref != (MoveRef{From: "e7", To: "e8", Promotion: "q"}) {
		t.Fatalf("unexpected ref: %+v", ref)
	}
	if ref := RefFromUCI("e2e4"); ref != (MoveRef{From: "e2", To: "e4"}) {
		t.Fatalf("unexpected ref: %+v", ref)
	}
	if ref := RefFromUCI("xx"); ref != (MoveRef{}) {
		t.Fatalf("short input must yield zero ref, got %+v", ref)
	}
}
