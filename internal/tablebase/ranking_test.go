package tablebase

import "testing"

func iptr(n int) *int { return &n }

func TestBetterWDLDominatesDistances(t *testing.T) {
	slowWin := Move{UCI: "a1a2", Category: CategoryWin, Score: 2, DTM: iptr(40), DTZ: iptr(40)}
	fastDraw := Move{UCI: "a1b1", Category: CategoryDraw, Score: 0, DTM: iptr(1), DTZ: iptr(1)}
	if !Better(slowWin, fastDraw) {
		t.Fatalf("a slow win must outrank a fast draw")
	}
	if Better(fastDraw, slowWin) {
		t.Fatalf("draw must not outrank win")
	}

	cursed := Move{UCI: "a1c1", Category: CategoryCursedWin, Score: 1, DTM: iptr(3)}
	if !Better(slowWin, cursed) {
		t.Fatalf("clean win must outrank cursed win regardless of distances")
	}
}

func TestBetterWinsPreferFastestMate(t *testing.T) {
	fast := Move{UCI: "e1e8", Category: CategoryWin, Score: 2, DTM: iptr(5)}
	slow := Move{UCI: "e1e7", Category: CategoryWin, Score: 2, DTM: iptr(12)}
	if !Better(fast, slow) || Better(slow, fast) {
		t.Fatalf("within equal WDL wins, smaller |DTM| must come first")
	}

	// Negative DTM encodings compare by magnitude.
	fastNeg := Move{UCI: "e1e8", Category: CategoryWin, Score: 2, DTM: iptr(-5)}
	if !Better(fastNeg, slow) {
		t.Fatalf("DTM sign must not affect ordering, only magnitude")
	}
}

func TestBetterLossesPreferLongestResistance(t *testing.T) {
	stubborn := Move{UCI: "a8a7", Category: CategoryLoss, Score: -2, DTM: iptr(30)}
	meek := Move{UCI: "a8b8", Category: CategoryLoss, Score: -2, DTM: iptr(4)}
	if !Better(stubborn, meek) || Better(meek, stubborn) {
		t.Fatalf("within equal WDL losses, larger |DTM| must come first")
	}
}

func TestBetterDrawsIgnoreDistances(t *testing.T) {
	a := Move{UCI: "a1a2", Category: CategoryDraw, Score: 0, DTM: iptr(2), DTZ: iptr(2)}
	b := Move{UCI: "a1b2", Category: CategoryDraw, Score: 0, DTM: iptr(50), DTZ: iptr(50)}
	if Better(a, b) || Better(b, a) {
		t.Fatalf("draw-class moves must be equivalent regardless of distances")
	}
}

func TestBetterDTZBreaksDTMTies(t *testing.T) {
	safe := Move{UCI: "a1a2", Category: CategoryWin, Score: 2, DTM: iptr(10), DTZ: iptr(2)}
	risky := Move{UCI: "a1b2", Category: CategoryWin, Score: 2, DTM: iptr(10), DTZ: iptr(30)}
	if !Better(safe, risky) {
		t.Fatalf("equal DTM wins must fall back to smaller |DTZ|")
	}
}

func TestBetterMissingDistanceCountsAsZero(t *testing.T) {
	unknown := Move{UCI: "a1a2", Category: CategoryWin, Score: 2}
	known := Move{UCI: "a1b2", Category: CategoryWin, Score: 2, DTM: iptr(3)}
	// Missing DTM ranks as 0, i.e. ahead of any positive distance in a win.
	if !Better(unknown, known) {
		t.Fatalf("missing DTM must be treated as 0")
	}
}

func TestSortMovesAndTopN(t *testing.T) {
	moves := []Move{
		{UCI: "b1b8", Category: CategoryDraw, Score: 0},
		{UCI: "a1a8", Category: CategoryWin, Score: 2, DTM: iptr(9)},
		{UCI: "c1c8", Category: CategoryLoss, Score: -2, DTM: iptr(12)},
		{UCI: "d1d8", Category: CategoryWin, Score: 2, DTM: iptr(3)},
	}
	top := TopN(moves, 2)
	if len(top) != 2 || top[0].UCI != "d1d8" || top[1].UCI != "a1a8" {
		t.Fatalf("unexpected top-2: %+v", top)
	}
	// input untouched
	if moves[0].UCI != "b1b8" {
		t.Fatalf("TopN must not mutate its input")
	}

	SortMoves(moves)
	if moves[0].UCI != "d1d8" || moves[3].UCI != "c1c8" {
		t.Fatalf("unexpected sort order: %+v", moves)
	}
}

func TestBestPicksTopCandidate(t *testing.T) {
	if _, ok := Best(nil); ok {
		t.Fatalf("Best of empty set must report false")
	}
	moves := []Move{
		{UCI: "a1a2", Category: CategoryDraw, Score: 0},
		{UCI: "a1a3", Category: CategoryWin, Score: 2},
	}
	best, ok := Best(moves)
	if !ok || best.UCI != "a1a3" {
		t.Fatalf("unexpected best: %+v", best)
	}
}

func TestEvaluationNegate(t *testing.T) {
	eval := Evaluation{Category: CategoryWin, Score: 2, DTZ: iptr(8), DTM: iptr(17)}
	neg := eval.Negate()
	if neg.Category != CategoryLoss || neg.Score != -2 || *neg.DTZ != -8 || *neg.DTM != -17 {
		t.Fatalf("unexpected negation: %+v", neg)
	}
	back := neg.Negate()
	if back.Category != eval.Category || back.Score != eval.Score || *back.DTZ != *eval.DTZ || *back.DTM != *eval.DTM {
		t.Fatalf("negating twice must return the original, got %+v", back)
	}

	if CategoryCursedWin.Negate() != CategoryBlessedLoss || CategoryBlessedLoss.Negate() != CategoryCursedWin {
		t.Fatalf("cursed/blessed mirror broken")
	}
	if CategoryDraw.Negate() != CategoryDraw {
		t.Fatalf("draw must be self-mirroring")
	}
}

func TestCategoryScoreConsistency(t *testing.T) {
	cases := map[Category]int{
		CategoryWin:         2,
		CategoryCursedWin:   1,
		CategoryDraw:        0,
		CategoryBlessedLoss: -1,
		CategoryLoss:        -2,
		CategoryUnknown:     0,
	}
	for cat, want := range cases {
		if got := cat.Score(); got != want {
			t.Fatalf("%s: score %d, want %d", cat, got, want)
		}
	}
}
