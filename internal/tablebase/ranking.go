package tablebase

import "sort"

// Move ordering for picking the reply to play and the best move to teach:
//  1. higher WDL score always wins;
//  2. within a shared winning class, the shorter mate (smaller |DTM|) comes
//     first; within a shared losing class the longer defence (larger |DTM|)
//     comes first; draws skip distances entirely;
//  3. DTZ breaks remaining ties with the same sign rule.
//
// Preferring DTM over DTZ is deliberate: a short instructive mate beats a
// 50-move-rule-safe but slower one.

// Better reports whether a should be played in preference to b, both
// candidates belonging to the same side to move.
func Better(a, b Move) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	if a.Score != 0 {
		if d := distanceRank(a.Score, a.DTM, b.DTM); d != 0 {
			return d < 0
		}
		if d := distanceRank(a.Score, a.DTZ, b.DTZ); d != 0 {
			return d < 0
		}
	}
	return false
}

// distanceRank returns <0 when da orders first under the sign rule, >0 when
// db does, 0 on a tie. Missing distances count as 0.
func distanceRank(score int, da, db *int) int {
	a := absDistance(da)
	b := absDistance(db)
	if score > 0 {
		return a - b // winning: fastest first
	}
	return b - a // losing: most resistance first
}

func absDistance(d *int) int {
	if d == nil {
		return 0
	}
	if *d < 0 {
		return -*d
	}
	return *d
}

// SortMoves orders candidates best-first. Equivalent moves keep their
// incoming order.
func SortMoves(moves []Move) {
	sort.SliceStable(moves, func(i, j int) bool { return Better(moves[i], moves[j]) })
}

// TopN returns the n best candidates without mutating the input.
func TopN(moves []Move, n int) []Move {
	sorted := append([]Move(nil), moves...)
	SortMoves(sorted)
	if n < len(sorted) {
		sorted = sorted[:n]
	}
	return sorted
}

// Best returns the single top candidate, or false when there are none.
func Best(moves []Move) (Move, bool) {
	if len(moves) == 0 {
		return Move{}, false
	}
	best := moves[0]
	for _, mv := range moves[1:] {
		if Better(mv, best) {
			best = mv
		}
	}
	return best, true
}
