package rules

import (
	"errors"
	"fmt"
	"strings"

	nchess "github.com/corentings/chess/v2"
)

var (
	ErrInvalidPosition = errors.New("invalid position")
	ErrInvalidMove     = errors.New("invalid chess move")
)

// Position is an immutable board-state token. Equality is structural (FEN).
type Position struct {
	FEN  string
	Turn nchess.Color
}

// MoveRef is the canonical origin/destination/promotion triple used for move
// identity. Display notation (SAN) is too ambiguous to compare against.
type MoveRef struct {
	From      string
	To        string
	Promotion string
}

func (r MoveRef) String() string { return r.From + r.To + r.Promotion }

// RefFromUCI derives a canonical triple from a UCI move string like "e7e8q".
func RefFromUCI(uci string) MoveRef {
	uci = strings.ToLower(strings.TrimSpace(uci))
	if len(uci) < 4 {
		return MoveRef{}
	}
	ref := MoveRef{From: uci[:2], To: uci[2:4]}
	if len(uci) > 4 {
		ref.Promotion = uci[4:5]
	}
	return ref
}

type Move struct {
	UCI string
	SAN string
	Ref MoveRef
}

// Applied reports the result of a legal move.
type Applied struct {
	Move      Move
	Position  Position
	Checkmate bool
	Stalemate bool
	Draw      bool
	Check     bool
}

func (a Applied) GameOver() bool { return a.Checkmate || a.Stalemate || a.Draw }

// Engine validates and applies moves on FEN positions. It is stateless; every
// call reconstructs the game from the position token.
type Engine struct{}

func NewEngine() *Engine { return &Engine{} }

func (e *Engine) Parse(fen string) (Position, error) {
	game, err := gameFromFEN(fen)
	if err != nil {
		return Position{}, err
	}
	return Position{FEN: game.FEN(), Turn: game.Position().Turn()}, nil
}

// Decode accepts SAN first, then lowercase UCI, mirroring user input habits.
func (e *Engine) Decode(pos Position, text string) (Move, error) {
	game, err := gameFromFEN(pos.FEN)
	if err != nil {
		return Move{}, err
	}
	position := game.Position()
	notationSAN := nchess.AlgebraicNotation{}
	notationUCI := nchess.UCINotation{}
	move, err := notationSAN.Decode(position, text)
	if err != nil {
		move, err = notationUCI.Decode(position, strings.ToLower(strings.TrimSpace(text)))
		if err != nil {
			return Move{}, ErrInvalidMove
		}
	}
	san := notationSAN.Encode(position, move)
	uci := strings.ToLower(notationUCI.Encode(position, move))
	return Move{UCI: uci, SAN: san, Ref: RefFromUCI(uci)}, nil
}

// Apply validates mv against pos and returns the resulting position with
// game-status flags. The input position is never mutated.
func (e *Engine) Apply(pos Position, mv Move) (Applied, error) {
	game, err := gameFromFEN(pos.FEN)
	if err != nil {
		return Applied{}, err
	}
	position := game.Position()
	notationUCI := nchess.UCINotation{}
	move, err := notationUCI.Decode(position, mv.UCI)
	if err != nil {
		return Applied{}, ErrInvalidMove
	}
	san := nchess.AlgebraicNotation{}.Encode(position, move)
	if err := game.Move(move, nil); err != nil {
		return Applied{}, ErrInvalidMove
	}

	applied := Applied{
		Move:     Move{UCI: mv.UCI, SAN: san, Ref: RefFromUCI(mv.UCI)},
		Position: Position{FEN: game.FEN(), Turn: game.Position().Turn()},
		// SAN carries check/mate suffixes, so no extra attack scan is needed.
		Check: strings.ContainsAny(san, "+#"),
	}
	if game.Outcome() != nchess.NoOutcome {
		switch game.Method() {
		case nchess.Checkmate:
			applied.Checkmate = true
		case nchess.Stalemate:
			applied.Stalemate = true
			applied.Draw = true
		default:
			applied.Draw = game.Outcome() == nchess.Draw
		}
	}
	return applied, nil
}

func (e *Engine) LegalMoves(pos Position) ([]Move, error) {
	game, err := gameFromFEN(pos.FEN)
	if err != nil {
		return nil, err
	}
	position := game.Position()
	notationSAN := nchess.AlgebraicNotation{}
	notationUCI := nchess.UCINotation{}
	valid := game.ValidMoves()
	moves := make([]Move, 0, len(valid))
	for _, mv := range valid {
		uci := strings.ToLower(notationUCI.Encode(position, &mv))
		moves = append(moves, Move{
			UCI: uci,
			SAN: notationSAN.Encode(position, &mv),
			Ref: RefFromUCI(uci),
		})
	}
	return moves, nil
}

// IsPromotion reports whether ref moves a pawn of the side to move onto the
// last rank. It does not require the promotion piece to be resolved yet.
func (e *Engine) IsPromotion(pos Position, ref MoveRef) bool {
	game, err := gameFromFEN(pos.FEN)
	if err != nil {
		return false
	}
	from, ok := squareFromString(ref.From)
	if !ok {
		return false
	}
	piece := game.Position().Board().Piece(from)
	if piece.Type() != nchess.Pawn || piece.Color() != pos.Turn {
		return false
	}
	if len(ref.To) != 2 {
		return false
	}
	targetRank := ref.To[1]
	if pos.Turn == nchess.White {
		return targetRank == '8'
	}
	return targetRank == '1'
}

// WithPromotion resolves a promotion-eligible ref to a concrete move. An empty
// piece letter auto-resolves to the queen.
func (e *Engine) WithPromotion(pos Position, ref MoveRef, piece string) (Move, error) {
	if piece == "" {
		piece = "q"
	}
	return e.Decode(pos, ref.From+ref.To+strings.ToLower(piece))
}

func gameFromFEN(fen string) (*nchess.Game, error) {
	if strings.TrimSpace(fen) == "" {
		return nil, ErrInvalidPosition
	}
	option, err := nchess.FEN(fen)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPosition, err)
	}
	return nchess.NewGame(option), nil
}

func squareFromString(s string) (nchess.Square, bool) {
	if len(s) != 2 || s[0] < 'a' || s[0] > 'h' || s[1] < '1' || s[1] > '8' {
		return 0, false
	}
	file := int(s[0] - 'a')
	rank := int(s[1] - '1')
	return nchess.Square(rank*8 + file), true
}
