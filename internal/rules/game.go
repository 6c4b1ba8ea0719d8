package rules

import (
	"fmt"
	"strings"

	nchess "github.com/corentings/chess/v2"
)

// Game adapts corentings/chess to the move-level contract the session needs.
// The UCI history is kept alongside the library game so undo can rebuild the
// position by replay.
type Game struct {
	game  *nchess.Game
	moves []string
}

func NewGame() *Game {
	return &Game{game: nchess.NewGame(), moves: []string{}}
}

// LegalMoves enumerates every move the side to move may play.
func (g *Game) LegalMoves() []Move {
	pos := g.game.Position()
	valid := g.game.ValidMoves()
	out := make([]Move, 0, len(valid))
	notationUCI := nchess.UCINotation{}
	for i := range valid {
		uci := strings.ToLower(valid[i].String())
		mv, err := notationUCI.Decode(pos, uci)
		if err != nil {
			continue
		}
		out = append(out, describe(pos, mv, uci))
	}
	return out
}

// ApplyMove plays from→to for the side to move. The promotion hint is only
// used when the plain move is not legal, i.e. when a pawn reaches the last
// rank. Illegal input leaves the game untouched.
func (g *Game) ApplyMove(from, to, promotion string) (Move, bool) {
	from = strings.ToLower(strings.TrimSpace(from))
	to = strings.ToLower(strings.TrimSpace(to))
	if !validSquare(from) || !validSquare(to) {
		return Move{}, false
	}
	uci := from + to
	if mv, ok := g.tryUCI(uci); ok {
		return mv, true
	}
	promo := strings.ToLower(strings.TrimSpace(promotion))
	if !validPromotion(promo) {
		return Move{}, false
	}
	return g.tryUCI(uci + promo)
}

// tryUCI plays uci only when it is in the legal set. The UCI decoder
// assumes a piece on the origin square and panics otherwise.
func (g *Game) tryUCI(uci string) (Move, bool) {
	if !g.isLegal(uci) {
		return Move{}, false
	}
	pos := g.game.Position()
	mv, err := nchess.UCINotation{}.Decode(pos, uci)
	if err != nil || mv == nil {
		return Move{}, false
	}
	desc := describe(pos, mv, uci)
	if err := g.game.Move(mv, nil); err != nil {
		return Move{}, false
	}
	g.moves = append(g.moves, uci)
	return desc, true
}

func (g *Game) isLegal(uci string) bool {
	valid := g.game.ValidMoves()
	for i := range valid {
		if strings.ToLower(valid[i].String()) == uci {
			return true
		}
	}
	return false
}

func (g *Game) IsGameOver() bool {
	return g.game.Outcome() != nchess.NoOutcome
}

// Outcome maps the library verdict to the session vocabulary.
func (g *Game) Outcome() Outcome {
	outcome := g.game.Outcome()
	if outcome == nchess.NoOutcome {
		return Ongoing()
	}
	method := g.game.Method()
	res := Outcome{
		Method: strings.ToLower(method.String()),
		Result: outcome.String(),
	}
	switch outcome {
	case nchess.WhiteWon:
		res.Winner = White
		res.Status = StatusCheckmate
	case nchess.BlackWon:
		res.Winner = Black
		res.Status = StatusCheckmate
	default:
		res.Status = StatusDraw
		if method == nchess.Stalemate {
			res.Status = StatusStalemate
		}
	}
	if method == nchess.Resignation {
		res.Status = StatusResigned
	}
	return res
}

// SerializePosition returns the FEN of the current position.
func (g *Game) SerializePosition() string {
	return g.game.FEN()
}

// UndoLastMove drops the most recent ply and rebuilds the game from the
// remaining history.
func (g *Game) UndoLastMove() error {
	if len(g.moves) == 0 {
		return fmt.Errorf("no move to undo")
	}
	trimmed := append([]string(nil), g.moves[:len(g.moves)-1]...)
	game, err := replay(trimmed)
	if err != nil {
		return err
	}
	g.game = game
	g.moves = trimmed
	return nil
}

// Resign ends the game with loser resigning, so the PGN result matches.
// A finished game is left as it is.
func (g *Game) Resign(loser Color) {
	c := nchess.White
	if loser == Black {
		c = nchess.Black
	}
	g.game.Resign(c)
}

func (g *Game) Reset() {
	g.game = nchess.NewGame()
	g.moves = []string{}
}

// Turn reports the side to move.
func (g *Game) Turn() Color {
	return colorFrom(g.game.Position().Turn())
}

// MovesUCI returns a copy of the played moves in UCI notation.
func (g *Game) MovesUCI() []string {
	return append([]string(nil), g.moves...)
}

// PGN renders the game with the library's PGN writer.
func (g *Game) PGN() string {
	return g.game.String()
}

func replay(moves []string) (*nchess.Game, error) {
	game := nchess.NewGame()
	notation := nchess.UCINotation{}
	for _, mv := range moves {
		move, err := notation.Decode(game.Position(), mv)
		if err != nil {
			return nil, fmt.Errorf("decode move %s: %w", mv, err)
		}
		if err := game.Move(move, nil); err != nil {
			return nil, fmt.Errorf("apply move %s: %w", mv, err)
		}
	}
	return game, nil
}

func describe(pos *nchess.Position, mv *nchess.Move, uci string) Move {
	out := Move{
		From:  uci[0:2],
		To:    uci[2:4],
		SAN:   nchess.AlgebraicNotation{}.Encode(pos, mv),
		UCI:   uci,
		Color: colorFrom(pos.Turn()),
	}
	if len(uci) == 5 {
		out.Promotion = uci[4:]
	}
	return out
}

func colorFrom(c nchess.Color) Color {
	if c == nchess.Black {
		return Black
	}
	return White
}

func validSquare(s string) bool {
	return len(s) == 2 && s[0] >= 'a' && s[0] <= 'h' && s[1] >= '1' && s[1] <= '8'
}

func validPromotion(p string) bool {
	switch p {
	case "q", "r", "b", "n":
		return true
	default:
		return false
	}
}
