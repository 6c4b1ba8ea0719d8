package rules

import "strings"

// Color identifies a chess side.
type Color string

const (
	White Color = "white"
	Black Color = "black"
)

// ParseColor accepts "white"/"w" and "black"/"b"; anything else is rejected.
func ParseColor(s string) (Color, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "white", "w":
		return White, true
	case "black", "b":
		return Black, true
	default:
		return "", false
	}
}

// Opponent returns the other side.
func (c Color) Opponent() Color {
	if c == White {
		return Black
	}
	return White
}

// Prefix is the single-letter piece-code prefix used by board widgets ("w"/"b").
func (c Color) Prefix() string {
	if c == Black {
		return "b"
	}
	return "w"
}

// Move is a move accepted by the rules engine.
type Move struct {
	From      string `json:"from"`
	To        string `json:"to"`
	Promotion string `json:"promotion,omitempty"`
	SAN       string `json:"san"`
	UCI       string `json:"uci"`
	Color     Color  `json:"color"`
}

// Status summarises whether and how a game ended.
type Status string

const (
	StatusOngoing   Status = "ongoing"
	StatusCheckmate Status = "checkmate"
	StatusStalemate Status = "stalemate"
	StatusDraw      Status = "draw"
	StatusResigned  Status = "resigned"
)

// Outcome is the terminal verdict of a position.
type Outcome struct {
	Status Status `json:"status"`
	Winner Color  `json:"winner,omitempty"`
	Method string `json:"method,omitempty"`
	Result string `json:"result"`
}

// Terminal reports whether the outcome ends the game.
func (o Outcome) Terminal() bool {
	return o.Status != "" && o.Status != StatusOngoing
}

// Ongoing is the outcome of a position that is still in play.
func Ongoing() Outcome {
	return Outcome{Status: StatusOngoing, Result: "*"}
}

// Resigned builds the outcome of a game abandoned by loser.
func Resigned(loser Color) Outcome {
	winner := loser.Opponent()
	result := "1-0"
	if winner == Black {
		result = "0-1"
	}
	return Outcome{Status: StatusResigned, Winner: winner, Method: "resignation", Result: result}
}
