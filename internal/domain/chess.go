package domain

import "time"

// SoloGame is the archived record of one finished or resigned game.
type SoloGame struct {
	GameID       string        `json:"game_id"`
	HumanColor   string        `json:"human_color"`
	Status       string        `json:"status"`
	Winner       string        `json:"winner,omitempty"`
	Result       string        `json:"result"`
	ResultMethod string        `json:"result_method,omitempty"`
	Moves        []string      `json:"moves"`
	PGN          string        `json:"pgn,omitempty"`
	StartedAt    time.Time     `json:"started_at"`
	EndedAt      time.Time     `json:"ended_at"`
	Duration     time.Duration `json:"duration_ns"`
}

// HumanResult reports the game from the human's side: win, loss or draw.
func (g *SoloGame) HumanResult() string {
	switch {
	case g == nil:
		return ""
	case g.Winner == "":
		return "draw"
	case g.Winner == g.HumanColor:
		return "win"
	default:
		return "loss"
	}
}
