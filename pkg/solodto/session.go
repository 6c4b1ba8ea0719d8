package solodto

import "time"

type MoveView struct {
	From      string `json:"from"`
	To        string `json:"to"`
	Promotion string `json:"promotion,omitempty"`
	SAN       string `json:"san"`
	UCI       string `json:"uci"`
	Color     string `json:"color"`
}

type OutcomeView struct {
	Status string `json:"status"`
	Winner string `json:"winner,omitempty"`
	Method string `json:"method,omitempty"`
	Result string `json:"result"`
}

// SessionView is everything a board client needs to redraw.
type SessionView struct {
	GameID    string       `json:"game_id"`
	Phase     string       `json:"phase"`
	Turn      string       `json:"turn"`
	Human     string       `json:"human"`
	FEN       string       `json:"fen"`
	Ply       int          `json:"ply"`
	IsOver    bool         `json:"is_over"`
	Pending   bool         `json:"pending"`
	LastMove  *MoveView    `json:"last_move,omitempty"`
	Outcome   *OutcomeView `json:"outcome,omitempty"`
	History   []string     `json:"history"`
	Message   string       `json:"message,omitempty"`
	StartedAt time.Time    `json:"started_at"`
}

type GameSummary struct {
	GameID      string    `json:"game_id"`
	HumanColor  string    `json:"human_color"`
	HumanResult string    `json:"human_result"`
	Status      string    `json:"status"`
	Result      string    `json:"result"`
	Moves       []string  `json:"moves"`
	PGN         string    `json:"pgn,omitempty"`
	EndedAt     time.Time `json:"ended_at"`
}
