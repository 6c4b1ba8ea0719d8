package solodto

type MoveRequest struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Websocket message types sent by clients.
const (
	TypeDragStart = "drag_start"
	TypeDrop      = "drop"
	TypeSnapEnd   = "snap_end"
	TypeReset     = "reset"
	TypeResign    = "resign"
	TypeUndo      = "undo"
)

// Websocket message types sent by the server.
const (
	TypeState = "state"
	TypeDrag  = "drag"
	TypeError = "error"
)

// ClientMessage is one board gesture or command.
type ClientMessage struct {
	Type   string `json:"type"`
	Source string `json:"source,omitempty"`
	Target string `json:"target,omitempty"`
	Piece  string `json:"piece,omitempty"`
}

// ServerMessage answers a gesture or broadcasts a state change.
type ServerMessage struct {
	Type     string       `json:"type"`
	State    *SessionView `json:"state,omitempty"`
	Allowed  *bool        `json:"allowed,omitempty"`
	Snapback *bool        `json:"snapback,omitempty"`
	Move     *MoveView    `json:"move,omitempty"`
	Error    *DomainError `json:"error,omitempty"`
}
