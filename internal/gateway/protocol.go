package gateway

// Client → server frames.
const (
	MsgStart = "start"
	MsgClick = "click"
)

// Server → client frames.
const (
	MsgSession      = "session"
	MsgComputerTurn = "computer_turn"
	MsgFlashOn      = "flash_on"
	MsgFlashOff     = "flash_off"
	MsgPlayerTurn   = "player_turn"
	MsgRound        = "round"
	MsgGameOver     = "game_over"
	MsgError        = "error"
)

type ClientMessage struct {
	Type string `json:"type"`
	// Speed selects the playback multiplier on start (1, 1.5 or 2).
	Speed float64 `json:"speed,omitempty"`
	Slot  *int    `json:"slot,omitempty"`
}

type ServerMessage struct {
	Type           string  `json:"type"`
	SessionID      string  `json:"sessionId,omitempty"`
	Slot           *int    `json:"slot,omitempty"`
	DurationMs     int64   `json:"durationMs,omitempty"`
	Score          int     `json:"score,omitempty"`
	SequenceLength int     `json:"sequenceLength,omitempty"`
	Speed          float64 `json:"speed,omitempty"`
	Reason         string  `json:"reason,omitempty"`
	Message        string  `json:"message,omitempty"`
}
