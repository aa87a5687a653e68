package types

// Client -> Server
//
// StartRound:
//   stage: number (optional; omitted = play again at the current stage)
//
// SelectCard:
//   card_id: number

// Server -> Client
//
// StateSnapshot:
//   version: number
//   state: State
//   events: Event[]   // RoundWon, AllStagesComplete, TimedOut, RoundOver, ...
//
// Error:
//   error: string

const (
	TypeStartRound    = "StartRound"
	TypeSelectCard    = "SelectCard"
	TypeStateSnapshot = "StateSnapshot"
	TypeError         = "Error"
)

type ClientMessage struct {
	Type   string `json:"type"`
	Stage  *int   `json:"stage,omitempty"`
	CardID *int   `json:"card_id,omitempty"`
}

type ServerMessage struct {
	Type    string  `json:"type"` // "StateSnapshot" | "Error"
	Version int     `json:"version,omitempty"`
	State   *State  `json:"state,omitempty"`
	Events  []Event `json:"events,omitempty"`
	Error   string  `json:"error,omitempty"`
}
