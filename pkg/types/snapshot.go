package types

import "github.com/DoyleJ11/magic-match/internal/engine"

// State is the client-facing view of a round. Face-down cards never carry
// their image, so a client cannot read the winning positions off the wire.
type State struct {
	Phase        string `json:"phase"`
	Round        int    `json:"round"`
	Stage        int    `json:"stage"`
	MaxStage     int    `json:"max_stage"`
	Deck         []Card `json:"deck"`
	Selection    []int  `json:"selection"`
	TimerSeconds *int   `json:"timer_seconds"`
	Outcome      string `json:"outcome"`
}

type Card struct {
	ID       int    `json:"id"`
	Image    string `json:"image,omitempty"`
	Empty    bool   `json:"empty"`
	Revealed bool   `json:"revealed"`
}

type Event struct {
	Type    string `json:"type"`
	Round   int    `json:"round"`
	Stage   int    `json:"stage"`
	CardID  *int   `json:"card_id,omitempty"`
	IDs     []int  `json:"ids,omitempty"`
	Seconds *int   `json:"seconds,omitempty"`
}

func FromState(s engine.State) State {
	deck := make([]Card, len(s.Deck))
	for i, c := range s.Deck {
		deck[i] = Card{ID: c.ID, Empty: c.Empty(), Revealed: c.Revealed}
		if c.Revealed {
			deck[i].Image = c.Image
		}
	}

	selection := append([]int{}, s.Selection...)

	var timer *int
	if s.TimerSeconds != nil {
		v := *s.TimerSeconds
		timer = &v
	}

	return State{
		Phase:        string(s.Phase),
		Round:        s.Round,
		Stage:        s.Stage,
		MaxStage:     s.Rules.MaxStage(),
		Deck:         deck,
		Selection:    selection,
		TimerSeconds: timer,
		Outcome:      string(s.Outcome),
	}
}

func FromEvents(events []engine.Event) []Event {
	if len(events) == 0 {
		return nil
	}
	out := make([]Event, len(events))
	for i, e := range events {
		out[i] = Event{Type: string(e.Type), Round: e.Round, Stage: e.Stage, IDs: e.IDs}
		switch e.Type {
		case engine.EvtCardRevealed:
			id := e.CardID
			out[i].CardID = &id
		case engine.EvtTimerStarted, engine.EvtTimerTicked:
			secs := e.Seconds
			out[i].Seconds = &secs
		}
	}
	return out
}
