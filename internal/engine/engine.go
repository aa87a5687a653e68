package engine

import (
	"errors"
	"slices"
)

// Rejections are not failures: the controller treats every one of these as a
// silent no-op for the player.
var ErrRoundNotActive = errors.New("round not active")
var ErrSelectionFull = errors.New("selection full")
var ErrUnknownCard = errors.New("unknown card")
var ErrEmptyCard = errors.New("empty card")
var ErrAlreadyRevealed = errors.New("card already revealed")
var ErrStaleRound = errors.New("stale round")
var ErrTimerStopped = errors.New("timer not running")
var ErrNotWon = errors.New("round not won")
var ErrDeckSize = errors.New("deck does not match stage")
var ErrUnsupportedCommand = errors.New("unsupported command")

// SelectionSize is how many face-up cards make up one match attempt.
const SelectionSize = 3

type Outcome string

const (
	OutcomeInProgress Outcome = "in_progress"
	OutcomeWon        Outcome = "won"
	OutcomeTimedOut   Outcome = "timed_out"
)

type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseActive     Phase = "active"
	PhaseEvaluating Phase = "evaluating"
	PhaseWon        Phase = "won"
	PhaseComplete   Phase = "complete"
	PhaseTimedOut   Phase = "timed_out"
)

type Card struct {
	ID       int    `json:"id"`
	Image    string `json:"image"`
	Revealed bool   `json:"revealed"`
}

func (c Card) Empty() bool { return c.Image == "" }

type State struct {
	Phase        Phase   `json:"phase"`
	Round        int     `json:"round"`
	Stage        int     `json:"stage"`
	Deck         []Card  `json:"deck"`
	Selection    []int   `json:"selection"`
	TimerSeconds *int    `json:"timer_seconds"`
	Outcome      Outcome `json:"outcome"`
	PendingHides int     `json:"pending_hides"`
	Completed    bool    `json:"completed"`
	Rules        Rules   `json:"-"`
}

type CommandType string

const (
	CmdStartRound   CommandType = "StartRound"
	CmdSelectCard   CommandType = "SelectCard"
	CmdHideCards    CommandType = "HideCards"
	CmdTick         CommandType = "Tick"
	CmdAdvanceStage CommandType = "AdvanceStage"
)

/*
	CmdStartRound   -> EvtRoundStarted -> EvtTimerStarted
	CmdSelectCard   -> EvtCardRevealed [-> EvtRoundWon -> EvtTimerStopped | -> EvtCardsMismatched]
	CmdHideCards    -> EvtCardsHidden
	CmdTick         -> EvtTimerTicked [-> EvtTimedOut -> EvtRoundOver]
	CmdAdvanceStage -> EvtStageAdvanced | EvtAllStagesComplete

	Delayed commands (hide, tick, advance) carry the round they were scheduled
	for. Anything aimed at an older round is dropped with ErrStaleRound.
*/

type Command struct {
	Type   CommandType
	Stage  int
	Deck   []Card
	CardID int
	IDs    []int
	Round  int
}

type EventType string

const (
	EvtRoundStarted      EventType = "RoundStarted"
	EvtTimerStarted      EventType = "TimerStarted"
	EvtCardRevealed      EventType = "CardRevealed"
	EvtRoundWon          EventType = "RoundWon"
	EvtTimerStopped      EventType = "TimerStopped"
	EvtCardsMismatched   EventType = "CardsMismatched"
	EvtCardsHidden       EventType = "CardsHidden"
	EvtTimerTicked       EventType = "TimerTicked"
	EvtTimedOut          EventType = "TimedOut"
	EvtRoundOver         EventType = "RoundOver"
	EvtStageAdvanced     EventType = "StageAdvanced"
	EvtAllStagesComplete EventType = "AllStagesComplete"
)

type Event struct {
	Type    EventType `json:"type"`
	Round   int       `json:"round"`
	Stage   int       `json:"stage"`
	CardID  int       `json:"card_id,omitempty"`
	IDs     []int     `json:"ids,omitempty"`
	Seconds int       `json:"seconds,omitempty"`
}

func Apply(s State, cmd Command) ([]Event, State, error) {
	switch cmd.Type {
	case CmdStartRound:
		stage := s.Rules.ClampStage(cmd.Stage)
		if len(cmd.Deck) != s.Rules.DeckSize(stage) {
			return nil, s, ErrDeckSize
		}

		newState := s
		newState.Round = s.Round + 1
		newState.Stage = stage
		newState.Deck = slices.Clone(cmd.Deck)
		newState.Selection = []int{}
		newState.Outcome = OutcomeInProgress
		newState.PendingHides = 0
		newState.Completed = false
		newState.TimerSeconds = intPtr(s.Rules.CountdownSec)
		newState.Phase = DerivePhase(newState)

		events := []Event{
			{Type: EvtRoundStarted, Round: newState.Round, Stage: stage},
			{Type: EvtTimerStarted, Round: newState.Round, Stage: stage, Seconds: s.Rules.CountdownSec},
		}
		return events, newState, nil

	case CmdSelectCard:
		if s.Outcome != OutcomeInProgress || len(s.Deck) == 0 {
			return nil, s, ErrRoundNotActive
		}
		if len(s.Selection) >= SelectionSize {
			return nil, s, ErrSelectionFull
		}
		idx := cardIndex(s.Deck, cmd.CardID)
		if idx < 0 {
			return nil, s, ErrUnknownCard
		}
		if s.Deck[idx].Empty() {
			return nil, s, ErrEmptyCard
		}
		if !canSelect(s, cmd.CardID) {
			return nil, s, ErrAlreadyRevealed
		}

		newState := s
		newState.Deck = slices.Clone(s.Deck)
		newState.Deck[idx].Revealed = true
		newState.Selection = append(slices.Clone(s.Selection), cmd.CardID)

		events := []Event{
			{Type: EvtCardRevealed, Round: s.Round, Stage: s.Stage, CardID: cmd.CardID},
		}

		if len(newState.Selection) < SelectionSize {
			newState.Phase = DerivePhase(newState)
			return events, newState, nil
		}

		// Evaluation happens right here; the selection is freed immediately
		// and the three cards stay face up until hidden or the round resets.
		picked := newState.Selection
		newState.Selection = []int{}
		if isMatch(newState.Deck, picked) {
			newState.Outcome = OutcomeWon
			newState.TimerSeconds = nil
			events = append(events,
				Event{Type: EvtRoundWon, Round: s.Round, Stage: s.Stage, IDs: picked},
				Event{Type: EvtTimerStopped, Round: s.Round, Stage: s.Stage},
			)
		} else {
			newState.PendingHides++
			events = append(events,
				Event{Type: EvtCardsMismatched, Round: s.Round, Stage: s.Stage, IDs: picked},
			)
		}
		newState.Phase = DerivePhase(newState)
		return events, newState, nil

	case CmdHideCards:
		if cmd.Round != s.Round || len(s.Deck) == 0 {
			return nil, s, ErrStaleRound
		}

		newState := s
		newState.Deck = slices.Clone(s.Deck)
		for _, id := range cmd.IDs {
			if idx := cardIndex(newState.Deck, id); idx >= 0 {
				newState.Deck[idx].Revealed = false
			}
		}
		if newState.PendingHides > 0 {
			newState.PendingHides--
		}
		newState.Phase = DerivePhase(newState)

		events := []Event{
			{Type: EvtCardsHidden, Round: s.Round, Stage: s.Stage, IDs: slices.Clone(cmd.IDs)},
		}
		return events, newState, nil

	case CmdTick:
		if cmd.Round != s.Round {
			return nil, s, ErrStaleRound
		}
		// A tick against a stopped or drained timer is a scheduling bug, not a
		// game event; never let the countdown go negative.
		if s.TimerSeconds == nil || *s.TimerSeconds <= 0 {
			return nil, s, ErrTimerStopped
		}

		newState := s
		remaining := *s.TimerSeconds - 1
		newState.TimerSeconds = intPtr(remaining)

		events := []Event{
			{Type: EvtTimerTicked, Round: s.Round, Stage: s.Stage, Seconds: remaining},
		}
		if remaining > 0 {
			return events, newState, nil
		}

		newState.Outcome = OutcomeTimedOut
		newState.Stage = 0
		newState.Deck = []Card{}
		newState.Selection = []int{}
		newState.PendingHides = 0
		newState.TimerSeconds = nil
		newState.Phase = DerivePhase(newState)
		events = append(events,
			Event{Type: EvtTimedOut, Round: s.Round, Stage: s.Stage},
			Event{Type: EvtRoundOver, Round: s.Round, Stage: s.Stage},
		)
		return events, newState, nil

	case CmdAdvanceStage:
		if cmd.Round != s.Round {
			return nil, s, ErrStaleRound
		}
		if s.Outcome != OutcomeWon || s.Completed {
			return nil, s, ErrNotWon
		}

		if s.Stage < s.Rules.MaxStage() {
			// The stage itself moves when the next round starts.
			events := []Event{
				{Type: EvtStageAdvanced, Round: s.Round, Stage: s.Stage + 1},
			}
			return events, s, nil
		}

		newState := s
		newState.Completed = true
		newState.Phase = DerivePhase(newState)
		events := []Event{
			{Type: EvtAllStagesComplete, Round: s.Round, Stage: s.Stage},
		}
		return events, newState, nil

	default:
		return nil, s, ErrUnsupportedCommand
	}
}

func cardIndex(deck []Card, id int) int {
	return slices.IndexFunc(deck, func(c Card) bool { return c.ID == id })
}

func canSelect(s State, id int) bool {
	if slices.Contains(s.Selection, id) {
		return false
	}
	idx := cardIndex(s.Deck, id)
	return idx >= 0 && !s.Deck[idx].Revealed
}

func isMatch(deck []Card, ids []int) bool {
	if len(ids) != SelectionSize {
		return false
	}
	first := deck[cardIndex(deck, ids[0])].Image
	if first == "" {
		return false
	}
	for _, id := range ids[1:] {
		if deck[cardIndex(deck, id)].Image != first {
			return false
		}
	}
	return true
}

func intPtr(v int) *int { return &v }
