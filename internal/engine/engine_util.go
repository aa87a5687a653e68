package engine

func NewEmptyState(rules Rules) State {
	s := State{
		Deck:      []Card{},
		Selection: []int{},
		Outcome:   OutcomeInProgress,
		Rules:     rules,
	}
	s.Phase = DerivePhase(s) // "idle" until the first round starts
	return s
}

func ContainsEvent(events []Event, eventType EventType) bool {
	for _, event := range events {
		if event.Type == eventType {
			return true
		}
	}
	return false
}

func CountEvents(events []Event, eventType EventType) int {
	n := 0
	for _, event := range events {
		if event.Type == eventType {
			n++
		}
	}
	return n
}

func DerivePhase(s State) Phase {
	switch {
	case s.Outcome == OutcomeTimedOut:
		return PhaseTimedOut
	case s.Round == 0:
		return PhaseIdle
	case s.Completed:
		return PhaseComplete
	case s.Outcome == OutcomeWon:
		return PhaseWon
	case s.PendingHides > 0:
		return PhaseEvaluating
	default:
		return PhaseActive
	}
}

// Running reports whether the countdown is live for this state.
func Running(s State) bool {
	return s.Outcome == OutcomeInProgress && s.TimerSeconds != nil && *s.TimerSeconds > 0
}
