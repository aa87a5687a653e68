package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/magic-match/internal/engine"
)

func TestFromState_HidesFaceDownImages(t *testing.T) {
	secs := 12
	s := engine.State{
		Phase: engine.PhaseActive,
		Round: 3,
		Stage: 1,
		Deck: []engine.Card{
			{ID: 0, Image: "A", Revealed: true},
			{ID: 1, Image: "A"},
			{ID: 2, Image: ""},
		},
		Selection:    []int{0},
		TimerSeconds: &secs,
		Outcome:      engine.OutcomeInProgress,
		Rules:        engine.DefaultRules(),
	}

	view := FromState(s)
	require.Len(t, view.Deck, 3)
	assert.Equal(t, "A", view.Deck[0].Image)
	assert.Equal(t, "", view.Deck[1].Image)
	assert.False(t, view.Deck[1].Empty)
	assert.True(t, view.Deck[2].Empty)
	assert.Equal(t, 7, view.MaxStage)

	secs = 0
	require.NotNil(t, view.TimerSeconds)
	assert.Equal(t, 12, *view.TimerSeconds, "view must not alias engine state")

	raw, err := json.Marshal(view)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), `"image":""`)
}

func TestFromState_StoppedTimerIsNull(t *testing.T) {
	raw, err := json.Marshal(FromState(engine.NewEmptyState(engine.DefaultRules())))
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"timer_seconds":null`)
	assert.Contains(t, string(raw), `"phase":"idle"`)
}

func TestFromEvents_KeepsZeroSeconds(t *testing.T) {
	events := FromEvents([]engine.Event{
		{Type: engine.EvtTimerTicked, Round: 1, Seconds: 0},
		{Type: engine.EvtTimedOut, Round: 1},
	})
	require.Len(t, events, 2)
	require.NotNil(t, events[0].Seconds)
	assert.Equal(t, 0, *events[0].Seconds)
	assert.Nil(t, events[1].Seconds)
	assert.Nil(t, FromEvents(nil))
}
