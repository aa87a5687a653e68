package hub

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/magic-match/internal/engine"
	"github.com/DoyleJ11/magic-match/internal/round"
)

func newTestHub(t *testing.T) *Hub {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	h, err := NewHub(ctx, engine.DefaultRules(), nil)
	require.NoError(t, err)
	return h
}

func TestHub_Create_Get_SamePointer(t *testing.T) {
	h := newTestHub(t)
	reply := make(chan *round.Controller, 1)

	h.Inbox() <- CreateGame{Code: "ZED123", Reply: reply}
	g1 := <-reply

	h.Inbox() <- GetGame{Code: "ZED123", Reply: reply}
	g2 := <-reply

	if g1 == nil || g2 == nil || g1 != g2 {
		t.Fatalf("expected same game pointer")
	}
}

func TestHub_GetUnknown_ReturnsNil(t *testing.T) {
	h := newTestHub(t)
	reply := make(chan *round.Controller, 1)

	h.Inbox() <- GetGame{Code: "NOPE00", Reply: reply}
	require.Nil(t, <-reply)
}

func TestHub_Remove_ShutsGameDown(t *testing.T) {
	h := newTestHub(t)
	reply := make(chan *round.Controller, 1)

	h.Inbox() <- EnsureGame{Code: "ABC123", Reply: reply}
	g := <-reply
	require.NotNil(t, g)

	h.Inbox() <- RemoveGame{Code: "ABC123"}

	select {
	case <-g.Done():
	case <-time.After(time.Second):
		t.Fatalf("removed game still running")
	}

	count := make(chan int, 1)
	h.Inbox() <- CountGames{Reply: count}
	require.Equal(t, 0, <-count)
}

func TestNewHub_RejectsInvalidRules(t *testing.T) {
	rules := engine.DefaultRules()
	rules.Images = nil
	_, err := NewHub(context.Background(), rules, nil)
	require.ErrorIs(t, err, engine.ErrInvalidRules)
}
