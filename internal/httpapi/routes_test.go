package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"nhooyr.io/websocket"

	"github.com/DoyleJ11/magic-match/internal/engine"
	"github.com/DoyleJ11/magic-match/internal/hub"
	"github.com/DoyleJ11/magic-match/pkg/types"
)

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	h, err := hub.NewHub(ctx, engine.DefaultRules(), nil)
	require.NoError(t, err)

	srv := httptest.NewServer(SetupRoutes(h, zap.NewNop(), []string{"*"}))
	t.Cleanup(srv.Close)
	return srv
}

func createGame(t *testing.T, srv *httptest.Server) string {
	t.Helper()
	resp, err := http.Post(srv.URL+"/games", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var body struct {
		Code string `json:"code"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Len(t, body.Code, 6)
	return body.Code
}

func TestGenerateCode(t *testing.T) {
	code, err := GenerateCode()
	require.NoError(t, err)
	assert.Regexp(t, `^[A-Z0-9]{6}$`, code)
}

func TestHealthz(t *testing.T) {
	srv := newServer(t)
	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestGetGame_IdleSnapshot(t *testing.T) {
	srv := newServer(t)
	code := createGame(t, srv)

	resp, err := http.Get(srv.URL + "/games/" + code)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var msg types.ServerMessage
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&msg))
	require.NotNil(t, msg.State)
	assert.Equal(t, "idle", msg.State.Phase)
	assert.Nil(t, msg.State.TimerSeconds)
}

func TestGetGame_Unknown(t *testing.T) {
	srv := newServer(t)
	resp, err := http.Get(srv.URL + "/games/NOPE00")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestDeleteGame(t *testing.T) {
	srv := newServer(t)
	code := createGame(t, srv)

	req, err := http.NewRequest(http.MethodDelete, srv.URL+"/games/"+code, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/games/" + code)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestWS_StartRoundAndSelect(t *testing.T) {
	srv := newServer(t)
	code := createGame(t, srv)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?code=" + code
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "done")

	read := func() types.ServerMessage {
		t.Helper()
		_, data, err := conn.Read(ctx)
		require.NoError(t, err)
		var msg types.ServerMessage
		require.NoError(t, json.Unmarshal(data, &msg))
		return msg
	}
	send := func(v any) {
		t.Helper()
		payload, err := json.Marshal(v)
		require.NoError(t, err)
		require.NoError(t, conn.Write(ctx, websocket.MessageText, payload))
	}

	joined := read()
	assert.Equal(t, types.TypeStateSnapshot, joined.Type)
	assert.Equal(t, 0, joined.Version)

	send(map[string]any{"type": types.TypeStartRound, "stage": 0})
	started := read()
	require.NotNil(t, started.State)
	require.Len(t, started.State.Deck, 12)
	require.NotNil(t, started.State.TimerSeconds)
	assert.Equal(t, 30, *started.State.TimerSeconds)
	for _, c := range started.State.Deck {
		assert.Empty(t, c.Image, "face-down card %d leaked its image", c.ID)
	}

	target := -1
	for _, c := range started.State.Deck {
		if !c.Empty {
			target = c.ID
			break
		}
	}
	require.NotEqual(t, -1, target)

	send(map[string]any{"type": types.TypeSelectCard, "card_id": target})
	var revealed types.ServerMessage
	for {
		revealed = read()
		if len(revealed.Events) > 0 && revealed.Events[0].Type == string(engine.EvtCardRevealed) {
			break
		}
	}
	require.NotNil(t, revealed.State)
	assert.True(t, revealed.State.Deck[target].Revealed)
	assert.NotEmpty(t, revealed.State.Deck[target].Image)
	assert.Equal(t, []int{target}, revealed.State.Selection)

	send(map[string]any{"type": "Flip"})
	for {
		msg := read()
		if msg.Type == types.TypeError {
			assert.Equal(t, "unknown type", msg.Error)
			break
		}
	}
}

func TestWS_UnknownGame(t *testing.T) {
	srv := newServer(t)
	resp, err := http.Get(srv.URL + "/ws?code=NOPE00")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestOriginPatterns(t *testing.T) {
	got := originPatterns([]string{"https://play.example.com", "http://localhost:5173", "*"})
	assert.Equal(t, []string{"play.example.com", "localhost:5173", "*"}, got)
}
