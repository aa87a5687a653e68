package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"nhooyr.io/websocket"

	"github.com/DoyleJ11/magic-match/internal/hub"
	"github.com/DoyleJ11/magic-match/internal/round"
	"github.com/DoyleJ11/magic-match/pkg/types"
)

const (
	writeTimeout = 3 * time.Second
	// A player may stare at the board for a whole round without sending
	// anything.
	readTimeout = 2 * time.Minute
)

func Handler(h *hub.Hub, log *zap.Logger, originPatterns []string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := r.URL.Query().Get("code")
		if code == "" {
			http.Error(w, "missing code", http.StatusBadRequest)
			return
		}

		reply := make(chan *round.Controller, 1)
		h.Inbox() <- hub.GetGame{Code: code, Reply: reply}
		game := <-reply
		if game == nil {
			http.Error(w, "game not found", http.StatusNotFound)
			return
		}

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns: originPatterns,
		})
		if err != nil {
			log.Warn("websocket accept", zap.String("code", code), zap.Error(err))
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		out := make(chan round.Snapshot, 8)
		clientID := uuid.NewString()
		log := log.With(zap.String("code", code), zap.String("client_id", clientID))

		game.Inbox() <- round.Join{ClientID: clientID, Outbox: out}
		defer func() {
			select {
			case game.Inbox() <- round.Leave{ClientID: clientID}:
			case <-game.Done():
			}
		}()
		log.Info("client joined")

		// Writer goroutine
		writeCtx, writeCancel := context.WithCancel(r.Context())
		defer writeCancel()
		go func() {
			for {
				select {
				case <-writeCtx.Done():
					return
				case snap, ok := <-out:
					if !ok {
						// The game was shut down or dropped us as slow.
						conn.Close(websocket.StatusGoingAway, "game closed")
						return
					}
					writeSnapshot(writeCtx, conn, log, snap)
				}
			}
		}()

		// Reader loop
		for {
			ctx, cancel := context.WithTimeout(r.Context(), readTimeout)
			_, data, err := conn.Read(ctx)
			cancel()
			if err != nil {
				// Treat clean close/going-away as normal:
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
					log.Info("client left")
					return
				}
				log.Debug("read", zap.Error(err))
				return
			}

			var cm types.ClientMessage
			if err := json.Unmarshal(data, &cm); err != nil {
				writeError(r.Context(), conn, "bad json")
				continue
			}

			msg, ok := toRoundMsg(cm)
			if !ok {
				writeError(r.Context(), conn, "unknown type")
				continue
			}

			select {
			case game.Inbox() <- msg:
			case <-game.Done():
				return
			}
		}
	}
}

func toRoundMsg(m types.ClientMessage) (round.Msg, bool) {
	switch m.Type {
	case types.TypeStartRound:
		if m.Stage == nil {
			return round.StartRound{KeepStage: true}, true
		}
		return round.StartRound{Stage: *m.Stage}, true
	case types.TypeSelectCard:
		if m.CardID == nil {
			return nil, false
		}
		return round.SelectCard{CardID: *m.CardID}, true
	default:
		return nil, false
	}
}

func writeSnapshot(ctx context.Context, conn *websocket.Conn, log *zap.Logger, snap round.Snapshot) {
	state := types.FromState(snap.State)
	msg := types.ServerMessage{
		Type:    types.TypeStateSnapshot,
		Version: snap.Version,
		State:   &state,
		Events:  types.FromEvents(snap.Events),
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		log.Error("marshal snapshot", zap.Error(err))
		return
	}
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	if err := conn.Write(ctx, websocket.MessageText, payload); err != nil {
		log.Debug("write snapshot", zap.Error(err))
	}
}

func writeError(ctx context.Context, conn *websocket.Conn, text string) {
	payload, _ := json.Marshal(types.ServerMessage{Type: types.TypeError, Error: text})
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	_ = conn.Write(ctx, websocket.MessageText, payload)
}
