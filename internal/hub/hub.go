package hub

import (
	"context"

	"go.uber.org/zap"

	"github.com/DoyleJ11/magic-match/internal/engine"
	"github.com/DoyleJ11/magic-match/internal/round"
)

type HubMsg interface{ isHubMsg() }

type CreateGame struct {
	Code  string
	Reply chan *round.Controller
}

type GetGame struct {
	Code  string
	Reply chan *round.Controller
}

type EnsureGame struct {
	Code  string
	Reply chan *round.Controller
}

type RemoveGame struct {
	Code string
}

type CountGames struct {
	Reply chan int
}

type Hub struct {
	inbox  chan HubMsg
	games  map[string]*round.Controller
	rules  engine.Rules
	opts   []round.Option
	log    *zap.Logger
	ctx    context.Context
	cancel context.CancelFunc
}

type ShutdownHub struct{}

func (CreateGame) isHubMsg()  {}
func (GetGame) isHubMsg()     {}
func (EnsureGame) isHubMsg()  {}
func (RemoveGame) isHubMsg()  {}
func (CountGames) isHubMsg()  {}
func (ShutdownHub) isHubMsg() {}

// NewHub validates the rules once so that every game it creates is playable.
// opts are passed to each controller.
func NewHub(parent context.Context, rules engine.Rules, log *zap.Logger, opts ...round.Option) (*Hub, error) {
	if err := rules.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}

	ctx, cancel := context.WithCancel(parent)
	h := &Hub{
		inbox:  make(chan HubMsg, 64),
		games:  make(map[string]*round.Controller),
		rules:  rules,
		opts:   opts,
		log:    log,
		ctx:    ctx,
		cancel: cancel,
	}
	go h.loop()
	return h, nil
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

func (h *Hub) Rules() engine.Rules { return h.rules }

func (h *Hub) loop() {
	for {
		select {
		case <-h.ctx.Done():
			clear(h.games) // controllers share h.ctx and stop with it
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case CreateGame:
				if g := h.games[msg.Code]; g != nil {
					msg.Reply <- g
					break
				}
				msg.Reply <- h.create(msg.Code)

			case GetGame:
				msg.Reply <- h.games[msg.Code] // May be nil

			case EnsureGame:
				if g := h.games[msg.Code]; g != nil {
					msg.Reply <- g
					break
				}
				msg.Reply <- h.create(msg.Code)

			case RemoveGame:
				if g := h.games[msg.Code]; g != nil {
					g.Inbox() <- round.Shutdown{}
					delete(h.games, msg.Code)
					h.log.Info("game removed", zap.String("code", msg.Code))
				}

			case CountGames:
				msg.Reply <- len(h.games)

			case ShutdownHub:
				for _, g := range h.games {
					g.Inbox() <- round.Shutdown{}
				}
				clear(h.games)
				h.cancel()
			}

		}
	}
}

func (h *Hub) create(code string) *round.Controller {
	opts := append([]round.Option{round.WithLogger(h.log.With(zap.String("code", code)))}, h.opts...)
	g, err := round.NewController(h.ctx, h.rules, opts...)
	if err != nil {
		// rules were validated in NewHub
		h.log.Error("create game", zap.String("code", code), zap.Error(err))
		return nil
	}
	h.games[code] = g
	h.log.Info("game created", zap.String("code", code))
	return g
}
