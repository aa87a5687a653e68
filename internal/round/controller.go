package round

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/DoyleJ11/magic-match/internal/engine"
)

type Msg interface{ isRoundMsg() }

// StartRound shuffles a new deck. KeepStage replays the current stage
// ("play again"); otherwise Stage is clamped to the ladder.
type StartRound struct {
	Stage     int
	KeepStage bool
}

func (StartRound) isRoundMsg() {}

type SelectCard struct {
	CardID int
}

func (SelectCard) isRoundMsg() {}

type Join struct {
	ClientID string
	Outbox   chan Snapshot // where this client wants to receive snapshots
}

func (Join) isRoundMsg() {}

type Leave struct{ ClientID string }

func (Leave) isRoundMsg() {}

type Shutdown struct{}

func (Shutdown) isRoundMsg() {}

type GetState struct {
	Reply chan View
}

func (GetState) isRoundMsg() {}

// tick and deferred are posted by the controller's own timers.
type tick struct {
	round int
	seq   int
}

func (tick) isRoundMsg() {}

type deferred struct {
	key int
	cmd engine.Command
}

func (deferred) isRoundMsg() {}

// Snapshot is what subscribers receive after every accepted transition.
// Events lists what that transition produced (RoundWon, TimedOut, ...).
type Snapshot struct {
	Version int
	State   engine.State
	Events  []engine.Event
}

type View struct {
	Version    int
	NumClients int
	State      engine.State
}

type Option func(*Controller)

func WithClock(clock clockwork.Clock) Option {
	return func(c *Controller) { c.clock = clock }
}

func WithLogger(log *zap.Logger) Option {
	return func(c *Controller) { c.log = log }
}

func WithRand(rng *rand.Rand) Option {
	return func(c *Controller) { c.rng = rng }
}

type Controller struct {
	inbox   chan Msg
	state   engine.State
	version int
	clients map[string]chan Snapshot
	ctx     context.Context
	cancel  context.CancelFunc

	clock clockwork.Clock
	rng   *rand.Rand
	log   *zap.Logger

	// At most one countdown timer exists; deferred holds the one-shot hide
	// and stage-advance callbacks of the current round.
	countdown clockwork.Timer
	tickSeq   int
	deferred  map[int]clockwork.Timer
	nextKey   int
}

func NewController(parent context.Context, rules engine.Rules, opts ...Option) (*Controller, error) {
	if err := rules.Validate(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(parent)
	c := &Controller{
		inbox:    make(chan Msg, 64),
		state:    engine.NewEmptyState(rules),
		clients:  make(map[string]chan Snapshot),
		ctx:      ctx,
		cancel:   cancel,
		clock:    clockwork.NewRealClock(),
		log:      zap.NewNop(),
		deferred: make(map[int]clockwork.Timer),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.rng == nil {
		c.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	go c.loop()
	return c, nil
}

func (c *Controller) loop() {
	for {
		select {
		case <-c.ctx.Done():
			c.shutdown()
			return

		case m := <-c.inbox:
			switch msg := m.(type) {
			case Join:
				c.clients[msg.ClientID] = msg.Outbox
				msg.Outbox <- Snapshot{Version: c.version, State: c.state}

			case Leave:
				delete(c.clients, msg.ClientID)

			case StartRound:
				stage := msg.Stage
				if msg.KeepStage {
					stage = c.state.Stage
				}
				c.startRound(stage)

			case SelectCard:
				c.apply(engine.Command{Type: engine.CmdSelectCard, CardID: msg.CardID})

			case tick:
				if c.countdown == nil || msg.seq != c.tickSeq {
					// fired just before it was stopped or replaced
					break
				}
				c.countdown = nil
				c.apply(engine.Command{Type: engine.CmdTick, Round: msg.round})

			case deferred:
				if _, ok := c.deferred[msg.key]; !ok {
					// cancelled after it had already fired
					break
				}
				delete(c.deferred, msg.key)
				c.apply(msg.cmd)

			case GetState:
				msg.Reply <- View{
					Version:    c.version,
					NumClients: len(c.clients),
					State:      c.state,
				}

			case Shutdown:
				c.shutdown()
				return
			}
		}
	}
}

func (c *Controller) startRound(stage int) {
	deck, winning := engine.BuildDeck(c.rng, c.state.Rules, stage)
	c.log.Debug("deck shuffled",
		zap.Int("stage", c.state.Rules.ClampStage(stage)),
		zap.Int("cards", len(deck)),
		zap.String("winning_image", winning),
	)
	c.apply(engine.Command{Type: engine.CmdStartRound, Stage: stage, Deck: deck})
}

// apply runs one command through the engine. Timers are armed before the
// snapshot goes out so that anyone reacting to it sees them in place.
func (c *Controller) apply(cmd engine.Command) {
	events, newState, err := engine.Apply(c.state, cmd)
	if err != nil {
		c.log.Debug("command ignored",
			zap.String("command", string(cmd.Type)),
			zap.Int("round", c.state.Round),
			zap.Error(err),
		)
		return
	}

	c.state = newState
	c.version++
	c.schedule(events)
	c.broadcast(Snapshot{Version: c.version, State: c.state, Events: events})

	for _, e := range events {
		if e.Type == engine.EvtStageAdvanced {
			c.startRound(e.Stage)
		}
	}
}

func (c *Controller) schedule(events []engine.Event) {
	rules := c.state.Rules
	for _, e := range events {
		switch e.Type {
		case engine.EvtRoundStarted:
			c.cancelAll()
			c.log.Info("round started", zap.Int("round", e.Round), zap.Int("stage", e.Stage))

		case engine.EvtTimerStarted:
			c.armCountdown()

		case engine.EvtTimerTicked:
			if engine.Running(c.state) {
				c.armCountdown()
			}

		case engine.EvtCardsMismatched:
			c.after(rules.ShortDelay, engine.Command{Type: engine.CmdHideCards, Round: e.Round, IDs: e.IDs})

		case engine.EvtRoundWon:
			c.stopCountdown()
			c.after(rules.LongDelay, engine.Command{Type: engine.CmdAdvanceStage, Round: e.Round})
			c.log.Info("round won", zap.Int("round", e.Round), zap.Int("stage", e.Stage))

		case engine.EvtTimedOut:
			c.cancelAll()
			c.log.Info("round timed out", zap.Int("round", e.Round), zap.Int("stage", e.Stage))

		case engine.EvtAllStagesComplete:
			c.log.Info("all stages complete", zap.Int("round", e.Round))
		}
	}
}

func (c *Controller) armCountdown() {
	c.stopCountdown()
	c.tickSeq++
	t := tick{round: c.state.Round, seq: c.tickSeq}
	c.countdown = c.clock.AfterFunc(time.Second, func() {
		c.post(t)
	})
}

func (c *Controller) stopCountdown() {
	if c.countdown != nil {
		c.countdown.Stop()
		c.countdown = nil
	}
}

func (c *Controller) after(d time.Duration, cmd engine.Command) {
	key := c.nextKey
	c.nextKey++
	c.deferred[key] = c.clock.AfterFunc(d, func() {
		c.post(deferred{key: key, cmd: cmd})
	})
}

func (c *Controller) cancelAll() {
	c.stopCountdown()
	for key, t := range c.deferred {
		t.Stop()
		delete(c.deferred, key)
	}
}

func (c *Controller) post(m Msg) {
	select {
	case c.inbox <- m:
	case <-c.ctx.Done():
	}
}

func (c *Controller) shutdown() {
	c.cancelAll()
	for id, ch := range c.clients {
		close(ch) // Tell client no more snapshots
		delete(c.clients, id)
	}
	c.cancel()
}

func (c *Controller) broadcast(snap Snapshot) {
	for id, ch := range c.clients {
		select {
		case ch <- snap:
			//ok
		default:
			// Client is slow/full - drop them.
			c.log.Warn("dropping slow client", zap.String("client_id", id))
			close(ch)
			delete(c.clients, id)
		}
	}
}

// Expose the inbox so tests or WS layer can send messages.
func (c *Controller) Inbox() chan<- Msg { return c.inbox }

func (c *Controller) Done() <-chan struct{} { return c.ctx.Done() }

func (c *Controller) StartRound(ctx context.Context, stage int) error {
	return c.send(ctx, StartRound{Stage: stage})
}

func (c *Controller) SelectCard(ctx context.Context, id int) error {
	return c.send(ctx, SelectCard{CardID: id})
}

func (c *Controller) Snapshot(ctx context.Context) (View, error) {
	reply := make(chan View, 1)
	if err := c.send(ctx, GetState{Reply: reply}); err != nil {
		return View{}, err
	}
	select {
	case v := <-reply:
		return v, nil
	case <-ctx.Done():
		return View{}, ctx.Err()
	case <-c.ctx.Done():
		return View{}, context.Canceled
	}
}

func (c *Controller) send(ctx context.Context, m Msg) error {
	select {
	case c.inbox <- m:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-c.ctx.Done():
		return context.Canceled
	}
}
