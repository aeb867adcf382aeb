package game

import (
	"fmt"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"

	"github.com/wfunc/highcard/card"
	"github.com/wfunc/highcard/logger"
	"github.com/wfunc/highcard/state"
)

// Config 房间的固定参数，创建后不可修改
type Config struct {
	Stake           int64
	RaiseAmount     int64
	MaxSeats        int
	WinStreakTarget int
	TieDelay        time.Duration
	NextRoundDelay  time.Duration
}

// DefaultConfig returns the table rules for the given stake.
func DefaultConfig(stake int64) Config {
	return Config{
		Stake:           stake,
		RaiseAmount:     20,
		MaxSeats:        4,
		WinStreakTarget: 3,
		TieDelay:        3 * time.Second,
		NextRoundDelay:  4 * time.Second,
	}
}

type street uint8

const (
	firstPass street = iota
	secondPass
)

// Engine is the per-room state machine. It is not safe for concurrent use:
// the owner must serialise every call (see room.Room).
type Engine struct {
	roomID string
	cfg    Config
	phase  *state.Machine[Phase]

	seats []*Seat
	byID  map[string]SeatRef

	pot      int64
	carryPot int64
	round    int
	street   street
	turn     int
	raiser   int
	winner   int
	first    int
	revealed bool
	pending  Wakeup

	newDeck func() *card.Deck
	bot     Decider
	sink    EventSink
	sched   Scheduler
	log     *zap.SugaredLogger
}

type Option func(*Engine)

// WithDeckSource replaces the shuffled deck used for every deal.
func WithDeckSource(fn func() *card.Deck) Option {
	return func(e *Engine) { e.newDeck = fn }
}

// WithRand shuffles decks from rng.
func WithRand(rng *rand.Rand) Option {
	return func(e *Engine) {
		e.newDeck = func() *card.Deck { return card.NewDeck(rng) }
	}
}

func WithSink(sink EventSink) Option {
	return func(e *Engine) { e.sink = sink }
}

func WithScheduler(s Scheduler) Option {
	return func(e *Engine) { e.sched = s }
}

// WithBotDecider sets the strategy used by every bot seat.
func WithBotDecider(d Decider) Option {
	return func(e *Engine) { e.bot = d }
}

func NewEngine(roomID string, cfg Config, opts ...Option) *Engine {
	if cfg.MaxSeats <= 0 {
		cfg.MaxSeats = 4
	}
	if cfg.WinStreakTarget <= 0 {
		cfg.WinStreakTarget = 3
	}

	e := &Engine{
		roomID:  roomID,
		cfg:     cfg,
		byID:    make(map[string]SeatRef),
		turn:    -1,
		raiser:  -1,
		winner:  -1,
		first:   -1,
		newDeck: func() *card.Deck { return card.NewDeck(nil) },
		bot:     DefaultBot,
		sink:    NopSink{},
		log:     logger.Log.With("room_id", roomID),
	}
	for _, opt := range opts {
		opt(e)
	}

	e.phase = state.NewMachine(PhaseIdle).
		Allow(PhaseIdle, PhaseBetting, nil).
		Allow(PhaseBetting, PhaseResolving, nil).
		Allow(PhaseResolving, PhaseBetting, nil).
		Allow(PhaseResolving, PhaseIdle, nil).
		Allow(PhaseResolving, PhaseFinished, nil).
		OnEnter(PhaseBetting, func(from, _ Phase) {
			e.log.Debugw("betting", "round", e.round, "pot", e.pot, "redeal", from == PhaseResolving)
		}).
		OnEnter(PhaseFinished, func(_, _ Phase) {
			e.log.Infow("game finished", "round", e.round)
		})

	return e
}

func (e *Engine) RoomID() string  { return e.roomID }
func (e *Engine) Config() Config  { return e.cfg }
func (e *Engine) Phase() Phase    { return e.phase.Current() }
func (e *Engine) Pot() int64      { return e.pot }
func (e *Engine) CarryPot() int64 { return e.carryPot }
func (e *Engine) Round() int      { return e.round }

// Occupied counts seats currently on the roster.
func (e *Engine) Occupied() int {
	n := 0
	for _, s := range e.seats {
		if !s.removed {
			n++
		}
	}
	return n
}

// Pending returns the wakeup the engine is waiting for, if any.
func (e *Engine) Pending() Wakeup { return e.pending }

// AddSeat puts a player or bot on the roster. Seats added mid-round sit out
// until the next deal.
func (e *Engine) AddSeat(identity, name string, chips int64, kind Kind) (SeatRef, error) {
	if e.phase.Is(PhaseFinished) {
		return NoSeat, ErrGameFinished
	}
	if ref, ok := e.byID[identity]; ok {
		return ref, ErrAlreadySeated
	}
	if e.Occupied() >= e.cfg.MaxSeats {
		return NoSeat, ErrRoomFull
	}
	if chips < 0 {
		chips = 0
	}

	ref := SeatRef(len(e.seats))
	s := &Seat{
		Ref:        ref,
		ID:         identity,
		Name:       name,
		Kind:       kind,
		Chips:      chips,
		Connected:  true,
		decider:    awaitIntent{},
		startChips: chips,
	}
	if kind == Bot {
		s.decider = e.bot
	}
	e.seats = append(e.seats, s)
	e.byID[identity] = ref

	e.log.Infow("seat added", "seat", identity, "kind", kind, "chips", chips)
	e.emitState()
	return ref, nil
}

// Leave removes a seat while no round is running. Mid-round the seat is
// disconnected instead and folds for the rest of its time in the room.
func (e *Engine) Leave(identity string) error {
	ref, ok := e.byID[identity]
	if !ok {
		return ErrSeatNotFound
	}
	s := e.seats[ref]

	if e.phase.Is(PhaseIdle, PhaseFinished) {
		s.removed = true
		s.Connected = false
		s.InRound = false
		delete(e.byID, identity)
		e.log.Infow("seat removed", "seat", identity)
		e.emitState()
		return nil
	}

	s.Connected = false
	if s.active() {
		e.fold(s)
	}
	e.log.Infow("seat disconnected", "seat", identity, "phase", e.phase.Current())
	if e.phase.Is(PhaseBetting) {
		e.drive()
	}
	e.emitState()
	return nil
}

// StartRound deals a new round. It does nothing unless the room is idle with
// at least two seats.
func (e *Engine) StartRound() bool {
	if !e.phase.Is(PhaseIdle) || e.Occupied() < 2 {
		return false
	}
	e.pending = WakeNone
	e.startRound()
	e.emitState()
	return true
}

// Act applies a human intent. Anything out of turn, out of phase or illegal
// for the current pass is ignored and reported as ErrStaleAction.
func (e *Engine) Act(identity string, a Action) (Outcome, error) {
	if !e.phase.Is(PhaseBetting) {
		return Ignored, fmt.Errorf("%w: phase is %s", ErrStaleAction, e.phase.Current())
	}
	ref, ok := e.byID[identity]
	if !ok {
		return Ignored, fmt.Errorf("%w: %s is not seated", ErrStaleAction, identity)
	}
	s := e.seats[ref]
	switch {
	case int(ref) != e.turn:
		return Ignored, fmt.Errorf("%w: not %s's turn", ErrStaleAction, identity)
	case !s.active() || !s.Connected:
		return Ignored, fmt.Errorf("%w: %s is out of the round", ErrStaleAction, identity)
	case s.Kind == Bot:
		return Ignored, fmt.Errorf("%w: %s is a bot", ErrStaleAction, identity)
	case !e.legal(a):
		return Ignored, fmt.Errorf("%w: %s not allowed now", ErrStaleAction, a)
	}

	e.apply(s, a)
	e.drive()
	e.emitState()
	return Applied, nil
}

// Wake runs a delayed transition previously handed to the Scheduler. Wakeups
// that are no longer pending (cancelled, superseded or already run) are
// ignored.
func (e *Engine) Wake(w Wakeup) bool {
	if w == WakeNone || w != e.pending {
		return false
	}
	e.pending = WakeNone

	switch w {
	case WakeRedeal:
		if !e.phase.Is(PhaseResolving) {
			return false
		}
		e.redeal()
	case WakeNextRound:
		if !e.phase.Is(PhaseIdle) || e.Occupied() < 2 {
			return false
		}
		e.startRound()
	}
	e.emitState()
	return true
}

func (e *Engine) startRound() {
	e.round++
	e.pot = 0
	e.raiser = -1
	e.turn = -1
	e.winner = -1
	e.revealed = false

	for _, s := range e.seats {
		if s.removed {
			continue
		}
		s.startChips = s.Chips
		s.Hand = nil
		s.Folded = false
		s.Acted = false
		s.InRound = false

		if !s.Connected || !s.charge(e.cfg.Stake) {
			s.Folded = true
			continue
		}
		e.pot += e.cfg.Stake
		s.InRound = true
	}

	e.transition(PhaseBetting)
	if next := e.nextActive(e.first); next >= 0 {
		e.first = next
	}
	e.log.Infow("round started", "round", e.round, "pot", e.pot, "active", e.activeCount())
	e.dealAndBet()
}

// redeal replays a tied round: same roster, same pot, no new ante.
func (e *Engine) redeal() {
	e.revealed = false
	e.raiser = -1
	for _, s := range e.seats {
		if s.active() && !s.Connected {
			e.fold(s)
		}
		s.Hand = nil
	}
	e.transition(PhaseBetting)
	e.log.Infow("redealing tied round", "round", e.round, "pot", e.pot, "active", e.activeCount())
	e.dealAndBet()
}

func (e *Engine) dealAndBet() {
	if e.activeCount() < 2 {
		e.resolve()
		return
	}

	deck := e.newDeck()
	for _, s := range e.seats {
		if !s.active() {
			continue
		}
		c, err := deck.Deal()
		if err != nil {
			e.log.Errorw("deal failed", "error", err)
			e.abandonRound()
			return
		}
		s.Hand = &c
		s.Acted = false
	}

	e.street = firstPass
	e.raiser = -1
	if !e.seats[e.first].active() {
		e.first = e.nextActive(e.first)
	}
	e.turn = e.first
	e.drive()
}

// abandonRound moves the pot to the carry pot without a winner.
func (e *Engine) abandonRound() {
	e.carryPot += e.pot
	e.pot = 0
	if e.phase.Is(PhaseBetting) {
		e.transition(PhaseResolving)
	}
	e.transition(PhaseIdle)
}

func (e *Engine) transition(to Phase) {
	if err := e.phase.Transition(to); err != nil {
		e.log.Errorw("phase transition rejected", "error", err)
	}
}

func (e *Engine) schedule(w Wakeup, delay time.Duration) {
	e.pending = w
	if e.sched != nil {
		e.sched.Schedule(w, delay)
	}
}

func (e *Engine) emitState() {
	e.sink.StateChanged(e.roomID, e.Snapshot())
}

// nextActive returns the first active seat after from, wrapping around, or
// -1 if nobody is active.
func (e *Engine) nextActive(from int) int {
	n := len(e.seats)
	for i := 1; i <= n; i++ {
		idx := (from + i) % n
		if idx < 0 {
			idx += n
		}
		if e.seats[idx].active() {
			return idx
		}
	}
	return -1
}

func (e *Engine) activeCount() int {
	n := 0
	for _, s := range e.seats {
		if s.active() {
			n++
		}
	}
	return n
}

func (e *Engine) activeSeats() []*Seat {
	out := make([]*Seat, 0, len(e.seats))
	for _, s := range e.seats {
		if s.active() {
			out = append(out, s)
		}
	}
	return out
}
