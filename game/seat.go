package game

import (
	"github.com/wfunc/highcard/card"
)

// SeatRef is a stable handle into a room's seat arena. It is never reused
// within a room, so removing a seat does not shift anyone else's handle.
type SeatRef int

const NoSeat SeatRef = -1

// Kind 区分真人和机器人座位
type Kind uint8

const (
	Human Kind = iota
	Bot
)

func (k Kind) String() string {
	if k == Bot {
		return "bot"
	}
	return "human"
}

// Seat 一个被占用的座位，保存当前轮的状态
type Seat struct {
	Ref       SeatRef
	ID        string
	Name      string
	Kind      Kind
	Chips     int64
	Hand      *card.Card
	Folded    bool
	Acted     bool
	Connected bool
	InRound   bool
	WinStreak int

	decider    Decider
	removed    bool
	startChips int64
}

// active reports whether the seat is still contesting the current round.
func (s *Seat) active() bool {
	return s.InRound && !s.Folded && !s.removed
}

func (s *Seat) charge(amount int64) bool {
	if s.Chips < amount {
		return false
	}
	s.Chips -= amount
	return true
}

// Situation is what a seat knows when it is asked to act.
type Situation struct {
	Card        card.Card
	Chips       int64
	RaiseAmount int64
	// Facing is true once somebody has raised: the choice is call or fold.
	Facing bool
}

// Options lists the legal actions for the situation.
func (s Situation) Options() []Action {
	if s.Facing {
		return []Action{Call, Fold}
	}
	return []Action{Raise, Pass}
}

// Decider picks an action for a seat. ok is false when the decision has to
// come from outside the engine (a human at the other end of a connection).
type Decider interface {
	Decide(s Situation) (a Action, ok bool)
}

type awaitIntent struct{}

func (awaitIntent) Decide(Situation) (Action, bool) { return 0, false }

// ThresholdBot opens with a raise at RaiseAt or better and calls a raise
// at CallAt or better. Everything else passes or folds.
type ThresholdBot struct {
	RaiseAt card.Rank
	CallAt  card.Rank
}

// DefaultBot raises on J+ and calls on 8+.
var DefaultBot = ThresholdBot{RaiseAt: card.Jack, CallAt: card.Eight}

func (b ThresholdBot) Decide(s Situation) (Action, bool) {
	affordable := s.Chips >= s.RaiseAmount
	if s.Facing {
		if affordable && s.Card.Rank >= b.CallAt {
			return Call, true
		}
		return Fold, true
	}
	if affordable && s.Card.Rank >= b.RaiseAt {
		return Raise, true
	}
	return Pass, true
}

// DeciderFunc adapts a function to Decider.
type DeciderFunc func(Situation) (Action, bool)

func (f DeciderFunc) Decide(s Situation) (Action, bool) { return f(s) }
