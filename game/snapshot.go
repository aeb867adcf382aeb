package game

import (
	"github.com/wfunc/highcard/card"
)

// Phase 房间引擎所处的阶段
type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhaseBetting   Phase = "betting"
	PhaseResolving Phase = "resolving"
	PhaseFinished  Phase = "finished"
)

type SeatView struct {
	Ref       SeatRef    `json:"ref"`
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Bot       bool       `json:"bot"`
	Chips     int64      `json:"chips"`
	Card      *card.Card `json:"card,omitempty"`
	HasCard   bool       `json:"has_card"`
	Folded    bool       `json:"folded"`
	Acted     bool       `json:"acted"`
	Connected bool       `json:"connected"`
	InRound   bool       `json:"in_round"`
	WinStreak int        `json:"win_streak"`
}

// Snapshot is a read-only copy of a room's state.
type Snapshot struct {
	RoomID      string     `json:"room_id"`
	Round       int        `json:"round"`
	Phase       Phase      `json:"phase"`
	Stake       int64      `json:"stake"`
	RaiseAmount int64      `json:"raise_amount"`
	Pot         int64      `json:"pot"`
	CarryPot    int64      `json:"carry_pot"`
	Seats       []SeatView `json:"seats"`
	TurnSeat    string     `json:"turn_seat,omitempty"`
	RaiserSeat  string     `json:"raiser_seat,omitempty"`
	WinnerSeat  string     `json:"winner_seat,omitempty"`
	Revealed    bool       `json:"revealed"`
}

// Seat looks up a seat by identity.
func (s Snapshot) Seat(identity string) (SeatView, bool) {
	for _, v := range s.Seats {
		if v.ID == identity {
			return v, true
		}
	}
	return SeatView{}, false
}

// For returns the snapshot as viewer may see it: other seats' cards stay
// hidden until a showdown reveals them.
func (s Snapshot) For(viewer string) Snapshot {
	if s.Revealed {
		return s
	}
	out := s
	out.Seats = make([]SeatView, len(s.Seats))
	for i, v := range s.Seats {
		if v.ID != viewer {
			v.Card = nil
		}
		out.Seats[i] = v
	}
	return out
}

func (e *Engine) Snapshot() Snapshot {
	snap := Snapshot{
		RoomID:      e.roomID,
		Round:       e.round,
		Phase:       e.phase.Current(),
		Stake:       e.cfg.Stake,
		RaiseAmount: e.cfg.RaiseAmount,
		Pot:         e.pot,
		CarryPot:    e.carryPot,
		Revealed:    e.revealed,
		Seats:       make([]SeatView, 0, len(e.seats)),
	}
	if e.phase.Is(PhaseBetting) && e.turn >= 0 {
		snap.TurnSeat = e.seats[e.turn].ID
	}
	if e.raiser >= 0 {
		snap.RaiserSeat = e.seats[e.raiser].ID
	}
	if e.winner >= 0 {
		snap.WinnerSeat = e.seats[e.winner].ID
	}

	for _, s := range e.seats {
		if s.removed {
			continue
		}
		v := SeatView{
			Ref:       s.Ref,
			ID:        s.ID,
			Name:      s.Name,
			Bot:       s.Kind == Bot,
			Chips:     s.Chips,
			HasCard:   s.Hand != nil,
			Folded:    s.Folded,
			Acted:     s.Acted,
			Connected: s.Connected,
			InRound:   s.InRound,
			WinStreak: s.WinStreak,
		}
		if s.Hand != nil {
			c := *s.Hand
			v.Card = &c
		}
		snap.Seats = append(snap.Seats, v)
	}
	return snap
}
