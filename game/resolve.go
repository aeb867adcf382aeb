package game

import (
	"github.com/wfunc/highcard/card"
)

// resolve ends the betting. A lone survivor wins without a reveal; otherwise
// the highest rank wins and a shared top rank replays the round.
func (e *Engine) resolve() {
	e.transition(PhaseResolving)
	e.turn = -1

	active := e.activeSeats()
	switch len(active) {
	case 0:
		e.noWinner()
		return
	case 1:
		e.award(active[0])
		return
	}

	e.revealed = true
	best := []*Seat{active[0]}
	for _, s := range active[1:] {
		switch card.Compare(*s.Hand, *best[0].Hand) {
		case card.Greater:
			best = []*Seat{s}
		case card.Equal:
			best = append(best, s)
		}
	}

	if len(best) > 1 {
		ids := make([]string, len(best))
		for i, s := range best {
			ids[i] = s.ID
		}
		e.log.Infow("round tied", "round", e.round, "pot", e.pot, "rank", best[0].Hand.Rank, "seats", ids)
		e.schedule(WakeRedeal, e.cfg.TieDelay)
		e.sink.RoundTie(e.roomID, e.Snapshot())
		return
	}
	e.award(best[0])
}

// noWinner abandons the pot to the carry pot. Only reachable when nobody
// could pay the ante or every seat dropped out.
func (e *Engine) noWinner() {
	e.log.Warnw("round resolved with no survivors", "round", e.round, "pot", e.pot)
	pot := e.pot
	e.carryPot += pot
	e.pot = 0
	for _, s := range e.seats {
		s.WinStreak = 0
	}
	e.transition(PhaseIdle)

	e.sink.RoundOver(e.roomID, RoundResult{
		RoomID:   e.roomID,
		Round:    e.round,
		Pot:      pot,
		CarryPot: e.carryPot,
		Seats:    e.deltas(),
	})
}

// award pays half the pot (rounded down) to the winner and the rest into the
// carry pot, then either finishes the game or schedules the next round.
func (e *Engine) award(w *Seat) {
	pot := e.pot
	share := pot / 2
	w.Chips += share
	e.carryPot += pot - share
	e.pot = 0
	e.winner = int(w.Ref)

	for _, s := range e.seats {
		if s == w {
			s.WinStreak++
		} else {
			s.WinStreak = 0
		}
	}

	result := RoundResult{
		RoomID:      e.roomID,
		Round:       e.round,
		WinnerID:    w.ID,
		WinnerName:  w.Name,
		Showdown:    e.revealed,
		Pot:         pot,
		WinnerShare: share,
		CarryPot:    e.carryPot,
		WinStreak:   w.WinStreak,
	}
	if e.revealed && w.Hand != nil {
		c := *w.Hand
		result.WinningCard = &c
	}
	e.log.Infow("round won", "round", e.round, "winner", w.ID, "pot", pot,
		"share", share, "carry_pot", e.carryPot, "streak", w.WinStreak)

	if w.WinStreak >= e.cfg.WinStreakTarget {
		claimed := e.carryPot
		w.Chips += claimed
		e.carryPot = 0
		result.Seats = e.deltas()
		e.transition(PhaseFinished)

		e.sink.RoundOver(e.roomID, result)
		e.sink.GameOver(e.roomID, GameResult{
			RoomID:        e.roomID,
			Round:         e.round,
			WinnerID:      w.ID,
			WinnerName:    w.Name,
			WinnerShare:   share,
			CarryPot:      claimed,
			TotalWinnings: share + claimed,
			Seats:         result.Seats,
		})
		return
	}

	result.Seats = e.deltas()
	e.transition(PhaseIdle)
	e.schedule(WakeNextRound, e.cfg.NextRoundDelay)
	e.sink.RoundOver(e.roomID, result)
}

func (e *Engine) deltas() []SeatDelta {
	out := make([]SeatDelta, 0, len(e.seats))
	for _, s := range e.seats {
		if s.removed {
			continue
		}
		out = append(out, SeatDelta{
			Ref:   s.Ref,
			ID:    s.ID,
			Name:  s.Name,
			Bot:   s.Kind == Bot,
			Chips: s.Chips,
			Delta: s.Chips - s.startChips,
		})
	}
	return out
}
