package game

// The betting round has two passes. In the first pass every active seat, in
// turn order from the round's first actor, either raises or passes. The first
// raise ends the first pass at once; the second pass then asks every other
// active seat, starting after the raiser, to call or fold. A seat that cannot
// cover the raise amount is never asked: it passes or folds automatically.

func (e *Engine) legal(a Action) bool {
	switch e.street {
	case firstPass:
		return a == Raise || a == Pass
	case secondPass:
		return a == Call || a == Fold
	}
	return false
}

func (e *Engine) situation(s *Seat) Situation {
	sit := Situation{
		Chips:       s.Chips,
		RaiseAmount: e.cfg.RaiseAmount,
		Facing:      e.street == secondPass,
	}
	if s.Hand != nil {
		sit.Card = *s.Hand
	}
	return sit
}

// drive advances the turn until a human has to act or the round resolves.
// Bots act synchronously, exactly as a human intent would be applied.
func (e *Engine) drive() {
	for e.phase.Is(PhaseBetting) {
		if e.activeCount() <= 1 || e.passComplete() {
			e.resolve()
			return
		}

		if e.turn < 0 {
			e.turn = e.nextActive(e.first - 1)
		}
		s := e.seats[e.turn]
		if !s.active() || s.Acted {
			e.turn = e.nextActive(e.turn)
			continue
		}

		if s.Chips < e.cfg.RaiseAmount {
			a := e.fallback()
			e.log.Debugw("short stack acted", "seat", s.ID, "action", a, "chips", s.Chips)
			e.apply(s, a)
			continue
		}

		a, ok := s.decider.Decide(e.situation(s))
		if !ok {
			return
		}
		if !e.legal(a) {
			a = e.fallback()
		}
		e.log.Debugw("bot acted", "seat", s.ID, "action", a, "card", s.Hand)
		e.apply(s, a)
	}
}

// fallback is the passive choice for the current pass.
func (e *Engine) fallback() Action {
	if e.street == secondPass {
		return Fold
	}
	return Pass
}

// passComplete reports whether every active seat has acted in its pass.
func (e *Engine) passComplete() bool {
	for _, s := range e.seats {
		if s.active() && !s.Acted {
			return false
		}
	}
	return true
}

// apply performs a legal action for the seat whose turn it is and moves the
// turn on. Unaffordable raises become passes; unaffordable calls become folds.
func (e *Engine) apply(s *Seat, a Action) {
	idx := int(s.Ref)

	switch a {
	case Raise:
		if !s.charge(e.cfg.RaiseAmount) {
			e.log.Debugw("raise coerced to pass", "seat", s.ID, "error", ErrInsufficientChips)
			s.Acted = true
			break
		}
		e.pot += e.cfg.RaiseAmount
		e.raiser = idx
		e.street = secondPass
		for _, other := range e.seats {
			if other.active() {
				other.Acted = false
			}
		}
		s.Acted = true

	case Pass:
		s.Acted = true

	case Call:
		if !s.charge(e.cfg.RaiseAmount) {
			e.log.Debugw("call coerced to fold", "seat", s.ID, "error", ErrInsufficientChips)
			e.fold(s)
			break
		}
		e.pot += e.cfg.RaiseAmount
		s.Acted = true

	case Fold:
		e.fold(s)
	}

	e.turn = e.nextActive(idx)
}

func (e *Engine) fold(s *Seat) {
	s.Folded = true
	s.Acted = true
}
