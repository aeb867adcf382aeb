package game

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrRoomFull          = errors.New("room is full")
	ErrStaleAction       = errors.New("stale action")
	ErrInsufficientChips = errors.New("insufficient chips")
	ErrSeatNotFound      = errors.New("seat not found")
	ErrAlreadySeated     = errors.New("identity already seated")
	ErrGameFinished      = errors.New("game finished")
	ErrRoundInProgress   = errors.New("round in progress")
	ErrNotEnoughSeats    = errors.New("not enough seats to start")
	ErrUnknownAction     = errors.New("unknown action")
)

// Action 玩家在下注轮中的动作
type Action uint8

const (
	Raise Action = iota + 1
	Pass
	Call
	Fold
)

func (a Action) String() string {
	switch a {
	case Raise:
		return "raise"
	case Pass:
		return "pass"
	case Call:
		return "call"
	case Fold:
		return "fold"
	}
	return fmt.Sprintf("Action(%d)", uint8(a))
}

func (a Action) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *Action) UnmarshalText(b []byte) error {
	parsed, err := ParseAction(string(b))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

func ParseAction(s string) (Action, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "raise":
		return Raise, nil
	case "pass":
		return Pass, nil
	case "call":
		return Call, nil
	case "fold":
		return Fold, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownAction, s)
}

// Outcome tells the host whether an intent changed the room.
type Outcome uint8

const (
	Ignored Outcome = iota
	Applied
)

func (o Outcome) String() string {
	if o == Applied {
		return "applied"
	}
	return "ignored"
}
