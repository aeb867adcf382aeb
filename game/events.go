package game

import (
	"time"

	"github.com/wfunc/highcard/card"
)

// SeatDelta is one seat's chip movement over a round.
type SeatDelta struct {
	Ref   SeatRef `json:"ref"`
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Bot   bool    `json:"bot"`
	Chips int64   `json:"chips"`
	Delta int64   `json:"delta"`
}

// RoundResult 一轮结束（有唯一赢家或无人存活）
type RoundResult struct {
	RoomID      string      `json:"room_id"`
	Round       int         `json:"round"`
	WinnerID    string      `json:"winner_id,omitempty"`
	WinnerName  string      `json:"winner_name,omitempty"`
	WinningCard *card.Card  `json:"winning_card,omitempty"`
	Showdown    bool        `json:"showdown"`
	Pot         int64       `json:"pot"`
	WinnerShare int64       `json:"winner_share"`
	CarryPot    int64       `json:"carry_pot"`
	WinStreak   int         `json:"win_streak"`
	Seats       []SeatDelta `json:"seats"`
}

// GameResult 某个座位连胜达到目标，游戏结束
type GameResult struct {
	RoomID        string      `json:"room_id"`
	Round         int         `json:"round"`
	WinnerID      string      `json:"winner_id"`
	WinnerName    string      `json:"winner_name"`
	WinnerShare   int64       `json:"winner_share"`
	CarryPot      int64       `json:"carry_pot"`
	TotalWinnings int64       `json:"total_winnings"`
	Seats         []SeatDelta `json:"seats"`
}

// EventSink receives everything a room wants broadcast. Calls arrive from the
// room's own goroutine in the order they happened; implementations must not
// call back into the same room synchronously.
type EventSink interface {
	StateChanged(roomID string, s Snapshot)
	RoundTie(roomID string, s Snapshot)
	RoundOver(roomID string, r RoundResult)
	GameOver(roomID string, r GameResult)
}

type NopSink struct{}

func (NopSink) StateChanged(string, Snapshot) {}
func (NopSink) RoundTie(string, Snapshot)     {}
func (NopSink) RoundOver(string, RoundResult) {}
func (NopSink) GameOver(string, GameResult)   {}

// MultiSink fans every event out to each sink in order.
type MultiSink []EventSink

func (m MultiSink) StateChanged(roomID string, s Snapshot) {
	for _, sink := range m {
		sink.StateChanged(roomID, s)
	}
}

func (m MultiSink) RoundTie(roomID string, s Snapshot) {
	for _, sink := range m {
		sink.RoundTie(roomID, s)
	}
}

func (m MultiSink) RoundOver(roomID string, r RoundResult) {
	for _, sink := range m {
		sink.RoundOver(roomID, r)
	}
}

func (m MultiSink) GameOver(roomID string, r GameResult) {
	for _, sink := range m {
		sink.GameOver(roomID, r)
	}
}

// Wakeup names a delayed transition the engine asked its host to schedule.
type Wakeup uint8

const (
	WakeNone Wakeup = iota
	WakeRedeal
	WakeNextRound
)

func (w Wakeup) String() string {
	switch w {
	case WakeRedeal:
		return "redeal"
	case WakeNextRound:
		return "next_round"
	}
	return "none"
}

// Scheduler arranges for Engine.Wake(w) to be called after delay, from the
// same serialisation point that owns the engine. Scheduling a new wakeup
// replaces any earlier one.
type Scheduler interface {
	Schedule(w Wakeup, delay time.Duration)
}
