package room

import (
	"time"

	"github.com/wfunc/highcard/game"
)

// Recorder receives room lifecycle and action metrics.
// This is defined here to keep room free of the monitor package.
type Recorder interface {
	RoomOpened(stake int64)
	RoomClosed(stake int64)
	ActionHandled(a game.Action, out game.Outcome, took time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) RoomOpened(int64)                                       {}
func (nopRecorder) RoomClosed(int64)                                       {}
func (nopRecorder) ActionHandled(game.Action, game.Outcome, time.Duration) {}
