// room/room.go
package room

import (
	"errors"
	"sync"
	"time"

	"github.com/wfunc/highcard/game"
	"github.com/wfunc/highcard/logger"
	"github.com/wfunc/highcard/timer"
)

var ErrRoomClosed = errors.New("room closed")

// Room 是一个游戏房间。引擎只在房间自己的 goroutine 里被访问，
// 玩家意图和定时器回调都通过 do 排队执行。
type Room struct {
	ID        string
	Stake     int64
	CreatedAt time.Time

	engine *game.Engine
	timers *timer.TimerManager
	wakeID int64 // 仅 loop goroutine 读写

	cmds      chan func()
	closeChan chan struct{}
	closeOnce sync.Once
	done      chan struct{}
}

func newRoom(id string, cfg game.Config, timers *timer.TimerManager, opts ...game.Option) *Room {
	r := &Room{
		ID:        id,
		Stake:     cfg.Stake,
		CreatedAt: timers.Now(),
		timers:    timers,
		cmds:      make(chan func()),
		closeChan: make(chan struct{}),
		done:      make(chan struct{}),
	}
	opts = append(opts, game.WithScheduler(r))
	r.engine = game.NewEngine(id, cfg, opts...)

	go r.loop()
	return r
}

// loop 是房间的主循环，串行执行所有命令
func (r *Room) loop() {
	defer close(r.done)
	for {
		select {
		case fn := <-r.cmds:
			fn()
		case <-r.closeChan:
			if r.wakeID != 0 {
				r.timers.RemoveTimer(r.wakeID)
			}
			logger.Log.Debugw("room loop stopped", "room_id", r.ID)
			return
		}
	}
}

// do runs fn on the room goroutine and waits for it to finish.
func (r *Room) do(fn func()) error {
	finished := make(chan struct{})
	select {
	case r.cmds <- func() {
		defer close(finished)
		fn()
	}:
	case <-r.closeChan:
		return ErrRoomClosed
	}
	<-finished
	return nil
}

// Schedule implements game.Scheduler. The engine only calls it from inside
// do, so wakeID needs no lock.
func (r *Room) Schedule(w game.Wakeup, delay time.Duration) {
	if r.wakeID != 0 {
		r.timers.RemoveTimer(r.wakeID)
	}
	var id int64
	id = r.timers.AddTimer(delay, func() {
		err := r.do(func() {
			// 已被新的定时器取代
			if r.wakeID != id {
				return
			}
			r.wakeID = 0
			if !r.engine.Wake(w) {
				logger.Log.Debugw("stale wakeup dropped", "room_id", r.ID, "wakeup", w)
			}
		})
		if err != nil {
			logger.Log.Debugw("wakeup after close", "room_id", r.ID, "wakeup", w)
		}
	}, "room", w.String())
	r.wakeID = id
}

// Close 关闭房间，停止主循环并取消挂起的定时器。不等待 loop 退出。
func (r *Room) Close() {
	r.closeOnce.Do(func() {
		close(r.closeChan)
	})
}

// Done is closed once the room goroutine has exited.
func (r *Room) Done() <-chan struct{} {
	return r.done
}
