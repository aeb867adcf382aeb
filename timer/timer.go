// timer/timer.go
package timer

import (
	"sync"
	"time"

	"github.com/coder/quartz"
)

// TimerManager 管理一组一次性定时任务。时钟可替换，测试里用 quartz.Mock 驱动。
type TimerManager struct {
	clock quartz.Clock

	mutex   sync.Mutex
	nextId  int64
	tasks   map[int64]*quartz.Timer
	stopped bool
}

func NewTimerManager(clock quartz.Clock) *TimerManager {
	if clock == nil {
		clock = quartz.NewReal()
	}
	return &TimerManager{
		clock:  clock,
		nextId: 1,
		tasks:  make(map[int64]*quartz.Timer),
	}
}

// AddTimer runs callback once after delay. The returned id can be passed to
// RemoveTimer; ids are never reused. Returns 0 once the manager is stopped.
func (m *TimerManager) AddTimer(delay time.Duration, callback func(), tags ...string) int64 {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.stopped {
		return 0
	}
	id := m.nextId
	m.nextId++

	m.tasks[id] = m.clock.AfterFunc(delay, func() {
		m.mutex.Lock()
		_, live := m.tasks[id]
		delete(m.tasks, id)
		m.mutex.Unlock()

		// 已被移除的任务可能仍在触发途中
		if live {
			callback()
		}
	}, tags...)
	return id
}

// RemoveTimer cancels a pending task. It reports false if the task already
// fired or was never scheduled.
func (m *TimerManager) RemoveTimer(timerId int64) bool {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	t, ok := m.tasks[timerId]
	if !ok {
		return false
	}
	delete(m.tasks, timerId)
	t.Stop()
	return true
}

func (m *TimerManager) Pending() int {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return len(m.tasks)
}

// Stop cancels everything and refuses new tasks.
func (m *TimerManager) Stop() {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.stopped = true
	for id, t := range m.tasks {
		t.Stop()
		delete(m.tasks, id)
	}
}

func (m *TimerManager) Now() time.Time {
	return m.clock.Now()
}
