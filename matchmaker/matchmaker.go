// matchmaker/matchmaker.go
package matchmaker

import (
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/coder/quartz"

	"github.com/wfunc/highcard/game"
	"github.com/wfunc/highcard/logger"
	"github.com/wfunc/highcard/timer"
)

var (
	ErrAlreadyQueued = errors.New("already queued")
	ErrNotQueued     = errors.New("not queued")
	ErrUnknownStake  = errors.New("unknown stake")
	ErrClosed        = errors.New("matchmaker closed")
)

const (
	DefaultBotFillTimeout = 30 * time.Second
	DefaultChips          = 100
	DefaultSeats          = 4
)

// RoomCreator is the part of the room registry the matchmaker drives.
type RoomCreator interface {
	CreateRoom(stake int64) (string, error)
	AddSeat(roomID, identity, name string, chips int64, isBot bool) (game.SeatRef, error)
	AddBot(roomID string) (game.SeatRef, error)
	StartRound(roomID string) error
	CloseRoom(roomID string)
}

// BalanceSource supplies a player's starting chips. ok is false for players
// the ledger has never seen.
type BalanceSource interface {
	Balance(identity string) (chips int64, ok bool)
}

// Recorder receives queue metrics.
type Recorder interface {
	QueueDepth(stake int64, n int)
	Matched(stake int64, humans, bots int)
}

type nopRecorder struct{}

func (nopRecorder) QueueDepth(int64, int)   {}
func (nopRecorder) Matched(int64, int, int) {}

// Entry 排队中的玩家
type Entry struct {
	Identity string
	Name     string
	Joined   time.Time
}

// Match describes a room the matchmaker just filled.
type Match struct {
	RoomID  string
	Stake   int64
	Players []Entry
	Bots    int
}

type queue struct {
	entries []Entry
	timerID int64
}

func (q *queue) index(identity string) int {
	return slices.IndexFunc(q.entries, func(e Entry) bool { return e.Identity == identity })
}

// Matchmaker 按底注分档排队，两人即开房，超时用机器人补满
type Matchmaker struct {
	mutex  sync.Mutex
	queues map[int64]*queue
	closed bool

	rooms    RoomCreator
	balances BalanceSource
	clock    quartz.Clock
	timers   *timer.TimerManager
	recorder Recorder
	onMatch  func(Match)

	timeout      time.Duration
	defaultChips int64
	seats        int
	stakes       []int64
}

type Option func(*Matchmaker)

func WithClock(c quartz.Clock) Option {
	return func(m *Matchmaker) { m.clock = c }
}

// WithBotFillTimeout sets how long a lone player waits before bots fill the room.
func WithBotFillTimeout(d time.Duration) Option {
	return func(m *Matchmaker) { m.timeout = d }
}

func WithDefaultChips(chips int64) Option {
	return func(m *Matchmaker) { m.defaultChips = chips }
}

func WithSeats(n int) Option {
	return func(m *Matchmaker) { m.seats = n }
}

// WithStakes restricts queues to the given tiers. Any positive stake is
// accepted when no tiers are configured.
func WithStakes(stakes ...int64) Option {
	return func(m *Matchmaker) { m.stakes = slices.Clone(stakes) }
}

func WithRecorder(r Recorder) Option {
	return func(m *Matchmaker) { m.recorder = r }
}

// OnMatch is called after a room has been filled, outside the matchmaker lock.
func OnMatch(fn func(Match)) Option {
	return func(m *Matchmaker) { m.onMatch = fn }
}

func New(rooms RoomCreator, balances BalanceSource, opts ...Option) *Matchmaker {
	m := &Matchmaker{
		queues:       make(map[int64]*queue),
		rooms:        rooms,
		balances:     balances,
		clock:        quartz.NewReal(),
		recorder:     nopRecorder{},
		onMatch:      func(Match) {},
		timeout:      DefaultBotFillTimeout,
		defaultChips: DefaultChips,
		seats:        DefaultSeats,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.timers = timer.NewTimerManager(m.clock)
	return m
}

// Enqueue puts identity in the queue for stake. It returns how many players
// are still waiting in that tier afterwards; 0 means the caller was matched.
// Two waiting players are matched at once into a new room.
func (m *Matchmaker) Enqueue(stake int64, identity, name string) (int, error) {
	m.mutex.Lock()
	if m.closed {
		m.mutex.Unlock()
		return 0, ErrClosed
	}
	if stake <= 0 || (len(m.stakes) > 0 && !slices.Contains(m.stakes, stake)) {
		m.mutex.Unlock()
		return 0, fmt.Errorf("%w: %d", ErrUnknownStake, stake)
	}

	q := m.queues[stake]
	if q == nil {
		q = &queue{}
		m.queues[stake] = q
	}
	// 同一玩家只能在一个档位排队
	if at, ok := m.queuedAt(identity); ok {
		n := len(q.entries)
		m.mutex.Unlock()
		return n, fmt.Errorf("%w: %s at stake %d", ErrAlreadyQueued, identity, at)
	}

	q.entries = append(q.entries, Entry{Identity: identity, Name: name, Joined: m.clock.Now()})
	m.disarm(q)

	if len(q.entries) < 2 {
		m.arm(stake, q)
		n := len(q.entries)
		m.recorder.QueueDepth(stake, n)
		m.mutex.Unlock()
		logger.Log.Infow("player queued", "player", identity, "stake", stake, "waiting", n)
		return n, nil
	}

	take := min(len(q.entries), m.seats)
	entries := slices.Clone(q.entries[:take])
	q.entries = slices.Delete(q.entries, 0, take)
	if len(q.entries) > 0 {
		m.arm(stake, q)
	}
	left := len(q.entries)
	m.recorder.QueueDepth(stake, left)
	m.mutex.Unlock()

	if err := m.fill(stake, entries, 0); err != nil {
		return m.QueueLen(stake), err
	}
	return left, nil
}

// queuedAt reports the tier identity waits in. Caller holds the lock.
func (m *Matchmaker) queuedAt(identity string) (int64, bool) {
	for stake, q := range m.queues {
		if q.index(identity) >= 0 {
			return stake, true
		}
	}
	return 0, false
}

// requeue puts the entries of a failed match back at the head of their tier.
// Players who queued again in the meantime keep their new place.
func (m *Matchmaker) requeue(stake int64, entries []Entry) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.closed {
		return
	}
	q := m.queues[stake]
	if q == nil {
		q = &queue{}
		m.queues[stake] = q
	}
	back := make([]Entry, 0, len(entries)+len(q.entries))
	for _, e := range entries {
		if _, ok := m.queuedAt(e.Identity); !ok {
			back = append(back, e)
		}
	}
	q.entries = append(back, q.entries...)
	if q.timerID == 0 && len(q.entries) > 0 {
		m.arm(stake, q)
	}
	m.recorder.QueueDepth(stake, len(q.entries))
	logger.Log.Warnw("players requeued", "stake", stake, "players", len(back), "waiting", len(q.entries))
}

// Cancel removes identity from every queue. It reports whether anything was
// removed.
func (m *Matchmaker) Cancel(identity string) bool {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	found := false
	for stake, q := range m.queues {
		i := q.index(identity)
		if i < 0 {
			continue
		}
		found = true
		q.entries = slices.Delete(q.entries, i, i+1)
		if len(q.entries) == 0 {
			m.disarm(q)
		}
		m.recorder.QueueDepth(stake, len(q.entries))
		logger.Log.Infow("search canceled", "player", identity, "stake", stake)
	}
	return found
}

func (m *Matchmaker) QueueLen(stake int64) int {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if q := m.queues[stake]; q != nil {
		return len(q.entries)
	}
	return 0
}

// Depths returns the number of waiting players per stake.
func (m *Matchmaker) Depths() map[int64]int {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	out := make(map[int64]int, len(m.queues))
	for stake, q := range m.queues {
		out[stake] = len(q.entries)
	}
	return out
}

// Shutdown drops every queue and cancels the bot-fill timers.
func (m *Matchmaker) Shutdown() {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.closed {
		return
	}
	m.closed = true
	m.timers.Stop()
	for stake := range m.queues {
		delete(m.queues, stake)
	}
	logger.Log.Info("matchmaker stopped")
}

// arm (re)starts the bot-fill timer of a tier. Caller holds the lock.
func (m *Matchmaker) arm(stake int64, q *queue) {
	var id int64
	id = m.timers.AddTimer(m.timeout, func() { m.expire(stake, &id) }, "matchmaker", "bot_fill")
	q.timerID = id
}

func (m *Matchmaker) disarm(q *queue) {
	if q.timerID != 0 {
		m.timers.RemoveTimer(q.timerID)
		q.timerID = 0
	}
}

// expire fills the waiting players of a tier up with bots. fired is read
// under the lock because arm stores it after the timer is created.
func (m *Matchmaker) expire(stake int64, fired *int64) {
	m.mutex.Lock()
	q := m.queues[stake]
	if m.closed || q == nil || q.timerID != *fired || len(q.entries) == 0 {
		m.mutex.Unlock()
		return
	}
	take := min(len(q.entries), m.seats)
	entries := slices.Clone(q.entries[:take])
	q.entries = slices.Delete(q.entries, 0, take)
	q.timerID = 0
	if len(q.entries) > 0 {
		m.arm(stake, q)
	}
	m.recorder.QueueDepth(stake, len(q.entries))
	m.mutex.Unlock()

	logger.Log.Infow("bot fill timeout", "stake", stake, "players", len(entries))
	if err := m.fill(stake, entries, m.seats-len(entries)); err != nil {
		logger.Log.Errorw("bot fill failed", "stake", stake, "error", err)
	}
}

// fill creates a room, seats the players with their ledger balances, adds
// bots and deals the first round. On failure the partial room is closed and
// the players go back to the head of the queue.
func (m *Matchmaker) fill(stake int64, entries []Entry, bots int) error {
	roomID, err := m.rooms.CreateRoom(stake)
	if err != nil {
		m.requeue(stake, entries)
		return fmt.Errorf("create room: %w", err)
	}
	if err := m.seat(roomID, entries, bots); err != nil {
		m.rooms.CloseRoom(roomID)
		m.requeue(stake, entries)
		return err
	}

	match := Match{RoomID: roomID, Stake: stake, Players: entries, Bots: bots}
	m.recorder.Matched(stake, len(entries), bots)
	logger.Log.Infow("room matched", "room_id", roomID, "stake", stake, "players", len(entries), "bots", bots)
	m.onMatch(match)

	if err := m.rooms.StartRound(roomID); err != nil {
		logger.Log.Warnw("matched room did not start", "room_id", roomID, "error", err)
	}
	return nil
}

func (m *Matchmaker) seat(roomID string, entries []Entry, bots int) error {
	for _, e := range entries {
		chips := m.defaultChips
		if m.balances != nil {
			if c, ok := m.balances.Balance(e.Identity); ok {
				chips = c
			}
		}
		if _, err := m.rooms.AddSeat(roomID, e.Identity, e.Name, chips, false); err != nil {
			return fmt.Errorf("seat %s in %s: %w", e.Identity, roomID, err)
		}
	}
	for i := 0; i < bots; i++ {
		if _, err := m.rooms.AddBot(roomID); err != nil {
			return fmt.Errorf("add bot to %s: %w", roomID, err)
		}
	}
	return nil
}
