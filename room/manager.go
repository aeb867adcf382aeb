package room

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/coder/quartz"
	"github.com/google/uuid"

	"github.com/wfunc/highcard/card"
	"github.com/wfunc/highcard/game"
	"github.com/wfunc/highcard/logger"
	"github.com/wfunc/highcard/timer"
)

var (
	ErrRoomNotFound  = errors.New("room not found")
	ErrManagerClosed = errors.New("room manager is not running")
	ErrInvalidStake  = errors.New("stake must be positive")
)

const (
	defaultBotChips    = 1000
	defaultFinishedTTL = time.Minute
)

// Manager 管理所有房间。由宿主进程创建并注入到匹配器和传输层。
type Manager struct {
	mutex   sync.RWMutex
	rooms   map[string]*Room
	running bool

	clock    quartz.Clock
	timers   *timer.TimerManager
	table    game.Config
	sink     game.EventSink
	recorder Recorder
	newDeck  func() *card.Deck
	newID    func() string
	bot      game.Decider
	botChips int64

	// 结束的房间保留多久，期间仍可查询，动作被忽略
	finishedTTL time.Duration
}

type Option func(*Manager)

func WithClock(c quartz.Clock) Option {
	return func(m *Manager) { m.clock = c }
}

// WithSink receives the events of every room.
func WithSink(s game.EventSink) Option {
	return func(m *Manager) { m.sink = s }
}

// WithGameConfig sets the table rules; Stake is taken from CreateRoom.
func WithGameConfig(cfg game.Config) Option {
	return func(m *Manager) { m.table = cfg }
}

func WithDeckFactory(fn func() *card.Deck) Option {
	return func(m *Manager) { m.newDeck = fn }
}

func WithRecorder(r Recorder) Option {
	return func(m *Manager) { m.recorder = r }
}

func WithIDGenerator(fn func() string) Option {
	return func(m *Manager) { m.newID = fn }
}

func WithBotDecider(d game.Decider) Option {
	return func(m *Manager) { m.bot = d }
}

func WithBotChips(chips int64) Option {
	return func(m *Manager) { m.botChips = chips }
}

// WithFinishedRoomTTL sets how long a finished room stays in the registry
// before it is closed.
func WithFinishedRoomTTL(d time.Duration) Option {
	return func(m *Manager) { m.finishedTTL = d }
}

// NewManager 创建一个新的房间管理器，调用 Init 之后才接受请求
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		rooms:    make(map[string]*Room),
		clock:    quartz.NewReal(),
		table:    game.DefaultConfig(0),
		sink:     game.NopSink{},
		recorder: nopRecorder{},
		newID:    uuid.NewString,
		bot:      game.DefaultBot,
		botChips: defaultBotChips,

		finishedTTL: defaultFinishedTTL,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) Init() {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.running {
		return
	}
	m.timers = timer.NewTimerManager(m.clock)
	m.running = true
	logger.Log.Infow("room manager started", "raise_amount", m.table.RaiseAmount, "max_seats", m.table.MaxSeats)
}

// Shutdown closes every room and cancels their timers. It waits for the room
// goroutines to exit.
func (m *Manager) Shutdown() {
	m.mutex.Lock()
	if !m.running {
		m.mutex.Unlock()
		return
	}
	m.running = false
	rooms := make([]*Room, 0, len(m.rooms))
	for id, r := range m.rooms {
		rooms = append(rooms, r)
		delete(m.rooms, id)
	}
	timers := m.timers
	m.mutex.Unlock()

	for _, r := range rooms {
		r.Close()
		<-r.Done()
		m.recorder.RoomClosed(r.Stake)
	}
	timers.Stop()
	logger.Log.Infof("room manager stopped, %d rooms closed", len(rooms))
}

// CreateRoom 创建一个新房间并添加到管理器
func (m *Manager) CreateRoom(stake int64) (string, error) {
	if stake <= 0 {
		return "", fmt.Errorf("%w: %d", ErrInvalidStake, stake)
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()

	if !m.running {
		return "", ErrManagerClosed
	}
	id := m.newID()
	cfg := m.table
	cfg.Stake = stake

	opts := []game.Option{
		game.WithSink(roomSink{m: m, next: m.sink}),
		game.WithBotDecider(m.bot),
	}
	if m.newDeck != nil {
		opts = append(opts, game.WithDeckSource(m.newDeck))
	}
	m.rooms[id] = newRoom(id, cfg, m.timers, opts...)
	m.recorder.RoomOpened(stake)

	logger.Log.Infow("room created", "room_id", id, "stake", stake)
	return id, nil
}

// GetRoom 从管理器中获取一个房间
func (m *Manager) GetRoom(id string) (*Room, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	if !m.running {
		return nil, ErrManagerClosed
	}
	r, ok := m.rooms[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRoomNotFound, id)
	}
	return r, nil
}

// RoomIDs lists the rooms currently open.
func (m *Manager) RoomIDs() []string {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	ids := make([]string, 0, len(m.rooms))
	for id := range m.rooms {
		ids = append(ids, id)
	}
	return ids
}

func (m *Manager) Len() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.rooms)
}

func (m *Manager) AddSeat(roomID, identity, name string, chips int64, isBot bool) (game.SeatRef, error) {
	r, err := m.GetRoom(roomID)
	if err != nil {
		return game.NoSeat, err
	}
	kind := game.Human
	if isBot {
		kind = game.Bot
	}

	ref := game.NoSeat
	var seatErr error
	if err := r.do(func() {
		ref, seatErr = r.engine.AddSeat(identity, name, chips, kind)
	}); err != nil {
		return game.NoSeat, err
	}
	return ref, seatErr
}

// AddBot seats a bot with the configured bot chips.
func (m *Manager) AddBot(roomID string) (game.SeatRef, error) {
	tag := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return m.AddSeat(roomID, "bot_"+tag, "Bot_"+tag, m.botChips, true)
}

// RemoveSeat takes identity off the roster, or disconnects it if a round is
// running.
func (m *Manager) RemoveSeat(roomID, identity string) error {
	r, err := m.GetRoom(roomID)
	if err != nil {
		return err
	}
	var leaveErr error
	if err := r.do(func() {
		leaveErr = r.engine.Leave(identity)
	}); err != nil {
		return err
	}
	return leaveErr
}

// StartRound deals the next round now. It reports why when the room cannot
// start: not idle, finished or short of seats.
func (m *Manager) StartRound(roomID string) error {
	r, err := m.GetRoom(roomID)
	if err != nil {
		return err
	}
	var startErr error
	if err := r.do(func() {
		if r.engine.StartRound() {
			return
		}
		switch r.engine.Phase() {
		case game.PhaseFinished:
			startErr = game.ErrGameFinished
		case game.PhaseIdle:
			startErr = game.ErrNotEnoughSeats
		default:
			startErr = game.ErrRoundInProgress
		}
	}); err != nil {
		return err
	}
	return startErr
}

// SubmitAction applies a player intent. Stale or illegal intents are reported
// as Ignored, never as an error; errors mean the room itself is unavailable.
func (m *Manager) SubmitAction(roomID, identity string, a game.Action) (game.Outcome, error) {
	r, err := m.GetRoom(roomID)
	if err != nil {
		return game.Ignored, err
	}

	start := m.clock.Now()
	out := game.Ignored
	if err := r.do(func() {
		var actErr error
		out, actErr = r.engine.Act(identity, a)
		if actErr != nil {
			logger.Log.Debugw("action ignored", "room_id", roomID, "seat", identity, "action", a, "reason", actErr)
		}
	}); err != nil {
		return game.Ignored, err
	}
	m.recorder.ActionHandled(a, out, m.clock.Since(start))
	return out, nil
}

func (m *Manager) Snapshot(roomID string) (game.Snapshot, error) {
	r, err := m.GetRoom(roomID)
	if err != nil {
		return game.Snapshot{}, err
	}
	var snap game.Snapshot
	if err := r.do(func() {
		snap = r.engine.Snapshot()
	}); err != nil {
		return game.Snapshot{}, err
	}
	return snap, nil
}

// CloseRoom 从管理器中移除并关闭一个房间，等待房间循环退出
func (m *Manager) CloseRoom(roomID string) {
	if r := m.detach(roomID); r != nil {
		r.Close()
		<-r.Done()
	}
}

func (m *Manager) detach(roomID string) *Room {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	r, ok := m.rooms[roomID]
	if !ok {
		return nil
	}
	delete(m.rooms, roomID)
	m.recorder.RoomClosed(r.Stake)
	logger.Log.Infow("room closed", "room_id", roomID)
	return r
}

// retireLater closes a finished room after finishedTTL. Until then the room
// answers snapshots and ignores intents.
func (m *Manager) retireLater(roomID string) {
	m.mutex.RLock()
	timers, ttl := m.timers, m.finishedTTL
	m.mutex.RUnlock()

	timers.AddTimer(ttl, func() { m.CloseRoom(roomID) }, "room", "retire")
	logger.Log.Infow("room finished", "room_id", roomID, "retire_in", ttl)
}

// roomSink forwards a room's events and schedules the room's retirement once
// its game is over. It runs on the room goroutine, so it must not wait for
// that room.
type roomSink struct {
	m    *Manager
	next game.EventSink
}

func (s roomSink) StateChanged(id string, snap game.Snapshot) { s.next.StateChanged(id, snap) }
func (s roomSink) RoundTie(id string, snap game.Snapshot)     { s.next.RoundTie(id, snap) }
func (s roomSink) RoundOver(id string, r game.RoundResult)    { s.next.RoundOver(id, r) }

func (s roomSink) GameOver(id string, r game.GameResult) {
	s.next.GameOver(id, r)
	s.m.retireLater(id)
}
