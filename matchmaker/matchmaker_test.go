package matchmaker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wfunc/highcard/game"
)

type seated struct {
	identity string
	chips    int64
	bot      bool
}

// fakeRooms is a test double for RoomCreator.
type fakeRooms struct {
	mu        sync.Mutex
	rooms     map[string][]seated
	stakes    map[string]int64
	started   []string
	closed    []string
	createErr error
	botErr    error
}

func newFakeRooms() *fakeRooms {
	return &fakeRooms{rooms: map[string][]seated{}, stakes: map[string]int64{}}
}

func (f *fakeRooms) CreateRoom(stake int64) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return "", f.createErr
	}
	id := fmt.Sprintf("room-%d", len(f.rooms)+1)
	f.rooms[id] = nil
	f.stakes[id] = stake
	return id, nil
}

func (f *fakeRooms) AddSeat(roomID, identity, _ string, chips int64, isBot bool) (game.SeatRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rooms[roomID] = append(f.rooms[roomID], seated{identity, chips, isBot})
	return game.SeatRef(len(f.rooms[roomID]) - 1), nil
}

func (f *fakeRooms) AddBot(roomID string) (game.SeatRef, error) {
	f.mu.Lock()
	n := len(f.rooms[roomID])
	err := f.botErr
	f.mu.Unlock()
	if err != nil {
		return game.NoSeat, err
	}
	return f.AddSeat(roomID, fmt.Sprintf("bot_%d", n), "Bot", 1000, true)
}

func (f *fakeRooms) StartRound(roomID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started = append(f.started, roomID)
	return nil
}

func (f *fakeRooms) CloseRoom(roomID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.rooms, roomID)
	f.closed = append(f.closed, roomID)
}

func (f *fakeRooms) fail(create, bot error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createErr, f.botErr = create, bot
}

func (f *fakeRooms) seats(roomID string) []seated {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]seated(nil), f.rooms[roomID]...)
}

func (f *fakeRooms) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rooms)
}

type fakeBalances map[string]int64

func (b fakeBalances) Balance(identity string) (int64, bool) {
	c, ok := b[identity]
	return c, ok
}

type harness struct {
	mm      *Matchmaker
	rooms   *fakeRooms
	clock   *quartz.Mock
	ctx     context.Context
	mu      sync.Mutex
	matches []Match
}

func newHarness(t *testing.T, opts ...Option) *harness {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)

	h := &harness{rooms: newFakeRooms(), clock: quartz.NewMock(t), ctx: ctx}
	opts = append([]Option{
		WithClock(h.clock),
		OnMatch(func(m Match) {
			h.mu.Lock()
			defer h.mu.Unlock()
			h.matches = append(h.matches, m)
		}),
	}, opts...)
	h.mm = New(h.rooms, fakeBalances{"alice": 500}, opts...)
	t.Cleanup(h.mm.Shutdown)
	return h
}

func (h *harness) Matches() []Match {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Match(nil), h.matches...)
}

func TestEnqueue_DuplicateRejected(t *testing.T) {
	h := newHarness(t)

	n, err := h.mm.Enqueue(10, "alice", "Alice")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = h.mm.Enqueue(10, "alice", "Alice")
	assert.ErrorIs(t, err, ErrAlreadyQueued)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, h.mm.QueueLen(10))
	assert.Equal(t, 0, h.rooms.count())
}

func TestEnqueue_SecondPlayerMatchesAtOnce(t *testing.T) {
	h := newHarness(t)

	_, err := h.mm.Enqueue(10, "alice", "Alice")
	require.NoError(t, err)
	n, err := h.mm.Enqueue(10, "bob", "Bob")
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	require.Equal(t, 1, h.rooms.count())
	seats := h.rooms.seats("room-1")
	assert.Equal(t, []seated{{"alice", 500, false}, {"bob", DefaultChips, false}}, seats)
	assert.Equal(t, []string{"room-1"}, h.rooms.started)
	assert.Equal(t, 0, h.mm.QueueLen(10))

	matches := h.Matches()
	require.Len(t, matches, 1)
	assert.Equal(t, "room-1", matches[0].RoomID)
	assert.Equal(t, int64(10), matches[0].Stake)
	assert.Equal(t, 0, matches[0].Bots)
	assert.Len(t, matches[0].Players, 2)

	_, pending := h.clock.Peek()
	assert.False(t, pending, "a matched queue has no bot-fill timer")
}

func TestEnqueue_TiersAreSeparate(t *testing.T) {
	h := newHarness(t, WithStakes(10, 100, 1000))

	_, err := h.mm.Enqueue(10, "alice", "Alice")
	require.NoError(t, err)
	_, err = h.mm.Enqueue(100, "bob", "Bob")
	require.NoError(t, err)
	assert.Equal(t, 0, h.rooms.count())
	assert.Equal(t, map[int64]int{10: 1, 100: 1}, h.mm.Depths())

	_, err = h.mm.Enqueue(50, "carol", "Carol")
	assert.ErrorIs(t, err, ErrUnknownStake)
}

func TestBotFillAfterTimeout(t *testing.T) {
	h := newHarness(t)

	_, err := h.mm.Enqueue(100, "alice", "Alice")
	require.NoError(t, err)

	h.clock.Advance(29 * time.Second).MustWait(h.ctx)
	assert.Equal(t, 0, h.rooms.count())

	h.clock.Advance(time.Second).MustWait(h.ctx)
	require.Equal(t, 1, h.rooms.count())
	seats := h.rooms.seats("room-1")
	require.Len(t, seats, DefaultSeats)
	assert.Equal(t, seated{"alice", 500, false}, seats[0])
	for _, s := range seats[1:] {
		assert.True(t, s.bot)
		assert.True(t, strings.HasPrefix(s.identity, "bot_"))
	}
	assert.Equal(t, 0, h.mm.QueueLen(100))

	matches := h.Matches()
	require.Len(t, matches, 1)
	assert.Equal(t, 3, matches[0].Bots)
}

func TestCancelStopsTimer(t *testing.T) {
	h := newHarness(t)

	_, err := h.mm.Enqueue(10, "alice", "Alice")
	require.NoError(t, err)
	h.clock.Advance(20 * time.Second).MustWait(h.ctx)

	assert.True(t, h.mm.Cancel("alice"))
	assert.False(t, h.mm.Cancel("alice"))
	_, pending := h.clock.Peek()
	assert.False(t, pending)

	// a fresh search waits the full timeout again
	_, err = h.mm.Enqueue(10, "alice", "Alice")
	require.NoError(t, err)
	d, ok := h.clock.Peek()
	require.True(t, ok)
	assert.Equal(t, DefaultBotFillTimeout, d)
}

func TestCustomTimeoutAndSeats(t *testing.T) {
	h := newHarness(t, WithBotFillTimeout(5*time.Second), WithSeats(3), WithDefaultChips(250))

	_, err := h.mm.Enqueue(10, "dave", "Dave")
	require.NoError(t, err)

	d, w := h.clock.AdvanceNext()
	w.MustWait(h.ctx)
	assert.Equal(t, 5*time.Second, d)

	seats := h.rooms.seats("room-1")
	require.Len(t, seats, 3)
	assert.Equal(t, seated{"dave", 250, false}, seats[0])
}

func TestCreateRoomFailureRequeues(t *testing.T) {
	h := newHarness(t)
	h.rooms.fail(errors.New("registry closed"), nil)

	_, err := h.mm.Enqueue(10, "alice", "Alice")
	require.NoError(t, err)
	n, err := h.mm.Enqueue(10, "bob", "Bob")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "registry closed")
	assert.Equal(t, 2, n)
	assert.Equal(t, 2, h.mm.QueueLen(10))
	assert.Empty(t, h.Matches())

	// the requeued players are matched by the bot-fill timer once rooms work again
	h.rooms.fail(nil, nil)
	_, w := h.clock.AdvanceNext()
	w.MustWait(h.ctx)

	seats := h.rooms.seats("room-1")
	require.Len(t, seats, DefaultSeats)
	assert.Equal(t, "alice", seats[0].identity)
	assert.Equal(t, "bob", seats[1].identity)
	assert.Equal(t, 0, h.mm.QueueLen(10))
}

func TestSeatingFailureClosesRoom(t *testing.T) {
	h := newHarness(t)
	h.rooms.fail(nil, errors.New("room full"))

	_, err := h.mm.Enqueue(10, "alice", "Alice")
	require.NoError(t, err)

	// alice is seated, then the first bot fails
	_, w := h.clock.AdvanceNext()
	w.MustWait(h.ctx)

	assert.Equal(t, []string{"room-1"}, h.rooms.closed)
	assert.Equal(t, 0, h.rooms.count())
	assert.Empty(t, h.Matches())
	assert.Equal(t, 1, h.mm.QueueLen(10), "alice waits at the head of the queue again")
	_, pending := h.clock.Peek()
	assert.True(t, pending)
}

func TestEnqueue_OneTierPerPlayer(t *testing.T) {
	h := newHarness(t)

	_, err := h.mm.Enqueue(10, "alice", "Alice")
	require.NoError(t, err)

	n, err := h.mm.Enqueue(100, "alice", "Alice")
	assert.ErrorIs(t, err, ErrAlreadyQueued)
	assert.Contains(t, err.Error(), "stake 10")
	assert.Equal(t, 0, n)
	assert.Equal(t, 0, h.mm.QueueLen(100))

	_, err = h.mm.Enqueue(100, "bob", "Bob")
	require.NoError(t, err)
	assert.Equal(t, 0, h.rooms.count(), "alice is never matched from a second tier")

	require.True(t, h.mm.Cancel("alice"))
	n, err = h.mm.Enqueue(100, "alice", "Alice")
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Equal(t, 1, h.rooms.count())
}

func TestShutdown(t *testing.T) {
	h := newHarness(t)

	_, err := h.mm.Enqueue(10, "alice", "Alice")
	require.NoError(t, err)
	h.mm.Shutdown()

	_, pending := h.clock.Peek()
	assert.False(t, pending)
	_, err = h.mm.Enqueue(10, "bob", "Bob")
	assert.ErrorIs(t, err, ErrClosed)
	assert.Equal(t, 0, h.mm.QueueLen(10))
}
