package services

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wfunc/highcard/game"
	"github.com/wfunc/highcard/models"
	"github.com/wfunc/highcard/persistence"
)

// MockDatabase wraps the in-memory ledger and can be told to fail.
type MockDatabase struct {
	*persistence.Memory
	mu      sync.Mutex
	fail    error
	saves   int
	loadErr error
}

func (m *MockDatabase) SaveRound(accounts []models.ChipAccount, r models.RoundRecord) error {
	m.mu.Lock()
	m.saves++
	fail := m.fail
	m.mu.Unlock()
	if fail != nil {
		return fail
	}
	return m.Memory.SaveRound(accounts, r)
}

func (m *MockDatabase) LoadChips(identity string) (models.ChipAccount, error) {
	if m.loadErr != nil {
		return models.ChipAccount{}, m.loadErr
	}
	return m.Memory.LoadChips(identity)
}

func roundResult() game.RoundResult {
	return game.RoundResult{
		RoomID:      "r1",
		Round:       1,
		WinnerID:    "alice",
		Showdown:    true,
		Pot:         60,
		WinnerShare: 30,
		CarryPot:    30,
		Seats: []game.SeatDelta{
			{ID: "alice", Name: "Alice", Chips: 1000, Delta: 0},
			{ID: "bob", Name: "Bob", Chips: 970, Delta: -30},
			{ID: "bot_1", Name: "Bot_1", Bot: true, Chips: 990, Delta: -10},
		},
	}
}

func TestLedger_RoundOverStoresHumanBalances(t *testing.T) {
	db := persistence.NewMemory()
	ledger := NewLedgerService(db)
	ledger.Init()
	defer ledger.Shutdown()

	ledger.RoundOver("r1", roundResult())
	ledger.Flush()

	alice, err := db.LoadChips("alice")
	require.NoError(t, err)
	assert.Equal(t, int64(1000), alice.Chips)
	bob, err := db.LoadChips("bob")
	require.NoError(t, err)
	assert.Equal(t, int64(970), bob.Chips)

	_, err = db.LoadChips("bot_1")
	assert.ErrorIs(t, err, persistence.ErrRecordNotFound, "bots are never persisted")

	history, err := db.RoundHistory("r1")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "alice", history[0].WinnerID)
	assert.Len(t, history[0].Seats, 3)
	assert.True(t, history[0].Seats[2].Bot)
}

func TestLedger_GameOver(t *testing.T) {
	db := persistence.NewMemory()
	ledger := NewLedgerService(db)
	ledger.Init()
	defer ledger.Shutdown()

	ledger.GameOver("r1", game.GameResult{
		RoomID:        "r1",
		Round:         3,
		WinnerID:      "alice",
		WinnerName:    "Alice",
		WinnerShare:   30,
		CarryPot:      50,
		TotalWinnings: 80,
		Seats:         []game.SeatDelta{{ID: "alice", Name: "Alice", Chips: 1050}},
	})
	ledger.Flush()

	stats, err := db.PlayerStats("alice")
	require.NoError(t, err)
	assert.Equal(t, 1, stats.GamesWon)
	assert.Equal(t, int64(1050), stats.Chips)
	assert.Equal(t, int64(50), stats.TotalWinnings)
}

func TestLedger_WriteFailureDoesNotStopWorker(t *testing.T) {
	db := &MockDatabase{Memory: persistence.NewMemory(), fail: errors.New("connection reset")}
	ledger := NewLedgerService(db)
	ledger.Init()
	defer ledger.Shutdown()

	ledger.RoundOver("r1", roundResult())
	ledger.Flush()

	db.mu.Lock()
	db.fail = nil
	db.mu.Unlock()

	ledger.RoundOver("r1", roundResult())
	ledger.Flush()

	assert.Equal(t, 2, db.saves)
	history, _ := db.RoundHistory("r1")
	assert.Len(t, history, 1)
}

func TestLedger_DropsAfterShutdown(t *testing.T) {
	db := persistence.NewMemory()
	ledger := NewLedgerService(db)
	ledger.Init()
	ledger.RoundOver("r1", roundResult())
	ledger.Shutdown()

	// queued before shutdown: written
	history, _ := db.RoundHistory("r1")
	assert.Len(t, history, 1)

	ledger.RoundOver("r1", roundResult())
	ledger.Flush()
	history, _ = db.RoundHistory("r1")
	assert.Len(t, history, 1)

	ledger.Shutdown()
}

func TestPlayerService_Balance(t *testing.T) {
	db := &MockDatabase{Memory: persistence.NewMemory()}
	require.NoError(t, db.Memory.SaveRound(
		[]models.ChipAccount{{Identity: "alice", Chips: 640}},
		models.RoundRecord{RoomID: "r1"},
	))
	players := NewPlayerService(db)

	chips, ok := players.Balance("alice")
	assert.True(t, ok)
	assert.Equal(t, int64(640), chips)

	_, ok = players.Balance("stranger")
	assert.False(t, ok)

	db.loadErr = errors.New("timeout")
	_, ok = players.Balance("alice")
	assert.False(t, ok, "a failing ledger falls back to default chips")
}
