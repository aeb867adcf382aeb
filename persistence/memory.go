package persistence

import (
	"slices"
	"sync"

	"github.com/wfunc/highcard/models"
)

// Memory 内存账本，用于本地运行和测试，进程退出即丢失
type Memory struct {
	mutex    sync.RWMutex
	accounts map[string]models.ChipAccount
	rounds   []models.RoundRecord
	games    []models.GameRecord
}

func NewMemory() *Memory {
	return &Memory{accounts: make(map[string]models.ChipAccount)}
}

func (m *Memory) LoadChips(identity string) (models.ChipAccount, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	acc, ok := m.accounts[identity]
	if !ok {
		return models.ChipAccount{}, ErrRecordNotFound
	}
	return acc, nil
}

func (m *Memory) SaveRound(accounts []models.ChipAccount, record models.RoundRecord) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.upsert(accounts)
	record.Seats = slices.Clone(record.Seats)
	m.rounds = append(m.rounds, record)
	return nil
}

func (m *Memory) SaveGame(accounts []models.ChipAccount, record models.GameRecord) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.upsert(accounts)
	record.Seats = slices.Clone(record.Seats)
	m.games = append(m.games, record)
	return nil
}

func (m *Memory) upsert(accounts []models.ChipAccount) {
	for _, a := range accounts {
		m.accounts[a.Identity] = a
	}
}

func (m *Memory) RoundHistory(roomID string) ([]models.RoundRecord, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	var out []models.RoundRecord
	for _, r := range m.rounds {
		if r.RoomID == roomID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *Memory) PlayerStats(identity string) (models.PlayerStats, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	acc, ok := m.accounts[identity]
	if !ok {
		return models.PlayerStats{}, ErrRecordNotFound
	}
	stats := models.PlayerStats{Identity: identity, Chips: acc.Chips}
	for _, r := range m.rounds {
		if !slices.ContainsFunc(r.Seats, func(s models.SeatResult) bool { return s.Identity == identity }) {
			continue
		}
		stats.RoundsPlayed++
		if r.WinnerID == identity {
			stats.RoundsWon++
			stats.TotalWinnings += r.WinnerShare
		}
	}
	for _, g := range m.games {
		if g.WinnerID == identity {
			stats.GamesWon++
			stats.TotalWinnings += g.CarryPot
		}
	}
	return stats, nil
}

func (m *Memory) Close() error { return nil }
