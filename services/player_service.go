// services/player_service.go
package services

import (
	"errors"

	"github.com/wfunc/highcard/logger"
	"github.com/wfunc/highcard/models"
	"github.com/wfunc/highcard/persistence"
)

// PlayerService 查询玩家余额和统计
type PlayerService struct {
	db persistence.Database
}

func NewPlayerService(db persistence.Database) *PlayerService {
	return &PlayerService{db: db}
}

// Balance implements matchmaker.BalanceSource. Unknown players and lookup
// failures both report ok=false so the caller falls back to default chips.
func (s *PlayerService) Balance(identity string) (int64, bool) {
	acc, err := s.db.LoadChips(identity)
	if err != nil {
		if !errors.Is(err, persistence.ErrRecordNotFound) {
			logger.Log.Warnw("load chips failed", "player", identity, "error", err)
		}
		return 0, false
	}
	return acc.Chips, true
}

// GetPlayerWithStats 获取玩家统计
func (s *PlayerService) GetPlayerWithStats(identity string) (models.PlayerStats, error) {
	return s.db.PlayerStats(identity)
}

func (s *PlayerService) RoundHistory(roomID string) ([]models.RoundRecord, error) {
	return s.db.RoundHistory(roomID)
}
