// models/models.go
package models

import (
	"time"
)

// ChipAccount 玩家筹码账户，保存的是绝对余额
type ChipAccount struct {
	Identity  string    `json:"identity"`
	Name      string    `json:"name"`
	Chips     int64     `json:"chips"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SeatResult 一个座位在一轮中的筹码变化
type SeatResult struct {
	Identity string `json:"identity"`
	Name     string `json:"name"`
	Bot      bool   `json:"bot"`
	Chips    int64  `json:"chips"`
	Delta    int64  `json:"delta"`
}

// RoundRecord 每轮结算记录
type RoundRecord struct {
	RoomID      string       `json:"room_id"`
	Round       int          `json:"round"`
	WinnerID    string       `json:"winner_id"`
	Showdown    bool         `json:"showdown"`
	Pot         int64        `json:"pot"`
	WinnerShare int64        `json:"winner_share"`
	CarryPot    int64        `json:"carry_pot"`
	Seats       []SeatResult `json:"seats"`
	CreatedAt   time.Time    `json:"created_at"`
}

// GameRecord 游戏结束记录（连胜达成）
type GameRecord struct {
	RoomID        string       `json:"room_id"`
	Rounds        int          `json:"rounds"`
	WinnerID      string       `json:"winner_id"`
	WinnerName    string       `json:"winner_name"`
	CarryPot      int64        `json:"carry_pot"`
	TotalWinnings int64        `json:"total_winnings"`
	Seats         []SeatResult `json:"seats"`
	CreatedAt     time.Time    `json:"created_at"`
}

// PlayerStats 玩家统计信息
type PlayerStats struct {
	Identity      string `json:"identity"`
	Chips         int64  `json:"chips"`
	RoundsPlayed  int    `json:"rounds_played"`
	RoundsWon     int    `json:"rounds_won"`
	GamesWon      int    `json:"games_won"`
	TotalWinnings int64  `json:"total_winnings"`
}
