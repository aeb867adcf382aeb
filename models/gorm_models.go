// models/gorm_models.go
package models

import (
	"time"

	"gorm.io/gorm"
)

// GormChipAccount 筹码账户表
type GormChipAccount struct {
	gorm.Model
	Identity string `gorm:"uniqueIndex;size:128;not null"`
	Name     string `gorm:"size:128"`
	Chips    int64  `gorm:"not null;default:0"`
}

func (GormChipAccount) TableName() string { return "chip_accounts" }

// GormRoundRecord 每轮结算表
type GormRoundRecord struct {
	ID          uint         `gorm:"primaryKey"`
	RoomID      string       `gorm:"index;size:64;not null"`
	Round       int          `gorm:"not null"`
	WinnerID    string       `gorm:"index;size:128"`
	Showdown    bool         `gorm:"not null;default:false"`
	Pot         int64        `gorm:"not null"`
	WinnerShare int64        `gorm:"not null"`
	CarryPot    int64        `gorm:"not null"`
	Seats       []SeatResult `gorm:"serializer:json;type:jsonb"`
	CreatedAt   time.Time
}

func (GormRoundRecord) TableName() string { return "round_records" }

// GormGameRecord 游戏结束表
type GormGameRecord struct {
	ID            uint         `gorm:"primaryKey"`
	RoomID        string       `gorm:"uniqueIndex;size:64;not null"`
	Rounds        int          `gorm:"not null"`
	WinnerID      string       `gorm:"index;size:128;not null"`
	WinnerName    string       `gorm:"size:128"`
	CarryPot      int64        `gorm:"not null"`
	TotalWinnings int64        `gorm:"not null"`
	Seats         []SeatResult `gorm:"serializer:json;type:jsonb"`
	CreatedAt     time.Time
}

func (GormGameRecord) TableName() string { return "game_records" }

func (r RoundRecord) Gorm() GormRoundRecord {
	return GormRoundRecord{
		RoomID:      r.RoomID,
		Round:       r.Round,
		WinnerID:    r.WinnerID,
		Showdown:    r.Showdown,
		Pot:         r.Pot,
		WinnerShare: r.WinnerShare,
		CarryPot:    r.CarryPot,
		Seats:       r.Seats,
		CreatedAt:   r.CreatedAt,
	}
}

func (g GormRoundRecord) Record() RoundRecord {
	return RoundRecord{
		RoomID:      g.RoomID,
		Round:       g.Round,
		WinnerID:    g.WinnerID,
		Showdown:    g.Showdown,
		Pot:         g.Pot,
		WinnerShare: g.WinnerShare,
		CarryPot:    g.CarryPot,
		Seats:       g.Seats,
		CreatedAt:   g.CreatedAt,
	}
}

func (r GameRecord) Gorm() GormGameRecord {
	return GormGameRecord{
		RoomID:        r.RoomID,
		Rounds:        r.Rounds,
		WinnerID:      r.WinnerID,
		WinnerName:    r.WinnerName,
		CarryPot:      r.CarryPot,
		TotalWinnings: r.TotalWinnings,
		Seats:         r.Seats,
		CreatedAt:     r.CreatedAt,
	}
}
