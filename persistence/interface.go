// persistence/interface.go
package persistence

import (
	"errors"
	"fmt"

	"github.com/wfunc/highcard/models"
)

// Database 筹码账本接口。SaveRound/SaveGame 在一个事务里写入余额和记录。
type Database interface {
	LoadChips(identity string) (models.ChipAccount, error)
	SaveRound(accounts []models.ChipAccount, record models.RoundRecord) error
	SaveGame(accounts []models.ChipAccount, record models.GameRecord) error
	RoundHistory(roomID string) ([]models.RoundRecord, error)
	PlayerStats(identity string) (models.PlayerStats, error)
	Close() error
}

// 错误定义
var (
	ErrRecordNotFound = errors.New("record not found")
	ErrUnknownDriver  = errors.New("unknown database driver")
)

// Options 数据库连接参数
type Options struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

func (o Options) DSN() string {
	ssl := o.SSLMode
	if ssl == "" {
		ssl = "disable"
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		o.Host, o.Port, o.User, o.Password, o.DBName, ssl)
}

// Open 按驱动名打开账本：gorm、pq 或 memory
func Open(driver string, opts Options) (Database, error) {
	switch driver {
	case "gorm":
		return NewGormPostgreSQL(opts)
	case "pq", "postgres":
		return NewPostgreSQL(opts)
	case "memory", "":
		return NewMemory(), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
}
