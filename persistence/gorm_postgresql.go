// persistence/gorm_postgresql.go
package persistence

import (
	"errors"
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/wfunc/highcard/models"
)

// GormPostgreSQL 使用GORM的PostgreSQL实现
type GormPostgreSQL struct {
	db *gorm.DB
}

// NewGormPostgreSQL 创建GORM PostgreSQL数据库连接
func NewGormPostgreSQL(opts Options) (*GormPostgreSQL, error) {
	// 配置GORM日志
	gormLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags), // io writer
		logger.Config{
			SlowThreshold: time.Second,   // 慢SQL阈值
			LogLevel:      logger.Silent, // 日志级别
			Colorful:      false,         // 禁用彩色打印
		},
	)

	db, err := gorm.Open(postgres.Open(opts.DSN()), &gorm.Config{
		Logger: gormLogger,
	})
	if err != nil {
		return nil, err
	}
	return newGorm(db)
}

func newGorm(db *gorm.DB) (*GormPostgreSQL, error) {
	// 获取通用数据库对象 sql.DB
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	// 设置连接池
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	// 自动迁移表结构
	if err := autoMigrate(db); err != nil {
		return nil, err
	}
	return &GormPostgreSQL{db: db}, nil
}

// autoMigrate 自动迁移表结构
func autoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.GormChipAccount{},
		&models.GormRoundRecord{},
		&models.GormGameRecord{},
	)
}

// LoadChips 加载玩家筹码
func (p *GormPostgreSQL) LoadChips(identity string) (models.ChipAccount, error) {
	var acc models.GormChipAccount
	if err := p.db.Where("identity = ?", identity).First(&acc).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.ChipAccount{}, ErrRecordNotFound
		}
		return models.ChipAccount{}, err
	}
	return models.ChipAccount{
		Identity:  acc.Identity,
		Name:      acc.Name,
		Chips:     acc.Chips,
		UpdatedAt: acc.UpdatedAt,
	}, nil
}

// upsertAccounts 使用 ON CONFLICT 覆盖余额
func upsertAccounts(tx *gorm.DB, accounts []models.ChipAccount) error {
	if len(accounts) == 0 {
		return nil
	}
	rows := make([]models.GormChipAccount, len(accounts))
	for i, a := range accounts {
		rows[i] = models.GormChipAccount{Identity: a.Identity, Name: a.Name, Chips: a.Chips}
	}
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "identity"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "chips", "updated_at"}),
	}).Create(&rows).Error
}

// SaveRound 保存一轮结算（事务）
func (p *GormPostgreSQL) SaveRound(accounts []models.ChipAccount, record models.RoundRecord) error {
	return p.db.Transaction(func(tx *gorm.DB) error {
		if err := upsertAccounts(tx, accounts); err != nil {
			return err
		}
		row := record.Gorm()
		return tx.Create(&row).Error
	})
}

// SaveGame 保存游戏结束记录（事务）
func (p *GormPostgreSQL) SaveGame(accounts []models.ChipAccount, record models.GameRecord) error {
	return p.db.Transaction(func(tx *gorm.DB) error {
		if err := upsertAccounts(tx, accounts); err != nil {
			return err
		}
		row := record.Gorm()
		return tx.Create(&row).Error
	})
}

func (p *GormPostgreSQL) RoundHistory(roomID string) ([]models.RoundRecord, error) {
	var rows []models.GormRoundRecord
	if err := p.db.Where("room_id = ?", roomID).Order("round asc, id asc").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]models.RoundRecord, len(rows))
	for i, r := range rows {
		out[i] = r.Record()
	}
	return out, nil
}

// PlayerStats 使用原生SQL统计
func (p *GormPostgreSQL) PlayerStats(identity string) (models.PlayerStats, error) {
	acc, err := p.LoadChips(identity)
	if err != nil {
		return models.PlayerStats{}, err
	}
	stats := models.PlayerStats{Identity: identity, Chips: acc.Chips}

	var rounds struct {
		Played   int
		Won      int
		Winnings int64
	}
	err = p.db.Raw(`
        SELECT
            COUNT(*) AS played,
            COALESCE(SUM(CASE WHEN winner_id = ? THEN 1 ELSE 0 END), 0) AS won,
            COALESCE(SUM(CASE WHEN winner_id = ? THEN winner_share ELSE 0 END), 0) AS winnings
        FROM round_records
        WHERE seats @> ?::jsonb`,
		identity, identity, seatFilter(identity),
	).Scan(&rounds).Error
	if err != nil {
		return stats, err
	}

	var games struct {
		Won      int
		Winnings int64
	}
	err = p.db.Model(&models.GormGameRecord{}).
		Select("COUNT(*) AS won, COALESCE(SUM(carry_pot), 0) AS winnings").
		Where("winner_id = ?", identity).
		Scan(&games).Error
	if err != nil {
		return stats, err
	}

	stats.RoundsPlayed = rounds.Played
	stats.RoundsWon = rounds.Won
	stats.GamesWon = games.Won
	stats.TotalWinnings = rounds.Winnings + games.Winnings
	return stats, nil
}

// Close 关闭数据库连接
func (p *GormPostgreSQL) Close() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
