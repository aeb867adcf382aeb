// persistence/postgresql.go
package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	// PostgreSQL 驱动
	_ "github.com/lib/pq" // PostgreSQL 驱动

	"github.com/wfunc/highcard/models"
)

const queryTimeout = 5 * time.Second

// PostgreSQL 数据库实现
type PostgreSQL struct {
	db *sql.DB
}

// NewPostgreSQL 创建 PostgreSQL 数据库连接
func NewPostgreSQL(opts Options) (*PostgreSQL, error) {
	db, err := sql.Open("postgres", opts.DSN())
	if err != nil {
		return nil, err
	}

	// 测试连接
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}

	// 设置连接池参数
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	// 初始化表结构
	if err := initTables(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return &PostgreSQL{db: db}, nil
}

// initTables 初始化数据库表结构，和 gorm 迁移出的表兼容
func initTables(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS chip_accounts (
            id BIGSERIAL PRIMARY KEY,
            identity VARCHAR(128) UNIQUE NOT NULL,
            name VARCHAR(128),
            chips BIGINT NOT NULL DEFAULT 0,
            created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP,
            updated_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP,
            deleted_at TIMESTAMPTZ
        )`,
		`CREATE TABLE IF NOT EXISTS round_records (
            id BIGSERIAL PRIMARY KEY,
            room_id VARCHAR(64) NOT NULL,
            round INTEGER NOT NULL,
            winner_id VARCHAR(128),
            showdown BOOLEAN NOT NULL DEFAULT FALSE,
            pot BIGINT NOT NULL,
            winner_share BIGINT NOT NULL,
            carry_pot BIGINT NOT NULL,
            seats JSONB,
            created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
        )`,
		`CREATE TABLE IF NOT EXISTS game_records (
            id BIGSERIAL PRIMARY KEY,
            room_id VARCHAR(64) UNIQUE NOT NULL,
            rounds INTEGER NOT NULL,
            winner_id VARCHAR(128) NOT NULL,
            winner_name VARCHAR(128),
            carry_pot BIGINT NOT NULL,
            total_winnings BIGINT NOT NULL,
            seats JSONB,
            created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
        )`,
		// 创建索引以提高查询性能
		`CREATE INDEX IF NOT EXISTS idx_round_records_room_id ON round_records(room_id)`,
		`CREATE INDEX IF NOT EXISTS idx_round_records_winner_id ON round_records(winner_id)`,
		`CREATE INDEX IF NOT EXISTS idx_game_records_winner_id ON game_records(winner_id)`,
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// LoadChips 加载玩家筹码
func (p *PostgreSQL) LoadChips(identity string) (models.ChipAccount, error) {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	acc := models.ChipAccount{Identity: identity}
	var name sql.NullString
	query := `SELECT name, chips, updated_at FROM chip_accounts WHERE identity = $1 AND deleted_at IS NULL`
	err := p.db.QueryRowContext(ctx, query, identity).Scan(&name, &acc.Chips, &acc.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.ChipAccount{}, ErrRecordNotFound
		}
		return models.ChipAccount{}, err
	}
	acc.Name = name.String
	return acc, nil
}

func (p *PostgreSQL) withTx(fn func(ctx context.Context, tx *sql.Tx) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(ctx, tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

func upsertChips(ctx context.Context, tx *sql.Tx, accounts []models.ChipAccount) error {
	// 使用 UPSERT 操作 (PostgreSQL 9.5+)
	query := `
        INSERT INTO chip_accounts (identity, name, chips)
        VALUES ($1, $2, $3)
        ON CONFLICT (identity)
        DO UPDATE SET name = $2, chips = $3, updated_at = CURRENT_TIMESTAMP
    `
	for _, a := range accounts {
		if _, err := tx.ExecContext(ctx, query, a.Identity, a.Name, a.Chips); err != nil {
			return err
		}
	}
	return nil
}

// SaveRound 保存一轮结算
func (p *PostgreSQL) SaveRound(accounts []models.ChipAccount, record models.RoundRecord) error {
	seats, err := json.Marshal(record.Seats)
	if err != nil {
		return err
	}
	return p.withTx(func(ctx context.Context, tx *sql.Tx) error {
		if err := upsertChips(ctx, tx, accounts); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `
            INSERT INTO round_records (room_id, round, winner_id, showdown, pot, winner_share, carry_pot, seats)
            VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			record.RoomID, record.Round, record.WinnerID, record.Showdown,
			record.Pot, record.WinnerShare, record.CarryPot, seats)
		return err
	})
}

// SaveGame 保存游戏结束记录
func (p *PostgreSQL) SaveGame(accounts []models.ChipAccount, record models.GameRecord) error {
	seats, err := json.Marshal(record.Seats)
	if err != nil {
		return err
	}
	return p.withTx(func(ctx context.Context, tx *sql.Tx) error {
		if err := upsertChips(ctx, tx, accounts); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `
            INSERT INTO game_records (room_id, rounds, winner_id, winner_name, carry_pot, total_winnings, seats)
            VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			record.RoomID, record.Rounds, record.WinnerID, record.WinnerName,
			record.CarryPot, record.TotalWinnings, seats)
		return err
	})
}

func (p *PostgreSQL) RoundHistory(roomID string) ([]models.RoundRecord, error) {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	rows, err := p.db.QueryContext(ctx, `
        SELECT round, COALESCE(winner_id, ''), showdown, pot, winner_share, carry_pot, seats, created_at
        FROM round_records WHERE room_id = $1 ORDER BY round, id`, roomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.RoundRecord
	for rows.Next() {
		r := models.RoundRecord{RoomID: roomID}
		var seats []byte
		if err := rows.Scan(&r.Round, &r.WinnerID, &r.Showdown, &r.Pot, &r.WinnerShare, &r.CarryPot, &seats, &r.CreatedAt); err != nil {
			return nil, err
		}
		if len(seats) > 0 {
			if err := json.Unmarshal(seats, &r.Seats); err != nil {
				return nil, err
			}
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (p *PostgreSQL) PlayerStats(identity string) (models.PlayerStats, error) {
	acc, err := p.LoadChips(identity)
	if err != nil {
		return models.PlayerStats{}, err
	}
	stats := models.PlayerStats{Identity: identity, Chips: acc.Chips}

	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	var roundWinnings, gameWinnings int64
	err = p.db.QueryRowContext(ctx, `
        SELECT
            COUNT(*),
            COALESCE(SUM(CASE WHEN winner_id = $1 THEN 1 ELSE 0 END), 0),
            COALESCE(SUM(CASE WHEN winner_id = $1 THEN winner_share ELSE 0 END), 0)
        FROM round_records
        WHERE seats @> $2::jsonb`, identity, seatFilter(identity)).
		Scan(&stats.RoundsPlayed, &stats.RoundsWon, &roundWinnings)
	if err != nil {
		return stats, err
	}

	err = p.db.QueryRowContext(ctx, `
        SELECT COUNT(*), COALESCE(SUM(carry_pot), 0)
        FROM game_records WHERE winner_id = $1`, identity).
		Scan(&stats.GamesWon, &gameWinnings)
	if err != nil {
		return stats, err
	}
	stats.TotalWinnings = roundWinnings + gameWinnings
	return stats, nil
}

// Close 关闭数据库连接
func (p *PostgreSQL) Close() error {
	return p.db.Close()
}

// seatFilter builds the jsonb containment filter matching a seat by identity.
func seatFilter(identity string) string {
	b, _ := json.Marshal([]map[string]string{{"identity": identity}})
	return string(b)
}
