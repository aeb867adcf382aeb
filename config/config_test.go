package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.HTTPAddress)
	assert.Equal(t, ":9090", cfg.Server.RPCAddress)
	assert.Equal(t, ":9100", cfg.Server.MetricsAddress)
	assert.Equal(t, int64(20), cfg.Game.RaiseAmount)
	assert.Equal(t, 3*time.Second, cfg.Game.TieDelay)
	assert.Equal(t, 4*time.Second, cfg.Game.NextRoundDelay)
	assert.Equal(t, 3, cfg.Game.WinStreakTarget)
	assert.Equal(t, 4, cfg.Game.MaxSeats)
	assert.Equal(t, time.Minute, cfg.Game.FinishedRoomTTL)
	assert.Equal(t, 30*time.Second, cfg.Matchmaker.BotFillTimeout)
	assert.Equal(t, int64(1000), cfg.Matchmaker.BotChips)
	assert.Equal(t, int64(100), cfg.Matchmaker.DefaultChips)
	assert.Equal(t, []int64{10, 100, 1000}, cfg.Matchmaker.Stakes)
	assert.Equal(t, "gorm", cfg.Database.Driver)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadConfig_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	yaml := `
server:
  http_address: ":8081"
game:
  raise_amount: 50
  tie_delay: 1s
matchmaker:
  stakes: [25, 5]
database:
  driver: pq
  postgres:
    host: db
    dbname: cards
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))
	t.Setenv("HIGHCARD_SERVER_RPC_ADDRESS", ":7000")
	t.Setenv("HIGHCARD_LOG_LEVEL", "debug")

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, ":8081", cfg.Server.HTTPAddress)
	assert.Equal(t, ":7000", cfg.Server.RPCAddress)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, int64(50), cfg.Game.RaiseAmount)
	assert.Equal(t, time.Second, cfg.Game.TieDelay)
	assert.Equal(t, int64(5), cfg.Matchmaker.DefaultStake())

	opts := cfg.Database.Postgres.Options()
	assert.Equal(t, "db", opts.Host)
	assert.Equal(t, 5432, opts.Port)
	assert.Equal(t, "cards", opts.DBName)
	assert.Equal(t, "pq", cfg.Database.Driver)

	table := cfg.Game.Table()
	assert.Equal(t, int64(50), table.RaiseAmount)
	assert.Equal(t, time.Second, table.TieDelay)
	assert.Equal(t, 4*time.Second, table.NextRoundDelay)
}

func TestLoadConfig_BadFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("server: [unclosed"), 0o644))

	_, err := LoadConfig(dir)
	assert.Error(t, err)
}
