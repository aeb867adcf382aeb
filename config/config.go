package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/wfunc/highcard/game"
	"github.com/wfunc/highcard/persistence"
)

const EnvPrefix = "HIGHCARD"

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Game       GameConfig       `mapstructure:"game"`
	Matchmaker MatchmakerConfig `mapstructure:"matchmaker"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Log        LogConfig        `mapstructure:"log"`
}

type ServerConfig struct {
	HTTPAddress    string        `mapstructure:"http_address"`
	RPCAddress     string        `mapstructure:"rpc_address"`
	MetricsAddress string        `mapstructure:"metrics_address"`
	Heartbeat      time.Duration `mapstructure:"heartbeat"`
}

type GameConfig struct {
	RaiseAmount     int64         `mapstructure:"raise_amount"`
	TieDelay        time.Duration `mapstructure:"tie_delay"`
	NextRoundDelay  time.Duration `mapstructure:"next_round_delay"`
	WinStreakTarget int           `mapstructure:"win_streak_target"`
	MaxSeats        int           `mapstructure:"max_seats"`
	FinishedRoomTTL time.Duration `mapstructure:"finished_room_ttl"`
}

type MatchmakerConfig struct {
	BotFillTimeout time.Duration `mapstructure:"bot_fill_timeout"`
	BotChips       int64         `mapstructure:"bot_chips"`
	DefaultChips   int64         `mapstructure:"default_chips"`
	Stakes         []int64       `mapstructure:"stakes"`
}

type DatabaseConfig struct {
	Driver   string         `mapstructure:"driver"`
	Postgres PostgresConfig `mapstructure:"postgres"`
}

type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

// Table converts the game section into engine rules. The stake is set per
// room.
func (g GameConfig) Table() game.Config {
	cfg := game.DefaultConfig(0)
	cfg.RaiseAmount = g.RaiseAmount
	cfg.TieDelay = g.TieDelay
	cfg.NextRoundDelay = g.NextRoundDelay
	cfg.WinStreakTarget = g.WinStreakTarget
	cfg.MaxSeats = g.MaxSeats
	return cfg
}

func (p PostgresConfig) Options() persistence.Options {
	return persistence.Options{
		Host:     p.Host,
		Port:     p.Port,
		User:     p.User,
		Password: p.Password,
		DBName:   p.DBName,
		SSLMode:  p.SSLMode,
	}
}

// DefaultStake is the lowest configured stake.
func (m MatchmakerConfig) DefaultStake() int64 {
	if len(m.Stakes) == 0 {
		return 10
	}
	lowest := m.Stakes[0]
	for _, s := range m.Stakes[1:] {
		if s < lowest {
			lowest = s
		}
	}
	return lowest
}

func setDefaults(v *viper.Viper) {
	table := game.DefaultConfig(0)

	v.SetDefault("server.http_address", ":8080")
	v.SetDefault("server.rpc_address", ":9090")
	v.SetDefault("server.metrics_address", ":9100")
	v.SetDefault("server.heartbeat", 30*time.Second)

	v.SetDefault("game.raise_amount", table.RaiseAmount)
	v.SetDefault("game.tie_delay", table.TieDelay)
	v.SetDefault("game.next_round_delay", table.NextRoundDelay)
	v.SetDefault("game.win_streak_target", table.WinStreakTarget)
	v.SetDefault("game.max_seats", table.MaxSeats)
	v.SetDefault("game.finished_room_ttl", time.Minute)

	v.SetDefault("matchmaker.bot_fill_timeout", 30*time.Second)
	v.SetDefault("matchmaker.bot_chips", 1000)
	v.SetDefault("matchmaker.default_chips", 100)
	v.SetDefault("matchmaker.stakes", []int64{10, 100, 1000})

	v.SetDefault("database.driver", "gorm")
	v.SetDefault("database.postgres.host", "localhost")
	v.SetDefault("database.postgres.port", 5432)
	v.SetDefault("database.postgres.user", "postgres")
	v.SetDefault("database.postgres.password", "")
	v.SetDefault("database.postgres.dbname", "highcard")
	v.SetDefault("database.postgres.sslmode", "disable")

	v.SetDefault("log.level", "info")
}

// LoadConfig reads config.yaml from path. A missing file is not an error:
// defaults and HIGHCARD_* environment variables still apply.
func LoadConfig(path string) (config *Config, err error) {
	v := viper.New()
	setDefaults(v)

	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err = v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	err = v.Unmarshal(&config)
	return
}
