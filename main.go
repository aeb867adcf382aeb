package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/wfunc/highcard/broadcast"
	"github.com/wfunc/highcard/config"
	"github.com/wfunc/highcard/game"
	"github.com/wfunc/highcard/logger"
	"github.com/wfunc/highcard/matchmaker"
	"github.com/wfunc/highcard/monitor"
	"github.com/wfunc/highcard/persistence"
	"github.com/wfunc/highcard/room"
	highcardrpc "github.com/wfunc/highcard/rpc"
	"github.com/wfunc/highcard/server"
	"github.com/wfunc/highcard/services"
	"github.com/wfunc/highcard/session"
)

type CLI struct {
	ConfigDir string   `help:"Directory containing config.yaml." default:"." type:"path"`
	EnvFile   []string `help:"Dotenv files loaded before the config; missing files are skipped." default:".env"`
	LogLevel  string   `help:"Overrides log.level (debug, info, warn, error)."`
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("highcard"),
		kong.Description("Multiplayer high-card betting server."),
		kong.UsageOnError(),
	)
	ctx.FatalIfErrorf(run(cli))
}

func loadEnv(files []string) error {
	for _, f := range files {
		if _, err := os.Stat(f); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

func run(cli CLI) error {
	if err := loadEnv(cli.EnvFile); err != nil {
		return err
	}

	// Load configuration
	cfg, err := config.LoadConfig(cli.ConfigDir)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	level := cfg.Log.Level
	if cli.LogLevel != "" {
		level = cli.LogLevel
	}
	logger.Init(level)
	defer logger.Sync()

	// Initialize Database
	db, err := persistence.Open(cfg.Database.Driver, cfg.Database.Postgres.Options())
	if err != nil {
		return fmt.Errorf("open %s ledger: %w", cfg.Database.Driver, err)
	}
	defer db.Close()
	logger.Log.Infow("ledger ready", "driver", cfg.Database.Driver)

	mon := monitor.NewMonitor("highcard")
	sessions := session.NewManager()
	players := services.NewPlayerService(db)

	ledger := services.NewLedgerService(db)
	ledger.Init()
	defer ledger.Shutdown()

	rooms := room.NewManager(
		room.WithGameConfig(cfg.Game.Table()),
		room.WithBotChips(cfg.Matchmaker.BotChips),
		room.WithFinishedRoomTTL(cfg.Game.FinishedRoomTTL),
		room.WithRecorder(mon),
		room.WithSink(game.MultiSink{broadcast.NewRoomBroadcaster(sessions), ledger, mon}),
	)
	rooms.Init()
	defer rooms.Shutdown()

	mm := matchmaker.New(rooms, players,
		matchmaker.WithBotFillTimeout(cfg.Matchmaker.BotFillTimeout),
		matchmaker.WithDefaultChips(cfg.Matchmaker.DefaultChips),
		matchmaker.WithSeats(cfg.Game.MaxSeats),
		matchmaker.WithStakes(cfg.Matchmaker.Stakes...),
		matchmaker.WithRecorder(mon),
		matchmaker.OnMatch(server.MatchNotifier(sessions)),
	)
	defer mm.Shutdown()

	gameServer := server.NewGameServer(server.Config{
		Addr:         cfg.Server.HTTPAddress,
		DefaultStake: cfg.Matchmaker.DefaultStake(),
		DefaultChips: cfg.Matchmaker.DefaultChips,
		Heartbeat:    cfg.Server.Heartbeat,
	}, rooms, mm, sessions, players, mon)

	rpcServer, err := highcardrpc.NewServer(cfg.Server.RPCAddress)
	if err != nil {
		return fmt.Errorf("create RPC server: %w", err)
	}
	if err := rpcServer.Register(highcardrpc.NewLobbyService(rooms, mm, players)); err != nil {
		return fmt.Errorf("register lobby service: %w", err)
	}

	metricsServer := &http.Server{Addr: cfg.Server.MetricsAddress, Handler: mon.Handler()}

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, gctx := errgroup.WithContext(sigCtx)

	g.Go(gameServer.Start)
	g.Go(func() error {
		rpcServer.Start()
		return nil
	})
	g.Go(func() error {
		logger.Log.Infof("Metrics listening on %s", cfg.Server.MetricsAddress)
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Log.Info("shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		rpcServer.Stop()
		_ = metricsServer.Shutdown(ctx)
		return gameServer.Shutdown(ctx)
	})

	return g.Wait()
}
