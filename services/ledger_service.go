package services

import (
	"sync"
	"time"

	"github.com/wfunc/highcard/game"
	"github.com/wfunc/highcard/logger"
	"github.com/wfunc/highcard/models"
	"github.com/wfunc/highcard/persistence"
)

const defaultLedgerQueue = 1024

// LedgerService 把房间结算写入账本。作为 game.EventSink 挂在房间上，
// 写库在独立的 goroutine 里进行，不阻塞房间循环。机器人不入账。
type LedgerService struct {
	db   persistence.Database
	jobs chan ledgerJob
	now  func() time.Time

	mutex   sync.RWMutex
	running bool
	wg      sync.WaitGroup
}

type ledgerJob struct {
	name string
	run  func() error
	done chan struct{}
}

func NewLedgerService(db persistence.Database) *LedgerService {
	return &LedgerService{
		db:   db,
		jobs: make(chan ledgerJob, defaultLedgerQueue),
		now:  time.Now,
	}
}

func (l *LedgerService) Init() {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	if l.running {
		return
	}
	l.running = true
	l.wg.Add(1)
	go l.worker()
}

// Shutdown stops accepting results and waits for queued writes.
func (l *LedgerService) Shutdown() {
	l.mutex.Lock()
	if !l.running {
		l.mutex.Unlock()
		return
	}
	l.running = false
	close(l.jobs)
	l.mutex.Unlock()

	l.wg.Wait()
}

func (l *LedgerService) worker() {
	defer l.wg.Done()
	for job := range l.jobs {
		if job.run != nil {
			if err := job.run(); err != nil {
				logger.Log.Errorw("ledger write failed", "job", job.name, "error", err)
			}
		}
		if job.done != nil {
			close(job.done)
		}
	}
}

func (l *LedgerService) enqueue(job ledgerJob) bool {
	l.mutex.RLock()
	defer l.mutex.RUnlock()

	if !l.running {
		logger.Log.Warnw("ledger not running, result dropped", "job", job.name)
		return false
	}
	l.jobs <- job
	return true
}

// Flush waits until everything queued so far has been written.
func (l *LedgerService) Flush() {
	done := make(chan struct{})
	if l.enqueue(ledgerJob{name: "flush", done: done}) {
		<-done
	}
}

func (l *LedgerService) StateChanged(string, game.Snapshot) {}
func (l *LedgerService) RoundTie(string, game.Snapshot)     {}

func (l *LedgerService) RoundOver(roomID string, r game.RoundResult) {
	seats := seatResults(r.Seats)
	record := models.RoundRecord{
		RoomID:      roomID,
		Round:       r.Round,
		WinnerID:    r.WinnerID,
		Showdown:    r.Showdown,
		Pot:         r.Pot,
		WinnerShare: r.WinnerShare,
		CarryPot:    r.CarryPot,
		Seats:       seats,
		CreatedAt:   l.now(),
	}
	accounts := l.accounts(seats)
	l.enqueue(ledgerJob{name: "round", run: func() error {
		return l.db.SaveRound(accounts, record)
	}})
}

func (l *LedgerService) GameOver(roomID string, g game.GameResult) {
	seats := seatResults(g.Seats)
	record := models.GameRecord{
		RoomID:        roomID,
		Rounds:        g.Round,
		WinnerID:      g.WinnerID,
		WinnerName:    g.WinnerName,
		CarryPot:      g.CarryPot,
		TotalWinnings: g.TotalWinnings,
		Seats:         seats,
		CreatedAt:     l.now(),
	}
	accounts := l.accounts(seats)
	l.enqueue(ledgerJob{name: "game", run: func() error {
		return l.db.SaveGame(accounts, record)
	}})
}

func (l *LedgerService) accounts(seats []models.SeatResult) []models.ChipAccount {
	out := make([]models.ChipAccount, 0, len(seats))
	for _, s := range seats {
		if s.Bot {
			continue
		}
		out = append(out, models.ChipAccount{
			Identity:  s.Identity,
			Name:      s.Name,
			Chips:     s.Chips,
			UpdatedAt: l.now(),
		})
	}
	return out
}

func seatResults(deltas []game.SeatDelta) []models.SeatResult {
	out := make([]models.SeatResult, len(deltas))
	for i, d := range deltas {
		out[i] = models.SeatResult{
			Identity: d.ID,
			Name:     d.Name,
			Bot:      d.Bot,
			Chips:    d.Chips,
			Delta:    d.Delta,
		}
	}
	return out
}
