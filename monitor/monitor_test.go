package monitor

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wfunc/highcard/game"
)

func TestMonitor_RoomsAndActions(t *testing.T) {
	m := NewMonitor("highcard")

	m.RoomOpened(10)
	m.RoomOpened(10)
	m.RoomClosed(10)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Metrics().ActiveRooms))

	m.ActionHandled(game.Raise, game.Applied, time.Millisecond)
	m.ActionHandled(game.Raise, game.Applied, time.Millisecond)
	m.ActionHandled(game.Call, game.Ignored, time.Millisecond)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Metrics().Actions.WithLabelValues("raise", "applied")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Metrics().Actions.WithLabelValues("call", "ignored")))
}

func TestMonitor_Matchmaking(t *testing.T) {
	m := NewMonitor("highcard")

	m.QueueDepth(10, 1)
	m.QueueDepth(50, 3)
	m.QueueDepth(10, 0)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.Metrics().QueuedPlayers.WithLabelValues("10")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.Metrics().QueuedPlayers.WithLabelValues("50")))

	m.Matched(10, 2, 0)
	m.Matched(10, 1, 3)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Metrics().Matches.WithLabelValues("10", "true")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Metrics().Matches.WithLabelValues("10", "false")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.Metrics().BotsSeated))
}

func TestMonitor_GameEvents(t *testing.T) {
	m := NewMonitor("highcard")
	var sink game.EventSink = m

	sink.StateChanged("r1", game.Snapshot{})
	sink.RoundTie("r1", game.Snapshot{})
	sink.RoundOver("r1", game.RoundResult{})
	sink.RoundOver("r1", game.RoundResult{})
	sink.GameOver("r1", game.GameResult{})

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Metrics().RoundTies))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Metrics().RoundsResolved))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Metrics().GamesFinished))
}

// 每个 Monitor 有自己的 registry，重复创建不会 panic
func TestMonitor_IndependentRegistries(t *testing.T) {
	a := NewMonitor("highcard")
	b := NewMonitor("highcard")

	a.IncOnlinePlayers()
	assert.Equal(t, 1.0, testutil.ToFloat64(a.Metrics().OnlinePlayers))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.Metrics().OnlinePlayers))
}

func TestMonitor_Handler(t *testing.T) {
	m := NewMonitor("highcard")
	m.IncMessagesReceived()
	m.ObserveMessageLatency(5 * time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "highcard_messages_received_total 1")
	assert.Contains(t, string(body), "highcard_uptime_seconds")
}
