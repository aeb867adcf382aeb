package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/wfunc/highcard/game"
	"github.com/wfunc/highcard/logger"
	"github.com/wfunc/highcard/matchmaker"
	"github.com/wfunc/highcard/monitor"
	"github.com/wfunc/highcard/network"
	"github.com/wfunc/highcard/room"
	"github.com/wfunc/highcard/session"
)

// Config 传输层参数
type Config struct {
	Addr         string
	DefaultStake int64
	DefaultChips int64
	Heartbeat    time.Duration
}

// BalanceSource supplies ledger chips for players joining a room directly.
type BalanceSource interface {
	Balance(identity string) (int64, bool)
}

type GameServer struct {
	cfg            Config
	upgrader       websocket.Upgrader
	router         chi.Router
	httpServer     *http.Server
	roomManager    *room.Manager
	matchmaker     *matchmaker.Matchmaker
	sessionManager *session.Manager
	balances       BalanceSource
	monitor        *monitor.Monitor
	shutdownChan   chan struct{}
}

func NewGameServer(cfg Config, rooms *room.Manager, mm *matchmaker.Matchmaker, sessions *session.Manager,
	balances BalanceSource, mon *monitor.Monitor) *GameServer {
	if cfg.DefaultStake <= 0 {
		cfg.DefaultStake = 10
	}
	if cfg.DefaultChips <= 0 {
		cfg.DefaultChips = matchmaker.DefaultChips
	}
	s := &GameServer{
		cfg:            cfg,
		roomManager:    rooms,
		matchmaker:     mm,
		sessionManager: sessions,
		balances:       balances,
		monitor:        mon,
		shutdownChan:   make(chan struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // 允许所有跨域请求
			},
		},
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/healthz", s.handleHealth)
	r.Get("/ws", s.handleWebSocket)
	s.router = r
	s.httpServer = &http.Server{Addr: cfg.Addr, Handler: r}
	return s
}

// Handler exposes the router, mainly for httptest.
func (s *GameServer) Handler() http.Handler {
	return s.router
}

func (s *GameServer) Start() error {
	logger.Log.Infof("Game server listening on %s", s.cfg.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting connections and closes every open session.
func (s *GameServer) Shutdown(ctx context.Context) error {
	select {
	case <-s.shutdownChan:
		return nil
	default:
		close(s.shutdownChan)
	}
	err := s.httpServer.Shutdown(ctx)
	for _, sess := range s.sessionManager.All() {
		_ = sess.Close()
	}
	return err
}

// MatchNotifier returns the matchmaker callback that moves matched sessions
// into their new room and tells them so.
func MatchNotifier(sessions *session.Manager) func(matchmaker.Match) {
	return func(match matchmaker.Match) {
		for _, p := range match.Players {
			for _, sess := range sessions.GetByIdentity(p.Identity) {
				sess.SetRoomID(match.RoomID)
				if err := sess.SendJSON(network.MsgTypeMatched, network.Matched{RoomID: match.RoomID}); err != nil {
					logger.Log.Debugw("notify match failed", "session", sess.ID, "error", err)
				}
			}
		}
	}
}

func (s *GameServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":   "ok",
		"rooms":    s.roomManager.Len(),
		"sessions": s.sessionManager.Len(),
		"queues":   s.matchmaker.Depths(),
	})
}

func (s *GameServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.Infof("Failed to upgrade connection: %v", err)
		return
	}
	s.handleConnection(conn)
}

func (s *GameServer) handleConnection(conn *websocket.Conn) {
	wsConn := network.NewWSConnection(conn)
	if s.cfg.Heartbeat > 0 {
		wsConn.SetHeartbeat(s.cfg.Heartbeat)
	}
	sess := session.NewSession(uuid.New().String(), wsConn)
	s.sessionManager.Add(sess)
	s.monitor.IncOnlinePlayers()

	logger.Log.Infof("New connection from %s, session ID: %s", wsConn.RemoteAddr(), sess.GetID())

	defer func() {
		logger.Log.Infof("Connection closed from %s, session ID: %s", wsConn.RemoteAddr(), sess.GetID())
		s.sessionManager.Remove(sess.GetID())
		s.monitor.DecOnlinePlayers()
		s.disconnect(sess)
		wsConn.Close()
	}()

	for {
		select {
		case <-s.shutdownChan:
			return
		default:
			packet, err := wsConn.ReadPacket()
			if err != nil {
				return
			}
			s.handlePacket(sess, packet)
		}
	}
}

// disconnect 从所有队列中移除，并让房间把座位标记为断线
func (s *GameServer) disconnect(sess *session.Session) {
	identity := sess.Identity()
	if identity == "" {
		return
	}
	s.matchmaker.Cancel(identity)
	if roomID := sess.RoomID(); roomID != "" {
		s.leaveRoom(sess, roomID)
	}
}

func (s *GameServer) handlePacket(sess *session.Session, packet *network.Packet) {
	start := time.Now()
	s.monitor.IncMessagesReceived()
	defer func() { s.monitor.ObserveMessageLatency(time.Since(start)) }()

	switch packet.MsgID {
	case network.MsgTypeHeartbeat:
		sess.Touch()
	case network.MsgTypeFindGame:
		s.handleFindGame(sess, packet)
	case network.MsgTypeCancelFind:
		s.handleCancelFind(sess)
	case network.MsgTypeJoinRoom:
		s.handleJoinRoom(sess, packet)
	case network.MsgTypeLeaveRoom:
		s.handleLeaveRoom(sess)
	case network.MsgTypeAddBot:
		s.handleAddBot(sess)
	case network.MsgTypeStartGame:
		s.handleStartGame(sess)
	case network.MsgTypePlayerAction:
		s.handleGameAction(sess, packet)
	default:
		logger.Log.Infof("Unknown message type: %d", packet.MsgID)
	}
}

// bind 第一次找局或进房时确定玩家身份，用户名即账本主键
func (s *GameServer) bind(sess *session.Session, username string) string {
	if username == "" {
		username = "Player_" + sess.ID[:6]
	}
	return sess.Bind(username, username)
}

func (s *GameServer) handleFindGame(sess *session.Session, packet *network.Packet) {
	var req network.FindGameRequest
	if err := network.Decode(packet, &req); err != nil {
		s.sendError(sess, network.MsgTypeQueueError, err)
		return
	}
	identity := s.bind(sess, req.Username)
	if sess.RoomID() != "" {
		s.sendError(sess, network.MsgTypeQueueError, errors.New("already seated in a room"))
		return
	}
	stake := req.TableBet
	if stake == 0 {
		stake = s.cfg.DefaultStake
	}

	waiting, err := s.matchmaker.Enqueue(stake, identity, sess.Name())
	if err != nil {
		s.sendError(sess, network.MsgTypeQueueError, err)
		// 开房失败时玩家已回到队首，继续等待
		if waiting > 0 && !errors.Is(err, matchmaker.ErrAlreadyQueued) {
			_ = sess.SendJSON(network.MsgTypeWaitingForPlayer, network.WaitingForPlayer{QueueCount: waiting, TableBet: stake})
		}
		return
	}
	if waiting > 0 && sess.RoomID() == "" {
		_ = sess.SendJSON(network.MsgTypeWaitingForPlayer, network.WaitingForPlayer{QueueCount: waiting, TableBet: stake})
	}
}

func (s *GameServer) handleCancelFind(sess *session.Session) {
	if identity := sess.Identity(); identity != "" && s.matchmaker.Cancel(identity) {
		_ = sess.SendJSON(network.MsgTypeMatchCanceled, nil)
		return
	}
	s.sendError(sess, network.MsgTypeQueueError, matchmaker.ErrNotQueued)
}

// handleJoinRoom 加入指定房间；房间不存在时按默认底注新开一个
func (s *GameServer) handleJoinRoom(sess *session.Session, packet *network.Packet) {
	var req network.JoinRoomRequest
	if err := network.Decode(packet, &req); err != nil {
		s.sendError(sess, network.MsgTypeError, err)
		return
	}
	identity := s.bind(sess, req.Username)
	if sess.RoomID() != "" {
		s.sendError(sess, network.MsgTypeError, errors.New("already seated in a room"))
		return
	}

	roomID := req.RoomID
	if _, err := s.roomManager.GetRoom(roomID); err != nil {
		roomID, err = s.roomManager.CreateRoom(s.cfg.DefaultStake)
		if err != nil {
			s.sendError(sess, network.MsgTypeError, err)
			return
		}
		logger.Log.Infof("Session %s created room %s", sess.GetID(), roomID)
	}

	chips := s.cfg.DefaultChips
	if s.balances != nil {
		if c, ok := s.balances.Balance(identity); ok {
			chips = c
		}
	}
	if _, err := s.roomManager.AddSeat(roomID, identity, sess.Name(), chips, false); err != nil {
		s.sendError(sess, network.MsgTypeError, err)
		return
	}
	sess.SetRoomID(roomID)
	logger.Log.Infof("Session %s joined room %s", sess.GetID(), roomID)

	_ = sess.SendJSON(network.MsgTypeJoinRoom, network.Matched{RoomID: roomID})
	if snap, err := s.roomManager.Snapshot(roomID); err == nil {
		_ = sess.SendJSON(network.MsgTypeRoomState, snap.For(identity))
	}
}

func (s *GameServer) handleLeaveRoom(sess *session.Session) {
	if roomID := sess.RoomID(); roomID != "" {
		s.leaveRoom(sess, roomID)
	}
}

// leaveRoom 离开房间。没有在线真人的房间直接关闭，避免机器人空转
func (s *GameServer) leaveRoom(sess *session.Session, roomID string) {
	sess.LeaveRoom(roomID)
	if err := s.roomManager.RemoveSeat(roomID, sess.Identity()); err != nil && !errors.Is(err, room.ErrRoomNotFound) {
		logger.Log.Warnw("leave room", "room_id", roomID, "player", sess.Identity(), "error", err)
	}

	snap, err := s.roomManager.Snapshot(roomID)
	if err != nil {
		return
	}
	for _, seat := range snap.Seats {
		if !seat.Bot && seat.Connected {
			return
		}
	}
	logger.Log.Infow("no players left, closing room", "room_id", roomID)
	s.roomManager.CloseRoom(roomID)
}

func (s *GameServer) handleAddBot(sess *session.Session) {
	roomID := sess.RoomID()
	if roomID == "" {
		s.sendError(sess, network.MsgTypeError, room.ErrRoomNotFound)
		return
	}
	if _, err := s.roomManager.AddBot(roomID); err != nil {
		s.sendError(sess, network.MsgTypeError, err)
	}
}

func (s *GameServer) handleStartGame(sess *session.Session) {
	roomID := sess.RoomID()
	if roomID == "" {
		s.sendError(sess, network.MsgTypeError, room.ErrRoomNotFound)
		return
	}
	if err := s.roomManager.StartRound(roomID); err != nil {
		s.sendError(sess, network.MsgTypeError, err)
	}
}

func (s *GameServer) handleGameAction(sess *session.Session, packet *network.Packet) {
	roomID := sess.RoomID()
	if roomID == "" {
		logger.Log.Warnf("Session %s sent game action but is not in a room", sess.GetID())
		return
	}

	var req network.ActionRequest
	if err := network.Decode(packet, &req); err != nil {
		s.sendError(sess, network.MsgTypeError, err)
		return
	}

	out, err := s.roomManager.SubmitAction(roomID, sess.Identity(), req.Action)
	if err != nil {
		logger.Log.Errorf("Room %s not available for session %s: %v", roomID, sess.GetID(), err)
		return
	}
	if out == game.Ignored {
		logger.Log.Debugw("stale action", "room_id", roomID, "player", sess.Identity(), "action", req.Action)
	}
}

func (s *GameServer) sendError(sess *session.Session, msgID uint16, err error) {
	if sendErr := sess.SendJSON(msgID, network.ErrorMessage{Message: err.Error()}); sendErr != nil {
		logger.Log.Debugw("send error failed", "session", sess.ID, "error", sendErr)
	}
}
