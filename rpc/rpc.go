package rpc

import (
	"errors"
	"net"
	"net/rpc"
	"sort"

	"github.com/wfunc/highcard/game"
	"github.com/wfunc/highcard/logger"
	"github.com/wfunc/highcard/models"
)

// ServiceName is the name LobbyService is registered under.
const ServiceName = "Lobby"

// Server manages the RPC listener.
type Server struct {
	listener net.Listener
	address  string
	rpc      *rpc.Server
}

// NewServer creates a new RPC server listening on addr.
func NewServer(addr string) (*Server, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Server{
		listener: listener,
		address:  listener.Addr().String(),
		rpc:      rpc.NewServer(),
	}, nil
}

// Register exposes a service on this server only.
func (s *Server) Register(svc *LobbyService) error {
	return s.rpc.RegisterName(ServiceName, svc)
}

func (s *Server) Addr() string {
	return s.address
}

// Start begins listening for RPC requests. It returns once the listener is
// closed.
func (s *Server) Start() {
	logger.Log.Infof("RPC server listening on %s", s.address)
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				logger.Log.Info("RPC server listener closed.")
				return
			}
			logger.Log.Errorf("RPC server accept error: %v", err)
			continue
		}
		go s.rpc.ServeConn(conn)
	}
}

// Stop closes the RPC listener.
func (s *Server) Stop() {
	if s.listener != nil {
		logger.Log.Info("Stopping RPC server.")
		s.listener.Close()
	}
}

// Rooms is the read side of the room registry.
type Rooms interface {
	RoomIDs() []string
	Snapshot(roomID string) (game.Snapshot, error)
}

type Queues interface {
	Depths() map[int64]int
}

type Players interface {
	GetPlayerWithStats(identity string) (models.PlayerStats, error)
	RoundHistory(roomID string) ([]models.RoundRecord, error)
}

// LobbyService 管理后台查询：房间、排队、玩家统计
type LobbyService struct {
	rooms   Rooms
	queues  Queues
	players Players
}

func NewLobbyService(rooms Rooms, queues Queues, players Players) *LobbyService {
	return &LobbyService{rooms: rooms, queues: queues, players: players}
}

// ListArgs limits ListRooms; zero means no limit.
type ListArgs struct {
	Limit int
}

// QueueArgs selects one stake; zero means every stake.
type QueueArgs struct {
	Stake int64
}

type RoomArgs struct {
	RoomID string
}

type RoomReply struct {
	Snapshot game.Snapshot
}

type RoomListReply struct {
	RoomIDs []string
}

type QueueReply struct {
	Depths map[int64]int
}

type PlayerArgs struct {
	Identity string
}

type PlayerReply struct {
	Stats models.PlayerStats
}

type HistoryReply struct {
	Rounds []models.RoundRecord
}

// Methods below follow the net/rpc signature: exported args, pointer reply,
// error result.

func (l *LobbyService) ListRooms(args *ListArgs, reply *RoomListReply) error {
	ids := l.rooms.RoomIDs()
	sort.Strings(ids)
	if args.Limit > 0 && len(ids) > args.Limit {
		ids = ids[:args.Limit]
	}
	reply.RoomIDs = ids
	return nil
}

// RoomSnapshot returns the room as a spectator sees it: no hidden cards.
func (l *LobbyService) RoomSnapshot(args *RoomArgs, reply *RoomReply) error {
	snap, err := l.rooms.Snapshot(args.RoomID)
	if err != nil {
		return err
	}
	reply.Snapshot = snap.For("")
	return nil
}

func (l *LobbyService) QueueDepths(args *QueueArgs, reply *QueueReply) error {
	depths := l.queues.Depths()
	if args.Stake != 0 {
		depths = map[int64]int{args.Stake: depths[args.Stake]}
	}
	reply.Depths = depths
	return nil
}

func (l *LobbyService) PlayerStats(args *PlayerArgs, reply *PlayerReply) error {
	stats, err := l.players.GetPlayerWithStats(args.Identity)
	if err != nil {
		return err
	}
	reply.Stats = stats
	return nil
}

func (l *LobbyService) RoundHistory(args *RoomArgs, reply *HistoryReply) error {
	rounds, err := l.players.RoundHistory(args.RoomID)
	if err != nil {
		return err
	}
	reply.Rounds = rounds
	return nil
}
