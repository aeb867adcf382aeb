// broadcast/broadcast.go
package broadcast

import (
	"github.com/wfunc/highcard/game"
	"github.com/wfunc/highcard/logger"
	"github.com/wfunc/highcard/network"
	"github.com/wfunc/highcard/session"
)

const tieMessage = "Tie! Redealing, the pot stays on the table"

// 广播接口
type Broadcaster interface {
	BroadcastToRoom(roomID string, msgID uint16, data []byte) error
	BroadcastToUsers(identities []string, msgID uint16, data []byte) error
}

// RoomBroadcaster 把房间事件推给坐在该房间里的 session。
// 作为 game.EventSink 挂在 room.Manager 上，在房间 goroutine 中调用。
type RoomBroadcaster struct {
	sessionManager *session.Manager
}

func NewRoomBroadcaster(sessionManager *session.Manager) *RoomBroadcaster {
	return &RoomBroadcaster{
		sessionManager: sessionManager,
	}
}

func (b *RoomBroadcaster) BroadcastToRoom(roomID string, msgID uint16, data []byte) error {
	for _, s := range b.sessionManager.GetByRoom(roomID) {
		if err := s.Send(msgID, data); err != nil {
			// 发送失败由读循环负责清理
			logger.Log.Debugw("broadcast send failed", "session", s.ID, "room", roomID, "error", err)
		}
	}
	return nil
}

func (b *RoomBroadcaster) BroadcastToUsers(identities []string, msgID uint16, data []byte) error {
	for _, identity := range identities {
		for _, s := range b.sessionManager.GetByIdentity(identity) {
			if err := s.Send(msgID, data); err != nil {
				logger.Log.Debugw("send failed", "session", s.ID, "player", identity, "error", err)
			}
		}
	}
	return nil
}

// perViewer 每个 session 只能看到自己的牌
func (b *RoomBroadcaster) perViewer(roomID string, msgID uint16, build func(viewer string) any) {
	for _, s := range b.sessionManager.GetByRoom(roomID) {
		if err := s.SendJSON(msgID, build(s.Identity())); err != nil {
			logger.Log.Debugw("broadcast send failed", "session", s.ID, "room", roomID, "error", err)
		}
	}
}

func (b *RoomBroadcaster) encodeToRoom(roomID string, msgID uint16, v any) {
	data, err := network.Encode(v)
	if err != nil {
		logger.Log.Errorw("encode broadcast", "room", roomID, "msg", msgID, "error", err)
		return
	}
	_ = b.BroadcastToRoom(roomID, msgID, data)
}

func (b *RoomBroadcaster) StateChanged(roomID string, snap game.Snapshot) {
	b.perViewer(roomID, network.MsgTypeRoomState, func(viewer string) any {
		return snap.For(viewer)
	})
}

func (b *RoomBroadcaster) RoundTie(roomID string, snap game.Snapshot) {
	b.perViewer(roomID, network.MsgTypeRoundTie, func(viewer string) any {
		return network.RoundTie{Message: tieMessage, State: snap.For(viewer)}
	})
}

func (b *RoomBroadcaster) RoundOver(roomID string, r game.RoundResult) {
	b.encodeToRoom(roomID, network.MsgTypeRoundOver, r)
}

// GameOver is the last event of a room: sessions are detached afterwards.
func (b *RoomBroadcaster) GameOver(roomID string, r game.GameResult) {
	b.encodeToRoom(roomID, network.MsgTypeGameOver, r)
	for _, s := range b.sessionManager.GetByRoom(roomID) {
		s.LeaveRoom(roomID)
	}
}
