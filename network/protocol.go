package network

import (
	"encoding/json"

	"github.com/wfunc/highcard/game"
)

// 客户端 -> 服务器
const (
	MsgTypeHeartbeat    = 1
	MsgTypeFindGame     = 101
	MsgTypeCancelFind   = 102
	MsgTypeJoinRoom     = 103
	MsgTypeLeaveRoom    = 104
	MsgTypeAddBot       = 105
	MsgTypeStartGame    = 106
	MsgTypePlayerAction = 201
)

// 服务器 -> 客户端
const (
	MsgTypeWaitingForPlayer = 111
	MsgTypeMatched          = 112
	MsgTypeMatchCanceled    = 113
	MsgTypeQueueError       = 114
	MsgTypeError            = 199
	MsgTypeRoomState        = 301
	MsgTypeRoundTie         = 302
	MsgTypeRoundOver        = 303
	MsgTypeGameOver         = 304
)

type FindGameRequest struct {
	Username string `json:"username"`
	TableBet int64  `json:"table_bet"`
}

type JoinRoomRequest struct {
	RoomID   string `json:"room_id"`
	Username string `json:"username"`
}

type ActionRequest struct {
	Action game.Action `json:"action"`
}

type WaitingForPlayer struct {
	QueueCount int   `json:"queue_count"`
	TableBet   int64 `json:"table_bet"`
}

type Matched struct {
	RoomID string `json:"room_id"`
}

type ErrorMessage struct {
	Message string `json:"message"`
}

type RoundTie struct {
	Message string        `json:"message"`
	State   game.Snapshot `json:"state"`
}

// Encode marshals v for Send. A nil v encodes as an empty body.
func Encode(v any) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}

// Decode unmarshals a packet body; an empty body leaves v untouched.
func Decode(p *Packet, v any) error {
	if len(p.Data) == 0 {
		return nil
	}
	return json.Unmarshal(p.Data, v)
}
