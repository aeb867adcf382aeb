package network

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wfunc/highcard/game"
)

func TestPacketRoundTrip(t *testing.T) {
	raw, err := EncodePacket(MsgTypeFindGame, []byte(`{"table_bet":10}`))
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 101, 0, 16}, raw[:4])

	p, err := DecodePacket(raw)
	require.NoError(t, err)
	assert.Equal(t, uint16(MsgTypeFindGame), p.MsgID)
	assert.Equal(t, uint16(16), p.Length)
	assert.Equal(t, `{"table_bet":10}`, string(p.Data))
}

func TestDecodePacket_Short(t *testing.T) {
	_, err := DecodePacket([]byte{0, 1})
	assert.ErrorIs(t, err, io.ErrShortBuffer)

	// header claims 5 bytes, only 2 follow
	_, err = DecodePacket([]byte{0, 1, 0, 5, 'a', 'b'})
	assert.ErrorIs(t, err, io.ErrShortBuffer)
}

func TestEncodePacket_TooLarge(t *testing.T) {
	_, err := EncodePacket(1, make([]byte, 1<<16))
	assert.ErrorIs(t, err, ErrPacketTooLarge)
}

func TestDecode_ActionRequest(t *testing.T) {
	var req ActionRequest
	require.NoError(t, Decode(&Packet{Data: []byte(`{"action":"RAISE"}`)}, &req))
	assert.Equal(t, game.Raise, req.Action)

	err := Decode(&Packet{Data: []byte(`{"action":"check"}`)}, &req)
	assert.ErrorIs(t, err, game.ErrUnknownAction)

	// empty body is fine for messages without payload
	assert.NoError(t, Decode(&Packet{}, &req))
}

func TestWSConnection_Echo(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		conn := NewWSConnection(ws)
		defer conn.Close()
		conn.SetHeartbeat(time.Second)
		for {
			p, err := conn.ReadPacket()
			if err != nil {
				return
			}
			if err := conn.Send(p.MsgID+1, p.Data); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	ws, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	client := NewWSConnection(ws)
	defer client.Close()

	body, err := Encode(FindGameRequest{Username: "alice", TableBet: 50})
	require.NoError(t, err)
	require.NoError(t, client.Send(MsgTypeFindGame, body))

	p, err := client.ReadPacket()
	require.NoError(t, err)
	assert.Equal(t, uint16(MsgTypeFindGame+1), p.MsgID)

	var got FindGameRequest
	require.NoError(t, Decode(p, &got))
	assert.Equal(t, FindGameRequest{Username: "alice", TableBet: 50}, got)
}
