package main

import (
	"bufio"
	"encoding/json"
	"log"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/alecthomas/kong"
	"github.com/gorilla/websocket"

	"github.com/wfunc/highcard/game"
	"github.com/wfunc/highcard/network"
)

type CLI struct {
	Addr     string `help:"Server host:port." default:"localhost:8080"`
	Username string `short:"u" help:"Player name, also the ledger key." required:""`
	Stake    int64  `short:"s" help:"Table bet used by 'find'." default:"10"`
}

var msgNames = map[uint16]string{
	network.MsgTypeWaitingForPlayer: "waiting_for_player",
	network.MsgTypeMatched:          "matched",
	network.MsgTypeMatchCanceled:    "match_canceled",
	network.MsgTypeQueueError:       "queue_error",
	network.MsgTypeError:            "error",
	network.MsgTypeJoinRoom:         "joined",
	network.MsgTypeRoomState:        "state",
	network.MsgTypeRoundTie:         "round_tie",
	network.MsgTypeRoundOver:        "round_over",
	network.MsgTypeGameOver:         "game_over",
}

const usage = "commands: find | cancel | join [room] | bot | start | raise | pass | call | fold | leave"

// send formats and sends a message to the WebSocket server.
func send(c *websocket.Conn, msgID uint16, v any) error {
	data, err := network.Encode(v)
	if err != nil {
		return err
	}
	packet, err := network.EncodePacket(msgID, data)
	if err != nil {
		return err
	}
	return c.WriteMessage(websocket.BinaryMessage, packet)
}

func printState(me string, snap game.Snapshot) {
	log.Printf("room %s round %d %s pot=%d carry=%d turn=%s", snap.RoomID, snap.Round, snap.Phase, snap.Pot, snap.CarryPot, snap.TurnSeat)
	for _, s := range snap.Seats {
		cardText := "--"
		if s.Card != nil {
			cardText = s.Card.String()
		} else if s.HasCard {
			cardText = "??"
		}
		marker := " "
		if s.ID == me {
			marker = "*"
		}
		log.Printf(" %s %-12s chips=%-6d card=%-3s folded=%t streak=%d", marker, s.Name, s.Chips, cardText, s.Folded, s.WinStreak)
	}
}

// command turns one line of input into a message. ok is false for unknown
// input.
func command(cli CLI, line string) (msgID uint16, body any, ok bool) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return 0, nil, false
	}
	switch fields[0] {
	case "find":
		return network.MsgTypeFindGame, network.FindGameRequest{Username: cli.Username, TableBet: cli.Stake}, true
	case "cancel":
		return network.MsgTypeCancelFind, nil, true
	case "join":
		req := network.JoinRoomRequest{Username: cli.Username}
		if len(fields) > 1 {
			req.RoomID = fields[1]
		}
		return network.MsgTypeJoinRoom, req, true
	case "bot":
		return network.MsgTypeAddBot, nil, true
	case "start":
		return network.MsgTypeStartGame, nil, true
	case "leave":
		return network.MsgTypeLeaveRoom, nil, true
	}
	if a, err := game.ParseAction(fields[0]); err == nil {
		return network.MsgTypePlayerAction, network.ActionRequest{Action: a}, true
	}
	return 0, nil, false
}

func main() {
	var cli CLI
	kong.Parse(&cli, kong.Name("highcard-client"), kong.Description("Terminal client for the high-card server."))

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	u := url.URL{Scheme: "ws", Host: cli.Addr, Path: "/ws"}
	log.Printf("Connecting to %s", u.String())

	c, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatalf("Dial failed: %v", err)
	}
	defer c.Close()

	done := make(chan struct{})

	// Read loop
	go func() {
		defer close(done)
		for {
			_, message, err := c.ReadMessage()
			if err != nil {
				log.Println("Read error:", err)
				return
			}
			p, err := network.DecodePacket(message)
			if err != nil {
				log.Printf("Received invalid packet of size %d", len(message))
				continue
			}
			if p.MsgID == network.MsgTypeRoomState {
				var snap game.Snapshot
				if err := json.Unmarshal(p.Data, &snap); err == nil {
					printState(cli.Username, snap)
					continue
				}
			}
			name, ok := msgNames[p.MsgID]
			if !ok {
				name = "unknown"
			}
			log.Printf("<- %s: %s", name, string(p.Data))
		}
	}()

	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	log.Println(usage)

	// Write loop
	heartbeat := time.NewTicker(10 * time.Second)
	defer heartbeat.Stop()
	for {
		select {
		case <-done:
			return
		case <-interrupt:
			log.Println("Interrupt received, closing connection.")
			err := c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			if err != nil {
				log.Println("Write close error:", err)
			}
			select {
			case <-done:
			case <-time.After(time.Second):
			}
			return
		case <-heartbeat.C:
			if err := send(c, network.MsgTypeHeartbeat, nil); err != nil {
				log.Println("Write error:", err)
				return
			}
		case line := <-lines:
			msgID, body, ok := command(cli, line)
			if !ok {
				log.Println(usage)
				continue
			}
			if err := send(c, msgID, body); err != nil {
				log.Println("Write error:", err)
				return
			}
		}
	}
}
