package session

import (
	"net"
	"sync"
	"testing"
	"time"

	"github.com/wfunc/highcard/network"
)

// MockConnection is a test double for the network.Connection interface.
type MockConnection struct {
	mu   sync.Mutex
	sent []network.Packet
}

func (m *MockConnection) Send(msgID uint16, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, network.Packet{MsgID: msgID, Data: data, Length: uint16(len(data))})
	return nil
}
func (m *MockConnection) Close() error                         { return nil }
func (m *MockConnection) RemoteAddr() net.Addr                 { return &net.TCPAddr{} }
func (m *MockConnection) SetHeartbeat(interval time.Duration)  {}
func (m *MockConnection) ReadPacket() (*network.Packet, error) { return nil, nil }

func TestNewManager(t *testing.T) {
	manager := NewManager()
	if manager == nil {
		t.Fatal("NewManager should not return nil")
	}
	if manager.sessions == nil {
		t.Fatal("NewManager should initialize the sessions map")
	}
}

func TestManager_Add_Get_Remove(t *testing.T) {
	manager := NewManager()
	sessionID := "test_session_1"
	sess := NewSession(sessionID, &MockConnection{})

	manager.Add(sess)
	if manager.Len() != 1 {
		t.Fatalf("Expected session count to be 1, got %d", manager.Len())
	}

	retrievedSess, exists := manager.Get(sessionID)
	if !exists {
		t.Fatal("Get should find the added session")
	}
	if retrievedSess != sess {
		t.Fatal("Get should return the same session instance")
	}

	manager.Remove(sessionID)
	if manager.Len() != 0 {
		t.Fatalf("Expected session count to be 0 after removal, got %d", manager.Len())
	}

	if _, exists = manager.Get(sessionID); exists {
		t.Fatal("Get should not find the removed session")
	}
}

func TestManager_GetByIdentity(t *testing.T) {
	manager := NewManager()

	sess1 := NewSession("session1", &MockConnection{})
	sess1.Bind("alice", "Alice")
	sess2 := NewSession("session2", &MockConnection{})
	sess2.Bind("bob", "Bob")
	sess3 := NewSession("session3", &MockConnection{})
	sess3.Bind("alice", "Alice")

	manager.Add(sess1)
	manager.Add(sess2)
	manager.Add(sess3)

	if n := len(manager.GetByIdentity("alice")); n != 2 {
		t.Errorf("Expected 2 sessions for alice, got %d", n)
	}
	if n := len(manager.GetByIdentity("bob")); n != 1 {
		t.Errorf("Expected 1 session for bob, got %d", n)
	}
	if n := len(manager.GetByIdentity("carol")); n != 0 {
		t.Errorf("Expected 0 sessions for carol, got %d", n)
	}
}

func TestManager_GetByRoom(t *testing.T) {
	manager := NewManager()

	sess1 := NewSession("session1", &MockConnection{})
	sess1.SetRoomID("room-1")
	sess2 := NewSession("session2", &MockConnection{})
	sess2.SetRoomID("room-2")
	sess3 := NewSession("session3", &MockConnection{})

	manager.Add(sess1)
	manager.Add(sess2)
	manager.Add(sess3)

	got := manager.GetByRoom("room-1")
	if len(got) != 1 || got[0] != sess1 {
		t.Fatalf("Expected only session1 in room-1, got %v", got)
	}

	if !sess1.LeaveRoom("room-1") {
		t.Fatal("LeaveRoom should clear the current room")
	}
	if sess2.LeaveRoom("room-1") {
		t.Fatal("LeaveRoom should not clear a different room")
	}
	if n := len(manager.GetByRoom("room-1")); n != 0 {
		t.Errorf("Expected room-1 to be empty, got %d", n)
	}
}

func TestSession_Bind(t *testing.T) {
	sess := NewSession("s", &MockConnection{})

	if got := sess.Bind("alice", "Alice"); got != "alice" {
		t.Fatalf("Expected alice, got %q", got)
	}
	if got := sess.Bind("mallory", "Mallory"); got != "alice" {
		t.Fatalf("Identity should not change once bound, got %q", got)
	}
	if sess.Name() != "Alice" {
		t.Errorf("Expected name Alice, got %q", sess.Name())
	}
}

func TestSession_SendJSON(t *testing.T) {
	conn := &MockConnection{}
	sess := NewSession("s", conn)
	before := sess.LastActive()
	time.Sleep(time.Millisecond)

	if err := sess.SendJSON(network.MsgTypeMatched, network.Matched{RoomID: "r1"}); err != nil {
		t.Fatalf("SendJSON failed: %v", err)
	}
	if len(conn.sent) != 1 {
		t.Fatalf("Expected 1 packet, got %d", len(conn.sent))
	}
	if string(conn.sent[0].Data) != `{"room_id":"r1"}` {
		t.Errorf("Unexpected payload %s", conn.sent[0].Data)
	}
	if !sess.LastActive().After(before) {
		t.Error("Send should refresh LastActive")
	}
}

func TestSession_Set_Get(t *testing.T) {
	sess := NewSession("test_session", &MockConnection{})
	key := "test_key"
	value := "test_value"

	sess.Set(key, value)

	retrievedValue := sess.Get(key)
	if retrievedValue != value {
		t.Errorf("Expected value %v, got %v", value, retrievedValue)
	}

	nilValue := sess.Get("non_existent_key")
	if nilValue != nil {
		t.Errorf("Expected nil for non-existent key, got %v", nilValue)
	}
}
