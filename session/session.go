// session/session.go
package session

import (
	"sync"
	"time"

	"github.com/wfunc/highcard/network"
)

type Session struct {
	ID        string
	Conn      network.Connection
	CreatedAt time.Time

	mutex      sync.RWMutex
	identity   string
	name       string
	roomID     string
	lastActive time.Time
	data       map[string]interface{} // 自定义数据
}

func NewSession(id string, conn network.Connection) *Session {
	now := time.Now()
	return &Session{
		ID:         id,
		Conn:       conn,
		CreatedAt:  now,
		lastActive: now,
		data:       make(map[string]interface{}),
	}
}

func (s *Session) Set(key string, value interface{}) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.data[key] = value
}

func (s *Session) Get(key string) interface{} {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.data[key]
}

// Bind attaches a player identity to the session. The first binding wins;
// later calls only return the identity already bound.
func (s *Session) Bind(identity, name string) string {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.identity == "" {
		s.identity = identity
		s.name = name
	}
	return s.identity
}

func (s *Session) Identity() string {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.identity
}

func (s *Session) Name() string {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.name
}

func (s *Session) RoomID() string {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.roomID
}

func (s *Session) SetRoomID(roomID string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.roomID = roomID
}

// LeaveRoom clears the room only if it still is roomID.
func (s *Session) LeaveRoom(roomID string) bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.roomID != roomID {
		return false
	}
	s.roomID = ""
	return true
}

func (s *Session) Touch() {
	s.mutex.Lock()
	s.lastActive = time.Now()
	s.mutex.Unlock()
}

func (s *Session) LastActive() time.Time {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.lastActive
}

func (s *Session) Send(msgID uint16, data []byte) error {
	s.Touch()
	return s.Conn.Send(msgID, data)
}

// SendJSON encodes v and sends it under msgID.
func (s *Session) SendJSON(msgID uint16, v any) error {
	data, err := network.Encode(v)
	if err != nil {
		return err
	}
	return s.Send(msgID, data)
}

func (s *Session) GetID() string {
	return s.ID
}

func (s *Session) Close() error {
	return s.Conn.Close()
}

// Session管理器
type Manager struct {
	sessions map[string]*Session
	mutex    sync.RWMutex
}

func NewManager() *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
	}
}

func (m *Manager) Add(session *Session) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.sessions[session.ID] = session
}

func (m *Manager) Remove(sessionID string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	delete(m.sessions, sessionID)
}

func (m *Manager) Get(sessionID string) (*Session, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	session, exists := m.sessions[sessionID]
	return session, exists
}

func (m *Manager) Len() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.sessions)
}

func (m *Manager) All() []*Session {
	return m.filter(func(*Session) bool { return true })
}

func (m *Manager) GetByIdentity(identity string) []*Session {
	return m.filter(func(s *Session) bool { return s.Identity() == identity })
}

func (m *Manager) GetByRoom(roomID string) []*Session {
	return m.filter(func(s *Session) bool { return s.RoomID() == roomID })
}

func (m *Manager) filter(keep func(*Session) bool) []*Session {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	var result []*Session
	for _, session := range m.sessions {
		if keep(session) {
			result = append(result, session)
		}
	}
	return result
}
