package ws

import (
	"sync"

	"github.com/gorilla/websocket"
)

// Session is one live caregiver socket. Gorilla allows a single
// concurrent writer per connection, so sends are serialized by mutex.
type Session struct {
	conn        *websocket.Conn
	caregiverID string

	writeMu sync.Mutex
}

func newSession(conn *websocket.Conn, caregiverID string) *Session {
	return &Session{
		conn:        conn,
		caregiverID: caregiverID,
	}
}

// Send writes v as one JSON message.
func (s *Session) Send(v any) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteJSON(v)
}

// Close closes the underlying socket. The read loop observes the close
// and unregisters the session.
func (s *Session) Close() error {
	return s.conn.Close()
}
