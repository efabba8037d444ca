package events

import (
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10
)

// Session pumps one subscriber's events over a websocket connection until the
// peer disconnects or the subscription is torn down.
type Session struct {
	Broker *Broker
	Sub    *Subscriber
	Conn   *websocket.Conn
}

// Run serves the connection. It blocks until the session ends and always
// unsubscribes and closes the connection before returning.
func (s *Session) Run() {
	done := make(chan struct{})
	go s.readPump(done)
	s.writePump(done)
}

// readPump discards client frames; it exists to notice disconnects and to
// answer pings keeping the read deadline fresh.
func (s *Session) readPump(done chan<- struct{}) {
	defer close(done)

	s.Conn.SetReadLimit(512)
	s.Conn.SetReadDeadline(time.Now().Add(pongWait))
	s.Conn.SetPongHandler(func(string) error {
		s.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := s.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				zap.L().Debug("Websocket read error", zap.Error(err))
			}
			return
		}
	}
}

func (s *Session) writePump(done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.Broker.Unsubscribe(s.Sub)
		s.Conn.Close()
	}()

	for {
		select {
		case event, ok := <-s.Sub.Events():
			s.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				s.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := s.Conn.WriteJSON(event); err != nil {
				return
			}
		case <-ticker.C:
			s.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
