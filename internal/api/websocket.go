package api

import (
	"log"
	"net/http"
	"sync/atomic"

	"github.com/gorilla/websocket"

	"github.com/vli777/feedback-analyzer/internal/broadcaster"
)

var upgrader = websocket.Upgrader{
	CheckOrigin:     func(r *http.Request) bool { return true },
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// wsSubscriber adapts a gorilla/websocket connection to the
// broadcaster.Subscriber interface, following the teacher's Client
// pattern: a buffered send channel drained by a dedicated writer
// goroutine, decoupling broadcast fan-out from per-connection write
// latency.
type wsSubscriber struct {
	conn   *websocket.Conn
	send   chan []byte
	stopCh chan struct{}
	closed atomic.Bool
}

func newWSSubscriber(conn *websocket.Conn) *wsSubscriber {
	return &wsSubscriber{conn: conn, send: make(chan []byte, 256), stopCh: make(chan struct{})}
}

// Send enqueues data for the writer goroutine. It never blocks on the
// network; a full buffer or a subscriber already torn down is treated as
// a dead subscriber so the broadcaster reaps it.
func (c *wsSubscriber) Send(data []byte) error {
	if c.closed.Load() {
		return errSubscriberBufferFull
	}
	select {
	case c.send <- data:
		return nil
	default:
		return errSubscriberBufferFull
	}
}

// stop marks the subscriber dead. The send channel is deliberately never
// closed: concurrent Broadcast calls may still hold a reference from a
// snapshot taken before Disconnect, and closed.Load() makes further
// Sends fail safely instead of racing a channel close.
func (c *wsSubscriber) stop() {
	if c.closed.CompareAndSwap(false, true) {
		close(c.stopCh)
	}
}

func (c *wsSubscriber) writeLoop() {
	defer c.conn.Close()
	for {
		select {
		case <-c.stopCh:
			return
		case data := <-c.send:
			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(data)
			w.Close()
		}
	}
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[API] stream upgrade failed: %v", err)
		return
	}

	sub := newWSSubscriber(conn)
	s.bcast.Connect(sub)
	go sub.writeLoop()

	defer func() {
		s.bcast.Disconnect(sub)
		sub.stop()
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

var errSubscriberBufferFull = &bufferFullError{}

type bufferFullError struct{}

func (*bufferFullError) Error() string { return "subscriber send buffer full" }

var _ broadcaster.Subscriber = (*wsSubscriber)(nil)
