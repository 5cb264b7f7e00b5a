package webchat

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// replyWriter serializes writes to one websocket connection. gorilla
// connections support a single concurrent writer.
type replyWriter struct {
	mu           sync.Mutex
	conn         *websocket.Conn
	writeTimeout time.Duration
	closed       bool
}

func newReplyWriter(conn *websocket.Conn, writeTimeout time.Duration) *replyWriter {
	return &replyWriter{conn: conn, writeTimeout: writeTimeout}
}

func (w *replyWriter) send(frame OutboundFrame) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return errConnClosed
	}
	if w.writeTimeout > 0 {
		_ = w.conn.SetWriteDeadline(time.Now().Add(w.writeTimeout))
	}
	return w.conn.WriteJSON(frame)
}

func (w *replyWriter) close(code int, reason string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	deadline := time.Now().Add(time.Second)
	_ = w.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), deadline)
	return w.conn.Close()
}
