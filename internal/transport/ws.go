package transport

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"nhooyr.io/websocket"
)

// WSConn carries one line per WebSocket text frame.
type WSConn struct {
	conn   *websocket.Conn
	remote string
	ctx    context.Context
	cancel context.CancelFunc
	q      *lineQueue
}

var _ Conn = (*WSConn)(nil)

func newWS(c *websocket.Conn, remote string, queueSize int) *WSConn {
	c.SetReadLimit(MaxLineBytes)
	ctx, cancel := context.WithCancel(context.Background())
	w := &WSConn{conn: c, remote: remote, ctx: ctx, cancel: cancel}
	w.q = newLineQueue(queueSize, remote, w.writeLine, w.shutdown)
	return w
}

// DialWebSocket opens a client connection to a ws:// or wss:// URL.
func DialWebSocket(ctx context.Context, url string, queueSize int) (*WSConn, error) {
	c, _, err := websocket.Dial(ctx, url, &websocket.DialOptions{
		CompressionMode: websocket.CompressionDisabled,
	})
	if err != nil {
		return nil, err
	}
	return newWS(c, url, queueSize), nil
}

// AcceptWebSocket upgrades an HTTP request to a line connection.
func AcceptWebSocket(w http.ResponseWriter, r *http.Request, queueSize int) (*WSConn, error) {
	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		CompressionMode:    websocket.CompressionDisabled,
		InsecureSkipVerify: true,
	})
	if err != nil {
		return nil, err
	}
	return newWS(c, r.RemoteAddr, queueSize), nil
}

func (w *WSConn) writeLine(line string) error {
	ctx, cancel := context.WithTimeout(w.ctx, WriteTimeout)
	defer cancel()
	return w.conn.Write(ctx, websocket.MessageText, []byte(line))
}

func (w *WSConn) shutdown() error {
	defer w.cancel()
	return w.conn.Close(websocket.StatusNormalClosure, "")
}

func (w *WSConn) ReadLine() (string, error) {
	for {
		typ, data, err := w.conn.Read(w.ctx)
		if err != nil {
			if w.q.isClosed() || websocket.CloseStatus(err) != -1 || errors.Is(err, context.Canceled) {
				return "", io.EOF
			}
			return "", err
		}
		if typ != websocket.MessageText {
			continue
		}
		return strings.TrimRight(string(data), "\r\n"), nil
	}
}

func (w *WSConn) Send(line string) error { return w.q.send(line) }

func (w *WSConn) Close() error {
	w.q.close()
	return nil
}

func (w *WSConn) RemoteAddr() string { return w.remote }

func (w *WSConn) Done() <-chan struct{} { return w.q.done }
