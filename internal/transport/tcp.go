package transport

import (
	"bufio"
	"errors"
	"io"
	"net"
	"time"

	"github.com/park285/btl-chess/internal/obslog"
	"go.uber.org/zap"
)

// TCPConn wraps a stream socket (TCP or net.Pipe).
type TCPConn struct {
	conn net.Conn
	r    *bufio.Reader
	q    *lineQueue
}

var _ Conn = (*TCPConn)(nil)

func NewTCP(c net.Conn, queueSize int) *TCPConn {
	t := &TCPConn{conn: c, r: bufio.NewReaderSize(c, 4096)}
	t.q = newLineQueue(queueSize, remoteOf(c), t.writeLine, c.Close)
	return t
}

func (t *TCPConn) writeLine(line string) error {
	_ = t.conn.SetWriteDeadline(time.Now().Add(WriteTimeout))
	_, err := io.WriteString(t.conn, line+"\n")
	return err
}

// ReadLine returns the next line without its line ending. Lines longer than
// MaxLineBytes are dropped and reading continues with the following line.
func (t *TCPConn) ReadLine() (string, error) {
	var (
		buf      []byte
		oversize bool
	)
	for {
		chunk, isPrefix, err := t.r.ReadLine()
		if err != nil {
			return "", t.readErr(err)
		}
		if !oversize {
			if len(buf)+len(chunk) > MaxLineBytes {
				oversize, buf = true, nil
			} else {
				buf = append(buf, chunk...)
			}
		}
		if isPrefix {
			continue
		}
		if oversize {
			obslog.L().Warn("transport_line_dropped",
				zap.String("remote", t.RemoteAddr()),
				zap.Int("limit", MaxLineBytes),
			)
			oversize = false
			continue
		}
		return string(buf), nil
	}
}

func (t *TCPConn) readErr(err error) error {
	if errors.Is(err, io.EOF) || t.q.isClosed() || errors.Is(err, net.ErrClosed) {
		return io.EOF
	}
	return err
}

func (t *TCPConn) Send(line string) error { return t.q.send(line) }

func (t *TCPConn) Close() error {
	t.q.close()
	return nil
}

func (t *TCPConn) RemoteAddr() string { return remoteOf(t.conn) }

func (t *TCPConn) Done() <-chan struct{} { return t.q.done }

func remoteOf(c net.Conn) string {
	if a := c.RemoteAddr(); a != nil {
		return a.String()
	}
	return ""
}
