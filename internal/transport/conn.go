// Package transport carries newline-delimited text lines over TCP or a
// WebSocket. Each connection has a single writer goroutine draining a bounded
// queue, so sends never block the caller and lines are written in order.
package transport

import (
	"context"
	"errors"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/park285/btl-chess/internal/obslog"
	"go.uber.org/zap"
)

const (
	DefaultQueueSize = 64
	// WriteTimeout bounds a single line write.
	WriteTimeout = 5 * time.Second
	// MaxLineBytes caps an inbound TCP line; longer lines are dropped.
	MaxLineBytes = 64 * 1024
)

var (
	ErrClosed    = errors.New("transport: connection closed")
	ErrQueueFull = errors.New("transport: send queue full")
)

// Conn is one line-oriented connection. ReadLine must be called from a single
// goroutine. Send and Close are safe for concurrent use.
type Conn interface {
	// ReadLine blocks for the next line, returned without its terminator.
	ReadLine() (string, error)
	// Send enqueues a line for writing. It never blocks.
	Send(line string) error
	// Close flushes queued lines and then closes the connection.
	Close() error
	RemoteAddr() string
	// Done is closed once the connection is fully shut down.
	Done() <-chan struct{}
}

// lineQueue is the shared writer half of every Conn implementation.
type lineQueue struct {
	mu     sync.Mutex
	closed bool
	out    chan string
	done   chan struct{}

	remote   string
	write    func(line string) error
	shutdown func() error
}

func newLineQueue(size int, remote string, write func(string) error, shutdown func() error) *lineQueue {
	if size <= 0 {
		size = DefaultQueueSize
	}
	q := &lineQueue{
		out:      make(chan string, size),
		done:     make(chan struct{}),
		remote:   remote,
		write:    write,
		shutdown: shutdown,
	}
	go q.run()
	return q
}

func (q *lineQueue) run() {
	defer close(q.done)
	failed := false
	for line := range q.out {
		if failed {
			continue
		}
		if err := q.write(line); err != nil {
			failed = true
			obslog.L().Warn("transport_write_failed",
				zap.String("remote", q.remote),
				zap.Error(err),
			)
			// unblock the reader; the owner will Close
			_ = q.shutdown()
		}
	}
	if !failed {
		_ = q.shutdown()
	}
}

func (q *lineQueue) send(line string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrClosed
	}
	select {
	case q.out <- line:
		return nil
	default:
		return ErrQueueFull
	}
}

func (q *lineQueue) close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	close(q.out)
}

func (q *lineQueue) isClosed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

// Dial connects to addr. "ws://" and "wss://" URLs use a WebSocket; anything
// else is treated as a TCP host:port.
func Dial(ctx context.Context, addr string, queueSize int) (Conn, error) {
	if strings.HasPrefix(addr, "ws://") || strings.HasPrefix(addr, "wss://") {
		return DialWebSocket(ctx, addr, queueSize)
	}
	var d net.Dialer
	c, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	return NewTCP(c, queueSize), nil
}
