package session

import (
	"context"
	"errors"
	"net"

	"github.com/park285/btl-chess/internal/protocol"
	"github.com/park285/btl-chess/internal/transport"
	"github.com/park285/btl-chess/pkg/chessdto"
	"go.uber.org/zap"
)

// Listen binds addr and accepts exactly one inbound connection in the
// background; the listener is closed as soon as a peer arrives. A bind
// failure is returned and also reported as a connection_refused status.
func (s *Session) Listen(addr string) (net.Addr, error) {
	var (
		bound net.Addr
		err   = error(ErrClosed)
	)
	s.call(func() {
		if s.listener != nil || s.conn != nil {
			err = ErrAlreadyActive
			return
		}
		ln, lerr := net.Listen("tcp", addr)
		if lerr != nil {
			err = lerr
			derr := chessdto.ConnectionRefused(lerr.Error())
			s.setStatus(StatusDisconnected, &derr)
			return
		}
		s.listener = ln
		bound, err = ln.Addr(), nil
		s.setStatus(StatusListening, nil)
		go s.acceptOne(ln)
	})
	return bound, err
}

func (s *Session) acceptOne(ln net.Listener) {
	c, err := ln.Accept()
	_ = ln.Close()
	if err != nil {
		if !errors.Is(err, net.ErrClosed) {
			s.log.Warn("session_accept_failed", zap.Error(err))
		}
		s.post(func() {
			if s.listener == ln {
				s.listener = nil
				derr := chessdto.ConnectionRefused(err.Error())
				s.setStatus(StatusDisconnected, &derr)
			}
		})
		return
	}
	conn := transport.NewTCP(c, s.queueSize)
	if !s.post(func() {
		if s.listener == ln {
			s.listener = nil
		}
		s.attach(conn)
	}) {
		_ = conn.Close()
	}
}

// Connect dials addr in the background (a TCP host:port or a ws:// URL).
// Progress is reported through status events.
func (s *Session) Connect(ctx context.Context, addr string) error {
	err := error(ErrClosed)
	s.call(func() {
		if s.listener != nil || s.conn != nil {
			err = ErrAlreadyActive
			return
		}
		err = nil
		s.setStatus(StatusConnecting, nil)
		go s.dial(ctx, addr)
	})
	return err
}

func (s *Session) dial(ctx context.Context, addr string) {
	conn, err := transport.Dial(ctx, addr, s.queueSize)
	if err != nil {
		s.log.Warn("session_connect_failed", zap.String("addr", addr), zap.Error(err))
		s.post(func() {
			derr := chessdto.ConnectionRefused(err.Error())
			s.setStatus(StatusDisconnected, &derr)
		})
		return
	}
	if !s.post(func() { s.attach(conn) }) {
		_ = conn.Close()
	}
}

// attach runs on the loop.
func (s *Session) attach(conn transport.Conn) {
	if s.conn != nil {
		s.log.Warn("session_extra_conn_dropped", zap.String("remote", conn.RemoteAddr()))
		_ = conn.Close()
		return
	}
	s.conn = conn
	s.mu.Lock()
	s.remote = conn.RemoteAddr()
	s.mu.Unlock()
	s.setStatus(StatusConnected, nil)
	go s.readLoop(conn)
}

// Disconnect closes the current connection, if any.
func (s *Session) Disconnect() {
	s.call(func() {
		if s.conn == nil {
			return
		}
		conn := s.conn
		s.detach()
		_ = conn.Close()
		s.setStatus(StatusIdle, nil)
	})
}

func (s *Session) detach() {
	s.conn = nil
	s.mu.Lock()
	s.remote = ""
	s.mu.Unlock()
}

func (s *Session) readLoop(conn transport.Conn) {
	for {
		line, err := conn.ReadLine()
		if err != nil {
			s.post(func() { s.handleEOF(conn, err) })
			return
		}
		if !s.post(func() { s.handleLine(conn, line) }) {
			return
		}
	}
}

func (s *Session) handleEOF(conn transport.Conn, err error) {
	if s.conn != conn {
		return
	}
	s.detach()
	_ = conn.Close()
	if s.Status() == StatusGameFull {
		return
	}
	s.log.Info("session_peer_gone", zap.String("remote", conn.RemoteAddr()), zap.Error(err))
	derr := chessdto.ConnectionLost("peer disconnected")
	s.setStatus(StatusDisconnected, &derr)
}

func (s *Session) handleLine(conn transport.Conn, line string) {
	if s.conn != conn {
		return
	}
	msg, err := protocol.Parse(line)
	if err != nil {
		s.log.Warn("protocol_line_skipped", zap.String("remote", conn.RemoteAddr()), zap.Error(err))
		return
	}
	switch msg.Kind {
	case protocol.KindMove:
		s.mu.Lock()
		_, ok := s.board.ApplyMove(msg.Move.From, msg.Move.To)
		s.mu.Unlock()
		if !ok {
			s.log.Warn("remote_move_ignored", zap.String("move", msg.Move.String()))
			return
		}
		s.emit(Event{Kind: EventBoardChanged, Move: msg.Move, Remote: true})
	case protocol.KindChat:
		s.emit(Event{Kind: EventChat, Text: msg.Text, Remote: true})
	case protocol.KindGameFull:
		derr := chessdto.GameFull()
		s.setStatus(StatusGameFull, &derr)
		s.detach()
		_ = conn.Close()
	}
}
