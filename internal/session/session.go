// Package session owns one player's board and its link to the other player.
// Local commands, inbound network lines and connection changes all run on a
// single event loop goroutine; board queries lock the board directly and may
// run on any goroutine.
package session

import (
	"errors"
	"net"
	"sync"

	"github.com/park285/btl-chess/internal/chess"
	"github.com/park285/btl-chess/internal/obslog"
	"github.com/park285/btl-chess/internal/protocol"
	"github.com/park285/btl-chess/internal/transport"
	"github.com/park285/btl-chess/pkg/chessdto"
	"go.uber.org/zap"
)

type staticErr string

func (e staticErr) Error() string { return string(e) }

const (
	ErrNotConnected  staticErr = "session: not connected"
	ErrClosed        staticErr = "session: closed"
	ErrAlreadyActive staticErr = "session: already listening or connected"
)

type EventKind int

const (
	EventBoardChanged EventKind = iota + 1
	EventChat
	EventStatus
)

type Status int

const (
	StatusIdle Status = iota
	StatusListening
	StatusConnecting
	StatusConnected
	StatusDisconnected
	StatusGameFull
)

func (s Status) String() string {
	switch s {
	case StatusListening:
		return "listening"
	case StatusConnecting:
		return "connecting"
	case StatusConnected:
		return "connected"
	case StatusDisconnected:
		return "disconnected"
	case StatusGameFull:
		return "game_full"
	default:
		return "idle"
	}
}

// Event is delivered to OnEvent callbacks on the session loop.
type Event struct {
	Kind   EventKind
	Move   chess.Move // EventBoardChanged; zero for a reset
	Reset  bool
	Remote bool // originated at the other player
	Text   string
	Status Status
	Err    *chessdto.DomainError
}

type EventCallback func(Event)

type callbackEntry struct {
	id int
	cb EventCallback
}

type Options struct {
	QueueSize int
}

type Session struct {
	// mu guards board, status and remote
	mu     sync.RWMutex
	board  *chess.Board
	status Status
	remote string

	cbM    sync.RWMutex
	cbs    []callbackEntry
	nextCb int

	cmds     chan func()
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	// owned by the loop
	conn     transport.Conn
	listener net.Listener

	queueSize int
	log       *zap.Logger
}

// New starts a session on a fresh opening position.
func New(opts Options) *Session {
	s := &Session{
		board:     chess.NewBoard(),
		cmds:      make(chan func(), 64),
		stopCh:    make(chan struct{}),
		queueSize: opts.QueueSize,
		log:       obslog.Named("session"),
	}
	s.wg.Add(1)
	go s.loop()
	return s
}

func (s *Session) loop() {
	defer s.wg.Done()
	for {
		select {
		case fn := <-s.cmds:
			s.safeRun(fn)
		case <-s.stopCh:
			return
		}
	}
}

func (s *Session) safeRun(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("session_command_panic", zap.Any("panic", r))
		}
	}()
	fn()
}

// post queues fn for the loop without waiting. It reports false once the
// session is closed.
func (s *Session) post(fn func()) bool {
	select {
	case s.cmds <- fn:
		return true
	case <-s.stopCh:
		return false
	}
}

// call runs fn on the loop and waits for it. Callbacks registered with
// OnEvent run on the loop and must not call blocking Session methods.
func (s *Session) call(fn func()) bool {
	done := make(chan struct{})
	if !s.post(func() { defer close(done); fn() }) {
		return false
	}
	select {
	case <-done:
		return true
	case <-s.stopCh:
		return false
	}
}

// OnEvent registers cb and returns an id for RemoveEventCallback.
func (s *Session) OnEvent(cb EventCallback) int {
	s.cbM.Lock()
	defer s.cbM.Unlock()
	s.nextCb++
	s.cbs = append(s.cbs, callbackEntry{id: s.nextCb, cb: cb})
	return s.nextCb
}

func (s *Session) RemoveEventCallback(id int) {
	s.cbM.Lock()
	defer s.cbM.Unlock()
	for i, e := range s.cbs {
		if e.id == id {
			s.cbs = append(s.cbs[:i], s.cbs[i+1:]...)
			return
		}
	}
}

func (s *Session) emit(ev Event) {
	s.cbM.RLock()
	cbs := make([]callbackEntry, len(s.cbs))
	copy(cbs, s.cbs)
	s.cbM.RUnlock()
	for _, e := range cbs {
		if e.cb != nil {
			e.cb(ev)
		}
	}
}

func (s *Session) setStatus(st Status, derr *chessdto.DomainError) {
	s.mu.Lock()
	s.status = st
	s.mu.Unlock()
	fields := []zap.Field{zap.String("status", st.String())}
	if derr != nil {
		fields = append(fields, zap.String("code", derr.Code), zap.String("reason", derr.Message))
	}
	s.log.Info("session_status", fields...)
	s.emit(Event{Kind: EventStatus, Status: st, Err: derr})
}

// Status returns the current connection status.
func (s *Session) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

func (s *Session) PieceAt(sq chess.Square) (chess.Piece, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.board.PieceAt(sq)
}

func (s *Session) ValidMoves(sq chess.Square) chess.SquareSet {
	// legality checks simulate moves on the board, so they need the write lock
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.board.ValidMoves(sq)
}

// MovePiece validates and applies a local move, then sends it to the other
// player when connected. Illegal moves return false with no traffic.
func (s *Session) MovePiece(from, to chess.Square) bool {
	var moved bool
	s.call(func() {
		s.mu.Lock()
		moved = s.board.MovePiece(from, to)
		s.mu.Unlock()
		if !moved {
			return
		}
		m := chess.Move{From: from, To: to}
		s.transmit(protocol.EncodeMove(m))
		s.emit(Event{Kind: EventBoardChanged, Move: m})
	})
	return moved
}

// SendChat transmits a chat line.
func (s *Session) SendChat(text string) error {
	var err error = ErrClosed
	s.call(func() {
		if s.conn == nil {
			err = ErrNotConnected
			return
		}
		line := protocol.EncodeChat(text)
		err = s.conn.Send(line)
		if err == nil {
			s.emit(Event{Kind: EventChat, Text: line[len(protocol.ChatPrefix):]})
		}
	})
	return err
}

func (s *Session) transmit(line string) {
	if s.conn == nil {
		return
	}
	if err := s.conn.Send(line); err != nil {
		s.log.Warn("session_send_failed", zap.String("remote", s.conn.RemoteAddr()), zap.Error(err))
		if errors.Is(err, transport.ErrQueueFull) {
			derr := chessdto.DomainError{Code: chessdto.CodeQueueFull, Message: "peer is not reading", Retryable: true}
			s.emit(Event{Kind: EventStatus, Status: s.Status(), Err: &derr})
		}
	}
}

// Reset restores the opening position and closes a pending listener. An
// established connection stays open.
func (s *Session) Reset() {
	s.call(func() {
		s.mu.Lock()
		s.board.Reset()
		s.mu.Unlock()
		if s.listener != nil {
			_ = s.listener.Close()
			s.listener = nil
			if s.Status() == StatusListening {
				s.setStatus(StatusIdle, nil)
			}
		}
		s.emit(Event{Kind: EventBoardChanged, Reset: true})
	})
}

// Snapshot copies the board for rendering.
func (s *Session) Snapshot() chessdto.BoardSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	pieces := s.board.Pieces()
	snap := chessdto.BoardSnapshot{
		Pieces:    make([]chessdto.PieceView, 0, len(pieces)),
		FEN:       s.board.PlacementFEN(),
		Connected: s.status == StatusConnected,
		Remote:    s.remote,
	}
	for _, p := range pieces {
		snap.Pieces = append(snap.Pieces, chessdto.PieceView{
			Square:   p.Square.String(),
			Col:      p.Square.Col,
			Row:      p.Square.Row,
			Player:   p.Player.String(),
			Chessman: p.Chessman.String(),
			Handle:   int(p.Handle),
		})
	}
	return snap
}

// Board returns a copy of the current board.
func (s *Session) Board() *chess.Board {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.board.Clone()
}

// Close shuts down the listener, the connection and the loop.
func (s *Session) Close() error {
	s.call(func() {
		if s.listener != nil {
			_ = s.listener.Close()
			s.listener = nil
		}
		if s.conn != nil {
			_ = s.conn.Close()
			s.conn = nil
		}
	})
	s.stopOnce.Do(func() { close(s.stopCh) })
	s.wg.Wait()
	return nil
}
