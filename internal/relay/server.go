// Package relay pairs two players and forwards every line one sends to the
// other without looking at it. A third player is told GAME_FULL and dropped.
package relay

import (
	"context"
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"time"

	petname "github.com/dustinkirkland/golang-petname"
	"github.com/google/uuid"
	"github.com/park285/btl-chess/internal/domain"
	"github.com/park285/btl-chess/internal/obslog"
	"github.com/park285/btl-chess/internal/protocol"
	"github.com/park285/btl-chess/internal/transport"
	"go.uber.org/zap"
)

// MaxPendingLines bounds lines held for a partner that has not joined yet.
const MaxPendingLines = 256

const storeTimeout = 3 * time.Second

type Options struct {
	Store     SlotStore // defaults to a MemoryStore
	MatchID   string
	QueueSize int
	Recorder  SessionRecorder // optional
}

type player struct {
	conn   transport.Conn
	slot   Slot
	holder string
	label  string
}

type Server struct {
	store     SlotStore
	match     string
	queueSize int
	recorder  SessionRecorder
	log       *zap.Logger

	// mu guards players, pending and current
	mu      sync.Mutex
	players [2]*player
	pending []string
	current *domain.RelaySession

	linesRelayed      atomic.Int64
	sessionsCompleted atomic.Int64
	gamesRejected     atomic.Int64
	closing           atomic.Bool
	resetOnce         sync.Once

	connsM sync.Mutex
	conns  map[transport.Conn]struct{}
	wg     sync.WaitGroup
}

func NewServer(opts Options) *Server {
	if opts.Store == nil {
		opts.Store = NewMemoryStore()
	}
	if opts.MatchID == "" {
		opts.MatchID = "default"
	}
	return &Server{
		store:     opts.Store,
		match:     opts.MatchID,
		queueSize: opts.QueueSize,
		recorder:  opts.Recorder,
		log:       obslog.Named("relay").With(zap.String("match", opts.MatchID)),
		conns:     make(map[transport.Conn]struct{}),
	}
}

// ListenAndServe binds addr and serves until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve accepts TCP players from ln until ctx is cancelled or ln is closed,
// then disconnects everyone and waits for their handlers.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	stop := context.AfterFunc(ctx, func() { _ = ln.Close() })
	defer stop()

	s.ResetSlots(ctx)
	s.log.Info("relay_listening", zap.String("addr", ln.Addr().String()))
	for {
		c, err := ln.Accept()
		if err != nil {
			s.Shutdown()
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}
		conn := transport.NewTCP(c, s.queueSize)
		go s.HandleConn(ctx, conn)
	}
}

// ResetSlots clears stale slot claims left by a previous run. Only the first
// call does anything; call it before starting any listener.
func (s *Server) ResetSlots(ctx context.Context) {
	s.resetOnce.Do(func() {
		if err := s.store.Reset(ctx, s.match); err != nil {
			s.log.Warn("relay_store_reset_failed", zap.Error(err))
		}
	})
}

// Shutdown closes every player connection and waits for their handlers.
func (s *Server) Shutdown() {
	s.closing.Store(true)
	s.connsM.Lock()
	for c := range s.conns {
		_ = c.Close()
	}
	s.connsM.Unlock()
	s.wg.Wait()
}

func (s *Server) track(c transport.Conn) bool {
	s.connsM.Lock()
	defer s.connsM.Unlock()
	if s.closing.Load() {
		return false
	}
	s.conns[c] = struct{}{}
	s.wg.Add(1)
	return true
}

func (s *Server) untrack(c transport.Conn) {
	s.connsM.Lock()
	delete(s.conns, c)
	s.connsM.Unlock()
	s.wg.Done()
}

// HandleConn runs one connection to completion: it claims a slot (or sends
// GAME_FULL), forwards the player's lines and cleans up when they leave.
func (s *Server) HandleConn(ctx context.Context, conn transport.Conn) {
	if !s.track(conn) {
		_ = conn.Close()
		return
	}
	defer s.untrack(conn)

	holder := uuid.NewString()
	claimCtx, cancel := context.WithTimeout(ctx, storeTimeout)
	slot, err := s.store.Claim(claimCtx, s.match, holder)
	cancel()
	if errors.Is(err, ErrFull) {
		s.gamesRejected.Add(1)
		s.log.Info("relay_game_full", zap.String("remote", conn.RemoteAddr()))
		_ = conn.Send(protocol.GameFull)
		_ = conn.Close()
		return
	}
	if err != nil {
		s.log.Error("relay_claim_failed", zap.String("remote", conn.RemoteAddr()), zap.Error(err))
		_ = conn.Close()
		return
	}

	p := &player{conn: conn, slot: slot, holder: holder, label: petname.Generate(2, "-")}
	s.join(p)
	defer s.leave(ctx, p)

	for {
		line, err := conn.ReadLine()
		if err != nil {
			return
		}
		s.forward(p, line)
	}
}

func (s *Server) join(p *player) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.players[p.slot-1] = p
	partner := s.players[p.slot.other()-1]
	s.log.Info("relay_player_joined",
		zap.String("player", p.label),
		zap.String("slot", p.slot.String()),
		zap.String("remote", p.conn.RemoteAddr()),
	)
	if partner == nil {
		return
	}

	p1, p2 := s.players[0], s.players[1]
	s.current = &domain.RelaySession{
		ID:          uuid.NewString(),
		MatchID:     s.match,
		Player1:     p1.label,
		Player2:     p2.label,
		Player1Addr: p1.conn.RemoteAddr(),
		Player2Addr: p2.conn.RemoteAddr(),
		StartedAt:   time.Now(),
	}
	s.log.Info("relay_session_started",
		zap.String("session_id", s.current.ID),
		zap.String("p1", p1.label),
		zap.String("p2", p2.label),
		zap.Int("pending", len(s.pending)),
	)
	for _, line := range s.pending {
		s.deliverLocked(p, line)
	}
	s.pending = nil
}

func (s *Server) forward(from *player, line string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.players[from.slot-1] != from {
		return
	}
	partner := s.players[from.slot.other()-1]
	if partner == nil {
		if len(s.pending) >= MaxPendingLines {
			s.log.Warn("relay_pending_overflow", zap.String("player", from.label))
			return
		}
		s.pending = append(s.pending, line)
		return
	}
	s.deliverLocked(partner, line)
}

func (s *Server) deliverLocked(to *player, line string) {
	if err := to.conn.Send(line); err != nil {
		s.log.Warn("relay_forward_failed", zap.String("player", to.label), zap.Error(err))
		return
	}
	s.linesRelayed.Add(1)
	if s.current != nil {
		s.current.LinesRelayed++
	}
}

// leave tears down the pair: the partner is disconnected too and both slots
// are freed so a new pair can start.
func (s *Server) leave(ctx context.Context, p *player) {
	s.mu.Lock()
	var partner *player
	var finished *domain.RelaySession
	if s.players[p.slot-1] == p {
		s.players[p.slot-1] = nil
		partner = s.players[p.slot.other()-1]
		s.players[p.slot.other()-1] = nil
		s.pending = nil
		finished, s.current = s.current, nil
	}
	s.mu.Unlock()

	relCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), storeTimeout)
	defer cancel()
	s.release(relCtx, p)
	_ = p.conn.Close()
	if partner != nil {
		s.release(relCtx, partner)
		_ = partner.conn.Close()
	}
	s.log.Info("relay_player_left", zap.String("player", p.label), zap.String("slot", p.slot.String()))

	if finished == nil {
		return
	}
	finished.EndedAt = time.Now()
	finished.EndReason = domain.EndPlayerLeft
	if s.closing.Load() {
		finished.EndReason = domain.EndShutdown
	}
	s.sessionsCompleted.Add(1)
	s.log.Info("relay_session_ended",
		zap.String("session_id", finished.ID),
		zap.Int64("lines", finished.LinesRelayed),
		zap.Duration("duration", finished.Duration()),
		zap.String("reason", finished.EndReason),
	)
	if s.recorder != nil {
		if err := s.recorder.SaveSession(relCtx, finished); err != nil {
			s.log.Warn("relay_session_save_failed", zap.String("session_id", finished.ID), zap.Error(err))
		}
	}
}

func (s *Server) release(ctx context.Context, p *player) {
	if err := s.store.Release(ctx, s.match, p.slot, p.holder); err != nil {
		s.log.Warn("relay_release_failed", zap.String("player", p.label), zap.Error(err))
	}
}

// Stats is the payload of the status endpoint.
type Stats struct {
	MatchID           string   `json:"match_id"`
	Players           int      `json:"players"`
	Labels            []string `json:"labels,omitempty"`
	SessionID         string   `json:"session_id,omitempty"`
	PendingLines      int      `json:"pending_lines"`
	LinesRelayed      int64    `json:"lines_relayed"`
	SessionsCompleted int64    `json:"sessions_completed"`
	GamesRejected     int64    `json:"games_rejected"`
}

func (s *Server) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := Stats{
		MatchID:           s.match,
		PendingLines:      len(s.pending),
		LinesRelayed:      s.linesRelayed.Load(),
		SessionsCompleted: s.sessionsCompleted.Load(),
		GamesRejected:     s.gamesRejected.Load(),
	}
	for _, p := range s.players {
		if p != nil {
			st.Players++
			st.Labels = append(st.Labels, p.label)
		}
	}
	if s.current != nil {
		st.SessionID = s.current.ID
	}
	return st
}
