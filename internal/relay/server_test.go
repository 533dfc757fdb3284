package relay

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/park285/btl-chess/internal/domain"
	"github.com/park285/btl-chess/internal/transport"
	"github.com/redis/go-redis/v9"
	"github.com/valyala/fasthttp"
)

type memRecorder struct {
	mu       sync.Mutex
	sessions []domain.RelaySession
}

func (r *memRecorder) SaveSession(_ context.Context, s *domain.RelaySession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions = append(r.sessions, *s)
	return nil
}

func (r *memRecorder) saved() []domain.RelaySession {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.RelaySession(nil), r.sessions...)
}

func startRelay(t *testing.T, opts Options) (*Server, string) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := NewServer(opts)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = srv.Serve(ctx, ln)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return srv, ln.Addr().String()
}

type client struct {
	net.Conn
	r *bufio.Reader
}

func dialClient(t *testing.T, addr string) *client {
	t.Helper()
	c, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return &client{Conn: c, r: bufio.NewReader(c)}
}

func (c *client) send(t *testing.T, line string) {
	t.Helper()
	if _, err := io.WriteString(c, line+"\n"); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func (c *client) expect(t *testing.T, want string) {
	t.Helper()
	_ = c.SetReadDeadline(time.Now().Add(3 * time.Second))
	got, err := c.r.ReadString('\n')
	if err != nil {
		t.Fatalf("read (want %q): %v", want, err)
	}
	if got != want+"\n" {
		t.Fatalf("got %q want %q", got, want)
	}
}

func (c *client) expectEOF(t *testing.T) {
	t.Helper()
	_ = c.SetReadDeadline(time.Now().Add(3 * time.Second))
	if line, err := c.r.ReadString('\n'); err == nil {
		t.Fatalf("expected close, got %q", line)
	}
}

func waitUntil(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestThirdConnectionGetsGameFull(t *testing.T) {
	srv, addr := startRelay(t, Options{})
	dialClient(t, addr)
	dialClient(t, addr)
	waitUntil(t, "two players", func() bool { return srv.Stats().Players == 2 })

	c3 := dialClient(t, addr)
	_ = c3.SetReadDeadline(time.Now().Add(3 * time.Second))
	raw, err := io.ReadAll(c3.r)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(raw) != "GAME_FULL\n" {
		t.Fatalf("third connection got %q", raw)
	}
	if got := srv.Stats().GamesRejected; got != 1 {
		t.Fatalf("GamesRejected=%d", got)
	}
	if srv.Stats().Players != 2 {
		t.Fatalf("rejection must not disturb the pair")
	}
}

func TestLinesForwardedVerbatim(t *testing.T) {
	srv, addr := startRelay(t, Options{})
	a := dialClient(t, addr)
	b := dialClient(t, addr)
	waitUntil(t, "pair", func() bool { return srv.Stats().Players == 2 })

	a.send(t, "4,1,4,3")
	b.expect(t, "4,1,4,3")
	b.send(t, "3,6,3,4")
	a.expect(t, "3,6,3,4")
	a.send(t, "CHAT:hello there")
	b.expect(t, "CHAT:hello there")
	// the relay does not validate content
	b.send(t, "not even a move")
	a.expect(t, "not even a move")

	if got := srv.Stats().LinesRelayed; got != 4 {
		t.Fatalf("LinesRelayed=%d", got)
	}
}

func TestPendingLinesFlushedOnJoin(t *testing.T) {
	srv, addr := startRelay(t, Options{})
	a := dialClient(t, addr)
	a.send(t, "4,1,4,3")
	a.send(t, "CHAT:anyone?")
	waitUntil(t, "pending lines", func() bool { return srv.Stats().PendingLines == 2 })

	b := dialClient(t, addr)
	b.expect(t, "4,1,4,3")
	b.expect(t, "CHAT:anyone?")
	if srv.Stats().PendingLines != 0 {
		t.Fatalf("pending queue not drained")
	}
}

func TestDisconnectEndsPairAndFreesSlots(t *testing.T) {
	rec := &memRecorder{}
	srv, addr := startRelay(t, Options{Recorder: rec, MatchID: "m1"})
	a := dialClient(t, addr)
	b := dialClient(t, addr)
	waitUntil(t, "pair", func() bool { return srv.Stats().Players == 2 })
	a.send(t, "6,0,5,2")
	b.expect(t, "6,0,5,2")

	_ = a.Close()
	b.expectEOF(t)
	waitUntil(t, "slots freed", func() bool { return srv.Stats().Players == 0 })
	waitUntil(t, "session recorded", func() bool { return len(rec.saved()) == 1 })

	s := rec.saved()[0]
	if s.ID == "" || s.MatchID != "m1" || s.LinesRelayed != 1 || s.EndReason != domain.EndPlayerLeft {
		t.Fatalf("unexpected session record: %+v", s)
	}
	if s.Player1 == "" || s.Player2 == "" || s.Player1Addr == "" || s.Player2Addr == "" {
		t.Fatalf("players not labelled: %+v", s)
	}
	if s.EndedAt.Before(s.StartedAt) {
		t.Fatalf("bad timestamps: %+v", s)
	}

	c := dialClient(t, addr)
	d := dialClient(t, addr)
	waitUntil(t, "new pair", func() bool { return srv.Stats().Players == 2 })
	c.send(t, "CHAT:rematch")
	d.expect(t, "CHAT:rematch")
	if srv.Stats().GamesRejected != 0 {
		t.Fatalf("fresh pair should not be rejected")
	}
}

func TestWebSocketPlayerPairsWithTCP(t *testing.T) {
	srv, addr := startRelay(t, Options{})
	tcp := dialClient(t, addr)
	waitUntil(t, "tcp player", func() bool { return srv.Stats().Players == 1 })

	hs := httptest.NewServer(srv.WebSocketHandler())
	defer hs.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	ws, err := transport.DialWebSocket(ctx, "ws"+strings.TrimPrefix(hs.URL, "http"), 0)
	if err != nil {
		t.Fatalf("ws dial: %v", err)
	}
	defer ws.Close()
	waitUntil(t, "ws player", func() bool { return srv.Stats().Players == 2 })

	if err := ws.Send("1,7,2,5"); err != nil {
		t.Fatalf("ws send: %v", err)
	}
	tcp.expect(t, "1,7,2,5")
	tcp.send(t, "CHAT:hi ws")
	line, err := ws.ReadLine()
	if err != nil || line != "CHAT:hi ws" {
		t.Fatalf("ws read %q %v", line, err)
	}
}

func TestRelayWithRedisStore(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	store := NewRedisStore(rdb)

	srv, addr := startRelay(t, Options{Store: store, MatchID: "redis-match"})
	dialClient(t, addr)
	dialClient(t, addr)
	waitUntil(t, "two players", func() bool { return srv.Stats().Players == 2 })
	n, err := store.Occupied(context.Background(), "redis-match")
	if err != nil || n != 2 {
		t.Fatalf("Occupied=%d %v", n, err)
	}
	c3 := dialClient(t, addr)
	c3.expect(t, "GAME_FULL")
	c3.expectEOF(t)
}

func TestStatusHandler(t *testing.T) {
	srv := NewServer(Options{MatchID: "status"})
	h := srv.StatusHandler()

	var health fasthttp.RequestCtx
	health.Request.Header.SetMethod(fasthttp.MethodGet)
	health.Request.SetRequestURI("/healthz")
	h(&health)
	if health.Response.StatusCode() != fasthttp.StatusOK || string(health.Response.Body()) != "ok" {
		t.Fatalf("healthz: %d %q", health.Response.StatusCode(), health.Response.Body())
	}

	var status fasthttp.RequestCtx
	status.Request.Header.SetMethod(fasthttp.MethodGet)
	status.Request.SetRequestURI("/status")
	h(&status)
	var st Stats
	if err := json.Unmarshal(status.Response.Body(), &st); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if st.MatchID != "status" || st.Players != 0 {
		t.Fatalf("unexpected stats: %+v", st)
	}

	var missing fasthttp.RequestCtx
	missing.Request.Header.SetMethod(fasthttp.MethodGet)
	missing.Request.SetRequestURI("/nope")
	h(&missing)
	if missing.Response.StatusCode() != fasthttp.StatusNotFound {
		t.Fatalf("unknown path: %d", missing.Response.StatusCode())
	}

	var post fasthttp.RequestCtx
	post.Request.Header.SetMethod(fasthttp.MethodPost)
	post.Request.SetRequestURI("/status")
	h(&post)
	if post.Response.StatusCode() != fasthttp.StatusMethodNotAllowed {
		t.Fatalf("POST: %d", post.Response.StatusCode())
	}
}

func TestShutdownRecordsReason(t *testing.T) {
	rec := &memRecorder{}
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := NewServer(Options{Recorder: rec})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	a := dialClient(t, ln.Addr().String())
	dialClient(t, ln.Addr().String())
	waitUntil(t, "pair", func() bool { return srv.Stats().Players == 2 })
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Serve: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("Serve did not return")
	}
	a.expectEOF(t)
	saved := rec.saved()
	if len(saved) != 1 || saved[0].EndReason != domain.EndShutdown {
		t.Fatalf("unexpected records: %+v", saved)
	}
}

func TestResetSlotsClearsOnlyOnce(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	if _, err := store.Claim(ctx, "m", "stale"); err != nil {
		t.Fatalf("claim: %v", err)
	}
	srv := NewServer(Options{Store: store, MatchID: "m"})
	srv.ResetSlots(ctx)
	if n, _ := store.Occupied(ctx, "m"); n != 0 {
		t.Fatalf("stale claim survived reset: %d", n)
	}

	// a player that joined through another listener before Serve started
	if _, err := store.Claim(ctx, "m", "early"); err != nil {
		t.Fatalf("claim: %v", err)
	}
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	serveCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = srv.Serve(serveCtx, ln)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	dialClient(t, ln.Addr().String())
	deadline := time.Now().Add(2 * time.Second)
	for {
		n, _ := store.Occupied(ctx, "m")
		if n == 2 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("early claim was wiped; occupied=%d", n)
		}
		time.Sleep(10 * time.Millisecond)
	}
}
