package relay

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/park285/btl-chess/internal/transport"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

// StatusHandler serves GET /healthz and GET /status.
func (s *Server) StatusHandler() fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		if !ctx.IsGet() && !ctx.IsHead() {
			ctx.Error("method not allowed", fasthttp.StatusMethodNotAllowed)
			return
		}
		switch string(ctx.Path()) {
		case "/healthz":
			ctx.SetContentType("text/plain; charset=utf-8")
			ctx.SetBodyString("ok")
		case "/status":
			raw, err := json.Marshal(s.Stats())
			if err != nil {
				ctx.Error(err.Error(), fasthttp.StatusInternalServerError)
				return
			}
			ctx.SetContentType("application/json")
			ctx.SetBody(raw)
		default:
			ctx.Error("not found", fasthttp.StatusNotFound)
		}
	}
}

// ListenAndServeStatus runs the status endpoint until ctx is cancelled.
func (s *Server) ListenAndServeStatus(ctx context.Context, addr string) error {
	srv := &fasthttp.Server{
		Handler:      s.StatusHandler(),
		Name:         "chess-relay",
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe(addr) }()
	s.log.Info("relay_status_listening", zap.String("addr", addr))
	select {
	case <-ctx.Done():
		return srv.Shutdown()
	case err := <-errCh:
		return err
	}
}

// WebSocketHandler accepts players over WebSocket; they share slots with
// TCP players.
func (s *Server) WebSocketHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := transport.AcceptWebSocket(w, r, s.queueSize)
		if err != nil {
			s.log.Warn("relay_ws_accept_failed", zap.String("remote", r.RemoteAddr), zap.Error(err))
			return
		}
		s.HandleConn(r.Context(), conn)
		<-conn.Done()
	})
}

// ListenAndServeWebSocket runs the WebSocket ingress until ctx is cancelled.
func (s *Server) ListenAndServeWebSocket(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.WebSocketHandler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	s.log.Info("relay_ws_listening", zap.String("addr", addr))
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
