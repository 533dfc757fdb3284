package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/park285/btl-chess/internal/adapter/chesspresenter"
	"github.com/park285/btl-chess/internal/chess"
	appcfg "github.com/park285/btl-chess/internal/config"
	"github.com/park285/btl-chess/internal/msgcat"
	"github.com/park285/btl-chess/internal/obslog"
	"github.com/park285/btl-chess/internal/session"
	"go.uber.org/zap"
)

func main() {
	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer obslog.Sync()

	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	cat, err := msgcat.New(cfg.MessagesDir)
	if err != nil {
		log.Fatalf("messages error: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	s := session.New(session.Options{QueueSize: cfg.SendQueueSize})
	defer s.Close()

	formatter := chesspresenter.NewFormatter(cat, !color.NoColor)
	presenter := chesspresenter.NewPresenter(os.Stdout, formatter, s)
	s.OnEvent(presenter.HandleEvent)

	d := &driver{ctx: ctx, cfg: cfg, s: s, sel: session.NewSelector(s), p: presenter}
	presenter.Board()
	if len(os.Args) > 1 {
		d.handle(strings.Join(os.Args[1:], " "))
	}

	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(os.Stdin)
		for sc.Scan() {
			lines <- sc.Text()
		}
	}()
	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok || !d.handle(line) {
				return
			}
		}
	}
}

type driver struct {
	ctx context.Context
	cfg *appcfg.AppConfig
	s   *session.Session
	sel *session.Selector
	p   *chesspresenter.Presenter
}

// handle runs one console command and reports false on quit.
func (d *driver) handle(raw string) bool {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return true
	}
	parts := strings.Fields(raw)
	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	switch cmd {
	case "quit", "exit":
		return false
	case "help":
		d.p.Text("help", nil)
	case "board":
		d.p.Board()
	case "reset":
		d.sel.Cancel()
		d.s.Reset()
	case "listen":
		addr := fmt.Sprintf(":%d", d.cfg.PeerPort)
		if len(args) > 0 {
			addr = args[0]
		}
		d.p.SetStatusAddr(addr)
		if _, err := d.s.Listen(addr); err != nil {
			obslog.L().Warn("peer_listen_failed", zap.String("addr", addr), zap.Error(err))
		}
	case "connect", "relay":
		addr := d.cfg.PeerAddr()
		if cmd == "relay" {
			addr = d.cfg.RelayAddr()
		}
		if len(args) > 0 {
			addr = args[0]
		}
		d.p.SetStatusAddr(addr)
		if err := d.s.Connect(d.ctx, addr); err != nil {
			d.p.Printf("%v", err)
		}
	case "disconnect":
		d.s.Disconnect()
	case "say":
		text := strings.TrimSpace(strings.TrimPrefix(raw, parts[0]))
		if err := d.s.SendChat(text); err != nil {
			d.p.Printf("%v", err)
		}
	case "tap":
		sq, ok := d.square(args, raw)
		if ok {
			d.p.Selection(d.sel.Tap(sq))
		}
	case "moves":
		sq, ok := d.square(args, raw)
		if ok {
			d.p.Moves(sq, d.s.ValidMoves(sq))
		}
	default:
		d.move(cmd)
	}
	return true
}

func (d *driver) square(args []string, raw string) (chess.Square, bool) {
	if len(args) == 0 {
		d.p.Text("error.bad_command", map[string]any{"Input": raw})
		return chess.Square{}, false
	}
	sq, err := chess.ParseSquare(args[0])
	if err != nil {
		d.p.Text("error.bad_command", map[string]any{"Input": raw})
		return chess.Square{}, false
	}
	return sq, true
}

// move accepts "e2e4" or "e2-e4".
func (d *driver) move(token string) {
	token = strings.ReplaceAll(token, "-", "")
	if len(token) != 4 {
		d.p.Text("error.bad_command", map[string]any{"Input": token})
		return
	}
	from, err1 := chess.ParseSquare(token[:2])
	to, err2 := chess.ParseSquare(token[2:])
	if err1 != nil || err2 != nil {
		d.p.Text("error.bad_command", map[string]any{"Input": token})
		return
	}
	d.sel.Cancel()
	if !d.s.MovePiece(from, to) {
		d.p.Text("error.illegal_move", map[string]any{"Move": token})
	}
}
