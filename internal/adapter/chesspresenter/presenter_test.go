package chesspresenter

import (
	"bytes"
	"strings"
	"testing"

	"github.com/park285/btl-chess/internal/chess"
	"github.com/park285/btl-chess/internal/msgcat"
	"github.com/park285/btl-chess/internal/session"
	"github.com/park285/btl-chess/pkg/chessdto"
)

type staticSource struct{ snap chessdto.BoardSnapshot }

func (s staticSource) Snapshot() chessdto.BoardSnapshot { return s.snap }

func openingSnapshot(t *testing.T) chessdto.BoardSnapshot {
	t.Helper()
	s := session.New(session.Options{})
	t.Cleanup(func() { _ = s.Close() })
	return s.Snapshot()
}

func newFormatter(t *testing.T) *Formatter {
	t.Helper()
	cat, err := msgcat.New("")
	if err != nil {
		t.Fatalf("msgcat: %v", err)
	}
	return NewFormatter(cat, false)
}

func TestBoardRendering(t *testing.T) {
	f := newFormatter(t)
	out := f.Board(openingSnapshot(t), "", nil)
	lines := strings.Split(out, "\n")
	if len(lines) != 10 {
		t.Fatalf("expected 10 lines, got %d:\n%s", len(lines), out)
	}
	if lines[1] != "8 r n b q k b n r 8" || lines[8] != "1 R N B Q K B N R 1" {
		t.Fatalf("unexpected back ranks:\n%s", out)
	}
	if lines[4] != "5 . . . . . . . . 5" {
		t.Fatalf("unexpected empty rank: %q", lines[4])
	}
}

func TestBoardHints(t *testing.T) {
	f := newFormatter(t)
	out := f.Board(openingSnapshot(t), "e2", []string{"e3", "e4"})
	lines := strings.Split(out, "\n")
	if lines[5] != "4 . . . . * . . . 4" || lines[6] != "3 . . . . * . . . 3" {
		t.Fatalf("hints not drawn:\n%s", out)
	}
}

func TestEventText(t *testing.T) {
	f := newFormatter(t)
	snap := chessdto.BoardSnapshot{Remote: "127.0.0.1:50000"}
	move := chess.Move{From: chess.Sq(4, 1), To: chess.Sq(4, 3)}

	if got := f.Event(session.Event{Kind: session.EventBoardChanged, Move: move, Remote: true}, snap, ""); got != "opponent played e2e4" {
		t.Fatalf("remote move: %q", got)
	}
	if got := f.Event(session.Event{Kind: session.EventChat, Text: "gg"}, snap, ""); got != "you: gg" {
		t.Fatalf("local chat: %q", got)
	}
	if got := f.Event(session.Event{Kind: session.EventStatus, Status: session.StatusConnected}, snap, ""); got != "Connected to 127.0.0.1:50000." {
		t.Fatalf("status: %q", got)
	}
	if got := f.Event(session.Event{Kind: session.EventStatus, Status: session.StatusListening}, snap, "0.0.0.0:50000"); !strings.Contains(got, "0.0.0.0:50000") {
		t.Fatalf("listening: %q", got)
	}
	derr := chessdto.GameFull()
	if got := f.Event(session.Event{Kind: session.EventStatus, Status: session.StatusGameFull, Err: &derr}, snap, ""); got != "The relay already has two players." {
		t.Fatalf("game full: %q", got)
	}
	lost := chessdto.ConnectionLost("peer disconnected")
	if got := f.Error(lost); got != "Connection lost: peer disconnected" {
		t.Fatalf("lost: %q", got)
	}
}

func TestPresenterWritesBoardOnMove(t *testing.T) {
	var buf bytes.Buffer
	p := NewPresenter(&buf, newFormatter(t), staticSource{snap: openingSnapshot(t)})
	p.HandleEvent(session.Event{Kind: session.EventBoardChanged, Reset: true})
	out := buf.String()
	if !strings.HasPrefix(out, "Board reset.\n  a b c d e f g h\n") {
		t.Fatalf("unexpected output:\n%s", out)
	}
}

func TestPresenterSelection(t *testing.T) {
	var buf bytes.Buffer
	src := staticSource{snap: openingSnapshot(t)}
	p := NewPresenter(&buf, newFormatter(t), src)
	sel := session.NewSelector(chess.NewBoard())
	p.Selection(sel.Tap(chess.Sq(6, 0)))
	out := buf.String()
	if !strings.Contains(out, "knight on g1 selected. Targets: f3 h3") {
		t.Fatalf("selection text missing:\n%s", out)
	}
	if !strings.Contains(out, "3 . . . . . * . * 3") {
		t.Fatalf("targets not marked:\n%s", out)
	}
}
