package chesspresenter

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/park285/btl-chess/internal/chess"
	"github.com/park285/btl-chess/internal/session"
	"github.com/park285/btl-chess/pkg/chessdto"
)

// SnapshotSource is the part of a session the presenter reads.
type SnapshotSource interface {
	Snapshot() chessdto.BoardSnapshot
}

// Presenter writes formatted session output to a console. Writes are
// serialized because events arrive on the session loop while commands are
// echoed from the input goroutine.
type Presenter struct {
	mu   sync.Mutex
	out  io.Writer
	f    *Formatter
	src  SnapshotSource
	addr string

	selected string
	hints    []string
}

func NewPresenter(out io.Writer, f *Formatter, src SnapshotSource) *Presenter {
	return &Presenter{out: out, f: f, src: src}
}

// SetStatusAddr records the address shown in listening/connecting notices.
func (p *Presenter) SetStatusAddr(addr string) {
	p.mu.Lock()
	p.addr = addr
	p.mu.Unlock()
}

// HandleEvent is registered with Session.OnEvent.
func (p *Presenter) HandleEvent(ev session.Event) {
	snap := p.src.Snapshot()
	p.mu.Lock()
	defer p.mu.Unlock()
	if line := p.f.Event(ev, snap, p.addr); line != "" {
		p.println(line)
	}
	if ev.Kind == session.EventBoardChanged {
		p.selected, p.hints = "", nil
		p.println(p.f.Board(snap, "", nil))
	}
}

// Selection shows a Selector result, highlighting targets on the board.
func (p *Presenter) Selection(r session.TapResult) {
	snap := p.src.Snapshot()
	p.mu.Lock()
	defer p.mu.Unlock()
	if r.Moved {
		return
	}
	p.selected, p.hints = "", nil
	if r.State == session.PieceSelected {
		p.selected = r.Selected.String()
		for _, h := range r.Hints.Slice() {
			p.hints = append(p.hints, h.String())
		}
	}
	p.println(p.f.Selection(r, snap))
	p.println(p.f.Board(snap, p.selected, p.hints))
}

// Moves lists the legal targets of a square.
func (p *Presenter) Moves(from chess.Square, moves chess.SquareSet) {
	targets := make([]string, 0, moves.Len())
	for _, sq := range moves.Slice() {
		targets = append(targets, sq.String())
	}
	p.Printf("%s: %s", from, strings.Join(targets, " "))
}

// Board redraws the current board.
func (p *Presenter) Board() {
	snap := p.src.Snapshot()
	p.mu.Lock()
	defer p.mu.Unlock()
	p.println(p.f.Board(snap, p.selected, p.hints))
}

// Text prints a catalog message.
func (p *Presenter) Text(key string, data any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.println(p.f.Text(key, data))
}

func (p *Presenter) Printf(format string, args ...any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.println(fmt.Sprintf(format, args...))
}

func (p *Presenter) println(s string) {
	_, _ = io.WriteString(p.out, strings.TrimRight(s, "\n")+"\n")
}
