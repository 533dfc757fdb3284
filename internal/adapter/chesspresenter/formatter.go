package chesspresenter

import (
	"fmt"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/park285/btl-chess/internal/msgcat"
	"github.com/park285/btl-chess/internal/session"
	"github.com/park285/btl-chess/pkg/chessdto"
)

var pieceLetters = map[string]byte{
	"pawn":   'p',
	"knight": 'n',
	"bishop": 'b',
	"rook":   'r',
	"queen":  'q',
	"king":   'k',
}

// Formatter renders board snapshots and session events as console text.
type Formatter struct {
	cat    *msgcat.Catalog
	white  *color.Color
	black  *color.Color
	hint   *color.Color
	sel    *color.Color
	notice *color.Color
	alert  *color.Color
}

func NewFormatter(cat *msgcat.Catalog, useColor bool) *Formatter {
	f := &Formatter{
		cat:    cat,
		white:  color.New(color.FgHiWhite, color.Bold),
		black:  color.New(color.FgHiBlue, color.Bold),
		hint:   color.New(color.FgGreen),
		sel:    color.New(color.FgBlack, color.BgYellow),
		notice: color.New(color.FgCyan),
		alert:  color.New(color.FgRed),
	}
	for _, c := range []*color.Color{f.white, f.black, f.hint, f.sel, f.notice, f.alert} {
		if useColor {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return f
}

// Board draws the snapshot with a-h / 1-8 axes, rank 8 at the top. The
// selected square is highlighted and hint squares are marked with '*'.
func (f *Formatter) Board(snap chessdto.BoardSnapshot, selected string, hints []string) string {
	bySquare := make(map[string]chessdto.PieceView, len(snap.Pieces))
	for _, p := range snap.Pieces {
		bySquare[p.Square] = p
	}
	hinted := make(map[string]bool, len(hints))
	for _, h := range hints {
		hinted[h] = true
	}

	var sb strings.Builder
	sb.WriteString("  a b c d e f g h\n")
	for row := 7; row >= 0; row-- {
		rank := fmt.Sprintf("%d", row+1)
		sb.WriteString(rank)
		for col := 0; col < 8; col++ {
			sq := fmt.Sprintf("%c%d", 'a'+col, row+1)
			sb.WriteByte(' ')
			sb.WriteString(f.cell(sq, bySquare, sq == selected, hinted[sq]))
		}
		sb.WriteByte(' ')
		sb.WriteString(rank)
		sb.WriteByte('\n')
	}
	sb.WriteString("  a b c d e f g h")
	return sb.String()
}

func (f *Formatter) cell(sq string, pieces map[string]chessdto.PieceView, selected, hinted bool) string {
	p, ok := pieces[sq]
	if !ok {
		if hinted {
			return f.hint.Sprint("*")
		}
		return "."
	}
	letter := string(pieceLetters[p.Chessman])
	c := f.black
	if p.Player == "white" {
		letter = strings.ToUpper(letter)
		c = f.white
	}
	switch {
	case selected:
		return f.sel.Sprint(letter)
	case hinted:
		return f.hint.Sprint(letter)
	default:
		return c.Sprint(letter)
	}
}

// Event renders one session event. statusAddr fills {{.Addr}} for listening
// and connecting notices.
func (f *Formatter) Event(ev session.Event, snap chessdto.BoardSnapshot, statusAddr string) string {
	switch ev.Kind {
	case session.EventBoardChanged:
		if ev.Reset {
			return f.notice.Sprint(f.cat.RenderOr("move.reset", nil, "board reset"))
		}
		key := "move.local"
		if ev.Remote {
			key = "move.remote"
		}
		return f.cat.RenderOr(key, map[string]any{"Move": ev.Move.UCI()}, ev.Move.UCI())
	case session.EventChat:
		key := "chat.local"
		if ev.Remote {
			key = "chat.remote"
		}
		return f.cat.RenderOr(key, map[string]any{"Text": ev.Text}, ev.Text)
	case session.EventStatus:
		if ev.Err != nil {
			return f.alert.Sprint(f.Error(*ev.Err))
		}
		data := map[string]any{"Addr": statusAddr, "Remote": snap.Remote}
		return f.notice.Sprint(f.cat.RenderOr("status."+ev.Status.String(), data, ev.Status.String()))
	}
	return ""
}

// Error renders a DomainError through its code's template.
func (f *Formatter) Error(derr chessdto.DomainError) string {
	return f.cat.RenderOr("error."+derr.Code, map[string]any{"Reason": derr.Message}, derr.Error())
}

// Selection describes a Selector result.
func (f *Formatter) Selection(r session.TapResult, snap chessdto.BoardSnapshot) string {
	if r.State != session.PieceSelected {
		return f.cat.RenderOr("select.cancelled", nil, "selection cancelled")
	}
	sq := r.Selected.String()
	p, _ := snap.Piece(sq)
	targets := make([]string, 0, r.Hints.Len())
	for _, h := range r.Hints.Slice() {
		targets = append(targets, h.String())
	}
	sort.Strings(targets)
	return f.cat.RenderOr("select.piece", map[string]any{
		"Piece":   p.Chessman,
		"Square":  sq,
		"Targets": strings.Join(targets, " "),
	}, sq)
}

// Text renders an arbitrary catalog key.
func (f *Formatter) Text(key string, data any) string {
	return f.cat.RenderOr(key, data, key)
}
