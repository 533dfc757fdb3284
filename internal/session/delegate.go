package session

import "github.com/park285/btl-chess/internal/chess"

// Delegate is the board surface a UI collaborator drives. Both *Session and
// *chess.Board implement it.
type Delegate interface {
	PieceAt(sq chess.Square) (chess.Piece, bool)
	ValidMoves(sq chess.Square) chess.SquareSet
	MovePiece(from, to chess.Square) bool
}

var (
	_ Delegate = (*Session)(nil)
	_ Delegate = (*chess.Board)(nil)
)

type SelectState int

const (
	Idle SelectState = iota
	PieceSelected
)

func (s SelectState) String() string {
	if s == PieceSelected {
		return "piece_selected"
	}
	return "idle"
}

// TapResult describes what a Tap did.
type TapResult struct {
	State    SelectState
	Selected chess.Square
	Hints    chess.SquareSet
	Moved    bool
	Move     chess.Move
}

// Selector tracks the two-state mover selection. It is not safe for
// concurrent use; one UI goroutine owns it.
type Selector struct {
	d        Delegate
	state    SelectState
	selected chess.Square
	hints    chess.SquareSet
}

func NewSelector(d Delegate) *Selector {
	return &Selector{d: d}
}

func (s *Selector) State() SelectState { return s.state }

// Selected returns the chosen from-square while a piece is selected.
func (s *Selector) Selected() (chess.Square, bool) {
	return s.selected, s.state == PieceSelected
}

// Tap feeds one decoded board tap into the state machine. While Idle, a
// square holding a piece with at least one legal destination becomes
// selected; anything else is a no-op. While PieceSelected, a hinted square
// executes the move and every other square cancels. Both return to Idle.
func (s *Selector) Tap(sq chess.Square) TapResult {
	if s.state == Idle {
		if _, ok := s.d.PieceAt(sq); !ok {
			return TapResult{State: Idle}
		}
		hints := s.d.ValidMoves(sq)
		if hints.Len() == 0 {
			return TapResult{State: Idle}
		}
		s.state, s.selected, s.hints = PieceSelected, sq, hints
		return TapResult{State: PieceSelected, Selected: sq, Hints: hints}
	}

	from := s.selected
	legal := s.hints.Has(sq)
	s.Cancel()
	if !legal || !s.d.MovePiece(from, sq) {
		return TapResult{State: Idle}
	}
	return TapResult{State: Idle, Moved: true, Move: chess.Move{From: from, To: sq}}
}

// Cancel drops any selection.
func (s *Selector) Cancel() {
	s.state, s.selected, s.hints = Idle, chess.Square{}, nil
}
