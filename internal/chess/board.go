// Package chess implements the rule engine: board state, per-piece movement
// rules, check detection and move execution on an 8x8 board.
//
// Castling, en passant, promotion and game termination are not part of the
// rule set. A Board is not safe for concurrent use; callers serialize access.
package chess

import "sort"

var backRank = [BoardSize]Chessman{Rook, Knight, Bishop, Queen, King, Bishop, Knight, Rook}

// Board maps occupied squares to pieces. At most one piece occupies a square.
type Board struct {
	pieces map[Square]Piece
}

// NewBoard returns a board in the standard opening position.
func NewBoard() *Board {
	b := &Board{pieces: make(map[Square]Piece, 32)}
	b.Reset()
	return b
}

// NewEmptyBoard returns a board with no pieces.
func NewEmptyBoard() *Board {
	return &Board{pieces: make(map[Square]Piece, 32)}
}

// Reset discards every piece and restores the opening position.
func (b *Board) Reset() {
	b.pieces = make(map[Square]Piece, 32)
	for _, pl := range []Player{White, Black} {
		for col, cm := range backRank {
			b.place(NewPiece(Sq(col, pl.backRow()), pl, cm))
			b.place(NewPiece(Sq(col, pl.pawnStartRow()), pl, Pawn))
		}
	}
}

func (b *Board) place(p Piece) { b.pieces[p.Square] = p }

// PieceAt returns the piece on sq. Off-board squares are always empty.
func (b *Board) PieceAt(sq Square) (Piece, bool) {
	if !sq.InBoard() {
		return Piece{}, false
	}
	p, ok := b.pieces[sq]
	return p, ok
}

// SetPieceAt overwrites whatever occupies sq. A nil piece empties the square;
// otherwise the piece is stored relocated to sq. Off-board squares are ignored.
func (b *Board) SetPieceAt(sq Square, p *Piece) {
	if !sq.InBoard() {
		return
	}
	if p == nil {
		delete(b.pieces, sq)
		return
	}
	b.pieces[sq] = p.At(sq)
}

// Len returns the number of pieces on the board.
func (b *Board) Len() int { return len(b.pieces) }

// Pieces lists every piece in row-major square order.
func (b *Board) Pieces() []Piece {
	out := make([]Piece, 0, len(b.pieces))
	for _, p := range b.pieces {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		a, c := out[i].Square, out[j].Square
		if a.Row != c.Row {
			return a.Row < c.Row
		}
		return a.Col < c.Col
	})
	return out
}

// Clone returns an independent copy.
func (b *Board) Clone() *Board {
	c := &Board{pieces: make(map[Square]Piece, len(b.pieces))}
	for sq, p := range b.pieces {
		c.pieces[sq] = p
	}
	return c
}

// Equal reports whether both boards hold identical pieces on identical squares.
func (b *Board) Equal(o *Board) bool {
	if len(b.pieces) != len(o.pieces) {
		return false
	}
	for sq, p := range b.pieces {
		if q, ok := o.pieces[sq]; !ok || q != p {
			return false
		}
	}
	return true
}

func (b *Board) isEmpty(sq Square) bool {
	_, ok := b.pieces[sq]
	return !ok
}
