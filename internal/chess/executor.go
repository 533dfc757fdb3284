package chess

import (
	"fmt"

	"github.com/park285/btl-chess/internal/obslog"
	"go.uber.org/zap"
)

// inCheck is swapped by tests to exercise the recovery path.
var inCheck = IsKingInCheck

// IsLegalMove reports whether the piece on `from` may move to `to`: the
// destination must be reachable by its movement rule and the move must not
// leave the mover's own king in check.
func (b *Board) IsLegalMove(from, to Square) (legal bool) {
	p, ok := b.PieceAt(from)
	if !ok || from == to {
		return false
	}
	if !RawMoves(b, from, p).Has(to) {
		return false
	}
	defer func() {
		if r := recover(); r != nil {
			obslog.L().Error("legality_check_panic",
				zap.String("from", from.String()),
				zap.String("to", to.String()),
				zap.String("panic", fmt.Sprint(r)),
			)
			legal = false
		}
	}()
	return !b.leavesKingInCheck(p, from, to)
}

// leavesKingInCheck plays the move on the board, tests the mover's king and
// puts everything back. The revert is deferred so a failing check test
// cannot leave the board half-moved.
func (b *Board) leavesKingInCheck(p Piece, from, to Square) bool {
	captured, hadCapture := b.pieces[to]
	defer func() {
		b.pieces[from] = p
		if hadCapture {
			b.pieces[to] = captured
		} else {
			delete(b.pieces, to)
		}
	}()
	delete(b.pieces, from)
	b.pieces[to] = p.At(to)
	return inCheck(b, p.Player)
}

// ValidMoves returns the legal destinations for the piece on sq after
// filtering out moves that would leave its own king in check.
func (b *Board) ValidMoves(sq Square) SquareSet {
	out := make(SquareSet)
	p, ok := b.PieceAt(sq)
	if !ok {
		return out
	}
	for to := range RawMoves(b, sq, p) {
		if b.IsLegalMove(sq, to) {
			out.add(to)
		}
	}
	return out
}

// ApplyMove relocates the piece on `from` to `to`, removing anything that was
// there. It does not check movement rules; moves from an empty or off-board
// square, onto a piece of the same player, or onto the same square are
// ignored and report false.
func (b *Board) ApplyMove(from, to Square) (Piece, bool) {
	if from == to || !to.InBoard() {
		return Piece{}, false
	}
	p, ok := b.PieceAt(from)
	if !ok {
		return Piece{}, false
	}
	if q, ok := b.pieces[to]; ok && q.Player == p.Player {
		return Piece{}, false
	}
	delete(b.pieces, from)
	moved := p.At(to)
	b.pieces[to] = moved
	return moved, true
}

// MovePiece applies the move only when it is legal.
func (b *Board) MovePiece(from, to Square) bool {
	if !b.IsLegalMove(from, to) {
		return false
	}
	_, ok := b.ApplyMove(from, to)
	return ok
}
