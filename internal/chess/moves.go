package chess

var (
	knightOffsets = [8][2]int{{-2, -1}, {-2, 1}, {-1, -2}, {-1, 2}, {1, -2}, {1, 2}, {2, -1}, {2, 1}}
	kingOffsets   = [8][2]int{{-1, -1}, {-1, 0}, {-1, 1}, {0, -1}, {0, 1}, {1, -1}, {1, 0}, {1, 1}}
	straightDirs  = [4][2]int{{-1, 0}, {1, 0}, {0, -1}, {0, 1}}
	diagonalDirs  = [4][2]int{{-1, -1}, {-1, 1}, {1, -1}, {1, 1}}
)

// RawMoves returns the destinations p can reach from `from` by its movement
// rule alone. Whether the move exposes the mover's king is not considered.
func RawMoves(b *Board, from Square, p Piece) SquareSet {
	out := make(SquareSet)
	if !from.InBoard() {
		return out
	}
	switch p.Chessman {
	case Knight:
		b.stepMoves(out, from, p.Player, knightOffsets[:])
	case King:
		b.stepMoves(out, from, p.Player, kingOffsets[:])
	case Rook:
		b.slideMoves(out, from, p.Player, straightDirs[:])
	case Bishop:
		b.slideMoves(out, from, p.Player, diagonalDirs[:])
	case Queen:
		b.slideMoves(out, from, p.Player, straightDirs[:])
		b.slideMoves(out, from, p.Player, diagonalDirs[:])
	case Pawn:
		b.pawnMoves(out, from, p.Player)
	}
	return out
}

func (b *Board) stepMoves(out SquareSet, from Square, pl Player, offsets [][2]int) {
	for _, o := range offsets {
		to := from.offset(o[0], o[1])
		if !to.InBoard() {
			continue
		}
		if q, ok := b.pieces[to]; ok && q.Player == pl {
			continue
		}
		out.add(to)
	}
}

// slideMoves walks each direction until the edge or the first occupied
// square, which is included only when it holds an enemy piece.
func (b *Board) slideMoves(out SquareSet, from Square, pl Player, dirs [][2]int) {
	for _, d := range dirs {
		for to := from.offset(d[0], d[1]); to.InBoard(); to = to.offset(d[0], d[1]) {
			q, ok := b.pieces[to]
			if !ok {
				out.add(to)
				continue
			}
			if q.Player != pl {
				out.add(to)
			}
			break
		}
	}
}

func (b *Board) pawnMoves(out SquareSet, from Square, pl Player) {
	dir := pl.forward()
	one := from.offset(0, dir)
	if one.InBoard() && b.isEmpty(one) {
		out.add(one)
		two := from.offset(0, 2*dir)
		if from.Row == pl.pawnStartRow() && two.InBoard() && b.isEmpty(two) {
			out.add(two)
		}
	}
	for _, dc := range [2]int{-1, 1} {
		to := from.offset(dc, dir)
		if !to.InBoard() {
			continue
		}
		if q, ok := b.pieces[to]; ok && q.Player != pl {
			out.add(to)
		}
	}
}
