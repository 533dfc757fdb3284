package chess

import (
	nchess "github.com/corentings/chess/v2"
)

var libPieceTypes = map[Chessman]nchess.PieceType{
	Pawn:   nchess.Pawn,
	Knight: nchess.Knight,
	Bishop: nchess.Bishop,
	Rook:   nchess.Rook,
	Queen:  nchess.Queen,
	King:   nchess.King,
}

func libSquare(sq Square) nchess.Square {
	return nchess.NewSquare(nchess.File(sq.Col), nchess.Rank(sq.Row))
}

func libColor(pl Player) nchess.Color {
	if pl == White {
		return nchess.White
	}
	return nchess.Black
}

// LibraryBoard converts the board into a corentings/chess board. Only piece
// placement is carried over; the engine tracks no side to move or castling rights.
func (b *Board) LibraryBoard() *nchess.Board {
	m := make(map[nchess.Square]nchess.Piece, len(b.pieces))
	for sq, p := range b.pieces {
		m[libSquare(sq)] = nchess.NewPiece(libPieceTypes[p.Chessman], libColor(p.Player))
	}
	return nchess.NewBoard(m)
}

// PlacementFEN returns the piece-placement field of FEN for the board.
func (b *Board) PlacementFEN() string {
	return b.LibraryBoard().String()
}

// UCI renders the move in UCI long algebraic form ("e2e4").
func (m Move) UCI() string {
	if !m.From.InBoard() || !m.To.InBoard() {
		return ""
	}
	return libSquare(m.From).String() + libSquare(m.To).String()
}
