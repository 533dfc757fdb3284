package chessdto

// PieceView is a UI-facing description of one piece.
type PieceView struct {
	Square   string // algebraic, e.g. "e2"
	Col      int
	Row      int
	Player   string // "white" | "black"
	Chessman string // "pawn" ... "king"
	Handle   int
}

// BoardSnapshot is a copy of a session's board taken under its read lock.
type BoardSnapshot struct {
	Pieces    []PieceView
	FEN       string // piece placement only
	Connected bool
	Remote    string
}

// Piece returns the piece on the algebraic square, if any.
func (s BoardSnapshot) Piece(square string) (PieceView, bool) {
	for _, p := range s.Pieces {
		if p.Square == square {
			return p, true
		}
	}
	return PieceView{}, false
}
