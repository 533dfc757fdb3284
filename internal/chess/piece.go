package chess

// Player identifies a side.
type Player int

const (
	White Player = iota
	Black
)

func (p Player) String() string {
	switch p {
	case White:
		return "white"
	case Black:
		return "black"
	default:
		return "unknown"
	}
}

// Opponent returns the other side.
func (p Player) Opponent() Player {
	if p == White {
		return Black
	}
	return White
}

// forward is the row delta of a pawn step.
func (p Player) forward() int {
	if p == White {
		return 1
	}
	return -1
}

func (p Player) pawnStartRow() int {
	if p == White {
		return 1
	}
	return 6
}

func (p Player) backRow() int {
	if p == White {
		return 0
	}
	return 7
}

// Chessman is the kind of a piece.
type Chessman int

const (
	Pawn Chessman = iota
	Knight
	Bishop
	Rook
	Queen
	King
)

func (c Chessman) String() string {
	switch c {
	case Pawn:
		return "pawn"
	case Knight:
		return "knight"
	case Bishop:
		return "bishop"
	case Rook:
		return "rook"
	case Queen:
		return "queen"
	case King:
		return "king"
	default:
		return "unknown"
	}
}

// Handle is an opaque visual resource id owned by whatever draws the board.
// The engine carries it along with the piece and never looks inside.
type Handle int

// DefaultHandle returns the handle used for pieces placed by Reset.
func DefaultHandle(p Player, c Chessman) Handle {
	return Handle(int(p)*6 + int(c) + 1)
}

// Piece is an immutable value describing a unit on a square.
type Piece struct {
	Square   Square
	Player   Player
	Chessman Chessman
	Handle   Handle
}

// NewPiece creates a piece with its default handle.
func NewPiece(sq Square, p Player, c Chessman) Piece {
	return Piece{Square: sq, Player: p, Chessman: c, Handle: DefaultHandle(p, c)}
}

// At returns a copy of the piece relocated to sq.
func (p Piece) At(sq Square) Piece {
	p.Square = sq
	return p
}

// Letter returns the FEN letter: upper case for White, lower case for Black.
func (p Piece) Letter() byte {
	l := "pnbrqk"[p.Chessman]
	if p.Player == White {
		return l - 'a' + 'A'
	}
	return l
}
