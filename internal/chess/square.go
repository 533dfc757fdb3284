package chess

import (
	"fmt"
	"sort"
	"strings"
)

// BoardSize is the number of files and ranks on the board.
const BoardSize = 8

// Square is a board coordinate. Col 0 is the a-file, Row 0 is White's back rank.
type Square struct {
	Col int
	Row int
}

// Sq is shorthand for Square{Col: col, Row: row}.
func Sq(col, row int) Square { return Square{Col: col, Row: row} }

// InBoard reports whether the square lies on the 8x8 board.
func (s Square) InBoard() bool {
	return s.Col >= 0 && s.Col < BoardSize && s.Row >= 0 && s.Row < BoardSize
}

func (s Square) offset(dc, dr int) Square { return Square{Col: s.Col + dc, Row: s.Row + dr} }

// String formats on-board squares in algebraic form ("e2") and anything else as "(col,row)".
func (s Square) String() string {
	if !s.InBoard() {
		return fmt.Sprintf("(%d,%d)", s.Col, s.Row)
	}
	return fmt.Sprintf("%c%c", 'a'+s.Col, '1'+s.Row)
}

// ParseSquare parses algebraic coordinates such as "e2".
func ParseSquare(v string) (Square, error) {
	v = strings.ToLower(strings.TrimSpace(v))
	if len(v) != 2 || v[0] < 'a' || v[0] > 'h' || v[1] < '1' || v[1] > '8' {
		return Square{}, fmt.Errorf("invalid square %q", v)
	}
	return Square{Col: int(v[0] - 'a'), Row: int(v[1] - '1')}, nil
}

// Move is an ordered (from, to) pair. Legality is always relative to a board.
type Move struct {
	From Square
	To   Square
}

func (m Move) String() string { return m.From.String() + m.To.String() }

// SquareSet is a set of squares. Every query returns a fresh set; callers own it.
type SquareSet map[Square]struct{}

func (s SquareSet) add(sq Square) { s[sq] = struct{}{} }

// Has reports membership.
func (s SquareSet) Has(sq Square) bool {
	_, ok := s[sq]
	return ok
}

// Len returns the number of squares in the set.
func (s SquareSet) Len() int { return len(s) }

// Slice returns the squares in row-major order (a1, b1, ... h8).
func (s SquareSet) Slice() []Square {
	out := make([]Square, 0, len(s))
	for sq := range s {
		out = append(out, sq)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Row != out[j].Row {
			return out[i].Row < out[j].Row
		}
		return out[i].Col < out[j].Col
	})
	return out
}
