package chess

import (
	"strconv"
	"strings"
)

// String dumps the board with numeric axes, row 7 at the top. Empty squares
// print as '.', pieces as FEN letters.
func (b *Board) String() string {
	var sb strings.Builder
	for row := BoardSize - 1; row >= 0; row-- {
		sb.WriteString(strconv.Itoa(row))
		b.writeRow(&sb, row)
		sb.WriteByte('\n')
	}
	sb.WriteString("  0 1 2 3 4 5 6 7")
	return sb.String()
}

// Draw dumps the board with algebraic axes on every side.
func (b *Board) Draw() string {
	var sb strings.Builder
	sb.WriteString("  a b c d e f g h\n")
	for row := BoardSize - 1; row >= 0; row-- {
		rank := strconv.Itoa(row + 1)
		sb.WriteString(rank)
		b.writeRow(&sb, row)
		sb.WriteByte(' ')
		sb.WriteString(rank)
		sb.WriteByte('\n')
	}
	sb.WriteString("  a b c d e f g h")
	return sb.String()
}

func (b *Board) writeRow(sb *strings.Builder, row int) {
	for col := 0; col < BoardSize; col++ {
		sb.WriteByte(' ')
		if p, ok := b.pieces[Sq(col, row)]; ok {
			sb.WriteByte(p.Letter())
		} else {
			sb.WriteByte('.')
		}
	}
}
