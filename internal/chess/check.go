package chess

import (
	"errors"

	"github.com/park285/btl-chess/internal/obslog"
	"go.uber.org/zap"
)

var errNoKingFound = errors.New("no king found")

// findKings scans in Pieces order, so results do not depend on map order.
func (b *Board) findKings(pl Player) ([]Square, error) {
	var kings []Square
	for _, p := range b.Pieces() {
		if p.Player == pl && p.Chessman == King {
			kings = append(kings, p.Square)
		}
	}
	if len(kings) == 0 {
		return nil, errNoKingFound
	}
	return kings, nil
}

// IsKingInCheck reports whether any opposing piece can reach one of pl's
// kings. A board without that king is treated as not in check.
func IsKingInCheck(b *Board, pl Player) bool {
	kings, err := b.findKings(pl)
	if err != nil {
		obslog.L().Warn("check_detect_skipped", zap.String("player", pl.String()), zap.Error(err))
		return false
	}
	for _, p := range b.Pieces() {
		if p.Player == pl {
			continue
		}
		// raw moves only; filtering here would recurse into check detection
		attacks := RawMoves(b, p.Square, p)
		for _, king := range kings {
			if attacks.Has(king) {
				return true
			}
		}
	}
	return false
}
