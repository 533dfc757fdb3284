// Package protocol encodes and decodes the newline-delimited text lines two
// peers exchange: moves as "fromCol,fromRow,toCol,toRow", chat as
// "CHAT:<text>", and the relay's "GAME_FULL" control line.
package protocol

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/park285/btl-chess/internal/chess"
)

const (
	// ChatPrefix marks a chat line; everything after it is the message text.
	ChatPrefix = "CHAT:"
	// GameFull is sent by the relay to a third connection before closing it.
	GameFull = "GAME_FULL"
)

// ErrMalformedLine is wrapped by every Parse failure.
var ErrMalformedLine = errors.New("malformed protocol line")

type Kind int

const (
	KindMove Kind = iota + 1
	KindChat
	KindGameFull
)

func (k Kind) String() string {
	switch k {
	case KindMove:
		return "move"
	case KindChat:
		return "chat"
	case KindGameFull:
		return "game_full"
	default:
		return "unknown"
	}
}

// Message is one decoded line. Move is set for KindMove, Text for KindChat.
type Message struct {
	Kind Kind
	Move chess.Move
	Text string
}

// Parse decodes a single line without its terminator. Surrounding whitespace
// is ignored for moves and control lines; chat text is kept verbatim.
func Parse(line string) (Message, error) {
	line = strings.TrimRight(line, "\r\n")
	if strings.HasPrefix(line, ChatPrefix) {
		return Message{Kind: KindChat, Text: strings.TrimPrefix(line, ChatPrefix)}, nil
	}
	trimmed := strings.TrimSpace(line)
	if trimmed == GameFull {
		return Message{Kind: KindGameFull}, nil
	}
	fields := strings.Split(trimmed, ",")
	if len(fields) != 4 {
		return Message{}, fmt.Errorf("%w: %q", ErrMalformedLine, line)
	}
	var v [4]int
	for i, f := range fields {
		n, err := strconv.Atoi(strings.TrimSpace(f))
		if err != nil {
			return Message{}, fmt.Errorf("%w: %q: %v", ErrMalformedLine, line, err)
		}
		v[i] = n
	}
	m := chess.Move{From: chess.Sq(v[0], v[1]), To: chess.Sq(v[2], v[3])}
	if !m.From.InBoard() || !m.To.InBoard() {
		return Message{}, fmt.Errorf("%w: off-board move %q", ErrMalformedLine, line)
	}
	return Message{Kind: KindMove, Move: m}, nil
}

// EncodeMove renders a move line without the trailing newline.
func EncodeMove(m chess.Move) string {
	return fmt.Sprintf("%d,%d,%d,%d", m.From.Col, m.From.Row, m.To.Col, m.To.Row)
}

// EncodeChat renders a chat line. Line breaks inside text would split the
// frame, so they are replaced with spaces.
func EncodeChat(text string) string {
	return ChatPrefix + strings.NewReplacer("\r\n", " ", "\r", " ", "\n", " ").Replace(text)
}
