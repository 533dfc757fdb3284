package protocol

import (
	"errors"
	"testing"

	"github.com/park285/btl-chess/internal/chess"
)

func TestParseMove(t *testing.T) {
	msg, err := Parse("4,1,4,3")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	want := chess.Move{From: chess.Sq(4, 1), To: chess.Sq(4, 3)}
	if msg.Kind != KindMove || msg.Move != want {
		t.Fatalf("unexpected message: %+v", msg)
	}
	msg, err = Parse(" 0, 6 ,0,5\r\n")
	if err != nil || msg.Move != (chess.Move{From: chess.Sq(0, 6), To: chess.Sq(0, 5)}) {
		t.Fatalf("whitespace tolerant parse failed: %+v %v", msg, err)
	}
}

func TestParseChatKeepsText(t *testing.T) {
	msg, err := Parse("CHAT:  hello, 1,2,3 ")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if msg.Kind != KindChat || msg.Text != "  hello, 1,2,3 " {
		t.Fatalf("chat text altered: %+v", msg)
	}
	msg, _ = Parse("CHAT:")
	if msg.Kind != KindChat || msg.Text != "" {
		t.Fatalf("empty chat: %+v", msg)
	}
}

func TestParseGameFull(t *testing.T) {
	msg, err := Parse("GAME_FULL")
	if err != nil || msg.Kind != KindGameFull {
		t.Fatalf("GAME_FULL: %+v %v", msg, err)
	}
}

func TestParseMalformed(t *testing.T) {
	for _, line := range []string{
		"",
		"hello",
		"1,2,3",
		"1,2,3,4,5",
		"a,1,4,3",
		"4,1,4,8",
		"-1,0,0,0",
		"chat:lowercase prefix",
	} {
		if _, err := Parse(line); !errors.Is(err, ErrMalformedLine) {
			t.Fatalf("Parse(%q) err=%v, want ErrMalformedLine", line, err)
		}
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	m := chess.Move{From: chess.Sq(6, 0), To: chess.Sq(5, 2)}
	line := EncodeMove(m)
	if line != "6,0,5,2" {
		t.Fatalf("EncodeMove=%q", line)
	}
	if got, err := Parse(line); err != nil || got.Move != m {
		t.Fatalf("decode %q: %+v %v", line, got, err)
	}

	chat := EncodeChat("gg\nwp\r\n!")
	if chat != "CHAT:gg wp !" {
		t.Fatalf("EncodeChat=%q", chat)
	}
	if got, _ := Parse(chat); got.Text != "gg wp !" {
		t.Fatalf("chat decode: %+v", got)
	}
}
