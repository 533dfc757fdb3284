package domain

import "time"

// End reasons recorded for a relay session.
const (
	EndPlayerLeft = "player_left"
	EndShutdown   = "shutdown"
)

// RelaySession summarises one paired game passed through the relay.
type RelaySession struct {
	ID           string
	MatchID      string
	Player1      string
	Player2      string
	Player1Addr  string
	Player2Addr  string
	LinesRelayed int64
	StartedAt    time.Time
	EndedAt      time.Time
	EndReason    string
}

// Duration returns the session length, zero while it is still open.
func (s *RelaySession) Duration() time.Duration {
	if s == nil || s.EndedAt.IsZero() || s.EndedAt.Before(s.StartedAt) {
		return 0
	}
	return s.EndedAt.Sub(s.StartedAt)
}
