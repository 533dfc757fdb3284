package relay

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/park285/btl-chess/internal/domain"

	_ "github.com/lib/pq"
)

// SessionRecorder persists finished relay sessions.
type SessionRecorder interface {
	SaveSession(ctx context.Context, s *domain.RelaySession) error
}

// Repository writes relay_sessions rows to Postgres.
type Repository struct {
	db *sql.DB
}

var _ SessionRecorder = (*Repository)(nil)

func NewRepository(databaseURL string) (*Repository, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

const schemaRelaySessions = `CREATE TABLE IF NOT EXISTS relay_sessions (
    session_id    TEXT PRIMARY KEY,
    match_id      TEXT NOT NULL,
    player1       TEXT NOT NULL,
    player2       TEXT NOT NULL,
    player1_addr  TEXT NOT NULL,
    player2_addr  TEXT NOT NULL,
    lines_relayed BIGINT NOT NULL DEFAULT 0,
    started_at    TIMESTAMPTZ NOT NULL,
    ended_at      TIMESTAMPTZ,
    duration_ms   BIGINT NOT NULL DEFAULT 0,
    end_reason    TEXT NOT NULL DEFAULT ''
)`

// EnsureSchema creates the relay_sessions table when missing.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	if r == nil || r.db == nil {
		return nil
	}
	_, err := r.db.ExecContext(ctx, schemaRelaySessions)
	return err
}

// SaveSession upserts a session summary keyed by its id.
func (r *Repository) SaveSession(ctx context.Context, s *domain.RelaySession) error {
	if r == nil || r.db == nil || s == nil {
		return nil
	}
	q := `INSERT INTO relay_sessions (
        session_id, match_id, player1, player2, player1_addr, player2_addr,
        lines_relayed, started_at, ended_at, duration_ms, end_reason
      ) VALUES (
        $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11
      ) ON CONFLICT (session_id) DO UPDATE SET
        lines_relayed=EXCLUDED.lines_relayed,
        ended_at=EXCLUDED.ended_at,
        duration_ms=EXCLUDED.duration_ms,
        end_reason=EXCLUDED.end_reason`

	var ended any
	if !s.EndedAt.IsZero() {
		ended = s.EndedAt
	}
	_, err := r.db.ExecContext(ctx, q,
		s.ID, s.MatchID,
		s.Player1, s.Player2,
		s.Player1Addr, s.Player2Addr,
		s.LinesRelayed,
		s.StartedAt, ended,
		s.Duration().Milliseconds(),
		strings.TrimSpace(s.EndReason),
	)
	return err
}
