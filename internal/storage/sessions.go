package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"findata/internal/core"
)

// Session is a persisted login session. Demo sessions behave like
// normal ones except that handlers suppress persistence of writes.
type Session struct {
	Token     string
	UserID    int64
	Demo      bool
	ExpiresAt time.Time
}

// CreateSession stores a new session token for the user.
func (r *SQLiteRepository) CreateSession(ctx context.Context, token string, userID int64, demo bool, expiresAt time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO sessions (token, user_id, demo, expires_at) VALUES (?, ?, ?, ?)`,
		token, userID, boolToInt(demo), expiresAt.UTC())
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// GetSession returns a session by token. Expired or unknown tokens
// yield core.ErrNotFound.
func (r *SQLiteRepository) GetSession(ctx context.Context, token string) (Session, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT token, user_id, demo, expires_at FROM sessions WHERE token = ?`, token)

	var (
		s    Session
		demo int
	)
	err := row.Scan(&s.Token, &s.UserID, &demo, &s.ExpiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, core.ErrNotFound
	}
	if err != nil {
		return Session{}, fmt.Errorf("scan session: %w", err)
	}
	s.Demo = demo != 0

	if time.Now().After(s.ExpiresAt) {
		// Lazily drop the expired row; the pruner catches the rest.
		_, _ = r.db.ExecContext(ctx, `DELETE FROM sessions WHERE token = ?`, token)
		return Session{}, core.ErrNotFound
	}
	return s, nil
}

// DeleteSession removes a session (logout).
func (r *SQLiteRepository) DeleteSession(ctx context.Context, token string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE token = ?`, token); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// DeleteExpiredSessions prunes sessions past their expiry and returns
// the number removed.
func (r *SQLiteRepository) DeleteExpiredSessions(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at < ?`, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("expired sessions rows affected: %w", err)
	}
	if n > 0 {
		slog.InfoContext(ctx, "Expired sessions pruned", "count", n)
	}
	return n, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
