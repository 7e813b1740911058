// Package auth handles password hashing, login verification and the
// session lifecycle, including the demo sessions whose writes are
// never persisted.
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"findata/internal/core"
	"findata/internal/storage"
)

// ErrInvalidCredentials is returned for any failed login. Unknown
// email and wrong password are deliberately indistinguishable.
var ErrInvalidCredentials = errors.New("invalid email or password")

// Service owns everything session- and password-related.
type Service struct {
	store      *storage.SQLiteRepository
	sessionTTL time.Duration
	bcryptCost int
	demoEmail  string
}

func NewService(store *storage.SQLiteRepository, sessionTTL time.Duration, bcryptCost int, demoEmail string) *Service {
	return &Service{
		store:      store,
		sessionTTL: sessionTTL,
		bcryptCost: bcryptCost,
		demoEmail:  demoEmail,
	}
}

// HashPassword derives a bcrypt hash from the plaintext password.
func (s *Service) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword reports whether the plaintext matches the stored hash.
func (s *Service) CheckPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// Register validates the form input, hashes the password and creates
// the account. storage.ErrEmailTaken passes through for the handler to
// report as a field error.
func (s *Service) Register(ctx context.Context, email, password string) (core.User, error) {
	if err := core.ValidateEmail(email); err != nil {
		return core.User{}, err
	}
	if err := core.ValidatePassword(password); err != nil {
		return core.User{}, err
	}

	hash, err := s.HashPassword(password)
	if err != nil {
		return core.User{}, err
	}

	user, err := s.store.CreateUser(ctx, email, hash)
	if err != nil {
		return core.User{}, err
	}

	slog.InfoContext(ctx, "Account registered", "user_id", user.ID, "email", user.Email)
	return user, nil
}

// Authenticate verifies the credentials and returns the user. Every
// failure maps to ErrInvalidCredentials.
func (s *Service) Authenticate(ctx context.Context, email, password string) (core.User, error) {
	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		// Burn comparable time so unknown emails are not detectable
		// through response timing.
		_ = bcrypt.CompareHashAndPassword(
			[]byte("$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"),
			[]byte(password))
		return core.User{}, ErrInvalidCredentials
	}
	if !s.CheckPassword(password, user.PasswordHash) {
		return core.User{}, ErrInvalidCredentials
	}
	return user, nil
}

// StartSession creates a session for the user and returns its token.
func (s *Service) StartSession(ctx context.Context, userID int64, demo bool) (string, error) {
	token := uuid.NewString()
	expiresAt := time.Now().Add(s.sessionTTL)

	if err := s.store.CreateSession(ctx, token, userID, demo, expiresAt); err != nil {
		return "", fmt.Errorf("start session: %w", err)
	}

	slog.InfoContext(ctx, "Session started", "user_id", userID, "demo", demo)
	return token, nil
}

// EndSession removes the session.
func (s *Service) EndSession(ctx context.Context, token string) error {
	return s.store.DeleteSession(ctx, token)
}

// Resolve returns the session and user for a token, or
// core.ErrNotFound for missing/expired ones.
func (s *Service) Resolve(ctx context.Context, token string) (storage.Session, core.User, error) {
	session, err := s.store.GetSession(ctx, token)
	if err != nil {
		return storage.Session{}, core.User{}, err
	}
	user, err := s.store.GetUserByID(ctx, session.UserID)
	if err != nil {
		return storage.Session{}, core.User{}, err
	}
	return session, user, nil
}

// StartDemoSession makes sure the shared demo account exists, seeds it
// with sample data on first use and opens a demo-flagged session.
func (s *Service) StartDemoSession(ctx context.Context) (string, error) {
	user, err := s.store.GetUserByEmail(ctx, s.demoEmail)
	if errors.Is(err, core.ErrNotFound) {
		user, err = s.createDemoUser(ctx)
	}
	if err != nil {
		return "", fmt.Errorf("demo user: %w", err)
	}

	if err := s.seedDemoData(ctx, user.ID); err != nil {
		slog.WarnContext(ctx, "Demo seed failed", "error", err)
	}

	return s.StartSession(ctx, user.ID, true)
}

func (s *Service) createDemoUser(ctx context.Context) (core.User, error) {
	// Random unguessable password; the demo account is only ever
	// entered through demo sessions.
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return core.User{}, fmt.Errorf("demo password: %w", err)
	}
	hash, err := s.HashPassword(hex.EncodeToString(raw))
	if err != nil {
		return core.User{}, err
	}

	user, err := s.store.CreateUser(ctx, s.demoEmail, hash)
	if errors.Is(err, storage.ErrEmailTaken) {
		return s.store.GetUserByEmail(ctx, s.demoEmail)
	}
	return user, err
}

// seedDemoData populates the demo account once with a few months of
// plausible activity so the dashboard and analytics pages have
// something to show.
func (s *Service) seedDemoData(ctx context.Context, userID int64) error {
	count, err := s.store.CountTransactions(ctx, userID)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	now := time.Now()
	expenses := []struct {
		category string
		cents    int64
	}{
		{"Alimentación", 32050},
		{"Vivienda", 65000},
		{"Transporte", 9800},
		{"Ocio", 14500},
	}

	for back := 0; back < 6; back++ {
		month := now.AddDate(0, -back, 0)
		date := core.NewDate(month.Year(), int(month.Month()), 5)

		if _, err := s.store.CreateTransaction(ctx, core.Transaction{
			UserID:      userID,
			Date:        date,
			Amount:      core.Money{Cents: 180000},
			Kind:        core.Income,
			Category:    core.DefaultIncomeCategory,
			Description: "Nómina",
		}); err != nil {
			return err
		}

		for i, e := range expenses {
			// Small per-month drift keeps the charts from being flat
			cents := e.cents + int64(back*700) - int64(i*300)
			if _, err := s.store.CreateTransaction(ctx, core.Transaction{
				UserID:   userID,
				Date:     core.NewDate(month.Year(), int(month.Month()), 8+i*5),
				Amount:   core.Money{Cents: cents},
				Kind:     core.Expense,
				Category: e.category,
			}); err != nil {
				return err
			}
		}
	}

	slog.InfoContext(ctx, "Demo data seeded", "user_id", userID)
	return nil
}

// PruneSessions periodically removes expired sessions until the
// context is cancelled.
func (s *Service) PruneSessions(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := s.store.DeleteExpiredSessions(ctx); err != nil {
				slog.WarnContext(ctx, "Session prune failed", "error", err)
			}
		case <-ctx.Done():
			return
		}
	}
}
