package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"findata/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err, "failed to create test database")
	t.Cleanup(func() { repo.Close() })
	return repo
}

func mustCreateUser(t *testing.T, repo *SQLiteRepository, email string) core.User {
	t.Helper()
	u, err := repo.CreateUser(context.Background(), email, "hash")
	require.NoError(t, err)
	return u
}

func mustCreateTransaction(t *testing.T, repo *SQLiteRepository, userID int64, date core.Date, cents int64, kind core.Kind, category string) int64 {
	t.Helper()
	id, err := repo.CreateTransaction(context.Background(), core.Transaction{
		UserID:   userID,
		Date:     date,
		Amount:   core.Money{Cents: cents},
		Kind:     kind,
		Category: category,
	})
	require.NoError(t, err)
	return id
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	u := mustCreateUser(t, repo, "user@example.com")
	assert.NotZero(t, u.ID)
	assert.Equal(t, "user@example.com", u.Email)

	_, err := repo.CreateUser(ctx, "USER@example.com", "otherhash")
	assert.ErrorIs(t, err, ErrEmailTaken, "emails are case-insensitive unique")
}

func TestGetUserByEmailNotFound(t *testing.T) {
	repo := newTestRepo(t)
	_, err := repo.GetUserByEmail(context.Background(), "nobody@example.com")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestCreateAndGetTransaction(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	u := mustCreateUser(t, repo, "user@example.com")

	id := mustCreateTransaction(t, repo, u.ID, core.NewDate(2025, 3, 15), 40000, core.Expense, "Ocio")

	got, err := repo.GetTransaction(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.UserID)
	assert.Equal(t, int64(40000), got.Amount.Cents)
	assert.Equal(t, core.Expense, got.Kind)
	assert.Equal(t, "Ocio", got.Category)
	assert.Equal(t, core.NewDate(2025, 3, 15).Time, got.Date.Time)
}

func TestCreateTransactionRejectsInvalid(t *testing.T) {
	repo := newTestRepo(t)
	u := mustCreateUser(t, repo, "user@example.com")

	_, err := repo.CreateTransaction(context.Background(), core.Transaction{
		UserID:   u.ID,
		Date:     core.NewDate(2025, 1, 1),
		Amount:   core.Money{Cents: 0},
		Kind:     core.Expense,
		Category: "Otros",
	})
	assert.ErrorIs(t, err, core.ErrInvalidAmount)
}

func TestDeleteTransactionOwnership(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	owner := mustCreateUser(t, repo, "owner@example.com")
	intruder := mustCreateUser(t, repo, "intruder@example.com")
	id := mustCreateTransaction(t, repo, owner.ID, core.NewDate(2025, 5, 1), 1500, core.Expense, "Otros")

	err := repo.DeleteTransaction(ctx, id, intruder.ID)
	assert.ErrorIs(t, err, core.ErrNotOwner)

	// Record must survive the denied delete
	_, err = repo.GetTransaction(ctx, id)
	require.NoError(t, err)

	require.NoError(t, repo.DeleteTransaction(ctx, id, owner.ID))
	_, err = repo.GetTransaction(ctx, id)
	assert.ErrorIs(t, err, core.ErrNotFound)

	err = repo.DeleteTransaction(ctx, id, owner.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestListTransactionsFilters(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	u := mustCreateUser(t, repo, "user@example.com")
	other := mustCreateUser(t, repo, "other@example.com")

	mustCreateTransaction(t, repo, u.ID, core.NewDate(2025, 1, 10), 100000, core.Income, core.DefaultIncomeCategory)
	mustCreateTransaction(t, repo, u.ID, core.NewDate(2025, 2, 5), 4000, core.Expense, "Ocio")
	mustCreateTransaction(t, repo, u.ID, core.NewDate(2025, 2, 20), 6000, core.Expense, "Transporte")
	mustCreateTransaction(t, repo, other.ID, core.NewDate(2025, 2, 20), 9999, core.Expense, "Ocio")

	all, err := repo.ListTransactions(ctx, u.ID, TransactionFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3, "listing must be scoped to the user")

	// Date descending
	assert.Equal(t, core.NewDate(2025, 2, 20).Time, all[0].Date.Time)
	assert.Equal(t, core.NewDate(2025, 1, 10).Time, all[2].Date.Time)

	expenses, err := repo.ListTransactions(ctx, u.ID, TransactionFilter{Kind: core.Expense})
	require.NoError(t, err)
	assert.Len(t, expenses, 2)

	ocio, err := repo.ListTransactions(ctx, u.ID, TransactionFilter{Kind: core.Expense, Category: "Ocio"})
	require.NoError(t, err)
	require.Len(t, ocio, 1)
	assert.Equal(t, int64(4000), ocio[0].Amount.Cents)

	feb, err := repo.ListTransactions(ctx, u.ID, TransactionFilter{
		From: core.NewDate(2025, 2, 1),
		To:   core.NewDate(2025, 2, 28),
	})
	require.NoError(t, err)
	assert.Len(t, feb, 2)
}

func TestMonthlyTotals(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	u := mustCreateUser(t, repo, "user@example.com")

	mustCreateTransaction(t, repo, u.ID, core.NewDate(2025, 3, 1), 100000, core.Income, core.DefaultIncomeCategory)
	mustCreateTransaction(t, repo, u.ID, core.NewDate(2025, 3, 12), 40000, core.Expense, "Ocio")
	mustCreateTransaction(t, repo, u.ID, core.NewDate(2025, 3, 20), 10000, core.Expense, "Ocio")
	mustCreateTransaction(t, repo, u.ID, core.NewDate(2024, 3, 20), 7777, core.Expense, "Ocio") // other year

	totals, err := repo.MonthlyTotals(ctx, u.ID, 2025)
	require.NoError(t, err)
	require.Len(t, totals, 2)

	byKind := map[core.Kind]int64{}
	for _, row := range totals {
		assert.Equal(t, 3, row.Month)
		byKind[row.Kind] = row.TotalCents
	}
	assert.Equal(t, int64(100000), byKind[core.Income])
	assert.Equal(t, int64(50000), byKind[core.Expense])
}

func TestCategoryTotalsOrder(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	u := mustCreateUser(t, repo, "user@example.com")

	mustCreateTransaction(t, repo, u.ID, core.NewDate(2025, 1, 1), 1000, core.Expense, "Ocio")
	mustCreateTransaction(t, repo, u.ID, core.NewDate(2025, 2, 1), 9000, core.Expense, "Vivienda")
	mustCreateTransaction(t, repo, u.ID, core.NewDate(2025, 3, 1), 3000, core.Expense, "Ocio")
	mustCreateTransaction(t, repo, u.ID, core.NewDate(2025, 3, 1), 5000, core.Income, core.DefaultIncomeCategory)

	totals, err := repo.CategoryTotals(ctx, u.ID, 2025)
	require.NoError(t, err)
	require.Len(t, totals, 2, "incomes must not appear in the expense breakdown")
	assert.Equal(t, "Vivienda", totals[0].Category)
	assert.Equal(t, int64(9000), totals[0].TotalCents)
	assert.Equal(t, "Ocio", totals[1].Category)
	assert.Equal(t, int64(4000), totals[1].TotalCents)
}

func TestSessionsLifecycle(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	u := mustCreateUser(t, repo, "user@example.com")

	require.NoError(t, repo.CreateSession(ctx, "tok-1", u.ID, false, time.Now().Add(time.Hour)))
	require.NoError(t, repo.CreateSession(ctx, "tok-demo", u.ID, true, time.Now().Add(time.Hour)))
	require.NoError(t, repo.CreateSession(ctx, "tok-old", u.ID, false, time.Now().Add(-time.Hour)))

	s, err := repo.GetSession(ctx, "tok-1")
	require.NoError(t, err)
	assert.Equal(t, u.ID, s.UserID)
	assert.False(t, s.Demo)

	demo, err := repo.GetSession(ctx, "tok-demo")
	require.NoError(t, err)
	assert.True(t, demo.Demo)

	_, err = repo.GetSession(ctx, "tok-old")
	assert.ErrorIs(t, err, core.ErrNotFound, "expired sessions are invalid")

	_, err = repo.GetSession(ctx, "unknown")
	assert.ErrorIs(t, err, core.ErrNotFound)

	require.NoError(t, repo.DeleteSession(ctx, "tok-1"))
	_, err = repo.GetSession(ctx, "tok-1")
	assert.ErrorIs(t, err, core.ErrNotFound)

	n, err := repo.DeleteExpiredSessions(ctx)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, n, int64(0))
}
