package core

import (
	"errors"
	"strings"
	"time"
)

const (
	Income  Kind = "income"
	Expense Kind = "expense"

	// DefaultIncomeCategory is assigned to incomes, which carry no
	// user-picked category.
	DefaultIncomeCategory = "General"

	MaxDescriptionLen = 255
	MaxCategoryLen    = 64
	MaxEmailLen       = 120
	MinPasswordLen    = 6
)

type (
	// Kind discriminates an income transaction from an expense one.
	Kind string

	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	// Transaction is a dated monetary movement owned by a user. Amount is
	// always a non-negative magnitude; the sign semantics live in Kind.
	Transaction struct {
		ID          int64
		UserID      int64
		Date        Date
		Amount      Money
		Kind        Kind
		Category    string
		Description string
		CreatedAt   time.Time
	}

	User struct {
		ID           int64
		Email        string
		PasswordHash string
		CreatedAt    time.Time
	}
)

var (
	ErrInvalidDate     = errors.New("invalid date")
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrInvalidKind     = errors.New("invalid transaction kind")
	ErrEmptyCategory   = errors.New("empty category")
	ErrInvalidEmail    = errors.New("invalid email")
	ErrPasswordTooWeak = errors.New("password too short")
	ErrNotFound        = errors.New("not found")
	ErrNotOwner        = errors.New("transaction owned by another user")
)

// IsValid returns true for the two known transaction kinds.
func (k Kind) IsValid() bool {
	return k == Income || k == Expense
}

// Label returns the human-readable label used in listings and exports.
func (k Kind) Label() string {
	switch k {
	case Income:
		return "Ingreso"
	case Expense:
		return "Gasto"
	default:
		return string(k)
	}
}

// NewDate creates a Date for a calendar day; the time component is
// always midnight UTC.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates a time.Time to its calendar day.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// Day returns the day of the month
func (d Date) Day() int {
	return d.Time.Day()
}

// Month returns the month as 1-12
func (d Date) Month() int {
	return int(d.Time.Month())
}

// Year returns the year
func (d Date) Year() int {
	return d.Time.Year()
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (t Transaction) Validate() error {
	if err := t.Date.Validate(); err != nil {
		return err
	}
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if !t.Kind.IsValid() {
		return ErrInvalidKind
	}
	if strings.TrimSpace(t.Category) == "" {
		return ErrEmptyCategory
	}
	if len(t.Category) > MaxCategoryLen {
		return errors.New("category too long (max 64 characters)")
	}
	if len(t.Description) > MaxDescriptionLen {
		return errors.New("description too long (max 255 characters)")
	}
	return nil
}

// ValidateEmail applies the same lightweight checks the registration
// form performs: non-empty, bounded length, a single @ with both sides
// populated.
func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" || len(email) > MaxEmailLen {
		return ErrInvalidEmail
	}
	at := strings.Index(email, "@")
	if at <= 0 || at == len(email)-1 || strings.Count(email, "@") != 1 {
		return ErrInvalidEmail
	}
	return nil
}

// ValidatePassword enforces the minimum password length.
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLen {
		return ErrPasswordTooWeak
	}
	return nil
}
