package core

import (
	"errors"
	"strings"
	"testing"
)

func TestTransactionValidate(t *testing.T) {
	valid := Transaction{
		Date:     NewDate(2025, 3, 15),
		Amount:   Money{Cents: 40000},
		Kind:     Expense,
		Category: "Ocio",
	}

	cases := []struct {
		name    string
		mutate  func(tx *Transaction)
		wantErr error
	}{
		{"valid expense", func(tx *Transaction) {}, nil},
		{"valid income", func(tx *Transaction) {
			tx.Kind = Income
			tx.Category = DefaultIncomeCategory
		}, nil},
		{"zero date", func(tx *Transaction) { tx.Date = Date{} }, ErrInvalidDate},
		{"zero amount", func(tx *Transaction) { tx.Amount = Money{} }, ErrInvalidAmount},
		{"negative amount", func(tx *Transaction) { tx.Amount = Money{Cents: -100} }, ErrInvalidAmount},
		{"unknown kind", func(tx *Transaction) { tx.Kind = "transfer" }, ErrInvalidKind},
		{"empty category", func(tx *Transaction) { tx.Category = "  " }, ErrEmptyCategory},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tx := valid
			tc.mutate(&tx)
			err := tx.Validate()
			if tc.wantErr == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("got %v, want %v", err, tc.wantErr)
			}
		})
	}
}

func TestTransactionValidateLengths(t *testing.T) {
	tx := Transaction{
		Date:        NewDate(2025, 1, 1),
		Amount:      Money{Cents: 100},
		Kind:        Expense,
		Category:    strings.Repeat("x", MaxCategoryLen+1),
		Description: "",
	}
	if err := tx.Validate(); err == nil {
		t.Fatal("expected error for oversized category")
	}
	tx.Category = "Otros"
	tx.Description = strings.Repeat("x", MaxDescriptionLen+1)
	if err := tx.Validate(); err == nil {
		t.Fatal("expected error for oversized description")
	}
}

func TestKindLabel(t *testing.T) {
	if Income.Label() != "Ingreso" || Expense.Label() != "Gasto" {
		t.Fatalf("unexpected labels: %q %q", Income.Label(), Expense.Label())
	}
}

func TestValidateEmail(t *testing.T) {
	cases := []struct {
		email string
		ok    bool
	}{
		{"user@example.com", true},
		{"a@b", true},
		{"", false},
		{"no-at-sign", false},
		{"@example.com", false},
		{"user@", false},
		{"a@b@c", false},
		{strings.Repeat("x", MaxEmailLen) + "@e.com", false},
	}
	for _, tc := range cases {
		err := ValidateEmail(tc.email)
		if tc.ok && err != nil {
			t.Fatalf("ValidateEmail(%q) unexpected error: %v", tc.email, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("ValidateEmail(%q) expected error", tc.email)
		}
	}
}
