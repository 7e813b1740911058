package http

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"findata/internal/core"
	applog "findata/internal/log"
	"findata/internal/storage"
)

const demoNotice = "Sesión de demostración: los cambios no se guardan"

type transactionsPage struct {
	pageData
	Transactions []core.Transaction
	Categories   []string
	Kind         core.Kind
	Filter       filterValues
	ExportQuery  string
}

type filterValues struct {
	Kind     string
	Category string
	From     string
	To       string
}

func (s *Server) handleExpenses(w http.ResponseWriter, r *http.Request) {
	s.renderKindPage(w, r, core.Expense, "expenses.html", "Gastos")
}

func (s *Server) handleIncomes(w http.ResponseWriter, r *http.Request) {
	s.renderKindPage(w, r, core.Income, "incomes.html", "Ingresos")
}

func (s *Server) renderKindPage(w http.ResponseWriter, r *http.Request, kind core.Kind, tmpl, title string) {
	user := currentUser(r)

	txs, err := s.store.ListTransactions(r.Context(), user.ID, storage.TransactionFilter{Kind: kind})
	if err != nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(),
			"Failed to list transactions", "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	categories, err := s.store.Categories(r.Context(), user.ID)
	if err != nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(),
			"Failed to list categories", "error", err)
		categories = nil
	}

	page := transactionsPage{
		pageData:     s.basePage(r, title),
		Transactions: txs,
		Categories:   categories,
		Kind:         kind,
	}
	page.Flash = s.popFlash(w, r)
	s.render(w, r, tmpl, page)
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	s.createTransaction(w, r, core.Expense, "/expenses")
}

func (s *Server) handleCreateIncome(w http.ResponseWriter, r *http.Request) {
	s.createTransaction(w, r, core.Income, "/incomes")
}

func (s *Server) createTransaction(w http.ResponseWriter, r *http.Request, kind core.Kind, back string) {
	user := currentUser(r)
	sess := currentSession(r)
	logger := applog.FromContext(r.Context())

	tx, err := s.parseTransactionForm(r, user.ID, kind)
	if err != nil {
		s.setFlash(w, formError(err), "error")
		http.Redirect(w, r, back, http.StatusSeeOther)
		return
	}

	// Demo sessions get the full validation pass and a success
	// notice, but nothing touches the database.
	if sess.Demo {
		s.setFlash(w, demoNotice, "info")
		http.Redirect(w, r, back, http.StatusSeeOther)
		return
	}

	id, err := s.store.CreateTransaction(r.Context(), tx)
	if err != nil {
		logger.ErrorContext(r.Context(), "Failed to create transaction",
			applog.FieldKind, string(kind), "error", err)
		s.setFlash(w, formError(err), "error")
		http.Redirect(w, r, back, http.StatusSeeOther)
		return
	}
	s.chartCache.invalidatePrefix(userCachePrefix(user.ID))
	logger.InfoContext(r.Context(), "Transaction created",
		applog.FieldTransactionID, id,
		applog.FieldKind, string(kind),
		applog.FieldAmountCents, tx.Amount.Cents)

	s.setFlash(w, kind.Label()+" registrado correctamente", "success")
	http.Redirect(w, r, back, http.StatusSeeOther)
}

func (s *Server) parseTransactionForm(r *http.Request, userID int64, kind core.Kind) (core.Transaction, error) {
	dateStr := strings.TrimSpace(r.PostFormValue("date"))
	day, err := time.Parse("2006-01-02", dateStr)
	if err != nil {
		return core.Transaction{}, core.ErrInvalidDate
	}
	cents, err := core.ParseDecimalToCents(r.PostFormValue("amount"))
	if err != nil {
		return core.Transaction{}, core.ErrInvalidAmount
	}
	category := strings.TrimSpace(r.PostFormValue("category"))
	if category == "" && kind == core.Income {
		category = core.DefaultIncomeCategory
	}
	tx := core.Transaction{
		UserID:      userID,
		Date:        core.DateOf(day),
		Amount:      core.Money{Cents: cents},
		Kind:        kind,
		Category:    category,
		Description: strings.TrimSpace(r.PostFormValue("description")),
	}
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}
	return tx, nil
}

func formError(err error) string {
	switch {
	case errors.Is(err, core.ErrInvalidDate):
		return "Introduce una fecha válida"
	case errors.Is(err, core.ErrInvalidAmount):
		return "Introduce una cantidad mayor que cero"
	case errors.Is(err, core.ErrEmptyCategory):
		return "La categoría no puede estar vacía"
	default:
		return "No se pudo guardar el movimiento: " + err.Error()
	}
}

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)

	values := readFilterValues(r)
	filter, err := buildFilter(values)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	txs, err := s.store.ListTransactions(r.Context(), user.ID, filter)
	if err != nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(),
			"Failed to list transactions", "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	categories, err := s.store.Categories(r.Context(), user.ID)
	if err != nil {
		categories = nil
	}

	page := transactionsPage{
		pageData:     s.basePage(r, "Movimientos"),
		Transactions: txs,
		Categories:   categories,
		Filter:       values,
		ExportQuery:  values.query(),
	}
	page.Flash = s.popFlash(w, r)
	s.render(w, r, "transactions.html", page)
}

// readFilterValues pulls the raw filter params from the query
// string. Exports accept the same params as the listing page.
func readFilterValues(r *http.Request) filterValues {
	q := r.URL.Query()
	return filterValues{
		Kind:     strings.TrimSpace(q.Get("type")),
		Category: strings.TrimSpace(q.Get("category")),
		From:     strings.TrimSpace(q.Get("date_from")),
		To:       strings.TrimSpace(q.Get("date_to")),
	}
}

// buildFilter validates the raw query values. Unknown kinds and
// malformed dates are client errors.
func buildFilter(v filterValues) (storage.TransactionFilter, error) {
	var f storage.TransactionFilter
	if v.Kind != "" {
		kind := core.Kind(v.Kind)
		if !kind.IsValid() {
			return f, fmt.Errorf("unknown type %q", v.Kind)
		}
		f.Kind = kind
	}
	f.Category = v.Category
	if v.From != "" {
		day, err := time.Parse("2006-01-02", v.From)
		if err != nil {
			return f, fmt.Errorf("invalid date_from %q", v.From)
		}
		f.From = core.DateOf(day)
	}
	if v.To != "" {
		day, err := time.Parse("2006-01-02", v.To)
		if err != nil {
			return f, fmt.Errorf("invalid date_to %q", v.To)
		}
		f.To = core.DateOf(day)
	}
	return f, nil
}

// filterQuery rebuilds the query string for links that must carry
// the active filter, such as the export buttons.
func (v filterValues) query() string {
	q := url.Values{}
	if v.Kind != "" {
		q.Set("type", v.Kind)
	}
	if v.Category != "" {
		q.Set("category", v.Category)
	}
	if v.From != "" {
		q.Set("date_from", v.From)
	}
	if v.To != "" {
		q.Set("date_to", v.To)
	}
	if len(q) == 0 {
		return ""
	}
	return "?" + q.Encode()
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	sess := currentSession(r)
	logger := applog.FromContext(r.Context())

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid transaction id", http.StatusBadRequest)
		return
	}
	back := r.Referer()
	if back == "" {
		back = "/transactions"
	}

	if sess.Demo {
		s.setFlash(w, demoNotice, "info")
		http.Redirect(w, r, back, http.StatusSeeOther)
		return
	}

	err = s.store.DeleteTransaction(r.Context(), id, user.ID)
	switch {
	case errors.Is(err, core.ErrNotFound):
		s.setFlash(w, "El movimiento no existe", "error")
	case errors.Is(err, core.ErrNotOwner):
		logger.WarnContext(r.Context(), "Refused cross-user delete",
			applog.FieldTransactionID, id)
		s.setFlash(w, "No puedes borrar movimientos de otro usuario", "error")
	case err != nil:
		logger.ErrorContext(r.Context(), "Failed to delete transaction",
			applog.FieldTransactionID, id, "error", err)
		s.setFlash(w, "No se pudo borrar el movimiento", "error")
	default:
		s.chartCache.invalidatePrefix(userCachePrefix(user.ID))
		s.setFlash(w, "Movimiento eliminado", "success")
	}
	http.Redirect(w, r, back, http.StatusSeeOther)
}

func userCachePrefix(userID int64) string {
	return strconv.FormatInt(userID, 10) + ":"
}
