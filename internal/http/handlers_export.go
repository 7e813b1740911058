package http

import (
	"fmt"
	"net/http"
	"time"

	"findata/internal/core"
	"findata/internal/export"
	applog "findata/internal/log"
)

// handleExportCSV streams the acting user's transactions as a CSV
// download, honoring the same filter params as the listing page.
func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	txs, ok := s.exportRows(w, r)
	if !ok {
		return
	}
	logger := applog.FromContext(r.Context())

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", exportFilename("csv")))
	if err := export.WriteCSV(w, txs); err != nil {
		logger.ErrorContext(r.Context(), "Failed to write CSV export",
			applog.FieldFormat, "csv", "error", err)
		return
	}
	logger.InfoContext(r.Context(), "Export completed",
		applog.FieldFormat, "csv", applog.FieldRows, len(txs))
}

// handleExportExcel streams the same filtered rows as an xlsx
// download.
func (s *Server) handleExportExcel(w http.ResponseWriter, r *http.Request) {
	txs, ok := s.exportRows(w, r)
	if !ok {
		return
	}
	logger := applog.FromContext(r.Context())

	w.Header().Set("Content-Type",
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", exportFilename("xlsx")))
	if err := export.WriteExcel(w, txs); err != nil {
		logger.ErrorContext(r.Context(), "Failed to write Excel export",
			applog.FieldFormat, "xlsx", "error", err)
		return
	}
	logger.InfoContext(r.Context(), "Export completed",
		applog.FieldFormat, "xlsx", applog.FieldRows, len(txs))
}

// exportRows resolves the filter and loads the rows to export. On
// failure it writes the error response itself and reports ok=false.
func (s *Server) exportRows(w http.ResponseWriter, r *http.Request) ([]core.Transaction, bool) {
	user := currentUser(r)

	filter, err := buildFilter(readFilterValues(r))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return nil, false
	}
	txs, err := s.store.ListTransactions(r.Context(), user.ID, filter)
	if err != nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(),
			"Failed to list transactions for export", "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return nil, false
	}
	return txs, true
}

func exportFilename(ext string) string {
	return fmt.Sprintf("movimientos_%s.%s", time.Now().Format("2006-01-02"), ext)
}
