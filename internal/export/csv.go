// Package export serializes filtered transaction listings to flat
// tabular formats: delimited text and Excel workbooks. Row order is
// whatever the store produced (date descending).
package export

import (
	"encoding/csv"
	"fmt"
	"io"

	"findata/internal/core"
)

// Header is the column header shared by both export formats.
var Header = []string{"Fecha", "Tipo", "Categoría", "Cantidad", "Descripción"}

const dateLayout = "2006-01-02"

// WriteCSV writes the transactions as comma-separated text with a
// header row. Amounts carry exactly two decimals; the kind is mapped
// to its human label.
func WriteCSV(w io.Writer, txs []core.Transaction) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, t := range txs {
		if err := cw.Write(row(t)); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

func row(t core.Transaction) []string {
	return []string{
		t.Date.Time.Format(dateLayout),
		t.Kind.Label(),
		t.Category,
		t.Amount.Format(),
		t.Description,
	}
}
