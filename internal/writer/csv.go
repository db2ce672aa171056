// Package writer renders extracted transactions as CSV.
package writer

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"github.com/ledgerlens/statement-auditor/internal/models"
)

var csvHeader = []string{"Date", "Details", "Type", "Amount", "Currency", "Balance", "Reference"}

// WriteTransactions writes transactions as CSV, header first. Optional
// fields render as empty cells.
func WriteTransactions(w io.Writer, transactions []models.Transaction) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	for _, tx := range transactions {
		balance := ""
		if tx.Balance != nil {
			balance = tx.Balance.StringFixed(2)
		}
		record := []string{
			tx.Date,
			tx.Details,
			string(tx.Type),
			tx.Amount.StringFixed(2),
			tx.Currency,
			balance,
			tx.Reference,
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write csv record: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteToFile writes transactions as a CSV file at path.
func WriteToFile(path string, transactions []models.Transaction) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %q: %w", path, err)
	}
	if err := WriteTransactions(f, transactions); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
