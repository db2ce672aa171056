package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerlens/statement-auditor/internal/extractor"
	"github.com/ledgerlens/statement-auditor/internal/models"
)

var revolutColumns = []string{
	"Type", "Product", "Started Date", "Completed Date", "Description",
	"Amount", "Fee", "Currency", "State", "Balance",
}

func excelRow(kv map[string]string) extractor.Row {
	row := make(extractor.Row, len(kv))
	for k, v := range kv {
		row[k] = v
	}
	return row
}

func excelDoc(rows ...extractor.Row) *extractor.Document {
	return &extractor.Document{
		Path:    "account.xlsx",
		Columns: revolutColumns,
		Rows:    rows,
	}
}

func TestRevolutExcelExtractor_CanParse(t *testing.T) {
	p := NewRevolutExcelExtractor(DefaultProduct)

	assert.True(t, p.CanParse(excelDoc(excelRow(map[string]string{}))))

	// PDF documents have no rows and must be rejected.
	assert.False(t, p.CanParse(&extractor.Document{
		Path:  "statement.pdf",
		Pages: []extractor.Page{{Text: "Type Product Amount State"}},
	}))

	// A spreadsheet missing required columns is not a Revolut export.
	assert.False(t, p.CanParse(&extractor.Document{
		Path:    "other.xlsx",
		Columns: []string{"Date", "Description", "Value"},
		Rows:    []extractor.Row{{}},
	}))
}

func TestRevolutExcelExtractor_ExtractTransactions(t *testing.T) {
	p := NewRevolutExcelExtractor(DefaultProduct)

	doc := excelDoc(
		excelRow(map[string]string{
			"Type": "CARD_PAYMENT", "Product": "Current",
			"Started Date": "2024-01-14 09:30:00", "Completed Date": "2024-01-15 10:00:00",
			"Description": "Tesco", "Amount": "-45.67", "Fee": "0",
			"Currency": "EUR", "State": "COMPLETED", "Balance": "954.33",
		}),
		excelRow(map[string]string{
			"Type": "TRANSFER", "Product": "Current",
			"Started Date": "2024-01-10 08:00:00", "Completed Date": "2024-01-10 08:00:05",
			"Description": "Salary", "Amount": "2000.00", "Fee": "1.50",
			"Currency": "EUR", "State": "COMPLETED", "Balance": "1000.00",
		}),
		// Wrong product: excluded.
		excelRow(map[string]string{
			"Type": "TOPUP", "Product": "Savings",
			"Completed Date": "2024-01-12 12:00:00",
			"Description":    "Vault", "Amount": "100.00", "State": "COMPLETED",
		}),
		// Reverted: excluded.
		excelRow(map[string]string{
			"Type": "CARD_PAYMENT", "Product": "Current",
			"Completed Date": "2024-01-13 12:00:00",
			"Description":    "Refunded purchase", "Amount": "-9.99", "State": "REVERTED",
		}),
	)

	txs := p.ExtractTransactions(doc)
	require.Len(t, txs, 2)

	// Sorted by completed date: the salary transfer comes first.
	assert.Equal(t, models.TypeCredit, txs[0].Type)
	assert.Equal(t, "2000", txs[0].Amount.String())
	assert.Equal(t, "10 Jan 2024", txs[0].Date)
	assert.Equal(t, "[TRANSFER] Salary", txs[0].Details)
	require.NotNil(t, txs[0].Fee)
	assert.Equal(t, "1.5", txs[0].Fee.String())

	assert.Equal(t, models.TypeDebit, txs[1].Type)
	assert.Equal(t, "45.67", txs[1].Amount.String())
	assert.Equal(t, "15 Jan 2024", txs[1].Date)
	assert.Nil(t, txs[1].Fee, "zero fee must be omitted")
	require.NotNil(t, txs[1].Balance)
	assert.Equal(t, "954.33", txs[1].Balance.String())
}

func TestRevolutExcelExtractor_StartedDateFallback(t *testing.T) {
	p := NewRevolutExcelExtractor(DefaultProduct)

	doc := excelDoc(excelRow(map[string]string{
		"Type": "CARD_PAYMENT", "Product": "Current",
		"Started Date": "2024-02-01 09:00:00", "Completed Date": "",
		"Description": "Pending settled", "Amount": "-5.00", "State": "COMPLETED",
	}))

	txs := p.ExtractTransactions(doc)
	require.Len(t, txs, 1)
	assert.Equal(t, "1 Feb 2024", txs[0].Date)
}

func TestRevolutExcelExtractor_ExtractDates(t *testing.T) {
	p := NewRevolutExcelExtractor(DefaultProduct)

	doc := excelDoc(
		excelRow(map[string]string{
			"Product": "Current", "State": "COMPLETED",
			"Completed Date": "2024-01-20 10:00:00", "Amount": "-1.00",
		}),
		excelRow(map[string]string{
			"Product": "Current", "State": "COMPLETED",
			"Completed Date": "2024-01-05 10:00:00", "Amount": "-2.00",
		}),
		excelRow(map[string]string{
			"Product": "Savings", "State": "COMPLETED",
			"Completed Date": "2024-03-01 10:00:00", "Amount": "9.00",
		}),
	)

	dates, err := p.ExtractDates(doc)
	require.NoError(t, err)
	assert.Equal(t, "5 Jan 2024", dates.Start)
	assert.Equal(t, "20 Jan 2024", dates.End)
}

func TestRevolutExcelExtractor_ExtractDates_NoRows(t *testing.T) {
	p := NewRevolutExcelExtractor(DefaultProduct)

	_, err := p.ExtractDates(excelDoc())
	assert.ErrorIs(t, err, ErrNoDates)
}

func TestRevolutExcelExtractor_OtherProduct(t *testing.T) {
	p := NewRevolutExcelExtractor("Savings")

	doc := excelDoc(
		excelRow(map[string]string{
			"Product": "Current", "State": "COMPLETED",
			"Completed Date": "2024-01-05 10:00:00", "Amount": "-2.00",
		}),
		excelRow(map[string]string{
			"Type": "TOPUP", "Product": "Savings", "State": "COMPLETED",
			"Completed Date": "2024-03-01 10:00:00", "Amount": "9.00", "Description": "Vault",
		}),
	)

	txs := p.ExtractTransactions(doc)
	require.Len(t, txs, 1)
	assert.Equal(t, "[TOPUP] Vault", txs[0].Details)
}
