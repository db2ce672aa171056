package parser

import (
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/ledgerlens/statement-auditor/internal/extractor"
	"github.com/ledgerlens/statement-auditor/internal/models"
)

// Column names in Revolut xlsx exports.
const (
	colType          = "Type"
	colProduct       = "Product"
	colStartedDate   = "Started Date"
	colCompletedDate = "Completed Date"
	colDescription   = "Description"
	colAmount        = "Amount"
	colFee           = "Fee"
	colCurrency      = "Currency"
	colState         = "State"
	colBalance       = "Balance"
)

// stateCompleted is the only state that makes it into the output; REVERTED
// and PENDING rows are dropped.
const stateCompleted = "COMPLETED"

// DefaultProduct selects the main current account when an export mixes
// products (Current, Savings, Deposit).
const DefaultProduct = "Current"

// RevolutExcelExtractor handles Revolut xlsx account exports. Unlike the
// PDF formats these are fully structured, so it supports transaction
// extraction as well as date extraction.
type RevolutExcelExtractor struct {
	product string
}

func NewRevolutExcelExtractor(product string) *RevolutExcelExtractor {
	return &RevolutExcelExtractor{product: product}
}

func (p *RevolutExcelExtractor) Name() string {
	return "Revolut Excel"
}

var revolutRequiredColumns = []string{
	colType, colProduct, colCompletedDate, colDescription, colAmount, colState,
}

func (p *RevolutExcelExtractor) CanParse(doc *extractor.Document) bool {
	if doc.Rows == nil {
		return false
	}
	have := make(map[string]bool, len(doc.Columns))
	for _, c := range doc.Columns {
		have[c] = true
	}
	for _, c := range revolutRequiredColumns {
		if !have[c] {
			return false
		}
	}
	return true
}

// ExtractDates returns the earliest and latest completed dates among the
// selected product's completed rows.
func (p *RevolutExcelExtractor) ExtractDates(doc *extractor.Document) (DateRange, error) {
	var dates []time.Time
	for _, row := range p.selectRows(doc) {
		if t, ok := parseCellDate(row.Get(colCompletedDate)); ok {
			dates = append(dates, t)
		}
	}
	if len(dates) == 0 {
		return DateRange{}, ErrNoDates
	}

	min, max := dates[0], dates[0]
	for _, t := range dates[1:] {
		if t.Before(min) {
			min = t
		}
		if t.After(max) {
			max = t
		}
	}
	return DateRange{Start: models.FormatDate(min), End: models.FormatDate(max)}, nil
}

// ExtractTransactions converts the selected product's completed rows into
// transactions, ordered by completed date. Rows that fail conversion are
// logged and skipped.
func (p *RevolutExcelExtractor) ExtractTransactions(doc *extractor.Document) []models.Transaction {
	rows := p.selectRows(doc)
	if len(rows) == 0 {
		log.Warn().Str("file", doc.Path).Str("product", p.product).
			Msg("no completed transactions for product")
		return nil
	}

	sort.SliceStable(rows, func(a, b int) bool {
		ta, _ := parseCellDate(rows[a].Get(colCompletedDate))
		tb, _ := parseCellDate(rows[b].Get(colCompletedDate))
		return ta.Before(tb)
	})

	var transactions []models.Transaction
	for _, row := range rows {
		tx, ok := p.rowToTransaction(row)
		if !ok {
			log.Warn().Str("file", doc.Path).Msg("skipping unconvertible row")
			continue
		}
		transactions = append(transactions, tx)
	}

	log.Info().Str("file", doc.Path).Str("product", p.product).
		Int("count", len(transactions)).Msg("extracted spreadsheet transactions")
	return transactions
}

func (p *RevolutExcelExtractor) selectRows(doc *extractor.Document) []extractor.Row {
	var out []extractor.Row
	for _, row := range doc.Rows {
		if row.Get(colProduct) == p.product && row.Get(colState) == stateCompleted {
			out = append(out, row)
		}
	}
	return out
}

func (p *RevolutExcelExtractor) rowToTransaction(row extractor.Row) (models.Transaction, bool) {
	amount, err := parseAmount(row.Get(colAmount))
	if err != nil {
		return models.Transaction{}, false
	}

	// Sign carries the direction: positive is money in.
	txType := models.TypeCredit
	if amount.IsNegative() {
		txType = models.TypeDebit
		amount = amount.Abs()
	}

	dateCell := row.Get(colCompletedDate)
	if dateCell == "" {
		dateCell = row.Get(colStartedDate)
	}
	t, ok := parseCellDate(dateCell)
	if !ok {
		return models.Transaction{}, false
	}

	var balance *decimal.Decimal
	if cell := row.Get(colBalance); cell != "" {
		if v, err := parseAmount(cell); err == nil {
			balance = &v
		}
	}

	var fee *decimal.Decimal
	if cell := row.Get(colFee); cell != "" {
		if v, err := parseAmount(cell); err == nil && !v.IsZero() {
			fee = &v
		}
	}

	currency := row.Get(colCurrency)
	if currency == "" {
		currency = "EUR"
	}

	details := strings.TrimSpace("[" + row.Get(colType) + "] " + row.Get(colDescription))

	return models.Transaction{
		Amount:   amount,
		Currency: currency,
		Type:     txType,
		Details:  details,
		Date:     models.FormatDate(t),
		Balance:  balance,
		Fee:      fee,
	}, true
}

// cellDateLayouts cover the timestamp shapes xlsx cells render to.
var cellDateLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
	"1/2/06 15:04",
	"01-02-06 15:04",
	models.DateLayout,
}

func parseCellDate(cell string) (time.Time, bool) {
	cell = strings.TrimSpace(cell)
	if cell == "" {
		return time.Time{}, false
	}
	for _, layout := range cellDateLayouts {
		if t, err := time.Parse(layout, cell); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
