package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType is the direction of a transaction. Amounts are always
// positive; the type says which way the money moved.
type TransactionType string

const (
	TypeDebit  TransactionType = "Debit"
	TypeCredit TransactionType = "Credit"
)

// DateLayout is the date string form used throughout: "D MMM YYYY" with an
// unpadded day, e.g. "5 Mar 2018". It is both the internal intermediate
// representation and the printed output form.
const DateLayout = "2 Jan 2006"

// ParseDate parses a "D MMM YYYY" date string.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, strings.TrimSpace(s))
}

// FormatDate renders a time in the "D MMM YYYY" form. FormatDate and
// ParseDate round-trip losslessly for any calendar date.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// Transaction is a single ledger entry extracted from a statement.
type Transaction struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
	Type     TransactionType `json:"transactionType"`
	Details  string          `json:"details"`
	// Date is the transaction date in "D MMM YYYY" form.
	Date string `json:"transactionDate"`

	// Balance is the running balance stated immediately after this
	// transaction, when the source printed one.
	Balance   *decimal.Decimal `json:"balance,omitempty"`
	Reference string           `json:"reference,omitempty"`

	// FX annotations, present only for cross-currency entries.
	OriginalCurrency string           `json:"originalCurrency,omitempty"`
	OriginalAmount   *decimal.Decimal `json:"originalAmount,omitempty"`
	ExchangeRate     *decimal.Decimal `json:"exchangeRate,omitempty"`
	FXFee            *decimal.Decimal `json:"fxFee,omitempty"`

	// Fee is a separate per-transaction fee (spreadsheet exports).
	Fee *decimal.Decimal `json:"fee,omitempty"`
	// PostingDate is the secondary date used by card statements.
	PostingDate string `json:"postingDate,omitempty"`
}

// IsOpeningBalance reports whether this entry only seeds the running
// balance (BALANCE FORWARD / OPENING BALANCE). Such entries carry amount 0.
func (t Transaction) IsOpeningBalance() bool {
	upper := strings.ToUpper(t.Details)
	return strings.Contains(upper, "BALANCE FORWARD") || strings.Contains(upper, "OPENING BALANCE")
}

// StatementInfo is the per-file extraction result.
type StatementInfo struct {
	FileName        string    `json:"fileName"`
	FilePath        string    `json:"filePath"`
	StartDate       string    `json:"startDate,omitempty"`
	EndDate         string    `json:"endDate,omitempty"`
	StartDateParsed time.Time `json:"startDateParsed,omitempty"`
	EndDateParsed   time.Time `json:"endDateParsed,omitempty"`
	ModifiedAt      time.Time `json:"modifiedAt"`
	FileSignature   string    `json:"fileSignature"`
	Error           string    `json:"error,omitempty"`
	ParserName      string    `json:"parserName,omitempty"`
}

// StatementBreak is a coverage gap between two chronologically adjacent
// statements.
type StatementBreak struct {
	PreviousFile    string `json:"previousFile"`
	PreviousEndDate string `json:"previousEndDate"`
	NextFile        string `json:"nextFile"`
	NextStartDate   string `json:"nextStartDate"`
	GapDays         int    `json:"gapDays"`
}

// DuplicateGroup is a set of files sharing identical byte content.
type DuplicateGroup struct {
	Signature string   `json:"signature"`
	Files     []string `json:"files"`
}

// AnalysisSummary aggregates the analysis across a statement directory.
type AnalysisSummary struct {
	TotalFiles            int              `json:"totalFiles"`
	ContinuousPeriodStart string           `json:"continuousPeriodStart"`
	ContinuousPeriodEnd   string           `json:"continuousPeriodEnd"`
	TotalDaysCovered      int              `json:"totalDaysCovered"`
	Duplicates            []DuplicateGroup `json:"duplicates"`
	Breaks                []StatementBreak `json:"breaks"`
}

// StatementsAnalysis is the complete result for one directory.
type StatementsAnalysis struct {
	Statements []StatementInfo `json:"statements"`
	Summary    AnalysisSummary `json:"summary"`
}
