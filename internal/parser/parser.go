package parser

import (
	"errors"
	"fmt"

	"github.com/ledgerlens/statement-auditor/internal/extractor"
	"github.com/ledgerlens/statement-auditor/internal/models"
)

// DateRange is a statement's coverage period in "D MMM YYYY" string form.
type DateRange struct {
	Start string
	End   string
}

// Sentinel errors for the recoverable extraction failures. They surface as
// per-file error strings at the batch level, never as crashes.
var (
	// ErrNoEndDate: the mandatory statement end date could not be located.
	ErrNoEndDate = errors.New("no statement end date found")
	// ErrNoDates: the format yielded no usable dates at all.
	ErrNoDates = errors.New("no statement dates found")
	// ErrNoParser: no registered format recognizer matched the document.
	ErrNoParser = errors.New("no registered parser recognizes this statement")
)

// Parser recognizes one statement format and extracts its date range.
type Parser interface {
	// Name is the human-readable format name, e.g. "AIB Debit Account".
	Name() string
	// CanParse inspects the document's first page or sheet and reports
	// whether this parser handles the format.
	CanParse(doc *extractor.Document) bool
	// ExtractDates returns the statement's (start, end) dates. The end
	// date is mandatory; the start date always has a fallback.
	ExtractDates(doc *extractor.Document) (DateRange, error)
}

// TransactionExtractor is the optional capability of parsers that can also
// extract full transaction records. Implementations return an empty slice
// on any internal failure; errors never cross the file boundary.
type TransactionExtractor interface {
	ExtractTransactions(doc *extractor.Document) []models.Transaction
}

// Registry dispatches documents to format parsers in registration order;
// the first parser whose CanParse returns true wins.
type Registry struct {
	parsers []Parser
}

// NewRegistry builds the default registry. The list is an explicit static
// table so dispatch order is fixed at construction.
func NewRegistry() *Registry {
	return &Registry{
		parsers: []Parser{
			&AIBDebitParser{},
			&AIBCreditParser{},
			&RevolutDebitParser{},
			NewRevolutExcelExtractor(DefaultProduct),
		},
	}
}

// NewRegistryWith builds a registry over an explicit parser list, in the
// given dispatch order.
func NewRegistryWith(parsers ...Parser) *Registry {
	return &Registry{parsers: parsers}
}

// Parsers returns the registered parsers in dispatch order.
func (r *Registry) Parsers() []Parser {
	out := make([]Parser, len(r.parsers))
	copy(out, r.parsers)
	return out
}

// ParseStatement finds the first matching parser and extracts the
// statement's date range. Returns the range and the parser name.
func (r *Registry) ParseStatement(doc *extractor.Document) (DateRange, string, error) {
	p := r.match(doc)
	if p == nil {
		return DateRange{}, "", ErrNoParser
	}
	dates, err := p.ExtractDates(doc)
	if err != nil {
		return DateRange{}, p.Name(), fmt.Errorf("%s: %w", p.Name(), err)
	}
	return dates, p.Name(), nil
}

// ExtractTransactions finds the first matching parser and, when it supports
// transaction extraction, returns its transactions.
func (r *Registry) ExtractTransactions(doc *extractor.Document) ([]models.Transaction, string, error) {
	p := r.match(doc)
	if p == nil {
		return nil, "", ErrNoParser
	}
	tx, ok := p.(TransactionExtractor)
	if !ok {
		return nil, p.Name(), fmt.Errorf("transaction extraction not supported for %s", p.Name())
	}
	return tx.ExtractTransactions(doc), p.Name(), nil
}

func (r *Registry) match(doc *extractor.Document) Parser {
	for _, p := range r.parsers {
		if p.CanParse(doc) {
			return p
		}
	}
	return nil
}
