package parser

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/ledgerlens/statement-auditor/internal/extractor"
)

// AIBCreditParser handles AIB credit card statements. Credit card
// statements only feed coverage analysis, so this parser extracts the
// period and nothing else.
type AIBCreditParser struct{}

func (p *AIBCreditParser) Name() string {
	return "AIB Credit Card"
}

var (
	// "Account Statement - 11th January, 2026" with an optional ordinal
	// suffix on the day.
	creditStatementPattern = regexp.MustCompile(`Account Statement - (\d{1,2})(?:st|nd|rd|th)?\s+(\w+),\s+(\d{4})`)
	// Transaction rows carry a transaction date and a posting date with
	// no year: "13 Dec 15 Dec MERCHANT NAME".
	creditTransactionPattern = regexp.MustCompile(`(\d{1,2})\s+(\w{3})\s+\d{1,2}\s+\w{3}\s+[A-Z]`)
)

var fullMonthAbbrevs = map[string]string{
	"January": "Jan", "February": "Feb", "March": "Mar",
	"April": "Apr", "May": "May", "June": "Jun",
	"July": "Jul", "August": "Aug", "September": "Sep",
	"October": "Oct", "November": "Nov", "December": "Dec",
}

func (p *AIBCreditParser) CanParse(doc *extractor.Document) bool {
	text := doc.FirstPageText()
	return strings.Contains(text, "Credit Limit") &&
		strings.Contains(text, "Account Statement")
}

// ExtractDates reads the statement date from the "Account Statement" title
// and takes the first transaction row as the period start. Transaction rows
// have no year, so the year is inferred from the statement date: a month
// later than the statement month belongs to the previous year.
func (p *AIBCreditParser) ExtractDates(doc *extractor.Document) (DateRange, error) {
	end := ""
	endYear := 0
	var endMonth time.Month

	for i := len(doc.Pages) - 1; i >= 0; i-- {
		m := creditStatementPattern.FindStringSubmatch(doc.Pages[i].Text)
		if m == nil {
			continue
		}
		abbr, ok := fullMonthAbbrevs[m[2]]
		if !ok {
			continue
		}
		day, _ := strconv.Atoi(m[1])
		endYear, _ = strconv.Atoi(m[3])
		endMonth, _ = monthNumber(abbr)
		end = strconv.Itoa(day) + " " + abbr + " " + m[3]
		break
	}
	if end == "" {
		return DateRange{}, ErrNoEndDate
	}

	start := ""
	for _, page := range doc.Pages {
		m := creditTransactionPattern.FindStringSubmatch(page.Text)
		if m == nil {
			continue
		}
		month, ok := monthNumber(m[2])
		if !ok {
			continue
		}
		year := endYear
		if month > endMonth {
			year = endYear - 1
		}
		day, _ := strconv.Atoi(m[1])
		start = strconv.Itoa(day) + " " + m[2] + " " + strconv.Itoa(year)
		break
	}

	// Statements with no transactions cover a single day.
	if start == "" {
		start = end
	}

	return DateRange{Start: start, End: end}, nil
}
