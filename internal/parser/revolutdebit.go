package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/ledgerlens/statement-auditor/internal/extractor"
)

// RevolutDebitParser handles Revolut EUR consolidated statements. These mix
// several sections (Account, Pockets, Deposit) with no single statement
// period field, so the period is the min and max transaction date across
// all sections.
type RevolutDebitParser struct{}

func (p *RevolutDebitParser) Name() string {
	return "Revolut Debit Account"
}

var (
	// "DD MMM YYYY Description" or "DD MMM YYYY - DD MMM YYYY Description";
	// the trailing capital letter anchors the match to a transaction row.
	revolutDatePattern = regexp.MustCompile(`(?i)(\d{1,2})\s+(Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)\s+(\d{4})(?:\s+-\s+\d{1,2}\s+\w{3}\s+\d{4})?\s+[A-Z]`)
	// Header contexts whose dates are not transactions.
	revolutHeaderContext = regexp.MustCompile(`(?i)(Generated on|Statement|Page)(?:\s+the)?\s+\d{1,2}\s+\w{3}\s+\d{4}`)
)

func (p *RevolutDebitParser) CanParse(doc *extractor.Document) bool {
	text := doc.FirstPageText()
	return strings.Contains(text, "EUR Statement") &&
		(strings.Contains(text, "Revolut Bank UAB") || strings.Contains(text, "Revolut Ltd")) &&
		strings.Contains(text, "Account transactions from")
}

func (p *RevolutDebitParser) ExtractDates(doc *extractor.Document) (DateRange, error) {
	type dated struct {
		key int // year*10000 + month*100 + day
		str string
	}
	var all []dated

	for _, page := range doc.Pages {
		for _, loc := range revolutDatePattern.FindAllStringSubmatchIndex(page.Text, -1) {
			// Dates inside "Generated on ..." or page headers are noise.
			context := sliceContext(page.Text, loc[0]-50, loc[0]+20)
			if revolutHeaderContext.MatchString(context) {
				continue
			}

			day, _ := strconv.Atoi(page.Text[loc[2]:loc[3]])
			abbr := normalizeMonthAbbrev(page.Text[loc[4]:loc[5]])
			year, _ := strconv.Atoi(page.Text[loc[6]:loc[7]])

			month, ok := monthNumber(abbr)
			if !ok {
				continue
			}
			all = append(all, dated{
				key: year*10000 + int(month)*100 + day,
				str: fmt.Sprintf("%d %s %d", day, abbr, year),
			})
		}
	}

	if len(all) == 0 {
		return DateRange{}, ErrNoDates
	}

	min, max := all[0], all[0]
	for _, d := range all[1:] {
		if d.key < min.key {
			min = d
		}
		if d.key > max.key {
			max = d
		}
	}
	return DateRange{Start: min.str, End: max.str}, nil
}

func normalizeMonthAbbrev(abbr string) string {
	if len(abbr) != 3 {
		return abbr
	}
	return strings.ToUpper(abbr[:1]) + strings.ToLower(abbr[1:])
}
