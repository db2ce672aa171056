package parser

import (
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/ledgerlens/statement-auditor/internal/extractor"
	"github.com/ledgerlens/statement-auditor/internal/models"
)

// AIBDebitParser handles AIB Personal Bank Account (debit) statements.
//
// The transaction table has no machine-readable structure; the layout is
// recovered from positioned words. Debit vs credit is decided by which
// column range an amount token falls in, never by sign or keyword.
type AIBDebitParser struct{}

func (p *AIBDebitParser) Name() string {
	return "AIB Debit Account"
}

// Magnitude bounds for numeric tokens. Anything outside is treated as
// noise (page numbers, IBAN fragments, stray zeros), not as money.
var (
	minBalanceValue      = decimal.NewFromFloat(0.01)
	minTransactionAmount = decimal.NewFromFloat(0.01)
	maxTransactionAmount = decimal.NewFromInt(1_000_000)
)

const (
	// maxLookaheadLines bounds the scan for balance/reference/FX lines
	// printed below a transaction.
	maxLookaheadLines = 15
	// maxDetailsLength caps a single continuation line folded into the
	// description, and the description prefix used for deduplication.
	maxDetailsLength = 100
	// headerToleranceY is the vertical tolerance around the header row.
	headerToleranceY = 5.0
	// minPageTextLen filters out cover and blank pages during date
	// extraction.
	minPageTextLen = 50
)

var (
	aibStatementDatePattern = regexp.MustCompile(`Date of Statement\s+(\d{1,2}\s+[A-Za-z]{3}\s+\d{4})`)
	aibBalanceForwardDate   = regexp.MustCompile(`(\d{1,2}\s+[A-Za-z]{3}\s+\d{4})\s+BALANCE FORWARD`)
	aibReferencePattern     = regexp.MustCompile(`(IE\d{12,})`)
	// "123.45 USD@ 1.0834" with an optional rate.
	aibFXPattern = regexp.MustCompile(`(\d+\.?\d*)\s+([A-Z]{3})@\s*(\d+\.?\d+)?`)
	aibFXFee     = regexp.MustCompile(`INCL FX FEE\s+[E€]?(\d+\.?\d+)`)
	// Lines that are just one number, and balance-sized numbers, are
	// never description continuations.
	bareNumberLine   = regexp.MustCompile(`^\d+\.?\d+$`)
	balanceLikeToken = regexp.MustCompile(`\b\d{5,}\.?\d*\b`)
)

// aibFooterKeywords mark boilerplate. A word containing one is dropped
// before line grouping, and a lookahead stops when a line carries one.
var aibFooterKeywords = []string{
	"This is an eligible deposit",
	"Deposit Guarantee Scheme",
	"Thank you for banking",
	"Overdrawn balances are marked",
	"Allied Irish Banks",
	"Personal Bank Account",
	"Statement of Account",
	"Branch",
	"National Sort Code",
	"Telephone",
	"Page Number",
	"Account Name",
	"Account Number",
	"Date of Statement",
	"IBAN:",
	"Authorised Limit",
	"Date Details Debit",
	"www.aib.ie",
	"standardconditions",
	"ForImportantInformation",
	"For Important Information",
	"YourAuthorisedLimit",
	"Your Authorised Limit",
}

func (p *AIBDebitParser) CanParse(doc *extractor.Document) bool {
	text := doc.FirstPageText()
	return strings.Contains(text, "Statement of Account") &&
		strings.Contains(text, "Personal Bank Account") &&
		strings.Contains(text, "Date of Statement")
}

// ExtractDates locates the statement period.
//
// The end date comes from the "Date of Statement" field, searched from the
// last content-bearing page backwards. The start date is best-effort:
// the BALANCE FORWARD date, then the first transaction-looking date, then
// the end date itself.
func (p *AIBDebitParser) ExtractDates(doc *extractor.Document) (DateRange, error) {
	end := ""
	for i := len(doc.Pages) - 1; i >= 0; i-- {
		text := doc.Pages[i].Text
		if len(strings.TrimSpace(text)) < minPageTextLen {
			continue
		}
		if m := aibStatementDatePattern.FindStringSubmatch(text); m != nil {
			end = m[1]
			break
		}
	}
	if end == "" {
		return DateRange{}, ErrNoEndDate
	}

	start := ""

	// Strategy 1: the BALANCE FORWARD line carries the true period start.
	for _, page := range doc.Pages {
		if m := aibBalanceForwardDate.FindStringSubmatch(page.Text); m != nil {
			start = m[1]
			break
		}
	}

	// Strategy 2: first date that is not part of a header.
	if start == "" {
	pages:
		for _, page := range doc.Pages {
			for _, loc := range datePatternAny.FindAllStringSubmatchIndex(page.Text, -1) {
				context := sliceContext(page.Text, loc[0]-50, loc[1]+150)
				if strings.Contains(context, "Date of Statement") {
					continue
				}
				if strings.Contains(context, "Date Details") && !strings.Contains(context, "Debit") {
					continue
				}
				start = page.Text[loc[2]:loc[3]]
				break pages
			}
		}
	}

	// Strategy 3: single-day statement.
	if start == "" {
		start = end
	}

	return DateRange{Start: start, End: end}, nil
}

// columnBounds are the page-scoped horizontal ranges used to classify
// numeric tokens. The bands are deliberately generous and overlap-avoiding
// rather than exact column widths; rendering shifts by a few units between
// statements.
type columnBounds struct {
	debitMin, debitMax     float64
	creditMin, creditMax   float64
	balanceMin, balanceMax float64
	headerY                float64
}

func (b *columnBounds) inDebit(center float64) bool {
	return center >= b.debitMin && center <= b.debitMax
}

func (b *columnBounds) inCredit(center float64) bool {
	return center >= b.creditMin && center <= b.creditMax
}

func (b *columnBounds) inBalance(center float64) bool {
	return center >= b.balanceMin && center <= b.balanceMax
}

// identifyColumns scans pages for the Debit/Credit header words and derives
// the column ranges from their positions. Both the debit and the credit
// header must be present; the balance band is inferred to the right of the
// credit column, so a Balance header is not required. Returns nil when no
// page carries a recognizable table header.
func identifyColumns(pages []extractor.Page) *columnBounds {
	for _, page := range pages {
		var debitHeader, creditHeader *extractor.Word

		for i := range page.Words {
			w := page.Words[i]
			upper := strings.ToUpper(w.Text)
			switch {
			case upper == "DEBIT" || (strings.HasPrefix(upper, "DEBIT") && strings.Contains(w.Text, "€")):
				debitHeader = &page.Words[i]
			case upper == "CREDIT" || (strings.HasPrefix(upper, "CREDIT") && strings.Contains(w.Text, "€")):
				creditHeader = &page.Words[i]
			}
		}

		if debitHeader != nil && creditHeader != nil {
			return &columnBounds{
				debitMin:   debitHeader.X0 - 50,
				debitMax:   creditHeader.X0 - 5,
				creditMin:  creditHeader.X0 - 10,
				creditMax:  creditHeader.X1 + 20,
				balanceMin: creditHeader.X1 + 50,
				balanceMax: 1000,
				headerY:    debitHeader.Top,
			}
		}
	}
	return nil
}

// textLine is one visual line: words sharing a rounded vertical position,
// ordered left to right.
type textLine struct {
	top   int
	words []extractor.Word
}

func (l textLine) text() string {
	return lineText(l.words)
}

// groupLines buckets a page's words into visual lines, dropping words at
// the header's vertical position and words carrying footer boilerplate.
func groupLines(words []extractor.Word, headerY float64) []textLine {
	buckets := make(map[int][]extractor.Word)
	for _, w := range words {
		if math.Abs(w.Top-headerY) < headerToleranceY {
			continue
		}
		if containsFooterKeyword(w.Text) {
			continue
		}
		key := int(math.Round(w.Top))
		buckets[key] = append(buckets[key], w)
	}

	lines := make([]textLine, 0, len(buckets))
	for top, ws := range buckets {
		sort.Slice(ws, func(a, b int) bool { return ws[a].X0 < ws[b].X0 })
		lines = append(lines, textLine{top: top, words: ws})
	}
	sort.Slice(lines, func(a, b int) bool { return lines[a].top < lines[b].top })
	return lines
}

func containsFooterKeyword(text string) bool {
	for _, kw := range aibFooterKeywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

// extractDateFromLine pulls a leading "D MMM YYYY" date off a line. The
// date may be a single token or split day/month/year across three tokens.
func extractDateFromLine(words []extractor.Word) string {
	if len(words) == 0 {
		return ""
	}
	if m := datePatternLeading.FindStringSubmatch(words[0].Text); m != nil {
		return m[1]
	}
	if len(words) >= 3 {
		combined := words[0].Text + " " + words[1].Text + " " + words[2].Text
		if m := datePatternLeading.FindStringSubmatch(combined); m != nil {
			return m[1]
		}
	}
	return ""
}

// pendingOpeningBalance holds the single opening-balance entry until all
// pages are processed; it is prepended to the transaction list at the end.
type pendingOpeningBalance struct {
	balance decimal.Decimal
	details string
	date    string
}

// processOpeningBalanceLine handles a BALANCE FORWARD / OPENING BALANCE
// line: any leading date plus the balance-column value. The line never
// yields a normal transaction.
func processOpeningBalanceLine(words []extractor.Word, text string, bounds *columnBounds) (*pendingOpeningBalance, string) {
	date := extractDateFromLine(words)

	var balance *decimal.Decimal
	for _, w := range words {
		if !bounds.inBalance(w.Center()) {
			continue
		}
		if val, err := parseAmount(w.Text); err == nil {
			v := val
			balance = &v
		}
	}

	if balance == nil {
		return nil, date
	}

	details := "BALANCE FORWARD"
	if strings.Contains(strings.ToUpper(text), "OPENING") {
		details = "OPENING BALANCE"
	}
	return &pendingOpeningBalance{balance: *balance, details: details, date: date}, date
}

// lineAmount is one qualifying debit/credit amount token found on a line.
type lineAmount struct {
	txType models.TransactionType
	amount decimal.Decimal
	word   extractor.Word
}

// findLineAmounts scans a line for debit/credit amount tokens, a
// balance-column value, and a reference-shaped token. Amounts are bounded
// to a plausible magnitude so page numbers and account fragments never
// qualify.
func findLineAmounts(words []extractor.Word, bounds *columnBounds) ([]lineAmount, *decimal.Decimal, string) {
	var amounts []lineAmount
	var balance *decimal.Decimal
	reference := ""

	for _, w := range words {
		text := strings.ReplaceAll(w.Text, ",", "")
		center := w.Center()

		if bounds.inBalance(center) {
			if val, err := decimal.NewFromString(text); err == nil {
				if val.GreaterThan(minBalanceValue) && val.LessThan(maxTransactionAmount) {
					v := val
					balance = &v
				}
			}
		}

		if strings.HasPrefix(text, "IE") && len(text) > 10 {
			reference = text
		}

		if amountTokenPattern.MatchString(text) {
			val, err := decimal.NewFromString(text)
			if err != nil {
				continue
			}
			if val.LessThan(minTransactionAmount) || val.GreaterThan(maxTransactionAmount) {
				continue
			}
			switch {
			case bounds.inDebit(center):
				amounts = append(amounts, lineAmount{txType: models.TypeDebit, amount: val, word: w})
			case bounds.inCredit(center):
				amounts = append(amounts, lineAmount{txType: models.TypeCredit, amount: val, word: w})
			}
		}
	}

	return amounts, balance, reference
}

// lineHasTransactionAmount reports whether a line carries a qualifying
// amount in the debit or credit band — a lookahead stop condition.
func lineHasTransactionAmount(words []extractor.Word, bounds *columnBounds) bool {
	for _, w := range words {
		text := strings.ReplaceAll(w.Text, ",", "")
		if !amountTokenPattern.MatchString(text) {
			continue
		}
		val, err := decimal.NewFromString(text)
		if err != nil {
			continue
		}
		if val.LessThan(minTransactionAmount) || val.GreaterThan(maxTransactionAmount) {
			continue
		}
		center := w.Center()
		if bounds.inDebit(center) || bounds.inCredit(center) {
			return true
		}
	}
	return false
}

// collectDetails builds the description from words left of both the amount
// and the debit column, excluding the tokens that spell the current date.
func collectDetails(words []extractor.Word, amountWord extractor.Word, currentDate string, bounds *columnBounds) string {
	dateParts := strings.Fields(currentDate)
	var parts []string
	for _, w := range words {
		if w.X0 >= amountWord.X0 || w.X0 >= bounds.debitMin {
			continue
		}
		if datePatternLeading.MatchString(w.Text) {
			continue
		}
		if len(dateParts) == 3 && (w.Text == dateParts[0] || w.Text == dateParts[1] || w.Text == dateParts[2]) {
			continue
		}
		parts = append(parts, w.Text)
	}
	return strings.TrimSpace(strings.Join(parts, " "))
}

// additionalInfo is what a bounded lookahead over the following lines can
// contribute to a transaction.
type additionalInfo struct {
	reference        string
	balance          *decimal.Decimal
	originalAmount   *decimal.Decimal
	originalCurrency string
	exchangeRate     *decimal.Decimal
	fxFee            *decimal.Decimal
	detailsExt       string
}

// collectAdditionalInfo scans up to maxLookaheadLines lines after the
// transaction line for a reference, a stated balance, FX annotations, and
// description continuations. It stops at the next dated line, the next
// qualifying amount, or a footer line.
func collectAdditionalInfo(startIdx int, lines []textLine, bounds *columnBounds, initialRef string, initialBalance *decimal.Decimal) additionalInfo {
	info := additionalInfo{reference: initialRef, balance: initialBalance}
	detailsMaxX := bounds.debitMin

	limit := startIdx + maxLookaheadLines
	if limit > len(lines) {
		limit = len(lines)
	}

	for j := startIdx + 1; j < limit; j++ {
		words := lines[j].words
		text := lines[j].text()

		if len(words) > 0 && datePatternLeading.MatchString(words[0].Text) {
			break
		}
		if lineHasTransactionAmount(words, bounds) {
			break
		}

		if info.reference == "" {
			if m := aibReferencePattern.FindStringSubmatch(text); m != nil {
				info.reference = m[1]
			}
		}

		if info.balance == nil {
			for _, w := range words {
				if !bounds.inBalance(w.Center()) {
					continue
				}
				if val, err := parseAmount(w.Text); err == nil && val.GreaterThan(minBalanceValue) {
					v := val
					info.balance = &v
					break
				}
			}
		}

		if info.originalCurrency == "" {
			if m := aibFXPattern.FindStringSubmatch(text); m != nil {
				if amt, err := decimal.NewFromString(m[1]); err == nil {
					v := amt
					info.originalAmount = &v
					info.originalCurrency = m[2]
				}
				if m[3] != "" {
					if rate, err := decimal.NewFromString(m[3]); err == nil {
						v := rate
						info.exchangeRate = &v
					}
					info.detailsExt += " " + m[1] + " " + m[2] + "@ " + m[3]
				} else {
					info.detailsExt += " " + m[1] + " " + m[2] + "@"
				}
			}
		}

		if info.fxFee == nil {
			if m := aibFXFee.FindStringSubmatch(text); m != nil {
				if fee, err := decimal.NewFromString(m[1]); err == nil {
					v := fee
					info.fxFee = &v
					info.detailsExt += " INCL FX FEE E" + m[1]
				}
			}
		}

		if containsFooterKeyword(text) {
			break
		}

		// Short residual lines continue the description. Bare numbers and
		// balance-sized values are never description text.
		if !bareNumberLine.MatchString(strings.TrimSpace(text)) {
			if balanceLikeToken.MatchString(text) {
				continue
			}
			var parts []string
			for _, w := range words {
				if w.X0 < detailsMaxX {
					parts = append(parts, w.Text)
				}
			}
			if len(parts) == 0 {
				continue
			}
			clean := strings.TrimSpace(strings.Join(parts, " "))
			if clean != "" && len(clean) < maxDetailsLength && !strings.Contains(info.detailsExt, clean) {
				info.detailsExt += " " + clean
			}
		}
	}

	return info
}

// ExtractTransactions recovers the transaction table from positioned words.
// Any unexpected failure yields an empty list, never an error: the batch
// caller treats an empty list as "nothing usable".
func (p *AIBDebitParser) ExtractTransactions(doc *extractor.Document) (transactions []models.Transaction) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("file", doc.Path).Interface("panic", r).
				Msg("aib debit transaction extraction failed")
			transactions = nil
		}
	}()

	bounds := identifyColumns(doc.Pages)
	if bounds == nil {
		log.Debug().Str("file", doc.Path).Msg("no Debit/Credit table header found")
		return nil
	}

	var opening *pendingOpeningBalance

	for _, page := range doc.Pages {
		lines := groupLines(page.Words, bounds.headerY)
		currentDate := ""

		for i := 0; i < len(lines); i++ {
			line := lines[i]
			text := line.text()
			upper := strings.ToUpper(text)

			if strings.Contains(upper, "BALANCE FORWARD") || strings.Contains(upper, "OPENING BALANCE") {
				pending, date := processOpeningBalanceLine(line.words, text, bounds)
				if pending != nil && opening == nil {
					opening = pending
				}
				if date != "" {
					currentDate = date
				}
				continue
			}

			if d := extractDateFromLine(line.words); d != "" {
				currentDate = d
			}
			// Undated lines still yield transactions once a date is
			// carried over; without any date the line is dropped.
			if currentDate == "" {
				continue
			}

			amounts, balance, reference := findLineAmounts(line.words, bounds)
			for _, amt := range amounts {
				details := collectDetails(line.words, amt.word, currentDate, bounds)
				info := collectAdditionalInfo(i, lines, bounds, reference, balance)

				transactions = append(transactions, models.Transaction{
					Amount:           amt.amount,
					Currency:         "EUR",
					Type:             amt.txType,
					Details:          strings.TrimSpace(details + info.detailsExt),
					Date:             currentDate,
					Balance:          info.balance,
					Reference:        info.reference,
					OriginalCurrency: info.originalCurrency,
					OriginalAmount:   info.originalAmount,
					ExchangeRate:     info.exchangeRate,
					FXFee:            info.fxFee,
				})
			}
		}
	}

	if opening != nil {
		date := opening.date
		if date == "" && len(transactions) > 0 {
			date = transactions[0].Date
		}
		if date == "" {
			date = "Unknown"
		}
		bal := opening.balance
		openingTx := models.Transaction{
			Amount:   decimal.Zero,
			Currency: "EUR",
			// The opening balance only seeds the running balance.
			Type:    models.TypeCredit,
			Details: opening.details,
			Date:    date,
			Balance: &bal,
		}
		transactions = append([]models.Transaction{openingTx}, transactions...)
	}

	return transactions
}
