package parser

import (
	"strings"
	"testing"

	"github.com/ledgerlens/statement-auditor/internal/extractor"
	"github.com/ledgerlens/statement-auditor/internal/models"
)

func word(text string, x0, x1, top float64) extractor.Word {
	return extractor.Word{Text: text, X0: x0, X1: x1, Top: top}
}

// headerWords places the Debit/Credit table header at top=100 with the
// debit column around x=300-330 and the credit column around x=380-415.
// The derived bands are debit [250, 375], credit [370, 435], balance
// [465, 1000].
func headerWords() []extractor.Word {
	return []extractor.Word{
		word("DEBIT", 300, 330, 100),
		word("CREDIT", 380, 415, 100),
		word("BALANCE", 470, 520, 100),
	}
}

func debitDoc(pages ...extractor.Page) *extractor.Document {
	return &extractor.Document{Path: "statement.pdf", Pages: pages}
}

func TestAIBDebitParser_CanParse(t *testing.T) {
	p := &AIBDebitParser{}

	yes := debitDoc(extractor.Page{
		Text: "Statement of Account\nPersonal Bank Account\nDate of Statement 28 Apr 2017",
	})
	if !p.CanParse(yes) {
		t.Error("expected CanParse to accept an AIB debit statement")
	}

	no := debitDoc(extractor.Page{
		Text: "EUR Statement\nRevolut Bank UAB\nAccount transactions from",
	})
	if p.CanParse(no) {
		t.Error("expected CanParse to reject a non-AIB statement")
	}
}

func TestIdentifyColumns(t *testing.T) {
	bounds := identifyColumns([]extractor.Page{{Words: headerWords()}})
	if bounds == nil {
		t.Fatal("expected column bounds from header words")
	}

	if bounds.debitMin != 250 || bounds.debitMax != 375 {
		t.Errorf("debit band: got [%v, %v], want [250, 375]", bounds.debitMin, bounds.debitMax)
	}
	if bounds.creditMin != 370 || bounds.creditMax != 435 {
		t.Errorf("credit band: got [%v, %v], want [370, 435]", bounds.creditMin, bounds.creditMax)
	}
	if bounds.balanceMin != 465 || bounds.balanceMax != 1000 {
		t.Errorf("balance band: got [%v, %v], want [465, 1000]", bounds.balanceMin, bounds.balanceMax)
	}
	if bounds.headerY != 100 {
		t.Errorf("headerY: got %v, want 100", bounds.headerY)
	}
}

func TestIdentifyColumns_EuroSuffixHeaders(t *testing.T) {
	// Some renderings glue the currency onto the header word.
	pages := []extractor.Page{{Words: []extractor.Word{
		word("Debit€", 300, 335, 100),
		word("Credit€", 380, 420, 100),
	}}}
	if identifyColumns(pages) == nil {
		t.Error("expected header detection to accept Debit€/Credit€ words")
	}
}

func TestIdentifyColumns_NoHeader(t *testing.T) {
	pages := []extractor.Page{{Words: []extractor.Word{
		word("15 Mar 2024", 50, 110, 140),
		word("100.00", 310, 340, 140),
	}}}
	if identifyColumns(pages) != nil {
		t.Error("expected nil bounds without Debit and Credit headers")
	}
}

func TestAIBDebitParser_ExtractTransactions_DebitAndCredit(t *testing.T) {
	p := &AIBDebitParser{}

	words := headerWords()
	// 15 Mar 2024: TESCO, 100.00 in the debit column, balance 1500.00
	words = append(words,
		word("15 Mar 2024", 50, 110, 140),
		word("TESCO", 120, 160, 140),
		word("100.00", 310, 340, 140),
		word("1500.00", 470, 520, 140),
	)
	// 20 Apr 2024: SALARY, 2500.00 in the credit column
	words = append(words,
		word("20 Apr 2024", 50, 110, 160),
		word("SALARY", 120, 160, 160),
		word("2500.00", 385, 425, 160),
	)

	txs := p.ExtractTransactions(debitDoc(extractor.Page{Words: words}))
	if len(txs) != 2 {
		t.Fatalf("transactions: got %d, want 2", len(txs))
	}

	tx := txs[0]
	if tx.Type != models.TypeDebit {
		t.Errorf("txs[0].Type: got %q, want %q", tx.Type, models.TypeDebit)
	}
	if tx.Amount.StringFixed(2) != "100.00" {
		t.Errorf("txs[0].Amount: got %s, want 100.00", tx.Amount)
	}
	if tx.Date != "15 Mar 2024" {
		t.Errorf("txs[0].Date: got %q, want %q", tx.Date, "15 Mar 2024")
	}
	if tx.Details != "TESCO" {
		t.Errorf("txs[0].Details: got %q, want %q", tx.Details, "TESCO")
	}
	if tx.Balance == nil || tx.Balance.StringFixed(2) != "1500.00" {
		t.Errorf("txs[0].Balance: got %v, want 1500.00", tx.Balance)
	}
	if tx.Currency != "EUR" {
		t.Errorf("txs[0].Currency: got %q, want EUR", tx.Currency)
	}

	tx = txs[1]
	if tx.Type != models.TypeCredit {
		t.Errorf("txs[1].Type: got %q, want %q", tx.Type, models.TypeCredit)
	}
	if tx.Amount.StringFixed(2) != "2500.00" {
		t.Errorf("txs[1].Amount: got %s, want 2500.00", tx.Amount)
	}
	if tx.Details != "SALARY" {
		t.Errorf("txs[1].Details: got %q, want %q", tx.Details, "SALARY")
	}
	if tx.Balance != nil {
		t.Errorf("txs[1].Balance: got %v, want nil", tx.Balance)
	}
}

func TestAIBDebitParser_DateCarryForward(t *testing.T) {
	p := &AIBDebitParser{}

	// Two amounts under one date line; the second line has no date of its
	// own and inherits the last seen date.
	words := headerWords()
	words = append(words,
		word("15 Mar 2024", 50, 110, 140),
		word("SHOP ONE", 120, 180, 140),
		word("10.00", 310, 340, 140),

		word("SHOP TWO", 120, 180, 160),
		word("20.00", 310, 340, 160),
	)

	txs := p.ExtractTransactions(debitDoc(extractor.Page{Words: words}))
	if len(txs) != 2 {
		t.Fatalf("transactions: got %d, want 2", len(txs))
	}
	if txs[1].Date != "15 Mar 2024" {
		t.Errorf("txs[1].Date: got %q, want carried-forward %q", txs[1].Date, "15 Mar 2024")
	}
}

func TestAIBDebitParser_SplitDateTokens(t *testing.T) {
	p := &AIBDebitParser{}

	// The date may arrive as three separate tokens; they must form the date
	// and stay out of the description.
	words := headerWords()
	words = append(words,
		word("15", 50, 60, 140),
		word("Mar", 65, 85, 140),
		word("2024", 90, 115, 140),
		word("COFFEE", 120, 160, 140),
		word("4.50", 310, 335, 140),
	)

	txs := p.ExtractTransactions(debitDoc(extractor.Page{Words: words}))
	if len(txs) != 1 {
		t.Fatalf("transactions: got %d, want 1", len(txs))
	}
	if txs[0].Date != "15 Mar 2024" {
		t.Errorf("date: got %q, want %q", txs[0].Date, "15 Mar 2024")
	}
	if txs[0].Details != "COFFEE" {
		t.Errorf("details: got %q, want %q", txs[0].Details, "COFFEE")
	}
}

func TestAIBDebitParser_OpeningBalance(t *testing.T) {
	p := &AIBDebitParser{}

	words := headerWords()
	words = append(words,
		word("3 Apr 2017", 50, 110, 130),
		word("BALANCE", 120, 160, 130),
		word("FORWARD", 165, 215, 130),
		word("1234.56", 470, 520, 130),

		word("10 Apr 2017", 50, 110, 150),
		word("SHOP", 120, 160, 150),
		word("50.00", 310, 340, 150),
		word("1184.56", 470, 520, 150),
	)

	txs := p.ExtractTransactions(debitDoc(extractor.Page{Words: words}))
	if len(txs) != 2 {
		t.Fatalf("transactions: got %d, want 2 (opening entry + one debit)", len(txs))
	}

	opening := txs[0]
	if !opening.IsOpeningBalance() {
		t.Errorf("txs[0].Details: got %q, want an opening balance entry", opening.Details)
	}
	if !opening.Amount.IsZero() {
		t.Errorf("opening amount: got %s, want 0", opening.Amount)
	}
	if opening.Date != "3 Apr 2017" {
		t.Errorf("opening date: got %q, want %q", opening.Date, "3 Apr 2017")
	}
	if opening.Balance == nil || opening.Balance.StringFixed(2) != "1234.56" {
		t.Errorf("opening balance: got %v, want 1234.56", opening.Balance)
	}

	if txs[1].Type != models.TypeDebit || txs[1].Amount.StringFixed(2) != "50.00" {
		t.Errorf("txs[1]: got %s %s, want Debit 50.00", txs[1].Type, txs[1].Amount)
	}
}

func TestAIBDebitParser_DatelessOpeningBalance(t *testing.T) {
	p := &AIBDebitParser{}

	// An opening line without a date takes the first transaction's date.
	words := headerWords()
	words = append(words,
		word("BALANCE", 120, 160, 130),
		word("FORWARD", 165, 215, 130),
		word("500.00", 470, 515, 130),

		word("10 Apr 2017", 50, 110, 150),
		word("SHOP", 120, 160, 150),
		word("25.00", 310, 340, 150),
	)

	txs := p.ExtractTransactions(debitDoc(extractor.Page{Words: words}))
	if len(txs) != 2 {
		t.Fatalf("transactions: got %d, want 2", len(txs))
	}
	if txs[0].Date != "10 Apr 2017" {
		t.Errorf("opening date: got %q, want %q", txs[0].Date, "10 Apr 2017")
	}
}

func TestAIBDebitParser_LookaheadBalanceAndReference(t *testing.T) {
	p := &AIBDebitParser{}

	// The transaction line has no balance; the balance and the payment
	// reference appear on the following lines.
	words := headerWords()
	words = append(words,
		word("5 May 2024", 50, 110, 140),
		word("TRANSFER", 120, 180, 140),
		word("200.00", 310, 340, 140),

		word("IE123456789012", 260, 370, 160),

		word("1450.00", 470, 520, 180),
	)

	txs := p.ExtractTransactions(debitDoc(extractor.Page{Words: words}))
	if len(txs) != 1 {
		t.Fatalf("transactions: got %d, want 1", len(txs))
	}

	tx := txs[0]
	if tx.Reference != "IE123456789012" {
		t.Errorf("reference: got %q, want %q", tx.Reference, "IE123456789012")
	}
	if tx.Balance == nil || tx.Balance.StringFixed(2) != "1450.00" {
		t.Errorf("balance: got %v, want 1450.00", tx.Balance)
	}
	if tx.Details != "TRANSFER" {
		t.Errorf("details: got %q, want %q (reference line must not leak in)", tx.Details, "TRANSFER")
	}
}

func TestAIBDebitParser_LookaheadStopsAtNextDate(t *testing.T) {
	p := &AIBDebitParser{}

	// The balance on the second transaction's line must not be attributed
	// to the first transaction.
	words := headerWords()
	words = append(words,
		word("5 May 2024", 50, 110, 140),
		word("FIRST", 120, 160, 140),
		word("10.00", 310, 340, 140),

		word("6 May 2024", 50, 110, 160),
		word("SECOND", 120, 165, 160),
		word("20.00", 310, 340, 160),
		word("970.00", 470, 515, 160),
	)

	txs := p.ExtractTransactions(debitDoc(extractor.Page{Words: words}))
	if len(txs) != 2 {
		t.Fatalf("transactions: got %d, want 2", len(txs))
	}
	if txs[0].Balance != nil {
		t.Errorf("txs[0].Balance: got %v, want nil (lookahead crossed a dated line)", txs[0].Balance)
	}
	if txs[1].Balance == nil || txs[1].Balance.StringFixed(2) != "970.00" {
		t.Errorf("txs[1].Balance: got %v, want 970.00", txs[1].Balance)
	}
}

func TestAIBDebitParser_ForeignCurrency(t *testing.T) {
	p := &AIBDebitParser{}

	words := headerWords()
	words = append(words,
		word("9 Jun 2024", 50, 110, 140),
		word("AMAZON", 120, 170, 140),
		word("0.91", 310, 335, 140),

		word("0.99", 120, 140, 160),
		word("USD@", 145, 175, 160),
		word("1.0834", 180, 215, 160),
	)

	txs := p.ExtractTransactions(debitDoc(extractor.Page{Words: words}))
	if len(txs) != 1 {
		t.Fatalf("transactions: got %d, want 1", len(txs))
	}

	tx := txs[0]
	if tx.OriginalCurrency != "USD" {
		t.Errorf("original currency: got %q, want USD", tx.OriginalCurrency)
	}
	if tx.OriginalAmount == nil || tx.OriginalAmount.String() != "0.99" {
		t.Errorf("original amount: got %v, want 0.99", tx.OriginalAmount)
	}
	if tx.ExchangeRate == nil || tx.ExchangeRate.String() != "1.0834" {
		t.Errorf("exchange rate: got %v, want 1.0834", tx.ExchangeRate)
	}
	if !strings.Contains(tx.Details, "0.99 USD@ 1.0834") {
		t.Errorf("details: got %q, want FX annotation included", tx.Details)
	}
}

func TestAIBDebitParser_NoHeaderYieldsNoTransactions(t *testing.T) {
	p := &AIBDebitParser{}

	words := []extractor.Word{
		word("15 Mar 2024", 50, 110, 140),
		word("TESCO", 120, 160, 140),
		word("100.00", 310, 340, 140),
	}
	if txs := p.ExtractTransactions(debitDoc(extractor.Page{Words: words})); len(txs) != 0 {
		t.Errorf("transactions without table header: got %d, want 0", len(txs))
	}
}

func TestAIBDebitParser_AmountBounds(t *testing.T) {
	p := &AIBDebitParser{}

	// A page-number-sized value and an implausibly large value sit in the
	// debit column; neither may become a transaction.
	words := headerWords()
	words = append(words,
		word("15 Mar 2024", 50, 110, 140),
		word("NOISE", 120, 160, 140),
		word("2000000.00", 305, 345, 140),

		word("16 Mar 2024", 50, 110, 160),
		word("REAL", 120, 160, 160),
		word("12.50", 310, 340, 160),
	)

	txs := p.ExtractTransactions(debitDoc(extractor.Page{Words: words}))
	if len(txs) != 1 {
		t.Fatalf("transactions: got %d, want 1", len(txs))
	}
	if txs[0].Amount.StringFixed(2) != "12.50" {
		t.Errorf("amount: got %s, want 12.50", txs[0].Amount)
	}
}

func TestAIBDebitParser_ExtractDates_BalanceForward(t *testing.T) {
	p := &AIBDebitParser{}

	doc := debitDoc(extractor.Page{
		Text: "Statement of Account Personal Bank Account filler text to pass the page length gate\n" +
			"Date of Statement 28 Apr 2017\n" +
			"3 Apr 2017 BALANCE FORWARD 1234.56",
	})

	dates, err := p.ExtractDates(doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dates.Start != "3 Apr 2017" {
		t.Errorf("start: got %q, want %q", dates.Start, "3 Apr 2017")
	}
	if dates.End != "28 Apr 2017" {
		t.Errorf("end: got %q, want %q", dates.End, "28 Apr 2017")
	}
}

func TestAIBDebitParser_ExtractDates_FirstTransactionFallback(t *testing.T) {
	p := &AIBDebitParser{}

	// No BALANCE FORWARD line: the start comes from the first date outside
	// a header context.
	doc := debitDoc(extractor.Page{
		Text: "Statement of Account Personal Bank Account\n" +
			"Date of Statement 28 Mar 2018\n" +
			"Your account transactions for the period are listed in the table below\n" +
			"5 Mar 2018 TESCO STORE 12.40",
	})

	dates, err := p.ExtractDates(doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dates.Start != "5 Mar 2018" {
		t.Errorf("start: got %q, want %q", dates.Start, "5 Mar 2018")
	}
	if dates.End != "28 Mar 2018" {
		t.Errorf("end: got %q, want %q", dates.End, "28 Mar 2018")
	}
}

func TestAIBDebitParser_ExtractDates_EndDateFallback(t *testing.T) {
	p := &AIBDebitParser{}

	// No transactions at all: the statement covers a single day.
	doc := debitDoc(extractor.Page{
		Text: "Statement of Account Personal Bank Account with no transactions listed on this page\n" +
			"Date of Statement 28 Apr 2017",
	})

	dates, err := p.ExtractDates(doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dates.Start != dates.End {
		t.Errorf("start: got %q, want end date %q", dates.Start, dates.End)
	}
}

func TestAIBDebitParser_ExtractDates_NoEndDate(t *testing.T) {
	p := &AIBDebitParser{}

	doc := debitDoc(extractor.Page{
		Text: "Statement of Account Personal Bank Account but the statement date field is missing here",
	})
	if _, err := p.ExtractDates(doc); err == nil {
		t.Error("expected an error when the statement date is missing")
	}
}

func TestAIBDebitParser_ExtractDates_SkipsShortPages(t *testing.T) {
	p := &AIBDebitParser{}

	// The last page is a near-empty trailer; the scan must fall back to an
	// earlier page for the statement date.
	doc := debitDoc(
		extractor.Page{
			Text: "Statement of Account Personal Bank Account filler text to pass the page length gate\n" +
				"Date of Statement 28 Apr 2017",
		},
		extractor.Page{Text: "  \n"},
	)

	dates, err := p.ExtractDates(doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dates.End != "28 Apr 2017" {
		t.Errorf("end: got %q, want %q", dates.End, "28 Apr 2017")
	}
}
