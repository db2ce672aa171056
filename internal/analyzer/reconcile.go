package analyzer

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ledgerlens/statement-auditor/internal/models"
)

// BalanceReport is the reconciliation result for one set of
// balance-bearing transactions.
type BalanceReport struct {
	// StartingBalance is the stated balance on the earliest real
	// transaction, i.e. the balance after that transaction.
	StartingBalance decimal.Decimal `json:"startingBalance"`
	// CalculatedStartingBalance is the derived balance before the earliest
	// transaction, used to seed the running balance.
	CalculatedStartingBalance decimal.Decimal `json:"calculatedStartingBalance"`
	// EndingBalance is the stated balance on the latest transaction.
	EndingBalance decimal.Decimal `json:"endingBalance"`
	// CalculatedEnding is the running balance after replaying every
	// transaction in date order.
	CalculatedEnding decimal.Decimal `json:"calculatedEnding"`
	// Discrepancy is CalculatedEnding minus EndingBalance; zero means the
	// statement reconciles.
	Discrepancy   decimal.Decimal `json:"discrepancy"`
	TotalDebits   decimal.Decimal `json:"totalDebits"`
	TotalCredits  decimal.Decimal `json:"totalCredits"`
	EarliestDate  string          `json:"earliestDate"`
	LatestDate    string          `json:"latestDate"`
}

// txSortDate parses a transaction date for ordering. Unparseable dates
// sort first rather than aborting the analysis.
func txSortDate(tx models.Transaction) time.Time {
	t, err := models.ParseDate(tx.Date)
	if err != nil {
		return time.Time{}
	}
	return t
}

// SortByDate orders transactions chronologically, preserving the original
// order of same-day entries.
func SortByDate(transactions []models.Transaction) []models.Transaction {
	out := make([]models.Transaction, len(transactions))
	copy(out, transactions)
	sort.SliceStable(out, func(i, j int) bool {
		return txSortDate(out[i]).Before(txSortDate(out[j]))
	})
	return out
}

// AnalyzeBalances reconciles a transaction list against its stated running
// balances. Returns nil when no transaction carries a balance, which is how
// card and spreadsheet-less formats opt out.
//
// The starting balance is derived from the earliest real transaction: the
// stated balance is the balance after it, so the balance before it is
// recovered by undoing the transaction. The replay then walks every
// transaction in date order, applies amounts and fees, and snaps the
// running balance to each stated balance so that a single extraction gap
// does not poison the rest of the period.
func AnalyzeBalances(transactions []models.Transaction) *BalanceReport {
	var withBalance []models.Transaction
	for _, tx := range transactions {
		if tx.Balance != nil {
			withBalance = append(withBalance, tx)
		}
	}
	if len(withBalance) == 0 {
		return nil
	}

	sorted := SortByDate(withBalance)

	// Opening-balance entries seed the balance; they are not the earliest
	// transaction unless nothing else exists.
	earliest := sorted[0]
	for _, tx := range sorted {
		if !tx.IsOpeningBalance() {
			earliest = tx
			break
		}
	}
	latest := sorted[len(sorted)-1]

	statedStart := *earliest.Balance
	calcStart := statedStart
	if earliest.Type == models.TypeDebit {
		calcStart = statedStart.Add(earliest.Amount)
	} else {
		calcStart = statedStart.Sub(earliest.Amount)
	}

	totalDebits := decimal.Zero
	totalCredits := decimal.Zero
	for _, tx := range transactions {
		if tx.IsOpeningBalance() {
			continue
		}
		if tx.Type == models.TypeDebit {
			totalDebits = totalDebits.Add(tx.Amount)
		} else {
			totalCredits = totalCredits.Add(tx.Amount)
		}
	}

	running := calcStart
	for _, tx := range SortByDate(transactions) {
		if tx.IsOpeningBalance() {
			continue
		}
		if tx.Type == models.TypeDebit {
			running = running.Sub(tx.Amount)
		} else {
			running = running.Add(tx.Amount)
		}
		if tx.Fee != nil {
			running = running.Sub(*tx.Fee)
		}
		// Snap to the stated balance so one extraction miss does not
		// cascade through the rest of the period.
		if tx.Balance != nil {
			running = *tx.Balance
		}
	}

	statedEnd := *latest.Balance
	return &BalanceReport{
		StartingBalance:           statedStart,
		CalculatedStartingBalance: calcStart,
		EndingBalance:             statedEnd,
		CalculatedEnding:          running,
		Discrepancy:               running.Sub(statedEnd),
		TotalDebits:               totalDebits,
		TotalCredits:              totalCredits,
		EarliestDate:              earliest.Date,
		LatestDate:                latest.Date,
	}
}

// DeduplicateTransactions removes repeats caused by overlapping statement
// files. Identity is date, amount, type, and the first 100 characters of
// the description; the first occurrence wins.
func DeduplicateTransactions(transactions []models.Transaction) []models.Transaction {
	type signature struct {
		date    string
		amount  string
		txType  models.TransactionType
		details string
	}
	seen := make(map[signature]bool, len(transactions))
	var unique []models.Transaction
	for _, tx := range transactions {
		details := tx.Details
		if len(details) > 100 {
			details = details[:100]
		}
		sig := signature{date: tx.Date, amount: tx.Amount.String(), txType: tx.Type, details: details}
		if seen[sig] {
			continue
		}
		seen[sig] = true
		unique = append(unique, tx)
	}
	return unique
}
