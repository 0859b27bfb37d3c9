package core

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AmountIssue reports an amount that could not be parsed. It contributed
// zero to whichever total it was part of.
type AmountIssue struct {
	RaceID    uuid.UUID
	ExpenseID uuid.UUID
	Raw       RawAmount
	Err       error
}

func (i AmountIssue) Error() string {
	return fmt.Sprintf("expense %s of race %s: unparseable amount %q: %v", i.ExpenseID, i.RaceID, string(i.Raw), i.Err)
}

// RaceSummary is a race row augmented with its computed spend.
type RaceSummary struct {
	RaceRow
	TotalSpend decimal.Decimal
}

// Row returns the embedded-expense view of the summary, suitable to be fed
// back into AggregateRaces.
func (s RaceSummary) Row() RaceRow {
	return s.RaceRow
}

// Aggregation is the result of AggregateRaces.
type Aggregation struct {
	Races  []RaceSummary
	Issues []AmountIssue
}

// Totals summarises a portfolio of races.
type Totals struct {
	TotalRaces      int
	TotalInvestment decimal.Decimal
}

// AggregateRaces computes the total spend of every race, preserving order.
// Races without embedded expenses total zero.
func AggregateRaces(rows []RaceRow) Aggregation {
	out := Aggregation{Races: make([]RaceSummary, 0, len(rows))}
	for _, row := range rows {
		total, issues := sumAmounts(row.ID, row.Expenses)
		out.Races = append(out.Races, RaceSummary{RaceRow: row, TotalSpend: total})
		out.Issues = append(out.Issues, issues...)
	}
	return out
}

// PortfolioTotals counts races and sums their spend.
func PortfolioTotals(races []RaceSummary) Totals {
	t := Totals{TotalRaces: len(races), TotalInvestment: decimal.Zero}
	for _, r := range races {
		t.TotalInvestment = t.TotalInvestment.Add(r.TotalSpend)
	}
	return t
}

// ExpenseTotal sums the amounts of a race's expenses.
func ExpenseTotal(expenses []Expense) (decimal.Decimal, []AmountIssue) {
	total := decimal.Zero
	var issues []AmountIssue
	for _, e := range expenses {
		t, is := sumAmounts(e.RaceID, []ExpenseAmount{{ID: e.ID, Amount: e.Amount}})
		total = total.Add(t)
		issues = append(issues, is...)
	}
	return total, issues
}

func sumAmounts(raceID uuid.UUID, amounts []ExpenseAmount) (decimal.Decimal, []AmountIssue) {
	total := decimal.Zero
	var issues []AmountIssue
	for _, a := range amounts {
		d, err := ParseAmount(a.Amount)
		if err != nil {
			issues = append(issues, AmountIssue{RaceID: raceID, ExpenseID: a.ID, Raw: a.Amount, Err: err})
			continue
		}
		total = total.Add(d)
	}
	return total, issues
}
