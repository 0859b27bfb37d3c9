package core

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func raceRow(name string, amounts ...RawAmount) RaceRow {
	row := RaceRow{Race: Race{ID: uuid.New(), Name: name}}
	if amounts != nil {
		row.Expenses = []ExpenseAmount{}
	}
	for _, a := range amounts {
		row.Expenses = append(row.Expenses, ExpenseAmount{ID: uuid.New(), Amount: a})
	}
	return row
}

func TestAggregateRaces(t *testing.T) {
	rows := []RaceRow{
		raceRow("with expenses", "100", "250.5"),
		{Race: Race{ID: uuid.New(), Name: "absent"}},
		{Race: Race{ID: uuid.New(), Name: "empty"}, Expenses: []ExpenseAmount{}},
	}

	agg := AggregateRaces(rows)
	if len(agg.Races) != 3 {
		t.Fatalf("expected 3 races, got %d", len(agg.Races))
	}
	want := []string{"350.5", "0", "0"}
	for i, r := range agg.Races {
		if r.ID != rows[i].ID {
			t.Fatalf("order not preserved at %d", i)
		}
		if !r.TotalSpend.Equal(dec(want[i])) {
			t.Fatalf("race %q total = %s, want %s", r.Name, r.TotalSpend, want[i])
		}
	}
	if len(agg.Issues) != 0 {
		t.Fatalf("unexpected issues: %v", agg.Issues)
	}
}

func TestAggregateRacesIdempotent(t *testing.T) {
	rows := []RaceRow{raceRow("a", "100", "250.5"), raceRow("b", "1000"), {Race: Race{ID: uuid.New()}}}
	first := AggregateRaces(rows)

	again := make([]RaceRow, 0, len(first.Races))
	for _, r := range first.Races {
		again = append(again, r.Row())
	}
	second := AggregateRaces(again)

	for i := range first.Races {
		if !first.Races[i].TotalSpend.Equal(second.Races[i].TotalSpend) {
			t.Fatalf("race %d: %s != %s", i, first.Races[i].TotalSpend, second.Races[i].TotalSpend)
		}
	}
}

func TestAggregateRacesUnparseableAmount(t *testing.T) {
	row := raceRow("dirty", "100", "abc", "50")
	agg := AggregateRaces([]RaceRow{row})

	if !agg.Races[0].TotalSpend.Equal(dec("150")) {
		t.Fatalf("total = %s, want 150", agg.Races[0].TotalSpend)
	}
	if len(agg.Issues) != 1 {
		t.Fatalf("expected 1 issue, got %d", len(agg.Issues))
	}
	issue := agg.Issues[0]
	if issue.RaceID != row.ID || issue.ExpenseID != row.Expenses[1].ID || issue.Raw != "abc" {
		t.Fatalf("unexpected issue: %+v", issue)
	}
	if !errors.Is(issue.Err, ErrInvalidAmount) {
		t.Fatalf("issue err = %v", issue.Err)
	}
}

func TestPortfolioTotals(t *testing.T) {
	races := []RaceSummary{
		{TotalSpend: dec("350.5")},
		{TotalSpend: dec("0")},
		{TotalSpend: dec("1000")},
	}
	got := PortfolioTotals(races)
	if got.TotalRaces != 3 {
		t.Fatalf("TotalRaces = %d", got.TotalRaces)
	}
	if !got.TotalInvestment.Equal(dec("1350.5")) {
		t.Fatalf("TotalInvestment = %s", got.TotalInvestment)
	}

	empty := PortfolioTotals(nil)
	if empty.TotalRaces != 0 || !empty.TotalInvestment.IsZero() {
		t.Fatalf("empty totals = %+v", empty)
	}
}

func TestExpenseTotal(t *testing.T) {
	raceID := uuid.New()
	expenses := []Expense{
		{ID: uuid.New(), RaceID: raceID, Amount: "150000"},
		{ID: uuid.New(), RaceID: raceID, Amount: "75000"},
		{ID: uuid.New(), RaceID: raceID, Amount: ""},
	}
	total, issues := ExpenseTotal(expenses)
	if !total.Equal(dec("225000")) {
		t.Fatalf("total = %s", total)
	}
	if len(issues) != 1 || issues[0].ExpenseID != expenses[2].ID || issues[0].RaceID != raceID {
		t.Fatalf("issues = %+v", issues)
	}

	if total, issues := ExpenseTotal(nil); !total.IsZero() || issues != nil {
		t.Fatalf("nil expenses gave %s %v", total, issues)
	}
}
