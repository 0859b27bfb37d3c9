// Package sheets defines the spreadsheet export of archived records.
package sheets

import (
	"context"
	"time"
)

type (
	// RaceRecord is one row of the Races tab.
	RaceRecord struct {
		EventID    string
		RaceID     string
		UserID     string
		Name       string
		Date       string
		Location   string
		Distance   string
		ArchivedAt time.Time
	}

	// ExpenseRecord is one row of the Expenses tab. Amount is kept as
	// delivered; writers decide how to render text that is not a number.
	ExpenseRecord struct {
		EventID     string
		ExpenseID   string
		RaceID      string
		RaceName    string
		Category    string
		Amount      string
		Description string
		ExpenseDate string
		ReceiptURL  string
		ArchivedAt  time.Time
	}

	RaceWriter interface {
		AppendRace(ctx context.Context, r RaceRecord) error
	}

	ExpenseWriter interface {
		AppendExpense(ctx context.Context, e ExpenseRecord) error
	}

	Exporter interface {
		RaceWriter
		ExpenseWriter
	}
)
