package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"racevault/internal/amqp"
	"racevault/internal/core"
	"racevault/internal/log"
	"racevault/internal/sheets/memory"
)

func TestHandleExportsByType(t *testing.T) {
	rec := memory.New()
	w := NewExportWorker(rec, log.Discard())
	ctx := context.Background()
	at := time.Date(2024, 11, 10, 8, 0, 0, 0, time.UTC)

	race := core.Race{ID: uuid.New(), UserID: uuid.New(), Name: "BOROBUDUR MARATHON", Date: core.NewDate(2024, 11, 17), Distance: "42K"}
	raceEvent := amqp.NewRaceArchived(race, at)
	if err := w.Handle(ctx, &raceEvent); err != nil {
		t.Fatalf("Handle race: %v", err)
	}

	exp := core.Expense{ID: uuid.New(), RaceID: race.ID, CategoryID: uuid.New(), Amount: "225000", ExpenseDate: core.NewDate(2024, 11, 10)}
	expEvent := amqp.NewExpenseArchived(race, exp, "Accommodation", at)
	if err := w.Handle(ctx, &expEvent); err != nil {
		t.Fatalf("Handle expense: %v", err)
	}

	races := rec.Races()
	if len(races) != 1 || races[0].Name != "BOROBUDUR MARATHON" || races[0].Date != "2024-11-17" {
		t.Fatalf("races = %+v", races)
	}
	expenses := rec.Expenses()
	if len(expenses) != 1 {
		t.Fatalf("expenses = %+v", expenses)
	}
	got := expenses[0]
	if got.Amount != "225000" || got.Category != "Accommodation" || got.RaceName != race.Name || !got.ArchivedAt.Equal(at) {
		t.Errorf("expense record = %+v", got)
	}
	if got.ReceiptURL != "" {
		t.Errorf("receipt url = %q, want empty", got.ReceiptURL)
	}
}

func TestHandleReturnsExporterError(t *testing.T) {
	rec := memory.New()
	boom := errors.New("quota exceeded")
	rec.FailWith(boom)
	w := NewExportWorker(rec, nil)

	event := amqp.NewRaceArchived(core.Race{ID: uuid.New()}, time.Now())
	if err := w.Handle(context.Background(), &event); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}
}

func TestHandleIgnoresUnknownType(t *testing.T) {
	rec := memory.New()
	w := NewExportWorker(rec, nil)

	if err := w.Handle(context.Background(), &amqp.Event{Type: "race.deleted"}); err != nil {
		t.Fatalf("err = %v", err)
	}
	if len(rec.Races())+len(rec.Expenses()) != 0 {
		t.Fatal("nothing should be exported")
	}
}
