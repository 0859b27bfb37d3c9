// Package worker consumes archive events and exports them to a spreadsheet.
package worker

import (
	"context"
	"fmt"

	"racevault/internal/amqp"
	"racevault/internal/log"
	"racevault/internal/sheets"
)

type ExportWorker struct {
	exporter sheets.Exporter
	logger   *log.Logger
}

func NewExportWorker(exporter sheets.Exporter, logger *log.Logger) *ExportWorker {
	if logger == nil {
		logger = log.Discard()
	}
	return &ExportWorker{exporter: exporter, logger: logger.WithComponent(log.ComponentWorker)}
}

// Handle exports one event. It satisfies amqp.Handler; a returned error
// requeues the message.
func (w *ExportWorker) Handle(ctx context.Context, event *amqp.Event) error {
	switch event.Type {
	case amqp.EventRaceArchived:
		rec := RaceRecord(event)
		if err := w.exporter.AppendRace(ctx, rec); err != nil {
			return fmt.Errorf("export race %s: %w", rec.RaceID, err)
		}
		w.logger.InfoContext(ctx, "Exported race",
			log.FieldRaceID, rec.RaceID,
			"event_id", rec.EventID)
	case amqp.EventExpenseArchived:
		rec := ExpenseRecord(event)
		if err := w.exporter.AppendExpense(ctx, rec); err != nil {
			return fmt.Errorf("export expense %s: %w", rec.ExpenseID, err)
		}
		w.logger.InfoContext(ctx, "Exported expense",
			log.FieldRaceID, rec.RaceID,
			log.FieldExpenseID, rec.ExpenseID,
			"event_id", rec.EventID)
	default:
		// Validated events never get here; drop rather than loop forever.
		w.logger.WarnContext(ctx, "Ignoring event of unknown type", log.FieldEventType, event.Type)
	}
	return nil
}

// RaceRecord maps a race.archived event to a sheet row.
func RaceRecord(event *amqp.Event) sheets.RaceRecord {
	r := event.Race
	return sheets.RaceRecord{
		EventID:    event.ID.String(),
		RaceID:     r.ID.String(),
		UserID:     r.UserID.String(),
		Name:       r.Name,
		Date:       r.Date,
		Location:   r.Location,
		Distance:   r.Distance,
		ArchivedAt: event.OccurredAt,
	}
}

// ExpenseRecord maps an expense.archived event to a sheet row.
func ExpenseRecord(event *amqp.Event) sheets.ExpenseRecord {
	x := event.Expense
	return sheets.ExpenseRecord{
		EventID:     event.ID.String(),
		ExpenseID:   x.ID.String(),
		RaceID:      x.RaceID.String(),
		RaceName:    x.RaceName,
		Category:    x.CategoryName,
		Amount:      x.Amount,
		Description: x.Description,
		ExpenseDate: x.ExpenseDate,
		ReceiptURL:  x.ImageURL,
		ArchivedAt:  event.OccurredAt,
	}
}
