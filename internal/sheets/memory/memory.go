// Package memory is an Exporter that keeps rows in process.
package memory

import (
	"context"
	"sync"

	"racevault/internal/sheets"
)

type Recorder struct {
	mu       sync.Mutex
	races    []sheets.RaceRecord
	expenses []sheets.ExpenseRecord
	err      error
}

var _ sheets.Exporter = (*Recorder)(nil)

func New() *Recorder {
	return &Recorder{}
}

// FailWith makes every subsequent append return err. A nil err restores
// normal behavior.
func (r *Recorder) FailWith(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
}

func (r *Recorder) AppendRace(_ context.Context, rec sheets.RaceRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.races = append(r.races, rec)
	return nil
}

func (r *Recorder) AppendExpense(_ context.Context, rec sheets.ExpenseRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.expenses = append(r.expenses, rec)
	return nil
}

func (r *Recorder) Races() []sheets.RaceRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]sheets.RaceRecord(nil), r.races...)
}

func (r *Recorder) Expenses() []sheets.ExpenseRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]sheets.ExpenseRecord(nil), r.expenses...)
}
