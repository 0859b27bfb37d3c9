package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"racevault/internal/core"
	"racevault/internal/gateway"
	"racevault/internal/log"
)

// formOverhead is the allowance for the text fields of the expense form on
// top of the proof file.
const formOverhead = 64 << 10

func raceIDFrom(r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	return id, err == nil && id != uuid.Nil
}

// handleRaceDetail renders the race header, the log-expense form and the
// expense history in one pass.
func (s *Server) handleRaceDetail(w http.ResponseWriter, r *http.Request) {
	p, ok := s.principal(w, r)
	if !ok {
		return
	}
	raceID, ok := raceIDFrom(r)
	if !ok {
		NotFoundError(MsgRaceNotFound).Write(w)
		return
	}

	ctx := r.Context()
	detail, err := s.tracker.RaceDetail(ctx, p, raceID)
	switch {
	case errors.Is(err, gateway.ErrNotFound):
		NotFoundError(MsgRaceNotFound).Write(w)
		return
	case err != nil:
		if ctx.Err() != nil {
			return
		}
		log.FromContext(ctx).WithComponent(log.ComponentHTTP).ErrorContext(ctx, "race detail failed",
			log.FieldError, err, log.FieldRaceID, raceID, log.FieldOperation, log.OpRead)
		InternalServerError(MsgFetchFailed).Write(w)
		return
	}

	s.render(ctx, w, http.StatusOK, "race.html", racePage{
		Race:       detail.Race,
		Today:      today(time.Now()),
		Categories: detail.Categories,
		History: expenseHistoryPartial{
			RaceID: raceID.String(),
			State:  core.Loaded(historyOf(detail)),
		},
	})
}

// handleExpenseHistory re-renders the history list and the header total
// after an expense is archived.
func (s *Server) handleExpenseHistory(w http.ResponseWriter, r *http.Request) {
	p, ok := s.principal(w, r)
	if !ok {
		return
	}
	raceID, ok := raceIDFrom(r)
	if !ok {
		NotFoundError(MsgRaceNotFound).Write(w)
		return
	}

	ctx := r.Context()
	state := core.Load(ctx, func(ctx context.Context) (raceHistory, error) {
		d, err := s.tracker.RaceDetail(ctx, p, raceID)
		if err != nil {
			return raceHistory{}, err
		}
		return historyOf(d), nil
	})
	if ctx.Err() != nil {
		return
	}
	if errors.Is(state.Err(), gateway.ErrNotFound) {
		NotFoundError(MsgRaceNotFound).Write(w)
		return
	}
	if state.IsFailed() {
		log.FromContext(ctx).WithComponent(log.ComponentHTTP).ErrorContext(ctx, "expense history failed",
			log.FieldError, state.Err(), log.FieldRaceID, raceID, log.FieldOperation, log.OpList)
	}
	s.render(ctx, w, http.StatusOK, "expense_history", expenseHistoryPartial{
		RaceID: raceID.String(),
		State:  state,
		OOB:    true,
	})
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	p, ok := s.principal(w, r)
	if !ok {
		return
	}
	raceID, ok := raceIDFrom(r)
	if !ok {
		NotFoundError(MsgRaceNotFound).Write(w)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload+formOverhead)
	in, receipt, closer, err := ParseExpenseForm(r, raceID, formMemory)
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}
	if err != nil {
		s.writeError(w, r, log.OpValidate, err)
		return
	}
	if closer != nil {
		defer closer.Close()
	}

	expense, err := s.tracker.CreateExpense(r.Context(), p, in, receipt)
	if err != nil {
		s.writeError(w, r, log.OpCreate, err)
		return
	}

	NewHTMXResponse().
		TriggerExpenseCreated(expense.RaceID.String()).
		TriggerFormReset().
		TriggerSuccessNotification(MsgExpenseArchived).
		Write(w)
}
