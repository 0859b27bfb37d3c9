package http

import (
	"context"
	"net/http"
	"time"

	"racevault/internal/core"
	"racevault/internal/log"
	"racevault/internal/services"
)

// handleIndex renders the dashboard shell; the race list arrives through
// /ui/races once the page has loaded.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.principal(w, r); !ok {
		return
	}
	s.render(r.Context(), w, http.StatusOK, "index.html", indexPage{
		Today: today(time.Now()),
		Races: raceListPartial{State: core.Loading[services.Dashboard]()},
	})
}

// handleRaceList renders the race cards and the portfolio totals.
func (s *Server) handleRaceList(w http.ResponseWriter, r *http.Request) {
	p, ok := s.principal(w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	state := core.Load(ctx, func(ctx context.Context) (services.Dashboard, error) {
		return s.tracker.Dashboard(ctx, p)
	})
	if ctx.Err() != nil {
		return
	}
	if state.IsFailed() {
		log.FromContext(ctx).WithComponent(log.ComponentHTTP).ErrorContext(ctx, "race list failed",
			log.FieldError, state.Err(), log.FieldOperation, log.OpList)
	}
	s.render(ctx, w, http.StatusOK, "race_list", raceListPartial{State: state})
}

func (s *Server) handleCreateRace(w http.ResponseWriter, r *http.Request) {
	p, ok := s.principal(w, r)
	if !ok {
		return
	}
	in, err := ParseRaceForm(r)
	if err != nil {
		s.writeError(w, r, log.OpValidate, err)
		return
	}
	race, err := s.tracker.CreateRace(r.Context(), p, in)
	if err != nil {
		s.writeError(w, r, log.OpCreate, err)
		return
	}

	NewHTMXResponse().
		TriggerRaceCreated(race.ID.String()).
		TriggerFormReset().
		TriggerSuccessNotification(MsgRaceArchived).
		Write(w)
}
