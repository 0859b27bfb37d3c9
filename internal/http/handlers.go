package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"racevault/internal/auth"
	"racevault/internal/core"
	"racevault/internal/gateway"
	"racevault/internal/log"
	"racevault/internal/services"
)

// User-facing messages.
const (
	MsgRaceArchived    = "RACE ARCHIVED SUCCESSFULLY!"
	MsgExpenseArchived = "EXPENSE ARCHIVED!"
	MsgSaveFailed      = "Gagal menyimpan data"
	MsgRaceNotFound    = "Race not found"
	MsgReceiptTooLarge = "Proof file is too large"
)

// handleHealth is the liveness probe.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).String(),
	})
}

// handleReady pings the gateway and reports each check.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := map[string]any{
		"templates": "ok",
		"rate_limiter": map[string]any{
			"active_clients": s.limiter.ActiveClients(),
			"status":         "ok",
		},
	}

	switch {
	case s.ready == nil:
		checks["gateway"] = "not_configured"
		status, httpStatus = "not_ready", http.StatusServiceUnavailable
	default:
		if err := s.ready.Ping(ctx); err != nil {
			s.logger.WarnContext(ctx, "readiness check failed", log.FieldError, err)
			checks["gateway"] = "failed: " + err.Error()
			status, httpStatus = "not_ready", http.StatusServiceUnavailable
		} else {
			checks["gateway"] = "ok"
		}
	}

	writeJSON(w, httpStatus, map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// principal returns the identity resolved by the auth middleware. Its
// absence is a wiring error.
func (s *Server) principal(w http.ResponseWriter, r *http.Request) (core.Principal, bool) {
	p, ok := auth.PrincipalFrom(r.Context())
	if !ok {
		s.logger.ErrorContext(r.Context(), "request reached handler without principal", log.FieldPath, r.URL.Path)
		ErrorResponse(http.StatusUnauthorized, "Unauthorized").Write(w)
	}
	return p, ok
}

// writeError maps a failed write to a status and an error toast.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	var formErr *FormError
	switch {
	case errors.As(err, &formErr):
		UnprocessableEntityError(formErr.Message).Write(w)
	case errors.Is(err, core.ErrMissingCategory):
		UnprocessableEntityError(MsgPickCategory).Write(w)
	case isValidationError(err):
		UnprocessableEntityError(err.Error()).Write(w)
	case errors.Is(err, services.ErrReceiptTooLarge):
		TooLargeError(MsgReceiptTooLarge).Write(w)
	case errors.Is(err, gateway.ErrNotFound):
		NotFoundError(MsgRaceNotFound).Write(w)
	case errors.Is(err, context.Canceled):
		// client went away; nobody is left to read a response
	default:
		log.NewStructuredLogger(log.FromContext(r.Context())).LogError(r.Context(), "write failed", err,
			log.ComponentHTTP, op, log.NewFields().WithClientIP(clientIP(r)))
		InternalServerError(MsgSaveFailed).Write(w)
	}
}

func isValidationError(err error) bool {
	for _, target := range []error{
		core.ErrEmptyName,
		core.ErrNameTooLong,
		core.ErrFieldTooLong,
		core.ErrInvalidDate,
		core.ErrInvalidAmount,
		core.ErrMissingRace,
		core.ErrDescriptionTooLong,
		services.ErrUnsupportedReceipt,
		services.ErrEmptyReceipt,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
