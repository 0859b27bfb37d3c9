package http

import (
	"encoding/json"
	"html/template"
	"net/http"
)

// Event names the pages listen for to refresh their partials.
const (
	EventRaceCreated    = "race:created"
	EventExpenseCreated = "expense:created"
	EventFormReset      = "form:reset"
	EventNotification   = "show-notification"
)

// NotificationType selects the toast style in app.js.
type NotificationType string

const (
	NotificationSuccess NotificationType = "success"
	NotificationError   NotificationType = "error"
)

const (
	successToastMs = 3000
	errorToastMs   = 5000
)

// HTMXResponse collects HX-Trigger events, a status and an optional HTML
// fragment, then writes them in one go.
type HTMXResponse struct {
	triggers map[string]any
	status   int
	fragment string
}

func NewHTMXResponse() *HTMXResponse {
	return &HTMXResponse{triggers: map[string]any{}, status: http.StatusOK}
}

func (b *HTMXResponse) Status(code int) *HTMXResponse {
	b.status = code
	return b
}

// Trigger queues an event; a later trigger with the same name replaces it.
func (b *HTMXResponse) Trigger(name string, detail any) *HTMXResponse {
	b.triggers[name] = detail
	return b
}

// TriggerRaceCreated tells the dashboard to reload its race list.
func (b *HTMXResponse) TriggerRaceCreated(raceID string) *HTMXResponse {
	return b.Trigger(EventRaceCreated, map[string]string{"id": raceID})
}

// TriggerExpenseCreated tells the detail page of raceID to reload its history.
func (b *HTMXResponse) TriggerExpenseCreated(raceID string) *HTMXResponse {
	return b.Trigger(EventExpenseCreated, map[string]string{"race_id": raceID})
}

func (b *HTMXResponse) TriggerFormReset() *HTMXResponse {
	return b.Trigger(EventFormReset, struct{}{})
}

func (b *HTMXResponse) TriggerNotification(kind NotificationType, message string, durationMs int) *HTMXResponse {
	return b.Trigger(EventNotification, map[string]any{
		"type":     string(kind),
		"message":  message,
		"duration": durationMs,
	})
}

func (b *HTMXResponse) TriggerSuccessNotification(message string) *HTMXResponse {
	return b.TriggerNotification(NotificationSuccess, message, successToastMs)
}

func (b *HTMXResponse) TriggerErrorNotification(message string) *HTMXResponse {
	return b.TriggerNotification(NotificationError, message, errorToastMs)
}

// Fragment sets an HTML body. The caller is responsible for escaping.
func (b *HTMXResponse) Fragment(html string) *HTMXResponse {
	b.fragment = html
	return b
}

func (b *HTMXResponse) Write(w http.ResponseWriter) {
	if len(b.triggers) > 0 {
		if encoded, err := json.Marshal(b.triggers); err == nil {
			w.Header().Set("HX-Trigger", string(encoded))
		}
	}
	if b.fragment != "" {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
	}
	w.WriteHeader(b.status)
	if b.fragment != "" {
		_, _ = w.Write([]byte(b.fragment))
	}
}

// ErrorResponse renders message as an escaped error fragment plus an error
// toast.
func ErrorResponse(status int, message string) *HTMXResponse {
	return NewHTMXResponse().
		Status(status).
		TriggerErrorNotification(message).
		Fragment(`<div class="error">` + template.HTMLEscapeString(message) + `</div>`)
}

func UnprocessableEntityError(message string) *HTMXResponse {
	return ErrorResponse(http.StatusUnprocessableEntity, message)
}

func InternalServerError(message string) *HTMXResponse {
	return ErrorResponse(http.StatusInternalServerError, message)
}

func NotFoundError(message string) *HTMXResponse {
	return ErrorResponse(http.StatusNotFound, message)
}

func TooLargeError(message string) *HTMXResponse {
	return ErrorResponse(http.StatusRequestEntityTooLarge, message)
}
