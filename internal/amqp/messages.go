package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"racevault/internal/core"
)

type EventType string

const (
	EventRaceArchived    EventType = "race.archived"
	EventExpenseArchived EventType = "expense.archived"
)

var ErrMalformedEvent = errors.New("malformed event")

// Event announces a record that has been archived. Exactly one of Race and
// Expense is set, matching Type.
type Event struct {
	Type       EventType       `json:"type"`
	ID         uuid.UUID       `json:"id"`
	Race       *RacePayload    `json:"race,omitempty"`
	Expense    *ExpensePayload `json:"expense,omitempty"`
	OccurredAt time.Time       `json:"occurred_at"`
}

type RacePayload struct {
	ID       uuid.UUID `json:"id"`
	UserID   uuid.UUID `json:"user_id"`
	Name     string    `json:"name"`
	Date     string    `json:"date"`
	Location string    `json:"location"`
	Distance string    `json:"distance"`
}

type ExpensePayload struct {
	ID           uuid.UUID `json:"id"`
	RaceID       uuid.UUID `json:"race_id"`
	RaceName     string    `json:"race_name"`
	CategoryID   uuid.UUID `json:"category_id"`
	CategoryName string    `json:"category_name"`
	Amount       string    `json:"amount"`
	Description  string    `json:"description"`
	ExpenseDate  string    `json:"expense_date"`
	ImageURL     string    `json:"image_url,omitempty"`
}

// NewRaceArchived builds the event published after a race is stored.
func NewRaceArchived(r core.Race, at time.Time) Event {
	return Event{
		Type: EventRaceArchived,
		ID:   uuid.New(),
		Race: &RacePayload{
			ID:       r.ID,
			UserID:   r.UserID,
			Name:     r.Name,
			Date:     r.Date.String(),
			Location: r.Location,
			Distance: r.Distance,
		},
		OccurredAt: at.UTC(),
	}
}

// NewExpenseArchived builds the event published after an expense is stored.
func NewExpenseArchived(race core.Race, e core.Expense, categoryName string, at time.Time) Event {
	p := &ExpensePayload{
		ID:           e.ID,
		RaceID:       e.RaceID,
		RaceName:     race.Name,
		CategoryID:   e.CategoryID,
		CategoryName: categoryName,
		Amount:       string(e.Amount),
		Description:  e.Description,
		ExpenseDate:  e.ExpenseDate.String(),
	}
	if e.ImageURL != nil {
		p.ImageURL = *e.ImageURL
	}
	return Event{
		Type:       EventExpenseArchived,
		ID:         uuid.New(),
		Expense:    p,
		OccurredAt: at.UTC(),
	}
}

func (e Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// EventFromJSON decodes and checks an event body.
func EventFromJSON(data []byte) (*Event, error) {
	var e Event
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	if err := e.Validate(); err != nil {
		return nil, err
	}
	return &e, nil
}

func (e Event) Validate() error {
	switch e.Type {
	case EventRaceArchived:
		if e.Race == nil {
			return fmt.Errorf("%w: %s without race", ErrMalformedEvent, e.Type)
		}
	case EventExpenseArchived:
		if e.Expense == nil {
			return fmt.Errorf("%w: %s without expense", ErrMalformedEvent, e.Type)
		}
	default:
		return fmt.Errorf("%w: unknown type %q", ErrMalformedEvent, e.Type)
	}
	return nil
}
