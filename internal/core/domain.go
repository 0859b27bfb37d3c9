package core

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	maxNameLength        = 120
	maxDescriptionLength = 200

	dateLayout = "2006-01-02"
)

type (
	// Date is a calendar date stored as UTC midnight.
	Date struct {
		time.Time
	}

	// Principal identifies the user on whose behalf an operation runs.
	Principal struct {
		UserID uuid.UUID
	}

	Race struct {
		ID        uuid.UUID
		UserID    uuid.UUID
		Name      string
		Date      Date
		Location  string
		Distance  string // free-form, e.g. "42K"
		CreatedAt time.Time
	}

	// CategoryRef is the projection of a category embedded in an expense row.
	CategoryRef struct {
		Name     string
		IconName string
	}

	Category struct {
		ID       uuid.UUID
		Name     string
		IconName string
	}

	Expense struct {
		ID          uuid.UUID
		RaceID      uuid.UUID
		CategoryID  uuid.UUID
		Amount      RawAmount
		Description string
		ExpenseDate Date
		ImageURL    *string
		Category    *CategoryRef
		CreatedAt   time.Time
	}

	// ExpenseAmount is the slice of an expense embedded in a race listing.
	ExpenseAmount struct {
		ID     uuid.UUID
		Amount RawAmount
	}

	// RaceRow is a race as listed by the gateway together with the amounts
	// of its expenses. A nil Expenses slice means the embed was absent.
	RaceRow struct {
		Race
		Expenses []ExpenseAmount
	}

	NewRace struct {
		UserID   uuid.UUID
		Name     string
		Date     Date
		Location string
		Distance string
	}

	NewExpense struct {
		RaceID      uuid.UUID
		CategoryID  uuid.UUID
		Amount      decimal.Decimal
		Description string
		ExpenseDate Date
	}
)

var (
	ErrEmptyName          = errors.New("race name is required")
	ErrNameTooLong        = errors.New("race name too long (max 120 characters)")
	ErrFieldTooLong       = errors.New("field too long (max 120 characters)")
	ErrInvalidDate        = errors.New("invalid date")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrMissingCategory    = errors.New("category is required")
	ErrMissingRace        = errors.New("race is required")
	ErrMissingOwner       = errors.New("race owner is required")
	ErrDescriptionTooLong = errors.New("description too long (max 200 characters)")
)

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar date in t's location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, int(m), d)
}

// ParseDate parses a YYYY-MM-DD string. A full RFC 3339 timestamp is also
// accepted since some backends return date columns that way.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(dateLayout, s); err == nil {
		return Date{Time: t}, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return DateOf(t), nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// String formats the date as YYYY-MM-DD.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(dateLayout)
}

// Short returns a "10 Nov" label used in expense history rows.
func (d Date) Short() string {
	if d.IsZero() {
		return ""
	}
	return d.Format("02 Jan")
}

func (r NewRace) Validate() error {
	if r.UserID == uuid.Nil {
		return ErrMissingOwner
	}
	name := strings.TrimSpace(r.Name)
	if name == "" {
		return ErrEmptyName
	}
	if len([]rune(name)) > maxNameLength {
		return ErrNameTooLong
	}
	if err := r.Date.Validate(); err != nil {
		return err
	}
	if len([]rune(r.Location)) > maxNameLength || len([]rune(r.Distance)) > maxNameLength {
		return ErrFieldTooLong
	}
	return nil
}

func (e NewExpense) Validate() error {
	if e.CategoryID == uuid.Nil {
		return ErrMissingCategory
	}
	if e.RaceID == uuid.Nil {
		return ErrMissingRace
	}
	if e.Amount.IsNegative() {
		return ErrInvalidAmount
	}
	if err := e.ExpenseDate.Validate(); err != nil {
		return err
	}
	if len([]rune(e.Description)) > maxDescriptionLength {
		return ErrDescriptionTooLong
	}
	return nil
}

// DescriptionOrDefault returns the description or the placeholder shown for
// expenses logged without notes.
func (e Expense) DescriptionOrDefault() string {
	if d := strings.TrimSpace(e.Description); d != "" {
		return d
	}
	return "No notes"
}

// Amounts returns the embedded amount view of expenses, as a race listing
// would carry it.
func Amounts(expenses []Expense) []ExpenseAmount {
	out := make([]ExpenseAmount, 0, len(expenses))
	for _, e := range expenses {
		out = append(out, ExpenseAmount{ID: e.ID, Amount: e.Amount})
	}
	return out
}
