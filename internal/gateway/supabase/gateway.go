package supabase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"racevault/internal/core"
	"racevault/internal/gateway"
)

var _ gateway.Gateway = (*Client)(nil)

type (
	expenseAmountRow struct {
		ID     uuid.UUID      `json:"id"`
		Amount core.RawAmount `json:"amount"`
	}

	raceRow struct {
		ID        uuid.UUID          `json:"id"`
		UserID    uuid.UUID          `json:"user_id"`
		Name      string             `json:"name"`
		Date      string             `json:"date"`
		Location  *string            `json:"location"`
		Distance  *string            `json:"distance"`
		CreatedAt time.Time          `json:"created_at"`
		Expenses  []expenseAmountRow `json:"expenses,omitempty"`
	}

	categoryRef struct {
		Name     string  `json:"name"`
		IconName *string `json:"icon_name"`
	}

	expenseRow struct {
		ID          uuid.UUID      `json:"id"`
		RaceID      uuid.UUID      `json:"race_id"`
		CategoryID  uuid.UUID      `json:"category_id"`
		Amount      core.RawAmount `json:"amount"`
		Description *string        `json:"description"`
		ExpenseDate string         `json:"expense_date"`
		ImageURL    *string        `json:"image_url"`
		CreatedAt   time.Time      `json:"created_at"`
		Category    *categoryRef   `json:"categories,omitempty"`
	}

	categoryRow struct {
		ID       uuid.UUID `json:"id"`
		Name     string    `json:"name"`
		IconName *string   `json:"icon_name"`
	}

	newRaceRow struct {
		UserID   uuid.UUID `json:"user_id"`
		Name     string    `json:"name"`
		Date     string    `json:"date"`
		Location string    `json:"location"`
		Distance string    `json:"distance"`
	}

	newExpenseRow struct {
		RaceID      uuid.UUID `json:"race_id"`
		CategoryID  uuid.UUID `json:"category_id"`
		Amount      string    `json:"amount"`
		Description string    `json:"description"`
		ExpenseDate string    `json:"expense_date"`
		ImageURL    *string   `json:"image_url"`
	}
)

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func (r raceRow) toCore() (core.RaceRow, error) {
	d, err := core.ParseDate(r.Date)
	if err != nil {
		return core.RaceRow{}, fmt.Errorf("race %s date %q: %w", r.ID, r.Date, err)
	}
	out := core.RaceRow{Race: core.Race{
		ID:        r.ID,
		UserID:    r.UserID,
		Name:      r.Name,
		Date:      d,
		Location:  deref(r.Location),
		Distance:  deref(r.Distance),
		CreatedAt: r.CreatedAt,
	}}
	if r.Expenses != nil {
		out.Expenses = make([]core.ExpenseAmount, 0, len(r.Expenses))
		for _, e := range r.Expenses {
			out.Expenses = append(out.Expenses, core.ExpenseAmount{ID: e.ID, Amount: e.Amount})
		}
	}
	return out, nil
}

func (r expenseRow) toCore() (core.Expense, error) {
	d, err := core.ParseDate(r.ExpenseDate)
	if err != nil {
		return core.Expense{}, fmt.Errorf("expense %s date %q: %w", r.ID, r.ExpenseDate, err)
	}
	e := core.Expense{
		ID:          r.ID,
		RaceID:      r.RaceID,
		CategoryID:  r.CategoryID,
		Amount:      r.Amount,
		Description: deref(r.Description),
		ExpenseDate: d,
		ImageURL:    r.ImageURL,
		CreatedAt:   r.CreatedAt,
	}
	if r.Category != nil {
		e.Category = &core.CategoryRef{Name: r.Category.Name, IconName: deref(r.Category.IconName)}
	}
	return e, nil
}

func (c *Client) ListRaces(ctx context.Context, userID uuid.UUID) ([]core.RaceRow, error) {
	rows, err := list[raceRow](ctx, c, Query{
		Table:   gateway.TableRaces,
		Select:  "*,expenses(id,amount)",
		Filters: []Filter{Eq("user_id", userID.String())},
		Order:   &Order{Column: "date", Desc: true},
	})
	if err != nil {
		return nil, fmt.Errorf("list races: %w", err)
	}
	out := make([]core.RaceRow, 0, len(rows))
	for _, r := range rows {
		row, err := r.toCore()
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, nil
}

func (c *Client) GetRace(ctx context.Context, userID, id uuid.UUID) (core.Race, error) {
	row, err := getOne[raceRow](ctx, c, Query{
		Table:   gateway.TableRaces,
		Filters: []Filter{Eq("id", id.String()), Eq("user_id", userID.String())},
		Single:  true,
	})
	if err != nil {
		return core.Race{}, fmt.Errorf("get race %s: %w", id, err)
	}
	r, err := row.toCore()
	return r.Race, err
}

func (c *Client) InsertRace(ctx context.Context, in core.NewRace) (core.Race, error) {
	if err := in.Validate(); err != nil {
		return core.Race{}, err
	}
	row, err := insert[raceRow](ctx, c, gateway.TableRaces, "", newRaceRow{
		UserID:   in.UserID,
		Name:     in.Name,
		Date:     in.Date.String(),
		Location: in.Location,
		Distance: in.Distance,
	})
	if err != nil {
		return core.Race{}, fmt.Errorf("insert race: %w", err)
	}
	r, err := row.toCore()
	return r.Race, err
}

func (c *Client) ListExpenses(ctx context.Context, raceID uuid.UUID) ([]core.Expense, error) {
	rows, err := list[expenseRow](ctx, c, Query{
		Table:   gateway.TableExpenses,
		Select:  "*,categories(name,icon_name)",
		Filters: []Filter{Eq("race_id", raceID.String())},
		Order:   &Order{Column: "expense_date", Desc: true},
	})
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	out := make([]core.Expense, 0, len(rows))
	for _, r := range rows {
		e, err := r.toCore()
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func (c *Client) InsertExpense(ctx context.Context, in core.NewExpense, imageURL *string) (core.Expense, error) {
	if err := in.Validate(); err != nil {
		return core.Expense{}, err
	}
	row, err := insert[expenseRow](ctx, c, gateway.TableExpenses, "*,categories(name,icon_name)", newExpenseRow{
		RaceID:      in.RaceID,
		CategoryID:  in.CategoryID,
		Amount:      in.Amount.String(),
		Description: in.Description,
		ExpenseDate: in.ExpenseDate.String(),
		ImageURL:    imageURL,
	})
	if err != nil {
		return core.Expense{}, fmt.Errorf("insert expense: %w", err)
	}
	return row.toCore()
}

func (c *Client) ListCategories(ctx context.Context) ([]core.Category, error) {
	rows, err := list[categoryRow](ctx, c, Query{
		Table: gateway.TableCategories,
		Order: &Order{Column: "name"},
	})
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	out := make([]core.Category, 0, len(rows))
	for _, r := range rows {
		out = append(out, core.Category{ID: r.ID, Name: r.Name, IconName: deref(r.IconName)})
	}
	return out, nil
}

// Ping reads a single category id, which proves both reachability and the
// api key.
func (c *Client) Ping(ctx context.Context) error {
	_, err := list[struct {
		ID uuid.UUID `json:"id"`
	}](ctx, c, Query{Table: gateway.TableCategories, Select: "id", Limit: 1})
	if err != nil {
		return fmt.Errorf("ping supabase: %w", err)
	}
	return nil
}
