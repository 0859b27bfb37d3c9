package storage

import (
	"context"
	"database/sql"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Queries holds the SQL used by the repository, one method per statement.
type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type RaceRecord struct {
	ID        string
	UserID    string
	Name      string
	Date      string
	Location  string
	Distance  string
	CreatedAt string
}

type ExpenseRecord struct {
	ID           string
	RaceID       string
	CategoryID   string
	Amount       string
	Description  string
	ExpenseDate  string
	ImageURL     sql.NullString
	CreatedAt    string
	CategoryName sql.NullString
	CategoryIcon sql.NullString
}

type ExpenseAmountRecord struct {
	ID     string
	RaceID string
	Amount string
}

type CategoryRecord struct {
	ID       string
	Name     string
	IconName string
}

const listRacesByUser = `
SELECT id, user_id, name, date, location, distance, created_at
FROM races
WHERE user_id = ?
ORDER BY date DESC, created_at DESC`

func (q *Queries) ListRacesByUser(ctx context.Context, userID string) ([]RaceRecord, error) {
	rows, err := q.db.QueryContext(ctx, listRacesByUser, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []RaceRecord
	for rows.Next() {
		var i RaceRecord
		if err := rows.Scan(&i.ID, &i.UserID, &i.Name, &i.Date, &i.Location, &i.Distance, &i.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const listExpenseAmountsByUser = `
SELECT e.id, e.race_id, e.amount
FROM expenses e
JOIN races r ON r.id = e.race_id
WHERE r.user_id = ?`

func (q *Queries) ListExpenseAmountsByUser(ctx context.Context, userID string) ([]ExpenseAmountRecord, error) {
	rows, err := q.db.QueryContext(ctx, listExpenseAmountsByUser, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ExpenseAmountRecord
	for rows.Next() {
		var i ExpenseAmountRecord
		if err := rows.Scan(&i.ID, &i.RaceID, &i.Amount); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const getRace = `
SELECT id, user_id, name, date, location, distance, created_at
FROM races
WHERE id = ? AND user_id = ?`

func (q *Queries) GetRace(ctx context.Context, id, userID string) (RaceRecord, error) {
	var i RaceRecord
	err := q.db.QueryRowContext(ctx, getRace, id, userID).
		Scan(&i.ID, &i.UserID, &i.Name, &i.Date, &i.Location, &i.Distance, &i.CreatedAt)
	return i, err
}

const createRace = `
INSERT INTO races (id, user_id, name, date, location, distance, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)`

func (q *Queries) CreateRace(ctx context.Context, r RaceRecord) error {
	_, err := q.db.ExecContext(ctx, createRace, r.ID, r.UserID, r.Name, r.Date, r.Location, r.Distance, r.CreatedAt)
	return err
}

const listExpensesByRace = `
SELECT e.id, e.race_id, e.category_id, e.amount, e.description, e.expense_date,
       e.image_url, e.created_at, c.name, c.icon_name
FROM expenses e
LEFT JOIN categories c ON c.id = e.category_id
WHERE e.race_id = ?
ORDER BY e.expense_date DESC, e.created_at DESC`

func (q *Queries) ListExpensesByRace(ctx context.Context, raceID string) ([]ExpenseRecord, error) {
	rows, err := q.db.QueryContext(ctx, listExpensesByRace, raceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ExpenseRecord
	for rows.Next() {
		var i ExpenseRecord
		if err := rows.Scan(&i.ID, &i.RaceID, &i.CategoryID, &i.Amount, &i.Description, &i.ExpenseDate,
			&i.ImageURL, &i.CreatedAt, &i.CategoryName, &i.CategoryIcon); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const createExpense = `
INSERT INTO expenses (id, race_id, category_id, amount, description, expense_date, image_url, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

func (q *Queries) CreateExpense(ctx context.Context, e ExpenseRecord) error {
	_, err := q.db.ExecContext(ctx, createExpense,
		e.ID, e.RaceID, e.CategoryID, e.Amount, e.Description, e.ExpenseDate, e.ImageURL, e.CreatedAt)
	return err
}

const listCategories = `
SELECT id, name, icon_name
FROM categories
ORDER BY name ASC`

func (q *Queries) ListCategories(ctx context.Context) ([]CategoryRecord, error) {
	rows, err := q.db.QueryContext(ctx, listCategories)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []CategoryRecord
	for rows.Next() {
		var i CategoryRecord
		if err := rows.Scan(&i.ID, &i.Name, &i.IconName); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}
