package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"racevault/internal/core"
	"racevault/internal/gateway"

	_ "modernc.org/sqlite"
)

const pragmas = "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
	now     func() time.Time
}

var _ gateway.Gateway = (*SQLiteRepository)(nil)

// NewSQLiteRepository opens (creating if needed) the database at dbPath and
// migrates it to the latest schema.
func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}
	dsn := dataSourceName(dbPath)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	version, err := RunMigrations(dsn)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	slog.Info("SQLite schema ready", "path", dbPath, "version", version)

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
		now:     func() time.Time { return time.Now().UTC() },
	}, nil
}

func dataSourceName(dbPath string) string {
	sep := "?"
	if strings.Contains(dbPath, "?") {
		sep = "&"
	}
	return "file:" + dbPath + sep + pragmas
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping sqlite: %w: %w", gateway.ErrUnavailable, err)
	}
	return nil
}

func (r *SQLiteRepository) ListRaces(ctx context.Context, userID uuid.UUID) ([]core.RaceRow, error) {
	races, err := r.queries.ListRacesByUser(ctx, userID.String())
	if err != nil {
		return nil, fmt.Errorf("list races: %w", err)
	}
	amounts, err := r.queries.ListExpenseAmountsByUser(ctx, userID.String())
	if err != nil {
		return nil, fmt.Errorf("list expense amounts: %w", err)
	}

	byRace := make(map[string][]core.ExpenseAmount, len(races))
	for _, a := range amounts {
		id, err := uuid.Parse(a.ID)
		if err != nil {
			return nil, fmt.Errorf("expense id %q: %w", a.ID, err)
		}
		byRace[a.RaceID] = append(byRace[a.RaceID], core.ExpenseAmount{ID: id, Amount: core.RawAmount(a.Amount)})
	}

	out := make([]core.RaceRow, 0, len(races))
	for _, rec := range races {
		race, err := toRace(rec)
		if err != nil {
			return nil, err
		}
		expenses := byRace[rec.ID]
		if expenses == nil {
			expenses = []core.ExpenseAmount{}
		}
		out = append(out, core.RaceRow{Race: race, Expenses: expenses})
	}
	return out, nil
}

func (r *SQLiteRepository) GetRace(ctx context.Context, userID, id uuid.UUID) (core.Race, error) {
	rec, err := r.queries.GetRace(ctx, id.String(), userID.String())
	if errors.Is(err, sql.ErrNoRows) {
		return core.Race{}, fmt.Errorf("race %s: %w", id, gateway.ErrNotFound)
	}
	if err != nil {
		return core.Race{}, fmt.Errorf("get race: %w", err)
	}
	return toRace(rec)
}

func (r *SQLiteRepository) InsertRace(ctx context.Context, in core.NewRace) (core.Race, error) {
	if err := in.Validate(); err != nil {
		return core.Race{}, err
	}
	rec := RaceRecord{
		ID:        uuid.NewString(),
		UserID:    in.UserID.String(),
		Name:      strings.TrimSpace(in.Name),
		Date:      in.Date.String(),
		Location:  strings.TrimSpace(in.Location),
		Distance:  strings.TrimSpace(in.Distance),
		CreatedAt: r.now().Format(time.RFC3339Nano),
	}
	if err := r.queries.CreateRace(ctx, rec); err != nil {
		return core.Race{}, fmt.Errorf("create race: %w", mapError(err))
	}
	slog.DebugContext(ctx, "Race saved to SQLite", "id", rec.ID, "name", rec.Name)
	return toRace(rec)
}

func (r *SQLiteRepository) ListExpenses(ctx context.Context, raceID uuid.UUID) ([]core.Expense, error) {
	recs, err := r.queries.ListExpensesByRace(ctx, raceID.String())
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	out := make([]core.Expense, 0, len(recs))
	for _, rec := range recs {
		e, err := toExpense(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func (r *SQLiteRepository) InsertExpense(ctx context.Context, in core.NewExpense, imageURL *string) (core.Expense, error) {
	if err := in.Validate(); err != nil {
		return core.Expense{}, err
	}
	rec := ExpenseRecord{
		ID:          uuid.NewString(),
		RaceID:      in.RaceID.String(),
		CategoryID:  in.CategoryID.String(),
		Amount:      in.Amount.String(),
		Description: strings.TrimSpace(in.Description),
		ExpenseDate: in.ExpenseDate.String(),
		CreatedAt:   r.now().Format(time.RFC3339Nano),
	}
	if imageURL != nil {
		rec.ImageURL = sql.NullString{String: *imageURL, Valid: true}
	}
	if err := r.queries.CreateExpense(ctx, rec); err != nil {
		return core.Expense{}, fmt.Errorf("create expense: %w", mapError(err))
	}
	slog.DebugContext(ctx, "Expense saved to SQLite", "id", rec.ID, "race_id", rec.RaceID, "amount", rec.Amount)
	return toExpense(rec)
}

func (r *SQLiteRepository) ListCategories(ctx context.Context) ([]core.Category, error) {
	recs, err := r.queries.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	out := make([]core.Category, 0, len(recs))
	for _, rec := range recs {
		id, err := uuid.Parse(rec.ID)
		if err != nil {
			return nil, fmt.Errorf("category id %q: %w", rec.ID, err)
		}
		out = append(out, core.Category{ID: id, Name: rec.Name, IconName: rec.IconName})
	}
	return out, nil
}

func toRace(rec RaceRecord) (core.Race, error) {
	id, err := uuid.Parse(rec.ID)
	if err != nil {
		return core.Race{}, fmt.Errorf("race id %q: %w", rec.ID, err)
	}
	userID, err := uuid.Parse(rec.UserID)
	if err != nil {
		return core.Race{}, fmt.Errorf("race %s user id: %w", rec.ID, err)
	}
	date, err := core.ParseDate(rec.Date)
	if err != nil {
		return core.Race{}, fmt.Errorf("race %s date %q: %w", rec.ID, rec.Date, err)
	}
	created, _ := time.Parse(time.RFC3339Nano, rec.CreatedAt)
	return core.Race{
		ID:        id,
		UserID:    userID,
		Name:      rec.Name,
		Date:      date,
		Location:  rec.Location,
		Distance:  rec.Distance,
		CreatedAt: created,
	}, nil
}

func toExpense(rec ExpenseRecord) (core.Expense, error) {
	id, err := uuid.Parse(rec.ID)
	if err != nil {
		return core.Expense{}, fmt.Errorf("expense id %q: %w", rec.ID, err)
	}
	raceID, err := uuid.Parse(rec.RaceID)
	if err != nil {
		return core.Expense{}, fmt.Errorf("expense %s race id: %w", rec.ID, err)
	}
	categoryID, err := uuid.Parse(rec.CategoryID)
	if err != nil {
		return core.Expense{}, fmt.Errorf("expense %s category id: %w", rec.ID, err)
	}
	date, err := core.ParseDate(rec.ExpenseDate)
	if err != nil {
		return core.Expense{}, fmt.Errorf("expense %s date %q: %w", rec.ID, rec.ExpenseDate, err)
	}
	created, _ := time.Parse(time.RFC3339Nano, rec.CreatedAt)
	e := core.Expense{
		ID:          id,
		RaceID:      raceID,
		CategoryID:  categoryID,
		Amount:      core.RawAmount(rec.Amount),
		Description: rec.Description,
		ExpenseDate: date,
		CreatedAt:   created,
	}
	if rec.ImageURL.Valid {
		u := rec.ImageURL.String
		e.ImageURL = &u
	}
	if rec.CategoryName.Valid {
		e.Category = &core.CategoryRef{Name: rec.CategoryName.String, IconName: rec.CategoryIcon.String}
	}
	return e, nil
}

// mapError translates constraint failures into gateway sentinels.
func mapError(err error) error {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "FOREIGN KEY constraint failed"),
		strings.Contains(msg, "UNIQUE constraint failed"):
		return fmt.Errorf("%w: %w", gateway.ErrConflict, err)
	default:
		return err
	}
}
