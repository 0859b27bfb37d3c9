// Package postgres is the gateway backed by a PostgreSQL database laid out
// like the hosted backend: uuid keys, numeric amounts, date columns.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"racevault/internal/core"
	"racevault/internal/gateway"
)

type Repository struct {
	pool *pgxpool.Pool
}

var _ gateway.Gateway = (*Repository)(nil)

// Open migrates the database at url and returns a pooled repository.
func Open(ctx context.Context, url string) (*Repository, error) {
	version, err := RunMigrations(url)
	if err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	slog.Info("PostgreSQL schema ready", "version", version, "max_conns", cfg.MaxConns)
	return &Repository{pool: pool}, nil
}

func (r *Repository) Close() error {
	r.pool.Close()
	return nil
}

func (r *Repository) Ping(ctx context.Context) error {
	if err := r.pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping postgres: %w: %w", gateway.ErrUnavailable, err)
	}
	return nil
}

const raceColumns = `id, user_id, name, date::text, location, distance, created_at`

func scanRace(row pgx.Row) (core.Race, error) {
	var (
		r    core.Race
		date string
	)
	if err := row.Scan(&r.ID, &r.UserID, &r.Name, &date, &r.Location, &r.Distance, &r.CreatedAt); err != nil {
		return core.Race{}, err
	}
	d, err := core.ParseDate(date)
	if err != nil {
		return core.Race{}, fmt.Errorf("race %s date %q: %w", r.ID, date, err)
	}
	r.Date = d
	return r, nil
}

func (r *Repository) ListRaces(ctx context.Context, userID uuid.UUID) ([]core.RaceRow, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+raceColumns+` FROM races WHERE user_id = $1 ORDER BY date DESC, created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list races: %w", err)
	}
	races, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (core.Race, error) { return scanRace(row) })
	if err != nil {
		return nil, fmt.Errorf("scan races: %w", err)
	}

	rows, err = r.pool.Query(ctx, `
		SELECT e.id, e.race_id, e.amount::text
		FROM expenses e JOIN races r ON r.id = e.race_id
		WHERE r.user_id = $1`, userID)
	if err != nil {
		return nil, fmt.Errorf("list expense amounts: %w", err)
	}
	byRace := make(map[uuid.UUID][]core.ExpenseAmount, len(races))
	var (
		id, raceID uuid.UUID
		amount     string
	)
	_, err = pgx.ForEachRow(rows, []any{&id, &raceID, &amount}, func() error {
		byRace[raceID] = append(byRace[raceID], core.ExpenseAmount{ID: id, Amount: core.RawAmount(amount)})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan expense amounts: %w", err)
	}

	out := make([]core.RaceRow, 0, len(races))
	for _, race := range races {
		expenses := byRace[race.ID]
		if expenses == nil {
			expenses = []core.ExpenseAmount{}
		}
		out = append(out, core.RaceRow{Race: race, Expenses: expenses})
	}
	return out, nil
}

func (r *Repository) GetRace(ctx context.Context, userID, id uuid.UUID) (core.Race, error) {
	race, err := scanRace(r.pool.QueryRow(ctx,
		`SELECT `+raceColumns+` FROM races WHERE id = $1 AND user_id = $2`, id, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return core.Race{}, fmt.Errorf("race %s: %w", id, gateway.ErrNotFound)
	}
	if err != nil {
		return core.Race{}, fmt.Errorf("get race: %w", err)
	}
	return race, nil
}

func (r *Repository) InsertRace(ctx context.Context, in core.NewRace) (core.Race, error) {
	if err := in.Validate(); err != nil {
		return core.Race{}, err
	}
	race, err := scanRace(r.pool.QueryRow(ctx, `
		INSERT INTO races (user_id, name, date, location, distance)
		VALUES ($1, $2, $3::date, $4, $5)
		RETURNING `+raceColumns,
		in.UserID, strings.TrimSpace(in.Name), in.Date.String(), strings.TrimSpace(in.Location), strings.TrimSpace(in.Distance)))
	if err != nil {
		return core.Race{}, fmt.Errorf("create race: %w", mapError(err))
	}
	return race, nil
}

func (r *Repository) ListExpenses(ctx context.Context, raceID uuid.UUID) ([]core.Expense, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT e.id, e.race_id, e.category_id, e.amount::text, e.description, e.expense_date::text,
		       e.image_url, e.created_at, c.name, c.icon_name
		FROM expenses e
		LEFT JOIN categories c ON c.id = e.category_id
		WHERE e.race_id = $1
		ORDER BY e.expense_date DESC, e.created_at DESC`, raceID)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	expenses, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (core.Expense, error) {
		var (
			e                    core.Expense
			amount, date         string
			catName, catIconName *string
		)
		if err := row.Scan(&e.ID, &e.RaceID, &e.CategoryID, &amount, &e.Description, &date,
			&e.ImageURL, &e.CreatedAt, &catName, &catIconName); err != nil {
			return core.Expense{}, err
		}
		d, err := core.ParseDate(date)
		if err != nil {
			return core.Expense{}, fmt.Errorf("expense %s date %q: %w", e.ID, date, err)
		}
		e.Amount = core.RawAmount(amount)
		e.ExpenseDate = d
		if catName != nil {
			e.Category = &core.CategoryRef{Name: *catName}
			if catIconName != nil {
				e.Category.IconName = *catIconName
			}
		}
		return e, nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan expenses: %w", err)
	}
	return expenses, nil
}

func (r *Repository) InsertExpense(ctx context.Context, in core.NewExpense, imageURL *string) (core.Expense, error) {
	if err := in.Validate(); err != nil {
		return core.Expense{}, err
	}
	var (
		e            core.Expense
		amount, date string
	)
	err := r.pool.QueryRow(ctx, `
		INSERT INTO expenses (race_id, category_id, amount, description, expense_date, image_url)
		VALUES ($1, $2, $3::numeric, $4, $5::date, $6)
		RETURNING id, race_id, category_id, amount::text, description, expense_date::text, image_url, created_at`,
		in.RaceID, in.CategoryID, in.Amount.String(), strings.TrimSpace(in.Description), in.ExpenseDate.String(), imageURL,
	).Scan(&e.ID, &e.RaceID, &e.CategoryID, &amount, &e.Description, &date, &e.ImageURL, &e.CreatedAt)
	if err != nil {
		return core.Expense{}, fmt.Errorf("create expense: %w", mapError(err))
	}
	e.Amount = core.RawAmount(amount)
	if e.ExpenseDate, err = core.ParseDate(date); err != nil {
		return core.Expense{}, fmt.Errorf("expense %s date %q: %w", e.ID, date, err)
	}
	return e, nil
}

func (r *Repository) ListCategories(ctx context.Context) ([]core.Category, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, icon_name FROM categories ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	cats, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (core.Category, error) {
		var c core.Category
		err := row.Scan(&c.ID, &c.Name, &c.IconName)
		return c, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan categories: %w", err)
	}
	return cats, nil
}

// mapError turns integrity violations (class 23) into gateway.ErrConflict.
func mapError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && strings.HasPrefix(pgErr.Code, "23") {
		return fmt.Errorf("%w: %s (%s)", gateway.ErrConflict, pgErr.Message, pgErr.Code)
	}
	return err
}
