package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"racevault/internal/core"
	"racevault/internal/gateway"
)

func newTestRepository(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "nested", "racevault.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func TestMigrationsSeedCategories(t *testing.T) {
	repo := newTestRepository(t)

	cats, err := repo.ListCategories(context.Background())
	require.NoError(t, err)
	require.Len(t, cats, 8)
	assert.Equal(t, "Accommodation", cats[0].Name)
	assert.Equal(t, "Hotel", cats[0].IconName)
}

func TestMigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "racevault.db")
	first, err := NewSQLiteRepository(path)
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second, err := NewSQLiteRepository(path)
	require.NoError(t, err)
	defer second.Close()
	require.NoError(t, second.Ping(context.Background()))
}

func TestRaceLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)
	user, other := uuid.New(), uuid.New()

	race, err := repo.InsertRace(ctx, core.NewRace{
		UserID: user, Name: " Borobudur Marathon ", Date: core.NewDate(2024, 11, 10),
		Location: "Magelang", Distance: "42K",
	})
	require.NoError(t, err)
	assert.Equal(t, "Borobudur Marathon", race.Name)
	assert.NotEqual(t, uuid.Nil, race.ID)

	_, err = repo.InsertRace(ctx, core.NewRace{UserID: user, Name: "Jakarta", Date: core.NewDate(2024, 10, 20)})
	require.NoError(t, err)

	rows, err := repo.ListRaces(ctx, user)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, race.ID, rows[0].ID, "newest race first")
	assert.NotNil(t, rows[0].Expenses)
	assert.Empty(t, rows[0].Expenses)

	got, err := repo.GetRace(ctx, user, race.ID)
	require.NoError(t, err)
	assert.Equal(t, "2024-11-10", got.Date.String())

	_, err = repo.GetRace(ctx, other, race.ID)
	assert.ErrorIs(t, err, gateway.ErrNotFound)

	rows, err = repo.ListRaces(ctx, other)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestExpenseLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)
	user := uuid.New()

	race, err := repo.InsertRace(ctx, core.NewRace{UserID: user, Name: "Borobudur Marathon", Date: core.NewDate(2024, 11, 10)})
	require.NoError(t, err)
	cats, err := repo.ListCategories(ctx)
	require.NoError(t, err)

	proof := "http://localhost/files/expense-proofs/x.pdf"
	_, err = repo.InsertExpense(ctx, core.NewExpense{
		RaceID: race.ID, CategoryID: cats[0].ID, Amount: decimal.NewFromInt(150000),
		Description: "Hotel DP", ExpenseDate: core.NewDate(2024, 11, 1),
	}, &proof)
	require.NoError(t, err)
	_, err = repo.InsertExpense(ctx, core.NewExpense{
		RaceID: race.ID, CategoryID: cats[1].ID, Amount: decimal.RequireFromString("75000.50"),
		ExpenseDate: core.NewDate(2024, 11, 9),
	}, nil)
	require.NoError(t, err)

	expenses, err := repo.ListExpenses(ctx, race.ID)
	require.NoError(t, err)
	require.Len(t, expenses, 2)
	assert.Equal(t, "2024-11-09", expenses[0].ExpenseDate.String())
	assert.Equal(t, core.RawAmount("75000.5"), expenses[0].Amount)
	assert.Nil(t, expenses[0].ImageURL)
	require.NotNil(t, expenses[1].Category)
	assert.Equal(t, cats[0].Name, expenses[1].Category.Name)
	require.NotNil(t, expenses[1].ImageURL)
	assert.Equal(t, proof, *expenses[1].ImageURL)

	rows, err := repo.ListRaces(ctx, user)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	agg := core.AggregateRaces(rows)
	assert.True(t, agg.Races[0].TotalSpend.Equal(decimal.RequireFromString("225000.5")))
}

func TestInsertExpenseForeignKeys(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)
	cats, err := repo.ListCategories(ctx)
	require.NoError(t, err)

	_, err = repo.InsertExpense(ctx, core.NewExpense{
		RaceID: uuid.New(), CategoryID: cats[0].ID, ExpenseDate: core.NewDate(2024, 1, 1),
	}, nil)
	assert.ErrorIs(t, err, gateway.ErrConflict)
}

func TestInsertValidatesBeforeWriting(t *testing.T) {
	repo := newTestRepository(t)
	_, err := repo.InsertRace(context.Background(), core.NewRace{UserID: uuid.New(), Date: core.NewDate(2024, 1, 1)})
	assert.ErrorIs(t, err, core.ErrEmptyName)
}
