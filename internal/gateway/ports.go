// Package gateway defines the outbound ports of the race tracker: the
// relational data store holding races, expenses and categories, and the
// object store holding expense proofs.
package gateway

import (
	"context"
	"errors"
	"io"

	"github.com/google/uuid"

	"racevault/internal/core"
)

// Table and bucket names shared by every backend.
const (
	TableRaces      = "races"
	TableExpenses   = "expenses"
	TableCategories = "categories"

	DefaultReceiptsBucket = "expense-proofs"
)

var (
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("conflict")
	ErrUnavailable = errors.New("backend unavailable")
)

// Ports for outbound adapters.
type (
	RaceStore interface {
		// ListRaces returns the races owned by userID, newest race date
		// first, each with the amounts of its expenses embedded.
		ListRaces(ctx context.Context, userID uuid.UUID) ([]core.RaceRow, error)
		// GetRace returns ErrNotFound when the race does not exist or is
		// owned by someone else.
		GetRace(ctx context.Context, userID, id uuid.UUID) (core.Race, error)
		InsertRace(ctx context.Context, r core.NewRace) (core.Race, error)
	}

	ExpenseStore interface {
		// ListExpenses returns the expenses of a race ordered by expense
		// date descending, each with its category name and icon embedded.
		ListExpenses(ctx context.Context, raceID uuid.UUID) ([]core.Expense, error)
		InsertExpense(ctx context.Context, e core.NewExpense, imageURL *string) (core.Expense, error)
	}

	CategoryStore interface {
		// ListCategories returns all categories ordered by name.
		ListCategories(ctx context.Context) ([]core.Category, error)
	}

	// Gateway is the full relational surface plus a readiness probe.
	Gateway interface {
		RaceStore
		ExpenseStore
		CategoryStore
		Ping(ctx context.Context) error
	}

	ObjectStore interface {
		Upload(ctx context.Context, obj Object) (ObjectRef, error)
		PublicURL(bucket, path string) string
		Remove(ctx context.Context, bucket, path string) error
	}
)

// Object is a binary payload headed for a bucket.
type Object struct {
	Bucket      string
	Path        string
	ContentType string
	Size        int64
	Body        io.Reader
}

// ObjectRef identifies a stored object.
type ObjectRef struct {
	Bucket string
	Path   string
}
