// Package memory is an in-process gateway used for development and tests.
package memory

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"racevault/internal/core"
	"racevault/internal/gateway"
)

var defaultCategories = []core.Category{
	{Name: "Registration", IconName: "Ticket"},
	{Name: "Travel", IconName: "Plane"},
	{Name: "Accommodation", IconName: "Hotel"},
	{Name: "Food", IconName: "Utensils"},
	{Name: "Other", IconName: "Wallet"},
}

type Store struct {
	mu       sync.Mutex
	now      func() time.Time
	races    map[uuid.UUID]core.Race
	expenses map[uuid.UUID][]core.Expense
	cats     []core.Category
}

var _ gateway.Gateway = (*Store)(nil)

// New creates a store seeded with cats. Categories without an ID get one.
func New(cats []core.Category) *Store {
	s := &Store{
		now:      func() time.Time { return time.Now().UTC() },
		races:    make(map[uuid.UUID]core.Race),
		expenses: make(map[uuid.UUID][]core.Expense),
	}
	seen := map[string]struct{}{}
	for _, c := range cats {
		c.Name = strings.TrimSpace(c.Name)
		if c.Name == "" {
			continue
		}
		if _, ok := seen[c.Name]; ok {
			continue
		}
		seen[c.Name] = struct{}{}
		if c.ID == uuid.Nil {
			c.ID = uuid.New()
		}
		s.cats = append(s.cats, c)
	}
	return s
}

// NewFromFiles seeds categories from base/seed_categories.txt, one
// "Name|IconName" per line. A missing or empty file yields the defaults.
func NewFromFiles(base string) *Store {
	cats := readCategories(filepath.Join(base, "seed_categories.txt"))
	if len(cats) == 0 {
		cats = defaultCategories
	}
	return New(cats)
}

func (s *Store) ListRaces(_ context.Context, userID uuid.UUID) ([]core.RaceRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.RaceRow, 0)
	for _, r := range s.races {
		if r.UserID != userID {
			continue
		}
		out = append(out, core.RaceRow{Race: r, Expenses: core.Amounts(s.expenses[r.ID])})
	}
	slices.SortFunc(out, func(a, b core.RaceRow) int {
		if c := b.Date.Compare(a.Date.Time); c != 0 {
			return c
		}
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return out, nil
}

func (s *Store) GetRace(_ context.Context, userID, id uuid.UUID) (core.Race, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.races[id]
	if !ok || r.UserID != userID {
		return core.Race{}, fmt.Errorf("race %s: %w", id, gateway.ErrNotFound)
	}
	return r, nil
}

func (s *Store) InsertRace(_ context.Context, in core.NewRace) (core.Race, error) {
	if err := in.Validate(); err != nil {
		return core.Race{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	r := core.Race{
		ID:        uuid.New(),
		UserID:    in.UserID,
		Name:      strings.TrimSpace(in.Name),
		Date:      in.Date,
		Location:  strings.TrimSpace(in.Location),
		Distance:  strings.TrimSpace(in.Distance),
		CreatedAt: s.now(),
	}
	s.races[r.ID] = r
	return r, nil
}

func (s *Store) ListExpenses(_ context.Context, raceID uuid.UUID) ([]core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := s.expenses[raceID]
	out := make([]core.Expense, 0, len(stored))
	// newest insert first, so equal timestamps still list latest on top
	for i := len(stored) - 1; i >= 0; i-- {
		e := stored[i]
		if c, ok := s.category(e.CategoryID); ok {
			e.Category = &core.CategoryRef{Name: c.Name, IconName: c.IconName}
		}
		out = append(out, e)
	}
	slices.SortStableFunc(out, func(a, b core.Expense) int {
		if c := b.ExpenseDate.Compare(a.ExpenseDate.Time); c != 0 {
			return c
		}
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return out, nil
}

func (s *Store) InsertExpense(_ context.Context, in core.NewExpense, imageURL *string) (core.Expense, error) {
	if err := in.Validate(); err != nil {
		return core.Expense{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.races[in.RaceID]; !ok {
		return core.Expense{}, fmt.Errorf("race %s: %w", in.RaceID, gateway.ErrConflict)
	}
	if _, ok := s.category(in.CategoryID); !ok {
		return core.Expense{}, fmt.Errorf("category %s: %w", in.CategoryID, gateway.ErrConflict)
	}
	e := core.Expense{
		ID:          uuid.New(),
		RaceID:      in.RaceID,
		CategoryID:  in.CategoryID,
		Amount:      core.AmountOf(in.Amount),
		Description: strings.TrimSpace(in.Description),
		ExpenseDate: in.ExpenseDate,
		ImageURL:    imageURL,
		CreatedAt:   s.now(),
	}
	s.expenses[in.RaceID] = append(s.expenses[in.RaceID], e)
	return e, nil
}

// ListCategories returns categories ordered by name.
func (s *Store) ListCategories(_ context.Context) ([]core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := slices.Clone(s.cats)
	slices.SortFunc(out, func(a, b core.Category) int { return strings.Compare(a.Name, b.Name) })
	return out, nil
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) category(id uuid.UUID) (core.Category, bool) {
	for _, c := range s.cats {
		if c.ID == id {
			return c, true
		}
	}
	return core.Category{}, false
}

func readCategories(path string) []core.Category {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	var out []core.Category
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		name, icon, _ := strings.Cut(line, "|")
		out = append(out, core.Category{Name: strings.TrimSpace(name), IconName: strings.TrimSpace(icon)})
	}
	return out
}
