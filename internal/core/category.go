package core

import (
	"slices"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// SortCategories returns a copy of cats ordered alphabetically by name.
// Collation is locale aware and case-insensitive; equal names fall back to
// ID order so the result is deterministic.
func SortCategories(cats []Category) []Category {
	out := slices.Clone(cats)
	col := collate.New(language.Indonesian, collate.IgnoreCase)
	slices.SortStableFunc(out, func(a, b Category) int {
		if c := col.CompareString(a.Name, b.Name); c != 0 {
			return c
		}
		return strings.Compare(a.ID.String(), b.ID.String())
	})
	return out
}

// CategoryNames is a convenience for logs and tests.
func CategoryNames(cats []Category) []string {
	names := make([]string, len(cats))
	for i, c := range cats {
		names[i] = c.Name
	}
	return names
}
