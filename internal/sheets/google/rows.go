package google

import (
	"strings"
	"time"

	"racevault/internal/core"
	"racevault/internal/sheets"
)

var (
	raceHeader    = []string{"Archived At", "Event", "Race ID", "User ID", "Name", "Date", "Location", "Distance"}
	expenseHeader = []string{"Archived At", "Event", "Expense ID", "Race ID", "Race", "Date", "Category", "Amount", "Description", "Receipt"}
)

func raceValues(r sheets.RaceRecord) []any {
	return []any{
		timestamp(r.ArchivedAt),
		r.EventID,
		r.RaceID,
		r.UserID,
		text(r.Name),
		r.Date,
		text(r.Location),
		text(r.Distance),
	}
}

func expenseValues(e sheets.ExpenseRecord) []any {
	return []any{
		timestamp(e.ArchivedAt),
		e.EventID,
		e.ExpenseID,
		e.RaceID,
		text(e.RaceName),
		e.ExpenseDate,
		text(e.Category),
		amountCell(e.Amount),
		text(e.Description),
		e.ReceiptURL,
	}
}

// amountCell writes parseable amounts as numbers. Anything else goes in as
// quoted text so the sheet keeps the original value.
func amountCell(raw string) any {
	d, err := core.ParseAmount(core.RawAmount(raw))
	if err != nil {
		return text(raw)
	}
	return d.String()
}

// text stops USER_ENTERED input from being read as a formula or number.
func text(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	switch s[0] {
	case '=', '+', '-', '@', '\'':
		return "'" + s
	}
	return s
}

func timestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format("2006-01-02 15:04:05")
}

// columnName converts a 1-based column count to its A1 letter.
func columnName(n int) string {
	if n < 1 {
		return "A"
	}
	var b []byte
	for n > 0 {
		n--
		b = append([]byte{byte('A' + n%26)}, b...)
		n /= 26
	}
	return string(b)
}

// quoteSheet quotes a tab name for use in A1 notation.
func quoteSheet(name string) string {
	if strings.IndexFunc(name, func(r rune) bool {
		return !(r == '_' || r >= '0' && r <= '9' || r >= 'A' && r <= 'Z' || r >= 'a' && r <= 'z')
	}) < 0 {
		return name
	}
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}
