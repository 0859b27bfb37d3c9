package http

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"racevault/internal/core"
	"racevault/internal/log"
	"racevault/internal/services"
	appweb "racevault/web"
)

// MsgFetchFailed is shown in place of data that could not be loaded.
const MsgFetchFailed = "Gagal mengambil data"

func parseTemplates(icons *core.IconRegistry) (*template.Template, error) {
	funcs := template.FuncMap{
		"idr":        core.FormatIDR,
		"short":      func(d core.Date) string { return d.Short() },
		"icon":       icons.Resolve,
		"upper":      strings.ToUpper,
		"isDocument": func(k core.ReceiptKind) bool { return k == core.ReceiptDocument },
		"isImage":    func(k core.ReceiptKind) bool { return k == core.ReceiptImage },
		// Icon markup comes from the built-in registry, never from users.
		"svg": func(ic core.Icon) template.HTML { return template.HTML(ic.SVG) },
		// Unreadable amounts render as zero, matching the totals.
		"amount": func(raw core.RawAmount) decimal.Decimal {
			d, err := core.ParseAmount(raw)
			if err != nil {
				return decimal.Zero
			}
			return d
		},
		"deref": func(s *string) string {
			if s == nil {
				return ""
			}
			return *s
		},
	}
	t, err := template.New("racevault").Funcs(funcs).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return t, nil
}

// Page and partial models. Partials hold a Loadable so the templates can
// branch on every state.
type (
	indexPage struct {
		Today string
		Races raceListPartial
	}

	raceListPartial struct {
		State core.Loadable[services.Dashboard]
	}

	racePage struct {
		Race       core.Race
		Today      string
		Categories []core.Category
		History    expenseHistoryPartial
	}

	// expenseHistoryPartial also carries the header total; OOB marks a
	// refresh, where the total is swapped out of band.
	expenseHistoryPartial struct {
		RaceID string
		State  core.Loadable[raceHistory]
		OOB    bool
	}

	raceHistory struct {
		Expenses []services.ExpenseView
		Total    decimal.Decimal
		Issues   []core.AmountIssue
	}
)

func historyOf(d services.RaceDetail) raceHistory {
	return raceHistory{Expenses: d.Expenses, Total: d.Total, Issues: d.Issues}
}

// render executes name into a buffer first so a failing template never
// leaves a half-written page.
func (s *Server) render(ctx context.Context, w http.ResponseWriter, status int, name string, data any) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		log.FromContext(ctx).WithComponent(log.ComponentHTTP).ErrorContext(ctx, "template execution failed",
			log.FieldError, err, log.FieldOperation, log.OpRender, "template", name)
		InternalServerError(MsgFetchFailed).Write(w)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func today(now time.Time) string {
	return core.DateOf(now).String()
}
