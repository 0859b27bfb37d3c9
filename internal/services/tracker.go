package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"racevault/internal/amqp"
	"racevault/internal/core"
	"racevault/internal/gateway"
	"racevault/internal/log"
	"racevault/internal/metrics"
)

// sniffLen is how much of a receipt is read up front to detect its type.
const sniffLen = 3072

var (
	ErrUnsupportedReceipt = errors.New("receipt must be an image or a PDF")
	ErrReceiptTooLarge    = errors.New("receipt exceeds the upload limit")
	ErrEmptyReceipt       = errors.New("receipt is empty")
)

// EventPublisher announces archived records. Failures are logged and never
// undo the write that triggered them.
type EventPublisher interface {
	Publish(ctx context.Context, event amqp.Event) error
}

// Receipt is an uploaded proof of purchase.
type Receipt struct {
	Filename string
	Size     int64
	Body     io.Reader
}

type TrackerConfig struct {
	Bucket         string
	MaxUploadBytes int64
}

// Dashboard is the portfolio view of one user.
type Dashboard struct {
	Races  []core.RaceSummary
	Totals core.Totals
	Issues []core.AmountIssue
}

// ExpenseView is an expense with its rendering decisions resolved.
type ExpenseView struct {
	core.Expense
	Receipt core.ReceiptKind
	Icon    core.Icon
}

func (v ExpenseView) CategoryName() string {
	if v.Category == nil {
		return ""
	}
	return v.Category.Name
}

type RaceDetail struct {
	Race       core.Race
	Expenses   []ExpenseView
	Total      decimal.Decimal
	Issues     []core.AmountIssue
	Categories []core.Category
}

// Tracker implements the race and expense workflows on top of a gateway.
type Tracker struct {
	gw      gateway.Gateway
	objects gateway.ObjectStore
	events  EventPublisher
	metrics *metrics.Metrics
	logger  *log.Logger
	lines   *log.StructuredLogger
	icons   *core.IconRegistry
	cfg     TrackerConfig
	now     func() time.Time
}

func NewTracker(gw gateway.Gateway, objects gateway.ObjectStore, events EventPublisher, m *metrics.Metrics, logger *log.Logger, cfg TrackerConfig) *Tracker {
	if logger == nil {
		logger = log.Discard()
	}
	if cfg.Bucket == "" {
		cfg.Bucket = gateway.DefaultReceiptsBucket
	}
	logger = logger.WithComponent(log.ComponentTracker)
	return &Tracker{
		gw:      gw,
		objects: objects,
		events:  events,
		metrics: m,
		logger:  logger,
		lines:   log.NewStructuredLogger(logger),
		icons:   core.DefaultIcons(),
		cfg:     cfg,
		now:     time.Now,
	}
}

// Icons returns the registry used to resolve category icons.
func (t *Tracker) Icons() *core.IconRegistry { return t.icons }

func (t *Tracker) Dashboard(ctx context.Context, p core.Principal) (Dashboard, error) {
	rows, err := t.gw.ListRaces(ctx, p.UserID)
	if err != nil {
		return Dashboard{}, fmt.Errorf("list races: %w", err)
	}
	agg := core.AggregateRaces(rows)
	t.reportIssues(ctx, agg.Issues)
	return Dashboard{
		Races:  agg.Races,
		Totals: core.PortfolioTotals(agg.Races),
		Issues: agg.Issues,
	}, nil
}

// CreateRace stores a race owned by p. The owner in in is ignored.
func (t *Tracker) CreateRace(ctx context.Context, p core.Principal, in core.NewRace) (core.Race, error) {
	in.UserID = p.UserID
	in.Name = strings.TrimSpace(in.Name)
	in.Location = strings.TrimSpace(in.Location)
	in.Distance = strings.TrimSpace(in.Distance)
	if err := in.Validate(); err != nil {
		return core.Race{}, err
	}

	race, err := t.gw.InsertRace(ctx, in)
	if err != nil {
		return core.Race{}, fmt.Errorf("insert race: %w", err)
	}
	t.metrics.RecordCreated(metrics.KindRace)
	t.lines.LogRaceCreated(ctx, p.UserID, race.ID, race.Name)

	t.publish(ctx, amqp.NewRaceArchived(race, t.now()))
	return race, nil
}

// RaceDetail loads a race with its expenses and the category list.
// Races not owned by p are reported as gateway.ErrNotFound.
func (t *Tracker) RaceDetail(ctx context.Context, p core.Principal, raceID uuid.UUID) (RaceDetail, error) {
	var (
		race     core.Race
		expenses []core.Expense
		cats     []core.Category
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		race, err = t.gw.GetRace(gctx, p.UserID, raceID)
		if err != nil {
			return fmt.Errorf("get race: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		expenses, err = t.gw.ListExpenses(gctx, raceID)
		if err != nil {
			return fmt.Errorf("list expenses: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		cats, err = t.gw.ListCategories(gctx)
		if err != nil {
			return fmt.Errorf("list categories: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return RaceDetail{}, err
	}

	total, issues := core.ExpenseTotal(expenses)
	t.reportIssues(ctx, issues)

	views := make([]ExpenseView, 0, len(expenses))
	for _, e := range expenses {
		icon := t.icons.Fallback()
		if e.Category != nil {
			icon = t.icons.Resolve(e.Category.IconName)
		}
		views = append(views, ExpenseView{
			Expense: e,
			Receipt: core.ClassifyReceipt(e.ImageURL),
			Icon:    icon,
		})
	}

	return RaceDetail{
		Race:       race,
		Expenses:   views,
		Total:      total,
		Issues:     issues,
		Categories: core.SortCategories(cats),
	}, nil
}

// Categories returns the category reference data in display order.
func (t *Tracker) Categories(ctx context.Context) ([]core.Category, error) {
	cats, err := t.gw.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return core.SortCategories(cats), nil
}

// CreateExpense records an expense against one of p's races, uploading the
// receipt first when one is attached. If the insert fails after the upload
// the object is removed again; a failed removal is logged and counted as an
// orphan.
func (t *Tracker) CreateExpense(ctx context.Context, p core.Principal, in core.NewExpense, receipt *Receipt) (core.Expense, error) {
	in.Description = strings.TrimSpace(in.Description)
	if err := in.Validate(); err != nil {
		return core.Expense{}, err
	}

	race, err := t.gw.GetRace(ctx, p.UserID, in.RaceID)
	if err != nil {
		return core.Expense{}, fmt.Errorf("get race: %w", err)
	}

	var (
		imageURL *string
		uploaded *gateway.ObjectRef
	)
	if receipt != nil {
		ref, err := t.uploadReceipt(ctx, race.ID, receipt)
		if err != nil {
			return core.Expense{}, err
		}
		u := t.objects.PublicURL(ref.Bucket, ref.Path)
		imageURL, uploaded = &u, &ref
	}

	expense, err := t.gw.InsertExpense(ctx, in, imageURL)
	if err != nil {
		if uploaded != nil {
			t.discardReceipt(ctx, *uploaded)
		}
		return core.Expense{}, fmt.Errorf("insert expense: %w", err)
	}
	t.metrics.RecordCreated(metrics.KindExpense)
	t.lines.LogExpenseCreated(ctx, race.ID, expense.ID, expense.CategoryID, string(expense.Amount), uploaded != nil)

	t.publish(ctx, amqp.NewExpenseArchived(race, expense, t.categoryName(ctx, expense), t.now()))
	return expense, nil
}

func (t *Tracker) uploadReceipt(ctx context.Context, raceID uuid.UUID, r *Receipt) (gateway.ObjectRef, error) {
	if t.objects == nil {
		return gateway.ObjectRef{}, fmt.Errorf("upload receipt: no object store configured: %w", gateway.ErrUnavailable)
	}
	if r.Size == 0 {
		return gateway.ObjectRef{}, ErrEmptyReceipt
	}
	if t.cfg.MaxUploadBytes > 0 && r.Size > t.cfg.MaxUploadBytes {
		return gateway.ObjectRef{}, ErrReceiptTooLarge
	}

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(r.Body, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return gateway.ObjectRef{}, fmt.Errorf("read receipt: %w", err)
	}
	if n == 0 {
		return gateway.ObjectRef{}, ErrEmptyReceipt
	}
	head = head[:n]

	mt := mimetype.Detect(head)
	if !mt.Is("application/pdf") && !strings.HasPrefix(mt.String(), "image/") {
		return gateway.ObjectRef{}, fmt.Errorf("%w: got %s", ErrUnsupportedReceipt, mt.String())
	}

	// The sniffed extension wins over the client's filename so that the
	// stored URL classifies the same way the content does.
	name := r.Filename
	if ext := mt.Extension(); ext != "" {
		name = "receipt" + ext
	}

	ref, err := t.objects.Upload(ctx, gateway.Object{
		Bucket:      t.cfg.Bucket,
		Path:        core.ReceiptObjectPath(raceID, name),
		ContentType: mt.String(),
		Size:        r.Size,
		Body:        io.MultiReader(bytes.NewReader(head), r.Body),
	})
	if err != nil {
		return gateway.ObjectRef{}, fmt.Errorf("upload receipt: %w", err)
	}
	return ref, nil
}

func (t *Tracker) discardReceipt(ctx context.Context, ref gateway.ObjectRef) {
	if err := t.objects.Remove(context.WithoutCancel(ctx), ref.Bucket, ref.Path); err != nil {
		t.lines.LogOrphanedReceipt(ctx, ref.Bucket, ref.Path, err)
		t.metrics.OrphanedReceipt()
		return
	}
	t.logger.WarnContext(ctx, "Removed receipt of failed expense insert",
		log.FieldBucket, ref.Bucket,
		log.FieldObjectPath, ref.Path)
}

func (t *Tracker) categoryName(ctx context.Context, e core.Expense) string {
	if e.Category != nil {
		return e.Category.Name
	}
	cats, err := t.gw.ListCategories(ctx)
	if err != nil {
		return ""
	}
	for _, c := range cats {
		if c.ID == e.CategoryID {
			return c.Name
		}
	}
	return ""
}

func (t *Tracker) publish(ctx context.Context, event amqp.Event) {
	if t.events == nil {
		return
	}
	if err := t.events.Publish(ctx, event); err != nil {
		// The record is stored; only the export lags.
		t.metrics.PublishFailed()
		t.logger.WarnContext(ctx, "Failed to publish event",
			log.FieldEventType, event.Type,
			log.FieldError, err)
	}
}

func (t *Tracker) reportIssues(ctx context.Context, issues []core.AmountIssue) {
	if len(issues) == 0 {
		return
	}
	for _, i := range issues {
		t.lines.LogAmountIssue(ctx, i.RaceID, i.ExpenseID, string(i.Raw), i.Err)
	}
	t.metrics.AmountIssues(len(issues))
}
