// Package google appends archived records to a Google Sheets spreadsheet.
package google

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"racevault/internal/log"
	"racevault/internal/sheets"
)

const (
	DefaultRacesSheet    = "Races"
	DefaultExpensesSheet = "Expenses"
)

type Options struct {
	SpreadsheetID      string
	ServiceAccountJSON string
	ServiceAccountFile string
	RacesSheet         string
	ExpensesSheet      string

	// Endpoint and HTTPClient override the API location and transport.
	// With an HTTPClient set no credentials are loaded.
	Endpoint   string
	HTTPClient *http.Client
}

type Exporter struct {
	svc           *gsheet.Service
	spreadsheetID string
	racesSheet    string
	expensesSheet string
	logger        *log.Logger
}

var _ sheets.Exporter = (*Exporter)(nil)

func New(ctx context.Context, opts Options, logger *log.Logger) (*Exporter, error) {
	if strings.TrimSpace(opts.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentSheets)

	svc, err := newSheetsService(ctx, opts, logger)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	e := &Exporter{
		svc:           svc,
		spreadsheetID: opts.SpreadsheetID,
		racesSheet:    opts.RacesSheet,
		expensesSheet: opts.ExpensesSheet,
		logger:        logger,
	}
	if e.racesSheet == "" {
		e.racesSheet = DefaultRacesSheet
	}
	if e.expensesSheet == "" {
		e.expensesSheet = DefaultExpensesSheet
	}
	return e, nil
}

// newSheetsService builds the API client from inline service account JSON
// or a key file. GOOGLE_APPLICATION_CREDENTIALS is the last resort.
func newSheetsService(ctx context.Context, opts Options, logger *log.Logger) (*gsheet.Service, error) {
	clientOpts := []goption.ClientOption{goption.WithScopes(gsheet.SpreadsheetsScope)}
	if opts.Endpoint != "" {
		clientOpts = append(clientOpts, goption.WithEndpoint(opts.Endpoint))
	}

	if opts.HTTPClient != nil {
		clientOpts = append(clientOpts, goption.WithHTTPClient(opts.HTTPClient))
		return gsheet.NewService(ctx, clientOpts...)
	}

	credentialsJSON, err := loadCredentials(opts)
	if err != nil {
		return nil, err
	}
	logger.InfoContext(ctx, "Creating Google Sheets service with service account",
		"credentials_size", len(credentialsJSON))

	clientOpts = append(clientOpts,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithHTTPClient(newHTTPClientWithPooling()))
	service, err := gsheet.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

func loadCredentials(opts Options) ([]byte, error) {
	inline := strings.TrimSpace(opts.ServiceAccountJSON)
	file := strings.TrimSpace(opts.ServiceAccountFile)
	if inline == "" && file == "" {
		file = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}
	switch {
	case inline != "":
		return []byte(inline), nil
	case file != "":
		b, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return b, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
}

// newHTTPClientWithPooling returns a client with bounded timeouts and a
// small idle pool; the worker talks to a single host.
func newHTTPClientWithPooling() *http.Client {
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		MaxIdleConns:          20,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		ForceAttemptHTTP2:     true,
	}
	return &http.Client{Transport: transport, Timeout: 60 * time.Second}
}

func (e *Exporter) AppendRace(ctx context.Context, r sheets.RaceRecord) error {
	return e.append(ctx, e.racesSheet, raceValues(r))
}

func (e *Exporter) AppendExpense(ctx context.Context, x sheets.ExpenseRecord) error {
	return e.append(ctx, e.expensesSheet, expenseValues(x))
}

func (e *Exporter) append(ctx context.Context, sheet string, row []any) error {
	rng := fmt.Sprintf("%s!A:%s", quoteSheet(sheet), columnName(len(row)))
	vr := &gsheet.ValueRange{Values: [][]any{row}}
	resp, err := e.svc.Spreadsheets.Values.Append(e.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("append to %s: %w", sheet, err)
	}
	updated := ""
	if resp.Updates != nil {
		updated = resp.Updates.UpdatedRange
	}
	e.logger.DebugContext(ctx, "Appended row", "sheet", sheet, "range", updated)
	return nil
}

// EnsureHeaders writes the header row of each tab whose first row is empty.
func (e *Exporter) EnsureHeaders(ctx context.Context) error {
	tabs := []struct {
		sheet  string
		header []string
	}{
		{e.racesSheet, raceHeader},
		{e.expensesSheet, expenseHeader},
	}
	for _, tab := range tabs {
		first := fmt.Sprintf("%s!1:1", quoteSheet(tab.sheet))
		resp, err := e.svc.Spreadsheets.Values.Get(e.spreadsheetID, first).Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("read header of %s: %w", tab.sheet, err)
		}
		if len(resp.Values) > 0 && len(resp.Values[0]) > 0 {
			continue
		}

		row := make([]any, len(tab.header))
		for i, h := range tab.header {
			row[i] = h
		}
		rng := fmt.Sprintf("%s!A1:%s1", quoteSheet(tab.sheet), columnName(len(row)))
		_, err = e.svc.Spreadsheets.Values.Update(e.spreadsheetID, rng, &gsheet.ValueRange{Values: [][]any{row}}).
			ValueInputOption("RAW").Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("write header of %s: %w", tab.sheet, err)
		}
		e.logger.InfoContext(ctx, "Wrote sheet header", "sheet", tab.sheet)
	}
	return nil
}
