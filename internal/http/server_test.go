package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"slices"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"racevault/internal/auth"
	"racevault/internal/core"
	"racevault/internal/gateway/memory"
	"racevault/internal/log"
	"racevault/internal/metrics"
	"racevault/internal/services"
)

var runner = core.Principal{UserID: uuid.MustParse("3200ac84-2611-4c20-8c3e-e33c4fba5075")}

type testApp struct {
	srv     *Server
	store   *memory.Store
	objects *memory.Objects
	cats    []core.Category
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	return newTestAppWith(t, Config{})
}

func newTestAppWith(t *testing.T, cfg Config) *testApp {
	t.Helper()
	store := memory.New([]core.Category{
		{Name: "Accommodation", IconName: "Hotel"},
		{Name: "Travel", IconName: "Plane"},
	})
	cats, err := store.ListCategories(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	objects := memory.NewObjects("http://localhost:8081")
	m := metrics.New()
	tracker := services.NewTracker(store, objects, nil, m, log.Discard(), services.TrackerConfig{MaxUploadBytes: 1 << 20})

	cfg.Addr = ":0"
	cfg.MaxUploadBytes = 1 << 20
	cfg.Files = objects.Handler()
	srv, err := NewServer(cfg, tracker, auth.Placeholder{Principal: runner}, store, m, log.Discard())
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	t.Cleanup(func() { srv.limiter.Stop() })
	return &testApp{srv: srv, store: store, objects: objects, cats: cats}
}

func (a *testApp) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	a.srv.Handler.ServeHTTP(rec, req)
	return rec
}

func (a *testApp) category(name string) core.Category {
	for _, c := range a.cats {
		if c.Name == name {
			return c
		}
	}
	return core.Category{}
}

func (a *testApp) seedRace(t *testing.T) core.Race {
	t.Helper()
	race, err := a.store.InsertRace(context.Background(), core.NewRace{
		UserID:   runner.UserID,
		Name:     "Borobudur Marathon",
		Date:     core.NewDate(2024, 11, 17),
		Location: "Magelang, Indonesia",
		Distance: "42K",
	})
	if err != nil {
		t.Fatal(err)
	}
	return race
}

func expenseRequest(t *testing.T, raceID string, fields map[string]string, file []byte, filename string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatal(err)
		}
	}
	if file != nil {
		fw, err := mw.CreateFormFile("proof", filename)
		if err != nil {
			t.Fatal(err)
		}
		fw.Write(file)
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, "/race/"+raceID+"/expenses", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("HX-Request", "true")
	return req
}

type toastTrigger struct {
	Notification struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"show-notification"`
	ExpenseCreated *json.RawMessage `json:"expense:created"`
	RaceCreated    *json.RawMessage `json:"race:created"`
}

func triggers(t *testing.T, rec *httptest.ResponseRecorder) toastTrigger {
	t.Helper()
	var tr toastTrigger
	raw := rec.Header().Get("HX-Trigger")
	if raw == "" {
		t.Fatal("HX-Trigger header missing")
	}
	if err := json.Unmarshal([]byte(raw), &tr); err != nil {
		t.Fatalf("HX-Trigger %q: %v", raw, err)
	}
	return tr
}

func TestIndexAndHealth(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("index status=%d body=%s", rec.Code, rec.Body.String())
	}
	body := rec.Body.String()
	for _, want := range []string{"Register New Race", "BOROBUDUR MARATHON", "Add to Vault", "LOADING VAULT..."} {
		if !strings.Contains(body, want) {
			t.Errorf("index body missing %q", want)
		}
	}
	if rec.Header().Get("Content-Security-Policy") == "" {
		t.Error("security headers not applied")
	}

	for _, path := range []string{"/healthz", "/readyz"} {
		rec := app.do(httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("%s status=%d body=%s", path, rec.Code, rec.Body.String())
		}
	}
}

type downGateway struct{}

func (downGateway) Ping(context.Context) error { return errors.New("connection refused") }

func TestReadyReportsGatewayFailure(t *testing.T) {
	app := newTestApp(t)
	app.srv.ready = downGateway{}

	rec := app.do(httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status=%d, want 503", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "connection refused") {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestCreateRaceAndList(t *testing.T) {
	app := newTestApp(t)

	form := url.Values{
		"name":      {"Borobudur Marathon"},
		"race_date": {"2024-11-17"},
		"location":  {"Magelang, Indonesia"},
		"distance":  {"42K"},
	}
	req := httptest.NewRequest(http.MethodPost, "/races", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := app.do(req)
	if rec.Code != http.StatusOK {
		t.Fatalf("create status=%d body=%s", rec.Code, rec.Body.String())
	}
	tr := triggers(t, rec)
	if tr.Notification.Message != MsgRaceArchived || tr.RaceCreated == nil {
		t.Errorf("triggers = %+v", tr)
	}

	rec = app.do(httptest.NewRequest(http.MethodGet, "/ui/races", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("list status=%d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{"BOROBUDUR MARATHON", "42K EVENT", "Total Races", "RP 0"} {
		if !strings.Contains(body, want) {
			t.Errorf("race list missing %q:\n%s", want, body)
		}
	}
}

func TestCreateRaceValidation(t *testing.T) {
	app := newTestApp(t)

	form := url.Values{"name": {"   "}, "race_date": {"2024-11-17"}}
	req := httptest.NewRequest(http.MethodPost, "/races", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := app.do(req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status=%d, want 422", rec.Code)
	}
	if tr := triggers(t, rec); tr.Notification.Type != "error" || tr.Notification.Message != "Event Name is required" {
		t.Errorf("toast = %+v", tr.Notification)
	}
	rows, _ := app.store.ListRaces(context.Background(), runner.UserID)
	if len(rows) != 0 {
		t.Errorf("race inserted despite validation failure")
	}
}

func TestCreateExpenseWithoutCategory(t *testing.T) {
	app := newTestApp(t)
	race := app.seedRace(t)

	rec := app.do(expenseRequest(t, race.ID.String(), map[string]string{
		"expense_date": "2024-11-10",
		"amount":       "150000",
	}, nil, ""))

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status=%d, want 422 body=%s", rec.Code, rec.Body.String())
	}
	if tr := triggers(t, rec); tr.Notification.Message != MsgPickCategory {
		t.Errorf("toast = %+v", tr.Notification)
	}
	if n := app.objects.Len(); n != 0 {
		t.Errorf("objects uploaded = %d", n)
	}
	expenses, _ := app.store.ListExpenses(context.Background(), race.ID)
	if len(expenses) != 0 {
		t.Errorf("expense inserted without category")
	}
}

func TestCreateExpenseArchivesWithReceipt(t *testing.T) {
	app := newTestApp(t)
	race := app.seedRace(t)
	hotel := app.category("Accommodation")

	pdf := []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\ntrailer\n%%EOF\n")
	rec := app.do(expenseRequest(t, race.ID.String(), map[string]string{
		"category_id":  hotel.ID.String(),
		"expense_date": "2024-11-10",
		"amount":       "225000",
		"description":  "Hotel DP",
	}, pdf, "invoice.PDF"))

	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
	tr := triggers(t, rec)
	if tr.Notification.Message != MsgExpenseArchived || tr.Notification.Type != "success" {
		t.Errorf("toast = %+v", tr.Notification)
	}
	if tr.ExpenseCreated == nil {
		t.Error("HX-Trigger missing expense:created")
	}

	expenses, err := app.store.ListExpenses(context.Background(), race.ID)
	if err != nil || len(expenses) != 1 {
		t.Fatalf("expenses = %v, %v", expenses, err)
	}
	got := expenses[0]
	if d, _ := core.ParseAmount(got.Amount); !d.Equal(decimal.NewFromInt(225000)) {
		t.Errorf("amount = %s", got.Amount)
	}
	if core.ClassifyReceipt(got.ImageURL) != core.ReceiptDocument {
		t.Errorf("receipt url = %v", got.ImageURL)
	}

	// the receipt is served back under /files/
	path := strings.TrimPrefix(*got.ImageURL, "http://localhost:8081")
	rec = app.do(httptest.NewRequest(http.MethodGet, path, nil))
	if rec.Code != http.StatusOK || !bytes.Equal(rec.Body.Bytes(), pdf) {
		t.Errorf("GET %s status=%d", path, rec.Code)
	}

	rec = app.do(httptest.NewRequest(http.MethodGet, "/ui/race/"+race.ID.String()+"/expenses", nil))
	body := rec.Body.String()
	for _, want := range []string{"ACCOMMODATION", "Hotel DP", "OPEN PDF", "RP 225.000", `hx-swap-oob="true"`, "10 Nov"} {
		if !strings.Contains(body, want) {
			t.Errorf("history missing %q:\n%s", want, body)
		}
	}
}

func TestRaceDetailPage(t *testing.T) {
	app := newTestApp(t)
	race := app.seedRace(t)

	rec := app.do(httptest.NewRequest(http.MethodGet, "/race/"+race.ID.String(), nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
	body := rec.Body.String()
	for _, want := range []string{
		"42K EVENT", "Total Investment", "Log Expense", "SELECT CATEGORY", "ACCOMMODATION",
		"Amount (IDR)", "E.G. HOTEL DP", `accept="image/*,.pdf"`, "Save Record", "Expense History", "Back to Vault",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("detail page missing %q", want)
		}
	}
}

func TestRaceDetailNotFound(t *testing.T) {
	app := newTestApp(t)

	for _, path := range []string{"/race/not-a-uuid", "/race/" + uuid.NewString()} {
		rec := app.do(httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusNotFound {
			t.Errorf("%s status=%d, want 404", path, rec.Code)
		}
	}
}

func TestOtherUsersRaceIsHidden(t *testing.T) {
	app := newTestApp(t)
	race, err := app.store.InsertRace(context.Background(), core.NewRace{
		UserID: uuid.New(),
		Name:   "Someone Else's 10K",
		Date:   core.NewDate(2024, 6, 1),
	})
	if err != nil {
		t.Fatal(err)
	}

	rec := app.do(expenseRequest(t, race.ID.String(), map[string]string{
		"category_id":  app.category("Travel").ID.String(),
		"expense_date": "2024-05-30",
		"amount":       "50000",
	}, nil, ""))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status=%d, want 404", rec.Code)
	}
}

func TestValidationErrorToText(t *testing.T) {
	tests := []struct {
		name string
		form any
		want string
	}{
		{"blank name", raceForm{Name: " ", Date: "2024-11-17"}, "Event Name is required"},
		{"bad date", raceForm{Name: "X", Date: "17/11/2024"}, "Race Date must be a date (YYYY-MM-DD)"},
		{"long location", raceForm{Name: "X", Date: "2024-11-17", Location: strings.Repeat("a", 121)}, "Location cannot be longer than 120 characters"},
		{"missing category", expenseForm{Date: "2024-11-10", Amount: "1"}, MsgPickCategory},
		{"garbage category", expenseForm{CategoryID: "x", Date: "2024-11-10", Amount: "1"}, MsgPickCategory},
		{"missing amount", expenseForm{CategoryID: uuid.NewString(), Date: "2024-11-10"}, "Amount (IDR) is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateForm(tt.form)
			var fe *FormError
			if !errors.As(err, &fe) {
				t.Fatalf("err = %v, want FormError", err)
			}
			if fe.Message != tt.want {
				t.Errorf("message = %q, want %q", fe.Message, tt.want)
			}
		})
	}
}

func TestSanitizeInput(t *testing.T) {
	if got := sanitizeInput("  Hotel\x00 DP\x07 "); got != "Hotel DP" {
		t.Errorf("sanitizeInput = %q", got)
	}
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.9:5555"
	if got := clientIP(req); got != "10.0.0.9" {
		t.Errorf("clientIP = %q", got)
	}
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	if got := clientIP(req); got != "203.0.113.7" {
		t.Errorf("clientIP = %q", got)
	}
	req.Header.Set("X-Forwarded-For", "garbage-1")
	req.Header.Set("X-Real-IP", "not-an-ip")
	if got := clientIP(req); got != "10.0.0.9" {
		t.Errorf("clientIP with junk forwarding headers = %q", got)
	}
}

func TestRateLimitIgnoresJunkForwardedFor(t *testing.T) {
	app := newTestAppWith(t, Config{RateLimitPerMinute: 2})

	var codes []int
	for i := range 4 {
		form := url.Values{"name": {"Jakarta Marathon"}, "race_date": {"2024-10-20"}}
		req := httptest.NewRequest(http.MethodPost, "/races", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("garbage-%d", i))
		req.RemoteAddr = "192.0.2.1:4000"
		codes = append(codes, app.do(req).Code)
	}
	want := []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests, http.StatusTooManyRequests}
	if !slices.Equal(codes, want) {
		t.Fatalf("codes = %v, want %v", codes, want)
	}
}
