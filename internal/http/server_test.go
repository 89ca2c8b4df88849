package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"taxibook/internal/core"
	"taxibook/internal/ledger"
	"taxibook/internal/safety"
	"taxibook/internal/storage"
)

// fakeLedger backs every store port with in-memory slices.
type fakeLedger struct {
	expenses []core.ExpenseRecord
	incomes  []core.IncomeRecord
	rounds   []ledger.SafetyRound
	jobs     []ledger.ExportJob

	listCalls int
	nextID    int
}

func (f *fakeLedger) newID() string {
	f.nextID++
	return "id-" + strconv.Itoa(f.nextID)
}

func (f *fakeLedger) CreateExpense(ctx context.Context, rec core.ExpenseRecord) (string, error) {
	rec.ID = f.newID()
	f.expenses = append(f.expenses, rec)
	return rec.ID, nil
}

func (f *fakeLedger) ListExpenses(ctx context.Context, driverID string) ([]core.ExpenseRecord, error) {
	f.listCalls++
	var out []core.ExpenseRecord
	for _, rec := range f.expenses {
		if rec.DriverID == driverID {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (f *fakeLedger) DeleteExpense(ctx context.Context, id string) error {
	for i, rec := range f.expenses {
		if rec.ID == id {
			f.expenses = append(f.expenses[:i], f.expenses[i+1:]...)
			return nil
		}
	}
	return storage.ErrNotFound
}

func (f *fakeLedger) CreateIncome(ctx context.Context, rec core.IncomeRecord) (string, error) {
	rec.ID = f.newID()
	f.incomes = append(f.incomes, rec)
	return rec.ID, nil
}

func (f *fakeLedger) ListIncomes(ctx context.Context, driverID string) ([]core.IncomeRecord, error) {
	var out []core.IncomeRecord
	for _, rec := range f.incomes {
		if rec.DriverID == driverID {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (f *fakeLedger) DeleteIncome(ctx context.Context, id string) error {
	for i, rec := range f.incomes {
		if rec.ID == id {
			f.incomes = append(f.incomes[:i], f.incomes[i+1:]...)
			return nil
		}
	}
	return storage.ErrNotFound
}

func (f *fakeLedger) CreateRound(ctx context.Context, round ledger.SafetyRound) (string, error) {
	round.ID = f.newID()
	f.rounds = append(f.rounds, round)
	return round.ID, nil
}

func (f *fakeLedger) ListRounds(ctx context.Context, driverID string) ([]ledger.SafetyRound, error) {
	var out []ledger.SafetyRound
	for _, round := range f.rounds {
		if round.DriverID == driverID {
			out = append(out, round)
		}
	}
	return out, nil
}

func (f *fakeLedger) CreateJob(ctx context.Context, job ledger.ExportJob) (string, error) {
	job.ID = f.newID()
	job.Status = ledger.ExportPending
	f.jobs = append(f.jobs, job)
	return job.ID, nil
}

func (f *fakeLedger) GetJob(ctx context.Context, id string) (ledger.ExportJob, error) {
	for _, job := range f.jobs {
		if job.ID == id {
			return job, nil
		}
	}
	return ledger.ExportJob{}, storage.ErrNotFound
}

func (f *fakeLedger) ListJobs(ctx context.Context, driverID string) ([]ledger.ExportJob, error) {
	var out []ledger.ExportJob
	for _, job := range f.jobs {
		if job.DriverID == driverID {
			out = append(out, job)
		}
	}
	return out, nil
}

func (f *fakeLedger) ListPendingJobs(ctx context.Context, limit int) ([]ledger.ExportJob, error) {
	return nil, nil
}

func (f *fakeLedger) MarkJobDone(ctx context.Context, id, artifactPath string) error { return nil }

func (f *fakeLedger) MarkJobFailed(ctx context.Context, id, reason string) error { return nil }

type fakePublisher struct{ published []string }

func (p *fakePublisher) PublishExportRequest(ctx context.Context, jobID string) error {
	p.published = append(p.published, jobID)
	return nil
}

func newTestServer(t *testing.T) (*Server, *fakeLedger, *fakePublisher) {
	t.Helper()
	store := &fakeLedger{}
	pub := &fakePublisher{}
	s := NewServer(":0", Deps{
		Expenses:  store,
		Incomes:   store,
		Safety:    store,
		Jobs:      store,
		Publisher: pub,
	})
	t.Cleanup(func() { _ = s.Shutdown(context.Background()) })
	return s, store, pub
}

func doJSON(t *testing.T, s *Server, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	s.Server.Handler.ServeHTTP(rec, req)
	return rec
}

func TestCreateExpenseComputesTaxes(t *testing.T) {
	s, store, _ := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/api/expenses",
		`{"driverId":"drv-1","date":"2025-01-15","categoryId":"carburant","merchant":"Shell","amountExclTax":"100"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var got core.ExpenseRecord
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.TPS.StringFixed(2) != "5.00" || got.TVQ.StringFixed(2) != "9.98" || got.Total.StringFixed(2) != "114.98" {
		t.Fatalf("tax split = %s/%s/%s", got.TPS, got.TVQ, got.Total)
	}
	if len(store.expenses) != 1 {
		t.Fatalf("stored %d expenses", len(store.expenses))
	}
}

func TestCreateExpenseFromTotal(t *testing.T) {
	s, _, _ := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/api/expenses",
		`{"driverId":"drv-1","date":"2025-01-15","categoryId":"carburant","total":"114.98"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var got core.ExpenseRecord
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.AmountExclTax.StringFixed(2) != "100.00" {
		t.Fatalf("amountExclTax = %s", got.AmountExclTax)
	}
}

func TestCreateExpenseUnknownCategory(t *testing.T) {
	s, _, _ := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/api/expenses",
		`{"driverId":"drv-1","date":"2025-01-15","categoryId":"essence","amountExclTax":"10"}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
}

func TestCreateExpenseMissingAmount(t *testing.T) {
	s, _, _ := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/api/expenses",
		`{"driverId":"drv-1","date":"2025-01-15","categoryId":"carburant"}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
}

func TestListExpensesRequiresDriver(t *testing.T) {
	s, _, _ := newTestServer(t)

	if rec := doJSON(t, s, http.MethodGet, "/api/expenses", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestDeleteExpenseNotFound(t *testing.T) {
	s, _, _ := newTestServer(t)

	if rec := doJSON(t, s, http.MethodDelete, "/api/expenses/nope", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestImportAcceptsEpochDates(t *testing.T) {
	s, store, _ := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/api/records/import",
		`{"driverId":"drv-1","expenses":[{"id":"","driverId":"","date":{"seconds":1736899200},"categoryId":"carburant","merchant":"Esso","amountExclTax":"40","tps":"2.00","tvq":"3.99","total":"45.99"}],"incomes":[]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if len(store.expenses) != 1 {
		t.Fatalf("stored %d expenses", len(store.expenses))
	}
	key, err := store.expenses[0].Date.DayKey()
	if err != nil {
		t.Fatalf("day key: %v", err)
	}
	if key != "2025-01-15" {
		t.Fatalf("day key = %q", key)
	}
}

func TestImportRejectsBadRecordWithoutPartialWrite(t *testing.T) {
	s, store, _ := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/api/records/import",
		`{"driverId":"drv-1","expenses":[{"id":"","driverId":"","date":"2025-01-15","categoryId":"carburant","merchant":"","amountExclTax":"1","tps":"0.05","tvq":"0.10","total":"1.15"},{"id":"","driverId":"","date":"2025-01-16","categoryId":"essence","merchant":"","amountExclTax":"1","tps":"0.05","tvq":"0.10","total":"1.15"}],"incomes":[]}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if len(store.expenses) != 0 {
		t.Fatalf("partial import wrote %d expenses", len(store.expenses))
	}
}

func TestReportSummary(t *testing.T) {
	s, _, _ := newTestServer(t)

	doJSON(t, s, http.MethodPost, "/api/expenses",
		`{"driverId":"drv-1","date":"2025-01-15","categoryId":"carburant","amountExclTax":"100"}`)
	doJSON(t, s, http.MethodPost, "/api/incomes",
		`{"driverId":"drv-1","date":"2025-01-16","categoryId":"course","amount":"300"}`)

	rec := doJSON(t, s, http.MethodGet, "/api/reports/summary?driverId=drv-1&year=2025&month=1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var got summaryResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.TotalIncome != "300.00" || got.TotalExpenses != "114.98" || got.NetProfit != "185.02" {
		t.Fatalf("summary = %+v", got)
	}
	if got.ExpensesByCategory["Carburant"] != "114.98" {
		t.Fatalf("expensesByCategory = %v", got.ExpensesByCategory)
	}
}

func TestReportSummaryCached(t *testing.T) {
	s, store, _ := newTestServer(t)

	doJSON(t, s, http.MethodGet, "/api/reports/summary?driverId=drv-1&year=2025", "")
	calls := store.listCalls
	doJSON(t, s, http.MethodGet, "/api/reports/summary?driverId=drv-1&year=2025", "")
	if store.listCalls != calls {
		t.Fatalf("second summary hit storage (%d -> %d calls)", calls, store.listCalls)
	}
}

func TestReportSummaryCustomRangeReversed(t *testing.T) {
	s, _, _ := newTestServer(t)

	rec := doJSON(t, s, http.MethodGet, "/api/reports/summary?driverId=drv-1&from=2025-02-01&to=2025-01-01", "")
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
}

func TestReportCSVEndpoint(t *testing.T) {
	s, _, _ := newTestServer(t)

	doJSON(t, s, http.MethodPost, "/api/expenses",
		`{"driverId":"drv-1","date":"2025-01-15","categoryId":"carburant","merchant":"Shell","amountExclTax":"50"}`)

	rec := doJSON(t, s, http.MethodGet, "/api/reports/csv?driverId=drv-1&year=2025&month=1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Fatalf("content type = %q", ct)
	}
	body := rec.Body.String()
	if !strings.HasPrefix(body, "Date,Type,Catégorie") {
		t.Fatalf("csv body:\n%s", body)
	}
	if !strings.Contains(body, "2025-01-15,EXPENSE,Carburant") {
		t.Fatalf("csv body missing row:\n%s", body)
	}
}

func TestReportTextEndpoint(t *testing.T) {
	s, _, _ := newTestServer(t)

	doJSON(t, s, http.MethodPost, "/api/incomes",
		`{"driverId":"drv-1","date":"2025-03-02","categoryId":"course","amount":"80"}`)

	rec := doJSON(t, s, http.MethodGet, "/api/reports/text?driverId=drv-1&year=2025&month=3", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	body := rec.Body.String()
	if !strings.HasPrefix(body, "Rapport comptable 2025-03") {
		t.Fatalf("text body:\n%s", body)
	}
	if !strings.Contains(body, "\n\nDate,Type,") {
		t.Fatalf("text body missing csv section:\n%s", body)
	}
}

func TestSafetyChecklistEndpoint(t *testing.T) {
	s, _, _ := newTestServer(t)

	rec := doJSON(t, s, http.MethodGet, "/api/safety/checklist", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var checks []safety.Check
	if err := json.Unmarshal(rec.Body.Bytes(), &checks); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(checks) != len(safety.AllChecks()) {
		t.Fatalf("got %d checks", len(checks))
	}
	if checks[0].ID != "phares" {
		t.Fatalf("first check = %q, want display order", checks[0].ID)
	}
}

func TestCreateSafetyRound(t *testing.T) {
	s, _, _ := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/api/safety/rounds",
		`{"driverId":"drv-1","date":"2025-01-15","results":{"freins":false,"klaxon":false,"phares":true}}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var round ledger.SafetyRound
	if err := json.Unmarshal(rec.Body.Bytes(), &round); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if round.Outcome.Status != safety.StatusNonConforme {
		t.Fatalf("status = %q", round.Outcome.Status)
	}
	if len(round.Outcome.FailedMineurs) != 1 || round.Outcome.FailedMineurs[0] != "klaxon" {
		t.Fatalf("failed mineurs = %v", round.Outcome.FailedMineurs)
	}
}

func TestCreateSafetyRoundUnknownCheck(t *testing.T) {
	s, _, _ := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/api/safety/rounds",
		`{"driverId":"drv-1","date":"2025-01-15","results":{"turbo":true}}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
}

func TestEnqueueExportPublishes(t *testing.T) {
	s, store, pub := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/api/exports",
		`{"driverId":"drv-1","format":"csv","year":2025,"month":1,"locale":"fr"}`)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if len(store.jobs) != 1 {
		t.Fatalf("stored %d jobs", len(store.jobs))
	}
	if len(pub.published) != 1 || pub.published[0] != store.jobs[0].ID {
		t.Fatalf("published = %v, jobs = %v", pub.published, store.jobs)
	}
}

func TestEnqueueExportRejectsUnknownFormat(t *testing.T) {
	s, _, pub := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/api/exports",
		`{"driverId":"drv-1","format":"pdf","year":2025}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if len(pub.published) != 0 {
		t.Fatalf("published = %v", pub.published)
	}
}

func TestHealthEndpoints(t *testing.T) {
	s, _, _ := newTestServer(t)

	if rec := doJSON(t, s, http.MethodGet, "/healthz", ""); rec.Code != http.StatusOK {
		t.Fatalf("healthz = %d", rec.Code)
	}
	if rec := doJSON(t, s, http.MethodGet, "/readyz", ""); rec.Code != http.StatusOK {
		t.Fatalf("readyz = %d", rec.Code)
	}
}
