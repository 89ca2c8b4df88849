package worker

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"taxibook/internal/amqp"
	"taxibook/internal/core"
	"taxibook/internal/export"
	"taxibook/internal/ledger"
	"taxibook/internal/sheets"
	"taxibook/internal/storage"
)

type fakeTarget struct{ pushed [][]export.Sheet }

func (f *fakeTarget) PushWorkbook(ctx context.Context, sheets []export.Sheet) error {
	f.pushed = append(f.pushed, sheets)
	return nil
}

func newTestWorker(t *testing.T, target *fakeTarget) (*ExportWorker, *storage.Repository, string) {
	t.Helper()
	dir := t.TempDir()
	repo, err := storage.NewRepository(filepath.Join(dir, "taxibook.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	exportDir := filepath.Join(dir, "exports")
	var tgt sheets.Target
	if target != nil {
		tgt = target
	}
	w := NewExportWorker(repo, tgt, exportDir, 10)
	return w, repo, exportDir
}

func seedRecords(t *testing.T, repo *storage.Repository) {
	t.Helper()
	ctx := context.Background()
	split := core.ComputeFromExclTax(decimal.RequireFromString("100"))
	_, err := repo.CreateExpense(ctx, core.ExpenseRecord{
		DriverID:      "drv-1",
		Date:          core.NewISODate("2025-01-15"),
		CategoryID:    "carburant",
		Merchant:      "Shell",
		AmountExclTax: split.AmountExclTax,
		TPS:           split.TPS,
		TVQ:           split.TVQ,
		Total:         split.Total,
	})
	if err != nil {
		t.Fatalf("seed expense: %v", err)
	}
	_, err = repo.CreateIncome(ctx, core.IncomeRecord{
		DriverID:   "drv-1",
		Date:       core.NewISODate("2025-01-16"),
		CategoryID: "course",
		Amount:     decimal.RequireFromString("300"),
	})
	if err != nil {
		t.Fatalf("seed income: %v", err)
	}
}

func TestHandleExportRequestCSV(t *testing.T) {
	w, repo, _ := newTestWorker(t, nil)
	seedRecords(t, repo)
	ctx := context.Background()

	jobID, err := repo.CreateJob(ctx, ledger.ExportJob{
		DriverID: "drv-1", Format: ledger.FormatCSV, Year: 2025, Month: 1, Locale: "fr",
	})
	if err != nil {
		t.Fatalf("create job: %v", err)
	}

	if err := w.HandleExportRequest(ctx, amqp.NewExportRequestMessage(jobID)); err != nil {
		t.Fatalf("handle: %v", err)
	}

	job, err := repo.GetJob(ctx, jobID)
	if err != nil {
		t.Fatalf("get job: %v", err)
	}
	if job.Status != ledger.ExportDone {
		t.Fatalf("status = %q, want done (error=%q)", job.Status, job.Error)
	}

	body, err := os.ReadFile(job.ArtifactPath)
	if err != nil {
		t.Fatalf("read artifact: %v", err)
	}
	text := string(body)
	if !strings.HasPrefix(text, "Date,Type,Catégorie") {
		t.Fatalf("csv artifact must start at the header line:\n%s", text)
	}
	if !strings.Contains(text, "2025-01-15,EXPENSE,Carburant") {
		t.Fatalf("csv artifact missing expense row:\n%s", text)
	}
}

func TestHandleExportRequestSkipsDoneJob(t *testing.T) {
	w, repo, _ := newTestWorker(t, nil)
	ctx := context.Background()

	jobID, err := repo.CreateJob(ctx, ledger.ExportJob{
		DriverID: "drv-1", Format: ledger.FormatCSV, Year: 2025, Locale: "fr",
	})
	if err != nil {
		t.Fatalf("create job: %v", err)
	}
	if err := repo.MarkJobDone(ctx, jobID, "/already/done.csv"); err != nil {
		t.Fatalf("mark done: %v", err)
	}

	if err := w.HandleExportRequest(ctx, amqp.NewExportRequestMessage(jobID)); err != nil {
		t.Fatalf("handle: %v", err)
	}
	job, _ := repo.GetJob(ctx, jobID)
	if job.ArtifactPath != "/already/done.csv" {
		t.Fatalf("done job was re-rendered: %+v", job)
	}
}

func TestHandleExportRequestUnknownJob(t *testing.T) {
	w, _, _ := newTestWorker(t, nil)
	if err := w.HandleExportRequest(context.Background(), amqp.NewExportRequestMessage("missing")); err != nil {
		t.Fatalf("unknown job must be dropped, got %v", err)
	}
}

func TestRenderFailsJobOnDataFault(t *testing.T) {
	w, repo, _ := newTestWorker(t, nil)
	ctx := context.Background()

	// Category id with no label entry: a permanent data fault.
	_, err := repo.CreateExpense(ctx, core.ExpenseRecord{
		DriverID:   "drv-1",
		Date:       core.NewISODate("2025-01-10"),
		CategoryID: "essence",
		Total:      decimal.RequireFromString("10"),
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	jobID, err := repo.CreateJob(ctx, ledger.ExportJob{
		DriverID: "drv-1", Format: ledger.FormatCSV, Year: 2025, Locale: "fr",
	})
	if err != nil {
		t.Fatalf("create job: %v", err)
	}

	if err := w.HandleExportRequest(ctx, amqp.NewExportRequestMessage(jobID)); err != nil {
		t.Fatalf("data fault must not requeue: %v", err)
	}
	job, _ := repo.GetJob(ctx, jobID)
	if job.Status != ledger.ExportFailed || job.Error == "" {
		t.Fatalf("job = %+v, want failed with reason", job)
	}
}

func TestRenderWorkbookPushesToTarget(t *testing.T) {
	target := &fakeTarget{}
	w, repo, _ := newTestWorker(t, target)
	seedRecords(t, repo)
	ctx := context.Background()

	jobID, err := repo.CreateJob(ctx, ledger.ExportJob{
		DriverID: "drv-1", Format: ledger.FormatWorkbook, Year: 2025, Month: 1, Locale: "fr",
	})
	if err != nil {
		t.Fatalf("create job: %v", err)
	}
	if err := w.HandleExportRequest(ctx, amqp.NewExportRequestMessage(jobID)); err != nil {
		t.Fatalf("handle: %v", err)
	}

	if len(target.pushed) != 1 || len(target.pushed[0]) != 3 {
		t.Fatalf("pushed = %v, want one three-sheet workbook", target.pushed)
	}
	job, _ := repo.GetJob(ctx, jobID)
	if !strings.HasSuffix(job.ArtifactPath, ".workbook.json") {
		t.Fatalf("artifact = %q", job.ArtifactPath)
	}
}

func TestProcessPendingJobs(t *testing.T) {
	w, repo, _ := newTestWorker(t, nil)
	seedRecords(t, repo)
	ctx := context.Background()

	jobID, err := repo.CreateJob(ctx, ledger.ExportJob{
		DriverID: "drv-1", Format: ledger.FormatText, Year: 2025, Month: 1, Locale: "en",
	})
	if err != nil {
		t.Fatalf("create job: %v", err)
	}
	if err := w.ProcessPendingJobs(ctx); err != nil {
		t.Fatalf("process pending: %v", err)
	}
	job, _ := repo.GetJob(ctx, jobID)
	if job.Status != ledger.ExportDone {
		t.Fatalf("status = %q (error=%q)", job.Status, job.Error)
	}
	body, err := os.ReadFile(job.ArtifactPath)
	if err != nil {
		t.Fatalf("read artifact: %v", err)
	}
	if !strings.Contains(string(body), "Accounting report 2025-01") {
		t.Fatalf("text artifact missing summary:\n%s", body)
	}
}
