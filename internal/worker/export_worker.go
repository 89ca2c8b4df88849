// Package worker renders queued export jobs: it loads the period's
// records, runs the report engine, writes the artifact under the export
// directory and optionally pushes the workbook to Google Sheets.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"taxibook/internal/amqp"
	"taxibook/internal/core"
	"taxibook/internal/export"
	"taxibook/internal/ledger"
	"taxibook/internal/sheets"
	"taxibook/internal/storage"
)

type ExportWorker struct {
	expenses  ledger.ExpenseStore
	incomes   ledger.IncomeStore
	jobs      ledger.ExportJobStore
	target    sheets.Target // nil when no spreadsheet is configured
	exportDir string
	batchSize int
}

func NewExportWorker(repo *storage.Repository, target sheets.Target, exportDir string, batchSize int) *ExportWorker {
	return &ExportWorker{
		expenses:  repo,
		incomes:   repo,
		jobs:      repo,
		target:    target,
		exportDir: exportDir,
		batchSize: batchSize,
	}
}

// HandleExportRequest processes one queued export request. Requeued
// duplicates are harmless: a job that already left pending is skipped.
func (w *ExportWorker) HandleExportRequest(ctx context.Context, msg *amqp.ExportRequestMessage) error {
	job, err := w.jobs.GetJob(ctx, msg.JobID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			slog.WarnContext(ctx, "Export request for unknown job", "export_id", msg.JobID)
			return nil
		}
		return fmt.Errorf("get export job: %w", err)
	}
	if job.Status != ledger.ExportPending {
		slog.InfoContext(ctx, "Skipping already-processed job",
			"export_id", job.ID, "status", job.Status)
		return nil
	}
	return w.render(ctx, job)
}

// ProcessPendingJobs renders pending jobs whose queue message may have
// been lost. Called periodically and once at startup.
func (w *ExportWorker) ProcessPendingJobs(ctx context.Context) error {
	jobs, err := w.jobs.ListPendingJobs(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("list pending jobs: %w", err)
	}
	for _, job := range jobs {
		if err := w.render(ctx, job); err != nil {
			slog.ErrorContext(ctx, "Pending job render failed",
				"export_id", job.ID, "error", err)
		}
	}
	return nil
}

var errUnsupportedFormat = errors.New("unsupported export format")

// isDataFault reports whether the error is a permanent fault in the
// stored records or the job itself. Those fail the job instead of
// requeueing forever.
func isDataFault(err error) bool {
	return errors.Is(err, core.ErrUnknownCategory) ||
		errors.Is(err, core.ErrInvalidDate) ||
		errors.Is(err, core.ErrInvalidRange) ||
		errors.Is(err, errUnsupportedFormat)
}

func (w *ExportWorker) render(ctx context.Context, job ledger.ExportJob) error {
	expenses, err := w.expenses.ListExpenses(ctx, job.DriverID)
	if err != nil {
		return fmt.Errorf("load expenses: %w", err)
	}
	incomes, err := w.incomes.ListIncomes(ctx, job.DriverID)
	if err != nil {
		return fmt.Errorf("load incomes: %w", err)
	}

	artifact, err := w.renderArtifact(ctx, job, expenses, incomes)
	if err != nil {
		if isDataFault(err) {
			if markErr := w.jobs.MarkJobFailed(ctx, job.ID, err.Error()); markErr != nil {
				return fmt.Errorf("mark job failed: %w", markErr)
			}
			return nil
		}
		return err
	}

	if err := w.jobs.MarkJobDone(ctx, job.ID, artifact); err != nil {
		return fmt.Errorf("mark job done: %w", err)
	}
	return nil
}

func (w *ExportWorker) renderArtifact(ctx context.Context, job ledger.ExportJob, expenses []core.ExpenseRecord, incomes []core.IncomeRecord) (string, error) {
	locale := export.Locale(job.Locale)

	switch job.Format {
	case ledger.FormatCSV:
		text, err := export.FullReportText(expenses, incomes, job.Year, job.Month, locale)
		if err != nil {
			return "", err
		}
		// The CSV artifact is the body below the summary block; keep
		// only the delimited part for spreadsheet-compatible output.
		return w.writeArtifact(job, "csv", []byte(csvBody(text)))
	case ledger.FormatText:
		text, err := export.FullReportText(expenses, incomes, job.Year, job.Month, locale)
		if err != nil {
			return "", err
		}
		return w.writeArtifact(job, "txt", []byte(text))
	case ledger.FormatWorkbook:
		tabs, err := export.WorkbookSheets(expenses, incomes, export.WorkbookOptions{
			Year:       job.Year,
			Month:      job.Month,
			DriverName: job.DriverID,
			Locale:     locale,
		})
		if err != nil {
			return "", err
		}
		if w.target != nil {
			if err := w.target.PushWorkbook(ctx, tabs); err != nil {
				return "", fmt.Errorf("push workbook: %w", err)
			}
		}
		body, err := json.MarshalIndent(tabs, "", "  ")
		if err != nil {
			return "", fmt.Errorf("encode workbook: %w", err)
		}
		return w.writeArtifact(job, "workbook.json", body)
	default:
		return "", fmt.Errorf("%w: %q", errUnsupportedFormat, job.Format)
	}
}

func (w *ExportWorker) writeArtifact(job ledger.ExportJob, ext string, body []byte) (string, error) {
	dir := filepath.Join(w.exportDir, job.DriverID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create export directory: %w", err)
	}

	name := fmt.Sprintf("rapport-%d", job.Year)
	if job.Month > 0 {
		name = fmt.Sprintf("rapport-%d-%02d", job.Year, job.Month)
	}
	path := filepath.Join(dir, fmt.Sprintf("%s.%s", name, ext))

	if err := os.WriteFile(path, body, 0644); err != nil {
		return "", fmt.Errorf("write artifact: %w", err)
	}
	return path, nil
}

// csvBody strips the summary block from a full report text, leaving
// the CSV starting at its header line.
func csvBody(fullText string) string {
	for i := 0; i+1 < len(fullText); i++ {
		if fullText[i] == '\n' && fullText[i+1] == '\n' {
			return fullText[i+2:]
		}
	}
	return fullText
}
