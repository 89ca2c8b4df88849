// Package ledger defines the ports between the HTTP/worker layers and
// the persistence that backs them. The report engine itself never sees
// these interfaces: callers load snapshots here first, then hand plain
// slices to the pure report functions.
package ledger

import (
	"context"
	"time"

	"taxibook/internal/core"
	"taxibook/internal/safety"
)

// SafetyRound is one completed safety inspection of a driver's vehicle.
type SafetyRound struct {
	ID       string              `json:"id"`
	DriverID string              `json:"driverId"`
	Date     core.StoredDate     `json:"date"`
	Results  map[string]bool     `json:"results"`
	Outcome  safety.RoundOutcome `json:"outcome"`
	Notes    string              `json:"notes,omitempty"`
}

type ExportFormat string

const (
	FormatCSV      ExportFormat = "csv"
	FormatText     ExportFormat = "text"
	FormatWorkbook ExportFormat = "workbook"
)

type ExportStatus string

const (
	ExportPending ExportStatus = "pending"
	ExportDone    ExportStatus = "done"
	ExportFailed  ExportStatus = "failed"
)

// ExportJob is one queued report export. The API enqueues it, the
// worker renders the artifact and flips the status.
type ExportJob struct {
	ID           string       `json:"id"`
	DriverID     string       `json:"driverId"`
	Format       ExportFormat `json:"format"`
	Year         int          `json:"year"`
	Month        int          `json:"month"` // 0 means the full year
	Locale       string       `json:"locale"`
	Status       ExportStatus `json:"status"`
	ArtifactPath string       `json:"artifactPath,omitempty"`
	Error        string       `json:"error,omitempty"`
	CreatedAt    time.Time    `json:"createdAt"`
}

type (
	ExpenseStore interface {
		CreateExpense(ctx context.Context, rec core.ExpenseRecord) (string, error)
		ListExpenses(ctx context.Context, driverID string) ([]core.ExpenseRecord, error)
		DeleteExpense(ctx context.Context, id string) error
	}

	IncomeStore interface {
		CreateIncome(ctx context.Context, rec core.IncomeRecord) (string, error)
		ListIncomes(ctx context.Context, driverID string) ([]core.IncomeRecord, error)
		DeleteIncome(ctx context.Context, id string) error
	}

	SafetyStore interface {
		CreateRound(ctx context.Context, round SafetyRound) (string, error)
		ListRounds(ctx context.Context, driverID string) ([]SafetyRound, error)
	}

	ExportJobStore interface {
		CreateJob(ctx context.Context, job ExportJob) (string, error)
		GetJob(ctx context.Context, id string) (ExportJob, error)
		ListJobs(ctx context.Context, driverID string) ([]ExportJob, error)
		ListPendingJobs(ctx context.Context, limit int) ([]ExportJob, error)
		MarkJobDone(ctx context.Context, id, artifactPath string) error
		MarkJobFailed(ctx context.Context, id, reason string) error
	}
)
