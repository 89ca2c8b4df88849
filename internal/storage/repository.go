// Package storage implements the ledger ports over SQLite. Records are
// kept per driver; deletes are soft so an accidental tap in the app can
// be recovered server-side.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"taxibook/internal/core"
	"taxibook/internal/ledger"
	"taxibook/internal/safety"
)

var ErrNotFound = errors.New("not found")

type Repository struct {
	db *sql.DB
}

func NewRepository(dbPath string) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := runMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func storedDateString(d core.StoredDate) (string, error) {
	t, err := d.Time()
	if err != nil {
		return "", err
	}
	return t.Format(time.RFC3339), nil
}

// CreateExpense implements ledger.ExpenseStore. The id is assigned here
// when the record does not carry one (imports keep their original ids).
func (r *Repository) CreateExpense(ctx context.Context, rec core.ExpenseRecord) (string, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	date, err := storedDateString(rec.Date)
	if err != nil {
		return "", fmt.Errorf("expense date: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO expenses (id, driver_id, date, category_id, merchant, amount_excl_tax, tps, tvq, total, notes, receipt_ref)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.DriverID, date, rec.CategoryID, rec.Merchant,
		rec.AmountExclTax.String(), rec.TPS.String(), rec.TVQ.String(), rec.Total.String(),
		rec.Notes, rec.ReceiptRef)
	if err != nil {
		return "", fmt.Errorf("insert expense: %w", err)
	}

	slog.InfoContext(ctx, "Expense saved",
		"record_id", rec.ID,
		"driver_id", rec.DriverID,
		"category", rec.CategoryID,
		"amount", rec.Total.String())
	return rec.ID, nil
}

// ListExpenses returns every live expense for one driver, oldest first.
func (r *Repository) ListExpenses(ctx context.Context, driverID string) ([]core.ExpenseRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, driver_id, date, category_id, merchant, amount_excl_tax, tps, tvq, total, notes, receipt_ref
		FROM expenses
		WHERE driver_id = ? AND deleted_at IS NULL
		ORDER BY date, created_at`, driverID)
	if err != nil {
		return nil, fmt.Errorf("query expenses: %w", err)
	}
	defer rows.Close()

	var out []core.ExpenseRecord
	for rows.Next() {
		var rec core.ExpenseRecord
		var date, excl, tps, tvq, total string
		if err := rows.Scan(&rec.ID, &rec.DriverID, &date, &rec.CategoryID, &rec.Merchant,
			&excl, &tps, &tvq, &total, &rec.Notes, &rec.ReceiptRef); err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		rec.Date = core.NewISODate(date)
		if rec.AmountExclTax, err = decimal.NewFromString(excl); err != nil {
			return nil, fmt.Errorf("expense %s amount: %w", rec.ID, err)
		}
		if rec.TPS, err = decimal.NewFromString(tps); err != nil {
			return nil, fmt.Errorf("expense %s tps: %w", rec.ID, err)
		}
		if rec.TVQ, err = decimal.NewFromString(tvq); err != nil {
			return nil, fmt.Errorf("expense %s tvq: %w", rec.ID, err)
		}
		if rec.Total, err = decimal.NewFromString(total); err != nil {
			return nil, fmt.Errorf("expense %s total: %w", rec.ID, err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// DeleteExpense soft deletes one expense.
func (r *Repository) DeleteExpense(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE expenses SET deleted_at = CURRENT_TIMESTAMP WHERE id = ? AND deleted_at IS NULL`, id)
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("expense %s: %w", id, ErrNotFound)
	}
	return nil
}

// CreateIncome implements ledger.IncomeStore.
func (r *Repository) CreateIncome(ctx context.Context, rec core.IncomeRecord) (string, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	date, err := storedDateString(rec.Date)
	if err != nil {
		return "", fmt.Errorf("income date: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO incomes (id, driver_id, date, category_id, description, amount, notes)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.DriverID, date, rec.CategoryID, rec.Description, rec.Amount.String(), rec.Notes)
	if err != nil {
		return "", fmt.Errorf("insert income: %w", err)
	}

	slog.InfoContext(ctx, "Income saved",
		"record_id", rec.ID,
		"driver_id", rec.DriverID,
		"category", rec.CategoryID,
		"amount", rec.Amount.String())
	return rec.ID, nil
}

// ListIncomes returns every live income for one driver, oldest first.
func (r *Repository) ListIncomes(ctx context.Context, driverID string) ([]core.IncomeRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, driver_id, date, category_id, description, amount, notes
		FROM incomes
		WHERE driver_id = ? AND deleted_at IS NULL
		ORDER BY date, created_at`, driverID)
	if err != nil {
		return nil, fmt.Errorf("query incomes: %w", err)
	}
	defer rows.Close()

	var out []core.IncomeRecord
	for rows.Next() {
		var rec core.IncomeRecord
		var date, amount string
		if err := rows.Scan(&rec.ID, &rec.DriverID, &date, &rec.CategoryID,
			&rec.Description, &amount, &rec.Notes); err != nil {
			return nil, fmt.Errorf("scan income: %w", err)
		}
		rec.Date = core.NewISODate(date)
		if rec.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("income %s amount: %w", rec.ID, err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// DeleteIncome soft deletes one income.
func (r *Repository) DeleteIncome(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE incomes SET deleted_at = CURRENT_TIMESTAMP WHERE id = ? AND deleted_at IS NULL`, id)
	if err != nil {
		return fmt.Errorf("delete income: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("income %s: %w", id, ErrNotFound)
	}
	return nil
}

// CreateRound implements ledger.SafetyStore.
func (r *Repository) CreateRound(ctx context.Context, round ledger.SafetyRound) (string, error) {
	if round.ID == "" {
		round.ID = uuid.NewString()
	}
	date, err := storedDateString(round.Date)
	if err != nil {
		return "", fmt.Errorf("round date: %w", err)
	}
	results, err := json.Marshal(round.Results)
	if err != nil {
		return "", fmt.Errorf("marshal round results: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO safety_rounds (id, driver_id, date, status, results, notes)
		VALUES (?, ?, ?, ?, ?, ?)`,
		round.ID, round.DriverID, date, string(round.Outcome.Status), string(results), round.Notes)
	if err != nil {
		return "", fmt.Errorf("insert safety round: %w", err)
	}

	slog.InfoContext(ctx, "Safety round saved",
		"record_id", round.ID,
		"driver_id", round.DriverID,
		"round_status", round.Outcome.Status)
	return round.ID, nil
}

// ListRounds returns a driver's safety rounds, newest first. Outcomes
// are re-derived from the stored per-check results so severity rule
// updates apply retroactively when listing.
func (r *Repository) ListRounds(ctx context.Context, driverID string) ([]ledger.SafetyRound, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, driver_id, date, results, notes
		FROM safety_rounds
		WHERE driver_id = ?
		ORDER BY date DESC, created_at DESC`, driverID)
	if err != nil {
		return nil, fmt.Errorf("query safety rounds: %w", err)
	}
	defer rows.Close()

	var out []ledger.SafetyRound
	for rows.Next() {
		var round ledger.SafetyRound
		var date, results string
		if err := rows.Scan(&round.ID, &round.DriverID, &date, &results, &round.Notes); err != nil {
			return nil, fmt.Errorf("scan safety round: %w", err)
		}
		round.Date = core.NewISODate(date)
		if err := json.Unmarshal([]byte(results), &round.Results); err != nil {
			return nil, fmt.Errorf("round %s results: %w", round.ID, err)
		}
		outcome, err := safety.EvaluateRound(round.Results)
		if err != nil {
			return nil, fmt.Errorf("round %s: %w", round.ID, err)
		}
		round.Outcome = outcome
		out = append(out, round)
	}
	return out, rows.Err()
}

// CreateJob implements ledger.ExportJobStore.
func (r *Repository) CreateJob(ctx context.Context, job ledger.ExportJob) (string, error) {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.Status == "" {
		job.Status = ledger.ExportPending
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO export_jobs (id, driver_id, format, year, month, locale, status)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		job.ID, job.DriverID, string(job.Format), job.Year, job.Month, job.Locale, string(job.Status))
	if err != nil {
		return "", fmt.Errorf("insert export job: %w", err)
	}
	return job.ID, nil
}

func (r *Repository) scanJobs(rows *sql.Rows) ([]ledger.ExportJob, error) {
	var out []ledger.ExportJob
	for rows.Next() {
		var job ledger.ExportJob
		var format, status, createdAt string
		if err := rows.Scan(&job.ID, &job.DriverID, &format, &job.Year, &job.Month,
			&job.Locale, &status, &job.ArtifactPath, &job.Error, &createdAt); err != nil {
			return nil, fmt.Errorf("scan export job: %w", err)
		}
		job.Format = ledger.ExportFormat(format)
		job.Status = ledger.ExportStatus(status)
		job.CreatedAt = parseDBTime(createdAt)
		out = append(out, job)
	}
	return out, rows.Err()
}

// parseDBTime reads the text timestamps CURRENT_TIMESTAMP produces.
func parseDBTime(s string) time.Time {
	for _, layout := range []string{"2006-01-02 15:04:05", time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

const jobColumns = `id, driver_id, format, year, month, locale, status, artifact_path, error, created_at`

// GetJob fetches one export job by id.
func (r *Repository) GetJob(ctx context.Context, id string) (ledger.ExportJob, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+jobColumns+` FROM export_jobs WHERE id = ?`, id)
	if err != nil {
		return ledger.ExportJob{}, fmt.Errorf("query export job: %w", err)
	}
	defer rows.Close()
	jobs, err := r.scanJobs(rows)
	if err != nil {
		return ledger.ExportJob{}, err
	}
	if len(jobs) == 0 {
		return ledger.ExportJob{}, fmt.Errorf("export job %s: %w", id, ErrNotFound)
	}
	return jobs[0], nil
}

// ListJobs returns a driver's export jobs, newest first.
func (r *Repository) ListJobs(ctx context.Context, driverID string) ([]ledger.ExportJob, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+jobColumns+` FROM export_jobs WHERE driver_id = ? ORDER BY created_at DESC`, driverID)
	if err != nil {
		return nil, fmt.Errorf("query export jobs: %w", err)
	}
	defer rows.Close()
	return r.scanJobs(rows)
}

// ListPendingJobs returns the oldest pending jobs, up to limit. The
// worker uses this to retry jobs whose queue message was lost.
func (r *Repository) ListPendingJobs(ctx context.Context, limit int) ([]ledger.ExportJob, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+jobColumns+` FROM export_jobs WHERE status = 'pending' ORDER BY created_at LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query pending export jobs: %w", err)
	}
	defer rows.Close()
	return r.scanJobs(rows)
}

// MarkJobDone records the rendered artifact location.
func (r *Repository) MarkJobDone(ctx context.Context, id, artifactPath string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE export_jobs
		SET status = 'done', artifact_path = ?, error = '', updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`, artifactPath, id)
	if err != nil {
		return fmt.Errorf("mark export job done: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("export job %s: %w", id, ErrNotFound)
	}
	slog.InfoContext(ctx, "Export job done", "export_id", id, "artifact", artifactPath)
	return nil
}

// MarkJobFailed records a render failure so the job stops retrying.
func (r *Repository) MarkJobFailed(ctx context.Context, id, reason string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE export_jobs
		SET status = 'failed', error = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`, reason, id)
	if err != nil {
		return fmt.Errorf("mark export job failed: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("export job %s: %w", id, ErrNotFound)
	}
	slog.WarnContext(ctx, "Export job failed", "export_id", id, "error", reason)
	return nil
}
