// Package sheets pushes rendered workbook exports to a Google
// spreadsheet. It is an optional export target: the worker writes the
// local artifact either way and only calls here when a spreadsheet is
// configured.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"taxibook/internal/export"
)

// Target is the outbound port the worker publishes workbooks through.
type Target interface {
	PushWorkbook(ctx context.Context, sheets []export.Sheet) error
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
}

var _ Target = (*Client)(nil)

// NewFromEnv creates a Sheets client from environment variables.
// Required: GOOGLE_SPREADSHEET_ID. Credentials come from
// GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE or
// GOOGLE_APPLICATION_CREDENTIALS.
func NewFromEnv(ctx context.Context) (*Client, error) {
	spreadsheetID := strings.TrimSpace(os.Getenv("GOOGLE_SPREADSHEET_ID"))
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}

	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return &Client{svc: svc, spreadsheetID: spreadsheetID}, nil
}

func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	opts := []goption.ClientOption{goption.WithScopes(gsheet.SpreadsheetsScope)}
	switch {
	case serviceAccountJSON != "":
		opts = append(opts, goption.WithCredentialsJSON([]byte(serviceAccountJSON)))
	case serviceAccountFile != "":
		opts = append(opts, goption.WithCredentialsFile(serviceAccountFile))
	default:
		return nil, errors.New("no Google credentials configured")
	}

	return gsheet.NewService(ctx, opts...)
}

// PushWorkbook replaces the contents of each named tab with the
// rendered rows, creating missing tabs first.
func (c *Client) PushWorkbook(ctx context.Context, sheets []export.Sheet) error {
	if err := c.ensureTabs(ctx, sheets); err != nil {
		return err
	}

	for _, sheet := range sheets {
		rng := fmt.Sprintf("'%s'!A1", sheet.Name)

		if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, fmt.Sprintf("'%s'", sheet.Name), &gsheet.ClearValuesRequest{}).
			Context(ctx).Do(); err != nil {
			return fmt.Errorf("clear sheet %q: %w", sheet.Name, err)
		}

		vr := &gsheet.ValueRange{Values: sheet.Rows}
		if _, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
			ValueInputOption("RAW").Context(ctx).Do(); err != nil {
			return fmt.Errorf("update sheet %q: %w", sheet.Name, err)
		}

		slog.InfoContext(ctx, "Pushed sheet to spreadsheet",
			"sheet", sheet.Name,
			"row_count", len(sheet.Rows))
	}
	return nil
}

func (c *Client) ensureTabs(ctx context.Context, sheets []export.Sheet) error {
	spreadsheet, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("get spreadsheet: %w", err)
	}

	existing := map[string]bool{}
	for _, s := range spreadsheet.Sheets {
		if s.Properties != nil {
			existing[s.Properties.Title] = true
		}
	}

	var requests []*gsheet.Request
	for _, sheet := range sheets {
		if existing[sheet.Name] {
			continue
		}
		requests = append(requests, &gsheet.Request{
			AddSheet: &gsheet.AddSheetRequest{
				Properties: &gsheet.SheetProperties{Title: sheet.Name},
			},
		})
	}
	if len(requests) == 0 {
		return nil
	}

	_, err = c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: requests,
	}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("add missing tabs: %w", err)
	}
	return nil
}
