package export

import (
	"context"
	"fmt"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	sheets "google.golang.org/api/sheets/v4"
)

// SheetsWriter implements Writer using the Google Sheets API.
type SheetsWriter struct {
	spreadsheetID string
	svc           *sheets.Service
}

// NewSheetsWriter creates a SheetsWriter authenticated with a service account JSON.
func NewSheetsWriter(ctx context.Context, spreadsheetID, credentialsJSON string) (*SheetsWriter, error) {
	creds, err := google.CredentialsFromJSON(
		ctx,
		[]byte(credentialsJSON),
		sheets.SpreadsheetsScope,
	)
	if err != nil {
		return nil, fmt.Errorf("parsing google credentials: %w", err)
	}

	svc, err := sheets.NewService(ctx, option.WithCredentials(creds))
	if err != nil {
		return nil, fmt.Errorf("creating sheets service: %w", err)
	}

	return newSheetsWriter(svc, spreadsheetID), nil
}

func newSheetsWriter(svc *sheets.Service, spreadsheetID string) *SheetsWriter {
	return &SheetsWriter{spreadsheetID: spreadsheetID, svc: svc}
}

// Write rewrites the Ranking and Checkpoints sheets and appends the run to History.
func (w *SheetsWriter) Write(ctx context.Context, s Snapshot) error {
	if err := w.ensureSheets(ctx, rankingSheet, checkpointsSheet, historySheet); err != nil {
		return err
	}

	_, err := w.svc.Spreadsheets.Values.BatchClear(
		w.spreadsheetID,
		&sheets.BatchClearValuesRequest{
			Ranges: []string{rankingSheet + "!A:D", checkpointsSheet + "!A:B"},
		},
	).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("clearing sheets: %w", err)
	}

	// RAW keeps 18-decimal amounts as exact text.
	_, err = w.svc.Spreadsheets.Values.BatchUpdate(
		w.spreadsheetID,
		&sheets.BatchUpdateValuesRequest{
			ValueInputOption: "RAW",
			Data: []*sheets.ValueRange{
				{Range: rankingSheet + "!A1", Values: buildRanking(s)},
				{Range: checkpointsSheet + "!A1", Values: buildCheckpoints(s)},
			},
		},
	).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("writing sheets: %w", err)
	}

	return w.appendHistory(ctx, s)
}

// appendHistory writes the header row if History is empty, then appends one row.
func (w *SheetsWriter) appendHistory(ctx context.Context, s Snapshot) error {
	existing, err := w.svc.Spreadsheets.Values.Get(
		w.spreadsheetID, historySheet+"!A1:A1",
	).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("reading %s header: %w", historySheet, err)
	}

	if len(existing.Values) == 0 {
		_, err = w.svc.Spreadsheets.Values.Update(
			w.spreadsheetID,
			historySheet+"!A1",
			&sheets.ValueRange{Values: [][]any{historyHeader}},
		).ValueInputOption("RAW").Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("writing %s header: %w", historySheet, err)
		}
	}

	_, err = w.svc.Spreadsheets.Values.Append(
		w.spreadsheetID,
		historySheet+"!A:F",
		&sheets.ValueRange{Values: [][]any{buildHistoryRow(s)}},
	).ValueInputOption("RAW").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("appending %s row: %w", historySheet, err)
	}
	return nil
}

// ensureSheets creates any of the named sheets that do not already exist.
func (w *SheetsWriter) ensureSheets(ctx context.Context, names ...string) error {
	spreadsheet, err := w.svc.Spreadsheets.Get(w.spreadsheetID).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("getting spreadsheet metadata: %w", err)
	}

	existing := make(map[string]bool, len(spreadsheet.Sheets))
	for _, s := range spreadsheet.Sheets {
		existing[s.Properties.Title] = true
	}

	var requests []*sheets.Request
	for _, name := range names {
		if !existing[name] {
			requests = append(requests, &sheets.Request{
				AddSheet: &sheets.AddSheetRequest{
					Properties: &sheets.SheetProperties{Title: name},
				},
			})
		}
	}

	if len(requests) == 0 {
		return nil
	}

	_, err = w.svc.Spreadsheets.BatchUpdate(
		w.spreadsheetID,
		&sheets.BatchUpdateSpreadsheetRequest{Requests: requests},
	).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("creating sheets: %w", err)
	}

	return nil
}
