package export

import (
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"
)

// XLSXWriter writes the Ranking and Checkpoints sheets to a workbook file.
type XLSXWriter struct {
	path string
}

// NewXLSXWriter creates a writer for the workbook at path.
func NewXLSXWriter(path string) *XLSXWriter {
	return &XLSXWriter{path: path}
}

// Write replaces the workbook with the snapshot.
func (w *XLSXWriter) Write(ctx context.Context, s Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", rankingSheet); err != nil {
		return fmt.Errorf("renaming default sheet: %w", err)
	}
	if _, err := f.NewSheet(checkpointsSheet); err != nil {
		return fmt.Errorf("creating %s sheet: %w", checkpointsSheet, err)
	}

	if err := writeRows(f, rankingSheet, buildRanking(s)); err != nil {
		return err
	}
	if err := writeRows(f, checkpointsSheet, buildCheckpoints(s)); err != nil {
		return err
	}
	if err := f.SetColWidth(rankingSheet, "B", "B", 66); err != nil {
		return fmt.Errorf("sizing %s columns: %w", rankingSheet, err)
	}
	if err := f.SetColWidth(checkpointsSheet, "A", "B", 44); err != nil {
		return fmt.Errorf("sizing %s columns: %w", checkpointsSheet, err)
	}

	if err := f.SaveAs(w.path); err != nil {
		return fmt.Errorf("saving %s: %w", w.path, err)
	}
	return nil
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return fmt.Errorf("%s row %d: %w", sheet, i+1, err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("writing %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}
