package importer

import (
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/conorfennell/leitbox/internal/domain"
)

var workbookHeader = []interface{}{"recto", "verso", "box", "next_review_date", "marked"}

// ImportWorkbook reads the first sheet of an .xlsx file. Columns are recto,
// verso and an optional box; a first row starting with "recto" is a header.
// Cells holding an http(s) URL become image faces.
func (im *Importer) ImportWorkbook(path string, initialBox int) (Report, error) {
	if err := domain.ValidateBox(initialBox, im.cards.MaxBox); err != nil {
		return Report{}, err
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return Report{}, fmt.Errorf("failed to open workbook %s: %w", path, err)
	}
	defer f.Close()

	rows, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		return Report{}, fmt.Errorf("failed to read workbook %s: %w", path, err)
	}

	var report Report
	var found []candidate
	for i, row := range rows {
		if i == 0 && len(row) > 0 && strings.EqualFold(strings.TrimSpace(row[0]), "recto") {
			continue
		}
		if len(row) < 2 {
			if len(row) == 1 && strings.TrimSpace(row[0]) != "" {
				report.Errors = append(report.Errors, fmt.Errorf("%s row %d: %w", path, i+1, domain.ErrFaceEmpty))
			}
			continue
		}
		c := candidate{
			recto:  cellContent(row[0]),
			verso:  cellContent(row[1]),
			origin: fmt.Sprintf("%s row %d", path, i+1),
		}
		if len(row) > 2 && strings.TrimSpace(row[2]) != "" {
			box, err := strconv.Atoi(strings.TrimSpace(row[2]))
			if err != nil || domain.ValidateBox(box, im.cards.MaxBox) != nil {
				report.Errors = append(report.Errors, fmt.Errorf("%s: %w: box %q", c.origin, domain.ErrBoxOutOfRange, row[2]))
				continue
			}
			c.box = box
		}
		found = append(found, c)
	}

	err = im.commit(found, initialBox, &report)
	slog.Info("Import complete",
		"path", path,
		"added", report.Added,
		"skipped", report.Skipped,
		"errors", len(report.Errors),
	)
	return report, err
}

func cellContent(cell string) domain.FaceContent {
	cell = strings.TrimSpace(cell)
	if domain.IsRemoteRef(cell) {
		return domain.Image(cell)
	}
	return domain.Text(cell)
}

// ExportWorkbook writes cards to w as a single-sheet workbook that
// ImportWorkbook can read back. Image faces are written as their reference.
func ExportWorkbook(cards []domain.Card, w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)

	if err := f.SetSheetRow(sheet, "A1", &workbookHeader); err != nil {
		return err
	}
	for i, c := range cards {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		marked := ""
		if c.Marked {
			marked = "x"
		}
		row := []interface{}{c.Recto.Value, c.Verso.Value, c.Box, c.NextReviewDate.String(), marked}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write card %s: %w", c.ID, err)
		}
	}
	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}
