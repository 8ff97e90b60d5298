// Package export renders report sections into artifact files for
// downstream consumers. Document layout and styling stay with the
// external renderer; this package only serializes the data contract.
package export

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/schedlens/schedlens/pkg/report"
)

// WriteXLSX writes the section sequence to an Excel workbook, one sheet
// per section, preserving section order left to right.
func WriteXLSX(sections []report.Section, path string) error {
	f := excelize.NewFile()
	defer f.Close()

	for i, section := range sections {
		sheet := sheetName(i, section.Title)
		if i == 0 {
			f.SetSheetName("Sheet1", sheet)
		} else {
			if _, err := f.NewSheet(sheet); err != nil {
				return fmt.Errorf("export: sheet %q: %w", sheet, err)
			}
		}
		if err := writeSection(f, sheet, section); err != nil {
			return err
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("export: save %s: %w", path, err)
	}
	return nil
}

func writeSection(f *excelize.File, sheet string, s report.Section) error {
	if err := f.SetCellValue(sheet, "A1", s.Title); err != nil {
		return err
	}
	if err := f.SetCellValue(sheet, "B1", s.Kind.String()); err != nil {
		return err
	}

	switch s.Kind {
	case report.KindNarrative:
		return f.SetCellValue(sheet, "A3", s.Text)

	case report.KindTable:
		for col, name := range s.Table.Columns {
			cell, _ := excelize.CoordinatesToCellName(col+1, 3)
			if err := f.SetCellValue(sheet, cell, name); err != nil {
				return err
			}
		}
		for r, row := range s.Table.Rows {
			for c, v := range row {
				cell, _ := excelize.CoordinatesToCellName(c+1, r+4)
				if err := f.SetCellValue(sheet, cell, v); err != nil {
					return err
				}
			}
		}

	case report.KindChartData:
		f.SetCellValue(sheet, "A3", "bucket")
		f.SetCellValue(sheet, "B3", "count")
		f.SetCellValue(sheet, "C3", "bucket_width")
		f.SetCellValue(sheet, "C4", s.Chart.BucketWidth)
		for i, pt := range s.Chart.Points {
			aCell, _ := excelize.CoordinatesToCellName(1, i+4)
			bCell, _ := excelize.CoordinatesToCellName(2, i+4)
			if err := f.SetCellValue(sheet, aCell, pt.Bucket); err != nil {
				return err
			}
			if err := f.SetCellValue(sheet, bCell, pt.Count); err != nil {
				return err
			}
		}

	case report.KindImageRef:
		f.SetCellValue(sheet, "A3", "id")
		f.SetCellValue(sheet, "B3", s.Image.ID)
		f.SetCellValue(sheet, "A4", "label")
		f.SetCellValue(sheet, "B4", s.Image.Label)
		f.SetCellValue(sheet, "A5", "path")
		f.SetCellValue(sheet, "B5", s.Image.Path)
		f.SetCellValue(sheet, "A6", "captured_at")
		f.SetCellValue(sheet, "B6", s.Image.CapturedAt.Format("2006-01-02 15:04:05"))
	}
	return nil
}

// sheetName builds a sheet name within Excel's 31-character limit.
func sheetName(i int, title string) string {
	name := fmt.Sprintf("%02d %s", i+1, title)
	runes := []rune(name)
	if len(runes) > 31 {
		name = string(runes[:31])
	}
	return name
}
