package report

import (
	"fmt"
	"io"
	"time"

	"dorm/internal/core"

	"github.com/xuri/excelize/v2"
)

// RosterXLSXFilename is the download name of the roster workbook.
const RosterXLSXFilename = "بيانات_الطلاب.xlsx"

const rosterSheet = "الطلاب"

// totalColumn is the 1-based column holding the confirmed total.
const totalColumn = 7

// RosterWorkbook builds a workbook with the same columns as RosterCSV.
// The total column holds numbers rather than text. The caller closes the file.
func RosterWorkbook(roster []core.Student, now time.Time) (*excelize.File, error) {
	f := excelize.NewFile()

	index, err := f.NewSheet(rosterSheet)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		f.Close()
		return nil, fmt.Errorf("drop default sheet: %w", err)
	}

	rtl := true
	if err := f.SetSheetView(rosterSheet, 0, &excelize.ViewOptions{RightToLeft: &rtl}); err != nil {
		f.Close()
		return nil, fmt.Errorf("set sheet view: %w", err)
	}

	for col, header := range RosterHeader {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		if err := f.SetCellValue(rosterSheet, cell, header); err != nil {
			f.Close()
			return nil, fmt.Errorf("write header %s: %w", cell, err)
		}
	}
	if bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		last, _ := excelize.CoordinatesToCellName(len(RosterHeader), 1)
		_ = f.SetCellStyle(rosterSheet, "A1", last, bold)
	}

	for i, row := range RosterRows(roster, now)[1:] {
		r := i + 2
		for col, value := range row {
			cell, _ := excelize.CoordinatesToCellName(col+1, r)
			var v any = value
			if col+1 == totalColumn {
				v = roster[i].ConfirmedTotal().Units()
			}
			if err := f.SetCellValue(rosterSheet, cell, v); err != nil {
				f.Close()
				return nil, fmt.Errorf("write cell %s: %w", cell, err)
			}
		}
	}
	return f, nil
}

// WriteRosterXLSX streams the roster workbook to w.
func WriteRosterXLSX(w io.Writer, roster []core.Student, now time.Time) error {
	f, err := RosterWorkbook(roster, now)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
