/*
report.go - XLSX export of leave balances

PURPOSE:
  Builds a workbook with one row per balance record: identity, status,
  the annual breakdown (brought forward, accrued, used, forfeited,
  adjustments) and the current balance of every leave type.

  Balances use the display rule (one decimal place, never below zero).
  The accrual column is the engine value at three places.
*/
package report

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/CHAISAHR/saleaveapp-sub000/generic"
	"github.com/CHAISAHR/saleaveapp-sub000/leave"
	"github.com/xuri/excelize/v2"
)

const Sheet = "Sheet1"

var fixedHeaders = []string{
	"Email", "Name", "Department", "Manager", "Year", "Status",
	"Brought Forward", "Accrued", "Annual Used", "Forfeited", "Adjustments",
}

// Headers returns the column titles in order.
func Headers() []string {
	out := append([]string(nil), fixedHeaders...)
	for _, t := range leave.AllTypes {
		out = append(out, fmt.Sprintf("%s (%s)", t, t.Unit()))
	}
	return out
}

// BalanceWorkbook renders records as of asOf. Each record's accrual is
// computed against asOf clamped into the record's own year.
func BalanceWorkbook(records []leave.BalanceRecord, asOf generic.TimePoint) (*excelize.File, error) {
	f := excelize.NewFile()
	headers := Headers()

	if err := f.SetSheetRow(Sheet, "A1", &headers); err != nil {
		return nil, fmt.Errorf("report: header row: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("report: header style: %w", err)
	}
	lastCol, _ := excelize.ColumnNumberToName(len(headers))
	if err := f.SetCellStyle(Sheet, "A1", lastCol+"1", bold); err != nil {
		return nil, fmt.Errorf("report: header style: %w", err)
	}
	_ = f.SetColWidth(Sheet, "A", "D", 28)
	_ = f.SetColWidth(Sheet, "E", lastCol, 14)

	for i, r := range records {
		row, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		values := recordRow(r, asOf)
		if err := f.SetSheetRow(Sheet, row, &values); err != nil {
			return nil, fmt.Errorf("report: row %s: %w", r.Key(), err)
		}
	}
	return f, nil
}

func recordRow(r leave.BalanceRecord, asOf generic.TimePoint) []any {
	ref := leave.AccrualReference(r.Year, asOf)
	accrued := leave.CalculateAccumulatedLeave(ref, r.TerminationDate, r.StartDate)
	balances := leave.AllBalances(r, ref)

	row := []any{
		r.Email, r.Name, r.Department, r.ManagerEmail, r.Year, string(r.Status(asOf)),
		r.BroughtForward.InexactFloat64(),
		accrued.InexactFloat64(),
		r.AnnualUsed.InexactFloat64(),
		r.Forfeited.InexactFloat64(),
		r.AnnualAdjustments.InexactFloat64(),
	}
	for _, t := range leave.AllTypes {
		row = append(row, balances[t].Display().Value.InexactFloat64())
	}
	return row
}

// Write renders the workbook to w.
func Write(w io.Writer, records []leave.BalanceRecord, asOf generic.TimePoint) error {
	f, err := BalanceWorkbook(records, asOf)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("report: write: %w", err)
	}
	return nil
}

// SaveTo writes balances-<year>.xlsx under dir and returns its path.
func SaveTo(dir string, year int, records []leave.BalanceRecord, asOf generic.TimePoint) (string, error) {
	f, err := BalanceWorkbook(records, asOf)
	if err != nil {
		return "", err
	}
	defer f.Close()

	path := filepath.Join(dir, fmt.Sprintf("balances-%d.xlsx", year))
	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("report: save %s: %w", path, err)
	}
	return path, nil
}
