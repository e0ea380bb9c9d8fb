package evv

import (
	"fmt"

	"careloop.com/careloop/evv/model"
	"github.com/xuri/excelize/v2"
)

// BuildUtilizationWorkbook renders one authorization window as a spreadsheet for
// billing review: the quota summary on top, the usage ledger lines underneath.
func BuildUtilizationWorkbook(auth *model.Authorization, av *Availability, entries []model.AuthorizationUsageEntry) (*excelize.File, error) {
	f := excelize.NewFile()
	sheet := "Utilization"

	idx, err := f.NewSheet(sheet)
	if err != nil {
		return nil, err
	}
	f.SetActiveSheet(idx)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, err
	}

	summary := [][]interface{}{
		{"Authorization", auth.ID},
		{"Service Code", auth.ServiceCode},
		{"Period", auth.UnitsPeriod},
		{"Window", av.Window.String()},
		{"Units Authorized", av.UnitsAuthorized},
		{"Units Used (window)", av.WindowUsed},
		{"Units Remaining", av.Available},
		{"Utilization %", fmt.Sprintf("%.1f", av.UtilizationPercent())},
	}
	for i, row := range summary {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return nil, err
		}
	}

	headerRow := len(summary) + 2
	header := []interface{}{"Service Date", "Visit", "Units"}
	cell, _ := excelize.CoordinatesToCellName(1, headerRow)
	if err := f.SetSheetRow(sheet, cell, &header); err != nil {
		return nil, err
	}

	for i, e := range entries {
		row := []interface{}{e.ServiceDate.Format("2006-01-02"), e.VisitID, e.Units}
		cell, _ := excelize.CoordinatesToCellName(1, headerRow+1+i)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return nil, err
		}
	}

	return f, nil
}
