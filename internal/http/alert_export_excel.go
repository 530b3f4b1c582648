package httpapi

import (
	"bytes"
	"fmt"
	"time"

	"github.com/MahmutEsadErman/HealthCareWristlet/internal/models"

	"github.com/xuri/excelize/v2"
)

const alertSheetName = "Alerts"

// AlertExportHeader export column headers
var AlertExportHeader = []string{
	"Alert ID",
	"Patient ID",
	"Type",
	"Message",
	"Timestamp (UTC)",
	"Resolved",
	"Resolved At (UTC)",
}

// GenerateAlertExport builds an xlsx workbook with one row per alert, in the given order.
func GenerateAlertExport(alerts []models.Alert) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(alertSheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("failed to delete default sheet: %w", err)
	}
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	for col, header := range AlertExportHeader {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return nil, fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetCellValue(alertSheetName, cell, header); err != nil {
			return nil, fmt.Errorf("failed to set header cell %s: %w", cell, err)
		}
		if err := f.SetCellStyle(alertSheetName, cell, cell, headerStyle); err != nil {
			return nil, fmt.Errorf("failed to set header style: %w", err)
		}
	}

	widths := []float64{38, 38, 12, 40, 22, 10, 22}
	for i, width := range widths {
		colName, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetColWidth(alertSheetName, colName, colName, width); err != nil {
			return nil, fmt.Errorf("failed to set column width: %w", err)
		}
	}

	for i, a := range alerts {
		resolvedAt := ""
		if a.ResolvedAt != nil {
			resolvedAt = a.ResolvedAt.UTC().Format(time.DateTime)
		}
		row := []any{
			a.AlertID,
			a.PatientID,
			string(a.Kind),
			a.Message,
			a.At.UTC().Format(time.DateTime),
			a.Resolved,
			resolvedAt,
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetSheetRow(alertSheetName, cell, &row); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}
