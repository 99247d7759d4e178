package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/vcscsvcscs/medassist/pkg/model"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

const recordsSheet = "Records"

// RecordsHeader is the header row of the records workbook
var RecordsHeader = []string{
	"Record ID",
	"Date",
	"Image Type",
	"Condition",
	"Confidence (%)",
	"Emergency",
	"Description",
	"Treatment",
	"Clinical Alerts",
	"Estimated Cost",
	"Model",
}

var recordsColumnWidths = []float64{30, 18, 12, 28, 14, 11, 50, 50, 40, 22, 20}

// RecordsWorkbook exports the record history as a spreadsheet
type RecordsWorkbook struct {
	logger *zap.Logger
}

// NewRecordsWorkbook creates a new RecordsWorkbook
func NewRecordsWorkbook(logger *zap.Logger) *RecordsWorkbook {
	return &RecordsWorkbook{logger: logger}
}

// Generate writes one row per record, in the given order
func (w *RecordsWorkbook) Generate(records []model.Record) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(recordsSheet)
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

	for col, header := range RecordsHeader {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return nil, fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetCellValue(recordsSheet, cell, header); err != nil {
			return nil, fmt.Errorf("failed to set header cell %s: %w", cell, err)
		}
		if err := f.SetCellStyle(recordsSheet, cell, cell, headerStyle); err != nil {
			return nil, fmt.Errorf("failed to set header style: %w", err)
		}
	}

	for col, width := range recordsColumnWidths {
		name, err := excelize.ColumnNumberToName(col + 1)
		if err != nil {
			return nil, fmt.Errorf("failed to convert column: %w", err)
		}
		if err := f.SetColWidth(recordsSheet, name, name, width); err != nil {
			return nil, fmt.Errorf("failed to set column width: %w", err)
		}
	}

	for i, record := range records {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetSheetRow(recordsSheet, cell, &[]any{
			record.ID,
			record.CreatedAt.Format("2006-01-02 15:04"),
			modalityLabel(record.Modality),
			record.Result.Condition,
			record.Result.Confidence,
			yesNo(record.Result.IsEmergency),
			record.Result.Description,
			record.Result.Treatment,
			strings.Join(record.Result.ClinicalAlerts, "; "),
			derefOr(record.Result.EstimatedCost, ""),
			record.Result.ModelName,
		}); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}

	w.logger.Info("records workbook generated",
		zap.Int("records", len(records)),
		zap.Int("size_bytes", buf.Len()),
	)
	return buf.Bytes(), nil
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

func derefOr(s *string, fallback string) string {
	if s == nil {
		return fallback
	}
	return *s
}
