package httpapi

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"

	"firewatch-data/internal/domain"
)

// EventLogExportHeader 事件日志导出表头
var EventLogExportHeader = []string{
	"Event ID",
	"Timestamp",
	"Event Type",
	"Description",
	"Source Type",
	"Source ID",
	"Zone ID",
	"Panel ID",
	"Status",
	"Acknowledged At",
	"Acknowledged By",
}

// eventLogColumnWidths 导出列宽
var eventLogColumnWidths = []float64{38, 22, 15, 50, 12, 38, 38, 38, 10, 22, 20}

// GenerateEventLogExport 生成事件日志导出 Excel 文件
func GenerateEventLogExport(logs []*domain.EventLog) ([]byte, error) {
	f := excelize.NewFile()
	// WriteTo 之前不能 Close

	sheetName := "Event Logs"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.DeleteSheet("Sheet1")
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	for col, header := range EventLogExportHeader {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetCellValue(sheetName, cell, header); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set header cell %s: %w", cell, err)
		}
		if err := f.SetCellStyle(sheetName, cell, cell, headerStyle); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set header style: %w", err)
		}

		colName, err := excelize.ColumnNumberToName(col + 1)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to convert column number: %w", err)
		}
		if err := f.SetColWidth(sheetName, colName, colName, eventLogColumnWidths[col]); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set column width: %w", err)
		}
	}

	const timeLayout = "2006-01-02 15:04:05"
	for rowIdx, log := range logs {
		row := rowIdx + 2
		values := []any{
			log.EventID,
			log.Timestamp.Format(timeLayout),
			log.EventType,
			log.Description,
			log.SourceType,
			log.SourceID,
			log.ZoneID.String,
			log.PanelID.String,
			log.Status,
			"",
			log.AcknowledgedBy.String,
		}
		if log.AcknowledgedAt.Valid {
			values[9] = log.AcknowledgedAt.Time.Format(timeLayout)
		}
		for col, value := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row)
			if err != nil {
				f.Close()
				return nil, fmt.Errorf("failed to convert coordinates: %w", err)
			}
			if err := f.SetCellValue(sheetName, cell, value); err != nil {
				f.Close()
				return nil, fmt.Errorf("failed to set cell %s: %w", cell, err)
			}
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write excel file: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("failed to close excel file: %w", err)
	}
	return buf.Bytes(), nil
}
