package export

import (
	"bytes"
	"fmt"

	"classflow/pkg/model"

	"github.com/xuri/excelize/v2"
)

const reportSheet = "Bookings"

var reportHeader = []string{"日期", "時間", "分校", "課程", "導師", "類型", "備註"}

// MonthReport writes bookings, already ordered, as a single-sheet workbook
// followed by one total row per campus.
func MonthReport(month string, bookings []model.Booking) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	idx, err := f.NewSheet(reportSheet)
	if err != nil {
		return nil, fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(idx)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("drop default sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#E2E8F0"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return nil, fmt.Errorf("create style: %w", err)
	}

	if err := f.SetCellValue(reportSheet, "A1", fmt.Sprintf("ClassFlow %s", month)); err != nil {
		return nil, err
	}
	if err := f.SetSheetRow(reportSheet, "A2", &reportHeader); err != nil {
		return nil, err
	}
	lastCol, _ := excelize.ColumnNumberToName(len(reportHeader))
	if err := f.SetCellStyle(reportSheet, "A2", cell(lastCol, 2), headerStyle); err != nil {
		return nil, err
	}

	totals := make(map[string]int, len(model.Locations))
	row := 3
	for _, b := range bookings {
		values := []any{
			b.Date,
			b.StartTime + "-" + b.EndTime,
			locationName(b.LocationID),
			b.Title,
			b.TeacherName,
			string(b.Type),
			b.Description,
		}
		if err := f.SetSheetRow(reportSheet, cell("A", row), &values); err != nil {
			return nil, err
		}
		totals[b.LocationID]++
		row++
	}

	row++
	for _, l := range model.Locations {
		values := []any{"合計", "", l.ChineseName, totals[l.ID]}
		if err := f.SetSheetRow(reportSheet, cell("A", row), &values); err != nil {
			return nil, err
		}
		row++
	}

	f.SetColWidth(reportSheet, "A", "A", 12)
	f.SetColWidth(reportSheet, "B", "B", 14)
	f.SetColWidth(reportSheet, "D", "E", 18)
	f.SetColWidth(reportSheet, "G", "G", 30)

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf, nil
}

func ReportFilename(month string) string {
	return fmt.Sprintf("classflow_%s.xlsx", month)
}

func CalendarFilename(locationID string) string {
	return fmt.Sprintf("classflow_%s.ics", locationID)
}

func locationName(id string) string {
	if l, ok := model.FindLocation(id); ok {
		return l.ChineseName
	}
	return id
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}
