package attendance

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/cmlabs-hris/hris-attendance-go/internal/domain/attendance"
	"github.com/xuri/excelize/v2"
)

const exportSheet = "Attendance"

var exportHeaders = []string{"Date", "Employee ID", "Name", "Punch In", "Punch Out", "Total Hours", "Expected Hours", "Status"}

// Export implements attendance.AttendanceService.
func (s *AttendanceServiceImpl) Export(ctx context.Context, filter attendance.ExportFilter, w io.Writer) error {
	if err := filter.Validate(); err != nil {
		return err
	}
	from, err := time.ParseInLocation(attendance.DateLayout, filter.From, s.policy.Location)
	if err != nil {
		return fmt.Errorf("parse from: %w", err)
	}
	to, err := time.ParseInLocation(attendance.DateLayout, filter.To, s.policy.Location)
	if err != nil {
		return fmt.Errorf("parse to: %w", err)
	}

	records, err := s.AttendanceRepository.ListBetween(ctx, from, to)
	if err != nil {
		return fmt.Errorf("failed to list attendance for export: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	_ = f.SetColWidth(exportSheet, "A", "B", 14)
	_ = f.SetColWidth(exportSheet, "C", "C", 24)
	_ = f.SetColWidth(exportSheet, "D", "E", 20)
	_ = f.SetColWidth(exportSheet, "F", "H", 14)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}

	if err := f.SetSheetRow(exportSheet, "A1", &exportHeaders); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	lastHeader, _ := excelize.CoordinatesToCellName(len(exportHeaders), 1)
	_ = f.SetCellStyle(exportSheet, "A1", lastHeader, headerStyle)

	for i, r := range records {
		name := ""
		if r.EmployeeName != nil {
			name = *r.EmployeeName
		}
		row := []any{
			r.Date.Format(attendance.DateLayout),
			r.EmpID,
			name,
			stringOrEmpty(timePtrToString(r.PunchIn)),
			stringOrEmpty(timePtrToString(r.PunchOut)),
			attendance.FormatHHMM(r.TotalDuration),
			attendance.FormatHHMM(r.ExpectedDuration),
			string(r.Status),
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(exportSheet, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func stringOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
