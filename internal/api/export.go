package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/xuri/excelize/v2"
)

// handleExportBookings выгружает все бронирования в XLSX для администратора.
func (s *HTTPServer) handleExportBookings(w http.ResponseWriter, r *http.Request) {
	bookings, err := s.bookings.ListAllBookings(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Bookings"
	f.SetSheetName("Sheet1", sheet)

	headers := []string{"ID", "Student ID", "Username", "Machine", "Start Time", "End Time", "Status", "Created At"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			s.respondError(w, r, err)
			return
		}
	}

	const layout = "2006-01-02 15:04"
	for row, b := range bookings {
		values := []any{
			b.ID,
			b.StudentID,
			b.Username,
			b.MachineName,
			b.StartTime.Format(layout),
			b.EndTime.Format(layout),
			b.Status,
			b.CreatedAt.Format(layout),
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				s.respondError(w, r, err)
				return
			}
		}
	}

	filename := fmt.Sprintf("bookings_%s.xlsx", time.Now().Format("20060102"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))

	if err := f.Write(w); err != nil {
		s.logger.Error().Err(err).Msg("failed to write xlsx export")
	}
}
