package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"stirka/internal/database"
	"stirka/internal/metrics"
	"stirka/internal/models"
)

// parseSlotTime принимает время слота в RFC3339 или без зоны (локальный ввод формы).
func parseSlotTime(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02T15:04", raw)
}

func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	return id, err == nil && id > 0
}

func (s *HTTPServer) handleCreateBooking(w http.ResponseWriter, r *http.Request) {
	var body struct {
		MachineID int64  `json:"machine_id"`
		StartTime string `json:"start_time"`
		EndTime   string `json:"end_time"`
	}
	if !decodeBody(w, r, &body) {
		return
	}

	start, err := parseSlotTime(body.StartTime)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid start_time format")
		return
	}
	end, err := parseSlotTime(body.EndTime)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid end_time format")
		return
	}

	session := sessionFrom(r)
	booking, err := s.bookings.CreateBooking(r.Context(), session.UserID, body.MachineID, start, end)
	if err != nil {
		metrics.IncBookingDecision(decisionOutcome(err))
		s.respondError(w, r, err)
		return
	}
	metrics.IncBookingDecision("admitted")

	writeJSON(w, http.StatusCreated, map[string]any{
		"message":    "booking created successfully",
		"booking_id": booking.ID,
	})
}

func decisionOutcome(err error) string {
	switch {
	case errors.Is(err, database.ErrSlotConflict):
		return "slot_conflict"
	case errors.Is(err, database.ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, database.ErrMachineUnavailable):
		return "machine_unavailable"
	case errors.Is(err, database.ErrMachineNotFound):
		return "machine_not_found"
	case errors.Is(err, database.ErrInvalidInterval):
		return "invalid_interval"
	default:
		return "error"
	}
}

func (s *HTTPServer) handleUserBookings(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	// Чужие списки видит только администратор
	session := sessionFrom(r)
	if session.UserID != userID && session.Role != models.RoleAdmin {
		writeError(w, http.StatusForbidden, "access denied")
		return
	}

	bookings, err := s.bookings.ListUserBookings(r.Context(), userID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"bookings": bookingList(bookings)})
}

func (s *HTTPServer) handleCancelBooking(w http.ResponseWriter, r *http.Request) {
	bookingID, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid booking id")
		return
	}

	session := sessionFrom(r)
	if err := s.bookings.CancelBooking(r.Context(), bookingID, session.UserID); err != nil {
		s.respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "booking cancelled successfully"})
}

func (s *HTTPServer) handleAllBookings(w http.ResponseWriter, r *http.Request) {
	bookings, err := s.bookings.ListAllBookings(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"bookings": bookingList(bookings)})
}

func (s *HTTPServer) handleMachineBookings(w http.ResponseWriter, r *http.Request) {
	machineID, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid machine id")
		return
	}

	bookings, err := s.bookings.ListMachineBookings(r.Context(), machineID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"bookings": bookingList(bookings)})
}

// bookingList не дает json-энкодеру превратить пустой срез в null.
func bookingList(bookings []*models.Booking) []*models.Booking {
	if bookings == nil {
		return []*models.Booking{}
	}
	return bookings
}
