package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"stirka/internal/database"
	"stirka/internal/service"
)

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}

// respondError транслирует типизированные ошибки в коды ответов.
// Неопознанная ошибка считается сбоем хранилища: наружу уходит общий
// текст, детали остаются в логе вызывающего.
func (s *HTTPServer) respondError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrValidation),
		errors.Is(err, database.ErrInvalidInterval),
		errors.Is(err, database.ErrInvalidStatus):
		writeError(w, http.StatusBadRequest, err.Error())

	case errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, service.ErrInvalidToken),
		errors.Is(err, service.ErrUnauthorizedDomain),
		errors.Is(err, service.ErrSessionNotFound):
		writeError(w, http.StatusUnauthorized, err.Error())

	case errors.Is(err, database.ErrMachineNotFound),
		errors.Is(err, database.ErrBookingNotFound),
		errors.Is(err, database.ErrUserNotFound):
		writeError(w, http.StatusNotFound, err.Error())

	case errors.Is(err, database.ErrSlotConflict),
		errors.Is(err, database.ErrRateLimited),
		errors.Is(err, database.ErrMachineUnavailable),
		errors.Is(err, database.ErrDuplicateStudentID),
		errors.Is(err, database.ErrInvalidState):
		writeError(w, http.StatusConflict, err.Error())

	default:
		s.logger.Error().Err(err).Str("path", r.URL.Path).Msg("internal error")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
