package api

import (
	"encoding/json"
	"net/http"

	"stirka/internal/models"
)

type userResponse struct {
	ID        int64  `json:"id"`
	StudentID string `json:"student_id"`
	Username  string `json:"username"`
	Email     string `json:"email,omitempty"`
	Role      string `json:"role"`
}

func toUserResponse(u *models.User) userResponse {
	return userResponse{
		ID:        u.ID,
		StudentID: u.StudentID,
		Username:  u.Username,
		Email:     u.Email,
		Role:      string(u.Role),
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func (s *HTTPServer) handleRegister(w http.ResponseWriter, r *http.Request) {
	var body struct {
		StudentID string `json:"student_id"`
		Username  string `json:"username"`
		Password  string `json:"password"`
	}
	if !decodeBody(w, r, &body) {
		return
	}

	user, err := s.auth.Register(r.Context(), body.StudentID, body.Username, body.Password)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "registration successful",
		"user_id": user.ID,
	})
}

func (s *HTTPServer) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body struct {
		StudentID string `json:"student_id"`
		Password  string `json:"password"`
	}
	if !decodeBody(w, r, &body) {
		return
	}

	user, session, err := s.auth.Login(r.Context(), body.StudentID, body.Password)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"token": session.Token,
		"user":  toUserResponse(user),
	})
}

func (s *HTTPServer) handleAdminLogin(w http.ResponseWriter, r *http.Request) {
	var body struct {
		AdminID  string `json:"admin_id"`
		Password string `json:"password"`
	}
	if !decodeBody(w, r, &body) {
		return
	}

	admin, session, err := s.auth.AdminLogin(r.Context(), body.AdminID, body.Password)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"token": session.Token,
		"admin": toUserResponse(admin),
	})
}

func (s *HTTPServer) handleGoogleLogin(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Token string `json:"token"`
	}
	if !decodeBody(w, r, &body) {
		return
	}

	user, session, err := s.auth.FederatedLogin(r.Context(), body.Token)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"token": session.Token,
		"user":  toUserResponse(user),
	})
}

func (s *HTTPServer) handleGoogleRegister(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Token string `json:"token"`
	}
	if !decodeBody(w, r, &body) {
		return
	}

	user, err := s.auth.FederatedRegister(r.Context(), body.Token)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "registration successful",
		"user":    toUserResponse(user),
	})
}

func (s *HTTPServer) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.auth.Logout(r.Context(), bearerToken(r)); err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}
