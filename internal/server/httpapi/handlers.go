package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/server/models"
)

type registerRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email"`
}

type verifyRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
	ConfirmPassword string `json:"confirmPassword"`
}

type confirmPasswordChangeRequest struct {
	Code        string `json:"code"`
	NewPassword string `json:"newPassword"`
}

type resetPasswordRequest struct {
	Email string `json:"email"`
}

type confirmResetPasswordRequest struct {
	Email       string `json:"email"`
	Code        string `json:"code"`
	NewPassword string `json:"newPassword"`
}

type userPayload struct {
	ID         int64     `json:"id"`
	Username   string    `json:"username"`
	Email      string    `json:"email"`
	Verified   bool      `json:"verified"`
	DateJoined time.Time `json:"date_joined"`
}

type codePayload struct {
	Code           string    `json:"code"`
	ExpirationTime time.Time `json:"expiration_time"`
}

type registerResponse struct {
	User userPayload `json:"user"`
	codePayload
}

type authResponse struct {
	User  userPayload `json:"user"`
	Token string      `json:"token"`
}

// toUserPayload strips credential material from a user before it crosses the
// API boundary.
func toUserPayload(u *models.User) userPayload {
	return userPayload{
		ID:         u.ID,
		Username:   u.Username,
		Email:      u.Email,
		Verified:   u.Verified,
		DateJoined: u.DateJoined,
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondWithError(w, http.StatusBadRequest, "malformed request body")
		return false
	}
	return true
}

// handleRegister answers 201 with a fresh code for a new user, or 200 with
// the live/refreshed code when an unverified registration is resumed.
func (s *HTTPServer) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Username == "" || req.Password == "" || req.Email == "" {
		respondWithError(w, http.StatusNotFound, "username, password and email are required")
		return
	}

	result, err := s.users.Register(r.Context(), req.Username, req.Password, req.Email)
	if err != nil {
		s.respondWithMappedError(w, r, err)
		return
	}

	status := http.StatusCreated
	if result.Resumed {
		status = http.StatusOK
	}
	respondWithJSON(w, status, registerResponse{
		User: toUserPayload(result.User),
		codePayload: codePayload{
			Code:           result.Code.Code,
			ExpirationTime: result.Code.ExpiresAt,
		},
	})
}

func (s *HTTPServer) handleVerify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Email == "" || req.Code == "" {
		respondWithError(w, http.StatusNotFound, "email and code are required")
		return
	}

	result, err := s.users.VerifyRegistration(r.Context(), req.Email, req.Code)
	if err != nil {
		s.respondWithMappedError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, authResponse{
		User:  toUserPayload(result.User),
		Token: result.AccessToken,
	})
}

func (s *HTTPServer) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Email == "" || req.Password == "" {
		respondWithError(w, http.StatusNotFound, "email and password are required")
		return
	}

	result, err := s.users.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		s.respondWithMappedError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, authResponse{
		User:  toUserPayload(result.User),
		Token: result.AccessToken,
	})
}

func (s *HTTPServer) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req changePasswordRequest
	if !decodeBody(w, r, &req) {
		return
	}

	code, err := s.users.ChangePassword(r.Context(), claims.UserID,
		req.CurrentPassword, req.NewPassword, req.ConfirmPassword)
	if err != nil {
		s.respondWithMappedError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, codePayload{
		Code:           code.Code,
		ExpirationTime: code.ExpiresAt,
	})
}

func (s *HTTPServer) handleConfirmPasswordChange(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req confirmPasswordChangeRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if err := s.users.ConfirmPasswordChange(r.Context(), claims.UserID, req.Code, req.NewPassword); err != nil {
		s.respondWithMappedError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"status": "password changed"})
}

func (s *HTTPServer) handleRequestPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Email == "" {
		respondWithError(w, http.StatusNotFound, "email is required")
		return
	}

	code, err := s.users.RequestPasswordReset(r.Context(), req.Email)
	if err != nil {
		s.respondWithMappedError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, codePayload{
		Code:           code.Code,
		ExpirationTime: code.ExpiresAt,
	})
}

func (s *HTTPServer) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req confirmResetPasswordRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Email == "" {
		respondWithError(w, http.StatusNotFound, "email is required")
		return
	}

	if err := s.users.ResetPassword(r.Context(), req.Email, req.Code, req.NewPassword); err != nil {
		s.respondWithMappedError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"status": "password reset"})
}

func (s *HTTPServer) handleCurrentUser(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	user, err := s.users.CurrentUser(r.Context(), claims.Email)
	if err != nil {
		s.respondWithMappedError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]userPayload{"user": toUserPayload(user)})
}
