package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"prolar/internal/apperrors"
	"prolar/internal/models"
	"prolar/internal/session"
)

type UserResponse struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	Name   string `json:"name"`
}

type AuthResponse struct {
	AccessToken  string       `json:"accessToken"`
	RefreshToken string       `json:"refreshToken"`
	User         UserResponse `json:"user"`
}

func userResponse(u *models.User) UserResponse {
	return UserResponse{UserID: u.UserID, Email: u.Email, Name: u.Name}
}

// Register creates the account and signs the new user in. The sign-in event
// carries the display name to the session registry.
func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	var req models.Registration
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	user, err := h.AuthService.SignUp(r.Context(), req)
	if err != nil {
		if errors.Is(err, apperrors.ErrAuth) {
			WriteError(w, "email already registered", http.StatusConflict)
			return
		}
		h.writeServiceError(w, r, err)
		return
	}

	user, accessToken, refreshToken, err := h.AuthService.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	h.Log.Info("account created", zap.String("user_id", user.UserID))
	writeSuccess(w, AuthResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         userResponse(user),
	}, http.StatusCreated)
}

func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var req models.Credentials
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	user, accessToken, refreshToken, err := h.AuthService.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, apperrors.ErrAuth) || errors.Is(err, apperrors.ErrNotFound) {
			WriteError(w, "invalid email or password", http.StatusUnauthorized)
			return
		}
		h.writeServiceError(w, r, err)
		return
	}

	writeSuccess(w, AuthResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         userResponse(user),
	}, http.StatusOK)
}

func (h *Handlers) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refreshToken"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.RefreshToken == "" {
		WriteError(w, "refreshToken is required", http.StatusBadRequest)
		return
	}

	user, accessToken, refreshToken, err := h.AuthService.RefreshTokens(r.Context(), req.RefreshToken)
	if err != nil {
		if errors.Is(err, apperrors.ErrAuth) || errors.Is(err, apperrors.ErrNotFound) {
			WriteError(w, "refresh token expired or invalid", http.StatusUnauthorized)
			return
		}
		h.writeServiceError(w, r, err)
		return
	}

	writeSuccess(w, AuthResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         userResponse(user),
	}, http.StatusOK)
}

func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	s, ok := session.FromContext(r.Context())
	if !ok {
		WriteError(w, "authentication required", http.StatusUnauthorized)
		return
	}

	if err := h.AuthService.SignOut(r.Context(), s.UID); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) GetCurrentUser(w http.ResponseWriter, r *http.Request) {
	s, ok := session.FromContext(r.Context())
	if !ok {
		WriteError(w, "authentication required", http.StatusUnauthorized)
		return
	}
	writeSuccess(w, s, http.StatusOK)
}

func (h *Handlers) UpdateName(w http.ResponseWriter, r *http.Request) {
	s, ok := session.FromContext(r.Context())
	if !ok {
		WriteError(w, "authentication required", http.StatusUnauthorized)
		return
	}

	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.AuthService.UpdateDisplayName(r.Context(), s.UID, req.Name); err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	if st := h.Sessions.Get(s.UID); st.SignedIn() {
		s = *st.Session
	}
	writeSuccess(w, s, http.StatusOK)
}
