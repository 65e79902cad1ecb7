package test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"prolar/internal/apperrors"
	handlers "prolar/internal/handler"
	"prolar/internal/models"
	"prolar/internal/session"
)

func TestRegisterHandler_Success(t *testing.T) {
	h, d := createTestHandler()
	reg := models.Registration{Name: "Ana", Email: "ana@example.com", Password: "secret1"}
	user := &models.User{UserID: "u1", Email: "ana@example.com", Name: "Ana"}

	d.auth.On("SignUp", mock.Anything, reg).Return(user, nil)
	d.auth.On("SignIn", mock.Anything, "ana@example.com", "secret1").Return(user, "access", "refresh", nil)

	rr := httptest.NewRecorder()
	h.Register(rr, httptest.NewRequest(http.MethodPost, "/api/auth/register", jsonBody(t, reg)))

	assert.Equal(t, http.StatusCreated, rr.Code)
	var resp handlers.AuthResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "access", resp.AccessToken)
	assert.Equal(t, "refresh", resp.RefreshToken)
	assert.Equal(t, handlers.UserResponse{UserID: "u1", Email: "ana@example.com", Name: "Ana"}, resp.User)
	d.auth.AssertExpectations(t)
}

func TestRegisterHandler_Errors(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		err        error
		wantStatus int
		wantField  string
	}{
		{name: "malformed json", body: "{", wantStatus: http.StatusBadRequest},
		{
			name:       "validation",
			body:       `{"email":"ana@example.com","password":"secret1"}`,
			err:        apperrors.Field("name", "name is required"),
			wantStatus: http.StatusBadRequest,
			wantField:  "name",
		},
		{
			name:       "email taken",
			body:       `{"name":"Ana","email":"ana@example.com","password":"secret1"}`,
			err:        fmt.Errorf("sign up: %w", apperrors.ErrAuth),
			wantStatus: http.StatusConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, d := createTestHandler()
			if tt.err != nil {
				d.auth.On("SignUp", mock.Anything, mock.Anything).Return(nil, tt.err)
			}

			rr := httptest.NewRecorder()
			h.Register(rr, httptest.NewRequest(http.MethodPost, "/api/auth/register", strings.NewReader(tt.body)))

			assert.Equal(t, tt.wantStatus, rr.Code)
			resp := decodeError(t, rr)
			if tt.wantField != "" {
				assert.Contains(t, resp.Fields, tt.wantField)
			}
			d.auth.AssertNotCalled(t, "SignIn", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestLoginHandler(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		h, d := createTestHandler()
		user := &models.User{UserID: "u1", Email: "ana@example.com", Name: "Ana"}
		d.auth.On("SignIn", mock.Anything, "ana@example.com", "secret1").Return(user, "access", "refresh", nil)

		rr := httptest.NewRecorder()
		h.Login(rr, httptest.NewRequest(http.MethodPost, "/api/auth/login",
			jsonBody(t, models.Credentials{Email: "ana@example.com", Password: "secret1"})))

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), `"accessToken":"access"`)
	})

	t.Run("bad credentials", func(t *testing.T) {
		h, d := createTestHandler()
		d.auth.On("SignIn", mock.Anything, "ana@example.com", "wrong-pw").Return(nil, "", "", apperrors.ErrAuth)

		rr := httptest.NewRecorder()
		h.Login(rr, httptest.NewRequest(http.MethodPost, "/api/auth/login",
			jsonBody(t, models.Credentials{Email: "ana@example.com", Password: "wrong-pw"})))

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		assert.Equal(t, "invalid email or password", decodeError(t, rr).Error)
	})

	t.Run("invalid email", func(t *testing.T) {
		h, d := createTestHandler()
		d.auth.On("SignIn", mock.Anything, "nope", "secret1").Return(nil, "", "", apperrors.Field("email", "invalid email"))

		rr := httptest.NewRecorder()
		h.Login(rr, httptest.NewRequest(http.MethodPost, "/api/auth/login",
			jsonBody(t, models.Credentials{Email: "nope", Password: "secret1"})))

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, "invalid email", decodeError(t, rr).Fields["email"])
	})
}

func TestRefreshTokenHandler(t *testing.T) {
	h, d := createTestHandler()
	d.auth.On("RefreshTokens", mock.Anything, "stale").Return(nil, "", "", apperrors.ErrAuth)

	rr := httptest.NewRecorder()
	h.RefreshToken(rr, httptest.NewRequest(http.MethodPost, "/api/auth/refresh-token", strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = httptest.NewRecorder()
	h.RefreshToken(rr, httptest.NewRequest(http.MethodPost, "/api/auth/refresh-token", strings.NewReader(`{"refreshToken":"stale"}`)))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestLogoutHandler(t *testing.T) {
	h, d := createTestHandler()
	d.auth.On("SignOut", mock.Anything, "u1").Return(nil)

	rr := httptest.NewRecorder()
	h.Logout(rr, authed(httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil), ana))
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = httptest.NewRecorder()
	h.Logout(rr, httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestGetCurrentUser(t *testing.T) {
	h, _ := createTestHandler()

	rr := httptest.NewRecorder()
	h.GetCurrentUser(rr, authed(httptest.NewRequest(http.MethodGet, "/api/me", nil), ana))

	assert.Equal(t, http.StatusOK, rr.Code)
	var got session.Session
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, ana, got)
}

func TestUpdateNameHandler(t *testing.T) {
	h, d := createTestHandler()
	d.auth.On("UpdateDisplayName", mock.Anything, "u1", "Ana Maria").Return(nil)
	d.auth.On("UpdateDisplayName", mock.Anything, "u1", "").Return(apperrors.Field("name", "name is required"))

	rr := httptest.NewRecorder()
	h.UpdateName(rr, authed(httptest.NewRequest(http.MethodPut, "/api/me/name", strings.NewReader(`{"name":"Ana Maria"}`)), ana))
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	h.UpdateName(rr, authed(httptest.NewRequest(http.MethodPut, "/api/me/name", strings.NewReader(`{"name":""}`)), ana))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "name is required", decodeError(t, rr).Fields["name"])
}
