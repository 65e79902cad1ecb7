package test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"prolar/internal/apperrors"
	"prolar/internal/config"
	handlers "prolar/internal/handler"
	"prolar/internal/models"
	"prolar/internal/repository"
	"prolar/internal/service"
	"prolar/internal/session"
)

var ana = session.Session{UID: "u1", Name: "Ana", Email: "ana@example.com"}

type testDeps struct {
	auth     *MockAuthService
	uploads  *MockUploadService
	listings *MockListingService
	deletion *MockDeletionService
	health   *MockHealthService
	sessions *session.Registry
}

func createTestHandler() (*handlers.Handlers, testDeps) {
	d := testDeps{
		auth:     new(MockAuthService),
		uploads:  new(MockUploadService),
		listings: new(MockListingService),
		deletion: new(MockDeletionService),
		health:   new(MockHealthService),
		sessions: session.NewRegistry(),
	}
	cfg := &config.Config{
		JWTSecretKey: "test-secret-key",
		ServerPort:   8080,
		Upload:       config.Upload{MaxUploadSize: 1 << 20, Concurrency: 2, DraftTTL: time.Hour},
	}
	h := &handlers.Handlers{
		AuthService:     d.auth,
		UploadService:   d.uploads,
		ListingService:  d.listings,
		DeletionService: d.deletion,
		HealthService:   d.health,
		Sessions:        d.sessions,
		Cfg:             cfg,
		Log:             zap.NewNop(),
	}
	return h, d
}

// authed attaches the caller's session the way the auth middleware does.
func authed(req *http.Request, s session.Session) *http.Request {
	return req.WithContext(session.WithContext(req.Context(), s))
}

func jsonBody(t *testing.T, v any) io.Reader {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewReader(b)
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) handlers.ErrorResponse {
	t.Helper()
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	var resp handlers.ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	return resp
}

func sampleListing() *models.Listing {
	return &models.Listing{
		ID:        "665f1c2b9a1e4c0012345678",
		Name:      "CASA NA PRAIA",
		Price:     "350",
		PriceType: models.PriceDaily,
		Phone:     "71996783434",
		OwnerID:   "u1",
		OwnerName: "Ana",
		Images:    []models.Image{{Name: "a", UID: "u1", URL: "https://cdn/a"}},
	}
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{apperrors.ErrNotFound, http.StatusNotFound},
		{fmt.Errorf("%w: l1 has no city", repository.ErrMalformedDocument), http.StatusNotFound},
		{apperrors.ErrForbidden, http.StatusForbidden},
		{apperrors.ErrAuth, http.StatusUnauthorized},
		{apperrors.Unavailable("mongo", assert.AnError), http.StatusServiceUnavailable},
		{assert.AnError, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		h, d := createTestHandler()
		d.listings.On("ListByOwner", mock.Anything, "u1").Return(nil, tt.err)

		rr := httptest.NewRecorder()
		h.GetDashboard(rr, authed(httptest.NewRequest(http.MethodGet, "/api/dashboard/listings", nil), ana))

		assert.Equal(t, tt.status, rr.Code, tt.err.Error())
		assert.NotEmpty(t, decodeError(t, rr).Error)
	}
}

func TestHealthHandler(t *testing.T) {
	h, d := createTestHandler()
	d.health.On("Check", mock.Anything).Return(service.HealthReport{
		Status:     "degraded",
		Components: map[string]string{"postgres": "ok", "mongo": "timeout"},
	})
	rr := httptest.NewRecorder()

	h.HealthHandler(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Contains(t, rr.Body.String(), `"mongo":"timeout"`)
}

func multipartRequest(t *testing.T, url string, files map[string][]byte, contentTypes map[string]string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for name, data := range files {
		hdr := make(textproto.MIMEHeader)
		hdr.Set("Content-Disposition", `form-data; name="images"; filename="`+name+`"`)
		hdr.Set("Content-Type", contentTypes[name])
		part, err := w.CreatePart(hdr)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, url, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func withVars(req *http.Request, vars map[string]string) *http.Request {
	return mux.SetURLVars(req, vars)
}
