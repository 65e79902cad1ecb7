package test

import (
	"context"

	"github.com/stretchr/testify/mock"

	"prolar/internal/apperrors"
	"prolar/internal/models"
	"prolar/internal/service"
	"prolar/internal/session"
)

type MockAuthService struct {
	mock.Mock
}

func (m *MockAuthService) SignUp(ctx context.Context, req models.Registration) (*models.User, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockAuthService) SignIn(ctx context.Context, email, password string) (*models.User, string, string, error) {
	args := m.Called(ctx, email, password)
	if args.Get(0) == nil {
		return nil, "", "", args.Error(3)
	}
	return args.Get(0).(*models.User), args.String(1), args.String(2), args.Error(3)
}

func (m *MockAuthService) SignOut(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *MockAuthService) UpdateDisplayName(ctx context.Context, userID, name string) error {
	args := m.Called(ctx, userID, name)
	return args.Error(0)
}

func (m *MockAuthService) RefreshTokens(ctx context.Context, refreshToken string) (*models.User, string, string, error) {
	args := m.Called(ctx, refreshToken)
	if args.Get(0) == nil {
		return nil, "", "", args.Error(3)
	}
	return args.Get(0).(*models.User), args.String(1), args.String(2), args.Error(3)
}

func (m *MockAuthService) ParseToken(tokenString string) (*session.Session, error) {
	args := m.Called(tokenString)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*session.Session), args.Error(1)
}

func (m *MockAuthService) OnAuthStateChange(fn func(session.Event)) func() {
	m.Called(fn)
	return func() {}
}

type MockUploadService struct {
	mock.Mock
}

func (m *MockUploadService) OpenDraft(ctx context.Context, ownerID string) service.Draft {
	args := m.Called(ctx, ownerID)
	return args.Get(0).(service.Draft)
}

func (m *MockUploadService) GetDraft(ctx context.Context, draftID, ownerID string) (service.Draft, error) {
	args := m.Called(ctx, draftID, ownerID)
	return args.Get(0).(service.Draft), args.Error(1)
}

func (m *MockUploadService) AcceptFiles(ctx context.Context, draftID, ownerID string, files []models.UploadFile) ([]service.FileResult, error) {
	args := m.Called(ctx, draftID, ownerID, files)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]service.FileResult), args.Error(1)
}

func (m *MockUploadService) RemoveImage(ctx context.Context, draftID, ownerID, name string) error {
	args := m.Called(ctx, draftID, ownerID, name)
	return args.Error(0)
}

func (m *MockUploadService) Preview(ctx context.Context, draftID, ownerID, name string) (models.PendingImage, error) {
	args := m.Called(ctx, draftID, ownerID, name)
	return args.Get(0).(models.PendingImage), args.Error(1)
}

func (m *MockUploadService) Discard(ctx context.Context, draftID, ownerID string) error {
	args := m.Called(ctx, draftID, ownerID)
	return args.Error(0)
}

type MockListingService struct {
	mock.Mock
}

func (m *MockListingService) Create(ctx context.Context, form models.ListingForm, images []models.Image, owner session.Session) (*models.Listing, error) {
	args := m.Called(ctx, form, images, owner)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Listing), args.Error(1)
}

func (m *MockListingService) SubmitDraft(ctx context.Context, draftID string, form models.ListingForm, owner session.Session) (*models.Listing, error) {
	args := m.Called(ctx, draftID, form, owner)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Listing), args.Error(1)
}

func (m *MockListingService) ListAll(ctx context.Context) ([]models.Listing, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Listing), args.Error(1)
}

func (m *MockListingService) ListByOwner(ctx context.Context, ownerID string) ([]models.Listing, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Listing), args.Error(1)
}

func (m *MockListingService) GetByID(ctx context.Context, id string) (*models.Listing, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Listing), args.Error(1)
}

func (m *MockListingService) SearchByName(ctx context.Context, prefix string) ([]models.Listing, error) {
	args := m.Called(ctx, prefix)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Listing), args.Error(1)
}

func (m *MockListingService) ValidateFields(form models.ListingForm, fields ...string) apperrors.FieldErrors {
	args := m.Called(form, fields)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).(apperrors.FieldErrors)
}

type MockDeletionService struct {
	mock.Mock
}

func (m *MockDeletionService) Delete(ctx context.Context, listingID string, requester session.Session) (*service.DeletionReport, error) {
	args := m.Called(ctx, listingID, requester)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.DeletionReport), args.Error(1)
}

type MockHealthService struct {
	mock.Mock
}

func (m *MockHealthService) Check(ctx context.Context) service.HealthReport {
	args := m.Called(ctx)
	return args.Get(0).(service.HealthReport)
}
