package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"prolar/internal/models"
)

type UserRepository interface {
	CreateUser(ctx context.Context, user *models.User, password string) error
	GetUserByID(ctx context.Context, userID string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateName(ctx context.Context, userID, name string) error
	VerifyPassword(ctx context.Context, email, password string) (*models.User, error)
	UpdateRefreshToken(ctx context.Context, userID, refreshToken string, expiryTime time.Time) error
	GetUserByRefreshToken(ctx context.Context, refreshToken string) (*models.User, error)
}

// ListingRepository is the document store for listings. List methods return
// an empty slice, never nil, when nothing matches.
type ListingRepository interface {
	Create(ctx context.Context, listing *models.Listing) (string, error)
	GetAll(ctx context.Context) ([]models.Listing, error)
	GetByOwner(ctx context.Context, ownerID string) ([]models.Listing, error)
	GetByID(ctx context.Context, id string) (*models.Listing, error)
	SearchByName(ctx context.Context, prefix string) ([]models.Listing, error)
	Delete(ctx context.Context, id string) error
	// GetRef reads only the owner and image paths, straight from the store.
	GetRef(ctx context.Context, id string) (*ListingRef, error)
}

// ListingRef is what a delete needs from a stored listing.
type ListingRef struct {
	ID      string
	OwnerID string
	Images  []models.Image
}

type Repository struct {
	User    UserRepository
	Listing ListingRepository
}

func NewRepository(db *sqlx.DB, listings ListingRepository) *Repository {
	return &Repository{
		User:    NewUserRepository(db),
		Listing: listings,
	}
}
