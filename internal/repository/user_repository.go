package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"golang.org/x/crypto/bcrypt"

	"prolar/internal/apperrors"
	"prolar/internal/models"
)

const userColumns = `user_id, email, name, password_hash, COALESCE(refresh_token, '') AS refresh_token,
	COALESCE(refresh_token_expiry_time, 'epoch'::timestamp) AS refresh_token_expiry_time`

const uniqueViolation = "23505"

type userRepository struct {
	db *sqlx.DB
}

func NewUserRepository(db *sqlx.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) CreateUser(ctx context.Context, user *models.User, password string) error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	user.UserID = uuid.New().String()
	user.PasswordHash = string(hashedPassword)

	query := `
		INSERT INTO users (user_id, email, name, password_hash, refresh_token, refresh_token_expiry_time)
		VALUES (:user_id, :email, :name, :password_hash, :refresh_token, :refresh_token_expiry_time)
	`

	_, err = r.db.NamedExecContext(ctx, query, user)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return fmt.Errorf("email %s already registered: %w", user.Email, apperrors.ErrAuth)
		}
		return apperrors.Unavailable("create user", err)
	}

	return nil
}

func (r *userRepository) GetUserByID(ctx context.Context, userID string) (*models.User, error) {
	return r.getOne(ctx, "user "+userID, `SELECT `+userColumns+` FROM users WHERE user_id = $1`, userID)
}

func (r *userRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getOne(ctx, "user "+email, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
}

func (r *userRepository) GetUserByRefreshToken(ctx context.Context, refreshToken string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE refresh_token = $1 AND refresh_token_expiry_time > CURRENT_TIMESTAMP`
	user, err := r.getOne(ctx, "refresh token", query, refreshToken)
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil, fmt.Errorf("refresh token invalid or expired: %w", apperrors.ErrAuth)
	}
	return user, err
}

func (r *userRepository) getOne(ctx context.Context, what, query string, arg any) (*models.User, error) {
	var user models.User

	err := r.db.GetContext(ctx, &user, query, arg)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", what, apperrors.ErrNotFound)
		}
		return nil, apperrors.Unavailable("get "+what, err)
	}

	return &user, nil
}

// VerifyPassword reports an unknown email and a wrong password the same way.
func (r *userRepository) VerifyPassword(ctx context.Context, email, password string) (*models.User, error) {
	user, err := r.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("invalid email or password: %w", apperrors.ErrAuth)
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, fmt.Errorf("invalid email or password: %w", apperrors.ErrAuth)
	}

	return user, nil
}

func (r *userRepository) UpdateName(ctx context.Context, userID, name string) error {
	result, err := r.db.ExecContext(ctx, `UPDATE users SET name = $1 WHERE user_id = $2`, name, userID)
	if err != nil {
		return apperrors.Unavailable("update user name", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apperrors.Unavailable("update user name", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("user %s: %w", userID, apperrors.ErrNotFound)
	}

	return nil
}

func (r *userRepository) UpdateRefreshToken(ctx context.Context, userID, refreshToken string, expiryTime time.Time) error {
	query := `
		UPDATE users
		SET refresh_token = $1, refresh_token_expiry_time = $2
		WHERE user_id = $3
	`

	_, err := r.db.ExecContext(ctx, query, nullIfEmpty(refreshToken), expiryTime, userID)
	if err != nil {
		return apperrors.Unavailable("update refresh token", err)
	}

	return nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
