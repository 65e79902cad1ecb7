package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"prolar/internal/apperrors"
	"prolar/internal/config"
	"prolar/internal/models"
	"prolar/internal/repository"
	"prolar/internal/session"
	"prolar/internal/validation"
)

// AuthService is the auth provider: accounts live in Postgres and sessions
// are stateless JWTs plus a stored refresh token.
type AuthService interface {
	SignUp(ctx context.Context, req models.Registration) (*models.User, error)
	SignIn(ctx context.Context, email, password string) (*models.User, string, string, error)
	SignOut(ctx context.Context, userID string) error
	UpdateDisplayName(ctx context.Context, userID, name string) error
	RefreshTokens(ctx context.Context, refreshToken string) (*models.User, string, string, error)
	ParseToken(tokenString string) (*session.Session, error)
	OnAuthStateChange(fn func(session.Event)) (unsubscribe func())
}

type authService struct {
	userRepo repository.UserRepository
	schema   *validation.Schema
	cfg      *config.Config
	log      *zap.Logger

	mu        sync.RWMutex
	listeners map[int]func(session.Event)
	nextID    int
}

func NewAuthService(userRepo repository.UserRepository, schema *validation.Schema, cfg *config.Config, log *zap.Logger) AuthService {
	return &authService{
		userRepo:  userRepo,
		schema:    schema,
		cfg:       cfg,
		log:       log,
		listeners: make(map[int]func(session.Event)),
	}
}

func (s *authService) SignUp(ctx context.Context, req models.Registration) (*models.User, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	if fe := s.schema.ValidateSignUp(req); fe != nil {
		return nil, fe
	}

	user := &models.User{
		Email: req.Email,
		Name:  req.Name,
	}
	if err := s.userRepo.CreateUser(ctx, user, req.Password); err != nil {
		return nil, fmt.Errorf("sign up: %w", err)
	}

	s.log.Info("user registered", zap.String("user_id", user.UserID))
	return user, nil
}

func (s *authService) SignIn(ctx context.Context, email, password string) (*models.User, string, string, error) {
	creds := models.Credentials{Email: strings.TrimSpace(email), Password: password}
	if fe := s.schema.ValidateSignIn(creds); fe != nil {
		return nil, "", "", fe
	}

	user, err := s.userRepo.VerifyPassword(ctx, creds.Email, creds.Password)
	if err != nil {
		return nil, "", "", fmt.Errorf("sign in: %w", err)
	}

	accessToken, refreshToken, err := s.issueTokens(ctx, user)
	if err != nil {
		return nil, "", "", err
	}

	s.emit(session.Event{UID: user.UserID, Session: sessionOf(user)})
	return user, accessToken, refreshToken, nil
}

func (s *authService) SignOut(ctx context.Context, userID string) error {
	if err := s.userRepo.UpdateRefreshToken(ctx, userID, "", time.Time{}); err != nil {
		return fmt.Errorf("sign out: %w", err)
	}

	s.emit(session.Event{UID: userID})
	return nil
}

func (s *authService) UpdateDisplayName(ctx context.Context, userID, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return apperrors.Field("name", "name is required")
	}

	if err := s.userRepo.UpdateName(ctx, userID, name); err != nil {
		return fmt.Errorf("update display name: %w", err)
	}

	user, err := s.userRepo.GetUserByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("update display name: %w", err)
	}

	s.emit(session.Event{UID: userID, Session: sessionOf(user)})
	return nil
}

func (s *authService) RefreshTokens(ctx context.Context, refreshToken string) (*models.User, string, string, error) {
	if refreshToken == "" {
		return nil, "", "", fmt.Errorf("missing refresh token: %w", apperrors.ErrAuth)
	}

	user, err := s.userRepo.GetUserByRefreshToken(ctx, refreshToken)
	if err != nil {
		return nil, "", "", fmt.Errorf("refresh tokens: %w", err)
	}

	accessToken, newRefreshToken, err := s.issueTokens(ctx, user)
	if err != nil {
		return nil, "", "", err
	}

	s.emit(session.Event{UID: user.UserID, Session: sessionOf(user)})
	return user, accessToken, newRefreshToken, nil
}

func (s *authService) ParseToken(tokenString string) (*session.Session, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.cfg.JWTSecretKey), nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", errors.Join(apperrors.ErrAuth, err))
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims: %w", apperrors.ErrAuth)
	}

	userID, ok1 := claims["user_id"].(string)
	email, ok2 := claims["email"].(string)
	name, _ := claims["name"].(string)
	if !ok1 || !ok2 || userID == "" {
		return nil, fmt.Errorf("invalid token claims: %w", apperrors.ErrAuth)
	}

	return &session.Session{UID: userID, Email: email, Name: name}, nil
}

func (s *authService) OnAuthStateChange(fn func(session.Event)) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

func (s *authService) emit(ev session.Event) {
	s.mu.RLock()
	fns := make([]func(session.Event), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.mu.RUnlock()

	for _, fn := range fns {
		fn(ev)
	}
}

func (s *authService) issueTokens(ctx context.Context, user *models.User) (string, string, error) {
	accessToken, err := s.generateAccessToken(user)
	if err != nil {
		return "", "", err
	}

	refreshToken, expiry := s.generateRefreshToken()
	if err := s.userRepo.UpdateRefreshToken(ctx, user.UserID, refreshToken, expiry); err != nil {
		return "", "", fmt.Errorf("store refresh token: %w", err)
	}
	return accessToken, refreshToken, nil
}

func (s *authService) generateAccessToken(user *models.User) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"user_id": user.UserID,
		"email":   user.Email,
		"name":    user.Name,
		"exp":     now.Add(s.cfg.AccessTokenDuration).Unix(),
		"iat":     now.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	tokenString, err := token.SignedString([]byte(s.cfg.JWTSecretKey))
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}
	return tokenString, nil
}

func (s *authService) generateRefreshToken() (string, time.Time) {
	return uuid.New().String(), time.Now().Add(s.cfg.RefreshTokenDuration)
}

func sessionOf(user *models.User) *session.Session {
	return &session.Session{UID: user.UserID, Name: user.Name, Email: user.Email}
}
