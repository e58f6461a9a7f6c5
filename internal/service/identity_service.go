package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/d60-Lab/social-platform/internal/auth"
	"github.com/d60-Lab/social-platform/internal/model"
	"github.com/d60-Lab/social-platform/internal/repository"
	"github.com/d60-Lab/social-platform/pkg/errs"
	"github.com/d60-Lab/social-platform/pkg/logger"
)

// TokenPair is returned by every successful authentication flow.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// IdentityService handles registration, login and refresh-token rotation.
type IdentityService struct {
	users      repository.UserRepository
	tokens     repository.RefreshTokenRepository
	manager    *auth.TokenManager
	refreshTTL time.Duration
}

func NewIdentityService(
	users repository.UserRepository,
	tokens repository.RefreshTokenRepository,
	manager *auth.TokenManager,
	refreshTTL time.Duration,
) *IdentityService {
	return &IdentityService{users: users, tokens: tokens, manager: manager, refreshTTL: refreshTTL}
}

func (s *IdentityService) Register(ctx context.Context, username, email, password string) (*model.User, *TokenPair, error) {
	exists, err := s.users.ExistsByUsernameOrEmail(ctx, username, email)
	if err != nil {
		return nil, nil, err
	}
	if exists {
		return nil, nil, errs.New(errs.KindConflict, "identity.Register", "User already existed!")
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, nil, err
	}

	user := &model.User{
		ID:       uuid.New().String(),
		Username: username,
		Email:    email,
		Password: hash,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, nil, err
	}
	logger.Info("new user registered", zap.String("user_id", user.ID))

	pair, err := s.issueTokens(ctx, user.ID)
	if err != nil {
		return nil, nil, err
	}
	return user, pair, nil
}

func (s *IdentityService) Login(ctx context.Context, email, password string) (string, *TokenPair, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return "", nil, err
	}
	if user == nil || !auth.CheckPassword(user.Password, password) {
		return "", nil, errs.New(errs.KindValidation, "identity.Login", "Invalid credentials!")
	}

	pair, err := s.issueTokens(ctx, user.ID)
	if err != nil {
		return "", nil, err
	}
	return user.ID, pair, nil
}

// Refresh rotates a refresh token: the old token is deleted and a fresh pair
// issued, so a leaked token works at most once.
func (s *IdentityService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	stored, err := s.tokens.Find(ctx, refreshToken)
	if err != nil {
		return nil, err
	}
	if stored == nil || stored.ExpiresAt.Before(time.Now()) {
		return nil, errs.New(errs.KindAuth, "identity.Refresh", "Invalid or expired refresh token!")
	}

	user, err := s.users.FindByID(ctx, stored.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, errs.New(errs.KindNotFound, "identity.Refresh", "User not found!")
	}

	if err := s.tokens.Delete(ctx, refreshToken); err != nil {
		return nil, err
	}
	return s.issueTokens(ctx, user.ID)
}

func (s *IdentityService) Logout(ctx context.Context, refreshToken string) error {
	return s.tokens.Delete(ctx, refreshToken)
}

func (s *IdentityService) issueTokens(ctx context.Context, userID string) (*TokenPair, error) {
	access, err := s.manager.Issue(userID)
	if err != nil {
		return nil, err
	}

	refresh, err := randomToken()
	if err != nil {
		return nil, err
	}
	rt := &model.RefreshToken{
		ID:        uuid.New().String(),
		Token:     refresh,
		UserID:    userID,
		ExpiresAt: time.Now().Add(s.refreshTTL),
	}
	if err := s.tokens.Create(ctx, rt); err != nil {
		return nil, err
	}

	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func randomToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
