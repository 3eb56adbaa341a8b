package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"openhaus/internal/middleware"
	"openhaus/internal/model"
	"openhaus/internal/repository"
)

// ==================== AuthService ====================

type AuthService struct {
	userRepo    repository.UserRepository
	sessionRepo repository.SessionRepository
	settings    *SettingsService
	analytics   *AnalyticsService
	logger      *zap.Logger
}

func NewAuthService(
	userRepo repository.UserRepository,
	sessionRepo repository.SessionRepository,
	settings *SettingsService,
	analytics *AnalyticsService,
	logger *zap.Logger,
) *AuthService {
	return &AuthService{
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		settings:    settings,
		analytics:   analytics,
		logger:      logger.Named("auth"),
	}
}

// TokenPair is what login and refresh hand back.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

// ==================== Registration / login ====================

func (s *AuthService) Register(ctx context.Context, email, password, displayName, role string) (*model.User, error) {
	if _, err := s.userRepo.GetByEmail(ctx, email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	// Admin accounts are never self-service.
	if role != model.RoleAgent {
		role = model.RoleUser
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		Email:        email,
		PasswordHash: string(hash),
		DisplayName:  displayName,
		Role:         role,
		IsActive:     true,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	s.analytics.Track(ctx, model.EventSignup, 0, user.ID, nil)
	s.logger.Info("user registered", zap.Int64("user_id", user.ID))
	return user, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*model.User, *TokenPair, error) {
	user, err := s.userRepo.GetByEmail(ctx, email)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, nil, err
	}

	if !user.IsActive {
		return nil, nil, ErrAccountDisabled
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, nil, ErrInvalidCredentials
	}

	access, refresh, err := middleware.GenerateTokenPair(user.ID, user.Email, user.Role)
	if err != nil {
		return nil, nil, err
	}

	return user, &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// Refresh exchanges a refresh token for a new pair. The user row is
// re-read so role changes and deactivation take effect on rotation.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := middleware.ParseToken(refreshToken)
	if err != nil || claims.Subject != "refresh" {
		return nil, ErrInvalidCredentials
	}

	user, err := s.userRepo.GetByID(ctx, claims.UserID)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, ErrAccountDisabled
	}

	access, refresh, err := middleware.GenerateTokenPair(user.ID, user.Email, user.Role)
	if err != nil {
		return nil, err
	}

	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// ==================== Impersonation ====================

// Impersonate issues a session for an admin to act as subject. The
// token is an opaque UUID held server-side so it can be revoked.
func (s *AuthService) Impersonate(ctx context.Context, adminID, subjectID int64, reason string) (*model.ImpersonationSession, error) {
	subject, err := s.userRepo.GetByID(ctx, subjectID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSubjectNotFound
	}
	if err != nil {
		return nil, err
	}
	if subject.IsAdmin() {
		return nil, ErrSubjectIsAdmin
	}

	session := &model.ImpersonationSession{
		Token:     uuid.New().String(),
		AdminID:   adminID,
		SubjectID: subjectID,
		Reason:    reason,
		ExpiresAt: time.Now().Add(s.settings.ImpersonationTTL(ctx)),
	}
	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, err
	}

	s.logger.Info("impersonation issued",
		zap.Int64("admin_id", adminID),
		zap.Int64("subject_id", subjectID),
		zap.Time("expires_at", session.ExpiresAt))
	return session, nil
}

// ExchangeImpersonation swaps the opaque session token for an access
// token carrying both identities. The JWT lifetime is clamped to the
// session's remaining life so a revoke can't be outlived by much.
func (s *AuthService) ExchangeImpersonation(ctx context.Context, token string) (*TokenPair, *model.ImpersonationSession, error) {
	session, err := s.sessionRepo.GetByToken(ctx, token)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, nil, err
	}

	now := time.Now()
	if session.RevokedAt != nil {
		return nil, nil, ErrSessionRevoked
	}
	if !now.Before(session.ExpiresAt) {
		return nil, nil, ErrSessionExpired
	}

	subject := session.Subject
	if subject == nil {
		if subject, err = s.userRepo.GetByID(ctx, session.SubjectID); err != nil {
			return nil, nil, ErrSubjectNotFound
		}
	}

	access, err := middleware.GenerateImpersonatedToken(
		subject.ID, subject.Email, subject.Role,
		session.AdminID, session.ExpiresAt.Sub(now))
	if err != nil {
		return nil, nil, err
	}

	if err := s.sessionRepo.MarkUsed(ctx, session.ID, now); err != nil {
		s.logger.Warn("mark impersonation used failed", zap.Int64("session_id", session.ID), zap.Error(err))
	}

	// No refresh token: when the session lapses, so does access.
	return &TokenPair{AccessToken: access}, session, nil
}

func (s *AuthService) RevokeImpersonation(ctx context.Context, sessionID int64) error {
	session, err := s.sessionRepo.GetByID(ctx, sessionID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrSessionNotFound
	}
	if err != nil {
		return err
	}

	if session.RevokedAt != nil {
		return ErrSessionRevoked
	}

	return s.sessionRepo.Revoke(ctx, sessionID, time.Now())
}

func (s *AuthService) ListActiveImpersonations(ctx context.Context) ([]model.ImpersonationSession, error) {
	return s.sessionRepo.ListActive(ctx, time.Now())
}

// SweepExpiredImpersonations closes sessions past expiry. Run by the
// sweep task.
func (s *AuthService) SweepExpiredImpersonations(ctx context.Context) (int64, error) {
	return s.sessionRepo.RevokeExpired(ctx, time.Now())
}
