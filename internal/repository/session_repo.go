package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"openhaus/internal/model"
)

// ==================== Interface ====================

type SessionRepository interface {
	Create(ctx context.Context, session *model.ImpersonationSession) error
	GetByToken(ctx context.Context, token string) (*model.ImpersonationSession, error)
	GetByID(ctx context.Context, id int64) (*model.ImpersonationSession, error)
	MarkUsed(ctx context.Context, id int64, at time.Time) error
	Revoke(ctx context.Context, id int64, at time.Time) error
	ListActive(ctx context.Context, now time.Time) ([]model.ImpersonationSession, error)
	RevokeExpired(ctx context.Context, now time.Time) (int64, error)
}

// ==================== Implementation ====================

type sessionRepo struct {
	db *gorm.DB
}

func NewSessionRepository(db *gorm.DB) SessionRepository {
	return &sessionRepo{db: db}
}

func (r *sessionRepo) Create(ctx context.Context, session *model.ImpersonationSession) error {
	return r.db.WithContext(ctx).Create(session).Error
}

func (r *sessionRepo) GetByToken(ctx context.Context, token string) (*model.ImpersonationSession, error) {
	var session model.ImpersonationSession
	err := r.db.WithContext(ctx).
		Preload("Subject").
		Where("token = ?", token).
		First(&session).Error
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *sessionRepo) GetByID(ctx context.Context, id int64) (*model.ImpersonationSession, error) {
	var session model.ImpersonationSession
	if err := r.db.WithContext(ctx).First(&session, id).Error; err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *sessionRepo) MarkUsed(ctx context.Context, id int64, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&model.ImpersonationSession{}).
		Where("id = ?", id).
		Update("used_at", at).Error
}

func (r *sessionRepo) Revoke(ctx context.Context, id int64, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&model.ImpersonationSession{}).
		Where("id = ? AND revoked_at IS NULL", id).
		Update("revoked_at", at).Error
}

func (r *sessionRepo) ListActive(ctx context.Context, now time.Time) ([]model.ImpersonationSession, error) {
	var sessions []model.ImpersonationSession
	err := r.db.WithContext(ctx).
		Preload("Admin").
		Preload("Subject").
		Where("revoked_at IS NULL AND expires_at > ?", now).
		Order("created_at DESC").
		Find(&sessions).Error
	return sessions, err
}

// RevokeExpired closes out sessions past their expiry so the admin view
// only ever shows genuinely live capability grants.
func (r *sessionRepo) RevokeExpired(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&model.ImpersonationSession{}).
		Where("revoked_at IS NULL AND expires_at <= ?", now).
		Update("revoked_at", now)
	return res.RowsAffected, res.Error
}
