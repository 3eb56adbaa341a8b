package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"openhaus/internal/model"
)

// ==================== Interface ====================

type DigestRepository interface {
	Record(ctx context.Context, run *model.DigestRun) error
	LastRun(ctx context.Context, kind model.DigestKind, savedSearchID int64) (*model.DigestRun, error)
	ListRecent(ctx context.Context, kind model.DigestKind, limit int) ([]model.DigestRun, error)
	PruneBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// ==================== Implementation ====================

type digestRepo struct {
	db *gorm.DB
}

func NewDigestRepository(db *gorm.DB) DigestRepository {
	return &digestRepo{db: db}
}

func (r *digestRepo) Record(ctx context.Context, run *model.DigestRun) error {
	return r.db.WithContext(ctx).Create(run).Error
}

// LastRun returns the most recent non-failed run, or nil when none
// exists. Failed runs don't advance the covered period, so the next
// attempt re-sends what the failure dropped.
func (r *digestRepo) LastRun(ctx context.Context, kind model.DigestKind, savedSearchID int64) (*model.DigestRun, error) {
	var run model.DigestRun
	query := r.db.WithContext(ctx).
		Where("kind = ? AND status <> ?", kind, model.DigestStatusFailed)
	if savedSearchID > 0 {
		query = query.Where("saved_search_id = ?", savedSearchID)
	}
	err := query.Order("period_end DESC").First(&run).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

func (r *digestRepo) ListRecent(ctx context.Context, kind model.DigestKind, limit int) ([]model.DigestRun, error) {
	if limit <= 0 {
		limit = 50
	}
	var runs []model.DigestRun
	err := r.db.WithContext(ctx).
		Where("kind = ?", kind).
		Order("created_at DESC").
		Limit(limit).
		Find(&runs).Error
	return runs, err
}

func (r *digestRepo) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("created_at < ?", cutoff).
		Delete(&model.DigestRun{})
	return res.RowsAffected, res.Error
}
