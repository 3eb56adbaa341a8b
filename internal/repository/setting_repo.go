package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"openhaus/internal/model"
)

// ==================== Interface ====================

type SettingRepository interface {
	Get(ctx context.Context, name string) (*model.AdminSetting, error)
	Set(ctx context.Context, name, value string) error
	List(ctx context.Context) ([]model.AdminSetting, error)
	Delete(ctx context.Context, name string) error
}

var ErrSettingNotFound = errors.New("setting not found")

// ==================== Implementation ====================

type settingRepo struct {
	db *gorm.DB
}

func NewSettingRepository(db *gorm.DB) SettingRepository {
	return &settingRepo{db: db}
}

func (r *settingRepo) Get(ctx context.Context, name string) (*model.AdminSetting, error) {
	var setting model.AdminSetting
	err := r.db.WithContext(ctx).Where("name = ?", name).First(&setting).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSettingNotFound
	}
	if err != nil {
		return nil, err
	}
	return &setting, nil
}

func (r *settingRepo) Set(ctx context.Context, name, value string) error {
	setting := model.AdminSetting{Name: name, Value: value}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at", "updated_by"}),
	}).Create(&setting).Error
}

func (r *settingRepo) List(ctx context.Context) ([]model.AdminSetting, error) {
	var settings []model.AdminSetting
	err := r.db.WithContext(ctx).Order("name ASC").Find(&settings).Error
	return settings, err
}

func (r *settingRepo) Delete(ctx context.Context, name string) error {
	return r.db.WithContext(ctx).
		Where("name = ?", name).
		Delete(&model.AdminSetting{}).Error
}
