package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"openhaus/internal/model"
	"openhaus/internal/repository"
	"openhaus/pkg/utils"
)

// ==================== Defaults ====================

// Defaults apply when an admin has never written the setting.
var settingDefaults = map[string]string{
	model.SettingFeaturedPerUserCap:  "1",
	model.SettingFeaturedGlobalCap:   "12",
	model.SettingListingExpiryDays:   "30",
	model.SettingListingImageCap:     "10",
	model.SettingEventRetentionDays:  "90",
	model.SettingImpersonationTTLMin: "30",
	model.SettingDigestSendHour:      "7",
	model.SettingAgentListingCap:     "50",
	model.SettingUserListingCap:      "5",
}

// ==================== Service ====================

// SettingsService reads admin knobs through a short TTL cache, since
// featured checks and listing validation consult them per request.
type SettingsService struct {
	repo   repository.SettingRepository
	cache  *utils.TTLCache
	logger *zap.Logger
}

func NewSettingsService(repo repository.SettingRepository, logger *zap.Logger) *SettingsService {
	return &SettingsService{
		repo:   repo,
		cache:  utils.NewTTLCache(time.Minute),
		logger: logger.Named("settings"),
	}
}

// Get returns the raw value, falling back to the compiled default.
func (s *SettingsService) Get(ctx context.Context, name string) string {
	if val, ok := s.cache.Get(name); ok {
		return val
	}

	setting, err := s.repo.Get(ctx, name)
	if err == repository.ErrSettingNotFound {
		val := settingDefaults[name]
		s.cache.Set(name, val)
		return val
	}
	if err != nil {
		// Serve the default on read failure rather than breaking the
		// request path; the next cache miss retries.
		s.logger.Warn("setting read failed", zap.String("name", name), zap.Error(err))
		return settingDefaults[name]
	}

	s.cache.Set(name, setting.Value)
	return setting.Value
}

// GetInt parses the value, falling back to the default on bad data.
func (s *SettingsService) GetInt(ctx context.Context, name string) int {
	raw := s.Get(ctx, name)
	n, err := strconv.Atoi(raw)
	if err != nil {
		def, _ := strconv.Atoi(settingDefaults[name])
		return def
	}
	return n
}

// Set validates and writes one setting, then drops the cache entry.
func (s *SettingsService) Set(ctx context.Context, name, value string) error {
	if _, known := settingDefaults[name]; !known {
		return fmt.Errorf("%w: %s", ErrUnknownSetting, name)
	}
	if _, err := strconv.Atoi(value); err != nil {
		return fmt.Errorf("%w: %s must be an integer", ErrInvalidSetting, name)
	}

	if err := s.repo.Set(ctx, name, value); err != nil {
		return err
	}

	s.cache.Delete(name)
	s.logger.Info("setting updated", zap.String("name", name), zap.String("value", value))
	return nil
}

// List merges stored rows over the defaults so the admin UI always
// shows every knob.
func (s *SettingsService) List(ctx context.Context) (map[string]string, error) {
	out := make(map[string]string, len(settingDefaults))
	for name, val := range settingDefaults {
		out[name] = val
	}

	stored, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, setting := range stored {
		out[setting.Name] = setting.Value
	}

	return out, nil
}

// ==================== Typed accessors ====================

func (s *SettingsService) FeaturedPerUserCap(ctx context.Context) int {
	return s.GetInt(ctx, model.SettingFeaturedPerUserCap)
}

func (s *SettingsService) FeaturedGlobalCap(ctx context.Context) int {
	return s.GetInt(ctx, model.SettingFeaturedGlobalCap)
}

func (s *SettingsService) ListingExpiryDays(ctx context.Context) int {
	return s.GetInt(ctx, model.SettingListingExpiryDays)
}

func (s *SettingsService) ListingImageCap(ctx context.Context) int {
	return s.GetInt(ctx, model.SettingListingImageCap)
}

func (s *SettingsService) EventRetentionDays(ctx context.Context) int {
	return s.GetInt(ctx, model.SettingEventRetentionDays)
}

func (s *SettingsService) ImpersonationTTL(ctx context.Context) time.Duration {
	return time.Duration(s.GetInt(ctx, model.SettingImpersonationTTLMin)) * time.Minute
}

func (s *SettingsService) DigestSendHour(ctx context.Context) int {
	return s.GetInt(ctx, model.SettingDigestSendHour)
}

func (s *SettingsService) ListingCapForRole(ctx context.Context, role string) int {
	if role == model.RoleAgent {
		return s.GetInt(ctx, model.SettingAgentListingCap)
	}
	return s.GetInt(ctx, model.SettingUserListingCap)
}
