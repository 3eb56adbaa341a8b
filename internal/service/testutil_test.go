package service

import (
	"context"
	"sync"
	"testing"

	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"openhaus/internal/mailer"
	"openhaus/internal/model"
	"openhaus/internal/repository"
)

// ==================== Test harness ====================

// testEnv wires every service against one in-memory sqlite, the same
// way main does against Postgres.
type testEnv struct {
	db *gorm.DB

	userRepo    repository.UserRepository
	listingRepo repository.ListingRepository
	favRepo     repository.FavoriteRepository
	searchRepo  repository.SavedSearchRepository
	sessionRepo repository.SessionRepository
	eventRepo   repository.EventRepository
	settingRepo repository.SettingRepository
	digestRepo  repository.DigestRepository

	settings  *SettingsService
	analytics *AnalyticsService
	auth      *AuthService
	listing   *ListingService
	favorite  *FavoriteService

	sender *captureSender
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}

	err = db.AutoMigrate(
		&model.User{}, &model.ImpersonationSession{},
		&model.Listing{}, &model.ListingImage{},
		&model.Favorite{}, &model.SavedSearch{},
		&model.AnalyticsEvent{}, &model.DailyListingStat{}, &model.DailySiteStat{},
		&model.AdminSetting{}, &model.DigestRun{},
	)
	if err != nil {
		t.Fatalf("migrate test db: %v", err)
	}

	log := zap.NewNop()
	env := &testEnv{
		db:          db,
		userRepo:    repository.NewUserRepository(db),
		listingRepo: repository.NewListingRepository(db),
		favRepo:     repository.NewFavoriteRepository(db),
		searchRepo:  repository.NewSavedSearchRepository(db),
		sessionRepo: repository.NewSessionRepository(db),
		eventRepo:   repository.NewEventRepository(db),
		settingRepo: repository.NewSettingRepository(db),
		digestRepo:  repository.NewDigestRepository(db),
		sender:      &captureSender{},
	}

	storage, err := NewStorageService(&StorageConfig{Provider: "local", BasePath: t.TempDir()})
	if err != nil {
		t.Fatalf("storage: %v", err)
	}

	env.settings = NewSettingsService(env.settingRepo, log)
	env.analytics = NewAnalyticsService(env.eventRepo, env.listingRepo, env.settings, log)
	env.auth = NewAuthService(env.userRepo, env.sessionRepo, env.settings, env.analytics, log)
	env.listing = NewListingService(env.listingRepo, env.favRepo, env.settings, env.analytics, storage, log)
	env.favorite = NewFavoriteService(env.favRepo, env.searchRepo, env.listingRepo, env.analytics, log)

	return env
}

func (env *testEnv) digest(t *testing.T) *DigestService {
	t.Helper()
	return NewDigestService(
		env.searchRepo, env.listingRepo, env.userRepo, env.digestRepo,
		env.analytics, env.sender, "http://test.local", zap.NewNop(),
	)
}

func (env *testEnv) user(t *testing.T, email, role string) *model.User {
	t.Helper()
	u := &model.User{Email: email, PasswordHash: "x", Role: role, IsActive: true}
	if err := env.db.Create(u).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

func (env *testEnv) submitActive(t *testing.T, owner *model.User, title string) *model.Listing {
	t.Helper()
	ctx := context.Background()

	listing, err := env.listing.Create(ctx, owner, &ListingInput{
		Kind:       model.ListingKindRent,
		Title:      title,
		City:       "Boston",
		PriceCents: 250000,
	})
	if err != nil {
		t.Fatalf("create listing: %v", err)
	}
	if listing.Status == model.ListingStatusActive {
		return listing
	}

	admin := env.user(t, "approver-"+title+"@example.com", model.RoleAdmin)
	listing, err = env.listing.Approve(ctx, admin.ID, listing.ID)
	if err != nil {
		t.Fatalf("approve listing: %v", err)
	}
	return listing
}

// ==================== Fake mail sender ====================

type captureSender struct {
	mu       sync.Mutex
	messages []mailer.Message
	fail     bool
}

func (s *captureSender) Send(ctx context.Context, msg mailer.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errSendFailed
	}
	s.messages = append(s.messages, msg)
	return nil
}

func (s *captureSender) sent() []mailer.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]mailer.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

var errSendFailed = errTest("send failed")

type errTest string

func (e errTest) Error() string { return string(e) }
