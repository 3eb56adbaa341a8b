package repository

import (
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"openhaus/internal/model"
)

// setupTestDB opens an in-memory sqlite with the full schema.
func setupTestDB(t *testing.T) *gorm.DB {
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
	return db
}

func mustCreate(t *testing.T, db *gorm.DB, value interface{}) {
	t.Helper()
	if err := db.Create(value).Error; err != nil {
		t.Fatalf("create %T: %v", value, err)
	}
}

// activeListing builds a minimal active listing owned by ownerID.
func activeListing(ownerID int64, title, city string, priceCents int64) *model.Listing {
	expires := time.Now().Add(30 * 24 * time.Hour)
	return &model.Listing{
		OwnerID:    ownerID,
		Kind:       model.ListingKindRent,
		Status:     model.ListingStatusActive,
		Title:      title,
		City:       city,
		PriceCents: priceCents,
		ExpiresAt:  &expires,
	}
}
