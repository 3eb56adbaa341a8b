package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"openhaus/internal/model"
)

func TestListingRepo_ListPublicHidesNonActive(t *testing.T) {
	db := setupTestDB(t)
	repo := NewListingRepository(db)
	ctx := context.Background()

	mustCreate(t, db, activeListing(1, "Sunny two bed", "Boston", 250000))

	pending := activeListing(1, "Pending loft", "Boston", 180000)
	pending.Status = model.ListingStatusPending
	mustCreate(t, db, pending)

	expired := activeListing(1, "Old walkup", "Boston", 120000)
	past := time.Now().Add(-time.Hour)
	expired.ExpiresAt = &past
	mustCreate(t, db, expired)

	listings, total, err := repo.List(ctx, ListingFilter{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, listings, 1)
	assert.Equal(t, "Sunny two bed", listings[0].Title)
}

func TestListingRepo_ListFilters(t *testing.T) {
	db := setupTestDB(t)
	repo := NewListingRepository(db)
	ctx := context.Background()

	cheap := activeListing(1, "Cozy studio downtown", "Boston", 150000)
	cheap.Bedrooms = 0
	mustCreate(t, db, cheap)

	big := activeListing(1, "Spacious family house", "Cambridge", 450000)
	big.Bedrooms = 4
	big.Bathrooms = 2
	big.PetFriendly = true
	mustCreate(t, db, big)

	sale := activeListing(2, "Brick rowhouse", "Boston", 80000000)
	sale.Kind = model.ListingKindSale
	mustCreate(t, db, sale)

	t.Run("by city case-insensitive", func(t *testing.T) {
		_, total, err := repo.List(ctx, ListingFilter{City: "CAMBRIDGE"})
		require.NoError(t, err)
		assert.EqualValues(t, 1, total)
	})

	t.Run("by kind", func(t *testing.T) {
		_, total, err := repo.List(ctx, ListingFilter{Kind: model.ListingKindSale})
		require.NoError(t, err)
		assert.EqualValues(t, 1, total)
	})

	t.Run("by price band", func(t *testing.T) {
		_, total, err := repo.List(ctx, ListingFilter{MinPrice: 200000, MaxPrice: 500000})
		require.NoError(t, err)
		assert.EqualValues(t, 1, total)
	})

	t.Run("by bedrooms and pets", func(t *testing.T) {
		pets := true
		_, total, err := repo.List(ctx, ListingFilter{MinBedrooms: 3, PetFriendly: &pets})
		require.NoError(t, err)
		assert.EqualValues(t, 1, total)
	})

	t.Run("keyword matches title", func(t *testing.T) {
		listings, total, err := repo.List(ctx, ListingFilter{Keyword: "FAMILY"})
		require.NoError(t, err)
		assert.EqualValues(t, 1, total)
		require.Len(t, listings, 1)
		assert.Equal(t, "Spacious family house", listings[0].Title)
	})
}

func TestListingRepo_FeaturedFirstOnDefaultSort(t *testing.T) {
	db := setupTestDB(t)
	repo := NewListingRepository(db)
	ctx := context.Background()

	plain := activeListing(1, "Plain one", "Boston", 100000)
	mustCreate(t, db, plain)

	featured := activeListing(1, "Featured one", "Boston", 200000)
	featured.Featured = true
	mustCreate(t, db, featured)

	listings, _, err := repo.List(ctx, ListingFilter{})
	require.NoError(t, err)
	require.Len(t, listings, 2)
	assert.Equal(t, "Featured one", listings[0].Title)

	listings, _, err = repo.List(ctx, ListingFilter{Sort: "price_asc"})
	require.NoError(t, err)
	assert.Equal(t, "Plain one", listings[0].Title)
}

func TestListingRepo_ExpireDue(t *testing.T) {
	db := setupTestDB(t)
	repo := NewListingRepository(db)
	ctx := context.Background()

	due := activeListing(1, "Running out", "Boston", 100000)
	past := time.Now().Add(-time.Minute)
	due.ExpiresAt = &past
	due.Featured = true
	mustCreate(t, db, due)

	fresh := activeListing(1, "Still fresh", "Boston", 100000)
	mustCreate(t, db, fresh)

	n, err := repo.ExpireDue(ctx, time.Now())
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	got, err := repo.GetByID(ctx, due.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ListingStatusExpired, got.Status)
	assert.False(t, got.Featured, "expiry must clear the featured flag")

	got, err = repo.GetByID(ctx, fresh.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ListingStatusActive, got.Status)
}

func TestListingRepo_FeaturedCounts(t *testing.T) {
	db := setupTestDB(t)
	repo := NewListingRepository(db)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		l := activeListing(1, "Featured", "Boston", 100000)
		l.Featured = true
		mustCreate(t, db, l)
	}
	other := activeListing(2, "Other owner", "Boston", 100000)
	other.Featured = true
	mustCreate(t, db, other)

	// Featured but expired rows must not count.
	stale := activeListing(1, "Stale", "Boston", 100000)
	stale.Featured = true
	stale.Status = model.ListingStatusExpired
	mustCreate(t, db, stale)

	byOwner, err := repo.CountFeaturedByOwner(ctx, 1)
	require.NoError(t, err)
	assert.EqualValues(t, 3, byOwner)

	global, err := repo.CountFeatured(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 4, global)
}

func TestListingRepo_ActivatedAfter(t *testing.T) {
	db := setupTestDB(t)
	repo := NewListingRepository(db)
	ctx := context.Background()

	old := activeListing(1, "Approved last week", "Boston", 100000)
	lastWeek := time.Now().AddDate(0, 0, -7)
	old.ApprovedAt = &lastWeek
	mustCreate(t, db, old)

	recent := activeListing(1, "Approved today", "Boston", 100000)
	today := time.Now().Add(-time.Hour)
	recent.ApprovedAt = &today
	mustCreate(t, db, recent)

	_, total, err := repo.List(ctx, ListingFilter{ActivatedAfter: time.Now().AddDate(0, 0, -1)})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
}

func TestListingRepo_Images(t *testing.T) {
	db := setupTestDB(t)
	repo := NewListingRepository(db)
	ctx := context.Background()

	listing := activeListing(1, "With photos", "Boston", 100000)
	mustCreate(t, db, listing)

	require.NoError(t, repo.CreateImage(ctx, &model.ListingImage{ListingID: listing.ID, URL: "u2", Rank: 2}))
	require.NoError(t, repo.CreateImage(ctx, &model.ListingImage{ListingID: listing.ID, URL: "u1", Rank: 1}))

	count, err := repo.CountImages(ctx, listing.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)

	got, err := repo.GetByID(ctx, listing.ID)
	require.NoError(t, err)
	require.Len(t, got.Images, 2)
	assert.Equal(t, "u1", got.Images[0].URL, "images preload in rank order")
}
