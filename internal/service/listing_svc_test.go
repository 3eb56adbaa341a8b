package service

import (
	"context"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"openhaus/internal/model"
	"openhaus/internal/repository"
)

func TestListingService_CreateValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.user(t, "owner@example.com", model.RoleUser)

	t.Run("broker fee rejected outright", func(t *testing.T) {
		_, err := env.listing.Create(ctx, owner, &ListingInput{
			Kind: model.ListingKindRent, Title: "Fee trap", City: "Boston",
			PriceCents: 100000, BrokerFee: true,
		})
		assert.ErrorIs(t, err, ErrBrokerFee)
	})

	t.Run("bad kind", func(t *testing.T) {
		_, err := env.listing.Create(ctx, owner, &ListingInput{
			Kind: "timeshare", Title: "Nope", City: "Boston", PriceCents: 100000,
		})
		assert.ErrorIs(t, err, ErrInvalidKind)
	})

	t.Run("non-positive price", func(t *testing.T) {
		_, err := env.listing.Create(ctx, owner, &ListingInput{
			Kind: model.ListingKindSale, Title: "Free house", City: "Boston",
		})
		assert.ErrorIs(t, err, ErrInvalidPrice)
	})

	t.Run("valid submission starts pending", func(t *testing.T) {
		listing, err := env.listing.Create(ctx, owner, &ListingInput{
			Kind: model.ListingKindRent, Title: "Proper flat", City: "Boston",
			PriceCents: 200000, Amenities: []string{"laundry", "parking"},
		})
		require.NoError(t, err)
		assert.Equal(t, model.ListingStatusPending, listing.Status)
		assert.Nil(t, listing.ExpiresAt, "no expiry before approval")
	})
}

func TestListingService_AdminCreateGoesActive(t *testing.T) {
	env := newTestEnv(t)
	admin := env.user(t, "admin@example.com", model.RoleAdmin)

	listing, err := env.listing.Create(context.Background(), admin, &ListingInput{
		Kind: model.ListingKindRent, Title: "Admin direct", City: "Boston", PriceCents: 100000,
	})
	require.NoError(t, err)
	assert.Equal(t, model.ListingStatusActive, listing.Status)
	require.NotNil(t, listing.ExpiresAt)
	assert.Equal(t, admin.ID, listing.ApprovedBy)
}

func TestListingService_ListingCap(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.user(t, "capped@example.com", model.RoleUser)

	require.NoError(t, env.settings.Set(ctx, model.SettingUserListingCap, "2"))

	for i := 0; i < 2; i++ {
		_, err := env.listing.Create(ctx, owner, &ListingInput{
			Kind: model.ListingKindRent, Title: "Unit " + strconv.Itoa(i),
			City: "Boston", PriceCents: 100000,
		})
		require.NoError(t, err)
	}

	_, err := env.listing.Create(ctx, owner, &ListingInput{
		Kind: model.ListingKindRent, Title: "One too many", City: "Boston", PriceCents: 100000,
	})
	assert.ErrorIs(t, err, ErrListingCap)

	// Agents get their own, larger cap.
	agent := env.user(t, "agent@example.com", model.RoleAgent)
	_, err = env.listing.Create(ctx, agent, &ListingInput{
		Kind: model.ListingKindRent, Title: "Agent unit", City: "Boston", PriceCents: 100000,
	})
	assert.NoError(t, err)
}

func TestListingService_ModerationFlow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.user(t, "owner@example.com", model.RoleUser)
	admin := env.user(t, "admin@example.com", model.RoleAdmin)

	listing, err := env.listing.Create(ctx, owner, &ListingInput{
		Kind: model.ListingKindRent, Title: "Queue me", City: "Boston", PriceCents: 100000,
	})
	require.NoError(t, err)

	pending, total, err := env.listing.ListPending(ctx, 1, 20)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, pending, 1)

	t.Run("approve activates with expiry", func(t *testing.T) {
		approved, err := env.listing.Approve(ctx, admin.ID, listing.ID)
		require.NoError(t, err)
		assert.Equal(t, model.ListingStatusActive, approved.Status)
		require.NotNil(t, approved.ExpiresAt)
		assert.Equal(t, admin.ID, approved.ApprovedBy)
	})

	t.Run("approve is only valid from pending", func(t *testing.T) {
		_, err := env.listing.Approve(ctx, admin.ID, listing.ID)
		assert.ErrorIs(t, err, ErrNotModeratable)
	})

	t.Run("reject records the reason", func(t *testing.T) {
		second, err := env.listing.Create(ctx, owner, &ListingInput{
			Kind: model.ListingKindRent, Title: "Reject me", City: "Boston", PriceCents: 100000,
		})
		require.NoError(t, err)

		rejected, err := env.listing.Reject(ctx, admin.ID, second.ID, "photos missing")
		require.NoError(t, err)
		assert.Equal(t, model.ListingStatusRejected, rejected.Status)
		assert.Equal(t, "photos missing", rejected.RejectReason)
	})
}

func TestListingService_ResubmissionAfterReject(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.user(t, "owner@example.com", model.RoleUser)
	admin := env.user(t, "admin@example.com", model.RoleAdmin)

	listing, err := env.listing.Create(ctx, owner, &ListingInput{
		Kind: model.ListingKindRent, Title: "First draft", City: "Boston", PriceCents: 100000,
	})
	require.NoError(t, err)

	_, err = env.listing.Reject(ctx, admin.ID, listing.ID, "photos missing")
	require.NoError(t, err)

	t.Run("cosmetic edit keeps it rejected", func(t *testing.T) {
		updated, err := env.listing.Update(ctx, owner, listing.ID, &ListingInput{
			Kind: model.ListingKindRent, Title: "First draft", City: "Boston",
			PriceCents: 100000, Bedrooms: 1,
		})
		require.NoError(t, err)
		assert.Equal(t, model.ListingStatusRejected, updated.Status)
		assert.Equal(t, "photos missing", updated.RejectReason)
	})

	t.Run("substantive edit resubmits", func(t *testing.T) {
		updated, err := env.listing.Update(ctx, owner, listing.ID, &ListingInput{
			Kind: model.ListingKindRent, Title: "Second draft, photos added",
			City: "Boston", PriceCents: 100000, Bedrooms: 1,
		})
		require.NoError(t, err)
		assert.Equal(t, model.ListingStatusPending, updated.Status)
		assert.Empty(t, updated.RejectReason, "a resubmission sheds the old verdict")
	})

	t.Run("expired listings resubmit the same way", func(t *testing.T) {
		lapsed := env.submitActive(t, owner, "Lapsed")
		require.NoError(t, env.listingRepo.UpdateFields(ctx, lapsed.ID, map[string]interface{}{
			"status": model.ListingStatusExpired,
		}))

		updated, err := env.listing.Update(ctx, owner, lapsed.ID, &ListingInput{
			Kind: model.ListingKindRent, Title: "Lapsed, relisted",
			City: "Boston", PriceCents: 250000,
		})
		require.NoError(t, err)
		assert.Equal(t, model.ListingStatusPending, updated.Status)
	})
}

func TestListingService_SubstantiveEditGoesBackToPending(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.user(t, "owner@example.com", model.RoleUser)
	listing := env.submitActive(t, owner, "Stable home")

	_, err := env.listing.Feature(ctx, owner, listing.ID)
	require.NoError(t, err)

	t.Run("cosmetic edit keeps it live", func(t *testing.T) {
		updated, err := env.listing.Update(ctx, owner, listing.ID, &ListingInput{
			Kind: model.ListingKindRent, Title: "Stable home", City: "Boston",
			PriceCents: 250000, Bedrooms: 2,
		})
		require.NoError(t, err)
		assert.Equal(t, model.ListingStatusActive, updated.Status)
		assert.True(t, updated.Featured)
	})

	t.Run("price change re-enters moderation and unfeatured", func(t *testing.T) {
		updated, err := env.listing.Update(ctx, owner, listing.ID, &ListingInput{
			Kind: model.ListingKindRent, Title: "Stable home", City: "Boston",
			PriceCents: 300000, Bedrooms: 2,
		})
		require.NoError(t, err)
		assert.Equal(t, model.ListingStatusPending, updated.Status)
		assert.False(t, updated.Featured)
	})
}

func TestListingService_UpdateOwnership(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.user(t, "owner@example.com", model.RoleUser)
	stranger := env.user(t, "stranger@example.com", model.RoleUser)
	listing := env.submitActive(t, owner, "Mine alone")

	_, err := env.listing.Update(ctx, stranger, listing.ID, &ListingInput{
		Kind: model.ListingKindRent, Title: "Hijacked", City: "Boston", PriceCents: 100,
	})
	assert.ErrorIs(t, err, ErrNotOwner)

	err = env.listing.Remove(ctx, stranger, listing.ID)
	assert.ErrorIs(t, err, ErrNotOwner)
}

func TestListingService_FeaturedCaps(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	require.NoError(t, env.settings.Set(ctx, model.SettingFeaturedPerUserCap, "1"))
	require.NoError(t, env.settings.Set(ctx, model.SettingFeaturedGlobalCap, "2"))

	owner := env.user(t, "owner@example.com", model.RoleUser)
	other := env.user(t, "other@example.com", model.RoleUser)
	admin := env.user(t, "admin@example.com", model.RoleAdmin)

	first := env.submitActive(t, owner, "First")
	second := env.submitActive(t, owner, "Second")
	third := env.submitActive(t, other, "Third")
	fourth := env.submitActive(t, other, "Fourth")

	_, err := env.listing.Feature(ctx, owner, first.ID)
	require.NoError(t, err)

	t.Run("per-user cap", func(t *testing.T) {
		_, err := env.listing.Feature(ctx, owner, second.ID)
		assert.ErrorIs(t, err, ErrFeaturedUserCap)
	})

	t.Run("global cap", func(t *testing.T) {
		_, err := env.listing.Feature(ctx, other, third.ID)
		require.NoError(t, err)

		_, err = env.listing.Feature(ctx, other, fourth.ID)
		assert.ErrorIs(t, err, ErrFeaturedGlobalCap)
	})

	t.Run("admin bypasses both caps", func(t *testing.T) {
		_, err := env.listing.Feature(ctx, admin, fourth.ID)
		assert.NoError(t, err)
	})

	t.Run("only active listings can be featured", func(t *testing.T) {
		draft, err := env.listing.Create(ctx, owner, &ListingInput{
			Kind: model.ListingKindRent, Title: "Still pending", City: "Boston", PriceCents: 100000,
		})
		require.NoError(t, err)
		_, err = env.listing.Feature(ctx, admin, draft.ID)
		assert.ErrorIs(t, err, ErrListingNotActive)
	})
}

func TestListingService_GetVisibility(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.user(t, "owner@example.com", model.RoleUser)

	pending, err := env.listing.Create(ctx, owner, &ListingInput{
		Kind: model.ListingKindRent, Title: "Hidden", City: "Boston", PriceCents: 100000,
	})
	require.NoError(t, err)

	t.Run("public cannot see pending", func(t *testing.T) {
		_, _, err := env.listing.Get(ctx, pending.ID, 0, false)
		assert.ErrorIs(t, err, ErrListingNotActive)
	})

	t.Run("owner sees own pending", func(t *testing.T) {
		got, _, err := env.listing.Get(ctx, pending.ID, owner.ID, false)
		require.NoError(t, err)
		assert.Equal(t, "Hidden", got.Title)
	})

	t.Run("admin sees everything", func(t *testing.T) {
		_, _, err := env.listing.Get(ctx, pending.ID, 0, true)
		assert.NoError(t, err)
	})
}

func TestListingService_GetTracksViews(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.user(t, "owner@example.com", model.RoleUser)
	viewer := env.user(t, "viewer@example.com", model.RoleUser)
	listing := env.submitActive(t, owner, "Watched")

	_, _, err := env.listing.Get(ctx, listing.ID, viewer.ID, false)
	require.NoError(t, err)

	// Owner reads must not inflate the count.
	_, _, err = env.listing.Get(ctx, listing.ID, owner.ID, false)
	require.NoError(t, err)

	var count int64
	env.db.Model(&model.AnalyticsEvent{}).
		Where("event_type = ? AND listing_id = ?", model.EventListingView, listing.ID).
		Count(&count)
	assert.EqualValues(t, 1, count)
}

func TestListingService_ImageCap(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.user(t, "owner@example.com", model.RoleUser)
	listing := env.submitActive(t, owner, "Gallery")

	require.NoError(t, env.settings.Set(ctx, model.SettingListingImageCap, "2"))

	data := []byte("fake-jpeg-bytes")
	for i := 0; i < 2; i++ {
		_, err := env.listing.AddImage(ctx, owner, listing.ID, data, "photo.jpg", "image/jpeg")
		require.NoError(t, err)
	}

	_, err := env.listing.AddImage(ctx, owner, listing.ID, data, "photo.jpg", "image/jpeg")
	assert.ErrorIs(t, err, ErrImageCap)

	images, err := env.listingRepo.ListImages(ctx, listing.ID)
	require.NoError(t, err)
	require.Len(t, images, 2)
	assert.Equal(t, 1, images[0].Rank)
	assert.Equal(t, 2, images[1].Rank)
}

func TestListingService_ImageRanksNeverCollide(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.user(t, "owner@example.com", model.RoleUser)
	listing := env.submitActive(t, owner, "Reordered gallery")

	data := []byte("fake-jpeg-bytes")
	first, err := env.listing.AddImage(ctx, owner, listing.ID, data, "a.jpg", "image/jpeg")
	require.NoError(t, err)
	second, err := env.listing.AddImage(ctx, owner, listing.ID, data, "b.jpg", "image/jpeg")
	require.NoError(t, err)
	assert.Equal(t, 1, first.Rank)
	assert.Equal(t, 2, second.Rank)

	// Deleting mid-gallery must not hand the next upload a taken rank.
	require.NoError(t, env.listing.RemoveImage(ctx, owner, listing.ID, first.ID))

	third, err := env.listing.AddImage(ctx, owner, listing.ID, data, "c.jpg", "image/jpeg")
	require.NoError(t, err)
	assert.Equal(t, 3, third.Rank)

	images, err := env.listingRepo.ListImages(ctx, listing.ID)
	require.NoError(t, err)
	require.Len(t, images, 2)
	assert.Equal(t, 2, images[0].Rank)
	assert.Equal(t, 3, images[1].Rank)
}

func TestListingService_ImageURL(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.user(t, "owner@example.com", model.RoleUser)
	viewer := env.user(t, "viewer@example.com", model.RoleUser)
	listing := env.submitActive(t, owner, "Pictured")

	image, err := env.listing.AddImage(ctx, owner, listing.ID, []byte("fake-jpeg-bytes"), "a.jpg", "image/jpeg")
	require.NoError(t, err)

	t.Run("visible listing serves a url", func(t *testing.T) {
		// Local storage has nothing to sign, so the url comes back as is.
		url, err := env.listing.ImageURL(ctx, viewer.ID, false, listing.ID, image.ID)
		require.NoError(t, err)
		assert.Equal(t, image.URL, url)
	})

	t.Run("image must belong to the listing", func(t *testing.T) {
		other := env.submitActive(t, owner, "Unpictured")
		_, err := env.listing.ImageURL(ctx, viewer.ID, false, other.ID, image.ID)
		assert.Error(t, err)
	})

	t.Run("hidden listing stays hidden", func(t *testing.T) {
		draft, err := env.listing.Create(ctx, owner, &ListingInput{
			Kind: model.ListingKindRent, Title: "Draft", City: "Boston", PriceCents: 100000,
		})
		require.NoError(t, err)
		hidden, err := env.listing.AddImage(ctx, owner, draft.ID, []byte("fake-jpeg-bytes"), "d.jpg", "image/jpeg")
		require.NoError(t, err)

		_, err = env.listing.ImageURL(ctx, viewer.ID, false, draft.ID, hidden.ID)
		assert.ErrorIs(t, err, ErrListingNotActive)

		url, err := env.listing.ImageURL(ctx, owner.ID, false, draft.ID, hidden.ID)
		require.NoError(t, err)
		assert.NotEmpty(t, url)
	})
}

func TestListingService_BrowseExcludesOwnerControls(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.user(t, "owner@example.com", model.RoleUser)
	env.submitActive(t, owner, "Public one")

	_, err := env.listing.Create(ctx, owner, &ListingInput{
		Kind: model.ListingKindRent, Title: "Pending one", City: "Boston", PriceCents: 100000,
	})
	require.NoError(t, err)

	// Callers can't smuggle hidden statuses through the filter.
	listings, total, err := env.listing.Browse(ctx, repository.ListingFilter{
		IncludeHidden: true,
	}, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, listings, 1)
	assert.Equal(t, "Public one", listings[0].Title)
}

func TestListingService_Contact(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.user(t, "owner@example.com", model.RoleUser)
	buyer := env.user(t, "buyer@example.com", model.RoleUser)
	listing := env.submitActive(t, owner, "Reachable")

	got, err := env.listing.Contact(ctx, buyer.ID, listing.ID)
	require.NoError(t, err)
	assert.Equal(t, "owner@example.com", got.Email)

	t.Run("lead tracked", func(t *testing.T) {
		var count int64
		env.db.Model(&model.AnalyticsEvent{}).
			Where("event_type = ? AND listing_id = ?", model.EventContact, listing.ID).
			Count(&count)
		assert.EqualValues(t, 1, count)
	})

	t.Run("own listing is not a lead", func(t *testing.T) {
		_, err := env.listing.Contact(ctx, owner.ID, listing.ID)
		require.NoError(t, err)

		var count int64
		env.db.Model(&model.AnalyticsEvent{}).
			Where("event_type = ?", model.EventContact).
			Count(&count)
		assert.EqualValues(t, 1, count)
	})

	t.Run("hidden listing unreachable", func(t *testing.T) {
		pending, err := env.listing.Create(ctx, owner, &ListingInput{
			Kind: model.ListingKindRent, Title: "Unlisted", City: "Boston", PriceCents: 100000,
		})
		require.NoError(t, err)

		_, err = env.listing.Contact(ctx, buyer.ID, pending.ID)
		assert.ErrorIs(t, err, ErrListingNotActive)
	})
}
