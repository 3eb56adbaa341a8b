package mailer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderSubscriberDigest(t *testing.T) {
	html, text, err := RenderSubscriberDigest(SubscriberDigestData{
		SearchName: "Boston rentals",
		Period:     "in the last day",
		Listings: []ListingItem{
			{Title: "Sunny 2BR", City: "Boston", Kind: "rent", Price: "$2500/mo", URL: "https://x/listings/1", Bedrooms: 2},
		},
	})
	require.NoError(t, err)

	assert.Contains(t, html, "Boston rentals")
	assert.Contains(t, html, `href="https://x/listings/1"`)
	assert.Contains(t, html, "Sunny 2BR")

	assert.Contains(t, text, "Sunny 2BR")
	assert.Contains(t, text, "$2500/mo")
	assert.Contains(t, text, "https://x/listings/1")
}

func TestRenderAdminDigest(t *testing.T) {
	html, text, err := RenderAdminDigest(AdminDigestData{
		Day:             "Mon, Aug 24 2026",
		NewListings:     3,
		PendingListings: 2,
		Signups:         5,
		Searches:        40,
		ListingViews:    120,
		TopListings: []ListingItem{
			{Title: "Penthouse", City: "Boston", URL: "https://x/listings/9"},
		},
	})
	require.NoError(t, err)

	assert.Contains(t, html, "Mon, Aug 24 2026")
	assert.Contains(t, html, "Penthouse")
	assert.Contains(t, text, "Awaiting moderation: 2")
	assert.Contains(t, text, "Listing views: 120")
}

func TestFormatPrice(t *testing.T) {
	assert.Equal(t, "$2500/mo", FormatPrice(250000, "rent"))
	assert.Equal(t, "$450000", FormatPrice(45000000, "sale"))
}

func TestPeriodLabel(t *testing.T) {
	now := time.Now()
	assert.Equal(t, "in the last day", PeriodLabel(now.AddDate(0, 0, -1), now))
	assert.Contains(t, PeriodLabel(now.AddDate(0, 0, -7), now), "since ")
}
