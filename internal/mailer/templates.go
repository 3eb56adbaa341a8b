package mailer

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"time"
)

// ==================== Digest rendering ====================

// ListingItem is one listing row in a digest email.
type ListingItem struct {
	Title    string
	City     string
	Kind     string
	Price    string
	URL      string
	Bedrooms int
}

// SubscriberDigestData feeds the saved-search digest template.
type SubscriberDigestData struct {
	SearchName string
	Listings   []ListingItem
	Period     string
}

// AdminDigestData feeds the daily admin summary template.
type AdminDigestData struct {
	Day             string
	NewListings     int64
	PendingListings int64
	Signups         int64
	Searches        int64
	ListingViews    int64
	TopListings     []ListingItem
}

var subscriberTmpl = template.Must(template.New("subscriber").Parse(`<html>
<body style="font-family: sans-serif; color: #222;">
<h2>New listings for "{{.SearchName}}"</h2>
<p>{{len .Listings}} new listing(s) {{.Period}}.</p>
<ul>
{{range .Listings}}<li>
  <a href="{{.URL}}">{{.Title}}</a> — {{.City}}, {{.Bedrooms}} bd, {{.Price}} ({{.Kind}})
</li>
{{end}}</ul>
<p style="color:#888;font-size:12px;">You receive this because the saved search is subscribed to digests. Change the frequency in your account settings.</p>
</body>
</html>`))

var adminTmpl = template.Must(template.New("admin").Parse(`<html>
<body style="font-family: sans-serif; color: #222;">
<h2>Marketplace summary for {{.Day}}</h2>
<table cellpadding="4">
<tr><td>New listings</td><td><b>{{.NewListings}}</b></td></tr>
<tr><td>Awaiting moderation</td><td><b>{{.PendingListings}}</b></td></tr>
<tr><td>Signups</td><td><b>{{.Signups}}</b></td></tr>
<tr><td>Searches</td><td><b>{{.Searches}}</b></td></tr>
<tr><td>Listing views</td><td><b>{{.ListingViews}}</b></td></tr>
</table>
{{if .TopListings}}<h3>Most viewed</h3>
<ol>
{{range .TopListings}}<li><a href="{{.URL}}">{{.Title}}</a> — {{.City}}</li>
{{end}}</ol>{{end}}
</body>
</html>`))

// RenderSubscriberDigest produces the HTML and plain-text bodies.
func RenderSubscriberDigest(data SubscriberDigestData) (html, text string, err error) {
	var buf bytes.Buffer
	if err := subscriberTmpl.Execute(&buf, data); err != nil {
		return "", "", fmt.Errorf("render subscriber digest: %w", err)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "New listings for %q (%s)\n\n", data.SearchName, data.Period)
	for _, item := range data.Listings {
		fmt.Fprintf(&sb, "- %s — %s, %d bd, %s (%s)\n  %s\n",
			item.Title, item.City, item.Bedrooms, item.Price, item.Kind, item.URL)
	}

	return buf.String(), sb.String(), nil
}

// RenderAdminDigest produces the HTML and plain-text bodies.
func RenderAdminDigest(data AdminDigestData) (html, text string, err error) {
	var buf bytes.Buffer
	if err := adminTmpl.Execute(&buf, data); err != nil {
		return "", "", fmt.Errorf("render admin digest: %w", err)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Marketplace summary for %s\n\n", data.Day)
	fmt.Fprintf(&sb, "New listings: %d\nAwaiting moderation: %d\nSignups: %d\nSearches: %d\nListing views: %d\n",
		data.NewListings, data.PendingListings, data.Signups, data.Searches, data.ListingViews)

	return buf.String(), sb.String(), nil
}

// FormatPrice renders cents as a dollar string for email bodies.
func FormatPrice(cents int64, kind string) string {
	price := fmt.Sprintf("$%d", cents/100)
	if kind == "rent" {
		return price + "/mo"
	}
	return price
}

// PeriodLabel describes the window a digest covers.
func PeriodLabel(from, to time.Time) string {
	if to.Sub(from) > 2*24*time.Hour {
		return fmt.Sprintf("since %s", from.Format("Jan 2"))
	}
	return "in the last day"
}
