package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"openhaus/internal/mailer"
	"openhaus/internal/model"
	"openhaus/internal/repository"
)

// ==================== DigestService ====================

// DigestService builds and sends the scheduled summary emails:
// per-saved-search subscriber digests and the daily admin digest.
type DigestService struct {
	searchRepo  repository.SavedSearchRepository
	listingRepo repository.ListingRepository
	userRepo    repository.UserRepository
	digestRepo  repository.DigestRepository
	analytics   *AnalyticsService
	sender      mailer.Sender
	logger      *zap.Logger

	// Public site base for links in email bodies.
	siteBaseURL string
}

func NewDigestService(
	searchRepo repository.SavedSearchRepository,
	listingRepo repository.ListingRepository,
	userRepo repository.UserRepository,
	digestRepo repository.DigestRepository,
	analytics *AnalyticsService,
	sender mailer.Sender,
	siteBaseURL string,
	logger *zap.Logger,
) *DigestService {
	if siteBaseURL == "" {
		siteBaseURL = "https://openhaus.example.com"
	}
	return &DigestService{
		searchRepo:  searchRepo,
		listingRepo: listingRepo,
		userRepo:    userRepo,
		digestRepo:  digestRepo,
		analytics:   analytics,
		sender:      sender,
		siteBaseURL: siteBaseURL,
		logger:      logger.Named("digest"),
	}
}

// ==================== Subscriber digests ====================

// DigestSummary is what a run reports back to the task layer.
type DigestSummary struct {
	Sent    int
	Skipped int
	Failed  int
}

// RunSubscriberDigests sends one email per subscribed saved search
// whose window has new listings. Fan-out is bounded by concurrency;
// one bad search never stops the batch.
func (s *DigestService) RunSubscriberDigests(ctx context.Context, freq string, concurrency int) (DigestSummary, error) {
	var summary DigestSummary

	searches, err := s.searchRepo.ListByDigestFreq(ctx, freq)
	if err != nil {
		return summary, err
	}
	if len(searches) == 0 {
		return summary, nil
	}

	if concurrency <= 0 {
		concurrency = 5
	}
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup
	var mu sync.Mutex

	s.logger.Info("subscriber digest batch starting",
		zap.String("freq", freq),
		zap.Int("searches", len(searches)),
		zap.Int("concurrency", concurrency))

	for _, search := range searches {
		select {
		case <-ctx.Done():
			s.logger.Warn("digest batch cancelled")
			wg.Wait()
			return summary, ctx.Err()
		default:
		}

		sem <- struct{}{}
		wg.Add(1)

		go func(search model.SavedSearch) {
			defer wg.Done()
			defer func() { <-sem }()

			status := s.sendOne(ctx, &search, freq)

			mu.Lock()
			switch status {
			case model.DigestStatusSent:
				summary.Sent++
			case model.DigestStatusSkipped:
				summary.Skipped++
			default:
				summary.Failed++
			}
			mu.Unlock()
		}(search)
	}

	wg.Wait()
	s.logger.Info("subscriber digest batch done",
		zap.Int("sent", summary.Sent),
		zap.Int("skipped", summary.Skipped),
		zap.Int("failed", summary.Failed))
	return summary, nil
}

// sendOne handles a single saved search end to end and records the run.
func (s *DigestService) sendOne(ctx context.Context, search *model.SavedSearch, freq string) model.DigestStatus {
	now := time.Now()
	since := s.windowStart(ctx, search, freq, now)

	run := &model.DigestRun{
		Kind:          model.DigestKindSubscriber,
		SavedSearchID: search.ID,
		PeriodStart:   since,
		PeriodEnd:     now,
	}
	if search.User != nil {
		run.Recipient = search.User.Email
	}

	finish := func(status model.DigestStatus, itemCnt int, cause error) model.DigestStatus {
		run.Status = status
		run.ItemCnt = itemCnt
		if cause != nil {
			run.Error = cause.Error()
			s.logger.Warn("subscriber digest failed",
				zap.Int64("search_id", search.ID), zap.Error(cause))
		}
		if err := s.digestRepo.Record(ctx, run); err != nil {
			s.logger.Warn("digest run record failed", zap.Error(err))
		}
		return status
	}

	if search.User == nil || search.User.Email == "" {
		return finish(model.DigestStatusSkipped, 0, nil)
	}

	var filter repository.ListingFilter
	if err := json.Unmarshal(search.Filter, &filter); err != nil {
		return finish(model.DigestStatusFailed, 0, err)
	}
	filter.IncludeHidden = false
	filter.ActivatedAfter = since
	filter.Page = 1
	filter.PageSize = 20

	listings, total, err := s.listingRepo.List(ctx, filter)
	if err != nil {
		return finish(model.DigestStatusFailed, 0, err)
	}
	if total == 0 {
		return finish(model.DigestStatusSkipped, 0, nil)
	}

	html, text, err := mailer.RenderSubscriberDigest(mailer.SubscriberDigestData{
		SearchName: search.Name,
		Listings:   s.toItems(listings),
		Period:     mailer.PeriodLabel(since, now),
	})
	if err != nil {
		return finish(model.DigestStatusFailed, 0, err)
	}

	err = s.sender.Send(ctx, mailer.Message{
		To:       search.User.Email,
		Subject:  fmt.Sprintf("%d new listings for %q", total, search.Name),
		HTMLBody: html,
		TextBody: text,
	})
	if err != nil {
		return finish(model.DigestStatusFailed, len(listings), err)
	}

	if err := s.searchRepo.MarkDigested(ctx, search.ID, now); err != nil {
		s.logger.Warn("mark digested failed", zap.Int64("search_id", search.ID), zap.Error(err))
	}
	return finish(model.DigestStatusSent, len(listings), nil)
}

// windowStart picks where this digest's period begins: the last
// successful digest when known, otherwise one frequency period back.
func (s *DigestService) windowStart(ctx context.Context, search *model.SavedSearch, freq string, now time.Time) time.Time {
	if search.LastDigestAt != nil {
		return *search.LastDigestAt
	}
	// The search row may have missed its last_digest_at stamp (the
	// mark write is best effort). The run log still knows what the
	// last non-failed run covered.
	if run, err := s.digestRepo.LastRun(ctx, model.DigestKindSubscriber, search.ID); err == nil && run != nil {
		return run.PeriodEnd
	}
	if freq == model.DigestFreqWeekly {
		return now.AddDate(0, 0, -7)
	}
	return now.AddDate(0, 0, -1)
}

// RecentRuns lists delivery history, newest first.
func (s *DigestService) RecentRuns(ctx context.Context, kind model.DigestKind, limit int) ([]model.DigestRun, error) {
	return s.digestRepo.ListRecent(ctx, kind, limit)
}

// PruneRuns drops delivery bookkeeping older than the retention window
// and reports how many rows went.
func (s *DigestService) PruneRuns(ctx context.Context, keep time.Duration) (int64, error) {
	pruned, err := s.digestRepo.PruneBefore(ctx, time.Now().Add(-keep))
	if err != nil {
		return 0, err
	}
	if pruned > 0 {
		s.logger.Info("old digest runs pruned", zap.Int64("count", pruned))
	}
	return pruned, nil
}

// ==================== Admin digest ====================

// RunAdminDigest mails yesterday's site numbers and moderation queue
// size to every active admin.
func (s *DigestService) RunAdminDigest(ctx context.Context) (DigestSummary, error) {
	var summary DigestSummary
	now := time.Now()
	yesterday := now.AddDate(0, 0, -1)

	stats, err := s.analytics.SiteSeries(ctx, yesterday, yesterday)
	if err != nil {
		return summary, err
	}
	var site model.DailySiteStat
	if len(stats) > 0 {
		site = stats[0]
	}

	_, pending, err := s.listingRepo.ListPending(ctx, 1, 1)
	if err != nil {
		return summary, err
	}

	top, err := s.analytics.TopListings(ctx, yesterday, yesterday, 5)
	if err != nil {
		return summary, err
	}
	topItems := make([]mailer.ListingItem, 0, len(top))
	for _, stat := range top {
		listing, err := s.listingRepo.GetByID(ctx, stat.ListingID)
		if err != nil {
			continue
		}
		topItems = append(topItems, s.toItem(listing))
	}

	newCount, err := s.countActivatedSince(ctx, yesterday)
	if err != nil {
		return summary, err
	}

	html, text, err := mailer.RenderAdminDigest(mailer.AdminDigestData{
		Day:             yesterday.Format("Mon, Jan 2 2006"),
		NewListings:     newCount,
		PendingListings: pending,
		Signups:         site.Signups,
		Searches:        site.Searches,
		ListingViews:    site.ListingViews,
		TopListings:     topItems,
	})
	if err != nil {
		return summary, err
	}

	admins, err := s.userRepo.ListByRole(ctx, model.RoleAdmin)
	if err != nil {
		return summary, err
	}

	for _, admin := range admins {
		run := &model.DigestRun{
			Kind:        model.DigestKindAdmin,
			Recipient:   admin.Email,
			PeriodStart: yesterday,
			PeriodEnd:   now,
			Status:      model.DigestStatusSent,
			ItemCnt:     len(topItems),
		}

		err := s.sender.Send(ctx, mailer.Message{
			To:       admin.Email,
			Subject:  "openhaus daily summary — " + yesterday.Format("Jan 2"),
			HTMLBody: html,
			TextBody: text,
		})
		if err != nil {
			run.Status = model.DigestStatusFailed
			run.Error = err.Error()
			summary.Failed++
			s.logger.Warn("admin digest send failed",
				zap.String("to", admin.Email), zap.Error(err))
		} else {
			summary.Sent++
		}

		if err := s.digestRepo.Record(ctx, run); err != nil {
			s.logger.Warn("digest run record failed", zap.Error(err))
		}
	}

	return summary, nil
}

func (s *DigestService) countActivatedSince(ctx context.Context, since time.Time) (int64, error) {
	_, total, err := s.listingRepo.List(ctx, repository.ListingFilter{
		ActivatedAfter: since,
		Page:           1,
		PageSize:       1,
	})
	return total, err
}

// ==================== Helpers ====================

func (s *DigestService) toItems(listings []model.Listing) []mailer.ListingItem {
	items := make([]mailer.ListingItem, 0, len(listings))
	for i := range listings {
		items = append(items, s.toItem(&listings[i]))
	}
	return items
}

func (s *DigestService) toItem(listing *model.Listing) mailer.ListingItem {
	return mailer.ListingItem{
		Title:    listing.Title,
		City:     listing.City,
		Kind:     string(listing.Kind),
		Price:    mailer.FormatPrice(listing.PriceCents, string(listing.Kind)),
		URL:      fmt.Sprintf("%s/listings/%d", s.siteBaseURL, listing.ID),
		Bedrooms: listing.Bedrooms,
	}
}
